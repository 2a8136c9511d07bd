package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectivity_Subscribe(t *testing.T) {
	c := NewConnectivity(true)

	var mu sync.Mutex
	var got []bool
	unsubscribe := c.Subscribe(func(online bool) {
		mu.Lock()
		got = append(got, online)
		mu.Unlock()
	})

	c.SetOnline(true) // unchanged, no notification
	c.SetOnline(false)
	c.SetOnline(true)
	unsubscribe()
	c.SetOnline(false)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{false, true}, got)
	assert.False(t, c.Online())
}

type flakyProber struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (p *flakyProber) Health(ctx context.Context) error {
	p.calls.Add(1)
	if p.fail.Load() {
		return errors.New("unreachable")
	}
	return nil
}

func TestConnectivity_Monitor(t *testing.T) {
	c := NewConnectivity(true)
	p := &flakyProber{}
	p.fail.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Monitor(ctx, p, 10*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return !c.Online() }, time.Second, 5*time.Millisecond)

	p.fail.Store(false)
	require.Eventually(t, c.Online, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.GreaterOrEqual(t, p.calls.Load(), int32(2))
}

func TestConnectivity_MonitorZeroInterval(t *testing.T) {
	c := NewConnectivity(true)
	p := &flakyProber{}
	p.fail.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Monitor(ctx, p, 0)
		close(done)
	}()

	require.Eventually(t, func() bool { return !c.Online() }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestHealth(t *testing.T) {
	status := "ok"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"status": status, "service": "Dividend Hunter API"})
	}))
	defer server.Close()

	clock := &testClock{t: testNow}
	client, _ := newTestClient(server.URL+"/api/", nil, clock)

	require.NoError(t, client.Health(context.Background()))

	status = "degraded"
	err := client.Health(context.Background())
	assert.ErrorIs(t, err, ErrNetworkFailure)

	down, _ := newTestClient(downURL(t), nil, clock)
	assert.ErrorIs(t, down.Health(context.Background()), ErrNetworkFailure)
}

func TestShouldRefresh_NoStore(t *testing.T) {
	clock := &testClock{t: testNow}
	client, _ := newTestClient("http://example.invalid", nil, clock)

	refresh, err := client.ShouldRefresh(context.Background())
	require.NoError(t, err)
	assert.True(t, refresh)
}

func TestShouldRefresh_NeverFetched(t *testing.T) {
	clock := &testClock{t: testNow}
	client, _ := newTestClient("http://example.invalid", newTestStore(clock), clock)

	refresh, err := client.ShouldRefresh(context.Background())
	require.NoError(t, err)
	assert.True(t, refresh)
}
