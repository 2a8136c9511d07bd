package remote

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"dividend-hunter/internal/observability"
)

// Prober checks whether the remote API is reachable.
type Prober interface {
	Health(ctx context.Context) error
}

// Connectivity tracks whether the remote API is reachable.
// It stands in for the platform online/offline signal.
type Connectivity struct {
	online atomic.Bool

	mu     sync.Mutex
	nextID int
	subs   map[int]func(online bool)
}

// NewConnectivity creates a tracker with the given initial state.
func NewConnectivity(online bool) *Connectivity {
	c := &Connectivity{subs: make(map[int]func(bool))}
	c.online.Store(online)
	observability.SetOnline(online)
	return c
}

// Online reports the current state.
func (c *Connectivity) Online() bool {
	return c.online.Load()
}

// SetOnline updates the state and notifies subscribers on change.
func (c *Connectivity) SetOnline(online bool) {
	if c.online.Swap(online) == online {
		return
	}
	observability.SetOnline(online)

	c.mu.Lock()
	subs := make([]func(bool), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(online)
	}
}

// Subscribe registers fn for state changes. The returned func unsubscribes.
func (c *Connectivity) Subscribe(fn func(online bool)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Monitor probes p every interval and updates the state until ctx is done.
// The first probe runs immediately. A non-positive interval uses DefaultHealthInterval.
func (c *Connectivity) Monitor(ctx context.Context, p Prober, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		err := p.Health(probeCtx)
		cancel()
		if ctx.Err() != nil {
			return
		}
		c.SetOnline(err == nil)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
