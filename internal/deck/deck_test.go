package deck

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dividend-hunter/internal/domain"
)

type recordingRenderer struct {
	mu     sync.Mutex
	cards  [][]domain.StockRecord
	empty  int
	drags  []DragFrame
	resets int
	exits  []Direction
}

func (r *recordingRenderer) RenderCards(v []domain.StockRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards = append(r.cards, v)
}

func (r *recordingRenderer) RenderEmpty() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.empty++
}

func (r *recordingRenderer) RenderDrag(f DragFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drags = append(r.drags, f)
}

func (r *recordingRenderer) RenderReset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
}

func (r *recordingRenderer) RenderExit(d Direction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exits = append(r.exits, d)
}

func (r *recordingRenderer) lastCards() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.cards) == 0 {
		return nil
	}
	return tickers(r.cards[len(r.cards)-1])
}

// manualTimer collects lock releases so tests decide when the animation ends.
type manualTimer struct {
	pending []func()
	delays  []time.Duration
}

func (m *manualTimer) after(d time.Duration, f func()) {
	m.delays = append(m.delays, d)
	m.pending = append(m.pending, f)
}

func (m *manualTimer) fire() {
	for _, f := range m.pending {
		f()
	}
	m.pending = nil
}

func immediate(_ time.Duration, f func()) { f() }

func records(tickers ...string) []domain.StockRecord {
	out := make([]domain.StockRecord, len(tickers))
	for i, t := range tickers {
		out[i] = domain.StockRecord{Ticker: t}
	}
	return out
}

func tickers(rs []domain.StockRecord) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Ticker
	}
	return out
}

func TestInit_Empty(t *testing.T) {
	r := &recordingRenderer{}
	e := New(r)

	emptied := 0
	e.Init(nil, Callbacks{OnEmpty: func() { emptied++ }})

	assert.Equal(t, 1, r.empty)
	assert.Equal(t, 1, emptied)
	assert.Equal(t, 0, e.RemainingCount())
	assert.False(t, e.CanUndo())
	assert.False(t, e.SwipeRight())
	assert.False(t, e.SwipeLeft())

	_, ok := e.CurrentStock()
	assert.False(t, ok)
}

func TestInit_RendersTopThree(t *testing.T) {
	r := &recordingRenderer{}
	e := New(r)

	e.Init(records("A", "B", "C", "D", "E"), Callbacks{})

	assert.Equal(t, []string{"A", "B", "C"}, r.lastCards())
	assert.Equal(t, 5, e.RemainingCount())
	cur, ok := e.CurrentStock()
	require.True(t, ok)
	assert.Equal(t, "A", cur.Ticker)
}

func TestSwipeRightThenUndo(t *testing.T) {
	r := &recordingRenderer{}
	e := New(r, WithAfterFunc(immediate))

	var liked []string
	e.Init(records("A", "B", "C"), Callbacks{
		OnSwipeRight: func(s domain.StockRecord) { liked = append(liked, s.Ticker) },
	})

	require.True(t, e.SwipeRight())
	assert.Equal(t, []string{"A"}, liked)
	assert.Equal(t, 2, e.RemainingCount())
	assert.Equal(t, []string{"B", "C"}, r.lastCards())
	assert.Equal(t, []Direction{Right}, r.exits)

	res, ok := e.Undo()
	require.True(t, ok)
	assert.Equal(t, "A", res.Record.Ticker)
	assert.Equal(t, Right, res.Direction)
	assert.Equal(t, 0, e.Snapshot().Cursor)
	assert.Equal(t, []string{"A", "B", "C"}, r.lastCards())
	assert.False(t, e.CanUndo())

	_, ok = e.Undo()
	assert.False(t, ok)
}

func TestSwipe_LockHeldUntilAnimationEnds(t *testing.T) {
	timer := &manualTimer{}
	e := New(nil, WithAfterFunc(timer.after))

	var passed []string
	e.Init(records("A", "B", "C"), Callbacks{
		OnSwipeLeft: func(s domain.StockRecord) { passed = append(passed, s.Ticker) },
	})

	require.True(t, e.SwipeLeft())
	assert.True(t, e.Snapshot().Locked)
	assert.False(t, e.SwipeLeft(), "swipe during exit animation is ignored")
	assert.False(t, e.SwipeRight())
	assert.Equal(t, []string{"A"}, passed)
	assert.Equal(t, []time.Duration{ExitAnimation + LockBuffer}, timer.delays)

	timer.fire()
	assert.False(t, e.Snapshot().Locked)
	require.True(t, e.SwipeLeft())
	assert.Equal(t, []string{"A", "B"}, passed)
}

func TestSwipe_StaleTimerAfterInit(t *testing.T) {
	timer := &manualTimer{}
	e := New(nil, WithAfterFunc(timer.after))

	e.Init(records("A", "B"), Callbacks{})
	require.True(t, e.SwipeRight())
	stale := timer.pending
	timer.pending = nil

	e.Init(records("X", "Y"), Callbacks{})
	require.True(t, e.SwipeRight())

	for _, f := range stale {
		f()
	}
	assert.True(t, e.Snapshot().Locked, "release from the previous deck does not unlock")

	timer.fire()
	assert.False(t, e.Snapshot().Locked)
}

func TestSwipe_LastCardFiresOnEmpty(t *testing.T) {
	r := &recordingRenderer{}
	e := New(r, WithAfterFunc(immediate))

	emptied := 0
	e.Init(records("A", "B"), Callbacks{OnEmpty: func() { emptied++ }})

	require.True(t, e.SwipeRight())
	assert.Equal(t, 0, emptied)
	require.True(t, e.SwipeLeft())
	assert.Equal(t, 1, emptied)
	assert.Equal(t, 1, r.empty)
	assert.False(t, e.SwipeRight(), "no-op past the end")
	assert.Equal(t, 1, emptied)
}

func TestSwipe_CallbackMayQueryEngine(t *testing.T) {
	e := New(nil, WithAfterFunc(immediate))

	var remaining []int
	e.Init(records("A", "B", "C"), Callbacks{
		OnSwipeRight: func(domain.StockRecord) { remaining = append(remaining, e.RemainingCount()) },
	})

	done := make(chan struct{})
	go func() {
		e.SwipeRight()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback deadlocked on the engine")
	}
	assert.Equal(t, []int{2}, remaining)
}

func TestUndo_MultipleRestoresOrder(t *testing.T) {
	e := New(nil, WithAfterFunc(immediate))
	e.Init(records("A", "B", "C"), Callbacks{})

	e.SwipeRight()
	e.SwipeLeft()

	res, ok := e.Undo()
	require.True(t, ok)
	assert.Equal(t, "B", res.Record.Ticker)
	assert.Equal(t, Left, res.Direction)

	res, ok = e.Undo()
	require.True(t, ok)
	assert.Equal(t, "A", res.Record.Ticker)
	assert.Equal(t, 3, e.RemainingCount())
}

func TestRandomize_ShufflesTailOnly(t *testing.T) {
	e := New(nil, WithAfterFunc(immediate), WithRand(rand.New(rand.NewSource(7))))
	all := records("A", "B", "C", "D", "E", "F", "G", "H", "I", "J")
	e.Init(all, Callbacks{})

	e.SwipeRight()
	e.SwipeLeft()

	changed := false
	for i := 0; i < 5 && !changed; i++ {
		e.Randomize()
		e.mu.Lock()
		got := tickers(e.queue)
		e.mu.Unlock()

		assert.Equal(t, []string{"A", "B"}, got[:2], "swiped records keep their place")
		assert.ElementsMatch(t, []string{"C", "D", "E", "F", "G", "H", "I", "J"}, got[2:])
		changed = !assert.ObjectsAreEqual([]string{"C", "D", "E", "F", "G", "H", "I", "J"}, got[2:])
	}
	assert.True(t, changed, "tail order changed")
	assert.Equal(t, 8, e.RemainingCount())
}

func TestRandomize_NoopUnderTwo(t *testing.T) {
	r := &recordingRenderer{}
	e := New(r, WithAfterFunc(immediate))
	e.Init(records("A", "B"), Callbacks{})
	e.SwipeRight()

	renders := len(r.cards)
	e.Randomize()
	assert.Equal(t, renders, len(r.cards))

	cur, ok := e.CurrentStock()
	require.True(t, ok)
	assert.Equal(t, "B", cur.Ticker)
}

func TestSnapshot(t *testing.T) {
	e := New(nil, WithAfterFunc(immediate))
	e.Init(records("A", "B", "C", "D"), Callbacks{})
	e.SwipeLeft()

	s := e.Snapshot()
	require.NotNil(t, s.Current)
	assert.Equal(t, "B", s.Current.Ticker)
	assert.Equal(t, []string{"B", "C", "D"}, tickers(s.Visible))
	assert.Equal(t, 1, s.Cursor)
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 3, s.Remaining)
	assert.True(t, s.CanUndo)
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("right")
	require.NoError(t, err)
	assert.Equal(t, Right, d)
	assert.Equal(t, domain.SwipeLike, d.Action())
	assert.Equal(t, domain.SwipePass, Left.Action())

	_, err = ParseDirection("up")
	assert.Error(t, err)
}
