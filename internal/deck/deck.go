// Package deck presents stock records one at a time and turns swipe gestures
// into like/pass decisions with an undo stack.
package deck

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"dividend-hunter/internal/domain"
)

// Gesture and animation constants.
const (
	SwipeThreshold    = 0.25 // fraction of card width
	VelocityThreshold = 0.5  // px/ms

	IndicatorStart = 50.0  // px where like/pass indicators start to show
	IndicatorFull  = 150.0 // px where indicators reach full opacity

	RotationPerPixel = 0.1  // degrees
	MaxRotation      = 30.0 // degrees

	ExitAnimation = 300 * time.Millisecond
	LockBuffer    = 50 * time.Millisecond

	VisibleCards     = 3
	DefaultCardWidth = 400.0
)

// Direction is the side a card leaves the deck to.
type Direction string

const (
	Left  Direction = "left"
	Right Direction = "right"
)

// ParseDirection parses "left" or "right".
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Left, Right:
		return d, nil
	default:
		return "", fmt.Errorf("invalid direction %q", s)
	}
}

// Action maps the direction to the recorded swipe action.
func (d Direction) Action() domain.SwipeAction {
	if d == Right {
		return domain.SwipeLike
	}
	return domain.SwipePass
}

// Renderer draws the deck. Calls are made outside the engine lock.
type Renderer interface {
	RenderCards(visible []domain.StockRecord)
	RenderEmpty()
	RenderDrag(frame DragFrame)
	RenderReset()
	RenderExit(direction Direction)
}

// NopRenderer ignores every render call.
type NopRenderer struct{}

func (NopRenderer) RenderCards([]domain.StockRecord) {}
func (NopRenderer) RenderEmpty()                     {}
func (NopRenderer) RenderDrag(DragFrame)             {}
func (NopRenderer) RenderReset()                     {}
func (NopRenderer) RenderExit(Direction)             {}

// Callbacks are invoked after a swipe completes or the deck runs out.
// Any of them may be nil.
type Callbacks struct {
	OnSwipeLeft  func(domain.StockRecord)
	OnSwipeRight func(domain.StockRecord)
	OnEmpty      func()
}

// HistoryEntry is one completed swipe.
type HistoryEntry struct {
	Record    domain.StockRecord
	Cursor    int
	Direction Direction
}

// UndoResult describes the swipe reverted by Undo.
type UndoResult struct {
	Record    domain.StockRecord `json:"record"`
	Direction Direction          `json:"direction"`
}

// Snapshot is a read-only view of the deck state.
type Snapshot struct {
	Current   *domain.StockRecord  `json:"current"`
	Visible   []domain.StockRecord `json:"visible"`
	Cursor    int                  `json:"cursor"`
	Total     int                  `json:"total"`
	Remaining int                  `json:"remaining"`
	CanUndo   bool                 `json:"canUndo"`
	Locked    bool                 `json:"locked"`
}

// Engine is the swipe deck state machine. Safe for concurrent use.
type Engine struct {
	mu        sync.Mutex
	queue     []domain.StockRecord
	cursor    int
	history   []HistoryEntry
	callbacks Callbacks

	locked  bool
	lockGen int
	drag    *dragState

	renderer  Renderer
	cardWidth float64
	lockFor   time.Duration
	afterFunc func(d time.Duration, f func())
	rng       *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithCardWidth sets the card width in pixels used by the distance threshold.
func WithCardWidth(px float64) Option {
	return func(e *Engine) { e.cardWidth = px }
}

// WithLockDuration sets how long a completed swipe blocks the next one.
func WithLockDuration(d time.Duration) Option {
	return func(e *Engine) { e.lockFor = d }
}

// WithAfterFunc replaces time.AfterFunc for releasing the animation lock (for testing).
func WithAfterFunc(fn func(d time.Duration, f func())) Option {
	return func(e *Engine) { e.afterFunc = fn }
}

// WithRand sets the random source used by Randomize.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// New creates an empty engine. A nil renderer draws nothing.
func New(renderer Renderer, opts ...Option) *Engine {
	if renderer == nil {
		renderer = NopRenderer{}
	}
	e := &Engine{
		renderer:  renderer,
		cardWidth: DefaultCardWidth,
		lockFor:   ExitAnimation + LockBuffer,
		afterFunc: func(d time.Duration, f func()) { time.AfterFunc(d, f) },
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Init replaces the deck with records and resets cursor, history and lock.
// An empty list renders the empty state and fires OnEmpty.
func (e *Engine) Init(records []domain.StockRecord, cb Callbacks) {
	e.mu.Lock()
	e.queue = append([]domain.StockRecord(nil), records...)
	e.cursor = 0
	e.history = nil
	e.callbacks = cb
	e.locked = false
	e.lockGen++
	e.drag = nil
	visible := e.visibleLocked()
	e.mu.Unlock()

	e.render(visible, cb.OnEmpty)
}

// SwipeLeft passes on the current record. Returns false if nothing was swiped.
func (e *Engine) SwipeLeft() bool {
	return e.completeSwipe(Left)
}

// SwipeRight likes the current record. Returns false if nothing was swiped.
func (e *Engine) SwipeRight() bool {
	return e.completeSwipe(Right)
}

// completeSwipe commits the current record in direction. It is a no-op while
// the exit animation of the previous swipe holds the lock.
func (e *Engine) completeSwipe(direction Direction) bool {
	e.mu.Lock()
	if e.locked || e.cursor >= len(e.queue) {
		e.mu.Unlock()
		return false
	}

	record := e.queue[e.cursor]
	e.history = append(e.history, HistoryEntry{Record: record, Cursor: e.cursor, Direction: direction})
	e.cursor++
	e.drag = nil

	e.locked = true
	e.lockGen++
	gen := e.lockGen

	cb := e.callbacks
	visible := e.visibleLocked()
	e.mu.Unlock()

	e.renderer.RenderExit(direction)
	e.afterFunc(e.lockFor, func() { e.releaseLock(gen) })

	switch direction {
	case Left:
		if cb.OnSwipeLeft != nil {
			cb.OnSwipeLeft(record)
		}
	case Right:
		if cb.OnSwipeRight != nil {
			cb.OnSwipeRight(record)
		}
	}

	e.render(visible, cb.OnEmpty)
	return true
}

func (e *Engine) releaseLock(gen int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lockGen == gen {
		e.locked = false
	}
}

// Undo reverts the most recent swipe and restores its cursor.
// Returns false when there is nothing to undo.
func (e *Engine) Undo() (*UndoResult, bool) {
	e.mu.Lock()
	if len(e.history) == 0 {
		e.mu.Unlock()
		return nil, false
	}

	last := e.history[len(e.history)-1]
	e.history = e.history[:len(e.history)-1]
	e.cursor = last.Cursor
	e.drag = nil
	visible := e.visibleLocked()
	e.mu.Unlock()

	e.render(visible, nil)
	return &UndoResult{Record: last.Record, Direction: last.Direction}, true
}

// Randomize shuffles the records not yet swiped. Swiped records keep their place.
func (e *Engine) Randomize() {
	e.mu.Lock()
	tail := e.queue[e.cursor:]
	if len(tail) < 2 {
		e.mu.Unlock()
		return
	}
	for i := len(tail) - 1; i > 0; i-- {
		j := e.rng.Intn(i + 1)
		tail[i], tail[j] = tail[j], tail[i]
	}
	visible := e.visibleLocked()
	e.mu.Unlock()

	e.render(visible, nil)
}

// CurrentStock returns the top record, or false when the deck is exhausted.
func (e *Engine) CurrentStock() (domain.StockRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cursor >= len(e.queue) {
		return domain.StockRecord{}, false
	}
	return e.queue[e.cursor], true
}

// RemainingCount returns the number of records not yet swiped.
func (e *Engine) RemainingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue) - e.cursor
}

// CanUndo reports whether a swipe can be reverted.
func (e *Engine) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.history) > 0
}

// Snapshot returns a copy of the deck state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		Visible:   e.visibleLocked(),
		Cursor:    e.cursor,
		Total:     len(e.queue),
		Remaining: len(e.queue) - e.cursor,
		CanUndo:   len(e.history) > 0,
		Locked:    e.locked,
	}
	if len(s.Visible) > 0 {
		current := s.Visible[0]
		s.Current = &current
	}
	return s
}

// visibleLocked returns a copy of the top cards. Callers hold e.mu.
func (e *Engine) visibleLocked() []domain.StockRecord {
	end := min(e.cursor+VisibleCards, len(e.queue))
	if e.cursor >= end {
		return []domain.StockRecord{}
	}
	return append([]domain.StockRecord(nil), e.queue[e.cursor:end]...)
}

func (e *Engine) render(visible []domain.StockRecord, onEmpty func()) {
	if len(visible) > 0 {
		e.renderer.RenderCards(visible)
		return
	}
	e.renderer.RenderEmpty()
	if onEmpty != nil {
		onEmpty()
	}
}
