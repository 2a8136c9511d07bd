// Package app ties the local store, the remote client and the swipe deck together.
// An App owns one deck and one store; several apps can run side by side.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"dividend-hunter/internal/deck"
	"dividend-hunter/internal/domain"
	"dividend-hunter/internal/observability"
	"dividend-hunter/internal/remote"
	"dividend-hunter/internal/store"
)

// State is the deck screen state.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateEmpty   State = "empty"
	StateError   State = "error"
)

// User-facing messages.
const (
	MsgNoData  = "Could not load stocks. Check your connection and retry."
	MsgOffline = "You are offline, showing saved data"
	MsgOnline  = "Back online"
)

// Options for creating App.
type Options struct {
	Store    *store.Store   // required
	Remote   *remote.Client // required
	Renderer deck.Renderer  // nil draws nothing
	Notifier Notifier       // nil uses LogNotifier on Logger
	Logger   *log.Logger    // nil discards

	DeckOptions []deck.Option
}

// App is the application controller.
type App struct {
	store    *store.Store
	remote   *remote.Client
	deck     *deck.Engine
	notifier Notifier
	logger   *log.Logger

	// swipeMu serialises a swipe and its store writes against Undo.
	swipeMu sync.Mutex

	mu        sync.Mutex
	query     remote.StocksQuery
	state     State
	lastErr   error
	fromCache bool

	unsubscribe func()
}

// New creates a new App.
func New(opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}

	a := &App{
		store:    opts.Store,
		remote:   opts.Remote,
		deck:     deck.New(opts.Renderer, opts.DeckOptions...),
		notifier: notifier,
		logger:   logger,
		state:    StateIdle,
	}

	a.unsubscribe = a.remote.Connectivity().Subscribe(func(online bool) {
		if online {
			a.notifier.Toast(ToastInfo, MsgOnline)
		} else {
			a.notifier.Toast(ToastInfo, MsgOffline)
		}
	})
	return a
}

// Close releases the store and stops connectivity notifications.
func (a *App) Close() error {
	a.unsubscribe()
	return a.store.Close()
}

// Store returns the local store.
func (a *App) Store() *store.Store {
	return a.store
}

// Remote returns the remote client.
func (a *App) Remote() *remote.Client {
	return a.remote
}

// Deck returns the deck engine for gesture input.
func (a *App) Deck() *deck.Engine {
	return a.deck
}

// Start runs store maintenance, then loads the deck with q.
// Maintenance failures are reported but do not stop the start.
func (a *App) Start(ctx context.Context, q remote.StocksQuery) error {
	report, err := a.store.RunMaintenance(ctx)
	observability.RecordMaintenance(report.HistoryRemoved, report.TrendsRemoved)
	if err != nil {
		observability.RecordStoreError("maintenance")
		a.logger.Printf("maintenance: %v", err)
		a.notifier.Toast(ToastError, "Storage maintenance failed")
	} else if report.HistoryRemoved+report.TrendsRemoved > 0 {
		a.logger.Printf("maintenance removed %d swipes, %d trend snapshots",
			report.HistoryRemoved, report.TrendsRemoved)
	}

	return a.LoadDeck(ctx, q)
}

// LoadDeck fetches stocks, drops tickers already in the swipe history and
// initialises the deck. ErrNoDataAvailable leaves the deck in the error state;
// retry by calling LoadDeck again. Zero records is the empty state.
func (a *App) LoadDeck(ctx context.Context, q remote.StocksQuery) error {
	a.setState(StateLoading, nil)

	res, err := a.remote.GetStocks(ctx, q)
	if err != nil {
		a.setState(StateError, err)
		observability.RecordDeckLoad("error", 0)
		a.logger.Printf("load deck: %v", err)
		a.notifier.Toast(ToastError, MsgNoData)
		return fmt.Errorf("load deck: %w", err)
	}

	swiped, err := a.store.GetSwipedTickers(ctx)
	if err != nil {
		observability.RecordStoreError("get_swiped_tickers")
		a.logger.Printf("read swipe history: %v", err)
		swiped = map[string]struct{}{}
	}

	unseen := make([]domain.StockRecord, 0, len(res.Stocks))
	for _, s := range res.Stocks {
		if _, ok := swiped[s.Ticker]; !ok {
			unseen = append(unseen, s)
		}
	}

	a.mu.Lock()
	a.query = q
	a.query.ForceRefresh = false
	a.fromCache = res.FromCache
	a.mu.Unlock()

	if len(unseen) == 0 {
		a.setState(StateEmpty, nil)
	} else {
		a.setState(StateReady, nil)
	}
	if res.FromCache {
		a.notifier.Toast(ToastInfo, MsgOffline)
	}

	// Swipes may outlive the request that loaded the deck.
	bg := context.WithoutCancel(ctx)
	a.deck.Init(unseen, deck.Callbacks{
		OnSwipeLeft:  func(s domain.StockRecord) { a.onSwipe(bg, s, deck.Left) },
		OnSwipeRight: func(s domain.StockRecord) { a.onSwipe(bg, s, deck.Right) },
		OnEmpty:      func() { a.setState(StateEmpty, nil) },
	})

	status := "network"
	if res.FromCache {
		status = "cache"
	}
	observability.RecordDeckLoad(status, len(unseen))
	return nil
}

// Refresh reloads the deck with the last query, bypassing the API cache.
func (a *App) Refresh(ctx context.Context) error {
	a.mu.Lock()
	q := a.query
	a.mu.Unlock()

	q.ForceRefresh = true
	return a.LoadDeck(ctx, q)
}

// onSwipe records the swipe, then updates the portfolio on a like.
// Failures are logged and toasted; the deck keeps going.
func (a *App) onSwipe(ctx context.Context, s domain.StockRecord, direction deck.Direction) {
	observability.RecordSwipe(string(direction))
	observability.UpdateDeckRemaining(a.deck.RemainingCount())

	if _, err := a.store.RecordSwipe(ctx, s.Ticker, direction.Action()); err != nil {
		observability.RecordStoreError("record_swipe")
		a.logger.Printf("record swipe %s %s: %v", direction, s.Ticker, err)
		a.notifier.Toast(ToastError, fmt.Sprintf("Could not save swipe on %s", s.Ticker))
	}

	if direction != deck.Right {
		return
	}
	if _, err := a.store.AddToPortfolio(ctx, s); err != nil {
		observability.RecordStoreError("add_portfolio")
		a.logger.Printf("add %s to portfolio: %v", s.Ticker, err)
		a.notifier.Toast(ToastError, fmt.Sprintf("Could not add %s to portfolio", s.Ticker))
		return
	}
	a.notifier.Toast(ToastSuccess, fmt.Sprintf("Added %s to portfolio", s.Ticker))
}

// SwipeLeft passes on the current card.
func (a *App) SwipeLeft() bool {
	a.swipeMu.Lock()
	defer a.swipeMu.Unlock()
	return a.deck.SwipeLeft()
}

// SwipeRight likes the current card.
func (a *App) SwipeRight() bool {
	a.swipeMu.Lock()
	defer a.swipeMu.Unlock()
	return a.deck.SwipeRight()
}

// DragEnd finishes a drag gesture; a committed drag swipes like SwipeLeft/SwipeRight.
func (a *App) DragEnd(x, y float64, t time.Time) (deck.Direction, bool) {
	a.swipeMu.Lock()
	defer a.swipeMu.Unlock()
	return a.deck.DragEnd(x, y, t)
}

// Swipe swipes the current card in direction.
func (a *App) Swipe(direction deck.Direction) bool {
	if direction == deck.Right {
		return a.SwipeRight()
	}
	return a.SwipeLeft()
}

// Undo reverts the last swipe: the swipe record is removed and, for a like,
// the portfolio entry too. Returns nil when there is nothing to undo.
// An undo issued while a swipe is being saved waits for that swipe.
func (a *App) Undo(ctx context.Context) (*deck.UndoResult, error) {
	a.swipeMu.Lock()
	defer a.swipeMu.Unlock()

	res, ok := a.deck.Undo()
	if !ok {
		return nil, nil
	}
	observability.RecordUndo()

	if len(a.deck.Snapshot().Visible) > 0 {
		a.setState(StateReady, nil)
	}

	var errs []error
	if err := a.store.RemoveSwipe(ctx, res.Record.Ticker); err != nil {
		errs = append(errs, err)
	}
	if res.Direction == deck.Right {
		if err := a.store.RemoveFromPortfolio(ctx, res.Record.Ticker); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		observability.RecordStoreError("undo")
		a.logger.Printf("undo %s: %v", res.Record.Ticker, err)
		a.notifier.Toast(ToastError, fmt.Sprintf("Could not fully undo %s", res.Record.Ticker))
		return res, fmt.Errorf("undo %s: %w", res.Record.Ticker, err)
	}
	return res, nil
}

// Shuffle randomises the cards not yet swiped.
func (a *App) Shuffle() {
	a.deck.Randomize()
}

// AddToPortfolio adds a stock outside the deck.
func (a *App) AddToPortfolio(ctx context.Context, s domain.StockRecord) (domain.PortfolioEntry, error) {
	entry, err := a.store.AddToPortfolio(ctx, s)
	if err != nil {
		a.notifier.Toast(ToastError, fmt.Sprintf("Could not add %s to portfolio", s.Ticker))
		return domain.PortfolioEntry{}, fmt.Errorf("add to portfolio: %w", err)
	}
	a.notifier.Toast(ToastSuccess, fmt.Sprintf("Added %s to portfolio", s.Ticker))
	return entry, nil
}

// RemoveFromPortfolio removes a holding. The swipe record is kept so the
// ticker does not come back into the deck.
func (a *App) RemoveFromPortfolio(ctx context.Context, ticker string) error {
	if err := a.store.RemoveFromPortfolio(ctx, ticker); err != nil {
		a.notifier.Toast(ToastError, fmt.Sprintf("Could not remove %s", ticker))
		return fmt.Errorf("remove from portfolio: %w", err)
	}
	a.notifier.Toast(ToastInfo, fmt.Sprintf("Removed %s from portfolio", ticker))
	return nil
}

// ClearPortfolio removes every holding.
func (a *App) ClearPortfolio(ctx context.Context) error {
	if err := a.store.ClearPortfolio(ctx); err != nil {
		a.notifier.Toast(ToastError, "Could not clear portfolio")
		return fmt.Errorf("clear portfolio: %w", err)
	}
	a.notifier.Toast(ToastInfo, "Portfolio cleared")
	return nil
}

// ClearHistory forgets every swipe. Cleared tickers return on the next load.
func (a *App) ClearHistory(ctx context.Context) error {
	if err := a.store.ClearHistory(ctx); err != nil {
		a.notifier.Toast(ToastError, "Could not clear swipe history")
		return fmt.Errorf("clear history: %w", err)
	}
	a.notifier.Toast(ToastInfo, "Swipe history cleared")
	return nil
}

// View is the deck screen as shown to the user.
type View struct {
	deck.Snapshot
	State      State  `json:"state"`
	Error      string `json:"error,omitempty"`
	FromCache  bool   `json:"fromCache"`
	Online     bool   `json:"online"`
	Persistent bool   `json:"persistent"`
}

// View returns the current screen state.
func (a *App) View() View {
	a.mu.Lock()
	v := View{
		State:     a.state,
		FromCache: a.fromCache,
	}
	if a.lastErr != nil {
		v.Error = a.lastErr.Error()
	}
	a.mu.Unlock()

	v.Snapshot = a.deck.Snapshot()
	v.Online = a.remote.Connectivity().Online()
	v.Persistent = a.store.Persistent()
	return v
}

// State returns the deck screen state.
func (a *App) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *App) setState(s State, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = s
	a.lastErr = err
}
