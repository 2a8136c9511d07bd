// Package main runs the dividend-hunter service:
// - HTTP/WebSocket deck API (internal/server)
// - Connectivity monitor against the data API health endpoint
// - Refresh scheduler: reloads the deck when the last fetch is older than an hour
// - Maintenance scheduler: trims swipe history and expired trend snapshots
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"dividend-hunter/internal/app"
	"dividend-hunter/internal/config"
	"dividend-hunter/internal/deck"
	"dividend-hunter/internal/domain"
	"dividend-hunter/internal/observability"
	"dividend-hunter/internal/remote"
	"dividend-hunter/internal/server"
)

// Service holds all components of the running service.
type Service struct {
	// Configuration
	cfg                 *config.Config
	refreshInterval     time.Duration
	maintenanceInterval time.Duration

	// Components
	app    *app.App
	hub    *server.Hub
	logger *log.Logger

	// State
	mu              sync.Mutex
	started         time.Time
	lastRefresh     time.Time
	lastMaintenance time.Time
	refreshRunning  bool

	// Stats
	refreshRuns     int
	maintenanceRuns int
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	storageBackend := flag.String("storage", "", "Storage backend: sqlite, postgres, memory")
	sqlitePath := flag.String("sqlite-path", "", "SQLite database path")
	apiBase := flag.String("api", "", "Dividend data API base URL")
	listen := flag.String("listen", "", "HTTP listen address")
	refreshInterval := flag.Duration("refresh-interval", 5*time.Minute, "How often to check whether the deck needs a refresh")
	maintenanceInterval := flag.Duration("maintenance-interval", 24*time.Hour, "Store maintenance interval")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Apply(config.Overrides{
		APIBase:    *apiBase,
		Storage:    *storageBackend,
		SQLitePath: *sqlitePath,
		Listen:     *listen,
	}); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	hub := server.NewHub(server.DefaultWSConfig(), log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lshortfile))
	notifier := app.MultiNotifier{
		app.LogNotifier{Logger: log.New(os.Stdout, "[toast] ", log.LstdFlags)},
		hub,
	}

	st, err := app.OpenStore(ctx, cfg.Storage, app.StoreOptions{
		Logger:   log.New(os.Stdout, "[store] ", log.LstdFlags|log.Lshortfile),
		Notifier: notifier,
	})
	if err != nil {
		logger.Fatalf("Failed to open store: %v", err)
	}

	client := remote.New(cfg.API.BaseURL, st,
		remote.WithTimeout(cfg.API.Timeout),
		remote.WithMaxRetries(cfg.API.MaxRetries),
		remote.WithRetryDelay(cfg.API.RetryDelay),
		remote.WithLogger(log.New(os.Stdout, "[remote] ", log.LstdFlags|log.Lshortfile)),
	)

	a := app.New(app.Options{
		Store:       st,
		Remote:      client,
		Renderer:    hub,
		Notifier:    notifier,
		Logger:      log.New(os.Stdout, "[app] ", log.LstdFlags|log.Lshortfile),
		DeckOptions: []deck.Option{deck.WithCardWidth(cfg.Server.CardWidth)},
	})
	defer a.Close()

	svc := &Service{
		cfg:                 cfg,
		refreshInterval:     *refreshInterval,
		maintenanceInterval: *maintenanceInterval,
		app:                 a,
		hub:                 hub,
		logger:              logger,
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = svc.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// deckQuery builds the default deck filters from configuration.
func deckQuery(cfg config.DeckConfig) remote.StocksQuery {
	var q remote.StocksQuery
	if cfg.Category != "" {
		c := domain.Category(cfg.Category)
		q.Category = &c
	}
	if cfg.MinYield > 0 {
		q.MinYield = &cfg.MinYield
	}
	if cfg.MinSafety > 0 {
		q.MinSafety = &cfg.MinSafety
	}
	if cfg.Limit > 0 {
		q.Limit = &cfg.Limit
	}
	return q
}

// Run starts every component and blocks until ctx is cancelled or one fails.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Println("Starting dividend-hunter service...")

	s.mu.Lock()
	s.started = time.Now()
	s.mu.Unlock()

	errCh := make(chan error, 3)

	go s.app.Remote().Connectivity().Monitor(ctx, s.app.Remote(), s.cfg.API.HealthInterval)

	// Maintenance then first deck load. A failed load leaves the deck in the
	// error state; clients retry through /api/deck/reload.
	if err := s.app.Start(ctx, deckQuery(s.cfg.Deck)); err != nil {
		s.logger.Printf("Initial deck load failed: %v", err)
	}
	s.mu.Lock()
	s.lastRefresh = time.Now()
	s.lastMaintenance = time.Now()
	s.mu.Unlock()

	go func() {
		if err := s.runRefreshScheduler(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("refresh scheduler: %w", err)
		}
	}()

	go func() {
		if err := s.runMaintenanceScheduler(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("maintenance scheduler: %w", err)
		}
	}()

	httpServer := s.httpServer()
	go func() {
		s.logger.Printf("Starting HTTP server on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Printf("HTTP shutdown: %v", err)
	}
	return runErr
}

// runRefreshScheduler reloads the deck when the last fetch has expired.
func (s *Service) runRefreshScheduler(ctx context.Context) error {
	s.logger.Printf("Starting refresh scheduler (interval: %v)...", s.refreshInterval)

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.refreshIfStale(ctx)
		}
	}
}

func (s *Service) refreshIfStale(ctx context.Context) {
	stale, err := s.app.Remote().ShouldRefresh(ctx)
	if err != nil {
		s.logger.Printf("Check refresh: %v", err)
	}
	if !stale || !s.app.Remote().Connectivity().Online() {
		return
	}

	s.mu.Lock()
	if s.refreshRunning {
		s.mu.Unlock()
		s.logger.Println("Refresh already running, skipping...")
		return
	}
	s.refreshRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.refreshRunning = false
		s.lastRefresh = time.Now()
		s.refreshRuns++
		s.mu.Unlock()
	}()

	// Only reload a deck that is unloaded, exhausted or failed; a user mid-deck keeps their cards.
	switch s.app.State() {
	case app.StateIdle, app.StateEmpty, app.StateError:
		if err := s.app.Refresh(ctx); err != nil {
			s.logger.Printf("Refresh error: %v", err)
		}
	default:
		if _, err := s.app.Remote().GetStocks(ctx, remote.StocksQuery{ForceRefresh: true}); err != nil {
			s.logger.Printf("Background fetch error: %v", err)
		}
	}
}

// runMaintenanceScheduler runs store maintenance on schedule.
func (s *Service) runMaintenanceScheduler(ctx context.Context) error {
	s.logger.Printf("Starting maintenance scheduler (interval: %v)...", s.maintenanceInterval)

	ticker := time.NewTicker(s.maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runMaintenance(ctx)
		}
	}
}

func (s *Service) runMaintenance(ctx context.Context) {
	start := time.Now()
	report, err := s.app.Store().RunMaintenance(ctx)
	observability.RecordMaintenance(report.HistoryRemoved, report.TrendsRemoved)
	if err != nil {
		s.logger.Printf("Maintenance error: %v", err)
		return
	}

	s.mu.Lock()
	s.lastMaintenance = time.Now()
	s.maintenanceRuns++
	s.mu.Unlock()

	s.logger.Printf("Maintenance completed in %v: %d swipes, %d trend snapshots removed",
		time.Since(start), report.HistoryRemoved, report.TrendsRemoved)
}

func (s *Service) httpServer() *http.Server {
	r := chi.NewRouter()
	r.Get("/status", s.handleStatus)
	r.Mount("/", server.New(s.app, s.hub, server.Options{
		Logger: log.New(os.Stdout, "[http] ", log.LstdFlags|log.Lshortfile),
	}).Router())

	return &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	Started         time.Time `json:"started"`
	Online          bool      `json:"online"`
	Persistent      bool      `json:"persistent"`
	StorageBackend  string    `json:"storage_backend"`
	DeckState       app.State `json:"deck_state"`
	DeckRemaining   int       `json:"deck_remaining"`
	WSClients       int       `json:"ws_clients"`
	LastRefresh     time.Time `json:"last_refresh"`
	LastMaintenance time.Time `json:"last_maintenance"`
	RefreshRuns     int       `json:"refresh_runs"`
	MaintenanceRuns int       `json:"maintenance_runs"`
	SchemaVersion   int       `json:"schema_version"`
	CacheAge        string    `json:"cache_age,omitempty"`
}

// handleStatus returns service status as JSON.
func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	view := s.app.View()
	schema, err := s.app.Store().SchemaVersion(r.Context())
	if err != nil {
		s.logger.Printf("Schema version: %v", err)
	}

	resp := StatusResponse{
		Status:         "running",
		Online:         view.Online,
		Persistent:     view.Persistent,
		StorageBackend: s.cfg.Storage.Backend,
		DeckState:      view.State,
		DeckRemaining:  view.Remaining,
		WSClients:      s.hub.ClientCount(),
		SchemaVersion:  schema,
	}
	if age, ok, err := s.app.Store().CacheAge(r.Context()); err == nil && ok {
		resp.CacheAge = age.Round(time.Second).String()
	}

	s.mu.Lock()
	resp.Uptime = time.Since(s.started).Round(time.Second).String()
	resp.Started = s.started
	resp.LastRefresh = s.lastRefresh
	resp.LastMaintenance = s.lastMaintenance
	resp.RefreshRuns = s.refreshRuns
	resp.MaintenanceRuns = s.maintenanceRuns
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Printf("Encode status: %v", err)
	}
}
