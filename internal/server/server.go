// Package server exposes the app over HTTP: a JSON API for the deck, portfolio,
// history and settings, and a WebSocket that streams drag gestures and deck state.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dividend-hunter/internal/app"
	"dividend-hunter/internal/deck"
	"dividend-hunter/internal/domain"
	"dividend-hunter/internal/observability"
	"dividend-hunter/internal/remote"
	"dividend-hunter/internal/storage"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "dividend-hunter"

const (
	// DefaultHistoryLimit is the page size of GET /api/history.
	DefaultHistoryLimit = 50

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second
)

// Options for creating Server.
type Options struct {
	Logger *log.Logger // nil discards
}

// Server serves the app over HTTP and WebSocket.
type Server struct {
	app    *app.App
	hub    *Hub
	logger *log.Logger
}

// New creates a new Server. hub must be the renderer and a notifier of a.
func New(a *app.App, hub *Hub, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	hub.SetView(a.View)
	return &Server{app: a, hub: hub, logger: logger}
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", observability.Handler())
	r.Get("/ws/deck", s.hub.ServeWS(s.app))

	r.Route("/api", func(r chi.Router) {
		r.Route("/deck", func(r chi.Router) {
			r.Get("/", s.handleDeck)
			r.Post("/reload", s.handleReload)
			r.Post("/swipe/{direction}", s.handleSwipe)
			r.Post("/undo", s.handleUndo)
			r.Post("/shuffle", s.handleShuffle)
		})

		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/", s.handlePortfolio)
			r.Post("/", s.handleAddToPortfolio)
			r.Delete("/", s.handleClearPortfolio)
			r.Get("/stats", s.handlePortfolioStats)
			r.Get("/export", s.handleExport)
			r.Delete("/{ticker}", s.handleRemoveFromPortfolio)
		})

		r.Get("/history", s.handleHistory)
		r.Delete("/history", s.handleClearHistory)

		r.Get("/stocks/{ticker}", s.handleStock)
		r.Get("/trends/{ticker}", s.handleTrends)
		r.Get("/sectors", s.handleSectors)

		r.Get("/settings", s.handleSettings)
		r.Put("/settings/{key}", s.handlePutSetting)

		r.Post("/maintenance", s.handleMaintenance)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": ServiceName})
}

func (s *Server) handleDeck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.View())
}

// handleReload loads a new deck.
// POST /api/deck/reload?category&min_yield&min_safety&sector&force_refresh&limit
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	q, err := parseStocksQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.app.LoadDeck(r.Context(), q); err != nil {
		s.logger.Printf("reload deck: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"detail": app.MsgNoData,
			"retry":  true,
			"deck":   s.app.View(),
		})
		return
	}
	writeJSON(w, http.StatusOK, s.app.View())
}

func (s *Server) handleSwipe(w http.ResponseWriter, r *http.Request) {
	direction, err := deck.ParseDirection(chi.URLParam(r, "direction"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !s.app.Swipe(direction) {
		writeError(w, http.StatusConflict, "no card to swipe or swipe in progress")
		return
	}
	writeJSON(w, http.StatusOK, s.app.View())
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	res, err := s.app.Undo(r.Context())
	if res == nil && err == nil {
		writeError(w, http.StatusNotFound, "nothing to undo")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"undone": res, "deck": s.app.View()})
}

func (s *Server) handleShuffle(w http.ResponseWriter, r *http.Request) {
	s.app.Shuffle()
	writeJSON(w, http.StatusOK, s.app.View())
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	entries, err := s.app.Store().GetPortfolio(r.Context())
	if err != nil {
		s.storeError(w, "get portfolio", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"portfolio": entries, "count": len(entries)})
}

func (s *Server) handleAddToPortfolio(w http.ResponseWriter, r *http.Request) {
	var stock domain.StockRecord
	if err := json.NewDecoder(r.Body).Decode(&stock); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if stock.Ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker required")
		return
	}

	entry, err := s.app.AddToPortfolio(r.Context(), stock)
	if err != nil {
		s.storeError(w, "add to portfolio", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleClearPortfolio(w http.ResponseWriter, r *http.Request) {
	if err := s.app.ClearPortfolio(r.Context()); err != nil {
		s.storeError(w, "clear portfolio", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveFromPortfolio(w http.ResponseWriter, r *http.Request) {
	if err := s.app.RemoveFromPortfolio(r.Context(), chi.URLParam(r, "ticker")); err != nil {
		s.storeError(w, "remove from portfolio", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePortfolioStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.app.Store().GetPortfolioStats(r.Context())
	if err != nil {
		s.storeError(w, "portfolio stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleExport downloads the portfolio as CSV. An empty portfolio is 204.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	csv, ok, err := s.app.Store().ExportPortfolioCSV(r.Context())
	if err != nil {
		s.storeError(w, "export portfolio", err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", s.app.Store().ExportFilename()))
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, csv); err != nil {
		s.logger.Printf("write export: %v", err)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	swipes, err := s.app.Store().GetRecentSwipes(r.Context(), limit)
	if err != nil {
		s.storeError(w, "get history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": swipes})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.app.ClearHistory(r.Context()); err != nil {
		s.storeError(w, "clear history", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	detail, err := s.app.Remote().GetStockDetail(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		s.remoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := s.app.Remote().GetTrends(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		s.remoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

func (s *Server) handleSectors(w http.ResponseWriter, r *http.Request) {
	sectors, err := s.app.Remote().GetSectors(r.Context())
	if err != nil {
		s.remoteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sectors)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.app.Store().GetAllSettings(r.Context())
	if err != nil {
		s.storeError(w, "get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handlePutSetting stores the JSON request body under key.
func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	var value json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		writeError(w, http.StatusBadRequest, "body must be a JSON value")
		return
	}

	key := chi.URLParam(r, "key")
	if err := s.app.Store().SetSetting(r.Context(), key, value); err != nil {
		s.storeError(w, "set setting", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{key: value})
}

func (s *Server) handleMaintenance(w http.ResponseWriter, r *http.Request) {
	report, err := s.app.Store().RunMaintenance(r.Context())
	observability.RecordMaintenance(report.HistoryRemoved, report.TrendsRemoved)
	if err != nil {
		s.storeError(w, "maintenance", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	s.logger.Printf("%s: %v", op, err)
	switch {
	case errors.Is(err, storage.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}

func (s *Server) remoteError(w http.ResponseWriter, err error) {
	s.logger.Printf("remote: %v", err)
	switch {
	case errors.Is(err, remote.ErrNoDataAvailable):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, remote.ErrNetworkFailure):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func parseStocksQuery(r *http.Request) (remote.StocksQuery, error) {
	var q remote.StocksQuery
	v := r.URL.Query()

	if s := v.Get("category"); s != "" {
		c := domain.Category(s)
		if !c.IsValid() {
			return q, fmt.Errorf("unknown category %q", s)
		}
		q.Category = &c
	}
	if s := v.Get("min_yield"); s != "" {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return q, fmt.Errorf("min_yield: %w", err)
		}
		q.MinYield = &f
	}
	if s := v.Get("min_safety"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, fmt.Errorf("min_safety: %w", err)
		}
		q.MinSafety = &n
	}
	if s := v.Get("sector"); s != "" {
		q.Sector = &s
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, fmt.Errorf("limit: %w", err)
		}
		q.Limit = &n
	}
	q.ForceRefresh = v.Get("force_refresh") == "true"
	return q, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// writeError writes {"detail": msg}, the error shape of the data API.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
