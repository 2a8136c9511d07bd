package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dividend-hunter/internal/app"
	"dividend-hunter/internal/deck"
	"dividend-hunter/internal/domain"
	"dividend-hunter/internal/remote"
	"dividend-hunter/internal/storage/memory"
	"dividend-hunter/internal/store"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testStocks() []domain.StockRecord {
	return []domain.StockRecord{
		{Ticker: "KO", Name: "Coca-Cola", Sector: "Consumer Defensive", DividendYield: 3.1,
			AnnualDividend: 1.84, PayoutRatio: 70, GrowthRate: 4.6, SafetyScore: 88,
			RankScore: 90, Category: domain.CategoryImmediate},
		{Ticker: "PEP", Name: "PepsiCo", Sector: "Consumer Defensive", DividendYield: 2.9,
			SafetyScore: 85, RankScore: 80, Category: domain.CategoryBalanced},
		{Ticker: "O", Name: "Realty Income", Sector: "Real Estate", DividendYield: 5.6,
			SafetyScore: 75, RankScore: 70, Category: domain.CategoryImmediate},
	}
}

type testEnv struct {
	app    *app.App
	hub    *Hub
	server *httptest.Server
	api    *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/stocks":
			json.NewEncoder(w).Encode(map[string]any{"stocks": testStocks(), "total": 3, "fetchedAt": nil})
		case r.URL.Path == "/api/sectors":
			json.NewEncoder(w).Encode(map[string]any{"sectors": []string{"Consumer Defensive", "Real Estate"}})
		case strings.HasPrefix(r.URL.Path, "/api/stock/"):
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"detail": "No dividend data found"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(api.Close)

	st := store.New(store.Options{
		Backend:  memory.NewBackend(),
		Clock:    func() time.Time { return testNow },
		Location: time.UTC,
	})
	client := remote.New(api.URL+"/api", st, remote.WithRetryDelay(time.Millisecond))

	hub := NewHub(DefaultWSConfig(), nil)
	a := app.New(app.Options{
		Store:       st,
		Remote:      client,
		Renderer:    hub,
		Notifier:    hub,
		DeckOptions: []deck.Option{deck.WithAfterFunc(func(_ time.Duration, f func()) { f() })},
	})

	srv := httptest.NewServer(New(a, hub, Options{}).Router())
	t.Cleanup(srv.Close)

	return &testEnv{app: a, hub: hub, server: srv, api: api}
}

func (e *testEnv) do(t *testing.T, method, path string, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+path, r)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDeckFlow(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/deck/reload?category=immediate", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[app.View](t, resp)
	assert.Equal(t, app.StateReady, view.State)
	assert.Equal(t, 3, view.Remaining)
	require.NotNil(t, view.Current)
	assert.Equal(t, "KO", view.Current.Ticker)

	resp = env.do(t, http.MethodPost, "/api/deck/swipe/right", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view = decode[app.View](t, resp)
	assert.Equal(t, 2, view.Remaining)
	assert.True(t, view.CanUndo)

	resp = env.do(t, http.MethodGet, "/api/portfolio", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	portfolio := decode[struct {
		Portfolio []domain.PortfolioEntry `json:"portfolio"`
		Count     int                     `json:"count"`
	}](t, resp)
	require.Equal(t, 1, portfolio.Count)
	assert.Equal(t, "KO", portfolio.Portfolio[0].Ticker)

	resp = env.do(t, http.MethodGet, "/api/history?limit=5", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[struct {
		History []domain.SwipeRecord `json:"history"`
	}](t, resp)
	require.Len(t, history.History, 1)
	assert.Equal(t, domain.SwipeLike, history.History[0].Action)

	resp = env.do(t, http.MethodPost, "/api/deck/undo", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	undo := decode[struct {
		Undone deck.UndoResult `json:"undone"`
		Deck   app.View        `json:"deck"`
	}](t, resp)
	assert.Equal(t, "KO", undo.Undone.Record.Ticker)
	assert.Equal(t, deck.Right, undo.Undone.Direction)
	assert.Equal(t, 3, undo.Deck.Remaining)

	resp = env.do(t, http.MethodGet, "/api/portfolio/stats", "")
	stats := decode[domain.PortfolioStats](t, resp)
	assert.Equal(t, 0, stats.Count)

	resp = env.do(t, http.MethodPost, "/api/deck/undo", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSwipe_Errors(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/deck/swipe/up", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/deck/swipe/left", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "empty deck")

	resp = env.do(t, http.MethodPost, "/api/deck/reload?category=growth", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReload_NoData(t *testing.T) {
	env := newTestEnv(t)
	env.api.Close()

	resp := env.do(t, http.MethodPost, "/api/deck/reload", "")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, true, body["retry"])
	assert.Equal(t, app.MsgNoData, body["detail"])
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/portfolio/export", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	body, err := json.Marshal(testStocks()[0])
	require.NoError(t, err)
	resp = env.do(t, http.MethodPost, "/api/portfolio", string(body))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/portfolio/export", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="dividend-portfolio-2024-06-15.csv"`, resp.Header.Get("Content-Disposition"))
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")

	csv, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(string(csv), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"KO"`)

	resp = env.do(t, http.MethodDelete, "/api/portfolio/KO", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/portfolio/export", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAddToPortfolio_Validation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/portfolio", "{not json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/portfolio", `{"name":"no ticker"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPut, "/api/settings/minYield", "3.5")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = env.do(t, http.MethodPut, "/api/settings/category", `"immediate"`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	settings := decode[map[string]json.RawMessage](t, resp)
	assert.JSONEq(t, "3.5", string(settings["minYield"]))
	assert.JSONEq(t, `"immediate"`, string(settings["category"]))

	resp = env.do(t, http.MethodPut, "/api/settings/broken", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRemoteEndpoints(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/sectors", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sectors := decode[remote.SectorsResult](t, resp)
	assert.Equal(t, []string{"Consumer Defensive", "Real Estate"}, sectors.Sectors)

	resp = env.do(t, http.MethodGet, "/api/stocks/ZZZ", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/trends/KO", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClearHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.app.LoadDeck(ctx, remote.StocksQuery{}))
	require.True(t, env.app.SwipeLeft())

	resp := env.do(t, http.MethodDelete, "/api/history", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	swiped, err := env.app.Store().GetSwipedTickers(ctx)
	require.NoError(t, err)
	assert.Empty(t, swiped)
}

func TestMaintenance(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/maintenance", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[store.MaintenanceReport](t, resp)
	assert.Equal(t, 0, report.HistoryRemoved)
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct {
	header http.Header
}

func (w *brokenWriter) Header() http.Header       { return w.header }
func (w *brokenWriter) WriteHeader(int)           {}
func (w *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestExport_LogsWriteError(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.app.Store().AddToPortfolio(context.Background(), testStocks()[0])
	require.NoError(t, err)

	var logs bytes.Buffer
	srv := New(env.app, env.hub, Options{Logger: log.New(&logs, "", 0)})

	srv.handleExport(&brokenWriter{header: http.Header{}}, httptest.NewRequest(http.MethodGet, "/api/portfolio/export", nil))

	assert.Contains(t, logs.String(), "write export: connection reset")
}
