package memory

import (
	"context"
	"slices"

	"dividend-hunter/internal/domain"
	"dividend-hunter/internal/storage"
)

// Backend is an in-memory implementation of storage.Backend.
// Nothing survives the process; used in tests and as the degraded no-persistence mode.
type Backend struct {
	portfolio *Collection[domain.PortfolioEntry]
	history   *Collection[domain.SwipeRecord]
	stocks    *Collection[domain.CachedStock]
	trends    *Collection[domain.TrendSnapshot]
	settings  *Collection[domain.Setting]
}

// NewBackend creates a new empty in-memory backend.
func NewBackend() *Backend {
	return &Backend{
		portfolio: NewCollection(storage.PortfolioKey).WithClone(clonePortfolioEntry),
		history:   NewCollection(storage.HistoryKey),
		stocks:    NewCollection(storage.StockKey).WithClone(cloneCachedStock),
		trends:    NewCollection(storage.TrendKey),
		settings:  NewCollection(storage.SettingKey).WithClone(cloneSetting),
	}
}

func cloneStock(s domain.StockRecord) domain.StockRecord {
	s.DividendHistory = slices.Clone(s.DividendHistory)
	return s
}

func clonePortfolioEntry(e domain.PortfolioEntry) domain.PortfolioEntry {
	e.StockRecord = cloneStock(e.StockRecord)
	return e
}

func cloneCachedStock(c domain.CachedStock) domain.CachedStock {
	c.StockRecord = cloneStock(c.StockRecord)
	return c
}

func cloneSetting(s domain.Setting) domain.Setting {
	s.Value = slices.Clone(s.Value)
	return s
}

func (b *Backend) Portfolio() storage.Collection[domain.PortfolioEntry] { return b.portfolio }
func (b *Backend) History() storage.Collection[domain.SwipeRecord]      { return b.history }
func (b *Backend) Stocks() storage.Collection[domain.CachedStock]       { return b.stocks }
func (b *Backend) Trends() storage.Collection[domain.TrendSnapshot]     { return b.trends }
func (b *Backend) Settings() storage.Collection[domain.Setting]         { return b.settings }

// SchemaVersion always reports the current version.
func (b *Backend) SchemaVersion(_ context.Context) (int, error) {
	return storage.SchemaVersion, nil
}

// Close is a no-op.
func (b *Backend) Close() error {
	return nil
}

// Verify interface compliance at compile time.
var (
	_ storage.Backend                           = (*Backend)(nil)
	_ storage.Collection[domain.PortfolioEntry] = (*Collection[domain.PortfolioEntry])(nil)
)
