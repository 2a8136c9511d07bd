package storage

import (
	"context"

	"dividend-hunter/internal/domain"
)

// Collection is a keyed set of entities with upsert semantics.
// Every call completes or fails atomically: no partial writes are visible.
type Collection[T any] interface {
	// Get retrieves an entity by primary key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) (T, error)

	// GetAll retrieves every entity. Order is unspecified.
	GetAll(ctx context.Context) ([]T, error)

	// Put upserts an entity by primary key. Returns ErrInvalidInput on empty key.
	Put(ctx context.Context, v T) error

	// PutBulk upserts multiple entities atomically. Fails entire batch on any invalid entity.
	PutBulk(ctx context.Context, vs []T) error

	// Delete removes an entity. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteMany removes multiple entities atomically.
	DeleteMany(ctx context.Context, keys []string) error

	// Clear removes every entity.
	Clear(ctx context.Context) error

	// Count returns the number of stored entities.
	Count(ctx context.Context) (int, error)
}

// Backend exposes the five persisted collections of the local store.
type Backend interface {
	Portfolio() Collection[domain.PortfolioEntry]
	History() Collection[domain.SwipeRecord]
	Stocks() Collection[domain.CachedStock]
	Trends() Collection[domain.TrendSnapshot]
	Settings() Collection[domain.Setting]

	// SchemaVersion returns the applied schema version.
	SchemaVersion(ctx context.Context) (int, error)

	// Close releases the underlying engine.
	Close() error
}

// Collection names. They double as table names in SQL backends.
const (
	CollectionPortfolio = "portfolio"
	CollectionHistory   = "swipe_history"
	CollectionStocks    = "stock_cache"
	CollectionTrends    = "trend_snapshots"
	CollectionSettings  = "settings"
)

// Collections lists every collection of the current schema.
var Collections = []string{
	CollectionPortfolio,
	CollectionHistory,
	CollectionStocks,
	CollectionTrends,
	CollectionSettings,
}

// SchemaVersion is the current version of the persisted schema.
// Upgrades are additive: new collections are created only if absent.
const SchemaVersion = 1
