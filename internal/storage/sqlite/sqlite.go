// Package sqlite implements storage.Backend on an embedded SQLite database
// (modernc.org/sqlite, pure Go). It is the default durable local store.
//
// Pragmas applied on open:
//
//	journal_mode = WAL
//	busy_timeout = 10000
//	synchronous  = NORMAL
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"dividend-hunter/internal/domain"
	"dividend-hunter/internal/storage"
	"dividend-hunter/internal/storage/migrations"
)

type config struct {
	busyTimeout int
	synchronous string
	mkdirAll    bool
	now         func() time.Time
}

func defaults() config {
	return config{
		busyTimeout: 10_000,
		synchronous: "NORMAL",
		mkdirAll:    true,
		now:         time.Now,
	}
}

// Option customises Open behaviour.
type Option func(*config)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeout = ms } }

// WithSynchronous sets PRAGMA synchronous. Default: "NORMAL".
func WithSynchronous(mode string) Option { return func(c *config) { c.synchronous = mode } }

// WithoutMkdirAll skips creating parent directories of the database path.
func WithoutMkdirAll() Option { return func(c *config) { c.mkdirAll = false } }

// WithClock overrides the clock used for updated_at columns.
func WithClock(now func() time.Time) Option { return func(c *config) { c.now = now } }

// Backend is an SQLite implementation of storage.Backend.
type Backend struct {
	db  *sql.DB
	now func() time.Time

	portfolio *Collection[domain.PortfolioEntry]
	history   *Collection[domain.SwipeRecord]
	stocks    *Collection[domain.CachedStock]
	trends    *Collection[domain.TrendSnapshot]
	settings  *Collection[domain.Setting]
}

// Open opens (or creates) the database at path, applies pragmas and pending migrations.
// Any failure is reported as storage.ErrStorageUnavailable.
func Open(ctx context.Context, path string, opts ...Option) (*Backend, error) {
	cfg := defaults()
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("%w: mkdir: %w", storage.ErrStorageUnavailable, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", storage.ErrStorageUnavailable, err)
	}
	// A single writer avoids SQLITE_BUSY between our own connections.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(ctx, db, &cfg); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", storage.ErrStorageUnavailable, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping sqlite: %w", storage.ErrStorageUnavailable, err)
	}

	if err := migrate(ctx, db, cfg.now); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", storage.ErrStorageUnavailable, err)
	}

	return newBackend(db, cfg.now), nil
}

func applyPragmas(ctx context.Context, db *sql.DB, cfg *config) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.busyTimeout),
		fmt.Sprintf("PRAGMA synchronous = %s", cfg.synchronous),
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// migrate applies pending embedded migrations, each in its own transaction.
func migrate(ctx context.Context, db *sql.DB, now func() time.Time) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version    INTEGER PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}

	all, err := migrations.Load(migrations.EngineSQLite)
	if err != nil {
		return err
	}

	for _, m := range migrations.Pending(all, current) {
		err := RunTx(ctx, db, func(tx *sql.Tx) error {
			for _, stmt := range m.Statements() {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
				m.Version, now().UnixMilli())
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
	}
	return nil
}

func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}

func newBackend(db *sql.DB, now func() time.Time) *Backend {
	return &Backend{
		db:        db,
		now:       now,
		portfolio: NewCollection(db, storage.CollectionPortfolio, storage.PortfolioKey, now),
		history:   NewCollection(db, storage.CollectionHistory, storage.HistoryKey, now),
		stocks:    NewCollection(db, storage.CollectionStocks, storage.StockKey, now),
		trends:    NewCollection(db, storage.CollectionTrends, storage.TrendKey, now),
		settings:  NewCollection(db, storage.CollectionSettings, storage.SettingKey, now),
	}
}

func (b *Backend) Portfolio() storage.Collection[domain.PortfolioEntry] { return b.portfolio }
func (b *Backend) History() storage.Collection[domain.SwipeRecord]      { return b.history }
func (b *Backend) Stocks() storage.Collection[domain.CachedStock]       { return b.stocks }
func (b *Backend) Trends() storage.Collection[domain.TrendSnapshot]     { return b.trends }
func (b *Backend) Settings() storage.Collection[domain.Setting]         { return b.settings }

// SchemaVersion returns the applied schema version.
func (b *Backend) SchemaVersion(ctx context.Context) (int, error) {
	return schemaVersion(ctx, b.db)
}

// Close closes the database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// Compile-time interface check.
var _ storage.Backend = (*Backend)(nil)
