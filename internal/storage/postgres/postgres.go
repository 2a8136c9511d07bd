// Package postgres implements storage.Backend on PostgreSQL for shared,
// server-side deployments. Each collection is a key/JSONB table.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"dividend-hunter/internal/domain"
	"dividend-hunter/internal/storage"
	"dividend-hunter/internal/storage/migrations"
)

// Pool wraps pgxpool.Pool for dependency injection.
type Pool struct {
	*pgxpool.Pool
}

// NewPool creates a new Postgres connection pool.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// Backend is a PostgreSQL implementation of storage.Backend.
type Backend struct {
	pool *Pool

	portfolio *Collection[domain.PortfolioEntry]
	history   *Collection[domain.SwipeRecord]
	stocks    *Collection[domain.CachedStock]
	trends    *Collection[domain.TrendSnapshot]
	settings  *Collection[domain.Setting]
}

// Open connects to dsn and applies pending migrations.
// Any failure is reported as storage.ErrStorageUnavailable.
func Open(ctx context.Context, dsn string) (*Backend, error) {
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrStorageUnavailable, err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %w", storage.ErrStorageUnavailable, err)
	}

	return NewBackend(pool), nil
}

// NewBackend wraps an already migrated pool.
func NewBackend(pool *Pool) *Backend {
	return &Backend{
		pool:      pool,
		portfolio: NewCollection(pool, storage.CollectionPortfolio, storage.PortfolioKey),
		history:   NewCollection(pool, storage.CollectionHistory, storage.HistoryKey),
		stocks:    NewCollection(pool, storage.CollectionStocks, storage.StockKey),
		trends:    NewCollection(pool, storage.CollectionTrends, storage.TrendKey),
		settings:  NewCollection(pool, storage.CollectionSettings, storage.SettingKey),
	}
}

// Migrate applies pending embedded migrations, each in its own transaction.
func Migrate(ctx context.Context, pool *Pool) error {
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := schemaVersion(ctx, pool)
	if err != nil {
		return err
	}

	all, err := migrations.Load(migrations.EnginePostgres)
	if err != nil {
		return err
	}

	for _, m := range migrations.Pending(all, current) {
		if err := applyMigration(ctx, pool, m); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
	}
	return nil
}

func applyMigration(ctx context.Context, pool *Pool, m migrations.Migration) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range m.Statements() {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_version (version) VALUES ($1)`, m.Version); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func schemaVersion(ctx context.Context, pool *Pool) (int, error) {
	var v *int
	if err := pool.QueryRow(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if v == nil {
		return 0, nil
	}
	return *v, nil
}

func (b *Backend) Portfolio() storage.Collection[domain.PortfolioEntry] { return b.portfolio }
func (b *Backend) History() storage.Collection[domain.SwipeRecord]      { return b.history }
func (b *Backend) Stocks() storage.Collection[domain.CachedStock]       { return b.stocks }
func (b *Backend) Trends() storage.Collection[domain.TrendSnapshot]     { return b.trends }
func (b *Backend) Settings() storage.Collection[domain.Setting]         { return b.settings }

// SchemaVersion returns the applied schema version.
func (b *Backend) SchemaVersion(ctx context.Context) (int, error) {
	return schemaVersion(ctx, b.pool)
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	b.pool.Close()
	return nil
}

// Compile-time interface check.
var _ storage.Backend = (*Backend)(nil)

// PostgreSQL error codes
const (
	pgErrUndefinedTable = "42P01" // undefined_table
)

// isUndefinedTableError checks if error reports a missing relation.
func isUndefinedTableError(err error) bool {
	if err == nil {
		return false
	}

	// Use pgconn.PgError for reliable error code detection
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrUndefinedTable
	}

	return false
}

// isNotFoundError checks if error indicates no rows found.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
