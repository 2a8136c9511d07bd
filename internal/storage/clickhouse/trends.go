package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"dividend-hunter/internal/domain"
	"dividend-hunter/internal/storage"
)

// TrendCollection implements storage.Collection[domain.TrendSnapshot] using ClickHouse.
// Upserts rely on ReplacingMergeTree(saved_at); reads use FINAL.
type TrendCollection struct {
	conn *Conn
}

// NewTrendCollection creates a new TrendCollection.
func NewTrendCollection(conn *Conn) *TrendCollection {
	return &TrendCollection{conn: conn}
}

// Compile-time interface check.
var _ storage.Collection[domain.TrendSnapshot] = (*TrendCollection)(nil)

const selectTrends = `
	SELECT id, ticker, date, yield, price, growth_rate, safety_score, saved_at
	FROM trend_snapshots FINAL
`

// Get retrieves a snapshot by id. Returns ErrNotFound if not exists.
func (c *TrendCollection) Get(ctx context.Context, id string) (domain.TrendSnapshot, error) {
	rows, err := c.conn.Query(ctx, selectTrends+` WHERE id = ?`, id)
	if err != nil {
		return domain.TrendSnapshot{}, fmt.Errorf("query trend snapshot: %w", err)
	}
	defer rows.Close()

	snaps, err := scanTrends(rows)
	if err != nil {
		return domain.TrendSnapshot{}, err
	}
	if len(snaps) == 0 {
		return domain.TrendSnapshot{}, storage.ErrNotFound
	}
	return snaps[0], nil
}

// GetAll retrieves every snapshot ordered by id.
func (c *TrendCollection) GetAll(ctx context.Context) ([]domain.TrendSnapshot, error) {
	rows, err := c.conn.Query(ctx, selectTrends+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query trend snapshots: %w", err)
	}
	defer rows.Close()

	return scanTrends(rows)
}

// Put upserts a snapshot by id.
func (c *TrendCollection) Put(ctx context.Context, s domain.TrendSnapshot) error {
	return c.PutBulk(ctx, []domain.TrendSnapshot{s})
}

// PutBulk upserts multiple snapshots in one batch. Fails entire batch on any empty id.
func (c *TrendCollection) PutBulk(ctx context.Context, snaps []domain.TrendSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	for _, s := range snaps {
		if s.ID == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := c.conn.PrepareBatch(ctx, `
		INSERT INTO trend_snapshots (
			id, ticker, date, yield, price, growth_rate, safety_score, saved_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, s := range snaps {
		savedAt := s.SavedAt
		if savedAt.IsZero() {
			savedAt = time.Now()
		}
		err = batch.Append(
			s.ID, s.Ticker, s.Date,
			s.Yield, s.Price, s.GrowthRate,
			int32(s.SafetyScore), savedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// Delete removes a snapshot.
func (c *TrendCollection) Delete(ctx context.Context, id string) error {
	return c.DeleteMany(ctx, []string{id})
}

// DeleteMany removes multiple snapshots with a synchronous mutation.
func (c *TrendCollection) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	ctx = clickhouse.Context(ctx, clickhouse.WithSettings(clickhouse.Settings{
		"mutations_sync": 1,
	}))
	if err := c.conn.Exec(ctx, `ALTER TABLE trend_snapshots DELETE WHERE has(?, id)`, ids); err != nil {
		return fmt.Errorf("delete trend snapshots: %w", err)
	}
	return nil
}

// Clear removes every snapshot.
func (c *TrendCollection) Clear(ctx context.Context) error {
	if err := c.conn.Exec(ctx, `TRUNCATE TABLE trend_snapshots`); err != nil {
		return fmt.Errorf("truncate trend snapshots: %w", err)
	}
	return nil
}

// Count returns the number of distinct snapshots.
func (c *TrendCollection) Count(ctx context.Context) (int, error) {
	var n uint64
	if err := c.conn.QueryRow(ctx, `SELECT count() FROM trend_snapshots FINAL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count trend snapshots: %w", err)
	}
	return int(n), nil
}

type trendRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanTrends(rows trendRows) ([]domain.TrendSnapshot, error) {
	result := []domain.TrendSnapshot{}
	for rows.Next() {
		var s domain.TrendSnapshot
		var safety int32
		if err := rows.Scan(
			&s.ID, &s.Ticker, &s.Date,
			&s.Yield, &s.Price, &s.GrowthRate,
			&safety, &s.SavedAt,
		); err != nil {
			return nil, fmt.Errorf("scan trend snapshot: %w", err)
		}
		s.SafetyScore = int(safety)
		result = append(result, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trend snapshots: %w", err)
	}
	return result, nil
}
