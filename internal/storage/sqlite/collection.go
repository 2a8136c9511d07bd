package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dividend-hunter/internal/storage"
)

// Collection implements storage.Collection as a key/JSON-value table.
type Collection[T any] struct {
	db    *sql.DB
	table string
	key   func(T) string
	now   func() time.Time
}

// NewCollection creates a collection over an existing table.
func NewCollection[T any](db *sql.DB, table string, key func(T) string, now func() time.Time) *Collection[T] {
	return &Collection[T]{db: db, table: table, key: key, now: now}
}

// Get retrieves an entity by primary key. Returns ErrNotFound if not exists.
func (c *Collection[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T
	var raw string

	err := c.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, c.table), key,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, storage.ErrNotFound
		}
		return zero, fmt.Errorf("get %s %q: %w", c.table, key, err)
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return zero, fmt.Errorf("decode %s %q: %w", c.table, key, err)
	}
	return v, nil
}

// GetAll retrieves every entity.
func (c *Collection[T]) GetAll(ctx context.Context) ([]T, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf(`SELECT value FROM %s`, c.table))
	if err != nil {
		return nil, fmt.Errorf("get all %s: %w", c.table, err)
	}
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", c.table, err)
		}
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode %s row: %w", c.table, err)
		}
		result = append(result, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", c.table, err)
	}
	return result, nil
}

// Put upserts an entity by primary key.
func (c *Collection[T]) Put(ctx context.Context, v T) error {
	return c.PutBulk(ctx, []T{v})
}

// PutBulk upserts multiple entities in one transaction.
func (c *Collection[T]) PutBulk(ctx context.Context, vs []T) error {
	if len(vs) == 0 {
		return nil
	}

	keys := make([]string, len(vs))
	values := make([]string, len(vs))
	for i, v := range vs {
		k := c.key(v)
		if k == "" {
			return storage.ErrInvalidInput
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s %q: %w", c.table, k, err)
		}
		keys[i] = k
		values[i] = string(data)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, c.table)
	updatedAt := c.now().UnixMilli()

	err := RunTx(ctx, c.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for i := range keys {
			if _, err := stmt.ExecContext(ctx, keys[i], values[i], updatedAt); err != nil {
				return fmt.Errorf("upsert %q: %w", keys[i], err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", c.table, err)
	}
	return nil
}

// Delete removes an entity.
func (c *Collection[T]) Delete(ctx context.Context, key string) error {
	return c.DeleteMany(ctx, []string{key})
}

// DeleteMany removes multiple entities in one transaction.
func (c *Collection[T]) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, c.table)
	err := RunTx(ctx, c.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare delete: %w", err)
		}
		defer stmt.Close()

		for _, k := range keys {
			if _, err := stmt.ExecContext(ctx, k); err != nil {
				return fmt.Errorf("delete %q: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", c.table, err)
	}
	return nil
}

// Clear removes every entity.
func (c *Collection[T]) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, c.table)); err != nil {
		return fmt.Errorf("clear %s: %w", c.table, err)
	}
	return nil
}

// Count returns the number of stored entities.
func (c *Collection[T]) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, c.table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c.table, err)
	}
	return n, nil
}
