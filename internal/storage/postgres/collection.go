package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"dividend-hunter/internal/storage"
)

// Collection implements storage.Collection as a key/JSONB table.
type Collection[T any] struct {
	pool  *Pool
	table string
	key   func(T) string
}

// NewCollection creates a collection over an existing table.
func NewCollection[T any](pool *Pool, table string, key func(T) string) *Collection[T] {
	return &Collection[T]{pool: pool, table: table, key: key}
}

// Get retrieves an entity by primary key. Returns ErrNotFound if not exists.
func (c *Collection[T]) Get(ctx context.Context, key string) (T, error) {
	var zero T
	var raw string

	query := fmt.Sprintf(`SELECT value::text FROM %s WHERE key = $1`, c.table)
	if err := c.pool.QueryRow(ctx, query, key).Scan(&raw); err != nil {
		if isNotFoundError(err) {
			return zero, storage.ErrNotFound
		}
		return zero, c.wrap("get", err)
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return zero, fmt.Errorf("decode %s %q: %w", c.table, key, err)
	}
	return v, nil
}

// GetAll retrieves every entity.
func (c *Collection[T]) GetAll(ctx context.Context) ([]T, error) {
	rows, err := c.pool.Query(ctx, fmt.Sprintf(`SELECT value::text FROM %s`, c.table))
	if err != nil {
		return nil, c.wrap("get all", err)
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

// PutBulk upserts multiple entities atomically. Fails entire batch on any invalid entity.
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

	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at) VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, c.table)

	for i := range keys {
		if _, err := tx.Exec(ctx, query, keys[i], values[i]); err != nil {
			return c.wrap(fmt.Sprintf("upsert %q", keys[i]), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Delete removes an entity.
func (c *Collection[T]) Delete(ctx context.Context, key string) error {
	return c.DeleteMany(ctx, []string{key})
}

// DeleteMany removes multiple entities in one statement.
func (c *Collection[T]) DeleteMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE key = ANY($1)`, c.table)
	if _, err := c.pool.Exec(ctx, query, keys); err != nil {
		return c.wrap("delete", err)
	}
	return nil
}

// Clear removes every entity.
func (c *Collection[T]) Clear(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, c.table)); err != nil {
		return c.wrap("clear", err)
	}
	return nil
}

// Count returns the number of stored entities.
func (c *Collection[T]) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, c.table)).Scan(&n); err != nil {
		return 0, c.wrap("count", err)
	}
	return n, nil
}

// wrap annotates err; a missing table means the schema is gone and storage is unusable.
func (c *Collection[T]) wrap(op string, err error) error {
	if isUndefinedTableError(err) {
		return fmt.Errorf("%w: %s %s: %w", storage.ErrStorageUnavailable, op, c.table, err)
	}
	return fmt.Errorf("%s %s: %w", op, c.table, err)
}
