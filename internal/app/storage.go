package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dividend-hunter/internal/config"
	"dividend-hunter/internal/observability"
	"dividend-hunter/internal/storage"
	"dividend-hunter/internal/storage/clickhouse"
	"dividend-hunter/internal/storage/memory"
	"dividend-hunter/internal/storage/postgres"
	"dividend-hunter/internal/storage/sqlite"
	"dividend-hunter/internal/store"
)

// MsgStorageUnavailable is shown when the app runs without persistence.
const MsgStorageUnavailable = "offline storage unavailable, changes will not be saved"

// StoreOptions configures OpenStore.
type StoreOptions struct {
	Clock    func() time.Time
	Location *time.Location
	Logger   *log.Logger
	Notifier Notifier
}

// OpenStore opens the configured backend. When the engine is unavailable the
// failure is logged and toasted and a memory-backed, non-persistent Store is
// returned instead. Only configuration errors are returned.
func OpenStore(ctx context.Context, cfg config.StorageConfig, opts StoreOptions) (*store.Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger()
	}

	backend, err := openBackend(ctx, cfg)
	if err != nil && !errors.Is(err, storage.ErrStorageUnavailable) {
		return nil, err
	}

	persistent := cfg.Backend != config.BackendMemory
	if err != nil {
		logger.Printf("open %s storage: %v (continuing without persistence)", cfg.Backend, err)
		if opts.Notifier != nil {
			opts.Notifier.Toast(ToastError, MsgStorageUnavailable)
		}
		backend = memory.NewBackend()
		persistent = false
	}
	observability.SetStorageDegraded(!persistent && cfg.Backend != config.BackendMemory)

	if persistent && cfg.ClickHouseDSN != "" {
		trends, closer, err := clickhouse.OpenTrends(ctx, cfg.ClickHouseDSN)
		if err != nil {
			logger.Printf("open clickhouse trends: %v (keeping trends in %s)", err, cfg.Backend)
		} else {
			backend = storage.WithTrends(backend, trends, closer)
		}
	}

	return store.New(store.Options{
		Backend:    backend,
		Persistent: persistent,
		Clock:      opts.Clock,
		Location:   opts.Location,
		Logger:     logger,
	}), nil
}

func openBackend(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		b, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendPostgres:
		b, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendMemory:
		return memory.NewBackend(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
