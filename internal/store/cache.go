package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"dividend-hunter/internal/domain"
	"dividend-hunter/internal/storage"
)

// CacheQuery selects cached stocks.
type CacheQuery struct {
	domain.StockFilter

	// CheckFreshness returns nil when the oldest cached record is older than CacheTTL.
	CheckFreshness bool
}

// DefaultCacheQuery returns an unfiltered, freshness-checked query.
func DefaultCacheQuery() CacheQuery {
	return CacheQuery{CheckFreshness: true}
}

// CacheStocks stores stocks with one shared CachedAt. The write is all-or-nothing.
func (s *Store) CacheStocks(ctx context.Context, stocks []domain.StockRecord) error {
	if len(stocks) == 0 {
		return nil
	}

	cachedAt := s.now()
	cached := make([]domain.CachedStock, len(stocks))
	for i, st := range stocks {
		cached[i] = domain.CachedStock{StockRecord: st, CachedAt: cachedAt}
	}

	if err := s.backend.Stocks().PutBulk(ctx, cached); err != nil {
		return fmt.Errorf("cache %d stocks: %w", len(stocks), err)
	}
	return nil
}

// GetCachedStocks returns cached stocks matching q, highest rank first.
// With CheckFreshness it returns nil when now minus the oldest CachedAt exceeds CacheTTL;
// exactly CacheTTL is still fresh. An empty cache returns an empty slice.
func (s *Store) GetCachedStocks(ctx context.Context, q CacheQuery) ([]domain.CachedStock, error) {
	all, err := s.backend.Stocks().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get cached stocks: %w", err)
	}
	if len(all) == 0 {
		return []domain.CachedStock{}, nil
	}

	if q.CheckFreshness {
		if s.now().Sub(oldest(all)) > CacheTTL {
			return nil, nil
		}
	}

	result := make([]domain.CachedStock, 0, len(all))
	for _, c := range all {
		if q.Match(c.StockRecord) {
			result = append(result, c)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].RankScore != result[j].RankScore {
			return result[i].RankScore > result[j].RankScore
		}
		return result[i].Ticker < result[j].Ticker
	})
	return result, nil
}

// GetCachedStock returns one cached stock. Returns storage.ErrNotFound if absent.
func (s *Store) GetCachedStock(ctx context.Context, ticker string) (domain.CachedStock, error) {
	c, err := s.backend.Stocks().Get(ctx, ticker)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.CachedStock{}, err
		}
		return domain.CachedStock{}, fmt.Errorf("get cached stock %s: %w", ticker, err)
	}
	return c, nil
}

// ClearStockCache removes every cached stock.
func (s *Store) ClearStockCache(ctx context.Context) error {
	if err := s.backend.Stocks().Clear(ctx); err != nil {
		return fmt.Errorf("clear stock cache: %w", err)
	}
	return nil
}

// CacheAge returns the age of the oldest cached record. ok is false on an empty cache.
func (s *Store) CacheAge(ctx context.Context) (age time.Duration, ok bool, err error) {
	all, err := s.backend.Stocks().GetAll(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("get cache age: %w", err)
	}
	if len(all) == 0 {
		return 0, false, nil
	}
	return s.now().Sub(oldest(all)), true, nil
}

func oldest(all []domain.CachedStock) time.Time {
	t := all[0].CachedAt
	for _, c := range all[1:] {
		if c.CachedAt.Before(t) {
			t = c.CachedAt
		}
	}
	return t
}
