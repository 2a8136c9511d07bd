package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dividend-hunter/internal/domain"
	"dividend-hunter/internal/storage"
)

func ptr[T any](v T) *T {
	return &v
}

func TestGetCachedStocks_Freshness(t *testing.T) {
	tests := []struct {
		name    string
		age     time.Duration
		wantNil bool
	}{
		{"just under ttl", CacheTTL - time.Millisecond, false},
		{"exactly ttl", CacheTTL, false},
		{"just over ttl", CacheTTL + time.Millisecond, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, clock := newTestStore(t)
			ctx := context.Background()

			require.NoError(t, s.CacheStocks(ctx, []domain.StockRecord{stock("KO", 3.1, 1), stock("PEP", 2.9, 2)}))
			clock.Advance(tt.age)

			got, err := s.GetCachedStocks(ctx, DefaultCacheQuery())
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			assert.Len(t, got, 2)

			// Stale data is still served without the freshness check.
			all, err := s.GetCachedStocks(ctx, CacheQuery{})
			require.NoError(t, err)
			assert.Len(t, all, 2)
		})
	}
}

func TestGetCachedStocks_OldestRecordDecides(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CacheStocks(ctx, []domain.StockRecord{stock("OLD", 3, 1)}))
	clock.Advance(50 * time.Minute)
	require.NoError(t, s.CacheStocks(ctx, []domain.StockRecord{stock("NEW", 3, 1)}))
	clock.Advance(11 * time.Minute)

	got, err := s.GetCachedStocks(ctx, DefaultCacheQuery())
	require.NoError(t, err)
	assert.Nil(t, got, "one stale record makes the whole set stale")

	// Stale entries are not deleted.
	n, err := s.backend.Stocks().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	age, ok, err := s.CacheAge(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 61*time.Minute, age)
}

func TestGetCachedStocks_EmptyCache(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetCachedStocks(ctx, DefaultCacheQuery())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, ok, err := s.CacheAge(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetCachedStocks_FilterAndSort(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	a := stock("A", 5.0, 10)
	a.Category = domain.CategoryImmediate
	a.Sector = "Energy"
	b := stock("B", 2.0, 90)
	b.Category = domain.CategoryLongshot
	c := stock("C", 4.0, 50)
	c.Category = domain.CategoryImmediate
	c.SafetyScore = 40
	d := stock("D", 6.0, 70)
	d.Category = domain.CategoryImmediate
	d.Sector = "energy"
	require.NoError(t, s.CacheStocks(ctx, []domain.StockRecord{a, b, c, d}))

	all, err := s.GetCachedStocks(ctx, DefaultCacheQuery())
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "D", "C", "A"}, tickersOf(all))

	got, err := s.GetCachedStocks(ctx, CacheQuery{
		StockFilter: domain.StockFilter{
			Category:  ptr(domain.CategoryImmediate),
			MinYield:  ptr(4.0),
			MinSafety: ptr(50),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "A"}, tickersOf(got))

	got, err = s.GetCachedStocks(ctx, CacheQuery{StockFilter: domain.StockFilter{Sector: ptr("ENERGY")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "A"}, tickersOf(got))
}

func TestCacheStocks_SharedTimestampAndReplace(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CacheStocks(ctx, []domain.StockRecord{stock("KO", 3.1, 1), stock("PEP", 2.9, 1)}))
	ko, err := s.GetCachedStock(ctx, "KO")
	require.NoError(t, err)
	pep, err := s.GetCachedStock(ctx, "PEP")
	require.NoError(t, err)
	assert.Equal(t, ko.CachedAt, pep.CachedAt)

	clock.Advance(time.Minute)
	require.NoError(t, s.CacheStocks(ctx, []domain.StockRecord{stock("KO", 3.3, 1)}))
	ko, err = s.GetCachedStock(ctx, "KO")
	require.NoError(t, err)
	assert.Equal(t, 3.3, ko.DividendYield)
	assert.Equal(t, clock.Now(), ko.CachedAt)

	_, err = s.GetCachedStock(ctx, "MISSING")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.ClearStockCache(ctx))
	got, err := s.GetCachedStocks(ctx, CacheQuery{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCacheStocks_AllOrNothing(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	err := s.CacheStocks(ctx, []domain.StockRecord{stock("KO", 3.1, 1), {Ticker: ""}})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	got, err := s.GetCachedStocks(ctx, CacheQuery{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func tickersOf(stocks []domain.CachedStock) []string {
	out := make([]string, len(stocks))
	for i, s := range stocks {
		out[i] = s.Ticker
	}
	return out
}
