package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dividend-hunter/internal/domain"
)

func TestPortfolio_AddGetRemove(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	first, err := s.AddToPortfolio(ctx, stock("KO", 3.1, 1))
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), first.AddedAt)

	clock.Advance(time.Minute)
	_, err = s.AddToPortfolio(ctx, stock("PEP", 2.9, 1))
	require.NoError(t, err)

	entries, err := s.GetPortfolio(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "PEP", entries[0].Ticker, "newest first")
	assert.Equal(t, "KO", entries[1].Ticker)

	in, err := s.IsInPortfolio(ctx, "KO")
	require.NoError(t, err)
	assert.True(t, in)

	require.NoError(t, s.RemoveFromPortfolio(ctx, "KO"))
	in, err = s.IsInPortfolio(ctx, "KO")
	require.NoError(t, err)
	assert.False(t, in)

	// Removing again is not an error.
	require.NoError(t, s.RemoveFromPortfolio(ctx, "KO"))

	require.NoError(t, s.ClearPortfolio(ctx))
	entries, err = s.GetPortfolio(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPortfolio_UpsertKeepsOneEntry(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddToPortfolio(ctx, stock("KO", 3.1, 1))
	require.NoError(t, err)
	clock.Advance(time.Hour)
	updated := stock("KO", 3.4, 1)
	_, err = s.AddToPortfolio(ctx, updated)
	require.NoError(t, err)

	entries, err := s.GetPortfolio(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3.4, entries[0].DividendYield)
	assert.Equal(t, clock.Now(), entries[0].AddedAt)
}

func TestPortfolio_RemoveKeepsSwipe(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.RecordSwipe(ctx, "KO", domain.SwipeLike)
	require.NoError(t, err)
	_, err = s.AddToPortfolio(ctx, stock("KO", 3.1, 1))
	require.NoError(t, err)

	require.NoError(t, s.RemoveFromPortfolio(ctx, "KO"))

	swiped, err := s.GetSwipedTickers(ctx)
	require.NoError(t, err)
	assert.Contains(t, swiped, "KO")
}

func TestPortfolioStats(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	stats, err := s.GetPortfolioStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.PortfolioStats{}, stats)

	for _, st := range []domain.StockRecord{
		{Ticker: "A", DividendYield: 3.1, AnnualDividend: 1.84},
		{Ticker: "B", DividendYield: 2.9, AnnualDividend: 5.06},
		{Ticker: "C", DividendYield: 4.005, AnnualDividend: 0.105},
	} {
		_, err := s.AddToPortfolio(ctx, st)
		require.NoError(t, err)
	}

	stats, err = s.GetPortfolioStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Count)
	// (3.1 + 2.9 + 4.005) / 3 = 3.335 -> 3.34
	assert.Equal(t, 3.34, stats.AvgYield)
	// 1.84 + 5.06 + 0.105 = 7.005 -> 7.01
	assert.Equal(t, 7.01, stats.TotalAnnualDividend)
}
