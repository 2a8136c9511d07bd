package store

import (
	"context"
	"fmt"
	"sort"

	"dividend-hunter/internal/domain"
)

// SaveTrendSnapshot upserts today's snapshot of ticker. A second save on the
// same calendar day replaces the first.
func (s *Store) SaveTrendSnapshot(ctx context.Context, ticker string, data domain.TrendData) (domain.TrendSnapshot, error) {
	snap := s.newSnapshot(ticker, data)
	if err := s.backend.Trends().Put(ctx, snap); err != nil {
		return domain.TrendSnapshot{}, fmt.Errorf("save trend snapshot %s: %w", snap.ID, err)
	}
	return snap, nil
}

// SaveTrendSnapshots upserts today's snapshot of every stock in one bulk write.
func (s *Store) SaveTrendSnapshots(ctx context.Context, stocks []domain.StockRecord) error {
	if len(stocks) == 0 {
		return nil
	}

	snaps := make([]domain.TrendSnapshot, 0, len(stocks))
	seen := make(map[string]int, len(stocks))
	for _, st := range stocks {
		snap := s.newSnapshot(st.Ticker, domain.TrendDataFromStock(st))
		// Last occurrence wins within a batch.
		if i, ok := seen[snap.ID]; ok {
			snaps[i] = snap
			continue
		}
		seen[snap.ID] = len(snaps)
		snaps = append(snaps, snap)
	}

	if err := s.backend.Trends().PutBulk(ctx, snaps); err != nil {
		return fmt.Errorf("save %d trend snapshots: %w", len(snaps), err)
	}
	return nil
}

func (s *Store) newSnapshot(ticker string, data domain.TrendData) domain.TrendSnapshot {
	now := s.now()
	date := now.In(s.loc).Format(domain.DateFormat)
	return domain.TrendSnapshot{
		ID:          domain.TrendSnapshotID(ticker, date),
		Ticker:      ticker,
		Date:        date,
		Yield:       data.Yield,
		Price:       data.Price,
		GrowthRate:  data.GrowthRate,
		SafetyScore: data.SafetyScore,
		SavedAt:     now,
	}
}

// GetTrendData returns the snapshots of ticker, oldest date first.
func (s *Store) GetTrendData(ctx context.Context, ticker string) ([]domain.TrendSnapshot, error) {
	all, err := s.backend.Trends().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get trend data %s: %w", ticker, err)
	}

	result := []domain.TrendSnapshot{}
	for _, t := range all {
		if t.Ticker == ticker {
			result = append(result, t)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date < result[j].Date
	})
	return result, nil
}

// GetTickersWithTrends returns the sorted set of tickers having snapshots.
func (s *Store) GetTickersWithTrends(ctx context.Context) ([]string, error) {
	all, err := s.backend.Trends().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get tickers with trends: %w", err)
	}

	seen := make(map[string]struct{})
	tickers := []string{}
	for _, t := range all {
		if _, ok := seen[t.Ticker]; ok {
			continue
		}
		seen[t.Ticker] = struct{}{}
		tickers = append(tickers, t.Ticker)
	}

	sort.Strings(tickers)
	return tickers, nil
}

// CleanupTrends deletes snapshots dated before today minus TrendRetentionDays.
// Returns the number of snapshots removed.
func (s *Store) CleanupTrends(ctx context.Context) (int, error) {
	cutoff := s.today().AddDate(0, 0, -TrendRetentionDays).Format(domain.DateFormat)

	all, err := s.backend.Trends().GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("cleanup trends: %w", err)
	}

	var expired []string
	for _, t := range all {
		// YYYY-MM-DD compares chronologically as a string.
		if t.Date < cutoff {
			expired = append(expired, t.ID)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	if err := s.backend.Trends().DeleteMany(ctx, expired); err != nil {
		return 0, fmt.Errorf("cleanup trends: %w", err)
	}
	s.logger.Printf("trend cleanup removed %d snapshots older than %s", len(expired), cutoff)
	return len(expired), nil
}
