package store

import (
	"context"
	"fmt"
	"sort"

	"dividend-hunter/internal/domain"
)

// RecordSwipe stores the latest action on ticker and trims the history.
func (s *Store) RecordSwipe(ctx context.Context, ticker string, action domain.SwipeAction) (domain.SwipeRecord, error) {
	if !action.IsValid() {
		return domain.SwipeRecord{}, fmt.Errorf("record swipe %s: invalid action %q", ticker, action)
	}

	rec := domain.SwipeRecord{Ticker: ticker, Action: action, Timestamp: s.now()}
	if err := s.backend.History().Put(ctx, rec); err != nil {
		return domain.SwipeRecord{}, fmt.Errorf("record swipe %s: %w", ticker, err)
	}

	if _, err := s.CleanupHistory(ctx); err != nil {
		return rec, err
	}
	return rec, nil
}

// GetSwipedTickers returns the set of tickers present in the history.
func (s *Store) GetSwipedTickers(ctx context.Context) (map[string]struct{}, error) {
	records, err := s.backend.History().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get swiped tickers: %w", err)
	}

	set := make(map[string]struct{}, len(records))
	for _, r := range records {
		set[r.Ticker] = struct{}{}
	}
	return set, nil
}

// GetRecentSwipes returns up to n records, newest first. n <= 0 returns all.
func (s *Store) GetRecentSwipes(ctx context.Context, n int) ([]domain.SwipeRecord, error) {
	records, err := s.backend.History().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get recent swipes: %w", err)
	}

	sortByTimestamp(records)
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	if n > 0 && len(records) > n {
		records = records[:n]
	}
	return records, nil
}

// RemoveSwipe deletes the history record of ticker.
func (s *Store) RemoveSwipe(ctx context.Context, ticker string) error {
	if err := s.backend.History().Delete(ctx, ticker); err != nil {
		return fmt.Errorf("remove swipe %s: %w", ticker, err)
	}
	return nil
}

// ClearHistory removes every swipe record, resurfacing all tickers.
func (s *Store) ClearHistory(ctx context.Context) error {
	if err := s.backend.History().Clear(ctx); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// CleanupHistory deletes the oldest records beyond MaxHistory in one atomic call.
// Returns the number of records removed.
func (s *Store) CleanupHistory(ctx context.Context) (int, error) {
	n, err := s.backend.History().Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("cleanup history: %w", err)
	}
	if n <= MaxHistory {
		return 0, nil
	}

	records, err := s.backend.History().GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("cleanup history: %w", err)
	}
	if len(records) <= MaxHistory {
		return 0, nil
	}

	sortByTimestamp(records)
	excess := records[:len(records)-MaxHistory]
	keys := make([]string, len(excess))
	for i, r := range excess {
		keys[i] = r.Ticker
	}

	if err := s.backend.History().DeleteMany(ctx, keys); err != nil {
		return 0, fmt.Errorf("cleanup history: %w", err)
	}
	s.logger.Printf("history cleanup removed %d records", len(keys))
	return len(keys), nil
}

// sortByTimestamp orders records oldest first, ticker as tie-breaker.
func sortByTimestamp(records []domain.SwipeRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.Before(records[j].Timestamp)
		}
		return records[i].Ticker < records[j].Ticker
	})
}
