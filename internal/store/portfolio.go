package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"dividend-hunter/internal/domain"
	"dividend-hunter/internal/storage"
)

// AddToPortfolio saves a stock with AddedAt set to now. An existing entry is replaced.
func (s *Store) AddToPortfolio(ctx context.Context, stock domain.StockRecord) (domain.PortfolioEntry, error) {
	entry := domain.PortfolioEntry{StockRecord: stock, AddedAt: s.now()}
	if err := s.backend.Portfolio().Put(ctx, entry); err != nil {
		return domain.PortfolioEntry{}, fmt.Errorf("add %s to portfolio: %w", stock.Ticker, err)
	}
	return entry, nil
}

// RemoveFromPortfolio deletes a portfolio entry. The swipe record is kept.
func (s *Store) RemoveFromPortfolio(ctx context.Context, ticker string) error {
	if err := s.backend.Portfolio().Delete(ctx, ticker); err != nil {
		return fmt.Errorf("remove %s from portfolio: %w", ticker, err)
	}
	return nil
}

// GetPortfolio returns every entry, most recently added first.
func (s *Store) GetPortfolio(ctx context.Context) ([]domain.PortfolioEntry, error) {
	entries, err := s.backend.Portfolio().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get portfolio: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].AddedAt.Equal(entries[j].AddedAt) {
			return entries[i].AddedAt.After(entries[j].AddedAt)
		}
		return entries[i].Ticker < entries[j].Ticker
	})
	return entries, nil
}

// IsInPortfolio reports whether ticker is saved.
func (s *Store) IsInPortfolio(ctx context.Context, ticker string) (bool, error) {
	_, err := s.backend.Portfolio().Get(ctx, ticker)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check portfolio %s: %w", ticker, err)
	}
	return true, nil
}

// ClearPortfolio removes every entry.
func (s *Store) ClearPortfolio(ctx context.Context) error {
	if err := s.backend.Portfolio().Clear(ctx); err != nil {
		return fmt.Errorf("clear portfolio: %w", err)
	}
	return nil
}

// GetPortfolioStats returns count, mean yield and summed annual dividend,
// both rounded to 2 decimals. An empty portfolio yields zeros.
func (s *Store) GetPortfolioStats(ctx context.Context) (domain.PortfolioStats, error) {
	entries, err := s.backend.Portfolio().GetAll(ctx)
	if err != nil {
		return domain.PortfolioStats{}, fmt.Errorf("get portfolio stats: %w", err)
	}
	if len(entries) == 0 {
		return domain.PortfolioStats{}, nil
	}

	yield := decimal.Zero
	dividend := decimal.Zero
	for _, e := range entries {
		yield = yield.Add(decimal.NewFromFloat(e.DividendYield))
		dividend = dividend.Add(decimal.NewFromFloat(e.AnnualDividend))
	}

	return domain.PortfolioStats{
		Count:               len(entries),
		AvgYield:            yield.Div(decimal.NewFromInt(int64(len(entries)))).Round(2).InexactFloat64(),
		TotalAnnualDividend: dividend.Round(2).InexactFloat64(),
	}, nil
}
