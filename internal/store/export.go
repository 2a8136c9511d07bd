package store

import (
	"context"
	"fmt"

	"dividend-hunter/internal/reporting"
)

// ExportPortfolioCSV renders the portfolio as CSV, newest entry first.
// ok is false when the portfolio is empty.
func (s *Store) ExportPortfolioCSV(ctx context.Context) (csv string, ok bool, err error) {
	entries, err := s.GetPortfolio(ctx)
	if err != nil {
		return "", false, fmt.Errorf("export portfolio: %w", err)
	}
	if len(entries) == 0 {
		return "", false, nil
	}
	return reporting.RenderPortfolioCSV(entries, s.loc), true, nil
}

// ExportFilename returns the download name for an export made now.
func (s *Store) ExportFilename() string {
	return reporting.ExportFilename(s.now().In(s.loc))
}

// PortfolioReport builds a summary report of the portfolio.
func (s *Store) PortfolioReport(ctx context.Context, currency string) (*reporting.PortfolioReport, error) {
	entries, err := s.GetPortfolio(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.GetPortfolioStats(ctx)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].AddedAt = entries[i].AddedAt.In(s.loc)
	}
	return reporting.NewReport(entries, stats, s.now().In(s.loc), currency), nil
}
