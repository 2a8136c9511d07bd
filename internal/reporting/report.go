package reporting

import (
	"time"

	"dividend-hunter/internal/domain"
)

// PortfolioReport is a rendered-agnostic summary of the saved portfolio.
type PortfolioReport struct {
	// Metadata
	GeneratedAt time.Time
	Currency    string // ISO 4217 code used for money columns

	// Entries in portfolio order (newest first)
	Entries []domain.PortfolioEntry
	Stats   domain.PortfolioStats

	// Breakdowns (sorted by count desc, then name)
	Sectors    []BreakdownRow
	Categories []BreakdownRow
}

// BreakdownRow groups portfolio entries by one attribute.
type BreakdownRow struct {
	Name           string
	Count          int
	AvgYield       float64
	AnnualDividend float64
}
