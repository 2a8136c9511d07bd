package reporting

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"dividend-hunter/internal/domain"
)

// DefaultCurrency is used when a report has no explicit currency.
const DefaultCurrency = "USD"

// NewReport builds a portfolio report from entries already in display order.
func NewReport(entries []domain.PortfolioEntry, stats domain.PortfolioStats, generatedAt time.Time, currency string) *PortfolioReport {
	if currency == "" {
		currency = DefaultCurrency
	}

	return &PortfolioReport{
		GeneratedAt: generatedAt,
		Currency:    currency,
		Entries:     entries,
		Stats:       stats,
		Sectors: breakdown(entries, func(e domain.PortfolioEntry) string {
			if e.Sector == "" {
				return "Unknown"
			}
			return e.Sector
		}),
		Categories: breakdown(entries, func(e domain.PortfolioEntry) string {
			if e.Category == "" {
				return "uncategorized"
			}
			return e.Category.String()
		}),
	}
}

type accumulator struct {
	count    int
	yield    decimal.Decimal
	dividend decimal.Decimal
}

func breakdown(entries []domain.PortfolioEntry, group func(domain.PortfolioEntry) string) []BreakdownRow {
	acc := make(map[string]*accumulator)
	for _, e := range entries {
		name := group(e)
		a, ok := acc[name]
		if !ok {
			a = &accumulator{}
			acc[name] = a
		}
		a.count++
		a.yield = a.yield.Add(decimal.NewFromFloat(e.DividendYield))
		a.dividend = a.dividend.Add(decimal.NewFromFloat(e.AnnualDividend))
	}

	rows := make([]BreakdownRow, 0, len(acc))
	for name, a := range acc {
		rows = append(rows, BreakdownRow{
			Name:           name,
			Count:          a.count,
			AvgYield:       a.yield.Div(decimal.NewFromInt(int64(a.count))).Round(2).InexactFloat64(),
			AnnualDividend: a.dividend.Round(2).InexactFloat64(),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}
