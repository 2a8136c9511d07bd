package reporting

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dividend-hunter/internal/domain"
)

func entry(ticker, sector string, cat domain.Category, yield, dividend float64) domain.PortfolioEntry {
	return domain.PortfolioEntry{
		StockRecord: domain.StockRecord{
			Ticker:         ticker,
			Name:           ticker + " Inc",
			Sector:         sector,
			DividendYield:  yield,
			AnnualDividend: dividend,
			PayoutRatio:    60,
			GrowthRate:     4.5,
			SafetyScore:    80,
			Category:       cat,
		},
		AddedAt: time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC),
	}
}

func TestRenderPortfolioCSV(t *testing.T) {
	ko := entry("KO", "Consumer Defensive", domain.CategoryImmediate, 3.1, 1.84)
	ko.Name = `Coca-Cola "Classic"`

	out := RenderPortfolioCSV([]domain.PortfolioEntry{ko}, time.UTC)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)

	assert.Equal(t,
		`"Ticker","Name","Sector","Dividend Yield (%)","Annual Dividend","Payout Ratio (%)","Growth Rate (%)","Safety Score","Category","Added Date"`,
		lines[0])
	assert.Equal(t,
		`"KO","Coca-Cola ""Classic""","Consumer Defensive","3.1","1.84","60","4.5","80","immediate","3/7/2024"`,
		lines[1])
}

func TestRenderPortfolioCSV_HeaderOnly(t *testing.T) {
	out := RenderPortfolioCSV(nil, time.UTC)
	assert.NotContains(t, out, "\n")
	assert.True(t, strings.HasPrefix(out, `"Ticker"`))
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, 12, 1, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "dividend-portfolio-2024-12-01.csv", ExportFilename(now))
}

func TestNewReport_Breakdowns(t *testing.T) {
	entries := []domain.PortfolioEntry{
		entry("KO", "Consumer Defensive", domain.CategoryImmediate, 3.1, 1.84),
		entry("PEP", "Consumer Defensive", domain.CategoryBalanced, 2.9, 5.06),
		entry("O", "Real Estate", domain.CategoryImmediate, 5.5, 3.08),
		entry("X", "", "", 1.0, 0.5),
	}

	r := NewReport(entries, domain.PortfolioStats{Count: 4}, time.Unix(0, 0), "")
	assert.Equal(t, DefaultCurrency, r.Currency)

	require.Len(t, r.Sectors, 3)
	assert.Equal(t, "Consumer Defensive", r.Sectors[0].Name)
	assert.Equal(t, 2, r.Sectors[0].Count)
	assert.Equal(t, 3.0, r.Sectors[0].AvgYield)
	assert.Equal(t, 6.9, r.Sectors[0].AnnualDividend)
	assert.Equal(t, "Real Estate", r.Sectors[1].Name)
	assert.Equal(t, "Unknown", r.Sectors[2].Name)

	require.Len(t, r.Categories, 3)
	assert.Equal(t, "immediate", r.Categories[0].Name)
	assert.Equal(t, 4.3, r.Categories[0].AvgYield)
}

func TestRenderMarkdown(t *testing.T) {
	entries := []domain.PortfolioEntry{
		entry("KO", "Consumer Defensive", domain.CategoryImmediate, 3.1, 1.84),
	}
	stats := domain.PortfolioStats{Count: 1, AvgYield: 3.1, TotalAnnualDividend: 1.84}

	md := RenderMarkdown(NewReport(entries, stats, time.Unix(0, 0).UTC(), "USD"))

	assert.Contains(t, md, "# Dividend Portfolio")
	assert.Contains(t, md, "| Stocks | 1 |")
	assert.Contains(t, md, "| Average Yield | 3.10% |")
	assert.Contains(t, md, "$1.84")
	assert.Contains(t, md, "| KO | KO Inc | Consumer Defensive | 3.10% |")
	assert.Contains(t, md, "## By Sector")
}

func TestRenderMarkdown_Empty(t *testing.T) {
	md := RenderMarkdown(NewReport(nil, domain.PortfolioStats{}, time.Unix(0, 0).UTC(), "USD"))
	assert.Contains(t, md, "Portfolio is empty")
	assert.NotContains(t, md, "## Holdings")
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$1,234.57", FormatMoney(1234.567, "USD"))
	assert.Equal(t, "0.50", FormatMoney(0.5, "???"))
}
