package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *PortfolioReport) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Dividend Portfolio\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	if len(r.Entries) == 0 {
		sb.WriteString("Portfolio is empty. Swipe right on a stock to save it.\n")
		return sb.String()
	}

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Stocks | %d |\n", r.Stats.Count))
	sb.WriteString(fmt.Sprintf("| Average Yield | %.2f%% |\n", r.Stats.AvgYield))
	sb.WriteString(fmt.Sprintf("| Annual Dividend (per share sum) | %s |\n", FormatMoney(r.Stats.TotalAnnualDividend, r.Currency)))
	sb.WriteString("\n")

	// Holdings
	sb.WriteString("## Holdings\n\n")
	sb.WriteString("| Ticker | Name | Sector | Yield | Annual Dividend | Safety | Category | Added |\n")
	sb.WriteString("|--------|------|--------|-------|-----------------|--------|----------|-------|\n")
	for _, e := range r.Entries {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.2f%% | %s | %d | %s | %s |\n",
			e.Ticker,
			escapeCell(e.Name),
			escapeCell(e.Sector),
			e.DividendYield,
			FormatMoney(e.AnnualDividend, r.Currency),
			e.SafetyScore,
			e.Category,
			e.AddedAt.Format(LocaleDateLayout),
		))
	}
	sb.WriteString("\n")

	writeBreakdown(&sb, "By Sector", r.Sectors, r.Currency)
	writeBreakdown(&sb, "By Category", r.Categories, r.Currency)

	return sb.String()
}

func writeBreakdown(sb *strings.Builder, title string, rows []BreakdownRow, currency string) {
	if len(rows) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	sb.WriteString("| Name | Count | Avg Yield | Annual Dividend |\n")
	sb.WriteString("|------|-------|-----------|-----------------|\n")
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("| %s | %d | %.2f%% | %s |\n",
			escapeCell(row.Name), row.Count, row.AvgYield, FormatMoney(row.AnnualDividend, currency)))
	}
	sb.WriteString("\n")
}

// FormatMoney renders amount in currency, e.g. "$1.84".
// Unknown currencies fall back to a plain two-decimal number.
func FormatMoney(amount float64, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return decimal.NewFromFloat(amount).StringFixed(2)
	}

	factor := decimal.New(1, int32(cur.Fraction))
	minor := decimal.NewFromFloat(amount).Mul(factor).Round(0)
	return money.New(minor.IntPart(), currency).Display()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
