package main

import (
	"fmt"
	"strings"
	"time"

	"dividend-hunter/internal/domain"
	"dividend-hunter/internal/remote"
	"dividend-hunter/internal/reporting"
)

// stocksMarkdown renders a stock list as a Markdown table.
func stocksMarkdown(title string, res *remote.StocksResult, currency string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	if res.FromCache {
		sb.WriteString("_Offline: showing cached data._\n\n")
	}
	if len(res.Stocks) == 0 {
		sb.WriteString("No stocks match the filters.\n")
		return sb.String()
	}

	sb.WriteString("| Ticker | Name | Sector | Price | Yield | Annual Dividend | Safety | Category |\n")
	sb.WriteString("|--------|------|--------|-------|-------|-----------------|--------|----------|\n")
	for _, s := range res.Stocks {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.2f%% | %s | %d | %s |\n",
			s.Ticker,
			cell(s.Name),
			cell(s.Sector),
			reporting.FormatMoney(s.Price, currency),
			s.DividendYield,
			reporting.FormatMoney(s.AnnualDividend, currency),
			s.SafetyScore,
			s.Category,
		))
	}
	sb.WriteString(fmt.Sprintf("\n%d of %d stocks\n", len(res.Stocks), res.Total))
	return sb.String()
}

// historyMarkdown renders swipe records, newest first.
func historyMarkdown(records []domain.SwipeRecord) string {
	var sb strings.Builder

	sb.WriteString("# Swipe History\n\n")
	if len(records) == 0 {
		sb.WriteString("No swipes yet.\n")
		return sb.String()
	}

	sb.WriteString("| Ticker | Action | When |\n")
	sb.WriteString("|--------|--------|------|\n")
	for _, r := range records {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", r.Ticker, r.Action, r.Timestamp.Format(time.RFC3339)))
	}
	return sb.String()
}

// trendsMarkdown renders the trend history of one ticker.
func trendsMarkdown(res *remote.TrendsResult, currency string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s Trends\n\n", res.Ticker))
	if res.FromCache {
		sb.WriteString("_Offline: showing locally recorded snapshots._\n\n")
	}
	if len(res.Trends) == 0 {
		sb.WriteString("No trend data.\n")
		return sb.String()
	}

	sb.WriteString("| Date | Yield | Price | Growth | Safety |\n")
	sb.WriteString("|------|-------|-------|--------|--------|\n")
	for _, p := range res.Trends {
		sb.WriteString(fmt.Sprintf("| %s | %.2f%% | %s | %.2f%% | %d |\n",
			p.Date, p.Yield, reporting.FormatMoney(p.Price, currency), p.GrowthRate, p.SafetyScore))
	}
	return sb.String()
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
