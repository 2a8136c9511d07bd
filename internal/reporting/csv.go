package reporting

import (
	"strconv"
	"strings"
	"time"

	"dividend-hunter/internal/domain"
)

// PortfolioCSVHeader is the first row of a portfolio export.
var PortfolioCSVHeader = []string{
	"Ticker", "Name", "Sector", "Dividend Yield (%)", "Annual Dividend",
	"Payout Ratio (%)", "Growth Rate (%)", "Safety Score", "Category", "Added Date",
}

// LocaleDateLayout formats the added date column (M/D/YYYY).
const LocaleDateLayout = "1/2/2006"

// RenderPortfolioCSV renders portfolio entries as CSV string.
// Every field is double-quoted; rows are joined by '\n' without a trailing newline.
// Added dates are rendered in loc (time.Local when nil).
func RenderPortfolioCSV(entries []domain.PortfolioEntry, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}

	rows := make([]string, 0, len(entries)+1)
	rows = append(rows, quoteRow(PortfolioCSVHeader))

	for _, e := range entries {
		rows = append(rows, quoteRow([]string{
			e.Ticker,
			e.Name,
			e.Sector,
			formatNumber(e.DividendYield),
			formatNumber(e.AnnualDividend),
			formatNumber(e.PayoutRatio),
			formatNumber(e.GrowthRate),
			strconv.Itoa(e.SafetyScore),
			e.Category.String(),
			e.AddedAt.In(loc).Format(LocaleDateLayout),
		}))
	}

	return strings.Join(rows, "\n")
}

// ExportFilename returns the download name of a portfolio export made at now.
func ExportFilename(now time.Time) string {
	return "dividend-portfolio-" + now.Format(domain.DateFormat) + ".csv"
}

func quoteRow(fields []string) string {
	var sb strings.Builder
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(f, `"`, `""`))
		sb.WriteByte('"')
	}
	return sb.String()
}

// formatNumber renders the shortest representation that round-trips.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
