package domain

import "time"

// PortfolioEntry is a liked stock saved by the user. At most one entry per ticker.
type PortfolioEntry struct {
	StockRecord
	AddedAt time.Time `json:"addedAt"`
}

// PortfolioStats summarises the portfolio.
type PortfolioStats struct {
	Count               int     `json:"count"`
	AvgYield            float64 `json:"avgYield"`
	TotalAnnualDividend float64 `json:"totalAnnualDividend"`
}
