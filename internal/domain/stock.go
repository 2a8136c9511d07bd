package domain

import (
	"strings"
	"time"
)

// DividendPayment is a single historical dividend payout.
type DividendPayment struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// StockRecord is an immutable snapshot of a dividend stock as served by the remote API.
// Records are replaced wholesale on refresh, never patched field by field.
type StockRecord struct {
	Ticker           string            `json:"ticker"` // unique id
	Name             string            `json:"name"`
	Sector           string            `json:"sector"`
	Industry         string            `json:"industry,omitempty"`
	Price            float64           `json:"price"`
	DividendYield    float64           `json:"dividendYield"` // percent
	AnnualDividend   float64           `json:"annualDividend"`
	PayoutRatio      float64           `json:"payoutRatio"` // percent
	ExDividendDate   string            `json:"exDividendDate,omitempty"`
	PaymentFrequency string            `json:"paymentFrequency"`
	ConsecutiveYears int               `json:"consecutiveYears"`
	GrowthRate       float64           `json:"growthRate"` // percent
	SafetyScore      int               `json:"safetyScore"` // 0-100
	RankScore        float64           `json:"rankScore"`
	Category         Category          `json:"category"`
	FiftyTwoWeekHigh float64           `json:"fiftyTwoWeekHigh,omitempty"`
	FiftyTwoWeekLow  float64           `json:"fiftyTwoWeekLow,omitempty"`
	MarketCap        float64           `json:"marketCap,omitempty"`
	PERatio          float64           `json:"peRatio,omitempty"`
	DividendHistory  []DividendPayment `json:"dividendHistory,omitempty"`
	FetchedAt        string            `json:"fetchedAt,omitempty"`
}

// StockDetail is a stock record enriched with its trend history.
type StockDetail struct {
	StockRecord
	HistoricalTrend []TrendPoint `json:"historicalTrend"`
	FromCache       bool         `json:"fromCache,omitempty"`
}

// CachedStock is a stock record stored in the local offline cache.
type CachedStock struct {
	StockRecord
	CachedAt time.Time `json:"cachedAt"`
}

// StockFilter selects stock records. Nil fields do not filter.
type StockFilter struct {
	Category  *Category
	MinYield  *float64
	MinSafety *int
	Sector    *string
}

// Match reports whether the record passes every set criterion.
// Category is an exact match, sector is case-insensitive.
func (f StockFilter) Match(s StockRecord) bool {
	if f.Category != nil && *f.Category != "" && s.Category != *f.Category {
		return false
	}
	if f.MinYield != nil && s.DividendYield < *f.MinYield {
		return false
	}
	if f.MinSafety != nil && s.SafetyScore < *f.MinSafety {
		return false
	}
	if f.Sector != nil && *f.Sector != "" && !strings.EqualFold(s.Sector, *f.Sector) {
		return false
	}
	return true
}
