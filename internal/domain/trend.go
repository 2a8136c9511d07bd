package domain

import (
	"fmt"
	"time"
)

// DateFormat is the calendar-day layout used for trend snapshot dates.
const DateFormat = "2006-01-02"

// TrendSnapshot is a daily data point for a ticker. At most one per ticker per day.
type TrendSnapshot struct {
	ID          string    `json:"id"` // ticker-YYYY-MM-DD
	Ticker      string    `json:"ticker"`
	Date        string    `json:"date"` // YYYY-MM-DD
	Yield       float64   `json:"yield"`
	Price       float64   `json:"price"`
	GrowthRate  float64   `json:"growthRate"`
	SafetyScore int       `json:"safetyScore"`
	SavedAt     time.Time `json:"savedAt"`
}

// TrendPoint is a trend data point as served by the remote API.
type TrendPoint struct {
	Date        string  `json:"date"`
	Yield       float64 `json:"yield"`
	Price       float64 `json:"price"`
	GrowthRate  float64 `json:"growthRate"`
	SafetyScore int     `json:"safetyScore"`
}

// TrendData is the payload of a trend snapshot.
type TrendData struct {
	Yield       float64
	Price       float64
	GrowthRate  float64
	SafetyScore int
}

// TrendDataFromStock extracts the tracked metrics of a stock record.
func TrendDataFromStock(s StockRecord) TrendData {
	return TrendData{
		Yield:       s.DividendYield,
		Price:       s.Price,
		GrowthRate:  s.GrowthRate,
		SafetyScore: s.SafetyScore,
	}
}

// TrendSnapshotID returns the snapshot id for a ticker on a calendar day.
func TrendSnapshotID(ticker, date string) string {
	return fmt.Sprintf("%s-%s", ticker, date)
}

// Point converts the snapshot into its API representation.
func (t TrendSnapshot) Point() TrendPoint {
	return TrendPoint{
		Date:        t.Date,
		Yield:       t.Yield,
		Price:       t.Price,
		GrowthRate:  t.GrowthRate,
		SafetyScore: t.SafetyScore,
	}
}
