package storage

import "dividend-hunter/internal/domain"

// Primary keys of each collection.
func PortfolioKey(e domain.PortfolioEntry) string { return e.Ticker }
func HistoryKey(r domain.SwipeRecord) string      { return r.Ticker }
func StockKey(s domain.CachedStock) string        { return s.Ticker }
func TrendKey(t domain.TrendSnapshot) string      { return t.ID }
func SettingKey(s domain.Setting) string          { return s.Key }
