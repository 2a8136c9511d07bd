package remote

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"dividend-hunter/internal/domain"
	"dividend-hunter/internal/observability"
	"dividend-hunter/internal/storage"
)

// GetStockDetail fetches one stock with its trend history. On failure the cached
// record is served, enriched with locally stored snapshots.
func (c *Client) GetStockDetail(ctx context.Context, ticker string) (*domain.StockDetail, error) {
	var detail domain.StockDetail
	err := c.get(ctx, "stock", "/stock/"+url.PathEscape(ticker), nil, &detail)
	if err == nil {
		if detail.HistoricalTrend == nil {
			detail.HistoricalTrend = []domain.TrendPoint{}
		}
		return &detail, nil
	}

	if ctx.Err() != nil || c.store == nil {
		return nil, err
	}

	cached, cacheErr := c.store.GetCachedStock(ctx, ticker)
	if cacheErr != nil {
		observability.RecordCacheFallback("stock", false)
		if errors.Is(cacheErr, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s: %w", ErrNoDataAvailable, ticker, err)
		}
		return nil, errors.Join(err, cacheErr)
	}

	points, trendErr := c.localTrend(ctx, ticker)
	if trendErr != nil {
		c.logger.Printf("load local trend %s: %v", ticker, trendErr)
		points = []domain.TrendPoint{}
	}
	observability.RecordCacheFallback("stock", true)

	return &domain.StockDetail{
		StockRecord:     cached.StockRecord,
		HistoricalTrend: points,
		FromCache:       true,
	}, nil
}

// TrendsResult is the trend history of one ticker.
type TrendsResult struct {
	Ticker    string              `json:"ticker"`
	Trends    []domain.TrendPoint `json:"trends"`
	FromCache bool                `json:"fromCache"`
}

// GetTrends fetches the trend history of ticker. Falls back to local snapshots;
// returns ErrNoDataAvailable when there are none.
func (c *Client) GetTrends(ctx context.Context, ticker string) (*TrendsResult, error) {
	var resp TrendsResult
	err := c.get(ctx, "trends", "/trends/"+url.PathEscape(ticker), nil, &resp)
	if err == nil {
		if resp.Trends == nil {
			resp.Trends = []domain.TrendPoint{}
		}
		resp.FromCache = false
		return &resp, nil
	}

	if ctx.Err() != nil || c.store == nil {
		return nil, err
	}

	points, trendErr := c.localTrend(ctx, ticker)
	if trendErr != nil {
		return nil, errors.Join(err, trendErr)
	}
	if len(points) == 0 {
		observability.RecordCacheFallback("trends", false)
		return nil, fmt.Errorf("%w: %s: %w", ErrNoDataAvailable, ticker, err)
	}
	observability.RecordCacheFallback("trends", true)

	return &TrendsResult{Ticker: ticker, Trends: points, FromCache: true}, nil
}

func (c *Client) localTrend(ctx context.Context, ticker string) ([]domain.TrendPoint, error) {
	snaps, err := c.store.GetTrendData(ctx, ticker)
	if err != nil {
		return nil, err
	}
	points := make([]domain.TrendPoint, len(snaps))
	for i, s := range snaps {
		points[i] = s.Point()
	}
	return points, nil
}
