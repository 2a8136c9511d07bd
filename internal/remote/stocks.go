package remote

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"dividend-hunter/internal/domain"
	"dividend-hunter/internal/observability"
	"dividend-hunter/internal/store"
)

// StocksQuery filters a stock list request. Nil fields are not sent.
type StocksQuery struct {
	Category     *domain.Category
	MinYield     *float64
	MinSafety    *int
	Sector       *string
	ForceRefresh bool
	Limit        *int
}

// StocksResult is a stock list, from the API or from the local store.
type StocksResult struct {
	Stocks    []domain.StockRecord `json:"stocks"`
	Total     int                  `json:"total"`
	FetchedAt string               `json:"fetchedAt,omitempty"`
	FromCache bool                 `json:"fromCache"`
}

// StatusNeedsInitialization is reported by the API before its first data load.
const StatusNeedsInitialization = "needs_initialization"

type stocksResponse struct {
	Stocks    []domain.StockRecord `json:"stocks"`
	Total     int                  `json:"total"`
	FetchedAt *string              `json:"fetchedAt"`
	Status    string               `json:"status,omitempty"`
}

func (q StocksQuery) values() map[string][]string {
	params := make(map[string][]string)
	if q.Limit != nil {
		params["limit"] = []string{strconv.Itoa(*q.Limit)}
	}
	if q.Category != nil {
		params["category"] = []string{q.Category.String()}
	}
	if q.MinYield != nil {
		params["min_yield"] = []string{strconv.FormatFloat(*q.MinYield, 'f', -1, 64)}
	}
	if q.MinSafety != nil {
		params["min_safety"] = []string{strconv.Itoa(*q.MinSafety)}
	}
	if q.Sector != nil {
		params["sector"] = []string{*q.Sector}
	}
	if q.ForceRefresh {
		params["force_refresh"] = []string{"true"}
	}
	return params
}

// GetStocks fetches the ranked stock list. On success the records are cached and
// snapshotted; on failure cached records are served regardless of age.
// Returns ErrNoDataAvailable when both fail.
func (c *Client) GetStocks(ctx context.Context, q StocksQuery) (*StocksResult, error) {
	var resp stocksResponse
	err := c.get(ctx, "stocks", "/stocks", q.values(), &resp)
	if err == nil {
		c.syncStore(ctx, &resp)

		result := &StocksResult{
			Stocks:    resp.Stocks,
			Total:     resp.Total,
			FromCache: false,
		}
		if result.Stocks == nil {
			result.Stocks = []domain.StockRecord{}
		}
		if resp.FetchedAt != nil {
			result.FetchedAt = *resp.FetchedAt
		}
		return result, nil
	}

	if ctx.Err() != nil {
		return nil, err
	}

	c.logger.Printf("stocks fetch failed, serving cache: %v", err)
	return c.cachedStocks(ctx, q, err)
}

// syncStore writes fetched records to the cache and today's trend snapshots.
// Failures are logged; the fetched data is still returned to the caller.
// An empty or uninitialised answer is not recorded as a fetch, so ShouldRefresh
// keeps asking for a forced refresh.
func (c *Client) syncStore(ctx context.Context, resp *stocksResponse) {
	if c.store == nil || len(resp.Stocks) == 0 || resp.Status == StatusNeedsInitialization {
		return
	}
	stocks := resp.Stocks

	if err := c.store.CacheStocks(ctx, stocks); err != nil {
		observability.RecordStoreError("cache_stocks")
		c.logger.Printf("cache stocks: %v", err)
	}
	if err := c.store.SaveTrendSnapshots(ctx, stocks); err != nil {
		observability.RecordStoreError("save_trends")
		c.logger.Printf("save trend snapshots: %v", err)
	}

	now := c.now()
	if err := c.store.SetSetting(ctx, store.SettingLastFetchAt, now); err != nil {
		observability.RecordStoreError("set_setting")
		c.logger.Printf("record last fetch: %v", err)
	}
	observability.RecordSuccessfulFetch(float64(now.Unix()))
}

func (c *Client) cachedStocks(ctx context.Context, q StocksQuery, netErr error) (*StocksResult, error) {
	if c.store == nil {
		observability.RecordCacheFallback("stocks", false)
		return nil, fmt.Errorf("%w: %w", ErrNoDataAvailable, netErr)
	}

	cached, err := c.store.GetCachedStocks(ctx, store.CacheQuery{
		StockFilter: domain.StockFilter{
			Category:  q.Category,
			MinYield:  q.MinYield,
			MinSafety: q.MinSafety,
		},
		CheckFreshness: false,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w (cache: %w)", ErrNoDataAvailable, netErr, err)
	}
	if len(cached) == 0 {
		observability.RecordCacheFallback("stocks", false)
		return nil, fmt.Errorf("%w: %w", ErrNoDataAvailable, netErr)
	}
	observability.RecordCacheFallback("stocks", true)

	total := len(cached)
	if q.Limit != nil && *q.Limit > 0 && len(cached) > *q.Limit {
		cached = cached[:*q.Limit]
	}

	return &StocksResult{
		Stocks:    records(cached),
		Total:     total,
		FetchedAt: oldestCachedAt(cached).Format(time.RFC3339),
		FromCache: true,
	}, nil
}

// GetTopStocks fetches the count best-ranked stocks, optionally of one category.
// Falls back to cached records of any age.
func (c *Client) GetTopStocks(ctx context.Context, count int, category *domain.Category) (*StocksResult, error) {
	params := map[string][]string{"count": {strconv.Itoa(count)}}
	if category != nil {
		params["category"] = []string{category.String()}
	}

	var resp stocksResponse
	err := c.get(ctx, "top", "/top", params, &resp)
	if err == nil {
		result := &StocksResult{Stocks: resp.Stocks, Total: len(resp.Stocks)}
		if result.Stocks == nil {
			result.Stocks = []domain.StockRecord{}
		}
		if resp.FetchedAt != nil {
			result.FetchedAt = *resp.FetchedAt
		}
		return result, nil
	}

	if ctx.Err() != nil || c.store == nil {
		return nil, err
	}

	cached, cacheErr := c.store.GetCachedStocks(ctx, store.CacheQuery{
		StockFilter: domain.StockFilter{Category: category},
	})
	if cacheErr != nil || len(cached) == 0 {
		observability.RecordCacheFallback("top", false)
		return nil, fmt.Errorf("%w: %w", ErrNoDataAvailable, err)
	}
	observability.RecordCacheFallback("top", true)

	// Cached stocks are already ranked.
	if count >= 0 && len(cached) > count {
		cached = cached[:count]
	}
	return &StocksResult{
		Stocks:    records(cached),
		Total:     len(cached),
		FetchedAt: oldestCachedAt(cached).Format(time.RFC3339),
		FromCache: true,
	}, nil
}

// SectorsResult is the list of sectors available for filtering.
type SectorsResult struct {
	Sectors   []string `json:"sectors"`
	FromCache bool     `json:"fromCache"`
}

// GetSectors fetches the sector list. Falls back to the sectors of cached records.
func (c *Client) GetSectors(ctx context.Context) (*SectorsResult, error) {
	var resp struct {
		Sectors []string `json:"sectors"`
	}
	err := c.get(ctx, "sectors", "/sectors", nil, &resp)
	if err == nil {
		if resp.Sectors == nil {
			resp.Sectors = []string{}
		}
		return &SectorsResult{Sectors: resp.Sectors}, nil
	}

	if ctx.Err() != nil || c.store == nil {
		return nil, err
	}

	cached, cacheErr := c.store.GetCachedStocks(ctx, store.CacheQuery{})
	if cacheErr != nil {
		return nil, errors.Join(err, cacheErr)
	}
	observability.RecordCacheFallback("sectors", len(cached) > 0)

	seen := make(map[string]struct{})
	sectors := []string{}
	for _, s := range cached {
		if s.Sector == "" {
			continue
		}
		if _, ok := seen[s.Sector]; ok {
			continue
		}
		seen[s.Sector] = struct{}{}
		sectors = append(sectors, s.Sector)
	}
	sort.Strings(sectors)

	return &SectorsResult{Sectors: sectors, FromCache: true}, nil
}

func records(cached []domain.CachedStock) []domain.StockRecord {
	out := make([]domain.StockRecord, len(cached))
	for i, c := range cached {
		out[i] = c.StockRecord
	}
	return out
}

func oldestCachedAt(cached []domain.CachedStock) time.Time {
	var t time.Time
	for i, c := range cached {
		if i == 0 || c.CachedAt.Before(t) {
			t = c.CachedAt
		}
	}
	return t
}
