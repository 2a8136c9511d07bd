package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"dividend-hunter/internal/store"
)

// Health checks the API health endpoint with a single attempt.
// Any answer other than status "ok" is an error.
func (c *Client) Health(ctx context.Context) error {
	var raw json.RawMessage
	if err := c.attempt(ctx, c.rootURL+"/health", &raw); err != nil {
		return fmt.Errorf("GET health: %w: %w", ErrNetworkFailure, err)
	}

	if status := gjson.GetBytes(raw, "status").String(); status != "ok" {
		return fmt.Errorf("%w: health status %q", ErrNetworkFailure, status)
	}
	return nil
}

// ShouldRefresh reports whether the last successful fetch is missing or older than RefreshInterval.
func (c *Client) ShouldRefresh(ctx context.Context) (bool, error) {
	if c.store == nil {
		return true, nil
	}

	last, ok, err := c.store.GetSettingTime(ctx, store.SettingLastFetchAt)
	if err != nil {
		return true, err
	}
	if !ok {
		return true, nil
	}
	return c.now().Sub(last) > RefreshInterval, nil
}
