package storage

import (
	"errors"

	"dividend-hunter/internal/domain"
)

// WithTrends returns a backend that serves trend snapshots from trends
// and every other collection from base. Closing it closes both.
func WithTrends(base Backend, trends Collection[domain.TrendSnapshot], closer func() error) Backend {
	return &trendOverride{Backend: base, trends: trends, closer: closer}
}

type trendOverride struct {
	Backend
	trends Collection[domain.TrendSnapshot]
	closer func() error
}

func (b *trendOverride) Trends() Collection[domain.TrendSnapshot] {
	return b.trends
}

func (b *trendOverride) Close() error {
	var errs []error
	if b.closer != nil {
		errs = append(errs, b.closer())
	}
	errs = append(errs, b.Backend.Close())
	return errors.Join(errs...)
}
