// Package store implements the local store: portfolio, swipe history, stock cache,
// trend snapshots and settings on top of a storage.Backend.
//
// Store is an explicit instance; every operation surfaces backend errors.
package store

import (
	"context"
	"io"
	"log"
	"time"

	"dividend-hunter/internal/storage"
)

const (
	// MaxHistory bounds the swipe history. Oldest entries are removed first.
	MaxHistory = 2000

	// CacheTTL is how long cached stocks are fresh, measured from the oldest record.
	CacheTTL = time.Hour

	// TrendRetentionDays bounds trend snapshots by calendar date.
	TrendRetentionDays = 90
)

// Store is the local store.
type Store struct {
	backend    storage.Backend
	persistent bool
	now        func() time.Time
	loc        *time.Location
	logger     *log.Logger
}

// Options for creating Store.
type Options struct {
	Backend storage.Backend // required

	// Persistent reports whether Backend survives restarts.
	Persistent bool

	Clock    func() time.Time // default time.Now
	Location *time.Location   // calendar days; default time.Local
	Logger   *log.Logger      // nil discards
}

// New creates a new Store.
func New(opts Options) *Store {
	s := &Store{
		backend:    opts.Backend,
		persistent: opts.Persistent,
		now:        opts.Clock,
		loc:        opts.Location,
		logger:     opts.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	return s
}

// Persistent reports whether data survives a restart.
func (s *Store) Persistent() bool {
	return s.persistent
}

// SchemaVersion returns the backend schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	return s.backend.SchemaVersion(ctx)
}

// Now returns the store clock.
func (s *Store) Now() time.Time {
	return s.now()
}

// today returns the current calendar day in the store location.
func (s *Store) today() time.Time {
	t := s.now().In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}
