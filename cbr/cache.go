package cbr

import (
	"context"
	"cbr-rate-converter/domain"
	"fmt"
	"github.com/go-kit/log"
	"golang.org/x/sync/singleflight"
	"sync/atomic"
	"time"
)

// snapshot a fully built table and the time it was fetched
type snapshot struct {
	table     *domain.RateTable
	fetchedAt time.Time
}

// CachingService decorates a cbr.Service with a single cached rate table.
// Readers always see one complete table: a refresh publishes its result with
// a single atomic store and a failed refresh publishes nothing.
type CachingService struct {
	// next the service being decorated with a cache
	next Service

	// maxAge used by Rates
	maxAge time.Duration

	current atomic.Pointer[snapshot]

	// group collapses concurrent misses into one upstream fetch
	group singleflight.Group

	now    func() time.Time
	logger log.Logger
}

const refreshKey = "rates"

// NewCachingService returns a new caching Service
func NewCachingService(maxAge time.Duration, logger log.Logger, s Service) *CachingService {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &CachingService{
		next:   s,
		maxAge: maxAge,
		now:    time.Now,
		logger: logger,
	}
}

// Rates returns the cached table if it is younger than the configured max age.
func (s *CachingService) Rates(ctx context.Context) (*domain.RateTable, error) {
	return s.GetOrFetch(ctx, s.maxAge)
}

// GetOrFetch returns the cached table when it is younger than maxAge and
// fetches a new one otherwise. maxAge <= 0 always fetches.
func (s *CachingService) GetOrFetch(ctx context.Context, maxAge time.Duration) (*domain.RateTable, error) {
	snap, err := s.load(ctx, maxAge)
	if err != nil {
		return nil, err
	}
	return snap.table, nil
}

// RatesAt is Rates plus the time the returned table was fetched.
func (s *CachingService) RatesAt(ctx context.Context) (*domain.RateTable, time.Time, error) {
	snap, err := s.load(ctx, s.maxAge)
	if err != nil {
		return nil, time.Time{}, err
	}
	return snap.table, snap.fetchedAt, nil
}

func (s *CachingService) load(ctx context.Context, maxAge time.Duration) (*snapshot, error) {
	if snap := s.current.Load(); snap != nil && maxAge > 0 && s.now().Sub(snap.fetchedAt) < maxAge {
		return snap, nil
	}
	return s.refreshNow(ctx)
}

// Invalidate drops the cached table. The next read fetches a new one.
func (s *CachingService) Invalidate() {
	s.current.Store(nil)
	s.group.Forget(refreshKey)
}

// FetchedAt reports when the cached table was fetched.
func (s *CachingService) FetchedAt() (time.Time, bool) {
	snap := s.current.Load()
	if snap == nil {
		return time.Time{}, false
	}
	return snap.fetchedAt, true
}

// refreshNow fetches a table and publishes it unless the cache was
// invalidated or replaced while the fetch was in flight.
func (s *CachingService) refreshNow(ctx context.Context) (*snapshot, error) {
	v, err, _ := s.group.Do(refreshKey, func() (interface{}, error) {
		prev := s.current.Load()
		table, err := s.next.Rates(ctx)
		if err != nil {
			return nil, err
		}
		snap := &snapshot{table: table, fetchedAt: s.now()}
		s.current.CompareAndSwap(prev, snap)
		return snap, nil
	})
	if err != nil {
		return nil, fmt.Errorf("refreshing rate cache: %w", err)
	}
	return v.(*snapshot), nil
}

// RefreshPeriodically refreshes the cached table on a given schedule until ctx is done.
// This is expected to be called from a go-routine.
func (s *CachingService) RefreshPeriodically(ctx context.Context, every time.Duration) {
	for {
		select {
		case <-time.After(every):
			if _, err := s.refreshNow(ctx); err != nil {
				// Don't return, just log and hope this is a transient error
				s.logger.Log("msg", "periodic refresh failed", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
