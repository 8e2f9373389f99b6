package service

import (
	"context"
	"fmt"
	"time"

	"github.com/pkordes/taxi-analytics/backend/internal/cache"
	"github.com/pkordes/taxi-analytics/backend/internal/domain"
	"github.com/pkordes/taxi-analytics/backend/internal/repo"
)

// SummaryService serves the daily rollup, optionally through a TTL cache.
//
// The cache is an optimisation only. Every trip write or delete calls
// Invalidate, and a result computed before an invalidation is never stored
// after it, so a cached read returns what a live read would have returned at
// some point no earlier than the last write. Writes made outside this
// process are not seen, so a positive ttl is only safe when this process is
// the sole writer. With ttl <= 0 caching is off and every read is live.
type SummaryService struct {
	repo    repo.SummaryRepo
	daily   *cache.Cache[[]domain.DailySummary]
	overall *cache.Cache[domain.OverallStats]
}

// NewSummaryService constructs a SummaryService.
func NewSummaryService(r repo.SummaryRepo, ttl time.Duration) *SummaryService {
	s := &SummaryService{repo: r}
	if ttl > 0 {
		s.daily = cache.New[[]domain.DailySummary](ttl)
		s.overall = cache.New[domain.OverallStats](ttl)
	}
	return s
}

// Daily returns the rollup rows for dr, newest date first.
func (s *SummaryService) Daily(ctx context.Context, dr domain.DateRange) ([]domain.DailySummary, error) {
	if s.daily == nil {
		return s.DailyLive(ctx, dr)
	}

	key := rangeKey(dr)
	if rows, ok := s.daily.Get(key); ok {
		return rows, nil
	}
	gen := s.daily.Generation()
	rows, err := s.DailyLive(ctx, dr)
	if err != nil {
		return nil, err
	}
	s.daily.SetIfCurrent(key, rows, gen)
	return rows, nil
}

// DailyLive always reads from the store, bypassing the cache.
func (s *SummaryService) DailyLive(ctx context.Context, dr domain.DateRange) ([]domain.DailySummary, error) {
	if dr.From != nil && dr.To != nil && dr.From.After(*dr.To) {
		return nil, fmt.Errorf("service.SummaryService.Daily: from %s is after to %s: %w",
			dr.From.Format(time.DateOnly), dr.To.Format(time.DateOnly), domain.ErrValidation)
	}
	rows, err := s.repo.Daily(ctx, dr)
	if err != nil {
		return nil, fmt.Errorf("service.SummaryService.Daily: %w", err)
	}
	return rows, nil
}

// Overall returns the whole-dataset headline.
func (s *SummaryService) Overall(ctx context.Context) (domain.OverallStats, error) {
	if s.overall != nil {
		if stats, ok := s.overall.Get("all"); ok {
			return stats, nil
		}
	}

	var gen uint64
	if s.overall != nil {
		gen = s.overall.Generation()
	}
	stats, err := s.repo.Overall(ctx)
	if err != nil {
		return domain.OverallStats{}, fmt.Errorf("service.SummaryService.Overall: %w", err)
	}
	if s.overall != nil {
		s.overall.SetIfCurrent("all", stats, gen)
	}
	return stats, nil
}

// Invalidate drops every cached result. It implements Invalidator.
func (s *SummaryService) Invalidate() {
	if s.daily != nil {
		s.daily.Invalidate()
		s.overall.Invalidate()
	}
}

func rangeKey(dr domain.DateRange) string {
	bound := func(t *time.Time) string {
		if t == nil {
			return "*"
		}
		return t.Format(time.DateOnly)
	}
	return bound(dr.From) + ".." + bound(dr.To)
}
