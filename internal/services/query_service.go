package services

import (
	"context"
	"slices"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
	"fintrack/internal/period"
)

// QueryService serves the lightweight transaction reads: the recent list and
// the range summary.
type QueryService struct {
	engine *metrics.Engine
	cache  *cache.Cache
	now    Clock
}

func NewQueryService(engine *metrics.Engine, c *cache.Cache, now Clock) *QueryService {
	return &QueryService{engine: engine, cache: c, now: now}
}

// Recent returns the newest limit transactions. Only the configured list
// sizes are cached; any other limit reads the store directly.
func (s *QueryService) Recent(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	limits := s.engine.Limits()
	if limit <= 0 {
		limit = limits.RecentDefault
	}
	if !slices.Contains(limits.RecentSizes(), limit) {
		return s.engine.RecentTransactions(ctx, userID, limit)
	}
	return cache.GetOrCompute(ctx, s.cache, cache.RecentKey(userID, limit), func(ctx context.Context) ([]core.Transaction, error) {
		return s.engine.RecentTransactions(ctx, userID, limit)
	})
}

// List pages through the user's transactions matching f. Filter
// combinations are open ended, so listings are never cached.
func (s *QueryService) List(ctx context.Context, userID int64, f core.TransactionFilter, page, perPage int) (core.Page, error) {
	return s.engine.FilteredTransactions(ctx, userID, f, page, perPage)
}

// Summary reports income, expense and expenses by category over r. A missing
// start defaults to the first of the month and a missing end to today. Only
// the default month-to-date range is cached.
func (s *QueryService) Summary(ctx context.Context, userID int64, r core.DateRange) (core.RangeSummary, error) {
	now := s.now()
	mtd := period.MonthToDate(now)
	if r.Start.IsZero() {
		r.Start = mtd.Start
	}
	if r.End.IsZero() {
		r.End = mtd.End
	}
	if !r.Start.Equal(mtd.Start.Time) || !r.End.Equal(mtd.End.Time) {
		return s.engine.RangeSummary(ctx, userID, r)
	}
	return cache.GetOrCompute(ctx, s.cache, cache.SummaryKey(userID, core.DateStamp(now)), func(ctx context.Context) (core.RangeSummary, error) {
		return s.engine.RangeSummary(ctx, userID, r)
	})
}
