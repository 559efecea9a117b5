package services

import (
	"context"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
)

type ReportService struct {
	engine *metrics.Engine
	cache  *cache.Cache
}

func NewReportService(engine *metrics.Engine, c *cache.Cache) *ReportService {
	return &ReportService{engine: engine, cache: c}
}

// Page returns one page of the report. Pages past the last one are served
// but not cached, so the sweep only ever has to cover pages 1..LastPage.
func (s *ReportService) Page(ctx context.Context, userID int64, page int) (core.Page, error) {
	if page < 1 {
		page = 1
	}
	perPage := s.engine.Limits().ReportPerPage
	return cache.GetOrComputeWhen(ctx, s.cache, cache.ReportPageKey(userID, page, perPage),
		func(ctx context.Context) (core.Page, error) {
			return s.engine.PaginatedTransactions(ctx, userID, page, perPage)
		},
		func(p core.Page) bool { return p.CurrentPage <= p.LastPage },
	)
}

// Recent returns the bounded recent list shown by the report's recent mode.
func (s *ReportService) Recent(ctx context.Context, userID int64) ([]core.Transaction, error) {
	limit := s.engine.Limits().ReportRecent
	return cache.GetOrCompute(ctx, s.cache, cache.ReportAllKey(userID, limit), func(ctx context.Context) ([]core.Transaction, error) {
		return s.engine.RecentTransactions(ctx, userID, limit)
	})
}
