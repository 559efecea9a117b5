package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/metrics"
	"fintrack/internal/period"
)

type AnalyticsService struct {
	engine *metrics.Engine
	cache  *cache.Cache
	now    Clock
}

func NewAnalyticsService(engine *metrics.Engine, c *cache.Cache, now Clock) *AnalyticsService {
	return &AnalyticsService{engine: engine, cache: c, now: now}
}

// Analytics returns the average expense of p in year and its change against
// the previous window. A zero year means the current year.
func (s *AnalyticsService) Analytics(ctx context.Context, userID int64, p period.Period, year int) (Analytics, error) {
	p = p.Analytic()
	now := s.now()
	if year == 0 {
		year = now.Year()
	}
	w, err := period.Resolve(p, year, now)
	if err != nil {
		return Analytics{}, err
	}
	stamp := core.DateStamp(now)
	key := func(m cache.Metric) cache.Key { return cache.AnalyticsKey(m, userID, p.String(), year, stamp) }

	return cache.GetOrCompute(ctx, s.cache, key(cache.MetricAnalytics), func(ctx context.Context) (Analytics, error) {
		avg, err := cache.GetOrCompute(ctx, s.cache, key(cache.MetricAverageExpense), func(ctx context.Context) (decimal.Decimal, error) {
			return s.engine.AverageByType(ctx, userID, core.Expense, averageWindow(p, w, year))
		})
		if err != nil {
			return Analytics{}, fmt.Errorf("average expense: %w", err)
		}
		change, err := cache.GetOrCompute(ctx, s.cache, key(cache.MetricAverageExpenseChange), func(ctx context.Context) (decimal.Decimal, error) {
			return s.engine.AverageChange(ctx, userID, w)
		})
		if err != nil {
			return Analytics{}, fmt.Errorf("average expense change: %w", err)
		}
		return Analytics{
			Period:         p.String(),
			Year:           year,
			AverageExpense: AmountChange{Amount: avg, PercentageChange: change},
		}, nil
	})
}

// averageWindow is the window the average expense is taken over: the current
// window restricted to the requested year. The change figure compares the
// unrestricted windows.
func averageWindow(p period.Period, w period.Window, year int) core.DateRange {
	if p.Canonical() == period.Today {
		return w.Current
	}
	return period.ClampToYear(w.Current, year)
}
