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

// DashboardService assembles the dashboard. Each figure is cached under its
// own key and the assembled payload under the dashboard key, all stamped
// with the current date.
type DashboardService struct {
	engine *metrics.Engine
	cache  *cache.Cache
	now    Clock
}

func NewDashboardService(engine *metrics.Engine, c *cache.Cache, now Clock) *DashboardService {
	return &DashboardService{engine: engine, cache: c, now: now}
}

// Dashboard returns the dashboard for p. Total savings is all-time; every
// other figure uses p's current and previous windows.
func (s *DashboardService) Dashboard(ctx context.Context, userID int64, p period.Period) (Dashboard, error) {
	p = p.Canonical()
	now := s.now()
	w, err := period.Resolve(p, 0, now)
	if err != nil {
		return Dashboard{}, err
	}
	stamp := core.DateStamp(now)
	key := cache.PeriodKey(cache.MetricDashboard, userID, p.String(), stamp)

	return cache.GetOrCompute(ctx, s.cache, key, func(ctx context.Context) (Dashboard, error) {
		return s.build(ctx, userID, p, w, stamp)
	})
}

func (s *DashboardService) build(ctx context.Context, userID int64, p period.Period, w period.Window, stamp string) (Dashboard, error) {
	pk := func(m cache.Metric) cache.Key { return cache.PeriodKey(m, userID, p.String(), stamp) }

	totalSavings, err := cache.GetOrCompute(ctx, s.cache, cache.TotalSavingsKey(userID), func(ctx context.Context) (decimal.Decimal, error) {
		return s.engine.NetSavings(ctx, userID, core.AllTime)
	})
	if err != nil {
		return Dashboard{}, fmt.Errorf("total savings: %w", err)
	}

	savingsChange, err := cache.GetOrCompute(ctx, s.cache, pk(cache.MetricSavingsChange), func(ctx context.Context) (decimal.Decimal, error) {
		cur, err := s.engine.NetSavings(ctx, userID, w.Current)
		if err != nil {
			return decimal.Zero, err
		}
		prev, err := s.engine.NetSavings(ctx, userID, w.Previous)
		if err != nil {
			return decimal.Zero, err
		}
		return metrics.SavingsChange(cur, prev), nil
	})
	if err != nil {
		return Dashboard{}, fmt.Errorf("savings change: %w", err)
	}

	expense, err := cache.GetOrCompute(ctx, s.cache, pk(cache.MetricExpense), func(ctx context.Context) (decimal.Decimal, error) {
		return s.engine.SumByType(ctx, userID, core.Expense, w.Current)
	})
	if err != nil {
		return Dashboard{}, fmt.Errorf("expense: %w", err)
	}

	expenseChange, err := cache.GetOrCompute(ctx, s.cache, pk(cache.MetricExpenseChange), func(ctx context.Context) (decimal.Decimal, error) {
		prev, err := s.engine.SumByType(ctx, userID, core.Expense, w.Previous)
		if err != nil {
			return decimal.Zero, err
		}
		return metrics.PercentageChange(expense, prev), nil
	})
	if err != nil {
		return Dashboard{}, fmt.Errorf("expense change: %w", err)
	}

	count, err := cache.GetOrCompute(ctx, s.cache, pk(cache.MetricMonthTransactions), func(ctx context.Context) (int64, error) {
		return s.engine.CountAll(ctx, userID, w.Current)
	})
	if err != nil {
		return Dashboard{}, fmt.Errorf("transaction count: %w", err)
	}

	countChange, err := cache.GetOrCompute(ctx, s.cache, pk(cache.MetricTransactionChange), func(ctx context.Context) (decimal.Decimal, error) {
		prev, err := s.engine.CountAll(ctx, userID, w.Previous)
		if err != nil {
			return decimal.Zero, err
		}
		return metrics.CountChange(count, prev), nil
	})
	if err != nil {
		return Dashboard{}, fmt.Errorf("transaction change: %w", err)
	}

	limit := s.engine.Limits().DashboardRecent
	recent, err := cache.GetOrCompute(ctx, s.cache, cache.RecentKey(userID, limit), func(ctx context.Context) ([]core.Transaction, error) {
		return s.engine.RecentTransactions(ctx, userID, limit)
	})
	if err != nil {
		return Dashboard{}, fmt.Errorf("recent transactions: %w", err)
	}

	return Dashboard{
		Period:             p.String(),
		TotalSavings:       AmountChange{Amount: totalSavings, PercentageChange: savingsChange},
		TotalExpense:       AmountChange{Amount: expense, PercentageChange: expenseChange},
		TotalTransactions:  CountChange{Count: count, PercentageChange: countChange},
		RecentTransactions: recent,
	}, nil
}
