// Package metrics computes the user-scoped aggregates behind the dashboard,
// analytics and report views. Every function reads through a Source and
// returns store errors wrapped, never a zero standing in for a failure.
package metrics

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/period"
)

// Source is the part of the transaction store the engine reads.
type Source interface {
	core.AggregateReader
	core.TransactionLister
	core.FootprintReader
}

type Engine struct {
	src    Source
	limits core.ListingLimits
}

func NewEngine(src Source, limits core.ListingLimits) *Engine {
	defaults := core.DefaultListingLimits()
	if limits.RecentDefault <= 0 {
		limits.RecentDefault = defaults.RecentDefault
	}
	if limits.ReportPerPage <= 0 {
		limits.ReportPerPage = defaults.ReportPerPage
	}
	return &Engine{src: src, limits: limits}
}

// Limits returns the listing sizes the engine was configured with.
func (e *Engine) Limits() core.ListingLimits {
	return e.limits
}

// SumByType totals the amounts of one type inside r. Empty sets sum to 0.
func (e *Engine) SumByType(ctx context.Context, userID int64, typ core.TransactionType, r core.DateRange) (decimal.Decimal, error) {
	agg, err := e.aggregate(ctx, userID, typ, r)
	if err != nil {
		return decimal.Zero, err
	}
	return agg.Total, nil
}

// CountAll counts transactions of either type inside r.
func (e *Engine) CountAll(ctx context.Context, userID int64, r core.DateRange) (int64, error) {
	agg, err := e.aggregate(ctx, userID, "", r)
	if err != nil {
		return 0, err
	}
	return agg.Count, nil
}

// AverageByType is sum/count rounded to two places, or 0 for an empty set.
func (e *Engine) AverageByType(ctx context.Context, userID int64, typ core.TransactionType, r core.DateRange) (decimal.Decimal, error) {
	agg, err := e.aggregate(ctx, userID, typ, r)
	if err != nil {
		return decimal.Zero, err
	}
	return average(agg).Round(2), nil
}

// NetSavings is income minus expense inside r. Pass core.AllTime for the
// all-time balance.
func (e *Engine) NetSavings(ctx context.Context, userID int64, r core.DateRange) (decimal.Decimal, error) {
	income, err := e.SumByType(ctx, userID, core.Income, r)
	if err != nil {
		return decimal.Zero, err
	}
	expense, err := e.SumByType(ctx, userID, core.Expense, r)
	if err != nil {
		return decimal.Zero, err
	}
	return income.Sub(expense), nil
}

// AverageChange compares the average expense of the current window with the
// previous one. Without previous expenses there is nothing to compare and the
// change is 0. Averages are compared unrounded.
func (e *Engine) AverageChange(ctx context.Context, userID int64, w period.Window) (decimal.Decimal, error) {
	cur, err := e.aggregate(ctx, userID, core.Expense, w.Current)
	if err != nil {
		return decimal.Zero, err
	}
	prev, err := e.aggregate(ctx, userID, core.Expense, w.Previous)
	if err != nil {
		return decimal.Zero, err
	}
	if prev.Count == 0 {
		return decimal.Zero, nil
	}
	prevAvg := average(prev)
	curAvg := average(cur)
	if !prevAvg.IsPositive() {
		return growthFromZero(curAvg), nil
	}
	return PercentageChange(curAvg, prevAvg), nil
}

// RecentTransactions returns the newest limit transactions by transaction
// date, then creation time. A non-positive limit uses the configured default.
func (e *Engine) RecentTransactions(ctx context.Context, userID int64, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = e.limits.RecentDefault
	}
	txs, err := e.src.ListOrdered(ctx, userID, limit, 0)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	return txs, nil
}

// PaginatedTransactions returns one offset page in the same order as
// RecentTransactions. LastPage is at least 1 and pages below 1 clamp to 1.
// A page past the end has no data but still reports the real LastPage.
func (e *Engine) PaginatedTransactions(ctx context.Context, userID int64, page, perPage int) (core.Page, error) {
	if perPage <= 0 {
		perPage = e.limits.ReportPerPage
	}
	if page < 1 {
		page = 1
	}
	total, err := e.src.CountRows(ctx, userID, false)
	if err != nil {
		return core.Page{}, fmt.Errorf("count transactions: %w", err)
	}
	data, err := e.src.ListOrdered(ctx, userID, perPage, (page-1)*perPage)
	if err != nil {
		return core.Page{}, fmt.Errorf("page %d of transactions: %w", page, err)
	}
	return core.Page{
		Data:        data,
		CurrentPage: page,
		LastPage:    LastPage(total, perPage),
		PerPage:     perPage,
		Total:       total,
	}, nil
}

// DefaultFilterPerPage is the page size of filtered listings when none is given.
const DefaultFilterPerPage = 15

// FilteredTransactions returns one page of the user's live transactions
// matching f. Paging follows PaginatedTransactions.
func (e *Engine) FilteredTransactions(ctx context.Context, userID int64, f core.TransactionFilter, page, perPage int) (core.Page, error) {
	if perPage <= 0 {
		perPage = DefaultFilterPerPage
	}
	if page < 1 {
		page = 1
	}
	data, total, err := e.src.ListFiltered(ctx, userID, f, perPage, (page-1)*perPage)
	if err != nil {
		return core.Page{}, fmt.Errorf("filtered page %d of transactions: %w", page, err)
	}
	return core.Page{
		Data:        data,
		CurrentPage: page,
		LastPage:    LastPage(total, perPage),
		PerPage:     perPage,
		Total:       total,
	}, nil
}

// LastPage is ceil(total/perPage), never below 1.
func LastPage(total int64, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}

// CategoryBreakdown groups one type inside r by category, largest first.
func (e *Engine) CategoryBreakdown(ctx context.Context, userID int64, typ core.TransactionType, r core.DateRange) ([]core.CategoryAmount, error) {
	out, err := e.src.CategoryTotals(ctx, core.AggregateQuery{UserID: userID, Type: typ, Range: r})
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	if out == nil {
		out = []core.CategoryAmount{}
	}
	return out, nil
}

// RangeSummary reports income, expense, balance and expenses per category
// inside r.
func (e *Engine) RangeSummary(ctx context.Context, userID int64, r core.DateRange) (core.RangeSummary, error) {
	income, err := e.SumByType(ctx, userID, core.Income, r)
	if err != nil {
		return core.RangeSummary{}, err
	}
	expense, err := e.SumByType(ctx, userID, core.Expense, r)
	if err != nil {
		return core.RangeSummary{}, err
	}
	byCategory, err := e.CategoryBreakdown(ctx, userID, core.Expense, r)
	if err != nil {
		return core.RangeSummary{}, err
	}
	return core.RangeSummary{
		Range:              r,
		TotalIncome:        income,
		TotalExpense:       expense,
		Balance:            income.Sub(expense),
		ExpensesByCategory: byCategory,
	}, nil
}

func (e *Engine) aggregate(ctx context.Context, userID int64, typ core.TransactionType, r core.DateRange) (core.Aggregate, error) {
	agg, err := e.src.Aggregate(ctx, core.AggregateQuery{UserID: userID, Type: typ, Range: r})
	if err != nil {
		return core.Aggregate{}, fmt.Errorf("aggregate %s for user %d over %s: %w", typeLabel(typ), userID, r, err)
	}
	return agg, nil
}

func average(agg core.Aggregate) decimal.Decimal {
	if agg.Count == 0 {
		return decimal.Zero
	}
	return agg.Total.Div(decimal.NewFromInt(agg.Count))
}

func typeLabel(typ core.TransactionType) string {
	if typ == "" {
		return "all"
	}
	return string(typ)
}
