package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateRange is an inclusive [Start, End] window. A zero Start or End leaves
// that side unbounded.
type DateRange struct {
	Start Date
	End   Date
}

// AllTime is the unbounded range.
var AllTime = DateRange{}

// NewDateRange returns the inclusive range between start and end.
func NewDateRange(start, end Date) DateRange {
	return DateRange{Start: start, End: end}
}

// SingleDay returns the range covering only d.
func SingleDay(d Date) DateRange {
	return DateRange{Start: d, End: d}
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	if !r.Start.IsZero() && d.Before(r.Start.Time) {
		return false
	}
	if !r.End.IsZero() && d.After(r.End.Time) {
		return false
	}
	return true
}

// IsUnbounded reports whether neither side of the range is set.
func (r DateRange) IsUnbounded() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

func (r DateRange) String() string {
	return r.Start.String() + ".." + r.End.String()
}

// Aggregate is the result of a sum+count query over one window.
type Aggregate struct {
	Total decimal.Decimal
	Count int64
}

// CategoryAmount represents amounts aggregated by category name.
type CategoryAmount struct {
	Category string
	Total    decimal.Decimal
	Count    int64
	Average  decimal.Decimal
}

// NewCategoryAmount derives the average from total and count. An empty
// category averages to zero.
func NewCategoryAmount(category string, total decimal.Decimal, count int64) CategoryAmount {
	avg := decimal.Zero
	if count > 0 {
		avg = total.Div(decimal.NewFromInt(count)).Round(2)
	}
	return CategoryAmount{Category: category, Total: total, Count: count, Average: avg}
}

// Page is one offset page of a user's transactions.
type Page struct {
	Data        []Transaction
	CurrentPage int
	LastPage    int
	PerPage     int
	Total       int64
}

// RangeSummary is the income/expense overview of a date range.
type RangeSummary struct {
	Range              DateRange
	TotalIncome        decimal.Decimal
	TotalExpense       decimal.Decimal
	Balance            decimal.Decimal
	ExpensesByCategory []CategoryAmount
}

// ListingLimits are the list sizes the read side serves from cache. The
// invalidation sweep enumerates its keys from the same values.
type ListingLimits struct {
	RecentDefault   int
	DashboardRecent int
	ReportRecent    int
	ReportPerPage   int
}

func DefaultListingLimits() ListingLimits {
	return ListingLimits{
		RecentDefault:   5,
		DashboardRecent: 5,
		ReportRecent:    17,
		ReportPerPage:   17,
	}
}

// RecentSizes returns the distinct recent-list sizes, in first-seen order.
func (l ListingLimits) RecentSizes() []int {
	seen := map[int]struct{}{}
	out := make([]int, 0, 3)
	for _, n := range []int{l.RecentDefault, l.DashboardRecent, l.ReportRecent} {
		if n <= 0 {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// DateStamp is the per-day component of cache keys.
func DateStamp(now time.Time) string {
	return now.Format(dateLayout)
}
