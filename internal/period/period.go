// Package period maps a period keyword and a reference instant to the
// current and comparison date windows used by every aggregation.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
)

// Period is a named time granularity. The analytics call sites use the
// -ly spellings; both spellings resolve to the same windows.
type Period string

const (
	Today   Period = "today"
	Week    Period = "week"
	Month   Period = "month"
	Year    Period = "year"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

var ErrUnknownPeriod = errors.New("unknown period")

// Window holds the current window and the window it is compared against.
type Window struct {
	Current  core.DateRange
	Previous core.DateRange
}

// DashboardPeriods and AnalyticsPeriods are the keywords each surface accepts.
var (
	DashboardPeriods = []Period{Today, Week, Month, Year}
	AnalyticsPeriods = []Period{Today, Weekly, Monthly, Yearly}
)

// Parse normalises case and whitespace and rejects unknown keywords.
func Parse(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case Today, Week, Month, Year, Weekly, Monthly, Yearly:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
	}
}

// Canonical maps the -ly aliases to today/week/month/year.
func (p Period) Canonical() Period {
	switch p {
	case Weekly:
		return Week
	case Monthly:
		return Month
	case Yearly:
		return Year
	default:
		return p
	}
}

// Analytic maps today/week/month/year to the spellings analytics uses.
func (p Period) Analytic() Period {
	switch p {
	case Week:
		return Weekly
	case Month:
		return Monthly
	case Year:
		return Yearly
	default:
		return p
	}
}

func (p Period) String() string { return string(p) }

// Resolve computes the windows for p relative to now. A non-zero year
// replaces the year field of now before the week, month and year windows are
// derived; it is ignored for today.
//
// Forcing the year keeps now's month and day, so Feb 29 forced into a common
// year normalises to Mar 1 and the week window follows from that date.
func Resolve(p Period, year int, now time.Time) (Window, error) {
	today := core.DateOf(now)
	ref := today
	if year != 0 {
		ref = core.NewDate(year, int(today.Month()), today.Day())
	}

	switch p.Canonical() {
	case Today:
		return Window{
			Current:  core.SingleDay(today),
			Previous: core.SingleDay(today.AddDays(-1)),
		}, nil
	case Week:
		start := startOfISOWeek(ref)
		return Window{
			Current:  core.NewDateRange(start, start.AddDays(6)),
			Previous: core.NewDateRange(start.AddDays(-7), start.AddDays(-1)),
		}, nil
	case Month:
		cur := monthRange(ref.Year(), ref.Month())
		prev := cur.Start.AddDays(-1)
		return Window{
			Current:  cur,
			Previous: monthRange(prev.Year(), prev.Month()),
		}, nil
	case Year:
		y := ref.Year()
		return Window{
			Current:  yearRange(y),
			Previous: yearRange(y - 1),
		}, nil
	default:
		return Window{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, string(p))
	}
}

// ClampToYear narrows r to the calendar year. Only week windows can cross a
// year boundary; other windows come back unchanged.
func ClampToYear(r core.DateRange, year int) core.DateRange {
	y := yearRange(year)
	if r.Start.Before(y.Start.Time) {
		r.Start = y.Start
	}
	if r.End.After(y.End.Time) {
		r.End = y.End
	}
	return r
}

// MonthToDate is the default range of the transaction summary.
func MonthToDate(now time.Time) core.DateRange {
	today := core.DateOf(now)
	return core.NewDateRange(core.NewDate(today.Year(), int(today.Month()), 1), today)
}

// startOfISOWeek returns the Monday of d's ISO week.
func startOfISOWeek(d core.Date) core.Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

func monthRange(year int, month time.Month) core.DateRange {
	start := core.NewDate(year, int(month), 1)
	end := core.NewDate(year, int(month)+1, 1).AddDays(-1)
	return core.NewDateRange(start, end)
}

func yearRange(year int) core.DateRange {
	return core.NewDateRange(core.NewDate(year, 1, 1), core.NewDate(year, 12, 31))
}
