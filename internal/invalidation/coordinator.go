// Package invalidation evicts every cached metric a transaction write could
// have made stale. The sweep is conservative: it covers the user's whole key
// space rather than working out which metrics actually changed.
package invalidation

import (
	"context"
	"sort"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/period"
)

// Sweep summarises one invalidation run for logging.
type Sweep struct {
	Keys   int
	Failed int
}

type Coordinator struct {
	cache     *cache.Cache
	footprint core.FootprintReader
	limits    core.ListingLimits
	now       func() time.Time
	logger    *log.Logger
}

func NewCoordinator(c *cache.Cache, footprint core.FootprintReader, limits core.ListingLimits, now func() time.Time, logger *log.Logger) *Coordinator {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Coordinator{
		cache:     c,
		footprint: footprint,
		limits:    limits,
		now:       now,
		logger:    logger.WithComponent(log.ComponentInvalidation),
	}
}

// OnTransactionMutated evicts the user's cached metrics. It runs after the
// write has been committed and before the write is acknowledged. touchedYears
// are the transaction years the write affected (old and new on update);
// they are added to the years derived from the store so a sweep after a
// delete or a date change still reaches keys built before it.
//
// Failures are logged and counted, never returned: a missed eviction only
// delays freshness until the TTL runs out.
func (c *Coordinator) OnTransactionMutated(ctx context.Context, userID int64, touchedYears ...int) Sweep {
	keys := c.Keys(ctx, userID, touchedYears...)
	sweep := Sweep{Keys: len(keys)}

	if err := c.cache.ForgetAll(ctx, keys); err != nil {
		sweep.Failed = countJoined(err)
		c.logger.WarnContext(ctx, "Cache invalidation incomplete",
			log.FieldUserID, userID,
			log.FieldEvicted, sweep.Keys-sweep.Failed,
			log.FieldFailed, sweep.Failed,
			log.FieldError, err)
		return sweep
	}

	c.logger.DebugContext(ctx, "Cache invalidated",
		log.FieldUserID, userID,
		log.FieldEvicted, sweep.Keys)
	return sweep
}

// Keys lists every key the read side may have produced for userID today.
func (c *Coordinator) Keys(ctx context.Context, userID int64, touchedYears ...int) []cache.Key {
	now := c.now()
	stamp := core.DateStamp(now)

	var keys []cache.Key
	for _, p := range period.DashboardPeriods {
		for _, m := range []cache.Metric{
			cache.MetricDashboard,
			cache.MetricExpense,
			cache.MetricExpenseChange,
			cache.MetricSavingsChange,
			cache.MetricTransactionChange,
			cache.MetricMonthTransactions,
		} {
			keys = append(keys, cache.PeriodKey(m, userID, p.String(), stamp))
		}
	}

	keys = append(keys,
		cache.TotalSavingsKey(userID),
		cache.SummaryKey(userID, stamp),
		cache.ReportAllKey(userID, c.limits.ReportRecent),
	)
	for _, n := range c.limits.RecentSizes() {
		keys = append(keys, cache.RecentKey(userID, n))
	}

	for page := 1; page <= c.reportPages(ctx, userID); page++ {
		keys = append(keys, cache.ReportPageKey(userID, page, c.limits.ReportPerPage))
	}

	for _, y := range c.analyticsYears(ctx, userID, now.Year(), touchedYears) {
		for _, p := range period.AnalyticsPeriods {
			for _, m := range []cache.Metric{
				cache.MetricAnalytics,
				cache.MetricAverageExpense,
				cache.MetricAverageExpenseChange,
			} {
				keys = append(keys, cache.AnalyticsKey(m, userID, p.String(), y, stamp))
			}
		}
	}
	return keys
}

// reportPages counts soft-deleted rows too, so the page that held a deleted
// row is still evicted. On failure only page 1 is covered.
func (c *Coordinator) reportPages(ctx context.Context, userID int64) int {
	n, err := c.footprint.CountRows(ctx, userID, true)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to count transactions, evicting first report page only",
			log.FieldUserID, userID, log.FieldError, err)
		return 1
	}
	return metrics.LastPage(n, c.limits.ReportPerPage)
}

// analyticsYears returns the sorted, distinct years whose analytics keys may
// be stale: every year with data, the touched years and the current year,
// each widened by one year either side because weekly and monthly windows,
// and every previous window, can reach into the neighbouring year.
func (c *Coordinator) analyticsYears(ctx context.Context, userID int64, current int, touched []int) []int {
	years, err := c.footprint.TransactionYears(ctx, userID, true)
	if err != nil {
		c.logger.WarnContext(ctx, "Failed to list transaction years, evicting around the current year only",
			log.FieldUserID, userID, log.FieldError, err)
		years = nil
	}

	seen := map[int]struct{}{}
	for _, y := range append(append(years, touched...), current) {
		for _, v := range []int{y - 1, y, y + 1} {
			seen[v] = struct{}{}
		}
	}
	out := make([]int, 0, len(seen))
	for y := range seen {
		out = append(out, y)
	}
	sort.Ints(out)
	return out
}

func countJoined(err error) int {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}
