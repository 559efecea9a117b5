package cache

import (
	"strconv"
	"strings"
)

// Metric names one cached computation.
type Metric string

const (
	MetricDashboard            Metric = "dashboard"
	MetricExpense              Metric = "expense"
	MetricExpenseChange        Metric = "expense_change"
	MetricSavingsChange        Metric = "savings_change"
	MetricTransactionChange    Metric = "transaction_change"
	MetricMonthTransactions    Metric = "month_transactions"
	MetricTotalSavings         Metric = "total_savings"
	MetricRecent               Metric = "recent"
	MetricReportPage           Metric = "report_page"
	MetricReportAll            Metric = "report_all"
	MetricAnalytics            Metric = "analytics"
	MetricAverageExpense       Metric = "average_expense"
	MetricAverageExpenseChange Metric = "average_expense_change"
	MetricSummary              Metric = "summary"
)

// Key identifies a cached value. Fields a metric does not use stay zero;
// String always renders every field so two distinct keys never collide.
type Key struct {
	UserID    int64
	Metric    Metric
	Period    string
	Year      int
	Page      int
	Limit     int
	DateStamp string
}

func (k Key) String() string {
	var b strings.Builder
	b.Grow(64)
	b.WriteString(string(k.Metric))
	b.WriteString("|u=")
	b.WriteString(strconv.FormatInt(k.UserID, 10))
	b.WriteString("|p=")
	b.WriteString(k.Period)
	b.WriteString("|y=")
	b.WriteString(strconv.Itoa(k.Year))
	b.WriteString("|pg=")
	b.WriteString(strconv.Itoa(k.Page))
	b.WriteString("|n=")
	b.WriteString(strconv.Itoa(k.Limit))
	b.WriteString("|d=")
	b.WriteString(k.DateStamp)
	return b.String()
}

// PeriodKey is used by the per-period dashboard metrics.
func PeriodKey(m Metric, userID int64, period, stamp string) Key {
	return Key{UserID: userID, Metric: m, Period: period, DateStamp: stamp}
}

// AnalyticsKey is used by the analytics metrics, which also vary by year.
func AnalyticsKey(m Metric, userID int64, period string, year int, stamp string) Key {
	return Key{UserID: userID, Metric: m, Period: period, Year: year, DateStamp: stamp}
}

func TotalSavingsKey(userID int64) Key {
	return Key{UserID: userID, Metric: MetricTotalSavings}
}

func RecentKey(userID int64, limit int) Key {
	return Key{UserID: userID, Metric: MetricRecent, Limit: limit}
}

func ReportPageKey(userID int64, page, perPage int) Key {
	return Key{UserID: userID, Metric: MetricReportPage, Page: page, Limit: perPage}
}

func ReportAllKey(userID int64, limit int) Key {
	return Key{UserID: userID, Metric: MetricReportAll, Limit: limit}
}

// SummaryKey covers the range summary of the month to date ending at stamp.
func SummaryKey(userID int64, stamp string) Key {
	return Key{UserID: userID, Metric: MetricSummary, DateStamp: stamp}
}
