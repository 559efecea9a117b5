package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// failingBackend fails every operation.
type failingBackend struct {
	deletes int
}

var errBackendDown = errors.New("backend down")

func (b *failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errBackendDown
}

func (b *failingBackend) Set(context.Context, string, []byte, time.Duration) error {
	return errBackendDown
}

func (b *failingBackend) Delete(context.Context, string) error {
	b.deletes++
	return errBackendDown
}

func (b *failingBackend) CleanExpired(context.Context) (int, error) {
	return 0, errBackendDown
}

func counter[T any](calls *int, v T) func(context.Context) (T, error) {
	return func(context.Context) (T, error) {
		*calls++
		return v, nil
	}
}

func TestKeyStringIsDeterministicAndDistinct(t *testing.T) {
	base := Key{UserID: 1, Metric: MetricExpense, Period: "month", DateStamp: "2025-03-10"}
	assert.Equal(t, base.String(), base.String())
	assert.Equal(t, "expense|u=1|p=month|y=0|pg=0|n=0|d=2025-03-10", base.String())

	variants := []Key{
		{UserID: 2, Metric: MetricExpense, Period: "month", DateStamp: "2025-03-10"},
		{UserID: 1, Metric: MetricExpenseChange, Period: "month", DateStamp: "2025-03-10"},
		{UserID: 1, Metric: MetricExpense, Period: "monthly", DateStamp: "2025-03-10"},
		{UserID: 1, Metric: MetricExpense, Period: "month", Year: 2025, DateStamp: "2025-03-10"},
		{UserID: 1, Metric: MetricExpense, Period: "month", Page: 1, DateStamp: "2025-03-10"},
		{UserID: 1, Metric: MetricExpense, Period: "month", Limit: 5, DateStamp: "2025-03-10"},
		{UserID: 1, Metric: MetricExpense, Period: "month", DateStamp: "2025-03-11"},
	}
	seen := map[string]bool{base.String(): true}
	for _, k := range variants {
		s := k.String()
		assert.False(t, seen[s], "collision on %s", s)
		seen[s] = true
	}

	// Adjacent numeric fields cannot run together.
	assert.NotEqual(t,
		Key{UserID: 1, Metric: MetricReportPage, Page: 11, Limit: 7}.String(),
		Key{UserID: 11, Metric: MetricReportPage, Page: 1, Limit: 7}.String())
}

func TestGetOrComputeReadThrough(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := New(NewMemoryBackendWithClock(clock.Now), 300*time.Second, nil)
	key := PeriodKey(MetricExpense, 1, "month", "2025-03-10")

	calls := 0
	compute := counter(&calls, decimal.RequireFromString("1000000.00"))

	cold, err := GetOrCompute(ctx, c, key, compute)
	require.NoError(t, err)
	warm, err := GetOrCompute(ctx, c, key, compute)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.True(t, cold.Equal(warm))
	assert.Equal(t, "1000000.00", warm.StringFixed(2))

	clock.Advance(299 * time.Second)
	_, err = GetOrCompute(ctx, c, key, compute)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "served from cache inside the TTL")

	clock.Advance(time.Second)
	_, err = GetOrCompute(ctx, c, key, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "recomputed once the TTL elapsed")
}

func TestGetOrComputeDoesNotStoreErrors(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryBackend(), time.Minute, nil)
	key := PeriodKey(MetricMonthTransactions, 1, "month", "2025-03-10")
	storeDown := errors.New("store unavailable")

	calls := 0
	_, err := GetOrCompute(ctx, c, key, func(context.Context) (int64, error) {
		calls++
		return 0, storeDown
	})
	assert.ErrorIs(t, err, storeDown)

	n, err := GetOrCompute(ctx, c, key, counter(&calls, int64(7)))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, 2, calls)
}

func TestGetOrComputeWhenSkipsRejectedValues(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryBackend(), time.Minute, nil)
	key := ReportPageKey(1, 9, 17)
	keep := func(p core.Page) bool { return p.CurrentPage <= p.LastPage }

	calls := 0
	compute := counter(&calls, core.Page{CurrentPage: 9, LastPage: 3, PerPage: 17})
	for i := 0; i < 2; i++ {
		_, err := GetOrComputeWhen(ctx, c, key, compute, keep)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

func TestUserIsolation(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryBackend(), time.Minute, nil)

	calls := 0
	a, err := GetOrCompute(ctx, c, TotalSavingsKey(1), counter(&calls, "user-1"))
	require.NoError(t, err)
	b, err := GetOrCompute(ctx, c, TotalSavingsKey(2), counter(&calls, "user-2"))
	require.NoError(t, err)
	assert.Equal(t, "user-1", a)
	assert.Equal(t, "user-2", b)
	assert.Equal(t, 2, calls)

	require.NoError(t, c.Forget(ctx, TotalSavingsKey(1)))

	b, err = GetOrCompute(ctx, c, TotalSavingsKey(2), counter(&calls, "recomputed"))
	require.NoError(t, err)
	assert.Equal(t, "user-2", b)
	assert.Equal(t, 2, calls)
}

func TestFailingBackendFallsBackToCompute(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{}
	c := New(backend, time.Minute, nil)
	key := RecentKey(1, 5)

	calls := 0
	for i := 0; i < 3; i++ {
		v, err := GetOrCompute(ctx, c, key, counter(&calls, 42))
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 3, calls)

	err := c.ForgetAll(ctx, []Key{RecentKey(1, 5), RecentKey(1, 17), TotalSavingsKey(1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, errBackendDown)
	assert.Equal(t, 3, backend.deletes, "every key is attempted")
}

func TestForgetAbsentKeyIsNoop(t *testing.T) {
	c := New(NewMemoryBackend(), time.Minute, nil)
	assert.NoError(t, c.Forget(context.Background(), TotalSavingsKey(1)))
	assert.NoError(t, c.ForgetAll(context.Background(), nil))
}

func TestNilCacheComputesDirectly(t *testing.T) {
	var c *Cache
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := GetOrCompute(context.Background(), c, TotalSavingsKey(1), counter(&calls, 1))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}

type pagePayload struct {
	Page   core.Page
	Totals []core.CategoryAmount
	Window core.DateRange
}

func TestValuesSurviveEncoding(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryBackend(), time.Minute, nil)
	key := ReportPageKey(1, 1, 17)

	created := time.Date(2025, 3, 9, 8, 30, 0, 0, time.UTC)
	want := pagePayload{
		Page: core.Page{
			Data: []core.Transaction{{
				ID: 3, UserID: 1, Type: core.Expense, Category: "Food",
				Amount:          decimal.RequireFromString("12.30"),
				Description:     "lunch",
				TransactionDate: core.NewDate(2025, 3, 9),
				CreatedAt:       created,
				UpdatedAt:       created,
			}},
			CurrentPage: 1, LastPage: 1, PerPage: 17, Total: 1,
		},
		Totals: []core.CategoryAmount{core.NewCategoryAmount("Food", decimal.RequireFromString("12.30"), 1)},
		Window: core.NewDateRange(core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 31)),
	}

	calls := 0
	_, err := GetOrCompute(ctx, c, key, counter(&calls, want))
	require.NoError(t, err)
	got, err := GetOrCompute(ctx, c, key, counter(&calls, pagePayload{}))
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	require.Len(t, got.Page.Data, 1)
	tx := got.Page.Data[0]
	assert.Equal(t, "12.30", tx.Amount.StringFixed(2))
	assert.Equal(t, "2025-03-09", tx.TransactionDate.String())
	assert.True(t, tx.CreatedAt.Equal(created))
	assert.Nil(t, tx.DeletedAt)
	assert.Equal(t, 1, got.Page.LastPage)
	assert.Equal(t, "12.30", got.Totals[0].Average.StringFixed(2))
	assert.Equal(t, "2025-03-01..2025-03-31", got.Window.String())
}
