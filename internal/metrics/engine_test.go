package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/period"
	"fintrack/internal/storage/memory"
	"fintrack/internal/storage/storetest"
)

var now = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

func newEngine(t *testing.T, txs ...core.Transaction) (*Engine, *memory.Store) {
	t.Helper()
	store := memory.NewWithClock(func() time.Time { return now })
	for _, tx := range txs {
		_, err := store.Create(context.Background(), tx)
		require.NoError(t, err)
	}
	return NewEngine(store, core.DefaultListingLimits()), store
}

func monthWindow(t *testing.T) period.Window {
	t.Helper()
	w, err := period.Resolve(period.Month, 0, now)
	require.NoError(t, err)
	return w
}

func TestSumCountAndAverage(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t,
		storetest.Tx(1, core.Expense, "Food", "10.00", "2025-03-01"),
		storetest.Tx(1, core.Expense, "Food", "10.00", "2025-03-02"),
		storetest.Tx(1, core.Expense, "Rent", "10.01", "2025-03-03"),
		storetest.Tx(1, core.Income, "Salary", "100", "2025-03-03"),
		storetest.Tx(1, core.Expense, "Old", "999", "2025-02-03"),
	)
	march := monthWindow(t).Current

	sum, err := e.SumByType(ctx, 1, core.Expense, march)
	require.NoError(t, err)
	assert.Equal(t, "30.01", sum.StringFixed(2))

	n, err := e.CountAll(ctx, 1, march)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	avg, err := e.AverageByType(ctx, 1, core.Expense, march)
	require.NoError(t, err)
	assert.Equal(t, "10.00", avg.StringFixed(2), "30.01 / 3 rounds to 10.00")
	assert.True(t, avg.Equal(sum.Div(d("3")).Round(2)))

	empty, err := e.AverageByType(ctx, 2, core.Expense, march)
	require.NoError(t, err)
	assert.True(t, empty.IsZero())

	net, err := e.NetSavings(ctx, 1, core.AllTime)
	require.NoError(t, err)
	assert.Equal(t, "-929.01", net.StringFixed(2))
}

func TestMonthOverMonthExpenseChange(t *testing.T) {
	ctx := context.Background()
	w := monthWindow(t)

	e, _ := newEngine(t,
		storetest.Tx(1, core.Expense, "Rent", "600000", "2025-03-01"),
		storetest.Tx(1, core.Expense, "Car", "400000", "2025-03-14"),
		storetest.Tx(1, core.Expense, "Rent", "800000", "2025-02-10"),
	)
	cur, err := e.SumByType(ctx, 1, core.Expense, w.Current)
	require.NoError(t, err)
	prev, err := e.SumByType(ctx, 1, core.Expense, w.Previous)
	require.NoError(t, err)
	assert.Equal(t, "25", PercentageChange(cur, prev).String())

	e, _ = newEngine(t, storetest.Tx(1, core.Expense, "Rent", "1000000", "2025-03-01"))
	cur, err = e.SumByType(ctx, 1, core.Expense, w.Current)
	require.NoError(t, err)
	prev, err = e.SumByType(ctx, 1, core.Expense, w.Previous)
	require.NoError(t, err)
	assert.Equal(t, "100", PercentageChange(cur, prev).String())
}

func TestAverageChange(t *testing.T) {
	ctx := context.Background()
	w := monthWindow(t)

	e, _ := newEngine(t,
		storetest.Tx(1, core.Expense, "A", "30", "2025-03-01"),
		storetest.Tx(1, core.Expense, "A", "10", "2025-02-01"),
		storetest.Tx(1, core.Expense, "A", "30", "2025-02-02"),
	)
	got, err := e.AverageChange(ctx, 1, w)
	require.NoError(t, err)
	assert.Equal(t, "50", got.String(), "30 against an average of 20")

	e, _ = newEngine(t, storetest.Tx(1, core.Expense, "A", "30", "2025-03-01"))
	got, err = e.AverageChange(ctx, 1, w)
	require.NoError(t, err)
	assert.True(t, got.IsZero(), "no previous expenses means no change")

	e, _ = newEngine(t, storetest.Tx(1, core.Expense, "A", "0", "2025-02-01"),
		storetest.Tx(1, core.Expense, "A", "5", "2025-03-01"))
	got, err = e.AverageChange(ctx, 1, w)
	require.NoError(t, err)
	assert.Equal(t, "100", got.String())

	e, _ = newEngine(t, storetest.Tx(1, core.Expense, "A", "40", "2025-02-01"))
	got, err = e.AverageChange(ctx, 1, w)
	require.NoError(t, err)
	assert.Equal(t, "-100", got.String(), "empty current window averages 0")
}

func TestRecentTransactionsOrdering(t *testing.T) {
	ctx := context.Background()
	first := storetest.Tx(1, core.Expense, "first", "1", "2025-03-10")
	first.CreatedAt = now.Add(-2 * time.Hour)
	second := storetest.Tx(1, core.Expense, "second", "1", "2025-03-10")
	second.CreatedAt = now.Add(-time.Hour)
	older := storetest.Tx(1, core.Expense, "older", "1", "2025-03-09")
	older.CreatedAt = now

	e, _ := newEngine(t, first, second, older)

	got, err := e.RecentTransactions(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "second", got[0].Category, "later createdAt wins on equal dates")
	assert.Equal(t, "first", got[1].Category)
	assert.Equal(t, "older", got[2].Category)

	got, err = e.RecentTransactions(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRecentTransactionsDefaultLimit(t *testing.T) {
	var txs []core.Transaction
	for i := 1; i <= 8; i++ {
		txs = append(txs, storetest.Tx(1, core.Income, "c", "1", fmt.Sprintf("2025-03-%02d", i)))
	}
	e, _ := newEngine(t, txs...)
	got, err := e.RecentTransactions(context.Background(), 1, -1)
	require.NoError(t, err)
	assert.Len(t, got, 5)
	assert.Equal(t, "2025-03-08", got[0].TransactionDate.String())
}

func TestPaginatedTransactions(t *testing.T) {
	ctx := context.Background()
	var txs []core.Transaction
	for i := 0; i < 35; i++ {
		tx := storetest.Tx(1, core.Expense, fmt.Sprintf("c%02d", i), "1", "2025-03-01")
		tx.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		txs = append(txs, tx)
	}
	txs = append(txs, storetest.Tx(2, core.Expense, "other user", "1", "2025-03-01"))
	e, _ := newEngine(t, txs...)

	sizes := map[int]int{1: 17, 2: 17, 3: 1, 4: 0}
	for page, size := range sizes {
		p, err := e.PaginatedTransactions(ctx, 1, page, 17)
		require.NoError(t, err)
		assert.Len(t, p.Data, size, "page %d", page)
		assert.Equal(t, 3, p.LastPage)
		assert.Equal(t, int64(35), p.Total)
		assert.Equal(t, 17, p.PerPage)
		assert.Equal(t, page, p.CurrentPage)
	}

	p, err := e.PaginatedTransactions(ctx, 1, 1, 17)
	require.NoError(t, err)
	assert.Equal(t, "c34", p.Data[0].Category)
	p3, err := e.PaginatedTransactions(ctx, 1, 3, 17)
	require.NoError(t, err)
	assert.Equal(t, "c00", p3.Data[0].Category)

	clamped, err := e.PaginatedTransactions(ctx, 1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, clamped.CurrentPage)
	assert.Equal(t, 17, clamped.PerPage)

	none, err := e.PaginatedTransactions(ctx, 3, 1, 17)
	require.NoError(t, err)
	assert.Equal(t, 1, none.LastPage)
	assert.Empty(t, none.Data)
}

func TestRangeSummary(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t,
		storetest.Tx(1, core.Income, "Salary", "2500", "2025-03-01"),
		storetest.Tx(1, core.Expense, "Rent", "900", "2025-03-02"),
		storetest.Tx(1, core.Expense, "Food", "40.50", "2025-03-03"),
		storetest.Tx(1, core.Expense, "Food", "20", "2025-03-04"),
		storetest.Tx(1, core.Expense, "Food", "99", "2025-04-04"),
	)
	s, err := e.RangeSummary(ctx, 1, period.MonthToDate(now))
	require.NoError(t, err)
	assert.Equal(t, "2500.00", s.TotalIncome.StringFixed(2))
	assert.Equal(t, "960.50", s.TotalExpense.StringFixed(2))
	assert.Equal(t, "1539.50", s.Balance.StringFixed(2))
	require.Len(t, s.ExpensesByCategory, 2)
	assert.Equal(t, "Rent", s.ExpensesByCategory[0].Category)
	assert.Equal(t, "30.25", s.ExpensesByCategory[1].Average.StringFixed(2))

	empty, err := e.CategoryBreakdown(ctx, 9, core.Expense, core.AllTime)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

type brokenSource struct {
	Source
}

var errStoreDown = errors.New("store down")

func (brokenSource) Aggregate(context.Context, core.AggregateQuery) (core.Aggregate, error) {
	return core.Aggregate{}, errStoreDown
}

func (brokenSource) CountRows(context.Context, int64, bool) (int64, error) {
	return 0, errStoreDown
}

func (brokenSource) ListOrdered(context.Context, int64, int, int) ([]core.Transaction, error) {
	return nil, errStoreDown
}

func (brokenSource) ListFiltered(context.Context, int64, core.TransactionFilter, int, int) ([]core.Transaction, int64, error) {
	return nil, 0, errStoreDown
}

func TestFilteredTransactions(t *testing.T) {
	ctx := context.Background()
	var txs []core.Transaction
	for i := 0; i < 20; i++ {
		txs = append(txs, storetest.Tx(1, core.Expense, "Food", "1", fmt.Sprintf("2025-02-%02d", i+1)))
	}
	txs = append(txs, storetest.Tx(1, core.Expense, "Rent", "900", "2025-02-01"))
	e, _ := newEngine(t, txs...)

	p, err := e.FilteredTransactions(ctx, 1, core.TransactionFilter{Category: "Food"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentPage)
	assert.Equal(t, DefaultFilterPerPage, p.PerPage)
	assert.Equal(t, int64(20), p.Total)
	assert.Equal(t, 2, p.LastPage)
	require.Len(t, p.Data, 15)
	assert.Equal(t, "2025-02-20", p.Data[0].TransactionDate.String())

	p, err = e.FilteredTransactions(ctx, 1, core.TransactionFilter{Category: "Food", Sort: core.SortAsc}, 2, 15)
	require.NoError(t, err)
	require.Len(t, p.Data, 5)
	assert.Equal(t, "2025-02-16", p.Data[0].TransactionDate.String())
}

func TestStoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(brokenSource{}, core.ListingLimits{})
	w := monthWindow(t)

	_, err := e.SumByType(ctx, 1, core.Expense, w.Current)
	assert.ErrorIs(t, err, errStoreDown)
	_, err = e.CountAll(ctx, 1, w.Current)
	assert.ErrorIs(t, err, errStoreDown)
	_, err = e.AverageChange(ctx, 1, w)
	assert.ErrorIs(t, err, errStoreDown)
	_, err = e.NetSavings(ctx, 1, core.AllTime)
	assert.ErrorIs(t, err, errStoreDown)
	_, err = e.RecentTransactions(ctx, 1, 5)
	assert.ErrorIs(t, err, errStoreDown)
	_, err = e.PaginatedTransactions(ctx, 1, 1, 17)
	assert.ErrorIs(t, err, errStoreDown)
	_, err = e.FilteredTransactions(ctx, 1, core.TransactionFilter{}, 1, 0)
	assert.ErrorIs(t, err, errStoreDown)
}
