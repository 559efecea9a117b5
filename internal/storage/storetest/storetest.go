// Package storetest holds the behaviour every core.Store implementation must
// share. Each store package runs it against its own constructor.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

// Factory returns an empty store whose timestamps come from now.
type Factory func(t *testing.T, now func() time.Time) core.Store

// Tx builds a transaction for user on date with amount in decimal text.
func Tx(user int64, typ core.TransactionType, category, amount, date string) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		UserID:          user,
		Type:            typ,
		Category:        category,
		Amount:          decimal.RequireFromString(amount),
		Description:     category + " " + date,
		TransactionDate: d,
	}
}

func Run(t *testing.T, newStore Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore) })
	t.Run("Aggregate", func(t *testing.T) { testAggregate(t, newStore) })
	t.Run("CategoryTotals", func(t *testing.T) { testCategoryTotals(t, newStore) })
	t.Run("ListOrdered", func(t *testing.T) { testListOrdered(t, newStore) })
	t.Run("ListFiltered", func(t *testing.T) { testListFiltered(t, newStore) })
	t.Run("SoftDeleteRestore", func(t *testing.T) { testSoftDeleteRestore(t, newStore) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newStore) })
	t.Run("Footprint", func(t *testing.T) { testFootprint(t, newStore) })
}

func fixedClock() func() time.Time {
	ts := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func testCreateAndGet(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, fixedClock())

	created, err := s.Create(ctx, Tx(1, core.Expense, "Food", "12.34", "2025-03-09"))
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), created.CreatedAt)

	got, err := s.Get(ctx, created.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "12.34", got.Amount.StringFixed(2))
	assert.Equal(t, "2025-03-09", got.TransactionDate.String())
	assert.Equal(t, core.Expense, got.Type)
	assert.Equal(t, int64(1), got.UserID)
	assert.False(t, got.IsDeleted())

	_, err = s.Get(ctx, created.ID+100, false)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testAggregate(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, fixedClock())

	for _, tx := range []core.Transaction{
		Tx(1, core.Expense, "Food", "10.00", "2025-03-01"),
		Tx(1, core.Expense, "Rent", "500.50", "2025-03-31"),
		Tx(1, core.Expense, "Food", "7.25", "2025-02-28"),
		Tx(1, core.Income, "Salary", "2000", "2025-03-15"),
		Tx(2, core.Expense, "Food", "999", "2025-03-05"),
	} {
		_, err := s.Create(ctx, tx)
		require.NoError(t, err)
	}
	deleted, err := s.Create(ctx, Tx(1, core.Expense, "Food", "50", "2025-03-02"))
	require.NoError(t, err)
	require.NoError(t, s.SoftDelete(ctx, deleted.ID))

	march := core.NewDateRange(core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 31))

	agg, err := s.Aggregate(ctx, core.AggregateQuery{UserID: 1, Type: core.Expense, Range: march})
	require.NoError(t, err)
	assert.Equal(t, "510.50", agg.Total.StringFixed(2))
	assert.Equal(t, int64(2), agg.Count)

	agg, err = s.Aggregate(ctx, core.AggregateQuery{UserID: 1, Range: march})
	require.NoError(t, err)
	assert.Equal(t, int64(3), agg.Count)

	agg, err = s.Aggregate(ctx, core.AggregateQuery{UserID: 1, Type: core.Expense, Range: core.AllTime})
	require.NoError(t, err)
	assert.Equal(t, "517.75", agg.Total.StringFixed(2))

	agg, err = s.Aggregate(ctx, core.AggregateQuery{UserID: 3, Type: core.Expense, Range: march})
	require.NoError(t, err)
	assert.True(t, agg.Total.IsZero())
	assert.Zero(t, agg.Count)
}

func testCategoryTotals(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, fixedClock())

	for _, tx := range []core.Transaction{
		Tx(1, core.Expense, "Food", "10.00", "2025-03-01"),
		Tx(1, core.Expense, "Food", "5.01", "2025-03-02"),
		Tx(1, core.Expense, "Rent", "500", "2025-03-03"),
		Tx(1, core.Income, "Salary", "2000", "2025-03-03"),
	} {
		_, err := s.Create(ctx, tx)
		require.NoError(t, err)
	}

	got, err := s.CategoryTotals(ctx, core.AggregateQuery{UserID: 1, Type: core.Expense, Range: core.AllTime})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Rent", got[0].Category)
	assert.Equal(t, "Food", got[1].Category)
	assert.Equal(t, "15.01", got[1].Total.StringFixed(2))
	assert.Equal(t, int64(2), got[1].Count)
	assert.Equal(t, "7.51", got[1].Average.StringFixed(2))
}

func testListOrdered(t *testing.T, newStore Factory) {
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	s := newStore(t, fixedClock())

	early := Tx(1, core.Expense, "A", "1", "2025-03-05")
	early.CreatedAt = base
	late := Tx(1, core.Expense, "B", "1", "2025-03-05")
	late.CreatedAt = base.Add(time.Minute)
	newest := Tx(1, core.Expense, "C", "1", "2025-03-06")
	newest.CreatedAt = base.Add(-time.Hour)
	oldest := Tx(1, core.Income, "D", "1", "2025-01-01")
	other := Tx(2, core.Expense, "X", "1", "2025-03-07")

	for _, tx := range []core.Transaction{early, late, newest, oldest, other} {
		_, err := s.Create(ctx, tx)
		require.NoError(t, err)
	}

	got, err := s.ListOrdered(ctx, 1, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, []string{"C", "B", "A", "D"}, categories(got))

	page, err := s.ListOrdered(ctx, 1, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "D"}, categories(page))

	empty, err := s.ListOrdered(ctx, 1, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testListFiltered(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, fixedClock())

	for _, tx := range []core.Transaction{
		Tx(1, core.Expense, "Food", "10", "2025-01-05"),
		Tx(1, core.Expense, "Food", "20", "2025-02-10"),
		Tx(1, core.Expense, "Rent", "900", "2025-02-01"),
		Tx(1, core.Income, "Salary", "500", "2025-02-01"),
		Tx(2, core.Expense, "Food", "40", "2025-02-11"),
	} {
		_, err := s.Create(ctx, tx)
		require.NoError(t, err)
	}
	deleted, err := s.Create(ctx, Tx(1, core.Expense, "Food", "30", "2025-03-01"))
	require.NoError(t, err)
	require.NoError(t, s.SoftDelete(ctx, deleted.ID))

	food := core.TransactionFilter{
		Type:     core.Expense,
		Category: "Food",
		Range:    core.NewDateRange(core.NewDate(2025, 1, 1), core.NewDate(2025, 2, 28)),
	}
	got, total, err := s.ListFiltered(ctx, 1, food, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, []string{"2025-02-10", "2025-01-05"}, dates(got), "newest first by default")

	food.Sort = core.SortAsc
	got, _, err = s.ListFiltered(ctx, 1, food, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-05", "2025-02-10"}, dates(got))

	got, total, err = s.ListFiltered(ctx, 1, core.TransactionFilter{Category: "Food"}, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "soft-deleted and foreign rows never match")
	assert.Equal(t, []string{"2025-02-10"}, dates(got))

	got, total, err = s.ListFiltered(ctx, 1, core.TransactionFilter{Type: core.Income}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, []string{"Salary"}, categories(got))

	got, total, err = s.ListFiltered(ctx, 1, core.TransactionFilter{Range: core.DateRange{Start: core.NewDate(2025, 2, 1)}}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total, "open end")
	require.Len(t, got, 3)
	assert.Equal(t, "2025-02-10", got[0].TransactionDate.String())

	got, total, err = s.ListFiltered(ctx, 1, core.TransactionFilter{Category: "Food"}, 10, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, int64(2), total, "total is reported past the last page")
}

func testSoftDeleteRestore(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, fixedClock())

	tx, err := s.Create(ctx, Tx(1, core.Expense, "Food", "3", "2025-03-05"))
	require.NoError(t, err)

	assert.ErrorIs(t, s.Restore(ctx, tx.ID), core.ErrNotDeleted)

	require.NoError(t, s.SoftDelete(ctx, tx.ID))
	assert.ErrorIs(t, s.SoftDelete(ctx, tx.ID), core.ErrNotFound)

	_, err = s.Get(ctx, tx.ID, false)
	assert.ErrorIs(t, err, core.ErrNotFound)
	got, err := s.Get(ctx, tx.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted())

	list, err := s.ListOrdered(ctx, 1, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.Restore(ctx, tx.ID))
	got, err = s.Get(ctx, tx.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsDeleted())

	assert.ErrorIs(t, s.Restore(ctx, tx.ID+100), core.ErrNotFound)
}

func testUpdate(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, fixedClock())

	tx, err := s.Create(ctx, Tx(1, core.Expense, "Food", "3", "2025-03-05"))
	require.NoError(t, err)

	tx.Category = "Groceries"
	tx.Amount = decimal.RequireFromString("4.50")
	tx.TransactionDate = core.NewDate(2024, 12, 31)
	updated, err := s.Update(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", updated.Category)
	assert.Equal(t, "4.50", updated.Amount.StringFixed(2))
	assert.Equal(t, "2024-12-31", updated.TransactionDate.String())
	assert.Equal(t, tx.CreatedAt, updated.CreatedAt)

	require.NoError(t, s.SoftDelete(ctx, tx.ID))
	_, err = s.Update(ctx, tx)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func testFootprint(t *testing.T, newStore Factory) {
	ctx := context.Background()
	s := newStore(t, fixedClock())

	for _, tx := range []core.Transaction{
		Tx(1, core.Expense, "A", "1", "2023-06-01"),
		Tx(1, core.Expense, "A", "1", "2025-03-01"),
		Tx(1, core.Income, "A", "1", "2025-04-01"),
		Tx(2, core.Expense, "A", "1", "2019-01-01"),
	} {
		_, err := s.Create(ctx, tx)
		require.NoError(t, err)
	}
	gone, err := s.Create(ctx, Tx(1, core.Expense, "A", "1", "2021-01-01"))
	require.NoError(t, err)
	require.NoError(t, s.SoftDelete(ctx, gone.ID))

	n, err := s.CountRows(ctx, 1, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	n, err = s.CountRows(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	years, err := s.TransactionYears(ctx, 1, false)
	require.NoError(t, err)
	assert.Equal(t, []int{2023, 2025}, years)
	years, err = s.TransactionYears(ctx, 1, true)
	require.NoError(t, err)
	assert.Equal(t, []int{2021, 2023, 2025}, years)
}

func categories(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.Category
	}
	return out
}

func dates(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.TransactionDate.String()
	}
	return out
}
