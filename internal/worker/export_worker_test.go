package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/sheets/memory"
	storemem "fintrack/internal/storage/memory"
	"fintrack/internal/storage/storetest"
)

type failingExporter struct{}

func (failingExporter) Export(context.Context, core.Transaction) (string, error) {
	return "", errors.New("quota exceeded")
}

type failingReader struct{}

func (failingReader) Get(context.Context, int64, bool) (core.Transaction, error) {
	return core.Transaction{}, errors.New("database is locked")
}

func seed(t *testing.T) (*storemem.Store, core.Transaction) {
	t.Helper()
	store := storemem.New()
	tx, err := store.Create(context.Background(), storetest.Tx(1, core.Expense, "food", "4.2", "2025-03-01"))
	require.NoError(t, err)
	return store, tx
}

func TestHandleExportsCurrentState(t *testing.T) {
	store, tx := seed(t)
	exporter := memory.New()
	w := NewExportWorker(store, exporter, nil)
	ctx := context.Background()

	require.NoError(t, w.HandleTransactionMutated(ctx, amqp.NewTransactionMutatedMessage(1, tx.ID, amqp.ActionCreated)))
	require.NoError(t, store.SoftDelete(ctx, tx.ID))
	require.NoError(t, w.HandleTransactionMutated(ctx, amqp.NewTransactionMutatedMessage(1, tx.ID, amqp.ActionDeleted)))

	rows := exporter.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "4.20", rows[0][6])
	assert.NotEmpty(t, rows[0][7], "deleted rows keep their deletion time")
}

func TestHandleDropsUnknownAndForeignTransactions(t *testing.T) {
	store, tx := seed(t)
	exporter := memory.New()
	w := NewExportWorker(store, exporter, nil)
	ctx := context.Background()

	assert.NoError(t, w.HandleTransactionMutated(ctx, amqp.NewTransactionMutatedMessage(1, 999, amqp.ActionCreated)))
	assert.NoError(t, w.HandleTransactionMutated(ctx, amqp.NewTransactionMutatedMessage(2, tx.ID, amqp.ActionUpdated)))
	assert.Empty(t, exporter.Rows())
}

func TestHandleReturnsRetryableErrors(t *testing.T) {
	store, tx := seed(t)
	msg := amqp.NewTransactionMutatedMessage(1, tx.ID, amqp.ActionCreated)

	err := NewExportWorker(store, failingExporter{}, nil).HandleTransactionMutated(context.Background(), msg)
	assert.ErrorContains(t, err, "quota exceeded")

	err = NewExportWorker(failingReader{}, memory.New(), nil).HandleTransactionMutated(context.Background(), msg)
	assert.ErrorContains(t, err, "database is locked")
}
