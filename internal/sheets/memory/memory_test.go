package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func TestExportUpsertsByID(t *testing.T) {
	e := New()
	tx := core.Transaction{
		ID:              7,
		UserID:          1,
		Type:            core.Expense,
		Category:        "food",
		Amount:          decimal.RequireFromString("12.5"),
		Description:     "lunch",
		TransactionDate: core.NewDate(2025, 3, 1),
	}

	ref, err := e.Export(context.Background(), tx)
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected export: ref=%q err=%v", ref, err)
	}

	deleted := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	tx.DeletedAt = &deleted
	ref, err = e.Export(context.Background(), tx)
	if err != nil || ref != "mem:1" {
		t.Fatalf("re-export should reuse the row: ref=%q err=%v", ref, err)
	}

	rows := e.Rows()
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0][6] != "12.50" {
		t.Errorf("amount = %v, want 12.50", rows[0][6])
	}
	if rows[0][7] != "2025-03-02T08:00:00Z" {
		t.Errorf("deleted at = %v", rows[0][7])
	}
}

func TestExportRejectsUnsavedTransaction(t *testing.T) {
	if _, err := New().Export(context.Background(), core.Transaction{}); err == nil {
		t.Fatal("expected error for transaction without id")
	}
}
