package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter mirrors transactions into an external ledger. Export
	// is an upsert keyed by transaction id: exporting the same transaction
	// again rewrites its row, and a soft-deleted transaction is written with
	// its deletion time so the ledger keeps a record of it.
	TransactionExporter interface {
		Export(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}
)

// Header is the column layout of an exported ledger row.
var Header = []string{"ID", "User", "Date", "Type", "Category", "Description", "Amount", "Deleted At"}

// Row renders t in Header order. Amounts use two fixed decimals and times
// RFC 3339 in UTC.
func Row(t core.Transaction) []any {
	deleted := ""
	if t.DeletedAt != nil {
		deleted = t.DeletedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return []any{
		t.ID,
		t.UserID,
		t.TransactionDate.String(),
		string(t.Type),
		t.Category,
		t.Description,
		t.Amount.StringFixed(2),
		deleted,
	}
}
