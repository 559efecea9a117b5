package core

import "context"

// AggregateQuery scopes a sum/count query. An empty Type matches both types
// and an empty Category every category.
type AggregateQuery struct {
	UserID   int64
	Type     TransactionType
	Category string
	Range    DateRange
}

// TransactionFilter narrows the transaction listing. Zero fields match
// everything; an empty Sort lists newest first.
type TransactionFilter struct {
	Type     TransactionType
	Category string
	Range    DateRange
	Sort     SortDirection
}

// Query returns the row filter of f for userID.
func (f TransactionFilter) Query(userID int64) AggregateQuery {
	return AggregateQuery{UserID: userID, Type: f.Type, Category: f.Category, Range: f.Range}
}

// Ports implemented by the transaction stores.
type (
	TransactionWriter interface {
		Create(ctx context.Context, t Transaction) (Transaction, error)
		Update(ctx context.Context, t Transaction) (Transaction, error)
		SoftDelete(ctx context.Context, id int64) error
		Restore(ctx context.Context, id int64) error
	}

	TransactionReader interface {
		// Get returns ErrNotFound for unknown ids, and for soft-deleted
		// rows unless withDeleted is set.
		Get(ctx context.Context, id int64, withDeleted bool) (Transaction, error)
	}

	// AggregateReader runs the user-scoped aggregation queries. Soft-deleted
	// rows never contribute.
	AggregateReader interface {
		Aggregate(ctx context.Context, q AggregateQuery) (Aggregate, error)
		CategoryTotals(ctx context.Context, q AggregateQuery) ([]CategoryAmount, error)
	}

	// TransactionLister lists live transactions ordered by transaction date
	// desc, created at desc, id desc.
	TransactionLister interface {
		ListOrdered(ctx context.Context, userID int64, limit, offset int) ([]Transaction, error)
		// ListFiltered returns one window of the live rows matching f,
		// ordered by transaction date in f.Sort's direction with created at
		// and id as tie breakers, plus the total number of matching rows.
		ListFiltered(ctx context.Context, userID int64, f TransactionFilter, limit, offset int) ([]Transaction, int64, error)
	}

	// FootprintReader describes the extent of a user's data, soft-deleted rows
	// included, so cache sweeps can cover keys built before a delete.
	FootprintReader interface {
		CountRows(ctx context.Context, userID int64, withDeleted bool) (int64, error)
		TransactionYears(ctx context.Context, userID int64, withDeleted bool) ([]int, error)
	}

	Store interface {
		TransactionWriter
		TransactionReader
		AggregateReader
		TransactionLister
		FootprintReader
		Close() error
	}
)
