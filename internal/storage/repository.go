package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the sqlite implementation of core.Store. Amounts are
// stored as integer cents, dates as YYYY-MM-DD text and timestamps as unix
// microseconds.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; sqlite serialises writes anyway and a single
	// connection avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// DB exposes the connection pool so the sqlite cache backend can share the file.
func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

// SetClock overrides the timestamp source. Used by tests.
func (r *SQLiteRepository) SetClock(now func() time.Time) {
	r.now = now
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const selectColumns = `id, user_id, type, category, amount_cents, description,
	transaction_date, created_at, updated_at, deleted_at`

// Create inserts t and returns it with its id and timestamps. A non-zero
// CreatedAt is kept, which lets imports preserve their original ordering.
func (r *SQLiteRepository) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := r.now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	t.DeletedAt = nil

	res, err := r.db.ExecContext(ctx, `INSERT INTO transactions
		(user_id, type, category, amount_cents, description, transaction_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, string(t.Type), t.Category, core.ToCents(t.Amount), t.Description,
		t.TransactionDate.String(), t.CreatedAt.UnixMicro(), t.UpdatedAt.UnixMicro())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("read inserted id: %w", err)
	}
	t.ID = id

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"user_id", t.UserID,
		"type", t.Type,
		"amount_cents", core.ToCents(t.Amount),
		"transaction_date", t.TransactionDate.String())

	return r.Get(ctx, id, false)
}

// Update overwrites the editable fields of a live transaction.
func (r *SQLiteRepository) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions
		SET type = ?, category = ?, amount_cents = ?, description = ?, transaction_date = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		string(t.Type), t.Category, core.ToCents(t.Amount), t.Description,
		t.TransactionDate.String(), r.now().UTC().UnixMicro(), t.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	if err := expectOneRow(res, t.ID); err != nil {
		return core.Transaction{}, err
	}
	return r.Get(ctx, t.ID, false)
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		r.now().UTC().UnixMicro(), id)
	if err != nil {
		return fmt.Errorf("soft delete transaction %d: %w", id, err)
	}
	return expectOneRow(res, id)
}

func (r *SQLiteRepository) Restore(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET deleted_at = NULL, updated_at = ? WHERE id = ? AND deleted_at IS NOT NULL`,
		r.now().UTC().UnixMicro(), id)
	if err != nil {
		return fmt.Errorf("restore transaction %d: %w", id, err)
	}
	if err := expectOneRow(res, id); err != nil {
		if _, getErr := r.Get(ctx, id, false); getErr == nil {
			return fmt.Errorf("restore transaction %d: %w", id, core.ErrNotDeleted)
		}
		return err
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id int64, withDeleted bool) (core.Transaction, error) {
	query := `SELECT ` + selectColumns + ` FROM transactions WHERE id = ?`
	if !withDeleted {
		query += ` AND deleted_at IS NULL`
	}
	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return t, nil
}

// Aggregate sums and counts the live transactions matching q.
func (r *SQLiteRepository) Aggregate(ctx context.Context, q core.AggregateQuery) (core.Aggregate, error) {
	where, args := whereClause(q)
	var cents, count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0), COUNT(*) FROM transactions WHERE `+where, args...,
	).Scan(&cents, &count)
	if err != nil {
		return core.Aggregate{}, fmt.Errorf("aggregate transactions: %w", err)
	}
	return core.Aggregate{Total: core.FromCents(cents), Count: count}, nil
}

// CategoryTotals groups the live transactions matching q by category,
// largest total first.
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, q core.AggregateQuery) ([]core.CategoryAmount, error) {
	where, args := whereClause(q)
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount_cents) AS total, COUNT(*) FROM transactions WHERE `+where+`
		GROUP BY category ORDER BY total DESC, category ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var (
			name         string
			cents, count int64
		)
		if err := rows.Scan(&name, &cents, &count); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		out = append(out, core.NewCategoryAmount(name, core.FromCents(cents), count))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category totals: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) ListOrdered(ctx context.Context, userID int64, limit, offset int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM transactions
		WHERE user_id = ? AND deleted_at IS NULL
		ORDER BY transaction_date DESC, created_at DESC, id DESC
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	return scanTransactions(rows, limit)
}

// ListFiltered pages through the live rows matching f. The count and the
// page are read in one transaction so total and data agree.
func (r *SQLiteRepository) ListFiltered(ctx context.Context, userID int64, f core.TransactionFilter, limit, offset int) ([]core.Transaction, int64, error) {
	where, args := whereClause(f.Query(userID))
	dir := "DESC"
	if f.Sort == core.SortAsc {
		dir = "ASC"
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin listing: %w", err)
	}
	defer tx.Rollback()

	var total int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count filtered transactions: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT `+selectColumns+` FROM transactions WHERE `+where+`
		ORDER BY transaction_date `+dir+`, created_at `+dir+`, id `+dir+`
		LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list filtered transactions: %w", err)
	}
	defer rows.Close()

	out, err := scanTransactions(rows, limit)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *SQLiteRepository) CountRows(ctx context.Context, userID int64, withDeleted bool) (int64, error) {
	query := `SELECT COUNT(*) FROM transactions WHERE user_id = ?`
	if !withDeleted {
		query += ` AND deleted_at IS NULL`
	}
	var n int64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

// TransactionYears returns the distinct years of the user's transaction
// dates in ascending order.
func (r *SQLiteRepository) TransactionYears(ctx context.Context, userID int64, withDeleted bool) ([]int, error) {
	query := `SELECT DISTINCT CAST(substr(transaction_date, 1, 4) AS INTEGER) AS y
		FROM transactions WHERE user_id = ?`
	if !withDeleted {
		query += ` AND deleted_at IS NULL`
	}
	query += ` ORDER BY y`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("transaction years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scan year: %w", err)
		}
		years = append(years, y)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate years: %w", err)
	}
	return years, nil
}

// whereClause builds the filter shared by the aggregation and listing
// queries. Dates compare correctly as text in YYYY-MM-DD form.
func whereClause(q core.AggregateQuery) (string, []any) {
	conds := []string{"user_id = ?", "deleted_at IS NULL"}
	args := []any{q.UserID}
	if q.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(q.Type))
	}
	if q.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, q.Category)
	}
	if q.Range.IsUnbounded() {
		return strings.Join(conds, " AND "), args
	}
	if !q.Range.Start.IsZero() {
		conds = append(conds, "transaction_date >= ?")
		args = append(args, q.Range.Start.String())
	}
	if !q.Range.End.IsZero() {
		conds = append(conds, "transaction_date <= ?")
		args = append(args, q.Range.End.String())
	}
	return strings.Join(conds, " AND "), args
}

func scanTransactions(rows *sql.Rows, capacity int) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, capacity)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(s rowScanner) (core.Transaction, error) {
	var (
		t                    core.Transaction
		typ, date            string
		cents                int64
		createdAt, updatedAt int64
		deletedAt            sql.NullInt64
	)
	if err := s.Scan(&t.ID, &t.UserID, &typ, &t.Category, &cents, &t.Description,
		&date, &createdAt, &updatedAt, &deletedAt); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("stored date of transaction %d: %w", t.ID, err)
	}
	t.Type = core.TransactionType(typ)
	t.Amount = core.FromCents(cents)
	t.TransactionDate = d
	t.CreatedAt = time.UnixMicro(createdAt).UTC()
	t.UpdatedAt = time.UnixMicro(updatedAt).UTC()
	if deletedAt.Valid {
		ts := time.UnixMicro(deletedAt.Int64).UTC()
		t.DeletedAt = &ts
	}
	return t, nil
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for transaction %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}
