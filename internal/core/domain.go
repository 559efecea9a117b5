package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	SortDesc SortDirection = "desc"
	SortAsc  SortDirection = "asc"
)

const dateLayout = "2006-01-02"

type (
	TransactionType string

	// SortDirection orders listings by transaction date.
	SortDirection string

	// Date is a calendar date stored as UTC midnight.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID              int64
		UserID          int64
		Type            TransactionType
		Category        string
		Amount          decimal.Decimal
		Description     string
		TransactionDate Date
		CreatedAt       time.Time
		UpdatedAt       time.Time
		DeletedAt       *time.Time
	}

	// TransactionInput is the user-supplied part of a transaction, shared by create and update.
	TransactionInput struct {
		Type            TransactionType
		Category        string
		Amount          decimal.Decimal
		Description     string
		TransactionDate Date
	}
)

var (
	// ErrValidation is wrapped by every input validation error.
	ErrValidation = errors.New("validation failed")

	ErrInvalidType      = fmt.Errorf("%w: type must be income or expense", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrEmptyCategory    = fmt.Errorf("%w: empty category", ErrValidation)
	ErrCategoryTooLong  = fmt.Errorf("%w: category too long (max 255 characters)", ErrValidation)
	ErrEmptyDescription = fmt.Errorf("%w: empty description", ErrValidation)
	ErrInvalidDate      = fmt.Errorf("%w: invalid transaction date", ErrValidation)
	ErrInvalidSort      = fmt.Errorf("%w: sort direction must be asc or desc", ErrValidation)

	ErrNotFound   = errors.New("transaction not found")
	ErrForbidden  = errors.New("transaction belongs to another user")
	ErrNotDeleted = errors.New("transaction is not deleted")
)

// ParseTransactionType accepts "income" or "expense" in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToLower(strings.TrimSpace(s))); t {
	case Income, Expense:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

// ParseSortDirection accepts "asc" or "desc" in any case. Empty means desc.
func ParseSortDirection(s string) (SortDirection, error) {
	switch d := SortDirection(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return SortDesc, nil
	case SortAsc, SortDesc:
		return d, nil
	default:
		return "", ErrInvalidSort
	}
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// NewDate creates a new Date from year, month, day. Out of range values
// normalise the way time.Date does (Feb 29 in a common year becomes Mar 1).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a date in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// AddDays returns the date n days later (earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// IsDeleted reports whether the transaction is soft-deleted.
func (t Transaction) IsDeleted() bool {
	return t.DeletedAt != nil
}

// Input returns the user-editable fields of t.
func (t Transaction) Input() TransactionInput {
	return TransactionInput{
		Type:            t.Type,
		Category:        t.Category,
		Amount:          t.Amount,
		Description:     t.Description,
		TransactionDate: t.TransactionDate,
	}
}

// Normalize trims text fields and rounds the amount to two decimals.
func (in TransactionInput) Normalize() TransactionInput {
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
	in.Amount = RoundAmount(in.Amount)
	return in
}

func (in TransactionInput) Validate() error {
	if !in.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(in.Category) == "" {
		return ErrEmptyCategory
	}
	if len(in.Category) > 255 {
		return ErrCategoryTooLong
	}
	if err := ValidateAmount(in.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(in.Description) == "" {
		return ErrEmptyDescription
	}
	if err := in.TransactionDate.Validate(); err != nil {
		return err
	}
	return nil
}
