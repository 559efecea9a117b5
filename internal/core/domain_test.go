package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false},
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateOfUsesLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	ts := time.Date(2025, 3, 1, 1, 30, 0, 0, loc) // still Feb 28 in UTC
	if got := DateOf(ts).String(); got != "2025-03-01" {
		t.Fatalf("expected 2025-03-01, got %s", got)
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2025, 7, 4))
	if err != nil || string(b) != `"2025-07-04"` {
		t.Fatalf("unexpected marshal: %s err=%v", b, err)
	}
	var d Date
	if err := json.Unmarshal([]byte(`"2024-02-29"`), &d); err != nil || d.String() != "2024-02-29" {
		t.Fatalf("unexpected unmarshal: %s err=%v", d, err)
	}
	if err := json.Unmarshal([]byte(`"2024-13-01"`), &d); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDateRangeContains(t *testing.T) {
	r := NewDateRange(NewDate(2025, 1, 1), NewDate(2025, 1, 31))
	if !r.Contains(NewDate(2025, 1, 1)) || !r.Contains(NewDate(2025, 1, 31)) {
		t.Fatal("range must be inclusive on both ends")
	}
	if r.Contains(NewDate(2024, 12, 31)) || r.Contains(NewDate(2025, 2, 1)) {
		t.Fatal("dates outside range reported as contained")
	}
	if !AllTime.Contains(NewDate(1970, 1, 1)) || !AllTime.IsUnbounded() {
		t.Fatal("AllTime must contain everything")
	}
}

func TestTransactionInputValidate(t *testing.T) {
	good := TransactionInput{
		Type:            Expense,
		Category:        "Food",
		Amount:          decimal.RequireFromString("12.50"),
		Description:     "lunch",
		TransactionDate: NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	zero := good
	zero.Amount = decimal.Zero
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount must be accepted, got %v", err)
	}

	cases := map[string]struct {
		mutate func(*TransactionInput)
		want   error
	}{
		"bad type":        {func(in *TransactionInput) { in.Type = "transfer" }, ErrInvalidType},
		"empty category":  {func(in *TransactionInput) { in.Category = "  " }, ErrEmptyCategory},
		"negative amount": {func(in *TransactionInput) { in.Amount = decimal.NewFromInt(-1) }, ErrInvalidAmount},
		"empty desc":      {func(in *TransactionInput) { in.Description = "" }, ErrEmptyDescription},
		"zero date":       {func(in *TransactionInput) { in.TransactionDate = Date{} }, ErrInvalidDate},
	}
	for name, tc := range cases {
		in := good
		tc.mutate(&in)
		err := in.Validate()
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", name, tc.want, err)
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: error must wrap ErrValidation", name)
		}
	}
}

func TestParseTransactionType(t *testing.T) {
	if tt, err := ParseTransactionType(" Income "); err != nil || tt != Income {
		t.Fatalf("unexpected: %v %v", tt, err)
	}
	if _, err := ParseTransactionType("refund"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestParseSortDirection(t *testing.T) {
	tests := []struct {
		in   string
		want SortDirection
	}{
		{"", SortDesc},
		{"desc", SortDesc},
		{" ASC ", SortAsc},
	}
	for _, tt := range tests {
		if got, err := ParseSortDirection(tt.in); err != nil || got != tt.want {
			t.Errorf("ParseSortDirection(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseSortDirection("sideways"); !errors.Is(err, ErrInvalidSort) || !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrInvalidSort, got %v", err)
	}
}

func TestFilterQueryCarriesEveryField(t *testing.T) {
	f := TransactionFilter{
		Type:     Expense,
		Category: "Food",
		Range:    NewDateRange(NewDate(2025, 1, 1), NewDate(2025, 1, 31)),
		Sort:     SortAsc,
	}
	q := f.Query(7)
	if q.UserID != 7 || q.Type != Expense || q.Category != "Food" || q.Range != f.Range {
		t.Fatalf("unexpected query: %+v", q)
	}
	if (DateRange{End: NewDate(2025, 1, 1)}).IsUnbounded() {
		t.Fatal("half-open range reported as unbounded")
	}
}

func TestRecentSizesDedupes(t *testing.T) {
	got := DefaultListingLimits().RecentSizes()
	if len(got) != 2 || got[0] != 5 || got[1] != 17 {
		t.Fatalf("unexpected sizes: %v", got)
	}
}
