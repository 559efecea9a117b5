package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets serves the two Values endpoints the client uses.
type fakeSheets struct {
	mu     sync.Mutex
	sheets map[string]map[int][]any
	writes int
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/v4/spreadsheets/sheet-id/values/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	rng := strings.TrimPrefix(r.URL.Path, prefix)
	sheet, cells, ok := strings.Cut(rng, "!")
	if !ok {
		http.Error(w, "bad range", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		rows := f.sheets[sheet]
		last := 0
		for n := range rows {
			last = max(last, n)
		}
		values := make([][]any, last)
		for n := 1; n <= last; n++ {
			if row, ok := rows[n]; ok && len(row) > 0 {
				values[n-1] = []any{fmt.Sprint(row[0])}
			} else {
				values[n-1] = []any{}
			}
		}
		_ = json.NewEncoder(w).Encode(gsheet.ValueRange{Range: rng, Values: values})
	case http.MethodPut:
		start, _, _ := strings.Cut(cells, ":")
		n, err := strconv.Atoi(strings.TrimPrefix(start, "A"))
		if err != nil {
			http.Error(w, "bad row", http.StatusBadRequest)
			return
		}
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil || len(vr.Values) != 1 {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		if f.sheets[sheet] == nil {
			f.sheets[sheet] = map[int][]any{}
		}
		f.sheets[sheet][n] = vr.Values[0]
		f.writes++
		_ = json.NewEncoder(w).Encode(gsheet.UpdateValuesResponse{UpdatedRange: rng})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (f *fakeSheets) row(sheet string, n int) []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sheets[sheet][n]
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{sheets: map[string]map[int][]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewWithOptions(context.Background(), "sheet-id", "", nil,
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication())
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	return c, fake
}

func sampleTransaction(id int64, date string) core.Transaction {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.Transaction{
		ID:              id,
		UserID:          1,
		Type:            core.Expense,
		Category:        "food",
		Amount:          decimal.RequireFromString("9.9"),
		Description:     "pizza",
		TransactionDate: d,
	}
}

func TestExportWritesHeaderThenRow(t *testing.T) {
	c, fake := newTestClient(t)

	ref, err := c.Export(context.Background(), sampleTransaction(4, "2025-03-01"))
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if ref != "2025 Transactions!A2:H2" {
		t.Errorf("ref = %q", ref)
	}
	if got := fake.row("2025 Transactions", 1); len(got) == 0 || got[0] != "ID" {
		t.Errorf("header row = %v", got)
	}
	row := fake.row("2025 Transactions", 2)
	if len(row) != 8 {
		t.Fatalf("row = %v", row)
	}
	if row[6] != "9.90" || row[2] != "2025-03-01" || row[7] != "" {
		t.Errorf("unexpected row contents: %v", row)
	}
}

func TestExportRewritesExistingRow(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	if _, err := c.Export(ctx, sampleTransaction(1, "2025-03-01")); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Export(ctx, sampleTransaction(2, "2025-03-02")); err != nil {
		t.Fatal(err)
	}

	tx := sampleTransaction(1, "2025-03-01")
	deleted := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)
	tx.DeletedAt = &deleted
	ref, err := c.Export(ctx, tx)
	if err != nil {
		t.Fatal(err)
	}
	if ref != "2025 Transactions!A2:H2" {
		t.Errorf("re-export should reuse row 2, got %q", ref)
	}
	if got := fake.row("2025 Transactions", 2)[7]; got != "2025-03-05T12:00:00Z" {
		t.Errorf("deleted at = %v", got)
	}
	if got := fake.row("2025 Transactions", 3)[0]; fmt.Sprint(got) != "2" {
		t.Errorf("row 3 should still hold transaction 2, got %v", got)
	}
}

func TestExportUsesTransactionYear(t *testing.T) {
	c, fake := newTestClient(t)

	ref, err := c.Export(context.Background(), sampleTransaction(9, "2023-12-31"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ref, "2023 Transactions!") {
		t.Errorf("ref = %q", ref)
	}
	if fake.row("2023 Transactions", 2) == nil {
		t.Error("expected row in the 2023 sheet")
	}
}

func TestExportRejectsMissingID(t *testing.T) {
	c, fake := newTestClient(t)
	if _, err := c.Export(context.Background(), core.Transaction{}); err == nil {
		t.Fatal("expected error")
	}
	if fake.writes != 0 {
		t.Errorf("no write expected, got %d", fake.writes)
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	if err == nil || err.Error() != "missing spreadsheet id" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	got, err := credentials(Config{CredentialsJSON: ` {"type":"service_account"} `, CredentialsFile: "/nope"})
	if err != nil || string(got) != `{"type":"service_account"}` {
		t.Fatalf("inline JSON should win: %q %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{"from":"file"}`), 0600); err != nil {
		t.Fatal(err)
	}
	got, err = credentials(Config{CredentialsFile: path})
	if err != nil || string(got) != `{"from":"file"}` {
		t.Fatalf("file credentials: %q %v", got, err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
	if _, err := credentials(Config{}); err != nil {
		t.Fatalf("env fallback: %v", err)
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if _, err := credentials(Config{}); err == nil {
		t.Fatal("expected error without credentials")
	}
}

const testOAuthClient = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func TestClientOptionsFallBackToOAuth(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	ctx := context.Background()

	if _, err := clientOptions(ctx, Config{}); !errors.Is(err, errNoCredentials) {
		t.Fatalf("expected errNoCredentials, got %v", err)
	}
	if _, err := clientOptions(ctx, Config{OAuthClientJSON: testOAuthClient}); !errors.Is(err, errNoCredentials) {
		t.Fatalf("client without token should report missing credentials, got %v", err)
	}

	tokenFile := filepath.Join(t.TempDir(), "token.json")
	token := `{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expiry":"2099-01-01T00:00:00Z"}`
	if err := os.WriteFile(tokenFile, []byte(token), 0600); err != nil {
		t.Fatal(err)
	}
	opts, err := clientOptions(ctx, Config{OAuthClientJSON: testOAuthClient, OAuthTokenFile: tokenFile})
	if err != nil || len(opts) != 1 {
		t.Fatalf("oauth options: %v (%d)", err, len(opts))
	}

	ts, err := tokenSource(ctx, Config{OAuthClientJSON: testOAuthClient, OAuthTokenJSON: token})
	if err != nil {
		t.Fatalf("tokenSource: %v", err)
	}
	tok, err := ts.Token()
	if err != nil || tok.AccessToken != "at" {
		t.Fatalf("stored token not used: %+v %v", tok, err)
	}

	if _, err := tokenSource(ctx, Config{OAuthClientJSON: testOAuthClient, OAuthTokenJSON: "not json"}); err == nil {
		t.Fatal("expected error for malformed token")
	}
	if _, err := tokenSource(ctx, Config{OAuthClientJSON: "{}", OAuthTokenJSON: token}); err == nil {
		t.Fatal("expected error for malformed client")
	}
}

func TestNewWithOAuthCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	c, err := New(context.Background(), Config{
		SpreadsheetID:   "sheet-id",
		OAuthClientJSON: testOAuthClient,
		OAuthTokenJSON:  `{"access_token":"at","token_type":"Bearer"}`,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.sheetBase != DefaultSheetName {
		t.Errorf("sheetBase = %q, want default", c.sheetBase)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		baseName string
		year     int
		expected string
	}{
		{"Transactions", 2025, "2025 Transactions"},
		{"", 2023, ""},
		{"Test Sheet", 2022, "2022 Test Sheet"},
		{"2025 Already Prefixed", 2024, "2025 Already Prefixed"},
	}

	for _, tt := range tests {
		got := yearPrefixedName(tt.baseName, tt.year)
		if got != tt.expected {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q",
				tt.baseName, tt.year, got, tt.expected)
		}
	}
}
