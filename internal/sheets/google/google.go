package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/log"
	ports "fintrack/internal/sheets"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the base name of the yearly ledger sheets.
const DefaultSheetName = "Transactions"

// Config selects the spreadsheet and the credentials used to write it.
//
// A service account is preferred: CredentialsJSON wins over CredentialsFile,
// and GOOGLE_APPLICATION_CREDENTIALS is the fallback. Without one, an OAuth
// client plus a stored user token (see cmd/fintrack-oauth-init) is used.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

// Client writes one row per transaction into "<year> <SheetName>", where the
// year is the transaction's own year. Column A holds the transaction id and
// is used to find the row on re-export.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *log.Logger

	// Serialises the find-then-write sequence so two exports never claim
	// the same free row.
	mu sync.Mutex
}

var _ ports.TransactionExporter = (*Client)(nil)

// New creates a Sheets client from the configured credentials.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	opts, err := clientOptions(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, cfg.SpreadsheetID, cfg.SheetName, logger, opts...)
}

// NewWithOptions creates a client with explicit API options, for callers
// that bring their own transport or endpoint.
func NewWithOptions(ctx context.Context, spreadsheetID, sheetName string, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = DefaultSheetName
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     strings.TrimSpace(sheetName),
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

var errNoCredentials = errors.New("missing Google credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS, or an OAuth client and token)")

func clientOptions(ctx context.Context, cfg Config) ([]goption.ClientOption, error) {
	creds, err := credentials(cfg)
	if err == nil {
		return []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}, nil
	}
	if !errors.Is(err, errNoCredentials) {
		return nil, err
	}
	ts, err := tokenSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return []goption.ClientOption{goption.WithTokenSource(ts)}, nil
}

// credentials returns the service account key, or errNoCredentials when
// none is configured.
func credentials(cfg Config) ([]byte, error) {
	if v := strings.TrimSpace(cfg.CredentialsJSON); v != "" {
		return []byte(v), nil
	}
	path := strings.TrimSpace(cfg.CredentialsFile)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if path == "" {
		return nil, errNoCredentials
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

// tokenSource builds a refreshing user token source from an installed-app
// OAuth client and a token saved by the init command.
func tokenSource(ctx context.Context, cfg Config) (oauth2.TokenSource, error) {
	clientJSON, err := inlineOrFile(cfg.OAuthClientJSON, cfg.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	tokenJSON, err := inlineOrFile(cfg.OAuthTokenJSON, cfg.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	if clientJSON == nil || tokenJSON == nil {
		return nil, errNoCredentials
	}

	conf, err := googleoauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return conf.TokenSource(ctx, &tok), nil
}

// inlineOrFile returns the inline value, else the file contents, else nil.
func inlineOrFile(inline, path string) ([]byte, error) {
	if v := strings.TrimSpace(inline); v != "" {
		return []byte(v), nil
	}
	if path = strings.TrimSpace(path); path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

// Export writes t to its row, appending a row the first time t is seen.
func (c *Client) Export(ctx context.Context, t core.Transaction) (string, error) {
	if t.ID == 0 {
		return "", errors.New("export transaction: missing id")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := yearPrefixedName(c.sheetBase, t.TransactionDate.Year())

	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx, sheet)
	if err != nil {
		return "", err
	}

	row := findRow(ids, t.ID)
	if row == 0 {
		if len(ids) == 0 {
			if err := c.writeRow(ctx, sheet, 1, header()); err != nil {
				return "", err
			}
			ids = append(ids, ports.Header[0])
		}
		row = len(ids) + 1
	}

	if err := c.writeRow(ctx, sheet, row, ports.Row(t)); err != nil {
		return "", err
	}

	c.logger.DebugContext(ctx, "Transaction exported",
		log.FieldTransactionID, t.ID,
		"sheet", sheet,
		"row", row)

	return rowRef(sheet, row), nil
}

func (c *Client) readIDs(ctx context.Context, sheet string) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	ids := make([]string, len(resp.Values))
	for i, v := range resp.Values {
		if len(v) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(v[0]))
		}
	}
	return ids, nil
}

func (c *Client) writeRow(ctx context.Context, sheet string, row int, values []any) error {
	rng := rowRef(sheet, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}
	return nil
}

// findRow returns the 1-based row holding id, or 0.
func findRow(ids []string, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, v := range ids {
		if v == want {
			return i + 1
		}
	}
	return 0
}

func header() []any {
	out := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		out[i] = h
	}
	return out
}

func rowRef(sheet string, row int) string {
	last := string(rune('A' + len(ports.Header) - 1))
	return fmt.Sprintf("%s!A%d:%s%d", sheet, row, last, row)
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
