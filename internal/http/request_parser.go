// Package http provides the JSON API of the finance tracker.
//
// This file implements utilities for parsing and validating HTTP request data:
// query parameters with their defaults, and transaction bodies sent either as
// JSON or form-encoded.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/period"
)

// maxBodyBytes bounds transaction bodies.
const maxBodyBytes = 64 << 10

// ParsePeriod reads the period query parameter, falling back to def when it
// is absent.
func ParsePeriod(query url.Values, def period.Period) (period.Period, error) {
	v := strings.TrimSpace(query.Get("period"))
	if v == "" {
		return def, nil
	}
	return period.Parse(v)
}

// ParseYear reads the year query parameter. Zero means "not given".
func ParseYear(query url.Values) (int, error) {
	v := strings.TrimSpace(query.Get("year"))
	if v == "" {
		return 0, nil
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < 1 || y > 9999 {
		return 0, fmt.Errorf("invalid year %q", v)
	}
	return y, nil
}

// ParsePage reads the page query parameter. Missing or malformed values
// read as the first page.
func ParsePage(query url.Values) int {
	p, err := strconv.Atoi(strings.TrimSpace(query.Get("page")))
	if err != nil || p < 1 {
		return 1
	}
	return p
}

// ParseLimit reads the limit query parameter, clamped to [1, upper]. Missing
// or malformed values read as 0, which means the configured default.
func ParseLimit(query url.Values, upper int) int {
	n, err := strconv.Atoi(strings.TrimSpace(query.Get("limit")))
	if err != nil || n < 1 {
		return 0
	}
	if n > upper {
		return upper
	}
	return n
}

// ParsePerPage reads the per_page query parameter, clamped to [1, upper].
// Missing or malformed values read as 0, the listing default.
func ParsePerPage(query url.Values, upper int) int {
	n, err := strconv.Atoi(strings.TrimSpace(query.Get("per_page")))
	if err != nil || n < 1 {
		return 0
	}
	return min(n, upper)
}

// ParseTransactionFilter reads the listing filters: type, category,
// start_date, end_date and sort_direction. Absent filters match everything.
func ParseTransactionFilter(query url.Values) (core.TransactionFilter, error) {
	var f core.TransactionFilter
	if v := strings.TrimSpace(query.Get("type")); v != "" {
		typ, err := core.ParseTransactionType(v)
		if err != nil {
			return core.TransactionFilter{}, err
		}
		f.Type = typ
	}
	f.Category = strings.TrimSpace(query.Get("category"))

	r, err := ParseDateRange(query)
	if err != nil {
		return core.TransactionFilter{}, err
	}
	f.Range = r

	dir, err := core.ParseSortDirection(query.Get("sort_direction"))
	if err != nil {
		return core.TransactionFilter{}, err
	}
	f.Sort = dir
	return f, nil
}

// ParseDateRange reads start_date and end_date. Missing sides stay zero.
func ParseDateRange(query url.Values) (core.DateRange, error) {
	var r core.DateRange
	if v := strings.TrimSpace(query.Get("start_date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.DateRange{}, err
		}
		r.Start = d
	}
	if v := strings.TrimSpace(query.Get("end_date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.DateRange{}, err
		}
		r.End = d
	}
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start.Time) {
		return core.DateRange{}, fmt.Errorf("%w: end_date before start_date", core.ErrValidation)
	}
	return r, nil
}

// ParseID reads the {id} route parameter.
func ParseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// TransactionInput builds a transaction input from the parsed body. Field
// errors wrap core.ErrValidation.
func (p *RequestBodyParser) TransactionInput() (core.TransactionInput, error) {
	typ, err := core.ParseTransactionType(p.Get("type"))
	if err != nil {
		return core.TransactionInput{}, err
	}
	amount, err := core.ParseAmount(p.Get("amount"))
	if err != nil {
		return core.TransactionInput{}, err
	}
	date, err := core.ParseDate(p.Get("transaction_date"))
	if err != nil {
		return core.TransactionInput{}, err
	}
	in := core.TransactionInput{
		Type:            typ,
		Category:        p.Get("category"),
		Amount:          amount,
		Description:     p.Get("description"),
		TransactionDate: date,
	}
	return in, in.Validate()
}

// stringValue converts a decoded JSON value to string. Numbers keep their
// literal form so 12.345 still rounds on the third decimal.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
