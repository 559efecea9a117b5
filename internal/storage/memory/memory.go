// Package memory is an in-process core.Store used for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"fintrack/internal/core"
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]core.Transaction
	now    func() time.Time
}

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock returns a store whose timestamps come from now.
func NewWithClock(now func() time.Time) *Store {
	return &Store{items: map[int64]core.Transaction{}, now: now}
}

// Create stores t under a fresh id. A non-zero CreatedAt is kept.
func (s *Store) Create(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := s.now().UTC()
	t.ID = s.nextID
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	t.DeletedAt = nil
	s.items[t.ID] = t
	return t, nil
}

func (s *Store) Update(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[t.ID]
	if !ok || cur.IsDeleted() {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", t.ID, core.ErrNotFound)
	}
	in := t.Input()
	cur.Type = in.Type
	cur.Category = in.Category
	cur.Amount = in.Amount
	cur.Description = in.Description
	cur.TransactionDate = in.TransactionDate
	cur.UpdatedAt = s.now().UTC()
	s.items[t.ID] = cur
	return cur, nil
}

func (s *Store) SoftDelete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[id]
	if !ok || cur.IsDeleted() {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	ts := s.now().UTC()
	cur.DeletedAt = &ts
	s.items[id] = cur
	return nil
}

func (s *Store) Restore(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.items[id]
	if !ok {
		return fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	if !cur.IsDeleted() {
		return fmt.Errorf("restore transaction %d: %w", id, core.ErrNotDeleted)
	}
	cur.DeletedAt = nil
	cur.UpdatedAt = s.now().UTC()
	s.items[id] = cur
	return nil
}

func (s *Store) Get(_ context.Context, id int64, withDeleted bool) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	if !ok || (t.IsDeleted() && !withDeleted) {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, core.ErrNotFound)
	}
	return t, nil
}

func (s *Store) Aggregate(_ context.Context, q core.AggregateQuery) (core.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var agg core.Aggregate
	for _, t := range s.items {
		if !matches(t, q) {
			continue
		}
		agg.Total = agg.Total.Add(t.Amount)
		agg.Count++
	}
	return agg, nil
}

func (s *Store) CategoryTotals(_ context.Context, q core.AggregateQuery) ([]core.CategoryAmount, error) {
	s.mu.Lock()
	byName := map[string]*core.CategoryAmount{}
	for _, t := range s.items {
		if !matches(t, q) {
			continue
		}
		c, ok := byName[t.Category]
		if !ok {
			c = &core.CategoryAmount{Category: t.Category}
			byName[t.Category] = c
		}
		c.Total = c.Total.Add(t.Amount)
		c.Count++
	}
	s.mu.Unlock()

	out := make([]core.CategoryAmount, 0, len(byName))
	for _, c := range byName {
		out = append(out, core.NewCategoryAmount(c.Category, c.Total, c.Count))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (s *Store) ListOrdered(_ context.Context, userID int64, limit, offset int) ([]core.Transaction, error) {
	s.mu.Lock()
	var live []core.Transaction
	for _, t := range s.items {
		if t.UserID == userID && !t.IsDeleted() {
			live = append(live, t)
		}
	}
	s.mu.Unlock()

	sort.Slice(live, func(i, j int) bool { return before(live[i], live[j]) })
	if offset >= len(live) {
		return []core.Transaction{}, nil
	}
	end := offset + limit
	if end > len(live) {
		end = len(live)
	}
	return live[offset:end], nil
}

func (s *Store) ListFiltered(_ context.Context, userID int64, f core.TransactionFilter, limit, offset int) ([]core.Transaction, int64, error) {
	q := f.Query(userID)
	s.mu.Lock()
	var hits []core.Transaction
	for _, t := range s.items {
		if matches(t, q) {
			hits = append(hits, t)
		}
	}
	s.mu.Unlock()

	if f.Sort == core.SortAsc {
		sort.Slice(hits, func(i, j int) bool { return before(hits[j], hits[i]) })
	} else {
		sort.Slice(hits, func(i, j int) bool { return before(hits[i], hits[j]) })
	}
	total := int64(len(hits))
	if offset >= len(hits) {
		return []core.Transaction{}, total, nil
	}
	end := offset + limit
	if end > len(hits) {
		end = len(hits)
	}
	return hits[offset:end], total, nil
}

func (s *Store) CountRows(_ context.Context, userID int64, withDeleted bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, t := range s.items {
		if t.UserID == userID && (withDeleted || !t.IsDeleted()) {
			n++
		}
	}
	return n, nil
}

func (s *Store) TransactionYears(_ context.Context, userID int64, withDeleted bool) ([]int, error) {
	s.mu.Lock()
	seen := map[int]struct{}{}
	for _, t := range s.items {
		if t.UserID == userID && (withDeleted || !t.IsDeleted()) {
			seen[t.TransactionDate.Year()] = struct{}{}
		}
	}
	s.mu.Unlock()

	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years, nil
}

func (s *Store) Close() error { return nil }

func matches(t core.Transaction, q core.AggregateQuery) bool {
	if t.UserID != q.UserID || t.IsDeleted() {
		return false
	}
	if q.Type != "" && t.Type != q.Type {
		return false
	}
	if q.Category != "" && t.Category != q.Category {
		return false
	}
	return q.Range.IsUnbounded() || q.Range.Contains(t.TransactionDate)
}

// before orders by transaction date desc, created at desc, id desc.
func before(a, b core.Transaction) bool {
	if !a.TransactionDate.Equal(b.TransactionDate.Time) {
		return a.TransactionDate.After(b.TransactionDate.Time)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
