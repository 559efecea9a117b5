package memory

import (
	"context"
	"fmt"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

var _ sheets.TransactionExporter = (*Exporter)(nil)

// Exporter keeps exported rows in memory, one per transaction id, in the
// order they were first exported.
type Exporter struct {
	mu    sync.Mutex
	index map[int64]int
	rows  [][]any
}

func New() *Exporter {
	return &Exporter{index: map[int64]int{}}
}

// Export stores the row and returns a synthetic row reference.
func (e *Exporter) Export(_ context.Context, t core.Transaction) (string, error) {
	if t.ID == 0 {
		return "", fmt.Errorf("export transaction: %w", core.ErrNotFound)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	row := sheets.Row(t)
	i, ok := e.index[t.ID]
	if !ok {
		i = len(e.rows)
		e.index[t.ID] = i
		e.rows = append(e.rows, row)
	} else {
		e.rows[i] = row
	}
	return fmt.Sprintf("mem:%d", i+1), nil
}

// Rows returns a copy of the exported rows.
func (e *Exporter) Rows() [][]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]any, len(e.rows))
	for i, r := range e.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
