package memory

import (
	"context"
	"sync"

	"invoicer/internal/sheets"
)

var _ sheets.InvoiceMirror = (*Mirror)(nil)

// Mirror is an in-process InvoiceMirror. The worker falls back to it when
// no spreadsheet is configured.
type Mirror struct {
	mu     sync.Mutex
	header []string
	rows   [][]string
}

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) Upsert(_ context.Context, key string, row []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row = append([]string(nil), row...)
	if i := m.indexOf(key); i >= 0 {
		m.rows[i] = row
		return nil
	}
	m.rows = append(m.rows, row)
	return nil
}

func (m *Mirror) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.indexOf(key); i >= 0 {
		m.rows = append(m.rows[:i], m.rows[i+1:]...)
	}
	return nil
}

func (m *Mirror) Replace(_ context.Context, header []string, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.header = append([]string(nil), header...)
	m.rows = make([][]string, 0, len(rows))
	for _, r := range rows {
		m.rows = append(m.rows, append([]string(nil), r...))
	}
	return nil
}

// Rows returns a copy of the current rows without the header.
func (m *Mirror) Rows() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([][]string, len(m.rows))
	for i, r := range m.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Header returns the header written by the last Replace.
func (m *Mirror) Header() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.header...)
}

func (m *Mirror) indexOf(key string) int {
	for i, r := range m.rows {
		if len(r) > 0 && r[0] == key {
			return i
		}
	}
	return -1
}
