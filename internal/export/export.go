// Package export dumps the budget as a versioned JSON document. The dump is
// one-way: nothing reads it back.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"budgeto/internal/calendar"
	"budgeto/internal/core"
)

const (
	Version = 1
	// Currency is the label written into every export. Amounts keep their
	// own currency.
	Currency = "DKK"
)

const (
	KindFixed    = "fixed"
	KindVariable = "variable"
)

type (
	Expense struct {
		Kind          string         `json:"kind"`
		ID            string         `json:"id"`
		Type          core.EntryType `json:"type"`
		CategoryID    string         `json:"categoryId"`
		SubcategoryID string         `json:"subcategoryId,omitempty"`
		Money         core.Money     `json:"money"`
		Note          string         `json:"note,omitempty"`
		Timestamp     *int64         `json:"timestamp,omitempty"`
		Geo           *core.Geo      `json:"geo,omitempty"`
	}

	Export struct {
		Version    int       `json:"version"`
		ExportedAt string    `json:"exportedAt"`
		Currency   string    `json:"currency"`
		Expenses   []Expense `json:"expenses"`
	}

	// Sink receives finished exports.
	Sink interface {
		Write(ctx context.Context, e Export) error
	}
)

// Build lists fixed entries first, then variable entries newest first.
func Build(st *core.AppState, now time.Time) Export {
	out := Export{
		Version:    Version,
		ExportedAt: calendar.FormatISO(now),
		Currency:   Currency,
		Expenses:   make([]Expense, 0, len(st.FixedEntries)+len(st.VariableEntries)),
	}
	for _, f := range st.FixedEntries {
		out.Expenses = append(out.Expenses, expense(KindFixed, f.ID, f.Entry))
	}
	for _, v := range st.VariableEntries {
		e := expense(KindVariable, v.ID, v.Entry)
		ts := v.Timestamp
		e.Timestamp = &ts
		if v.Geo != nil {
			g := *v.Geo
			e.Geo = &g
		}
		out.Expenses = append(out.Expenses, e)
	}
	return out
}

func expense(kind, id string, e core.Entry) Expense {
	return Expense{
		Kind:          kind,
		ID:            id,
		Type:          e.Type,
		CategoryID:    e.CategoryID,
		SubcategoryID: e.SubcategoryID,
		Money:         e.Money,
		Note:          e.Note,
	}
}

// WriteJSON writes e indented by two spaces.
func WriteJSON(w io.Writer, e Export) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// FileName is budgeto-export-YYYY-MM-DD.json, dated in UTC.
func FileName(now time.Time) string {
	return "budgeto-export-" + now.UTC().Format(time.DateOnly) + ".json"
}

// FileSink writes each export into Dir under FileName.
type FileSink struct {
	Dir string
}

func (s FileSink) Path(e Export) (string, error) {
	at, err := calendar.ParseISO(e.ExportedAt)
	if err != nil {
		return "", fmt.Errorf("export timestamp: %w", err)
	}
	return filepath.Join(s.Dir, FileName(at)), nil
}

func (s FileSink) Write(_ context.Context, e Export) error {
	path, err := s.Path(e)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := WriteJSON(f, e); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriterSink writes exports to an io.Writer such as stdout.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Write(_ context.Context, e Export) error {
	return WriteJSON(s.W, e)
}
