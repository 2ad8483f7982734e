package state

import (
	"encoding/json"
	"fmt"

	"budgeto/internal/calendar"
	"budgeto/internal/core"
)

// CurrentVersion is the document version written by Save.
const CurrentVersion = 2

type (
	// Document is the persisted JSON shape. Older versions are read through
	// the same type and upgraded by migrate.
	Document struct {
		Version            int              `json:"version"`
		FixedEntries       []FixedRecord    `json:"fixedEntries"`
		VariableEntries    []VariableRecord `json:"variableEntries"`
		Categories         []core.Category  `json:"categories"`
		LastResetTimestamp *string          `json:"lastResetTimestamp"`
		DefaultCurrency    core.Currency    `json:"defaultCurrency,omitempty"`
	}

	// EntryRecord carries both amount fields. Version 1 documents only have
	// LegacyAmountMinor, always in DKK øre.
	EntryRecord struct {
		Type              core.EntryType `json:"type"`
		CategoryID        string         `json:"categoryId"`
		SubcategoryID     string         `json:"subcategoryId,omitempty"`
		LegacyAmountMinor int64          `json:"legacyAmountMinor"`
		Money             *core.Money    `json:"money,omitempty"`
		Note              string         `json:"note,omitempty"`
	}

	FixedRecord struct {
		ID string `json:"id"`
		EntryRecord
	}

	VariableRecord struct {
		ID        string    `json:"id"`
		Timestamp int64     `json:"timestamp"`
		Geo       *core.Geo `json:"geo,omitempty"`
		EntryRecord
	}
)

func decodeDocument(raw string) (*Document, error) {
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	return &doc, nil
}

func encodeDocument(doc Document) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	return string(b), nil
}

func (r EntryRecord) toEntry() core.Entry {
	m := core.DKKMoney(r.LegacyAmountMinor)
	if r.Money != nil {
		m = *r.Money
	}
	return core.Entry{
		Type:          r.Type,
		CategoryID:    r.CategoryID,
		SubcategoryID: r.SubcategoryID,
		Money:         m,
		Note:          r.Note,
	}
}

func entryRecord(e core.Entry) EntryRecord {
	m := e.Money
	return EntryRecord{
		Type:              e.Type,
		CategoryID:        e.CategoryID,
		SubcategoryID:     e.SubcategoryID,
		LegacyAmountMinor: m.Amount,
		Money:             &m,
		Note:              e.Note,
	}
}

// toState converts an already migrated document. The caller has made sure
// LastResetTimestamp parses.
func (d *Document) toState() (*core.AppState, error) {
	s := &core.AppState{
		Version:         d.Version,
		FixedEntries:    make([]core.FixedEntry, 0, len(d.FixedEntries)),
		VariableEntries: make([]core.VariableEntry, 0, len(d.VariableEntries)),
		Categories:      append([]core.Category(nil), d.Categories...),
		DefaultCurrency: d.DefaultCurrency,
	}
	if s.DefaultCurrency == "" {
		s.DefaultCurrency = core.DKK
	}
	for _, f := range d.FixedEntries {
		s.FixedEntries = append(s.FixedEntries, core.FixedEntry{ID: f.ID, Entry: f.toEntry()})
	}
	for _, v := range d.VariableEntries {
		s.VariableEntries = append(s.VariableEntries, core.VariableEntry{
			ID:        v.ID,
			Timestamp: v.Timestamp,
			Geo:       v.Geo,
			Entry:     v.toEntry(),
		})
	}
	if d.LastResetTimestamp != nil {
		t, err := calendar.ParseISO(*d.LastResetTimestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
		}
		s.LastReset = t
	}
	return s, nil
}

// documentFrom renders s as a current-version document.
func documentFrom(s *core.AppState) Document {
	doc := Document{
		Version:         CurrentVersion,
		FixedEntries:    make([]FixedRecord, 0, len(s.FixedEntries)),
		VariableEntries: make([]VariableRecord, 0, len(s.VariableEntries)),
		Categories:      s.Categories,
		DefaultCurrency: s.DefaultCurrency,
	}
	if doc.Categories == nil {
		doc.Categories = []core.Category{}
	}
	if doc.DefaultCurrency == "" {
		doc.DefaultCurrency = core.DKK
	}
	for _, f := range s.FixedEntries {
		doc.FixedEntries = append(doc.FixedEntries, FixedRecord{ID: f.ID, EntryRecord: entryRecord(f.Entry)})
	}
	for _, v := range s.VariableEntries {
		doc.VariableEntries = append(doc.VariableEntries, VariableRecord{
			ID:          v.ID,
			Timestamp:   v.Timestamp,
			Geo:         v.Geo,
			EntryRecord: entryRecord(v.Entry),
		})
	}
	if !s.LastReset.IsZero() {
		iso := calendar.FormatISO(s.LastReset)
		doc.LastResetTimestamp = &iso
	}
	return doc
}
