package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

type (
	EntryType string

	Geo struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}

	// Entry holds the fields shared by fixed and variable entries.
	Entry struct {
		Type          EntryType `json:"type"`
		CategoryID    string    `json:"categoryId"`
		SubcategoryID string    `json:"subcategoryId,omitempty"`
		Money         Money     `json:"money"`
		Note          string    `json:"note,omitempty"`
	}

	// FixedEntry is a recurring monthly obligation. Rollover keeps it.
	FixedEntry struct {
		ID string `json:"id"`
		Entry
	}

	// VariableEntry is a one-off income or spend. Rollover clears it.
	VariableEntry struct {
		ID        string `json:"id"`
		Timestamp int64  `json:"timestamp"` // epoch ms
		Geo       *Geo   `json:"geo,omitempty"`
		Entry
	}

	Subcategory struct {
		ID                string `json:"id"`
		DisplayNameKey    string `json:"displayNameKey,omitempty"`
		LegacyDisplayName string `json:"legacyDisplayName,omitempty"`
		Icon              string `json:"icon"`
		Color             string `json:"color,omitempty"`
	}

	Category struct {
		ID                string        `json:"id"`
		DisplayNameKey    string        `json:"displayNameKey,omitempty"`
		LegacyDisplayName string        `json:"legacyDisplayName,omitempty"`
		Icon              string        `json:"icon"`
		Color             string        `json:"color,omitempty"`
		Subcategories     []Subcategory `json:"subcategories,omitempty"`
	}

	// AppState is the in-memory budget. Callers get their own copy and write
	// changes back through the state store.
	AppState struct {
		Version         int             `json:"version"`
		FixedEntries    []FixedEntry    `json:"fixedEntries"`
		VariableEntries []VariableEntry `json:"variableEntries"`
		Categories      []Category      `json:"categories"`
		// LastReset is the first instant of the month of the last rollover.
		// Zero means no anchor yet.
		LastReset       time.Time `json:"lastReset"`
		DefaultCurrency Currency  `json:"defaultCurrency"`
	}
)

var (
	ErrInvalidEntryType = errors.New("invalid entry type")
	ErrEmptyCategory    = errors.New("empty category")
	ErrNoteTooLong      = errors.New("note too long (max 200 characters)")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
)

func (t EntryType) IsValid() bool {
	return t == Income || t == Expense
}

// ParseEntryType accepts "income" or "expense".
func ParseEntryType(s string) (EntryType, error) {
	t := EntryType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidEntryType, s)
	}
	return t, nil
}

func (e Entry) Validate() error {
	if !e.Type.IsValid() {
		return ErrInvalidEntryType
	}
	if strings.TrimSpace(e.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if err := e.Money.Validate(); err != nil {
		return err
	}
	if len(e.Note) > 200 {
		return ErrNoteTooLong
	}
	return nil
}

func (v VariableEntry) Validate() error {
	if v.Timestamp <= 0 {
		return ErrInvalidTimestamp
	}
	return v.Entry.Validate()
}

// Signed returns the entry amount with expenses negative.
func (e Entry) Signed() Money {
	if e.Type == Expense {
		return e.Money.Neg()
	}
	return e.Money
}

// Time returns the entry timestamp as a time.Time.
func (v VariableEntry) Time() time.Time {
	return time.UnixMilli(v.Timestamp)
}

// FindCategory returns the category with id, if present.
func (s *AppState) FindCategory(id string) (Category, bool) {
	for _, c := range s.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// Clone returns a deep copy so that callers cannot alias stored slices.
func (s *AppState) Clone() *AppState {
	if s == nil {
		return nil
	}
	out := *s
	out.FixedEntries = append([]FixedEntry(nil), s.FixedEntries...)
	out.VariableEntries = make([]VariableEntry, len(s.VariableEntries))
	for i, v := range s.VariableEntries {
		if v.Geo != nil {
			g := *v.Geo
			v.Geo = &g
		}
		out.VariableEntries[i] = v
	}
	out.Categories = make([]Category, len(s.Categories))
	for i, c := range s.Categories {
		c.Subcategories = append([]Subcategory(nil), c.Subcategories...)
		out.Categories[i] = c
	}
	return &out
}
