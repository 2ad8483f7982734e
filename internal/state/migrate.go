package state

import (
	"fmt"

	"budgeto/internal/core"
)

// migration upgrades a document from version n-1 to n. It must be pure and
// safe to call on a document that already has the target shape.
type migration func(Document) Document

// migrations[n] upgrades version n to n+1.
var migrations = map[int]migration{
	1: migrateV1ToV2,
}

// migrateV1ToV2 adds defaultCurrency and gives every entry a money field
// derived from its DKK øre amount.
func migrateV1ToV2(doc Document) Document {
	if doc.DefaultCurrency == "" {
		doc.DefaultCurrency = core.DKK
	}
	fixed := make([]FixedRecord, len(doc.FixedEntries))
	for i, f := range doc.FixedEntries {
		f.EntryRecord = withMoney(f.EntryRecord)
		fixed[i] = f
	}
	variable := make([]VariableRecord, len(doc.VariableEntries))
	for i, v := range doc.VariableEntries {
		v.EntryRecord = withMoney(v.EntryRecord)
		variable[i] = v
	}
	doc.FixedEntries = fixed
	doc.VariableEntries = variable
	doc.Version = 2
	return doc
}

func withMoney(r EntryRecord) EntryRecord {
	if r.Money == nil {
		m := core.DKKMoney(r.LegacyAmountMinor)
		r.Money = &m
	}
	return r
}

// upgrade runs every migration between doc.Version and CurrentVersion.
// A missing version is read as 1. It returns the version it started from.
func upgrade(doc Document) (Document, int, error) {
	from := doc.Version
	if from == 0 {
		from = 1
		doc.Version = 1
	}
	if from > CurrentVersion {
		return doc, from, fmt.Errorf("%w: %d is newer than %d", ErrUnsupportedVersion, from, CurrentVersion)
	}
	for v := from; v < CurrentVersion; v++ {
		m, ok := migrations[v]
		if !ok {
			return doc, from, fmt.Errorf("%w: no migration from %d", ErrUnsupportedVersion, v)
		}
		doc = m(doc)
	}
	return doc, from, nil
}

// migrateCategories fills displayNameKey from the id wherever it is missing.
// It reports whether anything changed.
func migrateCategories(cats []core.Category) ([]core.Category, bool) {
	changed := false
	out := make([]core.Category, len(cats))
	for i, c := range cats {
		if c.DisplayNameKey == "" {
			c.DisplayNameKey = displayNameKey(c.ID)
			changed = true
		}
		if len(c.Subcategories) > 0 {
			subs := make([]core.Subcategory, len(c.Subcategories))
			for j, s := range c.Subcategories {
				if s.DisplayNameKey == "" {
					s.DisplayNameKey = displayNameKey(s.ID)
					changed = true
				}
				subs[j] = s
			}
			c.Subcategories = subs
		}
		out[i] = c
	}
	return out, changed
}

func displayNameKey(id string) string {
	return "categories." + id
}
