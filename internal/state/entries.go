package state

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"budgeto/internal/core"
	"budgeto/internal/log"
)

func checkCategory(st *core.AppState, e core.Entry) error {
	cat, ok := st.FindCategory(e.CategoryID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, e.CategoryID)
	}
	if e.SubcategoryID == "" {
		return nil
	}
	for _, sub := range cat.Subcategories {
		if sub.ID == e.SubcategoryID {
			return nil
		}
	}
	return fmt.Errorf("%w: %q in %q", ErrUnknownSubcategory, e.SubcategoryID, e.CategoryID)
}

// AddFixed stores a new recurring entry with a generated id.
func (s *Store) AddFixed(ctx context.Context, e core.Entry) (core.FixedEntry, error) {
	if err := e.Validate(); err != nil {
		return core.FixedEntry{}, err
	}
	return WithLock(ctx, s, func(st *core.AppState) (core.FixedEntry, error) {
		if err := checkCategory(st, e); err != nil {
			return core.FixedEntry{}, err
		}
		f := core.FixedEntry{ID: uuid.NewString(), Entry: e}
		st.FixedEntries = append(st.FixedEntries, f)
		s.logger.InfoContext(ctx, "fixed entry added", log.NewFields().WithOperation(log.OpCreate).WithEntry(f.ID, e.CategoryID).WithMoney(e.Money).ToSlice()...)
		return f, nil
	})
}

// AddVariable stores a one-off entry. A zero at means now. Entries are kept
// newest first.
func (s *Store) AddVariable(ctx context.Context, e core.Entry, at time.Time, geo *core.Geo) (core.VariableEntry, error) {
	if at.IsZero() {
		at = s.cal.NowLocal()
	}
	v := core.VariableEntry{ID: uuid.NewString(), Timestamp: at.UnixMilli(), Geo: geo, Entry: e}
	if err := v.Validate(); err != nil {
		return core.VariableEntry{}, err
	}
	return WithLock(ctx, s, func(st *core.AppState) (core.VariableEntry, error) {
		if err := checkCategory(st, e); err != nil {
			return core.VariableEntry{}, err
		}
		i := 0
		for i < len(st.VariableEntries) && st.VariableEntries[i].Timestamp >= v.Timestamp {
			i++
		}
		st.VariableEntries = append(st.VariableEntries, core.VariableEntry{})
		copy(st.VariableEntries[i+1:], st.VariableEntries[i:])
		st.VariableEntries[i] = v
		s.logger.InfoContext(ctx, "variable entry added", log.NewFields().WithOperation(log.OpCreate).WithEntry(v.ID, e.CategoryID).WithMoney(e.Money).ToSlice()...)
		return v, nil
	})
}

// DeleteEntry removes the fixed or variable entry with id. It reports false
// when no entry matched, in which case nothing is written.
func (s *Store) DeleteEntry(ctx context.Context, id string) (bool, error) {
	st, err := s.LoadInitialized(ctx)
	if err != nil {
		return false, err
	}
	if !hasEntry(st, id) {
		return false, nil
	}
	return WithLock(ctx, s, func(st *core.AppState) (bool, error) {
		for i, f := range st.FixedEntries {
			if f.ID == id {
				st.FixedEntries = append(st.FixedEntries[:i], st.FixedEntries[i+1:]...)
				s.logger.InfoContext(ctx, "fixed entry deleted", log.FieldOperation, log.OpDelete, log.FieldEntryID, id)
				return true, nil
			}
		}
		for i, v := range st.VariableEntries {
			if v.ID == id {
				st.VariableEntries = append(st.VariableEntries[:i], st.VariableEntries[i+1:]...)
				s.logger.InfoContext(ctx, "variable entry deleted", log.FieldOperation, log.OpDelete, log.FieldEntryID, id)
				return true, nil
			}
		}
		// removed by someone else between the check and the lock
		return false, nil
	})
}

func hasEntry(st *core.AppState, id string) bool {
	for _, f := range st.FixedEntries {
		if f.ID == id {
			return true
		}
	}
	for _, v := range st.VariableEntries {
		if v.ID == id {
			return true
		}
	}
	return false
}

// SetDefaultCurrency converts every entry into code at the fixed rates and
// makes code the default. It reports false when code was already the
// default.
func (s *Store) SetDefaultCurrency(ctx context.Context, code core.Currency) (bool, error) {
	if _, err := core.GetCurrencyInfo(code); err != nil {
		return false, err
	}
	st, err := s.LoadInitialized(ctx)
	if err != nil {
		return false, err
	}
	if st.DefaultCurrency == code {
		return false, nil
	}

	return withLockKind(ctx, s, ChangeCurrencyChanged, func(st *core.AppState) (bool, error) {
		from := st.DefaultCurrency
		for i := range st.FixedEntries {
			m, err := core.ConvertCurrency(st.FixedEntries[i].Money, code)
			if err != nil {
				return false, err
			}
			st.FixedEntries[i].Money = m
		}
		for i := range st.VariableEntries {
			m, err := core.ConvertCurrency(st.VariableEntries[i].Money, code)
			if err != nil {
				return false, err
			}
			st.VariableEntries[i].Money = m
		}
		st.DefaultCurrency = code
		s.logger.InfoContext(ctx, "default currency changed",
			log.FieldOperation, log.OpConvert,
			log.FieldFrom, string(from),
			log.FieldTo, string(code),
			log.FieldCount, len(st.FixedEntries)+len(st.VariableEntries))
		return true, nil
	})
}

// Summary totals the current month in display, or in the default currency
// when display is empty.
func (s *Store) Summary(ctx context.Context, display core.Currency) (core.MonthOverview, error) {
	st, err := s.LoadInitialized(ctx)
	if err != nil {
		return core.MonthOverview{}, err
	}
	if display == "" {
		display = st.DefaultCurrency
	}
	start, end := s.cal.MonthBounds(s.cal.NowLocal())
	return core.Overview(st, display, start, end)
}
