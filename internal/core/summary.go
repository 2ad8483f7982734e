package core

import (
	"sort"
	"time"
)

// CategoryAmount represents expenses aggregated by category id.
type CategoryAmount struct {
	CategoryID string
	Amount     Money
}

// MonthOverview is a compact summary of one month in a single currency.
type MonthOverview struct {
	Year       int
	Month      int // 1-12
	Currency   Currency
	Income     Money
	Expenses   Money
	Net        Money
	ByCategory []CategoryAmount
}

// Overview totals fixed entries and the variable entries that fall inside
// [start, end), converted to display. ByCategory holds expenses only, largest
// first.
func Overview(s *AppState, display Currency, start, end time.Time) (MonthOverview, error) {
	if _, err := GetCurrencyInfo(display); err != nil {
		return MonthOverview{}, err
	}
	ov := MonthOverview{
		Year:     start.Year(),
		Month:    int(start.Month()),
		Currency: display,
		Income:   Money{Currency: display},
		Expenses: Money{Currency: display},
		Net:      Money{Currency: display},
	}
	byCat := map[string]int64{}

	add := func(e Entry) error {
		m, err := ConvertCurrency(e.Money, display)
		if err != nil {
			return err
		}
		switch e.Type {
		case Income:
			ov.Income.Amount += m.Amount
		case Expense:
			ov.Expenses.Amount += m.Amount
			byCat[e.CategoryID] += m.Amount
		}
		return nil
	}

	for _, f := range s.FixedEntries {
		if err := add(f.Entry); err != nil {
			return MonthOverview{}, err
		}
	}
	for _, v := range s.VariableEntries {
		ts := v.Time()
		if ts.Before(start) || !ts.Before(end) {
			continue
		}
		if err := add(v.Entry); err != nil {
			return MonthOverview{}, err
		}
	}

	ov.Net.Amount = ov.Income.Amount - ov.Expenses.Amount
	for id, amt := range byCat {
		ov.ByCategory = append(ov.ByCategory, CategoryAmount{CategoryID: id, Amount: Money{Amount: amt, Currency: display}})
	}
	sort.Slice(ov.ByCategory, func(i, j int) bool {
		if ov.ByCategory[i].Amount.Amount != ov.ByCategory[j].Amount.Amount {
			return ov.ByCategory[i].Amount.Amount > ov.ByCategory[j].Amount.Amount
		}
		return ov.ByCategory[i].CategoryID < ov.ByCategory[j].CategoryID
	})
	return ov, nil
}
