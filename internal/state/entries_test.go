package state

import (
	"time"

	"budgeto/internal/core"
)

func expense(cat, sub string, m core.Money) core.Entry {
	return core.Entry{Type: core.Expense, CategoryID: cat, SubcategoryID: sub, Money: m}
}

func (s *StoreSuite) TestAddFixed() {
	f, err := s.store.AddFixed(s.ctx, expense("bolig", "husleje", core.DKKMoney(850000)))
	s.Require().NoError(err)
	s.NotEmpty(f.ID)

	st, err := s.store.LoadInitialized(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(st.FixedEntries, 1)
	s.Equal(f, st.FixedEntries[0])
}

func (s *StoreSuite) TestAddRejectsUnknownCategories() {
	_, err := s.store.AddFixed(s.ctx, expense("nope", "", core.DKKMoney(100)))
	s.ErrorIs(err, ErrUnknownCategory)

	_, err = s.store.AddVariable(s.ctx, expense("mad", "husleje", core.DKKMoney(100)), time.Time{}, nil)
	s.ErrorIs(err, ErrUnknownSubcategory)

	_, err = s.store.AddFixed(s.ctx, expense("mad", "", core.DKKMoney(0)))
	s.ErrorIs(err, core.ErrInvalidAmount)
}

func (s *StoreSuite) TestAddVariableKeepsNewestFirst() {
	base := s.clock.Now()
	at := []time.Time{base.Add(-2 * time.Hour), base, base.Add(-time.Hour)}
	for _, t := range at {
		_, err := s.store.AddVariable(s.ctx, expense("mad", "cafe", core.DKKMoney(4500)), t, nil)
		s.Require().NoError(err)
	}
	geo := &core.Geo{Lat: 55.676, Lng: 12.568}
	v, err := s.store.AddVariable(s.ctx, expense("mad", "", core.Money{Amount: 1250, Currency: core.EUR}), time.Time{}, geo)
	s.Require().NoError(err)
	s.Equal(base.UnixMilli(), v.Timestamp)

	st, err := s.store.LoadInitialized(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(st.VariableEntries, 4)
	for i := 1; i < len(st.VariableEntries); i++ {
		s.GreaterOrEqual(st.VariableEntries[i-1].Timestamp, st.VariableEntries[i].Timestamp)
	}
	s.Equal(base.Add(-2*time.Hour).UnixMilli(), st.VariableEntries[3].Timestamp)
}

func (s *StoreSuite) TestDeleteEntry() {
	f, err := s.store.AddFixed(s.ctx, expense("bolig", "el", core.DKKMoney(45000)))
	s.Require().NoError(err)
	v, err := s.store.AddVariable(s.ctx, expense("mad", "cafe", core.DKKMoney(4500)), time.Time{}, nil)
	s.Require().NoError(err)

	ok, err := s.store.DeleteEntry(s.ctx, f.ID)
	s.Require().NoError(err)
	s.True(ok)
	ok, err = s.store.DeleteEntry(s.ctx, v.ID)
	s.Require().NoError(err)
	s.True(ok)

	before := s.raw()
	ok, err = s.store.DeleteEntry(s.ctx, "missing")
	s.Require().NoError(err)
	s.False(ok)
	s.Equal(before, s.raw())

	st, err := s.store.LoadInitialized(s.ctx)
	s.Require().NoError(err)
	s.Empty(st.FixedEntries)
	s.Empty(st.VariableEntries)
}

func (s *StoreSuite) TestSetDefaultCurrencyConvertsEntries() {
	_, err := s.store.AddFixed(s.ctx, expense("bolig", "husleje", core.DKKMoney(10000)))
	s.Require().NoError(err)

	changed, err := s.store.SetDefaultCurrency(s.ctx, core.EUR)
	s.Require().NoError(err)
	s.True(changed)

	st, err := s.store.LoadInitialized(s.ctx)
	s.Require().NoError(err)
	s.Equal(core.EUR, st.DefaultCurrency)
	s.Equal(core.Money{Amount: 1340, Currency: core.EUR}, st.FixedEntries[0].Money)

	before := s.raw()
	changed, err = s.store.SetDefaultCurrency(s.ctx, core.EUR)
	s.Require().NoError(err)
	s.False(changed)
	s.Equal(before, s.raw())

	_, err = s.store.SetDefaultCurrency(s.ctx, core.Currency("XYZ"))
	s.ErrorIs(err, core.ErrUnknownCurrency)
}

func (s *StoreSuite) TestSummary() {
	_, err := s.store.AddFixed(s.ctx, core.Entry{Type: core.Income, CategoryID: "lon", Money: core.DKKMoney(3500000)})
	s.Require().NoError(err)
	_, err = s.store.AddFixed(s.ctx, expense("bolig", "husleje", core.DKKMoney(850000)))
	s.Require().NoError(err)
	_, err = s.store.AddVariable(s.ctx, expense("mad", "cafe", core.DKKMoney(4550)), time.Time{}, nil)
	s.Require().NoError(err)

	ov, err := s.store.Summary(s.ctx, "")
	s.Require().NoError(err)
	s.Equal(2025, ov.Year)
	s.Equal(3, ov.Month)
	s.Equal(core.DKK, ov.Currency)
	s.Equal(int64(3500000), ov.Income.Amount)
	s.Equal(int64(854550), ov.Expenses.Amount)
	s.Equal(int64(2645450), ov.Net.Amount)
	s.Require().Len(ov.ByCategory, 2)
	s.Equal("bolig", ov.ByCategory[0].CategoryID)
}
