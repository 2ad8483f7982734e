package core

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		in   float64
		code Currency
		out  int64
	}{
		{100, DKK, 10000},
		{123.45, DKK, 12345},
		{0.1 + 0.2, DKK, 30},
		{1.005, EUR, 101}, // half away from zero
		{-1.005, EUR, -101},
		{0, USD, 0},
		{19.99, GBP, 1999},
	}
	for _, tc := range cases {
		got, err := ToMinorUnits(tc.in, tc.code)
		if err != nil || got != tc.out {
			t.Fatalf("%v %s expected %d, got %d (err=%v)", tc.in, tc.code, tc.out, got, err)
		}
	}
}

func TestToMinorUnitsRejects(t *testing.T) {
	_, err := ToMinorUnits(math.NaN(), DKK)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ToMinorUnits(math.Inf(1), DKK)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ToMinorUnits(1e30, DKK)
	assert.ErrorIs(t, err, ErrAmountOverflow)

	_, err = ToMinorUnits(1, Currency("XYZ"))
	assert.ErrorIs(t, err, ErrUnknownCurrency)
}

func TestToMajorUnits(t *testing.T) {
	got, err := ToMajorUnits(12345, DKK)
	require.NoError(t, err)
	assert.Equal(t, 123.45, got)

	got, err = ToMajorUnits(-5, USD)
	require.NoError(t, err)
	assert.Equal(t, -0.05, got)
}

func TestMinorMajorIdempotent(t *testing.T) {
	for _, x := range []float64{0, 0.01, 0.1, 1, 12.3, 123.45, 999999.99, -42.5} {
		for _, code := range SupportedCurrencies {
			minor, err := ToMinorUnits(x, code)
			require.NoError(t, err)
			back, err := ToMajorUnits(minor, code)
			require.NoError(t, err)
			if back != x {
				t.Fatalf("%v %s came back as %v", x, code, back)
			}
		}
	}
}

func TestGetCurrencyInfo(t *testing.T) {
	for _, code := range SupportedCurrencies {
		info, err := GetCurrencyInfo(code)
		require.NoError(t, err, code)
		assert.Equal(t, code, info.Code)
		assert.Equal(t, 2, info.MinorUnitDigits)
	}

	info, err := GetCurrencyInfo(EUR)
	require.NoError(t, err)
	assert.Equal(t, "€", info.Symbol)
	assert.Equal(t, SymbolBefore, info.SymbolPosition)

	_, err = GetCurrencyInfo("BTC")
	if !errors.Is(err, ErrUnknownCurrency) {
		t.Fatalf("expected ErrUnknownCurrency, got %v", err)
	}
}

func TestParseCurrency(t *testing.T) {
	got, err := ParseCurrency(" eur ")
	require.NoError(t, err)
	assert.Equal(t, EUR, got)

	_, err = ParseCurrency("dk")
	assert.ErrorIs(t, err, ErrUnknownCurrency)
}

func TestMoneyValidate(t *testing.T) {
	if err := DKKMoney(1).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := DKKMoney(0).Validate(); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}
	if err := (Money{Amount: 1, Currency: "XXX"}).Validate(); !errors.Is(err, ErrUnknownCurrency) {
		t.Fatalf("expected ErrUnknownCurrency, got %v", err)
	}
}

func TestDKKOre(t *testing.T) {
	ore, err := DKKMoney(4500).DKKOre()
	require.NoError(t, err)
	assert.Equal(t, int64(4500), ore)

	_, err = Money{Amount: 1, Currency: EUR}.DKKOre()
	assert.Error(t, err)
}
