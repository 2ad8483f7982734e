// Package core provides the money model and the budget domain types.
//
// Amounts are always integers in minor units (øre, cents). Conversions to and
// from major units go through shopspring/decimal so that float inputs such as
// 0.1+0.2 land on the expected minor-unit integer.
package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money is an immutable amount in minor units tagged with its currency.
type Money struct {
	Amount   int64    `json:"amount"`
	Currency Currency `json:"currency"`
}

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountOverflow = errors.New("amount out of range")
)

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// NewMoney returns m after checking that the currency is supported.
func NewMoney(amount int64, code Currency) (Money, error) {
	if _, err := GetCurrencyInfo(code); err != nil {
		return Money{}, err
	}
	return Money{Amount: amount, Currency: code}, nil
}

// DKKMoney wraps a legacy øre amount.
func DKKMoney(ore int64) Money {
	return Money{Amount: ore, Currency: DKK}
}

// DKKOre returns the øre amount of a DKK value. Other currencies must be
// converted first.
func (m Money) DKKOre() (int64, error) {
	if m.Currency != DKK {
		return 0, fmt.Errorf("money in %s cannot be read as DKK øre", m.Currency)
	}
	return m.Amount, nil
}

// Validate requires a supported currency and a positive amount.
func (m Money) Validate() error {
	if !m.Currency.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownCurrency, string(m.Currency))
	}
	if m.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Neg returns the amount with its sign flipped.
func (m Money) Neg() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

func (m Money) IsZero() bool {
	return m.Amount == 0
}

// ToMinorUnits converts a major-unit amount (kroner, euros) to minor units,
// rounding half away from zero.
//
// Examples:
//
//	ToMinorUnits(100, DKK)     -> 10000
//	ToMinorUnits(123.45, DKK)  -> 12345
//	ToMinorUnits(0.1+0.2, DKK) -> 30
func ToMinorUnits(major float64, code Currency) (int64, error) {
	info, err := GetCurrencyInfo(code)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(major) || math.IsInf(major, 0) {
		return 0, ErrInvalidAmount
	}
	// NewFromFloat keeps the shortest decimal representation of the float,
	// so binary drift disappears before the shift.
	minor := decimal.NewFromFloat(major).Shift(int32(info.MinorUnitDigits)).Round(0)
	if minor.GreaterThan(maxMinor) || minor.LessThan(minMinor) {
		return 0, ErrAmountOverflow
	}
	return minor.IntPart(), nil
}

// ToMajorUnits converts minor units to a major-unit float for display.
// Use minor units for calculations.
func ToMajorUnits(minor int64, code Currency) (float64, error) {
	info, err := GetCurrencyInfo(code)
	if err != nil {
		return 0, err
	}
	return decimal.New(minor, -int32(info.MinorUnitDigits)).InexactFloat64(), nil
}

// Major returns the amount as a decimal in major units.
func (m Money) Major() (decimal.Decimal, error) {
	info, err := GetCurrencyInfo(m.Currency)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.New(m.Amount, -int32(info.MinorUnitDigits)), nil
}
