package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// exchangeRates are units of each currency per 1 DKK. They are fixed and
// will drift from market rates until a live feed is added.
var exchangeRates = map[Currency]decimal.Decimal{
	DKK: decimal.NewFromInt(1),
	EUR: decimal.RequireFromString("0.134"),
	USD: decimal.RequireFromString("0.145"),
	GBP: decimal.RequireFromString("0.115"),
	SEK: decimal.RequireFromString("1.52"),
	NOK: decimal.RequireFromString("1.55"),
}

func rateOf(code Currency) (decimal.Decimal, error) {
	r, ok := exchangeRates[code]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownCurrency, string(code))
	}
	return r, nil
}

// GetExchangeRate returns how many units of to one unit of from buys.
// It is exactly 1 when from == to.
func GetExchangeRate(from, to Currency) (float64, error) {
	rf, err := rateOf(from)
	if err != nil {
		return 0, err
	}
	rt, err := rateOf(to)
	if err != nil {
		return 0, err
	}
	if from == to {
		return 1, nil
	}
	return rt.DivRound(rf, 16).InexactFloat64(), nil
}

// ConvertCurrency converts m into target through DKK and rounds to whole
// minor units. Same-currency conversion returns m unchanged.
func ConvertCurrency(m Money, target Currency) (Money, error) {
	rf, err := rateOf(m.Currency)
	if err != nil {
		return Money{}, err
	}
	rt, err := rateOf(target)
	if err != nil {
		return Money{}, err
	}
	if m.Currency == target {
		return m, nil
	}

	converted := decimal.NewFromInt(m.Amount).DivRound(rf, 16).Mul(rt).Round(0)
	if converted.GreaterThan(maxMinor) || converted.LessThan(minMinor) {
		return Money{}, ErrAmountOverflow
	}
	return Money{Amount: converted.IntPart(), Currency: target}, nil
}
