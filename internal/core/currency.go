package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DKK Currency = "DKK"
	EUR Currency = "EUR"
	USD Currency = "USD"
	GBP Currency = "GBP"
	SEK Currency = "SEK"
	NOK Currency = "NOK"
)

const (
	SymbolBefore SymbolPosition = "before"
	SymbolAfter  SymbolPosition = "after"
)

type (
	// Currency is an ISO 4217 code from the supported set.
	Currency string

	SymbolPosition string

	// CurrencyInfo describes how a currency is written. MinorUnitDigits is 2
	// for every supported currency.
	CurrencyInfo struct {
		Code              Currency
		Symbol            string
		DisplayName       string
		MinorUnitDigits   int
		SymbolPosition    SymbolPosition
		DecimalSeparator  string
		ThousandSeparator string
	}
)

var ErrUnknownCurrency = errors.New("unknown currency")

// SupportedCurrencies lists every currency in display order.
var SupportedCurrencies = []Currency{DKK, EUR, USD, GBP, SEK, NOK}

var currencyInfo = map[Currency]CurrencyInfo{
	DKK: {Code: DKK, Symbol: "kr", DisplayName: "Danske kroner", MinorUnitDigits: 2, SymbolPosition: SymbolAfter, DecimalSeparator: ",", ThousandSeparator: "."},
	EUR: {Code: EUR, Symbol: "€", DisplayName: "Euro", MinorUnitDigits: 2, SymbolPosition: SymbolBefore, DecimalSeparator: ",", ThousandSeparator: "."},
	USD: {Code: USD, Symbol: "$", DisplayName: "US Dollar", MinorUnitDigits: 2, SymbolPosition: SymbolBefore, DecimalSeparator: ".", ThousandSeparator: ","},
	GBP: {Code: GBP, Symbol: "£", DisplayName: "Britiske pund", MinorUnitDigits: 2, SymbolPosition: SymbolBefore, DecimalSeparator: ".", ThousandSeparator: ","},
	SEK: {Code: SEK, Symbol: "kr", DisplayName: "Svenske kroner", MinorUnitDigits: 2, SymbolPosition: SymbolAfter, DecimalSeparator: ",", ThousandSeparator: " "},
	NOK: {Code: NOK, Symbol: "kr", DisplayName: "Norske kroner", MinorUnitDigits: 2, SymbolPosition: SymbolAfter, DecimalSeparator: ",", ThousandSeparator: " "},
}

// GetCurrencyInfo returns the metadata for code or ErrUnknownCurrency.
func GetCurrencyInfo(code Currency) (CurrencyInfo, error) {
	info, ok := currencyInfo[code]
	if !ok {
		return CurrencyInfo{}, fmt.Errorf("%w: %q", ErrUnknownCurrency, string(code))
	}
	return info, nil
}

// ParseCurrency accepts a code in any letter case, e.g. "eur".
func ParseCurrency(s string) (Currency, error) {
	code := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if _, err := GetCurrencyInfo(code); err != nil {
		return "", err
	}
	return code, nil
}

func (c Currency) String() string {
	return string(c)
}

// IsValid returns true if c is in the supported set
func (c Currency) IsValid() bool {
	_, ok := currencyInfo[c]
	return ok
}
