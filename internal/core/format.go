package core

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Locale selects digit grouping for display. It does not change which
// currency symbol is used or where it goes.
type Locale string

const (
	LocaleDA Locale = "da"
	LocaleEN Locale = "en"
)

var ErrUnknownLocale = errors.New("unknown locale")

type numberStyle struct {
	decimal  string
	thousand string
}

var localeStyles = map[Locale]numberStyle{
	LocaleDA: {decimal: ",", thousand: "."},
	LocaleEN: {decimal: ".", thousand: ","},
}

// ParseLocale accepts "da" or "en".
func ParseLocale(s string) (Locale, error) {
	l := Locale(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := localeStyles[l]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLocale, s)
	}
	return l, nil
}

// FormatMoney renders m for display. The locale decides the separators,
// the currency decides the symbol and its position.
//
// Examples:
//
//	FormatMoney(Money{12345, DKK}, true, LocaleDA)  -> "123,45 kr"
//	FormatMoney(Money{100000, EUR}, true, LocaleDA) -> "€1.000,00"
//	FormatMoney(Money{12345, USD}, true, LocaleEN)  -> "$123.45"
func FormatMoney(m Money, includeSymbol bool, locale Locale) (string, error) {
	info, err := GetCurrencyInfo(m.Currency)
	if err != nil {
		return "", err
	}
	style, ok := localeStyles[locale]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLocale, string(locale))
	}

	major, err := m.Major()
	if err != nil {
		return "", err
	}
	fixed := major.Abs().StringFixed(int32(info.MinorUnitDigits))
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	number := groupThousands(intPart, style.thousand)
	if info.MinorUnitDigits > 0 {
		number += style.decimal + fracPart
	}

	sign := ""
	if m.Amount < 0 {
		sign = "-"
	}
	if !includeSymbol {
		return sign + number, nil
	}
	if info.SymbolPosition == SymbolBefore {
		return sign + info.Symbol + number, nil
	}
	return sign + number + " " + info.Symbol, nil
}

func groupThousands(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

var symbolPatterns = buildSymbolPatterns()

func buildSymbolPatterns() map[Currency]*regexp.Regexp {
	patterns := make(map[Currency]*regexp.Regexp, len(currencyInfo))
	for code, info := range currencyInfo {
		patterns[code] = regexp.MustCompile("(?i)" + regexp.QuoteMeta(info.Symbol))
	}
	return patterns
}

// ParseMoney reads a user-typed amount in code's currency.
//
// Whichever of ',' and '.' occurs last is the decimal separator; any other
// separators are dropped. The fraction is padded or cut to the currency's
// minor digits, so "1.234" reads as 1.23 and not 1234.
//
// Examples:
//
//	ParseMoney("1.234,56", DKK) -> {123456 DKK}
//	ParseMoney("1,234.56", DKK) -> {123456 DKK}
//	ParseMoney("-123,45", DKK)  -> {-12345 DKK}
//	ParseMoney("abc", EUR)      -> ErrInvalidAmount
func ParseMoney(input string, code Currency) (Money, error) {
	info, err := GetCurrencyInfo(code)
	if err != nil {
		return Money{}, err
	}
	if strings.TrimSpace(input) == "" {
		return Money{}, ErrInvalidAmount
	}

	cleaned := symbolPatterns[code].ReplaceAllString(input, "")
	cleaned = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cleaned)

	negative := strings.HasPrefix(cleaned, "-")
	if negative {
		cleaned = cleaned[1:]
	}

	intPart, fracPart := cleaned, ""
	if idx := strings.LastIndexAny(cleaned, ",."); idx >= 0 {
		intPart, fracPart = cleaned[:idx], cleaned[idx+1:]
	}
	intPart = strings.NewReplacer(",", "", ".", "").Replace(intPart)
	if intPart == "" && fracPart == "" {
		return Money{}, ErrInvalidAmount
	}

	digits := info.MinorUnitDigits
	if len(fracPart) > digits {
		fracPart = fracPart[:digits]
	}
	fracPart += strings.Repeat("0", digits-len(fracPart))

	number := intPart + fracPart
	if number == "" || !isASCIIDigits(number) {
		return Money{}, ErrInvalidAmount
	}
	amount, err := strconv.ParseInt(number, 10, 64)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if negative {
		amount = -amount
	}
	return Money{Amount: amount, Currency: code}, nil
}

func isASCIIDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatDKK formats øre as Danish kroner with symbol.
//
// Deprecated: use FormatMoney.
func FormatDKK(ore int64) string {
	s, _ := FormatMoney(DKKMoney(ore), true, LocaleDA)
	return s
}

// ParseDKK parses a kroner string into øre.
//
// Deprecated: use ParseMoney.
func ParseDKK(input string) (int64, error) {
	m, err := ParseMoney(input, DKK)
	if err != nil {
		return 0, err
	}
	return m.Amount, nil
}
