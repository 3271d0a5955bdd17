// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals (rupiah with an optional fractional part).
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseDecimal converts a human-entered number to an exact decimal.
//
// It accepts dot (12.5) or comma (12,5) as the decimal separator and an optional
// leading sign. Thousands separators are not supported.
//
// Examples:
//
//	ParseDecimal("12.5")  -> 12.5, nil
//	ParseDecimal("12,5")  -> 12.5, nil
//	ParseDecimal("-200000") -> -200000, nil
func ParseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	body := strings.TrimLeft(s, "+-")
	if len(s)-len(body) > 1 || body == "" || strings.Count(body, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range body {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(strings.TrimPrefix(s, "+"))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
