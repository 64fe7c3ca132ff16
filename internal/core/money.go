// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input
// and converting between decimal amounts and the cents stored in SQLite.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string to a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Signs, exponents, zero and fractions of a cent are rejected.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
//	ParseAmount("0.004") -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.ContainsAny(s, "+-eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() || !IsWholeCents(d) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// IsWholeCents reports whether d has no digits below the cent, so storing
// it as cents is exact. Trailing zeros such as 1.500 are accepted.
func IsWholeCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

// ToCents rounds half away from zero to two decimals and returns cents.
func ToCents(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

// FromCents is the inverse of ToCents.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
