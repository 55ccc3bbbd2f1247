package api

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	errNegativeAmount = errors.New("must not be negative")
	errAmountScale    = errors.New("at most two decimal places")
	errAmountRange    = errors.New("out of range")
)

// maxCents caps a single amount at one hundred billion currency units.
var maxCents = decimal.New(1, 13)

// Exponent bounds checked before any arithmetic; Shift, IsInteger and
// GreaterThan all cost time proportional to the exponent's magnitude.
const (
	minExponent = -20
	maxExponent = 13
)

// toCents converts a currency amount to integer cents without rounding.
func toCents(d decimal.Decimal) (int64, error) {
	switch exp := d.Exponent(); {
	case exp < minExponent:
		return 0, errAmountScale
	case exp > maxExponent:
		return 0, errAmountRange
	}
	if d.IsNegative() {
		return 0, errNegativeAmount
	}
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, errAmountScale
	}
	if cents.GreaterThan(maxCents) {
		return 0, errAmountRange
	}
	return cents.IntPart(), nil
}

// fromCents formats cents as a fixed two-decimal amount.
func fromCents(c int64) string {
	return decimal.New(c, -2).StringFixed(2)
}
