package shared

import "github.com/shopspring/decimal"

// MinorUnit is the smallest representable currency amount.
var MinorUnit = decimal.New(1, -2)

// Round2 rounds an amount to the minor currency unit.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// IsNegligible reports whether |d| is below one minor unit.
func IsNegligible(d decimal.Decimal) bool {
	return d.Abs().LessThan(MinorUnit)
}

// HasMinorUnitPrecision reports whether d carries at most two decimals.
func HasMinorUnitPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}

// MustDecimal parses a literal amount and panics on malformed input. Intended
// for constants and tests.
func MustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
