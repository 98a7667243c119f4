// Package money holds the decimal helpers shared by the calculator, the ledger
// and the stores. Amounts are shopspring decimals in major currency units.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tolerance is the threshold under which two amounts are treated as equal.
var Tolerance = decimal.New(1, -2)

// Hundred is 100, the expected sum of a percentage split.
var Hundred = decimal.NewFromInt(100)

// Round2 rounds to two decimal places (half away from zero).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Approx reports whether |a - b| <= Tolerance.
func Approx(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// IsNegligible reports whether d is within Tolerance of zero.
func IsNegligible(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(Tolerance)
}

// Sum adds all values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Parse reads a decimal string such as "12.50".
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// MustParse is Parse for constants and tests; it panics on malformed input.
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
