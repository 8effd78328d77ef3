// Package money converts integer nano-unit amounts to exact decimal
// display strings. Arithmetic in the coordinator stays integer; decimal
// is only used at the presentation edge.
package money

import "github.com/shopspring/decimal"

// NanoPerUnit is the number of nano-units in one whole currency unit.
const NanoPerUnit = 1_000_000_000

// FromNano returns the exact decimal value of n nano-units in whole units.
func FromNano(n int64) decimal.Decimal {
	return decimal.New(n, -9)
}

// FormatNano renders n nano-units as a whole-unit decimal string,
// e.g. 1_500_000_000 → "1.5".
func FormatNano(n int64) string {
	return FromNano(n).String()
}
