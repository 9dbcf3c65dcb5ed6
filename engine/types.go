/*
Package engine provides the loan economics and cash-waterfall core.

PURPOSE:
  This package contains the pure computation heart of the lending system:
  rate/fee policy, offer economics, the month-by-month cash-waterfall ledger
  replay, and portfolio aggregation. Nothing in here touches a database, a
  clock, or a network - every function is deterministic over its inputs.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: currency amounts, always decimal.Decimal (never float64)
  - MonthKey: a calendar month ("2026-01") used as the ledger grain
  - Rate normalization: defends against rates stored as 20 vs 0.20

DESIGN PRINCIPLES:
  1. Purity: same inputs, byte-identical outputs. The "current date" is
     always an explicit parameter, never time.Now() inside the engine.
  2. Precision: decimal arithmetic end to end; money never rounds silently.
  3. Replayability: ledger rows are derived, recomputed on every read.

SEE ALSO:
  - policy.go:    contractual rate and fee schedule
  - offer.go:     offer economics from policy outputs
  - waterfall.go: the monthly ledger replay
  - portfolio.go: windowed aggregation and ratios
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - decimal currency helpers
// =============================================================================

// Money constructs a currency amount from a float literal.
// Intended for constants and tests; persisted values come in as strings.
func Money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// MustParseMoney parses a stored decimal string, returning zero on failure.
// Storage writes amounts with decimal.String() so a parse failure indicates
// hand-edited data rather than a code path worth an error return.
func MustParseMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// NormalizeRate reconciles the two formats annual rates have been stored in:
// a fraction (0.20) or a whole-number percentage (20). Anything above 1 is
// treated as a percentage and divided by 100.
func NormalizeRate(rate decimal.Decimal) decimal.Decimal {
	if rate.GreaterThan(decimal.NewFromInt(1)) {
		return rate.Div(decimal.NewFromInt(100))
	}
	return rate
}

// =============================================================================
// MONTH KEY - calendar-month ledger grain
// =============================================================================

// MonthKey identifies a calendar month as "YYYY-MM". Zero-padded, so
// lexicographic comparison is chronological comparison.
type MonthKey string

// MonthOf returns the MonthKey containing t.
func MonthOf(t time.Time) MonthKey {
	return MonthKey(t.UTC().Format("2006-01"))
}

func (m MonthKey) Before(other MonthKey) bool { return m < other }

// Time returns the first day of the month in UTC.
func (m MonthKey) Time() time.Time {
	t, err := time.Parse("2006-01", string(m))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Next returns the following calendar month.
func (m MonthKey) Next() MonthKey {
	return MonthOf(m.Time().AddDate(0, 1, 0))
}

func (m MonthKey) String() string { return string(m) }

// MonthsBetween counts whole calendar months from a to b inclusive of both.
// Returns 0 when b is before a.
func MonthsBetween(a, b MonthKey) int {
	at, bt := a.Time(), b.Time()
	if bt.Before(at) {
		return 0
	}
	return (bt.Year()-at.Year())*12 + int(bt.Month()) - int(at.Month()) + 1
}
