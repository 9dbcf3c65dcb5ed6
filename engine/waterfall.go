/*
waterfall.go - Monthly cash-waterfall ledger replay

PURPOSE:
  Reconstructs a loan's entire ledger from first principles on every read:
  one row per calendar month from the loan's start month through the as-of
  month, replaying accruals and payments in order. There is no stored
  running balance anywhere - this function IS the ledger.

PER-MONTH SEQUENCE:
  1. ACCRUE   interest on opening principal at annual_rate / 12
  2. COLLECT  all payments dated in the month
  3. ALLOCATE the cash down the waterfall, each bucket taking the minimum
     of remaining cash and its outstanding amount:
       initiation fees -> admin fees -> interest -> principal -> overpayment
  4. FLAG     arrears: principal still outstanding in a month that has
     fully elapsed

CRITICAL INVARIANTS:
  1. DETERMINISTIC: identical inputs produce byte-identical rows. The
     as-of date is a parameter; payments are defensively sorted.
  2. DERIVED: rows are never persisted; recomputing always agrees with
     the payment history.
  3. BOUNDED: a hard 120-month cap truncates runaway replays caused by
     malformed start dates. Truncation is silent - a safety valve, not a
     business rule.

ARREARS SEMANTICS:
  The arrears amount is a coarse "behind schedule" signal: the closing
  principal of any fully-elapsed month that still carries principal. It is
  NOT days-past-due aging; downstream ratios depend on exactly this shape.
*/
package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MaxLedgerMonths caps how many rows a single replay may emit (~10 years).
const MaxLedgerMonths = 120

// accrualFloor: principal below one cent no longer accrues interest.
var accrualFloor = Money(0.01)

// =============================================================================
// INPUTS
// =============================================================================

// LoanTerms is everything the replay needs to know about a loan's contract.
// The fee totals come from the application's offer fields; the engine never
// re-derives economics.
type LoanTerms struct {
	LoanID string

	// Principal is the capital balance the waterfall recovers last.
	Principal decimal.Decimal

	// AnnualRate may arrive as 0.20 or as 20; it is normalized on use.
	AnnualRate decimal.Decimal

	// Contractual targets for the fee buckets.
	TotalInitiationFee decimal.Decimal
	TotalAdminFees     decimal.Decimal

	// TotalRepayment is the full contractual debt, reported on every row.
	TotalRepayment decimal.Decimal

	// StartDate anchors the first ledger month.
	StartDate time.Time
}

// PaymentEvent is a single cash receipt against the loan.
type PaymentEvent struct {
	ID     string
	Amount decimal.Decimal
	Date   time.Time
}

// =============================================================================
// OUTPUT
// =============================================================================

// LedgerRow is one loan-month of the replayed ledger.
type LedgerRow struct {
	Month  MonthKey
	LoanID string

	OpeningPrincipal     decimal.Decimal
	PrincipalOutstanding decimal.Decimal
	InterestReceivable   decimal.Decimal
	ArrearsAmount        decimal.Decimal
	TotalPaidToDate      decimal.Decimal
	ContractTotal        decimal.Decimal

	// Cash collected this month, by waterfall bucket.
	InitiationCollected  decimal.Decimal
	AdminCollected       decimal.Decimal
	InterestCollected    decimal.Decimal
	PrincipalCollected   decimal.Decimal
	OverpaymentCollected decimal.Decimal
	PaymentReceived      decimal.Decimal
}

// FeesCollected is the combined fee take for the month.
func (r LedgerRow) FeesCollected() decimal.Decimal {
	return r.InitiationCollected.Add(r.AdminCollected)
}

// ProfitCollected is fees plus interest - everything above capital recovery.
func (r LedgerRow) ProfitCollected() decimal.Decimal {
	return r.FeesCollected().Add(r.InterestCollected)
}

// =============================================================================
// REPLAY
// =============================================================================

// BuildLedger replays the loan's payment history month by month and returns
// one row per calendar month from the start month through the as-of month
// inclusive. It is pure: calling it twice with the same inputs yields
// identical rows.
func BuildLedger(terms LoanTerms, payments []PaymentEvent, asOf time.Time) []LedgerRow {
	if terms.StartDate.IsZero() {
		return nil
	}

	// Fixed iteration order regardless of how the store handed us payments.
	sorted := make([]PaymentEvent, len(payments))
	copy(sorted, payments)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		if !sorted[i].Amount.Equal(sorted[j].Amount) {
			return sorted[i].Amount.LessThan(sorted[j].Amount)
		}
		return sorted[i].ID < sorted[j].ID
	})

	byMonth := make(map[MonthKey]decimal.Decimal)
	for _, p := range sorted {
		k := MonthOf(p.Date)
		byMonth[k] = byMonth[k].Add(p.Amount)
	}

	monthlyRate := NormalizeRate(terms.AnnualRate).Div(twelve)
	asOfMonth := MonthOf(asOf)

	// Accumulator state, rebuilt from scratch on every call.
	initiationRemaining := terms.TotalInitiationFee
	adminRemaining := terms.TotalAdminFees
	interestReceivable := decimal.Zero
	principalOutstanding := terms.Principal
	if principalOutstanding.IsNegative() {
		principalOutstanding = decimal.Zero
	}
	totalPaidToDate := decimal.Zero

	var rows []LedgerRow
	month := MonthOf(terms.StartDate)
	for i := 0; i < MaxLedgerMonths && !asOfMonth.Before(month); i++ {
		opening := principalOutstanding

		// 1. Accrue.
		if opening.GreaterThan(accrualFloor) {
			interestReceivable = interestReceivable.Add(opening.Mul(monthlyRate))
		}

		// 2. Collect.
		cash := byMonth[month]
		totalPaidToDate = totalPaidToDate.Add(cash)
		remaining := cash

		// 3. Allocate down the waterfall.
		initiationCollected := decimal.Min(remaining, initiationRemaining)
		initiationRemaining = initiationRemaining.Sub(initiationCollected)
		remaining = remaining.Sub(initiationCollected)

		adminCollected := decimal.Min(remaining, adminRemaining)
		adminRemaining = adminRemaining.Sub(adminCollected)
		remaining = remaining.Sub(adminCollected)

		interestCollected := decimal.Min(remaining, interestReceivable)
		interestReceivable = interestReceivable.Sub(interestCollected)
		remaining = remaining.Sub(interestCollected)

		principalCollected := decimal.Min(remaining, principalOutstanding)
		principalOutstanding = decimal.Max(principalOutstanding.Sub(principalCollected), decimal.Zero)
		remaining = remaining.Sub(principalCollected)

		overpayment := remaining

		// 4. Arrears: principal still owed in a month that has fully elapsed.
		arrears := decimal.Zero
		if principalOutstanding.IsPositive() && month.Before(asOfMonth) {
			arrears = principalOutstanding
		}

		rows = append(rows, LedgerRow{
			Month:                month,
			LoanID:               terms.LoanID,
			OpeningPrincipal:     opening,
			PrincipalOutstanding: principalOutstanding,
			InterestReceivable:   interestReceivable,
			ArrearsAmount:        arrears,
			TotalPaidToDate:      totalPaidToDate,
			ContractTotal:        terms.TotalRepayment,
			InitiationCollected:  initiationCollected,
			AdminCollected:       adminCollected,
			InterestCollected:    interestCollected,
			PrincipalCollected:   principalCollected,
			OverpaymentCollected: overpayment,
			PaymentReceived:      cash,
		})

		if month == asOfMonth {
			break
		}
		month = month.Next()
	}

	return rows
}
