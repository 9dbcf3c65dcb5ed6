/*
affordability.go - Loan sizing from income

PURPOSE:
  Answers "how much can this client borrow?" from their monthly income.
  A fixed slice of income (13% by default) caps the monthly repayment, and
  the present-value annuity formula converts that cap into a maximum
  principal for the requested term:

      P = M * (1 - (1 + r)^-n) / r

  where M is the payment cap, r the monthly rate and n the term in months.
  A zero rate degenerates to P = M * n.

This is a sizing aid for intake, not a credit decision; it deliberately
knows nothing about the applicant beyond income.
*/
package engine

import (
	"math"

	"github.com/shopspring/decimal"
)

// DefaultAffordabilityPercent is the share of monthly income that may go to
// loan repayment.
var DefaultAffordabilityPercent = Money(13)

// Affordability is the sizing result for one income/term combination.
type Affordability struct {
	MaxMonthlyPayment decimal.Decimal
	MaxPrincipal      decimal.Decimal
	MonthlyRate       decimal.Decimal
	TermMonths        int
}

// ComputeAffordability sizes the largest loan a monthly income supports.
//
// affordabilityPercent and annualRate are whole-number percentages (13, 20);
// pass zero to take the defaults (13% of income, the standard annual rate).
func ComputeAffordability(monthlyIncome, affordabilityPercent, annualRate decimal.Decimal, termMonths int) (Affordability, error) {
	if !monthlyIncome.IsPositive() {
		return Affordability{}, &ComputationError{Field: "monthly_income", Reason: "must be positive"}
	}
	if termMonths < 1 {
		return Affordability{}, &InvalidTermError{Term: termMonths}
	}
	if affordabilityPercent.IsZero() {
		affordabilityPercent = DefaultAffordabilityPercent
	}
	if annualRate.IsZero() {
		annualRate = StandardAnnualRate.Mul(Money(100))
	}

	hundred := decimal.NewFromInt(100)
	maxPayment := monthlyIncome.Mul(affordabilityPercent.Div(hundred))
	monthlyRate := annualRate.Div(hundred).Div(twelve)

	var maxPrincipal decimal.Decimal
	if monthlyRate.IsZero() {
		maxPrincipal = maxPayment.Mul(decimal.NewFromInt(int64(termMonths)))
	} else {
		// (1 + r)^-n has no exact decimal form; compute the discount factor
		// in float and re-enter decimal space for the money arithmetic.
		r, _ := monthlyRate.Float64()
		discount := 1 - math.Pow(1+r, -float64(termMonths))
		maxPrincipal = maxPayment.Mul(decimal.NewFromFloat(discount)).Div(monthlyRate)
	}

	return Affordability{
		MaxMonthlyPayment: maxPayment.Round(2),
		MaxPrincipal:      maxPrincipal.Round(2),
		MonthlyRate:       monthlyRate,
		TermMonths:        termMonths,
	}, nil
}
