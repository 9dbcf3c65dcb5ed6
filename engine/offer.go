/*
offer.go - Offer economics

PURPOSE:
  Derives a complete contractual offer from policy terms: total interest,
  total fees, total repayment and the flat monthly installment. Invoked on
  every approval-state transition and its output OVERWRITES whatever offer
  fields were stored before - repeated transitions recompute from current
  state, they are not additive.

MODELING ASSUMPTION:
  The interest component is computed on (annual_rate - initiation_fee_rate),
  i.e. a fee rate is subtracted from an interest rate to approximate a pure
  interest slice of the headline rate. That conflates two rate bases. It is
  reproduced here deliberately for parity with the contractual figures the
  book was sold on; treat it as product policy, not finance.
*/
package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// FallbackFirstPaymentDays is how far out the first payment lands when no
// repayment date was scheduled on the application.
const FallbackFirstPaymentDays = 30

var twelve = decimal.NewFromInt(12)

// =============================================================================
// OFFER
// =============================================================================

// Offer is the full contractual economics persisted onto an application.
// Once stored these figures are authoritative for everything downstream;
// the materializer copies them and never recomputes.
type Offer struct {
	Principal          decimal.Decimal
	AnnualRate         decimal.Decimal
	TotalInterest      decimal.Decimal
	TotalInitiationFee decimal.Decimal
	TotalAdminFees     decimal.Decimal
	TotalRepayment     decimal.Decimal
	MonthlyInstallment decimal.Decimal
	FirstPaymentDate   time.Time
}

// ComputeOffer derives the offer for a principal/term under the given policy.
//
// scheduled is the caller-supplied first payment date from the application;
// when nil the first payment falls back to now + 30 days. now is passed
// explicitly so the calculator stays deterministic.
func ComputeOffer(principal decimal.Decimal, termMonths int, terms PolicyTerms, scheduled *time.Time, now time.Time) (Offer, error) {
	if termMonths < 1 {
		return Offer{}, &InvalidTermError{Term: termMonths}
	}
	if principal.IsNegative() {
		return Offer{}, &ComputationError{Field: "principal", Reason: "must not be negative"}
	}

	term := decimal.NewFromInt(int64(termMonths))

	interestOnlyRate := terms.AnnualRate.Sub(terms.InitiationFeeRate)
	totalInterest := principal.Mul(interestOnlyRate).Mul(term.Div(twelve))
	totalInitiation := principal.Mul(terms.InitiationFeeRate)
	totalAdminFees := terms.MonthlyAdminFee.Mul(term)
	totalRepayment := principal.Add(totalInterest).Add(totalInitiation).Add(totalAdminFees)
	installment := totalRepayment.Div(term)

	firstPayment := now.UTC().AddDate(0, 0, FallbackFirstPaymentDays)
	if scheduled != nil && !scheduled.IsZero() {
		firstPayment = scheduled.UTC()
	}
	firstPayment = firstPayment.Truncate(24 * time.Hour)

	return Offer{
		Principal:          principal,
		AnnualRate:         terms.AnnualRate,
		TotalInterest:      totalInterest,
		TotalInitiationFee: totalInitiation,
		TotalAdminFees:     totalAdminFees,
		TotalRepayment:     totalRepayment,
		MonthlyInstallment: installment,
		FirstPaymentDate:   firstPayment,
	}, nil
}
