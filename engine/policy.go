/*
policy.go - Contractual rate and fee policy

PURPOSE:
  Determines what a borrower pays: the annual rate and the fee schedule,
  as a pure function of principal, term and the client's track record.
  Policy outputs feed the offer calculator; nothing downstream is allowed
  to re-derive them.

PRICING RULES:
  - Annual rate 20% for new relationships, 18% once a client has three or
    more materialized loans (repeat-client discount).
  - Initiation fee: flat 15% of principal, recovered first in the waterfall.
  - Admin fee: fixed monthly amount for the life of the loan.

The policy is total over its domain apart from the term guard: a term below
one month is rejected with InvalidTermError before any arithmetic runs.
*/
package engine

import "github.com/shopspring/decimal"

// =============================================================================
// POLICY CONSTANTS
// =============================================================================

var (
	// StandardAnnualRate applies to clients with fewer than RepeatClientLoans
	// prior loans.
	StandardAnnualRate = Money(0.20)

	// RepeatAnnualRate applies once a client has RepeatClientLoans or more
	// materialized loans.
	RepeatAnnualRate = Money(0.18)

	// InitiationFeeRate is charged once, on principal.
	InitiationFeeRate = Money(0.15)

	// MonthlyAdminFee is charged per month of the term.
	MonthlyAdminFee = Money(60.00)
)

// RepeatClientLoans is the prior-loan count at which the discount rate kicks in.
const RepeatClientLoans = 3

// =============================================================================
// POLICY TERMS
// =============================================================================

// PolicyTerms is the contractual pricing for one application.
type PolicyTerms struct {
	AnnualRate        decimal.Decimal
	InitiationFeeRate decimal.Decimal
	MonthlyAdminFee   decimal.Decimal
}

// FeePolicy returns the contractual pricing for a requested principal and
// term, given how many loans the client has already taken.
//
// priorLoans counts materialized Loan records, not applications.
func FeePolicy(principal decimal.Decimal, termMonths, priorLoans int) (PolicyTerms, error) {
	if termMonths < 1 {
		return PolicyTerms{}, &InvalidTermError{Term: termMonths}
	}
	if principal.IsNegative() {
		return PolicyTerms{}, &ComputationError{Field: "principal", Reason: "must not be negative"}
	}

	rate := StandardAnnualRate
	if priorLoans >= RepeatClientLoans {
		rate = RepeatAnnualRate
	}

	return PolicyTerms{
		AnnualRate:        rate,
		InitiationFeeRate: InitiationFeeRate,
		MonthlyAdminFee:   MonthlyAdminFee,
	}, nil
}
