/*
Package lending holds the domain layer of the loan book: applications,
loans, payments, the application lifecycle and the materializer that turns
an approved application into a durable loan exactly once.

PURPOSE:
  This package owns entities and state transitions; all numeric work is
  delegated to the engine package. The split mirrors the data flow:

    Application -> transition -> Offer (engine) -> Loan (materializer)
      -> Payments -> ledger replay (engine) -> report (engine)

KEY INVARIANTS:
  1. Offer fields, once computed, are authoritative. The materializer copies
     them; it never recomputes economics.
  2. At most one Loan per Application, enforced by a storage-level
     uniqueness constraint, not just an application-level check.
  3. Payments are append-only. Nothing in this package mutates or deletes a
     payment.

SEE ALSO:
  - statemachine.go: the explicit status transition table
  - materializer.go: idempotent loan creation
  - service.go:      orchestration over the stores
*/
package lending

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ApplicationID string
type LoanID string
type PaymentID string
type ClientID string

// =============================================================================
// STATUS - tagged variant with an explicit transition table
// =============================================================================

// Status is the application lifecycle state. Transitions outside the table
// in statemachine.go are rejected, which keeps illegal histories
// unrepresentable in the store.
type Status string

const (
	StatusSubmitted       Status = "SUBMITTED"
	StatusReadyToDisburse Status = "READY_TO_DISBURSE"
	StatusOfferAccepted   Status = "OFFER_ACCEPTED"
	StatusDisbursed       Status = "DISBURSED"
	StatusActive          Status = "ACTIVE"
	StatusDeclined        Status = "DECLINED"
)

// IsApprovalState reports whether entering this status locks in the offer
// economics on the application.
func (s Status) IsApprovalState() bool {
	switch s {
	case StatusReadyToDisburse, StatusOfferAccepted, StatusDisbursed:
		return true
	}
	return false
}

// TriggersMaterialization reports whether entering this status creates the
// loan record.
func (s Status) TriggersMaterialization() bool {
	return s == StatusDisbursed || s == StatusActive
}

// IsTerminal reports whether any further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusDeclined || s == StatusActive
}

// =============================================================================
// APPLICATION
// =============================================================================

// Application is a funding request. The Offer* fields stay empty until the
// application enters an approval state; from then on they are the single
// source of truth for the loan's economics.
type Application struct {
	ID         ApplicationID
	ClientID   ClientID
	Amount     decimal.Decimal // requested principal
	TermMonths int
	Status     Status

	// Offer fields, locked in by the status transition.
	OfferPrincipal          decimal.Decimal
	OfferAnnualRate         decimal.Decimal
	OfferTotalInterest      decimal.Decimal
	OfferTotalInitiationFee decimal.Decimal
	OfferTotalAdminFees     decimal.Decimal
	OfferTotalRepayment     decimal.Decimal
	OfferMonthlyInstallment decimal.Decimal

	// RepaymentStartDate is the scheduled first payment date, if the
	// borrower picked one.
	RepaymentStartDate *time.Time

	CreatedAt time.Time
}

// HasOffer reports whether economics have been locked onto the application.
func (a Application) HasOffer() bool {
	return a.OfferTotalRepayment.IsPositive()
}

// =============================================================================
// LOAN
// =============================================================================

// Loan is the materialized, disbursable contract. Created once per
// application, never deleted; mutated only by payment application and
// status changes outside this core.
type Loan struct {
	ID            LoanID
	ApplicationID ApplicationID
	ClientID      ClientID

	PrincipalAmount decimal.Decimal
	InterestRate    decimal.Decimal // decimal fraction, e.g. 0.20
	TermMonths      int
	MonthlyPayment  decimal.Decimal

	Status           string
	StartDate        time.Time
	FirstPaymentDate time.Time
	NextPaymentDate  time.Time

	// OutstandingBalance tracks TOTAL contractual debt (principal plus all
	// interest and fees) under the canonical balance basis, not bare
	// principal. The ledger is a debt ledger, not a capital ledger.
	OutstandingBalance decimal.Decimal
	TotalRepayment     decimal.Decimal

	CreatedAt time.Time
}

// =============================================================================
// PAYMENT
// =============================================================================

// Payment is a client cash receipt against a loan. Append-only.
type Payment struct {
	ID     PaymentID
	LoanID LoanID
	Amount decimal.Decimal
	Date   time.Time
}
