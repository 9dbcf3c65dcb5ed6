/*
materializer.go - One-time conversion of an approved application into a loan

PURPOSE:
  Materialization is the only place a Loan record is born. The contract is
  idempotent: if a loan already exists for the application it is returned
  unchanged - no second insert, no error. Two concurrent materialization
  attempts race on the storage uniqueness constraint; the loser reloads the
  winner's row.

BALANCE BASIS:
  The original book carried two divergent formulas for a new loan's opening
  balance. They are reconciled here into one explicit, named variant rather
  than two silent code paths:

    BasisTotalRepayment (canonical): the opening outstanding balance is the
      TOTAL contractual repayment - principal plus interest plus every fee.
      The ledger tracks total debt owed, which is what the waterfall
      recovers.

    BasisPrincipalOnly: the legacy alternative that opened the balance at
      bare principal. Kept selectable for books migrated from the old path;
      not the default and not used by the service.

  Under either basis the monthly installment always comes from the offer
  fields. The materializer never recomputes economics.
*/
package lending

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lumela/lending-engine/engine"
)

// BalanceBasis names the opening-balance formula variant.
type BalanceBasis string

const (
	// BasisTotalRepayment is the canonical basis: outstanding balance opens
	// at the full contractual debt.
	BasisTotalRepayment BalanceBasis = "total_repayment"

	// BasisPrincipalOnly opens the balance at bare principal. Legacy.
	BasisPrincipalOnly BalanceBasis = "principal_only"
)

// LoanStatusActive is the status a freshly materialized loan carries.
const LoanStatusActive = "active"

// Materializer creates loans from approved applications.
type Materializer struct {
	Loans LoanStore
	Basis BalanceBasis

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewMaterializer returns a materializer on the canonical balance basis.
func NewMaterializer(loans LoanStore) *Materializer {
	return &Materializer{Loans: loans, Basis: BasisTotalRepayment, Now: time.Now}
}

// Materialize converts an application with populated offer fields into a
// durable loan, exactly once. A repeat call returns the existing loan.
func (m *Materializer) Materialize(ctx context.Context, app Application) (Loan, error) {
	if app.ID == "" {
		return Loan{}, &engine.ComputationError{Field: "application", Reason: "missing identifier"}
	}

	// Fast path: loan already exists.
	existing, err := m.Loans.GetLoanByApplication(ctx, app.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, engine.ErrNotFound) {
		return Loan{}, &engine.DataSourceError{Op: "materialize lookup", Err: err}
	}

	now := m.now().UTC()

	principal := app.OfferPrincipal
	if principal.IsZero() {
		principal = app.Amount
	}

	firstPayment := now.AddDate(0, 0, engine.FallbackFirstPaymentDays)
	if app.RepaymentStartDate != nil && !app.RepaymentStartDate.IsZero() {
		firstPayment = app.RepaymentStartDate.UTC()
	}

	opening := app.OfferTotalRepayment
	if m.Basis == BasisPrincipalOnly {
		opening = principal
	}

	loan := Loan{
		ID:                 LoanID(uuid.NewString()),
		ApplicationID:      app.ID,
		ClientID:           app.ClientID,
		PrincipalAmount:    principal,
		InterestRate:       app.OfferAnnualRate,
		TermMonths:         app.TermMonths,
		MonthlyPayment:     app.OfferMonthlyInstallment,
		Status:             LoanStatusActive,
		StartDate:          now,
		FirstPaymentDate:   firstPayment,
		NextPaymentDate:    firstPayment,
		OutstandingBalance: opening,
		TotalRepayment:     app.OfferTotalRepayment,
		CreatedAt:          now,
	}

	if err := m.Loans.CreateLoan(ctx, loan); err != nil {
		// Lost the race: someone else materialized first. Return theirs.
		if errors.Is(err, engine.ErrDuplicateLoan) {
			return m.Loans.GetLoanByApplication(ctx, app.ID)
		}
		return Loan{}, &engine.DataSourceError{Op: "materialize insert", Err: err}
	}

	return loan, nil
}

func (m *Materializer) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}
