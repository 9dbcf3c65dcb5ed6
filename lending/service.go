/*
service.go - Orchestration over the stores

PURPOSE:
  Wires the pure engine to the persistence layer. This is the surface the
  API talks to:

    TransitionStatus - drives the application lifecycle, locking in offer
                       economics and materializing the loan at the right
                       states
    LedgerForLoan    - replays one loan's ledger from its payment history
    Report           - replays the whole book and aggregates a window

TRANSITION CONTRACT:
  Entering READY_TO_DISBURSE, OFFER_ACCEPTED or DISBURSED always recomputes
  the offer from current state (prior-loan count included) and OVERWRITES
  the stored offer fields. Entering DISBURSED or ACTIVE additionally
  materializes the loan. Any other transition only moves the status. The
  whole thing is all-or-nothing: if economics fail, the status does not
  move either.
*/
package lending

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumela/lending-engine/engine"
)

// Service exposes the lending core to callers.
type Service struct {
	Store        Store
	Materializer *Materializer

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewService wires a service over a store with the canonical materializer.
func NewService(store Store) *Service {
	return &Service{
		Store:        store,
		Materializer: NewMaterializer(store),
		Now:          time.Now,
	}
}

// =============================================================================
// INTAKE
// =============================================================================

// SubmitApplication records a new funding request in SUBMITTED. No economics
// are computed here; the offer is locked in later by the status transition.
func (s *Service) SubmitApplication(ctx context.Context, clientID ClientID, amount decimal.Decimal, termMonths int, scheduledStart *time.Time) (Application, error) {
	if !amount.IsPositive() {
		return Application{}, &engine.ComputationError{Field: "amount", Reason: "must be positive"}
	}
	if termMonths < 1 {
		return Application{}, &engine.InvalidTermError{Term: termMonths}
	}

	app := Application{
		ID:                 ApplicationID(uuid.NewString()),
		ClientID:           clientID,
		Amount:             amount,
		TermMonths:         termMonths,
		Status:             StatusSubmitted,
		RepaymentStartDate: scheduledStart,
		CreatedAt:          s.now(),
	}
	if err := s.Store.CreateApplication(ctx, app); err != nil {
		return Application{}, &engine.DataSourceError{Op: "create application", Err: err}
	}
	return app, nil
}

// ListApplications returns every application, oldest first.
func (s *Service) ListApplications(ctx context.Context) ([]Application, error) {
	apps, err := s.Store.ListApplications(ctx)
	if err != nil {
		return nil, &engine.DataSourceError{Op: "list applications", Err: err}
	}
	return apps, nil
}

// GetApplication loads one application by ID.
func (s *Service) GetApplication(ctx context.Context, id ApplicationID) (Application, error) {
	app, err := s.Store.GetApplication(ctx, id)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return Application{}, &engine.NotFoundError{Kind: "application", ID: string(id)}
		}
		return Application{}, &engine.DataSourceError{Op: "load application", Err: err}
	}
	return app, nil
}

// ListLoans returns the whole loan book ordered by loan ID.
func (s *Service) ListLoans(ctx context.Context) ([]Loan, error) {
	loans, err := s.Store.ListLoans(ctx)
	if err != nil {
		return nil, &engine.DataSourceError{Op: "list loans", Err: err}
	}
	return loans, nil
}

// RecordPayment appends a cash receipt against a loan. The ledger picks it
// up on the next replay; nothing else is recomputed here.
func (s *Service) RecordPayment(ctx context.Context, loanID LoanID, amount decimal.Decimal, date time.Time) (Payment, error) {
	if !amount.IsPositive() {
		return Payment{}, &engine.ComputationError{Field: "amount", Reason: "must be positive"}
	}
	if _, err := s.Store.GetLoan(ctx, loanID); err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return Payment{}, &engine.NotFoundError{Kind: "loan", ID: string(loanID)}
		}
		return Payment{}, &engine.DataSourceError{Op: "load loan", Err: err}
	}

	p := Payment{
		ID:     PaymentID(uuid.NewString()),
		LoanID: loanID,
		Amount: amount,
		Date:   date,
	}
	if err := s.Store.AppendPayment(ctx, p); err != nil {
		return Payment{}, &engine.DataSourceError{Op: "append payment", Err: err}
	}
	return p, nil
}

// =============================================================================
// STATUS TRANSITIONS
// =============================================================================

// TransitionStatus moves an application to newStatus, applying the side
// effects the lifecycle demands. Returns the updated application.
func (s *Service) TransitionStatus(ctx context.Context, id ApplicationID, newStatus Status) (Application, error) {
	app, err := s.Store.GetApplication(ctx, id)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return Application{}, &engine.NotFoundError{Kind: "application", ID: string(id)}
		}
		return Application{}, &engine.DataSourceError{Op: "load application", Err: err}
	}

	if !CanTransition(app.Status, newStatus) {
		return Application{}, engine.ErrInvalidTransition
	}

	// Approval states lock in the economics before the status moves. A
	// computation failure rejects the whole transition.
	if newStatus.IsApprovalState() {
		priorLoans, err := s.Store.CountLoansByClient(ctx, app.ClientID)
		if err != nil {
			return Application{}, &engine.DataSourceError{Op: "count prior loans", Err: err}
		}

		terms, err := engine.FeePolicy(app.Amount, app.TermMonths, priorLoans)
		if err != nil {
			return Application{}, err
		}

		offer, err := engine.ComputeOffer(app.Amount, app.TermMonths, terms, app.RepaymentStartDate, s.now())
		if err != nil {
			return Application{}, err
		}

		app.OfferPrincipal = offer.Principal
		app.OfferAnnualRate = offer.AnnualRate
		app.OfferTotalInterest = offer.TotalInterest
		app.OfferTotalInitiationFee = offer.TotalInitiationFee
		app.OfferTotalAdminFees = offer.TotalAdminFees
		app.OfferTotalRepayment = offer.TotalRepayment
		app.OfferMonthlyInstallment = offer.MonthlyInstallment
		first := offer.FirstPaymentDate
		app.RepaymentStartDate = &first
	}

	app.Status = newStatus
	if err := s.Store.UpdateApplication(ctx, app); err != nil {
		return Application{}, &engine.DataSourceError{Op: "update application", Err: err}
	}

	if newStatus.TriggersMaterialization() {
		if _, err := s.Materializer.Materialize(ctx, app); err != nil {
			return Application{}, err
		}
	}

	return app, nil
}

// =============================================================================
// LEDGER & REPORTING
// =============================================================================

// LedgerForLoan replays one loan's full ledger as of the given date.
func (s *Service) LedgerForLoan(ctx context.Context, id LoanID, asOf time.Time) ([]engine.LedgerRow, error) {
	loan, err := s.Store.GetLoan(ctx, id)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			return nil, &engine.NotFoundError{Kind: "loan", ID: string(id)}
		}
		return nil, &engine.DataSourceError{Op: "load loan", Err: err}
	}
	return s.ledgerFor(ctx, loan, asOf)
}

// Report replays the entire book and aggregates the requested window.
// All-or-nothing: any upstream failure surfaces, nothing partial.
func (s *Service) Report(ctx context.Context, rng engine.ReportRange, now time.Time) (engine.Report, error) {
	loans, err := s.Store.ListLoans(ctx)
	if err != nil {
		return engine.Report{}, &engine.DataSourceError{Op: "list loans", Err: err}
	}

	var rows []engine.LedgerRow
	for _, loan := range loans {
		loanRows, err := s.ledgerFor(ctx, loan, now)
		if err != nil {
			return engine.Report{}, err
		}
		rows = append(rows, loanRows...)
	}

	return engine.Aggregate(rows, rng, now)
}

// ledgerFor joins a loan with its owning application's fee totals and its
// payment stream into the engine's replay inputs. The contractual targets
// come from the application offer fields - the "contractual DNA" locked in
// at approval - never from recomputation.
func (s *Service) ledgerFor(ctx context.Context, loan Loan, asOf time.Time) ([]engine.LedgerRow, error) {
	app, err := s.Store.GetApplication(ctx, loan.ApplicationID)
	if err != nil && !errors.Is(err, engine.ErrNotFound) {
		return nil, &engine.DataSourceError{Op: "load application for ledger", Err: err}
	}

	payments, err := s.Store.PaymentsByLoan(ctx, loan.ID)
	if err != nil {
		return nil, &engine.DataSourceError{Op: "load payments", Err: err}
	}

	terms := engine.LoanTerms{
		LoanID:             string(loan.ID),
		Principal:          loan.PrincipalAmount,
		AnnualRate:         loan.InterestRate,
		TotalInitiationFee: app.OfferTotalInitiationFee,
		TotalAdminFees:     app.OfferTotalAdminFees,
		TotalRepayment:     app.OfferTotalRepayment,
		StartDate:          loan.StartDate,
	}
	if terms.TotalRepayment.IsZero() {
		terms.TotalRepayment = loan.TotalRepayment
	}

	events := make([]engine.PaymentEvent, len(payments))
	for i, p := range payments {
		events[i] = engine.PaymentEvent{
			ID:     string(p.ID),
			Amount: p.Amount,
			Date:   p.Date,
		}
	}

	return engine.BuildLedger(terms, events, asOf), nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
