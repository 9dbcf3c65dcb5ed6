/*
store.go - Persistence interfaces for the loan book

PURPOSE:
  Defines the contracts between the domain layer and the database. Two
  implementations exist: lending/store (in-memory, tests/dev) and the
  SQLite store under store/sqlite (durable).

CONTRACT NOTES:
  - CreateLoan must be backed by a uniqueness constraint on application_id
    at the storage layer. An application-level existence check alone cannot
    hold the at-most-one-loan invariant under two concurrent "mark
    disbursed" actions; the constraint is the real guard and the check is
    just the fast path. Violations surface as engine.ErrDuplicateLoan.
  - PaymentsByLoan returns payments in ascending date order so the ledger
    replay sees a stable stream.
  - Payments are append-only: there is no update or delete.
*/
package lending

import (
	"context"
)

// ApplicationStore persists funding requests and their offer fields.
type ApplicationStore interface {
	// CreateApplication inserts a new application.
	CreateApplication(ctx context.Context, app Application) error

	// GetApplication returns engine.ErrNotFound when the ID is unknown.
	GetApplication(ctx context.Context, id ApplicationID) (Application, error)

	// UpdateApplication persists status and offer fields in one write, so a
	// failed transition never leaves a half-updated record behind.
	UpdateApplication(ctx context.Context, app Application) error

	// ListApplications returns all applications ordered by creation time.
	ListApplications(ctx context.Context) ([]Application, error)
}

// LoanStore persists materialized loans.
type LoanStore interface {
	// CreateLoan inserts a loan; a second insert for the same application
	// returns engine.ErrDuplicateLoan from the uniqueness constraint.
	CreateLoan(ctx context.Context, loan Loan) error

	// GetLoan returns engine.ErrNotFound when the ID is unknown.
	GetLoan(ctx context.Context, id LoanID) (Loan, error)

	// GetLoanByApplication returns engine.ErrNotFound when no loan has been
	// materialized for the application yet.
	GetLoanByApplication(ctx context.Context, appID ApplicationID) (Loan, error)

	// CountLoansByClient counts a client's materialized loans - the
	// prior-loan input to the rate policy.
	CountLoansByClient(ctx context.Context, clientID ClientID) (int, error)

	// ListLoans returns all loans ordered by ID for reproducible iteration.
	ListLoans(ctx context.Context) ([]Loan, error)
}

// PaymentStore persists the append-only payment stream.
type PaymentStore interface {
	// AppendPayment records a cash receipt. This is the only write.
	AppendPayment(ctx context.Context, p Payment) error

	// PaymentsByLoan returns the loan's payments in ascending date order.
	PaymentsByLoan(ctx context.Context, loanID LoanID) ([]Payment, error)
}

// Store bundles the three interfaces; both implementations satisfy it.
type Store interface {
	ApplicationStore
	LoanStore
	PaymentStore
}
