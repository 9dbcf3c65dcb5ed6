/*
Package sqlite provides the SQLite-backed implementation of the lending
storage interfaces.

PURPOSE:
  Durable persistence for applications, loans and payments. The same
  patterns carry to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  applications:  funding requests with their locked-in offer fields
  loans:         materialized contracts; UNIQUE(application_id) is the
                 storage-level guard behind the at-most-one-loan invariant
  payments:      append-only cash receipts; no UPDATE or DELETE paths exist

AT-MOST-ONE-LOAN ENFORCEMENT:
  The materializer's existence check is only a fast path. Two concurrent
  "mark disbursed" actions both pass the check; the UNIQUE(application_id)
  index decides the race and the loser gets engine.ErrDuplicateLoan, which
  the materializer recovers into an idempotent return.

ENCODING:
  Currency amounts are stored as decimal strings (never REAL - SQLite's
  floats would reintroduce the precision problems decimal.Decimal exists to
  avoid). Dates are RFC3339 UTC text.

WAL MODE:
  Opened with WAL journaling: readers don't block, single writer, better
  crash recovery. Use ":memory:" for tests.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lumela/lending-engine/engine"
	"github.com/lumela/lending-engine/lending"
)

// Store implements lending.Store on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		term_months INTEGER NOT NULL,
		status TEXT NOT NULL,
		offer_principal TEXT NOT NULL DEFAULT '0',
		offer_annual_rate TEXT NOT NULL DEFAULT '0',
		offer_total_interest TEXT NOT NULL DEFAULT '0',
		offer_total_initiation_fee TEXT NOT NULL DEFAULT '0',
		offer_total_admin_fees TEXT NOT NULL DEFAULT '0',
		offer_total_repayment TEXT NOT NULL DEFAULT '0',
		offer_monthly_installment TEXT NOT NULL DEFAULT '0',
		repayment_start_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_applications_client
		ON applications(client_id);
	CREATE INDEX IF NOT EXISTS idx_applications_status
		ON applications(status);

	CREATE TABLE IF NOT EXISTS loans (
		id TEXT PRIMARY KEY,
		application_id TEXT NOT NULL UNIQUE,
		client_id TEXT NOT NULL,
		principal_amount TEXT NOT NULL,
		interest_rate TEXT NOT NULL,
		term_months INTEGER NOT NULL,
		monthly_payment TEXT NOT NULL,
		status TEXT NOT NULL,
		start_date TEXT NOT NULL,
		first_payment_date TEXT NOT NULL,
		next_payment_date TEXT NOT NULL,
		outstanding_balance TEXT NOT NULL,
		total_repayment TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (application_id) REFERENCES applications(id)
	);

	CREATE INDEX IF NOT EXISTS idx_loans_client
		ON loans(client_id);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		loan_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		FOREIGN KEY (loan_id) REFERENCES loans(id)
	);

	-- Hot path: the ledger replay reads payments per loan in date order.
	CREATE INDEX IF NOT EXISTS idx_payments_loan_date
		ON payments(loan_id, payment_date ASC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// APPLICATION STORE
// =============================================================================

func (s *Store) CreateApplication(ctx context.Context, app lending.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO applications
		(id, client_id, amount, term_months, status,
		 offer_principal, offer_annual_rate, offer_total_interest,
		 offer_total_initiation_fee, offer_total_admin_fees,
		 offer_total_repayment, offer_monthly_installment,
		 repayment_start_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		app.ID,
		app.ClientID,
		app.Amount.String(),
		app.TermMonths,
		app.Status,
		app.OfferPrincipal.String(),
		app.OfferAnnualRate.String(),
		app.OfferTotalInterest.String(),
		app.OfferTotalInitiationFee.String(),
		app.OfferTotalAdminFees.String(),
		app.OfferTotalRepayment.String(),
		app.OfferMonthlyInstallment.String(),
		nullTime(app.RepaymentStartDate),
		app.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert application: %w", err)
	}
	return nil
}

func (s *Store) GetApplication(ctx context.Context, id lending.ApplicationID) (lending.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectApplication+" WHERE id = ?", id)
	app, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return lending.Application{}, engine.ErrNotFound
	}
	if err != nil {
		return lending.Application{}, err
	}
	return app, nil
}

// UpdateApplication persists status and every offer field in one statement,
// so the transition contract's all-or-nothing requirement holds.
func (s *Store) UpdateApplication(ctx context.Context, app lending.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE applications SET
			status = ?,
			offer_principal = ?,
			offer_annual_rate = ?,
			offer_total_interest = ?,
			offer_total_initiation_fee = ?,
			offer_total_admin_fees = ?,
			offer_total_repayment = ?,
			offer_monthly_installment = ?,
			repayment_start_date = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		app.Status,
		app.OfferPrincipal.String(),
		app.OfferAnnualRate.String(),
		app.OfferTotalInterest.String(),
		app.OfferTotalInitiationFee.String(),
		app.OfferTotalAdminFees.String(),
		app.OfferTotalRepayment.String(),
		app.OfferMonthlyInstallment.String(),
		nullTime(app.RepaymentStartDate),
		app.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func (s *Store) ListApplications(ctx context.Context) ([]lending.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectApplication+" ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	var apps []lending.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

const selectApplication = `
	SELECT id, client_id, amount, term_months, status,
	       offer_principal, offer_annual_rate, offer_total_interest,
	       offer_total_initiation_fee, offer_total_admin_fees,
	       offer_total_repayment, offer_monthly_installment,
	       repayment_start_date, created_at
	FROM applications`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(r rowScanner) (lending.Application, error) {
	var (
		app                                           lending.Application
		amount, principal, rate, interest, initiation string
		adminFees, repayment, installment             string
		repaymentStart                                sql.NullString
		createdAt                                     string
	)

	err := r.Scan(
		&app.ID, &app.ClientID, &amount, &app.TermMonths, &app.Status,
		&principal, &rate, &interest, &initiation, &adminFees,
		&repayment, &installment, &repaymentStart, &createdAt,
	)
	if err != nil {
		return app, err
	}

	app.Amount = engine.MustParseMoney(amount)
	app.OfferPrincipal = engine.MustParseMoney(principal)
	app.OfferAnnualRate = engine.MustParseMoney(rate)
	app.OfferTotalInterest = engine.MustParseMoney(interest)
	app.OfferTotalInitiationFee = engine.MustParseMoney(initiation)
	app.OfferTotalAdminFees = engine.MustParseMoney(adminFees)
	app.OfferTotalRepayment = engine.MustParseMoney(repayment)
	app.OfferMonthlyInstallment = engine.MustParseMoney(installment)
	if repaymentStart.Valid {
		if t, err := time.Parse(time.RFC3339, repaymentStart.String); err == nil {
			app.RepaymentStartDate = &t
		}
	}
	app.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return app, nil
}

// =============================================================================
// LOAN STORE
// =============================================================================

func (s *Store) CreateLoan(ctx context.Context, loan lending.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO loans
		(id, application_id, client_id, principal_amount, interest_rate,
		 term_months, monthly_payment, status, start_date,
		 first_payment_date, next_payment_date, outstanding_balance,
		 total_repayment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		loan.ID,
		loan.ApplicationID,
		loan.ClientID,
		loan.PrincipalAmount.String(),
		loan.InterestRate.String(),
		loan.TermMonths,
		loan.MonthlyPayment.String(),
		loan.Status,
		loan.StartDate.UTC().Format(time.RFC3339),
		loan.FirstPaymentDate.UTC().Format(time.RFC3339),
		loan.NextPaymentDate.UTC().Format(time.RFC3339),
		loan.OutstandingBalance.String(),
		loan.TotalRepayment.String(),
		loan.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return engine.ErrDuplicateLoan
		}
		return fmt.Errorf("failed to insert loan: %w", err)
	}
	return nil
}

func (s *Store) GetLoan(ctx context.Context, id lending.LoanID) (lending.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectLoan+" WHERE id = ?", id)
	loan, err := scanLoan(row)
	if err == sql.ErrNoRows {
		return lending.Loan{}, engine.ErrNotFound
	}
	if err != nil {
		return lending.Loan{}, err
	}
	return loan, nil
}

func (s *Store) GetLoanByApplication(ctx context.Context, appID lending.ApplicationID) (lending.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, selectLoan+" WHERE application_id = ?", appID)
	loan, err := scanLoan(row)
	if err == sql.ErrNoRows {
		return lending.Loan{}, engine.ErrNotFound
	}
	if err != nil {
		return lending.Loan{}, err
	}
	return loan, nil
}

func (s *Store) CountLoansByClient(ctx context.Context, clientID lending.ClientID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM loans WHERE client_id = ?", clientID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count loans: %w", err)
	}
	return count, nil
}

func (s *Store) ListLoans(ctx context.Context) ([]lending.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, selectLoan+" ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query loans: %w", err)
	}
	defer rows.Close()

	var loans []lending.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	return loans, rows.Err()
}

const selectLoan = `
	SELECT id, application_id, client_id, principal_amount, interest_rate,
	       term_months, monthly_payment, status, start_date,
	       first_payment_date, next_payment_date, outstanding_balance,
	       total_repayment, created_at
	FROM loans`

func scanLoan(r rowScanner) (lending.Loan, error) {
	var (
		loan                                  lending.Loan
		principal, rate, payment, outstanding string
		total                                 string
		startDate, firstPayment, nextPayment  string
		createdAt                             string
	)

	err := r.Scan(
		&loan.ID, &loan.ApplicationID, &loan.ClientID, &principal, &rate,
		&loan.TermMonths, &payment, &loan.Status, &startDate,
		&firstPayment, &nextPayment, &outstanding, &total, &createdAt,
	)
	if err != nil {
		return loan, err
	}

	loan.PrincipalAmount = engine.MustParseMoney(principal)
	loan.InterestRate = engine.MustParseMoney(rate)
	loan.MonthlyPayment = engine.MustParseMoney(payment)
	loan.OutstandingBalance = engine.MustParseMoney(outstanding)
	loan.TotalRepayment = engine.MustParseMoney(total)
	loan.StartDate, _ = time.Parse(time.RFC3339, startDate)
	loan.FirstPaymentDate, _ = time.Parse(time.RFC3339, firstPayment)
	loan.NextPaymentDate, _ = time.Parse(time.RFC3339, nextPayment)
	loan.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	return loan, nil
}

// =============================================================================
// PAYMENT STORE - append-only
// =============================================================================

// AppendPayment records a cash receipt. There is no update or delete path:
// corrections happen upstream as new payments and the ledger replay absorbs
// them.
func (s *Store) AppendPayment(ctx context.Context, p lending.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO payments (id, loan_id, amount, payment_date, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.LoanID,
		p.Amount.String(),
		p.Date.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (s *Store) PaymentsByLoan(ctx context.Context, loanID lending.LoanID) ([]lending.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, loan_id, amount, payment_date
		FROM payments
		WHERE loan_id = ?
		ORDER BY payment_date ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []lending.Payment
	for rows.Next() {
		var (
			p      lending.Payment
			amount string
			date   string
		)
		if err := rows.Scan(&p.ID, &p.LoanID, &amount, &date); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		p.Amount = engine.MustParseMoney(amount)
		p.Date, _ = time.Parse(time.RFC3339, date)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}
