// Package store provides the in-memory Store implementation (tests/dev).
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/lumela/lending-engine/engine"
	"github.com/lumela/lending-engine/lending"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	applications map[lending.ApplicationID]lending.Application
	loans        map[lending.LoanID]lending.Loan
	loanByApp    map[lending.ApplicationID]lending.LoanID
	payments     map[lending.LoanID][]lending.Payment
}

func NewMemory() *Memory {
	return &Memory{
		applications: make(map[lending.ApplicationID]lending.Application),
		loans:        make(map[lending.LoanID]lending.Loan),
		loanByApp:    make(map[lending.ApplicationID]lending.LoanID),
		payments:     make(map[lending.LoanID][]lending.Payment),
	}
}

// =============================================================================
// APPLICATIONS
// =============================================================================

func (m *Memory) CreateApplication(_ context.Context, app lending.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applications[app.ID] = app
	return nil
}

func (m *Memory) GetApplication(_ context.Context, id lending.ApplicationID) (lending.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	app, ok := m.applications[id]
	if !ok {
		return lending.Application{}, engine.ErrNotFound
	}
	return app, nil
}

func (m *Memory) UpdateApplication(_ context.Context, app lending.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.applications[app.ID]; !ok {
		return engine.ErrNotFound
	}
	m.applications[app.ID] = app
	return nil
}

func (m *Memory) ListApplications(_ context.Context) ([]lending.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	apps := make([]lending.Application, 0, len(m.applications))
	for _, app := range m.applications {
		apps = append(apps, app)
	}
	sort.Slice(apps, func(i, j int) bool {
		if !apps[i].CreatedAt.Equal(apps[j].CreatedAt) {
			return apps[i].CreatedAt.Before(apps[j].CreatedAt)
		}
		return apps[i].ID < apps[j].ID
	})
	return apps, nil
}

// =============================================================================
// LOANS
// =============================================================================

func (m *Memory) CreateLoan(_ context.Context, loan lending.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// The check and the insert share one lock, which is what the SQLite
	// uniqueness constraint gives the durable store.
	if _, exists := m.loanByApp[loan.ApplicationID]; exists {
		return engine.ErrDuplicateLoan
	}
	m.loans[loan.ID] = loan
	m.loanByApp[loan.ApplicationID] = loan.ID
	return nil
}

func (m *Memory) GetLoan(_ context.Context, id lending.LoanID) (lending.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	loan, ok := m.loans[id]
	if !ok {
		return lending.Loan{}, engine.ErrNotFound
	}
	return loan, nil
}

func (m *Memory) GetLoanByApplication(_ context.Context, appID lending.ApplicationID) (lending.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.loanByApp[appID]
	if !ok {
		return lending.Loan{}, engine.ErrNotFound
	}
	return m.loans[id], nil
}

func (m *Memory) CountLoansByClient(_ context.Context, clientID lending.ClientID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, loan := range m.loans {
		if loan.ClientID == clientID {
			count++
		}
	}
	return count, nil
}

func (m *Memory) ListLoans(_ context.Context) ([]lending.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	loans := make([]lending.Loan, 0, len(m.loans))
	for _, loan := range m.loans {
		loans = append(loans, loan)
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].ID < loans[j].ID })
	return loans, nil
}

// =============================================================================
// PAYMENTS - append-only
// =============================================================================

func (m *Memory) AppendPayment(_ context.Context, p lending.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	payments := m.payments[p.LoanID]

	// Insert in date order so reads need no re-sort.
	i := sort.Search(len(payments), func(i int) bool {
		return payments[i].Date.After(p.Date)
	})
	payments = append(payments, lending.Payment{})
	copy(payments[i+1:], payments[i:])
	payments[i] = p
	m.payments[p.LoanID] = payments
	return nil
}

func (m *Memory) PaymentsByLoan(_ context.Context, loanID lending.LoanID) ([]lending.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]lending.Payment, len(m.payments[loanID]))
	copy(result, m.payments[loanID])
	return result, nil
}
