/*
handlers.go - HTTP API handlers for the lending core

PURPOSE:
  Exposes the lending engine via REST. Handles HTTP request/response and
  JSON serialization, and delegates every decision to the lending service.

ENDPOINTS:
  Applications:
    POST   /api/applications             Submit a funding request
    GET    /api/applications             List applications
    GET    /api/applications/{id}        Get application details
    POST   /api/applications/{id}/status Drive the lifecycle

  Loans:
    GET    /api/loans                    List the loan book
    GET    /api/loans/{id}/ledger        Replay one loan's ledger
    POST   /api/loans/{id}/payments      Record a cash receipt

  Reporting:
    GET    /api/reports/financials       Windowed portfolio report
    POST   /api/affordability            Income-based loan sizing

ERROR HANDLING:
  Errors are returned as JSON with the status derived from the error's
  classification, not its message:
  - 400: invalid input, invalid status transition, computation failures
  - 404: unknown application or loan
  - 500: storage and other internal failures

SECURITY NOTE:
  No authentication middleware. This core sits behind an authenticated
  gateway.

SEE ALSO:
  - dto.go:    request/response data structures
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/lumela/lending-engine/engine"
	"github.com/lumela/lending-engine/lending"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *lending.Service
}

// NewHandler creates a handler over the lending service.
func NewHandler(service *lending.Service) *Handler {
	return &Handler{Service: service}
}

// =============================================================================
// APPLICATION HANDLERS
// =============================================================================

// CreateApplication submits a new funding request.
// POST /api/applications
func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var req CreateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ClientID == "" {
		writeError(w, http.StatusBadRequest, "client_id is required", nil)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	var scheduled *time.Time
	if req.RepaymentStartDate != nil && *req.RepaymentStartDate != "" {
		t, err := time.Parse("2006-01-02", *req.RepaymentStartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid repayment_start_date, expected YYYY-MM-DD", err)
			return
		}
		scheduled = &t
	}

	app, err := h.Service.SubmitApplication(r.Context(), lending.ClientID(req.ClientID), amount, req.TermMonths, scheduled)
	if err != nil {
		writeDomainError(w, "Failed to create application", err)
		return
	}

	writeJSON(w, http.StatusCreated, toApplicationDTO(app))
}

// ListApplications returns every application, oldest first.
// GET /api/applications
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.Service.ListApplications(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list applications", err)
		return
	}

	dtos := make([]ApplicationDTO, len(apps))
	for i, app := range apps {
		dtos[i] = toApplicationDTO(app)
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetApplication returns a single application.
// GET /api/applications/{id}
func (h *Handler) GetApplication(w http.ResponseWriter, r *http.Request) {
	id := lending.ApplicationID(chi.URLParam(r, "id"))

	app, err := h.Service.GetApplication(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get application", err)
		return
	}

	writeJSON(w, http.StatusOK, toApplicationDTO(app))
}

// TransitionApplication moves an application through the lifecycle. Entering
// an approval state locks in the offer; DISBURSED and ACTIVE materialize the
// loan.
// POST /api/applications/{id}/status
func (h *Handler) TransitionApplication(w http.ResponseWriter, r *http.Request) {
	id := lending.ApplicationID(chi.URLParam(r, "id"))

	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	status, ok := lending.ParseStatus(req.Status)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown status "+req.Status, nil)
		return
	}

	app, err := h.Service.TransitionStatus(r.Context(), id, status)
	if err != nil {
		writeDomainError(w, "Failed to transition application", err)
		return
	}

	writeJSON(w, http.StatusOK, toApplicationDTO(app))
}

// =============================================================================
// LOAN HANDLERS
// =============================================================================

// ListLoans returns the loan book ordered by loan ID.
// GET /api/loans
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.Service.ListLoans(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list loans", err)
		return
	}

	dtos := make([]LoanDTO, len(loans))
	for i, loan := range loans {
		dtos[i] = toLoanDTO(loan)
	}

	writeJSON(w, http.StatusOK, dtos)
}

// GetLedger replays one loan's ledger. as_of defaults to today.
// GET /api/loans/{id}/ledger?as_of=YYYY-MM-DD
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	id := lending.LoanID(chi.URLParam(r, "id"))

	asOf := time.Now().UTC()
	if s := r.URL.Query().Get("as_of"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of, expected YYYY-MM-DD", err)
			return
		}
		asOf = t
	}

	rows, err := h.Service.LedgerForLoan(r.Context(), id, asOf)
	if err != nil {
		writeDomainError(w, "Failed to build ledger", err)
		return
	}

	dtos := make([]LedgerRowDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toLedgerRowDTO(row)
	}

	writeJSON(w, http.StatusOK, dtos)
}

// RecordPayment appends a cash receipt against a loan.
// POST /api/loans/{id}/payments
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := lending.LoanID(chi.URLParam(r, "id"))

	var req RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	date := time.Now().UTC()
	if req.Date != "" {
		t, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD", err)
			return
		}
		date = t
	}

	p, err := h.Service.RecordPayment(r.Context(), id, amount, date)
	if err != nil {
		writeDomainError(w, "Failed to record payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":      string(p.ID),
		"loan_id": string(p.LoanID),
		"amount":  p.Amount.String(),
		"date":    p.Date.Format("2006-01-02"),
	})
}

// =============================================================================
// REPORTING HANDLERS
// =============================================================================

// GetFinancials aggregates the whole book into a windowed report. The range
// is mandatory; there is no silent default window.
// GET /api/reports/financials?range=1M|3M|6M|1Y|YTD
func (h *Handler) GetFinancials(w http.ResponseWriter, r *http.Request) {
	rng, err := engine.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid range", err)
		return
	}

	report, err := h.Service.Report(r.Context(), rng, time.Now().UTC())
	if err != nil {
		writeDomainError(w, "Failed to build report", err)
		return
	}

	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// ComputeAffordability sizes the largest loan a monthly income supports.
// POST /api/affordability
func (h *Handler) ComputeAffordability(w http.ResponseWriter, r *http.Request) {
	var req AffordabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	income, err := decimal.NewFromString(req.MonthlyIncome)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid monthly_income", err)
		return
	}

	percent, rate := decimal.Zero, decimal.Zero
	if req.AffordabilityPercent != "" {
		if percent, err = decimal.NewFromString(req.AffordabilityPercent); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid affordability_percent", err)
			return
		}
	}
	if req.AnnualInterestRate != "" {
		if rate, err = decimal.NewFromString(req.AnnualInterestRate); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid annual_interest_rate", err)
			return
		}
	}

	result, err := engine.ComputeAffordability(income, percent, rate, req.TermMonths)
	if err != nil {
		writeDomainError(w, "Failed to compute affordability", err)
		return
	}

	writeJSON(w, http.StatusOK, toAffordabilityDTO(result))
}

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a domain error to its HTTP status. The message is
// always preserved in the details field.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case engine.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
