package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumela/lending-engine/api"
	"github.com/lumela/lending-engine/lending"
	"github.com/lumela/lending-engine/lending/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := lending.NewService(store.NewMemory())
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(svc)))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func createApplication(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/applications", map[string]any{
		"client_id":   "client-1",
		"amount":      "10000",
		"term_months": 6,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	return id
}

func transition(t *testing.T, srv *httptest.Server, appID, status string) (*http.Response, map[string]any) {
	t.Helper()
	return doJSON(t, http.MethodPost, srv.URL+"/api/applications/"+appID+"/status",
		map[string]any{"status": status})
}

// =============================================================================
// APPLICATION LIFECYCLE
// =============================================================================

func TestAPI_ApplicationLifecycle_EndToEnd(t *testing.T) {
	// GIVEN: A fresh application
	// WHEN: Walking it through acceptance, disbursement and a payment
	// THEN: Every endpoint reflects the state the previous step created

	srv := newTestServer(t)
	appID := createApplication(t, srv)

	// Submitted, no offer yet.
	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/applications/"+appID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "SUBMITTED", body["status"])
	assert.Equal(t, "0", body["offer_total_repayment"])

	// Acceptance locks in the offer.
	resp, body = transition(t, srv, appID, "OFFER_ACCEPTED")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OFFER_ACCEPTED", body["status"])
	assert.Equal(t, "12110", body["offer_total_repayment"])
	assert.Equal(t, "1500", body["offer_total_initiation_fee"])
	assert.Equal(t, "0.2", body["offer_annual_rate"])

	// Disbursement materializes exactly one loan.
	resp, _ = transition(t, srv, appID, "DISBURSED")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	loansResp, err := http.Get(srv.URL + "/api/loans")
	require.NoError(t, err)
	defer loansResp.Body.Close()
	require.Equal(t, http.StatusOK, loansResp.StatusCode)

	var loans []map[string]any
	require.NoError(t, json.NewDecoder(loansResp.Body).Decode(&loans))
	require.Len(t, loans, 1)
	loanID, _ := loans[0]["id"].(string)
	assert.Equal(t, appID, loans[0]["application_id"])
	assert.Equal(t, "12110", loans[0]["outstanding_balance"])

	// A payment lands in the ledger replay.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/loans/"+loanID+"/payments", map[string]any{
		"amount": "2018.33",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	ledgerResp, err := http.Get(srv.URL + "/api/loans/" + loanID + "/ledger")
	require.NoError(t, err)
	defer ledgerResp.Body.Close()
	require.Equal(t, http.StatusOK, ledgerResp.StatusCode)

	var rows []map[string]any
	require.NoError(t, json.NewDecoder(ledgerResp.Body).Decode(&rows))
	require.NotEmpty(t, rows)
	last := rows[len(rows)-1]
	assert.Equal(t, "2018.33", last["payment_received"])
	assert.Equal(t, "1500", last["initiation_collected_month"])
}

func TestAPI_ListApplications(t *testing.T) {
	srv := newTestServer(t)
	first := createApplication(t, srv)
	second := createApplication(t, srv)

	resp, err := http.Get(srv.URL + "/api/applications")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var apps []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apps))
	require.Len(t, apps, 2)
	ids := []any{apps[0]["id"], apps[1]["id"]}
	assert.Contains(t, ids, first)
	assert.Contains(t, ids, second)
}

func TestAPI_IllegalTransition_BadRequest(t *testing.T) {
	// GIVEN: A freshly submitted application
	// WHEN: Jumping straight to ACTIVE
	// THEN: 400, and the stored status is unchanged

	srv := newTestServer(t)
	appID := createApplication(t, srv)

	resp, _ := transition(t, srv, appID, "ACTIVE")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	getResp, body := doJSON(t, http.MethodGet, srv.URL+"/api/applications/"+appID, nil)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	assert.Equal(t, "SUBMITTED", body["status"])
}

func TestAPI_UnknownStatus_BadRequest(t *testing.T) {
	srv := newTestServer(t)
	appID := createApplication(t, srv)

	resp, _ := transition(t, srv, appID, "FUNDED")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_MissingApplication_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/applications/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = transition(t, srv, "ghost", "DECLINED")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_CreateApplication_Validation(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/applications", map[string]any{
		"client_id":   "client-1",
		"amount":      "not-a-number",
		"term_months": 6,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "malformed amount")

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/applications", map[string]any{
		"amount":      "5000",
		"term_months": 6,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "missing client_id")

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/applications", map[string]any{
		"client_id":   "client-1",
		"amount":      "5000",
		"term_months": 0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "zero term")
}

// =============================================================================
// LOANS & REPORTS
// =============================================================================

func TestAPI_PaymentForMissingLoan_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/loans/ghost/payments", map[string]any{
		"amount": "100",
	})

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_Ledger_BadAsOf_BadRequest(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/loans/any/ledger?as_of=yesterday")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Financials_RequiresKnownRange(t *testing.T) {
	// GIVEN: The reporting endpoint
	// WHEN: Asking for an unsupported window
	// THEN: 400 - never a silently substituted default

	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/reports/financials?range=2W")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/reports/financials")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "missing range")
}

func TestAPI_Financials_EmptyBook_OK(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/reports/financials?range=YTD", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "YTD", body["period"])
}

// =============================================================================
// AFFORDABILITY & HEALTH
// =============================================================================

func TestAPI_Affordability(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/affordability", map[string]any{
		"monthly_income": "10000",
		"term_months":    12,
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1300", body["max_monthly_payment"])
	assert.NotEmpty(t, body["max_loan_amount"])

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/affordability", map[string]any{
		"monthly_income": "0",
		"term_months":    12,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Health(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/health", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}
