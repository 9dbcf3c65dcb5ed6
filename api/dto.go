/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the API contract, decoupled from the domain model so
  field names can evolve without touching the engine. Currency amounts are
  serialized as strings to keep decimal precision across the wire.

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

VALIDATION:
  Done in handlers; DTOs are pure data carriers.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumela/lending-engine/engine"
	"github.com/lumela/lending-engine/lending"
)

// =============================================================================
// APPLICATIONS
// =============================================================================

type CreateApplicationRequest struct {
	ClientID           string  `json:"client_id"`
	Amount             string  `json:"amount"`
	TermMonths         int     `json:"term_months"`
	RepaymentStartDate *string `json:"repayment_start_date,omitempty"` // YYYY-MM-DD
}

type TransitionRequest struct {
	Status string `json:"status"`
}

type ApplicationDTO struct {
	ID         string `json:"id"`
	ClientID   string `json:"client_id"`
	Amount     string `json:"amount"`
	TermMonths int    `json:"term_months"`
	Status     string `json:"status"`

	OfferPrincipal          string `json:"offer_principal"`
	OfferAnnualRate         string `json:"offer_annual_rate"`
	OfferTotalInterest      string `json:"offer_total_interest"`
	OfferTotalInitiationFee string `json:"offer_total_initiation_fee"`
	OfferTotalAdminFees     string `json:"offer_total_admin_fees"`
	OfferTotalRepayment     string `json:"offer_total_repayment"`
	OfferMonthlyInstallment string `json:"offer_monthly_installment"`

	RepaymentStartDate string `json:"repayment_start_date,omitempty"`
	CreatedAt          string `json:"created_at"`
}

func toApplicationDTO(app lending.Application) ApplicationDTO {
	dto := ApplicationDTO{
		ID:                      string(app.ID),
		ClientID:                string(app.ClientID),
		Amount:                  app.Amount.String(),
		TermMonths:              app.TermMonths,
		Status:                  string(app.Status),
		OfferPrincipal:          app.OfferPrincipal.String(),
		OfferAnnualRate:         app.OfferAnnualRate.String(),
		OfferTotalInterest:      app.OfferTotalInterest.String(),
		OfferTotalInitiationFee: app.OfferTotalInitiationFee.String(),
		OfferTotalAdminFees:     app.OfferTotalAdminFees.String(),
		OfferTotalRepayment:     app.OfferTotalRepayment.String(),
		OfferMonthlyInstallment: app.OfferMonthlyInstallment.String(),
		CreatedAt:               app.CreatedAt.Format(time.RFC3339),
	}
	if app.RepaymentStartDate != nil {
		dto.RepaymentStartDate = app.RepaymentStartDate.Format("2006-01-02")
	}
	return dto
}

// =============================================================================
// LOANS & PAYMENTS
// =============================================================================

type LoanDTO struct {
	ID                 string `json:"id"`
	ApplicationID      string `json:"application_id"`
	ClientID           string `json:"client_id"`
	PrincipalAmount    string `json:"principal_amount"`
	InterestRate       string `json:"interest_rate"`
	TermMonths         int    `json:"term_months"`
	MonthlyPayment     string `json:"monthly_payment"`
	Status             string `json:"status"`
	StartDate          string `json:"start_date"`
	FirstPaymentDate   string `json:"first_payment_date"`
	NextPaymentDate    string `json:"next_payment_date"`
	OutstandingBalance string `json:"outstanding_balance"`
	TotalRepayment     string `json:"total_repayment"`
}

func toLoanDTO(loan lending.Loan) LoanDTO {
	return LoanDTO{
		ID:                 string(loan.ID),
		ApplicationID:      string(loan.ApplicationID),
		ClientID:           string(loan.ClientID),
		PrincipalAmount:    loan.PrincipalAmount.String(),
		InterestRate:       loan.InterestRate.String(),
		TermMonths:         loan.TermMonths,
		MonthlyPayment:     loan.MonthlyPayment.String(),
		Status:             loan.Status,
		StartDate:          loan.StartDate.Format("2006-01-02"),
		FirstPaymentDate:   loan.FirstPaymentDate.Format("2006-01-02"),
		NextPaymentDate:    loan.NextPaymentDate.Format("2006-01-02"),
		OutstandingBalance: loan.OutstandingBalance.String(),
		TotalRepayment:     loan.TotalRepayment.String(),
	}
}

type RecordPaymentRequest struct {
	Amount string `json:"amount"`
	Date   string `json:"date"` // YYYY-MM-DD
}

// =============================================================================
// LEDGER
// =============================================================================

type LedgerRowDTO struct {
	Month                string `json:"month"`
	LoanID               string `json:"loan_id"`
	OpeningPrincipal     string `json:"opening_principal"`
	PrincipalOutstanding string `json:"principal_outstanding"`
	InterestReceivable   string `json:"interest_receivable"`
	ArrearsAmount        string `json:"arrears_amount"`
	TotalPaidToDate      string `json:"total_paid_to_date"`
	ContractTotal        string `json:"contract_total"`
	InitiationCollected  string `json:"initiation_collected_month"`
	AdminCollected       string `json:"admin_collected_month"`
	FeesCollected        string `json:"fees_collected_month"`
	InterestCollected    string `json:"interest_collected_month"`
	ProfitCollected      string `json:"profit_collected_month"`
	PrincipalCollected   string `json:"principal_collected_month"`
	OverpaymentCollected string `json:"overpayment_collected_month"`
	PaymentReceived      string `json:"payment_received"`
}

func toLedgerRowDTO(row engine.LedgerRow) LedgerRowDTO {
	return LedgerRowDTO{
		Month:                row.Month.String(),
		LoanID:               row.LoanID,
		OpeningPrincipal:     row.OpeningPrincipal.String(),
		PrincipalOutstanding: row.PrincipalOutstanding.String(),
		InterestReceivable:   row.InterestReceivable.String(),
		ArrearsAmount:        row.ArrearsAmount.String(),
		TotalPaidToDate:      row.TotalPaidToDate.String(),
		ContractTotal:        row.ContractTotal.String(),
		InitiationCollected:  row.InitiationCollected.String(),
		AdminCollected:       row.AdminCollected.String(),
		FeesCollected:        row.FeesCollected().String(),
		InterestCollected:    row.InterestCollected.String(),
		ProfitCollected:      row.ProfitCollected().String(),
		PrincipalCollected:   row.PrincipalCollected.String(),
		OverpaymentCollected: row.OverpaymentCollected.String(),
		PaymentReceived:      row.PaymentReceived.String(),
	}
}

// =============================================================================
// REPORTS
// =============================================================================

type ReportDTO struct {
	Period          string             `json:"period"`
	IncomeStatement IncomeStatementDTO `json:"income_statement"`
	BalanceSheet    BalanceSheetDTO    `json:"balance_sheet"`
	Ratios          RatiosDTO          `json:"ratios"`
}

type IncomeStatementDTO struct {
	InterestIncome    string `json:"interest_income"`
	NetInterestIncome string `json:"net_interest_income"`
	FeeIncome         string `json:"fee_income"`
	NonInterestRev    string `json:"non_interest_revenue"`
	TotalRevenue      string `json:"total_revenue"`
}

type BalanceSheetDTO struct {
	TotalLoanBook     string `json:"total_loan_book"`
	ActiveClients     int    `json:"active_clients"`
	AvgLoanPerClient  string `json:"avg_loan_per_client"`
	AnnualizedYield   string `json:"annualized_yield_pct"`
	ArrearsPercentage string `json:"arrears_pct"`
}

type RatiosDTO struct {
	CreditLossRatio string `json:"credit_loss_ratio_pct"`
	NIIToRevenue    string `json:"nii_to_revenue_pct"`
	NIRToRevenue    string `json:"nir_to_revenue_pct"`
}

func toReportDTO(r engine.Report) ReportDTO {
	round := func(d decimal.Decimal) string { return d.Round(2).String() }
	return ReportDTO{
		Period: string(r.Period),
		IncomeStatement: IncomeStatementDTO{
			InterestIncome:    round(r.IncomeStatement.InterestIncome),
			NetInterestIncome: round(r.IncomeStatement.NetInterestIncome),
			FeeIncome:         round(r.IncomeStatement.FeeIncome),
			NonInterestRev:    round(r.IncomeStatement.NonInterestRev),
			TotalRevenue:      round(r.IncomeStatement.TotalRevenue),
		},
		BalanceSheet: BalanceSheetDTO{
			TotalLoanBook:     round(r.BalanceSheet.TotalLoanBook),
			ActiveClients:     r.BalanceSheet.ActiveClients,
			AvgLoanPerClient:  round(r.BalanceSheet.AvgLoanPerClient),
			AnnualizedYield:   round(r.BalanceSheet.AnnualizedYield),
			ArrearsPercentage: round(r.BalanceSheet.ArrearsPercentage),
		},
		Ratios: RatiosDTO{
			CreditLossRatio: round(r.Ratios.CreditLossRatio),
			NIIToRevenue:    round(r.Ratios.NIIToRevenue),
			NIRToRevenue:    round(r.Ratios.NIRToRevenue),
		},
	}
}

// =============================================================================
// AFFORDABILITY
// =============================================================================

type AffordabilityRequest struct {
	MonthlyIncome        string `json:"monthly_income"`
	AffordabilityPercent string `json:"affordability_percent,omitempty"`
	AnnualInterestRate   string `json:"annual_interest_rate,omitempty"`
	TermMonths           int    `json:"term_months"`
}

type AffordabilityDTO struct {
	MaxMonthlyPayment string `json:"max_monthly_payment"`
	MaxPrincipal      string `json:"max_loan_amount"`
	MonthlyRate       string `json:"monthly_rate"`
	TermMonths        int    `json:"term_months"`
}

func toAffordabilityDTO(a engine.Affordability) AffordabilityDTO {
	return AffordabilityDTO{
		MaxMonthlyPayment: a.MaxMonthlyPayment.String(),
		MaxPrincipal:      a.MaxPrincipal.String(),
		MonthlyRate:       a.MonthlyRate.Round(6).String(),
		TermMonths:        a.TermMonths,
	}
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
