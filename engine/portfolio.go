/*
portfolio.go - Windowed aggregation over ledger rows

PURPOSE:
  Reduces the full set of replayed ledger rows (all loans, all months) into
  an income statement, balance-sheet figures and risk ratios for a chosen
  time window. Income is strictly cash-collected, never accrual basis: the
  numbers answer "what money actually arrived", matching the waterfall.

WINDOWING & ANNUALIZATION:
  Each range maps to a start month and an annualization factor:
    1M -> 12   3M -> 4   6M -> 2   1Y -> 1   YTD -> 12 / monthsElapsed
  Sub-annual revenue is projected to an annual yield with that factor.

SNAPSHOTS:
  Balance-sheet figures come from each loan's LATEST ledger row (its current
  snapshot), regardless of the window. Snapshot iteration is ordered by loan
  ID so the reduction is reproducible.

FAILURE POLICY:
  All-or-nothing. An unknown range fails; there is no partial or
  best-effort result.
*/
package engine

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RANGES
// =============================================================================

// ReportRange selects the aggregation window.
type ReportRange string

const (
	Range1M  ReportRange = "1M"
	Range3M  ReportRange = "3M"
	Range6M  ReportRange = "6M"
	Range1Y  ReportRange = "1Y"
	RangeYTD ReportRange = "YTD"
)

// ParseRange validates a caller-supplied range string.
func ParseRange(s string) (ReportRange, error) {
	switch ReportRange(s) {
	case Range1M, Range3M, Range6M, Range1Y, RangeYTD:
		return ReportRange(s), nil
	}
	return "", &ComputationError{Field: "range", Reason: "must be one of 1M, 3M, 6M, 1Y, YTD"}
}

// window resolves the start month and annualization factor for a range.
func (r ReportRange) window(now time.Time) (MonthKey, decimal.Decimal, error) {
	now = now.UTC()
	switch r {
	case Range1M:
		return MonthOf(now.AddDate(0, -1, 0)), decimal.NewFromInt(12), nil
	case Range3M:
		return MonthOf(now.AddDate(0, -3, 0)), decimal.NewFromInt(4), nil
	case Range6M:
		return MonthOf(now.AddDate(0, -6, 0)), decimal.NewFromInt(2), nil
	case Range1Y:
		return MonthOf(now.AddDate(-1, 0, 0)), decimal.NewFromInt(1), nil
	case RangeYTD:
		start := MonthOf(time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC))
		monthsElapsed := decimal.NewFromInt(int64(now.Month()))
		return start, twelve.Div(monthsElapsed), nil
	}
	return "", decimal.Zero, &ComputationError{Field: "range", Reason: "unknown value " + string(r)}
}

// =============================================================================
// REPORT
// =============================================================================

// ArrearsThreshold: snapshots owing more than this count as "in arrears".
var ArrearsThreshold = Money(10)

// AtRiskFraction: arrears above this fraction of principal marks the loan
// at risk for the credit-loss proxy.
var AtRiskFraction = Money(0.15)

// IncomeStatement holds cash-collected revenue for the window.
type IncomeStatement struct {
	InterestIncome    decimal.Decimal
	NetInterestIncome decimal.Decimal
	FeeIncome         decimal.Decimal
	NonInterestRev    decimal.Decimal
	TotalRevenue      decimal.Decimal
}

// BalanceSheet holds current-book figures from per-loan snapshots.
type BalanceSheet struct {
	TotalLoanBook     decimal.Decimal
	ActiveClients     int
	AvgLoanPerClient  decimal.Decimal
	AnnualizedYield   decimal.Decimal // percent
	ArrearsPercentage decimal.Decimal // percent
}

// RiskRatios holds the derived risk measures.
type RiskRatios struct {
	CreditLossRatio decimal.Decimal // percent of book at risk
	NIIToRevenue    decimal.Decimal // percent
	NIRToRevenue    decimal.Decimal // percent
}

// Report is the complete aggregation output for one window.
type Report struct {
	Period          ReportRange
	IncomeStatement IncomeStatement
	BalanceSheet    BalanceSheet
	Ratios          RiskRatios
}

// =============================================================================
// AGGREGATION
// =============================================================================

// Aggregate reduces ledger rows into a Report for the given range. now is
// explicit so the windowing is deterministic under test.
func Aggregate(rows []LedgerRow, rng ReportRange, now time.Time) (Report, error) {
	startMonth, factor, err := rng.window(now)
	if err != nil {
		return Report{}, err
	}

	hundred := decimal.NewFromInt(100)

	// Income statement: cash collected inside the window.
	var interestIncome, feeIncome decimal.Decimal
	for _, row := range rows {
		if row.Month.Before(startMonth) {
			continue
		}
		interestIncome = interestIncome.Add(row.InterestCollected)
		feeIncome = feeIncome.Add(row.FeesCollected())
	}
	totalRevenue := interestIncome.Add(feeIncome)

	// Snapshots: latest row per loan. Rows arrive in month order per loan,
	// so the last row seen wins; iteration for the reduction is re-sorted
	// by loan ID to keep the output stable.
	latest := make(map[string]LedgerRow)
	for _, row := range rows {
		prev, ok := latest[row.LoanID]
		if !ok || prev.Month.Before(row.Month) {
			latest[row.LoanID] = row
		}
	}
	loanIDs := make([]string, 0, len(latest))
	for id := range latest {
		loanIDs = append(loanIDs, id)
	}
	sort.Strings(loanIDs)

	var bookValue, atRiskValue decimal.Decimal
	activeClients := 0
	inArrears := 0
	for _, id := range loanIDs {
		snap := latest[id]
		bookValue = bookValue.Add(snap.PrincipalOutstanding)
		if snap.PrincipalOutstanding.IsPositive() {
			activeClients++
		}
		if snap.ArrearsAmount.GreaterThan(ArrearsThreshold) {
			inArrears++
		}
		if snap.ArrearsAmount.GreaterThan(snap.PrincipalOutstanding.Mul(AtRiskFraction)) {
			atRiskValue = atRiskValue.Add(snap.PrincipalOutstanding)
		}
	}

	// Ratios, guarded against an empty book.
	var annualizedYield, clr, avgLoan decimal.Decimal
	if bookValue.IsPositive() {
		annualizedYield = totalRevenue.Div(bookValue).Mul(factor).Mul(hundred)
		clr = atRiskValue.Div(bookValue).Mul(hundred)
	}

	activeDenominator := activeClients
	if activeDenominator < 1 {
		activeDenominator = 1
	}
	arrearsPct := decimal.NewFromInt(int64(inArrears)).
		Div(decimal.NewFromInt(int64(activeDenominator))).
		Mul(hundred)
	if activeClients > 0 {
		avgLoan = bookValue.Div(decimal.NewFromInt(int64(activeClients)))
	}

	var niiToRevenue, nirToRevenue decimal.Decimal
	if totalRevenue.IsPositive() {
		niiToRevenue = interestIncome.Div(totalRevenue).Mul(hundred)
		nirToRevenue = feeIncome.Div(totalRevenue).Mul(hundred)
	}

	return Report{
		Period: rng,
		IncomeStatement: IncomeStatement{
			InterestIncome:    interestIncome,
			NetInterestIncome: interestIncome,
			FeeIncome:         feeIncome,
			NonInterestRev:    feeIncome,
			TotalRevenue:      totalRevenue,
		},
		BalanceSheet: BalanceSheet{
			TotalLoanBook:     bookValue,
			ActiveClients:     activeClients,
			AvgLoanPerClient:  avgLoan,
			AnnualizedYield:   annualizedYield,
			ArrearsPercentage: arrearsPct,
		},
		Ratios: RiskRatios{
			CreditLossRatio: clr,
			NIIToRevenue:    niiToRevenue,
			NIRToRevenue:    nirToRevenue,
		},
	}, nil
}
