package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumela/lending-engine/engine"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func jan(day int) time.Time {
	return time.Date(2025, time.January, day, 0, 0, 0, 0, time.UTC)
}

func simpleTerms() engine.LoanTerms {
	return engine.LoanTerms{
		LoanID:             "loan-1",
		Principal:          engine.Money(1000),
		AnnualRate:         engine.Money(0.20),
		TotalInitiationFee: engine.Money(100),
		TotalAdminFees:     engine.Money(50),
		TotalRepayment:     engine.Money(1250),
		StartDate:          jan(1),
	}
}

func payment(id string, amount float64, date time.Time) engine.PaymentEvent {
	return engine.PaymentEvent{ID: id, Amount: engine.Money(amount), Date: date}
}

// =============================================================================
// WATERFALL ALLOCATION TESTS
// =============================================================================

func TestBuildLedger_WaterfallOrder_FeesBeforeInterest(t *testing.T) {
	// GIVEN: 100 initiation + 50 admin outstanding, 120 cash arrives
	// WHEN: Replaying the first month
	// THEN: Initiation takes 100, admin takes 20, nothing reaches interest
	//       or principal

	rows := engine.BuildLedger(simpleTerms(), []engine.PaymentEvent{
		payment("p1", 120, jan(15)),
	}, jan(31))

	require.Len(t, rows, 1)
	row := rows[0]
	assert.True(t, row.InitiationCollected.Equal(engine.Money(100)), "initiation: %s", row.InitiationCollected)
	assert.True(t, row.AdminCollected.Equal(engine.Money(20)), "admin: %s", row.AdminCollected)
	assert.True(t, row.InterestCollected.IsZero(), "interest: %s", row.InterestCollected)
	assert.True(t, row.PrincipalCollected.IsZero())
	assert.True(t, row.OverpaymentCollected.IsZero())
	assert.True(t, row.PaymentReceived.Equal(engine.Money(120)))
}

func TestBuildLedger_InterestAccruesOnOpeningPrincipal(t *testing.T) {
	// GIVEN: 1000 principal at 20% annual, no payments
	// WHEN: Replaying one month
	// THEN: Interest receivable grows by 1000 * 0.20 / 12

	rows := engine.BuildLedger(simpleTerms(), nil, jan(31))

	require.Len(t, rows, 1)
	expected := engine.Money(1000).Mul(engine.Money(0.20)).Div(engine.Money(12))
	assert.True(t, rows[0].InterestReceivable.Equal(expected),
		"expected %s, got %s", expected, rows[0].InterestReceivable)
	assert.True(t, rows[0].OpeningPrincipal.Equal(engine.Money(1000)))
	assert.True(t, rows[0].PrincipalOutstanding.Equal(engine.Money(1000)))
}

func TestBuildLedger_ExcessCash_BecomesOverpayment(t *testing.T) {
	// GIVEN: A loan with every bucket small and a payment bigger than all
	//        outstanding amounts combined
	// WHEN: Replaying
	// THEN: The surplus lands in overpayment, principal floors at zero

	terms := engine.LoanTerms{
		LoanID:         "loan-2",
		Principal:      engine.Money(100),
		AnnualRate:     engine.Money(0),
		TotalRepayment: engine.Money(100),
		StartDate:      jan(1),
	}

	rows := engine.BuildLedger(terms, []engine.PaymentEvent{
		payment("p1", 150, jan(10)),
	}, jan(31))

	require.Len(t, rows, 1)
	row := rows[0]
	assert.True(t, row.PrincipalCollected.Equal(engine.Money(100)))
	assert.True(t, row.OverpaymentCollected.Equal(engine.Money(50)), "overpayment: %s", row.OverpaymentCollected)
	assert.True(t, row.PrincipalOutstanding.IsZero())
}

func TestBuildLedger_PaidOffPrincipal_StopsAccruing(t *testing.T) {
	// GIVEN: Principal fully recovered in month one
	// WHEN: Replaying through month three
	// THEN: No further interest accrues on the zero balance

	terms := engine.LoanTerms{
		LoanID:         "loan-3",
		Principal:      engine.Money(100),
		AnnualRate:     engine.Money(0.20),
		TotalRepayment: engine.Money(100),
		StartDate:      jan(1),
	}
	// Covers month-one accrual plus the whole principal.
	rows := engine.BuildLedger(terms, []engine.PaymentEvent{
		payment("p1", 200, jan(5)),
	}, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC))

	require.Len(t, rows, 3)
	assert.True(t, rows[1].InterestReceivable.Equal(rows[0].InterestReceivable),
		"receivable must not grow after payoff")
	assert.True(t, rows[2].OpeningPrincipal.IsZero())
}

// =============================================================================
// RATE NORMALIZATION
// =============================================================================

func TestBuildLedger_PercentAndFractionRates_Identical(t *testing.T) {
	// GIVEN: The same loan stored once with rate 0.20 and once with rate 20
	// WHEN: Replaying both
	// THEN: The ledgers are identical row for row

	a := simpleTerms()
	b := simpleTerms()
	b.AnnualRate = engine.Money(20)

	payments := []engine.PaymentEvent{payment("p1", 300, jan(20))}
	asOf := time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC)

	rowsA := engine.BuildLedger(a, payments, asOf)
	rowsB := engine.BuildLedger(b, payments, asOf)

	require.Len(t, rowsB, len(rowsA))
	for i := range rowsA {
		assert.Equal(t, rowsA[i].Month, rowsB[i].Month)
		assert.True(t, rowsA[i].InterestReceivable.Equal(rowsB[i].InterestReceivable),
			"month %s receivable: %s vs %s", rowsA[i].Month, rowsA[i].InterestReceivable, rowsB[i].InterestReceivable)
		assert.True(t, rowsA[i].InterestCollected.Equal(rowsB[i].InterestCollected))
		assert.True(t, rowsA[i].PrincipalOutstanding.Equal(rowsB[i].PrincipalOutstanding))
		assert.True(t, rowsA[i].ArrearsAmount.Equal(rowsB[i].ArrearsAmount))
	}
}

// =============================================================================
// ARREARS SEMANTICS
// =============================================================================

func TestBuildLedger_Arrears_OnlyFullyElapsedMonths(t *testing.T) {
	// GIVEN: An unpaid loan replayed as of mid-March
	// WHEN: Inspecting the rows
	// THEN: January and February carry arrears, the in-progress March
	//       row does not

	rows := engine.BuildLedger(simpleTerms(), nil, time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC))

	require.Len(t, rows, 3)
	assert.True(t, rows[0].ArrearsAmount.Equal(engine.Money(1000)), "jan arrears: %s", rows[0].ArrearsAmount)
	assert.True(t, rows[1].ArrearsAmount.Equal(engine.Money(1000)), "feb arrears: %s", rows[1].ArrearsAmount)
	assert.True(t, rows[2].ArrearsAmount.IsZero(), "current month must not flag arrears")
}

func TestBuildLedger_PaidOff_NoArrears(t *testing.T) {
	// GIVEN: A loan fully settled in month one
	// WHEN: Replaying months later
	// THEN: No row carries arrears

	terms := engine.LoanTerms{
		LoanID:         "loan-4",
		Principal:      engine.Money(100),
		AnnualRate:     engine.Money(0.20),
		TotalRepayment: engine.Money(100),
		StartDate:      jan(1),
	}
	rows := engine.BuildLedger(terms, []engine.PaymentEvent{
		payment("p1", 500, jan(2)),
	}, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))

	for _, row := range rows {
		assert.True(t, row.ArrearsAmount.IsZero(), "month %s", row.Month)
	}
}

// =============================================================================
// BOUNDS & DETERMINISM
// =============================================================================

func TestBuildLedger_AncientStartDate_CappedAt120Rows(t *testing.T) {
	// GIVEN: A malformed start date 25 years in the past
	// WHEN: Replaying as of today
	// THEN: The replay truncates at 120 rows instead of emitting hundreds

	terms := simpleTerms()
	terms.StartDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

	rows := engine.BuildLedger(terms, nil, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))

	require.Len(t, rows, engine.MaxLedgerMonths)
	assert.Equal(t, engine.MonthKey("2000-01"), rows[0].Month)
	assert.Equal(t, engine.MonthKey("2009-12"), rows[len(rows)-1].Month)
}

func TestBuildLedger_ZeroStartDate_NoRows(t *testing.T) {
	terms := simpleTerms()
	terms.StartDate = time.Time{}

	rows := engine.BuildLedger(terms, nil, jan(31))

	assert.Empty(t, rows)
}

func TestBuildLedger_Deterministic_PaymentOrderIrrelevant(t *testing.T) {
	// GIVEN: The same payments handed over in two different orders
	// WHEN: Replaying twice
	// THEN: Identical rows both times

	p1 := payment("p1", 80, jan(5))
	p2 := payment("p2", 40, jan(5))
	p3 := payment("p3", 200, time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC))
	asOf := time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)

	rowsA := engine.BuildLedger(simpleTerms(), []engine.PaymentEvent{p1, p2, p3}, asOf)
	rowsB := engine.BuildLedger(simpleTerms(), []engine.PaymentEvent{p3, p2, p1}, asOf)

	assert.Equal(t, rowsA, rowsB)
	require.Len(t, rowsA, 2)
	assert.True(t, rowsA[0].PaymentReceived.Equal(engine.Money(120)))
	assert.True(t, rowsA[1].TotalPaidToDate.Equal(engine.Money(320)))
}

func TestBuildLedger_SameMonthPayments_Pooled(t *testing.T) {
	// GIVEN: Three receipts inside one calendar month
	// WHEN: Replaying
	// THEN: The month sees one pooled cash figure

	rows := engine.BuildLedger(simpleTerms(), []engine.PaymentEvent{
		payment("p1", 10, jan(3)),
		payment("p2", 20, jan(17)),
		payment("p3", 30, jan(29)),
	}, jan(31))

	require.Len(t, rows, 1)
	assert.True(t, rows[0].PaymentReceived.Equal(engine.Money(60)))
}
