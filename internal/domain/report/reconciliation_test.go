package report

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolpay/backend/internal/domain/billing"
)

func newEnrollmentFor(t *testing.T, student billing.Student, className, termID string) billing.Enrollment {
	t.Helper()
	e, err := billing.NewEnrollment(student.ID, student.FullName, className, termID, 2026, student.Residence)
	require.NoError(t, err)
	return *e
}

func TestBuildReconciliationReport(t *testing.T) {
	matched := newStudent(t, "ADM-001", "Amina Okoro", billing.ResidenceBoarder)
	unbilled := newStudent(t, "ADM-002", "Brian Mwangi", billing.ResidenceDay)
	ghost := newStudent(t, "ADM-003", "Cara Wanjiru", billing.ResidenceDay)

	enrollments := []billing.Enrollment{
		newEnrollmentFor(t, matched, "Form 1A", "2026-T1"),
		newEnrollmentFor(t, unbilled, "Form 1A", "2026-T1"),
	}

	matchedInv := newInvoiceFor(t, "INV-1", matched, "Form 1A - 2026-T1", "2026-T1", tuitionItems("1000.00"), "0", "2026-01-10", "2026-02-10")
	// Invoiced but not on the roster
	ghostInv := newInvoiceFor(t, "INV-2", ghost, "Form 1A - 2026-T1", "2026-T1", tuitionItems("1000.00"), "0", "2026-01-10", "2026-02-10")
	// Voided invoices do not count as billed
	voidedInv := newInvoiceFor(t, "INV-3", unbilled, "Form 1A - 2026-T1", "2026-T1", tuitionItems("1000.00"), "0", "2026-01-10", "2026-02-10")
	require.NoError(t, voidedInv.Void("issued in error"))

	snap := billing.NewSnapshot(
		[]billing.Invoice{*matchedInv, *ghostInv, *voidedInv},
		nil, nil,
		enrollments,
		[]billing.Student{matched, unbilled, ghost},
		nil,
	)

	r, err := BuildReconciliationReport(snap, "2026-T1")
	require.NoError(t, err)

	assert.Equal(t, 2, r.EnrolledCount)
	assert.Equal(t, 2, r.InvoicedCount)
	assert.Equal(t, 1, r.MatchedCount)
	assert.Equal(t, 2, r.DiscrepancyCount)

	// Only the enrolled-and-invoiced student counts toward the rate; the
	// ghost invoice must not inflate it
	assert.True(t, r.ReconciliationRate.Equal(decimal.RequireFromString("0.5")))

	require.Len(t, r.Rows, 3)

	byStudent := make(map[string]ReconciliationRow)
	for _, row := range r.Rows {
		byStudent[row.StudentName] = row
	}

	ok := byStudent["Amina Okoro"]
	assert.True(t, ok.Enrolled)
	assert.True(t, ok.Invoiced)
	assert.False(t, ok.Discrepancy)

	missing := byStudent["Brian Mwangi"]
	assert.True(t, missing.Enrolled)
	assert.False(t, missing.Invoiced)
	assert.True(t, missing.Discrepancy)
	assert.Contains(t, missing.Explanation, "no invoice issued")

	extra := byStudent["Cara Wanjiru"]
	assert.False(t, extra.Enrolled)
	assert.True(t, extra.Invoiced)
	assert.True(t, extra.Discrepancy)
	assert.Contains(t, extra.Explanation, "without a current enrollment")

	// Discrepancies sort first
	assert.True(t, r.Rows[0].Discrepancy)
	assert.True(t, r.Rows[1].Discrepancy)
	assert.False(t, r.Rows[2].Discrepancy)
}

func TestBuildReconciliationReport_RateCountsMatchedOnly(t *testing.T) {
	// Ten on the roster, eight invoiced, plus one invoice surviving for a
	// student who withdrew before the term started
	students := make([]billing.Student, 0, 11)
	enrollments := make([]billing.Enrollment, 0, 11)
	invoices := make([]billing.Invoice, 0, 9)

	for i := 0; i < 10; i++ {
		st := newStudent(t, fmt.Sprintf("ADM-%03d", i+1), fmt.Sprintf("Student %02d", i+1), billing.ResidenceDay)
		students = append(students, st)
		enrollments = append(enrollments, newEnrollmentFor(t, st, "Form 2B", "2026-T1"))
		if i < 8 {
			inv := newInvoiceFor(t, fmt.Sprintf("INV-%d", i+1), st, "Form 2B - 2026-T1", "2026-T1",
				tuitionItems("1000.00"), "0", "2026-01-10", "2026-02-10")
			invoices = append(invoices, *inv)
		}
	}

	withdrawn := newStudent(t, "ADM-011", "Walter Otieno", billing.ResidenceDay)
	students = append(students, withdrawn)
	gone := newEnrollmentFor(t, withdrawn, "Form 2B", "2026-T1")
	gone.Withdraw(day("2026-01-05"))
	enrollments = append(enrollments, gone)
	invoices = append(invoices, *newInvoiceFor(t, "INV-9", withdrawn, "Form 2B - 2026-T1", "2026-T1",
		tuitionItems("1000.00"), "0", "2026-01-10", "2026-02-10"))

	snap := billing.NewSnapshot(invoices, nil, nil, enrollments, students, nil)

	r, err := BuildReconciliationReport(snap, "2026-T1")
	require.NoError(t, err)

	assert.Equal(t, 10, r.EnrolledCount)
	assert.Equal(t, 9, r.InvoicedCount)
	assert.Equal(t, 8, r.MatchedCount)
	// Two unbilled plus the invoice for the withdrawn student
	assert.Equal(t, 3, r.DiscrepancyCount)
	assert.True(t, r.ReconciliationRate.Equal(decimal.RequireFromString("0.8")))
}

func TestBuildReconciliationReport_WithdrawnEnrollmentOffRoster(t *testing.T) {
	st := newStudent(t, "ADM-001", "Amina Okoro", billing.ResidenceBoarder)
	e := newEnrollmentFor(t, st, "Form 1A", "2026-T1")
	e.Withdraw(day("2026-01-20"))

	inv := newInvoiceFor(t, "INV-1", st, "Form 1A - 2026-T1", "2026-T1",
		tuitionItems("1000.00"), "0", "2026-01-10", "2026-02-10")

	snap := billing.NewSnapshot(
		[]billing.Invoice{*inv}, nil, nil,
		[]billing.Enrollment{e},
		[]billing.Student{st},
		nil,
	)

	r, err := BuildReconciliationReport(snap, "2026-T1")
	require.NoError(t, err)

	assert.Equal(t, 0, r.EnrolledCount)
	assert.Equal(t, 1, r.InvoicedCount)
	assert.Equal(t, 1, r.DiscrepancyCount)

	require.Len(t, r.Rows, 1)
	assert.False(t, r.Rows[0].Enrolled)
	assert.True(t, r.Rows[0].Invoiced)
	assert.Contains(t, r.Rows[0].Explanation, "without a current enrollment")
}

func TestBuildReconciliationReport_EmptyRoster(t *testing.T) {
	snap := billing.NewSnapshot(nil, nil, nil, nil, nil, nil)

	r, err := BuildReconciliationReport(snap, "2026-T1")
	require.NoError(t, err)

	assert.Equal(t, 0, r.EnrolledCount)
	assert.Equal(t, 0, r.InvoicedCount)
	assert.True(t, r.ReconciliationRate.IsZero(), "rate is zero when none enrolled, not a division error")
	assert.Empty(t, r.Rows)
}

func TestBuildReconciliationReport_RequiresTerm(t *testing.T) {
	snap := billing.NewSnapshot(nil, nil, nil, nil, nil, nil)

	_, err := BuildReconciliationReport(snap, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_TERM")
}
