package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolpay/backend/internal/domain/billing"
)

func TestBuildOutstandingFeesReport(t *testing.T) {
	boarder := newStudent(t, "ADM-001", "Amina Okoro", billing.ResidenceBoarder)
	dayStudent := newStudent(t, "ADM-002", "Brian Mwangi", billing.ResidenceDay)

	// Boarder owes across two terms, partially paid on the first
	first := newInvoiceFor(t, "INV-1", boarder, "Form 1A - 2026-T1", "2026-T1", tuitionItems("1000.00"), "0", "2026-01-10", "2026-02-10")
	require.NoError(t, first.ApplyAllocation(mny("400.00")))
	second := newInvoiceFor(t, "INV-2", boarder, "Form 1A - 2026-T2", "2026-T2", tuitionItems("1000.00"), "0", "2026-05-10", "2026-06-10")

	// Day student fully paid, drops out of the report
	settled := newInvoiceFor(t, "INV-3", dayStudent, "Form 4B - 2026-T1", "2026-T1", tuitionItems("600.00"), "0", "2026-01-10", "2026-02-10")
	require.NoError(t, settled.ApplyAllocation(mny("600.00")))

	snap := billing.NewSnapshot(
		[]billing.Invoice{*first, *second, *settled},
		nil, nil, nil,
		[]billing.Student{boarder, dayStudent},
		nil,
	)

	r, err := BuildOutstandingFeesReport(snap)
	require.NoError(t, err)

	assert.True(t, r.Total.Equals(mny("1600.00")))
	assert.Equal(t, 1, r.StudentCount)

	require.Len(t, r.Students, 1)
	row := r.Students[0]
	assert.Equal(t, boarder.ID, row.StudentID)
	assert.Equal(t, 2, row.InvoiceCount)
	assert.True(t, row.TotalBilled.Equals(mny("2000.00")))
	assert.True(t, row.TotalPaid.Equals(mny("400.00")))
	assert.True(t, row.Outstanding.Equals(mny("1600.00")))

	assert.True(t, r.ByEnrollment["Form 1A - 2026-T1"].Equals(mny("600.00")))
	assert.True(t, r.ByEnrollment["Form 1A - 2026-T2"].Equals(mny("1000.00")))
	assert.True(t, r.ByResidence["BOARDER"].Equals(mny("1600.00")))
	_, hasDay := r.ByResidence["DAY"]
	assert.False(t, hasDay)
}

func TestBuildOutstandingFeesReport_TermFilter(t *testing.T) {
	boarder := newStudent(t, "ADM-001", "Amina Okoro", billing.ResidenceBoarder)

	t1 := newInvoiceFor(t, "INV-1", boarder, "Form 1A - 2026-T1", "2026-T1", tuitionItems("1000.00"), "0", "2026-01-10", "2026-02-10")
	t2 := newInvoiceFor(t, "INV-2", boarder, "Form 1A - 2026-T2", "2026-T2", tuitionItems("700.00"), "0", "2026-05-10", "2026-06-10")

	snap := billing.NewSnapshot(
		[]billing.Invoice{*t1, *t2},
		nil, nil, nil,
		[]billing.Student{boarder},
		nil,
	)

	r, err := BuildOutstandingFeesReport(snap, TermFilter{TermID: "2026-T2"})
	require.NoError(t, err)

	assert.True(t, r.Total.Equals(mny("700.00")))
	require.Len(t, r.Students, 1)
	assert.Equal(t, 1, r.Students[0].InvoiceCount)
}

func TestBuildOutstandingFeesReport_OrderedByOutstanding(t *testing.T) {
	small := newStudent(t, "ADM-001", "Amina Okoro", billing.ResidenceBoarder)
	large := newStudent(t, "ADM-002", "Brian Mwangi", billing.ResidenceDay)

	a := newInvoiceFor(t, "INV-1", small, "Form 1A - 2026-T1", "2026-T1", tuitionItems("100.00"), "0", "2026-01-10", "2026-02-10")
	b := newInvoiceFor(t, "INV-2", large, "Form 4B - 2026-T1", "2026-T1", tuitionItems("900.00"), "0", "2026-01-10", "2026-02-10")

	snap := billing.NewSnapshot(
		[]billing.Invoice{*a, *b},
		nil, nil, nil,
		[]billing.Student{small, large},
		nil,
	)

	r, err := BuildOutstandingFeesReport(snap)
	require.NoError(t, err)

	require.Len(t, r.Students, 2)
	assert.Equal(t, "Brian Mwangi", r.Students[0].StudentName, "largest debt first")
	assert.Equal(t, "Amina Okoro", r.Students[1].StudentName)
}
