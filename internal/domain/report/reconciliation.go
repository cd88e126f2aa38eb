package report

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/shared"
)

// ReconciliationRow is one student in the enrollment-vs-billing match
type ReconciliationRow struct {
	StudentID   uuid.UUID `json:"student_id"`
	StudentName string    `json:"student_name"`
	ClassName   string    `json:"class_name,omitempty"`
	Enrolled    bool      `json:"enrolled"`
	Invoiced    bool      `json:"invoiced"`
	Discrepancy bool      `json:"discrepancy"`
	Explanation string    `json:"explanation,omitempty"`
}

// ReconciliationReport matches a term's enrollment roster against the
// invoices issued for it
type ReconciliationReport struct {
	TermID             string              `json:"term_id"`
	Rows               []ReconciliationRow `json:"rows"`
	EnrolledCount      int                 `json:"enrolled_count"`
	InvoicedCount      int                 `json:"invoiced_count"`
	MatchedCount       int                 `json:"matched_count"`
	DiscrepancyCount   int                 `json:"discrepancy_count"`
	ReconciliationRate decimal.Decimal     `json:"reconciliation_rate"` // matched / enrolled, 0 when none enrolled
}

// BuildReconciliationReport matches the term's roster against its
// non-voided invoices. The roster holds only active enrollments; a student
// withdrawn from the term is off it, so a surviving invoice for them reads
// as invoiced without a current enrollment. Every student touched by either
// set gets exactly one row; a student enrolled without an invoice or
// invoiced without a current enrollment is a discrepancy.
func BuildReconciliationReport(snap *billing.Snapshot, termID string) (*ReconciliationReport, error) {
	if snap == nil {
		return nil, shared.NewDomainError("VALIDATION_FAILURE", "Snapshot is required")
	}
	if termID == "" {
		return nil, shared.NewDomainError("INVALID_TERM", "Term ID is required")
	}

	roster := make(map[uuid.UUID]*billing.Enrollment)
	for _, e := range snap.EnrollmentsForTerm(termID) {
		if !e.Active {
			continue
		}
		enrollment := e
		roster[e.StudentID] = &enrollment
	}

	invoiced := make(map[uuid.UUID]string) // student -> a representative student name
	for _, inv := range snap.InvoicesForTerm(termID) {
		if inv.IsVoided() {
			continue
		}
		invoiced[inv.StudentID] = inv.StudentName
	}

	r := &ReconciliationReport{
		TermID:        termID,
		Rows:          make([]ReconciliationRow, 0, len(roster)+len(invoiced)),
		EnrolledCount: len(roster),
		InvoicedCount: len(invoiced),
	}

	seen := make(map[uuid.UUID]bool)
	for studentID, enrollment := range roster {
		seen[studentID] = true
		row := ReconciliationRow{
			StudentID:   studentID,
			StudentName: enrollment.StudentName,
			ClassName:   enrollment.ClassName,
			Enrolled:    true,
		}
		if _, ok := invoiced[studentID]; ok {
			row.Invoiced = true
			r.MatchedCount++
		} else {
			row.Discrepancy = true
			row.Explanation = fmt.Sprintf("Enrolled in %s but no invoice issued for term %s", enrollment.ClassName, termID)
		}
		r.Rows = append(r.Rows, row)
	}

	for studentID, name := range invoiced {
		if seen[studentID] {
			continue
		}
		r.Rows = append(r.Rows, ReconciliationRow{
			StudentID:   studentID,
			StudentName: name,
			Invoiced:    true,
			Discrepancy: true,
			Explanation: fmt.Sprintf("Invoiced for term %s without a current enrollment", termID),
		})
	}

	for i := range r.Rows {
		if r.Rows[i].Discrepancy {
			r.DiscrepancyCount++
		}
	}

	if r.EnrolledCount > 0 {
		r.ReconciliationRate = decimal.NewFromInt(int64(r.MatchedCount)).
			Div(decimal.NewFromInt(int64(r.EnrolledCount))).Round(4)
	}

	sort.SliceStable(r.Rows, func(i, j int) bool {
		if r.Rows[i].Discrepancy != r.Rows[j].Discrepancy {
			return r.Rows[i].Discrepancy
		}
		if r.Rows[i].StudentName != r.Rows[j].StudentName {
			return r.Rows[i].StudentName < r.Rows[j].StudentName
		}
		return r.Rows[i].StudentID.String() < r.Rows[j].StudentID.String()
	})

	return r, nil
}
