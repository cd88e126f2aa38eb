package report

import (
	"sort"

	"github.com/google/uuid"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// OutstandingStudentRow is one student's open position in the outstanding
// fees report
type OutstandingStudentRow struct {
	StudentID    uuid.UUID         `json:"student_id"`
	StudentName  string            `json:"student_name"`
	Enrollment   string            `json:"enrollment"` // Latest open invoice's enrollment label
	Residence    billing.Residence `json:"residence"`
	InvoiceCount int               `json:"invoice_count"`
	TotalBilled  valueobject.Money `json:"total_billed"`
	TotalPaid    valueobject.Money `json:"total_paid"`
	Outstanding  valueobject.Money `json:"outstanding"`
}

// OutstandingFeesReport totals what is still owed, grouped by enrollment
// and residence with one detail row per owing student
type OutstandingFeesReport struct {
	ByEnrollment map[string]valueobject.Money `json:"by_enrollment"`
	ByResidence  map[string]valueobject.Money `json:"by_residence"`
	Students     []OutstandingStudentRow      `json:"students"`
	Total        valueobject.Money            `json:"total"`
	StudentCount int                          `json:"student_count"`
}

// BuildOutstandingFeesReport builds the outstanding fees report over open,
// non-voided invoices. Accepts class, residence and term filters.
func BuildOutstandingFeesReport(snap *billing.Snapshot, filters ...Filter) (*OutstandingFeesReport, error) {
	if snap == nil {
		return nil, shared.NewDomainError("VALIDATION_FAILURE", "Snapshot is required")
	}
	if err := ValidateFilters(filters, FilterKindClass, FilterKindResidence, FilterKindTerm); err != nil {
		return nil, err
	}

	r := &OutstandingFeesReport{
		ByEnrollment: make(map[string]valueobject.Money),
		ByResidence:  make(map[string]valueobject.Money),
		Students:     make([]OutstandingStudentRow, 0),
		Total:        valueobject.ZeroMoney(),
	}

	perStudent := make(map[uuid.UUID]*OutstandingStudentRow)

	for _, inv := range snap.ActiveInvoices() {
		if !inv.IsOpen() {
			continue
		}
		if !invoiceMatches(snap, inv, filters) {
			continue
		}

		outstanding := inv.Outstanding()
		residence := snap.ResidenceForStudent(inv.StudentID)

		r.ByEnrollment[inv.EnrollmentName] = r.ByEnrollment[inv.EnrollmentName].Add(outstanding)
		if residence != "" {
			r.ByResidence[residence.String()] = r.ByResidence[residence.String()].Add(outstanding)
		}
		r.Total = r.Total.Add(outstanding)

		row, ok := perStudent[inv.StudentID]
		if !ok {
			row = &OutstandingStudentRow{
				StudentID:   inv.StudentID,
				StudentName: inv.StudentName,
				Residence:   residence,
				TotalBilled: valueobject.ZeroMoney(),
				TotalPaid:   valueobject.ZeroMoney(),
				Outstanding: valueobject.ZeroMoney(),
			}
			perStudent[inv.StudentID] = row
		}
		row.Enrollment = inv.EnrollmentName
		row.InvoiceCount++
		row.TotalBilled = row.TotalBilled.Add(inv.TotalBill)
		row.TotalPaid = row.TotalPaid.Add(inv.PaidAmount())
		row.Outstanding = row.Outstanding.Add(outstanding)
	}

	for _, row := range perStudent {
		r.Students = append(r.Students, *row)
	}
	sort.SliceStable(r.Students, func(i, j int) bool {
		if !r.Students[i].Outstanding.Equals(r.Students[j].Outstanding) {
			return r.Students[j].Outstanding.LessThan(r.Students[i].Outstanding)
		}
		return r.Students[i].StudentName < r.Students[j].StudentName
	})
	r.StudentCount = len(r.Students)

	return r, nil
}
