package billing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// Snapshot is the immutable working set every derived view is computed
// from: invoices, receipts, credit transactions, enrollments, students and
// the fee catalog, loaded once and indexed for lookup. Readers never mutate
// a snapshot; writers (the payment service and applied repairs) persist
// through repositories and reload.
type Snapshot struct {
	Invoices    []Invoice
	Receipts    []Receipt
	Credits     []CreditTransaction
	Enrollments []Enrollment
	Students    []Student
	Fees        []FeeItem

	invoiceByID       map[uuid.UUID]*Invoice
	receiptByID       map[uuid.UUID]*Receipt
	studentByID       map[uuid.UUID]*Student
	feeByID           map[uuid.UUID]*FeeItem
	invoicesByStudent map[uuid.UUID][]*Invoice
	receiptsByStudent map[uuid.UUID][]*Receipt
	creditsByStudent  map[uuid.UUID][]CreditTransaction
}

// NewSnapshot builds a snapshot with lookup indexes over the given records
func NewSnapshot(
	invoices []Invoice,
	receipts []Receipt,
	credits []CreditTransaction,
	enrollments []Enrollment,
	students []Student,
	fees []FeeItem,
) *Snapshot {
	s := &Snapshot{
		Invoices:    invoices,
		Receipts:    receipts,
		Credits:     credits,
		Enrollments: enrollments,
		Students:    students,
		Fees:        fees,

		invoiceByID:       make(map[uuid.UUID]*Invoice, len(invoices)),
		receiptByID:       make(map[uuid.UUID]*Receipt, len(receipts)),
		studentByID:       make(map[uuid.UUID]*Student, len(students)),
		feeByID:           make(map[uuid.UUID]*FeeItem, len(fees)),
		invoicesByStudent: make(map[uuid.UUID][]*Invoice),
		receiptsByStudent: make(map[uuid.UUID][]*Receipt),
		creditsByStudent:  make(map[uuid.UUID][]CreditTransaction),
	}
	for i := range invoices {
		inv := &s.Invoices[i]
		s.invoiceByID[inv.ID] = inv
		s.invoicesByStudent[inv.StudentID] = append(s.invoicesByStudent[inv.StudentID], inv)
	}
	for i := range receipts {
		r := &s.Receipts[i]
		s.receiptByID[r.ID] = r
		s.receiptsByStudent[r.StudentID] = append(s.receiptsByStudent[r.StudentID], r)
	}
	for i := range credits {
		c := s.Credits[i]
		s.creditsByStudent[c.StudentID] = append(s.creditsByStudent[c.StudentID], c)
	}
	for i := range students {
		s.studentByID[s.Students[i].ID] = &s.Students[i]
	}
	for i := range fees {
		s.feeByID[s.Fees[i].ID] = &s.Fees[i]
	}
	return s
}

// Validate checks required linkage on every record. The engine refuses to
// compute over records it cannot attribute to a student rather than
// silently defaulting them.
func (s *Snapshot) Validate() error {
	for i := range s.Invoices {
		if s.Invoices[i].StudentID == uuid.Nil {
			return shared.NewDomainError("VALIDATION_FAILURE",
				fmt.Sprintf("Invoice %s has no student", s.Invoices[i].InvoiceNumber))
		}
		if s.Invoices[i].EnrollmentID == uuid.Nil {
			return shared.NewDomainError("VALIDATION_FAILURE",
				fmt.Sprintf("Invoice %s has no enrollment", s.Invoices[i].InvoiceNumber))
		}
	}
	for i := range s.Receipts {
		if s.Receipts[i].StudentID == uuid.Nil {
			return shared.NewDomainError("VALIDATION_FAILURE",
				fmt.Sprintf("Receipt %s has no student", s.Receipts[i].ReceiptNumber))
		}
	}
	return nil
}

// InvoiceByID returns the invoice with the given ID, or nil
func (s *Snapshot) InvoiceByID(id uuid.UUID) *Invoice {
	return s.invoiceByID[id]
}

// ReceiptByID returns the receipt with the given ID, or nil
func (s *Snapshot) ReceiptByID(id uuid.UUID) *Receipt {
	return s.receiptByID[id]
}

// StudentByID returns the student with the given ID, or nil
func (s *Snapshot) StudentByID(id uuid.UUID) *Student {
	return s.studentByID[id]
}

// FeeByID returns the fee catalog entry with the given ID, or nil
func (s *Snapshot) FeeByID(id uuid.UUID) *FeeItem {
	return s.feeByID[id]
}

// InvoicesForStudent returns all invoices for a student, voided included
func (s *Snapshot) InvoicesForStudent(studentID uuid.UUID) []*Invoice {
	return s.invoicesByStudent[studentID]
}

// ReceiptsForStudent returns all receipts for a student, voided included
func (s *Snapshot) ReceiptsForStudent(studentID uuid.UUID) []*Receipt {
	return s.receiptsByStudent[studentID]
}

// CreditsForStudent returns all credit transactions for a student
func (s *Snapshot) CreditsForStudent(studentID uuid.UUID) []CreditTransaction {
	return s.creditsByStudent[studentID]
}

// CreditBalanceForStudent returns the student's current credit balance
func (s *Snapshot) CreditBalanceForStudent(studentID uuid.UUID) valueobject.Money {
	return CreditBalance(s.creditsByStudent[studentID])
}

// ActiveInvoices returns all non-voided invoices
func (s *Snapshot) ActiveInvoices() []*Invoice {
	active := make([]*Invoice, 0, len(s.Invoices))
	for i := range s.Invoices {
		if !s.Invoices[i].IsVoided() {
			active = append(active, &s.Invoices[i])
		}
	}
	return active
}

// ActiveReceipts returns all non-voided receipts
func (s *Snapshot) ActiveReceipts() []*Receipt {
	active := make([]*Receipt, 0, len(s.Receipts))
	for i := range s.Receipts {
		if !s.Receipts[i].Voided {
			active = append(active, &s.Receipts[i])
		}
	}
	return active
}

// OpenInvoicesForStudent returns the student's non-voided invoices that
// still carry an outstanding balance
func (s *Snapshot) OpenInvoicesForStudent(studentID uuid.UUID) []*Invoice {
	open := make([]*Invoice, 0)
	for _, inv := range s.invoicesByStudent[studentID] {
		if inv.IsOpen() {
			open = append(open, inv)
		}
	}
	return open
}

// EnrollmentsForTerm returns the roster for a term
func (s *Snapshot) EnrollmentsForTerm(termID string) []Enrollment {
	roster := make([]Enrollment, 0)
	for i := range s.Enrollments {
		if s.Enrollments[i].TermID == termID {
			roster = append(roster, s.Enrollments[i])
		}
	}
	return roster
}

// InvoicesForTerm returns all invoices issued for a term, voided included
func (s *Snapshot) InvoicesForTerm(termID string) []*Invoice {
	invoices := make([]*Invoice, 0)
	for i := range s.Invoices {
		if s.Invoices[i].TermID == termID {
			invoices = append(invoices, &s.Invoices[i])
		}
	}
	return invoices
}

// EnrollmentForStudentTerm returns the student's enrollment in a term, or nil
func (s *Snapshot) EnrollmentForStudentTerm(studentID uuid.UUID, termID string) *Enrollment {
	for i := range s.Enrollments {
		if s.Enrollments[i].StudentID == studentID && s.Enrollments[i].TermID == termID {
			return &s.Enrollments[i]
		}
	}
	return nil
}

// ResidenceForStudent returns the student's residence, preferring the
// student record and falling back to any enrollment
func (s *Snapshot) ResidenceForStudent(studentID uuid.UUID) Residence {
	if st := s.studentByID[studentID]; st != nil && st.Residence.IsValid() {
		return st.Residence
	}
	for i := range s.Enrollments {
		if s.Enrollments[i].StudentID == studentID {
			return s.Enrollments[i].Residence
		}
	}
	return ""
}
