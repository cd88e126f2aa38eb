package ledger

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// EntryKind classifies a ledger line
type EntryKind string

const (
	EntryKindDebit  EntryKind = "DEBIT"  // An invoice charging the student
	EntryKindCredit EntryKind = "CREDIT" // A receipt paying the student's account
	EntryKindInfo   EntryKind = "INFO"   // Allocation detail under a receipt, no amount
)

// String returns the string representation
func (k EntryKind) String() string {
	return string(k)
}

// Entry is one line in a student's materialized ledger. Debit and Credit
// carry amounts only on DEBIT and CREDIT lines; INFO lines narrate how a
// receipt was spread across invoices.
type Entry struct {
	Date           valueobject.Date  `json:"date"`
	Kind           EntryKind         `json:"kind"`
	DocumentNumber string            `json:"document_number"`
	Description    string            `json:"description"`
	Debit          valueobject.Money `json:"debit"`
	Credit         valueobject.Money `json:"credit"`
	Balance        valueobject.Money `json:"balance"` // Running balance after this line
}

// Ledger is a student's full account statement, materialized on demand
// from invoices and receipts. It is never stored.
type Ledger struct {
	StudentID    uuid.UUID         `json:"student_id"`
	StudentName  string            `json:"student_name"`
	Entries      []Entry           `json:"entries"`
	TotalBilled  valueobject.Money `json:"total_billed"`
	TotalPaid    valueobject.Money `json:"total_paid"`
	Balance      valueobject.Money `json:"balance"`       // Billed minus paid; negative means the account is in credit
	CreditOnFile valueobject.Money `json:"credit_on_file"` // Current signed credit balance
}

// entrySeq pairs an entry with sort keys. INFO lines sort directly after
// their receipt line regardless of document number.
type entrySeq struct {
	entry Entry
	seq   int
}

// Materialize builds a student's ledger from the snapshot. Voided invoices
// and receipts contribute no amounts; each non-voided invoice appears as
// one debit of its full total and each non-voided receipt as one credit of
// the full amount paid, with its active allocations narrated as INFO lines.
// Lines are ordered by date ascending with document number breaking ties,
// so repeated materialization of the same snapshot is byte-for-byte stable.
//
// An unknown student is NOT_FOUND; a known student with no documents gets
// an empty statement with every total at zero.
func Materialize(snapshot *billing.Snapshot, studentID uuid.UUID) (*Ledger, error) {
	if snapshot == nil {
		return nil, shared.NewDomainError("VALIDATION_FAILURE", "Snapshot is required")
	}
	student := snapshot.StudentByID(studentID)
	if student == nil {
		return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Student %s not found", studentID))
	}

	rows := make([]entrySeq, 0)
	seq := 0

	for _, inv := range snapshot.InvoicesForStudent(studentID) {
		if inv.IsVoided() {
			continue
		}
		rows = append(rows, entrySeq{
			entry: Entry{
				Date:           inv.IssueDate,
				Kind:           EntryKindDebit,
				DocumentNumber: inv.InvoiceNumber,
				Description:    fmt.Sprintf("Invoice %s (%s)", inv.InvoiceNumber, inv.EnrollmentName),
				Debit:          inv.TotalBill,
				Credit:         valueobject.ZeroMoney(),
			},
			seq: seq,
		})
		seq++
	}

	for _, rcpt := range snapshot.ReceiptsForStudent(studentID) {
		if rcpt.Voided {
			continue
		}
		rows = append(rows, entrySeq{
			entry: Entry{
				Date:           rcpt.PaymentDate,
				Kind:           EntryKindCredit,
				DocumentNumber: rcpt.ReceiptNumber,
				Description:    fmt.Sprintf("Receipt %s (%s)", rcpt.ReceiptNumber, rcpt.PaymentMethod),
				Debit:          valueobject.ZeroMoney(),
				Credit:         rcpt.AmountPaid,
			},
			seq: seq,
		})
		seq++
		for _, alloc := range rcpt.ActiveAllocations() {
			rows = append(rows, entrySeq{
				entry: Entry{
					Date:           rcpt.PaymentDate,
					Kind:           EntryKindInfo,
					DocumentNumber: rcpt.ReceiptNumber,
					Description:    fmt.Sprintf("  applied %s to invoice %s", alloc.AmountApplied, alloc.InvoiceNumber),
					Debit:          valueobject.ZeroMoney(),
					Credit:         valueobject.ZeroMoney(),
				},
				seq: seq,
			})
			seq++
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		ei, ej := rows[i].entry, rows[j].entry
		if !ei.Date.Equal(ej.Date) {
			return ei.Date.Before(ej.Date)
		}
		if ei.DocumentNumber != ej.DocumentNumber {
			return ei.DocumentNumber < ej.DocumentNumber
		}
		return rows[i].seq < rows[j].seq
	})

	ledger := &Ledger{
		StudentID:    studentID,
		StudentName:  student.FullName,
		Entries:      make([]Entry, 0, len(rows)),
		TotalBilled:  valueobject.ZeroMoney(),
		TotalPaid:    valueobject.ZeroMoney(),
		CreditOnFile: snapshot.CreditBalanceForStudent(studentID),
	}

	running := valueobject.ZeroMoney()
	for i := range rows {
		e := rows[i].entry
		running = running.Add(e.Debit).Subtract(e.Credit)
		e.Balance = running
		ledger.Entries = append(ledger.Entries, e)
		ledger.TotalBilled = ledger.TotalBilled.Add(e.Debit)
		ledger.TotalPaid = ledger.TotalPaid.Add(e.Credit)
	}
	ledger.Balance = running

	return ledger, nil
}
