package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING" // Unpaid, outstanding balance equals total
	InvoiceStatusPartial InvoiceStatus = "PARTIAL" // Partially paid, 0 < balance < total
	InvoiceStatusPaid    InvoiceStatus = "PAID"    // Fully paid, balance = 0
	InvoiceStatusVoided  InvoiceStatus = "VOIDED"  // Cancelled; retained for audit only
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusVoided:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the invoice is in a terminal state
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusVoided
}

// CanApplyAllocation returns true if payment allocations can be applied in this status
func (s InvoiceStatus) CanApplyAllocation() bool {
	return s == InvoiceStatusPending || s == InvoiceStatusPartial
}

// BillItem is one line on an invoice, referencing a fee catalog entry.
// It is a value object within the Invoice aggregate, stored as JSONB.
type BillItem struct {
	FeeID   uuid.UUID         `json:"fee_id"`
	FeeName string            `json:"fee_name"`
	Amount  valueobject.Money `json:"amount"`
}

// BillItems is a slice of BillItem that implements GORM Scanner/Valuer for JSONB storage
type BillItems []BillItem

// Value implements driver.Valuer interface for GORM to store as JSONB
func (b BillItems) Value() (driver.Value, error) {
	if b == nil {
		return "[]", nil
	}
	return json.Marshal(b)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (b *BillItems) Scan(value interface{}) error {
	if value == nil {
		*b = BillItems{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan BillItems: unsupported type")
	}

	if len(bytes) == 0 {
		*b = BillItems{}
		return nil
	}

	return json.Unmarshal(bytes, b)
}

// Total returns the sum of all line item amounts
func (b BillItems) Total() valueobject.Money {
	total := valueobject.ZeroMoney()
	for _, item := range b {
		total = total.Add(item.Amount)
	}
	return total
}

// Invoice represents a term bill issued to a student.
// Balance tracks the amount still owed; it is decremented by payment
// allocations and restored when a paying receipt is voided.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber  string            `json:"invoice_number"`
	StudentID      uuid.UUID         `json:"student_id"`
	StudentName    string            `json:"student_name"`
	EnrollmentID   uuid.UUID         `json:"enrollment_id"`
	EnrollmentName string            `json:"enrollment_name"` // Class + term label, denormalized for reports
	TermID         string            `json:"term_id"`
	LineItems      BillItems         `json:"line_items"`
	BalanceForward valueobject.Money `json:"balance_forward"` // Debt carried in from a prior term
	TotalBill      valueobject.Money `json:"total_bill"`      // Line items + balance forward
	Balance        valueobject.Money `json:"balance"`         // Amount still owed
	Status         InvoiceStatus     `json:"status"`
	IssueDate      valueobject.Date  `json:"issue_date"`
	DueDate        valueobject.Date  `json:"due_date"`
	VoidedAt       *time.Time        `json:"voided_at,omitempty"`
	VoidReason     string            `json:"void_reason,omitempty"`
}

// NewInvoice creates a new invoice for a student's enrollment
func NewInvoice(
	invoiceNumber string,
	studentID uuid.UUID,
	studentName string,
	enrollmentID uuid.UUID,
	enrollmentName string,
	termID string,
	lineItems []BillItem,
	balanceForward valueobject.Money,
	issueDate valueobject.Date,
	dueDate valueobject.Date,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if studentID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILURE", "Invoice must reference a student")
	}
	if enrollmentID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILURE", "Invoice must reference an enrollment")
	}
	if termID == "" {
		return nil, shared.NewDomainError("INVALID_TERM", "Term ID cannot be empty")
	}
	if balanceForward.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Balance forward cannot be negative")
	}
	for _, item := range lineItems {
		if item.FeeID == uuid.Nil {
			return nil, shared.NewDomainError("VALIDATION_FAILURE", "Bill item must reference a fee catalog entry")
		}
		if item.Amount.IsNegative() {
			return nil, shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("Bill item %s cannot have a negative amount", item.FeeName))
		}
	}
	if issueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Issue date is required")
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Due date is required")
	}

	items := make(BillItems, len(lineItems))
	copy(items, lineItems)
	total := items.Total().Add(balanceForward)

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		StudentID:         studentID,
		StudentName:       studentName,
		EnrollmentID:      enrollmentID,
		EnrollmentName:    enrollmentName,
		TermID:            termID,
		LineItems:         items,
		BalanceForward:    balanceForward,
		TotalBill:         total,
		Balance:           total,
		Status:            InvoiceStatusPending,
		IssueDate:         issueDate,
		DueDate:           dueDate,
	}
	if total.IsZero() {
		inv.Status = InvoiceStatusPaid
	}

	inv.AddDomainEvent(NewInvoiceIssuedEvent(inv))

	return inv, nil
}

// ApplyAllocation decrements the balance by a payment allocation.
// The allocation must not exceed the outstanding balance; excess payment is
// credited upstream, never over-allocated here.
func (inv *Invoice) ApplyAllocation(amount valueobject.Money) error {
	if !inv.Status.CanApplyAllocation() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot apply allocation to invoice in %s status", inv.Status))
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	if amount.GreaterThan(inv.Balance) {
		return shared.NewDomainError("EXCEEDS_OUTSTANDING", fmt.Sprintf("Allocation %s exceeds outstanding balance %s", amount, inv.Balance))
	}

	inv.Balance = inv.Balance.Subtract(amount)
	inv.refreshStatus()
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// ReleaseAllocation restores a previously applied allocation onto the
// balance, used when the paying receipt is voided. The balance never rises
// above the invoice total.
func (inv *Invoice) ReleaseAllocation(amount valueobject.Money) error {
	if inv.Status == InvoiceStatusVoided {
		return shared.NewDomainError("INVALID_STATE", "Cannot release allocation on a voided invoice")
	}
	if !amount.IsPositive() {
		return shared.NewDomainError("INVALID_AMOUNT", "Release amount must be positive")
	}
	restored := inv.Balance.Add(amount)
	if restored.GreaterThan(inv.TotalBill) {
		return shared.NewDomainError("EXCEEDS_TOTAL", fmt.Sprintf("Releasing %s would raise balance %s above total %s", amount, inv.Balance, inv.TotalBill))
	}

	inv.Balance = restored
	inv.refreshStatus()
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// Void cancels the invoice. Allocations that targeted it are kept on their
// receipts for audit but the invoice drops out of all active-balance math.
func (inv *Invoice) Void(reason string) error {
	if inv.Status == InvoiceStatusVoided {
		return shared.NewDomainError("INVALID_STATE", "Invoice is already voided")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Void reason is required")
	}

	now := time.Now()
	inv.Status = InvoiceStatusVoided
	inv.VoidedAt = &now
	inv.VoidReason = reason
	inv.UpdatedAt = now
	inv.IncrementVersion()

	inv.AddDomainEvent(NewInvoiceVoidedEvent(inv))

	return nil
}

// CorrectBalance overwrites the stored balance with a recomputed value.
// Used only by audit repair; regular payment flow goes through
// ApplyAllocation and ReleaseAllocation.
func (inv *Invoice) CorrectBalance(balance valueobject.Money) error {
	if inv.Status == InvoiceStatusVoided {
		return shared.NewDomainError("INVALID_STATE", "Cannot correct balance on a voided invoice")
	}
	if balance.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Corrected balance cannot be negative")
	}
	if balance.GreaterThan(inv.TotalBill) {
		return shared.NewDomainError("EXCEEDS_TOTAL", fmt.Sprintf("Corrected balance %s exceeds total %s", balance, inv.TotalBill))
	}

	inv.Balance = balance
	inv.refreshStatus()
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// RestoreBalanceForward re-derives the balance forward from the stored
// total when the carried debt was lost, keeping TotalBill authoritative.
// Used only by audit repair.
func (inv *Invoice) RestoreBalanceForward() error {
	inferred := inv.TotalBill.Subtract(inv.LineItemsTotal())
	if inferred.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", fmt.Sprintf("Total bill %s is below the line item total %s; cannot infer a balance forward", inv.TotalBill, inv.LineItemsTotal()))
	}

	inv.BalanceForward = inferred
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()

	return nil
}

// refreshStatus derives the status from the current balance
func (inv *Invoice) refreshStatus() {
	switch {
	case inv.Balance.IsZero() || inv.Balance.IsNegative():
		inv.Status = InvoiceStatusPaid
	case inv.Balance.Equals(inv.TotalBill):
		inv.Status = InvoiceStatusPending
	default:
		inv.Status = InvoiceStatusPartial
	}
}

// IsVoided returns true if the invoice has been voided
func (inv *Invoice) IsVoided() bool {
	return inv.Status == InvoiceStatusVoided
}

// IsOpen returns true if the invoice still has an outstanding balance
func (inv *Invoice) IsOpen() bool {
	return inv.Status.CanApplyAllocation() && inv.Balance.IsPositive()
}

// Outstanding returns the amount still owed, never negative
func (inv *Invoice) Outstanding() valueobject.Money {
	if inv.Balance.IsNegative() {
		return valueobject.ZeroMoney()
	}
	return inv.Balance
}

// PaidAmount returns the portion of the total already settled
func (inv *Invoice) PaidAmount() valueobject.Money {
	return inv.TotalBill.Subtract(inv.Balance)
}

// DaysOverdue returns the number of whole days past the due date as of the
// given date, 0 when not yet due or when the invoice is closed
func (inv *Invoice) DaysOverdue(asOf valueobject.Date) int {
	if !inv.IsOpen() || inv.DueDate.IsZero() {
		return 0
	}
	days := asOf.DaysSince(inv.DueDate)
	if days < 0 {
		return 0
	}
	return days
}

// IsOverdue returns true if the invoice is open and past due as of the given date
func (inv *Invoice) IsOverdue(asOf valueobject.Date) bool {
	return inv.DaysOverdue(asOf) > 0
}

// LineItemsTotal returns the sum of line items, excluding balance forward
func (inv *Invoice) LineItemsTotal() valueobject.Money {
	return inv.LineItems.Total()
}

// PaidPercentage returns the percentage of the total that has been paid (0-100)
func (inv *Invoice) PaidPercentage() decimal.Decimal {
	if inv.TotalBill.IsZero() {
		return decimal.NewFromInt(100)
	}
	return inv.PaidAmount().Amount().Div(inv.TotalBill.Amount()).Mul(decimal.NewFromInt(100)).Round(2)
}
