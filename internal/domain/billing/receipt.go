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
)

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash          PaymentMethod = "CASH"
	PaymentMethodBankTransfer  PaymentMethod = "BANK_TRANSFER"
	PaymentMethodMobileMoney   PaymentMethod = "MOBILE_MONEY"
	PaymentMethodCheck         PaymentMethod = "CHECK"
	PaymentMethodCard          PaymentMethod = "CARD"
	PaymentMethodCreditBalance PaymentMethod = "CREDIT_BALANCE" // Settled from the student's credit
	PaymentMethodOther         PaymentMethod = "OTHER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodMobileMoney,
		PaymentMethodCheck, PaymentMethodCard, PaymentMethodCreditBalance, PaymentMethodOther:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Allocation links a receipt to exactly one invoice with the portion of the
// payment applied to it. It is a value object within the Receipt aggregate,
// stored as JSONB. Reversed allocations are retained for audit.
type Allocation struct {
	ID            uuid.UUID         `json:"id"`
	ReceiptID     uuid.UUID         `json:"receipt_id"`
	InvoiceID     uuid.UUID         `json:"invoice_id"`
	InvoiceNumber string            `json:"invoice_number"` // Denormalized for display
	AmountApplied valueobject.Money `json:"amount_applied"`
	AllocatedAt   valueobject.Date  `json:"allocated_at"`
	Reversed      bool              `json:"reversed"`
	ReversedAt    *time.Time        `json:"reversed_at,omitempty"`
}

// IsActive returns true if the allocation has not been reversed
func (a *Allocation) IsActive() bool {
	return !a.Reversed
}

// MarkReversed marks the allocation as reversed
func (a *Allocation) MarkReversed() {
	now := time.Now()
	a.Reversed = true
	a.ReversedAt = &now
}

// Allocations is a slice of Allocation that implements GORM Scanner/Valuer for JSONB storage
type Allocations []Allocation

// Value implements driver.Valuer interface for GORM to store as JSONB
func (a Allocations) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (a *Allocations) Scan(value interface{}) error {
	if value == nil {
		*a = Allocations{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan Allocations: unsupported type")
	}

	if len(bytes) == 0 {
		*a = Allocations{}
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// ActiveTotal returns the sum of non-reversed allocation amounts
func (a Allocations) ActiveTotal() valueobject.Money {
	total := valueobject.ZeroMoney()
	for i := range a {
		if a[i].IsActive() {
			total = total.Add(a[i].AmountApplied)
		}
	}
	return total
}

// Receipt represents a payment received from (or on behalf of) a student.
// The full AmountPaid is cash received; Allocations record how much of it
// was applied to which invoices. Any unapplied remainder becomes a credit
// transaction for the student.
type Receipt struct {
	shared.BaseAggregateRoot
	ReceiptNumber string            `json:"receipt_number"`
	StudentID     uuid.UUID         `json:"student_id"`
	StudentName   string            `json:"student_name"`
	AmountPaid    valueobject.Money `json:"amount_paid"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	Reference     string            `json:"reference,omitempty"` // Bank slip, mobile money code
	Approved      bool              `json:"approved"`
	Voided        bool              `json:"voided"`
	PaymentDate   valueobject.Date  `json:"payment_date"`
	Allocations   Allocations       `json:"allocations"`
	VoidedAt      *time.Time        `json:"voided_at,omitempty"`
	VoidReason    string            `json:"void_reason,omitempty"`
}

// NewReceipt creates a new receipt for a student payment
func NewReceipt(
	receiptNumber string,
	studentID uuid.UUID,
	studentName string,
	amountPaid valueobject.Money,
	paymentMethod PaymentMethod,
	paymentDate valueobject.Date,
) (*Receipt, error) {
	if receiptNumber == "" {
		return nil, shared.NewDomainError("INVALID_RECEIPT_NUMBER", "Receipt number cannot be empty")
	}
	if studentID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILURE", "Receipt must reference a student")
	}
	if !amountPaid.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount paid must be positive")
	}
	if !paymentMethod.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method is not valid")
	}
	if paymentDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DATE", "Payment date is required")
	}

	r := &Receipt{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ReceiptNumber:     receiptNumber,
		StudentID:         studentID,
		StudentName:       studentName,
		AmountPaid:        amountPaid,
		PaymentMethod:     paymentMethod,
		PaymentDate:       paymentDate,
		Allocations:       make(Allocations, 0),
	}

	r.AddDomainEvent(NewReceiptRecordedEvent(r))

	return r, nil
}

// AllocatedAmount returns the sum of active (non-reversed) allocations
func (r *Receipt) AllocatedAmount() valueobject.Money {
	return r.Allocations.ActiveTotal()
}

// UnallocatedAmount returns the portion of the payment not yet applied to
// any invoice
func (r *Receipt) UnallocatedAmount() valueobject.Money {
	return r.AmountPaid.Subtract(r.AllocatedAmount())
}

// Allocate applies part of the receipt to an invoice.
// Returns the allocation record created.
func (r *Receipt) Allocate(invoiceID uuid.UUID, invoiceNumber string, amount valueobject.Money, on valueobject.Date) (*Allocation, error) {
	if r.Voided {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot allocate a voided receipt")
	}
	if invoiceID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILURE", "Allocation must reference an invoice")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	if amount.GreaterThan(r.UnallocatedAmount()) {
		return nil, shared.NewDomainError("EXCEEDS_UNALLOCATED", fmt.Sprintf("Allocation %s exceeds unallocated amount %s", amount, r.UnallocatedAmount()))
	}
	for i := range r.Allocations {
		if r.Allocations[i].InvoiceID == invoiceID && r.Allocations[i].IsActive() {
			return nil, shared.NewDomainError("ALREADY_ALLOCATED", fmt.Sprintf("Already allocated to invoice %s", invoiceNumber))
		}
	}

	allocation := Allocation{
		ID:            uuid.New(),
		ReceiptID:     r.ID,
		InvoiceID:     invoiceID,
		InvoiceNumber: invoiceNumber,
		AmountApplied: amount,
		AllocatedAt:   on,
	}
	r.Allocations = append(r.Allocations, allocation)
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	r.AddDomainEvent(NewReceiptAllocatedEvent(r, &allocation))

	return &r.Allocations[len(r.Allocations)-1], nil
}

// Approve marks the receipt as approved by the bursar
func (r *Receipt) Approve() error {
	if r.Voided {
		return shared.NewDomainError("INVALID_STATE", "Cannot approve a voided receipt")
	}
	if r.Approved {
		return nil
	}
	r.Approved = true
	r.UpdatedAt = time.Now()
	r.IncrementVersion()
	return nil
}

// ReverseAllocations marks every active allocation as reversed and returns
// the allocations that were reversed. Reversed allocations stay on the
// receipt for audit.
func (r *Receipt) ReverseAllocations() []Allocation {
	reversed := make([]Allocation, 0, len(r.Allocations))
	for i := range r.Allocations {
		if r.Allocations[i].IsActive() {
			r.Allocations[i].MarkReversed()
			reversed = append(reversed, r.Allocations[i])
		}
	}
	if len(reversed) > 0 {
		r.UpdatedAt = time.Now()
		r.IncrementVersion()
	}
	return reversed
}

// Void cancels the receipt. Callers must reverse its allocations and any
// credit it created through the allocation engine first; Void itself only
// flips the lifecycle state.
func (r *Receipt) Void(reason string) error {
	if r.Voided {
		return shared.NewDomainError("INVALID_STATE", "Receipt is already voided")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Void reason is required")
	}

	now := time.Now()
	r.Voided = true
	r.VoidedAt = &now
	r.VoidReason = reason
	r.UpdatedAt = now
	r.IncrementVersion()

	r.AddDomainEvent(NewReceiptVoidedEvent(r))

	return nil
}

// ActiveAllocations returns the non-reversed allocations
func (r *Receipt) ActiveAllocations() []Allocation {
	active := make([]Allocation, 0, len(r.Allocations))
	for i := range r.Allocations {
		if r.Allocations[i].IsActive() {
			active = append(active, r.Allocations[i])
		}
	}
	return active
}

// AllocationCount returns the number of allocations, reversed included
func (r *Receipt) AllocationCount() int {
	return len(r.Allocations)
}
