package billing

import (
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// Event type constants
const (
	EventTypeInvoiceIssued    = "billing.invoice.issued"
	EventTypeInvoiceVoided    = "billing.invoice.voided"
	EventTypeReceiptRecorded  = "billing.receipt.recorded"
	EventTypeReceiptAllocated = "billing.receipt.allocated"
	EventTypeReceiptVoided    = "billing.receipt.voided"
)

// InvoiceIssuedEvent is raised when a new invoice is created
type InvoiceIssuedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string            `json:"invoice_number"`
	StudentName   string            `json:"student_name"`
	TotalBill     valueobject.Money `json:"total_bill"`
}

// NewInvoiceIssuedEvent creates a new InvoiceIssuedEvent
func NewInvoiceIssuedEvent(inv *Invoice) *InvoiceIssuedEvent {
	return &InvoiceIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceIssued, "Invoice", inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		StudentName:     inv.StudentName,
		TotalBill:       inv.TotalBill,
	}
}

// InvoiceVoidedEvent is raised when an invoice is voided
type InvoiceVoidedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
	Reason        string `json:"reason"`
}

// NewInvoiceVoidedEvent creates a new InvoiceVoidedEvent
func NewInvoiceVoidedEvent(inv *Invoice) *InvoiceVoidedEvent {
	return &InvoiceVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceVoided, "Invoice", inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		Reason:          inv.VoidReason,
	}
}

// ReceiptRecordedEvent is raised when a payment is recorded
type ReceiptRecordedEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber string            `json:"receipt_number"`
	StudentName   string            `json:"student_name"`
	AmountPaid    valueobject.Money `json:"amount_paid"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
}

// NewReceiptRecordedEvent creates a new ReceiptRecordedEvent
func NewReceiptRecordedEvent(r *Receipt) *ReceiptRecordedEvent {
	return &ReceiptRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceiptRecorded, "Receipt", r.ID),
		ReceiptNumber:   r.ReceiptNumber,
		StudentName:     r.StudentName,
		AmountPaid:      r.AmountPaid,
		PaymentMethod:   r.PaymentMethod,
	}
}

// ReceiptAllocatedEvent is raised when part of a receipt is applied to an invoice
type ReceiptAllocatedEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber string            `json:"receipt_number"`
	InvoiceNumber string            `json:"invoice_number"`
	AmountApplied valueobject.Money `json:"amount_applied"`
}

// NewReceiptAllocatedEvent creates a new ReceiptAllocatedEvent
func NewReceiptAllocatedEvent(r *Receipt, a *Allocation) *ReceiptAllocatedEvent {
	return &ReceiptAllocatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceiptAllocated, "Receipt", r.ID),
		ReceiptNumber:   r.ReceiptNumber,
		InvoiceNumber:   a.InvoiceNumber,
		AmountApplied:   a.AmountApplied,
	}
}

// ReceiptVoidedEvent is raised when a receipt is voided
type ReceiptVoidedEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber string `json:"receipt_number"`
	Reason        string `json:"reason"`
}

// NewReceiptVoidedEvent creates a new ReceiptVoidedEvent
func NewReceiptVoidedEvent(r *Receipt) *ReceiptVoidedEvent {
	return &ReceiptVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceiptVoided, "Receipt", r.ID),
		ReceiptNumber:   r.ReceiptNumber,
		Reason:          r.VoidReason,
	}
}
