package billing

import (
	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// CreditType classifies a movement on a student's credit balance
type CreditType string

const (
	CreditTypeCredit      CreditType = "CREDIT"      // Overpayment converted into reusable credit (positive)
	CreditTypeApplication CreditType = "APPLICATION" // Existing credit applied to an invoice (negative)
	CreditTypeDeduction   CreditType = "DEDUCTION"   // Manual deduction, e.g. refund paid out (negative)
	CreditTypeReversal    CreditType = "REVERSAL"    // Undoes an earlier transaction (opposite sign)
)

// IsValid checks if the credit type is valid
func (t CreditType) IsValid() bool {
	switch t {
	case CreditTypeCredit, CreditTypeApplication, CreditTypeDeduction, CreditTypeReversal:
		return true
	}
	return false
}

// String returns the string representation of CreditType
func (t CreditType) String() string {
	return string(t)
}

// CreditTransaction records one signed movement on a student's credit
// balance. Transactions are immutable: undoing one means writing a REVERSAL
// row of equal and opposite magnitude, never editing the original.
type CreditTransaction struct {
	shared.BaseEntity
	StudentID       uuid.UUID         `json:"student_id"`
	Type            CreditType        `json:"type"`
	Amount          valueobject.Money `json:"amount"` // Signed: positive grows the balance
	SourceReceiptID *uuid.UUID        `json:"source_receipt_id,omitempty"`
	SourceInvoiceID *uuid.UUID        `json:"source_invoice_id,omitempty"`
	ReversesID      *uuid.UUID        `json:"reverses_id,omitempty"` // The transaction a REVERSAL undoes
	Description     string            `json:"description"`
	TransactionDate valueobject.Date  `json:"transaction_date"`
}

// NewOverpaymentCredit creates a positive CREDIT transaction for the
// unallocated remainder of a receipt
func NewOverpaymentCredit(studentID, receiptID uuid.UUID, amount valueobject.Money, on valueobject.Date, description string) (*CreditTransaction, error) {
	if studentID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILURE", "Credit transaction must reference a student")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Credit amount must be positive")
	}
	return &CreditTransaction{
		BaseEntity:      shared.NewBaseEntity(),
		StudentID:       studentID,
		Type:            CreditTypeCredit,
		Amount:          amount,
		SourceReceiptID: &receiptID,
		Description:     description,
		TransactionDate: on,
	}, nil
}

// NewCreditApplication creates a negative APPLICATION transaction consuming
// existing credit against an invoice
func NewCreditApplication(studentID, invoiceID uuid.UUID, amount valueobject.Money, on valueobject.Date, description string) (*CreditTransaction, error) {
	if studentID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_FAILURE", "Credit transaction must reference a student")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Application amount must be positive")
	}
	return &CreditTransaction{
		BaseEntity:      shared.NewBaseEntity(),
		StudentID:       studentID,
		Type:            CreditTypeApplication,
		Amount:          amount.Negate(),
		SourceInvoiceID: &invoiceID,
		Description:     description,
		TransactionDate: on,
	}, nil
}

// NewCreditReversal creates a REVERSAL transaction of equal and opposite
// magnitude to the given transaction
func NewCreditReversal(original *CreditTransaction, on valueobject.Date, description string) (*CreditTransaction, error) {
	if original == nil {
		return nil, shared.NewDomainError("VALIDATION_FAILURE", "Reversal must reference the transaction it undoes")
	}
	if original.Type == CreditTypeReversal {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot reverse a reversal transaction")
	}
	originalID := original.ID
	return &CreditTransaction{
		BaseEntity:      shared.NewBaseEntity(),
		StudentID:       original.StudentID,
		Type:            CreditTypeReversal,
		Amount:          original.Amount.Negate(),
		SourceReceiptID: original.SourceReceiptID,
		SourceInvoiceID: original.SourceInvoiceID,
		ReversesID:      &originalID,
		Description:     description,
		TransactionDate: on,
	}, nil
}

// IsReversalOf returns true if this transaction reverses the given one
func (t *CreditTransaction) IsReversalOf(id uuid.UUID) bool {
	return t.Type == CreditTypeReversal && t.ReversesID != nil && *t.ReversesID == id
}

// CreditBalance returns the signed sum of the given transactions.
// A correctly maintained history never sums below zero.
func CreditBalance(txns []CreditTransaction) valueobject.Money {
	balance := valueobject.ZeroMoney()
	for i := range txns {
		balance = balance.Add(txns[i].Amount)
	}
	return balance
}
