package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	StudentID    *uuid.UUID        // Filter by student
	EnrollmentID *uuid.UUID        // Filter by enrollment
	TermID       *string           // Filter by term
	Status       *InvoiceStatus    // Filter by status
	DueFrom      *valueobject.Date // Filter by due date range start
	DueTo        *valueobject.Date // Filter by due date range end
	IncludeVoid  bool              // Include voided invoices
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByInvoiceNumber finds an invoice by its document number
	FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)

	// FindAll finds invoices with filtering
	FindAll(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)

	// FindByStudent finds all invoices for a student, voided included
	FindByStudent(ctx context.Context, studentID uuid.UUID) ([]Invoice, error)

	// FindOpenByStudent finds the student's non-voided invoices with an
	// outstanding balance
	FindOpenByStudent(ctx context.Context, studentID uuid.UUID) ([]Invoice, error)

	// FindByTerm finds all invoices issued for a term
	FindByTerm(ctx context.Context, termID string) ([]Invoice, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// Count counts invoices matching the filter
	Count(ctx context.Context, filter InvoiceFilter) (int64, error)

	// ExistsByInvoiceNumber checks if a document number is already taken
	ExistsByInvoiceNumber(ctx context.Context, invoiceNumber string) (bool, error)

	// GenerateInvoiceNumber generates the next unique invoice number
	GenerateInvoiceNumber(ctx context.Context) (string, error)
}

// ReceiptFilter defines filtering options for receipt queries
type ReceiptFilter struct {
	shared.Filter
	StudentID   *uuid.UUID        // Filter by student
	Method      *PaymentMethod    // Filter by payment method
	PaidFrom    *valueobject.Date // Filter by payment date range start
	PaidTo      *valueobject.Date // Filter by payment date range end
	IncludeVoid bool              // Include voided receipts
}

// ReceiptRepository defines the interface for receipt persistence
type ReceiptRepository interface {
	// FindByID finds a receipt by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Receipt, error)

	// FindByReceiptNumber finds a receipt by its document number
	FindByReceiptNumber(ctx context.Context, receiptNumber string) (*Receipt, error)

	// FindAll finds receipts with filtering
	FindAll(ctx context.Context, filter ReceiptFilter) ([]Receipt, error)

	// FindByStudent finds all receipts for a student, voided included
	FindByStudent(ctx context.Context, studentID uuid.UUID) ([]Receipt, error)

	// Save creates or updates a receipt
	Save(ctx context.Context, receipt *Receipt) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, receipt *Receipt) error

	// Count counts receipts matching the filter
	Count(ctx context.Context, filter ReceiptFilter) (int64, error)

	// ExistsByReceiptNumber checks if a document number is already taken
	ExistsByReceiptNumber(ctx context.Context, receiptNumber string) (bool, error)

	// GenerateReceiptNumber generates the next unique receipt number
	GenerateReceiptNumber(ctx context.Context) (string, error)
}

// CreditRepository defines the interface for credit transaction persistence.
// Transactions are append-only; there is no update or delete.
type CreditRepository interface {
	// FindByID finds a credit transaction by ID
	FindByID(ctx context.Context, id uuid.UUID) (*CreditTransaction, error)

	// FindByStudent returns the student's full transaction history,
	// oldest first
	FindByStudent(ctx context.Context, studentID uuid.UUID) ([]CreditTransaction, error)

	// FindByReceipt returns transactions created by a receipt
	FindByReceipt(ctx context.Context, receiptID uuid.UUID) ([]CreditTransaction, error)

	// Append persists new credit transactions
	Append(ctx context.Context, txns ...*CreditTransaction) error

	// BalanceForStudent returns the signed sum of the student's transactions
	BalanceForStudent(ctx context.Context, studentID uuid.UUID) (valueobject.Money, error)
}

// StudentRepository defines the interface for student persistence
type StudentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Student, error)
	FindByAdmissionNumber(ctx context.Context, admissionNumber string) (*Student, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Student, error)
	Save(ctx context.Context, student *Student) error
}

// EnrollmentRepository defines the interface for enrollment persistence
type EnrollmentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Enrollment, error)
	FindByTerm(ctx context.Context, termID string) ([]Enrollment, error)
	FindByStudent(ctx context.Context, studentID uuid.UUID) ([]Enrollment, error)
	FindByStudentTerm(ctx context.Context, studentID uuid.UUID, termID string) (*Enrollment, error)
	Save(ctx context.Context, enrollment *Enrollment) error
}

// FeeRepository defines the interface for the fee catalog
type FeeRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*FeeItem, error)
	FindByTerm(ctx context.Context, termID string) ([]FeeItem, error)
	Save(ctx context.Context, fee *FeeItem) error
}

// UnitOfWork runs fn with every repository call made through fn's context
// joined into one atomic transaction. The student's record set changes
// together or not at all: an error from fn rolls back everything written
// inside it.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
}

// SnapshotLoader assembles the full working set the derived views compute
// from. Implementations load everything in one transaction so the snapshot
// is internally consistent.
type SnapshotLoader interface {
	Load(ctx context.Context) (*Snapshot, error)
	LoadForStudent(ctx context.Context, studentID uuid.UUID) (*Snapshot, error)
	LoadForTerm(ctx context.Context, termID string) (*Snapshot, error)
}
