package billing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// BillingService issues and voids invoices. Invoice generation itself is
// an upstream concern; this service exists so the payment engine has real
// invoices to allocate against.
type BillingService struct {
	invoiceRepo    billing.InvoiceRepository
	studentRepo    billing.StudentRepository
	enrollmentRepo billing.EnrollmentRepository
	feeRepo        billing.FeeRepository
	logger         *zap.Logger
}

// NewBillingService creates a new BillingService
func NewBillingService(
	invoiceRepo billing.InvoiceRepository,
	studentRepo billing.StudentRepository,
	enrollmentRepo billing.EnrollmentRepository,
	feeRepo billing.FeeRepository,
	logger *zap.Logger,
) *BillingService {
	return &BillingService{
		invoiceRepo:    invoiceRepo,
		studentRepo:    studentRepo,
		enrollmentRepo: enrollmentRepo,
		feeRepo:        feeRepo,
		logger:         logger,
	}
}

// IssueInvoiceRequest represents a request to issue a term invoice
type IssueInvoiceRequest struct {
	StudentID      uuid.UUID
	EnrollmentID   uuid.UUID
	FeeIDs         []uuid.UUID
	BalanceForward valueobject.Money
	IssueDate      valueobject.Date
	DueDate        valueobject.Date
}

// IssueInvoice bills a student's enrollment for the given fee catalog
// entries plus any debt carried forward
func (s *BillingService) IssueInvoice(ctx context.Context, req IssueInvoiceRequest) (*billing.Invoice, error) {
	student, err := s.studentRepo.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	if student == nil {
		return nil, shared.NewDomainError("STUDENT_NOT_FOUND", "Student not found")
	}

	enrollment, err := s.enrollmentRepo.FindByID(ctx, req.EnrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load enrollment: %w", err)
	}
	if enrollment == nil {
		return nil, shared.NewDomainError("ENROLLMENT_NOT_FOUND", "Enrollment not found")
	}
	if enrollment.StudentID != student.ID {
		return nil, shared.NewDomainError("VALIDATION_FAILURE", "Enrollment does not belong to the student")
	}

	items := make([]billing.BillItem, 0, len(req.FeeIDs))
	for _, feeID := range req.FeeIDs {
		fee, err := s.feeRepo.FindByID(ctx, feeID)
		if err != nil {
			return nil, fmt.Errorf("failed to load fee %s: %w", feeID, err)
		}
		if fee == nil {
			return nil, shared.NewDomainError("FEE_NOT_FOUND", fmt.Sprintf("Fee %s not found", feeID))
		}
		items = append(items, billing.BillItem{FeeID: fee.ID, FeeName: fee.Name, Amount: fee.Amount})
	}

	invoiceNumber, err := s.invoiceRepo.GenerateInvoiceNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate invoice number: %w", err)
	}

	invoice, err := billing.NewInvoice(
		invoiceNumber,
		student.ID, student.FullName,
		enrollment.ID, enrollment.Label(), enrollment.TermID,
		items, req.BalanceForward,
		req.IssueDate, req.DueDate,
	)
	if err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	s.logger.Info("invoice issued",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("student_id", student.ID.String()),
		zap.String("total", invoice.TotalBill.String()))

	return invoice, nil
}

// VoidInvoice cancels an invoice. Allocations already made against it stay
// on their receipts; the auditor reports them if the books end up uneven.
func (s *BillingService) VoidInvoice(ctx context.Context, invoiceID uuid.UUID, reason string) error {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return fmt.Errorf("failed to load invoice: %w", err)
	}
	if invoice == nil {
		return shared.NewDomainError("INVOICE_NOT_FOUND", "Invoice not found")
	}

	if err := invoice.Void(reason); err != nil {
		return err
	}
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return err
	}

	s.logger.Info("invoice voided",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("reason", reason))

	return nil
}
