package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// PaymentService records student payments and voids receipts. Every write
// path runs the allocation engine so invoices, receipts and credit
// transactions never drift apart.
type PaymentService struct {
	receiptRepo billing.ReceiptRepository
	invoiceRepo billing.InvoiceRepository
	creditRepo  billing.CreditRepository
	studentRepo billing.StudentRepository
	uow         billing.UnitOfWork
	engine      *billing.AllocationEngine
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	receiptRepo billing.ReceiptRepository,
	invoiceRepo billing.InvoiceRepository,
	creditRepo billing.CreditRepository,
	studentRepo billing.StudentRepository,
	uow billing.UnitOfWork,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		receiptRepo: receiptRepo,
		invoiceRepo: invoiceRepo,
		creditRepo:  creditRepo,
		studentRepo: studentRepo,
		uow:         uow,
		engine:      billing.NewAllocationEngine(),
		logger:      logger,
	}
}

// RecordPaymentRequest represents a request to record a student payment
type RecordPaymentRequest struct {
	StudentID       uuid.UUID
	Amount          valueobject.Money
	PaymentMethod   billing.PaymentMethod
	PaymentDate     valueobject.Date
	Reference       string
	TargetInvoiceID uuid.UUID // Optional: settle this invoice before the rest
}

// RecordPaymentResult represents the outcome of recording a payment
type RecordPaymentResult struct {
	ReceiptID     uuid.UUID                  `json:"receipt_id"`
	ReceiptNumber string                     `json:"receipt_number"`
	Allocations   []billing.Allocation       `json:"allocations"`
	TotalApplied  valueobject.Money          `json:"total_applied"`
	CreditCreated *billing.CreditTransaction `json:"credit_created,omitempty"`
}

// RecordPayment creates a receipt for the student, allocates it across
// their open invoices oldest first and persists the whole outcome. On an
// optimistic lock conflict the allocation is retried once against fresh
// state.
func (s *PaymentService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*RecordPaymentResult, error) {
	student, err := s.studentRepo.FindByID(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	if student == nil {
		return nil, shared.NewDomainError("STUDENT_NOT_FOUND", "Student not found")
	}

	result, err := s.recordOnce(ctx, student, req)
	if errors.Is(err, shared.ErrConcurrencyConflict) {
		s.logger.Warn("payment allocation hit a concurrent update, retrying once",
			zap.String("student_id", req.StudentID.String()))
		result, err = s.recordOnce(ctx, student, req)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded",
		zap.String("receipt_number", result.ReceiptNumber),
		zap.String("student_id", req.StudentID.String()),
		zap.String("amount", req.Amount.String()),
		zap.Int("allocations", len(result.Allocations)))

	return result, nil
}

func (s *PaymentService) recordOnce(ctx context.Context, student *billing.Student, req RecordPaymentRequest) (*RecordPaymentResult, error) {
	receiptNumber, err := s.receiptRepo.GenerateReceiptNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate receipt number: %w", err)
	}

	receipt, err := billing.NewReceipt(receiptNumber, student.ID, student.FullName, req.Amount, req.PaymentMethod, req.PaymentDate)
	if err != nil {
		return nil, err
	}
	receipt.Reference = req.Reference

	openInvoices, err := s.invoiceRepo.FindOpenByStudent(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load open invoices: %w", err)
	}
	candidates := make([]*billing.Invoice, len(openInvoices))
	for i := range openInvoices {
		candidates[i] = &openInvoices[i]
	}

	outcome, err := s.engine.Allocate(receipt, candidates, billing.AllocateOptions{TargetInvoiceID: req.TargetInvoiceID})
	if err != nil {
		return nil, err
	}

	// The student's record set changes atomically: a version conflict or a
	// failed save rolls back every invoice already written, so the retry
	// allocates against untouched state
	err = s.uow.Execute(ctx, func(ctx context.Context) error {
		for _, id := range outcome.UpdatedIDs {
			for i := range candidates {
				if candidates[i].ID == id {
					if err := s.invoiceRepo.SaveWithLock(ctx, candidates[i]); err != nil {
						return err
					}
					break
				}
			}
		}
		if err := s.receiptRepo.Save(ctx, receipt); err != nil {
			return fmt.Errorf("failed to save receipt: %w", err)
		}
		if outcome.CreditCreated != nil {
			if err := s.creditRepo.Append(ctx, outcome.CreditCreated); err != nil {
				return fmt.Errorf("failed to save credit transaction: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &RecordPaymentResult{
		ReceiptID:     receipt.ID,
		ReceiptNumber: receipt.ReceiptNumber,
		Allocations:   outcome.Allocations,
		TotalApplied:  outcome.TotalApplied,
		CreditCreated: outcome.CreditCreated,
	}, nil
}

// VoidReceipt cancels a receipt and strictly reverses everything it did:
// invoice balances are restored and credits it created are reversed. The
// void is refused outright when the receipt's credit was already spent.
func (s *PaymentService) VoidReceipt(ctx context.Context, receiptID uuid.UUID, reason string) error {
	receipt, err := s.receiptRepo.FindByID(ctx, receiptID)
	if err != nil {
		return fmt.Errorf("failed to load receipt: %w", err)
	}
	if receipt == nil {
		return shared.NewDomainError("RECEIPT_NOT_FOUND", "Receipt not found")
	}

	invoicesByID := make(map[uuid.UUID]*billing.Invoice)
	for _, alloc := range receipt.ActiveAllocations() {
		inv, err := s.invoiceRepo.FindByID(ctx, alloc.InvoiceID)
		if err != nil {
			return fmt.Errorf("failed to load invoice %s: %w", alloc.InvoiceNumber, err)
		}
		if inv != nil {
			invoicesByID[inv.ID] = inv
		}
	}

	credits, err := s.creditRepo.FindByStudent(ctx, receipt.StudentID)
	if err != nil {
		return fmt.Errorf("failed to load credit history: %w", err)
	}

	outcome, err := s.engine.ReverseReceipt(receipt, invoicesByID, credits, valueobject.Today())
	if err != nil {
		var conflict *billing.ReversalConflictError
		if errors.As(err, &conflict) {
			s.logger.Warn("receipt void blocked by consumed credit",
				zap.String("receipt_number", receipt.ReceiptNumber),
				zap.Int("conflicting_applications", len(conflict.ConflictingApplications)))
		}
		return err
	}

	if err := receipt.Void(reason); err != nil {
		return err
	}

	err = s.uow.Execute(ctx, func(ctx context.Context) error {
		for _, id := range outcome.RestoredIDs {
			if err := s.invoiceRepo.SaveWithLock(ctx, invoicesByID[id]); err != nil {
				return err
			}
		}
		if err := s.receiptRepo.SaveWithLock(ctx, receipt); err != nil {
			return err
		}
		for i := range outcome.CreditReversals {
			if err := s.creditRepo.Append(ctx, &outcome.CreditReversals[i]); err != nil {
				return fmt.Errorf("failed to save credit reversal: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("receipt voided",
		zap.String("receipt_number", receipt.ReceiptNumber),
		zap.String("restored", outcome.TotalRestored.String()),
		zap.String("reason", reason))

	return nil
}

// StudentCredit returns the student's current credit balance with the full
// transaction history behind it
func (s *PaymentService) StudentCredit(ctx context.Context, studentID uuid.UUID) (valueobject.Money, []billing.CreditTransaction, error) {
	credits, err := s.creditRepo.FindByStudent(ctx, studentID)
	if err != nil {
		return valueobject.ZeroMoney(), nil, fmt.Errorf("failed to load credit history: %w", err)
	}
	return billing.CreditBalance(credits), credits, nil
}
