package billing

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/schoolpay/backend/internal/domain/audit"
	"github.com/schoolpay/backend/internal/domain/billing"
)

// AuditService runs integrity checks and applies repairs. Repairs are
// serialized behind a mutex so two concurrent repair calls cannot double
// correct the same records.
type AuditService struct {
	loader      billing.SnapshotLoader
	invoiceRepo billing.InvoiceRepository
	receiptRepo billing.ReceiptRepository
	creditRepo  billing.CreditRepository
	auditor     *audit.Auditor
	logger      *zap.Logger

	repairMu sync.Mutex
}

// NewAuditService creates a new AuditService
func NewAuditService(
	loader billing.SnapshotLoader,
	invoiceRepo billing.InvoiceRepository,
	receiptRepo billing.ReceiptRepository,
	creditRepo billing.CreditRepository,
	logger *zap.Logger,
) *AuditService {
	return &AuditService{
		loader:      loader,
		invoiceRepo: invoiceRepo,
		receiptRepo: receiptRepo,
		creditRepo:  creditRepo,
		auditor:     audit.NewAuditor(),
		logger:      logger,
	}
}

// Run executes all integrity checks over the full dataset, voided
// documents included. It never writes.
func (s *AuditService) Run(ctx context.Context) (*audit.Report, error) {
	snap, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load working set: %w", err)
	}
	report, err := s.auditor.Run(snap)
	if err != nil {
		return nil, err
	}
	if !report.Clean() {
		s.logger.Warn("integrity audit found inconsistencies",
			zap.Int("findings", len(report.Findings)))
	}
	return report, nil
}

// Repair corrects what one check found. Dry-run reports the would-be
// corrections without writing; otherwise touched aggregates and new credit
// transactions are persisted. A failure on one record leaves that record
// untouched and continues with the rest.
func (s *AuditService) Repair(ctx context.Context, kind audit.CheckKind, dryRun bool) (*audit.RepairResult, error) {
	s.repairMu.Lock()
	defer s.repairMu.Unlock()

	snap, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load working set: %w", err)
	}

	result, err := s.auditor.Repair(snap, kind, dryRun)
	if err != nil {
		return nil, err
	}
	if dryRun {
		return result, nil
	}

	for _, inv := range result.UpdatedInvoices {
		if err := s.invoiceRepo.SaveWithLock(ctx, inv); err != nil {
			result.Errors = append(result.Errors, audit.RepairError{
				DocumentNumber: inv.InvoiceNumber,
				Message:        err.Error(),
			})
		}
	}
	for _, rcpt := range result.UpdatedReceipts {
		if err := s.receiptRepo.SaveWithLock(ctx, rcpt); err != nil {
			result.Errors = append(result.Errors, audit.RepairError{
				DocumentNumber: rcpt.ReceiptNumber,
				Message:        err.Error(),
			})
		}
	}
	if len(result.NewCredits) > 0 {
		if err := s.creditRepo.Append(ctx, result.NewCredits...); err != nil {
			return nil, fmt.Errorf("failed to save repair credit transactions: %w", err)
		}
	}

	s.logger.Info("audit repair applied",
		zap.String("check", kind.String()),
		zap.Int("actions", len(result.Actions)),
		zap.Int("errors", len(result.Errors)))

	return result, nil
}
