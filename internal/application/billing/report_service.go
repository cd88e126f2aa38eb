package billing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/report"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// ReportService builds the financial reports from a freshly loaded
// snapshot. The builders are pure; the service only loads data, validates
// filters and delegates.
type ReportService struct {
	loader billing.SnapshotLoader
	logger *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(loader billing.SnapshotLoader, logger *zap.Logger) *ReportService {
	return &ReportService{loader: loader, logger: logger}
}

// AgedDebtors builds the aged debtors report as of the given date
func (s *ReportService) AgedDebtors(ctx context.Context, asOf valueobject.Date, filters ...report.Filter) (*report.AgedDebtorsReport, error) {
	snap, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load working set: %w", err)
	}
	r, err := report.BuildAgedDebtorsReport(snap, asOf, filters...)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("aged debtors report built",
		zap.Int("invoices", r.InvoiceCount),
		zap.String("total", r.Total.String()))
	return r, nil
}

// OutstandingFees builds the outstanding fees report
func (s *ReportService) OutstandingFees(ctx context.Context, filters ...report.Filter) (*report.OutstandingFeesReport, error) {
	snap, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load working set: %w", err)
	}
	return report.BuildOutstandingFeesReport(snap, filters...)
}

// FeesCollection builds the collection report for a date window
func (s *ReportService) FeesCollection(ctx context.Context, window report.DateRangeFilter) (*report.FeesCollectionReport, error) {
	snap, err := s.loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load working set: %w", err)
	}
	return report.BuildFeesCollectionReport(snap, window)
}

// Reconciliation matches a term's enrollment roster against its invoices
func (s *ReportService) Reconciliation(ctx context.Context, termID string) (*report.ReconciliationReport, error) {
	snap, err := s.loader.LoadForTerm(ctx, termID)
	if err != nil {
		return nil, fmt.Errorf("failed to load working set: %w", err)
	}
	r, err := report.BuildReconciliationReport(snap, termID)
	if err != nil {
		return nil, err
	}
	if r.DiscrepancyCount > 0 {
		s.logger.Info("reconciliation found discrepancies",
			zap.String("term_id", termID),
			zap.Int("discrepancies", r.DiscrepancyCount))
	}
	return r, nil
}
