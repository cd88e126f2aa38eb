package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/infrastructure/persistence/models"
)

// GormSnapshotLoader implements billing.SnapshotLoader. Every Load runs
// inside a single read transaction so the working set is internally
// consistent even while payments are being recorded.
type GormSnapshotLoader struct {
	db *gorm.DB
}

// NewGormSnapshotLoader creates a new GormSnapshotLoader
func NewGormSnapshotLoader(db *gorm.DB) *GormSnapshotLoader {
	return &GormSnapshotLoader{db: db}
}

// Load assembles the full working set: every invoice, receipt, credit
// transaction, enrollment, student and fee catalog entry, voided included
func (l *GormSnapshotLoader) Load(ctx context.Context) (*billing.Snapshot, error) {
	return l.load(ctx, func(tx *gorm.DB, _ string) *gorm.DB { return tx })
}

// LoadForStudent assembles the working set scoped to one student
func (l *GormSnapshotLoader) LoadForStudent(ctx context.Context, studentID uuid.UUID) (*billing.Snapshot, error) {
	return l.load(ctx, func(tx *gorm.DB, table string) *gorm.DB {
		switch table {
		case "invoices", "receipts", "credit_transactions", "enrollments":
			return tx.Where("student_id = ?", studentID)
		case "students":
			return tx.Where("id = ?", studentID)
		default:
			return tx
		}
	})
}

// LoadForTerm assembles the working set scoped to one term's roster and
// invoices. Receipts and credits are keyed by student, not term, so they
// load in full.
func (l *GormSnapshotLoader) LoadForTerm(ctx context.Context, termID string) (*billing.Snapshot, error) {
	return l.load(ctx, func(tx *gorm.DB, table string) *gorm.DB {
		switch table {
		case "invoices", "enrollments", "fee_items":
			return tx.Where("term_id = ?", termID)
		default:
			return tx
		}
	})
}

func (l *GormSnapshotLoader) load(ctx context.Context, scope func(tx *gorm.DB, table string) *gorm.DB) (*billing.Snapshot, error) {
	var (
		invoiceModels    []models.InvoiceModel
		receiptModels    []models.ReceiptModel
		creditModels     []models.CreditTransactionModel
		enrollmentModels []models.EnrollmentModel
		studentModels    []models.StudentModel
		feeModels        []models.FeeItemModel
	)

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := scope(tx, "invoices").Order("issue_date ASC, invoice_number ASC").Find(&invoiceModels).Error; err != nil {
			return fmt.Errorf("loading invoices: %w", err)
		}
		if err := scope(tx, "receipts").Order("payment_date ASC, receipt_number ASC").Find(&receiptModels).Error; err != nil {
			return fmt.Errorf("loading receipts: %w", err)
		}
		if err := scope(tx, "credit_transactions").Order("transaction_date ASC, created_at ASC").Find(&creditModels).Error; err != nil {
			return fmt.Errorf("loading credit transactions: %w", err)
		}
		if err := scope(tx, "enrollments").Find(&enrollmentModels).Error; err != nil {
			return fmt.Errorf("loading enrollments: %w", err)
		}
		if err := scope(tx, "students").Find(&studentModels).Error; err != nil {
			return fmt.Errorf("loading students: %w", err)
		}
		if err := scope(tx, "fee_items").Find(&feeModels).Error; err != nil {
			return fmt.Errorf("loading fee catalog: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invoices := toDomainInvoices(invoiceModels)
	receipts := toDomainReceipts(receiptModels)
	credits := toDomainCredits(creditModels)
	enrollments := toDomainEnrollments(enrollmentModels)

	students := make([]billing.Student, len(studentModels))
	for i := range studentModels {
		students[i] = *studentModels[i].ToDomain()
	}
	fees := make([]billing.FeeItem, len(feeModels))
	for i := range feeModels {
		fees[i] = *feeModels[i].ToDomain()
	}

	snap := billing.NewSnapshot(invoices, receipts, credits, enrollments, students, fees)
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}
