package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/infrastructure/persistence/models"
)

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := session(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoiceNumber finds an invoice by its document number
func (r *GormInvoiceRepository) FindByInvoiceNumber(ctx context.Context, invoiceNumber string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := session(ctx, r.db).First(&model, "invoice_number = ?", invoiceNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds invoices with filtering
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.applyFilter(session(ctx, r.db), filter)

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	if err := query.Order("issue_date ASC, invoice_number ASC").Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return toDomainInvoices(invoiceModels), nil
}

// FindByStudent finds all invoices for a student, voided included
func (r *GormInvoiceRepository) FindByStudent(ctx context.Context, studentID uuid.UUID) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := session(ctx, r.db).
		Where("student_id = ?", studentID).
		Order("issue_date ASC, invoice_number ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return toDomainInvoices(invoiceModels), nil
}

// FindOpenByStudent finds the student's non-voided invoices with an
// outstanding balance
func (r *GormInvoiceRepository) FindOpenByStudent(ctx context.Context, studentID uuid.UUID) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := session(ctx, r.db).
		Where("student_id = ? AND status IN ?", studentID,
			[]billing.InvoiceStatus{billing.InvoiceStatusPending, billing.InvoiceStatusPartial}).
		Order("due_date ASC, issue_date ASC, invoice_number ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return toDomainInvoices(invoiceModels), nil
}

// FindByTerm finds all invoices issued for a term
func (r *GormInvoiceRepository) FindByTerm(ctx context.Context, termID string) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	if err := session(ctx, r.db).
		Where("term_id = ?", termID).
		Order("invoice_number ASC").
		Find(&invoiceModels).Error; err != nil {
		return nil, err
	}
	return toDomainInvoices(invoiceModels), nil
}

// Save creates or updates an invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return session(ctx, r.db).Save(model).Error
}

// SaveWithLock saves with optimistic locking (version check).
// The domain increments the version on every mutation, so the row is matched
// against the version the aggregate was loaded at.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	result := session(ctx, r.db).
		Model(model).
		Where("id = ? AND version < ?", invoice.ID, invoice.Version).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("invoice %s: %w", invoice.InvoiceNumber, shared.ErrConcurrencyConflict)
	}
	return nil
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter billing.InvoiceFilter) (int64, error) {
	var count int64
	query := r.applyFilter(session(ctx, r.db).Model(&models.InvoiceModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByInvoiceNumber checks if a document number is already taken
func (r *GormInvoiceRepository) ExistsByInvoiceNumber(ctx context.Context, invoiceNumber string) (bool, error) {
	var count int64
	if err := session(ctx, r.db).
		Model(&models.InvoiceModel{}).
		Where("invoice_number = ?", invoiceNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateInvoiceNumber generates the next unique invoice number.
// Format: INV-YYYY-NNNN, sequence scoped to the calendar year.
func (r *GormInvoiceRepository) GenerateInvoiceNumber(ctx context.Context) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("INV-%d-", year)

	var maxNumber string
	if err := session(ctx, r.db).
		Model(&models.InvoiceModel{}).
		Select("invoice_number").
		Where("invoice_number LIKE ?", prefix+"%").
		Order("invoice_number DESC").
		Limit(1).
		Scan(&maxNumber).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	nextSeq := 1
	if len(maxNumber) >= 4 {
		var seq int
		if _, err := fmt.Sscanf(maxNumber[len(maxNumber)-4:], "%04d", &seq); err == nil {
			nextSeq = seq + 1
		}
	}
	return fmt.Sprintf("%s%04d", prefix, nextSeq), nil
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.EnrollmentID != nil {
		query = query.Where("enrollment_id = ?", *filter.EnrollmentID)
	}
	if filter.TermID != nil {
		query = query.Where("term_id = ?", *filter.TermID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	} else if !filter.IncludeVoid {
		query = query.Where("status <> ?", billing.InvoiceStatusVoided)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", filter.DueFrom.Time())
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", filter.DueTo.Time())
	}
	return query
}

func toDomainInvoices(invoiceModels []models.InvoiceModel) []billing.Invoice {
	invoices := make([]billing.Invoice, len(invoiceModels))
	for i := range invoiceModels {
		invoices[i] = *invoiceModels[i].ToDomain()
	}
	return invoices
}
