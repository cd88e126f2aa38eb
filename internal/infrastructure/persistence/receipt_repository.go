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

// GormReceiptRepository implements billing.ReceiptRepository using GORM
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewGormReceiptRepository creates a new GormReceiptRepository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

// FindByID finds a receipt by ID
func (r *GormReceiptRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Receipt, error) {
	var model models.ReceiptModel
	if err := session(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByReceiptNumber finds a receipt by its document number
func (r *GormReceiptRepository) FindByReceiptNumber(ctx context.Context, receiptNumber string) (*billing.Receipt, error) {
	var model models.ReceiptModel
	if err := session(ctx, r.db).First(&model, "receipt_number = ?", receiptNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds receipts with filtering
func (r *GormReceiptRepository) FindAll(ctx context.Context, filter billing.ReceiptFilter) ([]billing.Receipt, error) {
	var receiptModels []models.ReceiptModel
	query := r.applyFilter(session(ctx, r.db), filter)

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	if err := query.Order("payment_date ASC, receipt_number ASC").Find(&receiptModels).Error; err != nil {
		return nil, err
	}
	return toDomainReceipts(receiptModels), nil
}

// FindByStudent finds all receipts for a student, voided included
func (r *GormReceiptRepository) FindByStudent(ctx context.Context, studentID uuid.UUID) ([]billing.Receipt, error) {
	var receiptModels []models.ReceiptModel
	if err := session(ctx, r.db).
		Where("student_id = ?", studentID).
		Order("payment_date ASC, receipt_number ASC").
		Find(&receiptModels).Error; err != nil {
		return nil, err
	}
	return toDomainReceipts(receiptModels), nil
}

// Save creates or updates a receipt
func (r *GormReceiptRepository) Save(ctx context.Context, receipt *billing.Receipt) error {
	model := models.ReceiptModelFromDomain(receipt)
	return session(ctx, r.db).Save(model).Error
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormReceiptRepository) SaveWithLock(ctx context.Context, receipt *billing.Receipt) error {
	model := models.ReceiptModelFromDomain(receipt)
	result := session(ctx, r.db).
		Model(model).
		Where("id = ? AND version < ?", receipt.ID, receipt.Version).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("receipt %s: %w", receipt.ReceiptNumber, shared.ErrConcurrencyConflict)
	}
	return nil
}

// Count counts receipts matching the filter
func (r *GormReceiptRepository) Count(ctx context.Context, filter billing.ReceiptFilter) (int64, error) {
	var count int64
	query := r.applyFilter(session(ctx, r.db).Model(&models.ReceiptModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByReceiptNumber checks if a document number is already taken
func (r *GormReceiptRepository) ExistsByReceiptNumber(ctx context.Context, receiptNumber string) (bool, error) {
	var count int64
	if err := session(ctx, r.db).
		Model(&models.ReceiptModel{}).
		Where("receipt_number = ?", receiptNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateReceiptNumber generates the next unique receipt number.
// Format: RCT-YYYY-NNNN, sequence scoped to the calendar year.
func (r *GormReceiptRepository) GenerateReceiptNumber(ctx context.Context) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("RCT-%d-", year)

	var maxNumber string
	if err := session(ctx, r.db).
		Model(&models.ReceiptModel{}).
		Select("receipt_number").
		Where("receipt_number LIKE ?", prefix+"%").
		Order("receipt_number DESC").
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

func (r *GormReceiptRepository) applyFilter(query *gorm.DB, filter billing.ReceiptFilter) *gorm.DB {
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.Method != nil {
		query = query.Where("payment_method = ?", *filter.Method)
	}
	if filter.PaidFrom != nil {
		query = query.Where("payment_date >= ?", filter.PaidFrom.Time())
	}
	if filter.PaidTo != nil {
		query = query.Where("payment_date <= ?", filter.PaidTo.Time())
	}
	if !filter.IncludeVoid {
		query = query.Where("voided = ?", false)
	}
	return query
}

func toDomainReceipts(receiptModels []models.ReceiptModel) []billing.Receipt {
	receipts := make([]billing.Receipt, len(receiptModels))
	for i := range receiptModels {
		receipts[i] = *receiptModels[i].ToDomain()
	}
	return receipts
}
