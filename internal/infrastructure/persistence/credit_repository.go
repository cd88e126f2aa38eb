package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
	"github.com/schoolpay/backend/internal/infrastructure/persistence/models"
)

// GormCreditRepository implements billing.CreditRepository using GORM.
// The table is append-only; there is no update or delete path.
type GormCreditRepository struct {
	db *gorm.DB
}

// NewGormCreditRepository creates a new GormCreditRepository
func NewGormCreditRepository(db *gorm.DB) *GormCreditRepository {
	return &GormCreditRepository{db: db}
}

// FindByID finds a credit transaction by ID
func (r *GormCreditRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.CreditTransaction, error) {
	var model models.CreditTransactionModel
	if err := session(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByStudent returns the student's full transaction history, oldest first
func (r *GormCreditRepository) FindByStudent(ctx context.Context, studentID uuid.UUID) ([]billing.CreditTransaction, error) {
	var txnModels []models.CreditTransactionModel
	if err := session(ctx, r.db).
		Where("student_id = ?", studentID).
		Order("transaction_date ASC, created_at ASC").
		Find(&txnModels).Error; err != nil {
		return nil, err
	}
	return toDomainCredits(txnModels), nil
}

// FindByReceipt returns transactions created by a receipt
func (r *GormCreditRepository) FindByReceipt(ctx context.Context, receiptID uuid.UUID) ([]billing.CreditTransaction, error) {
	var txnModels []models.CreditTransactionModel
	if err := session(ctx, r.db).
		Where("source_receipt_id = ?", receiptID).
		Order("transaction_date ASC, created_at ASC").
		Find(&txnModels).Error; err != nil {
		return nil, err
	}
	return toDomainCredits(txnModels), nil
}

// Append persists new credit transactions in one batch
func (r *GormCreditRepository) Append(ctx context.Context, txns ...*billing.CreditTransaction) error {
	if len(txns) == 0 {
		return nil
	}
	txnModels := make([]models.CreditTransactionModel, len(txns))
	for i, t := range txns {
		txnModels[i] = *models.CreditTransactionModelFromDomain(t)
	}
	return session(ctx, r.db).Create(&txnModels).Error
}

// BalanceForStudent returns the signed sum of the student's transactions
func (r *GormCreditRepository) BalanceForStudent(ctx context.Context, studentID uuid.UUID) (valueobject.Money, error) {
	var sum decimal.Decimal
	if err := session(ctx, r.db).
		Model(&models.CreditTransactionModel{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("student_id = ?", studentID).
		Scan(&sum).Error; err != nil {
		return valueobject.ZeroMoney(), err
	}
	return valueobject.NewMoney(sum), nil
}

func toDomainCredits(txnModels []models.CreditTransactionModel) []billing.CreditTransaction {
	txns := make([]billing.CreditTransaction, len(txnModels))
	for i := range txnModels {
		txns[i] = *txnModels[i].ToDomain()
	}
	return txns
}
