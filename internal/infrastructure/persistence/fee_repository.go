package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/infrastructure/persistence/models"
)

// GormFeeRepository implements billing.FeeRepository using GORM
type GormFeeRepository struct {
	db *gorm.DB
}

// NewGormFeeRepository creates a new GormFeeRepository
func NewGormFeeRepository(db *gorm.DB) *GormFeeRepository {
	return &GormFeeRepository{db: db}
}

// FindByID finds a fee catalog entry by ID
func (r *GormFeeRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.FeeItem, error) {
	var model models.FeeItemModel
	if err := session(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTerm returns the fee catalog for a term
func (r *GormFeeRepository) FindByTerm(ctx context.Context, termID string) ([]billing.FeeItem, error) {
	var feeModels []models.FeeItemModel
	if err := session(ctx, r.db).
		Where("term_id = ?", termID).
		Order("name ASC").
		Find(&feeModels).Error; err != nil {
		return nil, err
	}

	fees := make([]billing.FeeItem, len(feeModels))
	for i := range feeModels {
		fees[i] = *feeModels[i].ToDomain()
	}
	return fees, nil
}

// Save creates or updates a fee catalog entry
func (r *GormFeeRepository) Save(ctx context.Context, fee *billing.FeeItem) error {
	model := models.FeeItemModelFromDomain(fee)
	return session(ctx, r.db).Save(model).Error
}
