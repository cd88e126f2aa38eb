package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/infrastructure/persistence/models"
)

// GormStudentRepository implements billing.StudentRepository using GORM
type GormStudentRepository struct {
	db *gorm.DB
}

// NewGormStudentRepository creates a new GormStudentRepository
func NewGormStudentRepository(db *gorm.DB) *GormStudentRepository {
	return &GormStudentRepository{db: db}
}

// FindByID finds a student by ID
func (r *GormStudentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Student, error) {
	var model models.StudentModel
	if err := session(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByAdmissionNumber finds a student by admission number
func (r *GormStudentRepository) FindByAdmissionNumber(ctx context.Context, admissionNumber string) (*billing.Student, error) {
	var model models.StudentModel
	if err := session(ctx, r.db).First(&model, "admission_number = ?", admissionNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds students with filtering
func (r *GormStudentRepository) FindAll(ctx context.Context, filter shared.Filter) ([]billing.Student, error) {
	var studentModels []models.StudentModel
	query := session(ctx, r.db)

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("full_name LIKE ? OR admission_number LIKE ?", pattern, pattern)
	}
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	if err := query.Order("admission_number ASC").Find(&studentModels).Error; err != nil {
		return nil, err
	}

	students := make([]billing.Student, len(studentModels))
	for i := range studentModels {
		students[i] = *studentModels[i].ToDomain()
	}
	return students, nil
}

// Save creates or updates a student
func (r *GormStudentRepository) Save(ctx context.Context, student *billing.Student) error {
	model := models.StudentModelFromDomain(student)
	return session(ctx, r.db).Save(model).Error
}
