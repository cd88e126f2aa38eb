package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/infrastructure/persistence/models"
)

// GormEnrollmentRepository implements billing.EnrollmentRepository using GORM
type GormEnrollmentRepository struct {
	db *gorm.DB
}

// NewGormEnrollmentRepository creates a new GormEnrollmentRepository
func NewGormEnrollmentRepository(db *gorm.DB) *GormEnrollmentRepository {
	return &GormEnrollmentRepository{db: db}
}

// FindByID finds an enrollment by ID
func (r *GormEnrollmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Enrollment, error) {
	var model models.EnrollmentModel
	if err := session(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTerm returns the roster for a term
func (r *GormEnrollmentRepository) FindByTerm(ctx context.Context, termID string) ([]billing.Enrollment, error) {
	var enrollmentModels []models.EnrollmentModel
	if err := session(ctx, r.db).
		Where("term_id = ?", termID).
		Order("class_name ASC, student_name ASC").
		Find(&enrollmentModels).Error; err != nil {
		return nil, err
	}
	return toDomainEnrollments(enrollmentModels), nil
}

// FindByStudent returns all enrollments for a student
func (r *GormEnrollmentRepository) FindByStudent(ctx context.Context, studentID uuid.UUID) ([]billing.Enrollment, error) {
	var enrollmentModels []models.EnrollmentModel
	if err := session(ctx, r.db).
		Where("student_id = ?", studentID).
		Order("term_id ASC").
		Find(&enrollmentModels).Error; err != nil {
		return nil, err
	}
	return toDomainEnrollments(enrollmentModels), nil
}

// FindByStudentTerm returns the student's enrollment in a term, or nil
func (r *GormEnrollmentRepository) FindByStudentTerm(ctx context.Context, studentID uuid.UUID, termID string) (*billing.Enrollment, error) {
	var model models.EnrollmentModel
	if err := session(ctx, r.db).
		First(&model, "student_id = ? AND term_id = ?", studentID, termID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates an enrollment
func (r *GormEnrollmentRepository) Save(ctx context.Context, enrollment *billing.Enrollment) error {
	model := models.EnrollmentModelFromDomain(enrollment)
	return session(ctx, r.db).Save(model).Error
}

func toDomainEnrollments(enrollmentModels []models.EnrollmentModel) []billing.Enrollment {
	enrollments := make([]billing.Enrollment, len(enrollmentModels))
	for i := range enrollmentModels {
		enrollments[i] = *enrollmentModels[i].ToDomain()
	}
	return enrollments
}
