package billing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
)

// Enrollment is a student's membership in a named class for a term. It is
// the unit against which invoices are issued and rosters reconciled.
type Enrollment struct {
	ID          uuid.UUID        `json:"id"`
	StudentID   uuid.UUID        `json:"student_id"`
	StudentName string           `json:"student_name"`
	ClassName   string           `json:"class_name"`
	TermID      string           `json:"term_id"`
	Year        int              `json:"year"`
	Residence   Residence        `json:"residence"`
	Active      bool             `json:"active"`
	WithdrawnAt valueobject.Date `json:"withdrawn_at,omitempty"`
}

// NewEnrollment creates a new enrollment
func NewEnrollment(studentID uuid.UUID, studentName, className, termID string, year int, residence Residence) (*Enrollment, error) {
	if studentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_STUDENT", "Student ID cannot be empty")
	}
	if className == "" {
		return nil, shared.NewDomainError("INVALID_CLASS", "Class name cannot be empty")
	}
	if termID == "" {
		return nil, shared.NewDomainError("INVALID_TERM", "Term ID cannot be empty")
	}
	if !residence.IsValid() {
		return nil, shared.NewDomainError("INVALID_RESIDENCE", "Residence is not valid")
	}
	return &Enrollment{
		ID:          uuid.New(),
		StudentID:   studentID,
		StudentName: studentName,
		ClassName:   className,
		TermID:      termID,
		Year:        year,
		Residence:   residence,
		Active:      true,
	}, nil
}

// Label returns the display name used to key per-enrollment report totals,
// e.g. "Form 2 East - 2026-T1"
func (e *Enrollment) Label() string {
	return fmt.Sprintf("%s - %s", e.ClassName, e.TermID)
}

// Withdraw marks the enrollment as no longer active
func (e *Enrollment) Withdraw(on valueobject.Date) {
	e.Active = false
	e.WithdrawnAt = on
}
