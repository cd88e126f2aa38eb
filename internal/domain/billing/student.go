package billing

import (
	"github.com/google/uuid"
	"github.com/schoolpay/backend/internal/domain/shared"
)

// Residence represents where a student lives during the term
type Residence string

const (
	ResidenceBoarder Residence = "BOARDER" // Lives on campus
	ResidenceDay     Residence = "DAY"     // Commutes daily
)

// IsValid checks if the residence is valid
func (r Residence) IsValid() bool {
	return r == ResidenceBoarder || r == ResidenceDay
}

// String returns the string representation of Residence
func (r Residence) String() string {
	return string(r)
}

// Student is the party every invoice, receipt and credit transaction is
// keyed against. The billing engine reads students from the snapshot; it
// never creates or modifies them.
type Student struct {
	ID              uuid.UUID `json:"id"`
	AdmissionNumber string    `json:"admission_number"`
	FullName        string    `json:"full_name"`
	Residence       Residence `json:"residence"`
	Guardian        string    `json:"guardian,omitempty"`
	Active          bool      `json:"active"`
}

// NewStudent creates a new student record
func NewStudent(admissionNumber, fullName string, residence Residence) (*Student, error) {
	if admissionNumber == "" {
		return nil, shared.NewDomainError("INVALID_ADMISSION_NUMBER", "Admission number cannot be empty")
	}
	if fullName == "" {
		return nil, shared.NewDomainError("INVALID_STUDENT_NAME", "Student name cannot be empty")
	}
	if !residence.IsValid() {
		return nil, shared.NewDomainError("INVALID_RESIDENCE", "Residence is not valid")
	}
	return &Student{
		ID:              uuid.New(),
		AdmissionNumber: admissionNumber,
		FullName:        fullName,
		Residence:       residence,
		Active:          true,
	}, nil
}
