package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface. The code is part of the message so
// wrapped errors stay attributable to a code without unwrapping.
func (e *DomainError) Error() string {
	return e.Code + ": " + e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrValidationFailure   = NewDomainError("VALIDATION_FAILURE", "Record is missing required linkage")
	ErrReversalConflict    = NewDomainError("REVERSAL_CONFLICT", "Credit has already been consumed by a later application")
	ErrInsufficientCredit  = NewDomainError("INSUFFICIENT_CREDIT", "Student credit balance cannot go negative")
)
