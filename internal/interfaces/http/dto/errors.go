package dto

import (
	"net/http"
	"strings"
)

// Error codes emitted by the HTTP layer itself
const (
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeInternal   = "INTERNAL_ERROR"
)

// domainCodeHTTPStatus maps domain error codes to HTTP status codes.
// Codes not listed fall through to the suffix rules in GetHTTPStatus.
var domainCodeHTTPStatus = map[string]int{
	"NOT_FOUND":            http.StatusNotFound,
	"ALREADY_EXISTS":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"REVERSAL_CONFLICT":    http.StatusConflict,
	"ALREADY_ALLOCATED":    http.StatusConflict,
	"INVALID_STATE":        http.StatusUnprocessableEntity,
	"EXCEEDS_OUTSTANDING":  http.StatusUnprocessableEntity,
	"EXCEEDS_UNALLOCATED":  http.StatusUnprocessableEntity,
	"EXCEEDS_TOTAL":        http.StatusUnprocessableEntity,
	"INSUFFICIENT_CREDIT":  http.StatusUnprocessableEntity,
	"VALIDATION_FAILURE":   http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInternal:        http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status for a domain error code.
// Unmapped *_NOT_FOUND codes map to 404 and INVALID_* codes to 400; anything
// else is treated as an internal error.
func GetHTTPStatus(code string) int {
	if status, ok := domainCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasSuffix(code, "_NOT_FOUND") {
		return http.StatusNotFound
	}
	if strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
