package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/shared"
	"github.com/schoolpay/backend/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, message))
}

// HandleError maps an error from the application layer onto an HTTP
// response. Reversal conflicts carry their conflicting transaction IDs so a
// bursar can resolve them; domain errors map by code; anything else is a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	var conflict *billing.ReversalConflictError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, dto.NewErrorResponseWithDetails(
			"REVERSAL_CONFLICT", conflict.Error(), gin.H{
				"receipt_number":           conflict.ReceiptNumber,
				"credit_to_reverse":        conflict.CreditToReverse,
				"available_credit":         conflict.AvailableCredit,
				"conflicting_applications": conflict.ConflictingApplications,
			}))
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		c.JSON(dto.GetHTTPStatus(domainErr.Code), dto.NewErrorResponse(domainErr.Code, domainErr.Message))
		return
	}

	c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrCodeInternal, err.Error()))
}

// parseUUIDParam parses a UUID path parameter, responding 400 on bad input
func (h *BaseHandler) parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}
