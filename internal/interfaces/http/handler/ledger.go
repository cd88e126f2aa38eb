package handler

import (
	"github.com/gin-gonic/gin"

	appbilling "github.com/schoolpay/backend/internal/application/billing"
)

// LedgerHandler serves student account statements
type LedgerHandler struct {
	BaseHandler
	service *appbilling.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(service *appbilling.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// RegisterRoutes registers ledger routes
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/students/:id/ledger", h.GetStudentLedger)
}

// GetStudentLedger returns the student's materialized ledger
func (h *LedgerHandler) GetStudentLedger(c *gin.Context) {
	studentID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	statement, err := h.service.StudentLedger(c.Request.Context(), studentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, statement)
}
