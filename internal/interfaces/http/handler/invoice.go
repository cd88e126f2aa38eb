package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appbilling "github.com/schoolpay/backend/internal/application/billing"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
	"github.com/schoolpay/backend/internal/interfaces/http/middleware"
)

// InvoiceHandler issues and voids invoices
type InvoiceHandler struct {
	BaseHandler
	service *appbilling.BillingService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(service *appbilling.BillingService) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

// RegisterRoutes registers invoice routes
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/invoices", h.IssueInvoice)
	rg.POST("/invoices/:id/void", h.VoidInvoice)
}

// issueInvoiceRequest binds the issue invoice request body
type issueInvoiceRequest struct {
	StudentID      string            `json:"student_id" binding:"required,uuid"`
	EnrollmentID   string            `json:"enrollment_id" binding:"required,uuid"`
	FeeIDs         []string          `json:"fee_ids" binding:"required,min=1,dive,uuid"`
	BalanceForward valueobject.Money `json:"balance_forward"`
	IssueDate      string            `json:"issue_date" binding:"required,datetime=2006-01-02"`
	DueDate        string            `json:"due_date" binding:"required,datetime=2006-01-02"`
}

// IssueInvoice bills a student's enrollment for the selected fees
func (h *InvoiceHandler) IssueInvoice(c *gin.Context) {
	var req issueInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	feeIDs := make([]uuid.UUID, len(req.FeeIDs))
	for i, id := range req.FeeIDs {
		feeIDs[i] = uuid.MustParse(id)
	}

	invoice, err := h.service.IssueInvoice(c.Request.Context(), appbilling.IssueInvoiceRequest{
		StudentID:      uuid.MustParse(req.StudentID),
		EnrollmentID:   uuid.MustParse(req.EnrollmentID),
		FeeIDs:         feeIDs,
		BalanceForward: req.BalanceForward,
		IssueDate:      valueobject.MustParseDate(req.IssueDate),
		DueDate:        valueobject.MustParseDate(req.DueDate),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// VoidInvoice voids an invoice that has not been paid against
func (h *InvoiceHandler) VoidInvoice(c *gin.Context) {
	invoiceID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req voidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	if err := h.service.VoidInvoice(c.Request.Context(), invoiceID, req.Reason); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
