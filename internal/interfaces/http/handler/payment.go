package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appbilling "github.com/schoolpay/backend/internal/application/billing"
	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
	"github.com/schoolpay/backend/internal/interfaces/http/middleware"
)

// PaymentHandler records and voids receipts and reports student credit
type PaymentHandler struct {
	BaseHandler
	service *appbilling.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(service *appbilling.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// RegisterRoutes registers payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/receipts", h.RecordPayment)
	rg.POST("/receipts/:id/void", h.VoidReceipt)
	rg.GET("/students/:id/credit", h.GetStudentCredit)
}

// recordPaymentRequest binds the record payment request body
type recordPaymentRequest struct {
	StudentID       string            `json:"student_id" binding:"required,uuid"`
	Amount          valueobject.Money `json:"amount" binding:"required"`
	PaymentMethod   string            `json:"payment_method" binding:"required,oneof=CASH BANK_TRANSFER MOBILE_MONEY CHECK CARD CREDIT_BALANCE OTHER"`
	PaymentDate     string            `json:"payment_date" binding:"required,datetime=2006-01-02"`
	Reference       string            `json:"reference"`
	TargetInvoiceID string            `json:"target_invoice_id" binding:"omitempty,uuid"`
}

// RecordPayment records a payment and allocates it across the student's
// open invoices, oldest obligation first
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	cmd := appbilling.RecordPaymentRequest{
		StudentID:     uuid.MustParse(req.StudentID),
		Amount:        req.Amount,
		PaymentMethod: billing.PaymentMethod(req.PaymentMethod),
		PaymentDate:   valueobject.MustParseDate(req.PaymentDate),
		Reference:     req.Reference,
	}
	if req.TargetInvoiceID != "" {
		cmd.TargetInvoiceID = uuid.MustParse(req.TargetInvoiceID)
	}

	result, err := h.service.RecordPayment(c.Request.Context(), cmd)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// voidRequest binds a void request body
type voidRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// VoidReceipt voids a receipt, restoring the invoices it paid and
// reversing any credit it created
func (h *PaymentHandler) VoidReceipt(c *gin.Context) {
	receiptID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req voidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	if err := h.service.VoidReceipt(c.Request.Context(), receiptID, req.Reason); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// GetStudentCredit returns the student's credit balance and transaction history
func (h *PaymentHandler) GetStudentCredit(c *gin.Context) {
	studentID, ok := h.parseUUIDParam(c, "id")
	if !ok {
		return
	}

	balance, history, err := h.service.StudentCredit(c.Request.Context(), studentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{
		"student_id": studentID,
		"balance":    balance,
		"history":    history,
	})
}
