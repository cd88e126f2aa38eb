package handler

import (
	"github.com/gin-gonic/gin"

	appbilling "github.com/schoolpay/backend/internal/application/billing"
	"github.com/schoolpay/backend/internal/domain/audit"
	"github.com/schoolpay/backend/internal/interfaces/http/middleware"
)

// AuditHandler runs integrity checks and repairs
type AuditHandler struct {
	BaseHandler
	service *appbilling.AuditService
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(service *appbilling.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// RegisterRoutes registers audit routes
func (h *AuditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	auditGroup := rg.Group("/audit")
	{
		auditGroup.POST("/run", h.Run)
		auditGroup.POST("/repair", h.Repair)
	}
}

// Run executes all integrity checks without writing anything
func (h *AuditHandler) Run(c *gin.Context) {
	result, err := h.service.Run(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// repairRequest binds the repair request body
type repairRequest struct {
	CheckKind string `json:"check_kind" binding:"required"`
	DryRun    bool   `json:"dry_run"`
}

// Repair corrects what one integrity check found, or previews the
// corrections when dry_run is set
func (h *AuditHandler) Repair(c *gin.Context) {
	var req repairRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.service.Repair(c.Request.Context(), audit.CheckKind(req.CheckKind), req.DryRun)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
