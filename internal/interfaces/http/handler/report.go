package handler

import (
	"github.com/gin-gonic/gin"

	appbilling "github.com/schoolpay/backend/internal/application/billing"
	"github.com/schoolpay/backend/internal/domain/billing"
	"github.com/schoolpay/backend/internal/domain/report"
	"github.com/schoolpay/backend/internal/domain/shared/valueobject"
	"github.com/schoolpay/backend/internal/interfaces/http/middleware"
)

// ReportHandler serves the financial reports
type ReportHandler struct {
	BaseHandler
	service *appbilling.ReportService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(service *appbilling.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// RegisterRoutes registers report routes
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	reports := rg.Group("/reports")
	{
		reports.GET("/aged-debtors", h.GetAgedDebtors)
		reports.GET("/outstanding-fees", h.GetOutstandingFees)
		reports.GET("/fees-collection", h.GetFeesCollection)
		reports.GET("/reconciliation/:termId", h.GetReconciliation)
	}
}

// agedDebtorsQuery binds the aged debtors query parameters
type agedDebtorsQuery struct {
	AsOf      string `form:"as_of" binding:"omitempty,datetime=2006-01-02"`
	Class     string `form:"class"`
	Residence string `form:"residence" binding:"omitempty,oneof=BOARDER DAY"`
}

// GetAgedDebtors returns open invoices bucketed by days overdue
func (h *ReportHandler) GetAgedDebtors(c *gin.Context) {
	var q agedDebtorsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	asOf := valueobject.Today()
	if q.AsOf != "" {
		asOf = valueobject.MustParseDate(q.AsOf)
	}

	filters := make([]report.Filter, 0, 2)
	if q.Class != "" {
		filters = append(filters, report.ClassFilter{ClassName: q.Class})
	}
	if q.Residence != "" {
		filters = append(filters, report.ResidenceFilter{Residence: billing.Residence(q.Residence)})
	}

	result, err := h.service.AgedDebtors(c.Request.Context(), asOf, filters...)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// outstandingFeesQuery binds the outstanding fees query parameters
type outstandingFeesQuery struct {
	Class     string `form:"class"`
	Residence string `form:"residence" binding:"omitempty,oneof=BOARDER DAY"`
	Term      string `form:"term"`
}

// GetOutstandingFees returns who owes what, grouped by enrollment and residence
func (h *ReportHandler) GetOutstandingFees(c *gin.Context) {
	var q outstandingFeesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	filters := make([]report.Filter, 0, 3)
	if q.Class != "" {
		filters = append(filters, report.ClassFilter{ClassName: q.Class})
	}
	if q.Residence != "" {
		filters = append(filters, report.ResidenceFilter{Residence: billing.Residence(q.Residence)})
	}
	if q.Term != "" {
		filters = append(filters, report.TermFilter{TermID: q.Term})
	}

	result, err := h.service.OutstandingFees(c.Request.Context(), filters...)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// feesCollectionQuery binds the fees collection query parameters
type feesCollectionQuery struct {
	Start string `form:"start" binding:"required,datetime=2006-01-02"`
	End   string `form:"end" binding:"required,datetime=2006-01-02"`
}

// GetFeesCollection returns money received in a window, split by fee type,
// payment method and enrollment
func (h *ReportHandler) GetFeesCollection(c *gin.Context) {
	var q feesCollectionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	window := report.DateRangeFilter{
		Start: valueobject.MustParseDate(q.Start),
		End:   valueobject.MustParseDate(q.End),
	}

	result, err := h.service.FeesCollection(c.Request.Context(), window)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetReconciliation matches a term's enrollment roster against its invoices
func (h *ReportHandler) GetReconciliation(c *gin.Context) {
	termID := c.Param("termId")

	result, err := h.service.Reconciliation(c.Request.Context(), termID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
