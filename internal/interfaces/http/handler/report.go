package handler

import (
	"time"

	"github.com/finbooks/backend/internal/application/reporting"
	taxapp "github.com/finbooks/backend/internal/application/tax"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReportHandler handles financial statement API endpoints
type ReportHandler struct {
	BaseHandler
	statementService *reporting.StatementService
	returnService    *taxapp.ReturnService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(statementService *reporting.StatementService, returnService *taxapp.ReturnService) *ReportHandler {
	return &ReportHandler{
		statementService: statementService,
		returnService:    returnService,
	}
}

// TrialBalance lists every account's balance split into debit and credit columns
func (h *ReportHandler) TrialBalance(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	asOf, ok := h.asOfParam(c)
	if !ok {
		return
	}

	report, err := h.statementService.TrialBalance(c.Request.Context(), tenantID, asOf)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}

// BalanceSheet groups balances by account type and checks the accounting equation
func (h *ReportHandler) BalanceSheet(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	asOf, ok := h.asOfParam(c)
	if !ok {
		return
	}

	report, err := h.statementService.BalanceSheet(c.Request.Context(), tenantID, asOf)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}

// ProfitAndLoss produces the income statement over a date range
func (h *ReportHandler) ProfitAndLoss(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	start, end, ok := h.rangeParams(c)
	if !ok {
		return
	}

	report, err := h.statementService.ProfitAndLoss(c.Request.Context(), tenantID, start, end)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}

// CashFlow partitions cash movements by operating, investing and financing activity
func (h *ReportHandler) CashFlow(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	start, end, ok := h.rangeParams(c)
	if !ok {
		return
	}

	report, err := h.statementService.CashFlow(c.Request.Context(), tenantID, start, end)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}

// VATReturn computes the VAT position for a filing period
func (h *ReportHandler) VATReturn(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	periodID, err := uuid.Parse(c.Query("period_id"))
	if err != nil {
		h.BadRequest(c, "Invalid or missing period_id")
		return
	}

	report, err := h.returnService.CalculateVATReturn(c.Request.Context(), tenantID, periodID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}

// asOfParam reads the optional as_of query parameter, defaulting to now
func (h *ReportHandler) asOfParam(c *gin.Context) (time.Time, bool) {
	asOf := time.Now()
	if asOfStr := c.Query("as_of"); asOfStr != "" {
		parsed, err := parseDateParam(asOfStr)
		if err != nil {
			h.BadRequest(c, "Invalid as_of format. Expected YYYY-MM-DD or RFC3339")
			return time.Time{}, false
		}
		asOf = parsed
	}
	return asOf, true
}

// rangeParams reads the required start and end query parameters
func (h *ReportHandler) rangeParams(c *gin.Context) (time.Time, time.Time, bool) {
	start, err := parseDateParam(c.Query("start"))
	if err != nil {
		h.BadRequest(c, "Invalid or missing start date. Expected YYYY-MM-DD or RFC3339")
		return time.Time{}, time.Time{}, false
	}
	end, err := parseDateParam(c.Query("end"))
	if err != nil {
		h.BadRequest(c, "Invalid or missing end date. Expected YYYY-MM-DD or RFC3339")
		return time.Time{}, time.Time{}, false
	}
	if end.Before(start) {
		h.BadRequest(c, "end date must not be before start date")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
