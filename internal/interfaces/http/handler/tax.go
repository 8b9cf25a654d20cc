package handler

import (
	"context"
	"time"

	taxapp "github.com/finbooks/backend/internal/application/tax"
	"github.com/finbooks/backend/internal/domain/tax"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxHandler handles tax accrual and filing API endpoints
type TaxHandler struct {
	BaseHandler
	accrualService *taxapp.AccrualService
	returnService  *taxapp.ReturnService
}

// NewTaxHandler creates a new TaxHandler
func NewTaxHandler(accrualService *taxapp.AccrualService, returnService *taxapp.ReturnService) *TaxHandler {
	return &TaxHandler{
		accrualService: accrualService,
		returnService:  returnService,
	}
}

// IncomeTaxRequest carries a taxable income figure for bracket calculation
type IncomeTaxRequest struct {
	TaxableIncome decimal.Decimal `json:"taxable_income" binding:"required"`
}

// LiabilityResponse represents a tax liability in API responses
type LiabilityResponse struct {
	ID           uuid.UUID       `json:"id"`
	TaxPeriodID  uuid.UUID       `json:"tax_period_id"`
	TaxType      string          `json:"tax_type"`
	SourceKind   string          `json:"source_kind"`
	SourceID     uuid.UUID       `json:"source_id"`
	SourceNumber string          `json:"source_number,omitempty"`
	Direction    string          `json:"direction"`
	NetAmount    decimal.Decimal `json:"net_amount"`
	Amount       decimal.Decimal `json:"amount"`
	AccrualDate  time.Time       `json:"accrual_date"`
	Pending      bool            `json:"pending"`
	Settled      bool            `json:"settled"`
}

func toLiabilityResponse(l *tax.TaxLiability) LiabilityResponse {
	return LiabilityResponse{
		ID:           l.ID,
		TaxPeriodID:  l.TaxPeriodID,
		TaxType:      l.TaxType.String(),
		SourceKind:   l.SourceKind.String(),
		SourceID:     l.SourceID,
		SourceNumber: l.SourceNumber,
		Direction:    l.Direction.String(),
		NetAmount:    l.NetAmount,
		Amount:       l.Amount,
		AccrualDate:  l.AccrualDate,
		Pending:      l.Pending,
		Settled:      l.Settled,
	}
}

// RecordTransaction is the accrual ingress: source modules report a committed
// transaction and the engine computes and records the VAT split.
func (h *TaxHandler) RecordTransaction(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req taxapp.SourceTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	accrual, err := h.accrualService.OnTransactionPosted(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, accrual)
}

// Calendar lists filing periods with due dates and overdue flags. The range
// defaults to the current calendar year.
func (h *TaxHandler) Calendar(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	now := time.Now()
	from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), time.December, 31, 23, 59, 59, 0, time.UTC)

	if fromStr := c.Query("from"); fromStr != "" {
		parsed, err := parseDateParam(fromStr)
		if err != nil {
			h.BadRequest(c, "Invalid from date. Expected YYYY-MM-DD or RFC3339")
			return
		}
		from = parsed
	}
	if toStr := c.Query("to"); toStr != "" {
		parsed, err := parseDateParam(toStr)
		if err != nil {
			h.BadRequest(c, "Invalid to date. Expected YYYY-MM-DD or RFC3339")
			return
		}
		to = parsed
	}

	entries, err := h.returnService.TaxCalendar(c.Request.Context(), tenantID, from, to)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, entries)
}

// CalculateIncomeTax applies the tenant's progressive brackets to a taxable income
func (h *TaxHandler) CalculateIncomeTax(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	var req IncomeTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.returnService.CalculateIncomeTax(c.Request.Context(), tenantID, req.TaxableIncome)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}

// FilePeriod marks a tax period's return as filed
func (h *TaxHandler) FilePeriod(c *gin.Context) {
	h.transitionPeriod(c, h.returnService.FilePeriod)
}

// PayPeriod marks a filed tax period as paid and settles its liabilities
func (h *TaxHandler) PayPeriod(c *gin.Context) {
	h.transitionPeriod(c, h.returnService.PayPeriod)
}

// ListPendingLiabilities lists liabilities recorded before the tenant
// completed its tax configuration
func (h *TaxHandler) ListPendingLiabilities(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	liabilities, err := h.returnService.ListPendingLiabilities(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	responses := make([]LiabilityResponse, len(liabilities))
	for i := range liabilities {
		responses[i] = toLiabilityResponse(&liabilities[i])
	}

	h.Success(c, responses)
}

// transitionPeriod parses the period ID and applies a lifecycle transition
func (h *TaxHandler) transitionPeriod(
	c *gin.Context,
	fn func(ctx context.Context, tenantID, periodID uuid.UUID) (*taxapp.TaxPeriodResponse, error),
) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tax period ID")
		return
	}

	period, err := fn(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, period)
}
