package tax

import (
	"context"
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReturnService computes tax returns and drives the filing lifecycle
type ReturnService struct {
	configRepo    tax.TaxConfigurationRepository
	periodRepo    tax.TaxPeriodRepository
	liabilityRepo tax.TaxLiabilityRepository
	calculator    *tax.Calculator
	publisher     shared.EventPublisher
	logger        *zap.Logger
}

// NewReturnService creates a new ReturnService
func NewReturnService(
	configRepo tax.TaxConfigurationRepository,
	periodRepo tax.TaxPeriodRepository,
	liabilityRepo tax.TaxLiabilityRepository,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *ReturnService {
	return &ReturnService{
		configRepo:    configRepo,
		periodRepo:    periodRepo,
		liabilityRepo: liabilityRepo,
		calculator:    tax.NewCalculator(),
		publisher:     publisher,
		logger:        logger,
	}
}

// VATReturnResponse is the computed VAT position for one filing period
type VATReturnResponse struct {
	PeriodID    uuid.UUID       `json:"period_id"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	DueDate     time.Time       `json:"due_date"`
	Status      string          `json:"status"`
	OutputTotal decimal.Decimal `json:"output_total"`
	InputTotal  decimal.Decimal `json:"input_total"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	Payable     bool            `json:"payable"`
	Refundable  bool            `json:"refundable"`
}

// IncomeTaxResponse is a progressive income tax computation result
type IncomeTaxResponse struct {
	TaxableIncome decimal.Decimal `json:"taxable_income"`
	Tax           decimal.Decimal `json:"tax"`
	EffectiveRate decimal.Decimal `json:"effective_rate"`
}

// TaxCalendarEntry is one filing period in the tax calendar
type TaxCalendarEntry struct {
	PeriodID    uuid.UUID `json:"period_id"`
	TaxType     string    `json:"tax_type"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	DueDate     time.Time `json:"due_date"`
	Status      string    `json:"status"`
	Overdue     bool      `json:"overdue"`
}

// TaxPeriodResponse represents a tax period in API responses
type TaxPeriodResponse struct {
	ID          uuid.UUID  `json:"id"`
	TaxType     string     `json:"tax_type"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	DueDate     time.Time  `json:"due_date"`
	Status      string     `json:"status"`
	FiledAt     *time.Time `json:"filed_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

func toTaxPeriodResponse(p *tax.TaxPeriod) *TaxPeriodResponse {
	return &TaxPeriodResponse{
		ID:          p.ID,
		TaxType:     p.TaxType.String(),
		PeriodStart: p.PeriodStart,
		PeriodEnd:   p.PeriodEnd,
		DueDate:     p.DueDate,
		Status:      p.Status.String(),
		FiledAt:     p.FiledAt,
		PaidAt:      p.PaidAt,
	}
}

// CalculateVATReturn nets output against input VAT for a filing period and
// marks the period calculated.
func (s *ReturnService) CalculateVATReturn(ctx context.Context, tenantID, periodID uuid.UUID) (*VATReturnResponse, error) {
	period, err := s.periodRepo.FindByIDForTenant(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Tax period not found")
	}

	output, err := s.liabilityRepo.SumByDirection(ctx, tenantID, periodID, tax.DirectionOutput)
	if err != nil {
		return nil, err
	}
	input, err := s.liabilityRepo.SumByDirection(ctx, tenantID, periodID, tax.DirectionInput)
	if err != nil {
		return nil, err
	}

	position := s.calculator.VATReturn(output, input)

	if err := period.MarkCalculated(); err == nil {
		if saveErr := s.periodRepo.SaveWithLock(ctx, period); saveErr != nil {
			return nil, saveErr
		}
	}

	return &VATReturnResponse{
		PeriodID:    period.ID,
		PeriodStart: period.PeriodStart,
		PeriodEnd:   period.PeriodEnd,
		DueDate:     period.DueDate,
		Status:      period.Status.String(),
		OutputTotal: position.OutputTotal,
		InputTotal:  position.InputTotal,
		NetAmount:   position.NetAmount,
		Payable:     position.Payable,
		Refundable:  position.Refundable,
	}, nil
}

// CalculateIncomeTax applies the tenant's progressive brackets
func (s *ReturnService) CalculateIncomeTax(ctx context.Context, tenantID uuid.UUID, taxableIncome decimal.Decimal) (*IncomeTaxResponse, error) {
	config, err := s.configRepo.FindByTenant(ctx, tenantID)
	if err != nil && !shared.IsDomainErrorWithCode(err, "NOT_FOUND") {
		return nil, err
	}
	if config == nil {
		return nil, shared.ErrTaxConfigMissing
	}
	if len(config.Brackets) == 0 {
		return nil, shared.NewDomainError("TAX_CONFIG_MISSING", "Income tax brackets are not configured")
	}

	taxDue, err := s.calculator.IncomeTax(taxableIncome, config.Brackets)
	if err != nil {
		return nil, err
	}

	effectiveRate := decimal.Zero
	if taxableIncome.IsPositive() {
		effectiveRate = taxDue.Mul(decimal.NewFromInt(100)).Div(taxableIncome).Round(2)
	}

	return &IncomeTaxResponse{
		TaxableIncome: taxableIncome,
		Tax:           taxDue,
		EffectiveRate: effectiveRate,
	}, nil
}

// TaxCalendar lists filing periods overlapping the range with due dates and
// overdue flags
func (s *ReturnService) TaxCalendar(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]TaxCalendarEntry, error) {
	periods, err := s.periodRepo.FindInRange(ctx, tenantID, from, to)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entries := make([]TaxCalendarEntry, len(periods))
	for i := range periods {
		p := &periods[i]
		entries[i] = TaxCalendarEntry{
			PeriodID:    p.ID,
			TaxType:     p.TaxType.String(),
			PeriodStart: p.PeriodStart,
			PeriodEnd:   p.PeriodEnd,
			DueDate:     p.DueDate,
			Status:      p.Status.String(),
			Overdue:     p.IsOverdue(now),
		}
	}
	return entries, nil
}

// FilePeriod marks a period's return as filed
func (s *ReturnService) FilePeriod(ctx context.Context, tenantID, periodID uuid.UUID) (*TaxPeriodResponse, error) {
	return s.transition(ctx, tenantID, periodID, (*tax.TaxPeriod).MarkFiled)
}

// PayPeriod marks a filed period's liability as settled, settling every
// liability accrued into it.
func (s *ReturnService) PayPeriod(ctx context.Context, tenantID, periodID uuid.UUID) (*TaxPeriodResponse, error) {
	response, err := s.transition(ctx, tenantID, periodID, (*tax.TaxPeriod).MarkPaid)
	if err != nil {
		return nil, err
	}

	liabilities, err := s.liabilityRepo.FindByPeriod(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	for i := range liabilities {
		l := &liabilities[i]
		if l.Settled || l.Pending {
			continue
		}
		if err := l.Settle(); err != nil {
			return nil, err
		}
		if err := s.liabilityRepo.SaveWithLock(ctx, l); err != nil {
			return nil, err
		}
	}
	return response, nil
}

// transition applies a lifecycle transition and persists with a version check
func (s *ReturnService) transition(ctx context.Context, tenantID, periodID uuid.UUID, fn func(*tax.TaxPeriod) error) (*TaxPeriodResponse, error) {
	period, err := s.periodRepo.FindByIDForTenant(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Tax period not found")
	}

	if err := fn(period); err != nil {
		return nil, err
	}
	if err := s.periodRepo.SaveWithLock(ctx, period); err != nil {
		return nil, err
	}

	events := period.GetDomainEvents()
	if s.publisher != nil && len(events) > 0 {
		if err := s.publisher.Publish(ctx, events...); err != nil {
			s.logger.Error("failed to publish tax period events", zap.Error(err))
		}
		period.ClearDomainEvents()
	}

	return toTaxPeriodResponse(period), nil
}

// ListPendingLiabilities lists liabilities recorded without a configuration
func (s *ReturnService) ListPendingLiabilities(ctx context.Context, tenantID uuid.UUID) ([]tax.TaxLiability, error) {
	return s.liabilityRepo.FindPending(ctx, tenantID)
}
