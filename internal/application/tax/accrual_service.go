package tax

import (
	"context"
	"time"

	appledger "github.com/finbooks/backend/internal/application/ledger"
	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/tax"
	"github.com/finbooks/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// VATAccountCodes names the system accounts the accrual engine posts
// balancing lines against. Provisioned per tenant at setup.
type VATAccountCodes struct {
	Output   string // Liability: VAT collected, owed to the authority
	Input    string // Asset: VAT paid, reclaimable
	Clearing string // Contra account absorbing the reclassification
}

// DefaultVATAccountCodes returns the standard chart positions
func DefaultVATAccountCodes() VATAccountCodes {
	return VATAccountCodes{
		Output:   "2150",
		Input:    "1150",
		Clearing: "2190",
	}
}

// AccrualService computes tax from external source transactions and records
// the resulting liabilities. Source modules call OnTransactionPosted after
// their own commit; the engine never polls them, and a missing tax
// configuration never blocks the underlying sale or purchase.
type AccrualService struct {
	configRepo    tax.TaxConfigurationRepository
	periodRepo    tax.TaxPeriodRepository
	liabilityRepo tax.TaxLiabilityRepository
	accountRepo   ledger.AccountRepository
	journals      *appledger.JournalService
	calculator    *tax.Calculator
	publisher     shared.EventPublisher
	accountCodes  VATAccountCodes
	logger        *zap.Logger
}

// NewAccrualService creates a new AccrualService
func NewAccrualService(
	configRepo tax.TaxConfigurationRepository,
	periodRepo tax.TaxPeriodRepository,
	liabilityRepo tax.TaxLiabilityRepository,
	accountRepo ledger.AccountRepository,
	journals *appledger.JournalService,
	publisher shared.EventPublisher,
	accountCodes VATAccountCodes,
	logger *zap.Logger,
) *AccrualService {
	return &AccrualService{
		configRepo:    configRepo,
		periodRepo:    periodRepo,
		liabilityRepo: liabilityRepo,
		accountRepo:   accountRepo,
		journals:      journals,
		calculator:    tax.NewCalculator(),
		publisher:     publisher,
		accountCodes:  accountCodes,
		logger:        logger,
	}
}

// SourceTransactionRequest is the ingress payload from source modules
type SourceTransactionRequest struct {
	Kind         string          `json:"kind" binding:"required"`
	SourceID     uuid.UUID       `json:"source_id" binding:"required"`
	SourceNumber string          `json:"source_number,omitempty"`
	Amount       decimal.Decimal `json:"amount" binding:"required"`
	TaxInclusive bool            `json:"tax_inclusive"`
	Date         time.Time       `json:"date" binding:"required"`
}

// AccrualResponse describes the outcome of a tax accrual
type AccrualResponse struct {
	LiabilityID    uuid.UUID       `json:"liability_id"`
	TaxPeriodID    *uuid.UUID      `json:"tax_period_id,omitempty"`
	Direction      string          `json:"direction"`
	NetAmount      decimal.Decimal `json:"net_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Pending        bool            `json:"pending"`
	JournalEntryID *uuid.UUID      `json:"journal_entry_id,omitempty"`
}

// OnTransactionPosted accrues VAT for a committed source transaction:
// compute the split, get-or-create the filing period covering the
// transaction date, record the liability, and post the balancing entry
// against the VAT control accounts.
func (s *AccrualService) OnTransactionPosted(ctx context.Context, tenantID uuid.UUID, req SourceTransactionRequest) (*AccrualResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "tax_accrual", "on_transaction_posted")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrSourceKind, req.Kind,
		telemetry.SpanAttrSourceID, req.SourceID.String(),
	)

	source := tax.SourceTransaction{
		Kind:         tax.SourceKind(req.Kind),
		SourceID:     req.SourceID,
		SourceNumber: req.SourceNumber,
		Amount:       req.Amount,
		TaxInclusive: req.TaxInclusive,
		Date:         req.Date,
	}
	if err := source.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	direction, err := source.VATDirection()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	config, err := s.configRepo.FindByTenant(ctx, tenantID)
	if err != nil && !shared.IsDomainErrorWithCode(err, "NOT_FOUND") {
		return nil, err
	}
	if config == nil || shared.IsDomainErrorWithCode(err, "NOT_FOUND") {
		return s.recordPending(ctx, tenantID, source, direction)
	}

	breakdown, err := s.calculator.ComputeVAT(source.Amount, source.TaxInclusive, config.VATRate)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	period, err := s.resolvePeriod(ctx, tenantID, config, source.Date)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	liability, err := tax.NewTaxLiability(tenantID, period.ID, tax.TaxTypeVAT, source, direction, breakdown.Net, breakdown.Tax)
	if err != nil {
		return nil, err
	}

	entryID := s.postBalancingEntry(ctx, tenantID, source, direction, breakdown.Tax)
	if entryID != nil {
		liability.AttachJournalEntry(*entryID)
	}

	if err := s.liabilityRepo.Save(ctx, liability); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publishEvents(ctx, liability.GetDomainEvents())
	liability.ClearDomainEvents()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTaxDirection, direction.String(),
		telemetry.SpanAttrAmount, breakdown.Tax.String(),
	)

	periodID := period.ID
	return &AccrualResponse{
		LiabilityID:    liability.ID,
		TaxPeriodID:    &periodID,
		Direction:      direction.String(),
		NetAmount:      breakdown.Net,
		TaxAmount:      breakdown.Tax,
		JournalEntryID: entryID,
	}, nil
}

// recordPending records a zero-amount liability when the tenant has no tax
// configuration. The source transaction stays committed.
func (s *AccrualService) recordPending(ctx context.Context, tenantID uuid.UUID, source tax.SourceTransaction, direction tax.Direction) (*AccrualResponse, error) {
	s.logger.Warn("tax accrual pending: tenant has no tax configuration",
		zap.String("tenant_id", tenantID.String()),
		zap.String("source_kind", source.Kind.String()),
		zap.String("source_id", source.SourceID.String()),
	)

	liability, err := tax.NewPendingTaxLiability(tenantID, tax.TaxTypeVAT, source, direction)
	if err != nil {
		return nil, err
	}
	if err := s.liabilityRepo.Save(ctx, liability); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, liability.GetDomainEvents())
	liability.ClearDomainEvents()

	return &AccrualResponse{
		LiabilityID: liability.ID,
		Direction:   direction.String(),
		NetAmount:   source.Amount,
		TaxAmount:   decimal.Zero,
		Pending:     true,
	}, nil
}

// resolvePeriod finds or creates the open filing period covering the date.
// Safe under concurrent first-accrual races via the repository's
// unique-index-plus-retry contract.
func (s *AccrualService) resolvePeriod(ctx context.Context, tenantID uuid.UUID, config *tax.TaxConfiguration, date time.Time) (*tax.TaxPeriod, error) {
	start, end := config.FilingFrequency.PeriodBounds(date)
	candidate, err := tax.NewTaxPeriod(tenantID, tax.TaxTypeVAT, start, end, config.DueDateFor(end))
	if err != nil {
		return nil, err
	}
	return s.periodRepo.GetOrCreate(ctx, candidate)
}

// postBalancingEntry posts the reclassification pair against the VAT control
// accounts. Failures are logged, not propagated: the liability record is the
// source of truth and the entry can be re-posted by operations.
func (s *AccrualService) postBalancingEntry(ctx context.Context, tenantID uuid.UUID, source tax.SourceTransaction, direction tax.Direction, taxAmount decimal.Decimal) *uuid.UUID {
	if taxAmount.IsZero() {
		return nil
	}

	var debitCode, creditCode string
	switch direction {
	case tax.DirectionOutput:
		debitCode, creditCode = s.accountCodes.Clearing, s.accountCodes.Output
	case tax.DirectionInput:
		debitCode, creditCode = s.accountCodes.Input, s.accountCodes.Clearing
	default:
		return nil
	}

	debitAccount, err := s.accountRepo.FindByCode(ctx, tenantID, debitCode)
	if err != nil || debitAccount == nil {
		s.logVATAccountGap(tenantID, debitCode, err)
		return nil
	}
	creditAccount, err := s.accountRepo.FindByCode(ctx, tenantID, creditCode)
	if err != nil || creditAccount == nil {
		s.logVATAccountGap(tenantID, creditCode, err)
		return nil
	}

	created, err := s.journals.CreateEntry(ctx, tenantID, appledger.CreateEntryRequest{
		EntryType:   ledger.EntryTypeTax.String(),
		EntryDate:   source.Date,
		Description: "VAT accrual for " + source.SourceNumber,
		Reference:   source.SourceNumber,
		Lines: []appledger.JournalLineRequest{
			{AccountID: debitAccount.ID, Debit: taxAmount},
			{AccountID: creditAccount.ID, Credit: taxAmount},
		},
	})
	if err != nil {
		s.logger.Error("failed to create VAT balancing entry",
			zap.String("tenant_id", tenantID.String()),
			zap.String("source_number", source.SourceNumber),
			zap.Error(err),
		)
		return nil
	}

	posted, err := s.journals.PostEntry(ctx, tenantID, created.ID)
	if err != nil {
		s.logger.Error("failed to post VAT balancing entry",
			zap.String("tenant_id", tenantID.String()),
			zap.String("entry_number", created.EntryNumber),
			zap.Error(err),
		)
		return nil
	}
	return &posted.ID
}

func (s *AccrualService) logVATAccountGap(tenantID uuid.UUID, code string, err error) {
	s.logger.Warn("VAT control account missing; liability recorded without balancing entry",
		zap.String("tenant_id", tenantID.String()),
		zap.String("account_code", code),
		zap.Error(err),
	)
}

func (s *AccrualService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish tax events", zap.Error(err))
	}
}
