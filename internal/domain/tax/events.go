package tax

import (
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxLiabilityAccruedEvent is raised when a liability accrues from a source transaction
type TaxLiabilityAccruedEvent struct {
	shared.BaseDomainEvent
	LiabilityID uuid.UUID       `json:"liability_id"`
	TaxPeriodID uuid.UUID       `json:"tax_period_id"`
	SourceKind  SourceKind      `json:"source_kind"`
	SourceID    uuid.UUID       `json:"source_id"`
	Direction   Direction       `json:"direction"`
	Amount      decimal.Decimal `json:"amount"`
}

// EventType returns the event type name
func (e *TaxLiabilityAccruedEvent) EventType() string {
	return "TaxLiabilityAccrued"
}

// NewTaxLiabilityAccruedEvent creates a new TaxLiabilityAccruedEvent
func NewTaxLiabilityAccruedEvent(l *TaxLiability) *TaxLiabilityAccruedEvent {
	return &TaxLiabilityAccruedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("TaxLiabilityAccrued", "TaxLiability", l.ID, l.TenantID),
		LiabilityID:     l.ID,
		TaxPeriodID:     l.TaxPeriodID,
		SourceKind:      l.SourceKind,
		SourceID:        l.SourceID,
		Direction:       l.Direction,
		Amount:          l.Amount,
	}
}

// TaxAccrualPendingEvent is raised when a transaction accrues without a tax
// configuration in place. The transaction completes; operations follow up.
type TaxAccrualPendingEvent struct {
	shared.BaseDomainEvent
	LiabilityID uuid.UUID  `json:"liability_id"`
	SourceKind  SourceKind `json:"source_kind"`
	SourceID    uuid.UUID  `json:"source_id"`
}

// EventType returns the event type name
func (e *TaxAccrualPendingEvent) EventType() string {
	return "TaxAccrualPending"
}

// NewTaxAccrualPendingEvent creates a new TaxAccrualPendingEvent
func NewTaxAccrualPendingEvent(l *TaxLiability) *TaxAccrualPendingEvent {
	return &TaxAccrualPendingEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("TaxAccrualPending", "TaxLiability", l.ID, l.TenantID),
		LiabilityID:     l.ID,
		SourceKind:      l.SourceKind,
		SourceID:        l.SourceID,
	}
}

// TaxPeriodFiledEvent is raised when a period's return is filed
type TaxPeriodFiledEvent struct {
	shared.BaseDomainEvent
	PeriodID    uuid.UUID `json:"period_id"`
	TaxType     TaxType   `json:"tax_type"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// EventType returns the event type name
func (e *TaxPeriodFiledEvent) EventType() string {
	return "TaxPeriodFiled"
}

// NewTaxPeriodFiledEvent creates a new TaxPeriodFiledEvent
func NewTaxPeriodFiledEvent(p *TaxPeriod) *TaxPeriodFiledEvent {
	return &TaxPeriodFiledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("TaxPeriodFiled", "TaxPeriod", p.ID, p.TenantID),
		PeriodID:        p.ID,
		TaxType:         p.TaxType,
		PeriodStart:     p.PeriodStart,
		PeriodEnd:       p.PeriodEnd,
	}
}

// TaxPeriodPaidEvent is raised when a filed period's liability is settled
type TaxPeriodPaidEvent struct {
	shared.BaseDomainEvent
	PeriodID uuid.UUID `json:"period_id"`
	TaxType  TaxType   `json:"tax_type"`
}

// EventType returns the event type name
func (e *TaxPeriodPaidEvent) EventType() string {
	return "TaxPeriodPaid"
}

// NewTaxPeriodPaidEvent creates a new TaxPeriodPaidEvent
func NewTaxPeriodPaidEvent(p *TaxPeriod) *TaxPeriodPaidEvent {
	return &TaxPeriodPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("TaxPeriodPaid", "TaxPeriod", p.ID, p.TenantID),
		PeriodID:        p.ID,
		TaxType:         p.TaxType,
	}
}
