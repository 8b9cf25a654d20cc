package tax

import (
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxLiability is one accrued tax obligation tied to a source transaction and
// a filing period. Liabilities are append-only: once created, only the
// settlement flag ever changes. Corrections happen by accruing a compensating
// liability off the reversal entry, mirroring the journal.
type TaxLiability struct {
	shared.TenantAggregateRoot
	TaxPeriodID  uuid.UUID       `json:"tax_period_id"`
	TaxType      TaxType         `json:"tax_type"`
	SourceKind   SourceKind      `json:"source_kind"`
	SourceID     uuid.UUID       `json:"source_id"`
	SourceNumber string          `json:"source_number"`
	Direction    Direction       `json:"direction"`
	NetAmount    decimal.Decimal `json:"net_amount"` // Taxable base
	Amount       decimal.Decimal `json:"amount"`     // Tax accrued
	AccrualDate  time.Time       `json:"accrual_date"`
	// Pending marks liabilities recorded without a tax configuration; the
	// amount is zero until the tenant completes setup and recalculates.
	Pending   bool       `json:"pending"`
	Settled   bool       `json:"settled"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
	// JournalEntryID links to the balancing entry posted against the VAT
	// control account; nil for pending liabilities.
	JournalEntryID *uuid.UUID `json:"journal_entry_id,omitempty"`
}

// NewTaxLiability creates an accrued liability for a source transaction
func NewTaxLiability(
	tenantID, taxPeriodID uuid.UUID,
	taxType TaxType,
	source SourceTransaction,
	direction Direction,
	netAmount, amount decimal.Decimal,
) (*TaxLiability, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Invalid liability direction")
	}
	if amount.IsNegative() || netAmount.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Liability amounts cannot be negative")
	}

	l := &TaxLiability{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		TaxPeriodID:         taxPeriodID,
		TaxType:             taxType,
		SourceKind:          source.Kind,
		SourceID:            source.SourceID,
		SourceNumber:        source.SourceNumber,
		Direction:           direction,
		NetAmount:           netAmount,
		Amount:              amount,
		AccrualDate:         source.Date,
	}

	l.AddDomainEvent(NewTaxLiabilityAccruedEvent(l))

	return l, nil
}

// NewPendingTaxLiability records a zero-amount liability for a transaction
// that accrued while the tenant had no tax configuration. The sale itself is
// never blocked; the gap is surfaced through the pending flag instead.
func NewPendingTaxLiability(tenantID uuid.UUID, taxType TaxType, source SourceTransaction, direction Direction) (*TaxLiability, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}

	l := &TaxLiability{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		TaxType:             taxType,
		SourceKind:          source.Kind,
		SourceID:            source.SourceID,
		SourceNumber:        source.SourceNumber,
		Direction:           direction,
		NetAmount:           source.Amount,
		Amount:              decimal.Zero,
		AccrualDate:         source.Date,
		Pending:             true,
	}

	l.AddDomainEvent(NewTaxAccrualPendingEvent(l))

	return l, nil
}

// AttachJournalEntry links the liability to its balancing journal entry
func (l *TaxLiability) AttachJournalEntry(entryID uuid.UUID) {
	l.JournalEntryID = &entryID
	l.UpdatedAt = time.Now()
	l.IncrementVersion()
}

// Settle marks the liability as paid over to the authority
func (l *TaxLiability) Settle() error {
	if l.Settled {
		return shared.NewDomainError("CONFLICT", "Tax liability is already settled")
	}
	if l.Pending {
		return shared.NewDomainError("INVALID_STATE", "Pending tax liabilities cannot be settled")
	}
	now := time.Now()
	l.Settled = true
	l.SettledAt = &now
	l.UpdatedAt = now
	l.IncrementVersion()
	return nil
}
