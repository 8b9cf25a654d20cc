package tax

import (
	"fmt"
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TaxType identifies the tax a filing period covers
type TaxType string

const (
	TaxTypeVAT       TaxType = "VAT"
	TaxTypeIncomeTax TaxType = "INCOME_TAX"
	TaxTypeLevy      TaxType = "LEVY"
)

// IsValid checks if the tax type is valid
func (t TaxType) IsValid() bool {
	switch t {
	case TaxTypeVAT, TaxTypeIncomeTax, TaxTypeLevy:
		return true
	}
	return false
}

// String returns the string representation of TaxType
func (t TaxType) String() string {
	return string(t)
}

// TaxPeriodStatus represents the filing lifecycle of a tax period
type TaxPeriodStatus string

const (
	TaxPeriodStatusOpen       TaxPeriodStatus = "OPEN"       // Accruing liabilities
	TaxPeriodStatusCalculated TaxPeriodStatus = "CALCULATED" // Return computed, awaiting filing
	TaxPeriodStatusFiled      TaxPeriodStatus = "FILED"      // Return submitted to the authority
	TaxPeriodStatusPaid       TaxPeriodStatus = "PAID"       // Liability settled
)

// IsValid checks if the status is a valid TaxPeriodStatus
func (s TaxPeriodStatus) IsValid() bool {
	switch s {
	case TaxPeriodStatusOpen, TaxPeriodStatusCalculated, TaxPeriodStatusFiled, TaxPeriodStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of TaxPeriodStatus
func (s TaxPeriodStatus) String() string {
	return string(s)
}

// TaxPeriod is one filing window for one tax type. Unique per
// (tenant, tax type, period start); created lazily by get-or-create when the
// first liability of the window accrues.
type TaxPeriod struct {
	shared.TenantAggregateRoot
	TaxType      TaxType         `json:"tax_type"`
	PeriodStart  time.Time       `json:"period_start"`
	PeriodEnd    time.Time       `json:"period_end"`
	DueDate      time.Time       `json:"due_date"` // period end + jurisdiction offset
	Status       TaxPeriodStatus `json:"status"`
	CalculatedAt *time.Time      `json:"calculated_at,omitempty"`
	FiledAt      *time.Time      `json:"filed_at,omitempty"`
	PaidAt       *time.Time      `json:"paid_at,omitempty"`
}

// NewTaxPeriod creates an open tax period
func NewTaxPeriod(tenantID uuid.UUID, taxType TaxType, periodStart, periodEnd, dueDate time.Time) (*TaxPeriod, error) {
	if !taxType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Invalid tax type: %s", taxType))
	}
	if !periodEnd.After(periodStart) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Tax period end must be after its start")
	}
	if dueDate.Before(periodEnd) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Tax period due date cannot precede the period end")
	}
	return &TaxPeriod{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		TaxType:             taxType,
		PeriodStart:         periodStart,
		PeriodEnd:           periodEnd,
		DueDate:             dueDate,
		Status:              TaxPeriodStatusOpen,
	}, nil
}

// Covers reports whether the date falls inside the filing window
func (p *TaxPeriod) Covers(date time.Time) bool {
	return !date.Before(p.PeriodStart) && !date.After(p.PeriodEnd)
}

// IsOverdue reports whether the filing deadline has passed without filing.
// Paid implies filed, so only open and calculated periods can be overdue.
func (p *TaxPeriod) IsOverdue(now time.Time) bool {
	if p.Status == TaxPeriodStatusFiled || p.Status == TaxPeriodStatusPaid {
		return false
	}
	return now.After(p.DueDate)
}

// MarkCalculated records that the return has been computed for this period
func (p *TaxPeriod) MarkCalculated() error {
	if p.Status != TaxPeriodStatusOpen && p.Status != TaxPeriodStatusCalculated {
		return shared.NewDomainError("CONFLICT",
			fmt.Sprintf("Cannot recalculate a %s tax period", p.Status))
	}
	now := time.Now()
	p.Status = TaxPeriodStatusCalculated
	p.CalculatedAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()
	return nil
}

// MarkFiled records the return as submitted. Filing an open period implies
// calculation happened out of band and is allowed.
func (p *TaxPeriod) MarkFiled() error {
	if p.Status == TaxPeriodStatusFiled || p.Status == TaxPeriodStatusPaid {
		return shared.NewDomainError("CONFLICT",
			fmt.Sprintf("Tax period is already %s", p.Status))
	}
	now := time.Now()
	p.Status = TaxPeriodStatusFiled
	p.FiledAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()
	p.AddDomainEvent(NewTaxPeriodFiledEvent(p))
	return nil
}

// MarkPaid records the filed liability as settled with the authority
func (p *TaxPeriod) MarkPaid() error {
	if p.Status != TaxPeriodStatusFiled {
		return shared.NewDomainError("CONFLICT",
			fmt.Sprintf("Only filed tax periods can be marked paid; period is %s", p.Status))
	}
	now := time.Now()
	p.Status = TaxPeriodStatusPaid
	p.PaidAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()
	p.AddDomainEvent(NewTaxPeriodPaidEvent(p))
	return nil
}
