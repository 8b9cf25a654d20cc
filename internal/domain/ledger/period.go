package ledger

import (
	"fmt"
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PeriodStatus represents the lifecycle of an accounting period
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
)

// IsValid checks if the status is a valid PeriodStatus
func (s PeriodStatus) IsValid() bool {
	return s == PeriodStatusOpen || s == PeriodStatusClosed
}

// String returns the string representation of PeriodStatus
func (s PeriodStatus) String() string {
	return string(s)
}

// AccountingPeriod is a posting window within a fiscal year. Closing a period
// locks every posting dated at or before its end and freezes each account's
// closing balance as the next period's opening balance.
type AccountingPeriod struct {
	shared.TenantAggregateRoot
	FiscalYear int          `json:"fiscal_year"`
	Sequence   int          `json:"sequence"` // 1-based position within the fiscal year
	Name       string       `json:"name"`     // e.g. "2026-01"
	StartDate  time.Time    `json:"start_date"`
	EndDate    time.Time    `json:"end_date"`
	Status     PeriodStatus `json:"status"`
	ClosedAt   *time.Time   `json:"closed_at,omitempty"`
}

// NewAccountingPeriod creates an open period covering [startDate, endDate]
func NewAccountingPeriod(tenantID uuid.UUID, fiscalYear, sequence int, name string, startDate, endDate time.Time) (*AccountingPeriod, error) {
	if name == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Period name cannot be empty")
	}
	if !endDate.After(startDate) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Period end date must be after start date")
	}
	if sequence < 1 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Period sequence must be positive")
	}
	return &AccountingPeriod{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		FiscalYear:          fiscalYear,
		Sequence:            sequence,
		Name:                name,
		StartDate:           startDate,
		EndDate:             endDate,
		Status:              PeriodStatusOpen,
	}, nil
}

// IsOpen returns true while postings are accepted
func (p *AccountingPeriod) IsOpen() bool {
	return p.Status == PeriodStatusOpen
}

// Covers reports whether the given date falls inside the period
func (p *AccountingPeriod) Covers(date time.Time) bool {
	return !date.Before(p.StartDate) && !date.After(p.EndDate)
}

// EnsureAcceptsPosting rejects postings into a closed period
func (p *AccountingPeriod) EnsureAcceptsPosting(date time.Time) error {
	if !p.Covers(date) {
		return shared.NewDomainError("VALIDATION_ERROR",
			fmt.Sprintf("Date %s is outside period %s", date.Format("2006-01-02"), p.Name))
	}
	if !p.IsOpen() {
		return shared.NewDomainError("PERIOD_CLOSED",
			fmt.Sprintf("Period %s is closed for posting", p.Name))
	}
	return nil
}

// Close marks the period closed. Closing freezes the period's ledger buckets;
// their closing balances carry forward when the next period's buckets are
// created, and retained earnings are derived on the balance sheet rather than
// posted as a closing entry.
func (p *AccountingPeriod) Close() error {
	if p.Status == PeriodStatusClosed {
		return shared.NewDomainError("CONFLICT", fmt.Sprintf("Period %s is already closed", p.Name))
	}
	now := time.Now()
	p.Status = PeriodStatusClosed
	p.ClosedAt = &now
	p.UpdatedAt = now
	p.IncrementVersion()
	p.AddDomainEvent(NewPeriodClosedEvent(p))
	return nil
}
