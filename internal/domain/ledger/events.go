package ledger

import (
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountCreatedEvent is raised when a chart-of-accounts entry is created
type AccountCreatedEvent struct {
	shared.BaseDomainEvent
	AccountID     uuid.UUID   `json:"account_id"`
	Code          string      `json:"code"`
	Name          string      `json:"name"`
	AccountType   AccountType `json:"account_type"`
	NormalBalance BalanceSide `json:"normal_balance"`
}

// EventType returns the event type name
func (e *AccountCreatedEvent) EventType() string {
	return "AccountCreated"
}

// NewAccountCreatedEvent creates a new AccountCreatedEvent
func NewAccountCreatedEvent(a *Account) *AccountCreatedEvent {
	return &AccountCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountCreated", "Account", a.ID, a.TenantID),
		AccountID:       a.ID,
		Code:            a.Code,
		Name:            a.Name,
		AccountType:     a.Type,
		NormalBalance:   a.NormalBalance,
	}
}

// AccountDeactivatedEvent is raised when an account is deactivated
type AccountDeactivatedEvent struct {
	shared.BaseDomainEvent
	AccountID uuid.UUID `json:"account_id"`
	Code      string    `json:"code"`
}

// EventType returns the event type name
func (e *AccountDeactivatedEvent) EventType() string {
	return "AccountDeactivated"
}

// NewAccountDeactivatedEvent creates a new AccountDeactivatedEvent
func NewAccountDeactivatedEvent(a *Account) *AccountDeactivatedEvent {
	return &AccountDeactivatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("AccountDeactivated", "Account", a.ID, a.TenantID),
		AccountID:       a.ID,
		Code:            a.Code,
	}
}

// JournalEntryCreatedEvent is raised when a draft entry is created
type JournalEntryCreatedEvent struct {
	shared.BaseDomainEvent
	EntryID     uuid.UUID `json:"entry_id"`
	EntryNumber string    `json:"entry_number"`
	EntryType   EntryType `json:"entry_type"`
	EntryDate   time.Time `json:"entry_date"`
	LineCount   int       `json:"line_count"`
}

// EventType returns the event type name
func (e *JournalEntryCreatedEvent) EventType() string {
	return "JournalEntryCreated"
}

// NewJournalEntryCreatedEvent creates a new JournalEntryCreatedEvent
func NewJournalEntryCreatedEvent(entry *JournalEntry) *JournalEntryCreatedEvent {
	return &JournalEntryCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("JournalEntryCreated", "JournalEntry", entry.ID, entry.TenantID),
		EntryID:         entry.ID,
		EntryNumber:     entry.EntryNumber,
		EntryType:       entry.EntryType,
		EntryDate:       entry.EntryDate,
		LineCount:       len(entry.Lines),
	}
}

// JournalEntryPostedEvent is raised when a draft entry posts into the ledger.
// Tax-relevant postings are forwarded to the tax accrual service off this event.
type JournalEntryPostedEvent struct {
	shared.BaseDomainEvent
	EntryID     uuid.UUID       `json:"entry_id"`
	EntryNumber string          `json:"entry_number"`
	EntryType   EntryType       `json:"entry_type"`
	EntryDate   time.Time       `json:"entry_date"`
	TotalDebits decimal.Decimal `json:"total_debits"`
	// Reversal marks the posting of a compensating entry. Subscribers that
	// react to the original posting must not re-react to its reversal.
	Reversal bool `json:"reversal,omitempty"`
}

// EventType returns the event type name
func (e *JournalEntryPostedEvent) EventType() string {
	return "JournalEntryPosted"
}

// NewJournalEntryPostedEvent creates a new JournalEntryPostedEvent
func NewJournalEntryPostedEvent(entry *JournalEntry) *JournalEntryPostedEvent {
	return &JournalEntryPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("JournalEntryPosted", "JournalEntry", entry.ID, entry.TenantID),
		EntryID:         entry.ID,
		EntryNumber:     entry.EntryNumber,
		EntryType:       entry.EntryType,
		EntryDate:       entry.EntryDate,
		TotalDebits:     entry.TotalDebits(),
		Reversal:        entry.IsReversal(),
	}
}

// JournalEntryReversedEvent is raised when a posted entry is reversed
type JournalEntryReversedEvent struct {
	shared.BaseDomainEvent
	EntryID     uuid.UUID `json:"entry_id"`
	EntryNumber string    `json:"entry_number"`
	ReversalID  uuid.UUID `json:"reversal_id"`
}

// EventType returns the event type name
func (e *JournalEntryReversedEvent) EventType() string {
	return "JournalEntryReversed"
}

// NewJournalEntryReversedEvent creates a new JournalEntryReversedEvent
func NewJournalEntryReversedEvent(entry *JournalEntry, reversalID uuid.UUID) *JournalEntryReversedEvent {
	return &JournalEntryReversedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("JournalEntryReversed", "JournalEntry", entry.ID, entry.TenantID),
		EntryID:         entry.ID,
		EntryNumber:     entry.EntryNumber,
		ReversalID:      reversalID,
	}
}

// PeriodClosedEvent is raised when an accounting period closes
type PeriodClosedEvent struct {
	shared.BaseDomainEvent
	PeriodID   uuid.UUID `json:"period_id"`
	PeriodName string    `json:"period_name"`
	FiscalYear int       `json:"fiscal_year"`
	EndDate    time.Time `json:"end_date"`
}

// EventType returns the event type name
func (e *PeriodClosedEvent) EventType() string {
	return "PeriodClosed"
}

// NewPeriodClosedEvent creates a new PeriodClosedEvent
func NewPeriodClosedEvent(p *AccountingPeriod) *PeriodClosedEvent {
	return &PeriodClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent("PeriodClosed", "AccountingPeriod", p.ID, p.TenantID),
		PeriodID:        p.ID,
		PeriodName:      p.Name,
		FiscalYear:      p.FiscalYear,
		EndDate:         p.EndDate,
	}
}
