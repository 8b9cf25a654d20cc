package models

import (
	"time"

	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountModel is the persistence model for the chart-of-accounts Account aggregate.
type AccountModel struct {
	TenantAggregateModel
	Code               string             `gorm:"type:varchar(20);not null;uniqueIndex:idx_account_tenant_code,priority:2"`
	Name               string             `gorm:"type:varchar(200);not null"`
	Type               ledger.AccountType `gorm:"type:varchar(20);not null;index"`
	NormalBalance      ledger.BalanceSide `gorm:"type:varchar(10);not null"`
	ParentID           *uuid.UUID         `gorm:"type:uuid;index"`
	IsActive           bool               `gorm:"not null;default:true;index"`
	AllowManualEntries bool               `gorm:"not null;default:true"`
	IsSystem           bool               `gorm:"not null;default:false"`
	Description        string             `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account entity.
func (m *AccountModel) ToDomain() *ledger.Account {
	a := &ledger.Account{
		Code:               m.Code,
		Name:               m.Name,
		Type:               m.Type,
		NormalBalance:      m.NormalBalance,
		ParentID:           m.ParentID,
		IsActive:           m.IsActive,
		AllowManualEntries: m.AllowManualEntries,
		IsSystem:           m.IsSystem,
		Description:        m.Description,
	}
	m.PopulateTenantAggregateRoot(&a.TenantAggregateRoot)
	return a
}

// FromDomain populates the persistence model from a domain Account entity.
func (m *AccountModel) FromDomain(a *ledger.Account) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.Code = a.Code
	m.Name = a.Name
	m.Type = a.Type
	m.NormalBalance = a.NormalBalance
	m.ParentID = a.ParentID
	m.IsActive = a.IsActive
	m.AllowManualEntries = a.AllowManualEntries
	m.IsSystem = a.IsSystem
	m.Description = a.Description
}

// AccountModelFromDomain creates a new persistence model from a domain Account.
func AccountModelFromDomain(a *ledger.Account) *AccountModel {
	m := &AccountModel{}
	m.FromDomain(a)
	return m
}

// JournalLineModel is the persistence model for one line of a journal entry.
// Lines are owned by their entry and only ever written through it.
type JournalLineModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	EntryID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccountID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position  int             `gorm:"not null"`
	Debit     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Credit    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Memo      string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (JournalLineModel) TableName() string {
	return "journal_lines"
}

// ToDomain converts the persistence model to a domain JournalLine.
func (m *JournalLineModel) ToDomain() ledger.JournalLine {
	return ledger.JournalLine{
		ID:        m.ID,
		AccountID: m.AccountID,
		Debit:     m.Debit,
		Credit:    m.Credit,
		Memo:      m.Memo,
	}
}

// JournalEntryModel is the persistence model for the JournalEntry aggregate root.
type JournalEntryModel struct {
	TenantAggregateModel
	EntryNumber  string             `gorm:"type:varchar(30);not null;uniqueIndex:idx_entry_tenant_number,priority:2"`
	EntryType    ledger.EntryType   `gorm:"type:varchar(20);not null;index"`
	Status       ledger.EntryStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	EntryDate    time.Time          `gorm:"not null;index"`
	FiscalYear   int                `gorm:"not null;index"`
	Description  string             `gorm:"type:varchar(500)"`
	Reference    string             `gorm:"type:varchar(100);index"`
	Lines        []JournalLineModel `gorm:"foreignKey:EntryID;references:ID"`
	PostedAt     *time.Time
	ReversedAt   *time.Time
	ReversalOfID *uuid.UUID `gorm:"type:uuid;index"`
	ReversedByID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (JournalEntryModel) TableName() string {
	return "journal_entries"
}

// ToDomain converts the persistence model to a domain JournalEntry entity.
// Lines come back in their original position order.
func (m *JournalEntryModel) ToDomain() *ledger.JournalEntry {
	lines := make([]ledger.JournalLine, len(m.Lines))
	for _, lm := range m.Lines {
		if lm.Position >= 0 && lm.Position < len(lines) {
			lines[lm.Position] = lm.ToDomain()
		}
	}
	e := &ledger.JournalEntry{
		EntryNumber:  m.EntryNumber,
		EntryType:    m.EntryType,
		Status:       m.Status,
		EntryDate:    m.EntryDate,
		FiscalYear:   m.FiscalYear,
		Description:  m.Description,
		Reference:    m.Reference,
		Lines:        lines,
		PostedAt:     m.PostedAt,
		ReversedAt:   m.ReversedAt,
		ReversalOfID: m.ReversalOfID,
		ReversedByID: m.ReversedByID,
	}
	m.PopulateTenantAggregateRoot(&e.TenantAggregateRoot)
	return e
}

// FromDomain populates the persistence model from a domain JournalEntry entity.
func (m *JournalEntryModel) FromDomain(e *ledger.JournalEntry) {
	m.FromDomainTenantAggregateRoot(e.TenantAggregateRoot)
	m.EntryNumber = e.EntryNumber
	m.EntryType = e.EntryType
	m.Status = e.Status
	m.EntryDate = e.EntryDate
	m.FiscalYear = e.FiscalYear
	m.Description = e.Description
	m.Reference = e.Reference
	m.PostedAt = e.PostedAt
	m.ReversedAt = e.ReversedAt
	m.ReversalOfID = e.ReversalOfID
	m.ReversedByID = e.ReversedByID
	m.Lines = make([]JournalLineModel, len(e.Lines))
	for i, line := range e.Lines {
		m.Lines[i] = JournalLineModel{
			ID:        line.ID,
			EntryID:   e.ID,
			AccountID: line.AccountID,
			Position:  i,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Memo:      line.Memo,
		}
	}
}

// JournalEntryModelFromDomain creates a new persistence model from a domain JournalEntry.
func JournalEntryModelFromDomain(e *ledger.JournalEntry) *JournalEntryModel {
	m := &JournalEntryModel{}
	m.FromDomain(e)
	return m
}

// GeneralLedgerModel is the persistence model for one account's balance bucket
// within one accounting period.
type GeneralLedgerModel struct {
	TenantAggregateModel
	AccountID       uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_tenant_account_period,priority:2"`
	PeriodID        uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_ledger_tenant_account_period,priority:3;index"`
	OpeningBalance  decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	DebitTotal      decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	CreditTotal     decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	ClosingBalance  decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	AppliedEntryIDs ledger.AppliedEntrySet `gorm:"type:jsonb;default:'[]'"`
}

// TableName returns the table name for GORM
func (GeneralLedgerModel) TableName() string {
	return "general_ledger_entries"
}

// ToDomain converts the persistence model to a domain GeneralLedgerEntry.
func (m *GeneralLedgerModel) ToDomain() *ledger.GeneralLedgerEntry {
	g := &ledger.GeneralLedgerEntry{
		AccountID:       m.AccountID,
		PeriodID:        m.PeriodID,
		OpeningBalance:  m.OpeningBalance,
		DebitTotal:      m.DebitTotal,
		CreditTotal:     m.CreditTotal,
		ClosingBalance:  m.ClosingBalance,
		AppliedEntryIDs: m.AppliedEntryIDs,
	}
	m.PopulateTenantAggregateRoot(&g.TenantAggregateRoot)
	return g
}

// FromDomain populates the persistence model from a domain GeneralLedgerEntry.
func (m *GeneralLedgerModel) FromDomain(g *ledger.GeneralLedgerEntry) {
	m.FromDomainTenantAggregateRoot(g.TenantAggregateRoot)
	m.AccountID = g.AccountID
	m.PeriodID = g.PeriodID
	m.OpeningBalance = g.OpeningBalance
	m.DebitTotal = g.DebitTotal
	m.CreditTotal = g.CreditTotal
	m.ClosingBalance = g.ClosingBalance
	m.AppliedEntryIDs = g.AppliedEntryIDs
}

// GeneralLedgerModelFromDomain creates a new persistence model from a domain GeneralLedgerEntry.
func GeneralLedgerModelFromDomain(g *ledger.GeneralLedgerEntry) *GeneralLedgerModel {
	m := &GeneralLedgerModel{}
	m.FromDomain(g)
	return m
}

// AccountingPeriodModel is the persistence model for the AccountingPeriod aggregate.
type AccountingPeriodModel struct {
	TenantAggregateModel
	FiscalYear int                 `gorm:"not null;uniqueIndex:idx_period_tenant_year_seq,priority:2;index"`
	Sequence   int                 `gorm:"not null;uniqueIndex:idx_period_tenant_year_seq,priority:3"`
	Name       string              `gorm:"type:varchar(50);not null"`
	StartDate  time.Time           `gorm:"not null;index"`
	EndDate    time.Time           `gorm:"not null;index"`
	Status     ledger.PeriodStatus `gorm:"type:varchar(10);not null;default:'OPEN';index"`
	ClosedAt   *time.Time
}

// TableName returns the table name for GORM
func (AccountingPeriodModel) TableName() string {
	return "accounting_periods"
}

// ToDomain converts the persistence model to a domain AccountingPeriod.
func (m *AccountingPeriodModel) ToDomain() *ledger.AccountingPeriod {
	p := &ledger.AccountingPeriod{
		FiscalYear: m.FiscalYear,
		Sequence:   m.Sequence,
		Name:       m.Name,
		StartDate:  m.StartDate,
		EndDate:    m.EndDate,
		Status:     m.Status,
		ClosedAt:   m.ClosedAt,
	}
	m.PopulateTenantAggregateRoot(&p.TenantAggregateRoot)
	return p
}

// FromDomain populates the persistence model from a domain AccountingPeriod.
func (m *AccountingPeriodModel) FromDomain(p *ledger.AccountingPeriod) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.FiscalYear = p.FiscalYear
	m.Sequence = p.Sequence
	m.Name = p.Name
	m.StartDate = p.StartDate
	m.EndDate = p.EndDate
	m.Status = p.Status
	m.ClosedAt = p.ClosedAt
}

// AccountingPeriodModelFromDomain creates a new persistence model from a domain AccountingPeriod.
func AccountingPeriodModelFromDomain(p *ledger.AccountingPeriod) *AccountingPeriodModel {
	m := &AccountingPeriodModel{}
	m.FromDomain(p)
	return m
}

// EntrySequenceModel holds the per-tenant fiscal-year journal number counter.
// The row is incremented atomically inside the creating transaction.
type EntrySequenceModel struct {
	TenantID   uuid.UUID `gorm:"type:uuid;primary_key"`
	FiscalYear int       `gorm:"primary_key;autoIncrement:false"`
	NextValue  int64     `gorm:"not null;default:1"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (EntrySequenceModel) TableName() string {
	return "entry_sequences"
}
