package models

import (
	"time"

	"github.com/finbooks/backend/internal/domain/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxConfigurationModel is the persistence model for a tenant's tax settings.
// One row per tenant.
type TaxConfigurationModel struct {
	TenantAggregateModel
	VATRate           decimal.Decimal     `gorm:"type:decimal(7,4);not null"`
	PricesIncludeVAT  bool                `gorm:"not null;default:true"`
	FilingFrequency   tax.FilingFrequency `gorm:"type:varchar(10);not null"`
	DueDateOffsetDays int                 `gorm:"not null;default:0"`
	Brackets          tax.TaxBrackets     `gorm:"type:jsonb;default:'[]'"`
	Levies            tax.LevyRates       `gorm:"type:jsonb;default:'{}'"`
}

// TableName returns the table name for GORM
func (TaxConfigurationModel) TableName() string {
	return "tax_configurations"
}

// ToDomain converts the persistence model to a domain TaxConfiguration.
func (m *TaxConfigurationModel) ToDomain() *tax.TaxConfiguration {
	c := &tax.TaxConfiguration{
		VATRate:           m.VATRate,
		PricesIncludeVAT:  m.PricesIncludeVAT,
		FilingFrequency:   m.FilingFrequency,
		DueDateOffsetDays: m.DueDateOffsetDays,
		Brackets:          m.Brackets,
		Levies:            m.Levies,
	}
	m.PopulateTenantAggregateRoot(&c.TenantAggregateRoot)
	return c
}

// FromDomain populates the persistence model from a domain TaxConfiguration.
func (m *TaxConfigurationModel) FromDomain(c *tax.TaxConfiguration) {
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	m.VATRate = c.VATRate
	m.PricesIncludeVAT = c.PricesIncludeVAT
	m.FilingFrequency = c.FilingFrequency
	m.DueDateOffsetDays = c.DueDateOffsetDays
	m.Brackets = c.Brackets
	m.Levies = c.Levies
}

// TaxConfigurationModelFromDomain creates a new persistence model from a domain TaxConfiguration.
func TaxConfigurationModelFromDomain(c *tax.TaxConfiguration) *TaxConfigurationModel {
	m := &TaxConfigurationModel{}
	m.FromDomain(c)
	return m
}

// TaxPeriodModel is the persistence model for the TaxPeriod aggregate.
// The unique index backs the lazy get-or-create: concurrent accruals into the
// same filing window race on insert and the loser re-reads.
type TaxPeriodModel struct {
	TenantAggregateModel
	TaxType      tax.TaxType         `gorm:"type:varchar(20);not null;uniqueIndex:idx_taxperiod_tenant_type_start,priority:2"`
	PeriodStart  time.Time           `gorm:"not null;uniqueIndex:idx_taxperiod_tenant_type_start,priority:3"`
	PeriodEnd    time.Time           `gorm:"not null;index"`
	DueDate      time.Time           `gorm:"not null;index"`
	Status       tax.TaxPeriodStatus `gorm:"type:varchar(15);not null;default:'OPEN';index"`
	CalculatedAt *time.Time
	FiledAt      *time.Time
	PaidAt       *time.Time
}

// TableName returns the table name for GORM
func (TaxPeriodModel) TableName() string {
	return "tax_periods"
}

// ToDomain converts the persistence model to a domain TaxPeriod.
func (m *TaxPeriodModel) ToDomain() *tax.TaxPeriod {
	p := &tax.TaxPeriod{
		TaxType:      m.TaxType,
		PeriodStart:  m.PeriodStart,
		PeriodEnd:    m.PeriodEnd,
		DueDate:      m.DueDate,
		Status:       m.Status,
		CalculatedAt: m.CalculatedAt,
		FiledAt:      m.FiledAt,
		PaidAt:       m.PaidAt,
	}
	m.PopulateTenantAggregateRoot(&p.TenantAggregateRoot)
	return p
}

// FromDomain populates the persistence model from a domain TaxPeriod.
func (m *TaxPeriodModel) FromDomain(p *tax.TaxPeriod) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.TaxType = p.TaxType
	m.PeriodStart = p.PeriodStart
	m.PeriodEnd = p.PeriodEnd
	m.DueDate = p.DueDate
	m.Status = p.Status
	m.CalculatedAt = p.CalculatedAt
	m.FiledAt = p.FiledAt
	m.PaidAt = p.PaidAt
}

// TaxPeriodModelFromDomain creates a new persistence model from a domain TaxPeriod.
func TaxPeriodModelFromDomain(p *tax.TaxPeriod) *TaxPeriodModel {
	m := &TaxPeriodModel{}
	m.FromDomain(p)
	return m
}

// TaxLiabilityModel is the persistence model for the TaxLiability aggregate.
type TaxLiabilityModel struct {
	TenantAggregateModel
	TaxPeriodID    uuid.UUID       `gorm:"type:uuid;index"`
	TaxType        tax.TaxType     `gorm:"type:varchar(20);not null;index"`
	SourceKind     tax.SourceKind  `gorm:"type:varchar(20);not null;index"`
	SourceID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	SourceNumber   string          `gorm:"type:varchar(50);not null"`
	Direction      tax.Direction   `gorm:"type:varchar(10);not null;index"`
	NetAmount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AccrualDate    time.Time       `gorm:"not null;index"`
	Pending        bool            `gorm:"not null;default:false;index"`
	Settled        bool            `gorm:"not null;default:false"`
	SettledAt      *time.Time
	JournalEntryID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (TaxLiabilityModel) TableName() string {
	return "tax_liabilities"
}

// ToDomain converts the persistence model to a domain TaxLiability.
func (m *TaxLiabilityModel) ToDomain() *tax.TaxLiability {
	l := &tax.TaxLiability{
		TaxPeriodID:    m.TaxPeriodID,
		TaxType:        m.TaxType,
		SourceKind:     m.SourceKind,
		SourceID:       m.SourceID,
		SourceNumber:   m.SourceNumber,
		Direction:      m.Direction,
		NetAmount:      m.NetAmount,
		Amount:         m.Amount,
		AccrualDate:    m.AccrualDate,
		Pending:        m.Pending,
		Settled:        m.Settled,
		SettledAt:      m.SettledAt,
		JournalEntryID: m.JournalEntryID,
	}
	m.PopulateTenantAggregateRoot(&l.TenantAggregateRoot)
	return l
}

// FromDomain populates the persistence model from a domain TaxLiability.
func (m *TaxLiabilityModel) FromDomain(l *tax.TaxLiability) {
	m.FromDomainTenantAggregateRoot(l.TenantAggregateRoot)
	m.TaxPeriodID = l.TaxPeriodID
	m.TaxType = l.TaxType
	m.SourceKind = l.SourceKind
	m.SourceID = l.SourceID
	m.SourceNumber = l.SourceNumber
	m.Direction = l.Direction
	m.NetAmount = l.NetAmount
	m.Amount = l.Amount
	m.AccrualDate = l.AccrualDate
	m.Pending = l.Pending
	m.Settled = l.Settled
	m.SettledAt = l.SettledAt
	m.JournalEntryID = l.JournalEntryID
}

// TaxLiabilityModelFromDomain creates a new persistence model from a domain TaxLiability.
func TaxLiabilityModelFromDomain(l *tax.TaxLiability) *TaxLiabilityModel {
	m := &TaxLiabilityModel{}
	m.FromDomain(l)
	return m
}
