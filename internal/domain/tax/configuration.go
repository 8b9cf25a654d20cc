package tax

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FilingFrequency determines how tax periods are cut for a tenant
type FilingFrequency string

const (
	FilingMonthly   FilingFrequency = "MONTHLY"
	FilingQuarterly FilingFrequency = "QUARTERLY"
	FilingAnnual    FilingFrequency = "ANNUAL"
)

// IsValid checks if the filing frequency is valid
func (f FilingFrequency) IsValid() bool {
	switch f {
	case FilingMonthly, FilingQuarterly, FilingAnnual:
		return true
	}
	return false
}

// String returns the string representation of FilingFrequency
func (f FilingFrequency) String() string {
	return string(f)
}

// PeriodBounds returns the [start, end] of the filing period covering date,
// normalized to UTC midnight boundaries.
func (f FilingFrequency) PeriodBounds(date time.Time) (time.Time, time.Time) {
	y, m, _ := date.Date()
	switch f {
	case FilingQuarterly:
		qStart := time.Month((int(m)-1)/3*3 + 1)
		start := time.Date(y, qStart, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 3, -1)
	case FilingAnnual:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, -1)
	default:
		start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, -1)
	}
}

// TaxBracket is one progressive income tax band. Upper is nil for the
// open-ended top bracket. Rate is a percentage.
type TaxBracket struct {
	Lower decimal.Decimal  `json:"lower"`
	Upper *decimal.Decimal `json:"upper,omitempty"`
	Rate  decimal.Decimal  `json:"rate"`
}

// TaxBrackets is the ordered set of income tax bands.
// Implements GORM Scanner/Valuer for JSONB storage.
type TaxBrackets []TaxBracket

// Validate checks the brackets are sorted, contiguous from zero, and end
// with exactly one open-ended top bracket.
func (b TaxBrackets) Validate() error {
	if len(b) == 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "At least one tax bracket is required")
	}
	if !b[0].Lower.IsZero() {
		return shared.NewDomainError("VALIDATION_ERROR", "First tax bracket must start at zero")
	}
	for i, bracket := range b {
		if bracket.Rate.IsNegative() {
			return shared.NewDomainError("VALIDATION_ERROR", "Tax bracket rate cannot be negative")
		}
		last := i == len(b)-1
		if last {
			if bracket.Upper != nil {
				return shared.NewDomainError("VALIDATION_ERROR", "Top tax bracket must be open-ended")
			}
			continue
		}
		if bracket.Upper == nil {
			return shared.NewDomainError("VALIDATION_ERROR", "Only the top tax bracket may be open-ended")
		}
		if !bracket.Upper.GreaterThan(bracket.Lower) {
			return shared.NewDomainError("VALIDATION_ERROR",
				fmt.Sprintf("Tax bracket %d upper bound must exceed its lower bound", i+1))
		}
		if !b[i+1].Lower.Equal(*bracket.Upper) {
			return shared.NewDomainError("VALIDATION_ERROR",
				fmt.Sprintf("Tax bracket %d is not contiguous with bracket %d", i+2, i+1))
		}
	}
	return nil
}

// Value implements driver.Valuer interface for GORM to store as JSONB
func (b TaxBrackets) Value() (driver.Value, error) {
	if b == nil {
		return "[]", nil
	}
	return json.Marshal(b)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (b *TaxBrackets) Scan(value interface{}) error {
	if value == nil {
		*b = TaxBrackets{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan TaxBrackets: unsupported type")
	}

	if len(bytes) == 0 {
		*b = TaxBrackets{}
		return nil
	}

	return json.Unmarshal(bytes, b)
}

// LevyRates maps levy names (e.g. "skills_development") to percentage rates.
// Implements GORM Scanner/Valuer for JSONB storage.
type LevyRates map[string]decimal.Decimal

// Value implements driver.Valuer interface for GORM to store as JSONB
func (r LevyRates) Value() (driver.Value, error) {
	if r == nil {
		return "{}", nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (r *LevyRates) Scan(value interface{}) error {
	if value == nil {
		*r = LevyRates{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan LevyRates: unsupported type")
	}

	if len(bytes) == 0 {
		*r = LevyRates{}
		return nil
	}

	return json.Unmarshal(bytes, r)
}

// TaxConfiguration holds a tenant's jurisdiction tax settings: the VAT rate
// and pricing convention, the filing calendar, and the income tax bands.
// One configuration per tenant.
type TaxConfiguration struct {
	shared.TenantAggregateRoot
	VATRate          decimal.Decimal `json:"vat_rate"` // Percentage, e.g. 14.5
	PricesIncludeVAT bool            `json:"prices_include_vat"`
	FilingFrequency  FilingFrequency `json:"filing_frequency"`
	// DueDateOffsetDays is the jurisdiction's filing deadline offset:
	// due date = period end + offset days.
	DueDateOffsetDays int         `json:"due_date_offset_days"`
	Brackets          TaxBrackets `json:"brackets"`
	Levies            LevyRates   `json:"levies"`
}

// NewTaxConfiguration creates a tenant's tax configuration
func NewTaxConfiguration(
	tenantID uuid.UUID,
	vatRate decimal.Decimal,
	pricesIncludeVAT bool,
	frequency FilingFrequency,
	dueDateOffsetDays int,
	brackets TaxBrackets,
	levies LevyRates,
) (*TaxConfiguration, error) {
	if vatRate.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "VAT rate cannot be negative")
	}
	if vatRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "VAT rate cannot exceed 100 percent")
	}
	if !frequency.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Invalid filing frequency: %s", frequency))
	}
	if dueDateOffsetDays < 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Due date offset cannot be negative")
	}
	if len(brackets) > 0 {
		if err := brackets.Validate(); err != nil {
			return nil, err
		}
	}
	if levies == nil {
		levies = LevyRates{}
	}

	return &TaxConfiguration{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		VATRate:             vatRate,
		PricesIncludeVAT:    pricesIncludeVAT,
		FilingFrequency:     frequency,
		DueDateOffsetDays:   dueDateOffsetDays,
		Brackets:            brackets,
		Levies:              levies,
	}, nil
}

// UpdateVATRate changes the VAT rate going forward. Already-accrued
// liabilities keep the rate in force when they were created.
func (c *TaxConfiguration) UpdateVATRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError("VALIDATION_ERROR", "VAT rate must be between 0 and 100 percent")
	}
	c.VATRate = rate
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}

// UpdateBrackets replaces the income tax bands
func (c *TaxConfiguration) UpdateBrackets(brackets TaxBrackets) error {
	if err := brackets.Validate(); err != nil {
		return err
	}
	c.Brackets = brackets
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
	return nil
}

// DueDateFor computes the filing deadline for a period ending at periodEnd
func (c *TaxConfiguration) DueDateFor(periodEnd time.Time) time.Time {
	return periodEnd.AddDate(0, 0, c.DueDateOffsetDays)
}
