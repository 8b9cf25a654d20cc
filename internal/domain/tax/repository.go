package tax

import (
	"context"
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxConfigurationRepository defines the interface for tax configuration persistence
type TaxConfigurationRepository interface {
	// FindByTenant finds the tenant's tax configuration.
	// Returns shared.ErrNotFound when the tenant has not completed tax setup.
	FindByTenant(ctx context.Context, tenantID uuid.UUID) (*TaxConfiguration, error)

	// Save creates or updates the configuration
	Save(ctx context.Context, config *TaxConfiguration) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, config *TaxConfiguration) error
}

// TaxPeriodFilter defines filtering options for tax period queries
type TaxPeriodFilter struct {
	shared.Filter
	TaxType  *TaxType         // Filter by tax type
	Status   *TaxPeriodStatus // Filter by filing status
	FromDate *time.Time       // Filter by period start range
	ToDate   *time.Time       // Filter by period end range
}

// TaxPeriodRepository defines the interface for tax period persistence
type TaxPeriodRepository interface {
	// FindByID finds a tax period by ID
	FindByID(ctx context.Context, id uuid.UUID) (*TaxPeriod, error)

	// FindByIDForTenant finds a tax period by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*TaxPeriod, error)

	// FindByStart finds the period with the given tax type and start date
	FindByStart(ctx context.Context, tenantID uuid.UUID, taxType TaxType, periodStart time.Time) (*TaxPeriod, error)

	// FindAllForTenant finds tax periods for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter TaxPeriodFilter) ([]TaxPeriod, error)

	// FindInRange finds periods overlapping [from, to], ordered by start
	FindInRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]TaxPeriod, error)

	// GetOrCreate returns the period for (tenant, taxType, periodStart),
	// creating it from the candidate when absent. Safe under concurrent
	// first-accrual races: a unique index on the key plus a single retry on
	// duplicate guarantees exactly one winner.
	GetOrCreate(ctx context.Context, candidate *TaxPeriod) (*TaxPeriod, error)

	// Save creates or updates a tax period
	Save(ctx context.Context, period *TaxPeriod) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, period *TaxPeriod) error
}

// TaxLiabilityFilter defines filtering options for liability queries
type TaxLiabilityFilter struct {
	shared.Filter
	TaxPeriodID *uuid.UUID  // Filter by filing period
	Direction   *Direction  // Filter by output/input side
	SourceKind  *SourceKind // Filter by source kind
	Pending     *bool       // Filter by pending flag
	Settled     *bool       // Filter by settlement flag
}

// TaxLiabilityRepository defines the interface for tax liability persistence
type TaxLiabilityRepository interface {
	// FindByID finds a liability by ID
	FindByID(ctx context.Context, id uuid.UUID) (*TaxLiability, error)

	// FindByIDForTenant finds a liability by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*TaxLiability, error)

	// FindBySource finds liabilities accrued from a source document
	FindBySource(ctx context.Context, tenantID uuid.UUID, sourceKind SourceKind, sourceID uuid.UUID) ([]TaxLiability, error)

	// FindByPeriod finds liabilities accrued into a filing period
	FindByPeriod(ctx context.Context, tenantID, taxPeriodID uuid.UUID) ([]TaxLiability, error)

	// FindAllForTenant finds liabilities for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter TaxLiabilityFilter) ([]TaxLiability, error)

	// FindPending finds liabilities accrued without a tax configuration
	FindPending(ctx context.Context, tenantID uuid.UUID) ([]TaxLiability, error)

	// Save creates or updates a liability
	Save(ctx context.Context, liability *TaxLiability) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, liability *TaxLiability) error

	// SumByDirection totals liability amounts for a period by direction
	SumByDirection(ctx context.Context, tenantID, taxPeriodID uuid.UUID, direction Direction) (decimal.Decimal, error)

	// CountPending counts pending liabilities for a tenant
	CountPending(ctx context.Context, tenantID uuid.UUID) (int64, error)
}
