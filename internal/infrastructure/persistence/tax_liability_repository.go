package persistence

import (
	"context"
	"errors"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/tax"
	"github.com/finbooks/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormTaxLiabilityRepository implements TaxLiabilityRepository using GORM
type GormTaxLiabilityRepository struct {
	db *gorm.DB
}

// NewGormTaxLiabilityRepository creates a new GormTaxLiabilityRepository
func NewGormTaxLiabilityRepository(db *gorm.DB) *GormTaxLiabilityRepository {
	return &GormTaxLiabilityRepository{db: db}
}

// FindByID finds a liability by its ID
func (r *GormTaxLiabilityRepository) FindByID(ctx context.Context, id uuid.UUID) (*tax.TaxLiability, error) {
	var model models.TaxLiabilityModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds a liability by ID for a specific tenant
func (r *GormTaxLiabilityRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*tax.TaxLiability, error) {
	var model models.TaxLiabilityModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySource finds liabilities accrued from a source document
func (r *GormTaxLiabilityRepository) FindBySource(ctx context.Context, tenantID uuid.UUID, sourceKind tax.SourceKind, sourceID uuid.UUID) ([]tax.TaxLiability, error) {
	var liabilityModels []models.TaxLiabilityModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND source_kind = ? AND source_id = ?", tenantID, sourceKind, sourceID).
		Order("created_at ASC").
		Find(&liabilityModels).Error; err != nil {
		return nil, err
	}
	return toTaxLiabilitySlice(liabilityModels), nil
}

// FindByPeriod finds liabilities accrued into a filing period
func (r *GormTaxLiabilityRepository) FindByPeriod(ctx context.Context, tenantID, taxPeriodID uuid.UUID) ([]tax.TaxLiability, error) {
	var liabilityModels []models.TaxLiabilityModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND tax_period_id = ?", tenantID, taxPeriodID).
		Order("accrual_date ASC").
		Find(&liabilityModels).Error; err != nil {
		return nil, err
	}
	return toTaxLiabilitySlice(liabilityModels), nil
}

// FindAllForTenant finds liabilities for a tenant with filtering
func (r *GormTaxLiabilityRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter tax.TaxLiabilityFilter) ([]tax.TaxLiability, error) {
	var liabilityModels []models.TaxLiabilityModel
	query := r.db.WithContext(ctx).Model(&models.TaxLiabilityModel{}).
		Where("tenant_id = ?", tenantID)
	if filter.Search != "" {
		query = query.Where("source_number ILIKE ?", "%"+filter.Search+"%")
	}
	if filter.TaxPeriodID != nil {
		query = query.Where("tax_period_id = ?", *filter.TaxPeriodID)
	}
	if filter.Direction != nil {
		query = query.Where("direction = ?", *filter.Direction)
	}
	if filter.SourceKind != nil {
		query = query.Where("source_kind = ?", *filter.SourceKind)
	}
	if filter.Pending != nil {
		query = query.Where("pending = ?", *filter.Pending)
	}
	if filter.Settled != nil {
		query = query.Where("settled = ?", *filter.Settled)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	if filter.OrderBy != "" {
		sortField := ValidateSortField(filter.OrderBy, TaxLiabilitySortFields, "accrual_date")
		query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("accrual_date DESC")
	}

	if err := query.Find(&liabilityModels).Error; err != nil {
		return nil, err
	}
	return toTaxLiabilitySlice(liabilityModels), nil
}

// FindPending finds liabilities accrued without a tax configuration
func (r *GormTaxLiabilityRepository) FindPending(ctx context.Context, tenantID uuid.UUID) ([]tax.TaxLiability, error) {
	var liabilityModels []models.TaxLiabilityModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND pending = ?", tenantID, true).
		Order("accrual_date ASC").
		Find(&liabilityModels).Error; err != nil {
		return nil, err
	}
	return toTaxLiabilitySlice(liabilityModels), nil
}

// Save creates or updates a liability
func (r *GormTaxLiabilityRepository) Save(ctx context.Context, liability *tax.TaxLiability) error {
	model := models.TaxLiabilityModelFromDomain(liability)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking
func (r *GormTaxLiabilityRepository) SaveWithLock(ctx context.Context, liability *tax.TaxLiability) error {
	model := models.TaxLiabilityModelFromDomain(liability)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", liability.ID, liability.Version-1).
		Select("*").Omit("created_at").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// SumByDirection totals liability amounts for a period by direction.
// Pending liabilities carry zero amounts and cannot skew the sum.
func (r *GormTaxLiabilityRepository) SumByDirection(ctx context.Context, tenantID, taxPeriodID uuid.UUID, direction tax.Direction) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.TaxLiabilityModel{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("tenant_id = ? AND tax_period_id = ? AND direction = ?", tenantID, taxPeriodID, direction).
		Scan(&result).Error; err != nil {
		return decimal.Zero, err
	}
	return result.Total, nil
}

// CountPending counts pending liabilities for a tenant
func (r *GormTaxLiabilityRepository) CountPending(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TaxLiabilityModel{}).
		Where("tenant_id = ? AND pending = ?", tenantID, true).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func toTaxLiabilitySlice(liabilityModels []models.TaxLiabilityModel) []tax.TaxLiability {
	liabilities := make([]tax.TaxLiability, len(liabilityModels))
	for i, model := range liabilityModels {
		liabilities[i] = *model.ToDomain()
	}
	return liabilities
}

// Ensure GormTaxLiabilityRepository implements TaxLiabilityRepository
var _ tax.TaxLiabilityRepository = (*GormTaxLiabilityRepository)(nil)
