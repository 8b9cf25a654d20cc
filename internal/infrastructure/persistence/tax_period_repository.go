package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/tax"
	"github.com/finbooks/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTaxPeriodRepository implements TaxPeriodRepository using GORM
type GormTaxPeriodRepository struct {
	db *gorm.DB
}

// NewGormTaxPeriodRepository creates a new GormTaxPeriodRepository
func NewGormTaxPeriodRepository(db *gorm.DB) *GormTaxPeriodRepository {
	return &GormTaxPeriodRepository{db: db}
}

// FindByID finds a tax period by its ID
func (r *GormTaxPeriodRepository) FindByID(ctx context.Context, id uuid.UUID) (*tax.TaxPeriod, error) {
	var model models.TaxPeriodModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds a tax period by ID for a specific tenant
func (r *GormTaxPeriodRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*tax.TaxPeriod, error) {
	var model models.TaxPeriodModel
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

// FindByStart finds the period with the given tax type and start date
func (r *GormTaxPeriodRepository) FindByStart(ctx context.Context, tenantID uuid.UUID, taxType tax.TaxType, periodStart time.Time) (*tax.TaxPeriod, error) {
	var model models.TaxPeriodModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND tax_type = ? AND period_start = ?", tenantID, taxType, periodStart).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds tax periods for a tenant with filtering
func (r *GormTaxPeriodRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter tax.TaxPeriodFilter) ([]tax.TaxPeriod, error) {
	var periodModels []models.TaxPeriodModel
	query := r.db.WithContext(ctx).Model(&models.TaxPeriodModel{}).
		Where("tenant_id = ?", tenantID)
	if filter.TaxType != nil {
		query = query.Where("tax_type = ?", *filter.TaxType)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("period_start >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("period_end <= ?", *filter.ToDate)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	if err := query.Order("period_start ASC").Find(&periodModels).Error; err != nil {
		return nil, err
	}
	return toTaxPeriodSlice(periodModels), nil
}

// FindInRange finds periods overlapping [from, to], ordered by start
func (r *GormTaxPeriodRepository) FindInRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]tax.TaxPeriod, error) {
	var periodModels []models.TaxPeriodModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND period_start <= ? AND period_end >= ?", tenantID, to, from).
		Order("period_start ASC").
		Find(&periodModels).Error; err != nil {
		return nil, err
	}
	return toTaxPeriodSlice(periodModels), nil
}

// GetOrCreate returns the period for (tenant, taxType, periodStart), creating
// it from the candidate when absent. A concurrent first accrual into the same
// window loses the insert race on the unique index and re-reads the winner.
func (r *GormTaxPeriodRepository) GetOrCreate(ctx context.Context, candidate *tax.TaxPeriod) (*tax.TaxPeriod, error) {
	existing, err := r.FindByStart(ctx, candidate.TenantID, candidate.TaxType, candidate.PeriodStart)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	model := models.TaxPeriodModelFromDomain(candidate)
	if createErr := r.db.WithContext(ctx).Create(model).Error; createErr != nil {
		if isUniqueViolation(createErr) {
			return r.FindByStart(ctx, candidate.TenantID, candidate.TaxType, candidate.PeriodStart)
		}
		return nil, createErr
	}
	return candidate, nil
}

// Save creates or updates a tax period
func (r *GormTaxPeriodRepository) Save(ctx context.Context, period *tax.TaxPeriod) error {
	model := models.TaxPeriodModelFromDomain(period)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking
func (r *GormTaxPeriodRepository) SaveWithLock(ctx context.Context, period *tax.TaxPeriod) error {
	model := models.TaxPeriodModelFromDomain(period)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", period.ID, period.Version-1).
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

// isUniqueViolation reports whether the error is a unique index violation
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "UNIQUE constraint")
}

func toTaxPeriodSlice(periodModels []models.TaxPeriodModel) []tax.TaxPeriod {
	periods := make([]tax.TaxPeriod, len(periodModels))
	for i, model := range periodModels {
		periods[i] = *model.ToDomain()
	}
	return periods
}

// Ensure GormTaxPeriodRepository implements TaxPeriodRepository
var _ tax.TaxPeriodRepository = (*GormTaxPeriodRepository)(nil)
