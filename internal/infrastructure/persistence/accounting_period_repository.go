package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAccountingPeriodRepository implements AccountingPeriodRepository using GORM
type GormAccountingPeriodRepository struct {
	db *gorm.DB
}

// NewGormAccountingPeriodRepository creates a new GormAccountingPeriodRepository
func NewGormAccountingPeriodRepository(db *gorm.DB) *GormAccountingPeriodRepository {
	return &GormAccountingPeriodRepository{db: db}
}

// FindByID finds a period by its ID
func (r *GormAccountingPeriodRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.AccountingPeriod, error) {
	var model models.AccountingPeriodModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds a period by ID for a specific tenant
func (r *GormAccountingPeriodRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.AccountingPeriod, error) {
	var model models.AccountingPeriodModel
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

// FindByDate finds the period covering the given date for a tenant
func (r *GormAccountingPeriodRepository) FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (*ledger.AccountingPeriod, error) {
	var model models.AccountingPeriodModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND start_date <= ? AND end_date >= ?", tenantID, date, date).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByFiscalYear finds a fiscal year's periods in sequence order
func (r *GormAccountingPeriodRepository) FindByFiscalYear(ctx context.Context, tenantID uuid.UUID, fiscalYear int) ([]ledger.AccountingPeriod, error) {
	var periodModels []models.AccountingPeriodModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND fiscal_year = ?", tenantID, fiscalYear).
		Order("sequence ASC").
		Find(&periodModels).Error; err != nil {
		return nil, err
	}
	return toPeriodSlice(periodModels), nil
}

// FindAllForTenant finds all periods for a tenant, oldest first
func (r *GormAccountingPeriodRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]ledger.AccountingPeriod, error) {
	var periodModels []models.AccountingPeriodModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("start_date ASC").
		Find(&periodModels).Error; err != nil {
		return nil, err
	}
	return toPeriodSlice(periodModels), nil
}

// FindPrevious finds the period immediately before the given one
func (r *GormAccountingPeriodRepository) FindPrevious(ctx context.Context, tenantID uuid.UUID, period *ledger.AccountingPeriod) (*ledger.AccountingPeriod, error) {
	var model models.AccountingPeriodModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND end_date < ?", tenantID, period.StartDate).
		Order("end_date DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a period
func (r *GormAccountingPeriodRepository) Save(ctx context.Context, period *ledger.AccountingPeriod) error {
	model := models.AccountingPeriodModelFromDomain(period)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking
func (r *GormAccountingPeriodRepository) SaveWithLock(ctx context.Context, period *ledger.AccountingPeriod) error {
	model := models.AccountingPeriodModelFromDomain(period)
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

// ExistsOverlapping checks if any period overlaps [startDate, endDate]
func (r *GormAccountingPeriodRepository) ExistsOverlapping(ctx context.Context, tenantID uuid.UUID, startDate, endDate time.Time) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.AccountingPeriodModel{}).
		Where("tenant_id = ? AND start_date <= ? AND end_date >= ?", tenantID, endDate, startDate).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func toPeriodSlice(periodModels []models.AccountingPeriodModel) []ledger.AccountingPeriod {
	periods := make([]ledger.AccountingPeriod, len(periodModels))
	for i, model := range periodModels {
		periods[i] = *model.ToDomain()
	}
	return periods
}

// Ensure GormAccountingPeriodRepository implements AccountingPeriodRepository
var _ ledger.AccountingPeriodRepository = (*GormAccountingPeriodRepository)(nil)
