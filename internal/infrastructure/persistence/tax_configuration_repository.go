package persistence

import (
	"context"
	"errors"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/tax"
	"github.com/finbooks/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTaxConfigurationRepository implements TaxConfigurationRepository using GORM
type GormTaxConfigurationRepository struct {
	db *gorm.DB
}

// NewGormTaxConfigurationRepository creates a new GormTaxConfigurationRepository
func NewGormTaxConfigurationRepository(db *gorm.DB) *GormTaxConfigurationRepository {
	return &GormTaxConfigurationRepository{db: db}
}

// FindByTenant finds the tenant's tax configuration
func (r *GormTaxConfigurationRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*tax.TaxConfiguration, error) {
	var model models.TaxConfigurationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates the configuration
func (r *GormTaxConfigurationRepository) Save(ctx context.Context, config *tax.TaxConfiguration) error {
	model := models.TaxConfigurationModelFromDomain(config)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking
func (r *GormTaxConfigurationRepository) SaveWithLock(ctx context.Context, config *tax.TaxConfiguration) error {
	model := models.TaxConfigurationModelFromDomain(config)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", config.ID, config.Version-1).
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

// Ensure GormTaxConfigurationRepository implements TaxConfigurationRepository
var _ tax.TaxConfigurationRepository = (*GormTaxConfigurationRepository)(nil)
