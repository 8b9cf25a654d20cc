package telemetry

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTenantProvider implements TenantProvider by listing the tenants that
// currently own at least one active account. Tenants without active accounts
// have no ledger activity worth collecting.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider.
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetActiveTenantIDs returns the distinct tenant IDs with active accounts.
func (p *GormTenantProvider) GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var tenantIDs []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("accounts").
		Where("is_active = ?", true).
		Distinct("tenant_id").
		Pluck("tenant_id", &tenantIDs).Error

	if err != nil {
		return nil, err
	}

	return tenantIDs, nil
}

// Ensure GormTenantProvider implements TenantProvider
var _ TenantProvider = (*GormTenantProvider)(nil)
