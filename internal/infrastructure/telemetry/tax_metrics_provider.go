// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTaxMetricsProvider implements TaxMetricsProvider using GORM.
// It queries the tax tables directly for aggregated metrics.
type GormTaxMetricsProvider struct {
	db *gorm.DB
}

// NewGormTaxMetricsProvider creates a new GormTaxMetricsProvider.
func NewGormTaxMetricsProvider(db *gorm.DB) *GormTaxMetricsProvider {
	return &GormTaxMetricsProvider{db: db}
}

// GetPendingLiabilityCount returns the number of liabilities accrued without a
// tax configuration for a tenant. These carry zero amounts until recomputed.
func (p *GormTaxMetricsProvider) GetPendingLiabilityCount(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("tax_liabilities").
		Where("tenant_id = ? AND pending = ?", tenantID, true).
		Count(&count).Error

	if err != nil {
		return 0, err
	}

	return count, nil
}

// GetOverdueTaxPeriodCount returns the number of unfiled tax periods past their
// due date for a tenant. Filed and paid periods are never overdue.
func (p *GormTaxMetricsProvider) GetOverdueTaxPeriodCount(ctx context.Context, tenantID uuid.UUID, now time.Time) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("tax_periods").
		Where("tenant_id = ? AND due_date < ? AND status IN ?", tenantID, now, []string{"OPEN", "CALCULATED"}).
		Count(&count).Error

	if err != nil {
		return 0, err
	}

	return count, nil
}

// Ensure GormTaxMetricsProvider implements TaxMetricsProvider
var _ TaxMetricsProvider = (*GormTaxMetricsProvider)(nil)
