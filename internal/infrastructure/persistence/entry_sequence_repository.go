package persistence

import (
	"context"

	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormEntrySequenceRepository implements EntrySequenceRepository using GORM.
// The counter row is upserted and incremented in a single statement so two
// creators in concurrent transactions can never read the same value; the
// second caller blocks on the row until the first commits.
type GormEntrySequenceRepository struct {
	db *gorm.DB
}

// NewGormEntrySequenceRepository creates a new GormEntrySequenceRepository
func NewGormEntrySequenceRepository(db *gorm.DB) *GormEntrySequenceRepository {
	return &GormEntrySequenceRepository{db: db}
}

// NextSequence returns the next sequence number for a tenant's fiscal year
func (r *GormEntrySequenceRepository) NextSequence(ctx context.Context, tenantID uuid.UUID, fiscalYear int) (int64, error) {
	var next int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO entry_sequences (tenant_id, fiscal_year, next_value, updated_at)
		VALUES (?, ?, 1, NOW())
		ON CONFLICT (tenant_id, fiscal_year)
		DO UPDATE SET next_value = entry_sequences.next_value + 1, updated_at = NOW()
		RETURNING next_value`,
		tenantID, fiscalYear).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

// Ensure GormEntrySequenceRepository implements EntrySequenceRepository
var _ ledger.EntrySequenceRepository = (*GormEntrySequenceRepository)(nil)
