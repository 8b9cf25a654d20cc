package persistence

import (
	"context"
	"errors"

	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormGeneralLedgerRepository implements GeneralLedgerRepository using GORM.
// Bucket rows are the contended resource of the posting path; writers take
// FOR UPDATE locks so concurrent postings into the same bucket serialize.
type GormGeneralLedgerRepository struct {
	db *gorm.DB
}

// NewGormGeneralLedgerRepository creates a new GormGeneralLedgerRepository
func NewGormGeneralLedgerRepository(db *gorm.DB) *GormGeneralLedgerRepository {
	return &GormGeneralLedgerRepository{db: db}
}

// FindBucket finds the bucket for an account within a period
func (r *GormGeneralLedgerRepository) FindBucket(ctx context.Context, tenantID, accountID, periodID uuid.UUID) (*ledger.GeneralLedgerEntry, error) {
	var model models.GeneralLedgerModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND account_id = ? AND period_id = ?", tenantID, accountID, periodID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBucketForUpdate finds the bucket with a row lock for the posting transaction
func (r *GormGeneralLedgerRepository) FindBucketForUpdate(ctx context.Context, tenantID, accountID, periodID uuid.UUID) (*ledger.GeneralLedgerEntry, error) {
	var model models.GeneralLedgerModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND account_id = ? AND period_id = ?", tenantID, accountID, periodID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByPeriod finds all buckets within a period for a tenant
func (r *GormGeneralLedgerRepository) FindByPeriod(ctx context.Context, tenantID, periodID uuid.UUID) ([]ledger.GeneralLedgerEntry, error) {
	var bucketModels []models.GeneralLedgerModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND period_id = ?", tenantID, periodID).
		Find(&bucketModels).Error; err != nil {
		return nil, err
	}
	return toBucketSlice(bucketModels), nil
}

// FindByAccount finds an account's buckets across periods, oldest first
func (r *GormGeneralLedgerRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]ledger.GeneralLedgerEntry, error) {
	var bucketModels []models.GeneralLedgerModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID).
		Order("created_at ASC").
		Find(&bucketModels).Error; err != nil {
		return nil, err
	}
	return toBucketSlice(bucketModels), nil
}

// Save creates or updates a bucket
func (r *GormGeneralLedgerRepository) Save(ctx context.Context, bucket *ledger.GeneralLedgerEntry) error {
	model := models.GeneralLedgerModelFromDomain(bucket)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves with optimistic locking
func (r *GormGeneralLedgerRepository) SaveWithLock(ctx context.Context, bucket *ledger.GeneralLedgerEntry) error {
	model := models.GeneralLedgerModelFromDomain(bucket)
	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ? AND version = ?", bucket.ID, bucket.Version-1).
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

// SaveAll persists a batch of buckets touched by one posting. The caller runs
// this inside the posting transaction; freshly created buckets insert, locked
// existing ones update.
func (r *GormGeneralLedgerRepository) SaveAll(ctx context.Context, buckets []*ledger.GeneralLedgerEntry) error {
	for _, bucket := range buckets {
		model := models.GeneralLedgerModelFromDomain(bucket)
		if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
			return err
		}
	}
	return nil
}

func toBucketSlice(bucketModels []models.GeneralLedgerModel) []ledger.GeneralLedgerEntry {
	buckets := make([]ledger.GeneralLedgerEntry, len(bucketModels))
	for i, model := range bucketModels {
		buckets[i] = *model.ToDomain()
	}
	return buckets
}

// Ensure GormGeneralLedgerRepository implements GeneralLedgerRepository
var _ ledger.GeneralLedgerRepository = (*GormGeneralLedgerRepository)(nil)
