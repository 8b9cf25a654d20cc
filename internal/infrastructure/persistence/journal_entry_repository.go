package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormJournalEntryRepository implements JournalEntryRepository using GORM.
// Journal lines are persisted through the entry aggregate and rewritten as a
// set on every save; they are never updated row by row.
type GormJournalEntryRepository struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver // optional, for transactional outbox pattern
}

// NewGormJournalEntryRepository creates a new GormJournalEntryRepository
func NewGormJournalEntryRepository(db *gorm.DB) *GormJournalEntryRepository {
	return &GormJournalEntryRepository{db: db}
}

// SetOutboxEventSaver sets the outbox event saver for transactional event publishing
func (r *GormJournalEntryRepository) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	r.outboxSaver = saver
}

// FindByID finds a journal entry by its ID
func (r *GormJournalEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.JournalEntry, error) {
	var model models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds a journal entry by ID for a specific tenant
func (r *GormJournalEntryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.JournalEntry, error) {
	var model models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByEntryNumber finds a journal entry by entry number for a tenant
func (r *GormJournalEntryRepository) FindByEntryNumber(ctx context.Context, tenantID uuid.UUID, entryNumber string) (*ledger.JournalEntry, error) {
	var model models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ? AND entry_number = ?", tenantID, entryNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds all journal entries for a tenant with filtering
func (r *GormJournalEntryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.JournalEntryFilter) ([]ledger.JournalEntry, error) {
	var entryModels []models.JournalEntryModel
	query := r.db.WithContext(ctx).Model(&models.JournalEntryModel{}).
		Preload("Lines").
		Where("tenant_id = ?", tenantID)
	query = r.applyEntryFilter(query, filter)

	if err := query.Find(&entryModels).Error; err != nil {
		return nil, err
	}
	return toEntrySlice(entryModels), nil
}

// FindByAccount finds entries with at least one line against the account
func (r *GormJournalEntryRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter ledger.JournalEntryFilter) ([]ledger.JournalEntry, error) {
	var entryModels []models.JournalEntryModel
	query := r.db.WithContext(ctx).Model(&models.JournalEntryModel{}).
		Preload("Lines").
		Where("tenant_id = ?", tenantID).
		Where("id IN (?)", r.db.Model(&models.JournalLineModel{}).
			Select("entry_id").Where("account_id = ?", accountID))
	query = r.applyEntryFilter(query, filter)

	if err := query.Find(&entryModels).Error; err != nil {
		return nil, err
	}
	return toEntrySlice(entryModels), nil
}

// FindPostedInRange finds posted or reversed entries dated within [from, to]
func (r *GormJournalEntryRepository) FindPostedInRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]ledger.JournalEntry, error) {
	var entryModels []models.JournalEntryModel
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("tenant_id = ? AND status IN ? AND entry_date >= ? AND entry_date <= ?",
			tenantID, []ledger.EntryStatus{ledger.EntryStatusPosted, ledger.EntryStatusReversed}, from, to).
		Order("entry_date ASC, entry_number ASC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}
	return toEntrySlice(entryModels), nil
}

// Save creates or updates a journal entry with its lines
func (r *GormJournalEntryRepository) Save(ctx context.Context, entry *ledger.JournalEntry) error {
	model := models.JournalEntryModelFromDomain(entry)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entry_id = ?", entry.ID).Delete(&models.JournalLineModel{}).Error; err != nil {
			return err
		}
		if err := tx.Save(model).Error; err != nil {
			return err
		}
		return r.saveEventsToOutbox(ctx, tx, entry)
	})
}

// SaveWithLock saves with optimistic locking. Lines are rewritten under the
// same version check so a concurrent editor can never interleave a partial
// line set.
func (r *GormJournalEntryRepository) SaveWithLock(ctx context.Context, entry *ledger.JournalEntry) error {
	model := models.JournalEntryModelFromDomain(entry)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.JournalEntryModel{}).
			Where("id = ? AND version = ?", entry.ID, entry.Version-1).
			Select("*").Omit("Lines", "created_at").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}
		if err := tx.Where("entry_id = ?", entry.ID).Delete(&models.JournalLineModel{}).Error; err != nil {
			return err
		}
		if len(model.Lines) > 0 {
			if err := tx.Create(&model.Lines).Error; err != nil {
				return err
			}
		}
		return r.saveEventsToOutbox(ctx, tx, entry)
	})
}

// saveEventsToOutbox writes the entry's pending domain events to the outbox
// table within the same transaction, ensuring guaranteed delivery even if the
// process dies before the in-process publish happens.
func (r *GormJournalEntryRepository) saveEventsToOutbox(ctx context.Context, tx *gorm.DB, entry *ledger.JournalEntry) error {
	events := entry.GetDomainEvents()
	if r.outboxSaver == nil || len(events) == 0 {
		return nil
	}
	if err := r.outboxSaver.SaveEvents(ctx, tx, events...); err != nil {
		return fmt.Errorf("failed to save events to outbox: %w", err)
	}
	return nil
}

// DeleteForTenant hard deletes a draft entry and its lines for a tenant
func (r *GormJournalEntryRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entry_id = ?", id).Delete(&models.JournalLineModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.JournalEntryModel{}, "tenant_id = ? AND id = ?", tenantID, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// CountForTenant counts journal entries for a tenant
func (r *GormJournalEntryRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.JournalEntryFilter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.JournalEntryModel{}).
		Where("tenant_id = ?", tenantID)
	query = r.applyEntryFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByStatus counts journal entries by status for a tenant
func (r *GormJournalEntryRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID, status ledger.EntryStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.JournalEntryModel{}).
		Where("tenant_id = ? AND status = ?", tenantID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByEntryNumber checks if an entry number exists for a tenant
func (r *GormJournalEntryRepository) ExistsByEntryNumber(ctx context.Context, tenantID uuid.UUID, entryNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.JournalEntryModel{}).
		Where("tenant_id = ? AND entry_number = ?", tenantID, entryNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SumLinesByAccount totals posted line amounts against an account within [from, to]
func (r *GormJournalEntryRepository) SumLinesByAccount(ctx context.Context, tenantID, accountID uuid.UUID, from, to time.Time) (decimal.Decimal, decimal.Decimal, error) {
	var result struct {
		Debits  decimal.Decimal
		Credits decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.JournalLineModel{}).
		Select("COALESCE(SUM(journal_lines.debit), 0) as debits, COALESCE(SUM(journal_lines.credit), 0) as credits").
		Joins("JOIN journal_entries ON journal_entries.id = journal_lines.entry_id").
		Where("journal_entries.tenant_id = ? AND journal_lines.account_id = ?", tenantID, accountID).
		Where("journal_entries.status IN ?", []ledger.EntryStatus{ledger.EntryStatusPosted, ledger.EntryStatusReversed}).
		Where("journal_entries.entry_date >= ? AND journal_entries.entry_date <= ?", from, to).
		Scan(&result).Error; err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return result.Debits, result.Credits, nil
}

// CountDraftsReferencingAccount counts draft entries with a line against the account
func (r *GormJournalEntryRepository) CountDraftsReferencingAccount(ctx context.Context, tenantID, accountID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.JournalEntryModel{}).
		Where("tenant_id = ? AND status = ?", tenantID, ledger.EntryStatusDraft).
		Where("id IN (?)", r.db.Model(&models.JournalLineModel{}).
			Select("entry_id").Where("account_id = ?", accountID)).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyEntryFilter applies filter options to the query
func (r *GormJournalEntryRepository) applyEntryFilter(query *gorm.DB, filter ledger.JournalEntryFilter) *gorm.DB {
	query = r.applyEntryFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		sortField := ValidateSortField(filter.OrderBy, JournalEntrySortFields, "entry_date")
		query = query.Order(sortField + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("entry_date DESC, entry_number DESC")
	}

	return query
}

// applyEntryFilterWithoutPagination applies filter options without pagination
func (r *GormJournalEntryRepository) applyEntryFilterWithoutPagination(query *gorm.DB, filter ledger.JournalEntryFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("entry_number ILIKE ? OR description ILIKE ? OR reference ILIKE ?",
			searchPattern, searchPattern, searchPattern)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.EntryType != nil {
		query = query.Where("entry_type = ?", *filter.EntryType)
	}
	if filter.AccountID != nil {
		query = query.Where("id IN (?)", r.db.Model(&models.JournalLineModel{}).
			Select("entry_id").Where("account_id = ?", *filter.AccountID))
	}
	if filter.FiscalYear != nil {
		query = query.Where("fiscal_year = ?", *filter.FiscalYear)
	}
	if filter.FromDate != nil {
		query = query.Where("entry_date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("entry_date <= ?", *filter.ToDate)
	}
	if filter.Reference != "" {
		query = query.Where("reference = ?", filter.Reference)
	}
	return query
}

func toEntrySlice(entryModels []models.JournalEntryModel) []ledger.JournalEntry {
	entries := make([]ledger.JournalEntry, len(entryModels))
	for i, model := range entryModels {
		entries[i] = *model.ToDomain()
	}
	return entries
}

// Ensure GormJournalEntryRepository implements JournalEntryRepository
var _ ledger.JournalEntryRepository = (*GormJournalEntryRepository)(nil)
