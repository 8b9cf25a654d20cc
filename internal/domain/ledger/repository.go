package ledger

import (
	"context"
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountFilter defines filtering options for chart-of-accounts queries
type AccountFilter struct {
	shared.Filter
	Type       *AccountType // Filter by account type
	ParentID   *uuid.UUID   // Filter by parent account
	IsActive   *bool        // Filter by active flag
	CodePrefix string       // Filter by code prefix (e.g. "11" for current assets)
}

// AccountRepository defines the interface for chart-of-accounts persistence
type AccountRepository interface {
	// FindByID finds an account by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// FindByIDForTenant finds an account by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Account, error)

	// FindByCode finds an account by code for a tenant
	FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*Account, error)

	// FindByIDs finds multiple accounts by ID for a tenant
	FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]Account, error)

	// FindAllForTenant finds all accounts for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter AccountFilter) ([]Account, error)

	// FindChildren finds the direct children of an account
	FindChildren(ctx context.Context, tenantID, parentID uuid.UUID) ([]Account, error)

	// FindByType finds accounts of the given type for a tenant
	FindByType(ctx context.Context, tenantID uuid.UUID, accountType AccountType) ([]Account, error)

	// Save creates or updates an account
	Save(ctx context.Context, account *Account) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, account *Account) error

	// DeleteForTenant soft deletes an account for a tenant
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error

	// CountForTenant counts accounts for a tenant with optional filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter AccountFilter) (int64, error)

	// ExistsByCode checks if an account code exists for a tenant
	ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error)

	// HasChildren checks if an account has child accounts
	HasChildren(ctx context.Context, tenantID, id uuid.UUID) (bool, error)
}

// JournalEntryFilter defines filtering options for journal entry queries
type JournalEntryFilter struct {
	shared.Filter
	Status     *EntryStatus // Filter by lifecycle status
	EntryType  *EntryType   // Filter by entry type
	AccountID  *uuid.UUID   // Filter by entries touching an account
	FiscalYear *int         // Filter by fiscal year
	FromDate   *time.Time   // Filter by entry date range start
	ToDate     *time.Time   // Filter by entry date range end
	Reference  string       // Filter by external reference
}

// JournalEntryRepository defines the interface for journal entry persistence
type JournalEntryRepository interface {
	// FindByID finds a journal entry by ID
	FindByID(ctx context.Context, id uuid.UUID) (*JournalEntry, error)

	// FindByIDForTenant finds a journal entry by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*JournalEntry, error)

	// FindByEntryNumber finds a journal entry by entry number for a tenant
	FindByEntryNumber(ctx context.Context, tenantID uuid.UUID, entryNumber string) (*JournalEntry, error)

	// FindAllForTenant finds all journal entries for a tenant with filtering
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter JournalEntryFilter) ([]JournalEntry, error)

	// FindByAccount finds entries with at least one line against the account
	FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter JournalEntryFilter) ([]JournalEntry, error)

	// FindPostedInRange finds posted or reversed entries dated within [from, to]
	FindPostedInRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]JournalEntry, error)

	// Save creates or updates a journal entry with its lines
	Save(ctx context.Context, entry *JournalEntry) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, entry *JournalEntry) error

	// DeleteForTenant hard deletes a draft entry and its lines for a tenant
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error

	// CountForTenant counts journal entries for a tenant with optional filters
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter JournalEntryFilter) (int64, error)

	// CountByStatus counts journal entries by status for a tenant
	CountByStatus(ctx context.Context, tenantID uuid.UUID, status EntryStatus) (int64, error)

	// ExistsByEntryNumber checks if an entry number exists for a tenant
	ExistsByEntryNumber(ctx context.Context, tenantID uuid.UUID, entryNumber string) (bool, error)

	// SumLinesByAccount totals posted line amounts against an account for
	// entries dated within [from, to]. Feeds the live half of balance reads.
	SumLinesByAccount(ctx context.Context, tenantID, accountID uuid.UUID, from, to time.Time) (debits, credits decimal.Decimal, err error)

	// CountDraftsReferencingAccount counts draft entries with a line against
	// the account. Guards account deactivation.
	CountDraftsReferencingAccount(ctx context.Context, tenantID, accountID uuid.UUID) (int64, error)
}

// GeneralLedgerRepository defines the interface for ledger bucket persistence
type GeneralLedgerRepository interface {
	// FindBucket finds the bucket for an account within a period
	FindBucket(ctx context.Context, tenantID, accountID, periodID uuid.UUID) (*GeneralLedgerEntry, error)

	// FindBucketForUpdate finds the bucket with a row lock, for use inside a
	// posting transaction. Returns shared.ErrNotFound when absent.
	FindBucketForUpdate(ctx context.Context, tenantID, accountID, periodID uuid.UUID) (*GeneralLedgerEntry, error)

	// FindByPeriod finds all buckets within a period for a tenant
	FindByPeriod(ctx context.Context, tenantID, periodID uuid.UUID) ([]GeneralLedgerEntry, error)

	// FindByAccount finds an account's buckets across periods, oldest first
	FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]GeneralLedgerEntry, error)

	// Save creates or updates a bucket
	Save(ctx context.Context, bucket *GeneralLedgerEntry) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, bucket *GeneralLedgerEntry) error

	// SaveAll persists a batch of buckets touched by one posting
	SaveAll(ctx context.Context, buckets []*GeneralLedgerEntry) error
}

// AccountingPeriodRepository defines the interface for period persistence
type AccountingPeriodRepository interface {
	// FindByID finds a period by ID
	FindByID(ctx context.Context, id uuid.UUID) (*AccountingPeriod, error)

	// FindByIDForTenant finds a period by ID for a specific tenant
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*AccountingPeriod, error)

	// FindByDate finds the period covering the given date for a tenant
	FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (*AccountingPeriod, error)

	// FindByFiscalYear finds a fiscal year's periods in sequence order
	FindByFiscalYear(ctx context.Context, tenantID uuid.UUID, fiscalYear int) ([]AccountingPeriod, error)

	// FindAllForTenant finds all periods for a tenant, oldest first
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]AccountingPeriod, error)

	// FindPrevious finds the period immediately before the given one, or
	// shared.ErrNotFound for the first period.
	FindPrevious(ctx context.Context, tenantID uuid.UUID, period *AccountingPeriod) (*AccountingPeriod, error)

	// Save creates or updates a period
	Save(ctx context.Context, period *AccountingPeriod) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, period *AccountingPeriod) error

	// ExistsOverlapping checks if any period overlaps [startDate, endDate]
	ExistsOverlapping(ctx context.Context, tenantID uuid.UUID, startDate, endDate time.Time) (bool, error)
}

// EntrySequenceRepository allocates gapless-per-transaction entry numbers.
// NextSequence must be called inside the creating transaction; the row is
// incremented atomically so concurrent creators never see the same value.
type EntrySequenceRepository interface {
	// NextSequence returns the next sequence number for a tenant's fiscal year
	NextSequence(ctx context.Context, tenantID uuid.UUID, fiscalYear int) (int64, error)
}
