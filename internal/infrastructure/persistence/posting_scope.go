package persistence

import (
	"context"

	appledger "github.com/finbooks/backend/internal/application/ledger"
	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/tax"
	"gorm.io/gorm"
)

// GormPostingScope implements PostingScope using GORM transactions.
// Every posting runs inside one database transaction: the entry state change,
// the ledger bucket upserts and any tax liability accrued alongside commit or
// roll back as a unit.
type GormPostingScope struct {
	db          *gorm.DB
	outboxSaver shared.OutboxEventSaver
}

// NewGormPostingScope creates a new GormPostingScope.
func NewGormPostingScope(db *gorm.DB) *GormPostingScope {
	return &GormPostingScope{db: db}
}

// SetOutboxEventSaver sets the outbox event saver handed to the entry
// repository of every transaction, so posting events are persisted to the
// outbox table atomically with the entry state change.
func (s *GormPostingScope) SetOutboxEventSaver(saver shared.OutboxEventSaver) {
	s.outboxSaver = saver
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormPostingScope) Execute(ctx context.Context, fn func(repos appledger.PostingRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormPostingRepositories{tx: tx, outboxSaver: s.outboxSaver}
		return fn(repos)
	})
}

// gormPostingRepositories provides access to all accounting repositories
// within a transaction.
type gormPostingRepositories struct {
	tx          *gorm.DB
	outboxSaver shared.OutboxEventSaver
}

// AccountRepo returns the account repository scoped to the current transaction.
func (r *gormPostingRepositories) AccountRepo() ledger.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

// EntryRepo returns the journal entry repository scoped to the current transaction.
func (r *gormPostingRepositories) EntryRepo() ledger.JournalEntryRepository {
	repo := NewGormJournalEntryRepository(r.tx)
	if r.outboxSaver != nil {
		repo.SetOutboxEventSaver(r.outboxSaver)
	}
	return repo
}

// LedgerRepo returns the general ledger repository scoped to the current transaction.
func (r *gormPostingRepositories) LedgerRepo() ledger.GeneralLedgerRepository {
	return NewGormGeneralLedgerRepository(r.tx)
}

// PeriodRepo returns the accounting period repository scoped to the current transaction.
func (r *gormPostingRepositories) PeriodRepo() ledger.AccountingPeriodRepository {
	return NewGormAccountingPeriodRepository(r.tx)
}

// SequenceRepo returns the entry sequence repository scoped to the current transaction.
func (r *gormPostingRepositories) SequenceRepo() ledger.EntrySequenceRepository {
	return NewGormEntrySequenceRepository(r.tx)
}

// TaxPeriodRepo returns the tax period repository scoped to the current transaction.
func (r *gormPostingRepositories) TaxPeriodRepo() tax.TaxPeriodRepository {
	return NewGormTaxPeriodRepository(r.tx)
}

// TaxLiabilityRepo returns the tax liability repository scoped to the current transaction.
func (r *gormPostingRepositories) TaxLiabilityRepo() tax.TaxLiabilityRepository {
	return NewGormTaxLiabilityRepository(r.tx)
}

// Ensure GormPostingScope implements PostingScope
var _ appledger.PostingScope = (*GormPostingScope)(nil)

// Ensure gormPostingRepositories implements PostingRepositories
var _ appledger.PostingRepositories = (*gormPostingRepositories)(nil)
