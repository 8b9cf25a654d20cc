package ledger

import (
	"context"

	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/tax"
)

// PostingScope provides transactional access to the repositories a posting
// touches. Everything inside Execute runs in one database transaction: the
// entry state change, every ledger bucket upsert, and any tax liability
// created alongside, committed or rolled back as a unit.
//
// Posting transactions must stay short: no network calls, no blocking waits.
// Event publication and cache invalidation happen after commit.
type PostingScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos PostingRepositories) error) error
}

// PostingRepositories provides access to all accounting repositories within a
// transaction. All repositories returned share the same underlying database
// transaction.
//
// Aggregate boundary notes:
//   - EntryRepo owns JournalEntry with its lines; lines are persisted through
//     the aggregate root, never independently.
//   - LedgerRepo rows are the contended resource: FindBucketForUpdate takes a
//     row lock so concurrent postings into the same (account, period) bucket
//     serialize instead of losing updates.
//   - SequenceRepo increments are atomic within the creating transaction.
type PostingRepositories interface {
	// AccountRepo returns the account repository scoped to the current transaction
	AccountRepo() ledger.AccountRepository
	// EntryRepo returns the journal entry repository scoped to the current transaction
	EntryRepo() ledger.JournalEntryRepository
	// LedgerRepo returns the general ledger repository scoped to the current transaction
	LedgerRepo() ledger.GeneralLedgerRepository
	// PeriodRepo returns the accounting period repository scoped to the current transaction
	PeriodRepo() ledger.AccountingPeriodRepository
	// SequenceRepo returns the entry sequence repository scoped to the current transaction
	SequenceRepo() ledger.EntrySequenceRepository
	// TaxPeriodRepo returns the tax period repository scoped to the current transaction
	TaxPeriodRepo() tax.TaxPeriodRepository
	// TaxLiabilityRepo returns the tax liability repository scoped to the current transaction
	TaxLiabilityRepo() tax.TaxLiabilityRepository
}

// NoOpPostingScope is a posting scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpPostingScope struct {
	accountRepo      ledger.AccountRepository
	entryRepo        ledger.JournalEntryRepository
	ledgerRepo       ledger.GeneralLedgerRepository
	periodRepo       ledger.AccountingPeriodRepository
	sequenceRepo     ledger.EntrySequenceRepository
	taxPeriodRepo    tax.TaxPeriodRepository
	taxLiabilityRepo tax.TaxLiabilityRepository
}

// NewNoOpPostingScope creates a NoOpPostingScope with the given repositories.
func NewNoOpPostingScope(
	accountRepo ledger.AccountRepository,
	entryRepo ledger.JournalEntryRepository,
	ledgerRepo ledger.GeneralLedgerRepository,
	periodRepo ledger.AccountingPeriodRepository,
	sequenceRepo ledger.EntrySequenceRepository,
	taxPeriodRepo tax.TaxPeriodRepository,
	taxLiabilityRepo tax.TaxLiabilityRepository,
) *NoOpPostingScope {
	return &NoOpPostingScope{
		accountRepo:      accountRepo,
		entryRepo:        entryRepo,
		ledgerRepo:       ledgerRepo,
		periodRepo:       periodRepo,
		sequenceRepo:     sequenceRepo,
		taxPeriodRepo:    taxPeriodRepo,
		taxLiabilityRepo: taxLiabilityRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpPostingScope) Execute(_ context.Context, fn func(repos PostingRepositories) error) error {
	return fn(s)
}

// AccountRepo returns the account repository.
func (s *NoOpPostingScope) AccountRepo() ledger.AccountRepository {
	return s.accountRepo
}

// EntryRepo returns the journal entry repository.
func (s *NoOpPostingScope) EntryRepo() ledger.JournalEntryRepository {
	return s.entryRepo
}

// LedgerRepo returns the general ledger repository.
func (s *NoOpPostingScope) LedgerRepo() ledger.GeneralLedgerRepository {
	return s.ledgerRepo
}

// PeriodRepo returns the accounting period repository.
func (s *NoOpPostingScope) PeriodRepo() ledger.AccountingPeriodRepository {
	return s.periodRepo
}

// SequenceRepo returns the entry sequence repository.
func (s *NoOpPostingScope) SequenceRepo() ledger.EntrySequenceRepository {
	return s.sequenceRepo
}

// TaxPeriodRepo returns the tax period repository.
func (s *NoOpPostingScope) TaxPeriodRepo() tax.TaxPeriodRepository {
	return s.taxPeriodRepo
}

// TaxLiabilityRepo returns the tax liability repository.
func (s *NoOpPostingScope) TaxLiabilityRepo() tax.TaxLiabilityRepository {
	return s.taxLiabilityRepo
}

// Ensure NoOpPostingScope implements both interfaces
var _ PostingScope = (*NoOpPostingScope)(nil)
var _ PostingRepositories = (*NoOpPostingScope)(nil)
