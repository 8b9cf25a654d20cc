package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mock Event Publisher
// =============================================================================

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{events: make([]shared.DomainEvent, 0)}
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// =============================================================================
// Mock Balance Cache
// =============================================================================

// MockBalanceCache is a mock implementation of BalanceCache
type MockBalanceCache struct {
	mock.Mock
}

func (m *MockBalanceCache) GetClosedBalance(ctx context.Context, tenantID, accountID, periodID uuid.UUID) (decimal.Decimal, bool, error) {
	args := m.Called(ctx, tenantID, accountID, periodID)
	return args.Get(0).(decimal.Decimal), args.Bool(1), args.Error(2)
}

func (m *MockBalanceCache) SetClosedBalance(ctx context.Context, tenantID, accountID, periodID uuid.UUID, balance decimal.Decimal) error {
	args := m.Called(ctx, tenantID, accountID, periodID, balance)
	return args.Error(0)
}

func (m *MockBalanceCache) InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

// =============================================================================
// Mock Account Repository
// =============================================================================

// MockAccountRepository is a mock implementation of ledger.AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Account, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*ledger.Account, error) {
	args := m.Called(ctx, tenantID, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]ledger.Account, error) {
	args := m.Called(ctx, tenantID, ids)
	return args.Get(0).([]ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.AccountFilter) ([]ledger.Account, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindChildren(ctx context.Context, tenantID, parentID uuid.UUID) ([]ledger.Account, error) {
	args := m.Called(ctx, tenantID, parentID)
	return args.Get(0).([]ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByType(ctx context.Context, tenantID uuid.UUID, accountType ledger.AccountType) ([]ledger.Account, error) {
	args := m.Called(ctx, tenantID, accountType)
	return args.Get(0).([]ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) SaveWithLock(ctx context.Context, account *ledger.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockAccountRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.AccountFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) ExistsByCode(ctx context.Context, tenantID uuid.UUID, code string) (bool, error) {
	args := m.Called(ctx, tenantID, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) HasChildren(ctx context.Context, tenantID, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, id)
	return args.Bool(0), args.Error(1)
}

// =============================================================================
// Mock Journal Entry Repository
// =============================================================================

// MockJournalEntryRepository is a mock implementation of ledger.JournalEntryRepository
type MockJournalEntryRepository struct {
	mock.Mock
}

func (m *MockJournalEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.JournalEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.JournalEntry, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) FindByEntryNumber(ctx context.Context, tenantID uuid.UUID, entryNumber string) (*ledger.JournalEntry, error) {
	args := m.Called(ctx, tenantID, entryNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.JournalEntryFilter) ([]ledger.JournalEntry, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]ledger.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID, filter ledger.JournalEntryFilter) ([]ledger.JournalEntry, error) {
	args := m.Called(ctx, tenantID, accountID, filter)
	return args.Get(0).([]ledger.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) FindPostedInRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]ledger.JournalEntry, error) {
	args := m.Called(ctx, tenantID, from, to)
	return args.Get(0).([]ledger.JournalEntry), args.Error(1)
}

func (m *MockJournalEntryRepository) Save(ctx context.Context, entry *ledger.JournalEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockJournalEntryRepository) SaveWithLock(ctx context.Context, entry *ledger.JournalEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockJournalEntryRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockJournalEntryRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.JournalEntryFilter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockJournalEntryRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID, status ledger.EntryStatus) (int64, error) {
	args := m.Called(ctx, tenantID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockJournalEntryRepository) ExistsByEntryNumber(ctx context.Context, tenantID uuid.UUID, entryNumber string) (bool, error) {
	args := m.Called(ctx, tenantID, entryNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockJournalEntryRepository) SumLinesByAccount(ctx context.Context, tenantID, accountID uuid.UUID, from, to time.Time) (decimal.Decimal, decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, accountID, from, to)
	return args.Get(0).(decimal.Decimal), args.Get(1).(decimal.Decimal), args.Error(2)
}

func (m *MockJournalEntryRepository) CountDraftsReferencingAccount(ctx context.Context, tenantID, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, accountID)
	return args.Get(0).(int64), args.Error(1)
}

// =============================================================================
// Mock General Ledger Repository
// =============================================================================

// MockGeneralLedgerRepository is a mock implementation of ledger.GeneralLedgerRepository
type MockGeneralLedgerRepository struct {
	mock.Mock
}

func (m *MockGeneralLedgerRepository) FindBucket(ctx context.Context, tenantID, accountID, periodID uuid.UUID) (*ledger.GeneralLedgerEntry, error) {
	args := m.Called(ctx, tenantID, accountID, periodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.GeneralLedgerEntry), args.Error(1)
}

func (m *MockGeneralLedgerRepository) FindBucketForUpdate(ctx context.Context, tenantID, accountID, periodID uuid.UUID) (*ledger.GeneralLedgerEntry, error) {
	args := m.Called(ctx, tenantID, accountID, periodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.GeneralLedgerEntry), args.Error(1)
}

func (m *MockGeneralLedgerRepository) FindByPeriod(ctx context.Context, tenantID, periodID uuid.UUID) ([]ledger.GeneralLedgerEntry, error) {
	args := m.Called(ctx, tenantID, periodID)
	return args.Get(0).([]ledger.GeneralLedgerEntry), args.Error(1)
}

func (m *MockGeneralLedgerRepository) FindByAccount(ctx context.Context, tenantID, accountID uuid.UUID) ([]ledger.GeneralLedgerEntry, error) {
	args := m.Called(ctx, tenantID, accountID)
	return args.Get(0).([]ledger.GeneralLedgerEntry), args.Error(1)
}

func (m *MockGeneralLedgerRepository) Save(ctx context.Context, bucket *ledger.GeneralLedgerEntry) error {
	args := m.Called(ctx, bucket)
	return args.Error(0)
}

func (m *MockGeneralLedgerRepository) SaveWithLock(ctx context.Context, bucket *ledger.GeneralLedgerEntry) error {
	args := m.Called(ctx, bucket)
	return args.Error(0)
}

func (m *MockGeneralLedgerRepository) SaveAll(ctx context.Context, buckets []*ledger.GeneralLedgerEntry) error {
	args := m.Called(ctx, buckets)
	return args.Error(0)
}

// =============================================================================
// Mock Accounting Period Repository
// =============================================================================

// MockAccountingPeriodRepository is a mock implementation of ledger.AccountingPeriodRepository
type MockAccountingPeriodRepository struct {
	mock.Mock
}

func (m *MockAccountingPeriodRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.AccountingPeriod, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.AccountingPeriod), args.Error(1)
}

func (m *MockAccountingPeriodRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.AccountingPeriod, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.AccountingPeriod), args.Error(1)
}

func (m *MockAccountingPeriodRepository) FindByDate(ctx context.Context, tenantID uuid.UUID, date time.Time) (*ledger.AccountingPeriod, error) {
	args := m.Called(ctx, tenantID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.AccountingPeriod), args.Error(1)
}

func (m *MockAccountingPeriodRepository) FindByFiscalYear(ctx context.Context, tenantID uuid.UUID, fiscalYear int) ([]ledger.AccountingPeriod, error) {
	args := m.Called(ctx, tenantID, fiscalYear)
	return args.Get(0).([]ledger.AccountingPeriod), args.Error(1)
}

func (m *MockAccountingPeriodRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]ledger.AccountingPeriod, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]ledger.AccountingPeriod), args.Error(1)
}

func (m *MockAccountingPeriodRepository) FindPrevious(ctx context.Context, tenantID uuid.UUID, period *ledger.AccountingPeriod) (*ledger.AccountingPeriod, error) {
	args := m.Called(ctx, tenantID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.AccountingPeriod), args.Error(1)
}

func (m *MockAccountingPeriodRepository) Save(ctx context.Context, period *ledger.AccountingPeriod) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

func (m *MockAccountingPeriodRepository) SaveWithLock(ctx context.Context, period *ledger.AccountingPeriod) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

func (m *MockAccountingPeriodRepository) ExistsOverlapping(ctx context.Context, tenantID uuid.UUID, startDate, endDate time.Time) (bool, error) {
	args := m.Called(ctx, tenantID, startDate, endDate)
	return args.Bool(0), args.Error(1)
}

// =============================================================================
// Mock Entry Sequence Repository
// =============================================================================

// MockEntrySequenceRepository is a mock implementation of ledger.EntrySequenceRepository
type MockEntrySequenceRepository struct {
	mock.Mock
}

func (m *MockEntrySequenceRepository) NextSequence(ctx context.Context, tenantID uuid.UUID, fiscalYear int) (int64, error) {
	args := m.Called(ctx, tenantID, fiscalYear)
	return args.Get(0).(int64), args.Error(1)
}

// =============================================================================
// Mock Tax Repositories
// =============================================================================

// MockTaxPeriodRepository is a mock implementation of tax.TaxPeriodRepository
type MockTaxPeriodRepository struct {
	mock.Mock
}

func (m *MockTaxPeriodRepository) FindByID(ctx context.Context, id uuid.UUID) (*tax.TaxPeriod, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tax.TaxPeriod), args.Error(1)
}

func (m *MockTaxPeriodRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*tax.TaxPeriod, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tax.TaxPeriod), args.Error(1)
}

func (m *MockTaxPeriodRepository) FindByStart(ctx context.Context, tenantID uuid.UUID, taxType tax.TaxType, periodStart time.Time) (*tax.TaxPeriod, error) {
	args := m.Called(ctx, tenantID, taxType, periodStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tax.TaxPeriod), args.Error(1)
}

func (m *MockTaxPeriodRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter tax.TaxPeriodFilter) ([]tax.TaxPeriod, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]tax.TaxPeriod), args.Error(1)
}

func (m *MockTaxPeriodRepository) FindInRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]tax.TaxPeriod, error) {
	args := m.Called(ctx, tenantID, from, to)
	return args.Get(0).([]tax.TaxPeriod), args.Error(1)
}

func (m *MockTaxPeriodRepository) GetOrCreate(ctx context.Context, candidate *tax.TaxPeriod) (*tax.TaxPeriod, error) {
	args := m.Called(ctx, candidate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tax.TaxPeriod), args.Error(1)
}

func (m *MockTaxPeriodRepository) Save(ctx context.Context, period *tax.TaxPeriod) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

func (m *MockTaxPeriodRepository) SaveWithLock(ctx context.Context, period *tax.TaxPeriod) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

// MockTaxLiabilityRepository is a mock implementation of tax.TaxLiabilityRepository
type MockTaxLiabilityRepository struct {
	mock.Mock
}

func (m *MockTaxLiabilityRepository) FindByID(ctx context.Context, id uuid.UUID) (*tax.TaxLiability, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tax.TaxLiability), args.Error(1)
}

func (m *MockTaxLiabilityRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*tax.TaxLiability, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tax.TaxLiability), args.Error(1)
}

func (m *MockTaxLiabilityRepository) FindBySource(ctx context.Context, tenantID uuid.UUID, sourceKind tax.SourceKind, sourceID uuid.UUID) ([]tax.TaxLiability, error) {
	args := m.Called(ctx, tenantID, sourceKind, sourceID)
	return args.Get(0).([]tax.TaxLiability), args.Error(1)
}

func (m *MockTaxLiabilityRepository) FindByPeriod(ctx context.Context, tenantID, taxPeriodID uuid.UUID) ([]tax.TaxLiability, error) {
	args := m.Called(ctx, tenantID, taxPeriodID)
	return args.Get(0).([]tax.TaxLiability), args.Error(1)
}

func (m *MockTaxLiabilityRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter tax.TaxLiabilityFilter) ([]tax.TaxLiability, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).([]tax.TaxLiability), args.Error(1)
}

func (m *MockTaxLiabilityRepository) FindPending(ctx context.Context, tenantID uuid.UUID) ([]tax.TaxLiability, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]tax.TaxLiability), args.Error(1)
}

func (m *MockTaxLiabilityRepository) Save(ctx context.Context, liability *tax.TaxLiability) error {
	args := m.Called(ctx, liability)
	return args.Error(0)
}

func (m *MockTaxLiabilityRepository) SaveWithLock(ctx context.Context, liability *tax.TaxLiability) error {
	args := m.Called(ctx, liability)
	return args.Error(0)
}

func (m *MockTaxLiabilityRepository) SumByDirection(ctx context.Context, tenantID, taxPeriodID uuid.UUID, direction tax.Direction) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, taxPeriodID, direction)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockTaxLiabilityRepository) CountPending(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

// =============================================================================
// Test Fixtures
// =============================================================================

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// postingMocks bundles the repository mocks behind a NoOpPostingScope
type postingMocks struct {
	accounts     *MockAccountRepository
	entries      *MockJournalEntryRepository
	buckets      *MockGeneralLedgerRepository
	periods      *MockAccountingPeriodRepository
	sequences    *MockEntrySequenceRepository
	taxPeriods   *MockTaxPeriodRepository
	taxLiability *MockTaxLiabilityRepository
	scope        *NoOpPostingScope
}

func newPostingMocks() *postingMocks {
	m := &postingMocks{
		accounts:     new(MockAccountRepository),
		entries:      new(MockJournalEntryRepository),
		buckets:      new(MockGeneralLedgerRepository),
		periods:      new(MockAccountingPeriodRepository),
		sequences:    new(MockEntrySequenceRepository),
		taxPeriods:   new(MockTaxPeriodRepository),
		taxLiability: new(MockTaxLiabilityRepository),
	}
	m.scope = NewNoOpPostingScope(
		m.accounts, m.entries, m.buckets, m.periods, m.sequences,
		m.taxPeriods, m.taxLiability,
	)
	return m
}

func createTestAccount(t *testing.T, tenantID uuid.UUID, code string, accountType ledger.AccountType) *ledger.Account {
	t.Helper()
	account, err := ledger.NewAccount(tenantID, code, "Test "+code, accountType, nil)
	require.NoError(t, err)
	account.ClearDomainEvents()
	return account
}

func createTestPeriod(t *testing.T, tenantID uuid.UUID, year, sequence int, start, end time.Time) *ledger.AccountingPeriod {
	t.Helper()
	period, err := ledger.NewAccountingPeriod(tenantID, year, sequence, "Test Period", start, end)
	require.NoError(t, err)
	period.ClearDomainEvents()
	return period
}

func createTestDraftEntry(t *testing.T, tenantID uuid.UUID, date time.Time, lines ...ledger.JournalLine) *ledger.JournalEntry {
	t.Helper()
	entry, err := ledger.NewJournalEntry(
		tenantID, ledger.FormatEntryNumber(date.Year(), 1), ledger.EntryTypeManual,
		date, date.Year(), "test entry", "", lines,
	)
	require.NoError(t, err)
	entry.ClearDomainEvents()
	return entry
}
