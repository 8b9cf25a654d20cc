package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestAccountService(accounts *MockAccountRepository, entries *MockJournalEntryRepository, buckets *MockGeneralLedgerRepository, periods *MockAccountingPeriodRepository, cache BalanceCache) *AccountService {
	return NewAccountService(accounts, entries, buckets, periods, cache)
}

// =============================================================================
// Create Account Tests
// =============================================================================

func TestAccountService_CreateAccount(t *testing.T) {
	tenantID := uuid.New()
	accounts := new(MockAccountRepository)
	service := newTestAccountService(accounts, nil, nil, nil, nil)

	accounts.On("ExistsByCode", mock.Anything, tenantID, "1000").Return(false, nil)
	accounts.On("Save", mock.Anything, mock.Anything).Return(nil)

	result, err := service.CreateAccount(context.Background(), tenantID, CreateAccountRequest{
		Code: "1000",
		Name: "Cash on Hand",
		Type: "ASSET",
	})

	require.NoError(t, err)
	assert.Equal(t, "1000", result.Code)
	assert.Equal(t, "ASSET", result.Type)
	assert.Equal(t, "DEBIT", result.NormalBalance)
	assert.True(t, result.IsActive)
}

func TestAccountService_CreateAccount_DuplicateCode(t *testing.T) {
	tenantID := uuid.New()
	accounts := new(MockAccountRepository)
	service := newTestAccountService(accounts, nil, nil, nil, nil)

	accounts.On("ExistsByCode", mock.Anything, tenantID, "1000").Return(true, nil)

	result, err := service.CreateAccount(context.Background(), tenantID, CreateAccountRequest{
		Code: "1000",
		Name: "Cash on Hand",
		Type: "ASSET",
	})

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, shared.IsDomainErrorWithCode(err, "ALREADY_EXISTS"))
	accounts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAccountService_CreateAccount_ParentTypeMismatch(t *testing.T) {
	tenantID := uuid.New()
	parent := createTestAccount(t, tenantID, "2000", ledger.AccountTypeLiability)

	accounts := new(MockAccountRepository)
	service := newTestAccountService(accounts, nil, nil, nil, nil)

	accounts.On("ExistsByCode", mock.Anything, tenantID, "1100").Return(false, nil)
	accounts.On("FindByIDForTenant", mock.Anything, tenantID, parent.ID).Return(parent, nil)

	result, err := service.CreateAccount(context.Background(), tenantID, CreateAccountRequest{
		Code:     "1100",
		Name:     "Bank Account",
		Type:     "ASSET",
		ParentID: &parent.ID,
	})

	assert.Nil(t, result)
	require.Error(t, err)
	accounts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// =============================================================================
// Deactivate Account Tests
// =============================================================================

func TestAccountService_DeactivateAccount(t *testing.T) {
	tenantID := uuid.New()
	account := createTestAccount(t, tenantID, "1000", ledger.AccountTypeAsset)

	accounts := new(MockAccountRepository)
	entries := new(MockJournalEntryRepository)
	service := newTestAccountService(accounts, entries, nil, nil, nil)

	accounts.On("FindByIDForTenant", mock.Anything, tenantID, account.ID).Return(account, nil)
	entries.On("CountDraftsReferencingAccount", mock.Anything, tenantID, account.ID).Return(int64(0), nil)
	accounts.On("SaveWithLock", mock.Anything, account).Return(nil)

	result, err := service.DeactivateAccount(context.Background(), tenantID, account.ID)

	require.NoError(t, err)
	assert.False(t, result.IsActive)
}

func TestAccountService_DeactivateAccount_BlockedByDrafts(t *testing.T) {
	tenantID := uuid.New()
	account := createTestAccount(t, tenantID, "1000", ledger.AccountTypeAsset)

	accounts := new(MockAccountRepository)
	entries := new(MockJournalEntryRepository)
	service := newTestAccountService(accounts, entries, nil, nil, nil)

	accounts.On("FindByIDForTenant", mock.Anything, tenantID, account.ID).Return(account, nil)
	entries.On("CountDraftsReferencingAccount", mock.Anything, tenantID, account.ID).Return(int64(3), nil)

	result, err := service.DeactivateAccount(context.Background(), tenantID, account.ID)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, shared.IsDomainErrorWithCode(err, "CONFLICT"))
	assert.True(t, account.IsActive)
	accounts.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestAccountService_DeactivateAccount_SystemAccount(t *testing.T) {
	tenantID := uuid.New()
	account := createTestAccount(t, tenantID, "2150", ledger.AccountTypeLiability)
	account.MarkSystem()

	accounts := new(MockAccountRepository)
	entries := new(MockJournalEntryRepository)
	service := newTestAccountService(accounts, entries, nil, nil, nil)

	accounts.On("FindByIDForTenant", mock.Anything, tenantID, account.ID).Return(account, nil)
	entries.On("CountDraftsReferencingAccount", mock.Anything, tenantID, account.ID).Return(int64(0), nil)

	result, err := service.DeactivateAccount(context.Background(), tenantID, account.ID)

	assert.Nil(t, result)
	require.Error(t, err)
}

// =============================================================================
// Get Balance Tests
// =============================================================================

func TestAccountService_GetBalance_FirstPeriod(t *testing.T) {
	tenantID := uuid.New()
	asOf := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	account := createTestAccount(t, tenantID, "1000", ledger.AccountTypeAsset)
	period := createTestPeriod(t, tenantID, 2026, 1,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))

	accounts := new(MockAccountRepository)
	entries := new(MockJournalEntryRepository)
	periods := new(MockAccountingPeriodRepository)
	service := newTestAccountService(accounts, entries, nil, periods, nil)

	accounts.On("FindByIDForTenant", mock.Anything, tenantID, account.ID).Return(account, nil)
	periods.On("FindByDate", mock.Anything, tenantID, asOf).Return(period, nil)
	periods.On("FindPrevious", mock.Anything, tenantID, period).Return(nil, shared.ErrNotFound)
	entries.On("SumLinesByAccount", mock.Anything, tenantID, account.ID, period.StartDate, asOf).
		Return(d("300.00"), d("120.00"), nil)

	result, err := service.GetBalance(context.Background(), tenantID, account.ID, asOf)

	require.NoError(t, err)
	assert.True(t, result.Balance.Equal(d("180.00")))
	assert.Equal(t, "DEBIT", result.Side)
}

func TestAccountService_GetBalance_CreditAccountSignFlip(t *testing.T) {
	tenantID := uuid.New()
	asOf := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	account := createTestAccount(t, tenantID, "2150", ledger.AccountTypeLiability)
	period := createTestPeriod(t, tenantID, 2026, 1,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))

	accounts := new(MockAccountRepository)
	entries := new(MockJournalEntryRepository)
	periods := new(MockAccountingPeriodRepository)
	service := newTestAccountService(accounts, entries, nil, periods, nil)

	accounts.On("FindByIDForTenant", mock.Anything, tenantID, account.ID).Return(account, nil)
	periods.On("FindByDate", mock.Anything, tenantID, asOf).Return(period, nil)
	periods.On("FindPrevious", mock.Anything, tenantID, period).Return(nil, shared.ErrNotFound)
	entries.On("SumLinesByAccount", mock.Anything, tenantID, account.ID, period.StartDate, asOf).
		Return(d("0"), d("14.50"), nil)

	result, err := service.GetBalance(context.Background(), tenantID, account.ID, asOf)

	require.NoError(t, err)
	// Credits exceed debits on a credit-normal account: reads positive.
	assert.True(t, result.Balance.Equal(d("14.50")))
	assert.Equal(t, "CREDIT", result.Side)
}

func TestAccountService_GetBalance_UsesClosedPeriodCache(t *testing.T) {
	tenantID := uuid.New()
	asOf := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	account := createTestAccount(t, tenantID, "1000", ledger.AccountTypeAsset)
	prior := createTestPeriod(t, tenantID, 2026, 1,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, prior.Close())
	current := createTestPeriod(t, tenantID, 2026, 2,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC))

	accounts := new(MockAccountRepository)
	entries := new(MockJournalEntryRepository)
	buckets := new(MockGeneralLedgerRepository)
	periods := new(MockAccountingPeriodRepository)
	cache := new(MockBalanceCache)
	service := newTestAccountService(accounts, entries, buckets, periods, cache)

	accounts.On("FindByIDForTenant", mock.Anything, tenantID, account.ID).Return(account, nil)
	periods.On("FindByDate", mock.Anything, tenantID, asOf).Return(current, nil)
	periods.On("FindPrevious", mock.Anything, tenantID, current).Return(prior, nil)
	cache.On("GetClosedBalance", mock.Anything, tenantID, account.ID, prior.ID).
		Return(d("200.00"), true, nil)
	entries.On("SumLinesByAccount", mock.Anything, tenantID, account.ID, current.StartDate, asOf).
		Return(d("50.00"), d("0"), nil)

	result, err := service.GetBalance(context.Background(), tenantID, account.ID, asOf)

	require.NoError(t, err)
	assert.True(t, result.Balance.Equal(d("250.00")))
	// Cache hit: the bucket row is never read.
	buckets.AssertNotCalled(t, "FindBucket", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAccountService_GetBalance_CacheMissPopulates(t *testing.T) {
	tenantID := uuid.New()
	asOf := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	account := createTestAccount(t, tenantID, "1000", ledger.AccountTypeAsset)
	prior := createTestPeriod(t, tenantID, 2026, 1,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, prior.Close())
	current := createTestPeriod(t, tenantID, 2026, 2,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC))

	bucket := ledger.NewGeneralLedgerEntry(tenantID, account.ID, prior.ID, decimal.Zero)
	bucket.Apply(uuid.New(), d("200.00"), decimal.Zero)

	accounts := new(MockAccountRepository)
	entries := new(MockJournalEntryRepository)
	buckets := new(MockGeneralLedgerRepository)
	periods := new(MockAccountingPeriodRepository)
	cache := new(MockBalanceCache)
	service := newTestAccountService(accounts, entries, buckets, periods, cache)

	accounts.On("FindByIDForTenant", mock.Anything, tenantID, account.ID).Return(account, nil)
	periods.On("FindByDate", mock.Anything, tenantID, asOf).Return(current, nil)
	periods.On("FindPrevious", mock.Anything, tenantID, current).Return(prior, nil)
	cache.On("GetClosedBalance", mock.Anything, tenantID, account.ID, prior.ID).
		Return(decimal.Zero, false, nil)
	buckets.On("FindBucket", mock.Anything, tenantID, account.ID, prior.ID).Return(bucket, nil)
	cache.On("SetClosedBalance", mock.Anything, tenantID, account.ID, prior.ID, d("200.00")).Return(nil)
	entries.On("SumLinesByAccount", mock.Anything, tenantID, account.ID, current.StartDate, asOf).
		Return(d("0"), d("0"), nil)

	result, err := service.GetBalance(context.Background(), tenantID, account.ID, asOf)

	require.NoError(t, err)
	assert.True(t, result.Balance.Equal(d("200.00")))
	cache.AssertCalled(t, "SetClosedBalance", mock.Anything, tenantID, account.ID, prior.ID, d("200.00"))
}

func TestAccountService_GetBalance_CarriesBalanceAcrossInactivePeriod(t *testing.T) {
	tenantID := uuid.New()
	asOf := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	account := createTestAccount(t, tenantID, "1000", ledger.AccountTypeAsset)
	january := createTestPeriod(t, tenantID, 2026, 1,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, january.Close())
	february := createTestPeriod(t, tenantID, 2026, 2,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, february.Close())
	march := createTestPeriod(t, tenantID, 2026, 3,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))

	// January closed at 200.00; February had no activity, hence no bucket.
	januaryBucket := ledger.NewGeneralLedgerEntry(tenantID, account.ID, january.ID, decimal.Zero)
	januaryBucket.Apply(uuid.New(), d("200.00"), decimal.Zero)

	accounts := new(MockAccountRepository)
	entries := new(MockJournalEntryRepository)
	buckets := new(MockGeneralLedgerRepository)
	periods := new(MockAccountingPeriodRepository)
	cache := new(MockBalanceCache)
	service := newTestAccountService(accounts, entries, buckets, periods, cache)

	accounts.On("FindByIDForTenant", mock.Anything, tenantID, account.ID).Return(account, nil)
	periods.On("FindByDate", mock.Anything, tenantID, asOf).Return(march, nil)
	periods.On("FindPrevious", mock.Anything, tenantID, march).Return(february, nil)
	periods.On("FindPrevious", mock.Anything, tenantID, february).Return(january, nil)
	cache.On("GetClosedBalance", mock.Anything, tenantID, account.ID, february.ID).
		Return(decimal.Zero, false, nil)
	buckets.On("FindBucket", mock.Anything, tenantID, account.ID, february.ID).
		Return(nil, shared.ErrNotFound)
	buckets.On("FindBucket", mock.Anything, tenantID, account.ID, january.ID).
		Return(januaryBucket, nil)
	cache.On("SetClosedBalance", mock.Anything, tenantID, account.ID, february.ID, d("200.00")).Return(nil)
	entries.On("SumLinesByAccount", mock.Anything, tenantID, account.ID, march.StartDate, asOf).
		Return(d("0"), d("0"), nil)

	result, err := service.GetBalance(context.Background(), tenantID, account.ID, asOf)

	require.NoError(t, err)
	assert.True(t, result.Balance.Equal(d("200.00")), "balance: %s", result.Balance)
	// The resolved value is cached under the immediate predecessor so the
	// next read stops there.
	cache.AssertCalled(t, "SetClosedBalance", mock.Anything, tenantID, account.ID, february.ID, d("200.00"))
}

func TestAccountService_GetBalance_NoPeriodForDate(t *testing.T) {
	tenantID := uuid.New()
	asOf := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	account := createTestAccount(t, tenantID, "1000", ledger.AccountTypeAsset)

	accounts := new(MockAccountRepository)
	periods := new(MockAccountingPeriodRepository)
	service := newTestAccountService(accounts, nil, nil, periods, nil)

	accounts.On("FindByIDForTenant", mock.Anything, tenantID, account.ID).Return(account, nil)
	periods.On("FindByDate", mock.Anything, tenantID, asOf).Return(nil, nil)

	result, err := service.GetBalance(context.Background(), tenantID, account.ID, asOf)

	assert.Nil(t, result)
	assert.True(t, shared.IsDomainErrorWithCode(err, "VALIDATION_ERROR"))
}
