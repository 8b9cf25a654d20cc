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
	"go.uber.org/zap"
)

// =============================================================================
// Create Period Tests
// =============================================================================

func TestPeriodService_CreatePeriod(t *testing.T) {
	tenantID := uuid.New()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	mocks := newPostingMocks()
	service := NewPeriodService(mocks.scope, nil, nil, zap.NewNop())

	mocks.periods.On("ExistsOverlapping", mock.Anything, tenantID, start, end).Return(false, nil)
	mocks.periods.On("Save", mock.Anything, mock.Anything).Return(nil)

	result, err := service.CreatePeriod(context.Background(), tenantID, CreatePeriodRequest{
		FiscalYear: 2026,
		Sequence:   1,
		Name:       "January 2026",
		StartDate:  start,
		EndDate:    end,
	})

	require.NoError(t, err)
	assert.Equal(t, "OPEN", result.Status)
	assert.Equal(t, 2026, result.FiscalYear)
	assert.Nil(t, result.ClosedAt)
}

func TestPeriodService_CreatePeriod_Overlap(t *testing.T) {
	tenantID := uuid.New()
	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)

	mocks := newPostingMocks()
	service := NewPeriodService(mocks.scope, nil, nil, zap.NewNop())

	mocks.periods.On("ExistsOverlapping", mock.Anything, tenantID, start, end).Return(true, nil)

	result, err := service.CreatePeriod(context.Background(), tenantID, CreatePeriodRequest{
		FiscalYear: 2026,
		Sequence:   2,
		Name:       "Overlapping",
		StartDate:  start,
		EndDate:    end,
	})

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, shared.IsDomainErrorWithCode(err, "CONFLICT"))
	mocks.periods.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

// =============================================================================
// Close Period Tests
// =============================================================================

func TestPeriodService_ClosePeriod(t *testing.T) {
	tenantID := uuid.New()
	period := createTestPeriod(t, tenantID, 2026, 1,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))

	mocks := newPostingMocks()
	publisher := NewMockEventPublisher()
	cache := new(MockBalanceCache)
	service := NewPeriodService(mocks.scope, publisher, cache, zap.NewNop())

	mocks.periods.On("FindByIDForTenant", mock.Anything, tenantID, period.ID).Return(period, nil)
	mocks.entries.On("CountForTenant", mock.Anything, tenantID, mock.Anything).Return(int64(0), nil)
	mocks.periods.On("SaveWithLock", mock.Anything, period).Return(nil)
	mocks.buckets.On("FindByPeriod", mock.Anything, tenantID, period.ID).
		Return([]ledger.GeneralLedgerEntry{}, nil)
	cache.On("InvalidateTenant", mock.Anything, tenantID).Return(nil)

	result, err := service.ClosePeriod(context.Background(), tenantID, period.ID)

	require.NoError(t, err)
	assert.Equal(t, "CLOSED", result.Status)
	require.NotNil(t, result.ClosedAt)
	assert.Len(t, publisher.GetEventsByType("PeriodClosed"), 1)
	cache.AssertCalled(t, "InvalidateTenant", mock.Anything, tenantID)
}

func TestPeriodService_ClosePeriod_WarmsBalanceCache(t *testing.T) {
	tenantID := uuid.New()
	accountID := uuid.New()
	period := createTestPeriod(t, tenantID, 2026, 1,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))

	bucket := ledger.NewGeneralLedgerEntry(tenantID, accountID, period.ID, d("50.00"))
	bucket.Apply(uuid.New(), d("150.00"), decimal.Zero)

	mocks := newPostingMocks()
	cache := new(MockBalanceCache)
	service := NewPeriodService(mocks.scope, nil, cache, zap.NewNop())

	mocks.periods.On("FindByIDForTenant", mock.Anything, tenantID, period.ID).Return(period, nil)
	mocks.entries.On("CountForTenant", mock.Anything, tenantID, mock.Anything).Return(int64(0), nil)
	mocks.periods.On("SaveWithLock", mock.Anything, period).Return(nil)
	mocks.buckets.On("FindByPeriod", mock.Anything, tenantID, period.ID).
		Return([]ledger.GeneralLedgerEntry{*bucket}, nil)
	cache.On("InvalidateTenant", mock.Anything, tenantID).Return(nil)
	cache.On("SetClosedBalance", mock.Anything, tenantID, accountID, period.ID, d("200.00")).Return(nil)

	_, err := service.ClosePeriod(context.Background(), tenantID, period.ID)

	require.NoError(t, err)
	cache.AssertCalled(t, "SetClosedBalance", mock.Anything, tenantID, accountID, period.ID, d("200.00"))
}

func TestPeriodService_ClosePeriod_BlockedByDrafts(t *testing.T) {
	tenantID := uuid.New()
	period := createTestPeriod(t, tenantID, 2026, 1,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))

	mocks := newPostingMocks()
	service := NewPeriodService(mocks.scope, nil, nil, zap.NewNop())

	mocks.periods.On("FindByIDForTenant", mock.Anything, tenantID, period.ID).Return(period, nil)
	mocks.entries.On("CountForTenant", mock.Anything, tenantID, mock.MatchedBy(func(filter ledger.JournalEntryFilter) bool {
		return filter.Status != nil && *filter.Status == ledger.EntryStatusDraft &&
			filter.FromDate != nil && filter.FromDate.Equal(period.StartDate) &&
			filter.ToDate != nil && filter.ToDate.Equal(period.EndDate)
	})).Return(int64(2), nil)

	result, err := service.ClosePeriod(context.Background(), tenantID, period.ID)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, shared.IsDomainErrorWithCode(err, "CONFLICT"))
	assert.True(t, period.IsOpen())
	mocks.periods.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestPeriodService_ClosePeriod_AlreadyClosed(t *testing.T) {
	tenantID := uuid.New()
	period := createTestPeriod(t, tenantID, 2026, 1,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, period.Close())
	period.ClearDomainEvents()

	mocks := newPostingMocks()
	service := NewPeriodService(mocks.scope, nil, nil, zap.NewNop())

	mocks.periods.On("FindByIDForTenant", mock.Anything, tenantID, period.ID).Return(period, nil)
	mocks.entries.On("CountForTenant", mock.Anything, tenantID, mock.Anything).Return(int64(0), nil)

	result, err := service.ClosePeriod(context.Background(), tenantID, period.ID)

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, shared.IsDomainErrorWithCode(err, "CONFLICT"))
}

func TestPeriodService_ListPeriods(t *testing.T) {
	tenantID := uuid.New()
	p1 := createTestPeriod(t, tenantID, 2026, 1,
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC))
	p2 := createTestPeriod(t, tenantID, 2026, 2,
		time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC))

	mocks := newPostingMocks()
	service := NewPeriodService(mocks.scope, nil, nil, zap.NewNop())

	mocks.periods.On("FindAllForTenant", mock.Anything, tenantID).
		Return([]ledger.AccountingPeriod{*p1, *p2}, nil)

	result, err := service.ListPeriods(context.Background(), tenantID)

	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, 1, result[0].Sequence)
	assert.Equal(t, 2, result[1].Sequence)
}
