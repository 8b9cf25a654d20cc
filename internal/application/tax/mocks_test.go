package tax

import (
	"context"
	"sync"
	"time"

	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/tax"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
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
// Mock Tax Configuration Repository
// =============================================================================

// MockTaxConfigurationRepository is a mock implementation of tax.TaxConfigurationRepository
type MockTaxConfigurationRepository struct {
	mock.Mock
}

func (m *MockTaxConfigurationRepository) FindByTenant(ctx context.Context, tenantID uuid.UUID) (*tax.TaxConfiguration, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tax.TaxConfiguration), args.Error(1)
}

func (m *MockTaxConfigurationRepository) Save(ctx context.Context, config *tax.TaxConfiguration) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

func (m *MockTaxConfigurationRepository) SaveWithLock(ctx context.Context, config *tax.TaxConfiguration) error {
	args := m.Called(ctx, config)
	return args.Error(0)
}

// =============================================================================
// Mock Tax Period Repository
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

// =============================================================================
// Mock Tax Liability Repository
// =============================================================================

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
// Test Helpers
// =============================================================================

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func createProgressiveBrackets() tax.TaxBrackets {
	return tax.TaxBrackets{
		{Lower: d("0"), Upper: dp("10000"), Rate: d("0")},
		{Lower: d("10000"), Upper: dp("30000"), Rate: d("20")},
		{Lower: d("30000"), Upper: nil, Rate: d("25")},
	}
}

func createMonthlyConfig(tenantID uuid.UUID) *tax.TaxConfiguration {
	config, err := tax.NewTaxConfiguration(tenantID, d("14.5"), true, tax.FilingMonthly, 25, createProgressiveBrackets(), nil)
	if err != nil {
		panic(err)
	}
	return config
}
