package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	ledgerapp "github.com/finbooks/backend/internal/application/ledger"
	taxapp "github.com/finbooks/backend/internal/application/tax"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/tax"
	"github.com/finbooks/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type taxHandlerFixture struct {
	*postingMocks
	configs   *MockTaxConfigurationRepository
	publisher *stubEventPublisher
	router    *gin.Engine
}

func setupTaxHandler(t *testing.T) *taxHandlerFixture {
	t.Helper()

	f := &taxHandlerFixture{
		postingMocks: newPostingMocks(),
		configs:      new(MockTaxConfigurationRepository),
		publisher:    &stubEventPublisher{},
	}

	journals := ledgerapp.NewJournalService(f.scope, f.publisher, nil, zap.NewNop())
	accruals := taxapp.NewAccrualService(
		f.configs, f.taxPeriods, f.taxLiability, f.accounts, journals,
		f.publisher, taxapp.DefaultVATAccountCodes(), zap.NewNop(),
	)
	returns := taxapp.NewReturnService(f.configs, f.taxPeriods, f.taxLiability, f.publisher, zap.NewNop())
	h := NewTaxHandler(accruals, returns)

	f.router = setupTestRouter()
	f.router.POST("/tax/transactions", h.RecordTransaction)
	f.router.GET("/tax/calendar", h.Calendar)
	f.router.POST("/tax/income-tax", h.CalculateIncomeTax)
	f.router.POST("/tax/periods/:id/file", h.FilePeriod)
	f.router.POST("/tax/periods/:id/pay", h.PayPeriod)
	f.router.GET("/tax/pending-liabilities", h.ListPendingLiabilities)

	return f
}

func newTestTaxConfig(t *testing.T, brackets tax.TaxBrackets) *tax.TaxConfiguration {
	t.Helper()
	config, err := tax.NewTaxConfiguration(testTenantID, d("15"), true, tax.FilingMonthly, 25, brackets, nil)
	require.NoError(t, err)
	return config
}

func newTestSource(kind tax.SourceKind) tax.SourceTransaction {
	return tax.SourceTransaction{
		Kind:         kind,
		SourceID:     uuid.New(),
		SourceNumber: "INV-001",
		Amount:       d("230.00"),
		TaxInclusive: true,
		Date:         time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestTaxHandler_RecordTransaction(t *testing.T) {
	t.Run("accrues VAT on a sale", func(t *testing.T) {
		f := setupTaxHandler(t)

		config := newTestTaxConfig(t, nil)
		period := newTestTaxPeriod(t,
			time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 4, 25, 0, 0, 0, 0, time.UTC),
		)

		f.configs.On("FindByTenant", mock.Anything, testTenantID).Return(config, nil)
		f.taxPeriods.On("GetOrCreate", mock.Anything, mock.AnythingOfType("*tax.TaxPeriod")).Return(period, nil)
		// VAT control account not provisioned: the liability is still recorded,
		// just without a balancing entry.
		f.accounts.On("FindByCode", mock.Anything, testTenantID, mock.AnythingOfType("string")).Return(nil, nil)
		f.taxLiability.On("Save", mock.Anything, mock.AnythingOfType("*tax.TaxLiability")).Return(nil)

		body, _ := json.Marshal(map[string]any{
			"kind":          "SALE",
			"source_id":     uuid.New().String(),
			"source_number": "INV-001",
			"amount":        "230.00",
			"tax_inclusive": true,
			"date":          "2025-03-10T00:00:00Z",
		})
		req := httptest.NewRequest(http.MethodPost, "/tax/transactions", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]any)
		assert.Equal(t, "OUTPUT", data["direction"])
		assert.Equal(t, "30.00", data["tax_amount"])
		assert.Equal(t, "200.00", data["net_amount"])
		assert.Equal(t, period.ID.String(), data["tax_period_id"])
		assert.NotEqual(t, true, data["pending"])
		assert.Nil(t, data["journal_entry_id"])

		f.configs.AssertExpectations(t)
		f.taxPeriods.AssertExpectations(t)
		f.taxLiability.AssertExpectations(t)
	})

	t.Run("records pending liability when tenant has no tax configuration", func(t *testing.T) {
		f := setupTaxHandler(t)

		f.configs.On("FindByTenant", mock.Anything, testTenantID).Return(nil, shared.ErrNotFound)
		f.taxLiability.On("Save", mock.Anything, mock.MatchedBy(func(l *tax.TaxLiability) bool {
			return l.Pending && l.Amount.IsZero()
		})).Return(nil)

		body, _ := json.Marshal(map[string]any{
			"kind":      "PURCHASE",
			"source_id": uuid.New().String(),
			"amount":    "500.00",
			"date":      "2025-03-12T00:00:00Z",
		})
		req := httptest.NewRequest(http.MethodPost, "/tax/transactions", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]any)
		assert.Equal(t, true, data["pending"])
		assert.Equal(t, "INPUT", data["direction"])
		assert.Equal(t, "0", data["tax_amount"])

		f.taxLiability.AssertExpectations(t)
		f.taxPeriods.AssertNotCalled(t, "GetOrCreate", mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown source kind", func(t *testing.T) {
		f := setupTaxHandler(t)

		body, _ := json.Marshal(map[string]any{
			"kind":      "GIFT",
			"source_id": uuid.New().String(),
			"amount":    "100.00",
			"date":      "2025-03-12T00:00:00Z",
		})
		req := httptest.NewRequest(http.MethodPost, "/tax/transactions", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		f.configs.AssertNotCalled(t, "FindByTenant", mock.Anything, mock.Anything)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		f := setupTaxHandler(t)

		body, _ := json.Marshal(map[string]any{
			"kind":      "SALE",
			"source_id": uuid.New().String(),
			"amount":    "-10.00",
			"date":      "2025-03-12T00:00:00Z",
		})
		req := httptest.NewRequest(http.MethodPost, "/tax/transactions", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTaxHandler_Calendar(t *testing.T) {
	t.Run("lists periods with overdue flags", func(t *testing.T) {
		f := setupTaxHandler(t)

		overdue := newTestTaxPeriod(t,
			time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 2, 25, 0, 0, 0, 0, time.UTC),
		)
		filed := newTestTaxPeriod(t,
			time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 3, 25, 0, 0, 0, 0, time.UTC),
		)
		require.NoError(t, filed.MarkFiled())
		filed.ClearDomainEvents()

		f.taxPeriods.On("FindInRange", mock.Anything, testTenantID,
			mock.AnythingOfType("time.Time"), mock.AnythingOfType("time.Time")).
			Return([]tax.TaxPeriod{*overdue, *filed}, nil)

		req := httptest.NewRequest(http.MethodGet, "/tax/calendar?from=2025-01-01&to=2025-12-31", nil)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		items := resp.Data.([]any)
		require.Len(t, items, 2)

		first := items[0].(map[string]any)
		assert.Equal(t, true, first["overdue"])
		assert.Equal(t, "OPEN", first["status"])

		second := items[1].(map[string]any)
		assert.Equal(t, false, second["overdue"])
		assert.Equal(t, "FILED", second["status"])

		f.taxPeriods.AssertExpectations(t)
	})

	t.Run("rejects malformed range", func(t *testing.T) {
		f := setupTaxHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/tax/calendar?from=spring", nil)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		f.taxPeriods.AssertNotCalled(t, "FindInRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTaxHandler_CalculateIncomeTax(t *testing.T) {
	t.Run("applies progressive brackets", func(t *testing.T) {
		f := setupTaxHandler(t)

		upper := d("100000")
		config := newTestTaxConfig(t, tax.TaxBrackets{
			{Lower: d("0"), Upper: &upper, Rate: d("10")},
			{Lower: d("100000"), Rate: d("20")},
		})
		f.configs.On("FindByTenant", mock.Anything, testTenantID).Return(config, nil)

		body, _ := json.Marshal(map[string]any{"taxable_income": "150000"})
		req := httptest.NewRequest(http.MethodPost, "/tax/income-tax", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]any)
		assert.Equal(t, "20000.00", data["tax"])
		assert.Equal(t, "13.33", data["effective_rate"])

		f.configs.AssertExpectations(t)
	})

	t.Run("returns 422 without a tax configuration", func(t *testing.T) {
		f := setupTaxHandler(t)

		f.configs.On("FindByTenant", mock.Anything, testTenantID).Return(nil, shared.ErrNotFound)

		body, _ := json.Marshal(map[string]any{"taxable_income": "50000"})
		req := httptest.NewRequest(http.MethodPost, "/tax/income-tax", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeTaxConfigMissing, resp.Error.Code)
	})

	t.Run("returns 422 when brackets are not configured", func(t *testing.T) {
		f := setupTaxHandler(t)

		config := newTestTaxConfig(t, nil)
		f.configs.On("FindByTenant", mock.Anything, testTenantID).Return(config, nil)

		body, _ := json.Marshal(map[string]any{"taxable_income": "50000"})
		req := httptest.NewRequest(http.MethodPost, "/tax/income-tax", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestTaxHandler_FilePeriod(t *testing.T) {
	t.Run("marks an open period filed", func(t *testing.T) {
		f := setupTaxHandler(t)

		period := newTestTaxPeriod(t,
			time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 4, 25, 0, 0, 0, 0, time.UTC),
		)
		f.taxPeriods.On("FindByIDForTenant", mock.Anything, testTenantID, period.ID).Return(period, nil)
		f.taxPeriods.On("SaveWithLock", mock.Anything, period).Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/tax/periods/"+period.ID.String()+"/file", nil)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]any)
		assert.Equal(t, "FILED", data["status"])
		assert.NotEmpty(t, data["filed_at"])

		f.taxPeriods.AssertExpectations(t)
	})

	t.Run("rejects filing twice", func(t *testing.T) {
		f := setupTaxHandler(t)

		period := newTestTaxPeriod(t,
			time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
			time.Date(2025, 4, 25, 0, 0, 0, 0, time.UTC),
		)
		require.NoError(t, period.MarkFiled())
		period.ClearDomainEvents()

		f.taxPeriods.On("FindByIDForTenant", mock.Anything, testTenantID, period.ID).Return(period, nil)

		req := httptest.NewRequest(http.MethodPost, "/tax/periods/"+period.ID.String()+"/file", nil)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		f.taxPeriods.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("returns 404 for unknown period", func(t *testing.T) {
		f := setupTaxHandler(t)

		id := uuid.New()
		f.taxPeriods.On("FindByIDForTenant", mock.Anything, testTenantID, id).Return(nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/tax/periods/"+id.String()+"/file", nil)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTaxHandler_PayPeriod(t *testing.T) {
	periodStart := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	dueDate := time.Date(2025, 4, 25, 0, 0, 0, 0, time.UTC)

	t.Run("marks a filed period paid and settles its liabilities", func(t *testing.T) {
		f := setupTaxHandler(t)

		period := newTestTaxPeriod(t, periodStart, periodEnd, dueDate)
		require.NoError(t, period.MarkFiled())
		period.ClearDomainEvents()

		liability, err := tax.NewTaxLiability(
			testTenantID, period.ID, tax.TaxTypeVAT,
			newTestSource(tax.SourceKindSale), tax.DirectionOutput,
			d("200.00"), d("30.00"),
		)
		require.NoError(t, err)
		liability.ClearDomainEvents()

		f.taxPeriods.On("FindByIDForTenant", mock.Anything, testTenantID, period.ID).Return(period, nil)
		f.taxPeriods.On("SaveWithLock", mock.Anything, period).Return(nil)
		f.taxLiability.On("FindByPeriod", mock.Anything, testTenantID, period.ID).
			Return([]tax.TaxLiability{*liability}, nil)
		f.taxLiability.On("SaveWithLock", mock.Anything, mock.MatchedBy(func(l *tax.TaxLiability) bool {
			return l.Settled
		})).Return(nil)

		req := httptest.NewRequest(http.MethodPost, "/tax/periods/"+period.ID.String()+"/pay", nil)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		data := resp.Data.(map[string]any)
		assert.Equal(t, "PAID", data["status"])
		assert.NotEmpty(t, data["paid_at"])

		f.taxPeriods.AssertExpectations(t)
		f.taxLiability.AssertExpectations(t)
	})

	t.Run("rejects paying an unfiled period", func(t *testing.T) {
		f := setupTaxHandler(t)

		period := newTestTaxPeriod(t, periodStart, periodEnd, dueDate)
		f.taxPeriods.On("FindByIDForTenant", mock.Anything, testTenantID, period.ID).Return(period, nil)

		req := httptest.NewRequest(http.MethodPost, "/tax/periods/"+period.ID.String()+"/pay", nil)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		f.taxPeriods.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
		f.taxLiability.AssertNotCalled(t, "FindByPeriod", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTaxHandler_ListPendingLiabilities(t *testing.T) {
	t.Run("lists pending liabilities", func(t *testing.T) {
		f := setupTaxHandler(t)

		pending, err := tax.NewPendingTaxLiability(
			testTenantID, tax.TaxTypeVAT, newTestSource(tax.SourceKindSale), tax.DirectionOutput,
		)
		require.NoError(t, err)
		pending.ClearDomainEvents()

		f.taxLiability.On("FindPending", mock.Anything, testTenantID).
			Return([]tax.TaxLiability{*pending}, nil)

		req := httptest.NewRequest(http.MethodGet, "/tax/pending-liabilities", nil)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		items := resp.Data.([]any)
		require.Len(t, items, 1)

		item := items[0].(map[string]any)
		assert.Equal(t, true, item["pending"])
		assert.Equal(t, "SALE", item["source_kind"])
		assert.Equal(t, "0", item["amount"])

		f.taxLiability.AssertExpectations(t)
	})
}
