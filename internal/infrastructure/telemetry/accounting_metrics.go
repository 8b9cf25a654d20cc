// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// AccountingMetrics provides bookkeeping metrics for the accounting engine.
// It tracks journal posting activity, ledger integrity, and tax accrual health.
type AccountingMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	entryPostedTotal      *Counter
	linesProjectedTotal   *Counter
	integrityFailureTotal *Counter
	taxAccruedTotal       *Counter
	taxAccruedAmountTotal *Counter

	// Histogram metrics
	postingDuration *Histogram

	// Gauge metrics (point-in-time values)
	pendingLiabilityCount *Gauge
	overdueTaxPeriodCount *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data providers for periodic collection
	taxProvider TaxMetricsProvider
}

// TaxMetricsProvider provides tax accrual state for periodic metrics collection.
// This interface allows the telemetry layer to query tax state without
// depending on the tax domain directly.
type TaxMetricsProvider interface {
	// GetPendingLiabilityCount returns the number of liabilities accrued without
	// a tax configuration for a tenant
	GetPendingLiabilityCount(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// GetOverdueTaxPeriodCount returns the number of unfiled tax periods past
	// their due date for a tenant
	GetOverdueTaxPeriodCount(ctx context.Context, tenantID uuid.UUID, now time.Time) (int64, error)
}

// AccountingMetricsConfig holds configuration for accounting metrics.
type AccountingMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 5 minutes
	TaxProvider     TaxMetricsProvider
}

// NewAccountingMetrics creates a new AccountingMetrics instance.
func NewAccountingMetrics(cfg AccountingMetricsConfig) (*AccountingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	am := &AccountingMetrics{
		meter:       cfg.Meter,
		logger:      logger,
		stopChan:    make(chan struct{}),
		taxProvider: cfg.TaxProvider,
	}

	// Initialize counter metrics
	var err error

	// Posting metrics
	am.entryPostedTotal, err = NewCounter(
		cfg.Meter,
		"finbooks_journal_entry_posted_total",
		"Total number of journal entries posted",
		"{entries}",
	)
	if err != nil {
		return nil, err
	}

	am.linesProjectedTotal, err = NewCounter(
		cfg.Meter,
		"finbooks_ledger_lines_projected_total",
		"Total number of journal lines projected into ledger buckets",
		"{lines}",
	)
	if err != nil {
		return nil, err
	}

	am.integrityFailureTotal, err = NewCounter(
		cfg.Meter,
		"finbooks_ledger_integrity_failure_total",
		"Total number of trial balance self-check failures during posting",
		"{failures}",
	)
	if err != nil {
		return nil, err
	}

	// Tax accrual metrics
	am.taxAccruedTotal, err = NewCounter(
		cfg.Meter,
		"finbooks_tax_liability_accrued_total",
		"Total number of tax liabilities accrued",
		"{liabilities}",
	)
	if err != nil {
		return nil, err
	}

	am.taxAccruedAmountTotal, err = NewCounter(
		cfg.Meter,
		"finbooks_tax_liability_amount_total",
		"Total accrued tax amount in minor units (cents)",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	// Posting duration histogram
	am.postingDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "finbooks_journal_posting_duration_seconds",
		Description: "Duration of the journal posting transaction",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	// Tax health gauge metrics
	am.pendingLiabilityCount, err = NewGauge(
		cfg.Meter,
		"finbooks_tax_pending_liability_count",
		"Number of liabilities accrued without a tax configuration",
		"{liabilities}",
	)
	if err != nil {
		return nil, err
	}

	am.overdueTaxPeriodCount, err = NewGauge(
		cfg.Meter,
		"finbooks_tax_overdue_period_count",
		"Number of unfiled tax periods past their due date",
		"{periods}",
	)
	if err != nil {
		return nil, err
	}

	return am, nil
}

// =============================================================================
// Posting Metrics
// =============================================================================

// RecordEntryPosted records a journal entry posting.
// This should be called from the application layer when an entry is posted.
func (am *AccountingMetrics) RecordEntryPosted(ctx context.Context, tenantID uuid.UUID, entryType string) {
	am.entryPostedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrEntryType.String(entryType),
	)
}

// RecordLinesProjected records the number of lines projected into ledger buckets.
func (am *AccountingMetrics) RecordLinesProjected(ctx context.Context, tenantID uuid.UUID, lines int64) {
	am.linesProjectedTotal.Add(ctx, lines,
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordPostingDuration records how long the posting transaction took.
func (am *AccountingMetrics) RecordPostingDuration(ctx context.Context, tenantID uuid.UUID, d time.Duration) {
	am.postingDuration.RecordDuration(ctx, d,
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordIntegrityFailure records a trial balance self-check failure.
// A nonzero rate on this counter is an alert condition.
func (am *AccountingMetrics) RecordIntegrityFailure(ctx context.Context, tenantID uuid.UUID) {
	am.integrityFailureTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
	)
}

// =============================================================================
// Tax Accrual Metrics
// =============================================================================

// RecordTaxAccrued records a tax liability accrual with its amount.
// Amount is converted to minor units (cents) for the counter.
func (am *AccountingMetrics) RecordTaxAccrued(ctx context.Context, tenantID uuid.UUID, taxType, direction string, amount decimal.Decimal) {
	am.taxAccruedTotal.Inc(ctx,
		AttrTenantID.String(tenantID.String()),
		AttrTaxType.String(taxType),
		AttrTaxDirection.String(direction),
	)

	amountCents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	am.taxAccruedAmountTotal.Add(ctx, amountCents,
		AttrTenantID.String(tenantID.String()),
		AttrTaxType.String(taxType),
		AttrTaxDirection.String(direction),
	)
}

// RecordPendingLiabilityCount records the number of pending liabilities.
// This is a gauge metric that should be updated periodically.
func (am *AccountingMetrics) RecordPendingLiabilityCount(ctx context.Context, tenantID uuid.UUID, count int64) {
	am.pendingLiabilityCount.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// RecordOverdueTaxPeriodCount records the number of overdue tax periods.
// This is a gauge metric that should be updated periodically.
func (am *AccountingMetrics) RecordOverdueTaxPeriodCount(ctx context.Context, tenantID uuid.UUID, count int64) {
	am.overdueTaxPeriodCount.Record(ctx, count,
		AttrTenantID.String(tenantID.String()),
	)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// TenantProvider provides tenant IDs for periodic metrics collection.
type TenantProvider interface {
	GetActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects tax health metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (am *AccountingMetrics) StartPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	am.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}

		go am.runPeriodicCollection(ctx, tenantProvider, interval)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (am *AccountingMetrics) runPeriodicCollection(ctx context.Context, tenantProvider TenantProvider, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	am.collectTaxMetrics(ctx, tenantProvider)

	for {
		select {
		case <-am.stopChan:
			am.logger.Info("Stopping periodic accounting metrics collection")
			return
		case <-ctx.Done():
			am.logger.Info("Context cancelled, stopping periodic accounting metrics collection")
			return
		case <-ticker.C:
			am.collectTaxMetrics(ctx, tenantProvider)
		}
	}
}

// collectTaxMetrics collects tax gauge metrics for all tenants.
func (am *AccountingMetrics) collectTaxMetrics(ctx context.Context, tenantProvider TenantProvider) {
	if am.taxProvider == nil {
		am.logger.Debug("No tax provider configured, skipping tax metrics collection")
		return
	}

	tenantIDs, err := tenantProvider.GetActiveTenantIDs(ctx)
	if err != nil {
		am.logger.Error("Failed to get tenant IDs for metrics collection", zap.Error(err))
		return
	}

	for _, tenantID := range tenantIDs {
		am.collectTenantTaxMetrics(ctx, tenantID)
	}
}

// collectTenantTaxMetrics collects tax metrics for a single tenant.
func (am *AccountingMetrics) collectTenantTaxMetrics(ctx context.Context, tenantID uuid.UUID) {
	// Collect pending liability count
	pendingCount, err := am.taxProvider.GetPendingLiabilityCount(ctx, tenantID)
	if err != nil {
		am.logger.Warn("Failed to get pending liability count for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		am.RecordPendingLiabilityCount(ctx, tenantID, pendingCount)
	}

	// Collect overdue tax period count
	overdueCount, err := am.taxProvider.GetOverdueTaxPeriodCount(ctx, tenantID, time.Now())
	if err != nil {
		am.logger.Warn("Failed to get overdue tax period count for tenant",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	} else {
		am.RecordOverdueTaxPeriodCount(ctx, tenantID, overdueCount)
	}
}

// Stop stops the periodic collection.
func (am *AccountingMetrics) Stop() {
	am.stopOnce.Do(func() {
		close(am.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewAccountingMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
