package telemetry

import (
	"context"

	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/tax"
	"go.uber.org/zap"
)

// MetricsEventHandler feeds posting and accrual events into the accounting
// metrics. It subscribes to the event bus so metric recording stays out of
// the posting transaction path.
type MetricsEventHandler struct {
	metrics *AccountingMetrics
	logger  *zap.Logger
}

// NewMetricsEventHandler creates a new MetricsEventHandler.
func NewMetricsEventHandler(metrics *AccountingMetrics, logger *zap.Logger) *MetricsEventHandler {
	return &MetricsEventHandler{
		metrics: metrics,
		logger:  logger,
	}
}

// EventTypes returns the event types this handler subscribes to.
func (h *MetricsEventHandler) EventTypes() []string {
	return []string{"JournalEntryPosted", "TaxLiabilityAccrued"}
}

// Handle records the metric matching the event. Unknown event types are
// ignored so an over-broad subscription never fails delivery.
func (h *MetricsEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *ledger.JournalEntryPostedEvent:
		h.metrics.RecordEntryPosted(ctx, e.TenantID(), string(e.EntryType))
	case *tax.TaxLiabilityAccruedEvent:
		h.metrics.RecordTaxAccrued(ctx, e.TenantID(), string(tax.TaxTypeVAT), string(e.Direction), e.Amount)
	default:
		h.logger.Debug("metrics handler received unhandled event type",
			zap.String("event_type", event.EventType()),
		)
	}
	return nil
}

// Ensure MetricsEventHandler implements EventHandler
var _ shared.EventHandler = (*MetricsEventHandler)(nil)
