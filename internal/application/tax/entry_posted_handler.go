package tax

import (
	"context"

	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/domain/tax"
	"go.uber.org/zap"
)

// EntryPostedHandler feeds tax-relevant journal postings into the accrual
// engine. It subscribes to the event bus so accrual runs after the posting
// transaction commits, never inside it; a failed accrual is retried through
// event redelivery once the idempotency key expires.
type EntryPostedHandler struct {
	accruals *AccrualService
	logger   *zap.Logger
}

// NewEntryPostedHandler creates a new EntryPostedHandler.
func NewEntryPostedHandler(accruals *AccrualService, logger *zap.Logger) *EntryPostedHandler {
	return &EntryPostedHandler{
		accruals: accruals,
		logger:   logger,
	}
}

// EventTypes returns the event types this handler subscribes to.
func (h *EntryPostedHandler) EventTypes() []string {
	return []string{"JournalEntryPosted"}
}

// Handle accrues VAT for a posted sale or purchase entry. All other entry
// types pass through untouched, including the TAX entries the accrual engine
// posts itself.
func (h *EntryPostedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*ledger.JournalEntryPostedEvent)
	if !ok {
		return nil
	}
	if !e.EntryType.IsTaxRelevant() {
		return nil
	}
	if e.Reversal {
		// The reversal compensates an entry that already accrued; the
		// liability is settled through the filing flow, not re-accrued.
		h.logger.Debug("skipping tax accrual for reversal entry",
			zap.String("entry_number", e.EntryNumber),
		)
		return nil
	}

	var kind tax.SourceKind
	switch e.EntryType {
	case ledger.EntryTypeSale:
		kind = tax.SourceKindSale
	case ledger.EntryTypePurchase:
		kind = tax.SourceKindPurchase
	default:
		return nil
	}

	// The posted entry records the gross amount; total debits equal total
	// credits on a posted entry, so either side is the transaction value.
	_, err := h.accruals.OnTransactionPosted(ctx, e.TenantID(), SourceTransactionRequest{
		Kind:         kind.String(),
		SourceID:     e.EntryID,
		SourceNumber: e.EntryNumber,
		Amount:       e.TotalDebits,
		TaxInclusive: true,
		Date:         e.EntryDate,
	})
	if err != nil {
		h.logger.Error("tax accrual for posted entry failed",
			zap.String("entry_number", e.EntryNumber),
			zap.String("entry_type", e.EntryType.String()),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Ensure EntryPostedHandler implements EventHandler
var _ shared.EventHandler = (*EntryPostedHandler)(nil)
