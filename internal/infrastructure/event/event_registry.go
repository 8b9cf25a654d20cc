package event

import (
	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/tax"
)

// RegisterAllEvents registers all domain event types with the serializer.
// This is required for the OutboxProcessor to deserialize events from the
// outbox table.
func RegisterAllEvents(serializer Serializer) {
	// Ledger domain events
	serializer.Register("AccountCreated", &ledger.AccountCreatedEvent{})
	serializer.Register("AccountDeactivated", &ledger.AccountDeactivatedEvent{})
	serializer.Register("JournalEntryCreated", &ledger.JournalEntryCreatedEvent{})
	serializer.Register("JournalEntryPosted", &ledger.JournalEntryPostedEvent{})
	serializer.Register("JournalEntryReversed", &ledger.JournalEntryReversedEvent{})
	serializer.Register("PeriodClosed", &ledger.PeriodClosedEvent{})

	// Tax domain events
	serializer.Register("TaxLiabilityAccrued", &tax.TaxLiabilityAccruedEvent{})
	serializer.Register("TaxAccrualPending", &tax.TaxAccrualPendingEvent{})
	serializer.Register("TaxPeriodFiled", &tax.TaxPeriodFiledEvent{})
	serializer.Register("TaxPeriodPaid", &tax.TaxPeriodPaidEvent{})
}
