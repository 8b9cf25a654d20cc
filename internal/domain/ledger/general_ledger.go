package ledger

import (
	"fmt"
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GeneralLedgerEntry is the running balance bucket for one account within one
// accounting period. There is exactly one bucket per (tenant, account, period);
// it is created lazily the first time an entry posts into the period.
//
// All balances are stored debit-positive: closing = opening + debits - credits
// regardless of the account's normal balance. Reports flip the sign for
// credit-normal accounts at presentation time, so the arithmetic here never
// branches on account type.
type GeneralLedgerEntry struct {
	shared.TenantAggregateRoot
	AccountID      uuid.UUID       `json:"account_id"`
	PeriodID       uuid.UUID       `json:"period_id"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	DebitTotal     decimal.Decimal `json:"debit_total"`
	CreditTotal    decimal.Decimal `json:"credit_total"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	// AppliedEntryIDs records which journal entries have already contributed to
	// this bucket, making projection idempotent under replay.
	AppliedEntryIDs AppliedEntrySet `json:"applied_entry_ids"`
}

// NewGeneralLedgerEntry creates a bucket seeded with the prior period's
// closing balance (or zero for the first period an account appears in).
func NewGeneralLedgerEntry(tenantID, accountID, periodID uuid.UUID, openingBalance decimal.Decimal) *GeneralLedgerEntry {
	return &GeneralLedgerEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		AccountID:           accountID,
		PeriodID:            periodID,
		OpeningBalance:      openingBalance,
		DebitTotal:          decimal.Zero,
		CreditTotal:         decimal.Zero,
		ClosingBalance:      openingBalance,
		AppliedEntryIDs:     AppliedEntrySet{},
	}
}

// HasApplied reports whether the given journal entry already contributed
func (g *GeneralLedgerEntry) HasApplied(entryID uuid.UUID) bool {
	return g.AppliedEntryIDs.Contains(entryID)
}

// Apply accumulates one journal line of the given entry into the bucket and
// recomputes the closing balance. Applying the same entry twice is rejected by
// the projector before this is called.
func (g *GeneralLedgerEntry) Apply(entryID uuid.UUID, debit, credit decimal.Decimal) {
	g.DebitTotal = g.DebitTotal.Add(debit)
	g.CreditTotal = g.CreditTotal.Add(credit)
	g.ClosingBalance = g.OpeningBalance.Add(g.DebitTotal).Sub(g.CreditTotal)
	g.AppliedEntryIDs.Add(entryID)
	g.UpdatedAt = time.Now()
	g.IncrementVersion()
}

// PeriodMovement returns the net debit-positive movement within the period
func (g *GeneralLedgerEntry) PeriodMovement() decimal.Decimal {
	return g.DebitTotal.Sub(g.CreditTotal)
}

// Projector maintains general ledger buckets from posted journal entries.
// It is a pure domain service: callers supply the buckets (loaded and locked
// inside the posting transaction) and persist the results; the projector only
// decides how lines fold into balances.
type Projector struct{}

// NewProjector creates a ledger projector
func NewProjector() *Projector {
	return &Projector{}
}

// BucketLookup resolves the bucket for an account, creating it when absent.
// Implementations seed new buckets from the prior period's closing balance.
type BucketLookup func(accountID uuid.UUID) (*GeneralLedgerEntry, error)

// ApplyEntry folds every line of a posted entry into its account bucket.
// The operation is idempotent: an entry already recorded in a bucket is
// skipped for that bucket, so replaying a posted entry is a no-op.
// Returns the set of buckets that were touched (for saving and verification).
func (p *Projector) ApplyEntry(entry *JournalEntry, lookup BucketLookup) ([]*GeneralLedgerEntry, error) {
	if entry.Status != EntryStatusPosted && entry.Status != EntryStatusReversed {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot project entry %s in %s status", entry.EntryNumber, entry.Status))
	}

	touched := make(map[uuid.UUID]*GeneralLedgerEntry)
	order := make([]uuid.UUID, 0, len(entry.Lines))

	for _, line := range entry.Lines {
		bucket, ok := touched[line.AccountID]
		if !ok {
			var err error
			bucket, err = lookup(line.AccountID)
			if err != nil {
				return nil, err
			}
			if bucket.HasApplied(entry.ID) {
				// Replay of an already-projected entry: skip this bucket entirely.
				continue
			}
			touched[line.AccountID] = bucket
			order = append(order, line.AccountID)
		}
		bucket.DebitTotal = bucket.DebitTotal.Add(line.Debit)
		bucket.CreditTotal = bucket.CreditTotal.Add(line.Credit)
	}

	result := make([]*GeneralLedgerEntry, 0, len(order))
	for _, accountID := range order {
		bucket := touched[accountID]
		bucket.ClosingBalance = bucket.OpeningBalance.Add(bucket.DebitTotal).Sub(bucket.CreditTotal)
		bucket.AppliedEntryIDs.Add(entry.ID)
		bucket.UpdatedAt = time.Now()
		bucket.IncrementVersion()
		result = append(result, bucket)
	}
	return result, nil
}

// VerifyBalanced checks that the debit-positive closing balances of the given
// buckets plus the entry totals still cancel out. A mismatch indicates a
// projector bug or a locking violation and must halt the posting.
func (p *Projector) VerifyBalanced(entry *JournalEntry) error {
	if !entry.TotalDebits().Equal(entry.TotalCredits()) {
		return shared.NewDomainError("LEDGER_INTEGRITY",
			fmt.Sprintf("Posted entry %s no longer balances: debits %s, credits %s",
				entry.EntryNumber, entry.TotalDebits().StringFixed(2), entry.TotalCredits().StringFixed(2)))
	}
	return nil
}
