package ledger

import (
	"fmt"
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryStatus represents the lifecycle state of a journal entry
type EntryStatus string

const (
	EntryStatusDraft    EntryStatus = "DRAFT"    // Editable, not yet in the ledger
	EntryStatusPosted   EntryStatus = "POSTED"   // Committed to the ledger, immutable
	EntryStatusReversed EntryStatus = "REVERSED" // Posted and later reversed by a new entry
)

// IsValid checks if the status is a valid EntryStatus
func (s EntryStatus) IsValid() bool {
	switch s {
	case EntryStatusDraft, EntryStatusPosted, EntryStatusReversed:
		return true
	}
	return false
}

// String returns the string representation of EntryStatus
func (s EntryStatus) String() string {
	return string(s)
}

// IsTerminal returns true once no further transition is possible
func (s EntryStatus) IsTerminal() bool {
	return s == EntryStatusReversed
}

// EntryType classifies the business origin of a journal entry
type EntryType string

const (
	EntryTypeManual     EntryType = "MANUAL"
	EntryTypeSale       EntryType = "SALE"
	EntryTypePurchase   EntryType = "PURCHASE"
	EntryTypePayment    EntryType = "PAYMENT"
	EntryTypeAdjustment EntryType = "ADJUSTMENT"
	EntryTypeTax        EntryType = "TAX"     // Accrual entries generated by the tax engine
	EntryTypeClosing    EntryType = "CLOSING" // Manual year-end and consolidation adjustments
)

// IsValid checks if the entry type is valid
func (t EntryType) IsValid() bool {
	switch t {
	case EntryTypeManual, EntryTypeSale, EntryTypePurchase,
		EntryTypePayment, EntryTypeAdjustment, EntryTypeTax, EntryTypeClosing:
		return true
	}
	return false
}

// String returns the string representation of EntryType
func (t EntryType) String() string {
	return string(t)
}

// IsTaxRelevant returns true for entry types the tax engine must be told about
func (t EntryType) IsTaxRelevant() bool {
	return t == EntryTypeSale || t == EntryTypePurchase
}

// JournalLine is a single debit or credit within a journal entry.
// Exactly one of Debit/Credit is nonzero and positive.
type JournalLine struct {
	ID        uuid.UUID       `json:"id"`
	AccountID uuid.UUID       `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Memo      string          `json:"memo,omitempty"`
}

// NewDebitLine creates a journal line debiting the given account
func NewDebitLine(accountID uuid.UUID, amount decimal.Decimal, memo string) JournalLine {
	return JournalLine{
		ID:        uuid.New(),
		AccountID: accountID,
		Debit:     amount,
		Credit:    decimal.Zero,
		Memo:      memo,
	}
}

// NewCreditLine creates a journal line crediting the given account
func NewCreditLine(accountID uuid.UUID, amount decimal.Decimal, memo string) JournalLine {
	return JournalLine{
		ID:        uuid.New(),
		AccountID: accountID,
		Debit:     decimal.Zero,
		Credit:    amount,
		Memo:      memo,
	}
}

// Validate checks the single-sided positive-amount invariant
func (l JournalLine) Validate() error {
	if l.AccountID == uuid.Nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Journal line must reference an account")
	}
	debitSet := l.Debit.IsPositive()
	creditSet := l.Credit.IsPositive()
	if l.Debit.IsNegative() || l.Credit.IsNegative() {
		return shared.NewDomainError("VALIDATION_ERROR", "Journal line amounts cannot be negative")
	}
	if debitSet == creditSet {
		return shared.NewDomainError("VALIDATION_ERROR",
			"Journal line must have exactly one of debit or credit set to a positive amount")
	}
	if !l.Debit.Equal(l.Debit.Truncate(2)) || !l.Credit.Equal(l.Credit.Truncate(2)) {
		return shared.NewDomainError("VALIDATION_ERROR",
			"Journal line amounts cannot be more precise than the minor currency unit")
	}
	return nil
}

// Amount returns the nonzero side of the line
func (l JournalLine) Amount() decimal.Decimal {
	if l.Debit.IsPositive() {
		return l.Debit
	}
	return l.Credit
}

// Side returns which side of the ledger the line hits
func (l JournalLine) Side() BalanceSide {
	if l.Debit.IsPositive() {
		return BalanceSideDebit
	}
	return BalanceSideCredit
}

// Swapped returns a copy of the line with debit and credit exchanged,
// used when building reversal entries.
func (l JournalLine) Swapped() JournalLine {
	return JournalLine{
		ID:        uuid.New(),
		AccountID: l.AccountID,
		Debit:     l.Credit,
		Credit:    l.Debit,
		Memo:      l.Memo,
	}
}

// JournalEntry represents one balanced business event as a set of journal lines.
// Entries move draft -> posted -> reversed; posted entries are immutable and
// can only be undone by posting a compensating reversal entry.
type JournalEntry struct {
	shared.TenantAggregateRoot
	EntryNumber string        `json:"entry_number"` // e.g. JRN-2026-000042, unique per tenant+fiscal year
	EntryType   EntryType     `json:"entry_type"`
	Status      EntryStatus   `json:"status"`
	EntryDate   time.Time     `json:"entry_date"`
	FiscalYear  int           `json:"fiscal_year"`
	Description string        `json:"description,omitempty"`
	Reference   string        `json:"reference,omitempty"` // External document number
	Lines       []JournalLine `json:"lines"`
	PostedAt    *time.Time    `json:"posted_at,omitempty"`
	ReversedAt  *time.Time    `json:"reversed_at,omitempty"`
	// ReversalOfID links a reversal entry back to the entry it compensates;
	// ReversedByID links the original forward to its reversal.
	ReversalOfID *uuid.UUID `json:"reversal_of_id,omitempty"`
	ReversedByID *uuid.UUID `json:"reversed_by_id,omitempty"`
}

// NewJournalEntry creates a draft journal entry. The entry number is allocated
// by the caller from the per-tenant fiscal-year sequence before construction.
func NewJournalEntry(
	tenantID uuid.UUID,
	entryNumber string,
	entryType EntryType,
	entryDate time.Time,
	fiscalYear int,
	description string,
	reference string,
	lines []JournalLine,
) (*JournalEntry, error) {
	if entryNumber == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Entry number cannot be empty")
	}
	if !entryType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Invalid entry type: %s", entryType))
	}
	if entryDate.IsZero() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Entry date is required")
	}

	e := &JournalEntry{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		EntryNumber:         entryNumber,
		EntryType:           entryType,
		Status:              EntryStatusDraft,
		EntryDate:           entryDate,
		FiscalYear:          fiscalYear,
		Description:         description,
		Reference:           reference,
		Lines:               lines,
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}

	e.AddDomainEvent(NewJournalEntryCreatedEvent(e))

	return e, nil
}

// Validate checks the structural invariants of the entry: at least two lines,
// each line well formed, no duplicate line IDs.
func (e *JournalEntry) Validate() error {
	if len(e.Lines) < 2 {
		return shared.NewDomainError("VALIDATION_ERROR", "Journal entry requires at least two lines")
	}
	seen := make(map[uuid.UUID]struct{}, len(e.Lines))
	for i, line := range e.Lines {
		if err := line.Validate(); err != nil {
			return shared.NewDomainError("VALIDATION_ERROR",
				fmt.Sprintf("Line %d: %s", i+1, err.Error()))
		}
		if _, dup := seen[line.ID]; dup {
			return shared.NewDomainError("VALIDATION_ERROR", "Journal entry contains duplicate line IDs")
		}
		seen[line.ID] = struct{}{}
	}
	return nil
}

// TotalDebits returns the sum of all debit amounts
func (e *JournalEntry) TotalDebits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Debit)
	}
	return total
}

// TotalCredits returns the sum of all credit amounts
func (e *JournalEntry) TotalCredits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Credit)
	}
	return total
}

// IsBalanced reports whether debits equal credits exactly at minor-unit
// precision. There is no tolerance: a one-cent mismatch is a validation error,
// never silently rounded away.
func (e *JournalEntry) IsBalanced() bool {
	return e.TotalDebits().Equal(e.TotalCredits())
}

// CanPost returns an error describing why the entry cannot be posted, or nil
func (e *JournalEntry) CanPost() error {
	if e.Status != EntryStatusDraft {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Only draft entries can be posted; entry %s is %s", e.EntryNumber, e.Status))
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if !e.IsBalanced() {
		return shared.NewDomainError("UNBALANCED_ENTRY",
			fmt.Sprintf("Entry %s does not balance: debits %s, credits %s",
				e.EntryNumber, e.TotalDebits().StringFixed(2), e.TotalCredits().StringFixed(2)))
	}
	return nil
}

// MarkPosted transitions the entry from draft to posted
func (e *JournalEntry) MarkPosted() error {
	if err := e.CanPost(); err != nil {
		return err
	}
	now := time.Now()
	e.Status = EntryStatusPosted
	e.PostedAt = &now
	e.UpdatedAt = now
	e.IncrementVersion()
	e.AddDomainEvent(NewJournalEntryPostedEvent(e))
	return nil
}

// BuildReversal creates a new draft entry with every line's debit and credit
// swapped, dated at the given reversal date. The returned entry still needs to
// be posted; the original is marked reversed via MarkReversed once the
// reversal posts.
func (e *JournalEntry) BuildReversal(entryNumber string, reversalDate time.Time, fiscalYear int) (*JournalEntry, error) {
	if e.Status != EntryStatusPosted {
		return nil, shared.NewDomainError("CONFLICT",
			fmt.Sprintf("Only posted entries can be reversed; entry %s is %s", e.EntryNumber, e.Status))
	}
	if e.ReversedByID != nil {
		return nil, shared.NewDomainError("CONFLICT",
			fmt.Sprintf("Entry %s has already been reversed", e.EntryNumber))
	}

	lines := make([]JournalLine, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = l.Swapped()
	}

	reversal, err := NewJournalEntry(
		e.TenantID,
		entryNumber,
		e.EntryType,
		reversalDate,
		fiscalYear,
		fmt.Sprintf("Reversal of %s", e.EntryNumber),
		e.Reference,
		lines,
	)
	if err != nil {
		return nil, err
	}
	originalID := e.ID
	reversal.ReversalOfID = &originalID
	return reversal, nil
}

// MarkReversed flags a posted entry as reversed by the given reversal entry
func (e *JournalEntry) MarkReversed(reversalID uuid.UUID) error {
	if e.Status != EntryStatusPosted {
		return shared.NewDomainError("CONFLICT",
			fmt.Sprintf("Only posted entries can be marked reversed; entry %s is %s", e.EntryNumber, e.Status))
	}
	if e.ReversedByID != nil {
		return shared.NewDomainError("CONFLICT",
			fmt.Sprintf("Entry %s has already been reversed", e.EntryNumber))
	}
	now := time.Now()
	e.Status = EntryStatusReversed
	e.ReversedAt = &now
	e.ReversedByID = &reversalID
	e.UpdatedAt = now
	e.IncrementVersion()
	e.AddDomainEvent(NewJournalEntryReversedEvent(e, reversalID))
	return nil
}

// CanDelete returns nil only for draft entries. Posted and reversed entries
// are append-only audit records and can never be deleted.
func (e *JournalEntry) CanDelete() error {
	if e.Status != EntryStatusDraft {
		return shared.NewDomainError("CONFLICT",
			fmt.Sprintf("Entry %s is %s and cannot be deleted; post a reversal instead", e.EntryNumber, e.Status))
	}
	return nil
}

// ReplaceLines swaps the draft's lines. Only legal while the entry is a draft.
func (e *JournalEntry) ReplaceLines(lines []JournalLine) error {
	if e.Status != EntryStatusDraft {
		return shared.NewDomainError("CONFLICT", "Posted entries are immutable")
	}
	old := e.Lines
	e.Lines = lines
	if err := e.Validate(); err != nil {
		e.Lines = old
		return err
	}
	e.UpdatedAt = time.Now()
	e.IncrementVersion()
	return nil
}

// AccountIDs returns the distinct accounts touched by this entry
func (e *JournalEntry) AccountIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(e.Lines))
	ids := make([]uuid.UUID, 0, len(e.Lines))
	for _, l := range e.Lines {
		if _, ok := seen[l.AccountID]; !ok {
			seen[l.AccountID] = struct{}{}
			ids = append(ids, l.AccountID)
		}
	}
	return ids
}

// IsReversal returns true if this entry compensates another entry
func (e *JournalEntry) IsReversal() bool {
	return e.ReversalOfID != nil
}

// FormatEntryNumber renders the canonical entry number for a sequence value,
// scoped to a fiscal year: JRN-<year>-<zero padded sequence>.
func FormatEntryNumber(fiscalYear int, seq int64) string {
	return fmt.Sprintf("JRN-%d-%06d", fiscalYear, seq)
}
