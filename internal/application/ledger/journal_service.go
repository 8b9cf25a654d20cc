package ledger

import (
	"context"
	"time"

	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/finbooks/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxPostingRetries bounds retries of a posting that failed on a transient
// concurrency conflict. Validation and state errors are never retried.
const maxPostingRetries = 3

// JournalService drives the journal entry state machine and the ledger
// projection. Posting and reversal run inside a PostingScope transaction;
// domain events publish only after the transaction commits.
type JournalService struct {
	scope     PostingScope
	projector *ledger.Projector
	publisher shared.EventPublisher
	cache     BalanceCache
	logger    *zap.Logger
}

// NewJournalService creates a new JournalService
func NewJournalService(
	scope PostingScope,
	publisher shared.EventPublisher,
	cache BalanceCache,
	logger *zap.Logger,
) *JournalService {
	return &JournalService{
		scope:     scope,
		projector: ledger.NewProjector(),
		publisher: publisher,
		cache:     cache,
		logger:    logger,
	}
}

// JournalLineRequest carries one line of a new journal entry
type JournalLineRequest struct {
	AccountID uuid.UUID       `json:"account_id" binding:"required"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Memo      string          `json:"memo,omitempty"`
}

// CreateEntryRequest carries the inputs for creating a draft entry
type CreateEntryRequest struct {
	EntryType   string               `json:"entry_type" binding:"required"`
	EntryDate   time.Time            `json:"entry_date" binding:"required"`
	Description string               `json:"description,omitempty"`
	Reference   string               `json:"reference,omitempty"`
	Lines       []JournalLineRequest `json:"lines" binding:"required,min=2"`
}

// JournalLineResponse represents a journal line in API responses
type JournalLineResponse struct {
	ID        uuid.UUID       `json:"id"`
	AccountID uuid.UUID       `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Memo      string          `json:"memo,omitempty"`
}

// JournalEntryResponse represents a journal entry in API responses
type JournalEntryResponse struct {
	ID           uuid.UUID             `json:"id"`
	TenantID     uuid.UUID             `json:"tenant_id"`
	EntryNumber  string                `json:"entry_number"`
	EntryType    string                `json:"entry_type"`
	Status       string                `json:"status"`
	EntryDate    time.Time             `json:"entry_date"`
	FiscalYear   int                   `json:"fiscal_year"`
	Description  string                `json:"description,omitempty"`
	Reference    string                `json:"reference,omitempty"`
	Lines        []JournalLineResponse `json:"lines"`
	TotalDebits  decimal.Decimal       `json:"total_debits"`
	TotalCredits decimal.Decimal       `json:"total_credits"`
	PostedAt     *time.Time            `json:"posted_at,omitempty"`
	ReversedAt   *time.Time            `json:"reversed_at,omitempty"`
	ReversalOfID *uuid.UUID            `json:"reversal_of_id,omitempty"`
	ReversedByID *uuid.UUID            `json:"reversed_by_id,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	Version      int                   `json:"version"`
}

// JournalEntryListFilter defines filtering options for entry list queries
type JournalEntryListFilter struct {
	Search     string     `form:"search"`
	Status     string     `form:"status"`
	EntryType  string     `form:"entry_type"`
	AccountID  *uuid.UUID `form:"account_id"`
	FiscalYear *int       `form:"fiscal_year"`
	FromDate   *time.Time `form:"from_date"`
	ToDate     *time.Time `form:"to_date"`
	Page       int        `form:"page"`
	PageSize   int        `form:"page_size"`
}

func toEntryResponse(e *ledger.JournalEntry) *JournalEntryResponse {
	lines := make([]JournalLineResponse, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = JournalLineResponse{
			ID:        l.ID,
			AccountID: l.AccountID,
			Debit:     l.Debit,
			Credit:    l.Credit,
			Memo:      l.Memo,
		}
	}
	return &JournalEntryResponse{
		ID:           e.ID,
		TenantID:     e.TenantID,
		EntryNumber:  e.EntryNumber,
		EntryType:    e.EntryType.String(),
		Status:       e.Status.String(),
		EntryDate:    e.EntryDate,
		FiscalYear:   e.FiscalYear,
		Description:  e.Description,
		Reference:    e.Reference,
		Lines:        lines,
		TotalDebits:  e.TotalDebits(),
		TotalCredits: e.TotalCredits(),
		PostedAt:     e.PostedAt,
		ReversedAt:   e.ReversedAt,
		ReversalOfID: e.ReversalOfID,
		ReversedByID: e.ReversedByID,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
		Version:      e.Version,
	}
}

// CreateEntry creates a draft journal entry. The entry number is allocated
// here, at creation time; a draft later deleted leaves a gap in the sequence,
// which is accepted.
func (s *JournalService) CreateEntry(ctx context.Context, tenantID uuid.UUID, req CreateEntryRequest) (*JournalEntryResponse, error) {
	entryType := ledger.EntryType(req.EntryType)
	if !entryType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Invalid entry type")
	}

	var created *ledger.JournalEntry
	err := s.scope.Execute(ctx, func(repos PostingRepositories) error {
		period, err := repos.PeriodRepo().FindByDate(ctx, tenantID, req.EntryDate)
		if err != nil {
			return err
		}
		if period == nil {
			return shared.NewDomainError("VALIDATION_ERROR", "No accounting period covers the entry date")
		}
		if err := period.EnsureAcceptsPosting(req.EntryDate); err != nil {
			return err
		}

		lines, err := s.buildLines(ctx, repos, tenantID, entryType, req.Lines)
		if err != nil {
			return err
		}

		fiscalYear := req.EntryDate.Year()
		seq, err := repos.SequenceRepo().NextSequence(ctx, tenantID, fiscalYear)
		if err != nil {
			return err
		}

		entry, err := ledger.NewJournalEntry(
			tenantID,
			ledger.FormatEntryNumber(fiscalYear, seq),
			entryType,
			req.EntryDate,
			fiscalYear,
			req.Description,
			req.Reference,
			lines,
		)
		if err != nil {
			return err
		}

		if err := repos.EntryRepo().Save(ctx, entry); err != nil {
			return err
		}
		created = entry
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, created)
	return toEntryResponse(created), nil
}

// buildLines validates every referenced account and converts request lines
func (s *JournalService) buildLines(ctx context.Context, repos PostingRepositories, tenantID uuid.UUID, entryType ledger.EntryType, reqLines []JournalLineRequest) ([]ledger.JournalLine, error) {
	accountIDs := make([]uuid.UUID, 0, len(reqLines))
	seen := make(map[uuid.UUID]struct{}, len(reqLines))
	for _, l := range reqLines {
		if _, ok := seen[l.AccountID]; !ok {
			seen[l.AccountID] = struct{}{}
			accountIDs = append(accountIDs, l.AccountID)
		}
	}

	accounts, err := repos.AccountRepo().FindByIDs(ctx, tenantID, accountIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*ledger.Account, len(accounts))
	for i := range accounts {
		byID[accounts[i].ID] = &accounts[i]
	}

	lines := make([]ledger.JournalLine, 0, len(reqLines))
	for _, l := range reqLines {
		account, ok := byID[l.AccountID]
		if !ok {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "Journal line references an unknown account")
		}
		if err := account.CanAcceptLine(entryType); err != nil {
			return nil, err
		}
		line := ledger.JournalLine{
			ID:        uuid.New(),
			AccountID: l.AccountID,
			Debit:     l.Debit,
			Credit:    l.Credit,
			Memo:      l.Memo,
		}
		if err := line.Validate(); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// GetEntry gets a journal entry by ID
func (s *JournalService) GetEntry(ctx context.Context, tenantID, id uuid.UUID) (*JournalEntryResponse, error) {
	var entry *ledger.JournalEntry
	err := s.scope.Execute(ctx, func(repos PostingRepositories) error {
		found, err := repos.EntryRepo().FindByIDForTenant(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if found == nil {
			return shared.NewDomainError("NOT_FOUND", "Journal entry not found")
		}
		entry = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toEntryResponse(entry), nil
}

// ListEntries lists journal entries with filtering
func (s *JournalService) ListEntries(ctx context.Context, tenantID uuid.UUID, filter JournalEntryListFilter) ([]JournalEntryResponse, int64, error) {
	domainFilter := ledger.JournalEntryFilter{
		AccountID:  filter.AccountID,
		FiscalYear: filter.FiscalYear,
		FromDate:   filter.FromDate,
		ToDate:     filter.ToDate,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Search = filter.Search

	if filter.Status != "" {
		status := ledger.EntryStatus(filter.Status)
		domainFilter.Status = &status
	}
	if filter.EntryType != "" {
		entryType := ledger.EntryType(filter.EntryType)
		domainFilter.EntryType = &entryType
	}

	var entries []ledger.JournalEntry
	var total int64
	err := s.scope.Execute(ctx, func(repos PostingRepositories) error {
		var err error
		entries, err = repos.EntryRepo().FindAllForTenant(ctx, tenantID, domainFilter)
		if err != nil {
			return err
		}
		total, err = repos.EntryRepo().CountForTenant(ctx, tenantID, domainFilter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	responses := make([]JournalEntryResponse, len(entries))
	for i := range entries {
		responses[i] = *toEntryResponse(&entries[i])
	}
	return responses, total, nil
}

// PostEntry commits a draft entry into the ledger. The whole posting is one
// transaction: status transition, every bucket upsert, and the integrity
// check either all commit or all roll back, leaving the entry in draft.
// Transient lock conflicts retry up to maxPostingRetries times.
func (s *JournalService) PostEntry(ctx context.Context, tenantID, id uuid.UUID) (*JournalEntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "journal_entry", "post")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryID, id.String(),
	)

	var posted *ledger.JournalEntry
	err := s.withRetry(ctx, func() error {
		posted = nil
		return s.scope.Execute(ctx, func(repos PostingRepositories) error {
			entry, err := s.postWithin(ctx, repos, tenantID, id)
			if err != nil {
				return err
			}
			posted = entry
			return nil
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryNumber, posted.EntryNumber,
		telemetry.SpanAttrEntryType, posted.EntryType.String(),
		telemetry.SpanAttrLineCount, len(posted.Lines),
	)

	s.afterPosting(ctx, posted)
	return toEntryResponse(posted), nil
}

// postWithin performs the posting steps inside an open transaction
func (s *JournalService) postWithin(ctx context.Context, repos PostingRepositories, tenantID, id uuid.UUID) (*ledger.JournalEntry, error) {
	entry, err := repos.EntryRepo().FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Journal entry not found")
	}

	period, err := repos.PeriodRepo().FindByDate(ctx, tenantID, entry.EntryDate)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "No accounting period covers the entry date")
	}
	if err := period.EnsureAcceptsPosting(entry.EntryDate); err != nil {
		return nil, err
	}

	if err := entry.MarkPosted(); err != nil {
		return nil, err
	}

	if err := s.project(ctx, repos, entry, period); err != nil {
		return nil, err
	}

	if err := repos.EntryRepo().SaveWithLock(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// project folds the entry into its ledger buckets under row locks and runs
// the post-projection integrity check.
func (s *JournalService) project(ctx context.Context, repos PostingRepositories, entry *ledger.JournalEntry, period *ledger.AccountingPeriod) error {
	lookup := func(accountID uuid.UUID) (*ledger.GeneralLedgerEntry, error) {
		bucket, err := repos.LedgerRepo().FindBucketForUpdate(ctx, entry.TenantID, accountID, period.ID)
		if err == nil && bucket != nil {
			return bucket, nil
		}
		if err != nil && !shared.IsDomainErrorWithCode(err, "NOT_FOUND") {
			return nil, err
		}
		opening, err := s.priorClosing(ctx, repos, entry.TenantID, accountID, period)
		if err != nil {
			return nil, err
		}
		return ledger.NewGeneralLedgerEntry(entry.TenantID, accountID, period.ID, opening), nil
	}

	touched, err := s.projector.ApplyEntry(entry, lookup)
	if err != nil {
		return err
	}
	if err := s.projector.VerifyBalanced(entry); err != nil {
		// Integrity failures are fatal: roll back and surface, never adjust.
		s.logger.Error("ledger integrity check failed",
			zap.String("tenant_id", entry.TenantID.String()),
			zap.String("entry_number", entry.EntryNumber),
			zap.Error(err),
		)
		return err
	}
	return repos.LedgerRepo().SaveAll(ctx, touched)
}

// priorClosing finds the closing balance carried into this period for a
// freshly created bucket. A period with no bucket for the account means no
// activity that period, so the walk continues into the period before it
// until a bucket is found or the first period is reached.
func (s *JournalService) priorClosing(ctx context.Context, repos PostingRepositories, tenantID, accountID uuid.UUID, period *ledger.AccountingPeriod) (decimal.Decimal, error) {
	cursor := period
	for {
		previous, err := repos.PeriodRepo().FindPrevious(ctx, tenantID, cursor)
		if err != nil {
			if shared.IsDomainErrorWithCode(err, "NOT_FOUND") {
				return decimal.Zero, nil
			}
			return decimal.Zero, err
		}
		if previous == nil {
			return decimal.Zero, nil
		}
		bucket, err := repos.LedgerRepo().FindBucket(ctx, tenantID, accountID, previous.ID)
		if err != nil && !shared.IsDomainErrorWithCode(err, "NOT_FOUND") {
			return decimal.Zero, err
		}
		if bucket != nil {
			return bucket.ClosingBalance, nil
		}
		cursor = previous
	}
}

// ReverseEntry posts a compensating entry for a posted entry and flags the
// original reversed, all in one transaction.
func (s *JournalService) ReverseEntry(ctx context.Context, tenantID, id uuid.UUID, reversalDate time.Time) (*JournalEntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "journal_entry", "reverse")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryID, id.String(),
	)

	var original, reversal *ledger.JournalEntry
	err := s.withRetry(ctx, func() error {
		original, reversal = nil, nil
		return s.scope.Execute(ctx, func(repos PostingRepositories) error {
			entry, err := repos.EntryRepo().FindByIDForTenant(ctx, tenantID, id)
			if err != nil {
				return err
			}
			if entry == nil {
				return shared.NewDomainError("NOT_FOUND", "Journal entry not found")
			}

			period, err := repos.PeriodRepo().FindByDate(ctx, tenantID, reversalDate)
			if err != nil {
				return err
			}
			if period == nil {
				return shared.NewDomainError("VALIDATION_ERROR", "No accounting period covers the reversal date")
			}
			if err := period.EnsureAcceptsPosting(reversalDate); err != nil {
				return err
			}

			fiscalYear := reversalDate.Year()
			seq, err := repos.SequenceRepo().NextSequence(ctx, tenantID, fiscalYear)
			if err != nil {
				return err
			}

			rev, err := entry.BuildReversal(ledger.FormatEntryNumber(fiscalYear, seq), reversalDate, fiscalYear)
			if err != nil {
				return err
			}
			if err := rev.MarkPosted(); err != nil {
				return err
			}
			if err := s.project(ctx, repos, rev, period); err != nil {
				return err
			}
			if err := repos.EntryRepo().Save(ctx, rev); err != nil {
				return err
			}

			if err := entry.MarkReversed(rev.ID); err != nil {
				return err
			}
			if err := repos.EntryRepo().SaveWithLock(ctx, entry); err != nil {
				return err
			}

			original, reversal = entry, rev
			return nil
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryNumber, reversal.EntryNumber,
	)

	s.afterPosting(ctx, reversal)
	s.publishEvents(ctx, original)
	return toEntryResponse(reversal), nil
}

// DeleteEntry deletes a draft entry. Posted and reversed entries are
// append-only and can only be reversed.
func (s *JournalService) DeleteEntry(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.scope.Execute(ctx, func(repos PostingRepositories) error {
		entry, err := repos.EntryRepo().FindByIDForTenant(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if entry == nil {
			return shared.NewDomainError("NOT_FOUND", "Journal entry not found")
		}
		if err := entry.CanDelete(); err != nil {
			return err
		}
		return repos.EntryRepo().DeleteForTenant(ctx, tenantID, id)
	})
}

// withRetry retries fn on transient concurrency conflicts
func (s *JournalService) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxPostingRetries; attempt++ {
		err = fn()
		if err == nil || !shared.IsRetryable(err) {
			return err
		}
		s.logger.Warn("posting hit concurrency conflict, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
	}
	return err
}

// afterPosting runs post-commit side effects: events and cache invalidation
func (s *JournalService) afterPosting(ctx context.Context, entry *ledger.JournalEntry) {
	if entry == nil {
		return
	}
	s.publishEvents(ctx, entry)
	if s.cache != nil {
		if err := s.cache.InvalidateTenant(ctx, entry.TenantID); err != nil {
			s.logger.Warn("balance cache invalidation failed",
				zap.String("tenant_id", entry.TenantID.String()),
				zap.Error(err),
			)
		}
	}
}

// publishEvents publishes an aggregate's pending domain events after commit
func (s *JournalService) publishEvents(ctx context.Context, entry *ledger.JournalEntry) {
	if s.publisher == nil || entry == nil {
		return
	}
	events := entry.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish journal events",
			zap.String("entry_number", entry.EntryNumber),
			zap.Error(err),
		)
	}
	entry.ClearDomainEvents()
}
