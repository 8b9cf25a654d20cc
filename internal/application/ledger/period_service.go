package ledger

import (
	"context"
	"time"

	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PeriodService manages accounting periods and the period close
type PeriodService struct {
	scope     PostingScope
	publisher shared.EventPublisher
	cache     BalanceCache
	logger    *zap.Logger
}

// NewPeriodService creates a new PeriodService
func NewPeriodService(
	scope PostingScope,
	publisher shared.EventPublisher,
	cache BalanceCache,
	logger *zap.Logger,
) *PeriodService {
	return &PeriodService{
		scope:     scope,
		publisher: publisher,
		cache:     cache,
		logger:    logger,
	}
}

// CreatePeriodRequest carries the inputs for opening an accounting period
type CreatePeriodRequest struct {
	FiscalYear int       `json:"fiscal_year" binding:"required"`
	Sequence   int       `json:"sequence" binding:"required,min=1"`
	Name       string    `json:"name" binding:"required"`
	StartDate  time.Time `json:"start_date" binding:"required"`
	EndDate    time.Time `json:"end_date" binding:"required"`
}

// PeriodResponse represents an accounting period in API responses
type PeriodResponse struct {
	ID         uuid.UUID  `json:"id"`
	TenantID   uuid.UUID  `json:"tenant_id"`
	FiscalYear int        `json:"fiscal_year"`
	Sequence   int        `json:"sequence"`
	Name       string     `json:"name"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    time.Time  `json:"end_date"`
	Status     string     `json:"status"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	Version    int        `json:"version"`
}

func toPeriodResponse(p *ledger.AccountingPeriod) *PeriodResponse {
	return &PeriodResponse{
		ID:         p.ID,
		TenantID:   p.TenantID,
		FiscalYear: p.FiscalYear,
		Sequence:   p.Sequence,
		Name:       p.Name,
		StartDate:  p.StartDate,
		EndDate:    p.EndDate,
		Status:     p.Status.String(),
		ClosedAt:   p.ClosedAt,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
		Version:    p.Version,
	}
}

// CreatePeriod opens a new accounting period. Periods may not overlap.
func (s *PeriodService) CreatePeriod(ctx context.Context, tenantID uuid.UUID, req CreatePeriodRequest) (*PeriodResponse, error) {
	var created *ledger.AccountingPeriod
	err := s.scope.Execute(ctx, func(repos PostingRepositories) error {
		overlaps, err := repos.PeriodRepo().ExistsOverlapping(ctx, tenantID, req.StartDate, req.EndDate)
		if err != nil {
			return err
		}
		if overlaps {
			return shared.NewDomainError("CONFLICT", "Period overlaps an existing accounting period")
		}

		period, err := ledger.NewAccountingPeriod(tenantID, req.FiscalYear, req.Sequence, req.Name, req.StartDate, req.EndDate)
		if err != nil {
			return err
		}
		if err := repos.PeriodRepo().Save(ctx, period); err != nil {
			return err
		}
		created = period
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toPeriodResponse(created), nil
}

// ListPeriods lists a tenant's accounting periods, oldest first
func (s *PeriodService) ListPeriods(ctx context.Context, tenantID uuid.UUID) ([]PeriodResponse, error) {
	var periods []ledger.AccountingPeriod
	err := s.scope.Execute(ctx, func(repos PostingRepositories) error {
		var err error
		periods, err = repos.PeriodRepo().FindAllForTenant(ctx, tenantID)
		return err
	})
	if err != nil {
		return nil, err
	}

	responses := make([]PeriodResponse, len(periods))
	for i := range periods {
		responses[i] = *toPeriodResponse(&periods[i])
	}
	return responses, nil
}

// ClosePeriod closes an accounting period. From then on every posting dated
// inside the period is rejected with PERIOD_CLOSED, and each account's frozen
// closing balance becomes the opening balance of its next bucket when one is
// created. Draft entries dated inside the period block the close; they must
// be posted or deleted.
func (s *PeriodService) ClosePeriod(ctx context.Context, tenantID, id uuid.UUID) (*PeriodResponse, error) {
	var closed *ledger.AccountingPeriod
	var buckets []ledger.GeneralLedgerEntry
	err := s.scope.Execute(ctx, func(repos PostingRepositories) error {
		period, err := repos.PeriodRepo().FindByIDForTenant(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if period == nil {
			return shared.NewDomainError("NOT_FOUND", "Accounting period not found")
		}

		draftStatus := ledger.EntryStatusDraft
		filter := ledger.JournalEntryFilter{
			Status:   &draftStatus,
			FromDate: &period.StartDate,
			ToDate:   &period.EndDate,
		}
		drafts, err := repos.EntryRepo().CountForTenant(ctx, tenantID, filter)
		if err != nil {
			return err
		}
		if drafts > 0 {
			return shared.NewDomainError("CONFLICT",
				"Period has draft entries; post or delete them before closing")
		}

		if err := period.Close(); err != nil {
			return err
		}
		if err := repos.PeriodRepo().SaveWithLock(ctx, period); err != nil {
			return err
		}
		buckets, err = repos.LedgerRepo().FindByPeriod(ctx, tenantID, period.ID)
		if err != nil {
			return err
		}
		closed = period
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateTenant(ctx, tenantID); err != nil {
			s.logger.Warn("balance cache invalidation failed after period close",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}
		// Warm the cache with the now-immutable closing balances so the first
		// balance read after the close skips the bucket walk.
		for i := range buckets {
			b := &buckets[i]
			if err := s.cache.SetClosedBalance(ctx, tenantID, b.AccountID, closed.ID, b.ClosingBalance); err != nil {
				s.logger.Warn("balance cache warm failed after period close",
					zap.String("tenant_id", tenantID.String()),
					zap.String("account_id", b.AccountID.String()),
					zap.Error(err),
				)
				break
			}
		}
	}
	if s.publisher != nil {
		events := closed.GetDomainEvents()
		if len(events) > 0 {
			if err := s.publisher.Publish(ctx, events...); err != nil {
				s.logger.Error("failed to publish period events", zap.Error(err))
			}
			closed.ClearDomainEvents()
		}
	}

	return toPeriodResponse(closed), nil
}
