package ledger

import (
	"context"
	"time"

	"github.com/finbooks/backend/internal/domain/ledger"
	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceCache caches closed-period account balances. Closed periods are
// immutable, so cached values never go stale except when a period close
// rolls balances forward, at which point the service invalidates them.
type BalanceCache interface {
	// GetClosedBalance returns the cached closed-period balance, with a hit flag
	GetClosedBalance(ctx context.Context, tenantID, accountID, periodID uuid.UUID) (decimal.Decimal, bool, error)
	// SetClosedBalance caches the closed-period balance for an account
	SetClosedBalance(ctx context.Context, tenantID, accountID, periodID uuid.UUID, balance decimal.Decimal) error
	// InvalidateTenant drops all cached balances for a tenant
	InvalidateTenant(ctx context.Context, tenantID uuid.UUID) error
}

// AccountService provides application-level chart-of-accounts operations
type AccountService struct {
	accountRepo ledger.AccountRepository
	entryRepo   ledger.JournalEntryRepository
	ledgerRepo  ledger.GeneralLedgerRepository
	periodRepo  ledger.AccountingPeriodRepository
	cache       BalanceCache
}

// NewAccountService creates a new AccountService
func NewAccountService(
	accountRepo ledger.AccountRepository,
	entryRepo ledger.JournalEntryRepository,
	ledgerRepo ledger.GeneralLedgerRepository,
	periodRepo ledger.AccountingPeriodRepository,
	cache BalanceCache,
) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		ledgerRepo:  ledgerRepo,
		periodRepo:  periodRepo,
		cache:       cache,
	}
}

// CreateAccountRequest carries the inputs for creating an account
type CreateAccountRequest struct {
	Code        string     `json:"code" binding:"required,max=20"`
	Name        string     `json:"name" binding:"required,max=200"`
	Type        string     `json:"type" binding:"required"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	Description string     `json:"description,omitempty"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID                 uuid.UUID  `json:"id"`
	TenantID           uuid.UUID  `json:"tenant_id"`
	Code               string     `json:"code"`
	Name               string     `json:"name"`
	Type               string     `json:"type"`
	NormalBalance      string     `json:"normal_balance"`
	ParentID           *uuid.UUID `json:"parent_id,omitempty"`
	IsActive           bool       `json:"is_active"`
	AllowManualEntries bool       `json:"allow_manual_entries"`
	IsSystem           bool       `json:"is_system"`
	Description        string     `json:"description,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	Version            int        `json:"version"`
}

// AccountBalanceResponse carries a point-in-time account balance
type AccountBalanceResponse struct {
	AccountID uuid.UUID       `json:"account_id"`
	Code      string          `json:"code"`
	AsOf      time.Time       `json:"as_of"`
	// Balance is expressed in the account's normal-balance-positive sign:
	// a liability with credits exceeding debits reads positive.
	Balance decimal.Decimal `json:"balance"`
	Side    string          `json:"side"`
}

// AccountListFilter defines filtering options for account list queries
type AccountListFilter struct {
	Search     string `form:"search"`
	Type       string `form:"type"`
	IsActive   *bool  `form:"is_active"`
	CodePrefix string `form:"code_prefix"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

func toAccountResponse(a *ledger.Account) *AccountResponse {
	return &AccountResponse{
		ID:                 a.ID,
		TenantID:           a.TenantID,
		Code:               a.Code,
		Name:               a.Name,
		Type:               a.Type.String(),
		NormalBalance:      a.NormalBalance.String(),
		ParentID:           a.ParentID,
		IsActive:           a.IsActive,
		AllowManualEntries: a.AllowManualEntries,
		IsSystem:           a.IsSystem,
		Description:        a.Description,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
		Version:            a.Version,
	}
}

// CreateAccount creates a new chart-of-accounts entry
func (s *AccountService) CreateAccount(ctx context.Context, tenantID uuid.UUID, req CreateAccountRequest) (*AccountResponse, error) {
	exists, err := s.accountRepo.ExistsByCode(ctx, tenantID, req.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Account code already exists for this tenant")
	}

	account, err := ledger.NewAccount(tenantID, req.Code, req.Name, ledger.AccountType(req.Type), req.ParentID)
	if err != nil {
		return nil, err
	}
	account.Description = req.Description

	if req.ParentID != nil {
		parent, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if err := account.ValidateParent(parent); err != nil {
			return nil, err
		}
	}

	if err := s.accountRepo.Save(ctx, account); err != nil {
		return nil, err
	}

	return toAccountResponse(account), nil
}

// GetAccount gets an account by ID
func (s *AccountService) GetAccount(ctx context.Context, tenantID, id uuid.UUID) (*AccountResponse, error) {
	account, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Account not found")
	}
	return toAccountResponse(account), nil
}

// ListAccounts lists accounts with filtering
func (s *AccountService) ListAccounts(ctx context.Context, tenantID uuid.UUID, filter AccountListFilter) ([]AccountResponse, int64, error) {
	domainFilter := ledger.AccountFilter{
		IsActive:   filter.IsActive,
		CodePrefix: filter.CodePrefix,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Search = filter.Search

	if filter.Type != "" {
		accountType := ledger.AccountType(filter.Type)
		domainFilter.Type = &accountType
	}

	accounts, err := s.accountRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.accountRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]AccountResponse, len(accounts))
	for i, a := range accounts {
		responses[i] = *toAccountResponse(&a)
	}

	return responses, total, nil
}

// DeactivateAccount deactivates an account. An account referenced by draft
// journal lines cannot be deactivated: the drafts must be deleted or
// repointed first.
func (s *AccountService) DeactivateAccount(ctx context.Context, tenantID, id uuid.UUID) (*AccountResponse, error) {
	account, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Account not found")
	}

	draftRefs, err := s.entryRepo.CountDraftsReferencingAccount(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if draftRefs > 0 {
		return nil, shared.NewDomainError("CONFLICT",
			"Account is referenced by draft journal entries and cannot be deactivated")
	}

	if err := account.Deactivate(); err != nil {
		return nil, err
	}

	if err := s.accountRepo.SaveWithLock(ctx, account); err != nil {
		return nil, err
	}

	return toAccountResponse(account), nil
}

// ReactivateAccount reactivates a previously deactivated account
func (s *AccountService) ReactivateAccount(ctx context.Context, tenantID, id uuid.UUID) (*AccountResponse, error) {
	account, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Account not found")
	}

	if err := account.Reactivate(); err != nil {
		return nil, err
	}

	if err := s.accountRepo.SaveWithLock(ctx, account); err != nil {
		return nil, err
	}

	return toAccountResponse(account), nil
}

// GetBalance returns an account's balance as of the given date without
// recomputing full history: the prior period's closing balance comes from the
// closed bucket (cached when possible) and only the open period's lines up to
// asOf are summed live.
func (s *AccountService) GetBalance(ctx context.Context, tenantID, accountID uuid.UUID, asOf time.Time) (*AccountBalanceResponse, error) {
	account, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, shared.NewDomainError("NOT_FOUND", "Account not found")
	}

	period, err := s.periodRepo.FindByDate(ctx, tenantID, asOf)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "No accounting period covers the requested date")
	}

	opening, err := s.openingBalance(ctx, tenantID, accountID, period)
	if err != nil {
		return nil, err
	}

	debits, credits, err := s.entryRepo.SumLinesByAccount(ctx, tenantID, accountID, period.StartDate, asOf)
	if err != nil {
		return nil, err
	}

	// Debit-positive arithmetic throughout; flip for presentation at the end.
	balance := opening.Add(debits).Sub(credits)
	if account.NormalBalance == ledger.BalanceSideCredit {
		balance = balance.Neg()
	}

	return &AccountBalanceResponse{
		AccountID: account.ID,
		Code:      account.Code,
		AsOf:      asOf,
		Balance:   balance,
		Side:      account.NormalBalance.String(),
	}, nil
}

// openingBalance resolves the balance carried into the given period,
// consulting the cache first. A prior period with no bucket for the account
// had no activity, so the walk continues backwards until a bucket is found
// or the first period is reached.
func (s *AccountService) openingBalance(ctx context.Context, tenantID, accountID uuid.UUID, period *ledger.AccountingPeriod) (decimal.Decimal, error) {
	previous, err := s.periodRepo.FindPrevious(ctx, tenantID, period)
	if err != nil {
		if shared.IsDomainErrorWithCode(err, "NOT_FOUND") {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	if previous == nil {
		return decimal.Zero, nil
	}

	if previous.Status == ledger.PeriodStatusClosed && s.cache != nil {
		if cached, hit, cacheErr := s.cache.GetClosedBalance(ctx, tenantID, accountID, previous.ID); cacheErr == nil && hit {
			return cached, nil
		}
	}

	resolved := decimal.Zero
	cursor := previous
	for cursor != nil {
		bucket, err := s.ledgerRepo.FindBucket(ctx, tenantID, accountID, cursor.ID)
		if err != nil && !shared.IsDomainErrorWithCode(err, "NOT_FOUND") {
			return decimal.Zero, err
		}
		if bucket != nil {
			resolved = bucket.ClosingBalance
			break
		}
		prior, err := s.periodRepo.FindPrevious(ctx, tenantID, cursor)
		if err != nil {
			if shared.IsDomainErrorWithCode(err, "NOT_FOUND") {
				break
			}
			return decimal.Zero, err
		}
		cursor = prior
	}

	if previous.Status == ledger.PeriodStatusClosed && s.cache != nil {
		// Cache under the immediate predecessor: with no activity since the
		// resolved bucket, its closing balance equals the carried value.
		_ = s.cache.SetClosedBalance(ctx, tenantID, accountID, previous.ID, resolved)
	}

	return resolved, nil
}
