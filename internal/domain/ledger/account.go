package ledger

import (
	"fmt"
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AccountType classifies an account within the chart of accounts
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// IsValid checks if the account type is a valid AccountType
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// String returns the string representation of AccountType
func (t AccountType) String() string {
	return string(t)
}

// NormalBalance returns the side on which this account type naturally increases.
// Assets and expenses grow with debits; liabilities, equity and revenue with credits.
func (t AccountType) NormalBalance() BalanceSide {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return BalanceSideDebit
	default:
		return BalanceSideCredit
	}
}

// IsBalanceSheetType returns true for types that appear on the balance sheet
func (t AccountType) IsBalanceSheetType() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity:
		return true
	}
	return false
}

// BalanceSide represents the debit or credit side of the ledger
type BalanceSide string

const (
	BalanceSideDebit  BalanceSide = "DEBIT"
	BalanceSideCredit BalanceSide = "CREDIT"
)

// IsValid checks if the balance side is valid
func (s BalanceSide) IsValid() bool {
	return s == BalanceSideDebit || s == BalanceSideCredit
}

// String returns the string representation of BalanceSide
func (s BalanceSide) String() string {
	return string(s)
}

// Account represents a node in the tenant's chart of accounts.
// The normal balance is derived from the type and never stored independently.
type Account struct {
	shared.TenantAggregateRoot
	Code               string      `json:"code"`
	Name               string      `json:"name"`
	Type               AccountType `json:"type"`
	NormalBalance      BalanceSide `json:"normal_balance"`
	ParentID           *uuid.UUID  `json:"parent_id,omitempty"`
	IsActive           bool        `json:"is_active"`
	AllowManualEntries bool        `json:"allow_manual_entries"`
	// IsSystem marks accounts provisioned by the engine itself (VAT control,
	// retained earnings). System accounts cannot be deactivated.
	IsSystem    bool   `json:"is_system"`
	Description string `json:"description,omitempty"`
}

// NewAccount creates a new chart-of-accounts entry.
// The parent, when given, must already be validated by the caller to be of the
// same type and cycle-free; this constructor only enforces local shape.
func NewAccount(
	tenantID uuid.UUID,
	code string,
	name string,
	accountType AccountType,
	parentID *uuid.UUID,
) (*Account, error) {
	if code == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Account code cannot be empty")
	}
	if len(code) > 20 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Account code cannot exceed 20 characters")
	}
	if name == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Account name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Account name cannot exceed 200 characters")
	}
	if !accountType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Invalid account type: %s", accountType))
	}

	a := &Account{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		Code:                code,
		Name:                name,
		Type:                accountType,
		NormalBalance:       accountType.NormalBalance(),
		ParentID:            parentID,
		IsActive:            true,
		AllowManualEntries:  true,
	}

	a.AddDomainEvent(NewAccountCreatedEvent(a))

	return a, nil
}

// ValidateParent checks that a candidate parent is compatible with this account.
// Children must carry the same account type as their parent so that rollups
// never mix debit-normal and credit-normal balances.
func (a *Account) ValidateParent(parent *Account) error {
	if parent == nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Parent account not found")
	}
	if parent.TenantID != a.TenantID {
		return shared.NewDomainError("VALIDATION_ERROR", "Parent account belongs to a different tenant")
	}
	if parent.ID == a.ID {
		return shared.NewDomainError("VALIDATION_ERROR", "Account cannot be its own parent")
	}
	if parent.Type != a.Type {
		return shared.NewDomainError("VALIDATION_ERROR",
			fmt.Sprintf("Parent account type %s does not match child type %s", parent.Type, a.Type))
	}
	return nil
}

// Deactivate marks the account inactive. The caller is responsible for the
// draft-line reference check; an account referenced by unposted drafts cannot
// be deactivated.
func (a *Account) Deactivate() error {
	if !a.IsActive {
		return shared.NewDomainError("INVALID_STATE", "Account is already inactive")
	}
	if a.IsSystem {
		return shared.NewDomainError("CONFLICT", "System accounts cannot be deactivated")
	}

	a.IsActive = false
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	a.AddDomainEvent(NewAccountDeactivatedEvent(a))

	return nil
}

// Reactivate marks a previously deactivated account active again
func (a *Account) Reactivate() error {
	if a.IsActive {
		return shared.NewDomainError("INVALID_STATE", "Account is already active")
	}
	a.IsActive = true
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// Rename updates the account name
func (a *Account) Rename(name string) error {
	if name == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Account name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("VALIDATION_ERROR", "Account name cannot exceed 200 characters")
	}
	a.Name = name
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
	return nil
}

// SetAllowManualEntries toggles whether manual journal entries may reference this account
func (a *Account) SetAllowManualEntries(allowed bool) {
	a.AllowManualEntries = allowed
	a.UpdatedAt = time.Now()
	a.IncrementVersion()
}

// MarkSystem flags the account as engine-provisioned
func (a *Account) MarkSystem() {
	a.IsSystem = true
	a.AllowManualEntries = false
}

// CanAcceptLine reports whether a line of the given entry type may reference
// this account. Manual entries additionally require AllowManualEntries.
func (a *Account) CanAcceptLine(entryType EntryType) error {
	if !a.IsActive {
		return shared.NewDomainError("VALIDATION_ERROR",
			fmt.Sprintf("Account %s is inactive and cannot accept journal lines", a.Code))
	}
	if entryType == EntryTypeManual && !a.AllowManualEntries {
		return shared.NewDomainError("VALIDATION_ERROR",
			fmt.Sprintf("Account %s does not allow manual journal entries", a.Code))
	}
	return nil
}
