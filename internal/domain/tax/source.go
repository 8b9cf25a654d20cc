package tax

import (
	"fmt"
	"time"

	"github.com/finbooks/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SourceKind tags the business transaction a tax accrual originates from.
// Every consumer must switch exhaustively over the kind; an unknown kind is
// always an error, never a silent default.
type SourceKind string

const (
	SourceKindSale     SourceKind = "SALE"
	SourceKindPurchase SourceKind = "PURCHASE"
	SourceKindExpense  SourceKind = "EXPENSE"
)

// IsValid checks if the source kind is valid
func (k SourceKind) IsValid() bool {
	switch k {
	case SourceKindSale, SourceKindPurchase, SourceKindExpense:
		return true
	}
	return false
}

// String returns the string representation of SourceKind
func (k SourceKind) String() string {
	return string(k)
}

// Direction indicates whether a liability is VAT collected or VAT paid
type Direction string

const (
	DirectionOutput Direction = "OUTPUT" // VAT collected on sales, owed to the authority
	DirectionInput  Direction = "INPUT"  // VAT paid on purchases/expenses, reclaimable
)

// IsValid checks if the direction is valid
func (d Direction) IsValid() bool {
	return d == DirectionOutput || d == DirectionInput
}

// String returns the string representation of Direction
func (d Direction) String() string {
	return string(d)
}

// SourceTransaction is the external transaction handed to the tax engine by
// the sales, purchasing and expense modules after their own commit.
type SourceTransaction struct {
	Kind         SourceKind      `json:"kind"`
	SourceID     uuid.UUID       `json:"source_id"`
	SourceNumber string          `json:"source_number"` // e.g. invoice or receipt number
	Amount       decimal.Decimal `json:"amount"`        // Gross or net per TaxInclusive
	TaxInclusive bool            `json:"tax_inclusive"`
	Date         time.Time       `json:"date"`
}

// Validate checks the transaction is well formed
func (s SourceTransaction) Validate() error {
	if !s.Kind.IsValid() {
		return shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Invalid source kind: %s", s.Kind))
	}
	if s.SourceID == uuid.Nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Source transaction must reference a source document")
	}
	if !s.Amount.IsPositive() {
		return shared.NewDomainError("VALIDATION_ERROR", "Source transaction amount must be positive")
	}
	if s.Date.IsZero() {
		return shared.NewDomainError("VALIDATION_ERROR", "Source transaction date is required")
	}
	return nil
}

// VATDirection maps the source kind to the VAT side it accrues on
func (s SourceTransaction) VATDirection() (Direction, error) {
	switch s.Kind {
	case SourceKindSale:
		return DirectionOutput, nil
	case SourceKindPurchase, SourceKindExpense:
		return DirectionInput, nil
	default:
		return "", shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf("Unknown source kind: %s", s.Kind))
	}
}
