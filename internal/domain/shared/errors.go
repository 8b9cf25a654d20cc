package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrUnbalancedEntry     = NewDomainError("UNBALANCED_ENTRY", "Journal entry debits and credits do not balance")
	ErrPeriodClosed        = NewDomainError("PERIOD_CLOSED", "Accounting period is closed for posting")
	ErrLedgerIntegrity     = NewDomainError("LEDGER_INTEGRITY", "Ledger failed to reconcile; posting halted")
	ErrTaxConfigMissing    = NewDomainError("TAX_CONFIG_MISSING", "Tax configuration is not set up for this tenant")
)

// IsDomainErrorWithCode reports whether the error is a DomainError carrying
// the given code
func IsDomainErrorWithCode(err error, code string) bool {
	de, ok := err.(*DomainError)
	return ok && de.Code == code
}

// IsRetryable reports whether an error represents a transient concurrency
// failure that the caller may retry a bounded number of times. Validation
// and state errors are never retryable.
func IsRetryable(err error) bool {
	de, ok := err.(*DomainError)
	return ok && de.Code == ErrConcurrencyConflict.Code
}
