package banking

import (
	"fmt"

	"github.com/hanainplan/backend/internal/domain/shared"
	"github.com/hanainplan/backend/internal/domain/shared/valueobject"
)

// Banking domain errors
var (
	ErrUnknownBank      = shared.NewDomainError("UNKNOWN_BANK", "Account number does not map to a known bank")
	ErrAccountNotFound  = shared.NewDomainError("ACCOUNT_NOT_FOUND", "Account not found")
	ErrAccountInactive  = shared.NewDomainError("ACCOUNT_INACTIVE", "Account is not active")
	ErrInvalidAmount    = shared.NewDomainError("INVALID_AMOUNT", "Transfer amount must be positive")
	ErrSameAccount      = shared.NewDomainError("SAME_ACCOUNT", "Source and destination accounts must differ")
	ErrDuplicateEntry   = shared.NewDomainError("DUPLICATE_LEDGER_ENTRY", "Ledger entry already recorded")
	ErrNoGatewayForBank = shared.NewDomainError("NO_GATEWAY_FOR_BANK", "No gateway registered for bank code")
)

// LimitExceededError reports a contribution that would breach the annual
// retirement ceiling. Remaining is floored at zero for display.
type LimitExceededError struct {
	CustomerCI string
	Requested  valueobject.Money
	Remaining  valueobject.Money
	Year       int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("annual retirement contribution limit exceeded for year %d: requested %s, remaining %s",
		e.Year, e.Requested.String(), e.Remaining.String())
}

// GatewayError is the uniform error type for bank gateway failures.
// Transport errors, timeouts, and business declines from the remote bank
// are all converted into this type at the adapter boundary.
type GatewayError struct {
	BankCode  string
	Operation string
	Code      string
	Message   string
	Timeout   bool
	Err       error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bank gateway %s %s failed: %s: %v", e.BankCode, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("bank gateway %s %s failed: %s", e.BankCode, e.Operation, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether the failure was a timeout. Per the settlement
// rules a timed-out call is treated as failed, never as succeeded.
func (e *GatewayError) IsTimeout() bool {
	return e.Timeout
}

// Gateway error codes
const (
	GatewayCodeDeclined    = "DECLINED"
	GatewayCodeTimeout     = "TIMEOUT"
	GatewayCodeTransport   = "TRANSPORT"
	GatewayCodeBadResponse = "BAD_RESPONSE"
)
