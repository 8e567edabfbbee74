package banking

import (
	"time"

	"github.com/hanainplan/backend/internal/domain/shared"
	"github.com/hanainplan/backend/internal/domain/shared/valueobject"
)

// AccountKind classifies what an account is used for
type AccountKind string

const (
	AccountKindGeneral    AccountKind = "GENERAL"    // ordinary deposit account
	AccountKindRetirement AccountKind = "RETIREMENT" // individual retirement pension (IRP)
	AccountKindSecurities AccountKind = "SECURITIES"
	AccountKindIntegrated AccountKind = "INTEGRATED"
)

// AccountStatus is the lifecycle state of an account
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "ACTIVE"
	AccountStatusInactive AccountStatus = "INACTIVE"
	AccountStatusClosed   AccountStatus = "CLOSED"
	AccountStatusPending  AccountStatus = "PENDING"
)

// Account is a locally held bank account. Its balance is mutated only
// through committed ledger entries; account rows are never deleted,
// only transitioned to CLOSED.
type Account struct {
	shared.BaseEntity
	AccountNumber string            `json:"account_number"`
	CustomerCI    string            `json:"customer_ci"`
	Kind          AccountKind       `json:"kind"`
	Status        AccountStatus     `json:"status"`
	Balance       valueobject.Money `json:"balance"`
	OpenedAt      time.Time         `json:"opened_at"`
}

// NewAccount creates a new active account with a zero balance
func NewAccount(accountNumber, customerCI string, kind AccountKind) (*Account, error) {
	if accountNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "account number is required")
	}
	if customerCI == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "customer CI is required")
	}
	if _, err := ResolveBankCode(accountNumber); err != nil {
		return nil, err
	}
	return &Account{
		BaseEntity:    shared.NewBaseEntity(),
		AccountNumber: NormalizeAccountNumber(accountNumber),
		CustomerCI:    customerCI,
		Kind:          kind,
		Status:        AccountStatusActive,
		Balance:       valueobject.ZeroKRW(),
		OpenedAt:      time.Now(),
	}, nil
}

// IsActive reports whether the account can participate in transfers
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// IsRetirement reports whether the account is an IRP account
func (a *Account) IsRetirement() bool {
	return a.Kind == AccountKindRetirement
}

// Close transitions the account to CLOSED. Closing requires a zero balance.
func (a *Account) Close() error {
	if a.Status == AccountStatusClosed {
		return shared.ErrInvalidState
	}
	if !a.Balance.IsZero() {
		return shared.NewDomainError("INVALID_STATE", "account balance must be zero before closing")
	}
	a.Status = AccountStatusClosed
	a.Touch()
	return nil
}

// Suspend marks the account INACTIVE
func (a *Account) Suspend() error {
	if a.Status != AccountStatusActive {
		return shared.ErrInvalidState
	}
	a.Status = AccountStatusInactive
	a.Touch()
	return nil
}

// Activate transitions PENDING or INACTIVE accounts to ACTIVE
func (a *Account) Activate() error {
	if a.Status == AccountStatusClosed {
		return shared.ErrInvalidState
	}
	a.Status = AccountStatusActive
	a.Touch()
	return nil
}

// CanCover reports whether the balance covers the given amount
func (a *Account) CanCover(amount valueobject.Money) (bool, error) {
	lt, err := a.Balance.LessThan(amount)
	if err != nil {
		return false, err
	}
	return !lt, nil
}
