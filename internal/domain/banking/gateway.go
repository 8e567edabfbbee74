package banking

import (
	"context"
	"fmt"
	"time"

	"github.com/hanainplan/backend/internal/domain/shared/valueobject"
)

// GatewayReceipt is the acknowledged result of a gateway operation
type GatewayReceipt struct {
	TransactionID string
	Message       string
	ProcessedAt   time.Time
}

// RemoteAccountInfo describes an account as reported by a partner bank
type RemoteAccountInfo struct {
	Exists        bool
	AccountNumber string
	Kind          AccountKind
	Status        AccountStatus
	BankCode      BankCode
}

// RemoteEntry is a ledger row as reported by a partner bank, used for
// incremental synchronization
type RemoteEntry struct {
	ExternalRef  string
	Direction    EntryDirection
	Amount       valueobject.Money
	BalanceAfter valueobject.Money
	Description  string
	ProcessedAt  time.Time
	Counterparty string
}

// BankGateway is the contract for moving funds at a partner bank. Every
// failed call returns a *GatewayError: transport faults, timeouts, and
// business declines are all converted at the adapter boundary. A timed
// out call is treated as failed; deposit-side ambiguity is never
// resolved as success.
type BankGateway interface {
	// Withdraw debits the account at the remote bank
	Withdraw(ctx context.Context, accountNumber string, amount valueobject.Money, memo string) (*GatewayReceipt, error)
	// Deposit credits the account at the remote bank. Retirement deposits
	// take a distinct processing path at the partner bank.
	Deposit(ctx context.Context, accountNumber string, amount valueobject.Money, memo string, kind AccountKind) (*GatewayReceipt, error)
	// VerifyAccount checks existence and status of a remote account
	VerifyAccount(ctx context.Context, accountNumber string) (*RemoteAccountInfo, error)
	// FetchEntriesSince pulls ledger rows processed after the given time
	FetchEntriesSince(ctx context.Context, accountNumber string, since time.Time) ([]*RemoteEntry, error)
	// BankCode identifies which bank this gateway fronts
	BankCode() BankCode
}

// GatewayRegistry maps bank codes to their gateways. The mapping is
// fixed at startup; Validate must pass before the registry is used.
type GatewayRegistry struct {
	gateways map[BankCode]BankGateway
}

// NewGatewayRegistry builds a registry from the given gateways
func NewGatewayRegistry(gateways ...BankGateway) *GatewayRegistry {
	m := make(map[BankCode]BankGateway, len(gateways))
	for _, g := range gateways {
		m[g.BankCode()] = g
	}
	return &GatewayRegistry{gateways: m}
}

// Resolve returns the gateway for a bank code
func (r *GatewayRegistry) Resolve(code BankCode) (BankGateway, error) {
	g, ok := r.gateways[code]
	if !ok {
		return nil, ErrNoGatewayForBank
	}
	return g, nil
}

// ResolveForAccount routes an account number to its bank's gateway
func (r *GatewayRegistry) ResolveForAccount(accountNumber string) (BankGateway, error) {
	code, err := ResolveBankCode(accountNumber)
	if err != nil {
		return nil, err
	}
	return r.Resolve(code)
}

// Validate checks that every routable bank code has a gateway. Called
// once at startup so a misconfigured registry fails fast instead of
// surfacing mid-transfer.
func (r *GatewayRegistry) Validate() error {
	seen := make(map[BankCode]bool)
	for _, code := range prefixRoutes {
		if seen[code] {
			continue
		}
		seen[code] = true
		if _, ok := r.gateways[code]; !ok {
			return fmt.Errorf("no gateway registered for bank code %s (%s)", code, code.BankName())
		}
	}
	return nil
}
