package banking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository is the persistence contract for accounts
type AccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByNumber(ctx context.Context, accountNumber string) (*Account, error)
	// AdjustBalance applies a signed delta in a single conditional update
	// that refuses to take the balance negative. Returns the new balance,
	// or shared.ErrInsufficientBalance when the guard fails.
	AdjustBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	Create(ctx context.Context, account *Account) error
	Save(ctx context.Context, account *Account) error
}

// LedgerRepository is the persistence contract for ledger entries.
// Entries are append-only; the repository exposes no update or delete.
type LedgerRepository interface {
	Append(ctx context.Context, entry *LedgerEntry) error
	// SumCompletedRetirementCredits totals COMPLETED CREDIT entries into
	// retirement accounts owned by the customer in the given calendar year.
	SumCompletedRetirementCredits(ctx context.Context, customerCI string, year int) (decimal.Decimal, error)
	FindLatestByAccountNumber(ctx context.Context, accountNumber string) (*LedgerEntry, error)
	FindByCorrelationRef(ctx context.Context, correlationRef string) ([]*LedgerEntry, error)
	FindByAccountNumber(ctx context.Context, accountNumber string, limit int) ([]*LedgerEntry, error)
	ExistsByExternalRef(ctx context.Context, accountNumber, externalRef string) (bool, error)
}

// AutoTransferRepository is the persistence contract for standing orders
type AutoTransferRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*AutoTransfer, error)
	FindDue(ctx context.Context, asOf time.Time) ([]*AutoTransfer, error)
	Create(ctx context.Context, transfer *AutoTransfer) error
	Save(ctx context.Context, transfer *AutoTransfer) error
}

// TransactionManager scopes a function to one database transaction.
// Repositories called inside fn observe the transaction through the
// context. The debit-plus-ledger and credit-plus-ledger commit pairs
// each run inside one such scope.
type TransactionManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
