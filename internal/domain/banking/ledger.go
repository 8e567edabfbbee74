package banking

import (
	"time"

	"github.com/google/uuid"

	"github.com/hanainplan/backend/internal/domain/shared"
	"github.com/hanainplan/backend/internal/domain/shared/valueobject"
)

// EntryDirection is the side of the double entry a ledger row records
type EntryDirection string

const (
	DirectionDebit  EntryDirection = "DEBIT"
	DirectionCredit EntryDirection = "CREDIT"
)

// EntryStatus is the settlement state of a ledger entry
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "PENDING"
	EntryStatusCompleted EntryStatus = "COMPLETED"
	EntryStatusFailed    EntryStatus = "FAILED"
)

// LedgerEntry is one leg of a funds movement. Entries are append-only:
// once written they are never updated or deleted. A COMPLETED entry's
// BalanceAfter equals the owning account's balance at commit time; a
// FAILED entry records an attempt that mutated no balance.
type LedgerEntry struct {
	shared.BaseEntity
	CorrelationRef    string            `json:"correlation_ref"`
	Direction         EntryDirection    `json:"direction"`
	Amount            valueobject.Money `json:"amount"`
	BalanceAfter      valueobject.Money `json:"balance_after"`
	Status            EntryStatus       `json:"status"`
	FromAccountID     *uuid.UUID        `json:"from_account_id,omitempty"`
	ToAccountID       *uuid.UUID        `json:"to_account_id,omitempty"`
	FromAccountNumber string            `json:"from_account_number"`
	ToAccountNumber   string            `json:"to_account_number"`
	AccountNumber     string            `json:"account_number"` // the account this leg belongs to
	Description       string            `json:"description"`
	Memo              string            `json:"memo"`
	ExternalRef       string            `json:"external_ref,omitempty"`
	FailureReason     string            `json:"failure_reason,omitempty"`
	InitiatedAt       time.Time         `json:"initiated_at"`
	ProcessedAt       *time.Time        `json:"processed_at,omitempty"`
}

// NewCorrelationRef generates a new correlation reference shared by the
// legs of a single transfer
func NewCorrelationRef() string {
	return "TRF-" + uuid.NewString()
}

// NewDebitEntry builds a COMPLETED debit leg with the post-debit balance
func NewDebitEntry(correlationRef, accountNumber string, amount, balanceAfter valueobject.Money) *LedgerEntry {
	now := time.Now()
	return &LedgerEntry{
		BaseEntity:        shared.NewBaseEntity(),
		CorrelationRef:    correlationRef,
		Direction:         DirectionDebit,
		Amount:            amount,
		BalanceAfter:      balanceAfter,
		Status:            EntryStatusCompleted,
		AccountNumber:     accountNumber,
		FromAccountNumber: accountNumber,
		InitiatedAt:       now,
		ProcessedAt:       &now,
	}
}

// NewCreditEntry builds a COMPLETED credit leg with the post-credit balance
func NewCreditEntry(correlationRef, accountNumber string, amount, balanceAfter valueobject.Money) *LedgerEntry {
	now := time.Now()
	return &LedgerEntry{
		BaseEntity:      shared.NewBaseEntity(),
		CorrelationRef:  correlationRef,
		Direction:       DirectionCredit,
		Amount:          amount,
		BalanceAfter:    balanceAfter,
		Status:          EntryStatusCompleted,
		AccountNumber:   accountNumber,
		ToAccountNumber: accountNumber,
		InitiatedAt:     now,
		ProcessedAt:     &now,
	}
}

// NewFailedEntry builds a FAILED leg. No balance was mutated, so
// BalanceAfter is zero-valued and carries no meaning.
func NewFailedEntry(correlationRef, accountNumber string, direction EntryDirection, amount valueobject.Money, reason string) *LedgerEntry {
	now := time.Now()
	e := &LedgerEntry{
		BaseEntity:     shared.NewBaseEntity(),
		CorrelationRef: correlationRef,
		Direction:      direction,
		Amount:         amount,
		BalanceAfter:   valueobject.ZeroKRW(),
		Status:         EntryStatusFailed,
		AccountNumber:  accountNumber,
		FailureReason:  reason,
		InitiatedAt:    now,
		ProcessedAt:    &now,
	}
	if direction == DirectionDebit {
		e.FromAccountNumber = accountNumber
	} else {
		e.ToAccountNumber = accountNumber
	}
	return e
}

// IsCompleted reports whether the entry settled
func (e *LedgerEntry) IsCompleted() bool {
	return e.Status == EntryStatusCompleted
}
