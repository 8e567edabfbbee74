// Package models contains GORM database models for persistence.
// These are separate from domain entities to keep persistence concerns
// out of the domain layer.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hanainplan/backend/internal/domain/banking"
	"github.com/hanainplan/backend/internal/domain/shared"
	"github.com/hanainplan/backend/internal/domain/shared/valueobject"
)

// AccountModel is the GORM model for accounts
type AccountModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AccountNumber string          `gorm:"type:varchar(32);uniqueIndex;not null"`
	CustomerCI    string          `gorm:"type:varchar(88);index;not null"`
	Kind          string          `gorm:"type:varchar(20);not null"`
	Status        string          `gorm:"type:varchar(20);not null"`
	Balance       decimal.Decimal `gorm:"type:numeric(18,0);not null;default:0"`
	OpenedAt      time.Time       `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the table name for AccountModel
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the model to a domain entity
func (m *AccountModel) ToDomain() *banking.Account {
	return &banking.Account{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		AccountNumber: m.AccountNumber,
		CustomerCI:    m.CustomerCI,
		Kind:          banking.AccountKind(m.Kind),
		Status:        banking.AccountStatus(m.Status),
		Balance:       valueobject.NewMoneyKRW(m.Balance),
		OpenedAt:      m.OpenedAt,
	}
}

// AccountModelFromDomain converts a domain entity to the model
func AccountModelFromDomain(a *banking.Account) *AccountModel {
	return &AccountModel{
		ID:            a.ID,
		AccountNumber: a.AccountNumber,
		CustomerCI:    a.CustomerCI,
		Kind:          string(a.Kind),
		Status:        string(a.Status),
		Balance:       a.Balance.Amount(),
		OpenedAt:      a.OpenedAt,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// LedgerEntryModel is the GORM model for ledger entries. Rows are
// insert-only; no updates or deletes are issued against this table.
type LedgerEntryModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CorrelationRef    string          `gorm:"type:varchar(48);index;not null"`
	Direction         string          `gorm:"type:varchar(10);not null"`
	Amount            decimal.Decimal `gorm:"type:numeric(18,0);not null"`
	BalanceAfter      decimal.Decimal `gorm:"type:numeric(18,0);not null;default:0"`
	Status            string          `gorm:"type:varchar(20);not null"`
	FromAccountID     *uuid.UUID      `gorm:"type:uuid"`
	ToAccountID       *uuid.UUID      `gorm:"type:uuid"`
	FromAccountNumber string          `gorm:"type:varchar(32)"`
	ToAccountNumber   string          `gorm:"type:varchar(32)"`
	AccountNumber     string          `gorm:"type:varchar(32);index;not null"`
	Description       string          `gorm:"type:varchar(255)"`
	Memo              string          `gorm:"type:varchar(255)"`
	ExternalRef       string          `gorm:"type:varchar(64);index"`
	FailureReason     string          `gorm:"type:varchar(255)"`
	InitiatedAt       time.Time       `gorm:"not null"`
	ProcessedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName returns the table name for LedgerEntryModel
func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// ToDomain converts the model to a domain entity
func (m *LedgerEntryModel) ToDomain() *banking.LedgerEntry {
	return &banking.LedgerEntry{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		CorrelationRef:    m.CorrelationRef,
		Direction:         banking.EntryDirection(m.Direction),
		Amount:            valueobject.NewMoneyKRW(m.Amount),
		BalanceAfter:      valueobject.NewMoneyKRW(m.BalanceAfter),
		Status:            banking.EntryStatus(m.Status),
		FromAccountID:     m.FromAccountID,
		ToAccountID:       m.ToAccountID,
		FromAccountNumber: m.FromAccountNumber,
		ToAccountNumber:   m.ToAccountNumber,
		AccountNumber:     m.AccountNumber,
		Description:       m.Description,
		Memo:              m.Memo,
		ExternalRef:       m.ExternalRef,
		FailureReason:     m.FailureReason,
		InitiatedAt:       m.InitiatedAt,
		ProcessedAt:       m.ProcessedAt,
	}
}

// LedgerEntryModelFromDomain converts a domain entity to the model
func LedgerEntryModelFromDomain(e *banking.LedgerEntry) *LedgerEntryModel {
	return &LedgerEntryModel{
		ID:                e.ID,
		CorrelationRef:    e.CorrelationRef,
		Direction:         string(e.Direction),
		Amount:            e.Amount.Amount(),
		BalanceAfter:      e.BalanceAfter.Amount(),
		Status:            string(e.Status),
		FromAccountID:     e.FromAccountID,
		ToAccountID:       e.ToAccountID,
		FromAccountNumber: e.FromAccountNumber,
		ToAccountNumber:   e.ToAccountNumber,
		AccountNumber:     e.AccountNumber,
		Description:       e.Description,
		Memo:              e.Memo,
		ExternalRef:       e.ExternalRef,
		FailureReason:     e.FailureReason,
		InitiatedAt:       e.InitiatedAt,
		ProcessedAt:       e.ProcessedAt,
		CreatedAt:         e.CreatedAt,
		UpdatedAt:         e.UpdatedAt,
	}
}

// AutoTransferModel is the GORM model for standing orders
type AutoTransferModel struct {
	ID                  uuid.UUID       `gorm:"type:uuid;primaryKey"`
	FromAccountNumber   string          `gorm:"type:varchar(32);index;not null"`
	ToAccountNumber     string          `gorm:"type:varchar(32);not null"`
	Amount              decimal.Decimal `gorm:"type:numeric(18,0);not null"`
	Purpose             string          `gorm:"type:varchar(20);not null"`
	CustomerCI          string          `gorm:"type:varchar(88);not null"`
	Memo                string          `gorm:"type:varchar(255)"`
	ScheduleDay         int             `gorm:"not null"`
	Status              string          `gorm:"type:varchar(20);index;not null"`
	NextRunDate         time.Time       `gorm:"index;not null"`
	LastResult          string          `gorm:"type:varchar(64)"`
	LastRunAt           *time.Time
	TotalRuns           int `gorm:"not null;default:0"`
	ConsecutiveFailures int `gorm:"not null;default:0"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TableName returns the table name for AutoTransferModel
func (AutoTransferModel) TableName() string {
	return "auto_transfers"
}

// ToDomain converts the model to a domain entity
func (m *AutoTransferModel) ToDomain() *banking.AutoTransfer {
	return &banking.AutoTransfer{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		FromAccountNumber:   m.FromAccountNumber,
		ToAccountNumber:     m.ToAccountNumber,
		Amount:              valueobject.NewMoneyKRW(m.Amount),
		Purpose:             banking.TransferPurpose(m.Purpose),
		CustomerCI:          m.CustomerCI,
		Memo:                m.Memo,
		ScheduleDay:         m.ScheduleDay,
		Status:              banking.AutoTransferStatus(m.Status),
		NextRunDate:         m.NextRunDate,
		LastResult:          m.LastResult,
		LastRunAt:           m.LastRunAt,
		TotalRuns:           m.TotalRuns,
		ConsecutiveFailures: m.ConsecutiveFailures,
	}
}

// AutoTransferModelFromDomain converts a domain entity to the model
func AutoTransferModelFromDomain(a *banking.AutoTransfer) *AutoTransferModel {
	return &AutoTransferModel{
		ID:                  a.ID,
		FromAccountNumber:   a.FromAccountNumber,
		ToAccountNumber:     a.ToAccountNumber,
		Amount:              a.Amount.Amount(),
		Purpose:             string(a.Purpose),
		CustomerCI:          a.CustomerCI,
		Memo:                a.Memo,
		ScheduleDay:         a.ScheduleDay,
		Status:              string(a.Status),
		NextRunDate:         a.NextRunDate,
		LastResult:          a.LastResult,
		LastRunAt:           a.LastRunAt,
		TotalRuns:           a.TotalRuns,
		ConsecutiveFailures: a.ConsecutiveFailures,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}
