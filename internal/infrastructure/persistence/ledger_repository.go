package persistence

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hanainplan/backend/internal/domain/banking"
	"github.com/hanainplan/backend/internal/domain/shared"
	"github.com/hanainplan/backend/internal/infrastructure/persistence/models"
)

// LedgerRepository implements banking.LedgerRepository using GORM.
// The ledger is append-only: this repository issues no UPDATE or
// DELETE statements against ledger_entries.
type LedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(database *Database) *LedgerRepository {
	return &LedgerRepository{db: database.DB}
}

// Append inserts a ledger entry
func (r *LedgerRepository) Append(ctx context.Context, entry *banking.LedgerEntry) error {
	model := models.LedgerEntryModelFromDomain(entry)
	return dbFromContext(ctx, r.db).Create(model).Error
}

// SumCompletedRetirementCredits totals the COMPLETED CREDIT entries
// into retirement accounts owned by the customer within the calendar
// year. Pending and failed entries never count toward the ceiling.
func (r *LedgerRepository) SumCompletedRetirementCredits(ctx context.Context, customerCI string, year int) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := dbFromContext(ctx, r.db).Raw(
		`SELECT COALESCE(SUM(le.amount), 0)
		 FROM ledger_entries le
		 JOIN accounts a ON a.account_number = le.account_number
		 WHERE a.customer_ci = ?
		   AND a.kind = ?
		   AND le.direction = ?
		   AND le.status = ?
		   AND EXTRACT(YEAR FROM le.processed_at) = ?`,
		customerCI,
		string(banking.AccountKindRetirement),
		string(banking.DirectionCredit),
		string(banking.EntryStatusCompleted),
		year,
	).Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// FindLatestByAccountNumber returns the most recently processed entry
// for the account, or shared.ErrNotFound when the account has none
func (r *LedgerRepository) FindLatestByAccountNumber(ctx context.Context, accountNumber string) (*banking.LedgerEntry, error) {
	var model models.LedgerEntryModel
	normalized := banking.NormalizeAccountNumber(accountNumber)
	err := dbFromContext(ctx, r.db).
		Where("account_number = ?", normalized).
		Order("processed_at DESC, created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCorrelationRef returns every leg recorded under the correlation ref
func (r *LedgerRepository) FindByCorrelationRef(ctx context.Context, correlationRef string) ([]*banking.LedgerEntry, error) {
	var modelList []models.LedgerEntryModel
	err := dbFromContext(ctx, r.db).
		Where("correlation_ref = ?", correlationRef).
		Order("created_at ASC").
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}
	entries := make([]*banking.LedgerEntry, len(modelList))
	for i := range modelList {
		entries[i] = modelList[i].ToDomain()
	}
	return entries, nil
}

// FindByAccountNumber returns the newest entries for the account,
// capped at limit
func (r *LedgerRepository) FindByAccountNumber(ctx context.Context, accountNumber string, limit int) ([]*banking.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var modelList []models.LedgerEntryModel
	normalized := banking.NormalizeAccountNumber(accountNumber)
	err := dbFromContext(ctx, r.db).
		Where("account_number = ?", normalized).
		Order("processed_at DESC, created_at DESC").
		Limit(limit).
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}
	entries := make([]*banking.LedgerEntry, len(modelList))
	for i := range modelList {
		entries[i] = modelList[i].ToDomain()
	}
	return entries, nil
}

// ExistsByExternalRef reports whether an entry with the external ref is
// already recorded for the account. Used to keep ledger sync idempotent.
func (r *LedgerRepository) ExistsByExternalRef(ctx context.Context, accountNumber, externalRef string) (bool, error) {
	var count int64
	normalized := banking.NormalizeAccountNumber(accountNumber)
	err := dbFromContext(ctx, r.db).Model(&models.LedgerEntryModel{}).
		Where("account_number = ? AND external_ref = ?", normalized, externalRef).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
