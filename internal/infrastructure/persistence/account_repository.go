package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/hanainplan/backend/internal/domain/banking"
	"github.com/hanainplan/backend/internal/domain/shared"
	"github.com/hanainplan/backend/internal/infrastructure/persistence/models"
)

// AccountRepository implements banking.AccountRepository using GORM
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(database *Database) *AccountRepository {
	return &AccountRepository{db: database.DB}
}

// FindByID retrieves an account by its ID
func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*banking.Account, error) {
	var model models.AccountModel
	err := dbFromContext(ctx, r.db).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber retrieves an account by its normalized account number
func (r *AccountRepository) FindByNumber(ctx context.Context, accountNumber string) (*banking.Account, error) {
	var model models.AccountModel
	normalized := banking.NormalizeAccountNumber(accountNumber)
	err := dbFromContext(ctx, r.db).Where("account_number = ?", normalized).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// AdjustBalance applies a signed delta to the account balance in one
// conditional update. The guard `balance + delta >= 0` makes overdrafts
// impossible at the database level regardless of what callers checked
// beforehand. Returns the post-adjustment balance.
func (r *AccountRepository) AdjustBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	db := dbFromContext(ctx, r.db)

	var newBalance decimal.Decimal
	result := db.Raw(
		`UPDATE accounts
		 SET balance = balance + ?, updated_at = NOW()
		 WHERE id = ? AND balance + ? >= 0
		 RETURNING balance`,
		delta, id, delta,
	).Scan(&newBalance)
	if result.Error != nil {
		return decimal.Zero, result.Error
	}
	if result.RowsAffected == 0 {
		// Distinguish a missing account from a refused overdraft
		var count int64
		if err := db.Model(&models.AccountModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return decimal.Zero, err
		}
		if count == 0 {
			return decimal.Zero, shared.ErrNotFound
		}
		return decimal.Zero, shared.ErrInsufficientBalance
	}
	return newBalance, nil
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, account *banking.Account) error {
	model := models.AccountModelFromDomain(account)
	return dbFromContext(ctx, r.db).Create(model).Error
}

// Save updates an existing account's mutable fields. The balance column
// is deliberately excluded: balances change only through AdjustBalance.
func (r *AccountRepository) Save(ctx context.Context, account *banking.Account) error {
	model := models.AccountModelFromDomain(account)
	result := dbFromContext(ctx, r.db).Model(&models.AccountModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"status":     model.Status,
			"kind":       model.Kind,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
