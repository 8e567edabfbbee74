package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hanainplan/backend/internal/domain/banking"
	"github.com/hanainplan/backend/internal/domain/shared"
	"github.com/hanainplan/backend/internal/infrastructure/persistence/models"
)

// AutoTransferRepository implements banking.AutoTransferRepository using GORM
type AutoTransferRepository struct {
	db *gorm.DB
}

// NewAutoTransferRepository creates a new auto transfer repository
func NewAutoTransferRepository(database *Database) *AutoTransferRepository {
	return &AutoTransferRepository{db: database.DB}
}

// FindByID retrieves a standing order by ID
func (r *AutoTransferRepository) FindByID(ctx context.Context, id uuid.UUID) (*banking.AutoTransfer, error) {
	var model models.AutoTransferModel
	err := dbFromContext(ctx, r.db).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindDue returns ACTIVE standing orders whose next run date has passed
func (r *AutoTransferRepository) FindDue(ctx context.Context, asOf time.Time) ([]*banking.AutoTransfer, error) {
	var modelList []models.AutoTransferModel
	err := dbFromContext(ctx, r.db).
		Where("status = ? AND next_run_date <= ?", string(banking.AutoTransferActive), asOf).
		Order("next_run_date ASC").
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}
	transfers := make([]*banking.AutoTransfer, len(modelList))
	for i := range modelList {
		transfers[i] = modelList[i].ToDomain()
	}
	return transfers, nil
}

// Create inserts a new standing order
func (r *AutoTransferRepository) Create(ctx context.Context, transfer *banking.AutoTransfer) error {
	model := models.AutoTransferModelFromDomain(transfer)
	return dbFromContext(ctx, r.db).Create(model).Error
}

// Save persists the standing order's current state
func (r *AutoTransferRepository) Save(ctx context.Context, transfer *banking.AutoTransfer) error {
	model := models.AutoTransferModelFromDomain(transfer)
	result := dbFromContext(ctx, r.db).Model(&models.AutoTransferModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]interface{}{
			"status":               model.Status,
			"next_run_date":        model.NextRunDate,
			"last_result":          model.LastResult,
			"last_run_at":          model.LastRunAt,
			"total_runs":           model.TotalRuns,
			"consecutive_failures": model.ConsecutiveFailures,
			"amount":               model.Amount,
			"memo":                 model.Memo,
			"updated_at":           model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}
