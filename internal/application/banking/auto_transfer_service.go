package banking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hanainplan/backend/internal/domain/banking"
	"github.com/hanainplan/backend/internal/infrastructure/logger"
	"github.com/hanainplan/backend/internal/infrastructure/telemetry"
)

// transferExecutor is the slice of TransferService the standing-order
// runner needs
type transferExecutor interface {
	Execute(ctx context.Context, intent banking.TransferIntent) (*banking.TransferResult, error)
}

// ExecutionReport summarizes one ExecuteDue run
type ExecutionReport struct {
	AsOf      time.Time `json:"as_of"`
	Due       int       `json:"due"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Paused    int       `json:"paused"`
}

// AutoTransferService executes monthly standing orders. The as-of time
// is an explicit parameter so runs are reproducible and testable; the
// scheduler supplies the wall clock in production.
type AutoTransferService struct {
	autoRepo  banking.AutoTransferRepository
	transfers transferExecutor
}

// NewAutoTransferService creates a new auto transfer service
func NewAutoTransferService(autoRepo banking.AutoTransferRepository, transfers transferExecutor) *AutoTransferService {
	return &AutoTransferService{
		autoRepo:  autoRepo,
		transfers: transfers,
	}
}

// ExecuteDue runs every ACTIVE standing order whose next run date has
// passed as of asOf. Each order is executed independently: one failure
// never blocks the rest. Orders failing three runs in a row are paused.
func (s *AutoTransferService) ExecuteDue(ctx context.Context, asOf time.Time) (*ExecutionReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "auto_transfer", "execute_due")
	defer span.End()

	due, err := s.autoRepo.FindDue(ctx, asOf)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &ExecutionReport{AsOf: asOf, Due: len(due)}
	log := logger.L(ctx)

	for _, order := range due {
		if err := ctx.Err(); err != nil {
			telemetry.RecordError(span, err)
			return report, err
		}

		result, execErr := s.transfers.Execute(ctx, order.Intent())
		switch {
		case execErr != nil:
			order.RecordFailure(asOf, execErr.Error())
			report.Failed++
			log.Error("standing order execution failed",
				zap.String("auto_transfer_id", order.ID.String()),
				zap.Error(execErr),
			)
		case result.IsSuccess():
			order.RecordSuccess(asOf)
			report.Succeeded++
		default:
			order.RecordFailure(asOf, result.ReasonCode)
			report.Failed++
			log.Warn("standing order was not settled",
				zap.String("auto_transfer_id", order.ID.String()),
				zap.String("outcome", string(result.Outcome)),
				zap.String("reason", result.ReasonCode),
			)
		}

		if order.Status == banking.AutoTransferPaused {
			report.Paused++
			log.Warn("standing order paused after repeated failures",
				zap.String("auto_transfer_id", order.ID.String()),
				zap.Int("consecutive_failures", order.ConsecutiveFailures),
			)
		}

		if saveErr := s.autoRepo.Save(ctx, order); saveErr != nil {
			log.Error("failed to persist standing order state",
				zap.String("auto_transfer_id", order.ID.String()),
				zap.Error(saveErr),
			)
		}
	}

	telemetry.SetAttributes(span,
		"due", report.Due,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
	)

	return report, nil
}

// Register creates a new standing order
func (s *AutoTransferService) Register(ctx context.Context, order *banking.AutoTransfer) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "auto_transfer", "register")
	defer span.End()

	if err := s.autoRepo.Create(ctx, order); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// Get returns one standing order
func (s *AutoTransferService) Get(ctx context.Context, id uuid.UUID) (*banking.AutoTransfer, error) {
	return s.autoRepo.FindByID(ctx, id)
}

// Cancel terminates a standing order permanently
func (s *AutoTransferService) Cancel(ctx context.Context, id uuid.UUID) error {
	order, err := s.autoRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := order.Cancel(); err != nil {
		return err
	}
	return s.autoRepo.Save(ctx, order)
}

// Resume reactivates a paused standing order
func (s *AutoTransferService) Resume(ctx context.Context, id uuid.UUID) error {
	order, err := s.autoRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := order.Resume(time.Now()); err != nil {
		return err
	}
	return s.autoRepo.Save(ctx, order)
}
