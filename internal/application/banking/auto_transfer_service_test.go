package banking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanainplan/backend/internal/domain/banking"
	"github.com/hanainplan/backend/internal/domain/shared/valueobject"
)

// stubExecutor returns canned transfer results keyed by source account
type stubExecutor struct {
	results map[string]*banking.TransferResult
	err     error
	calls   int
}

func (s *stubExecutor) Execute(ctx context.Context, intent banking.TransferIntent) (*banking.TransferResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if r, ok := s.results[intent.FromAccountNumber]; ok {
		return r, nil
	}
	return &banking.TransferResult{Outcome: banking.OutcomeSuccess}, nil
}

func newStandingOrder(t *testing.T, fromAccount string, day int, createdAt time.Time) *banking.AutoTransfer {
	t.Helper()
	order, err := banking.NewAutoTransfer(
		fromAccount,
		irpNumber,
		valueobject.NewMoneyKRWFromInt(300000),
		banking.PurposeToRetirement,
		"CI-AUTO",
		day,
		createdAt,
	)
	require.NoError(t, err)
	return order
}

func TestExecuteDueRunsOnlyDueOrders(t *testing.T) {
	createdAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	asOf := time.Date(2025, 1, 10, 6, 0, 0, 0, time.UTC)

	repo := newMemAutoTransferRepo()
	due := newStandingOrder(t, sourceNumber, 5, createdAt)
	notDue := newStandingOrder(t, destNumber, 20, createdAt)
	require.NoError(t, repo.Create(context.Background(), due))
	require.NoError(t, repo.Create(context.Background(), notDue))

	executor := &stubExecutor{}
	svc := NewAutoTransferService(repo, executor)

	report, err := svc.ExecuteDue(context.Background(), asOf)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Due)
	assert.Equal(t, 1, report.Succeeded)
	assert.Zero(t, report.Failed)
	assert.Equal(t, 1, executor.calls)

	// Successful run rolls the order to next month's schedule day
	saved, err := repo.FindByID(context.Background(), due.ID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC), saved.NextRunDate)
	assert.Equal(t, 1, saved.TotalRuns)
	assert.Zero(t, saved.ConsecutiveFailures)
}

func TestExecuteDueRecordsRejections(t *testing.T) {
	createdAt := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	asOf := time.Date(2025, 3, 11, 6, 0, 0, 0, time.UTC)

	repo := newMemAutoTransferRepo()
	order := newStandingOrder(t, sourceNumber, 10, createdAt)
	require.NoError(t, repo.Create(context.Background(), order))

	executor := &stubExecutor{results: map[string]*banking.TransferResult{
		sourceNumber: banking.Rejected(banking.ReasonInsufficientBalance, "insufficient balance"),
	}}
	svc := NewAutoTransferService(repo, executor)

	report, err := svc.ExecuteDue(context.Background(), asOf)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Succeeded)

	saved, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, banking.ReasonInsufficientBalance, saved.LastResult)
	assert.Equal(t, 1, saved.ConsecutiveFailures)
	// A single failure does not block future runs
	assert.Equal(t, banking.AutoTransferActive, saved.Status)
	assert.Equal(t, time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), saved.NextRunDate)
}

func TestExecuteDuePausesAfterRepeatedFailures(t *testing.T) {
	createdAt := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	asOf := time.Date(2025, 5, 16, 6, 0, 0, 0, time.UTC)

	repo := newMemAutoTransferRepo()
	order := newStandingOrder(t, sourceNumber, 15, createdAt)
	order.ConsecutiveFailures = 2
	require.NoError(t, repo.Create(context.Background(), order))

	executor := &stubExecutor{results: map[string]*banking.TransferResult{
		sourceNumber: banking.Rejected(banking.ReasonAccountInactive, "source suspended"),
	}}
	svc := NewAutoTransferService(repo, executor)

	report, err := svc.ExecuteDue(context.Background(), asOf)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Paused)

	saved, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, banking.AutoTransferPaused, saved.Status)
	assert.Equal(t, 3, saved.ConsecutiveFailures)

	// A paused order is no longer due
	dueAgain, err := repo.FindDue(context.Background(), asOf.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Empty(t, dueAgain)
}

func TestExecuteDueInfrastructureFaultCountsAsFailure(t *testing.T) {
	createdAt := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	asOf := time.Date(2025, 7, 3, 6, 0, 0, 0, time.UTC)

	repo := newMemAutoTransferRepo()
	order := newStandingOrder(t, sourceNumber, 2, createdAt)
	require.NoError(t, repo.Create(context.Background(), order))

	executor := &stubExecutor{err: assert.AnError}
	svc := NewAutoTransferService(repo, executor)

	report, err := svc.ExecuteDue(context.Background(), asOf)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	saved, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.ConsecutiveFailures)
}

func TestRegisterStandingOrder(t *testing.T) {
	repo := newMemAutoTransferRepo()
	svc := NewAutoTransferService(repo, &stubExecutor{})

	order := newStandingOrder(t, sourceNumber, 5, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, svc.Register(context.Background(), order))

	saved, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, banking.AutoTransferActive, saved.Status)
}
