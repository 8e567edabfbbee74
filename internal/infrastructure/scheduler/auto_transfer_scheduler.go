package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	appbanking "github.com/hanainplan/backend/internal/application/banking"
	"github.com/hanainplan/backend/internal/infrastructure/config"
)

// ErrSchedulerNotRunning is returned when a manual trigger hits a
// stopped scheduler
var ErrSchedulerNotRunning = errors.New("scheduler is not running")

// dueRunner is the slice of AutoTransferService the scheduler needs
type dueRunner interface {
	ExecuteDue(ctx context.Context, asOf time.Time) (*appbanking.ExecutionReport, error)
}

// AutoTransferScheduler runs due standing orders once per day at the
// configured hour. The check ticker fires more often than that; a
// last-run-date guard keeps the daily run from repeating within the
// same day even when the hour window spans several ticks.
type AutoTransferScheduler struct {
	config config.SchedulerConfig
	runner dueRunner
	logger *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	lastRunDate string // YYYY-MM-DD of the last completed daily run
	lastRunAt   *time.Time
}

// NewAutoTransferScheduler creates a new scheduler
func NewAutoTransferScheduler(cfg config.SchedulerConfig, runner dueRunner, logger *zap.Logger) *AutoTransferScheduler {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	return &AutoTransferScheduler{
		config: cfg,
		runner: runner,
		logger: logger,
	}
}

// Start starts the scheduler loop
func (s *AutoTransferScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("auto transfer scheduler started",
		zap.Int("run_hour", s.config.RunHour),
		zap.Duration("check_interval", s.config.CheckInterval),
	)
	return nil
}

// Stop stops the scheduler and waits for an in-flight run to finish
func (s *AutoTransferScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("auto transfer scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("auto transfer scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *AutoTransferScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				s.runOnce(ctx, now)
			}
		}
	}
}

// shouldRun reports whether the daily run is due at now
func (s *AutoTransferScheduler) shouldRun(now time.Time) bool {
	if now.Hour() != s.config.RunHour {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunDate != now.Format("2006-01-02")
}

// runOnce executes due standing orders and records the run date
func (s *AutoTransferScheduler) runOnce(ctx context.Context, now time.Time) {
	report, err := s.runner.ExecuteDue(ctx, now)
	if err != nil {
		s.logger.Error("auto transfer run failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.lastRunDate = now.Format("2006-01-02")
	runAt := now
	s.lastRunAt = &runAt
	s.mu.Unlock()

	s.logger.Info("auto transfer run completed",
		zap.Int("due", report.Due),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("paused", report.Paused),
	)
}

// TriggerManualRun runs due orders immediately, outside the daily
// window. Runs on a background context so a hung-up HTTP caller does
// not cancel order execution mid-batch.
func (s *AutoTransferScheduler) TriggerManualRun() error {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()
	if !running {
		return ErrSchedulerNotRunning
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce(context.Background(), time.Now())
	}()
	return nil
}

// Status reports the scheduler's current state
func (s *AutoTransferScheduler) Status() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"enabled":     s.config.Enabled,
		"is_running":  s.isRunning,
		"run_hour":    s.config.RunHour,
		"last_run_at": s.lastRunAt,
	}
}
