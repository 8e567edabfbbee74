package banking

import (
	"time"

	"github.com/hanainplan/backend/internal/domain/shared"
	"github.com/hanainplan/backend/internal/domain/shared/valueobject"
)

// AutoTransferStatus is the lifecycle state of a standing order
type AutoTransferStatus string

const (
	AutoTransferActive    AutoTransferStatus = "ACTIVE"
	AutoTransferPaused    AutoTransferStatus = "PAUSED"
	AutoTransferCancelled AutoTransferStatus = "CANCELLED"
)

// maxConsecutiveFailures pauses a standing order after this many
// failed runs in a row
const maxConsecutiveFailures = 3

// AutoTransfer is a monthly standing order executed on ScheduleDay.
// ScheduleDay is capped at 28 so every month has the date.
type AutoTransfer struct {
	shared.BaseEntity
	FromAccountNumber   string             `json:"from_account_number"`
	ToAccountNumber     string             `json:"to_account_number"`
	Amount              valueobject.Money  `json:"amount"`
	Purpose             TransferPurpose    `json:"purpose"`
	CustomerCI          string             `json:"customer_ci"`
	Memo                string             `json:"memo"`
	ScheduleDay         int                `json:"schedule_day"`
	Status              AutoTransferStatus `json:"status"`
	NextRunDate         time.Time          `json:"next_run_date"`
	LastResult          string             `json:"last_result,omitempty"`
	LastRunAt           *time.Time         `json:"last_run_at,omitempty"`
	TotalRuns           int                `json:"total_runs"`
	ConsecutiveFailures int                `json:"consecutive_failures"`
}

// NewAutoTransfer creates an active standing order. The first run date
// is the next occurrence of scheduleDay strictly after from.
func NewAutoTransfer(fromAccount, toAccount string, amount valueobject.Money, purpose TransferPurpose, customerCI string, scheduleDay int, from time.Time) (*AutoTransfer, error) {
	if scheduleDay < 1 || scheduleDay > 28 {
		return nil, shared.NewDomainError("INVALID_INPUT", "schedule day must be between 1 and 28")
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	intent := TransferIntent{
		FromAccountNumber: fromAccount,
		ToAccountNumber:   toAccount,
		Amount:            amount,
		Purpose:           purpose,
	}
	if err := intent.Validate(); err != nil {
		return nil, err
	}
	return &AutoTransfer{
		BaseEntity:        shared.NewBaseEntity(),
		FromAccountNumber: NormalizeAccountNumber(fromAccount),
		ToAccountNumber:   NormalizeAccountNumber(toAccount),
		Amount:            amount,
		Purpose:           purpose,
		CustomerCI:        customerCI,
		ScheduleDay:       scheduleDay,
		Status:            AutoTransferActive,
		NextRunDate:       nextOccurrence(scheduleDay, from),
	}, nil
}

// Intent builds the transfer intent for one execution of the order
func (a *AutoTransfer) Intent() TransferIntent {
	return TransferIntent{
		FromAccountNumber: a.FromAccountNumber,
		ToAccountNumber:   a.ToAccountNumber,
		Amount:            a.Amount,
		Purpose:           a.Purpose,
		CustomerCI:        a.CustomerCI,
		Memo:              a.Memo,
	}
}

// IsDue reports whether the order should run at asOf
func (a *AutoTransfer) IsDue(asOf time.Time) bool {
	return a.Status == AutoTransferActive && !a.NextRunDate.After(asOf)
}

// RecordSuccess marks a successful run and schedules the next one
func (a *AutoTransfer) RecordSuccess(asOf time.Time) {
	a.TotalRuns++
	a.ConsecutiveFailures = 0
	a.LastResult = string(OutcomeSuccess)
	runAt := asOf
	a.LastRunAt = &runAt
	a.NextRunDate = nextOccurrence(a.ScheduleDay, asOf)
	a.Touch()
}

// RecordFailure marks a failed run. The order still advances to the
// next month; after maxConsecutiveFailures it is paused instead.
func (a *AutoTransfer) RecordFailure(asOf time.Time, reason string) {
	a.TotalRuns++
	a.ConsecutiveFailures++
	a.LastResult = reason
	runAt := asOf
	a.LastRunAt = &runAt
	if a.ConsecutiveFailures >= maxConsecutiveFailures {
		a.Status = AutoTransferPaused
	} else {
		a.NextRunDate = nextOccurrence(a.ScheduleDay, asOf)
	}
	a.Touch()
}

// Resume reactivates a paused order and resets the failure streak
func (a *AutoTransfer) Resume(from time.Time) error {
	if a.Status != AutoTransferPaused {
		return shared.ErrInvalidState
	}
	a.Status = AutoTransferActive
	a.ConsecutiveFailures = 0
	a.NextRunDate = nextOccurrence(a.ScheduleDay, from)
	a.Touch()
	return nil
}

// Cancel terminates the order permanently
func (a *AutoTransfer) Cancel() error {
	if a.Status == AutoTransferCancelled {
		return shared.ErrInvalidState
	}
	a.Status = AutoTransferCancelled
	a.Touch()
	return nil
}

// nextOccurrence returns the next date with day-of-month scheduleDay
// strictly after the given time, at midnight in its location.
func nextOccurrence(scheduleDay int, after time.Time) time.Time {
	year, month, day := after.Date()
	loc := after.Location()
	candidate := time.Date(year, month, scheduleDay, 0, 0, 0, 0, loc)
	if scheduleDay <= day {
		candidate = time.Date(year, month+1, scheduleDay, 0, 0, 0, 0, loc)
	}
	return candidate
}
