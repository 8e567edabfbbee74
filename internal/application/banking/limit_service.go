package banking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hanainplan/backend/internal/domain/banking"
	"github.com/hanainplan/backend/internal/domain/shared/valueobject"
	"github.com/hanainplan/backend/internal/infrastructure/logger"
	"github.com/hanainplan/backend/internal/infrastructure/telemetry"
)

// AnnualContributionCeiling is the regulatory annual limit for
// retirement account contributions, in KRW. It is a legal constant,
// not configuration.
var AnnualContributionCeiling = decimal.NewFromInt(9_000_000)

// AnnualLimitStatus describes a customer's contribution window for a year
type AnnualLimitStatus struct {
	CustomerCI  string            `json:"customer_ci"`
	Year        int               `json:"year"`
	Ceiling     valueobject.Money `json:"ceiling"`
	Contributed valueobject.Money `json:"contributed"`
	Remaining   valueobject.Money `json:"remaining"`
}

// ContributionLimitService guards the annual retirement contribution
// ceiling. Totals are computed from the ledger on every call; they are
// never cached, because a stale total could admit an over-limit
// contribution.
type ContributionLimitService struct {
	ledgerRepo banking.LedgerRepository
}

// NewContributionLimitService creates a new contribution limit service
func NewContributionLimitService(ledgerRepo banking.LedgerRepository) *ContributionLimitService {
	return &ContributionLimitService{ledgerRepo: ledgerRepo}
}

// CheckAnnualLimit verifies that contributing amount would not push the
// customer's calendar-year total over the ceiling. Returns a
// *banking.LimitExceededError when it would; the caller treats that as
// a rejection, not a system fault.
func (s *ContributionLimitService) CheckAnnualLimit(ctx context.Context, customerCI string, amount valueobject.Money, asOf time.Time) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "contribution_limit", "check")
	defer span.End()

	year := asOf.Year()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrCustomerCI, customerCI,
		telemetry.SpanAttrAmount, amount.Amount().String(),
		"year", year,
	)

	total, err := s.ledgerRepo.SumCompletedRetirementCredits(ctx, customerCI, year)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if total.Add(amount.Amount()).GreaterThan(AnnualContributionCeiling) {
		remaining := valueobject.NewMoneyKRW(AnnualContributionCeiling.Sub(total)).Floor()
		limitErr := &banking.LimitExceededError{
			CustomerCI: customerCI,
			Requested:  amount,
			Remaining:  remaining,
			Year:       year,
		}
		logger.L(ctx).Warn("annual contribution limit exceeded",
			zap.String("customer_ci", customerCI),
			zap.String("requested", amount.Amount().String()),
			zap.String("remaining", remaining.Amount().String()),
			zap.Int("year", year),
		)
		telemetry.RecordError(span, limitErr)
		return limitErr
	}

	return nil
}

// AnnualLimitStatus reports the customer's contribution window for the
// year containing asOf
func (s *ContributionLimitService) AnnualLimitStatus(ctx context.Context, customerCI string, asOf time.Time) (*AnnualLimitStatus, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "contribution_limit", "status")
	defer span.End()

	year := asOf.Year()
	total, err := s.ledgerRepo.SumCompletedRetirementCredits(ctx, customerCI, year)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	return &AnnualLimitStatus{
		CustomerCI:  customerCI,
		Year:        year,
		Ceiling:     valueobject.NewMoneyKRW(AnnualContributionCeiling),
		Contributed: valueobject.NewMoneyKRW(total),
		Remaining:   valueobject.NewMoneyKRW(AnnualContributionCeiling.Sub(total)).Floor(),
	}, nil
}
