package banking

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hanainplan/backend/internal/domain/banking"
	"github.com/hanainplan/backend/internal/domain/shared"
	"github.com/hanainplan/backend/internal/infrastructure/logger"
	"github.com/hanainplan/backend/internal/infrastructure/telemetry"
)

// VerificationResult describes an account as seen by the verification
// service, whether resolved locally or via a partner bank
type VerificationResult struct {
	AccountNumber string                `json:"account_number"`
	Exists        bool                  `json:"exists"`
	Kind          banking.AccountKind   `json:"kind,omitempty"`
	Status        banking.AccountStatus `json:"status,omitempty"`
	BankCode      banking.BankCode      `json:"bank_code"`
	BankName      string                `json:"bank_name"`
	Local         bool                  `json:"local"`
}

// IsTransferable reports whether the account can receive funds
func (r *VerificationResult) IsTransferable() bool {
	return r.Exists && r.Status == banking.AccountStatusActive
}

// VerificationCache caches remote verification results for a short TTL.
// A miss is (nil, nil).
type VerificationCache interface {
	Get(ctx context.Context, accountNumber string) (*VerificationResult, error)
	Set(ctx context.Context, result *VerificationResult) error
}

// AccountVerificationService resolves whether an account exists and can
// receive transfers. Locally held rows answer immediately; everything
// else is routed to the owning bank's gateway, with results cached.
type AccountVerificationService struct {
	accountRepo banking.AccountRepository
	registry    *banking.GatewayRegistry
	cache       VerificationCache
}

// NewAccountVerificationService creates a new verification service
func NewAccountVerificationService(
	accountRepo banking.AccountRepository,
	registry *banking.GatewayRegistry,
	cache VerificationCache,
) *AccountVerificationService {
	return &AccountVerificationService{
		accountRepo: accountRepo,
		registry:    registry,
		cache:       cache,
	}
}

// Verify resolves the account. Unknown bank prefixes are a terminal
// classification: no gateway is contacted for them.
func (s *AccountVerificationService) Verify(ctx context.Context, accountNumber string) (*VerificationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "account_verification", "verify")
	defer span.End()

	normalized := banking.NormalizeAccountNumber(accountNumber)
	telemetry.SetAttributes(span, telemetry.SpanAttrToAccount, normalized)

	bankCode, err := banking.ResolveBankCode(normalized)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrBankCode, string(bankCode))

	// Locally held rows are authoritative and need no gateway call
	account, err := s.accountRepo.FindByNumber(ctx, normalized)
	if err == nil {
		return &VerificationResult{
			AccountNumber: normalized,
			Exists:        true,
			Kind:          account.Kind,
			Status:        account.Status,
			BankCode:      bankCode,
			BankName:      bankCode.BankName(),
			Local:         true,
		}, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.cache != nil {
		cached, cacheErr := s.cache.Get(ctx, normalized)
		if cacheErr != nil {
			logger.L(ctx).Warn("verification cache read failed", zap.Error(cacheErr))
		} else if cached != nil {
			telemetry.AddEvent(span, "verification_cache_hit")
			return cached, nil
		}
	}

	gateway, err := s.registry.Resolve(bankCode)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	info, err := gateway.VerifyAccount(ctx, normalized)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &VerificationResult{
		AccountNumber: normalized,
		Exists:        info.Exists,
		Kind:          info.Kind,
		Status:        info.Status,
		BankCode:      bankCode,
		BankName:      bankCode.BankName(),
	}

	if s.cache != nil {
		if cacheErr := s.cache.Set(ctx, result); cacheErr != nil {
			logger.L(ctx).Warn("verification cache write failed", zap.Error(cacheErr))
		}
	}

	return result, nil
}
