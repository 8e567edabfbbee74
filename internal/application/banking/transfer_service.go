package banking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hanainplan/backend/internal/domain/banking"
	"github.com/hanainplan/backend/internal/domain/shared"
	"github.com/hanainplan/backend/internal/domain/shared/valueobject"
	"github.com/hanainplan/backend/internal/infrastructure/logger"
	"github.com/hanainplan/backend/internal/infrastructure/telemetry"
)

// limitGuard is the slice of ContributionLimitService the orchestrator needs
type limitGuard interface {
	CheckAnnualLimit(ctx context.Context, customerCI string, amount valueobject.Money, asOf time.Time) error
}

// destinationVerifier is the slice of AccountVerificationService the
// orchestrator needs
type destinationVerifier interface {
	Verify(ctx context.Context, accountNumber string) (*VerificationResult, error)
}

// TransferService orchestrates funds movement between accounts. A
// transfer walks validation, the contribution-limit gate, the remote
// withdrawal, the local debit commit, the remote deposit, and the local
// credit commit, and always ends in one of three classifications:
// SUCCESS, REJECTED, or PARTIAL_FAILURE. Rejections are returned as
// results; the error return carries only infrastructure faults.
type TransferService struct {
	accountRepo    banking.AccountRepository
	ledgerRepo     banking.LedgerRepository
	txManager      banking.TransactionManager
	registry       *banking.GatewayRegistry
	limits         limitGuard
	verifier       destinationVerifier
	locks          *accountLocks
	gatewayTimeout time.Duration
}

// NewTransferService creates a new transfer service
func NewTransferService(
	accountRepo banking.AccountRepository,
	ledgerRepo banking.LedgerRepository,
	txManager banking.TransactionManager,
	registry *banking.GatewayRegistry,
	limits limitGuard,
	verifier destinationVerifier,
	gatewayTimeout time.Duration,
) *TransferService {
	if gatewayTimeout <= 0 {
		gatewayTimeout = 10 * time.Second
	}
	return &TransferService{
		accountRepo:    accountRepo,
		ledgerRepo:     ledgerRepo,
		txManager:      txManager,
		registry:       registry,
		limits:         limits,
		verifier:       verifier,
		locks:          newAccountLocks(),
		gatewayTimeout: gatewayTimeout,
	}
}

// Execute runs a transfer to a terminal classification. The caller's
// context is honored up to the point the withdrawal is issued; after
// that the transfer runs to completion on detached timeouts so a
// half-settled movement is never abandoned mid-flight.
func (s *TransferService) Execute(ctx context.Context, intent banking.TransferIntent) (*banking.TransferResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "transfer", "execute")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrFromAccount, banking.NormalizeAccountNumber(intent.FromAccountNumber),
		telemetry.SpanAttrToAccount, banking.NormalizeAccountNumber(intent.ToAccountNumber),
		telemetry.SpanAttrAmount, intent.Amount.Amount().String(),
		telemetry.SpanAttrPurpose, string(intent.Purpose),
	)

	result, err := s.execute(ctx, intent)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrOutcome, string(result.Outcome))
	if result.CorrelationRef != "" {
		telemetry.SetAttributes(span, telemetry.SpanAttrCorrelationRef, result.CorrelationRef)
	}
	return result, nil
}

func (s *TransferService) execute(ctx context.Context, intent banking.TransferIntent) (*banking.TransferResult, error) {
	// Stateless validation
	if err := intent.Validate(); err != nil {
		return rejectedFromDomainErr(err), nil
	}

	from := banking.NormalizeAccountNumber(intent.FromAccountNumber)
	to := banking.NormalizeAccountNumber(intent.ToAccountNumber)

	sourceGateway, err := s.registry.ResolveForAccount(from)
	if err != nil {
		return nil, err
	}
	destGateway, err := s.registry.ResolveForAccount(to)
	if err != nil {
		return nil, err
	}

	// Serialize transfers per source account: the lock spans the
	// sufficient-funds check, the remote withdrawal, and the local
	// debit commit, so concurrent transfers cannot both pass the gate
	// on the same balance.
	s.locks.Lock(from)
	sourceLocked := true
	unlockSource := func() {
		if sourceLocked {
			s.locks.Unlock(from)
			sourceLocked = false
		}
	}
	defer unlockSource()

	source, err := s.accountRepo.FindByNumber(ctx, from)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return banking.Rejected(banking.ReasonAccountNotFound, "source account not found"), nil
		}
		return nil, err
	}
	if !source.IsActive() {
		return banking.Rejected(banking.ReasonAccountInactive, "source account is not active"), nil
	}

	ok, err := source.CanCover(intent.Amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return banking.Rejected(banking.ReasonInsufficientBalance, "insufficient balance in source account"), nil
	}

	destination, err := s.verifier.Verify(ctx, to)
	if err != nil {
		var gwErr *banking.GatewayError
		if errors.As(err, &gwErr) {
			return banking.Rejected(banking.ReasonAccountNotFound, "destination account could not be verified"), nil
		}
		if errors.Is(err, banking.ErrUnknownBank) {
			return banking.Rejected(banking.ReasonUnknownBank, "destination bank is not supported"), nil
		}
		return nil, err
	}
	if !destination.IsTransferable() {
		if !destination.Exists {
			return banking.Rejected(banking.ReasonAccountNotFound, "destination account does not exist"), nil
		}
		return banking.Rejected(banking.ReasonAccountInactive, "destination account is not active"), nil
	}
	if intent.Purpose == banking.PurposeToRetirement && destination.Kind != banking.AccountKindRetirement {
		return banking.Rejected(banking.ReasonAccountNotFound, "destination is not a retirement account"), nil
	}

	// The ceiling gate is keyed off the destination's kind, never the
	// declared purpose: every credit into a retirement account counts
	// toward the ceiling. It runs before any mutation, local or remote.
	if destination.Kind == banking.AccountKindRetirement {
		customerCI := intent.CustomerCI
		if customerCI == "" {
			if !destination.Local {
				return banking.Rejected(banking.ReasonMissingCustomerCI,
					"deposits into a retirement account require the contributor's customer CI"), nil
			}
			destAccount, lookupErr := s.accountRepo.FindByNumber(ctx, to)
			if lookupErr != nil {
				return nil, lookupErr
			}
			customerCI = destAccount.CustomerCI
		}
		if err := s.limits.CheckAnnualLimit(ctx, customerCI, intent.Amount, time.Now()); err != nil {
			var limitErr *banking.LimitExceededError
			if errors.As(err, &limitErr) {
				return &banking.TransferResult{
					Outcome:    banking.OutcomeRejected,
					ReasonCode: banking.ReasonLimitExceeded,
					Message:    limitErr.Error(),
				}, nil
			}
			return nil, err
		}
	}

	// Last cancellation point: once the withdrawal goes out, the
	// transfer runs to a terminal state.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	correlationRef := banking.NewCorrelationRef()
	ctx, log := logger.WithCorrelationRef(ctx, logger.FromContext(ctx), correlationRef)

	// Remote withdrawal on a detached timeout context: the caller
	// hanging up must not abandon a transfer whose funds may already
	// have moved.
	withdrawReceipt, err := s.withdrawDetached(ctx, sourceGateway, from, intent.Amount, intent.Memo)
	if err != nil {
		failed := banking.NewFailedEntry(correlationRef, from, banking.DirectionDebit, intent.Amount, gatewayFailureReason(err))
		failed.ToAccountNumber = to
		failed.Description = intent.Memo
		if appendErr := s.ledgerRepo.Append(ctx, failed); appendErr != nil {
			log.Error("failed to record rejected withdrawal", zap.Error(appendErr))
		}
		log.Warn("withdrawal declined by source bank",
			zap.String("bank_code", string(sourceGateway.BankCode())),
			zap.Error(err),
		)
		return &banking.TransferResult{
			Outcome:        banking.OutcomeRejected,
			ReasonCode:     banking.ReasonWithdrawalFailed,
			Message:        "withdrawal was declined by the source bank",
			CorrelationRef: correlationRef,
			Entries:        []*banking.LedgerEntry{failed},
		}, nil
	}

	// Local debit and its ledger entry commit atomically
	var debitEntry *banking.LedgerEntry
	var balanceAfter valueobject.Money
	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		newBalance, adjErr := s.accountRepo.AdjustBalance(txCtx, source.ID, intent.Amount.Amount().Neg())
		if adjErr != nil {
			return adjErr
		}
		balanceAfter = valueobject.NewMoneyKRW(newBalance)
		debitEntry = banking.NewDebitEntry(correlationRef, from, intent.Amount, balanceAfter)
		debitEntry.ToAccountNumber = to
		debitEntry.FromAccountID = &source.ID
		debitEntry.Description = intent.Memo
		debitEntry.ExternalRef = withdrawReceipt.TransactionID
		return s.ledgerRepo.Append(txCtx, debitEntry)
	})
	if err != nil {
		// The remote withdrawal succeeded but the local mirror could not
		// be debited. This needs an operator, never an automatic retry.
		failed := banking.NewFailedEntry(correlationRef, from, banking.DirectionDebit, intent.Amount, banking.ReasonLocalDebitFailed)
		failed.ToAccountNumber = to
		failed.ExternalRef = withdrawReceipt.TransactionID
		if appendErr := s.ledgerRepo.Append(ctx, failed); appendErr != nil {
			log.Error("failed to record local debit anomaly", zap.Error(appendErr))
		}
		log.Error("local debit failed after remote withdrawal succeeded",
			zap.String("external_ref", withdrawReceipt.TransactionID),
			zap.Error(err),
		)
		return &banking.TransferResult{
			Outcome:        banking.OutcomePartialFailure,
			ReasonCode:     banking.ReasonLocalDebitFailed,
			Message:        "funds left the source bank but the local ledger could not record the debit",
			CorrelationRef: correlationRef,
			Entries:        []*banking.LedgerEntry{failed},
			LocalAnomaly:   true,
		}, nil
	}
	unlockSource()

	// Credit leg: remote deposit, then the local mirror if one exists
	depositReceipt, err := s.depositDetached(ctx, destGateway, to, intent.Amount, intent.Memo, destination.Kind)
	if err != nil {
		failed := banking.NewFailedEntry(correlationRef, to, banking.DirectionCredit, intent.Amount, gatewayFailureReason(err))
		failed.FromAccountNumber = from
		failed.Description = intent.Memo
		if appendErr := s.ledgerRepo.Append(ctx, failed); appendErr != nil {
			log.Error("failed to record deposit failure", zap.Error(appendErr))
		}
		log.Error("deposit failed after withdrawal settled",
			zap.String("bank_code", string(destGateway.BankCode())),
			zap.String("withdraw_external_ref", withdrawReceipt.TransactionID),
			zap.Error(err),
		)
		return &banking.TransferResult{
			Outcome:            banking.OutcomePartialFailure,
			ReasonCode:         banking.ReasonDepositFailed,
			Message:            "withdrawal settled but the deposit was not completed",
			CorrelationRef:     correlationRef,
			SourceBalanceAfter: &balanceAfter,
			Entries:            []*banking.LedgerEntry{debitEntry, failed},
		}, nil
	}

	creditEntry, localAnomaly, err := s.commitCreditLeg(ctx, correlationRef, from, to, intent, destination, depositReceipt)
	if err != nil {
		return nil, err
	}
	if localAnomaly {
		log.Error("local credit failed after remote deposit succeeded",
			zap.String("external_ref", depositReceipt.TransactionID),
		)
		return &banking.TransferResult{
			Outcome:            banking.OutcomePartialFailure,
			ReasonCode:         banking.ReasonLocalCreditFailed,
			Message:            "deposit settled remotely but the local ledger could not record the credit",
			CorrelationRef:     correlationRef,
			SourceBalanceAfter: &balanceAfter,
			Entries:            []*banking.LedgerEntry{debitEntry, creditEntry},
			LocalAnomaly:       true,
		}, nil
	}

	log.Info("transfer settled",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("amount", intent.Amount.Amount().String()),
		zap.String("purpose", string(intent.Purpose)),
	)

	return &banking.TransferResult{
		Outcome:            banking.OutcomeSuccess,
		CorrelationRef:     correlationRef,
		SourceBalanceAfter: &balanceAfter,
		Entries:            []*banking.LedgerEntry{debitEntry, creditEntry},
	}, nil
}

// commitCreditLeg records the credit side. Destinations mirrored
// locally get their balance adjusted in the same transaction as the
// ledger append; purely external destinations get only the ledger leg.
func (s *TransferService) commitCreditLeg(
	ctx context.Context,
	correlationRef, from, to string,
	intent banking.TransferIntent,
	destination *VerificationResult,
	receipt *banking.GatewayReceipt,
) (*banking.LedgerEntry, bool, error) {
	if !destination.Local {
		entry := banking.NewCreditEntry(correlationRef, to, intent.Amount, valueobject.ZeroKRW())
		entry.FromAccountNumber = from
		entry.Description = intent.Memo
		entry.ExternalRef = receipt.TransactionID
		if err := s.ledgerRepo.Append(ctx, entry); err != nil {
			return nil, false, err
		}
		return entry, false, nil
	}

	// The deposit has already settled remotely. From here on, any local
	// failure is an anomaly to surface, never an error to swallow: the
	// external ref must land in a FAILED entry for the reconciler.
	destAccount, err := s.accountRepo.FindByNumber(ctx, to)
	if err != nil {
		return s.recordCreditAnomaly(ctx, correlationRef, from, to, intent, receipt), true, nil
	}

	var entry *banking.LedgerEntry
	err = s.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		newBalance, adjErr := s.accountRepo.AdjustBalance(txCtx, destAccount.ID, intent.Amount.Amount())
		if adjErr != nil {
			return adjErr
		}
		entry = banking.NewCreditEntry(correlationRef, to, intent.Amount, valueobject.NewMoneyKRW(newBalance))
		entry.FromAccountNumber = from
		entry.ToAccountID = &destAccount.ID
		entry.Description = intent.Memo
		entry.ExternalRef = receipt.TransactionID
		return s.ledgerRepo.Append(txCtx, entry)
	})
	if err != nil {
		return s.recordCreditAnomaly(ctx, correlationRef, from, to, intent, receipt), true, nil
	}
	return entry, false, nil
}

// recordCreditAnomaly appends the FAILED credit entry that marks a
// settled remote deposit whose local mirror could not be updated
func (s *TransferService) recordCreditAnomaly(
	ctx context.Context,
	correlationRef, from, to string,
	intent banking.TransferIntent,
	receipt *banking.GatewayReceipt,
) *banking.LedgerEntry {
	failed := banking.NewFailedEntry(correlationRef, to, banking.DirectionCredit, intent.Amount, banking.ReasonLocalCreditFailed)
	failed.FromAccountNumber = from
	failed.Description = intent.Memo
	failed.ExternalRef = receipt.TransactionID
	if appendErr := s.ledgerRepo.Append(ctx, failed); appendErr != nil {
		logger.L(ctx).Error("failed to record local credit anomaly", zap.Error(appendErr))
	}
	return failed
}

// FindByCorrelationRef returns the ledger legs recorded under a
// correlation ref
func (s *TransferService) FindByCorrelationRef(ctx context.Context, correlationRef string) ([]*banking.LedgerEntry, error) {
	entries, err := s.ledgerRepo.FindByCorrelationRef(ctx, correlationRef)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, shared.ErrNotFound
	}
	return entries, nil
}

// withdrawDetached issues the withdrawal on a context that survives
// caller cancellation but is bounded by the gateway timeout
func (s *TransferService) withdrawDetached(ctx context.Context, gw banking.BankGateway, accountNumber string, amount valueobject.Money, memo string) (*banking.GatewayReceipt, error) {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.gatewayTimeout)
	defer cancel()
	return gw.Withdraw(detached, accountNumber, amount, memo)
}

// depositDetached issues the deposit on a detached timeout context
func (s *TransferService) depositDetached(ctx context.Context, gw banking.BankGateway, accountNumber string, amount valueobject.Money, memo string, kind banking.AccountKind) (*banking.GatewayReceipt, error) {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.gatewayTimeout)
	defer cancel()
	return gw.Deposit(detached, accountNumber, amount, memo, kind)
}

func rejectedFromDomainErr(err error) *banking.TransferResult {
	switch {
	case errors.Is(err, banking.ErrInvalidAmount):
		return banking.Rejected(banking.ReasonInvalidAmount, "transfer amount must be positive")
	case errors.Is(err, banking.ErrSameAccount):
		return banking.Rejected(banking.ReasonSameAccount, "source and destination accounts must differ")
	case errors.Is(err, banking.ErrUnknownBank):
		return banking.Rejected(banking.ReasonUnknownBank, "account number does not map to a supported bank")
	default:
		return banking.Rejected("VALIDATION_FAILED", err.Error())
	}
}

func gatewayFailureReason(err error) string {
	var gwErr *banking.GatewayError
	if errors.As(err, &gwErr) {
		if gwErr.Timeout {
			return "gateway timeout: " + gwErr.Message
		}
		return gwErr.Message
	}
	return err.Error()
}
