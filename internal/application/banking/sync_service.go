package banking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hanainplan/backend/internal/domain/banking"
	"github.com/hanainplan/backend/internal/domain/shared"
	"github.com/hanainplan/backend/internal/infrastructure/logger"
	"github.com/hanainplan/backend/internal/infrastructure/telemetry"
)

// LedgerSyncService pulls ledger entries recorded at partner banks into
// the local ledger. Sync is incremental from the newest local entry and
// idempotent by external reference, so repeated runs never duplicate.
type LedgerSyncService struct {
	ledgerRepo banking.LedgerRepository
	registry   *banking.GatewayRegistry
}

// NewLedgerSyncService creates a new ledger sync service
func NewLedgerSyncService(ledgerRepo banking.LedgerRepository, registry *banking.GatewayRegistry) *LedgerSyncService {
	return &LedgerSyncService{
		ledgerRepo: ledgerRepo,
		registry:   registry,
	}
}

// SyncAccount pulls new entries for the account from its owning bank
// and appends them locally. Returns the number of entries appended.
func (s *LedgerSyncService) SyncAccount(ctx context.Context, accountNumber string) (int, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger_sync", "sync_account")
	defer span.End()

	normalized := banking.NormalizeAccountNumber(accountNumber)
	telemetry.SetAttributes(span, "account_number", normalized)

	gateway, err := s.registry.ResolveForAccount(normalized)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}

	since := time.Time{}
	latest, err := s.ledgerRepo.FindLatestByAccountNumber(ctx, normalized)
	switch {
	case err == nil:
		if latest.ProcessedAt != nil {
			since = *latest.ProcessedAt
		}
	case errors.Is(err, shared.ErrNotFound):
		// First sync pulls the full remote history
	default:
		telemetry.RecordError(span, err)
		return 0, err
	}

	remote, err := gateway.FetchEntriesSince(ctx, normalized, since)
	if err != nil {
		telemetry.RecordError(span, err)
		return 0, err
	}

	appended := 0
	log := logger.L(ctx)
	for _, re := range remote {
		exists, err := s.ledgerRepo.ExistsByExternalRef(ctx, normalized, re.ExternalRef)
		if err != nil {
			telemetry.RecordError(span, err)
			return appended, err
		}
		if exists {
			continue
		}

		entry := remoteEntryToLedger(normalized, re)
		if err := s.ledgerRepo.Append(ctx, entry); err != nil {
			telemetry.RecordError(span, err)
			return appended, err
		}
		appended++
	}

	log.Info("ledger sync completed",
		zap.String("account_number", normalized),
		zap.Int("fetched", len(remote)),
		zap.Int("appended", appended),
	)
	telemetry.SetAttributes(span, "fetched", len(remote), "appended", appended)

	return appended, nil
}

// remoteEntryToLedger converts a partner bank row into a local ledger
// entry. Synced entries arrive settled; their processed time is the
// remote bank's.
func remoteEntryToLedger(accountNumber string, re *banking.RemoteEntry) *banking.LedgerEntry {
	processedAt := re.ProcessedAt
	entry := &banking.LedgerEntry{
		BaseEntity:     shared.NewBaseEntity(),
		CorrelationRef: "SYNC-" + re.ExternalRef,
		Direction:      re.Direction,
		Amount:         re.Amount,
		BalanceAfter:   re.BalanceAfter,
		Status:         banking.EntryStatusCompleted,
		AccountNumber:  accountNumber,
		Description:    re.Description,
		ExternalRef:    re.ExternalRef,
		InitiatedAt:    re.ProcessedAt,
		ProcessedAt:    &processedAt,
	}
	if re.Direction == banking.DirectionDebit {
		entry.FromAccountNumber = accountNumber
		entry.ToAccountNumber = re.Counterparty
	} else {
		entry.ToAccountNumber = accountNumber
		entry.FromAccountNumber = re.Counterparty
	}
	return entry
}
