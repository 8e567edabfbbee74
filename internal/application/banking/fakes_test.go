package banking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hanainplan/backend/internal/domain/banking"
	"github.com/hanainplan/backend/internal/domain/shared"
	"github.com/hanainplan/backend/internal/domain/shared/valueobject"
)

// memAccountRepo is a thread-safe in-memory account store
type memAccountRepo struct {
	mu       sync.Mutex
	byNumber map[string]*banking.Account
	byID     map[uuid.UUID]*banking.Account
	// failAdjustFor forces AdjustBalance to fail for the given account IDs
	failAdjustFor map[uuid.UUID]error
	// failFindFor forces FindByNumber to fail for the given account numbers
	failFindFor map[string]error
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{
		byNumber:      make(map[string]*banking.Account),
		byID:          make(map[uuid.UUID]*banking.Account),
		failAdjustFor: make(map[uuid.UUID]error),
		failFindFor:   make(map[string]error),
	}
}

func (r *memAccountRepo) add(acc *banking.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byNumber[acc.AccountNumber] = acc
	r.byID[acc.ID] = acc
}

func (r *memAccountRepo) balance(number string) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byNumber[number].Balance.Amount()
}

func (r *memAccountRepo) FindByID(ctx context.Context, id uuid.UUID) (*banking.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	snapshot := *acc
	return &snapshot, nil
}

func (r *memAccountRepo) FindByNumber(ctx context.Context, accountNumber string) (*banking.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failFindFor[banking.NormalizeAccountNumber(accountNumber)]; ok {
		return nil, err
	}
	acc, ok := r.byNumber[banking.NormalizeAccountNumber(accountNumber)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	snapshot := *acc
	return &snapshot, nil
}

func (r *memAccountRepo) AdjustBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failAdjustFor[id]; ok {
		return decimal.Zero, err
	}
	acc, ok := r.byID[id]
	if !ok {
		return decimal.Zero, shared.ErrNotFound
	}
	newBalance := acc.Balance.Amount().Add(delta)
	if newBalance.IsNegative() {
		return decimal.Zero, shared.ErrInsufficientBalance
	}
	acc.Balance = valueobject.NewMoneyKRW(newBalance)
	return newBalance, nil
}

func (r *memAccountRepo) Create(ctx context.Context, account *banking.Account) error {
	r.add(account)
	return nil
}

func (r *memAccountRepo) Save(ctx context.Context, account *banking.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[account.ID]; !ok {
		return shared.ErrNotFound
	}
	r.byID[account.ID] = account
	r.byNumber[account.AccountNumber] = account
	return nil
}

// memLedgerRepo is a thread-safe append-only in-memory ledger
type memLedgerRepo struct {
	mu      sync.Mutex
	entries []*banking.LedgerEntry
	// retirementTotal is returned by SumCompletedRetirementCredits
	retirementTotal decimal.Decimal
}

func newMemLedgerRepo() *memLedgerRepo {
	return &memLedgerRepo{retirementTotal: decimal.Zero}
}

func (r *memLedgerRepo) all() []*banking.LedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*banking.LedgerEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *memLedgerRepo) Append(ctx context.Context, entry *banking.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memLedgerRepo) SumCompletedRetirementCredits(ctx context.Context, customerCI string, year int) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retirementTotal, nil
}

func (r *memLedgerRepo) FindLatestByAccountNumber(ctx context.Context, accountNumber string) (*banking.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *banking.LedgerEntry
	for _, e := range r.entries {
		if e.AccountNumber != accountNumber {
			continue
		}
		if latest == nil || (e.ProcessedAt != nil && latest.ProcessedAt != nil && e.ProcessedAt.After(*latest.ProcessedAt)) {
			latest = e
		}
	}
	if latest == nil {
		return nil, shared.ErrNotFound
	}
	return latest, nil
}

func (r *memLedgerRepo) FindByCorrelationRef(ctx context.Context, correlationRef string) ([]*banking.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*banking.LedgerEntry
	for _, e := range r.entries {
		if e.CorrelationRef == correlationRef {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memLedgerRepo) FindByAccountNumber(ctx context.Context, accountNumber string, limit int) ([]*banking.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*banking.LedgerEntry
	for _, e := range r.entries {
		if e.AccountNumber == accountNumber {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memLedgerRepo) ExistsByExternalRef(ctx context.Context, accountNumber, externalRef string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.AccountNumber == accountNumber && e.ExternalRef == externalRef {
			return true, nil
		}
	}
	return false, nil
}

// passthroughTxManager runs the function without a real transaction
type passthroughTxManager struct{}

func (passthroughTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeGateway is a configurable in-memory bank gateway
type fakeGateway struct {
	mu            sync.Mutex
	code          banking.BankCode
	withdrawErr   error
	depositErr    error
	verifyInfo    *banking.RemoteAccountInfo
	verifyErr     error
	entries       []*banking.RemoteEntry
	fetchErr      error
	withdrawCalls int
	depositCalls  int
	verifyCalls   int
}

func (g *fakeGateway) Withdraw(ctx context.Context, accountNumber string, amount valueobject.Money, memo string) (*banking.GatewayReceipt, error) {
	g.mu.Lock()
	g.withdrawCalls++
	g.mu.Unlock()
	if g.withdrawErr != nil {
		return nil, g.withdrawErr
	}
	return &banking.GatewayReceipt{TransactionID: "W-" + uuid.NewString(), ProcessedAt: time.Now()}, nil
}

func (g *fakeGateway) Deposit(ctx context.Context, accountNumber string, amount valueobject.Money, memo string, kind banking.AccountKind) (*banking.GatewayReceipt, error) {
	g.mu.Lock()
	g.depositCalls++
	g.mu.Unlock()
	if g.depositErr != nil {
		return nil, g.depositErr
	}
	return &banking.GatewayReceipt{TransactionID: "D-" + uuid.NewString(), ProcessedAt: time.Now()}, nil
}

func (g *fakeGateway) VerifyAccount(ctx context.Context, accountNumber string) (*banking.RemoteAccountInfo, error) {
	g.mu.Lock()
	g.verifyCalls++
	g.mu.Unlock()
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	if g.verifyInfo != nil {
		return g.verifyInfo, nil
	}
	return &banking.RemoteAccountInfo{Exists: false}, nil
}

func (g *fakeGateway) FetchEntriesSince(ctx context.Context, accountNumber string, since time.Time) ([]*banking.RemoteEntry, error) {
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	var out []*banking.RemoteEntry
	for _, e := range g.entries {
		if e.ProcessedAt.After(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (g *fakeGateway) BankCode() banking.BankCode {
	return g.code
}

func (g *fakeGateway) calls() (withdraws, deposits int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.withdrawCalls, g.depositCalls
}

// stubLimits is a limitGuard returning a fixed error
type stubLimits struct {
	err    error
	calls  int
	lastCI string
}

func (s *stubLimits) CheckAnnualLimit(ctx context.Context, customerCI string, amount valueobject.Money, asOf time.Time) error {
	s.calls++
	s.lastCI = customerCI
	return s.err
}

// stubVerifier resolves destinations from a fixed map
type stubVerifier struct {
	results map[string]*VerificationResult
	err     error
}

func (s *stubVerifier) Verify(ctx context.Context, accountNumber string) (*VerificationResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if r, ok := s.results[banking.NormalizeAccountNumber(accountNumber)]; ok {
		return r, nil
	}
	return &VerificationResult{AccountNumber: accountNumber, Exists: false}, nil
}

// memVerificationCache is an in-memory VerificationCache
type memVerificationCache struct {
	mu     sync.Mutex
	items  map[string]*VerificationResult
	getErr error
	setErr error
	gets   int
	sets   int
}

func newMemVerificationCache() *memVerificationCache {
	return &memVerificationCache{items: make(map[string]*VerificationResult)}
}

func (c *memVerificationCache) Get(ctx context.Context, accountNumber string) (*VerificationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.items[accountNumber], nil
}

func (c *memVerificationCache) Set(ctx context.Context, result *VerificationResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	c.items[result.AccountNumber] = result
	return nil
}

// memAutoTransferRepo is an in-memory standing order store
type memAutoTransferRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*banking.AutoTransfer
}

func newMemAutoTransferRepo() *memAutoTransferRepo {
	return &memAutoTransferRepo{orders: make(map[uuid.UUID]*banking.AutoTransfer)}
}

func (r *memAutoTransferRepo) FindByID(ctx context.Context, id uuid.UUID) (*banking.AutoTransfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return order, nil
}

func (r *memAutoTransferRepo) FindDue(ctx context.Context, asOf time.Time) ([]*banking.AutoTransfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []*banking.AutoTransfer
	for _, order := range r.orders {
		if order.IsDue(asOf) {
			due = append(due, order)
		}
	}
	return due, nil
}

func (r *memAutoTransferRepo) Create(ctx context.Context, transfer *banking.AutoTransfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[transfer.ID] = transfer
	return nil
}

func (r *memAutoTransferRepo) Save(ctx context.Context, transfer *banking.AutoTransfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[transfer.ID]; !ok {
		return shared.ErrNotFound
	}
	r.orders[transfer.ID] = transfer
	return nil
}
