package bankgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hanainplan/backend/internal/domain/banking"
	"github.com/hanainplan/backend/internal/domain/shared/valueobject"
)

// maxResponseSize caps partner bank responses at 4MB
const maxResponseSize = 4 * 1024 * 1024

// HTTPGateway implements banking.BankGateway over a partner bank's REST
// API. Every failure surfaces as a *banking.GatewayError; a timed-out
// call is reported as failed, never as succeeded.
type HTTPGateway struct {
	bankCode   banking.BankCode
	baseURL    string
	httpClient *http.Client
}

// NewHTTPGateway creates a gateway for one partner bank
func NewHTTPGateway(bankCode banking.BankCode, baseURL string, timeout time.Duration, maxIdleConns int) *HTTPGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxIdleConns <= 0 {
		maxIdleConns = 10
	}
	return &HTTPGateway{
		bankCode: bankCode,
		baseURL:  baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        maxIdleConns,
				MaxIdleConnsPerHost: maxIdleConns,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// BankCode identifies which bank this gateway fronts
func (g *HTTPGateway) BankCode() banking.BankCode {
	return g.bankCode
}

// Withdraw debits the account at the partner bank
func (g *HTTPGateway) Withdraw(ctx context.Context, accountNumber string, amount valueobject.Money, memo string) (*banking.GatewayReceipt, error) {
	return g.postTransaction(ctx, "withdraw", "/api/v1/withdrawals", accountNumber, amount, memo)
}

// Deposit credits the account at the partner bank. Retirement deposits
// go through the bank's IRP endpoint, which applies contribution
// handling on the remote side.
func (g *HTTPGateway) Deposit(ctx context.Context, accountNumber string, amount valueobject.Money, memo string, kind banking.AccountKind) (*banking.GatewayReceipt, error) {
	path := "/api/v1/deposits"
	if kind == banking.AccountKindRetirement {
		path = "/api/v1/irp/deposits"
	}
	return g.postTransaction(ctx, "deposit", path, accountNumber, amount, memo)
}

// VerifyAccount checks existence and status of a remote account. IRP
// account books are probed first; partner banks keep retirement
// accounts in a separate system, and a number present in both books is
// authoritative on the IRP side.
func (g *HTTPGateway) VerifyAccount(ctx context.Context, accountNumber string) (*banking.RemoteAccountInfo, error) {
	irp, err := g.getAccount(ctx, "/api/v1/irp/accounts/"+url.PathEscape(accountNumber))
	if err != nil {
		return nil, err
	}
	if irp.Exists {
		return g.toRemoteInfo(accountNumber, irp), nil
	}

	general, err := g.getAccount(ctx, "/api/v1/accounts/"+url.PathEscape(accountNumber))
	if err != nil {
		return nil, err
	}
	return g.toRemoteInfo(accountNumber, general), nil
}

// FetchEntriesSince pulls ledger rows processed after the given time
func (g *HTTPGateway) FetchEntriesSince(ctx context.Context, accountNumber string, since time.Time) ([]*banking.RemoteEntry, error) {
	const op = "fetch_entries"

	endpoint := fmt.Sprintf("%s/api/v1/transactions?accountNumber=%s&since=%s",
		g.baseURL, url.QueryEscape(accountNumber), url.QueryEscape(since.UTC().Format(time.RFC3339)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, g.transportError(op, err)
	}

	body, status, err := g.do(op, req)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, g.httpError(op, status, body)
	}

	var resp entriesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, g.badResponse(op, err)
	}

	entries := make([]*banking.RemoteEntry, 0, len(resp.Entries))
	for _, we := range resp.Entries {
		entry, err := g.toRemoteEntry(we)
		if err != nil {
			return nil, g.badResponse(op, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// postTransaction sends a funds-movement request and interprets the
// uniform response envelope
func (g *HTTPGateway) postTransaction(ctx context.Context, op, path, accountNumber string, amount valueobject.Money, memo string) (*banking.GatewayReceipt, error) {
	payload, err := json.Marshal(transactionRequest{
		AccountNumber: accountNumber,
		Amount:        json.Number(amount.Amount().String()),
		Description:   memo,
	})
	if err != nil {
		return nil, g.transportError(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, g.transportError(op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, status, err := g.do(op, req)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, g.httpError(op, status, body)
	}

	var resp transactionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, g.badResponse(op, err)
	}
	if !resp.Success {
		return nil, &banking.GatewayError{
			BankCode:  string(g.bankCode),
			Operation: op,
			Code:      banking.GatewayCodeDeclined,
			Message:   declineMessage(resp.Message),
		}
	}
	if resp.TransactionID == "" {
		return nil, g.badResponse(op, errors.New("response missing transactionId"))
	}

	receipt := &banking.GatewayReceipt{
		TransactionID: resp.TransactionID,
		Message:       resp.Message,
		ProcessedAt:   time.Now(),
	}
	if resp.ProcessedAt != "" {
		if t, err := time.Parse(time.RFC3339, resp.ProcessedAt); err == nil {
			receipt.ProcessedAt = t
		}
	}
	return receipt, nil
}

// getAccount fetches one account lookup endpoint. A 404 means the
// account is not in that book, which is an answer, not a failure.
func (g *HTTPGateway) getAccount(ctx context.Context, path string) (*accountResponse, error) {
	const op = "verify_account"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, g.transportError(op, err)
	}

	body, status, err := g.do(op, req)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return &accountResponse{Exists: false}, nil
	}
	if status >= 400 {
		return nil, g.httpError(op, status, body)
	}

	var resp accountResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, g.badResponse(op, err)
	}
	return &resp, nil
}

// do executes the request and reads the capped body
func (g *HTTPGateway) do(op string, req *http.Request) ([]byte, int, error) {
	resp, err := g.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, 0, &banking.GatewayError{
				BankCode:  string(g.bankCode),
				Operation: op,
				Code:      banking.GatewayCodeTimeout,
				Message:   "request timed out",
				Timeout:   true,
				Err:       err,
			}
		}
		return nil, 0, g.transportError(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, 0, g.transportError(op, err)
	}
	return body, resp.StatusCode, nil
}

func (g *HTTPGateway) toRemoteInfo(accountNumber string, resp *accountResponse) *banking.RemoteAccountInfo {
	if !resp.Exists {
		return &banking.RemoteAccountInfo{Exists: false, AccountNumber: accountNumber, BankCode: g.bankCode}
	}
	number := resp.AccountNumber
	if number == "" {
		number = accountNumber
	}
	return &banking.RemoteAccountInfo{
		Exists:        true,
		AccountNumber: number,
		Kind:          kindFromWire(resp.AccountType),
		Status:        statusFromWire(resp.Status),
		BankCode:      g.bankCode,
	}
}

func (g *HTTPGateway) toRemoteEntry(we wireEntry) (*banking.RemoteEntry, error) {
	amount, err := valueobject.NewMoneyKRWFromString(we.Amount.String())
	if err != nil {
		return nil, fmt.Errorf("entry %s: bad amount: %w", we.TransactionID, err)
	}
	balanceAfter, err := valueobject.NewMoneyKRWFromString(we.BalanceAfter.String())
	if err != nil {
		return nil, fmt.Errorf("entry %s: bad balance: %w", we.TransactionID, err)
	}
	processedAt, err := time.Parse(time.RFC3339, we.ProcessedAt)
	if err != nil {
		return nil, fmt.Errorf("entry %s: bad processed time: %w", we.TransactionID, err)
	}

	var direction banking.EntryDirection
	switch we.Direction {
	case "DEBIT", "WITHDRAWAL":
		direction = banking.DirectionDebit
	case "CREDIT", "DEPOSIT":
		direction = banking.DirectionCredit
	default:
		return nil, fmt.Errorf("entry %s: unknown direction %q", we.TransactionID, we.Direction)
	}

	return &banking.RemoteEntry{
		ExternalRef:  we.TransactionID,
		Direction:    direction,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Description:  we.Description,
		ProcessedAt:  processedAt,
		Counterparty: we.Counterparty,
	}, nil
}

func (g *HTTPGateway) transportError(op string, err error) *banking.GatewayError {
	return &banking.GatewayError{
		BankCode:  string(g.bankCode),
		Operation: op,
		Code:      banking.GatewayCodeTransport,
		Message:   "request failed",
		Err:       err,
	}
}

func (g *HTTPGateway) httpError(op string, status int, body []byte) *banking.GatewayError {
	message := fmt.Sprintf("HTTP %d", status)
	var resp transactionResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.Message != "" {
		message = resp.Message
	}
	return &banking.GatewayError{
		BankCode:  string(g.bankCode),
		Operation: op,
		Code:      banking.GatewayCodeDeclined,
		Message:   message,
	}
}

func (g *HTTPGateway) badResponse(op string, err error) *banking.GatewayError {
	return &banking.GatewayError{
		BankCode:  string(g.bankCode),
		Operation: op,
		Code:      banking.GatewayCodeBadResponse,
		Message:   "unparseable response from partner bank",
		Err:       err,
	}
}

func declineMessage(message string) string {
	if message == "" {
		return "declined by partner bank"
	}
	return message
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Ensure HTTPGateway implements the gateway contract
var _ banking.BankGateway = (*HTTPGateway)(nil)
