package bankgateway

import (
	"encoding/json"

	"github.com/hanainplan/backend/internal/domain/banking"
)

// transactionRequest is the wire request for withdrawal and deposit calls.
// Amounts travel as JSON numbers without a fractional part; KRW has no
// minor unit.
type transactionRequest struct {
	AccountNumber string      `json:"accountNumber"`
	Amount        json.Number `json:"amount"`
	Description   string      `json:"description,omitempty"`
}

// transactionResponse is the wire response for withdrawal and deposit calls
type transactionResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
	ProcessedAt   string `json:"processedAt,omitempty"`
}

// accountResponse is the wire response for account verification
type accountResponse struct {
	Exists        bool   `json:"exists"`
	AccountNumber string `json:"accountNumber,omitempty"`
	AccountType   string `json:"accountType,omitempty"`
	Status        string `json:"status,omitempty"`
}

// entriesResponse is the wire response for the transaction history pull
type entriesResponse struct {
	Entries []wireEntry `json:"entries"`
}

// wireEntry is one ledger row as reported by a partner bank
type wireEntry struct {
	TransactionID string      `json:"transactionId"`
	Direction     string      `json:"direction"`
	Amount        json.Number `json:"amount"`
	BalanceAfter  json.Number `json:"balanceAfter"`
	Description   string      `json:"description,omitempty"`
	ProcessedAt   string      `json:"processedAt"`
	Counterparty  string      `json:"counterpartyAccount,omitempty"`
}

// kindFromWire maps a partner bank's account type to the local kind
func kindFromWire(accountType string) banking.AccountKind {
	switch accountType {
	case "IRP", "RETIREMENT":
		return banking.AccountKindRetirement
	case "SECURITIES":
		return banking.AccountKindSecurities
	case "INTEGRATED":
		return banking.AccountKindIntegrated
	default:
		return banking.AccountKindGeneral
	}
}

// statusFromWire maps a partner bank's account status to the local status
func statusFromWire(status string) banking.AccountStatus {
	switch status {
	case "ACTIVE", "NORMAL":
		return banking.AccountStatusActive
	case "CLOSED":
		return banking.AccountStatusClosed
	case "PENDING":
		return banking.AccountStatusPending
	default:
		return banking.AccountStatusInactive
	}
}
