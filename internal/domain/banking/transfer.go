package banking

import (
	"github.com/hanainplan/backend/internal/domain/shared/valueobject"
)

// TransferPurpose classifies what kind of movement a transfer is
type TransferPurpose string

const (
	PurposeGeneralTransfer TransferPurpose = "GENERAL_TRANSFER" // between locally held accounts
	PurposeToRetirement    TransferPurpose = "TO_RETIREMENT"    // funding an IRP account, limit-guarded
	PurposeToExternal      TransferPurpose = "TO_EXTERNAL"      // destination held at a partner bank
)

// TransferOutcome is the terminal classification of a transfer attempt
type TransferOutcome string

const (
	OutcomeSuccess        TransferOutcome = "SUCCESS"
	OutcomeRejected       TransferOutcome = "REJECTED"
	OutcomePartialFailure TransferOutcome = "PARTIAL_FAILURE"
)

// Reason codes attached to non-success outcomes
const (
	ReasonInsufficientBalance = "INSUFFICIENT_BALANCE"
	ReasonLimitExceeded       = "LIMIT_EXCEEDED"
	ReasonUnknownBank         = "UNKNOWN_BANK"
	ReasonAccountNotFound     = "ACCOUNT_NOT_FOUND"
	ReasonAccountInactive     = "ACCOUNT_INACTIVE"
	ReasonInvalidAmount       = "INVALID_AMOUNT"
	ReasonSameAccount         = "SAME_ACCOUNT"
	ReasonWithdrawalFailed    = "WITHDRAWAL_FAILED"
	ReasonDepositFailed       = "DEPOSIT_FAILED"
	ReasonLocalDebitFailed    = "LOCAL_DEBIT_FAILED"
	ReasonLocalCreditFailed   = "LOCAL_CREDIT_FAILED"
	ReasonMissingCustomerCI   = "MISSING_CUSTOMER_CI"
	ReasonCancelled           = "CANCELLED"
)

// TransferIntent is a request to move funds. It is ephemeral: the
// durable record of the attempt lives in the ledger.
type TransferIntent struct {
	FromAccountNumber string
	ToAccountNumber   string
	Amount            valueobject.Money
	Purpose           TransferPurpose
	CustomerCI        string // contributor identity, required for TO_RETIREMENT
	Memo              string
}

// Validate performs the stateless checks on the intent
func (i *TransferIntent) Validate() error {
	if !i.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if NormalizeAccountNumber(i.FromAccountNumber) == NormalizeAccountNumber(i.ToAccountNumber) {
		return ErrSameAccount
	}
	if _, err := ResolveBankCode(i.FromAccountNumber); err != nil {
		return err
	}
	if _, err := ResolveBankCode(i.ToAccountNumber); err != nil {
		return err
	}
	return nil
}

// TransferResult is the classification returned to the caller. A
// rejection is a result, not an error; the error channel is reserved
// for infrastructure faults.
type TransferResult struct {
	Outcome            TransferOutcome    `json:"outcome"`
	ReasonCode         string             `json:"reason_code,omitempty"`
	Message            string             `json:"message,omitempty"`
	CorrelationRef     string             `json:"correlation_ref,omitempty"`
	SourceBalanceAfter *valueobject.Money `json:"source_balance_after,omitempty"`
	Entries            []*LedgerEntry     `json:"entries,omitempty"`
	// LocalAnomaly marks a partial failure where the remote leg succeeded
	// but the local mirror could not be updated. These require operator
	// reconciliation and are never retried automatically.
	LocalAnomaly bool `json:"local_anomaly,omitempty"`
}

// Rejected builds a REJECTED result
func Rejected(reasonCode, message string) *TransferResult {
	return &TransferResult{
		Outcome:    OutcomeRejected,
		ReasonCode: reasonCode,
		Message:    message,
	}
}

// IsSuccess reports whether both legs settled
func (r *TransferResult) IsSuccess() bool {
	return r.Outcome == OutcomeSuccess
}
