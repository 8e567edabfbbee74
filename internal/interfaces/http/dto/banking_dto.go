package dto

import (
	"time"

	"github.com/hanainplan/backend/internal/domain/banking"
	"github.com/hanainplan/backend/internal/domain/shared/valueobject"
)

// TransferRequest is the payload for executing a transfer. Amounts are
// decimal strings so KRW values never pass through floats.
type TransferRequest struct {
	FromAccountNumber string `json:"from_account_number" binding:"required,min=10,max=20"`
	ToAccountNumber   string `json:"to_account_number" binding:"required,min=10,max=20"`
	Amount            string `json:"amount" binding:"required"`
	Purpose           string `json:"purpose" binding:"required,oneof=GENERAL_TRANSFER TO_RETIREMENT TO_EXTERNAL"`
	CustomerCI        string `json:"customer_ci" binding:"required_if=Purpose TO_RETIREMENT,max=88"`
	Memo              string `json:"memo" binding:"max=200"`
}

// ToIntent converts the request into a domain transfer intent
func (r *TransferRequest) ToIntent() (banking.TransferIntent, error) {
	amount, err := valueobject.NewMoneyKRWFromString(r.Amount)
	if err != nil {
		return banking.TransferIntent{}, err
	}
	return banking.TransferIntent{
		FromAccountNumber: r.FromAccountNumber,
		ToAccountNumber:   r.ToAccountNumber,
		Amount:            amount,
		Purpose:           banking.TransferPurpose(r.Purpose),
		CustomerCI:        r.CustomerCI,
		Memo:              r.Memo,
	}, nil
}

// AutoTransferRequest is the payload for registering a standing order
type AutoTransferRequest struct {
	FromAccountNumber string `json:"from_account_number" binding:"required,min=10,max=20"`
	ToAccountNumber   string `json:"to_account_number" binding:"required,min=10,max=20"`
	Amount            string `json:"amount" binding:"required"`
	Purpose           string `json:"purpose" binding:"required,oneof=GENERAL_TRANSFER TO_RETIREMENT TO_EXTERNAL"`
	CustomerCI        string `json:"customer_ci" binding:"required_if=Purpose TO_RETIREMENT,max=88"`
	Memo              string `json:"memo" binding:"max=200"`
	ScheduleDay       int    `json:"schedule_day" binding:"required,min=1,max=28"`
}

// ToOrder converts the request into a new standing order
func (r *AutoTransferRequest) ToOrder(now time.Time) (*banking.AutoTransfer, error) {
	amount, err := valueobject.NewMoneyKRWFromString(r.Amount)
	if err != nil {
		return nil, err
	}
	order, err := banking.NewAutoTransfer(
		r.FromAccountNumber,
		r.ToAccountNumber,
		amount,
		banking.TransferPurpose(r.Purpose),
		r.CustomerCI,
		r.ScheduleDay,
		now,
	)
	if err != nil {
		return nil, err
	}
	order.Memo = r.Memo
	return order, nil
}

// AccountNumberRequest binds an account number path parameter
type AccountNumberRequest struct {
	AccountNumber string `uri:"number" binding:"required,min=10,max=20"`
}

// SyncResponse reports the result of a ledger sync run
type SyncResponse struct {
	AccountNumber string `json:"account_number"`
	Appended      int    `json:"appended"`
}
