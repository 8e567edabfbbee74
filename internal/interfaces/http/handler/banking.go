package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appbanking "github.com/hanainplan/backend/internal/application/banking"
	"github.com/hanainplan/backend/internal/domain/banking"
	"github.com/hanainplan/backend/internal/interfaces/http/dto"
)

// TransferExecutor is the transfer service surface the handler needs
type TransferExecutor interface {
	Execute(ctx context.Context, intent banking.TransferIntent) (*banking.TransferResult, error)
	FindByCorrelationRef(ctx context.Context, correlationRef string) ([]*banking.LedgerEntry, error)
}

// AccountVerifier resolves whether an account can receive transfers
type AccountVerifier interface {
	Verify(ctx context.Context, accountNumber string) (*appbanking.VerificationResult, error)
}

// LimitInspector reports the annual retirement contribution window
type LimitInspector interface {
	AnnualLimitStatus(ctx context.Context, customerCI string, asOf time.Time) (*appbanking.AnnualLimitStatus, error)
}

// LedgerSyncer pulls partner bank entries into the local ledger
type LedgerSyncer interface {
	SyncAccount(ctx context.Context, accountNumber string) (int, error)
}

// AutoTransferManager manages standing orders
type AutoTransferManager interface {
	Register(ctx context.Context, order *banking.AutoTransfer) error
	Get(ctx context.Context, id uuid.UUID) (*banking.AutoTransfer, error)
	Cancel(ctx context.Context, id uuid.UUID) error
	Resume(ctx context.Context, id uuid.UUID) error
	ExecuteDue(ctx context.Context, asOf time.Time) (*appbanking.ExecutionReport, error)
}

// BankingHandler exposes the funds movement API
type BankingHandler struct {
	BaseHandler
	transfers TransferExecutor
	verifier  AccountVerifier
	limits    LimitInspector
	syncer    LedgerSyncer
	auto      AutoTransferManager
}

// NewBankingHandler creates a new banking handler
func NewBankingHandler(
	transfers TransferExecutor,
	verifier AccountVerifier,
	limits LimitInspector,
	syncer LedgerSyncer,
	auto AutoTransferManager,
) *BankingHandler {
	return &BankingHandler{
		transfers: transfers,
		verifier:  verifier,
		limits:    limits,
		syncer:    syncer,
		auto:      auto,
	}
}

// RegisterRoutes registers the banking routes
func (h *BankingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/banking")
	{
		group.POST("/transfers", h.ExecuteTransfer)
		group.GET("/transfers/:ref", h.GetTransfer)
		group.GET("/accounts/:number/verification", h.VerifyAccount)
		group.POST("/accounts/:number/sync", h.SyncAccount)
		group.GET("/irp/limit", h.GetAnnualLimit)
		group.POST("/auto-transfers", h.RegisterAutoTransfer)
		group.GET("/auto-transfers/:id", h.GetAutoTransfer)
		group.POST("/auto-transfers/:id/cancel", h.CancelAutoTransfer)
		group.POST("/auto-transfers/:id/resume", h.ResumeAutoTransfer)
		group.POST("/auto-transfers/run", h.RunDueAutoTransfers)
	}
}

// ExecuteTransfer runs a transfer to a terminal classification. The
// classification itself is a 200: SUCCESS, REJECTED, and
// PARTIAL_FAILURE are all answers, not transport errors.
func (h *BankingHandler) ExecuteTransfer(c *gin.Context) {
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	intent, err := req.ToIntent()
	if err != nil {
		h.BadRequest(c, "amount must be a decimal number")
		return
	}

	result, err := h.transfers.Execute(c.Request.Context(), intent)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetTransfer returns the ledger legs recorded under a correlation ref
func (h *BankingHandler) GetTransfer(c *gin.Context) {
	ref := c.Param("ref")

	entries, err := h.transfers.FindByCorrelationRef(c.Request.Context(), ref)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{
		"correlation_ref": ref,
		"entries":         entries,
	})
}

// VerifyAccount resolves whether an account exists and can receive
// transfers
func (h *BankingHandler) VerifyAccount(c *gin.Context) {
	var req dto.AccountNumberRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	result, err := h.verifier.Verify(c.Request.Context(), req.AccountNumber)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// SyncAccount pulls new partner bank entries into the local ledger
func (h *BankingHandler) SyncAccount(c *gin.Context) {
	var req dto.AccountNumberRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	appended, err := h.syncer.SyncAccount(c.Request.Context(), req.AccountNumber)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.SyncResponse{
		AccountNumber: req.AccountNumber,
		Appended:      appended,
	})
}

// GetAnnualLimit reports the customer's retirement contribution window
// for the current year
func (h *BankingHandler) GetAnnualLimit(c *gin.Context) {
	customerCI := c.Query("customer_ci")
	if customerCI == "" {
		h.BadRequest(c, "customer_ci query parameter is required")
		return
	}

	status, err := h.limits.AnnualLimitStatus(c.Request.Context(), customerCI, time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, status)
}

// RegisterAutoTransfer creates a monthly standing order
func (h *BankingHandler) RegisterAutoTransfer(c *gin.Context) {
	var req dto.AutoTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	order, err := req.ToOrder(time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if err := h.auto.Register(c.Request.Context(), order); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, order)
}

// GetAutoTransfer returns one standing order
func (h *BankingHandler) GetAutoTransfer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "id must be a UUID")
		return
	}

	order, err := h.auto.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, order)
}

// CancelAutoTransfer terminates a standing order permanently
func (h *BankingHandler) CancelAutoTransfer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "id must be a UUID")
		return
	}

	if err := h.auto.Cancel(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"id": id, "status": banking.AutoTransferCancelled})
}

// ResumeAutoTransfer reactivates a paused standing order
func (h *BankingHandler) ResumeAutoTransfer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "id must be a UUID")
		return
	}

	if err := h.auto.Resume(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"id": id, "status": banking.AutoTransferActive})
}

// RunDueAutoTransfers executes due standing orders immediately
func (h *BankingHandler) RunDueAutoTransfers(c *gin.Context) {
	report, err := h.auto.ExecuteDue(c.Request.Context(), time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}
