package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appbanking "github.com/hanainplan/backend/internal/application/banking"
	"github.com/hanainplan/backend/internal/domain/banking"
	"github.com/hanainplan/backend/internal/domain/shared"
	"github.com/hanainplan/backend/internal/domain/shared/valueobject"
	"github.com/hanainplan/backend/internal/interfaces/http/dto"
)

type stubTransfers struct {
	result  *banking.TransferResult
	err     error
	entries []*banking.LedgerEntry
	findErr error
	intents []banking.TransferIntent
}

func (s *stubTransfers) Execute(_ context.Context, intent banking.TransferIntent) (*banking.TransferResult, error) {
	s.intents = append(s.intents, intent)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubTransfers) FindByCorrelationRef(_ context.Context, _ string) ([]*banking.LedgerEntry, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.entries, nil
}

type stubVerifier struct {
	result *appbanking.VerificationResult
	err    error
}

func (s *stubVerifier) Verify(_ context.Context, _ string) (*appbanking.VerificationResult, error) {
	return s.result, s.err
}

type stubLimits struct {
	status *appbanking.AnnualLimitStatus
	err    error
}

func (s *stubLimits) AnnualLimitStatus(_ context.Context, _ string, _ time.Time) (*appbanking.AnnualLimitStatus, error) {
	return s.status, s.err
}

type stubSyncer struct {
	appended int
	err      error
}

func (s *stubSyncer) SyncAccount(_ context.Context, _ string) (int, error) {
	return s.appended, s.err
}

type stubAutoTransfers struct {
	order      *banking.AutoTransfer
	getErr     error
	cancelErr  error
	resumeErr  error
	report     *appbanking.ExecutionReport
	registered []*banking.AutoTransfer
}

func (s *stubAutoTransfers) Register(_ context.Context, order *banking.AutoTransfer) error {
	s.registered = append(s.registered, order)
	return nil
}

func (s *stubAutoTransfers) Get(_ context.Context, _ uuid.UUID) (*banking.AutoTransfer, error) {
	return s.order, s.getErr
}

func (s *stubAutoTransfers) Cancel(_ context.Context, _ uuid.UUID) error {
	return s.cancelErr
}

func (s *stubAutoTransfers) Resume(_ context.Context, _ uuid.UUID) error {
	return s.resumeErr
}

func (s *stubAutoTransfers) ExecuteDue(_ context.Context, _ time.Time) (*appbanking.ExecutionReport, error) {
	return s.report, nil
}

type bankingFixture struct {
	engine    *gin.Engine
	transfers *stubTransfers
	verifier  *stubVerifier
	limits    *stubLimits
	syncer    *stubSyncer
	auto      *stubAutoTransfers
}

func newBankingFixture(t *testing.T) *bankingFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &bankingFixture{
		transfers: &stubTransfers{},
		verifier:  &stubVerifier{},
		limits:    &stubLimits{},
		syncer:    &stubSyncer{},
		auto:      &stubAutoTransfers{},
	}

	engine := gin.New()
	api := engine.Group("/api/v1")
	NewBankingHandler(f.transfers, f.verifier, f.limits, f.syncer, f.auto).RegisterRoutes(api)
	f.engine = engine
	return f
}

func (f *bankingFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func validTransferBody() map[string]any {
	return map[string]any{
		"from_account_number": "08112345678",
		"to_account_number":   "11055566677",
		"amount":              "10000",
		"purpose":             "GENERAL_TRANSFER",
	}
}

func TestExecuteTransferSuccess(t *testing.T) {
	f := newBankingFixture(t)
	f.transfers.result = &banking.TransferResult{
		Outcome:        banking.OutcomeSuccess,
		CorrelationRef: "TRF-001",
	}

	rec := f.do(t, http.MethodPost, "/api/v1/banking/transfers", validTransferBody())

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "SUCCESS", data["outcome"])
	assert.Equal(t, "TRF-001", data["correlation_ref"])

	require.Len(t, f.transfers.intents, 1)
	intent := f.transfers.intents[0]
	assert.Equal(t, "08112345678", intent.FromAccountNumber)
	assert.Equal(t, banking.PurposeGeneralTransfer, intent.Purpose)
	assert.True(t, intent.Amount.Equals(valueobject.NewMoneyKRWFromInt(10000)))
}

func TestExecuteTransferRejectionIsStillOK(t *testing.T) {
	f := newBankingFixture(t)
	f.transfers.result = banking.Rejected(banking.ReasonInsufficientBalance, "balance too low")

	rec := f.do(t, http.MethodPost, "/api/v1/banking/transfers", validTransferBody())

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "REJECTED", data["outcome"])
	assert.Equal(t, banking.ReasonInsufficientBalance, data["reason_code"])
}

func TestExecuteTransferValidationFailures(t *testing.T) {
	f := newBankingFixture(t)

	t.Run("missing amount", func(t *testing.T) {
		body := validTransferBody()
		delete(body, "amount")

		rec := f.do(t, http.MethodPost, "/api/v1/banking/transfers", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeResponse(t, rec)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.NotEmpty(t, resp.Error.Details)
	})

	t.Run("unknown purpose", func(t *testing.T) {
		body := validTransferBody()
		body["purpose"] = "WIRE_FRAUD"

		rec := f.do(t, http.MethodPost, "/api/v1/banking/transfers", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("retirement without customer ci", func(t *testing.T) {
		body := validTransferBody()
		body["purpose"] = "TO_RETIREMENT"

		rec := f.do(t, http.MethodPost, "/api/v1/banking/transfers", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non-decimal amount", func(t *testing.T) {
		body := validTransferBody()
		body["amount"] = "ten thousand"

		rec := f.do(t, http.MethodPost, "/api/v1/banking/transfers", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	assert.Empty(t, f.transfers.intents, "no intent should reach the service")
}

func TestExecuteTransferInfrastructureFault(t *testing.T) {
	f := newBankingFixture(t)
	f.transfers.err = shared.NewDomainError("TX_BEGIN_FAILED", "could not open transaction")

	rec := f.do(t, http.MethodPost, "/api/v1/banking/transfers", validTransferBody())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
}

func TestExecuteTransferGatewayFault(t *testing.T) {
	f := newBankingFixture(t)
	f.transfers.err = &banking.GatewayError{
		BankCode:  "110",
		Operation: "deposit",
		Code:      "TIMEOUT",
		Message:   "request timed out",
		Timeout:   true,
	}

	rec := f.do(t, http.MethodPost, "/api/v1/banking/transfers", validTransferBody())

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, dto.ErrCodeGatewayUnavailable, resp.Error.Code)
}

func TestGetTransferNotFound(t *testing.T) {
	f := newBankingFixture(t)
	f.transfers.findErr = shared.ErrNotFound

	rec := f.do(t, http.MethodGet, "/api/v1/banking/transfers/TRF-404", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
}

func TestGetTransferReturnsEntries(t *testing.T) {
	f := newBankingFixture(t)
	amount := valueobject.NewMoneyKRWFromInt(10000)
	balance := valueobject.NewMoneyKRWFromInt(90000)
	f.transfers.entries = []*banking.LedgerEntry{
		banking.NewDebitEntry("TRF-001", "08112345678", amount, balance),
	}

	rec := f.do(t, http.MethodGet, "/api/v1/banking/transfers/TRF-001", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, "TRF-001", data["correlation_ref"])
	assert.Len(t, data["entries"], 1)
}

func TestVerifyAccountEndpoint(t *testing.T) {
	f := newBankingFixture(t)
	f.verifier.result = &appbanking.VerificationResult{
		AccountNumber: "11055566677",
		Exists:        true,
		Kind:          banking.AccountKindGeneral,
		Status:        banking.AccountStatusActive,
		BankCode:      banking.BankCodeHana,
		BankName:      "Hana Bank",
		Local:         true,
	}

	rec := f.do(t, http.MethodGet, "/api/v1/banking/accounts/11055566677/verification", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, true, data["exists"])
	assert.Equal(t, "Hana Bank", data["bank_name"])
}

func TestVerifyAccountUnknownBank(t *testing.T) {
	f := newBankingFixture(t)
	f.verifier.err = banking.ErrUnknownBank

	rec := f.do(t, http.MethodGet, "/api/v1/banking/accounts/99912345678/verification", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, dto.ErrCodeUnknownBank, resp.Error.Code)
}

func TestSyncAccountEndpoint(t *testing.T) {
	f := newBankingFixture(t)
	f.syncer.appended = 3

	rec := f.do(t, http.MethodPost, "/api/v1/banking/accounts/11055566677/sync", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(3), data["appended"])
	assert.Equal(t, "11055566677", data["account_number"])
}

func TestGetAnnualLimit(t *testing.T) {
	f := newBankingFixture(t)
	f.limits.status = &appbanking.AnnualLimitStatus{
		CustomerCI:  "CI-001",
		Year:        2026,
		Ceiling:     valueobject.NewMoneyKRWFromInt(9_000_000),
		Contributed: valueobject.NewMoneyKRWFromInt(8_500_000),
		Remaining:   valueobject.NewMoneyKRWFromInt(500_000),
	}

	rec := f.do(t, http.MethodGet, "/api/v1/banking/irp/limit?customer_ci=CI-001", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(2026), data["year"])
}

func TestGetAnnualLimitRequiresCustomerCI(t *testing.T) {
	f := newBankingFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/banking/irp/limit", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterAutoTransfer(t *testing.T) {
	f := newBankingFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/banking/auto-transfers", map[string]any{
		"from_account_number": "08112345678",
		"to_account_number":   "12345678901",
		"amount":              "300000",
		"purpose":             "TO_RETIREMENT",
		"customer_ci":         "CI-001",
		"schedule_day":        15,
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, f.auto.registered, 1)
	order := f.auto.registered[0]
	assert.Equal(t, 15, order.ScheduleDay)
	assert.Equal(t, banking.PurposeToRetirement, order.Purpose)
}

func TestRegisterAutoTransferRejectsScheduleDay29(t *testing.T) {
	f := newBankingFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/banking/auto-transfers", map[string]any{
		"from_account_number": "08112345678",
		"to_account_number":   "12345678901",
		"amount":              "300000",
		"purpose":             "TO_RETIREMENT",
		"customer_ci":         "CI-001",
		"schedule_day":        29,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.auto.registered)
}

func TestCancelAutoTransfer(t *testing.T) {
	f := newBankingFixture(t)
	id := uuid.New()

	rec := f.do(t, http.MethodPost, "/api/v1/banking/auto-transfers/"+id.String()+"/cancel", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCancelAutoTransferBadID(t *testing.T) {
	f := newBankingFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/banking/auto-transfers/not-a-uuid/cancel", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResumeAutoTransferInvalidState(t *testing.T) {
	f := newBankingFixture(t)
	f.auto.resumeErr = shared.NewDomainError("INVALID_STATE", "only paused orders can be resumed")

	id := uuid.New()
	rec := f.do(t, http.MethodPost, "/api/v1/banking/auto-transfers/"+id.String()+"/resume", nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeResponse(t, rec)
	assert.Equal(t, dto.ErrCodeInvalidState, resp.Error.Code)
}

func TestRunDueAutoTransfers(t *testing.T) {
	f := newBankingFixture(t)
	f.auto.report = &appbanking.ExecutionReport{Due: 2, Succeeded: 2}

	rec := f.do(t, http.MethodPost, "/api/v1/banking/auto-transfers/run", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(2), data["succeeded"])
}
