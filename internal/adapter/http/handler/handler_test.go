package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"upi-ledger/internal/adapter/http/middleware"
	"upi-ledger/internal/core/domain"
	"upi-ledger/internal/core/ports"
	"upi-ledger/internal/core/ports/mocks"
	"upi-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedTime = time.Date(2026, 6, 1, 9, 30, 0, 0, time.UTC)

func sampleAccount() *domain.Account {
	return &domain.Account{
		ID:           1,
		Handle:       "john.doe@icici",
		Name:         "John Doe",
		Phone:        "9876543210",
		Email:        "john.doe@example.com",
		Balance:      decimal.RequireFromString("10000"),
		BankName:     "ICICI Bank",
		AccountLast4: "3456",
		IFSCCode:     "ICIC0001234",
		CreatedAt:    fixedTime,
		UpdatedAt:    fixedTime,
	}
}

func sampleTransaction(status domain.TransactionStatus) *domain.Transaction {
	return &domain.Transaction{
		ID:            42,
		TransactionID: "TXN0A1B2C3D4E5F",
		PayerHandle:   "john.doe@icici",
		PayeeHandle:   "jane.smith@hdfc",
		Amount:        decimal.RequireFromString("500.5"),
		Description:   "Lunch",
		Type:          domain.TransactionTypePay,
		Status:        status,
		CreatedAt:     fixedTime,
		UpdatedAt:     fixedTime,
	}
}

type testDeps struct {
	transfer *mocks.MockTransferService
	account  *mocks.MockAccountService
	query    *mocks.MockQueryService
	router   *gin.Engine
}

func newTestRouter(t *testing.T) testDeps {
	t.Helper()
	ctrl := gomock.NewController(t)
	d := testDeps{
		transfer: mocks.NewMockTransferService(ctrl),
		account:  mocks.NewMockAccountService(ctrl),
		query:    mocks.NewMockQueryService(ctrl),
	}
	d.router = SetupRouter(RouterDeps{
		TransferSvc: d.transfer,
		AccountSvc:  d.account,
		QuerySvc:    d.query,
		Logger:      zerolog.Nop(),
	})
	return d
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// --- Transaction Handler Tests ---

func TestPay_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockTransfer := mocks.NewMockTransferService(ctrl)
	h := NewTransactionHandler(mockTransfer, nil)

	mockTransfer.EXPECT().Pay(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.PaymentRequest) (*domain.Transaction, error) {
			assert.Equal(t, "john.doe@icici", req.PayerHandle)
			assert.Equal(t, "jane.smith@hdfc", req.PayeeHandle)
			assert.True(t, decimal.RequireFromString("500.50").Equal(req.Amount))
			assert.Equal(t, "Lunch", req.Description)
			return sampleTransaction(domain.TransactionStatusSuccess), nil
		},
	)

	body := []byte(`{"payer_handle":" john.doe@icici","payee_handle":"jane.smith@hdfc","amount":500.50,"description":"Lunch "}`)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/transactions/pay", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.Pay(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "TXN0A1B2C3D4E5F", data["transaction_id"])
	assert.Equal(t, "SUCCESS", data["status"])
	assert.Equal(t, "PAY", data["type"])
	assert.Equal(t, "500.50", data["amount"])
	assert.Nil(t, data["failure_reason"])
	assert.Equal(t, "TXN0A1B2C3D4E5F", c.GetString("resource_id"))
}

func TestPay_FailedRecordIsCreated(t *testing.T) {
	d := newTestRouter(t)

	failed := sampleTransaction(domain.TransactionStatusFailed)
	reason := "insufficient funds"
	failed.FailureReason = &reason
	d.transfer.EXPECT().Pay(gomock.Any(), gomock.Any()).Return(failed, nil)

	w := do(d.router, http.MethodPost, "/api/v1/transactions/pay",
		`{"payer_handle":"john.doe@icici","payee_handle":"jane.smith@hdfc","amount":"500.50"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "FAILED", data["status"])
	assert.Equal(t, reason, data["failure_reason"])
}

func TestPay_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", `{}`},
		{"missing amount", `{"payer_handle":"a@bank","payee_handle":"b@bank"}`},
		{"bad payer handle", `{"payer_handle":"not a handle","payee_handle":"b@bank","amount":1}`},
		{"description too long", `{"payer_handle":"a@bank","payee_handle":"b@bank","amount":1,"description":"` + strings.Repeat("x", 101) + `"}`},
		{"malformed json", `{"payer_handle":`},
		{"non numeric amount", `{"payer_handle":"a@bank","payee_handle":"b@bank","amount":"ten"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestRouter(t)
			w := do(d.router, http.MethodPost, "/api/v1/transactions/pay", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "VAL_001", decode(t, w)["error_code"])
		})
	}
}

func TestPay_ServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"insufficient funds", apperror.ErrInsufficientFunds(), http.StatusPaymentRequired, "PAY_001"},
		{"invalid amount", apperror.ErrInvalidAmount(), http.StatusBadRequest, "PAY_002"},
		{"payer not found", apperror.ErrNotFound("payer"), http.StatusNotFound, "PAY_004"},
		{"same party", apperror.ErrSameParty(), http.StatusBadRequest, "PAY_005"},
		{"storage", apperror.ErrStorage(errors.New("db down")), http.StatusInternalServerError, "SYS_002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestRouter(t)
			d.transfer.EXPECT().Pay(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			w := do(d.router, http.MethodPost, "/api/v1/transactions/pay",
				`{"payer_handle":"a@bank","payee_handle":"b@bank","amount":"10"}`)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w)["error_code"])
		})
	}
}

func TestListTransactions_Filters(t *testing.T) {
	success := domain.TransactionStatusSuccess
	pay := domain.TransactionTypePay

	tests := []struct {
		name   string
		query  string
		filter ports.TransactionFilter
	}{
		{"no filter", "", ports.TransactionFilter{}},
		{"status", "?status=success", ports.TransactionFilter{Status: &success}},
		{"type", "?type=PAY", ports.TransactionFilter{Type: &pay}},
		{"both", "?status=SUCCESS&type=pay", ports.TransactionFilter{Status: &success, Type: &pay}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestRouter(t)
			d.query.EXPECT().ListTransactions(gomock.Any(), tt.filter).
				Return([]domain.Transaction{*sampleTransaction(domain.TransactionStatusSuccess)}, nil)

			w := do(d.router, http.MethodGet, "/api/v1/transactions"+tt.query, "")
			require.Equal(t, http.StatusOK, w.Code)
			data := decode(t, w)["data"].(map[string]interface{})
			assert.Equal(t, float64(1), data["total"])
		})
	}
}

func TestListTransactions_InvalidFilter(t *testing.T) {
	d := newTestRouter(t)
	d.query.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).
		Return(nil, apperror.Validation("invalid status filter"))

	w := do(d.router, http.MethodGet, "/api/v1/transactions?status=REVERSED", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransactionLookups(t *testing.T) {
	d := newTestRouter(t)
	txn := sampleTransaction(domain.TransactionStatusSuccess)

	d.query.EXPECT().GetTransactionByID(gomock.Any(), int64(42)).Return(txn, nil)
	d.query.EXPECT().GetTransactionByTransactionID(gomock.Any(), "TXN0A1B2C3D4E5F").Return(txn, nil)
	d.query.EXPECT().ListTransactionsByHandle(gomock.Any(), "jane.smith@hdfc").Return([]domain.Transaction{*txn}, nil)
	d.query.EXPECT().GetLedgerStats(gomock.Any()).Return(&ports.LedgerStats{
		TotalTransactions: 1,
		Successful:        1,
		SettledVolume:     decimal.RequireFromString("500.5"),
	}, nil)

	w := do(d.router, http.MethodGet, "/api/v1/transactions/id/42", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(42), decode(t, w)["data"].(map[string]interface{})["id"])

	w = do(d.router, http.MethodGet, "/api/v1/transactions/TXN0A1B2C3D4E5F", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "TXN0A1B2C3D4E5F", decode(t, w)["data"].(map[string]interface{})["transaction_id"])

	w = do(d.router, http.MethodGet, "/api/v1/transactions/account/jane.smith@hdfc", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["data"].(map[string]interface{})["total"])

	w = do(d.router, http.MethodGet, "/api/v1/transactions/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "500.50", stats["settled_volume"])
	assert.Equal(t, float64(1), stats["successful"])
}

func TestTransactionByID_BadParam(t *testing.T) {
	d := newTestRouter(t)

	for _, path := range []string{"/api/v1/transactions/id/abc", "/api/v1/transactions/id/0"} {
		w := do(d.router, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestTransactionByTransactionID_NotFound(t *testing.T) {
	d := newTestRouter(t)
	d.query.EXPECT().GetTransactionByTransactionID(gomock.Any(), "TXN000000000000").
		Return(nil, apperror.ErrNotFound("transaction"))

	w := do(d.router, http.MethodGet, "/api/v1/transactions/TXN000000000000", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PAY_004", decode(t, w)["error_code"])
}

// --- Account Handler Tests ---

const createAccountBody = `{
	"handle": "john.doe@icici",
	"name": "John Doe",
	"phone": "9876543210",
	"email": "john.doe@example.com",
	"balance": "10000.00",
	"bank_name": "ICICI Bank",
	"account_number": "123456789012",
	"ifsc_code": "ICIC0001234"
}`

func TestCreateAccount_Success(t *testing.T) {
	d := newTestRouter(t)
	d.account.EXPECT().CreateAccount(gomock.Any(), ports.CreateAccountRequest{
		Handle:        "john.doe@icici",
		Name:          "John Doe",
		Phone:         "9876543210",
		Email:         "john.doe@example.com",
		Balance:       decimal.RequireFromString("10000.00"),
		BankName:      "ICICI Bank",
		AccountNumber: "123456789012",
		IFSCCode:      "ICIC0001234",
	}).Return(sampleAccount(), nil)

	w := do(d.router, http.MethodPost, "/api/v1/accounts", createAccountBody)

	require.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "john.doe@icici", data["handle"])
	assert.Equal(t, "10000.00", data["balance"])
	assert.Equal(t, "3456", data["account_last4"])
	assert.NotContains(t, w.Body.String(), "123456789012")
}

func TestCreateAccount_ValidationError(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
	}{
		{"bad handle", `"john.doe@icici"`, `"john doe"`},
		{"bad phone", `"9876543210"`, `"98765"`},
		{"bad email", `"john.doe@example.com"`, `"not-an-email"`},
		{"bad ifsc", `"ICIC0001234"`, `"ICIC1001234"`},
		{"bad account number", `"123456789012"`, `"12ab"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestRouter(t)
			body := strings.Replace(createAccountBody, tt.from, tt.to, 1)
			w := do(d.router, http.MethodPost, "/api/v1/accounts", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCreateAccount_Conflict(t *testing.T) {
	d := newTestRouter(t)
	d.account.EXPECT().CreateAccount(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrHandleExists())

	w := do(d.router, http.MethodPost, "/api/v1/accounts", createAccountBody)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ACC_001", decode(t, w)["error_code"])
}

func TestAccountLookups(t *testing.T) {
	d := newTestRouter(t)
	acc := sampleAccount()

	d.query.EXPECT().ListAccounts(gomock.Any()).Return([]domain.Account{*acc}, nil)
	d.query.EXPECT().GetAccountByID(gomock.Any(), int64(1)).Return(acc, nil)
	d.query.EXPECT().GetAccountByHandle(gomock.Any(), "john.doe@icici").Return(acc, nil)
	d.query.EXPECT().GetAccountByHandle(gomock.Any(), "ghost@bank").Return(nil, apperror.ErrNotFound("account"))

	w := do(d.router, http.MethodGet, "/api/v1/accounts", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["data"].(map[string]interface{})["total"])

	w = do(d.router, http.MethodGet, "/api/v1/accounts/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "John Doe", decode(t, w)["data"].(map[string]interface{})["name"])

	w = do(d.router, http.MethodGet, "/api/v1/accounts/handle/john.doe@icici", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = do(d.router, http.MethodGet, "/api/v1/accounts/handle/ghost@bank", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(d.router, http.MethodGet, "/api/v1/accounts/xyz", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Router wiring ---

func TestRouter_RateLimitedGroups(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRateLimitStore(ctrl)
	query := mocks.NewMockQueryService(ctrl)
	transfer := mocks.NewMockTransferService(ctrl)

	store.EXPECT().Allow(gomock.Any(), gomock.Any(), int64(1), time.Minute).
		Return(&ports.RateLimitResult{Allowed: false, Limit: 1, ResetAt: time.Now().Add(time.Minute).Unix()}, nil)

	r := SetupRouter(RouterDeps{
		TransferSvc:    transfer,
		QuerySvc:       query,
		RateLimitStore: store,
		RateLimitRules: map[string]middleware.RateLimitRule{middleware.GroupPayments: {Limit: 1, Window: time.Minute}},
		Logger:         zerolog.Nop(),
	})

	w := do(r, http.MethodPost, "/api/v1/transactions/pay", `{"payer_handle":"a@bank","payee_handle":"b@bank","amount":"1"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Groups without a rule are not limited.
	query.EXPECT().ListAccounts(gomock.Any()).Return(nil, nil)
	w = do(r, http.MethodGet, "/api/v1/accounts", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RequestIDHeader(t *testing.T) {
	d := newTestRouter(t)
	w := do(d.router, http.MethodGet, "/health", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_PayloadTooLarge(t *testing.T) {
	d := newTestRouter(t)
	body := `{"description":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	w := do(d.router, http.MethodPost, "/api/v1/transactions/pay", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

// --- Health / Swagger ---

func TestHealthCheck(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck()(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	ctrl := gomock.NewController(t)
	healthy := mocks.NewMockHealthChecker(ctrl)
	broken := mocks.NewMockHealthChecker(ctrl)

	healthy.EXPECT().Ping(gomock.Any()).Return(nil)
	healthy.EXPECT().Name().Return("memory").AnyTimes()
	broken.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))
	broken.EXPECT().Name().Return("redis").AnyTimes()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)

	HealthCheck(healthy, broken)(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "degraded", resp["status"])
	deps := resp["dependencies"].(map[string]interface{})
	assert.Equal(t, "healthy", deps["memory"].(map[string]interface{})["status"])
	assert.Equal(t, "connection refused", deps["redis"].(map[string]interface{})["error"])
}

func TestSwaggerUI(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/swagger", nil)

	SwaggerUI(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "swagger-ui")
	assert.Contains(t, w.Body.String(), "/swagger/spec")
}

func TestSwaggerSpec(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/swagger/spec", nil)

	SwaggerSpec(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")
	assert.Contains(t, w.Body.String(), "/transactions/pay")
}
