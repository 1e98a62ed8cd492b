package integration

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"upi-ledger/internal/adapter/http/dto"
	"upi-ledger/internal/adapter/http/middleware"
	"upi-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)

	resp, raw := app.call(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Contains(t, string(raw), `"memory"`)
	assert.Contains(t, string(raw), `"redis"`)

	app.redis.Close()
	resp, _ = app.call(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

// Scenario A: a funded transfer settles and moves exactly the amount.
func TestIntegration_ScenarioA_SuccessfulTransfer(t *testing.T) {
	app := newTestApp(t)
	app.createAccount(t, "h1@bank", "100.00")
	app.createAccount(t, "h2@bank", "0.00")

	resp, raw := app.pay(t, "h1@bank", "h2@bank", "40.00")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	txn := decodeInto[dto.TransactionResponse](t, raw).Data
	assert.Equal(t, "SUCCESS", txn.Status)
	assert.Equal(t, "PAY", txn.Type)
	assert.Equal(t, "40.00", txn.Amount)
	assert.Regexp(t, `^TXN[0-9A-F]{12}$`, txn.TransactionID)
	assert.Nil(t, txn.FailureReason)

	assert.True(t, dec("60.00").Equal(app.balance(t, "h1@bank")))
	assert.True(t, dec("40.00").Equal(app.balance(t, "h2@bank")))

	// The record is reachable through every lookup.
	resp, raw = app.call(t, http.MethodGet, "/api/v1/transactions/"+txn.TransactionID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, txn.ID, decodeInto[dto.TransactionResponse](t, raw).Data.ID)

	resp, raw = app.call(t, http.MethodGet, "/api/v1/transactions/id/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, txn.TransactionID, decodeInto[dto.TransactionResponse](t, raw).Data.TransactionID)

	for _, handle := range []string{"h1@bank", "h2@bank"} {
		resp, raw = app.call(t, http.MethodGet, "/api/v1/transactions/account/"+handle, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 1, decodeInto[dto.ListResponse[dto.TransactionResponse]](t, raw).Data.Total, handle)
	}
}

// Scenario B: an unknown payer is rejected and leaves no record.
func TestIntegration_ScenarioB_UnknownPayer(t *testing.T) {
	app := newTestApp(t)
	app.createAccount(t, "h2@bank", "0.00")

	resp, raw := app.pay(t, "ghost@bank", "h2@bank", "10.00")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	env := decodeInto[struct{}](t, raw)
	assert.Equal(t, "PAY_004", env.ErrorCode)
	assert.Contains(t, env.Message, "payer")

	resp, raw = app.pay(t, "h2@bank", "ghost@bank", "10.00")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, decodeInto[struct{}](t, raw).Message, "payee")

	assert.Equal(t, 0, app.transactionCount(t))
}

// Scenario C: an underfunded transfer is rejected, nothing changes.
func TestIntegration_ScenarioC_InsufficientFunds(t *testing.T) {
	app := newTestApp(t)
	app.createAccount(t, "h3@bank", "10.00")
	app.createAccount(t, "h4@bank", "0.00")

	resp, raw := app.pay(t, "h3@bank", "h4@bank", "50.00")
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "PAY_001", decodeInto[struct{}](t, raw).ErrorCode)

	assert.True(t, dec("10.00").Equal(app.balance(t, "h3@bank")))
	assert.True(t, dec("0").Equal(app.balance(t, "h4@bank")))
	assert.Equal(t, 0, app.transactionCount(t))
}

// Scenario D: a credit failure after the debit rolls the whole unit back.
func TestIntegration_ScenarioD_CreditFailureRollsBack(t *testing.T) {
	app := newTestApp(t, func(o *appOptions) { o.failCredit = "h2@bank" })
	app.createAccount(t, "h1@bank", "100.00")
	app.createAccount(t, "h2@bank", "0.00")

	resp, raw := app.pay(t, "h1@bank", "h2@bank", "40.00")
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	txn := decodeInto[dto.TransactionResponse](t, raw).Data
	assert.Equal(t, "FAILED", txn.Status)
	require.NotNil(t, txn.FailureReason)
	assert.Contains(t, *txn.FailureReason, "credit payee")

	assert.True(t, dec("100.00").Equal(app.balance(t, "h1@bank")), "payer must not stay debited")
	assert.True(t, dec("0").Equal(app.balance(t, "h2@bank")))

	stored, err := app.ledger.GetByTransactionID(context.Background(), txn.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusFailed, stored.Status)
}

func TestIntegration_PaymentValidation(t *testing.T) {
	app := newTestApp(t)
	app.createAccount(t, "a@bank", "100.00")
	app.createAccount(t, "b@bank", "0.00")

	tests := []struct {
		name   string
		payer  string
		amount string
		status int
		code   string
	}{
		{"zero amount", "a@bank", "0", http.StatusBadRequest, "PAY_002"},
		{"negative amount", "a@bank", "-5", http.StatusBadRequest, "PAY_002"},
		{"three decimals", "a@bank", "1.005", http.StatusBadRequest, "VAL_001"},
		{"same party", "b@bank", "1", http.StatusBadRequest, "PAY_005"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payee := "b@bank"
			resp, raw := app.pay(t, tt.payer, payee, tt.amount)
			assert.Equal(t, tt.status, resp.StatusCode, string(raw))
			assert.Equal(t, tt.code, decodeInto[struct{}](t, raw).ErrorCode)
		})
	}
	assert.Equal(t, 0, app.transactionCount(t))
}

func TestIntegration_DescriptionRoundTrip(t *testing.T) {
	app := newTestApp(t)
	app.createAccount(t, "a@bank", "100.00")
	app.createAccount(t, "b@bank", "0.00")

	tests := []struct {
		name string
		desc string
	}{
		{"markup characters", `Rent & bills <March> "split"`},
		{"entities at the length limit", "A&B" + strings.Repeat("x", 97)},
		{"multi-byte characters", strings.Repeat("é", 60)},
		{"multi-byte at the length limit", strings.Repeat("₹", 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := app.payWithDescription(t, "a@bank", "b@bank", "1.00", tt.desc)
			require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

			txn := decodeInto[dto.TransactionResponse](t, raw).Data
			assert.Equal(t, "SUCCESS", txn.Status)
			assert.Equal(t, tt.desc, txn.Description)

			stored, err := app.ledger.GetByTransactionID(context.Background(), txn.TransactionID)
			require.NoError(t, err)
			assert.Equal(t, tt.desc, stored.Description)
		})
	}

	resp, raw := app.payWithDescription(t, "a@bank", "b@bank", "1.00", strings.Repeat("é", 101))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VAL_001", decodeInto[struct{}](t, raw).ErrorCode)
}

func TestIntegration_AccountLifecycle(t *testing.T) {
	app := newTestApp(t)
	created := app.createAccount(t, "john.doe@icici", "250.5")
	assert.Equal(t, "250.50", created.Balance)
	assert.Equal(t, "9012", created.AccountLast4)

	resp, raw := app.call(t, http.MethodGet, "/api/v1/accounts/handle/john.doe@icici", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, decodeInto[dto.AccountResponse](t, raw).Data.ID)
	assert.NotContains(t, string(raw), "123456789012")

	resp, _ = app.call(t, http.MethodGet, "/api/v1/accounts/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Duplicate handle.
	resp, raw = app.call(t, http.MethodPost, "/api/v1/accounts", map[string]string{
		"handle":         "john.doe@icici",
		"name":           "Other",
		"phone":          "8111111111",
		"email":          "other@example.com",
		"bank_name":      "Bank",
		"account_number": "123456789",
		"ifsc_code":      "ABCD0123456",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "ACC_001", decodeInto[struct{}](t, raw).ErrorCode)

	resp, raw = app.call(t, http.MethodGet, "/api/v1/accounts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decodeInto[dto.ListResponse[dto.AccountResponse]](t, raw).Data.Total)
}

func TestIntegration_ListFiltersAndStats(t *testing.T) {
	app := newTestApp(t, func(o *appOptions) { o.failCredit = "sink@bank" })
	app.createAccount(t, "a@bank", "100.00")
	app.createAccount(t, "b@bank", "0.00")
	app.createAccount(t, "sink@bank", "0.00")

	for _, amount := range []string{"10.00", "15.50"} {
		resp, _ := app.pay(t, "a@bank", "b@bank", amount)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	resp, _ := app.pay(t, "a@bank", "sink@bank", "5.00")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, raw := app.call(t, http.MethodGet, "/api/v1/transactions?status=SUCCESS", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decodeInto[dto.ListResponse[dto.TransactionResponse]](t, raw).Data.Total)

	resp, raw = app.call(t, http.MethodGet, "/api/v1/transactions?status=failed", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decodeInto[dto.ListResponse[dto.TransactionResponse]](t, raw).Data.Total)

	resp, raw = app.call(t, http.MethodGet, "/api/v1/transactions?type=PAY", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decodeInto[dto.ListResponse[dto.TransactionResponse]](t, raw).Data
	assert.Equal(t, 3, all.Total)
	assert.Equal(t, "5.00", all.Items[0].Amount, "newest first")

	resp, _ = app.call(t, http.MethodGet, "/api/v1/transactions?status=REVERSED", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = app.call(t, http.MethodGet, "/api/v1/transactions/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decodeInto[dto.LedgerStatsResponse](t, raw).Data
	assert.Equal(t, int64(3), stats.TotalTransactions)
	assert.Equal(t, int64(2), stats.Successful)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(0), stats.Pending)
	assert.Equal(t, "25.50", stats.SettledVolume)
}

func TestIntegration_RateLimitPayments(t *testing.T) {
	app := newTestApp(t, func(o *appOptions) {
		o.rules[middleware.GroupPayments] = middleware.RateLimitRule{Limit: 2, Window: time.Minute}
	})
	app.createAccount(t, "a@bank", "100.00")
	app.createAccount(t, "b@bank", "0.00")

	for i := 0; i < 2; i++ {
		resp, _ := app.pay(t, "a@bank", "b@bank", "1.00")
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, raw := app.pay(t, "a@bank", "b@bank", "1.00")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_001", decodeInto[struct{}](t, raw).ErrorCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	// Queries have their own budget.
	resp, _ = app.call(t, http.MethodGet, "/api/v1/transactions", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIntegration_RateLimitDegradesOpen(t *testing.T) {
	app := newTestApp(t)
	app.createAccount(t, "a@bank", "100.00")
	app.createAccount(t, "b@bank", "0.00")

	app.redis.Close()

	for i := 0; i < 8; i++ {
		resp, raw := app.pay(t, "a@bank", "b@bank", "1.00")
		require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	}
	assert.True(t, dec("92.00").Equal(app.balance(t, "a@bank")))
}

func TestIntegration_RequestIDEchoed(t *testing.T) {
	app := newTestApp(t)

	req, err := http.NewRequest(http.MethodGet, app.server.URL+"/api/v1/accounts", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "it-trace-1")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "it-trace-1", resp.Header.Get("X-Request-ID"))
}
