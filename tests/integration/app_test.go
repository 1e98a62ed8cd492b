package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"upi-ledger/internal/adapter/http/dto"
	httpHandler "upi-ledger/internal/adapter/http/handler"
	"upi-ledger/internal/adapter/http/middleware"
	"upi-ledger/internal/adapter/storage/memory"
	redisStorage "upi-ledger/internal/adapter/storage/redis"
	"upi-ledger/internal/core/domain"
	"upi-ledger/internal/core/ports"
	"upi-ledger/internal/service"
	"upi-ledger/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const testCryptoKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// testApp runs the full HTTP stack over the memory store, with rate limiting
// backed by miniredis.
type testApp struct {
	server   *httptest.Server
	redis    *miniredis.Miniredis
	accounts *memory.AccountRepo
	ledger   *memory.LedgerRepo
}

type appOptions struct {
	rules      map[string]middleware.RateLimitRule
	failCredit string // handle whose balance update always fails
}

// creditFailingRepo breaks UpdateBalance for one handle to simulate a credit
// step failing after the debit.
type creditFailingRepo struct {
	*memory.AccountRepo
	handle string
}

func (r creditFailingRepo) UpdateBalance(ctx context.Context, tx ports.Tx, handle string, balance decimal.Decimal) (*domain.Account, error) {
	if handle == r.handle {
		return nil, errors.New("ledger core unavailable")
	}
	return r.AccountRepo.UpdateBalance(ctx, tx, handle, balance)
}

func newTestApp(t *testing.T, opts ...func(*appOptions)) *testApp {
	t.Helper()

	o := appOptions{
		rules: map[string]middleware.RateLimitRule{
			middleware.GroupPayments:       {Limit: 10_000, Window: time.Minute},
			middleware.GroupAccountsCreate: {Limit: 10_000, Window: time.Minute},
			middleware.GroupQueries:        {Limit: 10_000, Window: time.Minute},
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logger.New("error", false)

	store := memory.NewStore()
	accounts := memory.NewAccountRepo(store)
	ledger := memory.NewLedgerRepo(store)
	transactor := memory.NewTransactor(store)

	var transferAccounts ports.AccountRepository = accounts
	if o.failCredit != "" {
		transferAccounts = creditFailingRepo{AccountRepo: accounts, handle: o.failCredit}
	}

	encSvc, err := service.NewAESEncryptionService(testCryptoKey)
	require.NoError(t, err)

	rateLimitStore := redisStorage.NewBreakerRateLimitStore(
		redisStorage.NewRateLimitStore(rdb), "test", redisStorage.DefaultBreakerConfig(), log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		TransferSvc:    service.NewTransferService(transferAccounts, ledger, transactor, log),
		AccountSvc:     service.NewAccountService(accounts, encSvc, log),
		QuerySvc:       service.NewQueryService(accounts, ledger),
		AuditSvc:       service.NewAuditService(nil, log),
		RateLimitStore: rateLimitStore,
		RateLimitRules: o.rules,
		HealthCheckers: []ports.HealthChecker{memory.NewHealthCheck(store), redisStorage.NewHealthCheck(rdb)},
		Logger:         log,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testApp{server: server, redis: mr, accounts: accounts, ledger: ledger}
}

type envelope[T any] struct {
	Data      T      `json:"data"`
	RequestID string `json:"request_id"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (a *testApp) call(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func decodeInto[T any](t *testing.T, raw []byte) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return env
}

var phoneSeq = 0

func (a *testApp) createAccount(t *testing.T, handle, balance string) dto.AccountResponse {
	t.Helper()
	phoneSeq++
	resp, raw := a.call(t, http.MethodPost, "/api/v1/accounts", map[string]string{
		"handle":         handle,
		"name":           "Test " + handle,
		"phone":          phoneFor(phoneSeq),
		"email":          "user" + phoneFor(phoneSeq) + "@example.com",
		"balance":        balance,
		"bank_name":      "Test Bank",
		"account_number": "123456789012",
		"ifsc_code":      "TEST0001234",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	return decodeInto[dto.AccountResponse](t, raw).Data
}

func phoneFor(n int) string {
	s := "9000000000"
	digits := []byte(s)
	for i := len(digits) - 1; n > 0 && i >= 0; i-- {
		digits[i] = byte('0' + n%10)
		n /= 10
	}
	return string(digits)
}

func (a *testApp) pay(t *testing.T, payer, payee, amount string) (*http.Response, []byte) {
	t.Helper()
	return a.payWithDescription(t, payer, payee, amount, "test payment")
}

func (a *testApp) payWithDescription(t *testing.T, payer, payee, amount, description string) (*http.Response, []byte) {
	t.Helper()
	return a.call(t, http.MethodPost, "/api/v1/transactions/pay", map[string]string{
		"payer_handle": payer,
		"payee_handle": payee,
		"amount":       amount,
		"description":  description,
	})
}

func (a *testApp) balance(t *testing.T, handle string) decimal.Decimal {
	t.Helper()
	acc, err := a.accounts.GetByHandle(context.Background(), handle)
	require.NoError(t, err)
	require.NotNil(t, acc, handle)
	return acc.Balance
}

func (a *testApp) transactionCount(t *testing.T) int {
	t.Helper()
	all, err := a.ledger.List(context.Background())
	require.NoError(t, err)
	return len(all)
}
