package ports

import (
	"context"
	"time"

	"upi-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=services.go -destination=mocks/mock_services.go -package=mocks

// EncryptionService handles AES-256-GCM encryption/decryption.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// RateLimitStore counts requests per key inside a fixed window.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// --- Service Ports (Business Logic) ---

// TransferService moves funds between two accounts and records the outcome.
type TransferService interface {
	Pay(ctx context.Context, req PaymentRequest) (*domain.Transaction, error)
}

// PaymentRequest holds validated input for a transfer.
type PaymentRequest struct {
	PayerHandle string
	PayeeHandle string
	Amount      decimal.Decimal
	Description string
}

// AccountService defines account onboarding.
type AccountService interface {
	CreateAccount(ctx context.Context, req CreateAccountRequest) (*domain.Account, error)
}

// CreateAccountRequest holds validated input for account creation.
type CreateAccountRequest struct {
	Handle        string
	Name          string
	Phone         string
	Email         string
	Balance       decimal.Decimal // opening balance, zero when omitted
	BankName      string
	AccountNumber string // plaintext, encrypted before it is stored
	IFSCCode      string
}

// QueryService exposes read-only lookups over accounts and the ledger.
type QueryService interface {
	GetAccountByID(ctx context.Context, id int64) (*domain.Account, error)
	GetAccountByHandle(ctx context.Context, handle string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	GetTransactionByID(ctx context.Context, id int64) (*domain.Transaction, error)
	GetTransactionByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]domain.Transaction, error)
	ListTransactionsByHandle(ctx context.Context, handle string) ([]domain.Transaction, error)
	GetLedgerStats(ctx context.Context) (*LedgerStats, error)
}

// TransactionFilter narrows ListTransactions. Status takes precedence over Type.
type TransactionFilter struct {
	Status *domain.TransactionStatus
	Type   *domain.TransactionType
}

// AuditService records audited actions.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
