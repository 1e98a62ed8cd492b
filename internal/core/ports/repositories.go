package ports

import (
	"context"

	"upi-ledger/internal/core/domain"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=repositories.go -destination=mocks/mock_repositories.go -package=mocks

// Tx is a unit of work opened by a Transactor.
// Rollback after a successful Commit is a no-op, so callers may always defer it.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Transactor opens units of work against the underlying store.
type Transactor interface {
	Begin(ctx context.Context) (Tx, error)
}

// AccountRepository defines persistence operations for accounts.
// Getters return (nil, nil) when the account does not exist.
// Methods accepting a Tx run inside the caller's unit of work.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	GetByHandle(ctx context.Context, handle string) (*domain.Account, error)
	GetByHandleForUpdate(ctx context.Context, tx Tx, handle string) (*domain.Account, error)
	ExistsByHandle(ctx context.Context, handle string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateBalance(ctx context.Context, tx Tx, handle string, balance decimal.Decimal) (*domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Count(ctx context.Context) (int64, error)
}

// LedgerRepository defines persistence operations for transaction records.
// Getters return (nil, nil) when the record does not exist.
type LedgerRepository interface {
	Append(ctx context.Context, tx Tx, txn *domain.Transaction) error
	// UpdateStatus moves a PENDING record to status. It fails with
	// domain.ErrTransactionFinalized when the record is already terminal.
	UpdateStatus(ctx context.Context, tx Tx, transactionID string, status domain.TransactionStatus, failureReason *string) (*domain.Transaction, error)
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error)
	ListByAccountHandle(ctx context.Context, handle string) ([]domain.Transaction, error)
	ListByStatus(ctx context.Context, status domain.TransactionStatus) ([]domain.Transaction, error)
	ListByType(ctx context.Context, txnType domain.TransactionType) ([]domain.Transaction, error)
	List(ctx context.Context) ([]domain.Transaction, error)
	GetStats(ctx context.Context) (*LedgerStats, error)
}

// LedgerStats holds aggregated ledger counters.
type LedgerStats struct {
	TotalTransactions int64
	Successful        int64
	Failed            int64
	Pending           int64
	SettledVolume     decimal.Decimal // Sum of SUCCESS amounts
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}
