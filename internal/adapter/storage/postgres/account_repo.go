package postgres

import (
	"context"
	"errors"
	"fmt"

	"upi-ledger/internal/core/domain"
	"upi-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, handle, name, phone, email, balance, bank_name,
		account_number_enc, account_last4, ifsc_code, created_at, updated_at`

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// Create inserts a new account and assigns its surrogate id.
func (r *AccountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (handle, name, phone, email, balance, bank_name,
		account_number_enc, account_last4, ifsc_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err := r.pool.QueryRow(ctx, query,
		a.Handle, a.Name, a.Phone, a.Email, a.Balance, a.BankName,
		a.AccountNumberEnc, a.AccountLast4, a.IFSCCode, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert account %s: %w", a.Handle, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID fetches an account by its surrogate id.
func (r *AccountRepo) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

// GetByHandle fetches an account by handle (non-locking read).
func (r *AccountRepo) GetByHandle(ctx context.Context, handle string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE handle = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, handle))
}

// GetByHandleForUpdate fetches an account with pessimistic locking.
// This MUST be called within a transaction.
func (r *AccountRepo) GetByHandleForUpdate(ctx context.Context, tx ports.Tx, handle string) (*domain.Account, error) {
	ptx, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE handle = $1 FOR UPDATE`
	return scanAccount(ptx.QueryRow(ctx, query, handle))
}

func (r *AccountRepo) ExistsByHandle(ctx context.Context, handle string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE handle = $1)`, handle)
}

func (r *AccountRepo) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE phone = $1)`, phone)
}

func (r *AccountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1)`, email)
}

func (r *AccountRepo) exists(ctx context.Context, query string, arg string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, query, arg).Scan(&exists); err != nil {
		return false, fmt.Errorf("check account exists: %w", err)
	}
	return exists, nil
}

// UpdateBalance replaces an account's balance within a transaction.
func (r *AccountRepo) UpdateBalance(ctx context.Context, tx ports.Tx, handle string, balance decimal.Decimal) (*domain.Account, error) {
	ptx, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}
	query := `UPDATE accounts SET balance = $1, updated_at = NOW() WHERE handle = $2
		RETURNING ` + accountColumns

	a, err := scanAccount(ptx.QueryRow(ctx, query, balance, handle))
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("update balance %s: %w", handle, domain.ErrAccountNotFound)
	}
	return a, nil
}

// List returns every account ordered by id.
func (r *AccountRepo) List(ctx context.Context) ([]domain.Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		a := domain.Account{}
		if err := rows.Scan(accountFields(&a)...); err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate account rows: %w", err)
	}
	return accounts, nil
}

// Count returns the number of accounts.
func (r *AccountRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

func accountFields(a *domain.Account) []any {
	return []any{
		&a.ID, &a.Handle, &a.Name, &a.Phone, &a.Email, &a.Balance, &a.BankName,
		&a.AccountNumberEnc, &a.AccountLast4, &a.IFSCCode, &a.CreatedAt, &a.UpdatedAt,
	}
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	a := &domain.Account{}
	if err := row.Scan(accountFields(a)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return a, nil
}
