package postgres

import (
	"context"
	"errors"
	"fmt"

	"upi-ledger/internal/core/domain"
	"upi-ledger/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, transaction_id, payer_handle, payee_handle, amount, description,
		type, status, failure_reason, created_at, updated_at`

// LedgerRepo implements ports.LedgerRepository over the transactions table.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Append inserts a transaction record within a database transaction.
func (r *LedgerRepo) Append(ctx context.Context, tx ports.Tx, t *domain.Transaction) error {
	ptx, err := pgxTx(tx)
	if err != nil {
		return err
	}
	query := `INSERT INTO transactions (transaction_id, payer_handle, payee_handle, amount, description,
		type, status, failure_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	err = ptx.QueryRow(ctx, query,
		t.TransactionID, t.PayerHandle, t.PayeeHandle, t.Amount, t.Description,
		t.Type, t.Status, t.FailureReason, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert transaction %s: %w", t.TransactionID, domain.ErrDuplicate)
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// UpdateStatus finalizes a PENDING record. Terminal records are never rewritten.
func (r *LedgerRepo) UpdateStatus(
	ctx context.Context,
	tx ports.Tx,
	transactionID string,
	status domain.TransactionStatus,
	failureReason *string,
) (*domain.Transaction, error) {
	ptx, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}
	query := `UPDATE transactions SET status = $1, failure_reason = $2, updated_at = NOW()
		WHERE transaction_id = $3 AND status = 'PENDING'
		RETURNING ` + transactionColumns

	t, err := scanTransaction(ptx.QueryRow(ctx, query, status, failureReason, transactionID))
	if err != nil {
		return nil, fmt.Errorf("update transaction status: %w", err)
	}
	if t != nil {
		return t, nil
	}

	// Nothing matched: either the record is missing or it is already terminal.
	var current domain.TransactionStatus
	err = ptx.QueryRow(ctx, `SELECT status FROM transactions WHERE transaction_id = $1`, transactionID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update %s: %w", transactionID, domain.ErrTransactionNotFound)
		}
		return nil, fmt.Errorf("read transaction status: %w", err)
	}
	return nil, fmt.Errorf("update %s (status %s): %w", transactionID, current, domain.ErrTransactionFinalized)
}

// GetByID fetches a transaction by surrogate id.
func (r *LedgerRepo) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// GetByTransactionID fetches a transaction by its TXN token.
func (r *LedgerRepo) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1`
	return scanTransaction(r.pool.QueryRow(ctx, query, transactionID))
}

// ListByAccountHandle returns records where handle is payer or payee, newest first.
func (r *LedgerRepo) ListByAccountHandle(ctx context.Context, handle string) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE payer_handle = $1 OR payee_handle = $1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, handle)
}

func (r *LedgerRepo) ListByStatus(ctx context.Context, status domain.TransactionStatus) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = $1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, status)
}

func (r *LedgerRepo) ListByType(ctx context.Context, txnType domain.TransactionType) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE type = $1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, txnType)
}

func (r *LedgerRepo) List(ctx context.Context) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query)
}

// GetStats aggregates the whole ledger.
func (r *LedgerRepo) GetStats(ctx context.Context) (*ports.LedgerStats, error) {
	query := `SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE status = 'SUCCESS') AS successful,
		COUNT(*) FILTER (WHERE status = 'FAILED') AS failed,
		COUNT(*) FILTER (WHERE status = 'PENDING') AS pending,
		COALESCE(SUM(amount) FILTER (WHERE status = 'SUCCESS'), 0) AS settled_volume
		FROM transactions`

	stats := &ports.LedgerStats{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&stats.TotalTransactions, &stats.Successful, &stats.Failed, &stats.Pending,
		&stats.SettledVolume,
	)
	if err != nil {
		return nil, fmt.Errorf("get ledger stats: %w", err)
	}
	return stats, nil
}

func (r *LedgerRepo) list(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txns := []domain.Transaction{}
	for rows.Next() {
		t := domain.Transaction{}
		if err := rows.Scan(transactionFields(&t)...); err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return txns, nil
}

func transactionFields(t *domain.Transaction) []any {
	return []any{
		&t.ID, &t.TransactionID, &t.PayerHandle, &t.PayeeHandle, &t.Amount, &t.Description,
		&t.Type, &t.Status, &t.FailureReason, &t.CreatedAt, &t.UpdatedAt,
	}
}

// scanTransaction scans a single row, returning (nil, nil) on no rows.
func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	if err := row.Scan(transactionFields(t)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}
