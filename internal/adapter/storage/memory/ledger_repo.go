package memory

import (
	"context"
	"sort"
	"time"

	"upi-ledger/internal/core/domain"
	"upi-ledger/internal/core/ports"

	"github.com/shopspring/decimal"
)

// LedgerRepo implements ports.LedgerRepository on a Store.
type LedgerRepo struct {
	store *Store
}

// NewLedgerRepo creates a LedgerRepo.
func NewLedgerRepo(store *Store) *LedgerRepo {
	return &LedgerRepo{store: store}
}

// Append stages txn inside tx. The transaction id stays locked until tx ends.
func (r *LedgerRepo) Append(ctx context.Context, tx ports.Tx, txn *domain.Transaction) error {
	mtx, err := unwrap(tx, r.store)
	if err != nil {
		return err
	}
	if err := mtx.lock(ctx, txnKey(txn.TransactionID)); err != nil {
		return err
	}
	if _, ok := mtx.txns[txn.TransactionID]; ok {
		return domain.ErrDuplicate
	}

	s := r.store
	s.mu.Lock()
	if _, ok := s.txns[txn.TransactionID]; ok {
		s.mu.Unlock()
		return domain.ErrDuplicate
	}
	s.nextTxnID++
	txn.ID = s.nextTxnID
	s.mu.Unlock()

	mtx.txns[txn.TransactionID] = cloneTransaction(txn)
	return nil
}

func (r *LedgerRepo) UpdateStatus(ctx context.Context, tx ports.Tx, transactionID string, status domain.TransactionStatus, failureReason *string) (*domain.Transaction, error) {
	mtx, err := unwrap(tx, r.store)
	if err != nil {
		return nil, err
	}
	if err := mtx.lock(ctx, txnKey(transactionID)); err != nil {
		return nil, err
	}

	current, ok := mtx.txns[transactionID]
	if !ok {
		r.store.mu.RLock()
		committed, found := r.store.txns[transactionID]
		if found {
			current = cloneTransaction(committed)
		}
		r.store.mu.RUnlock()
		if !found {
			return nil, domain.ErrTransactionNotFound
		}
	}
	if current.IsTerminal() {
		return nil, domain.ErrTransactionFinalized
	}

	updated := cloneTransaction(current)
	updated.Status = status
	updated.UpdatedAt = time.Now().UTC()
	if failureReason != nil {
		reason := *failureReason
		updated.FailureReason = &reason
	}
	mtx.txns[transactionID] = updated
	return cloneTransaction(updated), nil
}

func (r *LedgerRepo) GetByID(_ context.Context, id int64) (*domain.Transaction, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	txnID, ok := s.txnByID[id]
	if !ok {
		return nil, nil
	}
	return cloneTransaction(s.txns[txnID]), nil
}

func (r *LedgerRepo) GetByTransactionID(_ context.Context, transactionID string) (*domain.Transaction, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	txn, ok := s.txns[transactionID]
	if !ok {
		return nil, nil
	}
	return cloneTransaction(txn), nil
}

func (r *LedgerRepo) ListByAccountHandle(_ context.Context, handle string) ([]domain.Transaction, error) {
	return r.filter(func(t *domain.Transaction) bool {
		return t.PayerHandle == handle || t.PayeeHandle == handle
	}), nil
}

func (r *LedgerRepo) ListByStatus(_ context.Context, status domain.TransactionStatus) ([]domain.Transaction, error) {
	return r.filter(func(t *domain.Transaction) bool { return t.Status == status }), nil
}

func (r *LedgerRepo) ListByType(_ context.Context, txnType domain.TransactionType) ([]domain.Transaction, error) {
	return r.filter(func(t *domain.Transaction) bool { return t.Type == txnType }), nil
}

func (r *LedgerRepo) List(_ context.Context) ([]domain.Transaction, error) {
	return r.filter(func(*domain.Transaction) bool { return true }), nil
}

func (r *LedgerRepo) GetStats(_ context.Context) (*ports.LedgerStats, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &ports.LedgerStats{SettledVolume: decimal.Zero}
	for _, t := range s.txns {
		stats.TotalTransactions++
		switch t.Status {
		case domain.TransactionStatusSuccess:
			stats.Successful++
			stats.SettledVolume = stats.SettledVolume.Add(t.Amount)
		case domain.TransactionStatusFailed:
			stats.Failed++
		case domain.TransactionStatusPending:
			stats.Pending++
		}
	}
	return stats, nil
}

// filter returns committed records matching keep, newest first.
func (r *LedgerRepo) filter(keep func(*domain.Transaction) bool) []domain.Transaction {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0)
	for _, t := range s.txns {
		if keep(t) {
			out = append(out, *cloneTransaction(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}
