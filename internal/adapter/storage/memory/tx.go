package memory

import (
	"context"
	"errors"
	"time"

	"upi-ledger/internal/core/domain"
	"upi-ledger/internal/core/ports"

	"github.com/shopspring/decimal"
)

var (
	errForeignTx = errors.New("unit of work was not opened by this memory store")
	errTxDone    = errors.New("unit of work already committed or rolled back")
)

// Transactor implements ports.Transactor for the memory store.
type Transactor struct {
	store *Store
}

// NewTransactor creates a Transactor over store.
func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

// Begin opens a unit of work.
func (t *Transactor) Begin(_ context.Context) (ports.Tx, error) {
	return &Tx{
		store:    t.store,
		held:     make(map[string]struct{}),
		balances: make(map[string]decimal.Decimal),
		txns:     make(map[string]*domain.Transaction),
	}, nil
}

// Tx is a unit of work. Row locks taken through it are held until Commit or
// Rollback. Writes are staged and only become visible on Commit.
type Tx struct {
	store    *Store
	held     map[string]struct{}
	lockSeq  []string
	balances map[string]decimal.Decimal     // staged balance per handle
	txns     map[string]*domain.Transaction // staged records per transaction id
	done     bool
}

// Commit publishes staged writes and releases every lock.
func (tx *Tx) Commit(_ context.Context) error {
	if tx.done {
		return errTxDone
	}
	defer tx.finish()

	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for handle := range tx.balances {
		if _, ok := s.accounts[handle]; !ok {
			return domain.ErrAccountNotFound
		}
	}

	now := time.Now().UTC()
	for handle, balance := range tx.balances {
		acc := s.accounts[handle]
		acc.Balance = balance
		acc.UpdatedAt = now
	}
	for id, staged := range tx.txns {
		s.txns[id] = cloneTransaction(staged)
		s.txnByID[staged.ID] = id
	}
	return nil
}

// Rollback discards staged writes and releases every lock. It is a no-op
// after Commit.
func (tx *Tx) Rollback(_ context.Context) error {
	if tx.done {
		return nil
	}
	tx.finish()
	return nil
}

func (tx *Tx) finish() {
	tx.done = true
	for i := len(tx.lockSeq) - 1; i >= 0; i-- {
		tx.store.release(tx.lockSeq[i])
	}
	tx.lockSeq = nil
	tx.held = nil
}

// lock takes the row lock for key unless this unit of work already holds it.
func (tx *Tx) lock(ctx context.Context, key string) error {
	if tx.done {
		return errTxDone
	}
	if _, ok := tx.held[key]; ok {
		return nil
	}
	if err := tx.store.acquire(ctx, key); err != nil {
		return err
	}
	tx.held[key] = struct{}{}
	tx.lockSeq = append(tx.lockSeq, key)
	return nil
}

// unwrap recovers a *Tx opened on store.
func unwrap(tx ports.Tx, store *Store) (*Tx, error) {
	mtx, ok := tx.(*Tx)
	if !ok || mtx.store != store {
		return nil, errForeignTx
	}
	if mtx.done {
		return nil, errTxDone
	}
	return mtx, nil
}
