// Package memory is a process-local storage adapter. It keeps accounts and
// ledger records in maps and gives units of work per-row locks with
// commit/rollback semantics, so it can stand in for PostgreSQL.
package memory

import (
	"context"
	"errors"
	"sync"

	"upi-ledger/internal/core/domain"
)

// Store holds committed state shared by the repositories built on it.
type Store struct {
	mu          sync.RWMutex
	accounts    map[string]*domain.Account // by handle
	accountByID map[int64]string
	phones      map[string]struct{}
	emails      map[string]struct{}
	txns        map[string]*domain.Transaction // by transaction id
	txnByID     map[int64]string
	nextAcctID  int64
	nextTxnID   int64

	locksMu sync.Mutex
	locks   map[string]*rowLock
}

// rowLock is a binary semaphore. refs counts holders and waiters; the entry
// is dropped from Store.locks when it reaches zero.
type rowLock struct {
	ch   chan struct{}
	refs int
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts:    make(map[string]*domain.Account),
		accountByID: make(map[int64]string),
		phones:      make(map[string]struct{}),
		emails:      make(map[string]struct{}),
		txns:        make(map[string]*domain.Transaction),
		txnByID:     make(map[int64]string),
		locks:       make(map[string]*rowLock),
	}
}

// ref returns the lock guarding key, creating it on first use, and counts the
// caller against it.
func (s *Store) ref(key string) *rowLock {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &rowLock{ch: make(chan struct{}, 1)}
		s.locks[key] = l
	}
	l.refs++
	return l
}

func (s *Store) unref(key string, l *rowLock) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, key)
	}
}

// acquire blocks until key is locked or ctx is done.
func (s *Store) acquire(ctx context.Context, key string) error {
	l := s.ref(key)
	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		s.unref(key, l)
		return ctx.Err()
	}
}

// release unlocks key. The caller must hold it.
func (s *Store) release(key string) {
	s.locksMu.Lock()
	l := s.locks[key]
	s.locksMu.Unlock()
	<-l.ch
	s.unref(key, l)
}

// lockCount reports how many keys currently have a holder or waiter.
func (s *Store) lockCount() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}

func accountKey(handle string) string { return "account:" + handle }
func txnKey(transactionID string) string { return "txn:" + transactionID }

func cloneAccount(a *domain.Account) *domain.Account {
	cp := *a
	return &cp
}

func cloneTransaction(t *domain.Transaction) *domain.Transaction {
	cp := *t
	if t.FailureReason != nil {
		reason := *t.FailureReason
		cp.FailureReason = &reason
	}
	return &cp
}

// HealthCheck implements ports.HealthChecker for the memory store.
type HealthCheck struct {
	store *Store
}

// NewHealthCheck creates a memory store health checker.
func NewHealthCheck(store *Store) *HealthCheck {
	return &HealthCheck{store: store}
}

// Ping reports whether the store was built with NewStore.
func (h *HealthCheck) Ping(_ context.Context) error {
	if h.store == nil {
		return errors.New("memory store not configured")
	}
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	if h.store.accounts == nil || h.store.txns == nil || h.store.locks == nil {
		return errors.New("memory store not initialized")
	}
	return nil
}

// Name returns the dependency name.
func (h *HealthCheck) Name() string {
	return "memory"
}
