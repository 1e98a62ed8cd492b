package memory

import (
	"context"
	"sort"
	"time"

	"upi-ledger/internal/core/domain"
	"upi-ledger/internal/core/ports"

	"github.com/shopspring/decimal"
)

// AccountRepo implements ports.AccountRepository on a Store.
type AccountRepo struct {
	store *Store
}

// NewAccountRepo creates an AccountRepo.
func NewAccountRepo(store *Store) *AccountRepo {
	return &AccountRepo{store: store}
}

func (r *AccountRepo) Create(_ context.Context, account *domain.Account) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.Handle]; ok {
		return domain.ErrDuplicate
	}
	if _, ok := s.phones[account.Phone]; ok {
		return domain.ErrDuplicate
	}
	if _, ok := s.emails[account.Email]; ok {
		return domain.ErrDuplicate
	}

	now := time.Now().UTC()
	s.nextAcctID++
	account.ID = s.nextAcctID
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = account.CreatedAt

	s.accounts[account.Handle] = cloneAccount(account)
	s.accountByID[account.ID] = account.Handle
	s.phones[account.Phone] = struct{}{}
	s.emails[account.Email] = struct{}{}
	return nil
}

func (r *AccountRepo) GetByID(_ context.Context, id int64) (*domain.Account, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	handle, ok := s.accountByID[id]
	if !ok {
		return nil, nil
	}
	return cloneAccount(s.accounts[handle]), nil
}

func (r *AccountRepo) GetByHandle(_ context.Context, handle string) (*domain.Account, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[handle]
	if !ok {
		return nil, nil
	}
	return cloneAccount(acc), nil
}

// GetByHandleForUpdate locks the account row for the rest of tx and returns
// it as tx sees it.
func (r *AccountRepo) GetByHandleForUpdate(ctx context.Context, tx ports.Tx, handle string) (*domain.Account, error) {
	mtx, err := unwrap(tx, r.store)
	if err != nil {
		return nil, err
	}
	if err := mtx.lock(ctx, accountKey(handle)); err != nil {
		return nil, err
	}
	return r.view(mtx, handle), nil
}

func (r *AccountRepo) view(mtx *Tx, handle string) *domain.Account {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[handle]
	if !ok {
		return nil
	}
	cp := cloneAccount(acc)
	if staged, ok := mtx.balances[handle]; ok {
		cp.Balance = staged
	}
	return cp
}

func (r *AccountRepo) ExistsByHandle(_ context.Context, handle string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.accounts[handle]
	return ok, nil
}

func (r *AccountRepo) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.phones[phone]
	return ok, nil
}

func (r *AccountRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	_, ok := r.store.emails[email]
	return ok, nil
}

// UpdateBalance stages a new balance for handle, locking the row if tx does
// not hold it yet.
func (r *AccountRepo) UpdateBalance(ctx context.Context, tx ports.Tx, handle string, balance decimal.Decimal) (*domain.Account, error) {
	mtx, err := unwrap(tx, r.store)
	if err != nil {
		return nil, err
	}
	if err := mtx.lock(ctx, accountKey(handle)); err != nil {
		return nil, err
	}
	acc := r.view(mtx, handle)
	if acc == nil {
		return nil, domain.ErrAccountNotFound
	}
	mtx.balances[handle] = balance
	acc.Balance = balance
	acc.UpdatedAt = time.Now().UTC()
	return acc, nil
}

func (r *AccountRepo) List(_ context.Context) ([]domain.Account, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, *acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *AccountRepo) Count(_ context.Context) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return int64(len(r.store.accounts)), nil
}
