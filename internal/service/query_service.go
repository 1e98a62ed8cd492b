package service

import (
	"context"
	"fmt"

	"upi-ledger/internal/core/domain"
	"upi-ledger/internal/core/ports"
	"upi-ledger/pkg/apperror"
)

// queryService implements ports.QueryService.
type queryService struct {
	accounts ports.AccountRepository
	ledger   ports.LedgerRepository
}

// NewQueryService creates a new read-only query service.
func NewQueryService(accounts ports.AccountRepository, ledger ports.LedgerRepository) ports.QueryService {
	return &queryService{accounts: accounts, ledger: ledger}
}

func (s *queryService) GetAccountByID(ctx context.Context, id int64) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("get account %d: %w", id, err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}
	return account, nil
}

func (s *queryService) GetAccountByHandle(ctx context.Context, handle string) (*domain.Account, error) {
	account, err := s.accounts.GetByHandle(ctx, handle)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("get account %s: %w", handle, err))
	}
	if account == nil {
		return nil, apperror.ErrNotFound("account")
	}
	return account, nil
}

func (s *queryService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("list accounts: %w", err))
	}
	return accounts, nil
}

func (s *queryService) GetTransactionByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	txn, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("get transaction %d: %w", id, err))
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	return txn, nil
}

func (s *queryService) GetTransactionByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	txn, err := s.ledger.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("get transaction %s: %w", transactionID, err))
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("transaction")
	}
	return txn, nil
}

// ListTransactions returns every record, or those matching filter.Status or
// filter.Type. Status wins when both are set.
func (s *queryService) ListTransactions(ctx context.Context, filter ports.TransactionFilter) ([]domain.Transaction, error) {
	var (
		txns []domain.Transaction
		err  error
	)

	switch {
	case filter.Status != nil:
		if !filter.Status.Valid() {
			return nil, apperror.Validation(fmt.Sprintf("invalid status %q", *filter.Status))
		}
		txns, err = s.ledger.ListByStatus(ctx, *filter.Status)
	case filter.Type != nil:
		if !filter.Type.Valid() {
			return nil, apperror.Validation(fmt.Sprintf("invalid type %q", *filter.Type))
		}
		txns, err = s.ledger.ListByType(ctx, *filter.Type)
	default:
		txns, err = s.ledger.List(ctx)
	}
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("list transactions: %w", err))
	}
	return txns, nil
}

// ListTransactionsByHandle returns the records where handle is payer or payee.
func (s *queryService) ListTransactionsByHandle(ctx context.Context, handle string) ([]domain.Transaction, error) {
	txns, err := s.ledger.ListByAccountHandle(ctx, handle)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("list transactions for %s: %w", handle, err))
	}
	return txns, nil
}

func (s *queryService) GetLedgerStats(ctx context.Context) (*ports.LedgerStats, error) {
	stats, err := s.ledger.GetStats(ctx)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("ledger stats: %w", err))
	}
	return stats, nil
}
