package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"upi-ledger/internal/core/domain"
	"upi-ledger/internal/core/ports"
	"upi-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

const maxAmountScale = 2

// TransferServiceImpl implements ports.TransferService.
type TransferServiceImpl struct {
	accounts   ports.AccountRepository
	ledger     ports.LedgerRepository
	transactor ports.Transactor
	now        func() time.Time
	log        zerolog.Logger
}

// NewTransferService creates a new TransferServiceImpl.
func NewTransferService(
	accounts ports.AccountRepository,
	ledger ports.LedgerRepository,
	transactor ports.Transactor,
	log zerolog.Logger,
) *TransferServiceImpl {
	return &TransferServiceImpl{
		accounts:   accounts,
		ledger:     ledger,
		transactor: transactor,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log,
	}
}

// Pay moves req.Amount from the payer to the payee.
//
// Rejections found before the PENDING record is written (unknown party,
// insufficient funds, bad input) return an error and leave no record. Once the
// record exists every outcome is reported through it: Pay returns the SUCCESS
// or FAILED transaction with a nil error, unless the FAILED write itself fails.
func (s *TransferServiceImpl) Pay(ctx context.Context, req ports.PaymentRequest) (*domain.Transaction, error) {
	if err := validatePayment(req); err != nil {
		return nil, err
	}

	payer, err := s.accounts.GetByHandle(ctx, req.PayerHandle)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("resolve payer: %w", err))
	}
	if payer == nil {
		return nil, apperror.ErrNotFound("payer")
	}

	payee, err := s.accounts.GetByHandle(ctx, req.PayeeHandle)
	if err != nil {
		return nil, apperror.ErrStorage(fmt.Errorf("resolve payee: %w", err))
	}
	if payee == nil {
		return nil, apperror.ErrNotFound("payee")
	}

	if !payer.CanCover(req.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	txn := domain.NewPayment(payer.Handle, payee.Handle, req.Amount, req.Description, s.now())
	if err := s.appendPending(ctx, txn); err != nil {
		return nil, err
	}

	settled, err := s.settle(ctx, txn)
	if err != nil {
		return s.fail(ctx, txn, err)
	}

	s.log.Info().
		Str("txn_id", settled.TransactionID).
		Str("payer", settled.PayerHandle).
		Str("payee", settled.PayeeHandle).
		Str("amount", settled.Amount.StringFixed(maxAmountScale)).
		Msg("payment settled")

	return settled, nil
}

func validatePayment(req ports.PaymentRequest) error {
	if !req.Amount.IsPositive() {
		return apperror.ErrInvalidAmount()
	}
	if !req.Amount.Equal(req.Amount.Round(maxAmountScale)) {
		return apperror.Validation("amount must have at most 2 decimal places")
	}
	if req.PayerHandle == req.PayeeHandle {
		return apperror.ErrSameParty()
	}
	if utf8.RuneCountInString(req.Description) > domain.MaxDescriptionLength {
		return apperror.Validation("description must be at most 100 characters")
	}
	return nil
}

// appendPending commits the PENDING record in its own unit of work.
func (s *TransferServiceImpl) appendPending(ctx context.Context, txn *domain.Transaction) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.ErrStorage(fmt.Errorf("begin append: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.ledger.Append(ctx, dbTx, txn); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return apperror.ErrDuplicateTransaction()
		}
		return apperror.ErrStorage(fmt.Errorf("append transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.ErrStorage(fmt.Errorf("commit append: %w", err))
	}
	return nil
}

// settle debits the payer, credits the payee and marks txn SUCCESS in one
// unit of work. Any error leaves both balances untouched.
func (s *TransferServiceImpl) settle(ctx context.Context, txn *domain.Transaction) (*domain.Transaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin settlement: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock in handle order so opposing transfers cannot deadlock.
	locked := make(map[string]*domain.Account, 2)
	for _, handle := range lockOrder(txn.PayerHandle, txn.PayeeHandle) {
		acc, err := s.accounts.GetByHandleForUpdate(ctx, dbTx, handle)
		if err != nil {
			return nil, fmt.Errorf("lock account %s: %w", handle, err)
		}
		if acc == nil {
			return nil, fmt.Errorf("lock account %s: %w", handle, domain.ErrAccountNotFound)
		}
		locked[handle] = acc
	}
	payer, payee := locked[txn.PayerHandle], locked[txn.PayeeHandle]

	// The balance may have moved since the unlocked check in Pay.
	if !payer.CanCover(txn.Amount) {
		return nil, domain.ErrInsufficientFunds
	}

	if _, err := s.accounts.UpdateBalance(ctx, dbTx, payer.Handle, payer.Balance.Sub(txn.Amount)); err != nil {
		return nil, fmt.Errorf("debit payer: %w", err)
	}
	if _, err := s.accounts.UpdateBalance(ctx, dbTx, payee.Handle, payee.Balance.Add(txn.Amount)); err != nil {
		return nil, fmt.Errorf("credit payee: %w", err)
	}

	settled, err := s.ledger.UpdateStatus(ctx, dbTx, txn.TransactionID, domain.TransactionStatusSuccess, nil)
	if err != nil {
		return nil, fmt.Errorf("mark success: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit settlement: %w", err)
	}
	return settled, nil
}

// fail records txn as FAILED after a rolled back settlement.
func (s *TransferServiceImpl) fail(ctx context.Context, txn *domain.Transaction, cause error) (*domain.Transaction, error) {
	reason := domain.TruncateReason(cause.Error())

	// The record must leave PENDING even if the caller has gone away.
	ctx = context.WithoutCancel(ctx)

	failed, err := s.markFailed(ctx, txn.TransactionID, reason)
	if err != nil {
		s.log.Error().
			Err(err).
			AnErr("cause", cause).
			Str("txn_id", txn.TransactionID).
			Msg("failed to record transaction failure")
		if errors.Is(err, domain.ErrTransactionFinalized) {
			return nil, apperror.ErrTransactionFinalized()
		}
		return nil, apperror.ErrStorage(fmt.Errorf("record failure: %w", err))
	}

	s.log.Warn().
		Str("txn_id", failed.TransactionID).
		Str("payer", failed.PayerHandle).
		Str("payee", failed.PayeeHandle).
		Str("amount", failed.Amount.StringFixed(maxAmountScale)).
		Str("reason", reason).
		Msg("payment failed")

	return failed, nil
}

func (s *TransferServiceImpl) markFailed(ctx context.Context, transactionID, reason string) (*domain.Transaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	failed, err := s.ledger.UpdateStatus(ctx, dbTx, transactionID, domain.TransactionStatusFailed, &reason)
	if err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return failed, nil
}

func lockOrder(a, b string) []string {
	if a < b {
		return []string{a, b}
	}
	return []string{b, a}
}
