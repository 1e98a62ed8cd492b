package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"upi-ledger/internal/core/domain"
	"upi-ledger/internal/core/ports"
	"upi-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

type accountService struct {
	accounts ports.AccountRepository
	encSvc   ports.EncryptionService
	now      func() time.Time
	log      zerolog.Logger
}

// NewAccountService creates a new account onboarding service.
func NewAccountService(
	accounts ports.AccountRepository,
	encSvc ports.EncryptionService,
	log zerolog.Logger,
) ports.AccountService {
	return &accountService{
		accounts: accounts,
		encSvc:   encSvc,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// CreateAccount registers a new handle after checking handle, phone and email
// are unused. The bank account number is stored encrypted.
func (s *accountService) CreateAccount(ctx context.Context, req ports.CreateAccountRequest) (*domain.Account, error) {
	if req.Balance.IsNegative() {
		return nil, apperror.Validation("opening balance must not be negative")
	}
	if !req.Balance.Equal(req.Balance.Round(maxAmountScale)) {
		return nil, apperror.Validation("opening balance must have at most 2 decimal places")
	}

	if err := s.checkUnique(ctx, req); err != nil {
		return nil, err
	}

	accountNumberEnc, err := s.encSvc.Encrypt(req.AccountNumber)
	if err != nil {
		return nil, apperror.ErrEncryptionFailure(fmt.Errorf("encrypt account number: %w", err))
	}

	now := s.now()
	account := &domain.Account{
		Handle:           req.Handle,
		Name:             req.Name,
		Phone:            req.Phone,
		Email:            req.Email,
		Balance:          req.Balance,
		BankName:         req.BankName,
		AccountNumberEnc: accountNumberEnc,
		AccountLast4:     domain.MaskAccountNumber(req.AccountNumber),
		IFSCCode:         req.IFSCCode,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		// Lost a race with a concurrent registration of the same identity.
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperror.ErrConflict(err)
		}
		return nil, apperror.ErrStorage(fmt.Errorf("create account: %w", err))
	}

	s.log.Info().
		Int64("account_id", account.ID).
		Str("handle", account.Handle).
		Msg("account created")

	return account, nil
}

func (s *accountService) checkUnique(ctx context.Context, req ports.CreateAccountRequest) error {
	checks := []struct {
		field  string
		exists func(context.Context, string) (bool, error)
		value  string
		err    func() *apperror.AppError
	}{
		{"handle", s.accounts.ExistsByHandle, req.Handle, apperror.ErrHandleExists},
		{"phone", s.accounts.ExistsByPhone, req.Phone, apperror.ErrPhoneExists},
		{"email", s.accounts.ExistsByEmail, req.Email, apperror.ErrEmailExists},
	}

	for _, c := range checks {
		taken, err := c.exists(ctx, c.value)
		if err != nil {
			return apperror.ErrStorage(fmt.Errorf("check %s: %w", c.field, err))
		}
		if taken {
			return c.err()
		}
	}
	return nil
}
