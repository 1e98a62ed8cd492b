package service

import (
	"context"
	"fmt"

	"upi-ledger/internal/core/ports"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// SampleAccounts are created by SeedAccounts on an empty store.
var SampleAccounts = []ports.CreateAccountRequest{
	{
		Handle:        "john.doe@icici",
		Name:          "John Doe",
		Phone:         "9876543210",
		Email:         "john.doe@example.com",
		Balance:       decimal.RequireFromString("10000.00"),
		BankName:      "ICICI Bank",
		AccountNumber: "1234567890",
		IFSCCode:      "ICIC0001234",
	},
	{
		Handle:        "jane.smith@hdfc",
		Name:          "Jane Smith",
		Phone:         "9876543211",
		Email:         "jane.smith@example.com",
		Balance:       decimal.RequireFromString("5000.00"),
		BankName:      "HDFC Bank",
		AccountNumber: "0987654321",
		IFSCCode:      "HDFC0005678",
	},
	{
		Handle:        "bob.wilson@sbi",
		Name:          "Bob Wilson",
		Phone:         "9876543212",
		Email:         "bob.wilson@example.com",
		Balance:       decimal.RequireFromString("7500.00"),
		BankName:      "State Bank of India",
		AccountNumber: "1122334455",
		IFSCCode:      "SBIN0009876",
	},
}

// SeedAccounts creates SampleAccounts when the store holds no accounts.
// It returns the number of accounts created.
func SeedAccounts(ctx context.Context, svc ports.AccountService, accounts ports.AccountRepository, log zerolog.Logger) (int, error) {
	count, err := accounts.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	if count > 0 {
		log.Info().Int64("accounts", count).Msg("store not empty, skipping seed")
		return 0, nil
	}

	for i, req := range SampleAccounts {
		if _, err := svc.CreateAccount(ctx, req); err != nil {
			return i, fmt.Errorf("seed %s: %w", req.Handle, err)
		}
	}

	log.Info().Int("accounts", len(SampleAccounts)).Msg("sample accounts seeded")
	return len(SampleAccounts), nil
}
