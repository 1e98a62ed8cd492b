package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a user balance addressed by a payment handle.
type Account struct {
	ID               int64           `json:"id"`
	Handle           string          `json:"handle"` // e.g. "john.doe@icici", immutable
	Name             string          `json:"name"`
	Phone            string          `json:"phone"`
	Email            string          `json:"email"`
	Balance          decimal.Decimal `json:"balance"`
	BankName         string          `json:"bank_name"`
	AccountNumberEnc string          `json:"-"` // AES-256 encrypted, never expose raw
	AccountLast4     string          `json:"account_last4"`
	IFSCCode         string          `json:"ifsc_code"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// CanCover reports whether the balance is enough to pay amount.
func (a *Account) CanCover(amount decimal.Decimal) bool {
	return a.Balance.GreaterThanOrEqual(amount)
}

// MaskAccountNumber keeps only the trailing four digits of a bank account number.
func MaskAccountNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return number[len(number)-4:]
}
