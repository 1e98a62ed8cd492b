package dto

import (
	"time"

	"upi-ledger/internal/core/domain"
	"upi-ledger/internal/core/ports"

	"github.com/shopspring/decimal"
)

// CreateAccountRequest is the request body for account creation.
type CreateAccountRequest struct {
	Handle        string           `json:"handle" binding:"required,upi_handle,max=100"`
	Name          string           `json:"name" binding:"required,min=1,max=100"`
	Phone         string           `json:"phone" binding:"required,phone10"`
	Email         string           `json:"email" binding:"required,email,max=100"`
	Balance       *decimal.Decimal `json:"balance,omitempty"`
	BankName      string           `json:"bank_name" binding:"required,max=100"`
	AccountNumber string           `json:"account_number" binding:"required,acct_number"`
	IFSCCode      string           `json:"ifsc_code" binding:"required,ifsc"`
}

// ToPort converts the request into the service input.
func (r CreateAccountRequest) ToPort() ports.CreateAccountRequest {
	balance := decimal.Zero
	if r.Balance != nil {
		balance = *r.Balance
	}
	return ports.CreateAccountRequest{
		Handle:        r.Handle,
		Name:          r.Name,
		Phone:         r.Phone,
		Email:         r.Email,
		Balance:       balance,
		BankName:      r.BankName,
		AccountNumber: r.AccountNumber,
		IFSCCode:      r.IFSCCode,
	}
}

// PaymentRequest is the request body for a P2P payment.
type PaymentRequest struct {
	PayerHandle string           `json:"payer_handle" binding:"required,upi_handle"`
	PayeeHandle string           `json:"payee_handle" binding:"required,upi_handle"`
	Amount      *decimal.Decimal `json:"amount" binding:"required"`
	Description string           `json:"description" binding:"max=100"`
}

// ToPort converts the request into the service input.
func (r PaymentRequest) ToPort() ports.PaymentRequest {
	return ports.PaymentRequest{
		PayerHandle: r.PayerHandle,
		PayeeHandle: r.PayeeHandle,
		Amount:      *r.Amount,
		Description: r.Description,
	}
}

// AccountResponse is the public view of an account.
type AccountResponse struct {
	ID                int64  `json:"id"`
	Handle            string `json:"handle"`
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
	Balance           string `json:"balance"`
	BankName          string `json:"bank_name"`
	AccountLast4      string `json:"account_last4"`
	IFSCCode          string `json:"ifsc_code"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// TransactionResponse is the outbound transaction record.
type TransactionResponse struct {
	ID            int64   `json:"id"`
	TransactionID string  `json:"transaction_id"`
	PayerHandle   string  `json:"payer_handle"`
	PayeeHandle   string  `json:"payee_handle"`
	Amount        string  `json:"amount"`
	Description   string  `json:"description"`
	Status        string  `json:"status"`
	Type          string  `json:"type"`
	FailureReason *string `json:"failure_reason"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// LedgerStatsResponse is the response for ledger statistics.
type LedgerStatsResponse struct {
	TotalTransactions int64  `json:"total_transactions"`
	Successful        int64  `json:"successful"`
	Failed            int64  `json:"failed"`
	Pending           int64  `json:"pending"`
	SettledVolume     string `json:"settled_volume"`
}

// ListResponse wraps a list of items with its size.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

const moneyScale = 2

// NewAccountResponse converts a domain account to its DTO.
func NewAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:                a.ID,
		Handle:            a.Handle,
		Name:              a.Name,
		Phone:             a.Phone,
		Email:             a.Email,
		Balance:           a.Balance.StringFixed(moneyScale),
		BankName:          a.BankName,
		AccountLast4:      a.AccountLast4,
		IFSCCode:          a.IFSCCode,
		CreatedAt:         a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// NewTransactionResponse converts a domain transaction to its DTO.
func NewTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            t.ID,
		TransactionID: t.TransactionID,
		PayerHandle:   t.PayerHandle,
		PayeeHandle:   t.PayeeHandle,
		Amount:        t.Amount.StringFixed(moneyScale),
		Description:   t.Description,
		Status:        string(t.Status),
		Type:          string(t.Type),
		FailureReason: t.FailureReason,
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// NewAccountList converts accounts to a list response.
func NewAccountList(accounts []domain.Account) ListResponse[AccountResponse] {
	items := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		items = append(items, NewAccountResponse(&accounts[i]))
	}
	return ListResponse[AccountResponse]{Items: items, Total: len(items)}
}

// NewTransactionList converts transactions to a list response.
func NewTransactionList(txns []domain.Transaction) ListResponse[TransactionResponse] {
	items := make([]TransactionResponse, 0, len(txns))
	for i := range txns {
		items = append(items, NewTransactionResponse(&txns[i]))
	}
	return ListResponse[TransactionResponse]{Items: items, Total: len(items)}
}

// NewLedgerStatsResponse converts ledger stats to their DTO.
func NewLedgerStatsResponse(s *ports.LedgerStats) LedgerStatsResponse {
	return LedgerStatsResponse{
		TotalTransactions: s.TotalTransactions,
		Successful:        s.Successful,
		Failed:            s.Failed,
		Pending:           s.Pending,
		SettledVolume:     s.SettledVolume.StringFixed(moneyScale),
	}
}
