package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TransactionTypePay     TransactionType = "PAY"
	TransactionTypeRequest TransactionType = "REQUEST"
	TransactionTypeCollect TransactionType = "COLLECT"
)

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypePay, TransactionTypeRequest, TransactionTypeCollect:
		return true
	}
	return false
}

// TransactionStatus represents the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusSuccess   TransactionStatus = "SUCCESS"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

// Valid reports whether s is a known transaction status.
func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusSuccess, TransactionStatusFailed, TransactionStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true for statuses a transaction never leaves.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusSuccess ||
		s == TransactionStatusFailed ||
		s == TransactionStatusCancelled
}

const (
	transactionIDPrefix = "TXN"
	transactionIDLength = 12

	// MaxDescriptionLength bounds Transaction.Description.
	MaxDescriptionLength = 100
	// MaxFailureReasonLength bounds Transaction.FailureReason.
	MaxFailureReasonLength = 255
)

// Transaction is the durable record of one transfer attempt and its outcome.
type Transaction struct {
	ID            int64             `json:"id"`
	TransactionID string            `json:"transaction_id"`
	PayerHandle   string            `json:"payer_handle"`
	PayeeHandle   string            `json:"payee_handle"`
	Amount        decimal.Decimal   `json:"amount"`
	Description   string            `json:"description"`
	Type          TransactionType   `json:"type"`
	Status        TransactionStatus `json:"status"`
	FailureReason *string           `json:"failure_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// NewPayment builds a PENDING PAY transaction with a fresh transaction id.
func NewPayment(payer, payee string, amount decimal.Decimal, description string, now time.Time) *Transaction {
	return &Transaction{
		TransactionID: GenerateTransactionID(),
		PayerHandle:   payer,
		PayeeHandle:   payee,
		Amount:        amount,
		Description:   description,
		Type:          TransactionTypePay,
		Status:        TransactionStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// GenerateTransactionID returns "TXN" followed by 12 uppercase hex characters
// taken from a random UUID.
func GenerateTransactionID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return transactionIDPrefix + strings.ToUpper(hex[:transactionIDLength])
}

// TruncateReason clips a failure reason to MaxFailureReasonLength characters.
// The result is always valid UTF-8.
func TruncateReason(reason string) string {
	reason = strings.ToValidUTF8(reason, "\uFFFD")
	if utf8.RuneCountInString(reason) <= MaxFailureReasonLength {
		return reason
	}
	n, i := 0, 0
	for i < len(reason) && n < MaxFailureReasonLength {
		_, size := utf8.DecodeRuneInString(reason[i:])
		i += size
		n++
	}
	return reason[:i]
}
