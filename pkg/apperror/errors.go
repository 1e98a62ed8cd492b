package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ---- Payment Business Logic (PAY) ----

func ErrInsufficientFunds() *AppError {
	return New("PAY_001", "Insufficient balance in payer account", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("PAY_002", "Amount must be greater than zero", http.StatusBadRequest)
}

func ErrDuplicateTransaction() *AppError {
	return New("PAY_003", "Transaction id already exists", http.StatusConflict)
}

func ErrNotFound(entity string) *AppError {
	return New("PAY_004", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrSameParty() *AppError {
	return New("PAY_005", "Payer and payee must be different accounts", http.StatusBadRequest)
}

func ErrTransactionFinalized() *AppError {
	return New("PAY_006", "Transaction already reached a terminal status", http.StatusConflict)
}

// ---- Accounts (ACC) ----

func ErrHandleExists() *AppError {
	return New("ACC_001", "Payment handle already exists", http.StatusConflict)
}

func ErrPhoneExists() *AppError {
	return New("ACC_002", "Phone number already exists", http.StatusConflict)
}

func ErrEmailExists() *AppError {
	return New("ACC_003", "Email already exists", http.StatusConflict)
}

// ErrConflict reports a uniqueness violation the store detected without
// naming the offending field.
func ErrConflict(err error) *AppError {
	return Wrap("ACC_004", "Account already exists", http.StatusConflict, err)
}

// ---- Validation (VAL) ----

// Validation returns a VAL_001 request validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

// ErrPayloadTooLarge returns a VAL_002 error for request bodies over the limit.
func ErrPayloadTooLarge() *AppError {
	return New("VAL_002", "Request body too large", http.StatusRequestEntityTooLarge)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// ErrStorage reports a failed write or read against the account or ledger store.
func ErrStorage(err error) *AppError {
	return Wrap("SYS_002", "Storage operation failed", http.StatusInternalServerError, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}
