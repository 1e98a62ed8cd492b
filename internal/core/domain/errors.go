package domain

import "errors"

// Sentinel errors returned by storage adapters. Services map them to apperror codes.
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrTransactionFinalized = errors.New("transaction already finalized")
	ErrDuplicate            = errors.New("duplicate key")
	ErrInsufficientFunds    = errors.New("insufficient funds")
)
