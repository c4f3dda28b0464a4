package domain

import "errors"

// Sentinel errors returned by repositories and services.
// Adapters map these to transport-level status codes.
var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrRecipientNotFound   = errors.New("recipient not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrReceiptNotFound     = errors.New("receipt not found")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSelfTransfer      = errors.New("cannot transfer to own account")
	ErrAlreadyCancelled  = errors.New("transaction already cancelled")
	ErrInactiveAccount   = errors.New("account is inactive")

	ErrInvalidAmount = errors.New("amount must be positive")
	ErrPhoneTaken    = errors.New("phone number already has an account")
	ErrAccountExists = errors.New("owner already has an active account")
	ErrReceiptExists = errors.New("transaction already has a receipt")

	ErrForbidden = errors.New("caller is not a party to this transaction")
)
