package models

import "errors"

// Error taxonomy for ledger operations. All failures surface as one of
// these sentinels (possibly wrapped); callers match with errors.Is.
var (
	// ErrInvalidAmount is returned when an operation amount is not positive.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrWalletNotFound is returned when a referenced wallet does not exist.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletNotActive is returned when a wallet is inactive or blocked.
	ErrWalletNotActive = errors.New("wallet is not active")

	// ErrSameWallet is returned when a transfer names the same wallet on both sides.
	ErrSameWallet = errors.New("sender and receiver wallets must differ")

	// ErrCurrencyMismatch is returned when transfer wallets hold different currencies.
	ErrCurrencyMismatch = errors.New("wallet currencies do not match")

	// ErrInsufficientFunds is returned when a debit would make a balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientFundsForReversal is returned when the original receiver's
	// current balance no longer covers the amount being reversed.
	ErrInsufficientFundsForReversal = errors.New("insufficient funds for reversal")

	// ErrNotReversible is returned when a transaction cannot be reversed:
	// wrong type, wrong status, or already reversed.
	ErrNotReversible = errors.New("transaction cannot be reversed")

	// ErrTransactionNotFound is returned when a referenced transaction does not exist.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrLockTimeout is returned when a wallet row lock cannot be acquired
	// within the unit of work's lock timeout.
	ErrLockTimeout = errors.New("wallet lock acquisition timed out")
)
