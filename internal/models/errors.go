package models

import "errors"

// Engine error taxonomy. Validation errors are returned before any write;
// ErrAlreadyProcessed signals an idempotent no-op on a state transition
// attempted out of order.
var (
	ErrInvalidHierarchy     = errors.New("invalid hierarchy")
	ErrInsufficientBalance  = errors.New("insufficient balance")
	ErrBelowMinimumPayout   = errors.New("amount below minimum payout")
	ErrLimitExceeded        = errors.New("payout limit exceeded")
	ErrVerificationRequired = errors.New("member verification required")
	ErrAlreadyProcessed     = errors.New("already processed")
)
