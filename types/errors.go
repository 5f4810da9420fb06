package types

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrPlanNotFound        = errors.New("plan not found")
	ErrPaymentNotFound     = errors.New("payment request not found")
	ErrAlreadyProcessed    = errors.New("payment request already processed")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidMethod       = errors.New("invalid payment method")
	ErrInvalidDuration     = errors.New("duration must be positive")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrDuplicateReference  = errors.New("transaction reference already used")
	ErrEmptyProof          = errors.New("payment proof is empty")
	ErrInvalidReference    = errors.New("not a transaction reference")
	ErrInvalidUPI          = errors.New("invalid UPI id")
	ErrInvalidWallet       = errors.New("wallet needs a symbol and an address")
	ErrInvalidChannel      = errors.New("channel must be a chat id, @username or invite link")
	ErrDuplicateChannel    = errors.New("channel already registered")
	ErrInsufficientBalance = errors.New("insufficient referral balance")
	ErrSweepInProgress     = errors.New("sweep already in progress")
)
