package utils

import "errors"

var (
	ErrDatabaseError = errors.New("database error")
	ErrInvalidInput  = errors.New("invalid input")

	// authorization
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrSelfApproval       = errors.New("cannot act on own account")
	ErrInvalidAccessToken = errors.New("invalid payment access token")

	// accounts
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrAccountNotLocked   = errors.New("account is not locked")
	ErrTooManyAttempts    = errors.New("too many login attempts")

	// approvals
	ErrApprovalNotFound   = errors.New("approval record not found")
	ErrAlreadyApproved    = errors.New("account is already approved")
	ErrAlreadyRejected    = errors.New("approval is already rejected")
	ErrTierAlreadyDecided = errors.New("tier has already approved this account")
	ErrTierOutOfOrder     = errors.New("first tier must approve before second tier")
	ErrUnknownTier        = errors.New("unknown approval tier")
	ErrInvalidRemarks     = errors.New("remarks must be between 10 and 255 characters")

	// payments
	ErrPayableNotFound     = errors.New("payable not found")
	ErrOrderNotFound       = errors.New("payment order not found")
	ErrAmountBelowMinimum  = errors.New("amount below provider minimum")
	ErrAlreadyPaid         = errors.New("payable is already paid")
	ErrOrderClosed         = errors.New("payment order is no longer pending")
	ErrSignatureInvalid    = errors.New("payment signature verification failed")
	ErrAmountMismatch      = errors.New("payment amount does not match expected amount")
	ErrProviderUnavailable = errors.New("payment provider request failed")
)

// IsIntegrityError reports errors that must be logged as security relevant.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrInvalidAccessToken) ||
		errors.Is(err, ErrSignatureInvalid) ||
		errors.Is(err, ErrAmountMismatch) ||
		errors.Is(err, ErrPayableNotFound)
}
