package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrEmptyQueue      = errors.New("empty_queue")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidOrder    = errors.New("invalid_order")
	ErrInvalidSide     = errors.New("invalid_side")
	ErrAccountNotFound = errors.New("account_not_found")
	ErrWrongSide       = errors.New("wrong_side")
	ErrDuplicateOrder  = errors.New("duplicate_order")
)

// ValidationError represents a request or input validation failure.
// Err, when set, is the sentinel the failure belongs to.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
