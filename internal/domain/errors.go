package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The dispatch layer maps these to response status codes.
var (
	ErrUserAlreadyExists    = errors.New("user_already_exists")
	ErrUserNotFound         = errors.New("user_not_found")
	ErrSymbolAlreadyExists  = errors.New("symbol_already_exists")
	ErrSymbolNotFound       = errors.New("symbol_not_found")
	ErrInsufficientBalance  = errors.New("insufficient_balance")
	ErrInsufficientPosition = errors.New("insufficient_position")
	ErrInvalidPrice         = errors.New("invalid_price")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrInvalidOutcome       = errors.New("invalid_outcome")
)

// ErrUnsupportedCommand marks a command kind the dispatcher does not
// recognize. Unlike all validation errors it is an ingress contract
// violation and terminates the process.
var ErrUnsupportedCommand = errors.New("unsupported_command")

// ValidationError represents a malformed command payload.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
