package domain

import "errors"

// Error kinds reported by the cart core. Callers match them with errors.Is;
// the wrapped message carries the detail.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInconsistentState = errors.New("inconsistent state")
)
