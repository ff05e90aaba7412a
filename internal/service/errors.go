package service

import "errors"

// Sentinel errors. Handlers map them to HTTP status codes with errors.Is.
var (
	ErrValidation      = errors.New("validation failed")
	ErrInvalidLogin    = errors.New("invalid email or password")
	ErrInvalidPassword = errors.New("incorrect password")
	ErrForbidden       = errors.New("access denied")
	ErrNotFound        = errors.New("resource not found")
	ErrConflict        = errors.New("resource already exists")
	ErrOverpayment     = errors.New("payment exceeds remaining debt")
	ErrMailUnavailable = errors.New("receipt mailing unavailable")
)
