package application

import "errors"

// Domain errors returned by AuthService. Callers match them with errors.Is;
// anything else is an unexpected failure.
var (
	ErrValidation         = errors.New("missing or invalid fields")
	ErrEmailTaken         = errors.New("user already exists")
	ErrAccountNotFound    = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidOTP         = errors.New("invalid OTP")
	ErrExpiredOTP         = errors.New("OTP expired")
	ErrAlreadyVerified    = errors.New("account already verified")
)
