package common

import "errors"

var (
	// repository specific errors
	ErrorNotFound       = errors.New("not found")
	ErrStaleRefreshHash = errors.New("stored refresh hash changed")

	// auth flow errors
	ErrorValidation       = errors.New("validation error")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccessDenied       = errors.New("access denied")

	// token verification errors
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrMissingToken     = errors.New("missing bearer token")

	// configuration errors
	ErrMissingSecret = errors.New("token secret is not configured")
	ErrSharedSecret  = errors.New("access and refresh secrets must differ")
)
