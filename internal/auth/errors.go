package auth

import "errors"

var (
	// ErrInvalidToken indicates the token failed validation.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrForbidden is returned when the caller is authenticated but holds the
	// wrong role.
	ErrForbidden     = errors.New("auth: forbidden")
	errMissingSecret = errors.New("auth: secret is not configured")
)
