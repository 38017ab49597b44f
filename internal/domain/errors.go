package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	// ErrRequestNotPending is returned when a citizen edits or cancels a
	// request that a company has already answered.
	ErrRequestNotPending = errors.New("request is no longer pending")
)
