package service

import (
	"errors"

	"pool-monitor/internal/repository"
)

var (
	// ErrInvalidPayload is returned for telemetry without a usable device_id.
	ErrInvalidPayload = errors.New("invalid data format")
	// ErrInvalidRequest is returned for malformed dashboard input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnauthorized is returned when credentials do not match.
	ErrUnauthorized = errors.New("invalid username or password")
	// ErrForbidden is returned when the caller lacks the role for an action.
	ErrForbidden = errors.New("forbidden")

	ErrNotFound = repository.ErrNotFound
	ErrConflict = repository.ErrConflict
)
