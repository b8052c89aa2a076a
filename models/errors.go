package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across stores and services.
var (
	// ErrNotConfigured means a required credential or secret is absent.
	// Callers fail fast before any network call is attempted.
	ErrNotConfigured = errors.New("required credentials not configured")

	// ErrNotFound means the referenced record does not exist or does not
	// belong to the caller.
	ErrNotFound = errors.New("record not found")

	// ErrValidation means the input to an endpoint is malformed.
	ErrValidation = errors.New("invalid input")
)

// UpstreamAuthError is returned when the OAuth provider rejects a handshake
// step. It carries the provider's status and body for server-side logs; only
// an opaque code is ever shown to the browser.
type UpstreamAuthError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamAuthError) Error() string {
	return fmt.Sprintf("upstream auth error: status %d: %s", e.StatusCode, e.Body)
}

// UpstreamAPIError is returned when a non-auth provider call fails after the
// fetch layer has exhausted its retries, or fails with a non-retryable status.
type UpstreamAPIError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamAPIError) Error() string {
	return fmt.Sprintf("upstream api error: status %d: %s", e.StatusCode, e.Body)
}
