// Package handlers defines the HTTP-layer error codes shared by all
// endpoints. Codes are lowercase snake_case and stable: callers branch on
// them programmatically, so they only ever grow, never change meaning.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
)
