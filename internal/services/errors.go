// Package services implements the application layer: the inbound chat
// pipeline, debt bookkeeping, and billing-event effects. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
package services

import "errors"

var (
	// ErrClientNotFound indicates the named client does not exist for this
	// user.
	ErrClientNotFound = errors.New("client not found")

	// ErrNothingOwed indicates the client has no open debts to act on.
	ErrNothingOwed = errors.New("nothing owed")

	// ErrNoPhone indicates a reminder cannot be dispatched because the client
	// has no stored phone number.
	ErrNoPhone = errors.New("client has no phone on file")

	// ErrUserNotFound indicates a billing event referenced an identity or
	// subscription no user row mirrors.
	ErrUserNotFound = errors.New("user not found")
)
