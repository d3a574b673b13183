// Package liberr defines the error kinds shared by all library domain
// operations. Services wrap these sentinels with a human-readable reason,
// so callers can branch with errors.Is while logs stay descriptive.
package liberr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPolicyViolation is returned when an operation is rejected by a
	// business rule (borrowing limit, extension cap, category restrictions).
	ErrPolicyViolation = errors.New("policy violation")

	// ErrConflict is returned when an operation loses a race or collides
	// with existing state (duplicate ISBN, concurrent borrow of one book).
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized is returned when an ownership check fails.
	ErrUnauthorized = errors.New("unauthorized")
)

// NotFound wraps ErrNotFound with a formatted reason.
func NotFound(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// PolicyViolation wraps ErrPolicyViolation with a formatted reason.
func PolicyViolation(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrPolicyViolation)...)
}

// Conflict wraps ErrConflict with a formatted reason.
func Conflict(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConflict)...)
}

// Unauthorized wraps ErrUnauthorized with a formatted reason.
func Unauthorized(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrUnauthorized)...)
}
