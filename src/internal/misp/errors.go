// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package misp

import (
	"errors"
	"fmt"
)

// Kind classifies a failed MISP operation. The set is closed: callers can
// branch on the kind with [KindOf] or [IsKind] instead of matching message
// strings.
type Kind uint8

const (
	// KindUnknown covers anything the other kinds do not.
	KindUnknown Kind = iota

	// KindConfiguration marks invalid or missing configuration. These only
	// occur at startup and abort the process.
	KindConfiguration

	// KindAuthentication marks a rejected API key (HTTP 401/403).
	KindAuthentication

	// KindValidation marks malformed input caught before or rejected by the
	// remote call (out-of-range enums, empty identifiers, HTTP 400).
	KindValidation

	// KindNotFound marks an unknown event or attribute identifier (HTTP 404).
	KindNotFound

	// KindTransport marks a network, TLS, or timeout failure reaching MISP.
	KindTransport
)

// String returns the human-readable label used in tool error results.
func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindAuthentication:
		return "authentication error"
	case KindValidation:
		return "validation error"
	case KindNotFound:
		return "not found"
	case KindTransport:
		return "transport error"
	default:
		return "unknown error"
	}
}

// Error is the single error type returned by this package. Op names the
// failed operation, Detail carries text safe to surface to an agent, and Err
// holds the underlying cause when there is one.
type Error struct {
	Kind   Kind
	Op     string
	Detail string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *Error) Unwrap() error { return e.Err }

// newError builds an *Error. Used by the client and validators so every
// failure leaving this package carries a kind.
func newError(kind Kind, op, detail string, err error) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail, Err: err}
}

// validationErrorf builds a KindValidation error from a format string.
func validationErrorf(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Detail: fmt.Sprintf(format, args...)}
}

// KindOf reports the kind of err. Errors produced outside this package, and
// nil, report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

// Detail returns the agent-safe detail text of err, falling back to the full
// error string for errors produced outside this package.
func Detail(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Detail != "" {
		return e.Detail
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
