// Package apperrors defines the classified error values shared across rdm.
// Commands map kinds to exit codes and output codes; packages below the
// command layer only construct and propagate these values.
package apperrors

import (
	"errors"
	"fmt"
	"sort"
)

// Kind classifies an Error. The zero value is Unknown so that a
// freshly-declared Kind never masquerades as a real classification.
type Kind int

const (
	// Unknown is the zero Kind; it should not be constructed explicitly.
	Unknown Kind = iota

	// Validation covers bad or missing arguments, unresolved names, and
	// conflicting mutually-exclusive filters.
	Validation

	// AuthConfig covers missing credentials or profiles, and credentials
	// the remote rejected.
	AuthConfig

	// NotFound means the remote reported the resource absent.
	NotFound

	// Network means a connection-level failure, or an idempotent call
	// whose retries were exhausted.
	Network

	// API covers remote 4xx/5xx responses not otherwise classified.
	API

	// ResourceExhausted means an exhaustive fetch exceeded its record
	// ceiling before draining every page.
	ResourceExhausted
)

// String returns the human-readable kind name.
func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case AuthConfig:
		return "auth/config"
	case NotFound:
		return "not found"
	case Network:
		return "network"
	case API:
		return "api"
	case ResourceExhausted:
		return "resource exhausted"
	default:
		return "unknown"
	}
}

// Code returns the machine-readable code used in JSON error output.
func (k Kind) Code() string {
	switch k {
	case Validation:
		return "VALIDATION_ERROR"
	case AuthConfig:
		return "AUTH_ERROR"
	case NotFound:
		return "NOT_FOUND"
	case Network:
		return "NETWORK_ERROR"
	case API:
		return "API_ERROR"
	case ResourceExhausted:
		return "RESOURCE_EXHAUSTED"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Error is a classified failure. Message is fixed at construction;
// Details carries optional structured context such as a hint, the HTTP
// status, the attempt count, or the set of valid names.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any

	cause error
}

// New constructs an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error that records cause for errors.Is/As chains.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetail attaches one structured detail and returns the error for
// chaining during construction.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithHint attaches a human-readable recovery hint.
func (e *Error) WithHint(hint string) *Error {
	return e.WithDetail("hint", hint)
}

// Hint returns the attached hint, or "" when none was set.
func (e *Error) Hint() string {
	if e.Details == nil {
		return ""
	}
	if h, ok := e.Details["hint"].(string); ok {
		return h
	}
	return ""
}

// DetailKeys returns the detail keys in sorted order, for stable output.
func (e *Error) DetailKeys() []string {
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// KindOf returns the Kind of err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return Unknown, false
}

// IsKind reports whether err is (or wraps) an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// ExitCode maps err to the process exit code used by the CLI. Success is
// the caller's concern; this only classifies failures.
func ExitCode(err error) int {
	k, ok := KindOf(err)
	if !ok {
		return 1
	}
	switch k {
	case Validation:
		return 2
	case AuthConfig:
		return 3
	case NotFound:
		return 4
	case Network, API, ResourceExhausted:
		return 5
	default:
		return 1
	}
}
