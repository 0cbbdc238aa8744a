package output

import (
	"errors"

	"github.com/redmine-cli/rdm/internal/apperrors"
)

// StructuredError is the machine-parseable error shape used in JSON
// and YAML output.
type StructuredError struct {
	// Code is a machine-readable error identifier (e.g. "AUTH_ERROR").
	Code string `json:"code" yaml:"code"`

	// Message is a human-readable error description.
	Message string `json:"message" yaml:"message"`

	// Guidance explains how to recover.
	Guidance string `json:"guidance,omitempty" yaml:"guidance,omitempty"`

	// RecoveryCommand suggests a command to fix the issue.
	RecoveryCommand string `json:"recovery_command,omitempty" yaml:"recovery_command,omitempty"`

	// Context contains additional structured data about the error.
	Context map[string]interface{} `json:"context,omitempty" yaml:"context,omitempty"`

	// RequestID correlates the failure with server-side logs.
	RequestID string `json:"request_id,omitempty" yaml:"request_id,omitempty"`
}

// Error implements the error interface for StructuredError.
func (e StructuredError) Error() string {
	return e.Message
}

// NewStructuredError creates a new StructuredError with the given code and message.
func NewStructuredError(code, message string) StructuredError {
	return StructuredError{
		Code:    code,
		Message: message,
	}
}

// WithGuidance adds guidance to the error.
func (e StructuredError) WithGuidance(guidance string) StructuredError {
	e.Guidance = guidance
	return e
}

// WithRecoveryCommand adds a recovery command suggestion.
func (e StructuredError) WithRecoveryCommand(cmd string) StructuredError {
	e.RecoveryCommand = cmd
	return e
}

// WithContext adds context data to the error.
func (e StructuredError) WithContext(key string, value interface{}) StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRequestID adds a request ID for log correlation.
func (e StructuredError) WithRequestID(requestID string) StructuredError {
	e.RequestID = requestID
	return e
}

// FromError converts any error into a StructuredError. Classified
// errors carry their kind's code, their hint as guidance, and the rest
// of their details as context; everything else becomes UNKNOWN_ERROR.
func FromError(err error) StructuredError {
	if se, ok := err.(StructuredError); ok { //nolint:errorlint // exact match intended
		return se
	}

	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		return StructuredError{Code: apperrors.Unknown.Code(), Message: err.Error()}
	}

	// err.Error() keeps any wrapping context added above the classified
	// error; the classification itself supplies code and details.
	se := StructuredError{
		Code:     appErr.Kind.Code(),
		Message:  err.Error(),
		Guidance: appErr.Hint(),
	}
	for _, key := range appErr.DetailKeys() {
		switch key {
		case "hint":
			// already surfaced as guidance
		case "request_id":
			if id, ok := appErr.Details[key].(string); ok {
				se.RequestID = id
			}
		default:
			se = se.WithContext(key, appErr.Details[key])
		}
	}
	return se
}
