// Package reqcontext generates the correlation identifiers attached to
// outgoing requests and log lines.
package reqcontext

import (
	"github.com/google/uuid"
)

// RequestIDHeader is the HTTP header carrying the per-request ID.
const RequestIDHeader = "X-Request-Id"

// GenerateRequestID generates a new UUID v4 request ID.
func GenerateRequestID() string {
	return uuid.New().String()
}

// NewInvocationID generates the ID that tags every log line of one
// command invocation.
func NewInvocationID() string {
	return uuid.New().String()
}
