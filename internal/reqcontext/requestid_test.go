package reqcontext

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRequestID(t *testing.T) {
	id1 := GenerateRequestID()
	id2 := GenerateRequestID()

	_, err := uuid.Parse(id1)
	require.NoError(t, err, "request ID should be a valid UUID")
	assert.NotEqual(t, id1, id2, "request IDs should be unique")
}

func TestNewInvocationID(t *testing.T) {
	id := NewInvocationID()

	_, err := uuid.Parse(id)
	require.NoError(t, err, "invocation ID should be a valid UUID")
}
