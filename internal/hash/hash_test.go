package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringHash(t *testing.T) {
	h1 := StringHash("https://redmine.example.com\x00key-a")
	h2 := StringHash("https://redmine.example.com\x00key-b")

	assert.Len(t, h1, 64, "digest should be full hex SHA-256")
	assert.NotEqual(t, h1, h2, "different keys must fingerprint differently")

	// Same input should produce same digest
	assert.Equal(t, h1, StringHash("https://redmine.example.com\x00key-a"))
}

func TestStringHashEmptyInput(t *testing.T) {
	// SHA-256 of the empty string is a fixed vector.
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		StringHash(""))
}
