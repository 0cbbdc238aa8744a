package prompt

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func consoleWithInput(input string) *ConsolePrompter {
	return &ConsolePrompter{reader: bufio.NewReader(strings.NewReader(input))}
}

func TestConsolePrompterConfirm(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"lowercase y", "y\n", true},
		{"lowercase yes", "yes\n", true},
		{"uppercase Y", "Y\n", true},
		{"uppercase YES", "YES\n", true},
		{"padded yes", "  yes  \n", true},
		{"n", "n\n", false},
		{"no", "no\n", false},
		{"empty line defaults to no", "\n", false},
		{"garbage", "sure\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := consoleWithInput(tt.input)
			confirmed, err := p.PromptConfirm("Delete time entry #5?")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, confirmed)
		})
	}
}

func TestConsolePrompterConfirmReadError(t *testing.T) {
	// No newline at all, so the read hits EOF.
	p := consoleWithInput("")
	confirmed, err := p.PromptConfirm("Delete profile?")
	assert.Error(t, err)
	assert.False(t, confirmed)
}

func TestMockPrompterSecret(t *testing.T) {
	m := NewMockPrompter()
	m.SetSecret("API key: ", "abc123")

	secret, err := m.PromptSecret("API key: ")
	require.NoError(t, err)
	assert.Equal(t, "abc123", secret)

	_, err = m.PromptSecret("other prompt")
	assert.Error(t, err)
}

func TestMockPrompterConfirm(t *testing.T) {
	m := NewMockPrompter()
	m.SetConfirm("Delete?", true)

	confirmed, err := m.PromptConfirm("Delete?")
	require.NoError(t, err)
	assert.True(t, confirmed)

	// Unscripted confirmations default to no.
	confirmed, err = m.PromptConfirm("Proceed?")
	require.NoError(t, err)
	assert.False(t, confirmed)
}

func TestMockPrompterImplementsInterface(t *testing.T) {
	var _ UserPrompter = NewMockPrompter()
	var _ UserPrompter = NewConsolePrompter()
}
