// Package prompt reads interactive input for commands that need a
// secret or a confirmation before proceeding.
package prompt

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// UserPrompter asks the user for input. Commands depend on this
// interface so tests can script the answers.
type UserPrompter interface {
	// PromptSecret prompts for sensitive input without echoing it
	PromptSecret(message string) (string, error)
	// PromptConfirm prompts for yes/no confirmation, defaulting to no
	PromptConfirm(message string) (bool, error)
}

// ConsolePrompter implements UserPrompter on standard input
type ConsolePrompter struct {
	reader *bufio.Reader
}

// NewConsolePrompter creates a prompter bound to os.Stdin
func NewConsolePrompter() *ConsolePrompter {
	return &ConsolePrompter{
		reader: bufio.NewReader(os.Stdin),
	}
}

// PromptSecret prompts for sensitive input. On a terminal the input is
// hidden; piped input is read as a plain line.
func (p *ConsolePrompter) PromptSecret(message string) (string, error) {
	fmt.Print(message)

	if !term.IsTerminal(int(syscall.Stdin)) {
		// Not a terminal, read normally
		input, err := p.reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(input), nil
	}

	secret, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after hidden input
	return string(secret), nil
}

// PromptConfirm prompts for yes/no confirmation. Anything other than
// y or yes counts as no.
func (p *ConsolePrompter) PromptConfirm(message string) (bool, error) {
	fmt.Printf("%s [y/N]: ", message)
	input, err := p.reader.ReadString('\n')
	if err != nil {
		return false, err
	}

	input = strings.ToLower(strings.TrimSpace(input))
	return input == "y" || input == "yes", nil
}

// MockPrompter implements UserPrompter for testing
type MockPrompter struct {
	secrets  map[string]string
	confirms map[string]bool
}

// NewMockPrompter creates a new mock prompter for testing
func NewMockPrompter() *MockPrompter {
	return &MockPrompter{
		secrets:  make(map[string]string),
		confirms: make(map[string]bool),
	}
}

// SetSecret scripts the answer to a PromptSecret call
func (m *MockPrompter) SetSecret(message, secret string) {
	m.secrets[message] = secret
}

// SetConfirm scripts the answer to a PromptConfirm call
func (m *MockPrompter) SetConfirm(message string, confirm bool) {
	m.confirms[message] = confirm
}

// PromptSecret returns the scripted secret
func (m *MockPrompter) PromptSecret(message string) (string, error) {
	if secret, exists := m.secrets[message]; exists {
		return secret, nil
	}
	return "", fmt.Errorf("no secret scripted for prompt: %s", message)
}

// PromptConfirm returns the scripted confirmation
func (m *MockPrompter) PromptConfirm(message string) (bool, error) {
	if confirm, exists := m.confirms[message]; exists {
		return confirm, nil
	}
	return false, nil
}
