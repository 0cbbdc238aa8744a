package main

import (
	"testing"

	"github.com/redmine-cli/rdm/internal/apperrors"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name     string
		arg      string
		expected int
		wantErr  bool
	}{
		{
			name:     "valid id",
			arg:      "42",
			expected: 42,
		},
		{
			name:     "padded id",
			arg:      "  7 ",
			expected: 7,
		},
		{
			name:    "zero",
			arg:     "0",
			wantErr: true,
		},
		{
			name:    "negative",
			arg:     "-3",
			wantErr: true,
		},
		{
			name:    "not a number",
			arg:     "abc",
			wantErr: true,
		},
		{
			name:    "float",
			arg:     "1.5",
			wantErr: true,
		},
		{
			name:    "empty",
			arg:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := parseID(tt.arg, "issue")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseID(%q) expected error, got %d", tt.arg, id)
				}
				if !apperrors.IsKind(err, apperrors.Validation) {
					t.Errorf("parseID(%q) error kind = %v, want Validation", tt.arg, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseID(%q) unexpected error: %v", tt.arg, err)
			}
			if id != tt.expected {
				t.Errorf("parseID(%q) = %d, want %d", tt.arg, id, tt.expected)
			}
		})
	}
}

func TestFormatHours(t *testing.T) {
	tests := []struct {
		name     string
		hours    float64
		expected string
	}{
		{"whole", 8, "8"},
		{"half", 1.5, "1.5"},
		{"quarter", 0.25, "0.25"},
		{"zero", 0, "0"},
		{"no trailing zeros", 2.50, "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatHours(tt.hours)
			if result != tt.expected {
				t.Errorf("formatHours(%v) = %q, want %q", tt.hours, result, tt.expected)
			}
		})
	}
}

func TestValidateDateFlag(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"empty is allowed", "", false},
		{"valid date", "2026-08-25", false},
		{"leap day", "2024-02-29", false},
		{"wrong order", "25-08-2026", true},
		{"slashes", "2026/08/25", true},
		{"month out of range", "2026-13-01", true},
		{"not a date", "today", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDateFlag("from", tt.value)
			if tt.wantErr && err == nil {
				t.Errorf("validateDateFlag(%q) expected error, got nil", tt.value)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("validateDateFlag(%q) unexpected error: %v", tt.value, err)
			}
		})
	}
}

func TestFieldListSkipsEmptyValues(t *testing.T) {
	var f fieldList
	f.add("ID", "42")
	f.add("Description", "")
	f.addf("Done", "%d%%", 75)

	got := f.String()
	expected := "ID:            42\nDone:          75%\n"
	if got != expected {
		t.Errorf("fieldList.String() = %q, want %q", got, expected)
	}
}

func TestRecoveryFor(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected string
	}{
		{"auth config points at config show", apperrors.AuthConfig.Code(), "rdm config show"},
		{"network points at ping", apperrors.Network.Code(), "rdm ping"},
		{"validation has no recovery", apperrors.Validation.Code(), ""},
		{"unknown code", "bogus", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := recoveryFor(tt.code)
			if result != tt.expected {
				t.Errorf("recoveryFor(%q) = %q, want %q", tt.code, result, tt.expected)
			}
		})
	}
}
