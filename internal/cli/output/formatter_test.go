package output

import (
	"testing"
)

func TestResolveFormat_Flags(t *testing.T) {
	tests := []struct {
		name       string
		outputFlag string
		jsonFlag   bool
		want       string
	}{
		{
			name:       "json flag selects json",
			outputFlag: "",
			jsonFlag:   true,
			want:       "json",
		},
		{
			name:       "output flag works alone",
			outputFlag: "yaml",
			jsonFlag:   false,
			want:       "yaml",
		},
		{
			name:       "default is table",
			outputFlag: "",
			jsonFlag:   false,
			want:       "table",
		},
		{
			name:       "explicit output flag beats json alias", // mutual exclusivity is handled by Cobra
			outputFlag: "table",
			jsonFlag:   true,
			want:       "table",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvFormat, "")

			got := ResolveFormat(tt.outputFlag, tt.jsonFlag)
			if got != tt.want {
				t.Errorf("ResolveFormat(%q, %v) = %q, want %q", tt.outputFlag, tt.jsonFlag, got, tt.want)
			}
		})
	}
}

func TestResolveFormat_EnvVar(t *testing.T) {
	tests := []struct {
		name       string
		envValue   string
		outputFlag string
		jsonFlag   bool
		want       string
	}{
		{
			name:       "env var used when no flags",
			envValue:   "json",
			outputFlag: "",
			jsonFlag:   false,
			want:       "json",
		},
		{
			name:       "env var yaml",
			envValue:   "yaml",
			outputFlag: "",
			jsonFlag:   false,
			want:       "yaml",
		},
		{
			name:       "output flag overrides env var",
			envValue:   "json",
			outputFlag: "table",
			jsonFlag:   false,
			want:       "table",
		},
		{
			name:       "json flag overrides env var",
			envValue:   "yaml",
			outputFlag: "",
			jsonFlag:   true,
			want:       "json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvFormat, tt.envValue)

			got := ResolveFormat(tt.outputFlag, tt.jsonFlag)
			if got != tt.want {
				t.Errorf("ResolveFormat(%q, %v) with %s=%q = %q, want %q",
					tt.outputFlag, tt.jsonFlag, EnvFormat, tt.envValue, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantErr bool
	}{
		{"json format", "json", false},
		{"JSON uppercase", "JSON", false},
		{"yaml format", "yaml", false},
		{"table format", "table", false},
		{"empty default", "", false},
		{"invalid format", "invalid", true},
		{"csv not supported", "csv", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFormatter(tt.format)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewFormatter(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
				return
			}
			if !tt.wantErr && f == nil {
				t.Errorf("NewFormatter(%q) returned nil formatter", tt.format)
			}
		})
	}
}

func TestNewFormatter_Types(t *testing.T) {
	tests := []struct {
		format string
		check  func(OutputFormatter) bool
	}{
		{"json", func(f OutputFormatter) bool { _, ok := f.(*JSONFormatter); return ok }},
		{"yaml", func(f OutputFormatter) bool { _, ok := f.(*YAMLFormatter); return ok }},
		{"table", func(f OutputFormatter) bool { _, ok := f.(*TableFormatter); return ok }},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			f, err := NewFormatter(tt.format)
			if err != nil {
				t.Fatalf("NewFormatter(%q) error = %v", tt.format, err)
			}
			if !tt.check(f) {
				t.Errorf("NewFormatter(%q) returned %T", tt.format, f)
			}
		})
	}
}

func TestNewFormatter_RespectsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	f, err := NewFormatter("table")
	if err != nil {
		t.Fatalf("NewFormatter(table) error = %v", err)
	}

	tf, ok := f.(*TableFormatter)
	if !ok {
		t.Fatalf("NewFormatter(table) returned %T, want *TableFormatter", f)
	}
	if !tf.NoColor {
		t.Error("Expected NoColor to be true when NO_COLOR=1")
	}
}
