// Package output renders command results for humans and for scripts.
// Tables go to people; JSON and YAML carry the {ok, data, meta, error}
// envelope so scripts can parse success and failure the same way.
package output

import (
	"fmt"
	"os"
	"strings"
)

// EnvFormat is the environment variable that overrides the default
// output format when no flag is given.
const EnvFormat = "RDM_OUTPUT"

// OutputFormatter formats structured data for CLI output.
// Implementations are stateless and thread-safe.
type OutputFormatter interface {
	// Format converts data to formatted string output.
	// data should be a struct, slice, map, or an Envelope.
	Format(data interface{}) (string, error)

	// FormatError converts a structured error to formatted output.
	FormatError(err StructuredError) (string, error)

	// FormatTable formats tabular data with headers.
	// headers defines column names, rows contains data.
	FormatTable(headers []string, rows [][]string) (string, error)
}

// NewFormatter creates a formatter for the specified format.
// Supported formats: table, json, yaml (case-insensitive).
func NewFormatter(format string) (OutputFormatter, error) {
	switch strings.ToLower(format) {
	case "json":
		return &JSONFormatter{Indent: true}, nil
	case "yaml":
		return &YAMLFormatter{}, nil
	case "table", "":
		return &TableFormatter{
			NoColor: os.Getenv("NO_COLOR") == "1",
			Unicode: true,
		}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %s (valid: table, json, yaml)", format)
	}
}

// ResolveFormat determines the output format from flags and environment.
// Priority: --output flag > --json alias > RDM_OUTPUT env var > default (table)
func ResolveFormat(outputFlag string, jsonFlag bool) string {
	if outputFlag != "" {
		return outputFlag
	}
	if jsonFlag {
		return "json"
	}
	if envFormat := os.Getenv(EnvFormat); envFormat != "" {
		return envFormat
	}
	return "table"
}
