package output

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"
)

// TableFormatter formats output as a human-readable table.
type TableFormatter struct {
	NoColor   bool // Strictly plain output, no decoration
	Unicode   bool // Use Unicode box-drawing characters
	Condensed bool // Simplified output for non-TTY
}

// Format renders a single result in human-readable form. Tabular data
// should go through FormatTable; this handles plain strings and the
// odd scalar payload.
func (f *TableFormatter) Format(data interface{}) (string, error) {
	env := envelopeFor(data)
	if env.Error != nil {
		return f.FormatError(*env.Error)
	}
	switch v := env.Data.(type) {
	case nil:
		return "", nil
	case string:
		if v == "" || strings.HasSuffix(v, "\n") {
			return v, nil
		}
		return v + "\n", nil
	default:
		return fmt.Sprintf("%v\n", v), nil
	}
}

// FormatError renders an error in human-readable form.
func (f *TableFormatter) FormatError(err StructuredError) (string, error) {
	var buf bytes.Buffer

	if f.Condensed || !f.isTTY() {
		fmt.Fprintf(&buf, "Error: %s\n", err.Message)
		if err.Guidance != "" {
			fmt.Fprintf(&buf, "  Hint: %s\n", err.Guidance)
		}
		if err.RecoveryCommand != "" {
			fmt.Fprintf(&buf, "  Try: %s\n", err.RecoveryCommand)
		}
		if err.RequestID != "" {
			fmt.Fprintf(&buf, "  Request ID: %s\n", err.RequestID)
		}
		return buf.String(), nil
	}

	fmt.Fprintf(&buf, "Error [%s]: %s\n", err.Code, err.Message)
	if err.Guidance != "" {
		fmt.Fprintf(&buf, "\nHint: %s\n", err.Guidance)
	}
	if err.RecoveryCommand != "" {
		fmt.Fprintf(&buf, "Try: %s\n", err.RecoveryCommand)
	}
	if err.RequestID != "" {
		fmt.Fprintf(&buf, "\nRequest ID: %s\n", err.RequestID)
	}
	return buf.String(), nil
}

// FormatTable renders tabular data with headers and alignment.
func (f *TableFormatter) FormatTable(headers []string, rows [][]string) (string, error) {
	if len(rows) == 0 {
		return "No results found\n", nil
	}

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(headers, "\t"))

	// Header underline only when a person is looking at it.
	if f.decorated() {
		dash := "-"
		if f.Unicode {
			dash = "─"
		}
		underlines := make([]string, len(headers))
		for i, h := range headers {
			underlines[i] = strings.Repeat(dash, len(h))
		}
		fmt.Fprintln(w, strings.Join(underlines, "\t"))
	}

	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	if err := w.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// decorated reports whether decorative output is allowed: stdout must
// be a terminal and neither plain mode nor condensed mode requested.
func (f *TableFormatter) decorated() bool {
	return !f.Condensed && !f.NoColor && f.isTTY()
}

// isTTY checks if stdout is a terminal.
func (f *TableFormatter) isTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
