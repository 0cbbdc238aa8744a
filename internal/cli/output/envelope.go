package output

import "fmt"

// Envelope is the stable wrapper around every machine-readable result.
// Success sets OK and Data (plus Meta for windowed listings); failure
// sets OK false and Error.
type Envelope struct {
	OK    bool             `json:"ok" yaml:"ok"`
	Data  interface{}      `json:"data,omitempty" yaml:"data,omitempty"`
	Meta  *Meta            `json:"meta,omitempty" yaml:"meta,omitempty"`
	Error *StructuredError `json:"error,omitempty" yaml:"error,omitempty"`
}

// Meta describes the window a listing came from and where the next
// window starts. NextOffset is absent once the listing is exhausted.
type Meta struct {
	TotalCount int  `json:"total_count" yaml:"total_count"`
	Count      int  `json:"count" yaml:"count"`
	Offset     int  `json:"offset" yaml:"offset"`
	Limit      int  `json:"limit" yaml:"limit"`
	NextOffset *int `json:"next_offset,omitempty" yaml:"next_offset,omitempty"`
}

// NewMeta builds pagination metadata for a window that returned count
// records out of total, starting at offset with the given limit.
func NewMeta(total, count, offset, limit int) *Meta {
	m := &Meta{TotalCount: total, Count: count, Offset: offset, Limit: limit}
	if next := offset + count; count > 0 && next < total {
		m.NextOffset = &next
	}
	return m
}

// Footer renders the human pagination line shown under tables, e.g.
// "Showing 1-25 of 120 (next: --offset 25)". Empty when the window
// held no records.
func (m *Meta) Footer() string {
	if m == nil || m.Count == 0 {
		return ""
	}
	line := fmt.Sprintf("Showing %d-%d of %d", m.Offset+1, m.Offset+m.Count, m.TotalCount)
	if m.NextOffset != nil {
		line += fmt.Sprintf(" (next: --offset %d)", *m.NextOffset)
	}
	return line + "\n"
}

// Page wraps a successful listing result with its pagination metadata.
func Page(data interface{}, meta *Meta) Envelope {
	return Envelope{OK: true, Data: data, Meta: meta}
}

// Success wraps a successful single result.
func Success(data interface{}) Envelope {
	return Envelope{OK: true, Data: data}
}

// Failure wraps a structured error for machine-readable output.
func Failure(err StructuredError) Envelope {
	return Envelope{OK: false, Error: &err}
}

// envelopeFor normalizes formatter input: data that is already an
// Envelope passes through, anything else becomes a success envelope.
func envelopeFor(data interface{}) Envelope {
	switch v := data.(type) {
	case Envelope:
		return v
	case *Envelope:
		return *v
	default:
		return Success(data)
	}
}
