package output

import (
	"testing"
)

func TestNewMeta_NextOffset(t *testing.T) {
	tests := []struct {
		name     string
		total    int
		count    int
		offset   int
		limit    int
		wantNext int
		wantNil  bool
	}{
		{"first of many windows", 120, 25, 0, 25, 25, false},
		{"middle window", 120, 25, 50, 25, 75, false},
		{"last full window", 100, 25, 75, 25, 0, true},
		{"single short window", 7, 7, 0, 25, 0, true},
		{"empty result", 0, 0, 0, 25, 0, true},
		{"server clamped the window", 120, 10, 0, 25, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMeta(tt.total, tt.count, tt.offset, tt.limit)
			if tt.wantNil {
				if m.NextOffset != nil {
					t.Errorf("Expected no next offset, got %d", *m.NextOffset)
				}
				return
			}
			if m.NextOffset == nil {
				t.Fatal("Expected a next offset")
			}
			if *m.NextOffset != tt.wantNext {
				t.Errorf("NextOffset = %d, want %d", *m.NextOffset, tt.wantNext)
			}
		})
	}
}

func TestMetaFooter(t *testing.T) {
	tests := []struct {
		name string
		meta *Meta
		want string
	}{
		{
			name: "more pages remain",
			meta: NewMeta(120, 25, 0, 25),
			want: "Showing 1-25 of 120 (next: --offset 25)\n",
		},
		{
			name: "mid-listing window",
			meta: NewMeta(120, 25, 50, 25),
			want: "Showing 51-75 of 120 (next: --offset 75)\n",
		},
		{
			name: "final window",
			meta: NewMeta(30, 5, 25, 25),
			want: "Showing 26-30 of 30\n",
		},
		{
			name: "everything fit in one window",
			meta: NewMeta(7, 7, 0, 25),
			want: "Showing 1-7 of 7\n",
		},
		{
			name: "empty window",
			meta: NewMeta(0, 0, 0, 25),
			want: "",
		},
		{
			name: "nil meta",
			meta: nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.meta.Footer(); got != tt.want {
				t.Errorf("Footer() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnvelopeFor(t *testing.T) {
	env := Page("data", NewMeta(1, 1, 0, 25))
	if got := envelopeFor(env); got.Meta == nil {
		t.Error("Envelope value should pass through unchanged")
	}
	if got := envelopeFor(&env); got.Meta == nil {
		t.Error("Envelope pointer should pass through unchanged")
	}

	plain := envelopeFor("data")
	if !plain.OK || plain.Data != "data" || plain.Meta != nil {
		t.Errorf("Plain data should become a success envelope, got %+v", plain)
	}
}
