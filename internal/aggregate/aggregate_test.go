package aggregate

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/redmine-cli/rdm/internal/apperrors"
	"github.com/redmine-cli/rdm/internal/redmine"
)

func entryFor(user string, hours float64) redmine.TimeEntry {
	return redmine.TimeEntry{
		Hours:    hours,
		SpentOn:  "2026-08-01",
		Activity: redmine.NamedRef{ID: 9, Name: "Development"},
		User:     &redmine.NamedRef{ID: 1, Name: user},
	}
}

func TestParseGroupKey(t *testing.T) {
	tests := []struct {
		spelling string
		want     GroupKey
		wantErr  bool
	}{
		{"user", GroupKey{Field: FieldUser}, false},
		{"project", GroupKey{Field: FieldProject}, false},
		{"activity", GroupKey{Field: FieldActivity}, false},
		{"issue", GroupKey{Field: FieldIssue}, false},
		{"date", GroupKey{Field: FieldSpentOn}, false},
		{"spent_on", GroupKey{Field: FieldSpentOn}, false},
		{"cf_14", GroupKey{Field: FieldCustom, CustomFieldID: 14}, false},
		{"custom:14", GroupKey{Field: FieldCustom, CustomFieldID: 14}, false},
		{"cf_abc", GroupKey{}, true},
		{"cf_0", GroupKey{}, true},
		{"hours", GroupKey{}, true},
		{"", GroupKey{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.spelling, func(t *testing.T) {
			got, err := ParseGroupKey(tt.spelling)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsKind(err, apperrors.Validation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildGroupsInFirstSeenOrder(t *testing.T) {
	entries := []redmine.TimeEntry{
		entryFor("bob", 1),
		entryFor("ann", 2),
		entryFor("bob", 3),
	}

	report := Build(entries, GroupKey{Field: FieldUser})

	require.Len(t, report.Groups, 2)
	assert.Equal(t, "bob", report.Groups[0].Key, "bob appeared first in the stream")
	assert.Equal(t, "ann", report.Groups[1].Key)

	assert.True(t, report.Groups[0].Hours.Equal(decimal.NewFromInt(4)), "got %s", report.Groups[0].Hours)
	assert.True(t, report.Groups[1].Hours.Equal(decimal.NewFromInt(2)))
	assert.True(t, report.TotalHours.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, 3, report.Records)

	// Members keep fetch order.
	assert.Equal(t, 1.0, report.Groups[0].Entries[0].Hours)
	assert.Equal(t, 3.0, report.Groups[0].Entries[1].Hours)
}

func TestBuildEmptyInput(t *testing.T) {
	report := Build(nil, GroupKey{Field: FieldUser})

	assert.Empty(t, report.Groups)
	assert.True(t, report.TotalHours.IsZero())
	assert.Zero(t, report.Records)
}

func TestBuildDecimalExactness(t *testing.T) {
	// Ten times 0.1h must sum to exactly 1h; float accumulation
	// would drift.
	var entries []redmine.TimeEntry
	for i := 0; i < 10; i++ {
		entries = append(entries, entryFor("ann", 0.1))
	}

	report := Build(entries, GroupKey{Field: FieldUser})

	require.Len(t, report.Groups, 1)
	assert.True(t, report.TotalHours.Equal(decimal.NewFromInt(1)), "got %s", report.TotalHours)
	assert.True(t, report.Groups[0].Hours.Equal(decimal.NewFromInt(1)))
}

func TestBuildFallbackKeys(t *testing.T) {
	noUser := redmine.TimeEntry{Hours: 1, SpentOn: "2026-08-01"}
	noIssue := entryFor("ann", 2)
	withIssue := entryFor("ann", 3)
	withIssue.Issue = &redmine.IssueRef{ID: 42}

	t.Run("user fallback", func(t *testing.T) {
		report := Build([]redmine.TimeEntry{noUser}, GroupKey{Field: FieldUser})
		require.Len(t, report.Groups, 1)
		assert.Equal(t, "Unknown", report.Groups[0].Key)
	})

	t.Run("project fallback", func(t *testing.T) {
		report := Build([]redmine.TimeEntry{noUser}, GroupKey{Field: FieldProject})
		require.Len(t, report.Groups, 1)
		assert.Equal(t, "Unknown", report.Groups[0].Key)
	})

	t.Run("issue keys", func(t *testing.T) {
		report := Build([]redmine.TimeEntry{withIssue, noIssue}, GroupKey{Field: FieldIssue})
		require.Len(t, report.Groups, 2)
		assert.Equal(t, "#42", report.Groups[0].Key)
		assert.Equal(t, "No Issue", report.Groups[1].Key)
	})
}

func TestBuildCustomFieldKeys(t *testing.T) {
	withField := entryFor("ann", 1)
	withField.CustomFields = []redmine.CustomFieldValue{{ID: 14, Name: "Billing", Value: "billable"}}

	nullField := entryFor("bob", 2)
	nullField.CustomFields = []redmine.CustomFieldValue{{ID: 14, Name: "Billing", Value: nil}}

	missingField := entryFor("eve", 3)

	report := Build([]redmine.TimeEntry{withField, nullField, missingField},
		GroupKey{Field: FieldCustom, CustomFieldID: 14})

	require.Len(t, report.Groups, 3)
	assert.Equal(t, "billable", report.Groups[0].Key)
	assert.Equal(t, "-", report.Groups[1].Key, "a present-but-null field renders as its display value")
	assert.Equal(t, "(none)", report.Groups[2].Key, "a record lacking the field gets the sentinel")
}

func TestBuildGroupsByDate(t *testing.T) {
	first := entryFor("ann", 1)
	first.SpentOn = "2026-08-02"
	second := entryFor("ann", 2)
	second.SpentOn = "2026-08-01"
	third := entryFor("ann", 3)
	third.SpentOn = "2026-08-02"

	report := Build([]redmine.TimeEntry{first, second, third}, GroupKey{Field: FieldSpentOn})

	require.Len(t, report.Groups, 2)
	assert.Equal(t, "2026-08-02", report.Groups[0].Key, "buckets keep first-seen order, not date order")
	assert.True(t, report.Groups[0].Hours.Equal(decimal.NewFromInt(4)))
}

func TestTotalHours(t *testing.T) {
	entries := []redmine.TimeEntry{entryFor("ann", 0.25), entryFor("bob", 0.5)}
	assert.True(t, TotalHours(entries).Equal(decimal.NewFromFloat(0.75)))
	assert.True(t, TotalHours(nil).IsZero())
}

func TestBuildProperties(t *testing.T) {
	users := []string{"ann", "bob", "carol", "dave"}

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 60).Draw(t, "records")

		entries := make([]redmine.TimeEntry, n)
		expectedTotal := decimal.Zero
		var expectedOrder []string
		seen := map[string]bool{}

		for i := range entries {
			user := rapid.SampledFrom(users).Draw(t, fmt.Sprintf("user-%d", i))
			// Quarter-hour increments, like real time tracking.
			hours := float64(rapid.IntRange(1, 32).Draw(t, fmt.Sprintf("hours-%d", i))) / 4.0

			entries[i] = entryFor(user, hours)
			expectedTotal = expectedTotal.Add(decimal.NewFromFloat(hours))
			if !seen[user] {
				seen[user] = true
				expectedOrder = append(expectedOrder, user)
			}
		}

		report := Build(entries, GroupKey{Field: FieldUser})

		// Every record lands in exactly one bucket.
		members := 0
		subtotalSum := decimal.Zero
		var gotOrder []string
		for _, group := range report.Groups {
			members += len(group.Entries)
			subtotalSum = subtotalSum.Add(group.Hours)
			gotOrder = append(gotOrder, group.Key)
		}

		if members != n {
			t.Fatalf("expected %d members across groups, got %d", n, members)
		}
		if !report.TotalHours.Equal(expectedTotal) {
			t.Fatalf("grand total %s does not match raw-stream sum %s", report.TotalHours, expectedTotal)
		}
		if !subtotalSum.Equal(report.TotalHours) {
			t.Fatalf("subtotals sum to %s, grand total is %s", subtotalSum, report.TotalHours)
		}
		if fmt.Sprint(gotOrder) != fmt.Sprint(expectedOrder) {
			t.Fatalf("bucket order %v does not match first-seen order %v", gotOrder, expectedOrder)
		}
	})
}
