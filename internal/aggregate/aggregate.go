// Package aggregate groups exhaustively fetched time entries and
// computes decimal-safe hour totals for reports.
package aggregate

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/redmine-cli/rdm/internal/apperrors"
	"github.com/redmine-cli/rdm/internal/redmine"
)

// Field selects the record attribute a report is grouped by.
type Field int

const (
	FieldUser Field = iota
	FieldProject
	FieldActivity
	FieldIssue
	FieldSpentOn
	FieldCustom
)

// Sentinel keys for records missing the grouped attribute.
const (
	keyUnknown = "Unknown"
	keyNoIssue = "No Issue"
	keyNoValue = "(none)"
)

// GroupKey is a parsed group-by selector.
type GroupKey struct {
	Field         Field
	CustomFieldID int
}

// ParseGroupKey parses the CLI group-by spelling. Custom fields are
// addressed by numeric ID, written cf_<id> or custom:<id>.
func ParseGroupKey(spelling string) (GroupKey, error) {
	switch spelling {
	case "user":
		return GroupKey{Field: FieldUser}, nil
	case "project":
		return GroupKey{Field: FieldProject}, nil
	case "activity":
		return GroupKey{Field: FieldActivity}, nil
	case "issue":
		return GroupKey{Field: FieldIssue}, nil
	case "date", "spent_on":
		return GroupKey{Field: FieldSpentOn}, nil
	}

	for _, prefix := range []string{"cf_", "custom:"} {
		if strings.HasPrefix(spelling, prefix) {
			id, err := strconv.Atoi(strings.TrimPrefix(spelling, prefix))
			if err != nil || id <= 0 {
				return GroupKey{}, apperrors.New(apperrors.Validation,
					"invalid custom field in group-by %q: expected a numeric field ID", spelling)
			}
			return GroupKey{Field: FieldCustom, CustomFieldID: id}, nil
		}
	}

	return GroupKey{}, apperrors.New(apperrors.Validation,
		"invalid group-by %q (expected: user, project, activity, issue, date or cf_<id>)", spelling)
}

// String returns the canonical spelling of the key.
func (k GroupKey) String() string {
	switch k.Field {
	case FieldUser:
		return "user"
	case FieldProject:
		return "project"
	case FieldActivity:
		return "activity"
	case FieldIssue:
		return "issue"
	case FieldSpentOn:
		return "date"
	case FieldCustom:
		return fmt.Sprintf("cf_%d", k.CustomFieldID)
	}
	return "unknown"
}

// valueFor derives the bucket key for one record.
func (k GroupKey) valueFor(entry redmine.TimeEntry) string {
	switch k.Field {
	case FieldUser:
		if entry.User != nil && entry.User.Name != "" {
			return entry.User.Name
		}
		return keyUnknown
	case FieldProject:
		if entry.Project != nil && entry.Project.Name != "" {
			return entry.Project.Name
		}
		return keyUnknown
	case FieldActivity:
		return entry.Activity.Name
	case FieldIssue:
		if entry.Issue != nil {
			return fmt.Sprintf("#%d", entry.Issue.ID)
		}
		return keyNoIssue
	case FieldSpentOn:
		return entry.SpentOn
	case FieldCustom:
		field, ok := entry.CustomField(k.CustomFieldID)
		if !ok {
			return keyNoValue
		}
		return field.DisplayValue()
	}
	return keyUnknown
}

// Group is one report bucket. Entries keep fetch order.
type Group struct {
	Key     string              `json:"key"`
	Entries []redmine.TimeEntry `json:"entries"`
	Hours   decimal.Decimal     `json:"hours"`
}

// Report is the grouped view over one exhaustive fetch.
type Report struct {
	GroupedBy  string          `json:"grouped_by"`
	Groups     []Group         `json:"groups"`
	TotalHours decimal.Decimal `json:"total_hours"`
	Records    int             `json:"records"`
}

// Build groups the records. Buckets appear in first-seen order, members
// in fetch order. The grand total is accumulated from the raw record
// stream, independent of the per-group subtotals.
func Build(entries []redmine.TimeEntry, key GroupKey) Report {
	report := Report{
		GroupedBy:  key.String(),
		Records:    len(entries),
		TotalHours: decimal.Zero,
	}

	index := make(map[string]int)
	for _, entry := range entries {
		report.TotalHours = report.TotalHours.Add(decimal.NewFromFloat(entry.Hours))

		bucket := key.valueFor(entry)
		i, seen := index[bucket]
		if !seen {
			i = len(report.Groups)
			index[bucket] = i
			report.Groups = append(report.Groups, Group{Key: bucket, Hours: decimal.Zero})
		}

		group := &report.Groups[i]
		group.Entries = append(group.Entries, entry)
		group.Hours = group.Hours.Add(decimal.NewFromFloat(entry.Hours))
	}

	return report
}

// TotalHours sums hours over a record stream without grouping.
func TotalHours(entries []redmine.TimeEntry) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(decimal.NewFromFloat(entry.Hours))
	}
	return total
}
