package redmine

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/redmine-cli/rdm/internal/apperrors"
)

// Status keywords the API accepts verbatim on status_id.
const (
	StatusOpen   = "open"
	StatusClosed = "closed"
	StatusAny    = "*"
)

// CustomFieldFilter is one resolved cf_<id>=<value> list filter. Only
// numeric field IDs are accepted; names are ambiguous and rejected
// during resolution.
type CustomFieldFilter struct {
	ID    int
	Value string
}

// IssueFilters narrow an issue listing. Values arrive here already
// resolved: user tokens are numeric IDs, status is an API token or a
// numeric ID.
type IssueFilters struct {
	Project      string
	Status       string
	AssignedToID string
	AuthorID     string
	TrackerID    string
	Subject      string
	CustomFields []CustomFieldFilter
}

// Validate checks the filter values before any request is built.
func (f IssueFilters) Validate() error {
	if err := validateStatusToken(f.Status); err != nil {
		return err
	}
	if err := validateNumericToken("assigned-to", f.AssignedToID); err != nil {
		return err
	}
	if err := validateNumericToken("author", f.AuthorID); err != nil {
		return err
	}
	if err := validateNumericToken("tracker", f.TrackerID); err != nil {
		return err
	}
	return validateCustomFields(f.CustomFields)
}

// ToQueryParams converts the filters to URL query parameters. Paging
// parameters are added by the fetcher, not here.
func (f IssueFilters) ToQueryParams() url.Values {
	params := url.Values{}
	if f.Project != "" {
		params.Set("project_id", f.Project)
	}
	if f.Status != "" {
		params.Set("status_id", f.Status)
	}
	if f.AssignedToID != "" {
		params.Set("assigned_to_id", f.AssignedToID)
	}
	if f.AuthorID != "" {
		params.Set("author_id", f.AuthorID)
	}
	if f.TrackerID != "" {
		params.Set("tracker_id", f.TrackerID)
	}
	if f.Subject != "" {
		params.Set("subject", f.Subject)
	}
	addCustomFieldParams(params, f.CustomFields)
	return params
}

// TimeEntryFilters narrow a time entry listing.
type TimeEntryFilters struct {
	IssueID      int
	Project      string
	UserID       string
	From         string
	To           string
	CustomFields []CustomFieldFilter
}

// Validate checks the filter values before any request is built.
func (f TimeEntryFilters) Validate() error {
	if f.IssueID < 0 {
		return apperrors.New(apperrors.Validation, "issue ID must be positive, got %d", f.IssueID)
	}
	if err := validateNumericToken("user", f.UserID); err != nil {
		return err
	}
	if err := validateDate("from", f.From); err != nil {
		return err
	}
	if err := validateDate("to", f.To); err != nil {
		return err
	}
	if f.From != "" && f.To != "" && f.From > f.To {
		return apperrors.New(apperrors.Validation, "--from %s is after --to %s", f.From, f.To)
	}
	return validateCustomFields(f.CustomFields)
}

// ToQueryParams converts the filters to URL query parameters.
func (f TimeEntryFilters) ToQueryParams() url.Values {
	params := url.Values{}
	if f.IssueID > 0 {
		params.Set("issue_id", strconv.Itoa(f.IssueID))
	}
	if f.Project != "" {
		params.Set("project_id", f.Project)
	}
	if f.UserID != "" {
		params.Set("user_id", f.UserID)
	}
	if f.From != "" {
		params.Set("from", f.From)
	}
	if f.To != "" {
		params.Set("to", f.To)
	}
	addCustomFieldParams(params, f.CustomFields)
	return params
}

// UserFilters narrow the admin user listing.
type UserFilters struct {
	Status string
}

var userStatusValues = map[string]int{
	"active":     1,
	"registered": 2,
	"locked":     3,
}

// Validate checks the filter values before any request is built.
func (f UserFilters) Validate() error {
	if f.Status == "" {
		return nil
	}
	if _, ok := userStatusValues[f.Status]; !ok {
		return apperrors.New(apperrors.Validation,
			"invalid status %q (expected: active, registered, locked)", f.Status)
	}
	return nil
}

// ToQueryParams converts the filters to URL query parameters.
func (f UserFilters) ToQueryParams() url.Values {
	params := url.Values{}
	if code, ok := userStatusValues[f.Status]; ok {
		params.Set("status", strconv.Itoa(code))
	}
	return params
}

func validateStatusToken(status string) error {
	switch status {
	case "", StatusOpen, StatusClosed, StatusAny:
		return nil
	}
	if _, err := strconv.Atoi(status); err != nil {
		return apperrors.New(apperrors.Validation,
			"invalid status %q (expected: open, closed, * or a numeric status ID)", status)
	}
	return nil
}

func validateNumericToken(name, value string) error {
	if value == "" {
		return nil
	}
	if _, err := strconv.Atoi(value); err != nil {
		return apperrors.New(apperrors.Validation, "invalid %s %q: expected a numeric ID", name, value)
	}
	return nil
}

func validateDate(name, value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return apperrors.New(apperrors.Validation,
			"invalid --%s date %q: expected YYYY-MM-DD", name, value)
	}
	return nil
}

func validateCustomFields(fields []CustomFieldFilter) error {
	for _, f := range fields {
		if f.ID <= 0 {
			return apperrors.New(apperrors.Validation,
				"custom field ID must be positive, got %d", f.ID)
		}
	}
	return nil
}

func addCustomFieldParams(params url.Values, fields []CustomFieldFilter) {
	for _, f := range fields {
		params.Set(fmt.Sprintf("cf_%d", f.ID), f.Value)
	}
}
