// Package redmine implements the HTTP client for Redmine-compatible
// project-tracking servers: the transport with its retry policy, the
// paginated fetchers, and the wire models.
package redmine

import (
	"fmt"
	"strings"
)

// NamedRef is the embedded {id, name} reference Redmine attaches to
// records (project, tracker, status, priority, activity, user).
type NamedRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// IssueRef is the bare issue reference carried by time entries.
type IssueRef struct {
	ID int `json:"id"`
}

// CustomFieldValue is one custom field attached to a record. Value is
// whatever the server sent: a scalar, an ordered list for multi-value
// fields, or null.
type CustomFieldValue struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Value    any    `json:"value"`
	Multiple bool   `json:"multiple,omitempty"`
}

// DisplayValue renders the field value for human output: "-" for null or
// empty, list values joined with ", ", booleans as Yes/No.
func (f CustomFieldValue) DisplayValue() string {
	return displayScalar(f.Value)
}

func displayScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		if val == "" {
			return "-"
		}
		return val
	case bool:
		if val {
			return "Yes"
		}
		return "No"
	case float64:
		// JSON numbers decode as float64; print integers without a
		// trailing fraction.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	case []any:
		if len(val) == 0 {
			return "-"
		}
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, displayScalar(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Activity is one entry of the time-entry activity enumeration.
type Activity struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default,omitempty"`
}

// CurrentUser is the authenticated account from /users/current.json.
type CurrentUser struct {
	ID          int    `json:"id"`
	Login       string `json:"login"`
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Mail        string `json:"mail,omitempty"`
	Admin       bool   `json:"admin,omitempty"`
	CreatedOn   string `json:"created_on,omitempty"`
	LastLoginOn string `json:"last_login_on,omitempty"`
}

// FullName joins first and last name.
func (u CurrentUser) FullName() string {
	return strings.TrimSpace(u.Firstname + " " + u.Lastname)
}

// User is one account from the admin /users.json listing.
type User struct {
	ID          int    `json:"id"`
	Login       string `json:"login"`
	Firstname   string `json:"firstname"`
	Lastname    string `json:"lastname"`
	Mail        string `json:"mail,omitempty"`
	CreatedOn   string `json:"created_on,omitempty"`
	LastLoginOn string `json:"last_login_on,omitempty"`
	Status      int    `json:"status,omitempty"`
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.Firstname + " " + u.Lastname)
}

// StatusDisplay renders the numeric account status.
func (u User) StatusDisplay() string {
	switch u.Status {
	case 1:
		return "Active"
	case 2:
		return "Registered"
	case 3:
		return "Locked"
	default:
		return "-"
	}
}

// Project is one project record.
type Project struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Identifier  string `json:"identifier"`
	Description string `json:"description,omitempty"`
	Status      int    `json:"status,omitempty"`
	IsPublic    bool   `json:"is_public,omitempty"`
	CreatedOn   string `json:"created_on,omitempty"`
	UpdatedOn   string `json:"updated_on,omitempty"`
}

// StatusDisplay renders the numeric project status.
func (p Project) StatusDisplay() string {
	switch p.Status {
	case 1:
		return "Active"
	case 5:
		return "Closed"
	case 9:
		return "Archived"
	default:
		return "-"
	}
}

// Issue is one issue record.
type Issue struct {
	ID             int                `json:"id"`
	Subject        string             `json:"subject"`
	Description    string             `json:"description,omitempty"`
	Project        NamedRef           `json:"project"`
	Tracker        *NamedRef          `json:"tracker,omitempty"`
	Status         NamedRef           `json:"status"`
	Priority       NamedRef           `json:"priority"`
	Author         *NamedRef          `json:"author,omitempty"`
	AssignedTo     *NamedRef          `json:"assigned_to,omitempty"`
	StartDate      string             `json:"start_date,omitempty"`
	DueDate        string             `json:"due_date,omitempty"`
	DoneRatio      int                `json:"done_ratio,omitempty"`
	EstimatedHours float64            `json:"estimated_hours,omitempty"`
	SpentHours     float64            `json:"spent_hours,omitempty"`
	CreatedOn      string             `json:"created_on,omitempty"`
	UpdatedOn      string             `json:"updated_on,omitempty"`
	CustomFields   []CustomFieldValue `json:"custom_fields,omitempty"`
}

// TimeEntry is one logged time record.
type TimeEntry struct {
	ID           int                `json:"id"`
	Hours        float64            `json:"hours"`
	Comments     string             `json:"comments,omitempty"`
	SpentOn      string             `json:"spent_on"`
	Activity     NamedRef           `json:"activity"`
	User         *NamedRef          `json:"user,omitempty"`
	Project      *NamedRef          `json:"project,omitempty"`
	Issue        *IssueRef          `json:"issue,omitempty"`
	CreatedOn    string             `json:"created_on,omitempty"`
	UpdatedOn    string             `json:"updated_on,omitempty"`
	CustomFields []CustomFieldValue `json:"custom_fields,omitempty"`
}

// CustomField returns the custom field with the given ID, if present.
func (t TimeEntry) CustomField(id int) (CustomFieldValue, bool) {
	for _, f := range t.CustomFields {
		if f.ID == id {
			return f, true
		}
	}
	return CustomFieldValue{}, false
}

// SearchResult is one hit from the /search.json endpoint.
type SearchResult struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Datetime    string `json:"datetime,omitempty"`
}

// PingResult reports a connectivity probe.
type PingResult struct {
	Status    string `json:"status"`
	URL       string `json:"url"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// CustomFieldParam is one custom field value for create/update payloads.
// Only scalar string values are sent; multi-value writes are not
// supported by the CLI.
type CustomFieldParam struct {
	ID    int    `json:"id"`
	Value string `json:"value"`
}

// NewIssue is the payload for issue creation.
type NewIssue struct {
	ProjectID    int                `json:"project_id"`
	Subject      string             `json:"subject"`
	Description  string             `json:"description,omitempty"`
	TrackerID    int                `json:"tracker_id,omitempty"`
	StatusID     int                `json:"status_id,omitempty"`
	PriorityID   int                `json:"priority_id,omitempty"`
	AssignedToID int                `json:"assigned_to_id,omitempty"`
	StartDate    string             `json:"start_date,omitempty"`
	DueDate      string             `json:"due_date,omitempty"`
	CustomFields []CustomFieldParam `json:"custom_fields,omitempty"`
}

// IssueUpdate is the payload for issue updates; nil fields are omitted
// so the server leaves them untouched.
type IssueUpdate struct {
	Subject      *string            `json:"subject,omitempty"`
	Description  *string            `json:"description,omitempty"`
	TrackerID    *int               `json:"tracker_id,omitempty"`
	StatusID     *int               `json:"status_id,omitempty"`
	PriorityID   *int               `json:"priority_id,omitempty"`
	AssignedToID *int               `json:"assigned_to_id,omitempty"`
	DoneRatio    *int               `json:"done_ratio,omitempty"`
	Notes        *string            `json:"notes,omitempty"`
	CustomFields []CustomFieldParam `json:"custom_fields,omitempty"`
}

// Empty reports whether the update carries no changes.
func (u IssueUpdate) Empty() bool {
	return u.Subject == nil && u.Description == nil && u.TrackerID == nil &&
		u.StatusID == nil && u.PriorityID == nil && u.AssignedToID == nil &&
		u.DoneRatio == nil && u.Notes == nil && len(u.CustomFields) == 0
}

// NewTimeEntry is the payload for time entry creation. Exactly one of
// IssueID or ProjectID must be set; that rule is enforced before the
// request is built.
type NewTimeEntry struct {
	IssueID      int                `json:"issue_id,omitempty"`
	ProjectID    int                `json:"project_id,omitempty"`
	Hours        float64            `json:"hours"`
	ActivityID   int                `json:"activity_id"`
	SpentOn      string             `json:"spent_on,omitempty"`
	Comments     string             `json:"comments,omitempty"`
	UserID       int                `json:"user_id,omitempty"`
	CustomFields []CustomFieldParam `json:"custom_fields,omitempty"`
}

// TimeEntryUpdate is the payload for time entry updates.
type TimeEntryUpdate struct {
	Hours      *float64 `json:"hours,omitempty"`
	ActivityID *int     `json:"activity_id,omitempty"`
	SpentOn    *string  `json:"spent_on,omitempty"`
	Comments   *string  `json:"comments,omitempty"`
}

// Empty reports whether the update carries no changes.
func (u TimeEntryUpdate) Empty() bool {
	return u.Hours == nil && u.ActivityID == nil && u.SpentOn == nil && u.Comments == nil
}

// Collection envelopes. Redmine wraps every list in a keyed object with
// paging metadata alongside.
type issueList struct {
	Issues     []Issue `json:"issues"`
	TotalCount int     `json:"total_count"`
	Offset     int     `json:"offset"`
	Limit      int     `json:"limit"`
}

type projectList struct {
	Projects   []Project `json:"projects"`
	TotalCount int       `json:"total_count"`
	Offset     int       `json:"offset"`
	Limit      int       `json:"limit"`
}

type timeEntryList struct {
	TimeEntries []TimeEntry `json:"time_entries"`
	TotalCount  int         `json:"total_count"`
	Offset      int         `json:"offset"`
	Limit       int         `json:"limit"`
}

type userList struct {
	Users      []User `json:"users"`
	TotalCount int    `json:"total_count"`
	Offset     int    `json:"offset"`
	Limit      int    `json:"limit"`
}

type activityList struct {
	TimeEntryActivities []Activity `json:"time_entry_activities"`
}

type searchResultList struct {
	Results    []SearchResult `json:"results"`
	TotalCount int            `json:"total_count"`
	Offset     int            `json:"offset"`
	Limit      int            `json:"limit"`
}

type issueEnvelope struct {
	Issue Issue `json:"issue"`
}

type projectEnvelope struct {
	Project Project `json:"project"`
}

type timeEntryEnvelope struct {
	TimeEntry TimeEntry `json:"time_entry"`
}

type currentUserEnvelope struct {
	User CurrentUser `json:"user"`
}

type newIssueEnvelope struct {
	Issue NewIssue `json:"issue"`
}

type issueUpdateEnvelope struct {
	Issue IssueUpdate `json:"issue"`
}

type newTimeEntryEnvelope struct {
	TimeEntry NewTimeEntry `json:"time_entry"`
}

type timeEntryUpdateEnvelope struct {
	TimeEntry TimeEntryUpdate `json:"time_entry"`
}

type validationErrorBody struct {
	Errors []string `json:"errors"`
}
