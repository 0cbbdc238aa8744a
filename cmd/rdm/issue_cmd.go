package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redmine-cli/rdm/internal/apperrors"
	"github.com/redmine-cli/rdm/internal/cli/output"
	"github.com/redmine-cli/rdm/internal/redmine"
	"github.com/redmine-cli/rdm/internal/stringutil"
)

var (
	issueCmd = &cobra.Command{
		Use:   "issue",
		Short: "Browse and edit issues",
	}

	issueListCmd = &cobra.Command{
		Use:   "list",
		Short: "List issues",
		Long: `List issues, one window at a time. All filters combine.

User filters accept a numeric ID or 'me'. Status accepts open, closed,
'*' (any), or a numeric status ID. Custom fields are matched by numeric
field ID.

Examples:
  rdm issue list --assigned-to me --status open
  rdm issue list --project website --tracker 2 --limit 50
  rdm issue list --cf 14=backend --output=json`,
		RunE: runIssueList,
	}

	issueGetCmd = &cobra.Command{
		Use:   "get <id>",
		Short: "Show one issue",
		Args:  cobra.ExactArgs(1),
		RunE:  runIssueGet,
	}

	issueSearchCmd = &cobra.Command{
		Use:   "search <query>...",
		Short: "Full-text search over issues",
		Long: `Search issues by free text. Each hit is fetched in full, so the
output carries the same fields as 'issue list'.

Examples:
  rdm issue search crash on startup
  rdm issue search "payment timeout" --project billing`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIssueSearch,
	}

	issueCreateCmd = &cobra.Command{
		Use:   "create",
		Short: "Create an issue",
		Long: `Create an issue. --project accepts a numeric ID or an identifier;
--assigned-to accepts a numeric ID or 'me'.

Examples:
  rdm issue create --project website --subject "Fix login redirect"
  rdm issue create --project 12 --subject "Upgrade runtime" --assigned-to me --due-date 2026-09-30
  rdm issue create --project 12 --subject "Spike" --dry-run`,
		RunE: runIssueCreate,
	}

	issueUpdateCmd = &cobra.Command{
		Use:   "update <id>",
		Short: "Update an issue",
		Long: `Update one issue. Only the fields passed as flags change; --notes
adds a journal comment.

Examples:
  rdm issue update 101 --status-id 3 --notes "Deployed to staging"
  rdm issue update 101 --assigned-to me --done-ratio 80
  rdm issue update 101 --subject "New title" --dry-run`,
		Args: cobra.ExactArgs(1),
		RunE: runIssueUpdate,
	}

	issueListProject  string
	issueListStatus   string
	issueListAssignee string
	issueListAuthor   string
	issueListTracker  string
	issueListSubject  string
	issueListCF       []string
	issueLimit        int
	issueOffset       int

	issueSearchProject string

	issueCreateProject     string
	issueCreateSubject     string
	issueCreateDescription string
	issueCreateTracker     int
	issueCreateStatus      int
	issueCreatePriority    int
	issueCreateAssignee    string
	issueCreateStartDate   string
	issueCreateDueDate     string
	issueCreateCF          []string
	issueCreateDryRun      bool

	issueUpdateSubject     string
	issueUpdateDescription string
	issueUpdateTracker     int
	issueUpdateStatus      int
	issueUpdatePriority    int
	issueUpdateAssignee    string
	issueUpdateDoneRatio   int
	issueUpdateNotes       string
	issueUpdateCF          []string
	issueUpdateDryRun      bool
)

func init() {
	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueGetCmd)
	issueCmd.AddCommand(issueSearchCmd)
	issueCmd.AddCommand(issueCreateCmd)
	issueCmd.AddCommand(issueUpdateCmd)

	issueListCmd.Flags().StringVar(&issueListProject, "project", "", "Filter by project (numeric ID or identifier)")
	issueListCmd.Flags().StringVar(&issueListStatus, "status", "", "Filter by status: open, closed, '*', or a status ID")
	issueListCmd.Flags().StringVar(&issueListAssignee, "assigned-to", "", "Filter by assignee (user ID or 'me')")
	issueListCmd.Flags().StringVar(&issueListAuthor, "author", "", "Filter by author (user ID or 'me')")
	issueListCmd.Flags().StringVar(&issueListTracker, "tracker", "", "Filter by tracker ID")
	issueListCmd.Flags().StringVar(&issueListSubject, "subject", "", "Filter by subject substring")
	issueListCmd.Flags().StringArrayVar(&issueListCF, "cf", nil, "Filter by custom field, <id>=<value> (repeatable)")
	issueListCmd.Flags().IntVar(&issueLimit, "limit", redmine.DefaultLimit, "Window size (capped at the server maximum of 100)")
	issueListCmd.Flags().IntVar(&issueOffset, "offset", 0, "Number of records to skip")

	issueSearchCmd.Flags().StringVar(&issueSearchProject, "project", "", "Scope the search to one project (numeric ID or identifier)")
	issueSearchCmd.Flags().IntVar(&issueLimit, "limit", redmine.DefaultLimit, "Window size (capped at the server maximum of 100)")
	issueSearchCmd.Flags().IntVar(&issueOffset, "offset", 0, "Number of records to skip")

	issueCreateCmd.Flags().StringVar(&issueCreateProject, "project", "", "Project for the new issue (numeric ID or identifier, required)")
	issueCreateCmd.Flags().StringVar(&issueCreateSubject, "subject", "", "Issue subject (required)")
	issueCreateCmd.Flags().StringVar(&issueCreateDescription, "description", "", "Issue description")
	issueCreateCmd.Flags().IntVar(&issueCreateTracker, "tracker-id", 0, "Tracker ID")
	issueCreateCmd.Flags().IntVar(&issueCreateStatus, "status-id", 0, "Status ID")
	issueCreateCmd.Flags().IntVar(&issueCreatePriority, "priority-id", 0, "Priority ID")
	issueCreateCmd.Flags().StringVar(&issueCreateAssignee, "assigned-to", "", "Assignee (user ID or 'me')")
	issueCreateCmd.Flags().StringVar(&issueCreateStartDate, "start-date", "", "Start date (YYYY-MM-DD)")
	issueCreateCmd.Flags().StringVar(&issueCreateDueDate, "due-date", "", "Due date (YYYY-MM-DD)")
	issueCreateCmd.Flags().StringArrayVar(&issueCreateCF, "cf", nil, "Custom field value, <id>=<value> (repeatable)")
	issueCreateCmd.Flags().BoolVar(&issueCreateDryRun, "dry-run", false, "Show the request without sending it")

	issueUpdateCmd.Flags().StringVar(&issueUpdateSubject, "subject", "", "New subject")
	issueUpdateCmd.Flags().StringVar(&issueUpdateDescription, "description", "", "New description")
	issueUpdateCmd.Flags().IntVar(&issueUpdateTracker, "tracker-id", 0, "New tracker ID")
	issueUpdateCmd.Flags().IntVar(&issueUpdateStatus, "status-id", 0, "New status ID")
	issueUpdateCmd.Flags().IntVar(&issueUpdatePriority, "priority-id", 0, "New priority ID")
	issueUpdateCmd.Flags().StringVar(&issueUpdateAssignee, "assigned-to", "", "New assignee (user ID or 'me')")
	issueUpdateCmd.Flags().IntVar(&issueUpdateDoneRatio, "done-ratio", 0, "New done ratio (0-100)")
	issueUpdateCmd.Flags().StringVar(&issueUpdateNotes, "notes", "", "Journal note to add")
	issueUpdateCmd.Flags().StringArrayVar(&issueUpdateCF, "cf", nil, "Custom field value, <id>=<value> (repeatable)")
	issueUpdateCmd.Flags().BoolVar(&issueUpdateDryRun, "dry-run", false, "Show the request without sending it")
}

var issueHeaders = []string{"ID", "PROJECT", "TRACKER", "STATUS", "PRIORITY", "ASSIGNEE", "SUBJECT"}

func issueRows(issues []redmine.Issue) [][]string {
	rows := make([][]string, 0, len(issues))
	for _, issue := range issues {
		tracker := ""
		if issue.Tracker != nil {
			tracker = issue.Tracker.Name
		}
		assignee := ""
		if issue.AssignedTo != nil {
			assignee = issue.AssignedTo.Name
		}
		rows = append(rows, []string{
			strconv.Itoa(issue.ID),
			issue.Project.Name,
			tracker,
			issue.Status.Name,
			issue.Priority.Name,
			assignee,
			stringutil.Clip(issue.Subject, 60),
		})
	}
	return rows
}

func runIssueList(_ *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := app.commandContext()
	defer cancel()

	status, err := app.resolver.StatusToken(issueListStatus)
	if err != nil {
		return err
	}
	assignee, err := app.resolver.UserID(ctx, issueListAssignee)
	if err != nil {
		return err
	}
	author, err := app.resolver.UserID(ctx, issueListAuthor)
	if err != nil {
		return err
	}
	customFields, err := app.resolver.CustomFields(issueListCF)
	if err != nil {
		return err
	}

	filters := redmine.IssueFilters{
		Project:      issueListProject,
		Status:       status,
		AssignedToID: assignee,
		AuthorID:     author,
		TrackerID:    issueListTracker,
		Subject:      issueListSubject,
		CustomFields: customFields,
	}

	issues, window, err := app.client.ListIssues(ctx, filters, issueLimit, issueOffset)
	if err != nil {
		return err
	}

	meta := output.NewMeta(window.TotalCount, len(issues), window.Offset, window.Limit)
	return renderPage(issues, meta, issueHeaders, issueRows(issues))
}

func runIssueGet(_ *cobra.Command, args []string) error {
	id, err := parseID(args[0], "issue")
	if err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := app.commandContext()
	defer cancel()

	issue, err := app.client.GetIssue(ctx, id)
	if err != nil {
		return err
	}

	var f fieldList
	f.addf("ID", "%d", issue.ID)
	f.add("Subject", issue.Subject)
	f.add("Project", issue.Project.Name)
	if issue.Tracker != nil {
		f.add("Tracker", issue.Tracker.Name)
	}
	f.add("Status", issue.Status.Name)
	f.add("Priority", issue.Priority.Name)
	if issue.Author != nil {
		f.add("Author", issue.Author.Name)
	}
	if issue.AssignedTo != nil {
		f.add("Assignee", issue.AssignedTo.Name)
	}
	f.add("Start date", issue.StartDate)
	f.add("Due date", issue.DueDate)
	if issue.DoneRatio > 0 {
		f.addf("Done", "%d%%", issue.DoneRatio)
	}
	if issue.EstimatedHours > 0 {
		f.addf("Estimated", "%s h", formatHours(issue.EstimatedHours))
	}
	if issue.SpentHours > 0 {
		f.addf("Spent", "%s h", formatHours(issue.SpentHours))
	}
	for _, cf := range issue.CustomFields {
		f.add(cf.Name, cf.DisplayValue())
	}
	f.add("Created", issue.CreatedOn)
	f.add("Updated", issue.UpdatedOn)
	f.add("Description", issue.Description)
	return renderDetail(issue, f.String())
}

func runIssueSearch(_ *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return apperrors.New(apperrors.Validation, "search query must not be empty")
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := app.commandContext()
	defer cancel()

	issues, window, err := app.client.SearchIssues(ctx, query, issueSearchProject, issueLimit, issueOffset)
	if err != nil {
		return err
	}

	meta := output.NewMeta(window.TotalCount, len(issues), window.Offset, window.Limit)
	return renderPage(issues, meta, issueHeaders, issueRows(issues))
}

func runIssueCreate(_ *cobra.Command, _ []string) error {
	if issueCreateProject == "" {
		return apperrors.New(apperrors.Validation, "an issue needs a project").
			WithHint("Pass it with --project <id|identifier>.")
	}
	if strings.TrimSpace(issueCreateSubject) == "" {
		return apperrors.New(apperrors.Validation, "an issue needs a subject").
			WithHint("Pass it with --subject.")
	}
	if err := validateDateFlag("start-date", issueCreateStartDate); err != nil {
		return err
	}
	if err := validateDateFlag("due-date", issueCreateDueDate); err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := app.commandContext()
	defer cancel()

	projectID, err := resolveProjectID(ctx, app, issueCreateProject)
	if err != nil {
		return err
	}

	payload := redmine.NewIssue{
		ProjectID:   projectID,
		Subject:     strings.TrimSpace(issueCreateSubject),
		Description: issueCreateDescription,
		TrackerID:   issueCreateTracker,
		StatusID:    issueCreateStatus,
		PriorityID:  issueCreatePriority,
		StartDate:   issueCreateStartDate,
		DueDate:     issueCreateDueDate,
	}

	if issueCreateAssignee != "" {
		userID, err := app.resolver.UserID(ctx, issueCreateAssignee)
		if err != nil {
			return err
		}
		payload.AssignedToID, err = strconv.Atoi(userID)
		if err != nil {
			return apperrors.New(apperrors.Validation, "invalid assignee %q", issueCreateAssignee)
		}
	}

	customFields, err := app.resolver.CustomFields(issueCreateCF)
	if err != nil {
		return err
	}
	payload.CustomFields = customFieldParams(customFields)

	if issueCreateDryRun {
		return renderDryRun(http.MethodPost, "/issues.json", map[string]interface{}{"issue": payload})
	}

	issue, err := app.client.CreateIssue(ctx, payload)
	if err != nil {
		return err
	}
	return renderMessage(issue, "Created issue #%d: %s", issue.ID, issue.Subject)
}

func runIssueUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "issue")
	if err != nil {
		return err
	}

	update := redmine.IssueUpdate{}
	flags := cmd.Flags()
	if flags.Changed("subject") {
		if strings.TrimSpace(issueUpdateSubject) == "" {
			return apperrors.New(apperrors.Validation, "subject must not be empty")
		}
		update.Subject = &issueUpdateSubject
	}
	if flags.Changed("description") {
		update.Description = &issueUpdateDescription
	}
	if flags.Changed("tracker-id") {
		update.TrackerID = &issueUpdateTracker
	}
	if flags.Changed("status-id") {
		update.StatusID = &issueUpdateStatus
	}
	if flags.Changed("priority-id") {
		update.PriorityID = &issueUpdatePriority
	}
	if flags.Changed("done-ratio") {
		if issueUpdateDoneRatio < 0 || issueUpdateDoneRatio > 100 {
			return apperrors.New(apperrors.Validation, "done ratio must be between 0 and 100, got %d", issueUpdateDoneRatio)
		}
		update.DoneRatio = &issueUpdateDoneRatio
	}
	if flags.Changed("notes") {
		update.Notes = &issueUpdateNotes
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := app.commandContext()
	defer cancel()

	if flags.Changed("assigned-to") {
		userID, err := app.resolver.UserID(ctx, issueUpdateAssignee)
		if err != nil {
			return err
		}
		assigneeID, err := strconv.Atoi(userID)
		if err != nil {
			return apperrors.New(apperrors.Validation, "invalid assignee %q", issueUpdateAssignee)
		}
		update.AssignedToID = &assigneeID
	}
	if flags.Changed("cf") {
		customFields, err := app.resolver.CustomFields(issueUpdateCF)
		if err != nil {
			return err
		}
		update.CustomFields = customFieldParams(customFields)
	}

	if update.Empty() {
		return apperrors.New(apperrors.Validation, "nothing to update").
			WithHint("Pass at least one field flag, e.g. --status-id or --notes.")
	}

	if issueUpdateDryRun {
		return renderDryRun(http.MethodPut, fmt.Sprintf("/issues/%d.json", id), map[string]interface{}{"issue": update})
	}

	if err := app.client.UpdateIssue(ctx, id, update); err != nil {
		return err
	}
	issue, err := app.client.GetIssue(ctx, id)
	if err != nil {
		return err
	}
	return renderMessage(issue, "Updated issue #%d: %s", issue.ID, issue.Subject)
}
