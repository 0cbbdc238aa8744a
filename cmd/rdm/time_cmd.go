package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/redmine-cli/rdm/internal/aggregate"
	"github.com/redmine-cli/rdm/internal/apperrors"
	"github.com/redmine-cli/rdm/internal/cache"
	"github.com/redmine-cli/rdm/internal/cli/output"
	"github.com/redmine-cli/rdm/internal/prompt"
	"github.com/redmine-cli/rdm/internal/redmine"
	"github.com/redmine-cli/rdm/internal/stringutil"
)

var (
	timeCmd = &cobra.Command{
		Use:   "time",
		Short: "Log and inspect time entries",
	}

	timeActivitiesCmd = &cobra.Command{
		Use:   "activities",
		Short: "List time entry activities",
		Long: `List the server's time entry activities. The enumeration is cached
on disk for a day per server account; --refresh bypasses the cache.

Examples:
  rdm time activities
  rdm time activities --refresh
  rdm time activities --match dev`,
		RunE: runTimeActivities,
	}

	timeListCmd = &cobra.Command{
		Use:   "list",
		Short: "List time entries",
		Long: `List time entries, one window at a time. With --group-by every
matching record is fetched and subtotaled; --limit and --offset do not
apply there.

Group keys: user, project, activity, issue, date, or cf_<id> for a
custom field.

Examples:
  rdm time list --user me --from 2026-08-01 --to 2026-08-31
  rdm time list --issue 101
  rdm time list --user me --group-by project
  rdm time list --group-by cf_14 --output=json`,
		RunE: runTimeList,
	}

	timeCreateCmd = &cobra.Command{
		Use:     "create",
		Aliases: []string{"log"},
		Short:   "Log time",
		Long: `Log time against an issue or a project (exactly one). --activity
accepts an activity name (case-insensitive) or a numeric ID; omit it to
use the server default. The date defaults to today.

Examples:
  rdm time create --issue 101 --hours 1.5 --activity Development
  rdm time log --project website --hours 2 --comment "Sprint planning"
  rdm time create --issue 101 --hours 0.5 --date 2026-08-20 --dry-run`,
		RunE: runTimeCreate,
	}

	timeGetCmd = &cobra.Command{
		Use:   "get <id>",
		Short: "Show one time entry",
		Args:  cobra.ExactArgs(1),
		RunE:  runTimeGet,
	}

	timeUpdateCmd = &cobra.Command{
		Use:   "update <id>",
		Short: "Update a time entry",
		Long: `Update one time entry. Only the fields passed as flags change.

Examples:
  rdm time update 555 --hours 2.5
  rdm time update 555 --activity Review --comment "Code review"`,
		Args: cobra.ExactArgs(1),
		RunE: runTimeUpdate,
	}

	timeDeleteCmd = &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a time entry",
		Args:  cobra.ExactArgs(1),
		RunE:  runTimeDelete,
	}

	timeActivitiesRefresh bool
	timeActivitiesMatch   string

	timeListIssue   int
	timeListProject string
	timeListUser    string
	timeListFrom    string
	timeListTo      string
	timeListCF      []string
	timeListGroupBy string
	timeLimit       int
	timeOffset      int

	timeCreateIssue    int
	timeCreateProject  string
	timeCreateHours    float64
	timeCreateActivity string
	timeCreateDate     string
	timeCreateComment  string
	timeCreateUser     string
	timeCreateCF       []string
	timeCreateDryRun   bool

	timeUpdateHours    float64
	timeUpdateActivity string
	timeUpdateDate     string
	timeUpdateComment  string
	timeUpdateDryRun   bool

	timeDeleteYes    bool
	timeDeleteDryRun bool
)

func init() {
	timeCmd.AddCommand(timeActivitiesCmd)
	timeCmd.AddCommand(timeListCmd)
	timeCmd.AddCommand(timeCreateCmd)
	timeCmd.AddCommand(timeGetCmd)
	timeCmd.AddCommand(timeUpdateCmd)
	timeCmd.AddCommand(timeDeleteCmd)

	timeActivitiesCmd.Flags().BoolVar(&timeActivitiesRefresh, "refresh", false, "Bypass the cache and fetch from the server")
	timeActivitiesCmd.Flags().StringVar(&timeActivitiesMatch, "match", "", "Show only activities whose name contains this text")

	timeListCmd.Flags().IntVar(&timeListIssue, "issue", 0, "Filter by issue ID")
	timeListCmd.Flags().StringVar(&timeListProject, "project", "", "Filter by project (numeric ID or identifier)")
	timeListCmd.Flags().StringVar(&timeListUser, "user", "", "Filter by user (user ID or 'me')")
	timeListCmd.Flags().StringVar(&timeListFrom, "from", "", "Only entries on or after this date (YYYY-MM-DD)")
	timeListCmd.Flags().StringVar(&timeListTo, "to", "", "Only entries on or before this date (YYYY-MM-DD)")
	timeListCmd.Flags().StringArrayVar(&timeListCF, "cf", nil, "Filter by custom field, <id>=<value> (repeatable)")
	timeListCmd.Flags().StringVar(&timeListGroupBy, "group-by", "", "Subtotal hours by: user, project, activity, issue, date, or cf_<id>")
	timeListCmd.Flags().IntVar(&timeLimit, "limit", redmine.DefaultLimit, "Window size (capped at the server maximum of 100)")
	timeListCmd.Flags().IntVar(&timeOffset, "offset", 0, "Number of records to skip")

	timeCreateCmd.Flags().IntVar(&timeCreateIssue, "issue", 0, "Issue to log against")
	timeCreateCmd.Flags().StringVar(&timeCreateProject, "project", "", "Project to log against (numeric ID or identifier)")
	timeCreateCmd.Flags().Float64Var(&timeCreateHours, "hours", 0, "Hours to log (required)")
	timeCreateCmd.Flags().StringVar(&timeCreateActivity, "activity", "", "Activity name or ID (server default if omitted)")
	timeCreateCmd.Flags().StringVar(&timeCreateDate, "date", "", "Spent-on date (YYYY-MM-DD, defaults to today)")
	timeCreateCmd.Flags().StringVar(&timeCreateComment, "comment", "", "Comment for the entry")
	timeCreateCmd.Flags().StringVar(&timeCreateUser, "user", "", "Log on behalf of this user (admin only; user ID or 'me')")
	timeCreateCmd.Flags().StringArrayVar(&timeCreateCF, "cf", nil, "Custom field value, <id>=<value> (repeatable)")
	timeCreateCmd.Flags().BoolVar(&timeCreateDryRun, "dry-run", false, "Show the request without sending it")

	timeUpdateCmd.Flags().Float64Var(&timeUpdateHours, "hours", 0, "New hour count")
	timeUpdateCmd.Flags().StringVar(&timeUpdateActivity, "activity", "", "New activity (name or ID)")
	timeUpdateCmd.Flags().StringVar(&timeUpdateDate, "date", "", "New spent-on date (YYYY-MM-DD)")
	timeUpdateCmd.Flags().StringVar(&timeUpdateComment, "comment", "", "New comment")
	timeUpdateCmd.Flags().BoolVar(&timeUpdateDryRun, "dry-run", false, "Show the request without sending it")

	timeDeleteCmd.Flags().BoolVarP(&timeDeleteYes, "yes", "y", false, "Skip confirmation prompt")
	timeDeleteCmd.Flags().BoolVar(&timeDeleteDryRun, "dry-run", false, "Show the request without sending it")
}

func runTimeActivities(_ *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := app.commandContext()
	defer cancel()

	var entry *cache.Entry
	if timeActivitiesRefresh {
		entry, err = app.cache.Refresh(ctx, app.cfg.Identity)
	} else {
		entry, err = app.cache.ResolveOrRefresh(ctx, app.cfg.Identity)
	}
	if err != nil {
		return err
	}

	activities := entry.Activities
	if timeActivitiesMatch != "" {
		matched := make([]redmine.Activity, 0, len(activities))
		for _, a := range activities {
			if stringutil.ContainsIgnoreCase(a.Name, timeActivitiesMatch) {
				matched = append(matched, a)
			}
		}
		activities = matched
	}

	format := ResolveOutputFormat()
	formatter, err := GetOutputFormatter()
	if err != nil {
		return err
	}

	if format == "json" || format == "yaml" {
		data := map[string]interface{}{
			"activities": activities,
			"cached_at":  entry.CachedAt,
			"server_url": entry.ServerURL,
		}
		result, err := formatter.Format(data)
		if err != nil {
			return err
		}
		printPayload(result)
		return nil
	}

	headers := []string{"ID", "NAME", "DEFAULT"}
	rows := make([][]string, 0, len(activities))
	for _, a := range activities {
		isDefault := ""
		if a.IsDefault {
			isDefault = "yes"
		}
		rows = append(rows, []string{strconv.Itoa(a.ID), a.Name, isDefault})
	}

	table, err := formatter.FormatTable(headers, rows)
	if err != nil {
		return err
	}
	fmt.Print(table)
	fmt.Printf("\nCached %s ago\n", entry.Age(time.Now()).Round(time.Second))
	return nil
}

func runTimeList(cmd *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := app.commandContext()
	defer cancel()

	userID, err := app.resolver.UserID(ctx, timeListUser)
	if err != nil {
		return err
	}
	customFields, err := app.resolver.CustomFields(timeListCF)
	if err != nil {
		return err
	}

	filters := redmine.TimeEntryFilters{
		IssueID:      timeListIssue,
		Project:      timeListProject,
		UserID:       userID,
		From:         timeListFrom,
		To:           timeListTo,
		CustomFields: customFields,
	}

	if timeListGroupBy != "" {
		if cmd.Flags().Changed("limit") || cmd.Flags().Changed("offset") {
			return apperrors.New(apperrors.Validation, "--limit and --offset cannot be combined with --group-by").
				WithHint("Grouped reports always cover every matching record.")
		}
		key, err := aggregate.ParseGroupKey(timeListGroupBy)
		if err != nil {
			return err
		}

		entries, err := app.client.ListAllTimeEntries(ctx, filters, app.cfg.PageSize)
		if err != nil {
			return err
		}

		_, span := app.tracing.TraceAggregation(ctx, key.String(), len(entries))
		report := aggregate.Build(entries, key)
		span.End()

		return renderTimeReport(report)
	}

	entries, window, err := app.client.ListTimeEntries(ctx, filters, timeLimit, timeOffset)
	if err != nil {
		return err
	}

	meta := output.NewMeta(window.TotalCount, len(entries), window.Offset, window.Limit)
	headers := []string{"ID", "DATE", "HOURS", "ACTIVITY", "ISSUE", "PROJECT", "USER", "COMMENT"}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		issue := ""
		if entry.Issue != nil {
			issue = "#" + strconv.Itoa(entry.Issue.ID)
		}
		project := ""
		if entry.Project != nil {
			project = entry.Project.Name
		}
		user := ""
		if entry.User != nil {
			user = entry.User.Name
		}
		rows = append(rows, []string{
			strconv.Itoa(entry.ID),
			entry.SpentOn,
			formatHours(entry.Hours),
			entry.Activity.Name,
			issue,
			project,
			user,
			stringutil.Clip(entry.Comments, 40),
		})
	}
	return renderPage(entries, meta, headers, rows)
}

// renderTimeReport prints a grouped report: structured formats carry
// the full groups, table mode the subtotals plus the grand total.
func renderTimeReport(report aggregate.Report) error {
	format := ResolveOutputFormat()
	formatter, err := output.NewFormatter(format)
	if err != nil {
		return err
	}

	if format == "json" || format == "yaml" {
		result, err := formatter.Format(report)
		if err != nil {
			return err
		}
		printPayload(result)
		return nil
	}

	if report.Records == 0 {
		fmt.Println("No time entries found")
		return nil
	}

	headers := []string{strings.ToUpper(report.GroupedBy), "HOURS", "ENTRIES"}
	rows := make([][]string, 0, len(report.Groups))
	for _, group := range report.Groups {
		rows = append(rows, []string{group.Key, group.Hours.String(), strconv.Itoa(len(group.Entries))})
	}

	table, err := formatter.FormatTable(headers, rows)
	if err != nil {
		return err
	}
	fmt.Print(table)
	fmt.Printf("\nTotal: %s hours over %d entries\n", report.TotalHours.String(), report.Records)
	return nil
}

func runTimeCreate(_ *cobra.Command, _ []string) error {
	if (timeCreateIssue > 0) == (timeCreateProject != "") {
		return apperrors.New(apperrors.Validation, "exactly one of --issue or --project is required").
			WithHint("Log against an issue with --issue <id>, or against a project with --project <id|identifier>.")
	}
	if timeCreateHours <= 0 {
		return apperrors.New(apperrors.Validation, "hours must be positive, got %s", formatHours(timeCreateHours))
	}
	if err := validateDateFlag("date", timeCreateDate); err != nil {
		return err
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := app.commandContext()
	defer cancel()

	payload := redmine.NewTimeEntry{
		Hours:    timeCreateHours,
		Comments: timeCreateComment,
		SpentOn:  timeCreateDate,
	}
	if payload.SpentOn == "" {
		payload.SpentOn = time.Now().Format("2006-01-02")
	}

	if timeCreateIssue > 0 {
		payload.IssueID = timeCreateIssue
	} else {
		payload.ProjectID, err = resolveProjectID(ctx, app, timeCreateProject)
		if err != nil {
			return err
		}
	}

	if timeCreateActivity != "" {
		payload.ActivityID, err = app.resolver.ActivityID(ctx, timeCreateActivity)
		if err != nil {
			return err
		}
	}

	if timeCreateUser != "" {
		userID, err := app.resolver.UserID(ctx, timeCreateUser)
		if err != nil {
			return err
		}
		payload.UserID, err = strconv.Atoi(userID)
		if err != nil {
			return apperrors.New(apperrors.Validation, "invalid user %q", timeCreateUser)
		}
	}

	customFields, err := app.resolver.CustomFields(timeCreateCF)
	if err != nil {
		return err
	}
	payload.CustomFields = customFieldParams(customFields)

	if timeCreateDryRun {
		return renderDryRun(http.MethodPost, "/time_entries.json", map[string]interface{}{"time_entry": payload})
	}

	entry, err := app.client.CreateTimeEntry(ctx, payload)
	if err != nil {
		return err
	}

	target := ""
	switch {
	case entry.Issue != nil:
		target = fmt.Sprintf(" on issue #%d", entry.Issue.ID)
	case entry.Project != nil:
		target = fmt.Sprintf(" on %s", entry.Project.Name)
	}
	return renderMessage(entry, "Logged %s hours%s (entry #%d)", formatHours(entry.Hours), target, entry.ID)
}

func runTimeGet(_ *cobra.Command, args []string) error {
	id, err := parseID(args[0], "time entry")
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

	entry, err := app.client.GetTimeEntry(ctx, id)
	if err != nil {
		return err
	}

	var f fieldList
	f.addf("ID", "%d", entry.ID)
	f.add("Date", entry.SpentOn)
	f.addf("Hours", "%s", formatHours(entry.Hours))
	f.add("Activity", entry.Activity.Name)
	if entry.Issue != nil {
		f.addf("Issue", "#%d", entry.Issue.ID)
	}
	if entry.Project != nil {
		f.add("Project", entry.Project.Name)
	}
	if entry.User != nil {
		f.add("User", entry.User.Name)
	}
	f.add("Comment", entry.Comments)
	for _, cf := range entry.CustomFields {
		f.add(cf.Name, cf.DisplayValue())
	}
	f.add("Created", entry.CreatedOn)
	f.add("Updated", entry.UpdatedOn)
	return renderDetail(entry, f.String())
}

func runTimeUpdate(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "time entry")
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if !flags.Changed("hours") && !flags.Changed("activity") && !flags.Changed("date") && !flags.Changed("comment") {
		return apperrors.New(apperrors.Validation, "nothing to update").
			WithHint("Pass at least one of --hours, --activity, --date, --comment.")
	}

	update := redmine.TimeEntryUpdate{}
	if flags.Changed("hours") {
		if timeUpdateHours <= 0 {
			return apperrors.New(apperrors.Validation, "hours must be positive, got %s", formatHours(timeUpdateHours))
		}
		update.Hours = &timeUpdateHours
	}
	if flags.Changed("date") {
		if err := validateDateFlag("date", timeUpdateDate); err != nil {
			return err
		}
		update.SpentOn = &timeUpdateDate
	}
	if flags.Changed("comment") {
		update.Comments = &timeUpdateComment
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := app.commandContext()
	defer cancel()

	if flags.Changed("activity") {
		activityID, err := app.resolver.ActivityID(ctx, timeUpdateActivity)
		if err != nil {
			return err
		}
		update.ActivityID = &activityID
	}

	if timeUpdateDryRun {
		return renderDryRun(http.MethodPut, fmt.Sprintf("/time_entries/%d.json", id), map[string]interface{}{"time_entry": update})
	}

	entry, err := app.client.UpdateTimeEntry(ctx, id, update)
	if err != nil {
		return err
	}
	return renderMessage(entry, "Updated time entry #%d", entry.ID)
}

func runTimeDelete(_ *cobra.Command, args []string) error {
	id, err := parseID(args[0], "time entry")
	if err != nil {
		return err
	}

	if timeDeleteDryRun {
		return renderDryRun(http.MethodDelete, fmt.Sprintf("/time_entries/%d.json", id), nil)
	}

	if !timeDeleteYes {
		confirmed, err := prompt.NewConsolePrompter().PromptConfirm(fmt.Sprintf("Delete time entry #%d?", id))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Cancelled")
			return nil
		}
	}

	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := app.commandContext()
	defer cancel()

	if err := app.client.DeleteTimeEntry(ctx, id); err != nil {
		return err
	}
	return renderMessage(map[string]interface{}{"deleted": id}, "Deleted time entry #%d", id)
}
