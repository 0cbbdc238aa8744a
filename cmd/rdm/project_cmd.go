package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/redmine-cli/rdm/internal/cli/output"
	"github.com/redmine-cli/rdm/internal/redmine"
)

var (
	projectCmd = &cobra.Command{
		Use:   "project",
		Short: "Browse projects",
	}

	projectListCmd = &cobra.Command{
		Use:   "list",
		Short: "List projects visible to the API key",
		Long: `List projects, one window at a time.

Examples:
  rdm project list
  rdm project list --limit 50 --offset 50
  rdm project list --output=json`,
		RunE: runProjectList,
	}

	projectGetCmd = &cobra.Command{
		Use:   "get <id|identifier>",
		Short: "Show one project",
		Long: `Show one project by numeric ID or by identifier.

Examples:
  rdm project get 42
  rdm project get website-redesign`,
		Args: cobra.ExactArgs(1),
		RunE: runProjectGet,
	}

	projectLimit  int
	projectOffset int
)

func init() {
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectGetCmd)

	projectListCmd.Flags().IntVar(&projectLimit, "limit", redmine.DefaultLimit, "Window size (capped at the server maximum of 100)")
	projectListCmd.Flags().IntVar(&projectOffset, "offset", 0, "Number of records to skip")
}

func runProjectList(_ *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := app.commandContext()
	defer cancel()

	projects, window, err := app.client.ListProjects(ctx, projectLimit, projectOffset)
	if err != nil {
		return err
	}

	meta := output.NewMeta(window.TotalCount, len(projects), window.Offset, window.Limit)
	headers := []string{"ID", "IDENTIFIER", "NAME", "STATUS", "PUBLIC"}
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		public := ""
		if p.IsPublic {
			public = "yes"
		}
		rows = append(rows, []string{
			strconv.Itoa(p.ID),
			p.Identifier,
			p.Name,
			p.StatusDisplay(),
			public,
		})
	}
	return renderPage(projects, meta, headers, rows)
}

func runProjectGet(_ *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := app.commandContext()
	defer cancel()

	project, err := app.client.GetProject(ctx, args[0])
	if err != nil {
		return err
	}

	var f fieldList
	f.addf("ID", "%d", project.ID)
	f.add("Identifier", project.Identifier)
	f.add("Name", project.Name)
	f.add("Status", project.StatusDisplay())
	if project.IsPublic {
		f.add("Public", "yes")
	}
	f.add("Description", project.Description)
	f.add("Created", project.CreatedOn)
	f.add("Updated", project.UpdatedOn)
	return renderDetail(project, f.String())
}
