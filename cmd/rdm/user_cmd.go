package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/redmine-cli/rdm/internal/cli/output"
	"github.com/redmine-cli/rdm/internal/redmine"
)

var (
	userCmd = &cobra.Command{
		Use:   "user",
		Short: "Browse user accounts (admin)",
	}

	userListCmd = &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		Long: `List user accounts. The endpoint requires an administrator API key.

Examples:
  rdm user list
  rdm user list --status locked
  rdm user list --limit 100 --offset 100`,
		RunE: runUserList,
	}

	userListStatus string
	userLimit      int
	userOffset     int
)

func init() {
	userCmd.AddCommand(userListCmd)

	userListCmd.Flags().StringVar(&userListStatus, "status", "", "Filter by status: active, registered, or locked")
	userListCmd.Flags().IntVar(&userLimit, "limit", redmine.DefaultLimit, "Window size (capped at the server maximum of 100)")
	userListCmd.Flags().IntVar(&userOffset, "offset", 0, "Number of records to skip")
}

func runUserList(_ *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := app.commandContext()
	defer cancel()

	users, window, err := app.client.ListUsers(ctx, redmine.UserFilters{Status: userListStatus}, userLimit, userOffset)
	if err != nil {
		return err
	}

	meta := output.NewMeta(window.TotalCount, len(users), window.Offset, window.Limit)
	headers := []string{"ID", "LOGIN", "NAME", "MAIL", "STATUS"}
	rows := make([][]string, 0, len(users))
	for _, user := range users {
		rows = append(rows, []string{
			strconv.Itoa(user.ID),
			user.Login,
			user.FullName(),
			user.Mail,
			user.StatusDisplay(),
		})
	}
	return renderPage(users, meta, headers, rows)
}
