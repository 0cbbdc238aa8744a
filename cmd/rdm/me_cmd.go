package main

import (
	"github.com/spf13/cobra"
)

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the account behind the API key",
	Long: `Fetch the account the configured API key authenticates as.

Examples:
  rdm me
  rdm me --output=json`,
	RunE: runMe,
}

func runMe(_ *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := app.commandContext()
	defer cancel()

	user, err := app.client.CurrentUser(ctx)
	if err != nil {
		return err
	}

	var f fieldList
	f.addf("ID", "%d", user.ID)
	f.add("Login", user.Login)
	f.add("Name", user.FullName())
	f.add("Mail", user.Mail)
	if user.Admin {
		f.add("Admin", "yes")
	}
	f.add("Created", user.CreatedOn)
	f.add("Last login", user.LastLoginOn)
	return renderDetail(user, f.String())
}
