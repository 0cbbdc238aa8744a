package main

import (
	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check connectivity and credentials",
	Long: `Ping the configured Redmine server and verify that the API key is
accepted.

Examples:
  rdm ping
  rdm ping --profile staging
  rdm ping --output=json`,
	RunE: runPing,
}

func runPing(_ *cobra.Command, _ []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := app.commandContext()
	defer cancel()

	result, err := app.client.Ping(ctx)
	if err != nil {
		return err
	}
	return renderMessage(result, "%s %s (%d ms)", result.Status, result.URL, result.ElapsedMS)
}
