package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/redmine-cli/rdm/internal/apperrors"
	"github.com/redmine-cli/rdm/internal/cli/output"
)

var (
	serverURL   string
	apiKey      string
	profileName string
	outputFlag  string
	jsonOutput  bool
	logLevel    string
	logToFile   bool
	logDir      string

	version = "v0.1.0" // This will be injected by -ldflags during build
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rdm",
		Short: "Command-line client for Redmine",
		Long: `rdm talks to a Redmine server over its REST API: projects, issues,
time entries, and the accounts behind them.

Connection settings come from flags, the RDM_URL/RDM_API_KEY environment
variables, or a named profile (see 'rdm profile'). Output is a table by
default; use --output=json or --output=yaml for scripting.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "url", "", "Redmine server URL (overrides RDM_URL and the active profile)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "Redmine API key (overrides RDM_API_KEY and the active profile)")
	rootCmd.PersistentFlags().StringVarP(&profileName, "profile", "p", "", "Named profile to use instead of the active one")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", "", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Shorthand for --output=json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logToFile, "log-to-file", false, "Enable logging to file in standard OS location")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Custom log directory path (overrides standard OS location)")
	rootCmd.MarkFlagsMutuallyExclusive("output", "json")

	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(meCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(timeCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(versionCmd)

	output.SetupHelpJSON(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		renderCommandError(err)
		os.Exit(apperrors.ExitCode(err))
	}
}

// renderCommandError prints the failure in the requested format.
// Structured formats go to stdout so scripts can parse them; the human
// rendering goes to stderr.
func renderCommandError(err error) {
	structured := output.FromError(err)
	if structured.RecoveryCommand == "" {
		if recovery := recoveryFor(structured.Code); recovery != "" {
			structured = structured.WithRecoveryCommand(recovery)
		}
	}

	format := ResolveOutputFormat()
	formatter, ferr := output.NewFormatter(format)
	if ferr != nil {
		formatter, _ = output.NewFormatter("")
	}

	rendered, rerr := formatter.FormatError(structured)
	if rerr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	if format == "json" || format == "yaml" {
		printPayload(rendered)
		return
	}
	fmt.Fprint(os.Stderr, rendered)
}

// recoveryFor suggests a follow-up command for common failure classes.
func recoveryFor(code string) string {
	switch code {
	case apperrors.AuthConfig.Code():
		return "rdm config show"
	case apperrors.Network.Code():
		return "rdm ping"
	}
	return ""
}
