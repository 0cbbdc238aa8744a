package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// HelpInfo is the machine-readable description of one command: what it
// does, its flags, and its immediate subcommands.
type HelpInfo struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Usage       string        `json:"usage"`
	Flags       []FlagInfo    `json:"flags,omitempty"`
	Commands    []CommandInfo `json:"commands,omitempty"`
}

// CommandInfo describes a subcommand in a HelpInfo listing.
type CommandInfo struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Usage          string `json:"usage"`
	HasSubcommands bool   `json:"has_subcommands,omitempty"`
}

// FlagInfo describes one flag: its names, type, and default.
type FlagInfo struct {
	Name        string `json:"name"`
	Shorthand   string `json:"shorthand,omitempty"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Default     string `json:"default,omitempty"`
}

// ExtractHelpInfo builds a HelpInfo from a cobra command, covering its
// local and inherited flags and its visible subcommands.
func ExtractHelpInfo(cmd *cobra.Command) HelpInfo {
	info := HelpInfo{
		Name:        cmd.Name(),
		Description: cmd.Short,
		Usage:       cmd.UseLine(),
	}

	collect := func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		info.Flags = append(info.Flags, FlagInfo{
			Name:        f.Name,
			Shorthand:   f.Shorthand,
			Description: f.Usage,
			Type:        f.Value.Type(),
			Default:     f.DefValue,
		})
	}
	cmd.LocalFlags().VisitAll(collect)
	cmd.InheritedFlags().VisitAll(collect)

	for _, sub := range cmd.Commands() {
		if sub.Hidden || !sub.IsAvailableCommand() {
			continue
		}
		info.Commands = append(info.Commands, CommandInfo{
			Name:           sub.Name(),
			Description:    sub.Short,
			Usage:          sub.UseLine(),
			HasSubcommands: len(sub.Commands()) > 0,
		})
	}

	return info
}

// printHelpJSON writes the command's structured help to stdout.
func printHelpJSON(cmd *cobra.Command) error {
	info := ExtractHelpInfo(cmd)
	out, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal help info: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// SetupHelpJSON adds a --help-json flag to the command tree. Any
// command invoked with it prints structured help instead of running.
func SetupHelpJSON(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().Bool("help-json", false, "Output help information as JSON")

	wrapped := rootCmd.PersistentPreRunE
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if helpJSON, _ := cmd.Flags().GetBool("help-json"); helpJSON {
			if err := printHelpJSON(cmd); err != nil {
				return err
			}
			os.Exit(0)
		}
		if wrapped != nil {
			return wrapped(cmd, args)
		}
		return nil
	}

	fillGroupCommands(rootCmd)
}

// fillGroupCommands gives group commands (those without a Run of their
// own) a RunE so --help-json works on them too; without the flag they
// print normal help.
func fillGroupCommands(cmd *cobra.Command) {
	if cmd.Run == nil && cmd.RunE == nil {
		cmd.RunE = func(c *cobra.Command, _ []string) error {
			if helpJSON, _ := c.Flags().GetBool("help-json"); helpJSON {
				return printHelpJSON(c)
			}
			return c.Help()
		}
	}
	for _, sub := range cmd.Commands() {
		fillGroupCommands(sub)
	}
}
