package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/redmine-cli/rdm/internal/apperrors"
	"github.com/redmine-cli/rdm/internal/config"
	"github.com/redmine-cli/rdm/internal/prompt"
)

var (
	profileCmd = &cobra.Command{
		Use:   "profile",
		Short: "Manage named server profiles",
		Long:  "Commands for managing stored Redmine connections: server URL, API key, and which profile is active.",
	}

	profileAddCmd = &cobra.Command{
		Use:   "add <name>",
		Short: "Add or update a profile",
		Long: `Add a named profile. The API key can be passed with --api-key or
entered at a hidden prompt. With --keyring the key is stored in the OS
keyring and never written to the profile file.

The first profile added becomes the active one.

Examples:
  rdm profile add work --url https://redmine.example.com --api-key 1234abcd
  rdm profile add work --url https://redmine.example.com --keyring
  rdm profile add staging --url https://staging.example.com --use`,
		Args: cobra.ExactArgs(1),
		RunE: runProfileAdd,
	}

	profileUseCmd = &cobra.Command{
		Use:   "use <name>",
		Short: "Make a profile the active one",
		Args:  cobra.ExactArgs(1),
		RunE:  runProfileUse,
	}

	profileListCmd = &cobra.Command{
		Use:   "list",
		Short: "List stored profiles",
		RunE:  runProfileList,
	}

	profileDeleteCmd = &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a profile",
		Long: `Delete a stored profile. Keys stored in the OS keyring are removed
with it.

Examples:
  rdm profile delete old-server
  rdm profile delete old-server --yes`,
		Args: cobra.ExactArgs(1),
		RunE: runProfileDelete,
	}

	profileAddURL     string
	profileAddKey     string
	profileAddKeyring bool
	profileAddUse     bool
	profileDeleteYes  bool
)

func init() {
	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileUseCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileDeleteCmd)

	profileAddCmd.Flags().StringVar(&profileAddURL, "url", "", "Server URL for this profile (required)")
	profileAddCmd.Flags().StringVar(&profileAddKey, "api-key", "", "API key for this profile (prompted for if omitted)")
	profileAddCmd.Flags().BoolVar(&profileAddKeyring, "keyring", false, "Store the API key in the OS keyring instead of the profile file")
	profileAddCmd.Flags().BoolVar(&profileAddUse, "use", false, "Make this profile the active one")

	profileDeleteCmd.Flags().BoolVarP(&profileDeleteYes, "yes", "y", false, "Skip confirmation prompt")
}

// profileView is the scrubbed projection of one stored profile; the
// API key itself never leaves the store unredacted.
type profileView struct {
	Name       string `json:"name" yaml:"name"`
	URL        string `json:"url" yaml:"url"`
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	UseKeyring bool   `json:"use_keyring,omitempty" yaml:"use_keyring,omitempty"`
	Active     bool   `json:"active" yaml:"active"`
}

func newProfileView(name string, p config.Profile, active bool) profileView {
	return profileView{
		Name:       name,
		URL:        p.URL,
		APIKey:     config.Redact(p.APIKey),
		UseKeyring: p.UseKeyring,
		Active:     active,
	}
}

func loadProfileStore() (*config.ProfileStore, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	return config.LoadProfiles(config.ProfilesPathIn(dir))
}

func runProfileAdd(_ *cobra.Command, args []string) error {
	name := args[0]
	if profileAddURL == "" {
		return apperrors.New(apperrors.Validation, "profile %q needs a server URL", name).
			WithHint("Pass it with --url, e.g. --url https://redmine.example.com.")
	}

	key := profileAddKey
	if key == "" {
		secret, err := prompt.NewConsolePrompter().PromptSecret(fmt.Sprintf("API key for %q: ", name))
		if err != nil {
			return apperrors.Wrap(apperrors.Validation, err, "failed to read API key")
		}
		key = strings.TrimSpace(secret)
	}
	if key == "" {
		return apperrors.New(apperrors.Validation, "profile %q needs an API key", name).
			WithHint("Pass it with --api-key or enter it at the prompt.")
	}

	store, err := loadProfileStore()
	if err != nil {
		return err
	}

	p := config.Profile{URL: profileAddURL}
	if profileAddKeyring {
		if err := config.StoreKeyringSecret(name, key); err != nil {
			return err
		}
		p.UseKeyring = true
	} else {
		p.APIKey = key
	}

	if err := store.Add(name, p); err != nil {
		return err
	}
	if profileAddUse {
		if err := store.Use(name); err != nil {
			return err
		}
	}
	if err := store.Save(); err != nil {
		return err
	}

	view := newProfileView(name, p, store.Active == name)
	suffix := ""
	if view.Active {
		suffix = ", active"
	}
	return renderMessage(view, "Saved profile %q (%s%s)", name, p.URL, suffix)
}

func runProfileUse(_ *cobra.Command, args []string) error {
	name := args[0]

	store, err := loadProfileStore()
	if err != nil {
		return err
	}
	if err := store.Use(name); err != nil {
		return err
	}
	if err := store.Save(); err != nil {
		return err
	}

	p, _ := store.Get(name)
	return renderMessage(newProfileView(name, p, true), "Active profile is now %q", name)
}

func runProfileList(_ *cobra.Command, _ []string) error {
	store, err := loadProfileStore()
	if err != nil {
		return err
	}

	names := store.Names()
	views := make([]profileView, 0, len(names))
	for _, name := range names {
		p, _ := store.Get(name)
		views = append(views, newProfileView(name, p, name == store.Active))
	}

	format := ResolveOutputFormat()
	formatter, err := GetOutputFormatter()
	if err != nil {
		return err
	}

	if format == "json" || format == "yaml" {
		result, err := formatter.Format(views)
		if err != nil {
			return err
		}
		printPayload(result)
		return nil
	}

	if len(views) == 0 {
		fmt.Println("No profiles stored. Add one with 'rdm profile add <name> --url <url> --api-key <key>'.")
		return nil
	}

	headers := []string{"NAME", "URL", "API KEY", "ACTIVE"}
	rows := make([][]string, 0, len(views))
	for _, v := range views {
		keyCell := v.APIKey
		if v.UseKeyring {
			keyCell = "(keyring)"
		}
		activeCell := ""
		if v.Active {
			activeCell = "*"
		}
		rows = append(rows, []string{v.Name, v.URL, keyCell, activeCell})
	}

	table, err := formatter.FormatTable(headers, rows)
	if err != nil {
		return err
	}
	fmt.Print(table)
	return nil
}

func runProfileDelete(_ *cobra.Command, args []string) error {
	name := args[0]

	store, err := loadProfileStore()
	if err != nil {
		return err
	}
	if _, ok := store.Get(name); !ok {
		// Let Delete produce the not-found error with its hint.
		_, err := store.Delete(name)
		return err
	}

	if !profileDeleteYes {
		confirmed, err := prompt.NewConsolePrompter().PromptConfirm(fmt.Sprintf("Delete profile %q?", name))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Cancelled")
			return nil
		}
	}

	usedKeyring, err := store.Delete(name)
	if err != nil {
		return err
	}
	if usedKeyring {
		if err := config.DeleteKeyringSecret(name); err != nil {
			return err
		}
	}
	if err := store.Save(); err != nil {
		return err
	}

	return renderMessage(map[string]interface{}{"deleted": name}, "Deleted profile %q", name)
}
