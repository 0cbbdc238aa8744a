package main

import (
	"github.com/spf13/cobra"

	"github.com/redmine-cli/rdm/internal/config"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration and where each value came from",
		Long: `Show the configuration this invocation would run with: the server
URL, the (redacted) API key, and the source each value was resolved
from (flag, environment, or profile).

Examples:
  rdm config show
  rdm config show --profile staging
  rdm config show --output=json`,
		RunE: runConfigShow,
	}
)

func init() {
	configCmd.AddCommand(configShowCmd)
}

// configView carries only what is safe to print; the API key appears
// redacted in every format.
type configView struct {
	URL            string `json:"url" yaml:"url"`
	URLSource      string `json:"url_source" yaml:"url_source"`
	APIKey         string `json:"api_key" yaml:"api_key"`
	APIKeySource   string `json:"api_key_source" yaml:"api_key_source"`
	Profile        string `json:"profile,omitempty" yaml:"profile,omitempty"`
	Fingerprint    string `json:"fingerprint" yaml:"fingerprint"`
	Timeout        string `json:"timeout" yaml:"timeout"`
	PageSize       int    `json:"page_size" yaml:"page_size"`
	CacheDir       string `json:"cache_dir" yaml:"cache_dir"`
	ProfilesPath   string `json:"profiles_path" yaml:"profiles_path"`
	TracingEnabled bool   `json:"tracing_enabled" yaml:"tracing_enabled"`
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	cfg, err := config.Resolve(config.Overrides{
		URL:     serverURL,
		APIKey:  apiKey,
		Profile: profileName,
	})
	if err != nil {
		return err
	}

	view := configView{
		URL:            cfg.URL,
		URLSource:      cfg.URLSource,
		APIKey:         cfg.RedactedAPIKey(),
		APIKeySource:   cfg.APIKeySource,
		Profile:        cfg.Profile,
		Fingerprint:    cfg.Identity.Short(),
		Timeout:        cfg.Timeout.String(),
		PageSize:       cfg.PageSize,
		CacheDir:       cfg.CacheDir,
		ProfilesPath:   cfg.ProfilesPath,
		TracingEnabled: cfg.Tracing.Enabled,
	}

	var f fieldList
	f.addf("URL", "%s (%s)", view.URL, view.URLSource)
	f.addf("API key", "%s (%s)", view.APIKey, view.APIKeySource)
	f.add("Profile", view.Profile)
	f.add("Fingerprint", view.Fingerprint)
	f.add("Timeout", view.Timeout)
	f.addf("Page size", "%d", view.PageSize)
	f.add("Cache dir", view.CacheDir)
	f.add("Profiles", view.ProfilesPath)
	if view.TracingEnabled {
		f.add("Tracing", "enabled")
	}
	return renderDetail(view, f.String())
}
