package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/redmine-cli/rdm/internal/apperrors"
)

// Overrides carries the connection values taken from CLI flags. Empty
// fields fall through to the environment and the active profile.
type Overrides struct {
	URL     string
	APIKey  string
	Profile string
}

// setupViper configures the environment binding and defaults.
func setupViper() {
	viper.SetEnvPrefix("RDM")
	viper.AutomaticEnv()

	// RDM_CACHE_DIR, RDM_TRACING_OTLP_ENDPOINT and friends.
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault("url", "")
	viper.SetDefault("api-key", "")
	viper.SetDefault("config-dir", "")
	viper.SetDefault("cache-dir", "")
	viper.SetDefault("timeout", int(DefaultTimeout/time.Second))
	viper.SetDefault("page-size", DefaultPageSize)

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.otlp-endpoint", "")
	viper.SetDefault("tracing.sample-rate", 1.0)
}

// ConfigDir returns the directory holding the profile store,
// honoring RDM_CONFIG_DIR.
func ConfigDir() (string, error) {
	if dir := viper.GetString("config-dir"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, AppDirName), nil
}

// CacheDir returns the directory holding cached server data, honoring
// RDM_CACHE_DIR.
func CacheDir() (string, error) {
	if dir := viper.GetString("cache-dir"); dir != "" {
		return dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user cache directory: %w", err)
	}
	return filepath.Join(base, AppDirName), nil
}

// Resolve builds the effective configuration for one invocation.
// Precedence per value: CLI flag, then environment, then the selected
// profile. A missing URL or API key fails here, before any network
// call.
func Resolve(overrides Overrides) (*Resolved, error) {
	// Optional .env bootstrap; real environment variables win.
	_ = godotenv.Load()

	setupViper()

	configDir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	cacheDir, err := CacheDir()
	if err != nil {
		return nil, err
	}

	store, err := LoadProfiles(ProfilesPathIn(configDir))
	if err != nil {
		return nil, err
	}

	profileName := overrides.Profile
	if profileName == "" {
		profileName = store.Active
	}

	var profile Profile
	if profileName != "" {
		p, ok := store.Get(profileName)
		if !ok && overrides.Profile != "" {
			return nil, unknownProfileError(profileName, store.Names())
		}
		profile = p
	}

	resolved := &Resolved{
		Profile:      profileName,
		CacheDir:     cacheDir,
		ProfilesPath: store.Path(),
		Timeout:      time.Duration(viper.GetInt("timeout")) * time.Second,
		PageSize:     viper.GetInt("page-size"),
		Tracing: TracingSettings{
			Enabled:      viper.GetBool("tracing.enabled"),
			OTLPEndpoint: viper.GetString("tracing.otlp-endpoint"),
			SampleRate:   viper.GetFloat64("tracing.sample-rate"),
		},
	}

	resolved.URL, resolved.URLSource = pickValue(overrides.URL, viper.GetString("url"), profile.URL)
	if resolved.URL == "" {
		return nil, apperrors.New(apperrors.AuthConfig, "no server URL configured").
			WithHint("Set RDM_URL, pass --url, or add a profile with 'rdm profile add <name> --url <url> --api-key <key>'.")
	}
	if err := validateURL(resolved.URL); err != nil {
		return nil, err
	}

	profileKey := profile.APIKey
	if profile.UseKeyring && profileName != "" {
		// Only consult the keyring when neither flag nor env supplies
		// the key.
		if overrides.APIKey == "" && viper.GetString("api-key") == "" {
			secret, err := LookupKeyringSecret(profileName)
			if err != nil {
				return nil, err
			}
			profileKey = secret
		}
	}

	resolved.APIKey, resolved.APIKeySource = pickValue(overrides.APIKey, viper.GetString("api-key"), profileKey)
	if resolved.APIKey == "" {
		return nil, apperrors.New(apperrors.AuthConfig, "no API key configured").
			WithHint("Set RDM_API_KEY, pass --api-key, or add a profile with 'rdm profile add'. Your key is under 'My account' on the server.")
	}

	resolved.URL = strings.TrimRight(resolved.URL, "/")
	resolved.Identity = NewIdentity(resolved.URL, resolved.APIKey)

	if resolved.PageSize <= 0 {
		resolved.PageSize = DefaultPageSize
	}
	if resolved.Timeout <= 0 {
		resolved.Timeout = DefaultTimeout
	}

	return resolved, nil
}

// pickValue applies the flag > env > profile precedence for one value.
func pickValue(flag, env, profile string) (value, source string) {
	switch {
	case flag != "":
		return flag, SourceFlag
	case env != "":
		return env, SourceEnv
	case profile != "":
		return profile, SourceProfile
	}
	return "", SourceDefault
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return apperrors.New(apperrors.AuthConfig, "invalid server URL %q", raw).
			WithHint("The URL must start with http:// or https://, e.g. https://redmine.example.com.")
	}
	return nil
}
