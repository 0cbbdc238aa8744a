// Package config resolves the server connection settings for a command
// invocation: CLI flags take precedence over environment variables,
// which take precedence over the active profile.
package config

import (
	"path/filepath"
	"time"
)

const (
	// AppDirName is the directory name used under the OS config and
	// cache roots.
	AppDirName = "rdm"

	// ProfilesFileName is the TOML profile store inside the config dir.
	ProfilesFileName = "profiles.toml"

	// DefaultTimeout bounds one request/response exchange.
	DefaultTimeout = 30 * time.Second

	// DefaultPageSize is the page size used for exhaustive fetches.
	DefaultPageSize = 100
)

// Value sources reported by `rdm config show`.
const (
	SourceFlag    = "flag"
	SourceEnv     = "env"
	SourceProfile = "profile"
	SourceDefault = "default"
)

// LogConfig represents logging configuration.
type LogConfig struct {
	Level         string `json:"level" mapstructure:"level"`
	EnableFile    bool   `json:"enable_file" mapstructure:"enable-file"`
	EnableConsole bool   `json:"enable_console" mapstructure:"enable-console"`
	Filename      string `json:"filename" mapstructure:"filename"`
	LogDir        string `json:"log_dir,omitempty" mapstructure:"log-dir"`
	MaxSize       int    `json:"max_size" mapstructure:"max-size"`       // MB
	MaxBackups    int    `json:"max_backups" mapstructure:"max-backups"` // files
	MaxAge        int    `json:"max_age" mapstructure:"max-age"`         // days
	Compress      bool   `json:"compress" mapstructure:"compress"`
	JSONFormat    bool   `json:"json_format" mapstructure:"json-format"`
}

// TracingSettings holds the OpenTelemetry export settings. Tracing is
// off unless explicitly enabled.
type TracingSettings struct {
	Enabled      bool    `json:"enabled" mapstructure:"enabled"`
	OTLPEndpoint string  `json:"otlp_endpoint" mapstructure:"otlp-endpoint"`
	SampleRate   float64 `json:"sample_rate" mapstructure:"sample-rate"`
}

// Resolved is the effective configuration for one invocation, with the
// origin of each connection value recorded for `rdm config show`.
type Resolved struct {
	URL    string `json:"url"`
	APIKey string `json:"-"`

	// Identity pins caches to this server account.
	Identity Identity `json:"identity"`

	// URLSource and APIKeySource are flag, env, profile or default.
	URLSource    string `json:"url_source"`
	APIKeySource string `json:"api_key_source"`

	// Profile is the profile the values came from, if any.
	Profile string `json:"profile,omitempty"`

	CacheDir     string          `json:"cache_dir"`
	ProfilesPath string          `json:"profiles_path"`
	Timeout      time.Duration   `json:"-"`
	PageSize     int             `json:"page_size"`
	Tracing      TracingSettings `json:"-"`
}

// RedactedAPIKey renders the key for display: enough to recognize,
// never enough to reuse.
func (r *Resolved) RedactedAPIKey() string {
	return Redact(r.APIKey)
}

// Redact masks a secret, keeping the first and last four characters
// when the value is long enough to stay unrecognizable.
func Redact(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// ProfilesPathIn returns the profile store path under the given config
// directory.
func ProfilesPathIn(configDir string) string {
	return filepath.Join(configDir, ProfilesFileName)
}
