package logs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/redmine-cli/rdm/internal/config"
)

func TestDefaultLogConfig(t *testing.T) {
	cfg := DefaultLogConfig()

	assert.Equal(t, LogLevelWarn, cfg.Level)
	assert.False(t, cfg.EnableFile)
	assert.True(t, cfg.EnableConsole)
	assert.Equal(t, "main.log", cfg.Filename)
	assert.True(t, cfg.Compress)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zap.DebugLevel, parseLevel(LogLevelTrace))
	assert.Equal(t, zap.DebugLevel, parseLevel(LogLevelDebug))
	assert.Equal(t, zap.InfoLevel, parseLevel(LogLevelInfo))
	assert.Equal(t, zap.WarnLevel, parseLevel(LogLevelWarn))
	assert.Equal(t, zap.ErrorLevel, parseLevel(LogLevelError))
	assert.Equal(t, zap.WarnLevel, parseLevel("bogus"))
}

func TestSetupLoggerRequiresAnOutput(t *testing.T) {
	_, err := SetupLogger(&config.LogConfig{Level: LogLevelInfo})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no log outputs configured")
}

func TestFileLoggerMasksAPIKey(t *testing.T) {
	logDir := t.TempDir()
	apiKey := "3f8a9b2c4d5e6f708192a3b4c5d6e7f890a1b2c3"

	logger, err := SetupLogger(&config.LogConfig{
		Level:         LogLevelDebug,
		EnableFile:    true,
		EnableConsole: false,
		Filename:      "test.log",
		LogDir:        logDir,
		MaxSize:       1,
		MaxBackups:    1,
		MaxAge:        1,
	})
	require.NoError(t, err)

	logger.Sugar().Debugw("sending request", "api_key", apiKey)
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(filepath.Join(logDir, "test.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), apiKey, "the raw key must never reach the log file")
}

func TestSanitizeStringMasksHexKeys(t *testing.T) {
	s := NewSecretSanitizer(zap.NewNop().Core())

	key := "3f8a9b2c4d5e6f708192a3b4c5d6e7f890a1b2c3"
	out := s.sanitizeString("using key " + key + " for request")

	assert.NotContains(t, out, key)
	assert.Contains(t, out, "3f8***c3")
}

func TestSanitizeStringLeavesShortHexAlone(t *testing.T) {
	s := NewSecretSanitizer(zap.NewNop().Core())

	// Short hex (request IDs, truncated digests) is not a credential.
	in := "cache fingerprint 3f8a9b2c4d5e"
	assert.Equal(t, in, s.sanitizeString(in))
}

func TestSanitizeStringMasksBearerTokens(t *testing.T) {
	s := NewSecretSanitizer(zap.NewNop().Core())

	out := s.sanitizeString("auth header Bearer abcdef123456789")
	assert.NotContains(t, out, "abcdef123456789")
	assert.True(t, strings.Contains(out, "Bearer abcd***"), "got %q", out)
}

func TestRegisteredSecretIsMasked(t *testing.T) {
	s := NewSecretSanitizer(zap.NewNop().Core())

	secret := "ODD-shaped_secret-Value-42"
	RegisterSecret(secret)
	t.Cleanup(func() { registeredSecrets.Delete(secret) })

	out := s.sanitizeString("loaded credential " + secret)
	assert.NotContains(t, out, secret)
}
