package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "claims.db", cfg.Store.SQLitePath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.ProModel)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta", cfg.Gemini.BaseURL)
	assert.Equal(t, 60, cfg.Oracles.CallTimeoutSecs)
	assert.Equal(t, 300, cfg.Oracles.ClaimTimeoutSecs)
	assert.Equal(t, 10, cfg.Oracles.FanOutLimit)
	assert.Equal(t, 3, cfg.Oracles.RetryMaxAttempts)
	assert.Equal(t, 500, cfg.Oracles.RetryBackoffMs)
	assert.Equal(t, []string{"gemini", "openai"}, cfg.Oracles.ExtractProviders)
	assert.InDelta(t, 0.5, cfg.Catalog.MatchThreshold, 0.001)
	assert.Equal(t, 1, cfg.Catalog.CacheTTLHours)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/claims
log:
  level: debug
  format: console
oracles:
  fan_out_limit: 4
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Oracles.FanOutLimit)
	// Defaults still apply for unset values
	assert.Equal(t, 60, cfg.Oracles.CallTimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("MEDICLAIM_STORE_DRIVER", "sqlite")
	t.Setenv("MEDICLAIM_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("MEDICLAIM_ORACLES_CLAIM_TIMEOUT_SECS", "120")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Oracles.ClaimTimeoutSecs)
}

func TestTimeoutHelpers(t *testing.T) {
	c := OraclesConfig{CallTimeoutSecs: 30, ClaimTimeoutSecs: 300}
	assert.Equal(t, "30s", c.CallTimeout().String())
	assert.Equal(t, "5m0s", c.ClaimTimeout().String())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = "claims.db"
	cfg.Oracles.CallTimeoutSecs = 60
	cfg.Oracles.ClaimTimeoutSecs = 300
	cfg.Oracles.FanOutLimit = 10
	cfg.Oracles.ExtractProviders = []string{"gemini", "openai"}
	cfg.Catalog.MatchThreshold = 0.5
	return cfg
}

func TestValidateAdjudicate_AllPresent(t *testing.T) {
	cfg := validDefaults()
	cfg.Gemini.Key = "AIza-key"
	cfg.OpenAI.Key = "sk-key"

	assert.NoError(t, cfg.Validate("adjudicate"))
}

func TestValidateAdjudicate_MissingKeys(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("adjudicate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini.key is required")
	assert.Contains(t, err.Error(), "openai.key is required")
}

func TestValidateExtract_UnknownProvider(t *testing.T) {
	cfg := validDefaults()
	cfg.Gemini.Key = "AIza-key"
	cfg.OpenAI.Key = "sk-key"
	cfg.Oracles.ExtractProviders = append(cfg.Oracles.ExtractProviders, "bard")

	err := cfg.Validate("extract")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown extract provider bard")
}

func TestValidateClaims_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("claims")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/claims"
	assert.NoError(t, cfg.Validate("claims"))
}

func TestValidateBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Oracles.FanOutLimit = 0
	err := cfg.Validate("claims")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fan_out_limit must be between 1 and 100")

	cfg = validDefaults()
	cfg.Catalog.MatchThreshold = 1.5
	err = cfg.Validate("claims")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "match_threshold")

	cfg = validDefaults()
	cfg.Oracles.CallTimeoutSecs = 0
	err = cfg.Validate("claims")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "call_timeout_secs")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
