package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/fieldguide/internal/apperr"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.inaturalist.org/v1", cfg.INaturalist.BaseURL)
	assert.Equal(t, 15, cfg.INaturalist.TimeoutSecs)
	assert.Equal(t, 10, cfg.INaturalist.PerPage)
	assert.InDelta(t, 50.0, cfg.INaturalist.NearbyRadiusKm, 0.001)
	assert.Equal(t, ProviderOpenAI, cfg.Vision.Provider)
	assert.Len(t, cfg.Vision.Models, 2)
	assert.Equal(t, int64(1000), cfg.Vision.MaxTokens)
	assert.Equal(t, 20, cfg.Matcher.MaxTaxa)
	assert.Equal(t, 10, cfg.Matcher.MaxSuggestions)
	assert.Equal(t, 30, cfg.Matcher.ObservationsPerTaxon)
	assert.Equal(t, "more_specific", cfg.Matcher.AIOverride)
	assert.Equal(t, DriverSQLite, cfg.History.Driver)
	assert.Equal(t, 100, cfg.History.MaxRecords)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
vision:
  provider: anthropic
  models:
    - claude-sonnet-4-5-20250929
    - claude-haiku-4-5-20251001
history:
  driver: memory
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderAnthropic, cfg.Vision.Provider)
	assert.Equal(t, []string{"claude-sonnet-4-5-20250929", "claude-haiku-4-5-20251001"}, cfg.Vision.Models)
	assert.Equal(t, DriverMemory, cfg.History.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 20, cfg.Matcher.MaxTaxa)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  level: debug\n"), 0644))
	t.Setenv("FIELDGUIDE_LOG_LEVEL", "warn")
	t.Setenv("FIELDGUIDE_INATURALIST_API_KEY", "inat-token")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "inat-token", cfg.INaturalist.APIKey)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FIELDGUIDE_VISION_API_KEY=from-dotenv\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("FIELDGUIDE_VISION_API_KEY") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Vision.APIKey)
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
	cfg.INaturalist.APIKey = "inat-token"
	cfg.INaturalist.BaseURL = "https://api.inaturalist.org/v1"
	cfg.INaturalist.PerPage = 10
	cfg.Vision.Provider = ProviderOpenAI
	cfg.Vision.APIKey = "sk-or-key"
	cfg.Vision.Models = []string{"primary", "backup"}
	cfg.Vision.MaxTokens = 1000
	cfg.Matcher.MaxTaxa = 20
	cfg.Matcher.MaxSuggestions = 10
	cfg.Matcher.ObservationsPerTaxon = 30
	cfg.Matcher.AIOverride = "more_specific"
	cfg.History.Driver = DriverMemory
	cfg.Server.Port = 8080
	cfg.Server.MaxUploadMB = 10
	return cfg
}

func TestValidateIdentify_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("identify"))
}

func TestValidateIdentify_MissingCredentials(t *testing.T) {
	cfg := validDefaults()
	cfg.INaturalist.APIKey = ""
	cfg.Vision.APIKey = ""

	err := cfg.Validate("identify")
	require.Error(t, err)
	assert.Equal(t, apperr.KindConfig, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "inaturalist.api_key is required")
	assert.Contains(t, err.Error(), "vision.api_key is required")
}

func TestValidateVisionModels(t *testing.T) {
	cfg := validDefaults()
	cfg.Vision.Models = nil
	assert.ErrorContains(t, cfg.Validate("identify"), "vision.models")

	cfg.Vision.Models = []string{"a", "b", "c"}
	assert.ErrorContains(t, cfg.Validate("identify"), "vision.models")

	cfg.Vision.Models = []string{"only-primary"}
	assert.NoError(t, cfg.Validate("identify"))
}

func TestValidateVisionProvider(t *testing.T) {
	cfg := validDefaults()
	cfg.Vision.Provider = "mistral"
	assert.ErrorContains(t, cfg.Validate("identify"), "vision.provider")
}

func TestValidateMatcherBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Matcher.MaxTaxa = 21
	assert.ErrorContains(t, cfg.Validate("identify"), "matcher.max_taxa must be between 1 and 20")

	cfg = validDefaults()
	cfg.Matcher.MaxSuggestions = 0
	assert.ErrorContains(t, cfg.Validate("identify"), "matcher.max_suggestions")

	cfg = validDefaults()
	cfg.Matcher.AIOverride = "sometimes"
	assert.ErrorContains(t, cfg.Validate("identify"), "matcher.ai_override")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateHistory_DatabaseURL(t *testing.T) {
	cfg := validDefaults()
	cfg.History.Driver = DriverPostgres
	assert.ErrorContains(t, cfg.Validate("history"), "history.database_url is required for postgres")

	cfg.History.DatabaseURL = "postgres://localhost/fieldguide"
	assert.NoError(t, cfg.Validate("history"))

	cfg.History.Driver = "mongo"
	assert.ErrorContains(t, cfg.Validate("history"), "history.driver")
}

func TestValidateCollect_OnlyNeedsINaturalist(t *testing.T) {
	cfg := validDefaults()
	cfg.Vision = VisionConfig{}
	assert.NoError(t, cfg.Validate("collect"))

	cfg.INaturalist.APIKey = ""
	assert.ErrorContains(t, cfg.Validate("collect"), "inaturalist.api_key")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
