package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/fieldguide/internal/apperr"
)

// Config holds the full application configuration.
type Config struct {
	INaturalist INaturalistConfig `yaml:"inaturalist" mapstructure:"inaturalist"`
	Vision      VisionConfig      `yaml:"vision" mapstructure:"vision"`
	Matcher     MatcherConfig     `yaml:"matcher" mapstructure:"matcher"`
	History     HistoryConfig     `yaml:"history" mapstructure:"history"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// INaturalistConfig configures the observation database client.
type INaturalistConfig struct {
	APIKey         string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit      float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	PerPage        int     `yaml:"per_page" mapstructure:"per_page"`
	NearbyRadiusKm float64 `yaml:"nearby_radius_km" mapstructure:"nearby_radius_km"`
	MaxRetries     int     `yaml:"max_retries" mapstructure:"max_retries"`
}

// Timeout returns the per-call timeout.
func (c INaturalistConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Vision providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// VisionConfig configures the vision model backend and its model cascade.
type VisionConfig struct {
	Provider     string   `yaml:"provider" mapstructure:"provider"`
	APIKey       string   `yaml:"api_key" mapstructure:"api_key"`
	BaseURL      string   `yaml:"base_url" mapstructure:"base_url"`
	Models       []string `yaml:"models" mapstructure:"models"`
	MaxTokens    int64    `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs  int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLSecs int      `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
}

// Timeout returns the per-call timeout.
func (c VisionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// MatcherConfig tunes candidate matching.
type MatcherConfig struct {
	MaxTaxa              int    `yaml:"max_taxa" mapstructure:"max_taxa"`
	MaxSuggestions       int    `yaml:"max_suggestions" mapstructure:"max_suggestions"`
	ObservationsPerTaxon int    `yaml:"observations_per_taxon" mapstructure:"observations_per_taxon"`
	SearchPerPage        int    `yaml:"search_per_page" mapstructure:"search_per_page"`
	CallTimeoutSecs      int    `yaml:"call_timeout_secs" mapstructure:"call_timeout_secs"`
	AIOverride           string `yaml:"ai_override" mapstructure:"ai_override"`
	KnownSpeciesFile     string `yaml:"known_species_file" mapstructure:"known_species_file"`
}

// History drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// HistoryConfig configures the identification history store.
type HistoryConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxRecords  int    `yaml:"max_records" mapstructure:"max_records"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	MaxUploadMB int      `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FIELDGUIDE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default to empty so AutomaticEnv can bind them.
	v.SetDefault("inaturalist.api_key", "")
	v.SetDefault("vision.api_key", "")
	v.SetDefault("matcher.known_species_file", "")
	v.SetDefault("inaturalist.base_url", "https://api.inaturalist.org/v1")
	v.SetDefault("inaturalist.timeout_secs", 15)
	v.SetDefault("inaturalist.rate_limit", 5.0)
	v.SetDefault("inaturalist.per_page", 10)
	v.SetDefault("inaturalist.nearby_radius_km", 50.0)
	v.SetDefault("inaturalist.max_retries", 2)
	v.SetDefault("vision.provider", ProviderOpenAI)
	v.SetDefault("vision.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("vision.models", []string{"google/gemini-2.0-flash-001", "meta-llama/llama-3.2-90b-vision-instruct"})
	v.SetDefault("vision.max_tokens", 1000)
	v.SetDefault("vision.timeout_secs", 60)
	v.SetDefault("vision.cache_ttl_secs", 600)
	v.SetDefault("matcher.max_taxa", 20)
	v.SetDefault("matcher.max_suggestions", 10)
	v.SetDefault("matcher.observations_per_taxon", 30)
	v.SetDefault("matcher.search_per_page", 10)
	v.SetDefault("matcher.call_timeout_secs", 15)
	v.SetDefault("matcher.ai_override", "more_specific")
	v.SetDefault("history.driver", DriverSQLite)
	v.SetDefault("history.database_url", "fieldguide.db")
	v.SetDefault("history.max_records", 100)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.max_upload_mb", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields required by a command mode. All problems are
// reported together in a single config error.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "identify":
		errs = append(errs, c.validateINaturalist()...)
		errs = append(errs, c.validateVision()...)
		errs = append(errs, c.validateMatcher()...)
	case "serve":
		errs = append(errs, c.validateINaturalist()...)
		errs = append(errs, c.validateVision()...)
		errs = append(errs, c.validateMatcher()...)
		errs = append(errs, c.validateHistory()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.MaxUploadMB <= 0 {
			errs = append(errs, "server.max_upload_mb must be > 0")
		}
	case "collect":
		errs = append(errs, c.validateINaturalist()...)
	case "history":
		errs = append(errs, c.validateHistory()...)
	default:
		return apperr.Newf(apperr.KindConfig, "unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return apperr.New(apperr.KindConfig, "invalid configuration: "+strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateINaturalist() []string {
	var errs []string
	if c.INaturalist.APIKey == "" {
		errs = append(errs, "inaturalist.api_key is required")
	}
	if c.INaturalist.BaseURL == "" {
		errs = append(errs, "inaturalist.base_url is required")
	}
	if c.INaturalist.PerPage < 1 || c.INaturalist.PerPage > 200 {
		errs = append(errs, "inaturalist.per_page must be between 1 and 200")
	}
	return errs
}

func (c *Config) validateVision() []string {
	var errs []string
	switch c.Vision.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
	default:
		errs = append(errs, fmt.Sprintf("vision.provider %q must be one of openai, anthropic, gemini", c.Vision.Provider))
	}
	if c.Vision.APIKey == "" {
		errs = append(errs, "vision.api_key is required")
	}
	if len(c.Vision.Models) < 1 || len(c.Vision.Models) > 2 {
		errs = append(errs, "vision.models must list a primary and at most one backup model")
	}
	if c.Vision.MaxTokens <= 0 {
		errs = append(errs, "vision.max_tokens must be > 0")
	}
	return errs
}

func (c *Config) validateMatcher() []string {
	var errs []string
	if c.Matcher.MaxTaxa < 1 || c.Matcher.MaxTaxa > 20 {
		errs = append(errs, "matcher.max_taxa must be between 1 and 20")
	}
	if c.Matcher.MaxSuggestions < 1 || c.Matcher.MaxSuggestions > 10 {
		errs = append(errs, "matcher.max_suggestions must be between 1 and 10")
	}
	if c.Matcher.ObservationsPerTaxon < 1 || c.Matcher.ObservationsPerTaxon > 200 {
		errs = append(errs, "matcher.observations_per_taxon must be between 1 and 200")
	}
	switch c.Matcher.AIOverride {
	case "off", "more_specific", "always":
	default:
		errs = append(errs, fmt.Sprintf("matcher.ai_override %q must be one of off, more_specific, always", c.Matcher.AIOverride))
	}
	return errs
}

func (c *Config) validateHistory() []string {
	var errs []string
	switch c.History.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.History.DatabaseURL == "" {
			errs = append(errs, "history.database_url is required for "+c.History.Driver)
		}
	default:
		errs = append(errs, fmt.Sprintf("history.driver %q must be one of memory, sqlite, postgres", c.History.Driver))
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
