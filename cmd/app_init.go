package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	googleoption "google.golang.org/api/option"

	"github.com/sells-group/fieldguide/internal/config"
	"github.com/sells-group/fieldguide/internal/extract"
	"github.com/sells-group/fieldguide/internal/format"
	"github.com/sells-group/fieldguide/internal/history"
	"github.com/sells-group/fieldguide/internal/identify"
	"github.com/sells-group/fieldguide/internal/matcher"
	"github.com/sells-group/fieldguide/internal/resilience"
	"github.com/sells-group/fieldguide/internal/taxa"
	anthropicpkg "github.com/sells-group/fieldguide/pkg/anthropic"
	"github.com/sells-group/fieldguide/pkg/gemini"
	"github.com/sells-group/fieldguide/pkg/inaturalist"
	"github.com/sells-group/fieldguide/pkg/openai"
	"github.com/sells-group/fieldguide/pkg/vision"
)

// appEnv holds the initialized clients and services needed by the
// identify and serve commands.
type appEnv struct {
	Taxa     *taxa.Client
	History  history.Store // nil when history is not needed
	Identify *identify.Service
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.History != nil {
		_ = e.History.Close()
	}
}

// initTaxa builds the observation database client.
func initTaxa(c *config.Config) (*taxa.Client, error) {
	opts := []inaturalist.Option{
		inaturalist.WithBaseURL(c.INaturalist.BaseURL),
		inaturalist.WithRateLimit(c.INaturalist.RateLimit),
	}
	if t := c.INaturalist.Timeout(); t > 0 {
		opts = append(opts, inaturalist.WithTimeout(t))
	}
	api := inaturalist.NewClient(c.INaturalist.APIKey, opts...)

	return taxa.New(api, taxa.Config{
		APIKey:         c.INaturalist.APIKey,
		PerPage:        c.INaturalist.PerPage,
		NearbyRadiusKm: c.INaturalist.NearbyRadiusKm,
		Retry:          resilience.DefaultRetryConfig().WithRetries(c.INaturalist.MaxRetries),
	})
}

// newCompleter returns the vision backend named by the provider setting.
func newCompleter(c config.VisionConfig) (vision.Completer, error) {
	switch c.Provider {
	case config.ProviderOpenAI:
		var opts []openai.Option
		if c.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(c.BaseURL))
		}
		return openai.NewClient(c.APIKey, opts...), nil
	case config.ProviderAnthropic:
		var opts []anthropicpkg.Option
		if c.BaseURL != "" {
			opts = append(opts, anthropicpkg.WithBaseURL(c.BaseURL))
		}
		return anthropicpkg.NewCompleter(anthropicpkg.NewClient(c.APIKey, opts...)), nil
	case config.ProviderGemini:
		var opts []googleoption.ClientOption
		if c.BaseURL != "" {
			opts = append(opts, googleoption.WithEndpoint(c.BaseURL))
		}
		return gemini.NewClient(c.APIKey, opts...), nil
	default:
		return nil, eris.Errorf("unknown vision provider %q", c.Provider)
	}
}

// initExtractor builds the model cascade and feature extractor.
func initExtractor(c config.VisionConfig) (*extract.Extractor, error) {
	completer, err := newCompleter(c)
	if err != nil {
		return nil, err
	}
	cascade, err := extract.NewCascade(completer, c.Models, c.Timeout(), c.APIKey)
	if err != nil {
		return nil, err
	}
	return extract.NewExtractor(cascade, c.MaxTokens, time.Duration(c.CacheTTLSecs)*time.Second), nil
}

// initMatcher loads the known-species table and builds the candidate matcher.
func initMatcher(c config.MatcherConfig, nearbyKm float64, src matcher.TaxonSource) (*matcher.Matcher, error) {
	known, err := matcher.LoadKnownSpecies(c.KnownSpeciesFile)
	if err != nil {
		return nil, err
	}
	return matcher.New(src, known, matcher.Config{
		MaxTaxa:              c.MaxTaxa,
		MaxSuggestions:       c.MaxSuggestions,
		ObservationsPerTaxon: c.ObservationsPerTaxon,
		SearchPerPage:        c.SearchPerPage,
		NearbyRadiusKm:       nearbyKm,
		CallTimeout:          time.Duration(c.CallTimeoutSecs) * time.Second,
	}), nil
}

// initApp validates the configuration for mode and wires the identification
// service. When withHistory is set the history store is opened and migrated.
// Callers should defer env.Close().
func initApp(ctx context.Context, mode string, withHistory bool) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	taxaClient, err := initTaxa(cfg)
	if err != nil {
		return nil, err
	}

	extractor, err := initExtractor(cfg.Vision)
	if err != nil {
		return nil, err
	}

	m, err := initMatcher(cfg.Matcher, cfg.INaturalist.NearbyRadiusKm, taxaClient)
	if err != nil {
		return nil, err
	}

	policy, ok := matcher.ParseOverridePolicy(cfg.Matcher.AIOverride)
	if !ok {
		zap.L().Warn("unknown ai_override policy, using more_specific", zap.String("policy", cfg.Matcher.AIOverride))
	}

	env := &appEnv{Taxa: taxaClient}
	if withHistory {
		env.History, err = history.Open(ctx, history.Options{
			Driver:      cfg.History.Driver,
			DatabaseURL: cfg.History.DatabaseURL,
			MaxRecords:  cfg.History.MaxRecords,
		})
		if err != nil {
			return nil, eris.Wrap(err, "open history store")
		}
	}

	env.Identify = identify.New(extractor, m, taxaClient, format.New(policy), env.History)

	zap.L().Info("identification service ready",
		zap.String("provider", cfg.Vision.Provider),
		zap.Strings("models", cfg.Vision.Models),
		zap.Bool("history", env.History != nil),
	)
	return env, nil
}
