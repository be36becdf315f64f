// Package matcher turns extracted visual features into a ranked list of
// candidate taxa from the observation database.
package matcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/fieldguide/internal/model"
	"github.com/sells-group/fieldguide/internal/region"
	"github.com/sells-group/fieldguide/internal/taxa"
)

// TaxonSource is the subset of the taxon search client the matcher uses.
type TaxonSource interface {
	SearchTaxaByText(ctx context.Context, query string, perPage int) ([]model.Taxon, error)
	ListObservations(ctx context.Context, taxonID int64, opts taxa.ObservationOptions) ([]model.Observation, error)
	ListNearbyObservations(ctx context.Context, taxonID int64, lat, lng, radiusKm float64, opts taxa.ObservationOptions) ([]model.Observation, error)
}

// Config tunes fan-out and ranking.
type Config struct {
	MaxTaxa              int
	MaxSuggestions       int
	ObservationsPerTaxon int
	SearchPerPage        int
	NearbyRadiusKm       float64
	CallTimeout          time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxTaxa <= 0 {
		c.MaxTaxa = 20
	}
	if c.MaxSuggestions <= 0 {
		c.MaxSuggestions = 10
	}
	if c.ObservationsPerTaxon <= 0 {
		c.ObservationsPerTaxon = 30
	}
	if c.SearchPerPage <= 0 {
		c.SearchPerPage = 10
	}
	return c
}

// Result is the outcome of one match run.
type Result struct {
	Candidates []model.CandidateMatch `json:"candidates"`
	Queries    []Query                `json:"queries"`
	Known      []string               `json:"known,omitempty"`
	NoMatch    bool                   `json:"noMatch"`
}

// Best returns the top candidate, or nil on no match.
func (r *Result) Best() *model.CandidateMatch {
	if r == nil || len(r.Candidates) == 0 {
		return nil
	}
	return &r.Candidates[0]
}

// Matcher runs the search, enrichment, scoring and ranking steps. It holds
// no per-request state and is safe for concurrent use.
type Matcher struct {
	taxa  TaxonSource
	known *KnownSpeciesTable
	cfg   Config
}

// New creates a Matcher. A nil table uses the built-in known species.
func New(source TaxonSource, known *KnownSpeciesTable, cfg Config) *Matcher {
	if known == nil {
		known = DefaultKnownSpecies()
	}
	return &Matcher{taxa: source, known: known, cfg: cfg.withDefaults()}
}

// Match returns candidates ordered best first. Sub-query failures are
// logged and skipped; a run with nothing to search or nothing found ends in
// NoMatch rather than an error.
func (m *Matcher) Match(ctx context.Context, f model.NormalizedFeatures, loc *model.LocationData) (*Result, error) {
	regionName := ""
	if loc != nil {
		regionName = region.Classify(loc.Coords.Lat, loc.Coords.Lng)
	}
	known := m.known.Lookup(f, regionName)
	queries := BuildQueries(f, biomeName(loc), known)

	res := &Result{Queries: queries, Known: known}
	log := zap.L().With(zap.String("category", string(f.Category)), zap.String("region", regionName))

	if len(queries) == 0 {
		log.Info("matcher: nothing to search")
		res.NoMatch = true
		return res, nil
	}

	hits := m.search(ctx, queries)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(hits) > m.cfg.MaxTaxa {
		hits = hits[:m.cfg.MaxTaxa]
	}

	cands := m.enrich(ctx, hits, loc)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i := range cands {
		cands[i].MatchScore = CalculateMatchScore(cands[i].Taxon, cands[i].Observations, f, loc)
	}

	res.Candidates = Rank(cands, f, m.cfg.MaxSuggestions)
	res.NoMatch = len(res.Candidates) == 0

	log.Info("matcher: ranked candidates",
		zap.Int("queries", len(queries)),
		zap.Int("known_species", len(known)),
		zap.Int("taxa", len(hits)),
		zap.Int("scored", len(cands)),
		zap.Int("ranked", len(res.Candidates)),
	)
	return res, nil
}

// NoMatchConfidence is the confidence reported when no database candidate
// survived: the AI's own confidence, capped, when it named a taxon itself.
func NoMatchConfidence(f model.NormalizedFeatures) float64 {
	const (
		aiOnly   = 0.7
		fallback = 0.3
	)
	if f.SpecificIdentification == nil {
		return fallback
	}
	if f.Confidence <= 0 {
		return aiOnly
	}
	if f.Confidence < aiOnly {
		return f.Confidence
	}
	return aiOnly
}
