package matcher

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/fieldguide/internal/model"
	"github.com/sells-group/fieldguide/internal/region"
	"github.com/sells-group/fieldguide/internal/taxa"
)

const (
	maxSearchTerms   = 3
	maxHints         = 2
	searchConcurrent = 8
)

// Query is one free-text taxon search issued during fan-out.
type Query struct {
	Text   string            `json:"text"`
	Source model.MatchSource `json:"source"`
}

// BuildQueries lists the searches for one identification in priority
// order: known species, then search terms, then taxonomic hints. When
// biome is set, each term and hint is repeated with the biome name prefixed.
func BuildQueries(f model.NormalizedFeatures, biome string, known []string) []Query {
	var out []Query
	seen := map[string]bool{}
	add := func(text string, src model.MatchSource) {
		text = strings.Join(strings.Fields(text), " ")
		key := strings.ToLower(text)
		if text == "" || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, Query{Text: text, Source: src})
	}

	for _, k := range known {
		add(k, model.SourceKnownSpecies)
	}

	var generic []Query
	for _, t := range firstN(nonEmpty(f.SearchTerms), maxSearchTerms) {
		generic = append(generic, Query{Text: t, Source: model.SourceSearchTerm})
	}
	for _, h := range firstN(f.HintValues(), maxHints) {
		generic = append(generic, Query{Text: h, Source: model.SourceTaxonomicHint})
	}
	for _, q := range generic {
		add(q.Text, q.Source)
		if biome != "" {
			add(biome+" "+q.Text, q.Source)
		}
	}
	return out
}

type searchHit struct {
	taxon  model.Taxon
	source model.MatchSource
}

// search runs every query concurrently. A failing query contributes nothing.
func (m *Matcher) search(ctx context.Context, queries []Query) []searchHit {
	slots := make([][]model.Taxon, len(queries))

	var g errgroup.Group
	g.SetLimit(searchConcurrent)
	for i, q := range queries {
		g.Go(func() error {
			cctx, cancel := m.callContext(ctx)
			defer cancel()

			found, err := m.taxa.SearchTaxaByText(cctx, q.Text, m.cfg.SearchPerPage)
			if err != nil {
				zap.L().Warn("matcher: search query failed",
					zap.String("query", q.Text),
					zap.String("source", string(q.Source)),
					zap.Error(err),
				)
				return nil
			}
			slots[i] = found
			return nil
		})
	}
	_ = g.Wait()

	return merge(queries, slots)
}

// merge flattens per-query results in query order, keeping the first
// occurrence of each taxon id.
func merge(queries []Query, slots [][]model.Taxon) []searchHit {
	var out []searchHit
	seen := map[int64]bool{}
	for i, found := range slots {
		for _, t := range found {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			out = append(out, searchHit{taxon: t, source: queries[i].Source})
		}
	}
	return out
}

// enrich fetches observations for each hit concurrently. Hits whose fetch
// fails are dropped.
func (m *Matcher) enrich(ctx context.Context, hits []searchHit, loc *model.LocationData) []model.CandidateMatch {
	slots := make([]*model.CandidateMatch, len(hits))

	var g errgroup.Group
	for i, h := range hits {
		g.Go(func() error {
			cctx, cancel := m.callContext(ctx)
			defer cancel()

			obs, err := m.observations(cctx, h.taxon.ID, loc)
			if err != nil {
				zap.L().Warn("matcher: observation fetch failed, skipping taxon",
					zap.Int64("taxon_id", h.taxon.ID),
					zap.String("taxon", h.taxon.Name),
					zap.Error(err),
				)
				return nil
			}
			slots[i] = &model.CandidateMatch{Taxon: h.taxon, Observations: obs, Source: h.source}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.CandidateMatch, 0, len(hits))
	for _, c := range slots {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

func (m *Matcher) observations(ctx context.Context, taxonID int64, loc *model.LocationData) ([]model.Observation, error) {
	opts := taxa.ObservationOptions{PerPage: m.cfg.ObservationsPerTaxon}
	if loc == nil {
		return m.taxa.ListObservations(ctx, taxonID, opts)
	}
	return m.taxa.ListNearbyObservations(ctx, taxonID, loc.Coords.Lat, loc.Coords.Lng, m.cfg.NearbyRadiusKm, opts)
}

func (m *Matcher) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.cfg.CallTimeout)
}

// biomeName returns the biome containing loc, or "".
func biomeName(loc *model.LocationData) string {
	if loc == nil {
		return ""
	}
	if b, ok := region.Biome(loc.Coords.Lat, loc.Coords.Lng); ok {
		return b.Name
	}
	return ""
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it) != "" {
			out = append(out, it)
		}
	}
	return out
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
