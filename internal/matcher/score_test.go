package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/fieldguide/internal/model"
)

func cand(id int64, rankLevel int, score float64) model.CandidateMatch {
	return model.CandidateMatch{
		Taxon:      model.Taxon{ID: id, Name: "Taxon", RankLevel: rankLevel},
		MatchScore: score,
	}
}

func ids(cands []model.CandidateMatch) []int64 {
	out := make([]int64, len(cands))
	for i, c := range cands {
		out[i] = c.Taxon.ID
	}
	return out
}

func TestCalculateMatchScore_Deterministic(t *testing.T) {
	f := beetleFeatures()
	obs := amazonObs(4)

	a := CalculateMatchScore(oxysternon, obs, f, amazon)
	b := CalculateMatchScore(oxysternon, obs, f, amazon)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, a, 0.0)
	assert.LessOrEqual(t, a, 1.0)
}

func TestExplain_Factors(t *testing.T) {
	b := Explain(oxysternon, amazonObs(3), beetleFeatures(), amazon)

	assert.InDelta(t, 0.3, b.Base, 1e-9)
	assert.InDelta(t, 0.15, b.Geographic, 1e-9)
	assert.InDelta(t, 0.25, b.Basin, 1e-9)
	assert.InDelta(t, 0.15, b.Category, 1e-9)
	assert.InDelta(t, 0.4, b.Visual, 1e-9)
	assert.InDelta(t, 0.5, b.Specificity, 1e-9)
	assert.InDelta(t, 0.2, b.Binomial, 1e-9)
	assert.Zero(t, b.Genericity)
	assert.Zero(t, b.Implausibility)
	assert.InDelta(t, 1.0, b.Score(), 1e-9)
}

func TestExplain_CategoryBonus(t *testing.T) {
	fern := model.Taxon{ID: 20, Name: "Pteridium aquilinum", RankLevel: model.RankLevelSpecies, IconicGroup: "Plantae"}
	bolete := model.Taxon{ID: 21, Name: "Boletus edulis", RankLevel: model.RankLevelSpecies, IconicGroup: "Fungi"}
	amoeba := model.Taxon{ID: 22, Name: "Amoeba proteus", RankLevel: model.RankLevelSpecies, IconicGroup: "Protozoa"}
	unknown := model.Taxon{ID: 23, Name: "Incertae sedis", RankLevel: model.RankLevelSpecies}

	tests := []struct {
		name     string
		taxon    model.Taxon
		category model.Category
		want     float64
	}{
		{"plant matches plant", fern, model.CategoryPlant, 0.15},
		{"fungus is non-plant", bolete, model.CategoryAnimal, 0.15},
		{"other is non-plant", amoeba, model.CategoryOther, 0.15},
		{"insect on fungus", bolete, model.CategoryInsect, 0.15},
		{"plant vs fungus", bolete, model.CategoryPlant, 0},
		{"fungus vs plant", fern, model.CategoryFungus, 0},
		{"no iconic group", unknown, model.CategoryAnimal, 0},
		{"extraction error", fern, model.CategoryError, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Explain(tt.taxon, nil, model.NormalizedFeatures{Category: tt.category}, nil)
			assert.InDelta(t, tt.want, b.Category, 1e-9)
		})
	}
}

func TestExplain_GeographicCapped(t *testing.T) {
	b := Explain(phanaeus, amazonObs(20), model.NormalizedFeatures{}, amazon)
	assert.InDelta(t, 0.4, b.Geographic, 1e-9)

	noLoc := Explain(phanaeus, amazonObs(20), model.NormalizedFeatures{}, nil)
	assert.Zero(t, noLoc.Geographic)
	assert.Zero(t, noLoc.Basin)
}

func TestExplain_GenericityPenalty(t *testing.T) {
	detailed := model.NormalizedFeatures{VisualFeatures: model.VisualFeatures{Colors: []string{"green", "black"}}}
	plain := model.NormalizedFeatures{VisualFeatures: model.VisualFeatures{Colors: []string{"green"}}}
	order := model.Taxon{ID: 4, Name: "Coleoptera", RankLevel: model.RankLevelOrder}

	assert.InDelta(t, -0.9, Explain(insecta, nil, detailed, nil).Genericity, 1e-9)
	assert.InDelta(t, -0.8, Explain(order, nil, detailed, nil).Genericity, 1e-9)
	assert.Zero(t, Explain(insecta, nil, plain, nil).Genericity)
	assert.Zero(t, Explain(phanaeus, nil, detailed, nil).Genericity)

	withPattern := model.NormalizedFeatures{VisualFeatures: model.VisualFeatures{Patterns: []string{"striped"}}}
	penalized := Explain(insecta, nil, withPattern, nil)
	unpenalized := Explain(insecta, nil, model.NormalizedFeatures{}, nil)
	assert.InDelta(t, -0.9, penalized.Unclamped()-unpenalized.Unclamped(), 1e-9)

	// A well-supported class still loses the full penalty once clamped.
	colorful := insecta
	colorful.SummaryText = "Includes many green and black beetles."
	strong := Explain(colorful, amazonObs(8), model.NormalizedFeatures{Category: model.CategoryInsect, VisualFeatures: detailed.VisualFeatures}, amazon)
	withoutPenalty := strong.Unclamped() - strong.Genericity
	assert.Greater(t, withoutPenalty, 0.9)
	assert.InDelta(t, -0.9, strong.Genericity, 1e-9)
	assert.LessOrEqual(t, strong.Score(), withoutPenalty-0.9+1e-9)
}

func TestExplain_ImplausibleOutsideBasin(t *testing.T) {
	elsewhere := []model.Observation{{ID: 1, Coordinates: &model.Coords{Lat: 45, Lng: 10}}}
	european := model.Taxon{ID: 7, Name: "Lucanus cervus", RankLevel: model.RankLevelSpecies, SummaryText: "A stag beetle of European oak woods."}

	b := Explain(european, elsewhere, model.NormalizedFeatures{}, amazon)
	assert.InDelta(t, -0.7, b.Implausibility, 1e-9)
	assert.Zero(t, b.Basin)

	neotropical := european
	neotropical.SummaryText = "Recorded across Brazil and Peru."
	assert.Zero(t, Explain(neotropical, elsewhere, model.NormalizedFeatures{}, amazon).Implausibility)

	outside := &model.LocationData{Coords: model.Coords{Lat: 45, Lng: 10}}
	assert.Zero(t, Explain(european, elsewhere, model.NormalizedFeatures{}, outside).Implausibility)
}

func TestVisualScore(t *testing.T) {
	text := fold("Morpho menelaus, a large iridescent blue butterfly with black wing margins")

	matched := visualScore(text, model.VisualFeatures{
		Colors:              []string{"blue", "black"},
		Patterns:            []string{"iridescent sheen"},
		DistinctiveFeatures: []string{"black wing"},
	})
	assert.InDelta(t, 0.4, matched, 1e-9)

	missed := visualScore(text, model.VisualFeatures{Colors: []string{"red", "yellow"}, DistinctiveFeatures: []string{"antlers"}})
	assert.InDelta(t, -0.7, missed, 1e-9)

	assert.Zero(t, visualScore(text, model.VisualFeatures{}))
}

func TestRank_PromotesSpecificOverGeneric(t *testing.T) {
	cands := []model.CandidateMatch{
		cand(1, model.RankLevelClass, 0.9),
		cand(2, model.RankLevelSpecies, 0.5),
	}

	out := Rank(cands, model.NormalizedFeatures{}, 10)
	assert.Equal(t, []int64{2, 1}, ids(out))
}

func TestRank_PromotionKeepsHigherSpecific(t *testing.T) {
	cands := []model.CandidateMatch{
		cand(1, model.RankLevelGenus, 0.95),
		cand(2, model.RankLevelClass, 0.9),
		cand(3, model.RankLevelOrder, 0.6),
		cand(4, model.RankLevelSpecies, 0.5),
	}

	out := Rank(cands, model.NormalizedFeatures{}, 10)
	assert.Equal(t, []int64{1, 4, 2, 3}, ids(out))
}

func TestRank_ScoreFilterFallsBack(t *testing.T) {
	cands := []model.CandidateMatch{cand(1, model.RankLevelGenus, 0.05), cand(2, model.RankLevelGenus, 0.1)}

	out := Rank(cands, model.NormalizedFeatures{}, 10)
	assert.Equal(t, []int64{2, 1}, ids(out))
}

func TestRank_DropsWeakCandidates(t *testing.T) {
	cands := []model.CandidateMatch{cand(1, model.RankLevelGenus, 0.05), cand(2, model.RankLevelGenus, 0.6)}

	out := Rank(cands, model.NormalizedFeatures{}, 10)
	assert.Equal(t, []int64{2}, ids(out))
}

func TestRank_PrefersSpecificTier(t *testing.T) {
	cands := []model.CandidateMatch{
		cand(1, model.RankLevelSpecies, 0.5),
		cand(2, model.RankLevelSpecies, 0.4),
		cand(3, model.RankLevelGenus, 0.6),
		cand(4, model.RankLevelFamily, 0.9),
		cand(5, model.RankLevelFamily, 0.8),
		cand(6, model.RankLevelFamily, 0.7),
	}

	out := Rank(cands, model.NormalizedFeatures{}, 10)
	assert.Equal(t, []int64{3, 1, 2}, ids(out))
}

func TestRank_ColorFilter(t *testing.T) {
	colored := func(id int64, summary string, score float64) model.CandidateMatch {
		c := cand(id, model.RankLevelSpecies, score)
		c.Taxon.SummaryText = summary
		return c
	}
	cands := []model.CandidateMatch{
		colored(1, "bright red cap", 0.5),
		colored(2, "brown cap", 0.9),
		colored(3, "red gills", 0.4),
		colored(4, "red stem", 0.3),
	}
	f := model.NormalizedFeatures{VisualFeatures: model.VisualFeatures{Colors: []string{"red"}}}

	assert.Equal(t, []int64{1, 3, 4}, ids(Rank(cands, f, 10)))
	assert.Equal(t, []int64{2, 1, 3}, ids(Rank(cands[:3], f, 10)))
}

func TestRank_LimitAndEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil, model.NormalizedFeatures{}, 10))

	var cands []model.CandidateMatch
	for i := int64(1); i <= 12; i++ {
		cands = append(cands, cand(i, model.RankLevelSpecies, 0.5))
	}
	out := Rank(cands, model.NormalizedFeatures{}, 10)
	require.Len(t, out, 10)
	assert.Equal(t, int64(1), out[0].Taxon.ID)
}

func TestPhraseMatches(t *testing.T) {
	text := fold("A long horned beetle from Café Island")

	assert.True(t, phraseMatches(text, "horned head"))
	assert.True(t, phraseMatches(text, "cafe"))
	assert.False(t, phraseMatches(text, "red spots"))
	assert.False(t, phraseMatches(text, "  "))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "sao paulo", fold("São Paulo"))
	assert.Equal(t, "cafe", fold("CAFÉ"))
}
