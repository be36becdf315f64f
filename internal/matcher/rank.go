package matcher

import (
	"sort"

	"github.com/sells-group/fieldguide/internal/model"
)

const (
	minScore      = 0.1
	minFilterSize = 3
)

var rankTiers = []int{model.RankLevelSpecies, model.RankLevelGenus, model.RankLevelFamily}

// Rank filters, sorts and truncates scored candidates. The result is empty
// only when cands is empty.
func Rank(cands []model.CandidateMatch, f model.NormalizedFeatures, limit int) []model.CandidateMatch {
	if len(cands) == 0 {
		return nil
	}

	out := filterScore(cands)
	out = filterColor(out, f.VisualFeatures.Colors)
	out = preferTier(out)

	sort.SliceStable(out, func(i, j int) bool { return out[i].MatchScore > out[j].MatchScore })
	out = promoteSpecific(out)

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// filterScore drops weak candidates, falling back to the full list when
// nothing survives.
func filterScore(cands []model.CandidateMatch) []model.CandidateMatch {
	kept := make([]model.CandidateMatch, 0, len(cands))
	for _, c := range cands {
		if c.MatchScore > minScore {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return append([]model.CandidateMatch(nil), cands...)
	}
	return kept
}

func filterColor(cands []model.CandidateMatch, colors []string) []model.CandidateMatch {
	if len(colors) == 0 {
		return cands
	}
	var kept []model.CandidateMatch
	for _, c := range cands {
		if colorAffinity(fold(c.Taxon.Text()), colors) {
			kept = append(kept, c)
		}
	}
	if len(kept) >= minFilterSize {
		return kept
	}
	return cands
}

// preferTier keeps the most specific rank tier with enough members.
func preferTier(cands []model.CandidateMatch) []model.CandidateMatch {
	for _, floor := range rankTiers {
		var tier []model.CandidateMatch
		for _, c := range cands {
			if c.Taxon.RankLevel >= floor {
				tier = append(tier, c)
			}
		}
		if len(tier) >= minFilterSize {
			return tier
		}
	}
	return cands
}

// promoteSpecific moves every candidate below order level ahead of the
// first class-or-broader candidate that precedes one of them.
func promoteSpecific(cands []model.CandidateMatch) []model.CandidateMatch {
	generic := -1
	for i, c := range cands {
		if c.Taxon.RankLevel <= model.RankLevelClass {
			generic = i
			break
		}
	}
	if generic < 0 {
		return cands
	}

	var moved, rest []model.CandidateMatch
	for _, c := range cands[generic:] {
		if c.Taxon.RankLevel > model.RankLevelOrder {
			moved = append(moved, c)
		} else {
			rest = append(rest, c)
		}
	}
	if len(moved) == 0 {
		return cands
	}

	out := make([]model.CandidateMatch, 0, len(cands))
	out = append(out, cands[:generic]...)
	out = append(out, moved...)
	return append(out, rest...)
}
