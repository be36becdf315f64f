package matcher

import (
	"strings"

	"github.com/sells-group/fieldguide/internal/model"
)

// OverridePolicy decides when the vision model's own identification replaces
// the display identity of the winning database candidate.
type OverridePolicy string

const (
	OverrideOff          OverridePolicy = "off"
	OverrideMoreSpecific OverridePolicy = "more_specific"
	OverrideAlways       OverridePolicy = "always"
)

// ParseOverridePolicy returns the policy named by s, defaulting to more_specific.
func ParseOverridePolicy(s string) (OverridePolicy, bool) {
	switch OverridePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case OverrideOff:
		return OverrideOff, true
	case OverrideAlways:
		return OverrideAlways, true
	case OverrideMoreSpecific, "":
		return OverrideMoreSpecific, true
	default:
		return OverrideMoreSpecific, false
	}
}

// DisplayIdentity is the name shown for an identification.
type DisplayIdentity struct {
	Name           string
	ScientificName string
	TaxonomicLevel string
	FromAI         bool
}

// ResolveIdentity picks the display identity for the winner under the policy.
// Match score and suggestions are unaffected by the choice.
func ResolveIdentity(policy OverridePolicy, winner model.Taxon, ai *model.SpecificIdentification) DisplayIdentity {
	db := DisplayIdentity{
		Name:           winner.DisplayName(),
		ScientificName: winner.Name,
		TaxonomicLevel: winner.Rank,
	}
	if ai == nil || strings.TrimSpace(ai.MostSpecificTaxon) == "" {
		return db
	}

	switch policy {
	case OverrideAlways:
	case OverrideMoreSpecific:
		if !moreSpecific(winner, ai) {
			return db
		}
	default:
		return db
	}

	sci := ai.ScientificName
	if sci == "" {
		sci = ai.MostSpecificTaxon
	}
	level := ai.TaxonomicLevel
	if level == "" {
		level = winner.Rank
	}
	return DisplayIdentity{
		Name:           ai.MostSpecificTaxon,
		ScientificName: sci,
		TaxonomicLevel: level,
		FromAI:         true,
	}
}

// moreSpecific reports whether the AI guess is finer than the database
// winner and names a different taxon.
func moreSpecific(winner model.Taxon, ai *model.SpecificIdentification) bool {
	aiLevel := ai.RankLevel()
	if aiLevel == 0 && ai.ScientificName != "" && strings.Contains(strings.TrimSpace(ai.ScientificName), " ") {
		aiLevel = model.RankLevelSpecies
	}
	if aiLevel <= winner.RankLevel {
		return false
	}
	name := fold(ai.ScientificName)
	if name == "" {
		name = fold(ai.MostSpecificTaxon)
	}
	return name != fold(winner.Name)
}
