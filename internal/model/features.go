package model

import "strings"

// Category is the coarse organism class reported by the vision model.
type Category string

const (
	CategoryPlant  Category = "plant"
	CategoryAnimal Category = "animal"
	CategoryInsect Category = "insect"
	CategoryFungus Category = "fungus"
	CategoryOther  Category = "other"
	CategoryError  Category = "error"
)

// ParseCategory normalizes free text into a Category. Unknown values map to CategoryOther.
func ParseCategory(s string) Category {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plant", "plants", "plantae", "flower", "tree":
		return CategoryPlant
	case "animal", "animals", "animalia", "bird", "mammal", "reptile", "amphibian", "fish":
		return CategoryAnimal
	case "insect", "insects", "insecta", "bug", "arthropod", "spider", "arachnid":
		return CategoryInsect
	case "fungus", "fungi", "mushroom":
		return CategoryFungus
	case "error":
		return CategoryError
	default:
		return CategoryOther
	}
}

// Coarse splits categories into "plant" and "non-plant" for the category
// bonus. Returns "" for error and unset categories.
func (c Category) Coarse() string {
	switch c {
	case CategoryPlant:
		return "plant"
	case CategoryError, "":
		return ""
	default:
		return "non-plant"
	}
}

// VisualFeatures describes what the vision model saw.
type VisualFeatures struct {
	Colors              []string `json:"colors,omitempty"`
	Patterns            []string `json:"patterns,omitempty"`
	Structures          []string `json:"structures,omitempty"`
	BodyShape           string   `json:"bodyShape,omitempty"`
	Size                string   `json:"size,omitempty"`
	DistinctiveFeatures []string `json:"distinctiveFeatures,omitempty"`
}

// SpecificIdentification is the vision model's own species or genus guess.
type SpecificIdentification struct {
	MostSpecificTaxon string `json:"mostSpecificTaxon"`
	TaxonomicLevel    string `json:"taxonomicLevel,omitempty"`
	ScientificName    string `json:"scientificName,omitempty"`
}

// RankLevel converts TaxonomicLevel to the rank-level scale used by Taxon.
// Returns 0 when the level is unknown.
func (s SpecificIdentification) RankLevel() int {
	return RankLevelForName(s.TaxonomicLevel)
}

// RegionalRelevance holds region-specific hints from the vision model.
type RegionalRelevance struct {
	EndemicFeatures          []string `json:"endemicFeatures,omitempty"`
	EnvironmentalAdaptations []string `json:"environmentalAdaptations,omitempty"`
}

// Taxonomic hint ranks, most specific first.
var HintRanks = []string{"species", "genus", "family", "order", "class"}

// NormalizedFeatures is the decoded, defaulted output of the vision model.
type NormalizedFeatures struct {
	Category               Category                `json:"category"`
	VisualFeatures         VisualFeatures          `json:"visualFeatures"`
	TaxonomicHints         map[string]string       `json:"taxonomicHints,omitempty"`
	SpecificIdentification *SpecificIdentification `json:"specificIdentification,omitempty"`
	SearchTerms            []string                `json:"searchTerms,omitempty"`
	RegionalRelevance      *RegionalRelevance      `json:"regionalRelevance,omitempty"`
	Confidence             float64                 `json:"confidence"`
}

// HasVisualDetail reports whether the features carry enough visual detail
// to rule out very coarse taxa.
func (f NormalizedFeatures) HasVisualDetail() bool {
	return len(f.VisualFeatures.Colors) >= 2 || len(f.VisualFeatures.Patterns) >= 1
}

// HintValues returns non-empty taxonomic hints ordered most specific first.
func (f NormalizedFeatures) HintValues() []string {
	var out []string
	for _, rank := range HintRanks {
		if v := strings.TrimSpace(f.TaxonomicHints[rank]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// FeatureText joins every free-text visual descriptor, lowercased.
func (f NormalizedFeatures) FeatureText() string {
	v := f.VisualFeatures
	parts := make([]string, 0, len(v.Colors)+len(v.Patterns)+len(v.Structures)+len(v.DistinctiveFeatures)+2)
	parts = append(parts, v.Colors...)
	parts = append(parts, v.Patterns...)
	parts = append(parts, v.Structures...)
	parts = append(parts, v.DistinctiveFeatures...)
	parts = append(parts, v.BodyShape, v.Size)
	return strings.ToLower(strings.Join(parts, " "))
}
