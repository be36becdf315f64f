package matcher

import (
	_ "embed"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/fieldguide/internal/model"
	"github.com/sells-group/fieldguide/internal/region"
)

//go:embed known_species.yaml
var defaultKnownSpecies []byte

// KnownSpeciesRule maps a combination of visual keywords in a region to
// well-known species names.
type KnownSpeciesRule struct {
	Region  string   `yaml:"region"`
	All     []string `yaml:"all"`
	Any     []string `yaml:"any"`
	Species []string `yaml:"species"`
}

// KnownSpeciesTable is an ordered rule list.
type KnownSpeciesTable struct {
	Rules []KnownSpeciesRule `yaml:"rules"`
}

// DefaultKnownSpecies returns the built-in table.
func DefaultKnownSpecies() *KnownSpeciesTable {
	t, err := parseKnownSpecies(defaultKnownSpecies)
	if err != nil {
		panic(err)
	}
	return t
}

// LoadKnownSpecies reads a table from path, or returns the built-in table
// when path is empty.
func LoadKnownSpecies(path string) (*KnownSpeciesTable, error) {
	if path == "" {
		return DefaultKnownSpecies(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "matcher: read known species file %s", path)
	}
	return parseKnownSpecies(data)
}

func parseKnownSpecies(data []byte) (*KnownSpeciesTable, error) {
	var t KnownSpeciesTable
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, eris.Wrap(err, "matcher: parse known species table")
	}
	for i, r := range t.Rules {
		if len(r.All) == 0 || len(r.Species) == 0 {
			return nil, eris.Errorf("matcher: known species rule %d needs keywords and species", i)
		}
		for j := range r.All {
			t.Rules[i].All[j] = fold(r.All[j])
		}
		for j := range r.Any {
			t.Rules[i].Any[j] = fold(r.Any[j])
		}
	}
	return &t, nil
}

// Lookup returns the species named by every rule that matches the features
// in the given region, in table order without duplicates. regionName may be
// empty when no location is known; only region-free rules then apply.
func (t *KnownSpeciesTable) Lookup(f model.NormalizedFeatures, regionName string) []string {
	if t == nil {
		return nil
	}
	text := fold(f.FeatureText())
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var out []string
	seen := map[string]bool{}
	for _, r := range t.Rules {
		if r.Region != "" && r.Region != regionName && r.Region != continentOf(regionName) {
			continue
		}
		if !r.matches(text) {
			continue
		}
		for _, s := range r.Species {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

func (r KnownSpeciesRule) matches(text string) bool {
	for _, kw := range r.All {
		if !containsFold(text, kw) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return true
	}
	for _, kw := range r.Any {
		if containsFold(text, kw) {
			return true
		}
	}
	return false
}

// continentOf maps a biome name to its continent via the biome box centre.
func continentOf(name string) string {
	for _, b := range region.Biomes() {
		if b.Name == name {
			return region.Continent((b.MinLat+b.MaxLat)/2, (b.MinLng+b.MaxLng)/2)
		}
	}
	return ""
}

// regionAffinity reports whether folded taxon text mentions any keyword of the box.
func regionAffinity(text string, box region.Box) bool {
	if containsFold(text, fold(box.Name)) {
		return true
	}
	for _, kw := range box.Keywords {
		if containsFold(text, fold(kw)) {
			return true
		}
	}
	return false
}
