// Package extract turns an image into NormalizedFeatures by prompting a
// vision model and decoding its JSON answer.
package extract

import (
	"fmt"
	"strings"

	"github.com/sells-group/fieldguide/internal/model"
	"github.com/sells-group/fieldguide/internal/region"
)

const systemPrompt = "You are an expert field naturalist. You answer with a single JSON object and nothing else."

const basePrompt = `Identify the organism in this photo and describe it for a species database search.

Respond with JSON only, shaped exactly like this:
{
  "features": {
    "category": "plant | animal | insect | fungus | other",
    "visualFeatures": {
      "colors": ["dominant colors, most prominent first"],
      "patterns": ["stripes, spots, veins, ..."],
      "structures": ["petals, wings, antennae, cap, ..."],
      "bodyShape": "short description",
      "size": "tiny | small | medium | large | very large",
      "distinctiveFeatures": ["3 to 5 diagnostic traits"]
    },
    "taxonomicHints": {"class": "", "order": "", "family": "", "genus": "", "species": ""},
    "specificIdentification": {"mostSpecificTaxon": "", "taxonomicLevel": "species | genus | family", "scientificName": ""},
    "searchTerms": ["best search query first", "second", "third"],
    "regionalRelevance": {"endemicFeatures": [], "environmentalAdaptations": []},
    "confidence": 0.0
  }
}

Leave any field you cannot determine empty. Confidence is between 0 and 1.`

// BuildPrompt returns the extraction prompt, annotated with the biome when
// loc falls inside a known one.
func BuildPrompt(loc *model.LocationData) string {
	if loc == nil {
		return basePrompt
	}

	var b strings.Builder
	b.WriteString(basePrompt)

	res := region.Lookup(loc.Coords.Lat, loc.Coords.Lng)
	fmt.Fprintf(&b, "\n\nThe photo was taken at %s", loc.Label())
	if res.Level == region.LevelBiome {
		fmt.Fprintf(&b, ", in the %s (%s)", res.Name, res.Continent)
	} else if res.Continent != region.Unknown {
		fmt.Fprintf(&b, ", in %s", res.Continent)
	}
	b.WriteString(". Prefer species known from this region and list region-specific traits under regionalRelevance.")
	if res.LargeBasin {
		b.WriteString(" This region has very high species diversity; be as specific as the photo allows.")
	}
	return b.String()
}
