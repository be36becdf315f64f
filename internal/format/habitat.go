package format

import (
	"strings"
	"unicode"

	"github.com/sells-group/fieldguide/internal/model"
)

// habitatKeywords maps lowercase summary keywords to habitat labels. The
// slice order is the order labels are reported in. A keyword matches whole
// words or their plural; a trailing "*" matches any word with that prefix.
var habitatKeywords = []struct {
	Label    string
	Keywords []string
}{
	{"Tropical rainforests", []string{"rainforest", "rain forest", "tropical forest", "cloud forest"}},
	{"Forests and woodlands", []string{"forest", "woodland", "woods", "taiga"}},
	{"Grasslands and savannas", []string{"grassland", "prairie", "savanna", "savannah", "meadow", "steppe"}},
	{"Wetlands", []string{"wetland", "marsh", "swamp", "bog", "fen"}},
	{"Freshwater", []string{"river", "stream", "lake", "pond", "freshwater"}},
	{"Coasts and oceans", []string{"coast", "marine", "ocean", "reef", "seashore", "estuar*"}},
	{"Deserts and arid scrub", []string{"desert", "arid", "dune", "scrubland"}},
	{"Mountains", []string{"mountain", "alpine", "montane", "highland"}},
	{"Tundra", []string{"tundra", "arctic"}},
	{"Urban areas and gardens", []string{"urban", "garden", "park", "city", "cities"}},
	{"Farmland", []string{"farmland", "agricultural", "pasture", "field"}},
}

const habitatUnavailable = "Habitat information not available"

// Habitat describes where a taxon lives. The most observed biome wins;
// otherwise the summary is scanned for habitat keywords.
func Habitat(geo *model.GeographicData, summary string) string {
	if geo != nil && geo.MainHabitat != "" {
		return "Most observations come from the " + geo.MainHabitat
	}
	labels := HabitatLabels(summary)
	if len(labels) == 0 {
		return habitatUnavailable
	}
	return "Typically found in: " + strings.Join(labels, ", ")
}

// HabitatLabels returns the habitat labels whose keywords appear in text.
func HabitatLabels(text string) []string {
	words := splitWords(text)
	var out []string
	for _, h := range habitatKeywords {
		for _, kw := range h.Keywords {
			if containsKeyword(words, kw) {
				out = append(out, h.Label)
				break
			}
		}
	}
	return out
}

func splitWords(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool { return !unicode.IsLetter(r) })
}

// containsKeyword reports whether the words of kw occur consecutively in words.
func containsKeyword(words []string, kw string) bool {
	stem := strings.HasSuffix(kw, "*")
	want := splitWords(kw)
	if len(want) == 0 {
		return false
	}
	for i := 0; i+len(want) <= len(words); i++ {
		ok := true
		for j, w := range want {
			last := j == len(want)-1
			if !wordMatches(words[i+j], w, last && stem) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func wordMatches(word, kw string, prefix bool) bool {
	if prefix {
		return strings.HasPrefix(word, kw)
	}
	return word == kw || word == kw+"s" || word == kw+"es"
}
