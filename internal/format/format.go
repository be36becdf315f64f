// Package format renders matcher output and geographic summaries into the
// IdentificationResult returned to callers.
package format

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/sells-group/fieldguide/internal/matcher"
	"github.com/sells-group/fieldguide/internal/model"
	"github.com/sells-group/fieldguide/internal/region"
)

const (
	maxFacts                 = 2
	maxSuggestionObservation = 5
	distributionUnavailable  = "Distribution data not available."
)

// Input is everything the formatter needs for one identification.
type Input struct {
	Features model.NormalizedFeatures
	Match    *matcher.Result
	Geo      *model.GeographicData
	Location *model.LocationData
	Model    string
}

// Formatter renders identification results.
type Formatter struct {
	policy matcher.OverridePolicy
}

// New creates a Formatter applying the given AI override policy.
func New(policy matcher.OverridePolicy) *Formatter {
	return &Formatter{policy: policy}
}

// Format builds the caller-facing result. It performs no I/O.
func (f *Formatter) Format(in Input) model.IdentificationResult {
	features := in.Features
	res := model.IdentificationResult{
		Category:    features.Category,
		Suggestions: []model.Suggestion{},
		Features:    &features,
		Model:       in.Model,
	}
	if in.Location != nil {
		res.Region = region.Classify(in.Location.Coords.Lat, in.Location.Coords.Lng)
	}

	best := in.Match.Best()
	if best == nil {
		return noMatch(res, features)
	}

	winner := best.Taxon
	id := matcher.ResolveIdentity(f.policy, winner, features.SpecificIdentification)

	res.Name = id.Name
	res.ScientificName = id.ScientificName
	res.TaxonomicLevel = id.TaxonomicLevel
	res.TaxonID = winner.ID
	res.Confidence = best.MatchScore
	res.Description = winner.SummaryText
	res.Distribution = Distribution(in.Geo)
	res.Habitat = Habitat(in.Geo, winner.SummaryText)
	res.InterestingFacts = Facts(winner.SummaryText)
	res.LocationMatch = LocationMatch(in.Location, best.Observations, in.Geo)
	res.GeographicData = in.Geo
	res.Suggestions = Suggestions(in.Match.Candidates)
	res.AdditionalInfo = additionalInfo(*best, id)
	return res
}

func noMatch(res model.IdentificationResult, f model.NormalizedFeatures) model.IdentificationResult {
	res.NoMatch = true
	res.Confidence = matcher.NoMatchConfidence(f)
	res.Distribution = distributionUnavailable
	res.Habitat = habitatUnavailable
	res.AdditionalInfo = map[string]string{}

	if ai := f.SpecificIdentification; ai != nil && ai.MostSpecificTaxon != "" {
		res.Name = ai.MostSpecificTaxon
		res.ScientificName = ai.ScientificName
		res.TaxonomicLevel = ai.TaxonomicLevel
		res.AdditionalInfo["identifiedBy"] = "vision model"
	} else {
		res.Name = unknownName(f.Category)
	}
	res.Description = "No matching taxon was found in the observation database."
	if d := describeFeatures(f.VisualFeatures); d != "" {
		res.Description += " Observed features: " + d + "."
	}
	return res
}

func unknownName(c model.Category) string {
	switch c {
	case "", model.CategoryOther, model.CategoryError:
		return "Unknown organism"
	default:
		return "Unknown " + string(c)
	}
}

func describeFeatures(v model.VisualFeatures) string {
	var parts []string
	if len(v.Colors) > 0 {
		parts = append(parts, "colors "+strings.Join(v.Colors, ", "))
	}
	if len(v.Patterns) > 0 {
		parts = append(parts, "patterns "+strings.Join(v.Patterns, ", "))
	}
	if len(v.DistinctiveFeatures) > 0 {
		parts = append(parts, strings.Join(v.DistinctiveFeatures, ", "))
	}
	return strings.Join(parts, "; ")
}

// Distribution renders native and introduced regions, falling back to the
// observed density buckets.
func Distribution(geo *model.GeographicData) string {
	if geo == nil {
		return distributionUnavailable
	}
	var parts []string
	if len(geo.NativeRegions) > 0 {
		parts = append(parts, "Native to: "+strings.Join(geo.NativeRegions, ", ")+".")
	}
	if len(geo.IntroducedRegions) > 0 {
		parts = append(parts, "Introduced in: "+strings.Join(geo.IntroducedRegions, ", ")+".")
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	if observed := byDensity(geo.Density); len(observed) > 0 {
		return "Observed in: " + strings.Join(observed, ", ") + "."
	}
	return distributionUnavailable
}

// byDensity orders region names by share descending, then by name.
func byDensity(density map[string]float64) []string {
	names := make([]string, 0, len(density))
	for name := range density {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if density[names[i]] != density[names[j]] {
			return density[names[i]] > density[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// Facts returns up to the first two sentences of a summary.
func Facts(summary string) []string {
	var out []string
	for _, s := range sentences(summary) {
		out = append(out, s)
		if len(out) == maxFacts {
			break
		}
	}
	return out
}

// sentences splits text after '.', '!' or '?' followed by whitespace or the end.
func sentences(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	var out []string
	start := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			out = append(out, s)
		}
		start = i + 1
	}
	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		out = append(out, s)
	}
	return out
}

// LocationMatch describes how the winner's observations relate to the
// queried location. Empty when no location was given.
func LocationMatch(loc *model.LocationData, obs []model.Observation, geo *model.GeographicData) string {
	if loc == nil {
		return ""
	}
	label := loc.Label()
	place := region.Classify(loc.Coords.Lat, loc.Coords.Lng)

	located := 0
	for _, o := range obs {
		if o.Coordinates != nil {
			located++
		}
	}

	var b strings.Builder
	switch located {
	case 0:
		fmt.Fprintf(&b, "No recorded observations near %s", label)
	case 1:
		fmt.Fprintf(&b, "1 recorded observation near %s", label)
	default:
		fmt.Fprintf(&b, "%d recorded observations near %s", located, label)
	}
	if place != region.Unknown && place != label {
		fmt.Fprintf(&b, " (%s)", place)
	}
	b.WriteString(".")

	continent := region.Continent(loc.Coords.Lat, loc.Coords.Lng)
	if geo != nil && continent != region.Unknown {
		switch {
		case containsFold(geo.NativeRegions, continent, place):
			fmt.Fprintf(&b, " Native to %s.", continent)
		case containsFold(geo.IntroducedRegions, continent, place):
			fmt.Fprintf(&b, " Introduced in %s.", continent)
		case len(geo.NativeRegions) > 0:
			fmt.Fprintf(&b, " Not recorded as native to %s.", continent)
		}
	}
	return b.String()
}

func containsFold(list []string, names ...string) bool {
	for _, item := range list {
		for _, n := range names {
			if strings.EqualFold(item, n) {
				return true
			}
		}
	}
	return false
}

// Suggestions projects ranked candidates for display.
func Suggestions(cands []model.CandidateMatch) []model.Suggestion {
	out := make([]model.Suggestion, 0, len(cands))
	for _, c := range cands {
		obs := c.Observations
		if len(obs) > maxSuggestionObservation {
			obs = obs[:maxSuggestionObservation]
		}
		out = append(out, model.Suggestion{
			TaxonID:          c.Taxon.ID,
			Name:             c.Taxon.Name,
			CommonName:       c.Taxon.PreferredCommonName,
			Rank:             c.Taxon.Rank,
			RankLevel:        c.Taxon.RankLevel,
			MatchScore:       c.MatchScore,
			ObservationCount: len(c.Observations),
			Observations:     obs,
			PhotoURL:         c.Taxon.DefaultPhotoURL,
		})
	}
	return out
}

func additionalInfo(best model.CandidateMatch, id matcher.DisplayIdentity) map[string]string {
	t := best.Taxon
	info := map[string]string{
		"rank":        t.Rank,
		"matchSource": string(best.Source),
	}
	if t.PreferredCommonName != "" {
		info["commonName"] = t.PreferredCommonName
	}
	if t.IconicGroup != "" {
		info["iconicGroup"] = t.IconicGroup
	}
	if t.WikipediaURL != "" {
		info["wikipediaUrl"] = t.WikipediaURL
	}
	if t.ObservationsCount > 0 {
		info["totalObservations"] = fmt.Sprintf("%d", t.ObservationsCount)
	}
	if id.FromAI {
		info["identifiedBy"] = "vision model"
		info["databaseMatch"] = t.Name
	}
	return info
}
