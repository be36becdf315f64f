package extract

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/fieldguide/internal/apperr"
	"github.com/sells-group/fieldguide/internal/model"
)

const (
	wrapperKey     = "features"
	maxSnippetLen  = 500
	maxSearchTerms = 10
)

// flexStrings accepts a JSON array of strings, a single string (split on
// commas), or null.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = cleanList(strings.Split(s, ","))
		return nil
	}
	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	items := make([]string, 0, len(raw))
	for _, v := range raw {
		switch t := v.(type) {
		case string:
			items = append(items, t)
		case float64:
			items = append(items, strconv.FormatFloat(t, 'f', -1, 64))
		}
	}
	*f = cleanList(items)
	return nil
}

// flexString accepts a string, a number, or null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*f = flexString(strings.TrimSpace(t))
	case float64:
		*f = flexString(strconv.FormatFloat(t, 'f', -1, 64))
	default:
		*f = ""
	}
	return nil
}

// flexFloat accepts a number, a numeric string ("0.8", "80%"), or null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		*f = flexFloat(t)
	case string:
		s := strings.TrimSpace(t)
		pct := strings.HasSuffix(s, "%")
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			*f = 0
			return nil
		}
		if pct {
			n /= 100
		}
		*f = flexFloat(n)
	default:
		*f = 0
	}
	return nil
}

type rawVisual struct {
	Colors              flexStrings `json:"colors"`
	Patterns            flexStrings `json:"patterns"`
	Structures          flexStrings `json:"structures"`
	BodyShape           flexString  `json:"bodyShape"`
	Size                flexString  `json:"size"`
	DistinctiveFeatures flexStrings `json:"distinctiveFeatures"`
}

type rawSpecific struct {
	MostSpecificTaxon flexString `json:"mostSpecificTaxon"`
	TaxonomicLevel    flexString `json:"taxonomicLevel"`
	ScientificName    flexString `json:"scientificName"`
}

type rawRegional struct {
	EndemicFeatures          flexStrings `json:"endemicFeatures"`
	EnvironmentalAdaptations flexStrings `json:"environmentalAdaptations"`
}

type rawFeatures struct {
	Category               flexString            `json:"category"`
	VisualFeatures         *rawVisual            `json:"visualFeatures"`
	TaxonomicHints         map[string]flexString `json:"taxonomicHints"`
	SpecificIdentification *rawSpecific          `json:"specificIdentification"`
	SearchTerms            flexStrings           `json:"searchTerms"`
	RegionalRelevance      *rawRegional          `json:"regionalRelevance"`
	Confidence             flexFloat             `json:"confidence"`
}

// Decode locates the JSON object in a model answer and converts it into
// NormalizedFeatures. Leading and trailing prose is ignored.
func Decode(text string) (model.NormalizedFeatures, error) {
	var out model.NormalizedFeatures

	body, ok := jsonObject(text)
	if !ok {
		return out, malformed(text, "no JSON object in model response")
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return out, malformed(text, "model response is not valid JSON")
	}
	inner, ok := envelope[wrapperKey]
	if !ok || len(bytes.TrimSpace(inner)) == 0 || string(bytes.TrimSpace(inner)) == "null" {
		return out, malformed(text, `model response lacks the "features" object`)
	}

	var raw rawFeatures
	if err := json.Unmarshal(inner, &raw); err != nil {
		return out, malformed(text, "model features do not match the expected shape")
	}
	return normalize(raw), nil
}

func normalize(raw rawFeatures) model.NormalizedFeatures {
	f := model.NormalizedFeatures{
		Category:    model.ParseCategory(string(raw.Category)),
		SearchTerms: limit(raw.SearchTerms, maxSearchTerms),
		Confidence:  clampConfidence(float64(raw.Confidence)),
	}

	if v := raw.VisualFeatures; v != nil {
		f.VisualFeatures = model.VisualFeatures{
			Colors:              lowerAll(v.Colors),
			Patterns:            v.Patterns,
			Structures:          v.Structures,
			BodyShape:           string(v.BodyShape),
			Size:                string(v.Size),
			DistinctiveFeatures: v.DistinctiveFeatures,
		}
	}

	for rank, val := range raw.TaxonomicHints {
		s := strings.TrimSpace(string(val))
		if s == "" || isPlaceholder(s) {
			continue
		}
		if f.TaxonomicHints == nil {
			f.TaxonomicHints = map[string]string{}
		}
		f.TaxonomicHints[strings.ToLower(strings.TrimSpace(rank))] = s
	}

	if s := raw.SpecificIdentification; s != nil && string(s.MostSpecificTaxon) != "" && !isPlaceholder(string(s.MostSpecificTaxon)) {
		f.SpecificIdentification = &model.SpecificIdentification{
			MostSpecificTaxon: string(s.MostSpecificTaxon),
			TaxonomicLevel:    strings.ToLower(string(s.TaxonomicLevel)),
			ScientificName:    string(s.ScientificName),
		}
	}

	if r := raw.RegionalRelevance; r != nil && len(r.EndemicFeatures)+len(r.EnvironmentalAdaptations) > 0 {
		f.RegionalRelevance = &model.RegionalRelevance{
			EndemicFeatures:          r.EndemicFeatures,
			EnvironmentalAdaptations: r.EnvironmentalAdaptations,
		}
	}
	return f
}

// jsonObject returns the text between the first '{' and the last '}'.
func jsonObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func malformed(raw, msg string) error {
	zap.L().Error("extract: malformed model response",
		zap.String("reason", msg),
		zap.String("snippet", snippet(raw)),
	)
	return apperr.New(apperr.KindMalformedResponse, msg)
}

// snippet truncates s to at most maxSnippetLen bytes without splitting a rune.
func snippet(s string) string {
	if len(s) <= maxSnippetLen {
		return s
	}
	cut := maxSnippetLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func clampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 && c <= 100 {
		c /= 100
	}
	return math.Min(c, 1)
}

func isPlaceholder(s string) bool {
	switch strings.ToLower(s) {
	case "unknown", "n/a", "none", "null", "-":
		return true
	}
	return false
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		key := strings.ToLower(it)
		if it == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func lowerAll(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = strings.ToLower(it)
	}
	return out
}

func limit(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
