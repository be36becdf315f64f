package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/fieldguide/internal/apperr"
	"github.com/sells-group/fieldguide/internal/model"
)

func TestDecode_FullObjectWithProse(t *testing.T) {
	text := "Sure! Here is the analysis:\n```json\n" + `{
  "features": {
    "category": "Insect",
    "visualFeatures": {
      "colors": ["Metallic", "Green"],
      "patterns": ["ridged elytra"],
      "structures": ["horn", "legs"],
      "bodyShape": "rounded",
      "size": "small",
      "distinctiveFeatures": ["curved horn", "iridescent shell", "broad pronotum"]
    },
    "taxonomicHints": {"Order": "Coleoptera", "family": "Scarabaeidae", "genus": "unknown"},
    "specificIdentification": {"mostSpecificTaxon": "Oxysternon", "taxonomicLevel": "Genus", "scientificName": "Oxysternon conspicillatum"},
    "searchTerms": ["dung beetle", "scarab"],
    "regionalRelevance": {"endemicFeatures": ["Amazonian"], "environmentalAdaptations": []},
    "confidence": 0.82
  }
}` + "\n```\nLet me know if you need more."

	f, err := Decode(text)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryInsect, f.Category)
	assert.Equal(t, []string{"metallic", "green"}, f.VisualFeatures.Colors)
	assert.Equal(t, "rounded", f.VisualFeatures.BodyShape)
	assert.Len(t, f.VisualFeatures.DistinctiveFeatures, 3)
	assert.Equal(t, map[string]string{"order": "Coleoptera", "family": "Scarabaeidae"}, f.TaxonomicHints)
	require.NotNil(t, f.SpecificIdentification)
	assert.Equal(t, "genus", f.SpecificIdentification.TaxonomicLevel)
	assert.Equal(t, model.RankLevelGenus, f.SpecificIdentification.RankLevel())
	assert.Equal(t, []string{"dung beetle", "scarab"}, f.SearchTerms)
	require.NotNil(t, f.RegionalRelevance)
	assert.InDelta(t, 0.82, f.Confidence, 1e-9)
}

func TestDecode_FlexibleTypes(t *testing.T) {
	f, err := Decode(`{"features":{"category":"plant","visualFeatures":{"colors":"white, yellow ,","patterns":null,"size":3},"searchTerms":"orchid","confidence":"85%"}}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"white", "yellow"}, f.VisualFeatures.Colors)
	assert.Nil(t, f.VisualFeatures.Patterns)
	assert.Equal(t, "3", f.VisualFeatures.Size)
	assert.Equal(t, []string{"orchid"}, f.SearchTerms)
	assert.InDelta(t, 0.85, f.Confidence, 1e-9)
}

func TestDecode_MinimalDefaults(t *testing.T) {
	f, err := Decode(`{"features":{"category":"mushroom"}}`)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryFungus, f.Category)
	assert.Empty(t, f.SearchTerms)
	assert.Nil(t, f.TaxonomicHints)
	assert.Nil(t, f.SpecificIdentification)
	assert.Nil(t, f.RegionalRelevance)
	assert.Zero(t, f.Confidence)
}

func TestDecode_ConfidenceClamped(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"1.7", 0.017},
		{"72", 0.72},
		{"500", 1},
		{"-0.3", 0},
		{`"high"`, 0},
	}
	for _, tt := range tests {
		f, err := Decode(`{"features":{"category":"plant","confidence":` + tt.raw + `}}`)
		require.NoError(t, err, tt.raw)
		assert.InDelta(t, tt.want, f.Confidence, 1e-9, tt.raw)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"no json", "I cannot identify this organism."},
		{"only closing brace", "oops } {"},
		{"invalid json", `{"features": {"category": "plant",}}`},
		{"missing wrapper", `{"category":"plant","searchTerms":["orchid"]}`},
		{"null wrapper", `{"features": null}`},
		{"wrong shape", `{"features": ["plant"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.text)
			require.Error(t, err)
			assert.Equal(t, apperr.KindMalformedResponse, apperr.KindOf(err))
		})
	}
}

func TestSnippetTruncates(t *testing.T) {
	long := strings.Repeat("x", 2000)
	assert.Len(t, snippet(long), maxSnippetLen)
	assert.Equal(t, "short", snippet("short"))
}

func TestSnippetKeepsRunesWhole(t *testing.T) {
	accented := strings.Repeat("é", 300)
	got := snippet(accented)
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, maxSnippetLen)

	shifted := "x" + accented
	got = snippet(shifted)
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, maxSnippetLen-1)
}

func TestJSONObject(t *testing.T) {
	body, ok := jsonObject(`prefix {"a":{"b":1}} suffix`)
	require.True(t, ok)
	assert.Equal(t, `{"a":{"b":1}}`, body)

	_, ok = jsonObject("no braces")
	assert.False(t, ok)
}
