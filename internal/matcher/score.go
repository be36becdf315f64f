package matcher

import (
	"math"

	"github.com/sells-group/fieldguide/internal/model"
	"github.com/sells-group/fieldguide/internal/region"
)

// Scoring weights.
const (
	baseScore = 0.3

	geoPerObservation = 0.05
	geoMax            = 0.4
	basinBonus        = 0.25
	categoryBonus     = 0.15

	visualUnit         = 0.1
	visualMax          = 0.4
	mismatchUnit       = 0.15
	mismatchMax        = 0.7
	colorUnits         = 2
	noColorMatchUnits  = 5
	patternUnits       = 1
	distinctiveUnits   = 2
	distinctiveMissing = 1

	binomialBonus         = 0.2
	severeGenericPenalty  = 0.9
	genericPenalty        = 0.8
	implausibilityPenalty = 0.7
)

// Breakdown is the per-factor contribution to a candidate's score.
type Breakdown struct {
	Base           float64 `json:"base"`
	Geographic     float64 `json:"geographic"`
	Basin          float64 `json:"basin"`
	Category       float64 `json:"category"`
	Visual         float64 `json:"visual"`
	Specificity    float64 `json:"specificity"`
	Binomial       float64 `json:"binomial"`
	Genericity     float64 `json:"genericity"`
	Implausibility float64 `json:"implausibility"`
}

// Unclamped sums every factor.
func (b Breakdown) Unclamped() float64 {
	return b.Base + b.Geographic + b.Basin + b.Category + b.Visual +
		b.Specificity + b.Binomial + b.Genericity + b.Implausibility
}

// Score is the final value in [0,1].
func (b Breakdown) Score() float64 {
	s := b.Unclamped()
	if math.IsNaN(s) {
		return 0
	}
	return math.Max(0, math.Min(1, s))
}

// CalculateMatchScore scores one candidate. It is a pure function of its inputs.
func CalculateMatchScore(taxon model.Taxon, obs []model.Observation, f model.NormalizedFeatures, loc *model.LocationData) float64 {
	return Explain(taxon, obs, f, loc).Score()
}

// Explain returns the factor breakdown behind CalculateMatchScore.
func Explain(taxon model.Taxon, obs []model.Observation, f model.NormalizedFeatures, loc *model.LocationData) Breakdown {
	b := Breakdown{Base: baseScore}
	text := fold(taxon.Text())

	var basin region.Box
	inBasin := false
	if loc != nil {
		basin, inBasin = region.LargeBasinAt(loc.Coords.Lat, loc.Coords.Lng)
	}

	located := 0
	obsInBasin := false
	for _, o := range obs {
		if o.Coordinates == nil {
			continue
		}
		located++
		if inBasin && basin.Contains(o.Coordinates.Lat, o.Coordinates.Lng) {
			obsInBasin = true
		}
	}
	if loc != nil && located > 0 {
		b.Geographic = math.Min(geoMax, float64(located)*geoPerObservation)
		if obsInBasin {
			b.Basin = basinBonus
		}
	}

	if want := f.Category.Coarse(); want != "" && taxon.IconicGroup != "" && want == taxon.Category().Coarse() {
		b.Category = categoryBonus
	}

	b.Visual = visualScore(text, f.VisualFeatures)

	rl := taxon.RankLevel
	b.Specificity = specificity(rl)
	if taxon.IsBinomial() {
		b.Binomial = binomialBonus
	}

	if f.HasVisualDetail() {
		switch {
		case rl <= model.RankLevelClass:
			b.Genericity = -severeGenericPenalty
		case rl <= model.RankLevelOrder:
			b.Genericity = -genericPenalty
		}
	}

	if inBasin && rl >= model.RankLevelFamily && !obsInBasin && !regionAffinity(text, basin) {
		b.Implausibility = -implausibilityPenalty
	}
	return b
}

func visualScore(text string, v model.VisualFeatures) float64 {
	var match, mismatch int

	colorHits := 0
	for _, c := range v.Colors {
		if containsFold(text, fold(c)) {
			colorHits++
		}
	}
	match += colorHits * colorUnits
	if len(v.Colors) > 1 && colorHits == 0 {
		mismatch += noColorMatchUnits
	}

	for _, p := range v.Patterns {
		if phraseMatches(text, p) {
			match += patternUnits
		}
	}

	for _, d := range v.DistinctiveFeatures {
		if phraseMatches(text, d) {
			match += distinctiveUnits
		} else {
			mismatch += distinctiveMissing
		}
	}

	return math.Min(visualMax, float64(match)*visualUnit) - math.Min(mismatchMax, float64(mismatch)*mismatchUnit)
}

func specificity(rl int) float64 {
	switch {
	case rl <= model.RankLevelClass:
		return -0.4
	case rl <= model.RankLevelOrder:
		return -0.2
	case rl >= model.RankLevelSpecies:
		return 0.5
	case rl >= model.RankLevelGenus:
		return 0.3
	case rl >= model.RankLevelFamily:
		return 0.15
	default:
		return 0
	}
}

// colorAffinity reports whether folded taxon text mentions any queried color.
func colorAffinity(text string, colors []string) bool {
	for _, c := range colors {
		if containsFold(text, fold(c)) {
			return true
		}
	}
	return false
}
