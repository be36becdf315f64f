package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/sells-group/fieldguide/internal/apperr"
	"github.com/sells-group/fieldguide/internal/model"
	"github.com/sells-group/fieldguide/internal/region"
	"github.com/sells-group/fieldguide/pkg/vision"
)

// Extraction is the decoded output of a successful cascade.
type Extraction struct {
	Features model.NormalizedFeatures
	Model    string
	Attempts int
	Cached   bool
}

// Extractor runs the prompt through the model cascade and decodes the answer.
// Decoded features for an identical image and region are reused for cacheTTL.
type Extractor struct {
	cascade   *Cascade
	maxTokens int64
	cache     *cache.Cache
}

// NewExtractor creates an Extractor. A zero cacheTTL disables caching.
func NewExtractor(cascade *Cascade, maxTokens int64, cacheTTL time.Duration) *Extractor {
	e := &Extractor{cascade: cascade, maxTokens: maxTokens}
	if cacheTTL > 0 {
		e.cache = cache.New(cacheTTL, cacheTTL*2)
	}
	return e
}

// Extract returns the features for img, optionally region-annotated by loc.
func (e *Extractor) Extract(ctx context.Context, img vision.Image, loc *model.LocationData) (*Extraction, error) {
	if err := img.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, err, err.Error())
	}

	key := cacheKey(img, loc)
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			hit := *v.(*Extraction)
			hit.Cached = true
			hit.Attempts = 0
			return &hit, nil
		}
	}

	resp, attempts, err := e.cascade.Run(ctx, vision.Request{
		System:    systemPrompt,
		Prompt:    BuildPrompt(loc),
		Image:     img,
		MaxTokens: e.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	features, err := Decode(resp.Text)
	if err != nil {
		return nil, err
	}

	out := &Extraction{Features: features, Model: resp.Model, Attempts: len(attempts)}
	zap.L().Debug("extract: features decoded",
		zap.String("model", out.Model),
		zap.String("category", string(features.Category)),
		zap.Int("search_terms", len(features.SearchTerms)),
		zap.Float64("confidence", features.Confidence),
	)

	if e.cache != nil {
		stored := *out
		e.cache.SetDefault(key, &stored)
	}
	return out, nil
}

func cacheKey(img vision.Image, loc *model.LocationData) string {
	h := sha256.New()
	if img.IsRemote() {
		h.Write([]byte(img.URL))
	} else {
		h.Write(img.Data)
	}
	key := hex.EncodeToString(h.Sum(nil))
	if loc != nil {
		key += "|" + region.Classify(loc.Coords.Lat, loc.Coords.Lng)
	}
	return key
}
