// Package identify runs the full identification: feature extraction,
// candidate matching, geographic enrichment, formatting and history.
package identify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/fieldguide/internal/apperr"
	"github.com/sells-group/fieldguide/internal/extract"
	"github.com/sells-group/fieldguide/internal/format"
	"github.com/sells-group/fieldguide/internal/history"
	"github.com/sells-group/fieldguide/internal/matcher"
	"github.com/sells-group/fieldguide/internal/model"
	"github.com/sells-group/fieldguide/pkg/vision"
)

// FeatureExtractor turns a photo into normalized features.
type FeatureExtractor interface {
	Extract(ctx context.Context, img vision.Image, loc *model.LocationData) (*extract.Extraction, error)
}

// CandidateMatcher ranks taxa against extracted features.
type CandidateMatcher interface {
	Match(ctx context.Context, f model.NormalizedFeatures, loc *model.LocationData) (*matcher.Result, error)
}

// GeoSource summarizes where a taxon occurs.
type GeoSource interface {
	GetTaxonGeographicData(ctx context.Context, taxonID int64) (*model.GeographicData, error)
}

// Request is one identification request.
type Request struct {
	Image    vision.Image
	Location *model.LocationData
}

// Service orchestrates one identification per call. It keeps no
// per-request state between calls.
type Service struct {
	extractor FeatureExtractor
	matcher   CandidateMatcher
	geo       GeoSource
	formatter *format.Formatter
	history   history.Store
}

// New creates a Service. A nil history store disables recording.
func New(ex FeatureExtractor, m CandidateMatcher, geo GeoSource, f *format.Formatter, h history.Store) *Service {
	return &Service{extractor: ex, matcher: m, geo: geo, formatter: f, history: h}
}

// Identify runs the pipeline. NoMatch is returned as a result, never an
// error; geographic and history failures are logged and skipped.
func (s *Service) Identify(ctx context.Context, req Request) (*model.IdentificationResult, error) {
	start := time.Now()
	if req.Location != nil {
		if err := req.Location.Validate(); err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidInput, err, "invalid location: "+err.Error())
		}
	}

	log := zap.L().With(zap.String("image", imageRef(req.Image)))
	log.Info("identify: starting")

	ex, err := s.extractor.Extract(ctx, req.Image, req.Location)
	if err != nil {
		return nil, err
	}

	match, err := s.matcher.Match(ctx, ex.Features, req.Location)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "candidate matching failed")
	}

	var geo *model.GeographicData
	if best := match.Best(); best != nil && s.geo != nil {
		geo, err = s.geo.GetTaxonGeographicData(ctx, best.Taxon.ID)
		if err != nil {
			log.Warn("identify: geographic data unavailable",
				zap.Int64("taxon_id", best.Taxon.ID),
				zap.Error(err),
			)
			geo = nil
		}
	}

	res := s.formatter.Format(format.Input{
		Features: ex.Features,
		Match:    match,
		Geo:      geo,
		Location: req.Location,
		Model:    ex.Model,
	})

	s.record(ctx, req, res)

	log.Info("identify: complete",
		zap.String("name", res.Name),
		zap.Bool("no_match", res.NoMatch),
		zap.Float64("confidence", res.Confidence),
		zap.String("model", ex.Model),
		zap.Bool("cached_features", ex.Cached),
		zap.Int("suggestions", len(res.Suggestions)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &res, nil
}

func (s *Service) record(ctx context.Context, req Request, res model.IdentificationResult) {
	if s.history == nil {
		return
	}
	_, err := s.history.Append(context.WithoutCancel(ctx), model.HistoryRecord{
		ImageRef: imageRef(req.Image),
		Location: req.Location,
		Result:   res,
		Category: res.Category,
	})
	if err != nil {
		zap.L().Warn("identify: history append failed", zap.Error(err))
	}
}

// imageRef is the URL of a remote image or a content hash of an upload.
func imageRef(img vision.Image) string {
	if img.IsRemote() {
		return img.URL
	}
	sum := sha256.Sum256(img.Data)
	return "sha256:" + hex.EncodeToString(sum[:8])
}
