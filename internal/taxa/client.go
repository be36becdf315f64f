// Package taxa queries the observation database for taxa, observations and
// geographic summaries.
package taxa

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/fieldguide/internal/apperr"
	"github.com/sells-group/fieldguide/internal/model"
	"github.com/sells-group/fieldguide/internal/region"
	"github.com/sells-group/fieldguide/internal/resilience"
	"github.com/sells-group/fieldguide/pkg/inaturalist"
)

const (
	service         = "inaturalist"
	kmPerDegreeLat  = 111.0
	maxPerPage      = 200
	defaultPerPage  = 10
	defaultRadiusKm = 50.0
)

// Config holds the settings required to query the observation database.
type Config struct {
	APIKey         string
	PerPage        int
	NearbyRadiusKm float64
	Retry          resilience.RetryConfig
	Breaker        resilience.CircuitBreakerConfig
}

// ObservationOptions filters observation listings. The zero value requires
// coordinates and photos on every observation.
type ObservationOptions struct {
	PerPage           int
	Page              int
	QualityGrade      string
	AllowMissingGeo   bool
	AllowMissingPhoto bool
	OrderBy           string
	Order             string
}

// Client is the taxon search client.
type Client struct {
	api      inaturalist.Client
	apiKey   string
	perPage  int
	radiusKm float64
	retry    resilience.RetryConfig
	breaker  *resilience.CircuitBreaker
}

// New validates cfg and returns a Client. A missing credential is a config error.
func New(api inaturalist.Client, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, apperr.New(apperr.KindConfig, "observation database credential (inaturalist.api_key) is not configured")
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = defaultPerPage
	}
	if cfg.NearbyRadiusKm <= 0 {
		cfg.NearbyRadiusKm = defaultRadiusKm
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = resilience.DefaultRetryConfig()
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = resilience.DefaultCircuitBreakerConfig(service)
	}
	return &Client{
		api:      api,
		apiKey:   cfg.APIKey,
		perPage:  cfg.PerPage,
		radiusKm: cfg.NearbyRadiusKm,
		retry:    cfg.Retry,
		breaker:  resilience.NewCircuitBreaker(cfg.Breaker),
	}, nil
}

// SearchTaxaByText runs a free-text taxon search. Zero matches is an empty
// slice, not an error.
func (c *Client) SearchTaxaByText(ctx context.Context, query string, perPage int) ([]model.Taxon, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.Taxon{}, nil
	}
	if perPage <= 0 {
		perPage = c.perPage
	}

	resp, err := call(ctx, c, "search_taxa", func(ctx context.Context) (*inaturalist.TaxaResponse, error) {
		return c.api.SearchTaxa(ctx, query, clampPerPage(perPage))
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.Taxon, 0, len(resp.Results))
	for _, raw := range resp.Results {
		out = append(out, toTaxon(raw))
	}
	return out, nil
}

// GetTaxon fetches one taxon with its checklist establishment data.
func (c *Client) GetTaxon(ctx context.Context, taxonID int64) (*model.Taxon, error) {
	raw, err := call(ctx, c, "get_taxon", func(ctx context.Context) (*inaturalist.Taxon, error) {
		return c.api.GetTaxon(ctx, taxonID)
	})
	if err != nil {
		return nil, err
	}
	tx := toTaxon(*raw)
	return &tx, nil
}

// ListObservations lists observations of a taxon without a geographic constraint.
func (c *Client) ListObservations(ctx context.Context, taxonID int64, opts ObservationOptions) ([]model.Observation, error) {
	return c.listObservations(ctx, taxonID, opts, nil)
}

// ListNearbyObservations lists observations around a point. Points inside a
// large basin search the whole basin box instead of the radius.
func (c *Client) ListNearbyObservations(ctx context.Context, taxonID int64, lat, lng, radiusKm float64, opts ObservationOptions) ([]model.Observation, error) {
	if radiusKm <= 0 {
		radiusKm = c.radiusKm
	}
	return c.listObservations(ctx, taxonID, opts, NearbyBounds(lat, lng, radiusKm))
}

func (c *Client) listObservations(ctx context.Context, taxonID int64, opts ObservationOptions, bounds *inaturalist.BoundingBox) ([]model.Observation, error) {
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = c.perPage
	}
	q := inaturalist.ObservationQuery{
		TaxonID:      taxonID,
		PerPage:      clampPerPage(perPage),
		Page:         opts.Page,
		QualityGrade: opts.QualityGrade,
		Geo:          !opts.AllowMissingGeo,
		Photos:       !opts.AllowMissingPhoto,
		Bounds:       bounds,
		OrderBy:      opts.OrderBy,
		Order:        opts.Order,
	}

	resp, err := call(ctx, c, "list_observations", func(ctx context.Context) (*inaturalist.ObservationsResponse, error) {
		return c.api.ListObservations(ctx, q)
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.Observation, 0, len(resp.Results))
	for _, raw := range resp.Results {
		out = append(out, toObservation(raw, taxonID))
	}
	return out, nil
}

// NearbyBounds converts a radius to a bounding box, or returns the basin box
// when the point lies in a large basin.
func NearbyBounds(lat, lng, radiusKm float64) *inaturalist.BoundingBox {
	if b, ok := region.LargeBasinAt(lat, lng); ok {
		return &inaturalist.BoundingBox{SWLat: b.MinLat, SWLng: b.MinLng, NELat: b.MaxLat, NELng: b.MaxLng}
	}

	dLat := radiusKm / kmPerDegreeLat
	dLng := 180.0
	if cos := math.Cos(lat * math.Pi / 180); cos > 0.01 {
		dLng = math.Min(radiusKm/(kmPerDegreeLat*cos), 180)
	}
	return &inaturalist.BoundingBox{
		SWLat: math.Max(lat-dLat, -90),
		SWLng: math.Max(lng-dLng, -180),
		NELat: math.Min(lat+dLat, 90),
		NELng: math.Min(lng+dLng, 180),
	}
}

// call runs fn with retries inside the circuit breaker and classifies failures.
func call[T any](ctx context.Context, c *Client, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	retry := c.retry
	retry.OnRetry = resilience.RetryLogger(service, op)

	val, err := resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (T, error) {
		return resilience.DoVal(ctx, retry, func(ctx context.Context) (T, error) {
			v, err := fn(ctx)
			var se *inaturalist.StatusError
			if errors.As(err, &se) && resilience.IsTransientHTTPStatus(se.StatusCode) {
				return v, resilience.NewTransientError(err, se.StatusCode)
			}
			return v, err
		})
	})
	if err != nil {
		var zero T
		return zero, c.classify(op, err)
	}
	return val, nil
}

func (c *Client) classify(op string, err error) error {
	var se *inaturalist.StatusError
	switch {
	case errors.As(err, &se):
		msg := fmt.Sprintf("observation database returned status %d: %s", se.StatusCode, apperr.Redact(se.Body, c.apiKey))
		return apperr.Wrap(apperr.KindUpstream, err, msg)
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperr.Wrap(apperr.KindUpstream, err, "observation database is temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.KindUpstream, err, "observation database request timed out")
	case errors.Is(err, context.Canceled):
		return eris.Wrapf(err, "taxa: %s", op)
	default:
		return apperr.Wrap(apperr.KindUpstream, err, apperr.Redact(fmt.Sprintf("observation database %s failed", op), c.apiKey))
	}
}

func clampPerPage(n int) int {
	if n > maxPerPage {
		return maxPerPage
	}
	return n
}
