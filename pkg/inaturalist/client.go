// Package inaturalist is a thin REST client for the iNaturalist v1 API.
package inaturalist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.inaturalist.org/v1"

// Client defines the iNaturalist operations used by the taxa layer.
type Client interface {
	SearchTaxa(ctx context.Context, query string, perPage int) (*TaxaResponse, error)
	GetTaxon(ctx context.Context, id int64) (*Taxon, error)
	ListObservations(ctx context.Context, q ObservationQuery) (*ObservationsResponse, error)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("inaturalist: unexpected status %d: %s", e.StatusCode, e.Body)
}

// ErrNotFound is returned by GetTaxon when the id has no record.
var ErrNotFound = eris.New("inaturalist: taxon not found")

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		c.http.Timeout = d
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an iNaturalist API client. apiKey is sent as the
// Authorization header when non-empty.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(5, 5),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchTaxa(ctx context.Context, query string, perPage int) (*TaxaResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("is_active", "true")

	var out TaxaResponse
	if err := c.get(ctx, "/taxa", params, &out); err != nil {
		return nil, eris.Wrapf(err, "inaturalist: search taxa %q", query)
	}
	return &out, nil
}

func (c *httpClient) GetTaxon(ctx context.Context, id int64) (*Taxon, error) {
	var out TaxaResponse
	if err := c.get(ctx, "/taxa/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return nil, eris.Wrapf(err, "inaturalist: get taxon %d", id)
	}
	if len(out.Results) == 0 {
		return nil, ErrNotFound
	}
	return &out.Results[0], nil
}

func (c *httpClient) ListObservations(ctx context.Context, q ObservationQuery) (*ObservationsResponse, error) {
	params := url.Values{}
	params.Set("taxon_id", strconv.FormatInt(q.TaxonID, 10))
	if q.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.QualityGrade != "" && q.QualityGrade != "any" {
		params.Set("quality_grade", q.QualityGrade)
	}
	if q.Geo {
		params.Set("geo", "true")
	}
	if q.Photos {
		params.Set("photos", "true")
	}
	if b := q.Bounds; b != nil {
		params.Set("swlat", formatCoord(b.SWLat))
		params.Set("swlng", formatCoord(b.SWLng))
		params.Set("nelat", formatCoord(b.NELat))
		params.Set("nelng", formatCoord(b.NELng))
	}
	if q.OrderBy != "" {
		params.Set("order_by", q.OrderBy)
	}
	if q.Order != "" {
		params.Set("order", q.Order)
	}

	var out ObservationsResponse
	if err := c.get(ctx, "/observations", params, &out); err != nil {
		return nil, eris.Wrapf(err, "inaturalist: list observations for taxon %d", q.TaxonID)
	}
	return &out, nil
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limiter")
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 300)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
