package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/fieldguide/internal/apperr"
	"github.com/sells-group/fieldguide/internal/history"
	"github.com/sells-group/fieldguide/internal/identify"
	"github.com/sells-group/fieldguide/internal/model"
	"github.com/sells-group/fieldguide/pkg/vision"
)

type mockIdentifier struct {
	mock.Mock
}

func (m *mockIdentifier) Identify(ctx context.Context, req identify.Request) (*model.IdentificationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.IdentificationResult), args.Error(1)
}

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) SearchTaxaByText(ctx context.Context, query string, perPage int) ([]model.Taxon, error) {
	args := m.Called(ctx, query, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Taxon), args.Error(1)
}

var jpeg = []byte("\xff\xd8\xff\xe0fake")

func newTestServer(id Identifier, s TaxonSearcher, h history.Store) http.Handler {
	return NewServer(id, s, h, Config{MaxUploadBytes: 1 << 20}).Handler()
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) model.ErrorResult {
	t.Helper()
	var body struct {
		Error model.ErrorResult `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error
}

func TestHealth(t *testing.T) {
	rr := do(t, newTestServer(nil, nil, nil), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestIdentify_Multipart(t *testing.T) {
	id := &mockIdentifier{}
	want := identify.Request{
		Image: vision.Image{Data: jpeg, MediaType: "image/jpeg"},
		Location: &model.LocationData{
			Coords: model.Coords{Lat: -3.1, Lng: -60}, Name: "Manaus", Source: model.LocationGPS,
		},
	}
	id.On("Identify", mock.Anything, want).
		Return(&model.IdentificationResult{Name: "Oxysternon conspicillatum", Confidence: 0.92}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="image"; filename="beetle.jpg"`)
	hdr.Set("Content-Type", "image/jpeg")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(jpeg)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("lat", "-3.1"))
	require.NoError(t, mw.WriteField("lng", "-60"))
	require.NoError(t, mw.WriteField("place", "Manaus"))
	require.NoError(t, mw.WriteField("source", "gps"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/identify", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := do(t, newTestServer(id, nil, nil), req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var res model.IdentificationResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "Oxysternon conspicillatum", res.Name)
	id.AssertExpectations(t)
}

func TestIdentify_JSONBase64DataURL(t *testing.T) {
	id := &mockIdentifier{}
	want := identify.Request{Image: vision.Image{Data: jpeg, MediaType: "image/jpeg"}}
	id.On("Identify", mock.Anything, want).Return(&model.IdentificationResult{Name: "x"}, nil)

	body := `{"image_base64":"data:image/jpeg;base64,` + base64.StdEncoding.EncodeToString(jpeg) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/identify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := do(t, newTestServer(id, nil, nil), req)

	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	id.AssertExpectations(t)
}

func TestIdentify_JSONImageURL(t *testing.T) {
	id := &mockIdentifier{}
	loc := &model.LocationData{Coords: model.Coords{Lat: 51.5, Lng: -0.1}}
	want := identify.Request{Image: vision.Image{URL: "https://example.org/bee.jpg"}, Location: loc}
	id.On("Identify", mock.Anything, want).Return(&model.IdentificationResult{Name: "Apis mellifera"}, nil)

	body := `{"image_url":"https://example.org/bee.jpg","location":{"coords":{"lat":51.5,"lng":-0.1}}}`
	req := httptest.NewRequest(http.MethodPost, "/api/identify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := do(t, newTestServer(id, nil, nil), req)

	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	id.AssertExpectations(t)
}

func TestIdentify_BadRequests(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		message     string
	}{
		{"malformed json", "application/json", `{"image_url":`, "malformed request body"},
		{"no image", "application/json", `{}`, "image_url or image_base64 is required"},
		{"both sources", "application/json", `{"image_url":"https://a/b.jpg","image_base64":"AAAA"}`, "not both"},
		{"bad base64", "application/json", `{"image_base64":"%%%"}`, "not valid base64"},
		{"content type", "text/plain", `hello`, "unsupported content type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := &mockIdentifier{}
			req := httptest.NewRequest(http.MethodPost, "/api/identify", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			rr := do(t, newTestServer(id, nil, nil), req)

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			e := decodeError(t, rr)
			assert.Equal(t, string(apperr.KindInvalidInput), e.ErrorKind)
			assert.Contains(t, e.Message, tt.message)
			id.AssertNotCalled(t, "Identify", mock.Anything, mock.Anything)
		})
	}
}

func TestIdentify_BodyTooLarge(t *testing.T) {
	h := NewServer(&mockIdentifier{}, nil, nil, Config{MaxUploadBytes: 16}).Handler()
	body := `{"image_base64":"` + strings.Repeat("A", 64) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/identify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := do(t, h, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Message, "exceeds 16 bytes")
}

func TestIdentify_RateLimited(t *testing.T) {
	id := &mockIdentifier{}
	id.On("Identify", mock.Anything, mock.Anything).
		Return(nil, apperr.RateLimited("all vision models are rate limited"))

	req := httptest.NewRequest(http.MethodPost, "/api/identify", strings.NewReader(`{"image_url":"https://a/b.jpg"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := do(t, newTestServer(id, nil, nil), req)

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))
	e := decodeError(t, rr)
	assert.Equal(t, string(apperr.KindRateLimited), e.ErrorKind)
	assert.Equal(t, 60, e.RetryAfterSecs)
	assert.NotEmpty(t, e.RetryGuidance)
}

func TestIdentify_UnclassifiedErrorHidden(t *testing.T) {
	id := &mockIdentifier{}
	id.On("Identify", mock.Anything, mock.Anything).Return(nil, errors.New("pq: secret dsn leaked"))

	req := httptest.NewRequest(http.MethodPost, "/api/identify", strings.NewReader(`{"image_url":"https://a/b.jpg"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := do(t, newTestServer(id, nil, nil), req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret")
	assert.Equal(t, "internal error", decodeError(t, rr).Message)
}

func TestTaxa(t *testing.T) {
	s := &mockSearcher{}
	s.On("SearchTaxaByText", mock.Anything, "monarch", 50).
		Return([]model.Taxon{{ID: 48662, Name: "Danaus plexippus"}}, nil)

	rr := do(t, newTestServer(nil, s, nil), httptest.NewRequest(http.MethodGet, "/api/taxa?q=monarch&per_page=500", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Results []model.Taxon `json:"results"`
		Total   int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, "Danaus plexippus", body.Results[0].Name)
	s.AssertExpectations(t)
}

func TestTaxa_Validation(t *testing.T) {
	h := newTestServer(nil, &mockSearcher{}, nil)

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/api/taxa?q=%20", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/api/taxa?q=bee&per_page=ten", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Message, "per_page must be an integer")
}

func TestRegion(t *testing.T) {
	h := newTestServer(nil, nil, nil)

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/api/region?lat=-3.1&lng=-60", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.NotEmpty(t, body["region"])

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/api/region?lat=95&lng=0", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/api/region?lat=10", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Message, "sent together")

	rr = do(t, h, httptest.NewRequest(http.MethodGet, "/api/region", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHistoryRoutes(t *testing.T) {
	ctx := context.Background()
	store := history.NewMemory(0)
	_, err := store.Append(ctx, model.HistoryRecord{Result: model.IdentificationResult{Category: model.CategoryInsect, Name: "Morpho"}})
	require.NoError(t, err)
	_, err = store.Append(ctx, model.HistoryRecord{Result: model.IdentificationResult{Category: model.CategoryPlant, Name: "Digitalis"}})
	require.NoError(t, err)

	h := newTestServer(nil, nil, store)

	rr := do(t, h, httptest.NewRequest(http.MethodGet, "/api/history?category=insect", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Records []model.HistoryRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Records, 1)
	assert.Equal(t, "Morpho", body.Records[0].Result.Name)

	rr = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/history", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	recs, err := store.List(ctx, history.Filter{})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestHistoryRoutes_DisabledWithoutStore(t *testing.T) {
	rr := do(t, newTestServer(nil, nil, nil), httptest.NewRequest(http.MethodGet, "/api/history", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := NewServer(nil, nil, nil, Config{CORSOrigins: []string{"https://app.example.org"}}).Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/identify", nil)
	req.Header.Set("Origin", "https://app.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := do(t, h, req)

	assert.Equal(t, "https://app.example.org", rr.Header().Get("Access-Control-Allow-Origin"))
}
