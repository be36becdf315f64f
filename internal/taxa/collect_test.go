package taxa

import (
	"context"
	"net/http"
	"strconv"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/fieldguide/internal/apperr"
)

func registerTaxonLookup(mt *httpmock.MockTransport) {
	mt.RegisterResponder(http.MethodGet, testBase+"/taxa",
		httpmock.NewStringResponder(http.StatusOK,
			`{"results":[{"id":48662,"name":"Danaus plexippus","rank":"species","rank_level":10}]}`))
}

func pageOf(start, n int) map[string]any {
	results := make([]map[string]any, n)
	for i := range results {
		results[i] = map[string]any{"id": start + i, "quality_grade": "research"}
	}
	return map[string]any{"results": results}
}

func TestCollect_PagesUntilCount(t *testing.T) {
	c, mt := newTestClient(t)
	registerTaxonLookup(mt)

	var pages []string
	mt.RegisterResponder(http.MethodGet, testBase+"/observations",
		func(req *http.Request) (*http.Response, error) {
			q := req.URL.Query()
			pages = append(pages, q.Get("page"))
			assert.Equal(t, "48662", q.Get("taxon_id"))
			assert.Equal(t, "research", q.Get("quality_grade"))
			assert.Equal(t, "quality_grade", q.Get("order_by"))
			assert.Equal(t, "desc", q.Get("order"))
			assert.Equal(t, "true", q.Get("photos"))
			page, _ := strconv.Atoi(q.Get("page"))
			return httpmock.NewJsonResponse(http.StatusOK, pageOf(page*10, 4))
		})

	got, err := c.Collect(context.Background(), "monarch", CollectOptions{Count: 10, PageSize: 4})
	require.NoError(t, err)
	assert.Equal(t, "Danaus plexippus", got.Taxon.Name)
	assert.Len(t, got.Observations, 10)
	assert.Equal(t, []string{"1", "2", "3"}, pages)
}

func TestCollect_StopsOnEmptyPage(t *testing.T) {
	c, mt := newTestClient(t)
	registerTaxonLookup(mt)
	mt.RegisterResponder(http.MethodGet, testBase+"/observations",
		func(req *http.Request) (*http.Response, error) {
			if req.URL.Query().Get("page") == "1" {
				return httpmock.NewJsonResponse(http.StatusOK, pageOf(0, 3))
			}
			return httpmock.NewJsonResponse(http.StatusOK, pageOf(0, 0))
		})

	got, err := c.Collect(context.Background(), "monarch", CollectOptions{Count: 50, PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, got.Observations, 3)
}

func TestCollect_UnknownTaxon(t *testing.T) {
	c, mt := newTestClient(t)
	mt.RegisterResponder(http.MethodGet, testBase+"/taxa",
		httpmock.NewStringResponder(http.StatusOK, `{"results":[]}`))

	_, err := c.Collect(context.Background(), "nothing", CollectOptions{Count: 5})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestCollect_InvalidCount(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.Collect(context.Background(), "monarch", CollectOptions{})
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}
