package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-finder/internal/config"
	"github.com/sells-group/lead-finder/internal/crawl"
	"github.com/sells-group/lead-finder/internal/model"
	"github.com/sells-group/lead-finder/internal/store"
	"github.com/sells-group/lead-finder/pkg/places"
)

// upstreamFixture serves a one-page nearby search with two places, one of
// which has a website.
func upstreamFixture(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/nearbysearch/json":
			_ = json.NewEncoder(w).Encode(places.NearbySearchResponse{
				Status: places.StatusOK,
				Results: []places.SearchResult{
					{PlaceID: "p1", Name: "Corner Bakery", Vicinity: "12 Main St", Types: []string{"bakery"}, BusinessStatus: "OPERATIONAL"},
					{PlaceID: "p2", Name: "Hidden Cafe", Vicinity: "9 Side St", Types: []string{"cafe"}, BusinessStatus: "OPERATIONAL"},
				},
			})
		case "/details/json":
			resp := places.DetailsResponse{Status: places.StatusZeroResults}
			if r.URL.Query().Get("place_id") == "p1" {
				resp = places.DetailsResponse{
					Status: places.StatusOK,
					Result: places.DetailsResult{Website: "https://cornerbakery.example", Phone: "555-0100"},
				}
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, apiKey, baseURL string) (*Server, store.Store) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "places.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	client := places.NewClient(apiKey, places.WithBaseURL(baseURL), places.WithRateLimit(1000))
	runner := crawl.NewRunner(st, crawl.NewPaginator(client, time.Millisecond), crawl.NewEnricher(client, time.Second))

	cfg := &config.Config{}
	cfg.Google.APIKey = apiKey
	cfg.Crawl.DefaultLocation = "50.0405,-110.6766"
	cfg.Crawl.DefaultRadiusKM = 20
	cfg.Crawl.DefaultTypes = []string{"restaurant"}
	cfg.Server.EventsPollMS = 10

	return NewServer(st, runner, cfg), st
}

func doGET(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func waitCrawl(t *testing.T, s *Server) {
	t.Helper()
	select {
	case <-s.runner.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("crawl did not finish")
	}
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t, "test-key", "http://unused.invalid")

	rec := doGET(t, s, "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, serviceName, body["service"])
	assert.Equal(t, false, body["crawling"])
}

func TestHandleCrawl_MissingAPIKey(t *testing.T) {
	s, _ := newTestServer(t, "", "http://unused.invalid")

	rec := doGET(t, s, "/crawl")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "API key")
}

func TestHandleCrawl_BadParams(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"non-numeric radius", "/crawl?radius=abc"},
		{"negative radius", "/crawl?radius=-3"},
		{"zero radius", "/crawl?radius=0"},
		{"blank types", "/crawl?types=%20,%20"},
		{"unknown has_website", "/crawl?has_website=maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, "test-key", "http://unused.invalid")
			rec := doGET(t, s, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHandleCrawl_StartsAndStores(t *testing.T) {
	upstream := upstreamFixture(t)
	s, st := newTestServer(t, "test-key", upstream.URL)

	rec := doGET(t, s, "/crawl?types=bakery&radius=5&has_website=both")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "started", decodeBody(t, rec)["status"])

	waitCrawl(t, s)

	rows, maxID, err := st.ReadAfter(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), maxID)
	assert.Equal(t, "Corner Bakery", rows[0].Name)
	assert.Equal(t, "https://cornerbakery.example", rows[0].Website)
	assert.Equal(t, "555-0100", rows[0].Phone)
	assert.Empty(t, rows[1].Website)
}

func TestHandleCrawl_WebsiteFilter(t *testing.T) {
	upstream := upstreamFixture(t)
	s, st := newTestServer(t, "test-key", upstream.URL)

	rec := doGET(t, s, "/crawl?types=bakery&has_website=no")
	require.Equal(t, http.StatusOK, rec.Code)
	waitCrawl(t, s)

	rows, _, err := st.ReadAfter(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Hidden Cafe", rows[0].Name)
}

func TestHandleStream_CursorAdvances(t *testing.T) {
	s, st := newTestServer(t, "test-key", "http://unused.invalid")
	for _, name := range []string{"First", "Second", "Third"} {
		require.NoError(t, st.Append(context.Background(), &model.Place{Name: name, Status: "OPERATIONAL"}))
	}

	rec := doGET(t, s, "/stream")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(3), body["last_id"])
	assert.Len(t, body["results"], 3)

	rec = doGET(t, s, "/stream?last_id=2")
	body = decodeBody(t, rec)
	assert.Equal(t, float64(3), body["last_id"])
	require.Len(t, body["results"], 1)
}

func TestHandleStream_NothingNew(t *testing.T) {
	s, st := newTestServer(t, "test-key", "http://unused.invalid")
	require.NoError(t, st.Append(context.Background(), &model.Place{Name: "Only", Status: "OPERATIONAL"}))

	rec := doGET(t, s, "/stream?last_id=1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["last_id"], "cursor stays put when nothing is new")
	assert.Len(t, body["results"], 0)
}

func TestHandleStream_EmptyStore(t *testing.T) {
	s, _ := newTestServer(t, "test-key", "http://unused.invalid")

	rec := doGET(t, s, "/stream")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(0), body["last_id"])
	results, ok := body["results"].([]any)
	require.True(t, ok, "results must be a JSON array, not null")
	assert.Empty(t, results)
}

func TestHandleStream_InvalidLastID(t *testing.T) {
	s, _ := newTestServer(t, "test-key", "http://unused.invalid")

	for _, target := range []string{"/stream?last_id=abc", "/stream?last_id=-1"} {
		rec := doGET(t, s, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestHandleEvents_CompleteWhenIdle(t *testing.T) {
	s, _ := newTestServer(t, "test-key", "http://unused.invalid")

	rec := doGET(t, s, "/events")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event: complete\ndata: {\"last_id\": 0}")
}

func TestHandleEvents_ResultsThenComplete(t *testing.T) {
	s, st := newTestServer(t, "test-key", "http://unused.invalid")
	require.NoError(t, st.Append(context.Background(), &model.Place{Name: "Corner Bakery", Status: "OPERATIONAL"}))
	require.NoError(t, st.Append(context.Background(), &model.Place{Name: "Hidden Cafe", Status: "OPERATIONAL"}))

	rec := doGET(t, s, "/events")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	resultsIdx := strings.Index(body, "event: results\n")
	completeIdx := strings.Index(body, "event: complete\ndata: {\"last_id\": 2}")
	require.GreaterOrEqual(t, resultsIdx, 0, "results event missing: %s", body)
	require.GreaterOrEqual(t, completeIdx, 0, "complete event missing: %s", body)
	assert.Less(t, resultsIdx, completeIdx)
	assert.Contains(t, body, "Corner Bakery")
	assert.Contains(t, body, "Hidden Cafe")
}

func TestHandleEvents_ResumesFromLastID(t *testing.T) {
	s, st := newTestServer(t, "test-key", "http://unused.invalid")
	require.NoError(t, st.Append(context.Background(), &model.Place{Name: "Already Seen", Status: "OPERATIONAL"}))
	require.NoError(t, st.Append(context.Background(), &model.Place{Name: "Fresh Row", Status: "OPERATIONAL"}))

	rec := doGET(t, s, "/events?last_id=1")
	body := rec.Body.String()
	assert.NotContains(t, body, "Already Seen")
	assert.Contains(t, body, "Fresh Row")
	assert.Contains(t, body, "event: complete\ndata: {\"last_id\": 2}")
}
