// Package places provides a client for the Google Places Web Service
// (nearby search and place details).
package places

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

const defaultBaseURL = "https://maps.googleapis.com/maps/api/place"

// Statuses reported in the body of a Places API response.
const (
	StatusOK             = "OK"
	StatusZeroResults    = "ZERO_RESULTS"
	StatusOverQueryLimit = "OVER_QUERY_LIMIT"
	StatusRequestDenied  = "REQUEST_DENIED"
	StatusInvalidRequest = "INVALID_REQUEST"
)

// Client performs Places API operations.
type Client interface {
	NearbySearch(ctx context.Context, req NearbySearchRequest) (*NearbySearchResponse, error)
	Details(ctx context.Context, placeID string) (*DetailsResponse, error)
}

// NearbySearchRequest describes one page of a nearby search. When PageToken
// is set the API ignores the remaining fields, so only the token and key are
// sent.
type NearbySearchRequest struct {
	Location  string // "lat,lng"
	Radius    int    // meters, at most 50000
	Keyword   string
	PageToken string
}

// SearchResult is one raw place record from a nearby-search page.
type SearchResult struct {
	PlaceID        string   `json:"place_id"`
	Name           string   `json:"name"`
	Vicinity       string   `json:"vicinity"`
	Rating         *float64 `json:"rating"`
	Types          []string `json:"types"`
	BusinessStatus string   `json:"business_status"`
}

// NearbySearchResponse is the body of a nearby-search page.
type NearbySearchResponse struct {
	Status        string         `json:"status"`
	ErrorMessage  string         `json:"error_message"`
	Results       []SearchResult `json:"results"`
	NextPageToken string         `json:"next_page_token"`
}

// DetailsResult holds the supplementary fields requested from the detail
// endpoint.
type DetailsResult struct {
	Website string `json:"website"`
	Phone   string `json:"formatted_phone_number"`
}

// DetailsResponse is the body of a place-details lookup.
type DetailsResponse struct {
	Status string        `json:"status"`
	Result DetailsResult `json:"result"`
}

// UpstreamError reports a non-OK status in an otherwise well-formed API
// response.
type UpstreamError struct {
	Status  string
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("places: upstream status %s", e.Status)
	}
	return fmt.Sprintf("places: upstream status %s: %s", e.Status, e.Message)
}

// Terminal reports whether the status indicates quota exhaustion or
// permission denial, conditions that will not clear within a run.
func (e *UpstreamError) Terminal() bool {
	return e.Status == StatusOverQueryLimit || e.Status == StatusRequestDenied
}

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

// WithRateLimit sets the requests-per-second limit applied to every call.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithTimeout sets the per-request timeout.
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

// NewClient creates a Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(10, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NearbySearch fetches one page of nearby-search results.
func (c *httpClient) NearbySearch(ctx context.Context, req NearbySearchRequest) (*NearbySearchResponse, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	if req.PageToken != "" {
		params.Set("pagetoken", req.PageToken)
	} else {
		params.Set("location", req.Location)
		params.Set("radius", strconv.Itoa(req.Radius))
		params.Set("keyword", req.Keyword)
	}

	var result NearbySearchResponse
	if err := c.get(ctx, "/nearbysearch/json", params, &result); err != nil {
		return nil, eris.Wrap(err, "places: nearby search")
	}
	return &result, nil
}

// Details fetches the website and phone for a place.
func (c *httpClient) Details(ctx context.Context, placeID string) (*DetailsResponse, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("place_id", placeID)
	params.Set("fields", "website,formatted_phone_number")

	var result DetailsResponse
	if err := c.get(ctx, "/details/json", params, &result); err != nil {
		return nil, eris.Wrap(err, "places: details")
	}
	return &result, nil
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}
