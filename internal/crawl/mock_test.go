package crawl

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/lead-finder/pkg/places"
)

// fakeClient scripts Places API responses for pipeline tests.
type fakeClient struct {
	mu sync.Mutex

	// pages maps keyword -> token -> response; "" is the first page.
	pages map[string]map[string]*places.NearbySearchResponse
	// details maps place ID -> detail response.
	details map[string]*places.DetailsResponse
	// detailsErr, when set, fails every Details call.
	detailsErr error
	// searchDelay slows NearbySearch down, honoring ctx cancellation.
	searchDelay time.Duration

	searchCalls []places.NearbySearchRequest
	searchTimes []time.Time
}

func (f *fakeClient) NearbySearch(ctx context.Context, req places.NearbySearchRequest) (*places.NearbySearchResponse, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, req)
	f.searchTimes = append(f.searchTimes, time.Now())
	delay := f.searchDelay
	f.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	byToken, ok := f.pages[req.Keyword]
	if !ok {
		return &places.NearbySearchResponse{Status: places.StatusZeroResults}, nil
	}
	resp, ok := byToken[req.PageToken]
	if !ok {
		return &places.NearbySearchResponse{Status: places.StatusZeroResults}, nil
	}
	return resp, nil
}

func (f *fakeClient) Details(ctx context.Context, placeID string) (*places.DetailsResponse, error) {
	if f.detailsErr != nil {
		return nil, f.detailsErr
	}
	if resp, ok := f.details[placeID]; ok {
		return resp, nil
	}
	return &places.DetailsResponse{Status: places.StatusZeroResults}, nil
}

func (f *fakeClient) setSearchDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchDelay = d
}

func (f *fakeClient) calls() []places.NearbySearchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]places.NearbySearchRequest(nil), f.searchCalls...)
}

func (f *fakeClient) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.searchTimes...)
}

func result(id, name string, types ...string) places.SearchResult {
	return places.SearchResult{
		PlaceID:        id,
		Name:           name,
		Vicinity:       name + " address",
		Types:          types,
		BusinessStatus: "OPERATIONAL",
	}
}

func detail(website, phone string) *places.DetailsResponse {
	return &places.DetailsResponse{
		Status: places.StatusOK,
		Result: places.DetailsResult{Website: website, Phone: phone},
	}
}
