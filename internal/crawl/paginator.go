// Package crawl implements the background crawl pipeline: paginated nearby
// search, detail enrichment, inclusion filtering, and persistence.
package crawl

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-finder/pkg/places"
)

// defaultPageDelay is how long the Places API requires before a freshly
// issued next_page_token becomes valid.
const defaultPageDelay = 2 * time.Second

// Paginator drives one category's multi-page nearby search, yielding raw
// records incrementally. A sequence is finite and not restartable; a fresh
// Search re-queries from page one.
type Paginator struct {
	client    places.Client
	pageDelay time.Duration
}

// NewPaginator creates a Paginator. A non-positive pageDelay falls back to
// the upstream-mandated token activation delay.
func NewPaginator(client places.Client, pageDelay time.Duration) *Paginator {
	if pageDelay <= 0 {
		pageDelay = defaultPageDelay
	}
	return &Paginator{client: client, pageDelay: pageDelay}
}

// Search pages through the nearby search described by req, passing each raw
// record to yield in page order. It stops early and returns the error when
// yield fails, returns a *places.UpstreamError when the API reports a
// non-OK status other than ZERO_RESULTS, and returns nil once the pages are
// exhausted. Pages are requested strictly in sequence.
func (p *Paginator) Search(ctx context.Context, req places.NearbySearchRequest, yield func(places.SearchResult) error) error {
	pageToken := ""
	for {
		call := req
		call.PageToken = pageToken

		resp, err := p.client.NearbySearch(ctx, call)
		if err != nil {
			return eris.Wrap(err, "crawl: nearby search")
		}

		switch resp.Status {
		case places.StatusOK:
		case places.StatusZeroResults:
			return nil
		default:
			return &places.UpstreamError{Status: resp.Status, Message: resp.ErrorMessage}
		}

		for _, r := range resp.Results {
			if err := yield(r); err != nil {
				return err
			}
		}

		if resp.NextPageToken == "" {
			return nil
		}
		pageToken = resp.NextPageToken

		t := time.NewTimer(p.pageDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
