package crawl

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-finder/pkg/places"
)

const defaultDetailTimeout = 10 * time.Second

// Enricher fetches the website and phone for a place from the detail
// endpoint.
type Enricher struct {
	client  places.Client
	timeout time.Duration
}

// NewEnricher creates an Enricher with a bounded per-lookup timeout.
func NewEnricher(client places.Client, timeout time.Duration) *Enricher {
	if timeout <= 0 {
		timeout = defaultDetailTimeout
	}
	return &Enricher{client: client, timeout: timeout}
}

// Details returns the website and phone for the place. Every failure mode
// (timeout, network, non-OK status, malformed body) yields empty fields; a
// missing detail never aborts a crawl.
func (e *Enricher) Details(ctx context.Context, placeID string) (website, phone string) {
	dctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.Details(dctx, placeID)
	if err != nil {
		zap.L().Debug("place details lookup failed",
			zap.String("place_id", placeID),
			zap.Error(err),
		)
		return "", ""
	}
	if resp.Status != places.StatusOK {
		return "", ""
	}
	return resp.Result.Website, resp.Result.Phone
}
