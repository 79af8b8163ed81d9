package crawl

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-finder/internal/model"
	"github.com/sells-group/lead-finder/internal/store"
	"github.com/sells-group/lead-finder/pkg/places"
)

// Runner owns the single background crawl slot. Starting a new crawl
// cancels the previous run and waits for it to drain before the store is
// reset, so two runs never interleave writes.
type Runner struct {
	store     store.Store
	paginator *Paginator
	enricher  *Enricher

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRunner creates a Runner over the given pipeline stages.
func NewRunner(st store.Store, p *Paginator, e *Enricher) *Runner {
	return &Runner{store: st, paginator: p, enricher: e}
}

// Start resets the store and launches the crawl in the background,
// returning the run ID once the reset has committed. A crawl already in
// flight is canceled and drained first. The background task itself never
// reports errors to the caller; progress is observable only through the
// store.
func (r *Runner) Start(ctx context.Context, req model.CrawlRequest) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		<-r.done
	}

	if err := r.store.Reset(ctx); err != nil {
		return "", eris.Wrap(err, "crawl: reset store")
	}

	runID := uuid.New().String()
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	go func() {
		defer close(done)
		defer cancel()
		r.run(runCtx, runID, req)
	}()

	return runID, nil
}

// Running reports whether a crawl is currently in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		return false
	}
	select {
	case <-r.done:
		return false
	default:
		return true
	}
}

// Done returns a channel closed when the most recently started crawl
// finishes. When no crawl has been started it returns an already-closed
// channel.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return r.done
}

// run executes one crawl: categories strictly in order, each record
// enriched, filtered, and appended. Per-category errors are logged and the
// loop moves on; nothing escapes the background task.
func (r *Runner) run(ctx context.Context, runID string, req model.CrawlRequest) {
	log := zap.L().With(
		zap.String("component", "crawl.runner"),
		zap.String("run_id", runID),
	)
	start := time.Now()
	var stored int

	for _, category := range req.Types {
		if ctx.Err() != nil {
			log.Info("crawl canceled", zap.Int("stored", stored))
			return
		}

		cLog := log.With(zap.String("category", category))
		cLog.Info("crawl category start")

		search := places.NearbySearchRequest{
			Location: req.Location,
			Radius:   req.RadiusMeters(),
			Keyword:  category,
		}
		if req.Keyword != "" {
			search.Keyword = req.Keyword
		}

		kept := 0
		err := r.paginator.Search(ctx, search, func(res places.SearchResult) error {
			website, phone := r.enricher.Details(ctx, res.PlaceID)
			if !req.Mode.Includes(website) {
				return nil
			}
			p := &model.Place{
				Name:    res.Name,
				Address: res.Vicinity,
				Phone:   phone,
				Website: website,
				Rating:  res.Rating,
				Types:   res.Types,
				Status:  res.BusinessStatus,
			}
			if err := r.store.Append(ctx, p); err != nil {
				return err
			}
			kept++
			return nil
		})
		stored += kept

		switch {
		case err == nil:
			cLog.Info("crawl category complete", zap.Int("kept", kept))
		case errors.Is(err, context.Canceled):
			log.Info("crawl canceled", zap.Int("stored", stored))
			return
		case store.IsStorageError(err):
			cLog.Error("storage failure, category aborted", zap.Error(err), zap.Int("kept", kept))
		default:
			var ue *places.UpstreamError
			if errors.As(err, &ue) {
				cLog.Warn("category aborted by upstream",
					zap.String("status", ue.Status),
					zap.Bool("terminal", ue.Terminal()),
					zap.Int("kept", kept),
				)
			} else {
				cLog.Error("category failed", zap.Error(err), zap.Int("kept", kept))
			}
		}
	}

	log.Info("crawl complete",
		zap.Int("categories", len(req.Types)),
		zap.Int("stored", stored),
		zap.Duration("elapsed", time.Since(start)),
	)
}
