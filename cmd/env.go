package main

import (
	"context"
	"time"

	"github.com/sells-group/lead-finder/internal/crawl"
	"github.com/sells-group/lead-finder/internal/store"
	"github.com/sells-group/lead-finder/pkg/places"
)

// env bundles the constructed store and crawl runner for a command.
type env struct {
	Store  store.Store
	Runner *crawl.Runner
}

// initEnv opens the store, runs migrations, and builds the crawl pipeline
// from the loaded config.
func initEnv(ctx context.Context) (*env, error) {
	st, err := store.New(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	opts := []places.Option{
		places.WithRateLimit(cfg.Google.RateLimit),
		places.WithTimeout(time.Duration(cfg.Google.TimeoutSecs) * time.Second),
	}
	if cfg.Google.BaseURL != "" {
		opts = append(opts, places.WithBaseURL(cfg.Google.BaseURL))
	}
	client := places.NewClient(cfg.Google.APIKey, opts...)

	runner := crawl.NewRunner(
		st,
		crawl.NewPaginator(client, time.Duration(cfg.Google.PageDelayMS)*time.Millisecond),
		crawl.NewEnricher(client, time.Duration(cfg.Google.TimeoutSecs)*time.Second),
	)

	return &env{Store: st, Runner: runner}, nil
}

// Close releases the store.
func (e *env) Close() {
	_ = e.Store.Close()
}
