// Package store persists crawled places and serves them back in cursor
// order. The places table is append-only within a run: rows are never
// updated or reordered, and a new run clears the table before writing.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-finder/internal/model"
)

// Store is the persistence interface for crawled places.
type Store interface {
	// Reset drops every row. Idempotent. Identifier assignment stays
	// monotonic across resets, so poller cursors remain valid.
	Reset(ctx context.Context) error

	// Append assigns the next identifier and persists the place. The row
	// becomes visible to readers only once the write commits.
	Append(ctx context.Context, p *model.Place) error

	// ReadAfter returns every row with identifier strictly greater than
	// lastID in ascending identifier order, plus the highest identifier
	// seen (lastID unchanged when there are no new rows).
	ReadAfter(ctx context.Context, lastID int64) ([]model.Place, int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// New opens a store for the configured driver.
func New(ctx context.Context, driver, databaseURL string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(databaseURL)
	case "postgres":
		return NewPostgres(ctx, databaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
