package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-finder/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode so the crawl writer never blocks pollers.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// AUTOINCREMENT keeps the rowid sequence monotonic across deletes, so a
// Reset never hands out an identifier a poller has already seen.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS places (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL DEFAULT '',
	address    TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	website    TEXT NOT NULL DEFAULT '',
	rating     REAL,
	types      TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT '',
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return storageErr("migrate", err)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM places`)
	return storageErr("reset", err)
}

func (s *SQLiteStore) Append(ctx context.Context, p *model.Place) error {
	p.FetchedAt = time.Now().UTC()
	var rating sql.NullFloat64
	if p.Rating != nil {
		rating = sql.NullFloat64{Float64: *p.Rating, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO places (name, address, phone, website, rating, types, status, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Address, p.Phone, p.Website, rating, model.JoinTypes(p.Types), p.Status, p.FetchedAt,
	)
	return storageErr("append", err)
}

func (s *SQLiteStore) ReadAfter(ctx context.Context, lastID int64) ([]model.Place, int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, address, phone, website, rating, types, status, fetched_at
		 FROM places WHERE id > ? ORDER BY id ASC`,
		lastID,
	)
	if err != nil {
		return nil, lastID, storageErr("read after", err)
	}
	defer rows.Close()

	places := make([]model.Place, 0)
	maxID := lastID
	for rows.Next() {
		var (
			p      model.Place
			rating sql.NullFloat64
			types  string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.Phone, &p.Website, &rating, &types, &p.Status, &p.FetchedAt); err != nil {
			return nil, lastID, storageErr("scan place", err)
		}
		if rating.Valid {
			p.Rating = &rating.Float64
		}
		p.Types = model.SplitTypes(types)
		places = append(places, p)
		maxID = p.ID
	}
	if err := rows.Err(); err != nil {
		return nil, lastID, storageErr("read after iterate", err)
	}
	return places, maxID, nil
}
