package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-finder/internal/db"
	"github.com/sells-group/lead-finder/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// BIGSERIAL sequences are not reset on delete, keeping identifiers monotonic
// across runs just like the sqlite schema.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS places (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	address    TEXT NOT NULL DEFAULT '',
	phone      TEXT NOT NULL DEFAULT '',
	website    TEXT NOT NULL DEFAULT '',
	rating     DOUBLE PRECISION,
	types      TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT '',
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return storageErr("migrate", err)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM places`)
	return storageErr("reset", err)
}

func (s *PostgresStore) Append(ctx context.Context, p *model.Place) error {
	p.FetchedAt = time.Now().UTC()
	var rating sql.NullFloat64
	if p.Rating != nil {
		rating = sql.NullFloat64{Float64: *p.Rating, Valid: true}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO places (name, address, phone, website, rating, types, status, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.Name, p.Address, p.Phone, p.Website, rating, model.JoinTypes(p.Types), p.Status, p.FetchedAt,
	)
	return storageErr("append", err)
}

func (s *PostgresStore) ReadAfter(ctx context.Context, lastID int64) ([]model.Place, int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, address, phone, website, rating, types, status, fetched_at
		 FROM places WHERE id > $1 ORDER BY id ASC`,
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
