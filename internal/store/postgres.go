package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/corpintel/dbd-cli/internal/model"
	"github.com/corpintel/dbd-cli/internal/resolve"
)

// Pool is the subset of pgxpool.Pool the store uses. Satisfied by pgxmock
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements CacheStore on PostgreSQL, for teams sharing one
// resolution cache across operators.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS resolution_cache (
	name_key            TEXT NOT NULL,
	known_reg           TEXT NOT NULL DEFAULT '',
	name                TEXT NOT NULL,
	registration_number TEXT NOT NULL DEFAULT '',
	found_name          TEXT NOT NULL DEFAULT '',
	match_type          TEXT NOT NULL,
	confidence          DOUBLE PRECISION NOT NULL DEFAULT 0,
	strategy            TEXT NOT NULL DEFAULT '',
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (name_key, known_reg)
);

CREATE INDEX IF NOT EXISTS idx_resolution_cache_updated_at ON resolution_cache(updated_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, name, knownRegID string) (*Entry, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT name, known_reg, registration_number, found_name, match_type, strategy, updated_at
		 FROM resolution_cache WHERE name_key = $1 AND known_reg = $2`,
		resolve.NormalizeName(name), knownRegID,
	)

	var e Entry
	var matchType string
	err := row.Scan(&e.Name, &e.KnownRegID, &e.RegistrationID, &e.FoundName,
		&matchType, &e.Strategy, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get cache entry %q", name)
	}
	e.Match = model.ParseMatchType(matchType)
	return &e, nil
}

func (s *PostgresStore) Put(ctx context.Context, e Entry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO resolution_cache
		   (name_key, known_reg, name, registration_number, found_name, match_type, confidence, strategy, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (name_key, known_reg) DO UPDATE SET
		   registration_number = excluded.registration_number,
		   found_name          = excluded.found_name,
		   match_type          = excluded.match_type,
		   confidence          = excluded.confidence,
		   strategy            = excluded.strategy,
		   updated_at          = excluded.updated_at
		 WHERE excluded.confidence > resolution_cache.confidence`,
		resolve.NormalizeName(e.Name), e.KnownRegID, e.Name, e.RegistrationID,
		e.FoundName, e.Match.String(), e.Match.Confidence(), e.Strategy,
		time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: put cache entry %q", e.Name)
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT name, known_reg, registration_number, found_name, match_type, strategy, updated_at
		 FROM resolution_cache ORDER BY updated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list cache entries")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var matchType string
		if err := rows.Scan(&e.Name, &e.KnownRegID, &e.RegistrationID, &e.FoundName,
			&matchType, &e.Strategy, &e.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan cache entry")
		}
		e.Match = model.ParseMatchType(matchType)
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list cache entries")
}

func (s *PostgresStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM resolution_cache WHERE updated_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "postgres: prune cache")
	}
	return tag.RowsAffected(), nil
}
