package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/corpintel/dbd-cli/internal/model"
	"github.com/corpintel/dbd-cli/internal/resolve"
)

// SQLiteStore implements CacheStore using modernc.org/sqlite. The default
// backend: one file per operator, WAL mode so parallel workers can append
// without stepping on each other.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
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

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS resolution_cache (
	name_key            TEXT NOT NULL,
	known_reg           TEXT NOT NULL DEFAULT '',
	name                TEXT NOT NULL,
	registration_number TEXT NOT NULL DEFAULT '',
	found_name          TEXT NOT NULL DEFAULT '',
	match_type          TEXT NOT NULL,
	confidence          REAL NOT NULL DEFAULT 0,
	strategy            TEXT NOT NULL DEFAULT '',
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (name_key, known_reg)
);

CREATE INDEX IF NOT EXISTS idx_resolution_cache_updated_at ON resolution_cache(updated_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, name, knownRegID string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, known_reg, registration_number, found_name, match_type, strategy, updated_at
		 FROM resolution_cache WHERE name_key = ? AND known_reg = ?`,
		resolve.NormalizeName(name), knownRegID,
	)

	var e Entry
	var matchType string
	err := row.Scan(&e.Name, &e.KnownRegID, &e.RegistrationID, &e.FoundName,
		&matchType, &e.Strategy, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get cache entry %q", name)
	}
	e.Match = model.ParseMatchType(matchType)
	return &e, nil
}

func (s *SQLiteStore) Put(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resolution_cache
		   (name_key, known_reg, name, registration_number, found_name, match_type, confidence, strategy, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
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
	return eris.Wrapf(err, "sqlite: put cache entry %q", e.Name)
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, known_reg, registration_number, found_name, match_type, strategy, updated_at
		 FROM resolution_cache ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list cache entries")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var matchType string
		if err := rows.Scan(&e.Name, &e.KnownRegID, &e.RegistrationID, &e.FoundName,
			&matchType, &e.Strategy, &e.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cache entry")
		}
		e.Match = model.ParseMatchType(matchType)
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list cache entries")
}

func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM resolution_cache WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prune cache")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: prune cache rows affected")
}
