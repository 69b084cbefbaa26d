package store

import (
	"context"

	"github.com/rotisserie/eris"
)

// Open constructs and migrates the configured cache backend.
func Open(ctx context.Context, driver, path, databaseURL string) (CacheStore, error) {
	var (
		cs  CacheStore
		err error
	)
	switch driver {
	case "", "sqlite":
		cs, err = NewSQLite(path)
	case "postgres":
		cs, err = NewPostgres(ctx, databaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := cs.Migrate(ctx); err != nil {
		cs.Close()
		return nil, err
	}
	return cs, nil
}
