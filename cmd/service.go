package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"

	"github.com/siteworks/siteworks-cli/internal/blob"
	"github.com/siteworks/siteworks-cli/internal/pipeline"
	"github.com/siteworks/siteworks-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "siteworks.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initBlob() (blob.Store, error) {
	if cfg.Blob.SigningSecret == "" {
		return nil, eris.New("blob signing secret is required (SITEWORKS_BLOB_SIGNING_SECRET)")
	}
	return blob.NewFilesystem(cfg.Blob.Dir, cfg.Blob.URLPrefix, cfg.Blob.SigningSecret)
}

// initQueue returns the development queue. A SQLite store shares its
// database file; a Postgres store gets a sidecar queue database, since
// deployed environments enqueue to the cloud queue directly.
func initQueue(st store.Store) (store.Queue, error) {
	if s, ok := st.(*store.SQLiteStore); ok {
		return store.NewSQLiteQueue(s.DB()), nil
	}
	side, err := store.NewSQLite("siteworks-queue.db")
	if err != nil {
		return nil, err
	}
	if err := side.Migrate(context.Background()); err != nil {
		return nil, err
	}
	return store.NewSQLiteQueue(side.DB()), nil
}

// initService opens every dependency and wires the pipeline. Callers
// defer the returned closer.
func initService(ctx context.Context) (*pipeline.Service, store.Store, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, nil, nil, err
	}
	bl, err := initBlob()
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, nil, nil, err
	}
	q, err := initQueue(st)
	if err != nil {
		st.Close() //nolint:errcheck
		return nil, nil, nil, err
	}
	closer := func() { st.Close() } //nolint:errcheck
	return pipeline.New(cfg, st, bl, q), st, closer, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal output")
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
