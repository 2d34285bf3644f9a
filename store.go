package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go-kit/env"

	"github.com/anatolykoptev/go_edunote/internal/engine"
	"github.com/anatolykoptev/go_edunote/internal/store"
	"github.com/anatolykoptev/go_edunote/internal/store/mongostore"
	"github.com/anatolykoptev/go_edunote/internal/store/pgstore"
	"github.com/anatolykoptev/go_edunote/internal/store/sqlitestore"
)

// openStore connects the backend named by driver, retrying network backends
// while they come up.
func openStore(ctx context.Context, driver string) (store.Store, error) {
	maxWait := env.Duration("STORE_CONNECT_TIMEOUT", 30*time.Second)
	switch driver {
	case "sqlite", "":
		path := env.Str("SQLITE_PATH", "data/edunote.db")
		slog.Info("store: sqlite", slog.String("path", path))
		st, err := sqlitestore.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		url := env.Str("DATABASE_URL", "")
		if url == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for STORE_DRIVER=postgres")
		}
		return engine.Connect(ctx, "postgres", maxWait, func(ctx context.Context) (store.Store, error) {
			st, err := pgstore.Connect(ctx, url)
			if err != nil {
				return nil, err
			}
			return st, nil
		})
	case "mongo":
		uri := env.Str("MONGO_URI", "mongodb://localhost:27017")
		name := env.Str("MONGO_DB", "edunote")
		return engine.Connect(ctx, "mongo", maxWait, func(ctx context.Context) (store.Store, error) {
			st, err := mongostore.Connect(ctx, uri, name)
			if err != nil {
				return nil, err
			}
			return st, nil
		})
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q (want sqlite, postgres or mongo)", driver)
}
