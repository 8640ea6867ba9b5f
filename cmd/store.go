package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/suburbmates/directory-cli/internal/audit"
	"github.com/suburbmates/directory-cli/internal/business"
	"github.com/suburbmates/directory-cli/internal/geo"
	"github.com/suburbmates/directory-cli/internal/scorer"
)

// openStore connects the configured database backend.
func openStore(ctx context.Context) (business.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store.database_url is required (SUBURBMATES_STORE_DATABASE_URL)")
		}
		store, err := business.ConnectPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns, cfg.Store.MinConns)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "sqlite":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store.database_url must be a sqlite path")
		}
		store, err := business.NewSQLite(cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// auditRecorder returns a pool-backed recorder for postgres stores and
// a no-op for everything else.
func auditRecorder(store business.Store) audit.Recorder {
	if pg, ok := store.(*business.PostgresStore); ok {
		return audit.NewPoolRecorder(pg.Pool())
	}
	return audit.Nop{}
}

// suburbLocator loads the configured boundary shapefile, or returns nil
// so the scorer skips the boundary check.
func suburbLocator() scorer.SuburbLocator {
	if cfg.Geo.SuburbShapefile == "" {
		return nil
	}
	idx, err := geo.LoadSuburbs(cfg.Geo.SuburbShapefile, "")
	if err != nil {
		zap.L().Warn("suburb boundaries unavailable, skipping location checks",
			zap.String("path", cfg.Geo.SuburbShapefile),
			zap.Error(err),
		)
		return nil
	}
	return idx
}

// newScoreService wires the scorer service for a store.
func newScoreService(store business.Store) *scorer.Service {
	return scorer.NewService(store, scorer.New(cfg.Scorer, suburbLocator()))
}
