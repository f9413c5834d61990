package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/axservices/credibility-engine/internal/badge"
	"github.com/axservices/credibility-engine/internal/batch"
	"github.com/axservices/credibility-engine/internal/cache"
	"github.com/axservices/credibility-engine/internal/credibility"
	"github.com/axservices/credibility-engine/internal/monitoring"
	"github.com/axservices/credibility-engine/internal/scorer"
	"github.com/axservices/credibility-engine/internal/store"
)

// engineEnv holds the initialized store, cache, service, and jobs shared
// by the serve and job commands.
type engineEnv struct {
	Store      store.Store
	Cache      *cache.ScoreCache
	Catalog    *badge.Catalog
	Service    *credibility.Service
	Sweeper    *batch.Sweeper
	Recomputer *batch.Recomputer
	Collector  *monitoring.Collector
}

// Close releases resources held by the environment.
func (e *engineEnv) Close() {
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv opens the configured store, migrates it, and wires the service
// stack. Callers should defer env.Close().
func initEnv(ctx context.Context) (*engineEnv, error) {
	if err := scorer.ValidateConfig(cfg.Credibility); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	catalog := badge.DefaultCatalog()
	if cfg.Badges.CatalogOverridePath != "" {
		if err := catalog.ApplyOverrides(cfg.Badges.CatalogOverridePath); err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	sc := cache.New(cfg.Cache)
	svc := credibility.New(st, catalog, sc, cfg.Credibility)

	return &engineEnv{
		Store:      st,
		Cache:      sc,
		Catalog:    catalog,
		Service:    svc,
		Sweeper:    batch.NewSweeper(st, svc, sc, cfg.Batch),
		Recomputer: batch.NewRecomputer(st, svc, sc, cfg.Batch),
		Collector:  monitoring.NewCollector(st),
	}, nil
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns, cfg.Store.MinConns)
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
