package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/velmed/callscore/internal/dict"
	"github.com/velmed/callscore/internal/lmsync"
	"github.com/velmed/callscore/internal/matrix"
	"github.com/velmed/callscore/internal/metrics"
)

// scoringPool creates a pgxpool.Pool from store.database_url.
func scoringPool(ctx context.Context) (*pgxpool.Pool, error) {
	dsn := cfg.Store.DatabaseURL
	if dsn == "" {
		return nil, eris.New("callscore: no database_url configured (set store.database_url)")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "callscore: create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "callscore: ping database")
	}

	return pool, nil
}

// buildController assembles the full scoring stack around one pool.
func buildController(ctx context.Context, pool *pgxpool.Pool) (*lmsync.Controller, *lmsync.PostgresRepository, *matrix.Holder) {
	repo := lmsync.NewPostgresRepository(pool, cfg.Store.WritesPerSec)
	holder := matrix.LoadOrDefault(ctx, matrix.NewPostgresStore(pool))
	cache := dict.NewCache(repo, cfg.Dict.CacheSize)
	calc := metrics.NewCalculator(cfg.Sync.EngineVersion)

	ctl := lmsync.NewController(repo, cache, holder, calc, lmsync.Config{
		BatchSize:   cfg.Sync.BatchSize,
		Workers:     cfg.Sync.Workers,
		DictCode:    cfg.Dict.Code,
		DictVersion: cfg.Dict.Version,
		Profile:     cfg.Sync.Profile,
		MaxAttempts: cfg.Sync.MaxAttempts,
	})
	return ctl, repo, holder
}
