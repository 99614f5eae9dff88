package commands

import (
	"context"
	"fmt"

	"pbv-lab/internal/storage"
	chstore "pbv-lab/internal/storage/clickhouse"
	"pbv-lab/internal/storage/memory"
	pgstore "pbv-lab/internal/storage/postgres"
)

// stores holds the storage implementations a command works against.
type stores struct {
	series storage.SeriesStore
	runs   storage.RunStore
	rows   storage.ProfileStore
}

// openStores connects to PostgreSQL and ClickHouse, or builds memory stores
// when --use-memory is set. The cleanup function closes every connection.
func (a *app) openStores(ctx context.Context) (*stores, func(), error) {
	if a.useMemory {
		a.log.Warn("using in-memory storage; nothing will be persisted")
		return &stores{
			series: memory.NewSeriesStore(),
			runs:   memory.NewRunStore(),
			rows:   memory.NewProfileStore(),
		}, func() {}, nil
	}

	if a.cfg.Postgres.DSN == "" || a.cfg.ClickHouse.DSN == "" {
		return nil, nil, fmt.Errorf("PBV_POSTGRES_DSN and PBV_CLICKHOUSE_DSN are required (use --use-memory for in-memory storage)")
	}

	pool, err := pgstore.NewPool(ctx, a.cfg.Postgres.DSN, a.cfg.Postgres.MaxConns)
	if err != nil {
		return nil, nil, err
	}
	conn, err := chstore.NewConn(ctx, a.cfg.ClickHouse.DSN)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		if err := conn.Close(); err != nil {
			a.log.WithError(err).Warn("close clickhouse connection")
		}
	}
	return &stores{
		series: pgstore.NewSeriesStore(pool),
		runs:   pgstore.NewRunStore(pool),
		rows:   chstore.NewProfileStore(conn),
	}, cleanup, nil
}
