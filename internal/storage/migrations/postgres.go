package migrations

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"pbv-lab/internal/storage/postgres"
)

// RunPostgresMigrations applies the series_points and profile_runs schema.
// Migrations are idempotent; the applied file names are returned in order.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool, log logrus.FieldLogger) ([]string, error) {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return nil, err
	}

	applied := make([]string, 0, len(files))
	for _, m := range files {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", m.name, err)
		}
		log.WithField("file", m.name).Debug("postgres migration applied")
		applied = append(applied, m.name)
	}
	return applied, nil
}
