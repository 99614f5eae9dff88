package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"pbv-lab/internal/storage/migrations"
	pgstore "pbv-lab/internal/storage/postgres"
)

func newMigrateCmd(a *app) *cobra.Command {
	var skipPostgres, skipClickhouse bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded database schema",
		Long:  "Create series_points and profile_runs in PostgreSQL and profile_rows in ClickHouse.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if !skipPostgres {
				if a.cfg.Postgres.DSN == "" {
					return fmt.Errorf("PBV_POSTGRES_DSN is required")
				}
				pool, err := pgstore.NewPool(ctx, a.cfg.Postgres.DSN, 1)
				if err != nil {
					return err
				}
				applied, err := migrations.RunPostgresMigrations(ctx, pool, a.log)
				pool.Close()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "postgres: %d migrations applied\n", len(applied))
			}

			if !skipClickhouse {
				if a.cfg.ClickHouse.DSN == "" {
					return fmt.Errorf("PBV_CLICKHOUSE_DSN is required")
				}
				conn, err := migrations.RunClickhouseMigrations(ctx, a.cfg.ClickHouse.DSN, a.log)
				if err != nil {
					return err
				}
				if err := conn.Close(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "clickhouse: migrations applied")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&skipPostgres, "skip-postgres", false, "Do not migrate PostgreSQL")
	cmd.Flags().BoolVar(&skipClickhouse, "skip-clickhouse", false, "Do not migrate ClickHouse")
	return cmd
}
