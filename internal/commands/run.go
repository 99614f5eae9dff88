package commands

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"pbv-lab/internal/normalization"
	"pbv-lab/internal/logx"
	"pbv-lab/internal/observability"
	"pbv-lab/internal/orchestrator"
	"pbv-lab/internal/pipeline"
	"pbv-lab/internal/profile"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		symbol  string
		from    int64
		to      int64
		replace bool
		seed    string
		all     bool
		workers int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute and store a profile run for a symbol",
		Long: `Load a symbol's series from the series store, compute full histograms
and store the non-null rows under a deterministic run id.

Examples:
  pbv run --symbol BTCUSDT --window 120 --bins 20
  pbv run --symbol BTCUSDT --from 1704067200000 --to 1704153600000 --replace
  pbv run --use-memory --seed trades.csv --symbol BTCUSDT
  pbv run --all --workers 4 --replace`,
	}
	params := bindParamFlags(cmd.Flags(), false)
	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "Symbol to profile")
	cmd.Flags().Int64Var(&from, "from", 0, "Range start in ms (inclusive)")
	cmd.Flags().Int64Var(&to, "to", 0, "Range end in ms (inclusive)")
	cmd.Flags().BoolVar(&replace, "replace", false, "Recompute a run that already exists")
	cmd.Flags().StringVar(&seed, "seed", "", "Trades CSV aligned into the series store before the run")
	cmd.Flags().BoolVar(&all, "all", false, "Run every symbol in the series store")
	cmd.Flags().IntVar(&workers, "workers", 1, "Symbols processed concurrently with --all")
	cmd.MarkFlagsMutuallyExclusive("symbol", "all")
	cmd.MarkFlagsOneRequired("symbol", "all")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, cleanup, err := a.openStores(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		if seed != "" {
			trades, err := readTradesFile(seed, symbol)
			if err != nil {
				return err
			}
			if err := st.series.InsertBulk(ctx, normalization.AlignTrades(trades)); err != nil {
				return fmt.Errorf("seed series: %w", err)
			}
		}

		job := pipeline.NewJob(st.series, st.runs, st.rows, profile.NewEngine(a.cfg.Engine.Executor(false))).
			WithLogger(logx.WithComponent(a.log, "pipeline")).
			WithMetrics(observability.NewMetrics("", prometheus.NewRegistry()))

		p := params.apply(a.cfg.Engine.Params()).Params

		if all {
			result, err := orchestrator.New(orchestrator.Options{
				Series:      st.series,
				Job:         job,
				Concurrency: workers,
				Log:         a.log,
			}).Run(ctx, p, replace)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d symbols stored, %d rows\n", result.RunsStored, result.Symbols, result.RowsStored)
			for _, e := range result.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", e)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d symbols failed", len(result.Errors))
			}
			return nil
		}

		run, err := job.Run(ctx, pipeline.Request{
			Symbol:  symbol,
			FromMs:  from,
			ToMs:    to,
			Params:  p,
			Replace: replace,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d rows stored\n", run.RunID, run.Rows)
		return nil
	}
	return cmd
}
