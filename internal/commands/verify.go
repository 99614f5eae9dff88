package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"pbv-lab/internal/profile"
	"pbv-lab/internal/verification"
)

func newVerifyCmd(a *app) *cobra.Command {
	var runID, symbol string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Recompute stored runs and compare them row by row",
		Long: `Recompute a stored run (or every run of a symbol) from the series store with
the run's parameters and report rows that differ from what was stored.
Exits non-zero when any run diverges.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, cleanup, err := a.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			v := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
				SeriesStore:  st.series,
				RunStore:     st.runs,
				ProfileStore: st.rows,
				Engine:       profile.NewEngine(a.cfg.Engine.Executor(false)),
			})

			var report *verification.VerificationReport
			if runID != "" {
				result, err := v.VerifyRun(cmd.Context(), runID)
				if err != nil {
					return err
				}
				report = &verification.VerificationReport{TotalRuns: 1, Results: []verification.VerificationResult{*result}}
				if result.Match {
					report.MatchedRuns = 1
				} else {
					report.DivergentRuns = 1
				}
			} else {
				report, err = v.VerifySymbol(cmd.Context(), symbol)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for _, r := range report.Results {
				status := "OK"
				if !r.Match {
					status = "DIVERGED"
				}
				fmt.Fprintf(out, "%s %s (%d stored, %d replayed)\n", status, r.RunID, r.StoredRows, r.ReplayedRows)
				for _, d := range r.Divergences {
					fmt.Fprintf(out, "  %s\n", d)
				}
			}
			fmt.Fprintf(out, "%d runs: %d matched, %d diverged\n", report.TotalRuns, report.MatchedRuns, report.DivergentRuns)

			if report.DivergentRuns > 0 {
				return fmt.Errorf("%d runs diverged", report.DivergentRuns)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "Run to verify")
	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "Verify every run of this symbol")
	cmd.MarkFlagsMutuallyExclusive("run-id", "symbol")
	cmd.MarkFlagsOneRequired("run-id", "symbol")
	return cmd
}
