package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"pbv-lab/internal/reporting"
)

func newReportCmd(a *app) *cobra.Command {
	var (
		runID  string
		format string
		recent int
		output string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize a stored run's point of control",
		Long: `Render a Markdown report of a stored run: parameters, row range and the
point of control (highest-volume bin) across rows. --format csv writes the
per-row point-of-control track instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "md" && format != "csv" {
				return fmt.Errorf("unsupported format %q (use md or csv)", format)
			}

			st, cleanup, err := a.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := reporting.NewGenerator(st.runs, st.rows).Generate(cmd.Context(), runID)
			if err != nil {
				return err
			}

			body := reporting.RenderMarkdown(report, recent)
			if format == "csv" {
				body = reporting.RenderCSV(report.Track)
			}

			if output == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), body)
				return err
			}
			if err := os.WriteFile(output, []byte(body), 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			a.log.WithField("output", output).Info("report written")
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "Run to report on")
	cmd.Flags().StringVarP(&format, "format", "f", "md", "Output format: md, csv")
	cmd.Flags().IntVar(&recent, "recent", 20, "Rows shown in the Markdown table, 0 for all")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	_ = cmd.MarkFlagRequired("run-id")
	return cmd
}
