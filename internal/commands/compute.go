package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pbv-lab/internal/domain"
	"pbv-lab/internal/export"
	"pbv-lab/internal/normalization"
	"pbv-lab/internal/profile"
)

func newComputeCmd(a *app) *cobra.Command {
	var (
		input      string
		output     string
		format     string
		mode       string
		sequential bool
	)

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute a profile from a CSV file",
		Long: `Compute rolling price-by-volume rows from a CSV file with price and
volume columns (timestamp_ms optional) and write them to a file.

Examples:
  pbv compute --input ticks.csv --window 120 --bins 20 --output out.csv
  pbv compute --input ticks.csv --mode topn-price --n 3 --format parquet --output top.parquet`,
	}
	params := bindParamFlags(cmd.Flags(), true)
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input CSV with price,volume columns")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default profile.<format>)")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Output format: csv, json, parquet")
	cmd.Flags().StringVarP(&mode, "mode", "m", domain.ModeFull, "Output mode: full, topn-price, topn-volume")
	cmd.Flags().BoolVar(&sequential, "sequential", false, "Compute on a single goroutine")
	_ = cmd.MarkFlagRequired("input")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		writer := export.NewWriter(format)
		if writer == nil {
			return fmt.Errorf("unsupported format %q (use: %s)", format, strings.Join(export.Formats, ", "))
		}
		if output == "" {
			output = "profile." + writer.Extension()
		}

		points, err := readSeriesFile(input, "")
		if err != nil {
			return err
		}
		price, volume := normalization.Columns(points)

		p := params.apply(a.cfg.Engine.Params())
		engine := profile.NewEngine(a.cfg.Engine.Executor(sequential))
		start := time.Now()

		var written int
		switch mode {
		case domain.ModeFull:
			hists, err := engine.Histograms(cmd.Context(), price, volume, p.Params)
			if err != nil {
				return err
			}
			rows := make([]export.Row, len(hists))
			for i, h := range hists {
				rows[i] = export.Row{TimestampMs: points[i].TimestampMs, Position: i, Histogram: h}
				if h != nil {
					written++
				}
			}
			err = writer.WriteHistograms(output, rows)
			if err != nil {
				return err
			}
		case domain.ModeTopNPrice, domain.ModeTopNVolume:
			var top []profile.TopN
			if mode == domain.ModeTopNPrice {
				top, err = engine.TopNPrices(cmd.Context(), price, volume, p)
			} else {
				top, err = engine.TopNVolumes(cmd.Context(), price, volume, p)
			}
			if err != nil {
				return err
			}
			rows := make([]export.TopNRow, len(top))
			for i, v := range top {
				rows[i] = export.TopNRow{TimestampMs: points[i].TimestampMs, Position: i, Values: v}
				if v != nil {
					written++
				}
			}
			if err := writer.WriteTopN(output, rows); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unknown mode %q", profile.ErrInvalidParameter, mode)
		}

		a.log.WithFields(logrus.Fields{
			"input":       input,
			"output":      output,
			"mode":        mode,
			"rows":        len(points),
			"non_null":    written,
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("profile computed")
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d of %d rows to %s\n", written, len(points), output)
		return nil
	}
	return cmd
}
