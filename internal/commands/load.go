package commands

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pbv-lab/internal/normalization"
)

func newLoadCmd(a *app) *cobra.Command {
	var (
		input  string
		symbol string
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Align a trades CSV into the series store",
		Long: `Read trades (timestamp_ms,price,quantity[,seq][,symbol]), collapse them
into one point per timestamp (last price, summed quantity) and insert the
series into PostgreSQL.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			trades, err := readTradesFile(input, symbol)
			if err != nil {
				return err
			}
			points := normalization.AlignTrades(trades)

			st, cleanup, err := a.openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if err := st.series.InsertBulk(cmd.Context(), points); err != nil {
				return fmt.Errorf("insert series: %w", err)
			}

			a.log.WithFields(logrus.Fields{
				"trades": len(trades),
				"points": len(points),
			}).Info("series loaded")
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d points from %d trades\n", len(points), len(trades))
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Trades CSV")
	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "Symbol for rows without a symbol column")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
