package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"pbv-lab/internal/feed"
	"pbv-lab/internal/logx"
	"pbv-lab/internal/observability"
	"pbv-lab/internal/profile"
)

// watchLine is one line of watch output.
type watchLine struct {
	TimestampMs int64              `json:"timestamp_ms,omitempty"`
	Price       float64            `json:"price"`
	Volume      float64            `json:"volume"`
	Histogram   *profile.Histogram `json:"histogram"`
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		url       string
		subscribe string
		warmup    bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a live tick feed and print rolling histograms",
		Long: `Connect to a websocket feed of {"price":..,"volume":..} messages and print
one JSON line per tick with the histogram of the trailing window. The
connection is retried with exponential backoff.

Examples:
  pbv watch --url ws://localhost:9000/ticks --window 60 --bins 12
  pbv watch --url wss://feed.example/ws --subscribe '{"op":"subscribe","channel":"btc"}'`,
	}
	params := bindParamFlags(cmd.Flags(), false)
	cmd.Flags().StringVarP(&url, "url", "u", "", "Feed websocket URL (default PBV_FEED_URL)")
	cmd.Flags().StringVar(&subscribe, "subscribe", "", "Frame sent after every connect (default PBV_FEED_SUBSCRIBE)")
	cmd.Flags().BoolVar(&warmup, "warmup", false, "Also print ticks received before the window fills")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		fc := a.cfg.Feed
		if url == "" {
			url = fc.URL
		}
		if url == "" {
			return fmt.Errorf("--url or PBV_FEED_URL is required")
		}
		if !cmd.Flags().Changed("subscribe") {
			subscribe = fc.Subscribe
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client := feed.NewClient(url, &feed.Config{
			ReconnectDelay:    fc.ReconnectDelay,
			MaxReconnectDelay: fc.MaxReconnectDelay,
			PingInterval:      fc.PingInterval,
			ReadTimeout:       fc.ReadTimeout,
			WriteTimeout:      fc.WriteTimeout,
			Subscribe:         []byte(subscribe),
		}).
			WithLogger(logx.WithComponent(a.log, "feed")).
			WithMetrics(observability.NewMetrics("", prometheus.NewRegistry()))

		enc := json.NewEncoder(cmd.OutOrStdout())
		err := feed.Watch(ctx, client, params.apply(a.cfg.Engine.Params()).Params, func(t feed.Tick, h *profile.Histogram) error {
			if h == nil && !warmup {
				return nil
			}
			return enc.Encode(watchLine{TimestampMs: t.TimestampMs, Price: t.Price, Volume: t.Volume, Histogram: h})
		})
		if errors.Is(err, context.Canceled) {
			a.log.Info("watch stopped")
			return nil
		}
		return err
	}
	return cmd
}
