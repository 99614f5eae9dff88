package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pbv-lab/internal/logx"
	"pbv-lab/internal/observability"
	"pbv-lab/internal/pipeline"
	"pbv-lab/internal/profile"
	"pbv-lab/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket service",
		Long: `Serve profile computation, stored runs and a live rolling stream.

Endpoints:
  POST /v1/profile                   compute from a JSON body
  GET  /v1/symbols/{symbol}/profile  compute from the series store
  POST /v1/symbols/{symbol}/runs     compute and store a run
  GET  /v1/runs/{id}                 stored run with rows
  GET  /v1/stream                    websocket ticks in, histograms out
  GET  /metrics, /healthz`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, cleanup, err := a.openStores(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			httpCfg := a.cfg.HTTP
			if addr != "" {
				httpCfg.Addr = addr
			}

			metrics := observability.NewMetrics("", nil)
			engine := profile.NewEngine(a.cfg.Engine.Executor(false))
			job := pipeline.NewJob(st.series, st.runs, st.rows, engine).
				WithLogger(logx.WithComponent(a.log, "pipeline")).
				WithMetrics(metrics)

			srv := server.New(httpCfg, server.Deps{
				Series:   st.series,
				Job:      job,
				Engine:   engine,
				Metrics:  metrics,
				Defaults: a.cfg.Engine.Params(),
				Log:      logx.WithComponent(a.log, "server"),
			})
			if err := srv.Run(ctx); err != nil {
				return err
			}
			a.log.Info("Shutdown complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default PBV_HTTP_ADDR)")
	return cmd
}
