// Package commands implements the pbv command line.
package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"pbv-lab/internal/config"
	"pbv-lab/internal/logx"
)

// app carries state shared by every subcommand once the root has run.
type app struct {
	cfg       *config.Config
	log       *logrus.Logger
	logLevel  string
	useMemory bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "pbv",
		Short: "Rolling price-by-volume profiles",
		Long: `pbv computes rolling volume-at-price histograms over aligned price and
volume series, stores them, and serves them over HTTP.

Configuration is read from PBV_* environment variables; flags override it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.useMemory, "use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")

	root.AddCommand(
		newComputeCmd(a),
		newLoadCmd(a),
		newRunCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
		newReportCmd(a),
		newVerifyCmd(a),
		newMigrateCmd(a),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	log, err := logx.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.log = log
	return nil
}
