package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sharpscan/sharpscan/internal/alert"
	"github.com/sharpscan/sharpscan/internal/config"
	"github.com/sharpscan/sharpscan/internal/detect"
	"github.com/sharpscan/sharpscan/internal/oddsapi"
	"github.com/sharpscan/sharpscan/internal/store"
)

const version = "v1.0.0"

var configPath string

// Execute builds the command tree and runs it.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "sharpscan",
		Short:   "Sports-betting line movement scanner",
		Long:    "sharpscan polls an odds API, stores line snapshots, and surfaces sharp line movement as Discord alerts with graded performance tracking.",
		Version: version,
		// main reports the returned error; cobra must not print it too.
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to config file")

	rootCmd.AddCommand(newRunCmd(), newBacktestCmd(), newReportCmd(), newStatsCmd())
	return rootCmd
}

// app holds the shared wiring behind every subcommand.
type app struct {
	cfg      *config.Config
	store    *store.Store
	client   *oddsapi.Client
	sink     *alert.DiscordSink
	pipeline *detect.Pipeline
}

func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		store:    st,
		client:   oddsapi.NewClient(cfg.OddsAPIBaseURL, cfg.OddsAPIKey, cfg.Bookmakers, st),
		sink:     alert.NewDiscordSink(cfg, st),
		pipeline: detect.NewPipeline(cfg, st),
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
