package main

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sharpscan/sharpscan/internal/analysis"
	"github.com/sharpscan/sharpscan/internal/metrics"
	"github.com/sharpscan/sharpscan/internal/oddsapi"
	"github.com/sharpscan/sharpscan/internal/poll"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the polling daemon",
		Long:  "Poll odds on the configured cadence, detect line movement, send alerts, and run the daily grading and report jobs.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()

			var m *metrics.Metrics
			if a.cfg.MetricsAddr != "" {
				m = metrics.New()
				go func() {
					if err := m.Serve(ctx, a.cfg.MetricsAddr); err != nil {
						log.Error().Err(err).Msg("metrics server failed")
					}
				}()
			}

			fetcher := oddsapi.NewFetcher(a.client, a.store, a.cfg.Sports)
			governor := poll.NewGovernor(a.cfg, a.store, a.sink)
			tracker := analysis.NewTracker(a.store)
			grader := analysis.NewGrader(a.cfg, a.client, a.store)
			reporter := analysis.NewReporter(a.cfg, a.store, a.sink)

			sched := poll.NewScheduler(a.cfg, fetcher, a.pipeline, governor,
				a.sink, tracker, grader, reporter, m)

			log.Info().
				Strs("sports", a.cfg.Sports).
				Int("poll_minutes", a.cfg.PollIntervalMinutes).
				Msg("sharpscan starting")
			if err := sched.Run(ctx); err != nil {
				return err
			}
			log.Info().Msg("sharpscan stopped")
			return nil
		},
	}
}
