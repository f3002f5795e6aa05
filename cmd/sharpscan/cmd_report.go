package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharpscan/sharpscan/internal/analysis"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "report {daily|weekly}",
		Short:     "Send a performance report now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"daily", "weekly"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			reporter := analysis.NewReporter(a.cfg, a.store, a.sink)
			switch args[0] {
			case "daily":
				return reporter.DailyReport(cmd.Context())
			case "weekly":
				return reporter.WeeklyReport(cmd.Context())
			}
			return fmt.Errorf("unknown report period %q", args[0])
		},
	}
}
