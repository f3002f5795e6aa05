package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sharpscan/sharpscan/internal/analysis"
)

func newBacktestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backtest <start> <end>",
		Short: "Replay stored snapshots through the detectors",
		Long:  "Re-run detection over the stored snapshot history between two RFC 3339 timestamps. No alerts are sent and nothing is recorded.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			bt := analysis.NewBacktester(a.store, a.pipeline)
			result, err := bt.Run(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(result.Summary())
			return nil
		},
	}
}
