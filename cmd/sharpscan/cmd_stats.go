package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sharpscan/sharpscan/internal/analysis"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print all-time signal performance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			tracker := analysis.NewTracker(a.store)
			stats, err := tracker.Stats(cmd.Context(), "")
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				fmt.Println("No resolved signals yet.")
				return nil
			}

			types := make([]string, 0, len(stats))
			for t := range stats {
				types = append(types, t)
			}
			sort.Strings(types)

			fmt.Println("Signal Performance:")
			for _, t := range types {
				c := stats[t]
				fmt.Printf("  %s: %.1f%% win rate (%dW / %dL / %dP)\n",
					t, c.WinRate()*100, c.Won, c.Lost, c.Push)
			}
			return nil
		},
	}
}
