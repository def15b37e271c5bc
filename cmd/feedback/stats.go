package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/feedbacksync/internal/stats"
)

func newStatsCmd() *cobra.Command {
	var (
		fromService bool
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show feedback statistics",
		Long: `Show totals, average rating, satisfaction rate (share of ratings of 4
or 5), sentiment counts and a per-category breakdown of the collection.

By default the figures are projected from the local collection, which
works offline. --service asks the service instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			records := a.engine.Feedbacks()
			s := stats.Project(records)
			if fromService {
				if s, err = a.client.Stats(cmd.Context()); err != nil {
					return err
				}
				records = nil
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			renderStats(cmd.OutOrStdout(), s, records)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromService, "service", false, "ask the service instead of projecting locally")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}
