package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/feedbacksync/internal/models"
	syncpkg "github.com/kimhsiao/feedbacksync/internal/sync"
	"github.com/kimhsiao/feedbacksync/internal/sync/scheduler"
)

func newStatusCmd() *cobra.Command {
	var (
		asJSON  bool
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show connectivity and buffered changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			st := scheduler.NewScheduler(a.engine, a.cfg.Scheduler()).GetStatus()
			s := st.Engine
			ops := a.engine.PendingOps()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					syncpkg.Status
					Service string             `json:"service"`
					Outbox  []models.PendingOp `json:"outbox,omitempty"`
				}{s, a.client.BaseURL(), ops})
			}

			renderStatus(out, s, a.client.BaseURL())
			if verbose {
				fmt.Fprintf(out, "background sync: resync every %s while online, reprobe every %s while offline\n",
					st.ResyncInterval, st.ProbeInterval)
			}
			if verbose && len(ops) > 0 {
				t := newTable("Op", "Kind", "Record", "Status", "Retries", "Last error")
				for _, op := range ops {
					t.Row(truncate(op.ID, 8), string(op.Kind), truncate(op.RecordID, 8), op.Status,
						fmt.Sprintf("%d/%d", op.RetryCount, op.MaxRetries), truncate(op.LastError, 40))
				}
				fmt.Fprintln(out, t.Render())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show sync intervals and list buffered changes")
	return cmd
}
