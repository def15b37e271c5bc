package main

import (
	"fmt"

	"github.com/spf13/cobra"

	syncpkg "github.com/kimhsiao/feedbacksync/internal/sync"
	"github.com/kimhsiao/feedbacksync/internal/sync/scheduler"
)

func newSyncCmd() *cobra.Command {
	var retry bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push buffered changes and refresh from the service",
		Long: `Push buffered changes and refresh the local copy from the service.

Changes that exhausted their retries stay in the outbox as failed; --retry
puts them back in line first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var drained *syncpkg.DrainResult
			a.engine.Subscribe(func(ev syncpkg.Event) {
				if ev.Type == syncpkg.EventDrainCompleted && ev.Drain != nil {
					d := *ev.Drain
					drained = &d
				}
			})

			if retry {
				n, err := a.engine.RetryFailed(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "requeued %d failed change(s)\n", n)
			}

			sched := scheduler.NewScheduler(a.engine, a.cfg.Scheduler())
			if err := sched.SyncNow(ctx); err != nil {
				if a.engine.IsOnline() {
					return err
				}
				fmt.Fprintf(out, "%s service unreachable: %d change(s) stay buffered\n",
					warnStyle.Render("⚠"), len(a.engine.PendingOps()))
				return nil
			}

			if drained != nil {
				renderDrain(out, *drained)
			}
			renderStatus(out, sched.GetStatus().Engine, a.client.BaseURL())
			return nil
		},
	}
	cmd.Flags().BoolVar(&retry, "retry", false, "requeue changes that exhausted their retries")
	return cmd
}
