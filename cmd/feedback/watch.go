package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/feedbacksync/internal/errors"
	"github.com/kimhsiao/feedbacksync/internal/localstore"
	"github.com/kimhsiao/feedbacksync/internal/logging"
	"github.com/kimhsiao/feedbacksync/internal/remote"
	syncpkg "github.com/kimhsiao/feedbacksync/internal/sync"
	"github.com/kimhsiao/feedbacksync/internal/sync/scheduler"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay connected and keep the local copy current",
		Long: `Keep running: resync periodically, follow the service change feed for
immediate updates, probe for the service while offline and push buffered
changes as soon as it is back. With the file backend, changes another
process makes to the shared store are picked up while offline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch(ctx, a, cmd.OutOrStdout())
		},
	}
}

// watch runs until ctx is cancelled.
func watch(ctx context.Context, a *app, out io.Writer) error {
	var outMu sync.Mutex
	printf := func(format string, args ...interface{}) {
		outMu.Lock()
		defer outMu.Unlock()
		fmt.Fprintf(out, time.Now().Format("15:04:05")+" "+format+"\n", args...)
	}

	sub := a.engine.Subscribe(func(ev syncpkg.Event) {
		switch ev.Type {
		case syncpkg.EventConnectivityChanged:
			if ev.Online {
				printf("%s service reachable", passStyle.Render("●"))
			} else {
				printf("%s service unreachable, buffering changes", warnStyle.Render("●"))
			}
		case syncpkg.EventCollectionChanged:
			printf("collection now holds %d record(s)", ev.Count)
		case syncpkg.EventDrainCompleted:
			if ev.Drain != nil && ev.Drain.Attempted > 0 {
				printf("pushed %d of %d buffered change(s), %d remaining", ev.Drain.Pushed, ev.Drain.Attempted, ev.Drain.Remaining)
			}
		}
	})
	defer a.engine.Unsubscribe(sub)

	sched := scheduler.NewScheduler(a.engine, a.cfg.Scheduler())
	sched.Start(ctx)
	defer sched.Stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		followFeed(ctx, a.client, sched, a.cfg.Sync.ProbeInterval)
	}()

	if f, ok := a.store.(*localstore.File); ok {
		w, err := f.Watch()
		if err != nil {
			logging.Warn("Local store watch unavailable", map[string]interface{}{"error": err.Error()})
		} else {
			defer w.Stop()
			wg.Add(1)
			go func() {
				defer wg.Done()
				followStore(ctx, w, a.engine)
			}()
		}
	}

	s := a.engine.Status()
	printf("watching %s: %d record(s), %d buffered change(s); Ctrl+C to stop", a.client.BaseURL(), s.Records, s.Pending)
	<-ctx.Done()
	wg.Wait()
	printf("stopped")
	return nil
}

// followFeed triggers a resync for every change the service announces,
// reopening the feed after retryEvery whenever it is lost.
func followFeed(ctx context.Context, client *remote.Client, sched *scheduler.Scheduler, retryEvery time.Duration) {
	for {
		events, err := client.Subscribe(ctx)
		if err != nil {
			if errors.Is(err, errors.ErrUnauthorized) {
				logging.Warn("Change feed refused; relying on periodic resync", nil)
				return
			}
			logging.Debug("Change feed unavailable", map[string]interface{}{"error": err.Error()})
		} else {
			for ev := range events {
				logging.Debug("Change announced", map[string]interface{}{"type": ev.Type, "count": ev.Count})
				sched.TriggerResync()
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryEvery):
		}
	}
}

// followStore reloads the engine when another process writes the shared
// file store.
func followStore(ctx context.Context, w *localstore.Watcher, engine *syncpkg.Engine) {
	for {
		select {
		case <-ctx.Done():
			return
		case ch, ok := <-w.Changes():
			if !ok {
				return
			}
			if ch.Key == localstore.KeyFeedbacks || ch.Key == localstore.KeyPending {
				engine.ReloadLocal(ctx)
			}
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			logging.Warn("Local store watch error", map[string]interface{}{"error": err.Error()})
		}
	}
}
