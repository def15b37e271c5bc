// Command feedback is the offline-first feedback client. Every command
// works while the service is unreachable: writes are kept locally and
// replayed once it answers again.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time
var Version = "0.1.0"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "feedback",
		Short:         "Submit and review feedback, online or offline",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `feedback keeps a local copy of the shared feedback collection and
synchronises it with the feedback service.

While the service is unreachable, submissions and removals are stored in a
local outbox and pushed, in order, on the next command or sync that finds
the service online again.`,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default ./feedbacksync.yaml or ~/.feedbacksync/feedbacksync.yaml)")
	pf.String("url", "", "feedback service URL")
	pf.String("backend", "", "local store backend: sqlite, file, redis, memory")
	pf.String("data-dir", "", "local data directory")
	pf.String("log-level", "", "log level: debug, info, warn, error")

	root.AddGroup(
		&cobra.Group{ID: "feedback", Title: "Feedback:"},
		&cobra.Group{ID: "sync", Title: "Synchronisation:"},
	)

	for _, c := range []*cobra.Command{
		newSubmitCmd(), newListCmd(), newRemoveCmd(), newClearCmd(), newStatsCmd(), newExportCmd(), newVerifyCmd(),
	} {
		c.GroupID = "feedback"
		root.AddCommand(c)
	}
	for _, c := range []*cobra.Command{
		newStatusCmd(), newSyncCmd(), newWatchCmd(), newLoginCmd(), newLogoutCmd(),
	} {
		c.GroupID = "sync"
		root.AddCommand(c)
	}
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", failStyle.Render("Error:"), err)
		os.Exit(1)
	}
}
