// Command feedbackd runs the feedback service that feedbacksync clients
// synchronise against.
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
		Use:           "feedbackd",
		Short:         "Feedback collection service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `feedbackd serves one shared feedback collection over HTTP.

Clients list, add, delete and clear records, read aggregate statistics and
follow changes on a websocket feed. When users are configured, writes need
a bearer token from POST /auth/login and only admins may delete.`,
	}
	root.PersistentFlags().String("config", "", "config file (default ./feedbacksync.yaml or ~/.feedbacksync/feedbacksync.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(newServeCmd())
	root.AddCommand(newHashPasswordCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
