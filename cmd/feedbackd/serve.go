package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kimhsiao/feedbacksync/internal/config"
	"github.com/kimhsiao/feedbacksync/internal/localstore"
	"github.com/kimhsiao/feedbacksync/internal/logging"
	"github.com/kimhsiao/feedbacksync/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the feedback service",
		Long: `Run the feedback service until interrupted.

The collection is stored under the "feedbacks" key of the selected backend:
feedbacks.json in <data-dir>/service for the file backend, a kv row of the
"service" scope in <data-dir>/feedbacksync.db for sqlite, or the
<prefix>service:feedbacks redis key. Feedback clients sharing the data
directory or redis server use the "client" scope and never see these.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.InitLogging()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().String("addr", server.DefaultAddr, "listen address")
	cmd.Flags().String("data-dir", config.DefaultDataDir(), "data directory for the sqlite and file backends")
	cmd.Flags().String("backend", localstore.BackendSQLite, "storage backend: sqlite, file, redis, memory")
	return cmd
}

// loadConfig reads configuration, letting flags the user set win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	flags := map[string]*pflag.Flag{
		"log.level":      cmd.Flags().Lookup("log-level"),
		"server.addr":    cmd.Flags().Lookup("addr"),
		"store.data_dir": cmd.Flags().Lookup("data-dir"),
		"store.backend":  cmd.Flags().Lookup("backend"),
	}
	return config.Load(config.LoadOptions{ConfigFile: file, Flags: flags})
}

func serve(ctx context.Context, cfg *config.Config) error {
	store, err := localstore.Open(ctx, cfg.ServiceStoreOptions())
	if err != nil {
		return err
	}
	defer func() {
		if err := localstore.Close(store); err != nil {
			logging.Error("Failed to close store", err, nil)
		}
	}()

	srv, err := server.New(store, cfg.Server)
	if err != nil {
		return err
	}
	logging.Info("Starting feedback service", map[string]interface{}{
		"version": Version,
		"backend": cfg.Store.Backend,
		"addr":    cfg.Server.Addr,
	})
	return srv.ListenAndServe(ctx)
}
