package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kimhsiao/feedbacksync/internal/config"
	"github.com/kimhsiao/feedbacksync/internal/crypto"
	"github.com/kimhsiao/feedbacksync/internal/localstore"
	"github.com/kimhsiao/feedbacksync/internal/logging"
	"github.com/kimhsiao/feedbacksync/internal/remote"
	syncpkg "github.com/kimhsiao/feedbacksync/internal/sync"
)

// app is the client wiring shared by every command.
type app struct {
	cfg    *config.Config
	store  localstore.Store
	client *remote.Client
	engine *syncpkg.Engine
}

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"url":       "remote.url",
	"backend":   "store.backend",
	"data-dir":  "store.data_dir",
	"log-level": "log.level",
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	flags := make(map[string]*pflag.Flag, len(flagKeys))
	for name, key := range flagKeys {
		flags[key] = cmd.Flags().Lookup(name)
	}
	return config.Load(config.LoadOptions{ConfigFile: file, Flags: flags})
}

// newApp loads configuration, opens the local store and the client, and
// bootstraps the engine. Bootstrap never fails because the service is down;
// the engine then starts from the local copy.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	cfg.InitLogging()
	return openApp(cmd.Context(), cfg)
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := localstore.Open(ctx, cfg.StoreOptions())
	if err != nil {
		return nil, err
	}

	client, err := remote.NewClient(cfg.RemoteClient())
	if err != nil {
		localstore.Close(store)
		return nil, err
	}
	if token, err := loadToken(ctx, store, cfg); err != nil {
		logging.Warn("Ignoring stored token", map[string]interface{}{"error": err.Error()})
	} else {
		client.SetToken(token)
	}

	a := &app{
		cfg:    cfg,
		store:  store,
		client: client,
		engine: syncpkg.New(client, store, cfg.Engine()),
	}
	if err := a.engine.Bootstrap(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// tokenKey binds the sealed token to this host and local store.
func tokenKey(cfg *config.Config) []byte {
	return crypto.MachineKey(cfg.Store.Backend + ":" + cfg.Store.DataDir)
}

func loadToken(ctx context.Context, store localstore.Store, cfg *config.Config) (string, error) {
	sealed, ok, err := store.Get(ctx, localstore.KeyToken)
	if err != nil || !ok {
		return "", err
	}
	return crypto.OpenString(sealed, tokenKey(cfg))
}

func saveToken(ctx context.Context, store localstore.Store, cfg *config.Config, token string) error {
	sealed, err := crypto.SealString(token, tokenKey(cfg))
	if err != nil {
		return err
	}
	return store.Set(ctx, localstore.KeyToken, sealed)
}

func (a *app) Close() {
	if err := localstore.Close(a.store); err != nil {
		logging.Error("Failed to close local store", err, nil)
	}
}
