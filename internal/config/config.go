// Package config loads feedbacksync configuration from a config file,
// FEEDBACK_* environment variables, a .env file and command-line flags, in
// increasing order of precedence.
package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/kimhsiao/feedbacksync/internal/errors"
	"github.com/kimhsiao/feedbacksync/internal/localstore"
	"github.com/kimhsiao/feedbacksync/internal/logging"
	"github.com/kimhsiao/feedbacksync/internal/remote"
	"github.com/kimhsiao/feedbacksync/internal/server"
	syncpkg "github.com/kimhsiao/feedbacksync/internal/sync"
	"github.com/kimhsiao/feedbacksync/internal/sync/queue"
	"github.com/kimhsiao/feedbacksync/internal/sync/reconcile"
	"github.com/kimhsiao/feedbacksync/internal/sync/scheduler"
)

// EnvPrefix prefixes every environment variable; nested keys use
// underscores, e.g. FEEDBACK_REMOTE_URL.
const EnvPrefix = "FEEDBACK"

// FileName is the config file base name searched for when none is given.
const FileName = "feedbacksync"

// Config is the complete configuration.
type Config struct {
	Remote RemoteConfig  `mapstructure:"remote"`
	Store  StoreConfig   `mapstructure:"store"`
	Sync   SyncConfig    `mapstructure:"sync"`
	Log    LogConfig     `mapstructure:"log"`
	Server server.Config `mapstructure:"server"`
}

type RemoteConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type StoreConfig struct {
	Backend string      `mapstructure:"backend"`
	DataDir string      `mapstructure:"data_dir"`
	Redis   RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type SyncConfig struct {
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	ProbeTimeout     time.Duration `mapstructure:"probe_timeout"`
	ResyncInterval   time.Duration `mapstructure:"resync_interval"`
	ProbeInterval    time.Duration `mapstructure:"probe_interval"`
	Divergence       string        `mapstructure:"divergence"`
	Backoff          BackoffConfig `mapstructure:"backoff"`
	Outbox           OutboxConfig  `mapstructure:"outbox"`
}

type BackoffConfig struct {
	Initial time.Duration `mapstructure:"initial"`
	Max     time.Duration `mapstructure:"max"`
	Jitter  float64       `mapstructure:"jitter"`
}

type OutboxConfig struct {
	MaxSize     int           `mapstructure:"max_size"`
	MaxRetries  int           `mapstructure:"max_retries"`
	BaseBackoff time.Duration `mapstructure:"base_backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// DefaultDataDir returns ~/.feedbacksync, or ./data when there is no home
// directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "data"
	}
	return filepath.Join(home, ".feedbacksync")
}

func setDefaults(v *viper.Viper) {
	engine := syncpkg.DefaultConfig()
	sched := scheduler.DefaultSchedulerConfig()

	v.SetDefault("remote.url", remote.DefaultBaseURL)
	v.SetDefault("remote.timeout", 30*time.Second)

	v.SetDefault("store.backend", localstore.BackendSQLite)
	v.SetDefault("store.data_dir", DefaultDataDir())
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "feedbacksync:")

	v.SetDefault("sync.operation_timeout", engine.OperationTimeout)
	v.SetDefault("sync.probe_timeout", engine.ProbeTimeout)
	v.SetDefault("sync.resync_interval", sched.ResyncInterval)
	v.SetDefault("sync.probe_interval", sched.ProbeInterval)
	v.SetDefault("sync.divergence", string(engine.Divergence))
	v.SetDefault("sync.backoff.initial", engine.Backoff.Initial)
	v.SetDefault("sync.backoff.max", engine.Backoff.Max)
	v.SetDefault("sync.backoff.jitter", engine.Backoff.Jitter)
	v.SetDefault("sync.outbox.max_size", queue.DefaultMaxSize)
	v.SetDefault("sync.outbox.max_retries", queue.DefaultMaxRetries)
	v.SetDefault("sync.outbox.base_backoff", queue.DefaultBaseBackoff)
	v.SetDefault("sync.outbox.max_backoff", queue.DefaultMaxBackoff)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("server.addr", server.DefaultAddr)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.auth.secret", "")
	v.SetDefault("server.auth.token_ttl", 24*time.Hour)
}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// ConfigFile is an explicit config file; it must exist when set.
	ConfigFile string
	// EnvFile is loaded into the environment first; missing is fine.
	// Defaults to ".env".
	EnvFile string
	// Flags maps config keys to command-line flags; only flags the user
	// actually set override other sources.
	Flags map[string]*pflag.Flag
}

// Load reads configuration and validates it.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(errors.ErrConfig, "failed to load "+envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.ErrConfig, "failed to read config file "+opts.ConfigFile, err)
		}
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultDataDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !stderrors.As(err, &notFound) {
				return nil, errors.Wrap(errors.ErrConfig, "failed to read config file", err)
			}
		}
	}

	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, errors.Wrap(errors.ErrConfig, "failed to bind flag "+flag.Name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrConfig, "failed to decode config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if used := v.ConfigFileUsed(); used != "" {
		logging.Debug("Config file loaded", map[string]interface{}{"path": used})
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if _, err := remote.NewClient(remote.Config{BaseURL: c.Remote.URL}); err != nil {
		return err
	}

	switch c.Store.Backend {
	case localstore.BackendSQLite, localstore.BackendFile, localstore.BackendMemory:
		if c.Store.Backend != localstore.BackendMemory && c.Store.DataDir == "" {
			return errors.New(errors.ErrConfig, "store.data_dir is required")
		}
	case localstore.BackendRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New(errors.ErrConfig, "store.redis.addr is required for the redis backend")
		}
	default:
		return errors.Newf(errors.ErrConfig, "unknown store backend %q", c.Store.Backend)
	}

	if _, err := reconcile.ParseStrategy(c.Sync.Divergence); err != nil {
		return err
	}
	if c.Sync.Backoff.Jitter < 0 || c.Sync.Backoff.Jitter > 1 {
		return errors.Newf(errors.ErrConfig, "sync.backoff.jitter must be in [0,1], got %v", c.Sync.Backoff.Jitter)
	}
	if c.Sync.Backoff.Initial < 0 || c.Sync.Backoff.Max < c.Sync.Backoff.Initial {
		return errors.New(errors.ErrConfig, "sync.backoff.max must not be below sync.backoff.initial")
	}
	if c.Sync.ResyncInterval <= 0 || c.Sync.ProbeInterval <= 0 {
		return errors.New(errors.ErrConfig, "sync intervals must be positive")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errors.Newf(errors.ErrConfig, "unknown log level %q", c.Log.Level)
	}
	return nil
}

// RemoteClient returns the client configuration.
func (c *Config) RemoteClient() remote.Config {
	return remote.Config{BaseURL: c.Remote.URL, Timeout: c.Remote.Timeout}
}

// StoreOptions returns the feedback client's local store options.
func (c *Config) StoreOptions() localstore.Options {
	return c.storeOptions(localstore.ScopeClient)
}

// ServiceStoreOptions returns the store options of the feedback service. The
// backend settings are shared with the client; the scope keeps the service
// collection apart from any client cache in the same place.
func (c *Config) ServiceStoreOptions() localstore.Options {
	return c.storeOptions(localstore.ScopeService)
}

func (c *Config) storeOptions(scope string) localstore.Options {
	return localstore.Options{
		Backend: c.Store.Backend,
		DataDir: c.Store.DataDir,
		Scope:   scope,
		Redis: localstore.RedisOptions{
			Addr:     c.Store.Redis.Addr,
			Password: c.Store.Redis.Password,
			DB:       c.Store.Redis.DB,
			Prefix:   c.Store.Redis.Prefix,
		},
	}
}

// Engine returns the engine configuration.
func (c *Config) Engine() syncpkg.Config {
	cfg := syncpkg.DefaultConfig()
	cfg.OperationTimeout = c.Sync.OperationTimeout
	cfg.ProbeTimeout = c.Sync.ProbeTimeout
	cfg.Divergence = reconcile.Strategy(c.Sync.Divergence)
	cfg.Backoff = syncpkg.BackoffConfig{
		Initial: c.Sync.Backoff.Initial,
		Max:     c.Sync.Backoff.Max,
		Jitter:  c.Sync.Backoff.Jitter,
	}
	cfg.Outbox = queue.Options{
		MaxSize:     c.Sync.Outbox.MaxSize,
		MaxRetries:  c.Sync.Outbox.MaxRetries,
		BaseBackoff: c.Sync.Outbox.BaseBackoff,
		MaxBackoff:  c.Sync.Outbox.MaxBackoff,
	}
	return cfg
}

// Scheduler returns the scheduler configuration.
func (c *Config) Scheduler() *scheduler.SchedulerConfig {
	return &scheduler.SchedulerConfig{
		ResyncInterval: c.Sync.ResyncInterval,
		ProbeInterval:  c.Sync.ProbeInterval,
	}
}

// InitLogging configures the global logger from c.Log.
func (c *Config) InitLogging() {
	logging.Init(logging.Writer(logging.FileConfig{
		Path:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
	}), logging.ParseLevel(c.Log.Level))
}
