package localstore

import (
	"context"
	"path/filepath"

	"github.com/kimhsiao/feedbacksync/internal/errors"
)

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	DataDir string
	// Scope is ScopeClient or ScopeService; empty means ScopeClient. It
	// selects the sqlite scope, the file store subdirectory and a redis key
	// segment.
	Scope string
	Redis RedisOptions
}

// Open builds the Store named by opts.Backend. An empty backend means sqlite.
func Open(ctx context.Context, opts Options) (Store, error) {
	scope := opts.Scope
	if scope == "" {
		scope = DefaultScope
	}
	switch opts.Backend {
	case "", BackendSQLite:
		s, err := OpenSQLite(opts.DataDir, scope)
		if err != nil {
			return nil, errors.Wrap(errors.ErrLocalStore, "failed to open sqlite store", err)
		}
		return s, nil
	case BackendFile:
		s, err := NewFile(filepath.Join(opts.DataDir, scope))
		if err != nil {
			return nil, errors.Wrap(errors.ErrLocalStore, "failed to open file store", err)
		}
		return s, nil
	case BackendRedis:
		ro := opts.Redis
		ro.Prefix += scope + ":"
		s, err := NewRedis(ctx, ro)
		if err != nil {
			return nil, errors.Wrap(errors.ErrLocalStore, "failed to open redis store", err)
		}
		return s, nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, errors.Newf(errors.ErrConfig, "unknown store backend %q", opts.Backend)
	}
}
