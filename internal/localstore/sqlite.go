package localstore

import (
	"context"

	"github.com/kimhsiao/feedbacksync/internal/db"
)

// Scopes partition one backend between the feedback client's cache and the
// service's collection, so both may share a data directory or redis server.
const (
	ScopeClient  = "client"
	ScopeService = "service"
)

// DefaultScope is the scope used when none is given.
const DefaultScope = ScopeClient

// SQLite is a Store backed by the kv_store table.
type SQLite struct {
	db   *db.DB
	repo *db.Repository
}

// OpenSQLite opens (creating if needed) the database in dataDir, reading
// and writing only rows of scope.
func OpenSQLite(dataDir, scope string) (*SQLite, error) {
	if scope == "" {
		scope = DefaultScope
	}
	conn, err := db.Open(dataDir)
	if err != nil {
		return nil, err
	}
	return &SQLite{db: conn, repo: db.NewRepository(conn.DB, scope)}, nil
}

// OpenSQLiteFile opens the database at path (":memory:" for tests).
func OpenSQLiteFile(path string) (*SQLite, error) {
	conn, err := db.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return &SQLite{db: conn, repo: db.NewRepository(conn.DB, DefaultScope)}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	return s.repo.Get(ctx, key)
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	return s.repo.Put(ctx, key, value)
}

func (s *SQLite) Remove(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, key)
}

// Close releases cached statements and the connection.
func (s *SQLite) Close() error {
	s.repo.Close()
	return s.db.Close()
}
