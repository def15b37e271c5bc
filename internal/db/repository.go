package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// Repository provides scoped key/value operations over the kv_store table.
type Repository struct {
	db    *sql.DB
	scope string

	// Prepared statement cache keyed by query string
	stmtCache sync.Map // map[string]*sql.Stmt
}

// NewRepository creates a Repository whose keys live in scope. Distinct
// scopes share one database without colliding.
func NewRepository(db *sql.DB, scope string) *Repository {
	return &Repository{db: db, scope: scope}
}

// PrepareStmt gets or creates a prepared statement from cache.
func (r *Repository) PrepareStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	if stmt, ok := r.stmtCache.Load(query); ok {
		return stmt.(*sql.Stmt), nil
	}

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	// Another goroutine may have raced us; keep the first one
	actual, loaded := r.stmtCache.LoadOrStore(query, stmt)
	if loaded {
		stmt.Close()
		return actual.(*sql.Stmt), nil
	}
	return stmt, nil
}

// Close closes all cached prepared statements.
func (r *Repository) Close() error {
	var firstErr error
	r.stmtCache.Range(func(key, value interface{}) bool {
		if err := value.(*sql.Stmt).Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		r.stmtCache.Delete(key)
		return true
	})
	return firstErr
}

const (
	queryGet    = `SELECT value FROM kv_store WHERE scope = ? AND key = ?`
	queryPut    = `INSERT INTO kv_store (scope, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(scope, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	queryDelete = `DELETE FROM kv_store WHERE scope = ? AND key = ?`
)

// Get returns the value stored under key. ok is false when the key is absent.
func (r *Repository) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	stmt, err := r.PrepareStmt(ctx, queryGet)
	if err != nil {
		return "", false, err
	}
	err = stmt.QueryRowContext(ctx, r.scope, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return value, true, nil
}

// Put stores value under key, replacing any previous value.
func (r *Repository) Put(ctx context.Context, key, value string) error {
	stmt, err := r.PrepareStmt(ctx, queryPut)
	if err != nil {
		return err
	}
	if _, err := stmt.ExecContext(ctx, r.scope, key, value, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (r *Repository) Delete(ctx context.Context, key string) error {
	stmt, err := r.PrepareStmt(ctx, queryDelete)
	if err != nil {
		return err
	}
	if _, err := stmt.ExecContext(ctx, r.scope, key); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}
