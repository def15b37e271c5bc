// Package db tests for database connection management.
package db

import (
	"os"
	"path/filepath"
	"testing"
)

// TestOpen verifies database opening with proper configuration.
func TestOpen(t *testing.T) {
	tmpDir := t.TempDir()

	db, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	// Verify database file was created
	if _, err := os.Stat(filepath.Join(tmpDir, FileName)); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}

	var walMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&walMode); err != nil {
		t.Errorf("Failed to check WAL mode: %v", err)
	}
	if walMode != "wal" {
		t.Errorf("WAL mode not enabled, got: %s", walMode)
	}

	// Verify the kv_store migration ran
	var tableName string
	err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='kv_store'").Scan(&tableName)
	if err != nil {
		t.Errorf("kv_store table not found: %v", err)
	}
}

// TestOpen_invalidDataDir verifies error when data directory cannot be created.
func TestOpen_invalidDataDir(t *testing.T) {
	_, err := Open("/dev/null/invalid_path/that/cannot/be/created")
	if err == nil {
		t.Error("Open() with invalid path should return error")
	}
}

// TestOpenFile_memory verifies an in-memory database is migrated.
func TestOpenFile_memory(t *testing.T) {
	db, err := OpenFile(":memory:")
	if err != nil {
		t.Fatalf("OpenFile() failed: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM kv_store").Scan(&count); err != nil {
		t.Fatalf("kv_store query failed: %v", err)
	}
	if count != 0 {
		t.Errorf("kv_store count = %d, want 0", count)
	}
}

// TestDB_reopen verifies data survives close and reopen, and that
// migrations are not re-applied.
func TestDB_reopen(t *testing.T) {
	tmpDir := t.TempDir()

	db1, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("First Open() failed: %v", err)
	}
	if _, err := db1.Exec("INSERT INTO kv_store (scope, key, value, updated_at) VALUES ('s', 'k', 'v', 1)"); err != nil {
		t.Fatalf("Failed to insert test data: %v", err)
	}
	if err := db1.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	db2, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("Second Open() failed: %v", err)
	}
	defer db2.Close()

	var value string
	if err := db2.QueryRow("SELECT value FROM kv_store WHERE scope = 's' AND key = 'k'").Scan(&value); err != nil {
		t.Errorf("Failed to query test data: %v", err)
	}
	if value != "v" {
		t.Errorf("Expected 'v', got %q", value)
	}

	var applied int
	if err := db2.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatal(err)
	}
	if applied != 1 {
		t.Errorf("schema_migrations rows = %d, want 1", applied)
	}
}
