package db

import (
	"context"
	"sync"
	"testing"
)

func setupRepo(t *testing.T, scope string) (*DB, *Repository) {
	t.Helper()
	db, err := OpenFile(":memory:")
	if err != nil {
		t.Fatalf("OpenFile() failed: %v", err)
	}
	repo := NewRepository(db.DB, scope)
	t.Cleanup(func() {
		repo.Close()
		db.Close()
	})
	return db, repo
}

// TestRepository_GetMissing verifies an absent key reports ok=false.
func TestRepository_GetMissing(t *testing.T) {
	_, repo := setupRepo(t, "test")

	v, ok, err := repo.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok || v != "" {
		t.Errorf("Get() = %q, %v; want empty, false", v, ok)
	}
}

// TestRepository_PutGetDelete verifies the basic round trip.
func TestRepository_PutGetDelete(t *testing.T) {
	_, repo := setupRepo(t, "test")
	ctx := context.Background()

	if err := repo.Put(ctx, "feedbacks", `[{"id":"1"}]`); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := repo.Put(ctx, "feedbacks", `[]`); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}

	v, ok, err := repo.Get(ctx, "feedbacks")
	if err != nil || !ok || v != "[]" {
		t.Errorf("Get() = %q, %v, %v; want [] true nil", v, ok, err)
	}

	if err := repo.Delete(ctx, "feedbacks"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "feedbacks"); err != nil {
		t.Errorf("Delete() of absent key error = %v", err)
	}
	if _, ok, _ := repo.Get(ctx, "feedbacks"); ok {
		t.Error("key should be gone after Delete()")
	}
}

// TestRepository_scopes verifies scopes don't collide.
func TestRepository_scopes(t *testing.T) {
	db, a := setupRepo(t, "a")
	b := NewRepository(db.DB, "b")
	defer b.Close()
	ctx := context.Background()

	if err := a.Put(ctx, "k", "from-a"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := b.Get(ctx, "k"); ok {
		t.Error("scope b should not see scope a's key")
	}

	if err := b.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if v, ok, _ := a.Get(ctx, "k"); !ok || v != "from-a" {
		t.Errorf("delete in scope b removed scope a's key: %q %v", v, ok)
	}
}

// TestRepository_PrepareStmtCache verifies statements are reused.
func TestRepository_PrepareStmtCache(t *testing.T) {
	_, repo := setupRepo(t, "test")
	ctx := context.Background()

	var wg sync.WaitGroup
	stmts := make(chan interface{}, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			stmt, err := repo.PrepareStmt(ctx, queryGet)
			if err != nil {
				t.Errorf("PrepareStmt() error = %v", err)
				return
			}
			stmts <- stmt
		}()
	}
	wg.Wait()
	close(stmts)

	first, _ := repo.PrepareStmt(ctx, queryGet)
	for s := range stmts {
		if s != interface{}(first) {
			t.Error("PrepareStmt() returned a different statement for the same query")
		}
	}
}
