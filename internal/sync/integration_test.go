package sync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kimhsiao/feedbacksync/internal/localstore"
	"github.com/kimhsiao/feedbacksync/internal/models"
	"github.com/kimhsiao/feedbacksync/internal/remote"
	"github.com/kimhsiao/feedbacksync/internal/server"
)

// flakyService wraps the real feedback service and answers 503 while down.
type flakyService struct {
	down atomic.Bool
	next http.Handler
}

func (f *flakyService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.down.Load() {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
		return
	}
	f.next.ServeHTTP(w, r)
}

func startService(t *testing.T, seed ...models.Feedback) (*flakyService, *remote.Client) {
	t.Helper()
	store := localstore.NewMemory()
	if len(seed) > 0 {
		if err := localstore.SaveJSON(context.Background(), store, server.CollectionKey, seed); err != nil {
			t.Fatal(err)
		}
	}
	srv, err := server.New(store, server.Config{})
	if err != nil {
		t.Fatal(err)
	}
	svc := &flakyService{next: srv.Handler()}
	ts := httptest.NewServer(svc)
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})

	c, err := remote.NewClient(remote.Config{BaseURL: ts.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	return svc, c
}

func integrationConfig() Config {
	cfg := DefaultConfig()
	cfg.Backoff = BackoffConfig{}
	return cfg
}

// TestIntegration_OfflineSubmitThenReconnect submits while the service is
// down, then verifies every buffered record reaches it exactly once.
func TestIntegration_OfflineSubmitThenReconnect(t *testing.T) {
	svc, client := startService(t, models.Feedback{ID: "seed", Text: "already there", Rating: 4})
	svc.down.Store(true)

	store, err := localstore.OpenSQLiteFile(filepath.Join(t.TempDir(), "client.db"))
	if err != nil {
		t.Fatalf("OpenSQLiteFile failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	e := New(client, store, integrationConfig())
	if err := e.Bootstrap(ctx); err != nil {
		t.Fatal(err)
	}
	if e.IsOnline() {
		t.Fatal("expected offline start")
	}

	var submitted []string
	for _, text := range []string{"first", "second", "third"} {
		rec, err := e.Submit(ctx, models.Draft{Text: text, Rating: 4, Anonymous: true})
		if err != nil {
			t.Fatalf("Submit(%q) failed: %v", text, err)
		}
		submitted = append(submitted, rec.ID)
	}
	if n := len(e.Feedbacks()); n != 3 {
		t.Fatalf("collection size = %d, want 3", n)
	}
	if got := storedIDs(t, store); !equalIDs(got, submitted) {
		t.Errorf("local store = %v, want %v", got, submitted)
	}

	svc.down.Store(false)
	if err := e.Reconnect(ctx); err != nil {
		t.Fatalf("Reconnect failed: %v", err)
	}

	if len(e.PendingOps()) != 0 {
		t.Errorf("outbox not empty: %+v", e.PendingOps())
	}
	remoteList, err := client.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	counts := make(map[string]int)
	for _, r := range remoteList {
		counts[r.ID]++
	}
	for _, id := range submitted {
		if counts[id] != 1 {
			t.Errorf("record %s stored %d times remotely", id, counts[id])
		}
	}
	if len(e.Feedbacks()) != 4 {
		t.Errorf("collection size = %d, want 4", len(e.Feedbacks()))
	}

	// a second engine on the same store starts clean and online
	e2 := New(client, store, integrationConfig())
	e2.Bootstrap(ctx)
	if !e2.IsOnline() || len(e2.PendingOps()) != 0 || len(e2.Feedbacks()) != 4 {
		t.Errorf("restarted engine: online=%v pending=%d records=%d", e2.IsOnline(), len(e2.PendingOps()), len(e2.Feedbacks()))
	}
}

// TestIntegration_FailoverOnNthCall verifies the engine keeps accepting
// writes when the service disappears mid-session and converges after.
func TestIntegration_FailoverOnNthCall(t *testing.T) {
	svc, client := startService(t)
	ctx := context.Background()

	e := New(client, localstore.NewMemory(), integrationConfig())
	e.Bootstrap(ctx)

	var ids []string
	for i := 0; i < 5; i++ {
		if i == 2 {
			svc.down.Store(true)
		}
		rec, err := e.Submit(ctx, models.Draft{Text: "note", Rating: 3, AuthorName: "Kim"})
		if err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		ids = append(ids, rec.ID)
	}
	if e.IsOnline() {
		t.Error("expected offline after the service went down")
	}
	if got := models.IDs(e.Feedbacks()); !equalIDs(got, ids) {
		t.Errorf("Feedbacks() = %v, want %v", got, ids)
	}
	if n := len(e.PendingOps()); n != 3 {
		t.Errorf("pending = %d, want 3", n)
	}

	svc.down.Store(false)
	if !e.CheckConnectivity(ctx) {
		t.Fatal("expected online")
	}
	remoteList, _ := client.List(ctx)
	if got := models.IDs(remoteList); !equalIDs(got, ids) {
		t.Errorf("remote = %v, want %v", got, ids)
	}
}

// TestIntegration_ResyncSeesOtherClient verifies a write by another client
// is adopted on resync.
func TestIntegration_ResyncSeesOtherClient(t *testing.T) {
	_, client := startService(t)
	ctx := context.Background()

	a := New(client, localstore.NewMemory(), integrationConfig())
	b := New(client, localstore.NewMemory(), integrationConfig())
	a.Bootstrap(ctx)
	b.Bootstrap(ctx)

	rec, err := b.Submit(ctx, models.Draft{Text: "from b", Rating: 5, Anonymous: true})
	if err != nil {
		t.Fatal(err)
	}

	changed, err := a.Resync(ctx)
	if err != nil || !changed {
		t.Fatalf("Resync() = %v, %v", changed, err)
	}
	if got := models.IDs(a.Feedbacks()); !equalIDs(got, []string{rec.ID}) {
		t.Errorf("a sees %v", got)
	}
}

// TestIntegration_ConcurrentResyncAndSubmit runs resyncs alongside writes
// and checks that no write is lost.
func TestIntegration_ConcurrentResyncAndSubmit(t *testing.T) {
	_, client := startService(t)
	ctx := context.Background()

	e := New(client, localstore.NewMemory(), integrationConfig())
	e.Bootstrap(ctx)

	stop := make(chan struct{})
	var wg gosync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				e.Resync(ctx)
			}
		}
	}()

	for i := 0; i < 10; i++ {
		if _, err := e.Submit(ctx, models.Draft{Text: "busy", Rating: 2, Anonymous: true}); err != nil {
			t.Fatal(err)
		}
	}
	close(stop)
	wg.Wait()

	if n := len(e.Feedbacks()); n != 10 {
		t.Errorf("collection size = %d, want 10", n)
	}
}

// TestIntegration_ClearAgainstMinimalService verifies a clear answered with
// the plain {success, cleared: true, count} envelope keeps the engine online.
func TestIntegration_ClearAgainstMinimalService(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"Feedback API"}`))
	})
	mux.HandleFunc("GET /feedbacks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":[{"id":"1","text":"ok","rating":4,"name":"a"}],"count":1}`))
	})
	mux.HandleFunc("DELETE /feedbacks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"cleared":true,"count":0}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client, err := remote.NewClient(remote.Config{BaseURL: ts.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	e := New(client, localstore.NewMemory(), integrationConfig())
	e.Bootstrap(ctx)
	if !e.IsOnline() {
		t.Fatal("expected online start")
	}

	if err := e.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if !e.IsOnline() {
		t.Error("a successful clear must not flip the engine offline")
	}
	if n := len(e.Feedbacks()); n != 0 {
		t.Errorf("collection size = %d, want 0", n)
	}
}
