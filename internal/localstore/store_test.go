package localstore

import (
	"context"
	stderrors "errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/feedbacksync/internal/errors"
)

// backends returns every Store implementation available in this environment.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	out := map[string]Store{"memory": NewMemory()}

	sq, err := OpenSQLiteFile(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	out["sqlite"] = sq

	f, err := NewFile(t.TempDir())
	require.NoError(t, err)
	out["file"] = f

	if addr := os.Getenv("FEEDBACK_TEST_REDIS_ADDR"); addr != "" {
		r, err := NewRedis(context.Background(), RedisOptions{Addr: addr, Prefix: "feedbacksync-test:" + t.Name() + ":"})
		require.NoError(t, err)
		t.Cleanup(func() {
			r.Remove(context.Background(), "k")
			r.Remove(context.Background(), KeyPending)
			r.Close()
		})
		out["redis"] = r
	}
	return out
}

// ===== Conformance =====

// TestStore_roundTrip verifies every backend returns what was stored.
func TestStore_roundTrip(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "k", "v1"))
			require.NoError(t, s.Set(ctx, "k", "v2"))
			require.NoError(t, s.Set(ctx, KeyPending, "[]"))

			v, ok, err := s.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v2", v)

			v, ok, err = s.Get(ctx, KeyPending)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "[]", v)

			require.NoError(t, s.Remove(ctx, "k"))
			require.NoError(t, s.Remove(ctx, "k"))
			_, ok, err = s.Get(ctx, "k")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

// ===== JSON helpers =====

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestSaveLoadJSON(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	var got sample
	ok, err := LoadJSON(ctx, s, "x", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SaveJSON(ctx, s, "x", sample{"a", 2}))
	ok, err = LoadJSON(ctx, s, "x", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, sample{"a", 2}, got)
}

func TestLoadJSON_corrupt(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Set(ctx, "x", "{not json"))

	var got sample
	_, err := LoadJSON(ctx, s, "x", &got)
	assert.True(t, errors.Is(err, errors.ErrLocalStore))
}

func TestSaveJSON_writeFailure(t *testing.T) {
	s := NewMemory()
	s.SetFailures(nil, stderrors.New("disk full"))

	err := SaveJSON(context.Background(), s, "x", sample{})
	assert.True(t, errors.Is(err, errors.ErrLocalStore))
}

// ===== Open =====

func TestOpen_backends(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, Options{DataDir: dir})
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, s)
	require.NoError(t, Close(s))

	s, err = Open(ctx, Options{Backend: BackendFile, DataDir: dir})
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)

	s, err = Open(ctx, Options{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)
	assert.NoError(t, Close(s))

	_, err = Open(ctx, Options{Backend: "tape"})
	assert.True(t, errors.Is(err, errors.ErrConfig))
}

// TestOpen_scopesAreIsolated verifies client and service stores opened on the
// same data directory never share a key.
func TestOpen_scopesAreIsolated(t *testing.T) {
	ctx := context.Background()

	for _, backend := range []string{BackendSQLite, BackendFile} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			client, err := Open(ctx, Options{Backend: backend, DataDir: dir})
			require.NoError(t, err)
			defer Close(client)
			service, err := Open(ctx, Options{Backend: backend, DataDir: dir, Scope: ScopeService})
			require.NoError(t, err)
			defer Close(service)

			require.NoError(t, service.Set(ctx, KeyFeedbacks, "service"))
			_, ok, err := client.Get(ctx, KeyFeedbacks)
			require.NoError(t, err)
			assert.False(t, ok, "client sees the service collection")

			require.NoError(t, client.Set(ctx, KeyFeedbacks, "client"))
			require.NoError(t, client.Remove(ctx, KeyFeedbacks))
			v, ok, err := service.Get(ctx, KeyFeedbacks)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "service", v)
		})
	}
}

// ===== File watching =====

func TestFile_keyFromPath(t *testing.T) {
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)

	key, ok := keyFromPath(f.path(KeyPending))
	assert.True(t, ok)
	assert.Equal(t, KeyPending, key)

	_, ok = keyFromPath("/tmp/.tmp-1234")
	assert.False(t, ok)
	_, ok = keyFromPath("/tmp/notes.txt")
	assert.False(t, ok)
}

// TestFile_Watch verifies writes from another store instance on the same
// directory are reported while the watcher's own writes are not.
func TestFile_Watch(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	mine, err := NewFile(dir)
	require.NoError(t, err)
	other, err := NewFile(dir)
	require.NoError(t, err)

	w, err := mine.Watch()
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, mine.Set(ctx, KeyFeedbacks, `[]`))
	require.NoError(t, other.Set(ctx, KeyFeedbacks, `[{"id":"1"}]`))

	select {
	case ch := <-w.Changes():
		assert.Equal(t, KeyFeedbacks, ch.Key)
		assert.False(t, ch.Removed)
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported for external write")
	}

	// The change has been seen; a read leaves nothing pending
	v, ok, err := mine.Get(ctx, KeyFeedbacks)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1"}]`, v)
}

func TestWatcher_StopIdempotent(t *testing.T) {
	f, err := NewFile(t.TempDir())
	require.NoError(t, err)
	w, err := f.Watch()
	require.NoError(t, err)

	assert.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())

	_, open := <-w.Changes()
	assert.False(t, open)
}
