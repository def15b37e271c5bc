package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimhsiao/feedbacksync/internal/errors"
	"github.com/kimhsiao/feedbacksync/internal/localstore"
	"github.com/kimhsiao/feedbacksync/internal/models"
	"github.com/kimhsiao/feedbacksync/internal/remote"
)

func newTestServer(t *testing.T, store localstore.Store, auth AuthConfig) (*Server, *remote.Client) {
	t.Helper()
	s, err := New(store, Config{Auth: auth})
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})

	c, err := remote.NewClient(remote.Config{BaseURL: ts.URL, Timeout: 2 * time.Second})
	require.NoError(t, err)
	return s, c
}

func record(text string, rating int) models.Feedback {
	return models.Feedback{Text: text, Rating: rating, AuthorName: "Ann", Category: models.CategoryService, Sentiment: models.SentimentPositive}
}

// ===== Collection =====

func TestServer_Index(t *testing.T) {
	_, c := newTestServer(t, localstore.NewMemory(), AuthConfig{})
	assert.NoError(t, c.Ping(context.Background()))
}

func TestServer_AddListDelete(t *testing.T) {
	store := localstore.NewMemory()
	_, c := newTestServer(t, store, AuthConfig{})
	ctx := context.Background()

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	added, err := c.Add(ctx, record("great service", 5))
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.False(t, added.CreatedAt.IsZero())

	list, err = c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, added.ID, list[0].ID)

	// persisted through the store
	var stored []models.Feedback
	ok, err := localstore.LoadJSON(ctx, store, CollectionKey, &stored)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, stored, 1)

	require.NoError(t, c.Delete(ctx, added.ID))
	list, err = c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	// second delete: 404, which the client treats as done
	assert.NoError(t, c.Delete(ctx, added.ID))
}

func TestServer_AddKeepsClientID(t *testing.T) {
	_, c := newTestServer(t, localstore.NewMemory(), AuthConfig{})
	ctx := context.Background()

	rec := record("hello", 4)
	rec.ID = "client-1"
	rec.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	got, err := c.Add(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, "client-1", got.ID)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))

	// replaying the same id does not duplicate
	rec.Text = "changed"
	got, err = c.Add(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Text)

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestServer_AddValidation(t *testing.T) {
	_, c := newTestServer(t, localstore.NewMemory(), AuthConfig{})

	tests := []struct {
		name string
		rec  models.Feedback
	}{
		{"empty text", models.Feedback{Text: "  ", Rating: 3}},
		{"rating", models.Feedback{Text: "x", Rating: 9}},
		{"category", models.Feedback{Text: "x", Rating: 3, Category: "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Add(context.Background(), tt.rec)
			assert.True(t, errors.Is(err, errors.ErrRemoteRejected), "got %v", err)
		})
	}
}

func TestServer_ClearAndStats(t *testing.T) {
	_, c := newTestServer(t, localstore.NewMemory(), AuthConfig{})
	ctx := context.Background()

	for _, r := range []int{5, 5, 4, 3, 2} {
		_, err := c.Add(ctx, record("x", r))
		require.NoError(t, err)
	}

	s, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, 3.8, s.AverageRating)
	assert.Equal(t, 60, s.SatisfactionRate)

	n, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	list, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestServer_storeFailure(t *testing.T) {
	store := localstore.NewMemory()
	_, c := newTestServer(t, store, AuthConfig{})

	store.SetFailures(assert.AnError, nil)
	_, err := c.List(context.Background())
	assert.True(t, errors.Is(err, errors.ErrRemoteUnavailable), "got %v", err)
}

func TestServer_CORSPreflight(t *testing.T) {
	s, err := New(localstore.NewMemory(), Config{})
	require.NoError(t, err)
	defer s.Close()

	req := httptest.NewRequest(http.MethodOptions, "/feedbacks", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

// ===== Auth =====

func testAuth(t *testing.T) AuthConfig {
	t.Helper()
	adminHash, err := HashPassword("admin123")
	require.NoError(t, err)
	userHash, err := HashPassword("user123")
	require.NoError(t, err)
	return AuthConfig{
		Secret: "test-secret",
		Users: []User{
			{Username: "admin", PasswordHash: adminHash, Role: RoleAdmin},
			{Username: "user", PasswordHash: userHash, Role: RoleUser},
		},
	}
}

func TestServer_AuthRoles(t *testing.T) {
	s, c := newTestServer(t, localstore.NewMemory(), testAuth(t))
	ctx := context.Background()
	require.True(t, s.AuthEnabled())

	// reads stay public
	_, err := c.List(ctx)
	require.NoError(t, err)

	// writes need a token
	_, err = c.Add(ctx, record("x", 3))
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))

	_, err = c.Login(ctx, "user", "wrong")
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))

	resp, err := c.Login(ctx, "user", "user123")
	require.NoError(t, err)
	assert.Equal(t, RoleUser, resp.Role)
	c.SetToken(resp.Token)

	added, err := c.Add(ctx, record("x", 3))
	require.NoError(t, err)

	// users cannot delete
	err = c.Delete(ctx, added.ID)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))

	resp, err = c.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	c.SetToken(resp.Token)
	require.NoError(t, c.Delete(ctx, added.ID))
	_, err = c.Clear(ctx)
	require.NoError(t, err)
}

func TestAuthenticator_config(t *testing.T) {
	a, err := NewAuthenticator(AuthConfig{})
	require.NoError(t, err)
	assert.Nil(t, a)

	_, err = NewAuthenticator(AuthConfig{Secret: "s", Users: []User{{Username: "x", PasswordHash: "h", Role: "root"}}})
	assert.True(t, errors.Is(err, errors.ErrConfig))
}

func TestAuthenticator_expiredToken(t *testing.T) {
	a, err := NewAuthenticator(testAuth(t))
	require.NoError(t, err)

	now := time.Now()
	a.now = func() time.Time { return now }
	tok, err := a.SignToken("admin", RoleAdmin)
	require.NoError(t, err)

	c, err := a.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, c.Role)

	a.now = func() time.Time { return now.Add(48 * time.Hour) }
	_, err = a.ParseToken(tok)
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}

func TestServer_LoginDisabled(t *testing.T) {
	s, err := New(localstore.NewMemory(), Config{})
	require.NoError(t, err)
	defer s.Close()

	body, _ := json.Marshal(remote.LoginRequest{Username: "a", Password: "b"})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ===== Change feed =====

func TestServer_ChangeFeed(t *testing.T) {
	s, c := newTestServer(t, localstore.NewMemory(), AuthConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := c.Subscribe(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return s.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	added, err := c.Add(context.Background(), record("live", 4))
	require.NoError(t, err)
	require.NoError(t, c.Delete(context.Background(), added.ID))

	var got []remote.Event
	for len(got) < 2 {
		select {
		case ev := <-events:
			got = append(got, ev)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for feed events")
		}
	}
	assert.Equal(t, remote.EventFeedbackAdded, got[0].Type)
	assert.Equal(t, 1, got[0].Count)
	var rec models.Feedback
	require.NoError(t, json.Unmarshal(got[0].Data, &rec))
	assert.Equal(t, added.ID, rec.ID)
	assert.Equal(t, remote.EventFeedbackDeleted, got[1].Type)
	assert.Equal(t, 0, got[1].Count)
}

func TestHub_CloseIdempotent(t *testing.T) {
	h := NewHub()
	h.Close()
	h.Close()
	// broadcast on a closed hub must not block
	h.Broadcast(remote.EventFeedbackCleared, nil, 0)
}
