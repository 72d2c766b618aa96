package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/carmen-erp/carmen-erp/internal/shared"
)

func TestLoginRotatesSessionID(t *testing.T) {
	repo := newFakeRepo()
	seedAccount(t, repo, "chef@carmen.test", "s3cret-pass", true)
	svc := NewService(repo)

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "carmen_session", "test-secret", time.Hour, false)

	h := NewHandler(slog.Default(), svc, sessions, nil)

	// an anonymous visitor already holds a persisted session
	sess, err := sessions.Load(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, sessions.Commit(context.Background(), rec, httptest.NewRequest(http.MethodGet, "/", nil), sess))
	anonID := sess.ID
	require.True(t, srv.Exists("session:"+anonID))

	body := strings.NewReader(`{"email":"chef@carmen.test","password":"s3cret-pass"}`)
	req := httptest.NewRequest(http.MethodPost, "/login", body)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rec = httptest.NewRecorder()
	h.login(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// login must not keep the ID issued before authentication
	require.NotEqual(t, anonID, sess.ID)
	require.Equal(t, "u-chef@carmen.test", sess.User())
	require.False(t, srv.Exists("session:"+anonID))

	// the server-side session record is registered under the fresh ID
	require.Contains(t, repo.sessions, sess.ID)
	require.NotContains(t, repo.sessions, anonID)
}
