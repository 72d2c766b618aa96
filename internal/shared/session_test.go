package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "carmen_session", "test-secret", time.Hour, false), srv
}

func requestWithCookie(id string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id != "" {
		req.AddCookie(&http.Cookie{Name: "carmen_session", Value: id})
	}
	return req
}

func TestSessionRoundTrip(t *testing.T) {
	sm, _ := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWithCookie(""))
	require.NoError(t, err)
	sess.Set("theme", "dark")
	sess.SetUser("user-1")

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, requestWithCookie(""), sess))
	require.NotEmpty(t, sess.ID)

	loaded, err := sm.Load(ctx, requestWithCookie(sess.ID))
	require.NoError(t, err)
	require.Equal(t, "user-1", loaded.User())
	require.Equal(t, "dark", loaded.Get("theme"))
}

func TestRotateIssuesFreshIDAndDropsOldEntry(t *testing.T) {
	sm, srv := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWithCookie(""))
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, requestWithCookie(""), sess))

	anonID := sess.ID
	require.True(t, srv.Exists("session:"+anonID))

	require.NoError(t, sm.Rotate(ctx, sess))
	require.NotEqual(t, anonID, sess.ID)
	require.False(t, srv.Exists("session:"+anonID))

	sess.SetUser("user-1")
	rec = httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, requestWithCookie(""), sess))
	require.True(t, srv.Exists("session:"+sess.ID))

	// the pre-login cookie must not resolve to the authenticated session
	stale, err := sm.Load(ctx, requestWithCookie(anonID))
	require.NoError(t, err)
	require.Empty(t, stale.User())
}

func TestDestroyRemovesSession(t *testing.T) {
	sm, srv := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, requestWithCookie(""))
	require.NoError(t, err)
	sess.SetUser("user-1")
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, requestWithCookie(""), sess))
	require.True(t, srv.Exists("session:"+sess.ID))

	sm.Destroy(sess)
	rec = httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, requestWithCookie(sess.ID), sess))
	require.False(t, srv.Exists("session:"+sess.ID))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge)
}
