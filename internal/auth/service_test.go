package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/carmen-erp/carmen-erp/internal/shared"
)

type fakeRepo struct {
	accounts map[string]*Account
	sessions map[string]SessionRecord
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		accounts: make(map[string]*Account),
		sessions: make(map[string]SessionRecord),
	}
}

func (r *fakeRepo) FindByEmail(_ context.Context, email string) (*Account, error) {
	a, ok := r.accounts[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return a, nil
}

func (r *fakeRepo) CreateSession(_ context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	r.sessions[id] = SessionRecord{ID: id, UserID: userID, ExpiresAt: expiresAt, IP: ip, UserAgent: ua}
	return nil
}

func (r *fakeRepo) DeleteSession(_ context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

func seedAccount(t *testing.T, repo *fakeRepo, email, password string, active bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	repo.accounts[email] = &Account{
		ID:           "u-" + email,
		Email:        email,
		Role:         "staff",
		PasswordHash: string(hash),
		IsActive:     active,
	}
}

func TestAuthenticate(t *testing.T) {
	repo := newFakeRepo()
	seedAccount(t, repo, "chef@carmen.test", "s3cret", true)
	svc := NewService(repo)

	account, err := svc.Authenticate(context.Background(), "chef@carmen.test", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "u-chef@carmen.test", account.ID)
}

func TestAuthenticateCollapsesFailureModes(t *testing.T) {
	repo := newFakeRepo()
	seedAccount(t, repo, "chef@carmen.test", "s3cret", true)
	seedAccount(t, repo, "gone@carmen.test", "s3cret", false)
	svc := NewService(repo)

	// unknown email, wrong password and inactive account all yield the
	// same error so a caller cannot tell which field was wrong
	cases := []struct{ email, password string }{
		{"nobody@carmen.test", "s3cret"},
		{"chef@carmen.test", "wrong"},
		{"gone@carmen.test", "s3cret"},
	}
	for _, tc := range cases {
		_, err := svc.Authenticate(context.Background(), tc.email, tc.password)
		require.ErrorIs(t, err, shared.ErrInvalidCredentials, tc.email)
	}
}

func TestSessionLifecycle(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	expires := time.Now().Add(time.Hour)
	require.NoError(t, svc.RegisterSession(context.Background(), "s1", "u1", expires, "10.0.0.1", "curl"))
	require.Len(t, repo.sessions, 1)
	require.Equal(t, "u1", repo.sessions["s1"].UserID)

	require.NoError(t, svc.RemoveSession(context.Background(), "s1"))
	require.Empty(t, repo.sessions)
}
