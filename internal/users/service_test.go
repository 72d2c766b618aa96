package users

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/carmen-erp/carmen-erp/internal/authz"
)

type fakeRepo struct {
	mu     sync.Mutex
	users  map[string]User
	grants map[string][]string
	loads  int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:  make(map[string]User),
		grants: make(map[string][]string),
	}
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	u, ok := r.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *fakeRepo) List(_ context.Context, filter ListFilter) ([]User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []User
	for _, u := range r.users {
		if filter.Department != "" && u.Department != filter.Department {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		out = append(out, u)
	}
	return out, len(out), nil
}

func (r *fakeRepo) ListGrants(_ context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.grants[userID], nil
}

func (r *fakeRepo) UpdateRole(_ context.Context, userID, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	r.users[userID] = u
	return nil
}

func (r *fakeRepo) ReplaceGrants(_ context.Context, userID string, grants []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants[userID] = grants
	return nil
}

func newCachedService(t *testing.T, repo Repository) (*Service, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, nil, client, time.Minute, nil), client
}

func TestAuthzUserResolvesGrantsAndRole(t *testing.T) {
	repo := newFakeRepo()
	repo.users["u1"] = User{ID: "u1", Role: "chef", Department: "kitchen", Location: "main", IsActive: true}
	repo.grants["u1"] = []string{"manage_vendors:vendors"}
	svc := NewService(repo, nil, nil, 0, nil)

	subject, err := svc.AuthzUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, authz.RoleChef, subject.Role)
	require.Equal(t, "kitchen", subject.Department)
	require.Equal(t, []authz.Grant{{Action: authz.ActionManageVendors, Resource: authz.ResourceVendors}}, subject.Grants)
}

func TestAuthzUserRejectsInactiveAccounts(t *testing.T) {
	repo := newFakeRepo()
	repo.users["u1"] = User{ID: "u1", Role: "staff", IsActive: false}
	svc := NewService(repo, nil, nil, 0, nil)

	_, err := svc.AuthzUser(context.Background(), "u1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAuthzUserCachesSubject(t *testing.T) {
	repo := newFakeRepo()
	repo.users["u1"] = User{ID: "u1", Role: "staff", IsActive: true}
	svc, _ := newCachedService(t, repo)

	for range 3 {
		_, err := svc.AuthzUser(context.Background(), "u1")
		require.NoError(t, err)
	}
	require.Equal(t, 1, repo.loads)
}

func TestInvalidateDropsCachedSubject(t *testing.T) {
	repo := newFakeRepo()
	repo.users["u1"] = User{ID: "u1", Role: "staff", IsActive: true}
	svc, _ := newCachedService(t, repo)

	_, err := svc.AuthzUser(context.Background(), "u1")
	require.NoError(t, err)
	svc.Invalidate(context.Background(), "u1")

	_, err = svc.AuthzUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, 2, repo.loads)
}

func TestUpdateRoleValidatesAgainstHierarchy(t *testing.T) {
	repo := newFakeRepo()
	repo.users["u1"] = User{ID: "u1", Role: "staff", IsActive: true}
	svc, _ := newCachedService(t, repo)

	err := svc.UpdateRole(context.Background(), "u1", "galactic-overlord")
	require.ErrorIs(t, err, ErrUnknownRole)

	require.NoError(t, svc.UpdateRole(context.Background(), "u1", "chef"))

	// the cached subject picks up the new role on next resolve
	subject, err := svc.AuthzUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, authz.RoleChef, subject.Role)
}

func TestReplaceGrantsRejectsMalformedEntries(t *testing.T) {
	repo := newFakeRepo()
	repo.users["u1"] = User{ID: "u1", Role: "staff", IsActive: true}
	svc := NewService(repo, nil, nil, 0, nil)

	err := svc.ReplaceGrants(context.Background(), "u1", []string{"read:vendors", "nonsense"})
	require.ErrorIs(t, err, authz.ErrInvalidGrant)
	require.Empty(t, repo.grants["u1"])

	require.NoError(t, svc.ReplaceGrants(context.Background(), "u1", []string{"read:vendors"}))
	require.Equal(t, []string{"read:vendors"}, repo.grants["u1"])
}

func TestListFilters(t *testing.T) {
	repo := newFakeRepo()
	repo.users["u1"] = User{ID: "u1", Role: "chef", Department: "kitchen", IsActive: true}
	repo.users["u2"] = User{ID: "u2", Role: "staff", Department: "front-desk", IsActive: true}
	svc := NewService(repo, nil, nil, 0, nil)

	list, page, err := svc.List(context.Background(), ListFilter{Department: "kitchen", Page: 1, PerPage: 20})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "u1", list[0].ID)
	require.Equal(t, 1, page.Total)
}
