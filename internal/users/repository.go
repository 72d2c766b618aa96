package users

import "context"

// Repository describes persistence operations for users and their explicit
// permission grants.
type Repository interface {
	GetByID(ctx context.Context, id string) (User, error)
	List(ctx context.Context, filter ListFilter) ([]User, int, error)
	ListGrants(ctx context.Context, userID string) ([]string, error)
	UpdateRole(ctx context.Context, userID, role string) error
	ReplaceGrants(ctx context.Context, userID string, grants []string) error
}
