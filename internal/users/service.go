package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/carmen-erp/carmen-erp/internal/authz"
	"github.com/carmen-erp/carmen-erp/internal/shared"
)

// Service resolves accounts into authorization subjects and manages roles
// and explicit grants.
type Service struct {
	repo   Repository
	tables *authz.Tables
	cache  *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// NewService constructs the user service. The cache client may be nil, in
// which case every lookup hits the repository.
func NewService(repo Repository, tables *authz.Tables, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	if tables == nil {
		tables = authz.DefaultTables()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tables: tables, cache: cache, ttl: ttl, logger: logger}
}

type cachedSubject struct {
	ID         string   `json:"id"`
	Role       string   `json:"role"`
	Department string   `json:"department"`
	Location   string   `json:"location"`
	Grants     []string `json:"grants"`
}

func cacheKey(userID string) string {
	return "authz:user:" + userID
}

// AuthzUser resolves a user ID into an authz.User with explicit grants
// attached. Results are cached in redis; concurrent cache misses for the
// same user are collapsed into a single repository load.
func (s *Service) AuthzUser(ctx context.Context, userID string) (authz.User, error) {
	if s.cache != nil {
		data, err := s.cache.Get(ctx, cacheKey(userID)).Bytes()
		if err == nil {
			var cached cachedSubject
			if err := json.Unmarshal(data, &cached); err == nil {
				return s.toAuthzUser(cached)
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("authz user cache read", slog.Any("error", err))
		}
	}

	v, err, _ := s.group.Do(userID, func() (any, error) {
		return s.loadSubject(ctx, userID)
	})
	if err != nil {
		return authz.User{}, err
	}
	return s.toAuthzUser(v.(cachedSubject))
}

func (s *Service) loadSubject(ctx context.Context, userID string) (cachedSubject, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return cachedSubject{}, err
	}
	if !user.IsActive {
		return cachedSubject{}, ErrNotFound
	}
	grants, err := s.repo.ListGrants(ctx, userID)
	if err != nil {
		return cachedSubject{}, err
	}
	subject := cachedSubject{
		ID:         user.ID,
		Role:       user.Role,
		Department: user.Department,
		Location:   user.Location,
		Grants:     grants,
	}
	if s.cache != nil {
		if data, err := json.Marshal(subject); err == nil {
			if err := s.cache.Set(ctx, cacheKey(userID), data, s.ttl).Err(); err != nil {
				s.logger.Warn("authz user cache write", slog.Any("error", err))
			}
		}
	}
	return subject, nil
}

func (s *Service) toAuthzUser(subject cachedSubject) (authz.User, error) {
	grants, err := authz.ParseGrants(subject.Grants)
	if err != nil {
		return authz.User{}, fmt.Errorf("users: grants for %s: %w", subject.ID, err)
	}
	return authz.User{
		ID:         subject.ID,
		Role:       authz.RoleName(subject.Role),
		Department: subject.Department,
		Location:   subject.Location,
		Grants:     grants,
	}, nil
}

// Invalidate drops the cached authorization subject for a user.
func (s *Service) Invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, cacheKey(userID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		s.logger.Warn("authz user cache invalidate", slog.Any("error", err))
	}
}

// Get fetches a single user record.
func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	return s.repo.GetByID(ctx, userID)
}

// List returns users with pagination metadata.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]User, shared.Pagination, error) {
	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return list, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// UpdateRole assigns a new role to the user and invalidates the cached
// subject. The role must exist in the hierarchy.
func (s *Service) UpdateRole(ctx context.Context, userID, role string) error {
	if _, ok := s.tables.HierarchyLevel(authz.RoleName(role)); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	if err := s.repo.UpdateRole(ctx, userID, role); err != nil {
		return err
	}
	s.Invalidate(ctx, userID)
	return nil
}

// ReplaceGrants swaps the user's explicit grants. Grant strings are parsed
// up front so malformed entries never reach storage.
func (s *Service) ReplaceGrants(ctx context.Context, userID string, grants []string) error {
	if _, err := authz.ParseGrants(grants); err != nil {
		return err
	}
	if err := s.repo.ReplaceGrants(ctx, userID, grants); err != nil {
		return err
	}
	s.Invalidate(ctx, userID)
	return nil
}
