package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/carmen-erp/carmen-erp/internal/authz"
	"github.com/carmen-erp/carmen-erp/internal/shared"
	"github.com/carmen-erp/carmen-erp/internal/users"
)

// SubjectResolver turns a user ID into an authorization subject.
type SubjectResolver interface {
	AuthzUser(ctx context.Context, userID string) (authz.User, error)
}

// CurrentUser resolves the session user into an authz.User and stores it in
// the request context. Requests without a session pass through untouched;
// route guards decide whether anonymous access is acceptable.
func CurrentUser(resolver SubjectResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.User() == "" {
				next.ServeHTTP(w, r)
				return
			}
			subject, err := resolver.AuthzUser(r.Context(), sess.User())
			if err != nil {
				if !errors.Is(err, users.ErrNotFound) && logger != nil {
					logger.Error("resolve session user", slog.Any("error", err))
				}
				next.ServeHTTP(w, r)
				return
			}
			ctx := authz.ContextWithUser(r.Context(), subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
