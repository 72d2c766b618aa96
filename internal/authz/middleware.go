package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carmen-erp/carmen-erp/internal/platform/httpx"
)

// Middleware wires authorization checks into HTTP handlers.
type Middleware struct {
	Engine *Engine
	Logger *slog.Logger
}

// Require guards a route with an authorization check. The resource ID is
// taken from the chi "id" URL parameter when present. A deny becomes a 403
// JSON body carrying the missing permission; a missing user becomes a 401.
func (m Middleware) Require(action Action, resource Resource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				httpx.JSON(w, http.StatusUnauthorized, map[string]any{
					"success": false,
					"error":   "Authentication required",
				})
				return
			}
			result := m.Engine.Authorize(r.Context(), Request{
				User:       user,
				Action:     action,
				Resource:   resource,
				ResourceID: chi.URLParam(r, "id"),
			})
			if !result.Allowed {
				if m.Logger != nil {
					m.Logger.Warn("authorization denied",
						slog.String("user", user.ID),
						slog.String("action", string(action)),
						slog.String("resource", string(resource)),
						slog.String("reason", result.Reason))
				}
				httpx.JSON(w, http.StatusForbidden, map[string]any{
					"success": false,
					"error":   "Insufficient permissions",
					"details": map[string]any{
						"required": result.RequiredPermissions,
						"reason":   result.Reason,
					},
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
