package authz

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newGuardedRouter(t *testing.T) chi.Router {
	t.Helper()
	mw := Middleware{Engine: NewEngine(nil, nil, nil, nil)}

	r := chi.NewRouter()
	r.With(mw.Require(ActionRead, ResourceProducts)).
		Get("/products", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	r.With(mw.Require(ActionManageVendors, ResourceVendors)).
		Post("/vendors", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})
	return r
}

func TestMiddlewareRequiresAuthentication(t *testing.T) {
	r := newGuardedRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])
	require.Equal(t, "Authentication required", body["error"])
}

func TestMiddlewareAllowsGrantedUser(t *testing.T) {
	r := newGuardedRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	req = req.WithContext(ContextWithUser(req.Context(), User{ID: "u1", Role: RoleStaff}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareDeniesWithRequiredPermission(t *testing.T) {
	r := newGuardedRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/vendors", nil)
	req = req.WithContext(ContextWithUser(req.Context(), User{ID: "u1", Role: RoleStaff}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)

	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Details struct {
			Required []string `json:"required"`
			Reason   string   `json:"reason"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.Equal(t, "Insufficient permissions", body.Error)
	require.Equal(t, []string{"manage_vendors:vendors"}, body.Details.Required)
	require.Equal(t, "Insufficient permissions for manage_vendors on vendors", body.Details.Reason)
}
