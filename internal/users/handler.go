package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carmen-erp/carmen-erp/internal/authz"
	"github.com/carmen-erp/carmen-erp/internal/platform/httpx"
	"github.com/carmen-erp/carmen-erp/internal/shared"
)

// Handler exposes user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	engine    *authz.Engine
	mw        authz.Middleware
	validator *validator.Validate
}

// NewHandler builds the users handler.
func NewHandler(logger *slog.Logger, service *Service, engine *authz.Engine, mw authz.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		engine:    engine,
		mw:        mw,
		validator: validator.New(),
	}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/me/permissions", h.myPermissions)
	r.Get("/{id}", h.get)
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(authz.ActionManageUsers, authz.ResourceUsers))
		r.Put("/{id}/role", h.updateRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(authz.ActionManagePermissions, authz.ResourcePermissions))
		r.Put("/{id}/permissions", h.replaceGrants)
	})
}

type userView struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department"`
	Location   string `json:"location"`
	IsActive   bool   `json:"is_active"`
}

func toView(u User) userView {
	return userView{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       u.Role,
		Department: u.Department,
		Location:   u.Location,
		IsActive:   u.IsActive,
	}
}

// list authorizes directly so the decision's conditions can scope the
// query: department managers only see their own department.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	user, ok := authz.UserFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}
	result := h.engine.Authorize(r.Context(), authz.Request{
		User:     user,
		Action:   authz.ActionRead,
		Resource: authz.ResourceUsers,
	})
	if !result.Allowed {
		httpx.Fail(w, http.StatusForbidden, "Insufficient permissions", map[string]any{
			"required": result.RequiredPermissions,
			"reason":   result.Reason,
		})
		return
	}

	page, perPage := shared.PageParams(r)
	filter := ListFilter{
		Department: r.URL.Query().Get("department"),
		Role:       r.URL.Query().Get("role"),
		Page:       page,
		PerPage:    perPage,
	}
	for _, cond := range result.Conditions {
		if cond == authz.ConditionDepartmentOnly {
			filter.Department = user.Department
		}
	}

	list, pagination, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]userView, 0, len(list))
	for _, u := range list {
		views = append(views, toView(u))
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"users":      views,
		"pagination": pagination,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	user, ok := authz.UserFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}
	id := chi.URLParam(r, "id")
	result := h.engine.Authorize(r.Context(), authz.Request{
		User:       user,
		Action:     authz.ActionRead,
		Resource:   authz.ResourceUsers,
		ResourceID: id,
	})
	if !result.Allowed {
		httpx.Fail(w, http.StatusForbidden, "Insufficient permissions", map[string]any{
			"required": result.RequiredPermissions,
			"reason":   result.Reason,
		})
		return
	}

	record, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("get user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	for _, cond := range result.Conditions {
		if cond == authz.ConditionDepartmentOnly && record.Department != user.Department {
			httpx.Fail(w, http.StatusForbidden, "Insufficient permissions", map[string]any{
				"reason": "Resource belongs to another department",
			})
			return
		}
	}
	httpx.OK(w, http.StatusOK, toView(record))
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	user, ok := authz.UserFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"role":        user.Role,
		"permissions": h.engine.EffectivePermissions(user),
	})
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	var req updateRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.UpdateRole(r.Context(), id, req.Role); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			httpx.RespondError(w, httpx.ErrNotFound)
		case errors.Is(err, ErrUnknownRole):
			httpx.Fail(w, http.StatusBadRequest, "Unknown role", err.Error())
		default:
			h.logger.Error("update role", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"id": id, "role": req.Role})
}

type replaceGrantsRequest struct {
	Permissions []string `json:"permissions" validate:"required"`
}

func (h *Handler) replaceGrants(w http.ResponseWriter, r *http.Request) {
	var req replaceGrantsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.ReplaceGrants(r.Context(), id, req.Permissions); err != nil {
		switch {
		case errors.Is(err, authz.ErrInvalidGrant):
			httpx.Fail(w, http.StatusBadRequest, "Invalid permission grant", err.Error())
		case errors.Is(err, ErrNotFound):
			httpx.RespondError(w, httpx.ErrNotFound)
		default:
			h.logger.Error("replace grants", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"id": id, "permissions": req.Permissions})
}
