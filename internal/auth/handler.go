package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carmen-erp/carmen-erp/internal/audit"
	"github.com/carmen-erp/carmen-erp/internal/platform/httpx"
	"github.com/carmen-erp/carmen-erp/internal/shared"
)

// Auditor records security events raised by the auth endpoints.
type Auditor interface {
	LogEvent(ctx context.Context, eventType, userID string, details map[string]any) error
}

// Handler exposes login and logout endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	sessions  *shared.SessionManager
	auditor   Auditor
	validator *validator.Validate
}

// NewHandler builds the auth handler.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, auditor Auditor) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		sessions:  sessions,
		auditor:   auditor,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Post("/logout", h.logout)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	account, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			h.logAudit(r, string(audit.EventAuthFailed), "", map[string]any{"email": req.Email})
			httpx.Fail(w, http.StatusUnauthorized, "Invalid credentials", nil)
			return
		}
		h.logger.Error("authenticate", slog.Any("error", err))
		h.logAudit(r, string(audit.EventAuthError), "", map[string]any{"error": err.Error()})
		httpx.RespondError(w, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, errors.New("session unavailable"))
		return
	}
	if err := h.sessions.Rotate(r.Context(), sess); err != nil {
		h.logger.Warn("rotate session", slog.Any("error", err))
	}
	sess.SetUser(account.ID)
	if err := h.service.RegisterSession(r.Context(), sess.ID, account.ID,
		time.Now().Add(h.sessions.TTL()), r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	h.logAudit(r, string(audit.EventAuthSuccess), account.ID, map[string]any{"email": account.Email})
	httpx.OK(w, http.StatusOK, map[string]any{
		"id":         account.ID,
		"name":       account.Name,
		"role":       account.Role,
		"department": account.Department,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Fail(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}
	if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
		h.logger.Warn("remove session", slog.Any("error", err))
	}
	h.sessions.Destroy(sess)
	httpx.OK(w, http.StatusOK, map[string]any{"logged_out": true})
}

func (h *Handler) logAudit(r *http.Request, eventType, userID string, details map[string]any) {
	if h.auditor == nil {
		return
	}
	if details == nil {
		details = map[string]any{}
	}
	details["ip"] = r.RemoteAddr
	if err := h.auditor.LogEvent(r.Context(), eventType, userID, details); err != nil {
		h.logger.Warn("audit log", slog.Any("error", err))
	}
}
