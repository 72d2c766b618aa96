package audit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carmen-erp/carmen-erp/internal/authz"
	"github.com/carmen-erp/carmen-erp/internal/platform/httpx"
	"github.com/carmen-erp/carmen-erp/internal/shared"
)

// Handler exposes the audit log query API.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      authz.Middleware
}

// NewHandler builds the audit handler.
func NewHandler(logger *slog.Logger, service *Service, mw authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.mw.Require(authz.ActionViewAuditLogs, authz.ResourceAuditLogs))
	r.Get("/", h.list)
}

type entryView struct {
	ID        string         `json:"id"`
	EventType string         `json:"event_type"`
	UserID    string         `json:"user_id"`
	Severity  string         `json:"severity"`
	RiskScore int            `json:"risk_score"`
	Details   map[string]any `json:"details,omitempty"`
	At        time.Time      `json:"at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r)
	filter := Filter{
		UserID:    r.URL.Query().Get("user_id"),
		EventType: EventType(r.URL.Query().Get("event_type")),
		Severity:  Severity(r.URL.Query().Get("severity")),
		Page:      page,
		PerPage:   perPage,
	}
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "Invalid from timestamp", nil)
			return
		}
		filter.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "Invalid to timestamp", nil)
			return
		}
		filter.To = t
	}

	entries, pagination, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list audit entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, entryView{
			ID:        e.ID,
			EventType: string(e.EventType),
			UserID:    e.UserID,
			Severity:  string(e.Severity),
			RiskScore: e.RiskScore,
			Details:   e.Details,
			At:        e.At,
		})
	}
	httpx.OK(w, http.StatusOK, map[string]any{
		"entries":    views,
		"pagination": pagination,
	})
}
