package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/carmen-erp/carmen-erp/internal/audit"
	"github.com/carmen-erp/carmen-erp/internal/auth"
	"github.com/carmen-erp/carmen-erp/internal/observability"
	"github.com/carmen-erp/carmen-erp/internal/procurement"
	"github.com/carmen-erp/carmen-erp/internal/recipes"
	"github.com/carmen-erp/carmen-erp/internal/shared"
	"github.com/carmen-erp/carmen-erp/internal/users"
	"github.com/carmen-erp/carmen-erp/internal/vendors"
	"github.com/carmen-erp/carmen-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Resolver       auth.SubjectResolver

	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	ProcurementHandler *procurement.Handler
	VendorsHandler     *vendors.Handler
	RecipesHandler     *recipes.Handler
	AuditHandler       *audit.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Carmen defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)
	if params.Resolver != nil {
		r.Use(auth.CurrentUser(params.Resolver, params.Logger))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.ProcurementHandler != nil {
		r.Route("/procurement", params.ProcurementHandler.MountRoutes)
	}
	if params.VendorsHandler != nil {
		r.Route("/vendors", params.VendorsHandler.MountRoutes)
	}
	if params.RecipesHandler != nil {
		r.Route("/recipes", params.RecipesHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
