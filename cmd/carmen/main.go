package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/carmen-erp/carmen-erp/internal/app"
	"github.com/carmen-erp/carmen-erp/internal/audit"
	"github.com/carmen-erp/carmen-erp/internal/auth"
	"github.com/carmen-erp/carmen-erp/internal/authz"
	"github.com/carmen-erp/carmen-erp/internal/observability"
	"github.com/carmen-erp/carmen-erp/internal/platform/cache"
	"github.com/carmen-erp/carmen-erp/internal/platform/db"
	"github.com/carmen-erp/carmen-erp/internal/procurement"
	"github.com/carmen-erp/carmen-erp/internal/recipes"
	"github.com/carmen-erp/carmen-erp/internal/shared"
	"github.com/carmen-erp/carmen-erp/internal/users"
	"github.com/carmen-erp/carmen-erp/internal/vendors"
	"github.com/carmen-erp/carmen-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "carmen_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	auditService := audit.NewService(audit.NewPGRepository(dbpool), logger)

	tables := authz.DefaultTables()
	procurementRepo := procurement.NewRepository(dbpool)
	lookups := authz.LookupMux{
		authz.ResourcePurchaseRequests: procurement.NewLookup(procurementRepo),
		authz.ResourcePurchaseOrders:   procurement.NewLookup(procurementRepo),
	}
	evaluator := authz.EnforcingEvaluator{
		Lookup: lookups,
		ApprovalLimits: map[authz.RoleName]float64{
			authz.RoleDepartmentManager: cfg.ApprovalLimitDeptManager,
		},
	}
	metrics := observability.NewMetrics()
	engine := authz.NewEngine(tables, evaluator, auditService, logger).
		WithDecisionObserver(metrics.ObserveAuthzDecision)
	mw := authz.Middleware{Engine: engine, Logger: logger}

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, tables, redisClient, cfg.AuthzCacheTTL, logger)
	usersHandler := users.NewHandler(logger, usersService, engine, mw)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, auditService)

	procurementService := procurement.NewService(procurementRepo, auditService, idempotencyStore)
	procurementHandler := procurement.NewHandler(logger, procurementService, engine, mw)

	vendorsRepo := vendors.NewRepository(dbpool)
	vendorsService := vendors.NewService(vendorsRepo, auditService, logger)
	vendorsHandler := vendors.NewHandler(logger, vendorsService, mw)

	recipesRepo := recipes.NewRepository(dbpool)
	recipesService := recipes.NewService(recipesRepo, vendorsService, logger)
	recipesHandler := recipes.NewHandler(logger, recipesService, mw)

	auditHandler := audit.NewHandler(logger, auditService, mw)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger, mw)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		Resolver:           usersService,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		ProcurementHandler: procurementHandler,
		VendorsHandler:     vendorsHandler,
		RecipesHandler:     recipesHandler,
		AuditHandler:       auditHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
