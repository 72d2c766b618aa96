package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/carmen-erp/carmen-erp/internal/audit"
	jobmetrics "github.com/carmen-erp/carmen-erp/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditRetention prunes expired security audit log entries.
	TaskAuditRetention = "audit:retention"
	// TaskPriceLifecycle sweeps vendor prices through their lifecycle.
	TaskPriceLifecycle = "prices:lifecycle"
	// TaskIdempotencyCleanup removes stale idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
	// TaskSecurityAlerts surfaces recent high-risk security events.
	TaskSecurityAlerts = "audit:alerts"
)

// NewAuditRetentionTask builds the scheduled audit retention task.
func NewAuditRetentionTask() *asynq.Task {
	return asynq.NewTask(TaskAuditRetention, nil, asynq.Queue(QueueDefault))
}

// NewPriceLifecycleTask builds the scheduled price lifecycle sweep task.
func NewPriceLifecycleTask() *asynq.Task {
	return asynq.NewTask(TaskPriceLifecycle, nil, asynq.Queue(QueueDefault))
}

// NewIdempotencyCleanupTask builds the idempotency key cleanup task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskIdempotencyCleanup, nil, asynq.Queue(QueueDefault))
}

// NewSecurityAlertsTask builds the scheduled security alert scan task.
func NewSecurityAlertsTask() *asynq.Task {
	return asynq.NewTask(TaskSecurityAlerts, nil, asynq.Queue(QueueDefault))
}

// AuditPruner prunes audit entries past their retention period.
type AuditPruner interface {
	Prune(ctx context.Context) (int64, error)
}

// HandleAuditRetention returns the handler applying audit retention.
func HandleAuditRetention(pruner AuditPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := metrics.Track(TaskAuditRetention)
		removed, err := pruner.Prune(ctx)
		if err != nil {
			logger.Error("audit retention", slog.Any("error", err))
			return tracker.End(err)
		}
		if removed > 0 {
			logger.Info("audit retention applied", slog.Int64("removed", removed))
		}
		return tracker.End(nil)
	}
}

// PriceSweeper runs one price lifecycle sweep.
type PriceSweeper interface {
	ExpireDuePrices(ctx context.Context) (marked, expired int, err error)
}

// HandlePriceLifecycle returns the handler sweeping vendor price states.
func HandlePriceLifecycle(sweeper PriceSweeper, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := metrics.Track(TaskPriceLifecycle)
		marked, expired, err := sweeper.ExpireDuePrices(ctx)
		if err != nil {
			logger.Error("price lifecycle sweep", slog.Any("error", err))
			return tracker.End(err)
		}
		logger.Info("price lifecycle sweep done",
			slog.Int("marked_expiring", marked),
			slog.Int("expired", expired))
		return tracker.End(nil)
	}
}

// AlertWindow is how far back the security alert scan looks.
const AlertWindow = 15 * time.Minute

// AlertSource lists recent high-risk security events.
type AlertSource interface {
	HighRiskEvents(ctx context.Context, since time.Time, minScore int) ([]audit.Entry, error)
}

// HandleSecurityAlerts returns the handler surfacing high-risk events.
// Alerts are logged only; delivery channels are out of scope.
func HandleSecurityAlerts(source AlertSource, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := metrics.Track(TaskSecurityAlerts)
		events, err := source.HighRiskEvents(ctx, time.Now().Add(-AlertWindow), audit.HighRiskThreshold)
		if err != nil {
			logger.Error("security alert scan", slog.Any("error", err))
			return tracker.End(err)
		}
		for _, e := range events {
			logger.Warn("security alert",
				slog.String("event", string(e.EventType)),
				slog.String("user", e.UserID),
				slog.String("severity", string(e.Severity)),
				slog.Int("risk_score", e.RiskScore))
		}
		return tracker.End(nil)
	}
}

// IdempotencyCleaner removes idempotency keys older than the retention
// window.
type IdempotencyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyRetention is how long processed idempotency keys are kept.
const IdempotencyRetention = 48 * time.Hour

// HandleIdempotencyCleanup returns the handler removing stale keys.
func HandleIdempotencyCleanup(cleaner IdempotencyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		tracker := metrics.Track(TaskIdempotencyCleanup)
		if err := cleaner.Cleanup(ctx, IdempotencyRetention); err != nil {
			logger.Error("idempotency cleanup", slog.Any("error", err))
			return tracker.End(err)
		}
		return tracker.End(nil)
	}
}
