package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carmen-erp/carmen-erp/internal/shared"
)

// Repository persists audit entries.
type Repository interface {
	Insert(ctx context.Context, entry Entry) error
	List(ctx context.Context, filter Filter) ([]Entry, int, error)
	DeleteBefore(ctx context.Context, severity Severity, cutoff time.Time) (int64, error)
}

// Service records and queries security audit events. It implements
// authz.AuditSink.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the audit service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// LogEvent classifies, scores and persists a security event. The entry is
// mirrored to the structured log at a level matching its severity.
func (s *Service) LogEvent(ctx context.Context, eventType, userID string, details map[string]any) error {
	if eventType == "" {
		return errors.New("audit: event type required")
	}
	at := s.now().UTC()
	entry := Entry{
		ID:        uuid.NewString(),
		EventType: EventType(eventType),
		UserID:    userID,
		Severity:  SeverityFor(EventType(eventType)),
		RiskScore: RiskScore(EventType(eventType), at),
		Details:   details,
		At:        at,
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}

	attrs := []any{
		slog.String("event", string(entry.EventType)),
		slog.String("user", entry.UserID),
		slog.String("severity", string(entry.Severity)),
		slog.Int("risk_score", entry.RiskScore),
	}
	switch entry.Severity {
	case SeverityCritical:
		s.logger.Error("security event", attrs...)
	case SeverityHigh:
		s.logger.Warn("security event", attrs...)
	default:
		s.logger.Info("security event", attrs...)
	}
	return nil
}

// List returns entries matching the filter plus pagination metadata.
func (s *Service) List(ctx context.Context, filter Filter) ([]Entry, shared.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return entries, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// HighRiskThreshold is the minimum risk score that makes an event
// alertable.
const HighRiskThreshold = 70

// HighRiskEvents returns entries since the cutoff whose risk score reaches
// the threshold, newest first.
func (s *Service) HighRiskEvents(ctx context.Context, since time.Time, minScore int) ([]Entry, error) {
	entries, _, err := s.repo.List(ctx, Filter{From: since, PerPage: 100})
	if err != nil {
		return nil, fmt.Errorf("audit: high risk events: %w", err)
	}
	var alertable []Entry
	for _, e := range entries {
		if e.RiskScore >= minScore {
			alertable = append(alertable, e)
		}
	}
	return alertable, nil
}

// Prune applies the per-severity retention policy and records the sweep as
// an audit event of its own.
func (s *Service) Prune(ctx context.Context) (int64, error) {
	var removed int64
	for _, severity := range []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		cutoff := s.now().UTC().AddDate(0, 0, -RetentionDays(severity))
		n, err := s.repo.DeleteBefore(ctx, severity, cutoff)
		if err != nil {
			return removed, fmt.Errorf("audit: prune %s: %w", severity, err)
		}
		removed += n
	}
	if removed > 0 {
		_ = s.LogEvent(ctx, string(EventRetentionApplied), "system", map[string]any{
			"removed": removed,
		})
	}
	return removed, nil
}

// PGRepository stores audit entries in the security_audit_logs table.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs the postgres-backed repository.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert writes one entry.
func (r *PGRepository) Insert(ctx context.Context, entry Entry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO security_audit_logs (id, event_type, user_id, severity, risk_score, details, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.EventType, entry.UserID, entry.Severity, entry.RiskScore, details, entry.At)
	return err
}

// List fetches entries matching the filter, newest first.
func (r *PGRepository) List(ctx context.Context, filter Filter) ([]Entry, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.UserID != "" {
		where += " AND user_id = " + arg(filter.UserID)
	}
	if filter.EventType != "" {
		where += " AND event_type = " + arg(filter.EventType)
	}
	if filter.Severity != "" {
		where += " AND severity = " + arg(filter.Severity)
	}
	if !filter.From.IsZero() {
		where += " AND occurred_at >= " + arg(filter.From)
	}
	if !filter.To.IsZero() {
		where += " AND occurred_at < " + arg(filter.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM security_audit_logs"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query := "SELECT id, event_type, user_id, severity, risk_score, details, occurred_at FROM security_audit_logs" +
		where + " ORDER BY occurred_at DESC LIMIT " + arg(perPage) + " OFFSET " + arg((page-1)*perPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var details []byte
		if err := rows.Scan(&e.ID, &e.EventType, &e.UserID, &e.Severity, &e.RiskScore, &details, &e.At); err != nil {
			return nil, 0, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &e.Details); err != nil {
				return nil, 0, err
			}
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// DeleteBefore removes entries of a severity older than the cutoff.
func (r *PGRepository) DeleteBefore(ctx context.Context, severity Severity, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM security_audit_logs WHERE severity = $1 AND occurred_at < $2`,
		severity, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
