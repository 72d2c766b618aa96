package jobs

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/carmen-erp/carmen-erp/internal/audit"
)

type fakePruner struct {
	removed int64
	err     error
	calls   int
}

func (p *fakePruner) Prune(context.Context) (int64, error) {
	p.calls++
	return p.removed, p.err
}

type fakeSweeper struct {
	marked, expired int
	err             error
}

func (s *fakeSweeper) ExpireDuePrices(context.Context) (int, int, error) {
	return s.marked, s.expired, s.err
}

type fakeCleaner struct {
	olderThan time.Duration
	err       error
}

func (c *fakeCleaner) Cleanup(_ context.Context, olderThan time.Duration) error {
	c.olderThan = olderThan
	return c.err
}

func TestHandleAuditRetention(t *testing.T) {
	pruner := &fakePruner{removed: 12}
	handler := HandleAuditRetention(pruner, slog.Default(), nil)

	require.NoError(t, handler(context.Background(), NewAuditRetentionTask()))
	require.Equal(t, 1, pruner.calls)

	pruner.err = errors.New("db down")
	require.Error(t, handler(context.Background(), NewAuditRetentionTask()))
}

func TestHandlePriceLifecycle(t *testing.T) {
	handler := HandlePriceLifecycle(&fakeSweeper{marked: 3, expired: 1}, slog.Default(), nil)
	require.NoError(t, handler(context.Background(), NewPriceLifecycleTask()))

	handler = HandlePriceLifecycle(&fakeSweeper{err: errors.New("db down")}, slog.Default(), nil)
	require.Error(t, handler(context.Background(), NewPriceLifecycleTask()))
}

func TestHandleIdempotencyCleanupUsesRetentionWindow(t *testing.T) {
	cleaner := &fakeCleaner{}
	handler := HandleIdempotencyCleanup(cleaner, slog.Default(), nil)

	require.NoError(t, handler(context.Background(), NewIdempotencyCleanupTask()))
	require.Equal(t, IdempotencyRetention, cleaner.olderThan)
}

type fakeAlertSource struct {
	since    time.Time
	minScore int
	events   []audit.Entry
	err      error
}

func (s *fakeAlertSource) HighRiskEvents(_ context.Context, since time.Time, minScore int) ([]audit.Entry, error) {
	s.since = since
	s.minScore = minScore
	return s.events, s.err
}

func TestHandleSecurityAlerts(t *testing.T) {
	source := &fakeAlertSource{events: []audit.Entry{
		{EventType: audit.EventBruteForceAttempt, UserID: "u1", Severity: audit.SeverityCritical, RiskScore: 90},
	}}
	handler := HandleSecurityAlerts(source, slog.Default(), nil)

	require.NoError(t, handler(context.Background(), NewSecurityAlertsTask()))
	require.Equal(t, audit.HighRiskThreshold, source.minScore)
	require.WithinDuration(t, time.Now().Add(-AlertWindow), source.since, time.Minute)

	source.err = errors.New("db down")
	require.Error(t, handler(context.Background(), NewSecurityAlertsTask()))
}

func TestTaskTypes(t *testing.T) {
	require.Equal(t, TaskAuditRetention, NewAuditRetentionTask().Type())
	require.Equal(t, TaskPriceLifecycle, NewPriceLifecycleTask().Type())
	require.Equal(t, TaskIdempotencyCleanup, NewIdempotencyCleanupTask().Type())
	require.Equal(t, TaskSecurityAlerts, NewSecurityAlertsTask().Type())
}
