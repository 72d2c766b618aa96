package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/carmen-erp/carmen-erp/internal/authz"
)

type fakeRepo struct {
	entries []Entry
	deletes map[Severity]time.Time
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{deletes: make(map[Severity]time.Time)}
}

func (r *fakeRepo) Insert(_ context.Context, entry Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeRepo) List(_ context.Context, filter Filter) ([]Entry, int, error) {
	var out []Entry
	for _, e := range r.entries {
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		if filter.Severity != "" && e.Severity != filter.Severity {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (r *fakeRepo) DeleteBefore(_ context.Context, severity Severity, cutoff time.Time) (int64, error) {
	r.deletes[severity] = cutoff
	var removed int64
	kept := r.entries[:0]
	for _, e := range r.entries {
		if e.Severity == severity && e.At.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return removed, nil
}

func newTestService(repo *fakeRepo, now time.Time) *Service {
	svc := NewService(repo, slog.Default())
	svc.now = func() time.Time { return now }
	return svc
}

func TestSeverityClassification(t *testing.T) {
	cases := []struct {
		event EventType
		want  Severity
	}{
		{EventPermissionEscalationAttempt, SeverityCritical},
		{EventBruteForceAttempt, SeverityCritical},
		{EventAccountLocked, SeverityCritical},
		{EventAuthFailed, SeverityHigh},
		{EventAuthorizationDenied, SeverityHigh},
		{EventDataDeletion, SeverityHigh},
		{EventAuthorizationError, SeverityMedium},
		{EventDataModification, SeverityMedium},
		{EventAuthSuccess, SeverityLow},
		{EventAuthorizationGranted, SeverityLow},
		{EventType("something_new"), SeverityLow},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, SeverityFor(tc.event), string(tc.event))
	}
}

func TestRiskScoreOffHoursBoost(t *testing.T) {
	noon := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	night := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)

	require.Equal(t, 60, RiskScore(EventAuthFailed, noon))
	require.Equal(t, 70, RiskScore(EventAuthFailed, night))

	// the boost never pushes the score past 100
	require.Equal(t, 95, RiskScore(EventPermissionEscalationAttempt, noon))
	require.Equal(t, 100, RiskScore(EventPermissionEscalationAttempt, night))

	// unknown events score only the off-hours component
	require.Equal(t, 0, RiskScore(EventType("something_new"), noon))
	require.Equal(t, 10, RiskScore(EventType("something_new"), night))
}

func TestRetentionDays(t *testing.T) {
	require.Equal(t, 365, RetentionDays(SeverityCritical))
	require.Equal(t, 180, RetentionDays(SeverityHigh))
	require.Equal(t, 90, RetentionDays(SeverityMedium))
	require.Equal(t, 30, RetentionDays(SeverityLow))
}

func TestLogEventPersistsClassifiedEntry(t *testing.T) {
	repo := newFakeRepo()
	at := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	svc := newTestService(repo, at)

	err := svc.LogEvent(context.Background(), "authorization_denied", "u1", map[string]any{
		"resource": "vendors",
	})
	require.NoError(t, err)
	require.Len(t, repo.entries, 1)

	entry := repo.entries[0]
	require.NotEmpty(t, entry.ID)
	require.Equal(t, EventAuthorizationDenied, entry.EventType)
	require.Equal(t, "u1", entry.UserID)
	require.Equal(t, SeverityHigh, entry.Severity)
	require.Equal(t, 60, entry.RiskScore)
	require.Equal(t, at, entry.At)

	require.Error(t, svc.LogEvent(context.Background(), "", "u1", nil))
}

func TestServiceIsAnAuditSink(t *testing.T) {
	var _ authz.AuditSink = NewService(newFakeRepo(), nil)
}

func TestPruneAppliesPerSeverityRetention(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(repo, now)

	stale := func(days int) time.Time { return now.AddDate(0, 0, -days) }
	repo.entries = []Entry{
		{ID: "a", Severity: SeverityLow, At: stale(31)},       // past 30d
		{ID: "b", Severity: SeverityLow, At: stale(10)},       // kept
		{ID: "c", Severity: SeverityMedium, At: stale(91)},    // past 90d
		{ID: "d", Severity: SeverityHigh, At: stale(181)},     // past 180d
		{ID: "e", Severity: SeverityCritical, At: stale(200)}, // kept, 365d policy
	}

	removed, err := svc.Prune(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), removed)

	require.Equal(t, stale(30), repo.deletes[SeverityLow])
	require.Equal(t, stale(365), repo.deletes[SeverityCritical])

	// the sweep itself is recorded
	var found bool
	for _, e := range repo.entries {
		if e.EventType == EventRetentionApplied {
			found = true
			require.Equal(t, "system", e.UserID)
			require.Equal(t, int64(3), e.Details["removed"])
		}
	}
	require.True(t, found)
}

func TestHighRiskEvents(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, time.Now())
	repo.entries = []Entry{
		{ID: "a", EventType: EventBruteForceAttempt, RiskScore: 90},
		{ID: "b", EventType: EventAuthSuccess, RiskScore: 10},
		{ID: "c", EventType: EventSecurityViolation, RiskScore: 70},
	}

	events, err := svc.HighRiskEvents(context.Background(), time.Now().Add(-time.Hour), HighRiskThreshold)
	require.NoError(t, err)
	require.Len(t, events, 2)
	for _, e := range events {
		require.GreaterOrEqual(t, e.RiskScore, HighRiskThreshold)
	}
}

func TestListFiltersAndPaginates(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, time.Now())
	repo.entries = []Entry{
		{ID: "a", UserID: "u1", Severity: SeverityHigh},
		{ID: "b", UserID: "u2", Severity: SeverityLow},
		{ID: "c", UserID: "u1", Severity: SeverityLow},
	}

	entries, page, err := svc.List(context.Background(), Filter{UserID: "u1", Page: 1, PerPage: 20})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, 2, page.Total)
	require.Equal(t, 1, page.Page)
}
