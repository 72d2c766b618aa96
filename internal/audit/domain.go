package audit

import (
	"time"
)

// EventType classifies a security event.
type EventType string

// Security event taxonomy.
const (
	// Authentication events.
	EventAuthSuccess     EventType = "auth_success"
	EventAuthFailed      EventType = "auth_failed"
	EventAuthError       EventType = "auth_error"
	EventPasswordChanged EventType = "password_changed"
	EventAccountLocked   EventType = "account_locked"
	EventAccountUnlocked EventType = "account_unlocked"

	// Authorization events.
	EventAuthorizationAttempted      EventType = "authorization_attempted"
	EventAuthorizationGranted        EventType = "authorization_granted"
	EventAuthorizationDenied         EventType = "authorization_denied"
	EventAuthorizationError          EventType = "authorization_error"
	EventPermissionEscalationAttempt EventType = "permission_escalation_attempt"

	// Security violations.
	EventSecurityViolation  EventType = "security_violation"
	EventRateLimitExceeded  EventType = "rate_limit_exceeded"
	EventSuspiciousActivity EventType = "suspicious_activity"
	EventBruteForceAttempt  EventType = "brute_force_attempt"

	// Data access events.
	EventSensitiveDataAccess EventType = "sensitive_data_access"
	EventDataExport          EventType = "data_export"
	EventDataModification    EventType = "data_modification"
	EventDataDeletion        EventType = "data_deletion"
	EventBulkOperation       EventType = "bulk_operation"

	// System events.
	EventSystemError          EventType = "system_error"
	EventConfigurationChanged EventType = "configuration_changed"
	EventRetentionApplied     EventType = "data_retention_policy_applied"
)

// Severity buckets events for alerting and retention.
type Severity string

// Severity levels.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Entry is a persisted security audit record.
type Entry struct {
	ID        string
	EventType EventType
	UserID    string
	Severity  Severity
	RiskScore int
	Details   map[string]any
	At        time.Time
}

// Filter narrows List queries.
type Filter struct {
	UserID    string
	EventType EventType
	Severity  Severity
	From      time.Time
	To        time.Time
	Page      int
	PerPage   int
}

var criticalEvents = map[EventType]struct{}{
	EventPermissionEscalationAttempt: {},
	EventBruteForceAttempt:           {},
	EventAccountLocked:               {},
}

var highEvents = map[EventType]struct{}{
	EventAuthFailed:           {},
	EventAuthorizationDenied:  {},
	EventSecurityViolation:    {},
	EventSuspiciousActivity:   {},
	EventSensitiveDataAccess:  {},
	EventDataDeletion:         {},
	EventConfigurationChanged: {},
}

var mediumEvents = map[EventType]struct{}{
	EventAuthError:          {},
	EventAuthorizationError: {},
	EventRateLimitExceeded:  {},
	EventDataModification:   {},
	EventBulkOperation:      {},
	EventSystemError:        {},
}

// SeverityFor classifies an event type.
func SeverityFor(eventType EventType) Severity {
	if _, ok := criticalEvents[eventType]; ok {
		return SeverityCritical
	}
	if _, ok := highEvents[eventType]; ok {
		return SeverityHigh
	}
	if _, ok := mediumEvents[eventType]; ok {
		return SeverityMedium
	}
	return SeverityLow
}

var baseRiskScores = map[EventType]int{
	EventPermissionEscalationAttempt: 95,
	EventBruteForceAttempt:           90,
	EventAccountLocked:               80,
	EventSecurityViolation:           70,
	EventSuspiciousActivity:          65,
	EventAuthFailed:                  60,
	EventAuthorizationDenied:         50,
	EventDataDeletion:                45,
	EventRateLimitExceeded:           40,
	EventSensitiveDataAccess:         35,
	EventAuthorizationError:          30,
	EventDataExport:                  25,
	EventAuthSuccess:                 10,
}

// RiskScore computes a 0-100 risk score for an event. Events raised outside
// working hours score slightly higher.
func RiskScore(eventType EventType, at time.Time) int {
	score := baseRiskScores[eventType]
	if hour := at.Hour(); hour < 6 || hour >= 22 {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

// RetentionDays returns how long entries of a severity are kept.
func RetentionDays(severity Severity) int {
	switch severity {
	case SeverityCritical:
		return 365
	case SeverityHigh:
		return 180
	case SeverityMedium:
		return 90
	default:
		return 30
	}
}
