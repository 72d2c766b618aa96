package authz

import (
	"context"
	"fmt"
	"log/slog"
)

// Audit event names emitted by the engine.
const (
	EventAuthorizationAttempted = "authorization_attempted"
	EventAuthorizationGranted   = "authorization_granted"
	EventAuthorizationDenied    = "authorization_denied"
	EventAuthorizationError     = "authorization_error"
)

// AuditSink records authorization events. A failing sink turns the decision
// into a fail-closed system-error denial.
type AuditSink interface {
	LogEvent(ctx context.Context, eventType, userID string, details map[string]any) error
}

type nopSink struct{}

func (nopSink) LogEvent(context.Context, string, string, map[string]any) error { return nil }

// Engine evaluates authorization requests against immutable role tables,
// a condition evaluator and a hierarchical fallback rule set.
type Engine struct {
	tables     *Tables
	conditions ConditionEvaluator
	fallback   []FallbackRule
	audit      AuditSink
	logger     *slog.Logger
	observe    func(allowed bool)
}

// NewEngine constructs an Engine. Nil collaborators fall back to the
// label-only evaluator, the default fallback rules and a no-op audit sink.
func NewEngine(tables *Tables, conditions ConditionEvaluator, audit AuditSink, logger *slog.Logger) *Engine {
	if tables == nil {
		tables = DefaultTables()
	}
	if conditions == nil {
		conditions = LabelEvaluator{}
	}
	if audit == nil {
		audit = nopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		tables:     tables,
		conditions: conditions,
		fallback:   DefaultFallbackRules(),
		audit:      audit,
		logger:     logger,
	}
}

// WithFallbackRules replaces the hierarchical fallback rule set.
func (e *Engine) WithFallbackRules(rules []FallbackRule) *Engine {
	e.fallback = append([]FallbackRule(nil), rules...)
	return e
}

// WithDecisionObserver registers a callback invoked with the outcome of
// every decision, typically a metrics counter.
func (e *Engine) WithDecisionObserver(fn func(allowed bool)) *Engine {
	e.observe = fn
	return e
}

// Tables exposes the engine's role tables.
func (e *Engine) Tables() *Tables {
	return e.tables
}

// Authorize decides whether the request's user may perform the action on
// the resource. It never panics and never lets an internal error escape:
// every failure mode normalizes to a denial.
func (e *Engine) Authorize(ctx context.Context, req Request) (res Result) {
	defer func() {
		if e.observe != nil {
			e.observe(res.Allowed)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("authorization panic",
				slog.Any("panic", r),
				slog.String("user", req.User.ID),
				slog.String("action", string(req.Action)),
				slog.String("resource", string(req.Resource)))
			_ = e.audit.LogEvent(ctx, EventAuthorizationError, req.User.ID, map[string]any{
				"resource": req.Resource,
				"action":   req.Action,
				"error":    fmt.Sprint(r),
			})
			res = Result{Allowed: false, Reason: ReasonSystemError}
		}
	}()

	result, err := e.decide(ctx, req)
	if err != nil {
		e.logger.Error("authorization error",
			slog.Any("error", err),
			slog.String("user", req.User.ID),
			slog.String("action", string(req.Action)),
			slog.String("resource", string(req.Resource)))
		_ = e.audit.LogEvent(ctx, EventAuthorizationError, req.User.ID, map[string]any{
			"resource":    req.Resource,
			"action":      req.Action,
			"resource_id": req.ResourceID,
			"error":       err.Error(),
		})
		return Result{Allowed: false, Reason: ReasonSystemError}
	}
	return result
}

// decide runs the precedence chain. Any returned error is a system error
// and maps to a fail-closed denial in Authorize.
func (e *Engine) decide(ctx context.Context, req Request) (Result, error) {
	if err := e.audit.LogEvent(ctx, EventAuthorizationAttempted, req.User.ID, map[string]any{
		"resource":    req.Resource,
		"action":      req.Action,
		"resource_id": req.ResourceID,
		"role":        req.User.Role,
		"department":  req.User.Department,
	}); err != nil {
		return Result{}, err
	}

	if req.User.Role == RoleSuperAdmin {
		return Result{Allowed: true, Reason: ReasonSuperAdmin}, nil
	}

	// Explicit user grants come before role derived grants.
	if matchesAny(req.User.Grants, req.Action, req.Resource) {
		return e.evaluateConditions(ctx, req, "Explicit permission")
	}

	if e.tables.HasGrant(req.User.Role, req.Action, req.Resource) {
		return e.evaluateConditions(ctx, req, "Role-based permission")
	}

	if rule, ok := matchFallback(e.fallback, req); ok {
		result := Result{
			Allowed:    true,
			Reason:     rule.Reason,
			Conditions: append([]Condition(nil), rule.Conditions...),
		}
		if err := e.audit.LogEvent(ctx, EventAuthorizationGranted, req.User.ID, map[string]any{
			"resource":    req.Resource,
			"action":      req.Action,
			"resource_id": req.ResourceID,
			"reason":      "Hierarchical access",
		}); err != nil {
			return Result{}, err
		}
		return result, nil
	}

	result := Result{
		Allowed:             false,
		Reason:              fmt.Sprintf("Insufficient permissions for %s on %s", req.Action, req.Resource),
		RequiredPermissions: []string{Grant{Action: req.Action, Resource: req.Resource}.String()},
	}
	if err := e.audit.LogEvent(ctx, EventAuthorizationDenied, req.User.ID, map[string]any{
		"resource":    req.Resource,
		"action":      req.Action,
		"resource_id": req.ResourceID,
		"reason":      result.Reason,
		"role":        req.User.Role,
	}); err != nil {
		return Result{}, err
	}
	return result, nil
}

func (e *Engine) evaluateConditions(ctx context.Context, req Request, grantKind string) (Result, error) {
	result, err := e.conditions.Evaluate(ctx, req)
	if err != nil {
		return Result{}, err
	}
	event := EventAuthorizationGranted
	details := map[string]any{
		"resource":    req.Resource,
		"action":      req.Action,
		"resource_id": req.ResourceID,
		"reason":      grantKind,
	}
	if !result.Allowed {
		event = EventAuthorizationDenied
		details["reason"] = result.Reason
	}
	if err := e.audit.LogEvent(ctx, event, req.User.ID, details); err != nil {
		return Result{}, err
	}
	return result, nil
}

func matchesAny(grants []Grant, action Action, resource Resource) bool {
	for _, g := range grants {
		if g.Matches(action, resource) {
			return true
		}
	}
	return false
}
