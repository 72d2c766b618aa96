package authz

import (
	"context"
	"errors"
	"fmt"
)

// ConditionEvaluator decides whether a matched grant still applies under the
// request context, and which conditions scope the resulting access.
type ConditionEvaluator interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
}

// LabelEvaluator reproduces the historical behavior of labelling results
// with scoping conditions without checking them against resource data.
// Handlers and services are expected to apply the labels themselves.
type LabelEvaluator struct{}

// Evaluate attaches scoping conditions based on the user's role.
func (LabelEvaluator) Evaluate(_ context.Context, req Request) (Result, error) {
	return labelResult(req), nil
}

func labelResult(req Request) Result {
	switch {
	case req.User.Role == RoleDepartmentManager:
		conditions := []Condition{ConditionDepartmentOnly}
		if req.Resource == ResourcePurchaseRequests &&
			(req.Action == ActionApprove || req.Action == ActionApprovePurchaseRequests) {
			conditions = append(conditions, ConditionUnderLimit)
		}
		return Result{
			Allowed:    true,
			Reason:     "Department-level access granted",
			Conditions: conditions,
		}
	case req.User.Role == RoleStaff && req.Resource == ResourcePurchaseRequests:
		return Result{
			Allowed:    true,
			Reason:     "Own resources only",
			Conditions: []Condition{ConditionOwnOnly},
		}
	default:
		return Result{Allowed: true, Reason: ReasonBasicGrant}
	}
}

// ResourceAttributes are the facts needed to enforce scoping conditions
// against a concrete resource instance.
type ResourceAttributes struct {
	OwnerID    string
	Department string
	Location   string
	Amount     float64
}

// ErrResourceNotFound is returned by lookups when the instance is missing.
var ErrResourceNotFound = errors.New("authz: resource not found")

// ErrAttributesUnavailable signals that no lookup exists for the resource
// kind. Enforcement is skipped and the labelled conditions stay advisory.
var ErrAttributesUnavailable = errors.New("authz: resource attributes unavailable")

// ResourceLookup fetches attributes of a resource instance for condition
// enforcement.
type ResourceLookup interface {
	ResourceAttributes(ctx context.Context, resource Resource, id string) (ResourceAttributes, error)
}

// LookupMux routes attribute lookups by resource kind.
type LookupMux map[Resource]ResourceLookup

// ResourceAttributes dispatches to the registered lookup, reporting
// ErrAttributesUnavailable for unregistered resource kinds.
func (m LookupMux) ResourceAttributes(ctx context.Context, resource Resource, id string) (ResourceAttributes, error) {
	lookup, ok := m[resource]
	if !ok {
		return ResourceAttributes{}, ErrAttributesUnavailable
	}
	return lookup.ResourceAttributes(ctx, resource, id)
}

// EnforcingEvaluator checks scoping conditions against live resource data.
// Requests without a resource ID (collection operations) keep the label-only
// behavior; the service layer scopes list queries with the returned
// conditions instead.
type EnforcingEvaluator struct {
	Lookup ResourceLookup
	// ApprovalLimits caps the amount a role may approve under the
	// under_limit condition. Roles without an entry have no cap.
	ApprovalLimits map[RoleName]float64
}

// Evaluate resolves conditions for the request and, when a resource ID is
// present, enforces each one against the fetched attributes.
func (e EnforcingEvaluator) Evaluate(ctx context.Context, req Request) (Result, error) {
	result := labelResult(req)
	if !result.Allowed || len(result.Conditions) == 0 || req.ResourceID == "" || e.Lookup == nil {
		return result, nil
	}

	attrs, err := e.Lookup.ResourceAttributes(ctx, req.Resource, req.ResourceID)
	if err != nil {
		if errors.Is(err, ErrAttributesUnavailable) {
			return result, nil
		}
		if errors.Is(err, ErrResourceNotFound) {
			return Result{
				Allowed: false,
				Reason:  fmt.Sprintf("Resource %s/%s not found", req.Resource, req.ResourceID),
			}, nil
		}
		return Result{}, err
	}

	for _, cond := range result.Conditions {
		switch cond {
		case ConditionOwnOnly:
			if attrs.OwnerID != req.User.ID {
				return Result{
					Allowed:    false,
					Reason:     "Resource belongs to another user",
					Conditions: result.Conditions,
				}, nil
			}
		case ConditionDepartmentOnly:
			if attrs.Department != "" && attrs.Department != req.User.Department {
				return Result{
					Allowed:    false,
					Reason:     "Resource belongs to another department",
					Conditions: result.Conditions,
				}, nil
			}
		case ConditionLocationOnly:
			if attrs.Location != "" && attrs.Location != req.User.Location {
				return Result{
					Allowed:    false,
					Reason:     "Resource belongs to another location",
					Conditions: result.Conditions,
				}, nil
			}
		case ConditionUnderLimit:
			limit, capped := e.ApprovalLimits[req.User.Role]
			if capped && attrs.Amount > limit {
				return Result{
					Allowed:    false,
					Reason:     fmt.Sprintf("Amount %.2f exceeds approval limit %.2f", attrs.Amount, limit),
					Conditions: result.Conditions,
				}, nil
			}
		}
	}
	return result, nil
}
