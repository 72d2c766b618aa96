package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubLookup struct {
	attrs ResourceAttributes
	err   error
}

func (s stubLookup) ResourceAttributes(context.Context, Resource, string) (ResourceAttributes, error) {
	return s.attrs, s.err
}

func TestEnforcingOwnOnly(t *testing.T) {
	eval := EnforcingEvaluator{Lookup: stubLookup{attrs: ResourceAttributes{OwnerID: "u1"}}}
	req := Request{
		User:       User{ID: "u1", Role: RoleStaff},
		Action:     ActionRead,
		Resource:   ResourcePurchaseRequests,
		ResourceID: "pr-1",
	}

	result, err := eval.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Allowed)

	req.User.ID = "u2"
	result, err = eval.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Equal(t, "Resource belongs to another user", result.Reason)
}

func TestEnforcingDepartmentOnly(t *testing.T) {
	eval := EnforcingEvaluator{Lookup: stubLookup{attrs: ResourceAttributes{Department: "kitchen"}}}
	req := Request{
		User:       User{ID: "m1", Role: RoleDepartmentManager, Department: "kitchen"},
		Action:     ActionRead,
		Resource:   ResourcePurchaseRequests,
		ResourceID: "pr-1",
	}

	result, err := eval.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Allowed)

	req.User.Department = "front-desk"
	result, err = eval.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Equal(t, "Resource belongs to another department", result.Reason)
}

func TestEnforcingDepartmentOnlySkipsUnsetAttribute(t *testing.T) {
	// resources without a department attribute are not fenced off
	eval := EnforcingEvaluator{Lookup: stubLookup{attrs: ResourceAttributes{Amount: 50}}}
	req := Request{
		User:       User{ID: "m1", Role: RoleDepartmentManager, Department: "kitchen"},
		Action:     ActionRead,
		Resource:   ResourceVendors,
		ResourceID: "v-1",
	}

	result, err := eval.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Allowed)
}

func TestEnforcingUnderLimit(t *testing.T) {
	eval := EnforcingEvaluator{
		Lookup:         stubLookup{attrs: ResourceAttributes{Department: "kitchen", Amount: 12500}},
		ApprovalLimits: map[RoleName]float64{RoleDepartmentManager: 10000},
	}
	req := Request{
		User:       User{ID: "m1", Role: RoleDepartmentManager, Department: "kitchen"},
		Action:     ActionApprovePurchaseRequests,
		Resource:   ResourcePurchaseRequests,
		ResourceID: "pr-1",
	}

	result, err := eval.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Equal(t, "Amount 12500.00 exceeds approval limit 10000.00", result.Reason)

	// roles without a configured limit are uncapped
	eval.ApprovalLimits = nil
	result, err = eval.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Allowed)
}

func TestEnforcingResourceNotFoundDenies(t *testing.T) {
	eval := EnforcingEvaluator{Lookup: stubLookup{err: ErrResourceNotFound}}
	req := Request{
		User:       User{ID: "u1", Role: RoleStaff},
		Action:     ActionRead,
		Resource:   ResourcePurchaseRequests,
		ResourceID: "pr-9",
	}

	result, err := eval.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Equal(t, "Resource purchase_requests/pr-9 not found", result.Reason)
}

func TestEnforcingAttributesUnavailableKeepsLabels(t *testing.T) {
	eval := EnforcingEvaluator{Lookup: stubLookup{err: ErrAttributesUnavailable}}
	req := Request{
		User:       User{ID: "u2", Role: RoleStaff},
		Action:     ActionRead,
		Resource:   ResourcePurchaseRequests,
		ResourceID: "pr-1",
	}

	result, err := eval.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Allowed)
	require.Equal(t, []Condition{ConditionOwnOnly}, result.Conditions)
}

func TestEnforcingLookupErrorPropagates(t *testing.T) {
	boom := errors.New("database down")
	eval := EnforcingEvaluator{Lookup: stubLookup{err: boom}}
	req := Request{
		User:       User{ID: "u1", Role: RoleStaff},
		Action:     ActionRead,
		Resource:   ResourcePurchaseRequests,
		ResourceID: "pr-1",
	}

	_, err := eval.Evaluate(context.Background(), req)
	require.ErrorIs(t, err, boom)
}

func TestEnforcingSkipsCollectionRequests(t *testing.T) {
	// without a resource ID the evaluator must not hit the lookup at all
	eval := EnforcingEvaluator{Lookup: stubLookup{err: errors.New("must not be called")}}
	req := Request{
		User:     User{ID: "u1", Role: RoleStaff},
		Action:   ActionRead,
		Resource: ResourcePurchaseRequests,
	}

	result, err := eval.Evaluate(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.Allowed)
	require.Equal(t, []Condition{ConditionOwnOnly}, result.Conditions)
}

func TestLookupMuxRouting(t *testing.T) {
	mux := LookupMux{
		ResourcePurchaseRequests: stubLookup{attrs: ResourceAttributes{OwnerID: "u1"}},
	}

	attrs, err := mux.ResourceAttributes(context.Background(), ResourcePurchaseRequests, "pr-1")
	require.NoError(t, err)
	require.Equal(t, "u1", attrs.OwnerID)

	_, err = mux.ResourceAttributes(context.Background(), ResourceVendors, "v-1")
	require.ErrorIs(t, err, ErrAttributesUnavailable)
}

func TestLookupErrorFailsClosedThroughEngine(t *testing.T) {
	evaluator := EnforcingEvaluator{Lookup: stubLookup{err: errors.New("database down")}}
	engine := NewEngine(nil, evaluator, nil, nil)
	staff := User{ID: "u1", Role: RoleStaff}

	result := engine.Authorize(context.Background(), Request{
		User: staff, Action: ActionRead, Resource: ResourcePurchaseRequests, ResourceID: "pr-1",
	})
	require.False(t, result.Allowed)
	require.Equal(t, ReasonSystemError, result.Reason)
}
