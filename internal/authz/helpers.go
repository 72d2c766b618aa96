package authz

import (
	"context"
	"fmt"
	"sort"
)

// CheckPermission is a thin wrapper returning only the boolean outcome.
func (e *Engine) CheckPermission(ctx context.Context, user User, action Action, resource Resource, resourceID string) bool {
	return e.Authorize(ctx, Request{
		User:       user,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
	}).Allowed
}

// RequirePermission is a fail-fast guard clause for service code. Callers
// must treat a returned error as a contract violation, not a business
// condition.
func (e *Engine) RequirePermission(ctx context.Context, user User, action Action, resource Resource, resourceID string) error {
	if !e.CheckPermission(ctx, user, action, resource, resourceID) {
		return fmt.Errorf("%w: %s on %s", ErrPermissionDenied, action, resource)
	}
	return nil
}

// EffectivePermissions returns the sorted union of the user's role-derived
// and explicit grants, rendered as "action:resource" strings. Intended for
// feature-flagging in API consumers.
func (e *Engine) EffectivePermissions(user User) []string {
	seen := make(map[string]struct{})
	var perms []string
	add := func(g Grant) {
		s := g.String()
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		perms = append(perms, s)
	}
	for _, g := range e.tables.EffectiveGrants(user.Role) {
		add(g)
	}
	for _, g := range user.Grants {
		add(g)
	}
	sort.Strings(perms)
	return perms
}

// RequiredRole returns the lowest role whose effective grants cover the
// action/resource pair.
func (e *Engine) RequiredRole(action Action, resource Resource) (RoleName, bool) {
	return e.tables.RequiredRole(action, resource)
}
