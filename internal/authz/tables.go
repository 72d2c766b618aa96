package authz

import "sort"

// Tables holds the role hierarchy and per-role grants. Instances are built
// once at startup and never mutated afterwards, so concurrent reads are safe.
type Tables struct {
	levels map[RoleName]int
	grants map[RoleName][]Grant
}

// NewTables builds lookup tables from a hierarchy and per-role grants. The
// inputs are copied; later mutation of the arguments does not affect the
// returned tables.
func NewTables(levels map[RoleName]int, grants map[RoleName][]Grant) *Tables {
	t := &Tables{
		levels: make(map[RoleName]int, len(levels)),
		grants: make(map[RoleName][]Grant, len(grants)),
	}
	for role, level := range levels {
		t.levels[role] = level
	}
	for role, gs := range grants {
		t.grants[role] = append([]Grant(nil), gs...)
	}
	return t
}

// DefaultTables returns the built-in Carmen role hierarchy and grants.
func DefaultTables() *Tables {
	return NewTables(defaultHierarchy, defaultGrants)
}

var defaultHierarchy = map[RoleName]int{
	RoleSuperAdmin:        100,
	RoleAdmin:             90,
	RoleFinancialManager:  80,
	RoleDepartmentManager: 70,
	RolePurchasingStaff:   60,
	RoleChef:              50,
	RoleCounter:           40,
	RoleStaff:             30,
}

var defaultGrants = map[RoleName][]Grant{
	RoleSuperAdmin: {
		{ActionAny, ResourceAny},
	},
	RoleAdmin: {
		{ActionManageUsers, ResourceUsers},
		{ActionManageRoles, ResourceRoles},
		{ActionManagePermissions, ResourcePermissions},
		{ActionViewAuditLogs, ResourceAuditLogs},
		{ActionManageSystemConfig, ResourceSystemConfig},

		{ActionCreate, ResourceAny},
		{ActionRead, ResourceAny},
		{ActionUpdate, ResourceAny},
		{ActionDelete, ResourceAny},
		{ActionApprove, ResourceAny},
		{ActionReject, ResourceAny},
		{ActionManageVendors, ResourceVendors},
		{ActionGenerateReports, ResourceReports},
		{ActionViewAnalytics, ResourceDashboards},
	},
	RoleFinancialManager: {
		{ActionProcessPayments, ResourcePayments},
		{ActionApproveBudgets, ResourceAny},
		{ActionViewFinancialReports, ResourceReports},
		{ActionRead, ResourceInvoices},
		{ActionUpdate, ResourceInvoices},
		{ActionApprove, ResourceInvoices},

		{ActionApprovePurchaseOrders, ResourcePurchaseOrders},
		{ActionRead, ResourcePurchaseRequests},
		{ActionApprovePurchaseRequests, ResourcePurchaseRequests},

		{ActionRead, ResourceVendors},
		{ActionUpdate, ResourceVendors},
		{ActionNegotiateContracts, ResourceContracts},

		{ActionGenerateReports, ResourceReports},
		{ActionViewAnalytics, ResourceDashboards},
	},
	RoleDepartmentManager: {
		{ActionRead, ResourceUsers},
		{ActionUpdate, ResourceUsers},

		{ActionCreatePurchaseRequests, ResourcePurchaseRequests},
		{ActionApprovePurchaseRequests, ResourcePurchaseRequests},
		{ActionRead, ResourcePurchaseOrders},
		{ActionApprovePurchaseOrders, ResourcePurchaseOrders},

		{ActionRead, ResourceInventoryItems},
		{ActionApproveAdjustments, ResourceStockAdjustments},
		{ActionConductCounts, ResourcePhysicalCounts},

		{ActionRead, ResourceVendors},
		{ActionEvaluatePerformance, ResourceVendors},

		{ActionGenerateReports, ResourceReports},
		{ActionViewAnalytics, ResourceDashboards},
	},
	RolePurchasingStaff: {
		{ActionCreatePurchaseRequests, ResourcePurchaseRequests},
		{ActionUpdate, ResourcePurchaseRequests},
		{ActionRead, ResourcePurchaseRequests},
		{ActionCreatePurchaseOrders, ResourcePurchaseOrders},
		{ActionUpdate, ResourcePurchaseOrders},
		{ActionRead, ResourcePurchaseOrders},

		{ActionRead, ResourceVendors},
		{ActionCreate, ResourceVendors},
		{ActionUpdate, ResourceVendors},
		{ActionManageVendors, ResourceVendors},

		{ActionReceiveGoods, ResourceGoodsReceipts},
		{ActionCreate, ResourceGoodsReceipts},
		{ActionUpdate, ResourceGoodsReceipts},

		{ActionRead, ResourceProducts},
		{ActionCreate, ResourceProducts},
		{ActionUpdate, ResourceProducts},
		{ActionRead, ResourceCategories},
		{ActionCreate, ResourceCategories},
		{ActionUpdate, ResourceCategories},

		{ActionGenerateReports, ResourceReports},
	},
	RoleChef: {
		{ActionCreate, ResourceRecipes},
		{ActionRead, ResourceRecipes},
		{ActionUpdate, ResourceRecipes},
		{ActionCreate, ResourceIngredients},
		{ActionRead, ResourceIngredients},
		{ActionUpdate, ResourceIngredients},

		{ActionRead, ResourceInventoryItems},
		{ActionAdjustInventory, ResourceInventoryItems},
		{ActionTransferStock, ResourceTransfers},
		{ActionConductCounts, ResourcePhysicalCounts},

		{ActionCreatePurchaseRequests, ResourcePurchaseRequests},
		{ActionRead, ResourcePurchaseRequests},

		{ActionRead, ResourceVendors},

		{ActionRead, ResourceProducts},
		{ActionRead, ResourceCategories},
	},
	RoleCounter: {
		{ActionRead, ResourceProducts},
		{ActionRead, ResourceCategories},
		{ActionRead, ResourceInventoryItems},

		{ActionCreatePurchaseRequests, ResourcePurchaseRequests},
		{ActionRead, ResourcePurchaseRequests},
	},
	RoleStaff: {
		{ActionRead, ResourceProducts},
		{ActionRead, ResourceCategories},
		{ActionRead, ResourcePurchaseRequests},
		{ActionRead, ResourceInventoryItems},

		{ActionCreatePurchaseRequests, ResourcePurchaseRequests},
	},
}

// HierarchyLevel returns the numeric rank of a role. Unknown roles report
// ok=false and must be treated as having no permissions.
func (t *Tables) HierarchyLevel(role RoleName) (int, bool) {
	level, ok := t.levels[role]
	return level, ok
}

// EffectiveGrants returns the role's own grants plus every grant of roles
// with an equal or lower hierarchy level, deduplicated. Unknown roles get
// an empty set.
func (t *Tables) EffectiveGrants(role RoleName) []Grant {
	level, ok := t.levels[role]
	if !ok {
		return nil
	}
	seen := make(map[Grant]struct{})
	var grants []Grant
	for name, l := range t.levels {
		if l > level {
			continue
		}
		for _, g := range t.grants[name] {
			if _, dup := seen[g]; dup {
				continue
			}
			seen[g] = struct{}{}
			grants = append(grants, g)
		}
	}
	return grants
}

// HasGrant reports whether the role's effective grant set covers the pair.
func (t *Tables) HasGrant(role RoleName, action Action, resource Resource) bool {
	for _, g := range t.EffectiveGrants(role) {
		if g.Matches(action, resource) {
			return true
		}
	}
	return false
}

// RequiredRole returns the lowest role whose effective grants cover the
// action/resource pair, walking roles from the bottom of the hierarchy up.
func (t *Tables) RequiredRole(action Action, resource Resource) (RoleName, bool) {
	roles := make([]RoleName, 0, len(t.levels))
	for name := range t.levels {
		roles = append(roles, name)
	}
	sort.Slice(roles, func(i, j int) bool {
		return t.levels[roles[i]] < t.levels[roles[j]]
	})
	for _, name := range roles {
		if t.HasGrant(name, action, resource) {
			return name, true
		}
	}
	return "", false
}

// Roles returns the known role names sorted by ascending hierarchy level.
func (t *Tables) Roles() []RoleName {
	roles := make([]RoleName, 0, len(t.levels))
	for name := range t.levels {
		roles = append(roles, name)
	}
	sort.Slice(roles, func(i, j int) bool {
		return t.levels[roles[i]] < t.levels[roles[j]]
	})
	return roles
}
