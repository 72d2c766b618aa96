package authz

import (
	"errors"
	"fmt"
	"strings"
)

// RoleName identifies a role in the hierarchy.
type RoleName string

// Built-in roles ordered by hierarchy level.
const (
	RoleSuperAdmin        RoleName = "super-admin"
	RoleAdmin             RoleName = "admin"
	RoleFinancialManager  RoleName = "financial-manager"
	RoleDepartmentManager RoleName = "department-manager"
	RolePurchasingStaff   RoleName = "purchasing-staff"
	RoleChef              RoleName = "chef"
	RoleCounter           RoleName = "counter"
	RoleStaff             RoleName = "staff"
)

// Action is an operation a user performs on a resource.
type Action string

// Actions referenced by the default permission tables.
const (
	ActionAny    Action = "*"
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"

	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionSubmit  Action = "submit"
	ActionCancel  Action = "cancel"
	ActionExport  Action = "export"

	ActionManageUsers        Action = "manage_users"
	ActionManageRoles        Action = "manage_roles"
	ActionManagePermissions  Action = "manage_permissions"
	ActionViewAuditLogs      Action = "view_audit_logs"
	ActionManageSystemConfig Action = "manage_system_config"

	ActionProcessPayments      Action = "process_payments"
	ActionApproveBudgets       Action = "approve_budgets"
	ActionViewFinancialReports Action = "view_financial_reports"

	ActionCreatePurchaseRequests  Action = "create_purchase_requests"
	ActionApprovePurchaseRequests Action = "approve_purchase_requests"
	ActionCreatePurchaseOrders    Action = "create_purchase_orders"
	ActionApprovePurchaseOrders   Action = "approve_purchase_orders"
	ActionReceiveGoods            Action = "receive_goods"
	ActionProcessInvoices         Action = "process_invoices"

	ActionAdjustInventory    Action = "adjust_inventory"
	ActionTransferStock      Action = "transfer_stock"
	ActionConductCounts      Action = "conduct_counts"
	ActionApproveAdjustments Action = "approve_adjustments"

	ActionManageVendors       Action = "manage_vendors"
	ActionNegotiateContracts  Action = "negotiate_contracts"
	ActionEvaluatePerformance Action = "evaluate_performance"

	ActionGenerateReports Action = "generate_reports"
	ActionViewAnalytics   Action = "view_analytics"
)

// Resource names an entity class guarded by the engine.
type Resource string

// Resources referenced by the default permission tables.
const (
	ResourceAny Resource = "*"

	ResourceUsers       Resource = "users"
	ResourceRoles       Resource = "roles"
	ResourcePermissions Resource = "permissions"
	ResourceDepartments Resource = "departments"
	ResourceLocations   Resource = "locations"

	ResourceVendors          Resource = "vendors"
	ResourceProducts         Resource = "products"
	ResourceCategories       Resource = "categories"
	ResourcePurchaseRequests Resource = "purchase_requests"
	ResourcePurchaseOrders   Resource = "purchase_orders"
	ResourceGoodsReceipts    Resource = "goods_receipts"
	ResourceInvoices         Resource = "invoices"
	ResourcePayments         Resource = "payments"
	ResourceContracts        Resource = "contracts"
	ResourceInventoryItems   Resource = "inventory_items"
	ResourceStockAdjustments Resource = "stock_adjustments"
	ResourceTransfers        Resource = "transfers"
	ResourcePhysicalCounts   Resource = "physical_counts"
	ResourceRecipes          Resource = "recipes"
	ResourceIngredients      Resource = "ingredients"
	ResourceCampaigns        Resource = "price_campaigns"

	ResourceSystemConfig Resource = "system_config"
	ResourceAuditLogs    Resource = "audit_logs"
	ResourceReports      Resource = "reports"
	ResourceDashboards   Resource = "dashboards"
)

// Condition narrows an otherwise granted permission.
type Condition string

// Conditions attached by the evaluator and fallback rules.
const (
	ConditionOwnOnly        Condition = "own_only"
	ConditionDepartmentOnly Condition = "department_only"
	ConditionLocationOnly   Condition = "location_only"
	ConditionUnderLimit     Condition = "under_limit"
)

// Grant pairs an action with a resource. Either side may be the wildcard.
type Grant struct {
	Action   Action
	Resource Resource
}

// Matches reports whether the grant covers the action/resource pair.
func (g Grant) Matches(action Action, resource Resource) bool {
	return (g.Action == ActionAny || g.Action == action) &&
		(g.Resource == ResourceAny || g.Resource == resource)
}

// String renders the grant in "action:resource" form.
func (g Grant) String() string {
	return string(g.Action) + ":" + string(g.Resource)
}

// ErrInvalidGrant indicates a malformed grant string.
var ErrInvalidGrant = errors.New("authz: invalid grant")

// ParseGrant converts "action:resource" into a Grant. Used only at system
// boundaries; internal code works with Grant values directly.
func ParseGrant(s string) (Grant, error) {
	action, resource, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || action == "" || resource == "" {
		return Grant{}, fmt.Errorf("%w: %q", ErrInvalidGrant, s)
	}
	return Grant{Action: Action(action), Resource: Resource(resource)}, nil
}

// ParseGrants converts a list of grant strings, skipping empty entries.
func ParseGrants(raw []string) ([]Grant, error) {
	grants := make([]Grant, 0, len(raw))
	for _, s := range raw {
		if strings.TrimSpace(s) == "" {
			continue
		}
		g, err := ParseGrant(s)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, nil
}

// User is the authenticated subject of an authorization decision. The role
// is normalized to a single name when the user crosses the system boundary.
type User struct {
	ID         string
	Role       RoleName
	Department string
	Location   string
	Grants     []Grant
}

// Request is the per-call authorization context.
type Request struct {
	User       User
	Action     Action
	Resource   Resource
	ResourceID string
	Extra      map[string]any
}

// Result is the outcome of an authorization decision. A deny is a normal
// negative outcome, never an error.
type Result struct {
	Allowed             bool
	Reason              string
	Conditions          []Condition
	RequiredRole        RoleName
	RequiredPermissions []string
}

// Reasons used by the engine for common outcomes.
const (
	ReasonSuperAdmin  = "Super admin access"
	ReasonBasicGrant  = "Basic permission granted"
	ReasonSystemError = "Authorization system error"
)

// ErrPermissionDenied is returned by RequirePermission guard clauses.
var ErrPermissionDenied = errors.New("authz: permission denied")
