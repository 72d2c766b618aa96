package authz

// FallbackRule is an explicit cross-role carve-out evaluated only when the
// permission tables produced no match.
type FallbackRule struct {
	Role       RoleName
	Action     Action
	Resource   Resource
	Conditions []Condition
	Reason     string
}

// DefaultFallbackRules returns the built-in carve-outs. Department managers
// may read user records of their own department even without an explicit
// grant.
func DefaultFallbackRules() []FallbackRule {
	return []FallbackRule{
		{
			Role:       RoleDepartmentManager,
			Action:     ActionRead,
			Resource:   ResourceUsers,
			Conditions: []Condition{ConditionDepartmentOnly},
			Reason:     "Department manager hierarchical access",
		},
	}
}

func matchFallback(rules []FallbackRule, req Request) (FallbackRule, bool) {
	for _, rule := range rules {
		if rule.Role == req.User.Role && rule.Action == req.Action && rule.Resource == req.Resource {
			return rule, true
		}
	}
	return FallbackRule{}, false
}
