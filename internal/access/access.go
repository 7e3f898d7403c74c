package access

import (
	"context"

	"github.com/workstream/access-management/internal"
)

// Data scopes order the breadth of records a grant applies to. Custom carries
// no weight during base resolution: a custom grant only admits records through
// a matching data-scope rule, so without one it stays deny.
const (
	ScopeAll        = "all"
	ScopeDepartment = "department"
	ScopePersonal   = "personal"
	ScopeCustom     = "custom"
)

const (
	StatusEnabled  = "enabled"
	StatusDisabled = "disabled"
)

var scopeWeights = map[string]int{
	ScopeAll:        3,
	ScopeDepartment: 2,
	ScopePersonal:   1,
}

// ScopeWeight returns the folding weight of a scope; custom and unknown
// scopes weigh zero.
func ScopeWeight(scope string) int {
	return scopeWeights[scope]
}

// IsValidScope reports whether scope is one of the four known data scopes.
func IsValidScope(scope string) bool {
	switch scope {
	case ScopeAll, ScopeDepartment, ScopePersonal, ScopeCustom:
		return true
	}
	return false
}

// PermissionGrant is one (permission, scope) pair carried by a role.
type PermissionGrant struct {
	Code  string
	Scope string
}

// RoleGrant is one enabled user-role association together with the enabled
// permission pairs of its enabled role.
type RoleGrant struct {
	RoleID      int64
	RoleCode    string
	Department  *string
	Permissions []PermissionGrant
}

// ResolvedPermissions is the cached union of everything a user holds: the
// permission codes, the widest scope per code, plus the role ids and
// departments needed for scope checks without another store round trip.
type ResolvedPermissions struct {
	Permissions []string          `json:"permissions"`
	DataScopes  map[string]string `json:"data_scopes"`
	RoleIDs     []int64           `json:"role_ids"`
	Departments []string          `json:"departments"`
}

// Has reports whether the resolved set contains the permission code.
func (r *ResolvedPermissions) Has(code string) bool {
	for _, p := range r.Permissions {
		if p == code {
			return true
		}
	}
	return false
}

// HasRole reports whether any of the user's enabled roles matches roleID.
func (r *ResolvedPermissions) HasRole(roleID int64) bool {
	for _, id := range r.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Rule is a data-scope rule as seen by the evaluator: the type plus its
// decoded conditions payload.
type Rule struct {
	ID         int64
	RuleType   string
	Conditions map[string]interface{}
}

// GrantRepository reads the enabled role grants for a user from the entity
// store.
type GrantRepository interface {
	GetEnabledGrants(ctx context.Context, userID int64) ([]RoleGrant, error)
}

// RuleRepository reads the enabled data-scope rules active for a user on a
// (permission, module) pair.
type RuleRepository interface {
	GetActiveRules(ctx context.Context, permissionCode, module string, userID int64) ([]Rule, error)
}

var ErrPermissionLookupFailed = internal.NewInternalError("failed to resolve user permissions", nil)
