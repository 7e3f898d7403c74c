package role

import (
	"fmt"
	"strings"
	"time"

	"github.com/workstream/access-management/internal"
)

// Role is a named bundle of (permission, scope) pairs. Roles with IsSystem
// set are synthesized by the engine itself; the per-user custom role is the
// sole mechanism for direct permission grants.
type Role struct {
	ID          int64            `json:"id"`
	Code        string           `json:"code"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Status      string           `json:"status"`
	IsSystem    bool             `json:"is_system"`
	Version     int64            `json:"version"`
	Permissions []PermissionPair `json:"permissions"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type PermissionPair struct {
	PermissionID int64  `json:"permission_id"`
	DataScope    string `json:"data_scope"`
}

// UserRole associates a user with a role.
type UserRole struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	RoleID     int64     `json:"role_id"`
	Department *string   `json:"department,omitempty"`
	Status     string    `json:"status"`
	CreatedBy  int64     `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	StatusEnabled  = "enabled"
	StatusDisabled = "disabled"

	// CustomRolePrefix marks roles synthesized for direct per-user grants.
	CustomRolePrefix = "CUSTOM_"
)

// CustomRoleCode returns the synthesized role code for a user.
func CustomRoleCode(userID int64) string {
	return fmt.Sprintf("%s%d", CustomRolePrefix, userID)
}

// IsCustomRoleCode reports whether code names a synthesized per-user role.
func IsCustomRoleCode(code string) bool {
	return strings.HasPrefix(code, CustomRolePrefix)
}

var (
	ErrRoleNotFound     = internal.NewNotFoundError("role not found", internal.ErrCodeRoleNotFound)
	ErrRoleCodeExists   = internal.NewConflictError("role code already exists", internal.ErrCodeRoleCodeExists)
	ErrUserRoleExists   = internal.NewConflictError("user already has this role", internal.ErrCodeUserRoleExists)
	ErrUserRoleNotFound = internal.NewNotFoundError("user does not hold this role", internal.ErrCodeUserRoleNotFound)
	ErrUserNotFound     = internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
	ErrVersionConflict  = internal.NewConflictError("role was modified concurrently", internal.ErrCodeAssignmentConflict)
)
