package role

import "time"

// Role is a named bundle of permissions, each carrying a data scope.
// Version is bumped on every permission-set rewrite so concurrent
// read-modify-write sequences on synthesized per-user roles are detectable.
type Role struct {
	ID          int64     `gorm:"primaryKey"`
	Code        string    `gorm:"column:code;uniqueIndex;not null"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description"`
	Status      string    `gorm:"column:status;default:enabled"`
	IsSystem    bool      `gorm:"column:is_system;default:false"`
	Version     int64     `gorm:"column:version;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt   time.Time `gorm:"column:updated_at;default:now()"`
}

func (Role) TableName() string {
	return "roles"
}

// RolePermission links a role to a permission with the scope the grant
// applies at.
type RolePermission struct {
	ID           int64     `gorm:"primaryKey"`
	RoleID       int64     `gorm:"column:role_id;not null;uniqueIndex:idx_role_permission"`
	PermissionID int64     `gorm:"column:permission_id;not null;uniqueIndex:idx_role_permission"`
	DataScope    string    `gorm:"column:data_scope;default:all"`
	CreatedAt    time.Time `gorm:"column:created_at;default:now()"`
}

func (RolePermission) TableName() string {
	return "role_permissions"
}

// UserRole associates a user with a role, optionally pinned to a department.
type UserRole struct {
	ID         int64     `gorm:"primaryKey"`
	UserID     int64     `gorm:"column:user_id;not null;uniqueIndex:idx_user_role"`
	RoleID     int64     `gorm:"column:role_id;not null;uniqueIndex:idx_user_role"`
	Department *string   `gorm:"column:department"`
	Status     string    `gorm:"column:status;default:enabled"`
	CreatedBy  int64     `gorm:"column:created_by"`
	CreatedAt  time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt  time.Time `gorm:"column:updated_at;default:now()"`
}

func (UserRole) TableName() string {
	return "user_roles"
}
