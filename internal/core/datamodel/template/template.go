package template

import "time"

// PermissionTemplate is a reusable bundle of (permission, scope) pairs that
// can be applied to many users at once. At most one template is the default.
type PermissionTemplate struct {
	ID          int64     `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;uniqueIndex;not null"`
	Description string    `gorm:"column:description"`
	IsDefault   bool      `gorm:"column:is_default;default:false"`
	Status      string    `gorm:"column:status;default:enabled"`
	CreatedBy   int64     `gorm:"column:created_by"`
	CreatedAt   time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt   time.Time `gorm:"column:updated_at;default:now()"`
}

func (PermissionTemplate) TableName() string {
	return "permission_templates"
}

type TemplatePermission struct {
	ID           int64     `gorm:"primaryKey"`
	TemplateID   int64     `gorm:"column:template_id;not null;uniqueIndex:idx_template_permission"`
	PermissionID int64     `gorm:"column:permission_id;not null;uniqueIndex:idx_template_permission"`
	DataScope    string    `gorm:"column:data_scope;default:personal"`
	CreatedAt    time.Time `gorm:"column:created_at;default:now()"`
}

func (TemplatePermission) TableName() string {
	return "template_permissions"
}
