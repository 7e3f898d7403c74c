package scoperule

import "time"

// DataScopeRule is an administrator-defined policy that can grant access to
// records outside the weighted base scope. RuleConditions is a JSON document
// whose shape depends on RuleType.
type DataScopeRule struct {
	ID             int64     `gorm:"primaryKey"`
	Name           string    `gorm:"column:name"`
	PermissionID   int64     `gorm:"column:permission_id;not null;index:idx_rule_permission_module"`
	Module         string    `gorm:"column:module;not null;index:idx_rule_permission_module"`
	RuleType       string    `gorm:"column:rule_type;not null"`
	RuleConditions string    `gorm:"column:rule_conditions;type:jsonb;not null"`
	Status         string    `gorm:"column:status;default:enabled"`
	CreatedBy      int64     `gorm:"column:created_by"`
	CreatedAt      time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt      time.Time `gorm:"column:updated_at;default:now()"`
}

func (DataScopeRule) TableName() string {
	return "data_scope_rules"
}

// DataScopeRuleUser marks a rule as active for a user.
type DataScopeRuleUser struct {
	ID     int64 `gorm:"primaryKey"`
	RuleID int64 `gorm:"column:rule_id;not null;uniqueIndex:idx_rule_user"`
	UserID int64 `gorm:"column:user_id;not null;uniqueIndex:idx_rule_user"`
}

func (DataScopeRuleUser) TableName() string {
	return "data_scope_rule_users"
}
