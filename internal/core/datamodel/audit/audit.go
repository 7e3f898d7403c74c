package audit

import "time"

// PermissionAssignmentLog is an append-only record of a mutating permission
// operation. Rows are created once per attempt and never updated.
type PermissionAssignmentLog struct {
	ID            string    `gorm:"primaryKey;column:id"`
	UserID        int64     `gorm:"column:user_id;not null;index"`
	TargetUsers   string    `gorm:"column:target_users;type:jsonb;not null"`
	OperationType string    `gorm:"column:operation_type;not null;index"`
	BeforeState   string    `gorm:"column:before_state;type:jsonb"`
	AfterState    string    `gorm:"column:after_state;type:jsonb"`
	Details       string    `gorm:"column:details"`
	Status        string    `gorm:"column:status;not null"`
	ErrorMessage  *string   `gorm:"column:error_message"`
	IPAddress     string    `gorm:"column:ip_address"`
	UserAgent     string    `gorm:"column:user_agent"`
	CreatedAt     time.Time `gorm:"column:created_at;index;default:now()"`
}

func (PermissionAssignmentLog) TableName() string {
	return "permission_assignment_logs"
}
