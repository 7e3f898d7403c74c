package permission

import "time"

// Permission is an atomic capability identified by a stable code.
type Permission struct {
	ID          int64     `gorm:"primaryKey"`
	Code        string    `gorm:"column:code;uniqueIndex;not null"`
	Name        string    `gorm:"column:name;not null"`
	Description string    `gorm:"column:description"`
	Module      string    `gorm:"column:module;index;not null"`
	Type        string    `gorm:"column:type;not null"`
	Status      string    `gorm:"column:status;default:enabled"`
	CreatedAt   time.Time `gorm:"column:created_at;default:now()"`
	UpdatedAt   time.Time `gorm:"column:updated_at;default:now()"`
}

func (Permission) TableName() string {
	return "permissions"
}
