package permission

import (
	"time"

	"github.com/workstream/access-management/internal"
	permissionDatamodel "github.com/workstream/access-management/internal/core/datamodel/permission"
)

// Permission is an atomic capability identified by a stable code such as
// finance:transaction:create.
type Permission struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Module      string    `json:"module"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	TypeMenu      = "menu"
	TypeOperation = "operation"
	TypeData      = "data"

	StatusEnabled  = "enabled"
	StatusDisabled = "disabled"
)

func IsValidType(t string) bool {
	return t == TypeMenu || t == TypeOperation || t == TypeData
}

var (
	ErrPermissionNotFound = internal.NewNotFoundError("permission not found", internal.ErrCodePermissionNotFound)
	ErrCodeAlreadyExists  = internal.NewConflictError("permission code already exists", internal.ErrCodePermissionCodeExists)
	ErrPermissionInUse    = internal.NewConflictError("permission is referenced by roles or templates", internal.ErrCodePermissionReferenced)
)

func ToDataModel(p *Permission) *permissionDatamodel.Permission {
	return &permissionDatamodel.Permission{
		ID:          p.ID,
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Module:      p.Module,
		Type:        p.Type,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func FromDataModel(p *permissionDatamodel.Permission) *Permission {
	return &Permission{
		ID:          p.ID,
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Module:      p.Module,
		Type:        p.Type,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func FromDataModelSlice(models []*permissionDatamodel.Permission) []*Permission {
	result := make([]*Permission, len(models))
	for i, m := range models {
		result[i] = FromDataModel(m)
	}
	return result
}
