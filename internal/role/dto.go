package role

import (
	"errors"
	"fmt"

	"github.com/workstream/access-management/internal/access"
)

type PermissionPairDTO struct {
	PermissionID int64  `json:"permission_id"`
	DataScope    string `json:"data_scope"`
}

// CreateRoleDTO is the request payload for creating an administrator-defined
// role.
type CreateRoleDTO struct {
	Code        string              `json:"code"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Permissions []PermissionPairDTO `json:"permissions"`
}

func (dto CreateRoleDTO) Validate() error {
	if dto.Code == "" {
		return errors.New("code is required")
	}
	if IsCustomRoleCode(dto.Code) {
		return errors.New("role codes with the CUSTOM_ prefix are reserved")
	}
	if dto.Name == "" {
		return errors.New("name is required")
	}
	for _, pair := range dto.Permissions {
		if pair.PermissionID <= 0 {
			return errors.New("permission_id must be positive")
		}
		if !access.IsValidScope(pair.DataScope) {
			return fmt.Errorf("invalid data scope %q", pair.DataScope)
		}
	}
	return nil
}

// AssignUserRoleDTO associates a user with a role.
type AssignUserRoleDTO struct {
	UserID     int64   `json:"user_id"`
	RoleID     int64   `json:"role_id"`
	Department *string `json:"department,omitempty"`
}

func (dto AssignUserRoleDTO) Validate() error {
	if dto.UserID <= 0 {
		return errors.New("user_id is required")
	}
	if dto.RoleID <= 0 {
		return errors.New("role_id is required")
	}
	return nil
}

// AssignPermissionsDTO is the direct-assignment payload: the full permission
// set the user's custom role should hold afterward.
type AssignPermissionsDTO struct {
	PermissionIDs []int64 `json:"permission_ids"`
}

func (dto AssignPermissionsDTO) Validate() error {
	if len(dto.PermissionIDs) == 0 {
		return errors.New("permission_ids is required")
	}
	for _, id := range dto.PermissionIDs {
		if id <= 0 {
			return errors.New("permission ids must be positive")
		}
	}
	return nil
}

// BatchAssignDTO grants permissions to many users at once.
type BatchAssignDTO struct {
	UserIDs       []int64 `json:"user_ids"`
	PermissionIDs []int64 `json:"permission_ids"`
}

func (dto BatchAssignDTO) Validate() error {
	if len(dto.UserIDs) == 0 {
		return errors.New("user_ids is required")
	}
	if len(dto.PermissionIDs) == 0 {
		return errors.New("permission_ids is required")
	}
	return nil
}

// UpdateStatusDTO toggles soft enable/disable.
type UpdateStatusDTO struct {
	Status string `json:"status"`
}

func (dto UpdateStatusDTO) Validate() error {
	if dto.Status != StatusEnabled && dto.Status != StatusDisabled {
		return errors.New("status must be either 'enabled' or 'disabled'")
	}
	return nil
}

// ListFilter narrows role listings.
type ListFilter struct {
	Status        string
	IncludeSystem bool
	Limit         int
	Offset        int
}

// BatchUserResult is the per-user outcome of a batch assignment.
type BatchUserResult struct {
	UserID  int64   `json:"user_id"`
	Success bool    `json:"success"`
	Error   string  `json:"error,omitempty"`
	Before  []int64 `json:"before"`
	After   []int64 `json:"after"`
}

// BatchResult aggregates a batch assignment. Per-user failures are isolated;
// the batch itself succeeds with partial results.
type BatchResult struct {
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []BatchUserResult `json:"results"`
}
