package template

import (
	"errors"
	"fmt"

	"github.com/workstream/access-management/internal/access"
)

type PermissionPairDTO struct {
	PermissionID int64  `json:"permission_id"`
	DataScope    string `json:"data_scope"`
}

// CreateTemplateDTO is the request payload for creating a template.
type CreateTemplateDTO struct {
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	IsDefault   bool                `json:"is_default"`
	Permissions []PermissionPairDTO `json:"permissions"`
}

func (dto CreateTemplateDTO) Validate() error {
	if dto.Name == "" {
		return errors.New("name is required")
	}
	if len(dto.Permissions) == 0 {
		return errors.New("permissions is required")
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

// ApplyTemplateDTO names the users a template should be applied to.
type ApplyTemplateDTO struct {
	UserIDs []int64 `json:"user_ids"`
}

func (dto ApplyTemplateDTO) Validate() error {
	if len(dto.UserIDs) == 0 {
		return errors.New("user_ids is required")
	}
	for _, id := range dto.UserIDs {
		if id <= 0 {
			return errors.New("user ids must be positive")
		}
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

// ListFilter narrows template listings.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}
