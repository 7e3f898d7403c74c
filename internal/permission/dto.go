package permission

import "errors"

// CreatePermissionDTO is the request payload for registering a capability.
type CreatePermissionDTO struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Module      string `json:"module"`
	Type        string `json:"type"`
}

func (dto CreatePermissionDTO) Validate() error {
	if dto.Code == "" {
		return errors.New("code is required")
	}
	if dto.Name == "" {
		return errors.New("name is required")
	}
	if dto.Module == "" {
		return errors.New("module is required")
	}
	if !IsValidType(dto.Type) {
		return errors.New("type must be one of: menu, operation, data")
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

// ListFilter narrows permission listings.
type ListFilter struct {
	Module string
	Type   string
	Status string
	Limit  int
	Offset int
}
