package template

import (
	"time"

	"github.com/workstream/access-management/internal"
)

// Template is a reusable permission bundle administrators apply to batches
// of users. At most one template is the default at any time.
type Template struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	IsDefault   bool             `json:"is_default"`
	Status      string           `json:"status"`
	CreatedBy   int64            `json:"created_by"`
	Permissions []PermissionPair `json:"permissions"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type PermissionPair struct {
	PermissionID int64  `json:"permission_id"`
	DataScope    string `json:"data_scope"`
}

const (
	StatusEnabled  = "enabled"
	StatusDisabled = "disabled"
)

var (
	ErrTemplateNotFound   = internal.NewNotFoundError("template not found", internal.ErrCodeTemplateNotFound)
	ErrTemplateNameExists = internal.NewConflictError("template name already exists", internal.ErrCodeTemplateNameExists)
	ErrTemplateDisabled   = internal.NewValidationError("template is disabled", internal.ErrCodeTemplateDisabled)
)
