package audit

import (
	"time"

	"github.com/workstream/access-management/internal"
)

// Operation types recorded in the assignment log.
const (
	OpRoleAssign       = "role_assign"
	OpDirectPermission = "direct_permission"
	OpTemplateApply    = "template_apply"
	OpBatchAssign      = "batch_assign"
	OpCustomDataRule   = "custom_data_rule"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Entry describes one mutating permission operation: who did it, to whom,
// and the state around it. Before/after snapshots are free-form; the manager
// captures "before" prior to mutating, since the resolver's cache may be
// invalidated mid-operation.
type Entry struct {
	ActorID       int64                    `json:"actor_id"`
	TargetUsers   []int64                  `json:"target_users"`
	OperationType string                   `json:"operation_type"`
	BeforeState   interface{}              `json:"before_state,omitempty"`
	AfterState    interface{}              `json:"after_state,omitempty"`
	Details       string                   `json:"details,omitempty"`
	Status        string                   `json:"status"`
	ErrorMessage  string                   `json:"error_message,omitempty"`
	Metadata      internal.RequestMetadata `json:"metadata"`
}

// LogEntry is a persisted audit record.
type LogEntry struct {
	ID            string                   `json:"id"`
	ActorID       int64                    `json:"actor_id"`
	TargetUsers   []int64                  `json:"target_users"`
	OperationType string                   `json:"operation_type"`
	BeforeState   interface{}              `json:"before_state,omitempty"`
	AfterState    interface{}              `json:"after_state,omitempty"`
	Details       string                   `json:"details,omitempty"`
	Status        string                   `json:"status"`
	ErrorMessage  string                   `json:"error_message,omitempty"`
	Metadata      internal.RequestMetadata `json:"metadata"`
	CreatedAt     time.Time                `json:"created_at"`
}

// QueryFilter narrows audit log listings.
type QueryFilter struct {
	ActorID       int64
	TargetUserID  int64
	OperationType string
	From          time.Time
	To            time.Time
	Limit         int
	Offset        int
}
