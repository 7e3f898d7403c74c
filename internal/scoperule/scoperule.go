package scoperule

import (
	"time"

	"github.com/workstream/access-management/internal"
)

// Rule is an administrator-defined data-scope policy. Conditions is a JSON
// document whose required keys depend on RuleType; AppliedUsers lists the
// users the rule is active for.
type Rule struct {
	ID           int64                  `json:"id"`
	Name         string                 `json:"name"`
	PermissionID int64                  `json:"permission_id"`
	Module       string                 `json:"module"`
	RuleType     string                 `json:"rule_type"`
	Conditions   map[string]interface{} `json:"conditions"`
	Status       string                 `json:"status"`
	CreatedBy    int64                  `json:"created_by"`
	AppliedUsers []int64                `json:"applied_users"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

const (
	StatusEnabled  = "enabled"
	StatusDisabled = "disabled"
)

var (
	ErrRuleNotFound = internal.NewNotFoundError("data scope rule not found", internal.ErrCodeRuleNotFound)
)
