package scoperule

import (
	"errors"
	"fmt"

	"github.com/workstream/access-management/internal/access"
)

var fieldOperators = map[string]bool{
	"eq": true, "ne": true,
	"gt": true, "lt": true, "gte": true, "lte": true,
	"in": true, "nin": true,
	"contains": true,
}

// CreateRuleDTO is the request payload for creating a data-scope rule.
// ApplyTo names the users the rule activates for.
type CreateRuleDTO struct {
	Name         string                 `json:"name"`
	PermissionID int64                  `json:"permission_id"`
	Module       string                 `json:"module"`
	RuleType     string                 `json:"rule_type"`
	Conditions   map[string]interface{} `json:"conditions"`
	ApplyTo      []int64                `json:"apply_to"`
}

func (dto CreateRuleDTO) Validate() error {
	if dto.Name == "" {
		return errors.New("name is required")
	}
	if dto.PermissionID <= 0 {
		return errors.New("permission_id is required")
	}
	if dto.Module == "" {
		return errors.New("module is required")
	}
	if len(dto.ApplyTo) == 0 {
		return errors.New("apply_to is required")
	}
	return validateConditions(dto.RuleType, dto.Conditions)
}

// validateConditions enforces the per-type shape of the conditions document
// so the evaluator never sees a malformed rule.
func validateConditions(ruleType string, conditions map[string]interface{}) error {
	switch ruleType {
	case access.RuleTypeDepartment:
		return requireNonEmptyList(conditions, "departments")
	case access.RuleTypeUser:
		return requireNonEmptyList(conditions, "users")
	case access.RuleTypeRole:
		return requireNonEmptyList(conditions, "roles")
	case access.RuleTypeField:
		field, _ := conditions["field"].(string)
		if field == "" {
			return errors.New("conditions.field is required")
		}
		operator, _ := conditions["operator"].(string)
		if !fieldOperators[operator] {
			return fmt.Errorf("unsupported operator %q", operator)
		}
		if _, ok := conditions["value"]; !ok {
			return errors.New("conditions.value is required")
		}
		return nil
	case access.RuleTypeCondition:
		expression, _ := conditions["expression"].(string)
		if expression == "" {
			return errors.New("conditions.expression is required")
		}
		// parse it now so a typo fails at creation, not at evaluation
		probe := map[string]interface{}{
			"user":   map[string]interface{}{"id": int64(0)},
			"target": map[string]interface{}{},
		}
		if _, err := access.EvaluateExpression(expression, probe); err != nil {
			return fmt.Errorf("invalid expression: %v", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported rule type %q", ruleType)
	}
}

func requireNonEmptyList(conditions map[string]interface{}, key string) error {
	list, ok := conditions[key].([]interface{})
	if !ok || len(list) == 0 {
		return fmt.Errorf("conditions.%s must be a non-empty list", key)
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

// ListFilter narrows rule listings.
type ListFilter struct {
	PermissionID int64
	Module       string
	RuleType     string
	Status       string
	Limit        int
	Offset       int
}
