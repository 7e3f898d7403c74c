package access

import (
	"context"
	"strings"
)

// Rule types for data-scope rules.
const (
	RuleTypeDepartment = "department"
	RuleTypeUser       = "user"
	RuleTypeRole       = "role"
	RuleTypeField      = "field"
	RuleTypeCondition  = "condition"
)

// EvaluateEnhanced layers data-scope rules on top of the base weighted-scope
// check. Rules have OR semantics: any matching rule grants access, overriding
// a base deny. With no matching rule the base answer stands.
func (s *Service) EvaluateEnhanced(ctx context.Context, userID int64, code string, target map[string]interface{}, module string) (bool, error) {
	base, err := s.CheckPermission(ctx, userID, code, target)
	if err != nil {
		return false, err
	}

	if module == "" {
		return base, nil
	}

	rules, err := s.rules.GetActiveRules(ctx, code, module, userID)
	if err != nil {
		s.logger.Error("failed to load data-scope rules", "error", err,
			"user_id", userID, "permission", code, "module", module)
		return false, ErrPermissionLookupFailed.WithCause(err)
	}

	for _, rule := range rules {
		granted, err := s.evaluateRule(ctx, userID, rule, target)
		if err != nil {
			s.logger.Warn("data-scope rule evaluation failed, skipping rule",
				"error", err, "rule_id", rule.ID, "rule_type", rule.RuleType)
			continue
		}
		if granted {
			return true, nil
		}
	}

	return base, nil
}

func (s *Service) evaluateRule(ctx context.Context, userID int64, rule Rule, target map[string]interface{}) (bool, error) {
	switch rule.RuleType {
	case RuleTypeDepartment:
		department, ok := stringField(target, "department")
		if !ok {
			return false, nil
		}
		return containsValue(rule.Conditions["departments"], department), nil

	case RuleTypeUser:
		createdBy, ok := int64Field(target, "created_by")
		if !ok {
			return false, nil
		}
		return containsValue(rule.Conditions["users"], createdBy), nil

	case RuleTypeRole:
		resolved, err := s.GetUserPermissions(ctx, userID)
		if err != nil {
			return false, err
		}
		ids, _ := rule.Conditions["roles"].([]interface{})
		for _, v := range ids {
			if f, ok := toFloat64(v); ok && resolved.HasRole(int64(f)) {
				return true, nil
			}
		}
		return false, nil

	case RuleTypeField:
		field, _ := rule.Conditions["field"].(string)
		operator, _ := rule.Conditions["operator"].(string)
		actual, found := LookupField(target, field)
		return compareValues(operator, actual, found, rule.Conditions["value"]), nil

	case RuleTypeCondition:
		expression, _ := rule.Conditions["expression"].(string)
		exprCtx := map[string]interface{}{
			"user":   map[string]interface{}{"id": userID},
			"target": target,
		}
		return EvaluateExpression(expression, exprCtx)
	}

	return false, nil
}

// LookupField resolves a dotted path by sequential key descent. A missing
// intermediate or leaf key yields found=false ("undefined").
func LookupField(data map[string]interface{}, path string) (interface{}, bool) {
	if path == "" || data == nil {
		return nil, false
	}

	var current interface{} = data
	for _, key := range strings.Split(path, ".") {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = node[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// compareValues applies a field-rule operator. Every comparison against an
// undefined value is false except ne and nin.
func compareValues(operator string, actual interface{}, found bool, expected interface{}) bool {
	if !found {
		return operator == "ne" || operator == "nin"
	}

	switch operator {
	case "eq":
		return looseEqual(actual, expected)
	case "ne":
		return !looseEqual(actual, expected)
	case "gt", "lt", "gte", "lte":
		a, aok := toFloat64(actual)
		b, bok := toFloat64(expected)
		if !aok || !bok {
			return false
		}
		switch operator {
		case "gt":
			return a > b
		case "lt":
			return a < b
		case "gte":
			return a >= b
		default:
			return a <= b
		}
	case "in":
		return containsValue(expected, actual)
	case "nin":
		return !containsValue(expected, actual)
	case "contains":
		a, aok := actual.(string)
		b, bok := expected.(string)
		if aok && bok {
			return strings.Contains(a, b)
		}
		return containsValue(actual, expected)
	}

	return false
}

// looseEqual compares values normalizing numeric types, since decoded JSON
// carries float64 while store values may be int64.
func looseEqual(a, b interface{}) bool {
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			return af == bf
		}
		return false
	}
	return a == b
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

// containsValue reports membership of needle in a decoded JSON array.
func containsValue(haystack interface{}, needle interface{}) bool {
	list, ok := haystack.([]interface{})
	if !ok {
		return false
	}
	for _, item := range list {
		if looseEqual(item, needle) {
			return true
		}
	}
	return false
}
