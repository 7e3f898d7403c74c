package postgres

import (
	"context"
	"encoding/json"

	"github.com/workstream/access-management/internal/access"
	ruledata "github.com/workstream/access-management/internal/core/datamodel/scoperule"
	ruleDomain "github.com/workstream/access-management/internal/scoperule"
	"gorm.io/gorm"
)

// ScopeRuleRepository implements the scoperule.Repository interface and the
// resolver's rule lookup using GORM.
type ScopeRuleRepository struct {
	db *gorm.DB
}

func NewScopeRuleRepository(db *gorm.DB) *ScopeRuleRepository {
	return &ScopeRuleRepository{db: db}
}

func (r *ScopeRuleRepository) Create(ctx context.Context, rule *ruleDomain.Rule) error {
	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := &ruledata.DataScopeRule{
			Name:           rule.Name,
			PermissionID:   rule.PermissionID,
			Module:         rule.Module,
			RuleType:       rule.RuleType,
			RuleConditions: string(conditions),
			Status:         rule.Status,
			CreatedBy:      rule.CreatedBy,
			CreatedAt:      rule.CreatedAt,
			UpdatedAt:      rule.UpdatedAt,
		}
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		rule.ID = model.ID

		if len(rule.AppliedUsers) == 0 {
			return nil
		}
		links := make([]ruledata.DataScopeRuleUser, len(rule.AppliedUsers))
		for i, userID := range rule.AppliedUsers {
			links[i] = ruledata.DataScopeRuleUser{RuleID: model.ID, UserID: userID}
		}
		return tx.Create(&links).Error
	})
}

func (r *ScopeRuleRepository) GetByID(ctx context.Context, id int64) (*ruleDomain.Rule, error) {
	var model ruledata.DataScopeRule
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ruleDomain.ErrRuleNotFound
		}
		return nil, err
	}
	return r.hydrate(ctx, &model)
}

func (r *ScopeRuleRepository) List(ctx context.Context, filter ruleDomain.ListFilter) ([]*ruleDomain.Rule, error) {
	query := r.db.WithContext(ctx).Model(&ruledata.DataScopeRule{})
	if filter.PermissionID > 0 {
		query = query.Where("permission_id = ?", filter.PermissionID)
	}
	if filter.Module != "" {
		query = query.Where("module = ?", filter.Module)
	}
	if filter.RuleType != "" {
		query = query.Where("rule_type = ?", filter.RuleType)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var models []*ruledata.DataScopeRule
	err := query.Order("id ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	rules := make([]*ruleDomain.Rule, 0, len(models))
	for _, m := range models {
		rule, err := r.hydrate(ctx, m)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (r *ScopeRuleRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).Model(&ruledata.DataScopeRule{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *ScopeRuleRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("rule_id = ?", id).
			Delete(&ruledata.DataScopeRuleUser{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&ruledata.DataScopeRule{}).Error
	})
}

// GetActiveRules loads the enabled rules active for a user on a
// (permission, module) pair, with their conditions decoded for the
// evaluator. Rules whose conditions fail to decode are skipped.
func (r *ScopeRuleRepository) GetActiveRules(ctx context.Context, permissionCode, module string, userID int64) ([]access.Rule, error) {
	var models []ruledata.DataScopeRule
	err := r.db.WithContext(ctx).
		Table("data_scope_rules AS dsr").
		Select("dsr.*").
		Joins("JOIN permissions p ON p.id = dsr.permission_id").
		Joins("JOIN data_scope_rule_users dsru ON dsru.rule_id = dsr.id").
		Where("p.code = ?", permissionCode).
		Where("dsr.module = ?", module).
		Where("dsru.user_id = ?", userID).
		Where("dsr.status = ?", ruleDomain.StatusEnabled).
		Order("dsr.id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	rules := make([]access.Rule, 0, len(models))
	for _, m := range models {
		var conditions map[string]interface{}
		if err := json.Unmarshal([]byte(m.RuleConditions), &conditions); err != nil {
			continue
		}
		rules = append(rules, access.Rule{
			ID:         m.ID,
			RuleType:   m.RuleType,
			Conditions: conditions,
		})
	}
	return rules, nil
}

func (r *ScopeRuleRepository) hydrate(ctx context.Context, model *ruledata.DataScopeRule) (*ruleDomain.Rule, error) {
	var conditions map[string]interface{}
	if err := json.Unmarshal([]byte(model.RuleConditions), &conditions); err != nil {
		return nil, err
	}

	var userIDs []int64
	err := r.db.WithContext(ctx).Model(&ruledata.DataScopeRuleUser{}).
		Where("rule_id = ?", model.ID).
		Order("user_id ASC").
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}

	return &ruleDomain.Rule{
		ID:           model.ID,
		Name:         model.Name,
		PermissionID: model.PermissionID,
		Module:       model.Module,
		RuleType:     model.RuleType,
		Conditions:   conditions,
		Status:       model.Status,
		CreatedBy:    model.CreatedBy,
		AppliedUsers: userIDs,
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}, nil
}
