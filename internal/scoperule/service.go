package scoperule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/workstream/access-management/internal"
	"github.com/workstream/access-management/internal/audit"
)

// Repository defines the data access methods for data-scope rules.
type Repository interface {
	Create(ctx context.Context, rule *Rule) error
	GetByID(ctx context.Context, id int64) (*Rule, error)
	List(ctx context.Context, filter ListFilter) ([]*Rule, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
}

// PermissionByID resolves a permission id to its code, verifying it exists.
type PermissionByID interface {
	ExistingIDs(ctx context.Context, permissionIDs []int64) ([]int64, error)
}

// UserReader verifies the users a rule applies to.
type UserReader interface {
	ExistingIDs(ctx context.Context, userIDs []int64) ([]int64, error)
}

// AuditRecorder appends assignment log entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) *audit.LogEntry
}

// CacheInvalidator drops resolved-permission cache entries.
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID int64) error
}

// Service handles data-scope rule management.
type Service struct {
	repo        Repository
	permissions PermissionByID
	users       UserReader
	auditor     AuditRecorder
	invalidator CacheInvalidator
	logger      *slog.Logger
}

func NewService(repo Repository, permissions PermissionByID, users UserReader, auditor AuditRecorder, invalidator CacheInvalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		permissions: permissions,
		users:       users,
		auditor:     auditor,
		invalidator: invalidator,
		logger:      logger,
	}
}

// CreateRule stores a data-scope rule and activates it for the listed users.
func (s *Service) CreateRule(ctx context.Context, dto CreateRuleDTO, operatorID int64, meta internal.RequestMetadata) (*Rule, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("rule validation failed", "error", err, "name", dto.Name)
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeInvalidRuleConditions)
	}

	found, err := s.permissions.ExistingIDs(ctx, []int64{dto.PermissionID})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, internal.NewNotFoundError("permission not found", internal.ErrCodePermissionNotFound)
	}

	foundUsers, err := s.users.ExistingIDs(ctx, dto.ApplyTo)
	if err != nil {
		return nil, err
	}
	if len(foundUsers) != len(dedupe(dto.ApplyTo)) {
		return nil, internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
	}

	now := time.Now()
	rule := &Rule{
		Name:         dto.Name,
		PermissionID: dto.PermissionID,
		Module:       dto.Module,
		RuleType:     dto.RuleType,
		Conditions:   dto.Conditions,
		Status:       StatusEnabled,
		CreatedBy:    operatorID,
		AppliedUsers: dedupe(dto.ApplyTo),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, rule); err != nil {
		s.logger.Error("failed to create rule", "error", err, "name", dto.Name)
		return nil, err
	}

	for _, userID := range rule.AppliedUsers {
		if err := s.invalidator.InvalidateUser(ctx, userID); err != nil {
			s.logger.Warn("cache invalidation failed after rule create", "error", err, "user_id", userID)
		}
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:       operatorID,
		TargetUsers:   rule.AppliedUsers,
		OperationType: audit.OpCustomDataRule,
		AfterState:    map[string]interface{}{"rule_id": rule.ID, "rule_type": rule.RuleType},
		Details:       fmt.Sprintf("create data scope rule %s", rule.Name),
		Status:        audit.StatusSuccess,
		Metadata:      meta,
	})

	s.logger.Info("data scope rule created",
		"rule_id", rule.ID,
		"rule_type", rule.RuleType,
		"permission_id", rule.PermissionID,
		"module", rule.Module,
		"applied_users", len(rule.AppliedUsers))
	return rule, nil
}

func (s *Service) GetRule(ctx context.Context, id int64) (*Rule, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListRules(ctx context.Context, filter ListFilter) ([]*Rule, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// UpdateStatus soft-enables or soft-disables a rule and drops the cache for
// every affected user.
func (s *Service) UpdateStatus(ctx context.Context, id int64, dto UpdateStatusDTO) (*Rule, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	rule, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, dto.Status); err != nil {
		s.logger.Error("failed to update rule status", "error", err, "rule_id", id)
		return nil, err
	}
	rule.Status = dto.Status

	for _, userID := range rule.AppliedUsers {
		if err := s.invalidator.InvalidateUser(ctx, userID); err != nil {
			s.logger.Warn("cache invalidation failed after rule status update", "error", err, "user_id", userID)
		}
	}

	s.logger.Info("rule status updated", "rule_id", id, "status", dto.Status)
	return rule, nil
}

// DeleteRule removes a rule and its user links.
func (s *Service) DeleteRule(ctx context.Context, id int64) error {
	rule, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete rule", "error", err, "rule_id", id)
		return err
	}

	for _, userID := range rule.AppliedUsers {
		if err := s.invalidator.InvalidateUser(ctx, userID); err != nil {
			s.logger.Warn("cache invalidation failed after rule delete", "error", err, "user_id", userID)
		}
	}

	s.logger.Info("data scope rule deleted", "rule_id", id)
	return nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
