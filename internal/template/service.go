package template

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/workstream/access-management/internal"
	"github.com/workstream/access-management/internal/audit"
	"github.com/workstream/access-management/internal/role"
)

// Repository defines the data access methods for templates. Create demotes
// any existing default when the new template claims the default slot.
type Repository interface {
	Create(ctx context.Context, t *Template) error
	GetByID(ctx context.Context, id int64) (*Template, error)
	GetByName(ctx context.Context, name string) (*Template, error)
	GetDefault(ctx context.Context) (*Template, error)
	List(ctx context.Context, filter ListFilter) ([]*Template, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
}

// PermissionReader verifies referenced permission ids exist.
type PermissionReader interface {
	ExistingIDs(ctx context.Context, permissionIDs []int64) ([]int64, error)
}

// BatchAssigner applies a permission set to many users. The role manager
// provides it and records the batch's own batch_assign audit entry.
type BatchAssigner interface {
	ApplyPermissionSet(ctx context.Context, dto role.BatchAssignDTO, operatorID int64, meta internal.RequestMetadata, details string) (*role.BatchResult, error)
}

// AuditRecorder persists the template_apply entry written on top of the
// delegated batch's entry.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) *audit.LogEntry
}

// Service handles template management and application.
type Service struct {
	repo        Repository
	permissions PermissionReader
	assigner    BatchAssigner
	auditor     AuditRecorder
	logger      *slog.Logger
}

func NewService(repo Repository, permissions PermissionReader, assigner BatchAssigner, auditor AuditRecorder, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		permissions: permissions,
		assigner:    assigner,
		auditor:     auditor,
		logger:      logger,
	}
}

// CreateTemplate registers a reusable permission bundle. Claiming the default
// slot demotes the previous default.
func (s *Service) CreateTemplate(ctx context.Context, dto CreateTemplateDTO, operatorID int64) (*Template, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("template validation failed", "error", err, "name", dto.Name)
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	existing, err := s.repo.GetByName(ctx, dto.Name)
	if err != nil && err != ErrTemplateNotFound {
		return nil, err
	}
	if existing != nil {
		s.logger.Warn("template name already exists", "name", dto.Name)
		return nil, ErrTemplateNameExists
	}

	permissionIDs := make([]int64, len(dto.Permissions))
	pairs := make([]PermissionPair, len(dto.Permissions))
	for i, p := range dto.Permissions {
		permissionIDs[i] = p.PermissionID
		pairs[i] = PermissionPair{PermissionID: p.PermissionID, DataScope: p.DataScope}
	}
	if err := s.verifyPermissionsExist(ctx, permissionIDs); err != nil {
		return nil, err
	}

	now := time.Now()
	t := &Template{
		Name:        dto.Name,
		Description: dto.Description,
		IsDefault:   dto.IsDefault,
		Status:      StatusEnabled,
		CreatedBy:   operatorID,
		Permissions: pairs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		s.logger.Error("failed to create template", "error", err, "name", dto.Name)
		return nil, err
	}

	s.logger.Info("template created", "template_id", t.ID, "name", t.Name, "is_default", t.IsDefault)
	return t, nil
}

func (s *Service) GetTemplate(ctx context.Context, id int64) (*Template, error) {
	return s.repo.GetByID(ctx, id)
}

// GetDefaultTemplate returns the current default bundle, typically applied
// to newly onboarded users.
func (s *Service) GetDefaultTemplate(ctx context.Context) (*Template, error) {
	return s.repo.GetDefault(ctx)
}

func (s *Service) ListTemplates(ctx context.Context, filter ListFilter) ([]*Template, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) UpdateStatus(ctx context.Context, id int64, dto UpdateStatusDTO) (*Template, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, dto.Status); err != nil {
		s.logger.Error("failed to update template status", "error", err, "template_id", id)
		return nil, err
	}
	t.Status = dto.Status

	s.logger.Info("template status updated", "template_id", id, "status", dto.Status)
	return t, nil
}

// ApplyTemplate grants the template's permission set to every listed user via
// the batch-assignment path. Disabled templates cannot be applied.
func (s *Service) ApplyTemplate(ctx context.Context, templateID int64, dto ApplyTemplateDTO, operatorID int64, meta internal.RequestMetadata) (*role.BatchResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	t, err := s.repo.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if t.Status != StatusEnabled {
		s.logger.Warn("apply rejected: template disabled", "template_id", templateID)
		return nil, ErrTemplateDisabled
	}

	permissionIDs := make([]int64, len(t.Permissions))
	for i, p := range t.Permissions {
		permissionIDs[i] = p.PermissionID
	}

	result, err := s.assigner.ApplyPermissionSet(ctx, role.BatchAssignDTO{
		UserIDs:       dto.UserIDs,
		PermissionIDs: permissionIDs,
	}, operatorID, meta, fmt.Sprintf("apply template %s", t.Name))
	if err != nil {
		return nil, err
	}

	// the delegated batch wrote its batch_assign entry; the application
	// itself gets a distinct template_apply entry
	status := audit.StatusSuccess
	if result.Failed > 0 {
		status = audit.StatusFailed
	}
	s.auditor.Record(ctx, audit.Entry{
		ActorID:       operatorID,
		TargetUsers:   dto.UserIDs,
		OperationType: audit.OpTemplateApply,
		AfterState: map[string]interface{}{
			"template_id":    t.ID,
			"permission_ids": permissionIDs,
			"succeeded":      result.Succeeded,
			"failed":         result.Failed,
		},
		Details:  fmt.Sprintf("apply template %s", t.Name),
		Status:   status,
		Metadata: meta,
	})

	s.logger.Info("template applied",
		"template_id", templateID,
		"users", len(dto.UserIDs),
		"succeeded", result.Succeeded,
		"failed", result.Failed)
	return result, nil
}

func (s *Service) verifyPermissionsExist(ctx context.Context, permissionIDs []int64) error {
	found, err := s.permissions.ExistingIDs(ctx, permissionIDs)
	if err != nil {
		return err
	}
	present := make(map[int64]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	var missing []int64
	for _, id := range permissionIDs {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return internal.NewNotFoundError("permission not found", internal.ErrCodePermissionNotFound).
			WithDetails(map[string]interface{}{"missing_permission_ids": missing})
	}
	return nil
}
