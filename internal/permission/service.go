package permission

import (
	"context"
	"log/slog"
	"time"

	"github.com/workstream/access-management/internal"
)

// Repository defines the data access methods for permissions.
type Repository interface {
	Create(ctx context.Context, p *Permission) error
	GetByID(ctx context.Context, id int64) (*Permission, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*Permission, error)
	GetByCode(ctx context.Context, code string) (*Permission, error)
	List(ctx context.Context, filter ListFilter) ([]*Permission, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	CountReferences(ctx context.Context, id int64) (int64, error)
	Delete(ctx context.Context, id int64) error
}

// CacheInvalidator drops resolved-permission cache entries. Permission
// mutations can affect any number of users, so the manager clears the whole
// family.
type CacheInvalidator interface {
	InvalidateAll(ctx context.Context) error
	InvalidateUser(ctx context.Context, userID int64) error
}

// Service handles permission management business logic.
type Service struct {
	repo        Repository
	invalidator CacheInvalidator
	logger      *slog.Logger
}

func NewService(repo Repository, invalidator CacheInvalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		invalidator: invalidator,
		logger:      logger,
	}
}

// CreatePermission registers a new capability, rejecting duplicate codes.
func (s *Service) CreatePermission(ctx context.Context, dto CreatePermissionDTO) (*Permission, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("permission validation failed", "error", err, "code", dto.Code)
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	existing, err := s.repo.GetByCode(ctx, dto.Code)
	if err != nil && err != ErrPermissionNotFound {
		s.logger.Error("failed to check permission code", "error", err, "code", dto.Code)
		return nil, err
	}
	if existing != nil {
		s.logger.Warn("permission code already exists", "code", dto.Code)
		return nil, ErrCodeAlreadyExists
	}

	now := time.Now()
	p := &Permission{
		Code:        dto.Code,
		Name:        dto.Name,
		Description: dto.Description,
		Module:      dto.Module,
		Type:        dto.Type,
		Status:      StatusEnabled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.logger.Error("failed to create permission", "error", err, "code", dto.Code)
		return nil, err
	}

	if err := s.invalidator.InvalidateAll(ctx); err != nil {
		s.logger.Warn("cache invalidation failed after permission create", "error", err)
	}

	s.logger.Info("permission created", "permission_id", p.ID, "code", p.Code, "module", p.Module)
	return p, nil
}

func (s *Service) GetPermission(ctx context.Context, id int64) (*Permission, error) {
	return s.repo.GetByID(ctx, id)
}

// ExistingIDs returns the subset of ids that resolve to stored permissions.
// Assignment workflows use it to verify references before writing.
func (s *Service) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]int64, len(found))
	for i, p := range found {
		out[i] = p.ID
	}
	return out, nil
}

func (s *Service) ListPermissions(ctx context.Context, filter ListFilter) ([]*Permission, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// UpdateStatus soft-enables or soft-disables a permission and clears the
// whole resolved-permission cache family.
func (s *Service) UpdateStatus(ctx context.Context, id int64, dto UpdateStatusDTO) (*Permission, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, dto.Status); err != nil {
		s.logger.Error("failed to update permission status", "error", err, "permission_id", id)
		return nil, err
	}
	p.Status = dto.Status

	if err := s.invalidator.InvalidateAll(ctx); err != nil {
		s.logger.Warn("cache invalidation failed after permission status update", "error", err)
	}

	s.logger.Info("permission status updated", "permission_id", id, "status", dto.Status)
	return p, nil
}

// DeletePermission removes a permission only when nothing references it.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}

	refs, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		s.logger.Error("failed to count permission references", "error", err, "permission_id", id)
		return err
	}
	if refs > 0 {
		s.logger.Warn("delete rejected: permission still referenced", "permission_id", id, "references", refs)
		return ErrPermissionInUse
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete permission", "error", err, "permission_id", id)
		return err
	}

	if err := s.invalidator.InvalidateAll(ctx); err != nil {
		s.logger.Warn("cache invalidation failed after permission delete", "error", err)
	}

	s.logger.Info("permission deleted", "permission_id", id)
	return nil
}
