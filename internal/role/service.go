package role

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/workstream/access-management/internal"
	"github.com/workstream/access-management/internal/access"
	"github.com/workstream/access-management/internal/audit"
)

// Repository defines the data access methods for roles and user-role
// associations.
type Repository interface {
	CreateRole(ctx context.Context, r *Role) error
	GetRoleByID(ctx context.Context, id int64) (*Role, error)
	GetRoleByCode(ctx context.Context, code string) (*Role, error)
	ListRoles(ctx context.Context, filter ListFilter) ([]*Role, error)
	UpdateRoleStatus(ctx context.Context, id int64, status string) error
	GetRolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error)
	// ReplaceRolePermissions rewrites the role's permission set if and only
	// if the stored version still equals expectedVersion, bumping it by one.
	// Returns ErrVersionConflict otherwise.
	ReplaceRolePermissions(ctx context.Context, roleID, expectedVersion int64, pairs []PermissionPair) error
	CreateUserRole(ctx context.Context, ur *UserRole) error
	GetUserRole(ctx context.Context, userID, roleID int64) (*UserRole, error)
	GetUserRoles(ctx context.Context, userID int64) ([]*UserRole, error)
	UpdateUserRoleStatus(ctx context.Context, id int64, status string) error
}

// UserReader verifies assignment targets against the application's user store.
type UserReader interface {
	Exists(ctx context.Context, userID int64) (bool, error)
	ExistingIDs(ctx context.Context, userIDs []int64) ([]int64, error)
}

// PermissionReader verifies referenced permission ids exist.
type PermissionReader interface {
	ExistingIDs(ctx context.Context, permissionIDs []int64) ([]int64, error)
}

// AuditRecorder appends assignment log entries; failures are its own concern
// and never propagate here.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) *audit.LogEntry
}

// CacheInvalidator drops resolved-permission cache entries.
type CacheInvalidator interface {
	InvalidateAll(ctx context.Context) error
	InvalidateUser(ctx context.Context, userID int64) error
}

// casRetries bounds optimistic-concurrency retries on the custom role's
// read-modify-write sequence.
const casRetries = 3

// Service handles role management and the assignment workflows.
type Service struct {
	repo        Repository
	users       UserReader
	permissions PermissionReader
	auditor     AuditRecorder
	invalidator CacheInvalidator
	logger      *slog.Logger
}

func NewService(repo Repository, users UserReader, permissions PermissionReader, auditor AuditRecorder, invalidator CacheInvalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		users:       users,
		permissions: permissions,
		auditor:     auditor,
		invalidator: invalidator,
		logger:      logger,
	}
}

// CreateRole creates an administrator-defined role with its permission pairs.
func (s *Service) CreateRole(ctx context.Context, dto CreateRoleDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("role validation failed", "error", err, "code", dto.Code)
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	existing, err := s.repo.GetRoleByCode(ctx, dto.Code)
	if err != nil && err != ErrRoleNotFound {
		return nil, err
	}
	if existing != nil {
		s.logger.Warn("role code already exists", "code", dto.Code)
		return nil, ErrRoleCodeExists
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
	r := &Role{
		Code:        dto.Code,
		Name:        dto.Name,
		Description: dto.Description,
		Status:      StatusEnabled,
		Permissions: pairs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateRole(ctx, r); err != nil {
		s.logger.Error("failed to create role", "error", err, "code", dto.Code)
		return nil, err
	}

	if err := s.invalidator.InvalidateAll(ctx); err != nil {
		s.logger.Warn("cache invalidation failed after role create", "error", err)
	}

	s.logger.Info("role created", "role_id", r.ID, "code", r.Code, "permissions", len(pairs))
	return r, nil
}

func (s *Service) GetRole(ctx context.Context, id int64) (*Role, error) {
	return s.repo.GetRoleByID(ctx, id)
}

func (s *Service) ListRoles(ctx context.Context, filter ListFilter) ([]*Role, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.ListRoles(ctx, filter)
}

// UpdateRoleStatus soft-enables or soft-disables a role. Any number of users
// may hold the role, so the whole cache family is cleared.
func (s *Service) UpdateRoleStatus(ctx context.Context, id int64, dto UpdateStatusDTO) (*Role, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	r, err := s.repo.GetRoleByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRoleStatus(ctx, id, dto.Status); err != nil {
		s.logger.Error("failed to update role status", "error", err, "role_id", id)
		return nil, err
	}
	r.Status = dto.Status

	if err := s.invalidator.InvalidateAll(ctx); err != nil {
		s.logger.Warn("cache invalidation failed after role status update", "error", err)
	}

	s.logger.Info("role status updated", "role_id", id, "status", dto.Status)
	return r, nil
}

// AssignUserRole associates a user with a role, rejecting duplicates.
func (s *Service) AssignUserRole(ctx context.Context, dto AssignUserRoleDTO, operatorID int64, meta internal.RequestMetadata) (*UserRole, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	exists, err := s.users.Exists(ctx, dto.UserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	r, err := s.repo.GetRoleByID(ctx, dto.RoleID)
	if err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetUserRole(ctx, dto.UserID, dto.RoleID); err != nil {
		return nil, err
	} else if existing != nil {
		s.logger.Warn("user already holds role", "user_id", dto.UserID, "role_id", dto.RoleID)
		return nil, ErrUserRoleExists
	}

	ur := &UserRole{
		UserID:     dto.UserID,
		RoleID:     dto.RoleID,
		Department: dto.Department,
		Status:     StatusEnabled,
		CreatedBy:  operatorID,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.CreateUserRole(ctx, ur); err != nil {
		s.logger.Error("failed to assign role", "error", err, "user_id", dto.UserID, "role_id", dto.RoleID)
		s.auditor.Record(ctx, audit.Entry{
			ActorID:       operatorID,
			TargetUsers:   []int64{dto.UserID},
			OperationType: audit.OpRoleAssign,
			Details:       fmt.Sprintf("assign role %s", r.Code),
			Status:        audit.StatusFailed,
			ErrorMessage:  err.Error(),
			Metadata:      meta,
		})
		return nil, err
	}

	if err := s.invalidator.InvalidateUser(ctx, dto.UserID); err != nil {
		s.logger.Warn("cache invalidation failed after role assignment", "error", err, "user_id", dto.UserID)
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:       operatorID,
		TargetUsers:   []int64{dto.UserID},
		OperationType: audit.OpRoleAssign,
		AfterState:    map[string]interface{}{"role_id": dto.RoleID, "role_code": r.Code},
		Details:       fmt.Sprintf("assign role %s", r.Code),
		Status:        audit.StatusSuccess,
		Metadata:      meta,
	})

	s.logger.Info("role assigned", "user_id", dto.UserID, "role_id", dto.RoleID, "operator_id", operatorID)
	return ur, nil
}

// ListUserRoles returns every role association of the user, enabled or not.
func (s *Service) ListUserRoles(ctx context.Context, userID int64) ([]*UserRole, error) {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}
	return s.repo.GetUserRoles(ctx, userID)
}

// UpdateUserRoleStatus soft-enables or soft-disables a user's role
// association. The association row stays; only its status changes.
func (s *Service) UpdateUserRoleStatus(ctx context.Context, userID, roleID int64, dto UpdateStatusDTO, operatorID int64, meta internal.RequestMetadata) (*UserRole, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	ur, err := s.repo.GetUserRole(ctx, userID, roleID)
	if err != nil {
		return nil, err
	}
	if ur == nil {
		return nil, ErrUserRoleNotFound
	}
	if ur.Status == dto.Status {
		return ur, nil
	}

	if err := s.repo.UpdateUserRoleStatus(ctx, ur.ID, dto.Status); err != nil {
		s.logger.Error("failed to update user role status", "error", err,
			"user_id", userID, "role_id", roleID)
		return nil, err
	}

	if err := s.invalidator.InvalidateUser(ctx, userID); err != nil {
		s.logger.Warn("cache invalidation failed after user role status change",
			"error", err, "user_id", userID)
	}

	s.auditor.Record(ctx, audit.Entry{
		ActorID:       operatorID,
		TargetUsers:   []int64{userID},
		OperationType: audit.OpRoleAssign,
		BeforeState:   map[string]interface{}{"role_id": roleID, "status": ur.Status},
		AfterState:    map[string]interface{}{"role_id": roleID, "status": dto.Status},
		Details:       fmt.Sprintf("set user role status to %s", dto.Status),
		Status:        audit.StatusSuccess,
		Metadata:      meta,
	})

	ur.Status = dto.Status
	return ur, nil
}

// AssignUserPermissions grants a user an exact permission set through the
// synthesized custom role, replacing whatever direct grants existed before.
func (s *Service) AssignUserPermissions(ctx context.Context, userID int64, dto AssignPermissionsDTO, operatorID int64, meta internal.RequestMetadata) error {
	if err := dto.Validate(); err != nil {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}
	if err := s.verifyPermissionsExist(ctx, dto.PermissionIDs); err != nil {
		return err
	}

	before, after, err := s.assignToCustomRole(ctx, userID, dto.PermissionIDs, false, operatorID)

	entry := audit.Entry{
		ActorID:       operatorID,
		TargetUsers:   []int64{userID},
		OperationType: audit.OpDirectPermission,
		BeforeState:   map[string]interface{}{"permission_ids": before},
		AfterState:    map[string]interface{}{"permission_ids": after},
		Details:       fmt.Sprintf("direct assignment of %d permissions", len(dto.PermissionIDs)),
		Status:        audit.StatusSuccess,
		Metadata:      meta,
	}
	if err != nil {
		entry.Status = audit.StatusFailed
		entry.ErrorMessage = err.Error()
		s.auditor.Record(ctx, entry)
		return err
	}
	s.auditor.Record(ctx, entry)

	if err := s.invalidator.InvalidateUser(ctx, userID); err != nil {
		s.logger.Warn("cache invalidation failed after direct assignment", "error", err, "user_id", userID)
	}

	s.logger.Info("permissions assigned directly",
		"user_id", userID,
		"permissions", len(dto.PermissionIDs),
		"operator_id", operatorID)
	return nil
}

// BatchAssignPermissions grants permissions to many users. The existence of
// every user and permission is verified before any mutation; after that,
// per-user failures are isolated and reported in the result.
func (s *Service) BatchAssignPermissions(ctx context.Context, dto BatchAssignDTO, operatorID int64, meta internal.RequestMetadata) (*BatchResult, error) {
	return s.batchAssign(ctx, dto, operatorID, meta, audit.OpBatchAssign, "")
}

// ApplyPermissionSet is the template-application entry: a batch assignment
// audited as such, with the caller's details. The template manager records
// its own template_apply entry on top of the batch entry written here.
func (s *Service) ApplyPermissionSet(ctx context.Context, dto BatchAssignDTO, operatorID int64, meta internal.RequestMetadata, details string) (*BatchResult, error) {
	return s.batchAssign(ctx, dto, operatorID, meta, audit.OpBatchAssign, details)
}

func (s *Service) batchAssign(ctx context.Context, dto BatchAssignDTO, operatorID int64, meta internal.RequestMetadata, operationType, details string) (*BatchResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	// all-or-nothing precondition: a single missing user or permission
	// aborts the whole batch before any write
	if err := s.verifyUsersExist(ctx, dto.UserIDs); err != nil {
		s.auditor.Record(ctx, audit.Entry{
			ActorID:       operatorID,
			TargetUsers:   dto.UserIDs,
			OperationType: operationType,
			Details:       details,
			Status:        audit.StatusFailed,
			ErrorMessage:  err.Error(),
			Metadata:      meta,
		})
		return nil, err
	}
	if err := s.verifyPermissionsExist(ctx, dto.PermissionIDs); err != nil {
		s.auditor.Record(ctx, audit.Entry{
			ActorID:       operatorID,
			TargetUsers:   dto.UserIDs,
			OperationType: operationType,
			Details:       details,
			Status:        audit.StatusFailed,
			ErrorMessage:  err.Error(),
			Metadata:      meta,
		})
		return nil, err
	}

	result := &BatchResult{
		Total:   len(dto.UserIDs),
		Results: make([]BatchUserResult, 0, len(dto.UserIDs)),
	}
	beforeStates := make(map[string]interface{})
	afterStates := make(map[string]interface{})

	for _, userID := range dto.UserIDs {
		before, after, err := s.assignToCustomRole(ctx, userID, dto.PermissionIDs, true, operatorID)
		userResult := BatchUserResult{UserID: userID, Before: before, After: after}

		if err != nil {
			userResult.Error = err.Error()
			result.Failed++
			s.logger.Error("batch assignment failed for user", "error", err, "user_id", userID)
		} else {
			userResult.Success = true
			result.Succeeded++
			if err := s.invalidator.InvalidateUser(ctx, userID); err != nil {
				s.logger.Warn("cache invalidation failed after batch assignment", "error", err, "user_id", userID)
			}
		}

		key := fmt.Sprintf("%d", userID)
		beforeStates[key] = before
		afterStates[key] = after
		result.Results = append(result.Results, userResult)
	}

	status := audit.StatusSuccess
	if result.Failed > 0 {
		status = audit.StatusFailed
	}
	if details == "" {
		details = fmt.Sprintf("batch assignment of %d permissions to %d users", len(dto.PermissionIDs), len(dto.UserIDs))
	}
	s.auditor.Record(ctx, audit.Entry{
		ActorID:       operatorID,
		TargetUsers:   dto.UserIDs,
		OperationType: operationType,
		BeforeState:   beforeStates,
		AfterState:    afterStates,
		Details:       details,
		Status:        status,
		Metadata:      meta,
	})

	s.logger.Info("batch assignment completed",
		"total", result.Total,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"operator_id", operatorID)
	return result, nil
}

// assignToCustomRole finds or creates the user's CUSTOM_<id> role and
// rewrites its permission set: union with the existing set when merge is
// true, full replacement otherwise. The rewrite is a compare-and-swap on the
// role version with bounded retries, so concurrent assignments are retried
// rather than silently lost.
func (s *Service) assignToCustomRole(ctx context.Context, userID int64, permissionIDs []int64, merge bool, operatorID int64) (before, after []int64, err error) {
	code := CustomRoleCode(userID)

	r, err := s.repo.GetRoleByCode(ctx, code)
	if err != nil && err != ErrRoleNotFound {
		return nil, nil, err
	}

	if r == nil {
		// first direct/batch/template assignment: seed the role and link it
		pairs := make([]PermissionPair, len(permissionIDs))
		for i, id := range permissionIDs {
			pairs[i] = PermissionPair{PermissionID: id, DataScope: access.ScopePersonal}
		}
		now := time.Now()
		r = &Role{
			Code:        code,
			Name:        fmt.Sprintf("Custom role for user %d", userID),
			Status:      StatusEnabled,
			IsSystem:    true,
			Permissions: pairs,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.repo.CreateRole(ctx, r); err != nil {
			return nil, nil, err
		}
		if err := s.repo.CreateUserRole(ctx, &UserRole{
			UserID:    userID,
			RoleID:    r.ID,
			Status:    StatusEnabled,
			CreatedBy: operatorID,
			CreatedAt: now,
		}); err != nil {
			return nil, nil, err
		}
		return []int64{}, sortedCopy(permissionIDs), nil
	}

	// role exists: make sure the association is still in place
	if link, err := s.repo.GetUserRole(ctx, userID, r.ID); err != nil {
		return nil, nil, err
	} else if link == nil {
		if err := s.repo.CreateUserRole(ctx, &UserRole{
			UserID:    userID,
			RoleID:    r.ID,
			Status:    StatusEnabled,
			CreatedBy: operatorID,
			CreatedAt: time.Now(),
		}); err != nil {
			return nil, nil, err
		}
	}

	for attempt := 0; attempt < casRetries; attempt++ {
		current, err := s.repo.GetRolePermissionIDs(ctx, r.ID)
		if err != nil {
			return nil, nil, err
		}
		if before == nil {
			before = sortedCopy(current)
		}

		target := permissionIDs
		if merge {
			target = unionIDs(current, permissionIDs)
		}

		pairs := make([]PermissionPair, len(target))
		for i, id := range target {
			pairs[i] = PermissionPair{PermissionID: id, DataScope: access.ScopePersonal}
		}

		err = s.repo.ReplaceRolePermissions(ctx, r.ID, r.Version, pairs)
		if err == nil {
			return before, sortedCopy(target), nil
		}
		if err != ErrVersionConflict {
			return before, nil, err
		}

		s.logger.Warn("custom role modified concurrently, retrying",
			"user_id", userID, "role_id", r.ID, "attempt", attempt+1)
		r, err = s.repo.GetRoleByID(ctx, r.ID)
		if err != nil {
			return before, nil, err
		}
	}

	return before, nil, ErrVersionConflict
}

func (s *Service) verifyUsersExist(ctx context.Context, userIDs []int64) error {
	found, err := s.users.ExistingIDs(ctx, userIDs)
	if err != nil {
		return err
	}
	if missing := missingIDs(userIDs, found); len(missing) > 0 {
		return internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound).
			WithDetails(map[string]interface{}{"missing_user_ids": missing})
	}
	return nil
}

func (s *Service) verifyPermissionsExist(ctx context.Context, permissionIDs []int64) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	found, err := s.permissions.ExistingIDs(ctx, permissionIDs)
	if err != nil {
		return err
	}
	if missing := missingIDs(permissionIDs, found); len(missing) > 0 {
		return internal.NewNotFoundError("permission not found", internal.ErrCodePermissionNotFound).
			WithDetails(map[string]interface{}{"missing_permission_ids": missing})
	}
	return nil
}

func missingIDs(wanted, found []int64) []int64 {
	present := make(map[int64]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	var missing []int64
	for _, id := range wanted {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func unionIDs(a, b []int64) []int64 {
	seen := make(map[int64]bool, len(a)+len(b))
	out := make([]int64, 0, len(a)+len(b))
	for _, id := range a {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range b {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func sortedCopy(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
