package postgres

import (
	"context"
	"time"

	roledata "github.com/workstream/access-management/internal/core/datamodel/role"
	roleDomain "github.com/workstream/access-management/internal/role"
	"gorm.io/gorm"
)

// RoleRepository implements the role.Repository interface using GORM.
type RoleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) roleDomain.Repository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) CreateRole(ctx context.Context, role *roleDomain.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := &roledata.Role{
			Code:        role.Code,
			Name:        role.Name,
			Description: role.Description,
			Status:      role.Status,
			IsSystem:    role.IsSystem,
			Version:     role.Version,
			CreatedAt:   role.CreatedAt,
			UpdatedAt:   role.UpdatedAt,
		}
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		role.ID = model.ID

		if len(role.Permissions) == 0 {
			return nil
		}
		links := make([]roledata.RolePermission, len(role.Permissions))
		for i, pair := range role.Permissions {
			links[i] = roledata.RolePermission{
				RoleID:       model.ID,
				PermissionID: pair.PermissionID,
				DataScope:    pair.DataScope,
			}
		}
		return tx.Create(&links).Error
	})
}

func (r *RoleRepository) GetRoleByID(ctx context.Context, id int64) (*roleDomain.Role, error) {
	var model roledata.Role
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, roleDomain.ErrRoleNotFound
		}
		return nil, err
	}
	return r.hydrate(ctx, &model)
}

func (r *RoleRepository) GetRoleByCode(ctx context.Context, code string) (*roleDomain.Role, error) {
	var model roledata.Role
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, roleDomain.ErrRoleNotFound
		}
		return nil, err
	}
	return r.hydrate(ctx, &model)
}

func (r *RoleRepository) ListRoles(ctx context.Context, filter roleDomain.ListFilter) ([]*roleDomain.Role, error) {
	query := r.db.WithContext(ctx).Model(&roledata.Role{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if !filter.IncludeSystem {
		query = query.Where("is_system = ?", false)
	}

	var models []*roledata.Role
	err := query.Order("code ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	roles := make([]*roleDomain.Role, 0, len(models))
	for _, m := range models {
		role, err := r.hydrate(ctx, m)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func (r *RoleRepository) UpdateRoleStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).Model(&roledata.Role{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *RoleRepository) GetRolePermissionIDs(ctx context.Context, roleID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&roledata.RolePermission{}).
		Where("role_id = ?", roleID).
		Order("permission_id ASC").
		Pluck("permission_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ReplaceRolePermissions rewrites the role's permission set inside one
// transaction, guarded by the role version. The conditional update doubles as
// the conflict check: zero affected rows means someone rewrote the set since
// the caller read it.
func (r *RoleRepository) ReplaceRolePermissions(ctx context.Context, roleID, expectedVersion int64, pairs []roleDomain.PermissionPair) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&roledata.Role{}).
			Where("id = ? AND version = ?", roleID, expectedVersion).
			Updates(map[string]interface{}{
				"version":    gorm.Expr("version + 1"),
				"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return roleDomain.ErrVersionConflict
		}

		if err := tx.Where("role_id = ?", roleID).
			Delete(&roledata.RolePermission{}).Error; err != nil {
			return err
		}
		if len(pairs) == 0 {
			return nil
		}

		links := make([]roledata.RolePermission, len(pairs))
		now := time.Now()
		for i, pair := range pairs {
			links[i] = roledata.RolePermission{
				RoleID:       roleID,
				PermissionID: pair.PermissionID,
				DataScope:    pair.DataScope,
				CreatedAt:    now,
			}
		}
		return tx.Create(&links).Error
	})
}

func (r *RoleRepository) CreateUserRole(ctx context.Context, ur *roleDomain.UserRole) error {
	model := &roledata.UserRole{
		UserID:     ur.UserID,
		RoleID:     ur.RoleID,
		Department: ur.Department,
		Status:     ur.Status,
		CreatedBy:  ur.CreatedBy,
		CreatedAt:  ur.CreatedAt,
		UpdatedAt:  ur.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	ur.ID = model.ID
	return nil
}

func (r *RoleRepository) GetUserRole(ctx context.Context, userID, roleID int64) (*roleDomain.UserRole, error) {
	var model roledata.UserRole
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return userRoleFromDataModel(&model), nil
}

func (r *RoleRepository) GetUserRoles(ctx context.Context, userID int64) ([]*roleDomain.UserRole, error) {
	var models []*roledata.UserRole
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]*roleDomain.UserRole, len(models))
	for i, m := range models {
		out[i] = userRoleFromDataModel(m)
	}
	return out, nil
}

func (r *RoleRepository) UpdateUserRoleStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).Model(&roledata.UserRole{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *RoleRepository) hydrate(ctx context.Context, model *roledata.Role) (*roleDomain.Role, error) {
	var links []roledata.RolePermission
	err := r.db.WithContext(ctx).
		Where("role_id = ?", model.ID).
		Order("permission_id ASC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}

	pairs := make([]roleDomain.PermissionPair, len(links))
	for i, link := range links {
		pairs[i] = roleDomain.PermissionPair{
			PermissionID: link.PermissionID,
			DataScope:    link.DataScope,
		}
	}

	return &roleDomain.Role{
		ID:          model.ID,
		Code:        model.Code,
		Name:        model.Name,
		Description: model.Description,
		Status:      model.Status,
		IsSystem:    model.IsSystem,
		Version:     model.Version,
		Permissions: pairs,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}, nil
}

func userRoleFromDataModel(m *roledata.UserRole) *roleDomain.UserRole {
	return &roleDomain.UserRole{
		ID:         m.ID,
		UserID:     m.UserID,
		RoleID:     m.RoleID,
		Department: m.Department,
		Status:     m.Status,
		CreatedBy:  m.CreatedBy,
		CreatedAt:  m.CreatedAt,
	}
}
