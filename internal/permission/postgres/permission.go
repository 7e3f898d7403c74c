package postgres

import (
	"context"

	"github.com/workstream/access-management/internal/core/datamodel/permission"
	permissionDomain "github.com/workstream/access-management/internal/permission"
	"gorm.io/gorm"
)

// PermissionRepository implements the permission.Repository interface using GORM
type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) permissionDomain.Repository {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) Create(ctx context.Context, p *permissionDomain.Permission) error {
	model := permissionDomain.ToDataModel(p)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	p.ID = model.ID
	return nil
}

func (r *PermissionRepository) GetByID(ctx context.Context, id int64) (*permissionDomain.Permission, error) {
	var model permission.Permission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, permissionDomain.ErrPermissionNotFound
		}
		return nil, err
	}
	return permissionDomain.FromDataModel(&model), nil
}

func (r *PermissionRepository) GetByIDs(ctx context.Context, ids []int64) ([]*permissionDomain.Permission, error) {
	var models []*permission.Permission
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&models).Error
	if err != nil {
		return nil, err
	}
	return permissionDomain.FromDataModelSlice(models), nil
}

func (r *PermissionRepository) GetByCode(ctx context.Context, code string) (*permissionDomain.Permission, error) {
	var model permission.Permission
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, permissionDomain.ErrPermissionNotFound
		}
		return nil, err
	}
	return permissionDomain.FromDataModel(&model), nil
}

func (r *PermissionRepository) List(ctx context.Context, filter permissionDomain.ListFilter) ([]*permissionDomain.Permission, error) {
	query := r.db.WithContext(ctx).Model(&permission.Permission{})
	if filter.Module != "" {
		query = query.Where("module = ?", filter.Module)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var models []*permission.Permission
	err := query.Order("code ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return permissionDomain.FromDataModelSlice(models), nil
}

func (r *PermissionRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).Model(&permission.Permission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

// CountReferences counts role and template links to the permission; the
// manager refuses deletion while any exist.
func (r *PermissionRepository) CountReferences(ctx context.Context, id int64) (int64, error) {
	var roleRefs int64
	if err := r.db.WithContext(ctx).Table("role_permissions").
		Where("permission_id = ?", id).Count(&roleRefs).Error; err != nil {
		return 0, err
	}

	var templateRefs int64
	if err := r.db.WithContext(ctx).Table("template_permissions").
		Where("permission_id = ?", id).Count(&templateRefs).Error; err != nil {
		return 0, err
	}

	return roleRefs + templateRefs, nil
}

func (r *PermissionRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&permission.Permission{}).Error
}
