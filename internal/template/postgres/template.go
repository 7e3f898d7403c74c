package postgres

import (
	"context"

	templatedata "github.com/workstream/access-management/internal/core/datamodel/template"
	templateDomain "github.com/workstream/access-management/internal/template"
	"gorm.io/gorm"
)

// TemplateRepository implements the template.Repository interface using GORM.
type TemplateRepository struct {
	db *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) templateDomain.Repository {
	return &TemplateRepository{db: db}
}

// Create stores the template with its permission links. When the template
// claims the default slot the previous default is demoted in the same
// transaction.
func (r *TemplateRepository) Create(ctx context.Context, t *templateDomain.Template) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if t.IsDefault {
			if err := tx.Model(&templatedata.PermissionTemplate{}).
				Where("is_default = ?", true).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}

		model := &templatedata.PermissionTemplate{
			Name:        t.Name,
			Description: t.Description,
			IsDefault:   t.IsDefault,
			Status:      t.Status,
			CreatedBy:   t.CreatedBy,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		}
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		t.ID = model.ID

		if len(t.Permissions) == 0 {
			return nil
		}
		links := make([]templatedata.TemplatePermission, len(t.Permissions))
		for i, pair := range t.Permissions {
			links[i] = templatedata.TemplatePermission{
				TemplateID:   model.ID,
				PermissionID: pair.PermissionID,
				DataScope:    pair.DataScope,
			}
		}
		return tx.Create(&links).Error
	})
}

func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*templateDomain.Template, error) {
	var model templatedata.PermissionTemplate
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, templateDomain.ErrTemplateNotFound
		}
		return nil, err
	}
	return r.hydrate(ctx, &model)
}

func (r *TemplateRepository) GetByName(ctx context.Context, name string) (*templateDomain.Template, error) {
	var model templatedata.PermissionTemplate
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, templateDomain.ErrTemplateNotFound
		}
		return nil, err
	}
	return r.hydrate(ctx, &model)
}

func (r *TemplateRepository) GetDefault(ctx context.Context) (*templateDomain.Template, error) {
	var model templatedata.PermissionTemplate
	err := r.db.WithContext(ctx).
		Where("is_default = ? AND status = ?", true, templateDomain.StatusEnabled).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, templateDomain.ErrTemplateNotFound
		}
		return nil, err
	}
	return r.hydrate(ctx, &model)
}

func (r *TemplateRepository) List(ctx context.Context, filter templateDomain.ListFilter) ([]*templateDomain.Template, error) {
	query := r.db.WithContext(ctx).Model(&templatedata.PermissionTemplate{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var models []*templatedata.PermissionTemplate
	err := query.Order("name ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	templates := make([]*templateDomain.Template, 0, len(models))
	for _, m := range models {
		t, err := r.hydrate(ctx, m)
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, nil
}

func (r *TemplateRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).Model(&templatedata.PermissionTemplate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *TemplateRepository) hydrate(ctx context.Context, model *templatedata.PermissionTemplate) (*templateDomain.Template, error) {
	var links []templatedata.TemplatePermission
	err := r.db.WithContext(ctx).
		Where("template_id = ?", model.ID).
		Order("permission_id ASC").
		Find(&links).Error
	if err != nil {
		return nil, err
	}

	pairs := make([]templateDomain.PermissionPair, len(links))
	for i, link := range links {
		pairs[i] = templateDomain.PermissionPair{
			PermissionID: link.PermissionID,
			DataScope:    link.DataScope,
		}
	}

	return &templateDomain.Template{
		ID:          model.ID,
		Name:        model.Name,
		Description: model.Description,
		IsDefault:   model.IsDefault,
		Status:      model.Status,
		CreatedBy:   model.CreatedBy,
		Permissions: pairs,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}, nil
}
