package postgres

import (
	"context"

	userdata "github.com/workstream/access-management/internal/core/datamodel/user"
	userDomain "github.com/workstream/access-management/internal/user"
	"gorm.io/gorm"
)

// UserRepository implements the user.Repository interface using GORM. Only
// active users count as assignment targets.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) userDomain.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*userDomain.User, error) {
	var model userdata.User
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, userDomain.ErrUserNotFound
		}
		return nil, err
	}
	return &userDomain.User{
		ID:         model.ID,
		Email:      model.Email,
		Name:       model.Name,
		Department: model.Department,
		CreatedAt:  model.CreatedAt,
	}, nil
}

func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userdata.User{}).
		Where("id = ? AND is_active = ?", id, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *UserRepository) ExistingIDs(ctx context.Context, ids []int64) ([]int64, error) {
	var found []int64
	err := r.db.WithContext(ctx).Model(&userdata.User{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Pluck("id", &found).Error
	if err != nil {
		return nil, err
	}
	return found, nil
}
