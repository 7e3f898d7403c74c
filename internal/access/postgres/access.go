package postgres

import (
	"context"

	"github.com/workstream/access-management/internal/access"
	"gorm.io/gorm"
)

// GrantRepository reads role grants for the permission resolver using GORM.
type GrantRepository struct {
	db *gorm.DB
}

func NewGrantRepository(db *gorm.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

type grantRow struct {
	RoleID     int64
	RoleCode   string
	Department *string
	Code       *string
	DataScope  *string
}

// GetEnabledGrants returns every enabled user-role association for the user,
// populated with the enabled permission pairs of its enabled role. Roles with
// no enabled permissions still appear, with an empty pair list.
func (r *GrantRepository) GetEnabledGrants(ctx context.Context, userID int64) ([]access.RoleGrant, error) {
	var rows []grantRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT ur.role_id AS role_id,
		       ro.code AS role_code,
		       ur.department AS department,
		       p.code AS code,
		       rp.data_scope AS data_scope
		FROM user_roles ur
		JOIN roles ro ON ro.id = ur.role_id AND ro.status = ?
		LEFT JOIN role_permissions rp ON rp.role_id = ro.id
		LEFT JOIN permissions p ON p.id = rp.permission_id AND p.status = ?
		WHERE ur.user_id = ? AND ur.status = ?
		ORDER BY ur.role_id`,
		access.StatusEnabled, access.StatusEnabled, userID, access.StatusEnabled,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	grants := make([]access.RoleGrant, 0)
	index := make(map[int64]int)

	for _, row := range rows {
		idx, exists := index[row.RoleID]
		if !exists {
			grants = append(grants, access.RoleGrant{
				RoleID:      row.RoleID,
				RoleCode:    row.RoleCode,
				Department:  row.Department,
				Permissions: make([]access.PermissionGrant, 0),
			})
			idx = len(grants) - 1
			index[row.RoleID] = idx
		}

		// permission columns are NULL when the joined permission is disabled
		// or the role carries none
		if row.Code == nil || row.DataScope == nil {
			continue
		}
		grants[idx].Permissions = append(grants[idx].Permissions, access.PermissionGrant{
			Code:  *row.Code,
			Scope: *row.DataScope,
		})
	}

	return grants, nil
}
