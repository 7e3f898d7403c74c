package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/workstream/access-management/internal/access"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestGrantRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "GrantRepository Suite")
}

type SQLiteRole struct {
	ID        int64     `gorm:"primaryKey"`
	Code      string    `gorm:"column:code;uniqueIndex;not null"`
	Name      string    `gorm:"column:name;not null"`
	Status    string    `gorm:"column:status;default:enabled"`
	IsSystem  bool      `gorm:"column:is_system;default:false"`
	Version   int64     `gorm:"column:version;default:0"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (SQLiteRole) TableName() string {
	return "roles"
}

type SQLitePermission struct {
	ID        int64     `gorm:"primaryKey"`
	Code      string    `gorm:"column:code;uniqueIndex;not null"`
	Name      string    `gorm:"column:name;not null"`
	Status    string    `gorm:"column:status;default:enabled"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (SQLitePermission) TableName() string {
	return "permissions"
}

type SQLiteRolePermission struct {
	ID           int64  `gorm:"primaryKey"`
	RoleID       int64  `gorm:"column:role_id;not null"`
	PermissionID int64  `gorm:"column:permission_id;not null"`
	DataScope    string `gorm:"column:data_scope;default:all"`
}

func (SQLiteRolePermission) TableName() string {
	return "role_permissions"
}

type SQLiteUserRole struct {
	ID         int64   `gorm:"primaryKey"`
	UserID     int64   `gorm:"column:user_id;not null"`
	RoleID     int64   `gorm:"column:role_id;not null"`
	Department *string `gorm:"column:department"`
	Status     string  `gorm:"column:status;default:enabled"`
}

func (SQLiteUserRole) TableName() string {
	return "user_roles"
}

var _ = Describe("GrantRepository", func() {
	var (
		db   *gorm.DB
		repo *GrantRepository
		ctx  context.Context
	)

	createRole := func(code, status string) int64 {
		role := &SQLiteRole{Code: code, Name: code, Status: status}
		Expect(db.Create(role).Error).NotTo(HaveOccurred())
		return role.ID
	}

	createPermission := func(code, status string) int64 {
		perm := &SQLitePermission{Code: code, Name: code, Status: status}
		Expect(db.Create(perm).Error).NotTo(HaveOccurred())
		return perm.ID
	}

	grant := func(roleID, permID int64, scope string) {
		Expect(db.Create(&SQLiteRolePermission{RoleID: roleID, PermissionID: permID, DataScope: scope}).Error).NotTo(HaveOccurred())
	}

	assign := func(userID, roleID int64, dept *string, status string) {
		Expect(db.Create(&SQLiteUserRole{UserID: userID, RoleID: roleID, Department: dept, Status: status}).Error).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteRole{}, &SQLitePermission{}, &SQLiteRolePermission{}, &SQLiteUserRole{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewGrantRepository(db)
		ctx = context.Background()
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	It("returns an empty slice for a user with no assignments", func() {
		grants, err := repo.GetEnabledGrants(ctx, 42)
		Expect(err).NotTo(HaveOccurred())
		Expect(grants).To(BeEmpty())
	})

	It("groups permission pairs under their role", func() {
		roleID := createRole("FINANCE", access.StatusEnabled)
		viewID := createPermission("expense:view", access.StatusEnabled)
		approveID := createPermission("expense:approve", access.StatusEnabled)
		grant(roleID, viewID, "all")
		grant(roleID, approveID, "department")
		dept := "finance"
		assign(42, roleID, &dept, access.StatusEnabled)

		grants, err := repo.GetEnabledGrants(ctx, 42)
		Expect(err).NotTo(HaveOccurred())
		Expect(grants).To(HaveLen(1))
		Expect(grants[0].RoleCode).To(Equal("FINANCE"))
		Expect(*grants[0].Department).To(Equal("finance"))
		Expect(grants[0].Permissions).To(ConsistOf(
			access.PermissionGrant{Code: "expense:view", Scope: "all"},
			access.PermissionGrant{Code: "expense:approve", Scope: "department"},
		))
	})

	It("keeps a role with no enabled permissions, with an empty pair list", func() {
		roleID := createRole("EMPTY", access.StatusEnabled)
		assign(42, roleID, nil, access.StatusEnabled)

		grants, err := repo.GetEnabledGrants(ctx, 42)
		Expect(err).NotTo(HaveOccurred())
		Expect(grants).To(HaveLen(1))
		Expect(grants[0].Permissions).To(BeEmpty())
	})

	It("excludes disabled roles entirely", func() {
		roleID := createRole("RETIRED", access.StatusDisabled)
		permID := createPermission("expense:view", access.StatusEnabled)
		grant(roleID, permID, "all")
		assign(42, roleID, nil, access.StatusEnabled)

		grants, err := repo.GetEnabledGrants(ctx, 42)
		Expect(err).NotTo(HaveOccurred())
		Expect(grants).To(BeEmpty())
	})

	It("drops pairs whose permission is disabled but keeps the role", func() {
		roleID := createRole("FINANCE", access.StatusEnabled)
		liveID := createPermission("expense:view", access.StatusEnabled)
		deadID := createPermission("expense:legacy", access.StatusDisabled)
		grant(roleID, liveID, "all")
		grant(roleID, deadID, "all")
		assign(42, roleID, nil, access.StatusEnabled)

		grants, err := repo.GetEnabledGrants(ctx, 42)
		Expect(err).NotTo(HaveOccurred())
		Expect(grants).To(HaveLen(1))
		Expect(grants[0].Permissions).To(ConsistOf(
			access.PermissionGrant{Code: "expense:view", Scope: "all"},
		))
	})

	It("skips disabled user-role assignments", func() {
		roleID := createRole("FINANCE", access.StatusEnabled)
		permID := createPermission("expense:view", access.StatusEnabled)
		grant(roleID, permID, "all")
		assign(42, roleID, nil, access.StatusDisabled)

		grants, err := repo.GetEnabledGrants(ctx, 42)
		Expect(err).NotTo(HaveOccurred())
		Expect(grants).To(BeEmpty())
	})

	It("only returns the requested user's grants", func() {
		roleID := createRole("FINANCE", access.StatusEnabled)
		permID := createPermission("expense:view", access.StatusEnabled)
		grant(roleID, permID, "all")
		assign(42, roleID, nil, access.StatusEnabled)
		assign(43, roleID, nil, access.StatusEnabled)

		grants, err := repo.GetEnabledGrants(ctx, 42)
		Expect(err).NotTo(HaveOccurred())
		Expect(grants).To(HaveLen(1))
		Expect(grants[0].RoleID).To(Equal(roleID))
	})
})
