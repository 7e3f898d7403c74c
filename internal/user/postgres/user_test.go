package postgres

import (
	"context"
	"testing"
	"time"

	userDomain "github.com/workstream/access-management/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestUserRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "UserRepository Suite")
}

type SQLiteUser struct {
	ID           int64     `gorm:"primaryKey"`
	Email        string    `gorm:"column:email;uniqueIndex;not null"`
	Name         string    `gorm:"column:name;not null"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	Department   string    `gorm:"column:department"`
	IsActive     bool      `gorm:"column:is_active"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (SQLiteUser) TableName() string {
	return "users"
}

var _ = Describe("UserRepository", func() {
	var (
		db   *gorm.DB
		repo userDomain.Repository
		ctx  context.Context
	)

	createUser := func(email string, active bool) int64 {
		u := &SQLiteUser{
			Email:        email,
			Name:         email,
			PasswordHash: "x",
			Department:   "finance",
			IsActive:     active,
		}
		Expect(db.Create(u).Error).NotTo(HaveOccurred())
		return u.ID
	}

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteUser{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewUserRepository(db)
		ctx = context.Background()
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	Describe("GetByID", func() {
		It("returns an active user", func() {
			id := createUser("alice@example.com", true)

			got, err := repo.GetByID(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Email).To(Equal("alice@example.com"))
			Expect(got.Department).To(Equal("finance"))
		})

		It("treats an inactive user as not found", func() {
			id := createUser("bob@example.com", false)

			_, err := repo.GetByID(ctx, id)
			Expect(err).To(Equal(userDomain.ErrUserNotFound))
		})
	})

	Describe("Exists", func() {
		It("reports active users only", func() {
			activeID := createUser("alice@example.com", true)
			inactiveID := createUser("bob@example.com", false)

			ok, err := repo.Exists(ctx, activeID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())

			ok, err = repo.Exists(ctx, inactiveID)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})

	Describe("ExistingIDs", func() {
		It("filters out unknown and inactive ids", func() {
			activeID := createUser("alice@example.com", true)
			inactiveID := createUser("bob@example.com", false)

			found, err := repo.ExistingIDs(ctx, []int64{activeID, inactiveID, 9999})
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(Equal([]int64{activeID}))
		})
	})
})
