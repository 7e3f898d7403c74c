package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	auditDomain "github.com/workstream/access-management/internal/audit"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestAuditRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "AuditRepository Suite")
}

type SQLiteAssignmentLog struct {
	ID            string    `gorm:"primaryKey;column:id"`
	UserID        int64     `gorm:"column:user_id;not null;index"`
	TargetUsers   string    `gorm:"column:target_users;not null"`
	OperationType string    `gorm:"column:operation_type;not null;index"`
	BeforeState   string    `gorm:"column:before_state"`
	AfterState    string    `gorm:"column:after_state"`
	Details       string    `gorm:"column:details"`
	Status        string    `gorm:"column:status;not null"`
	ErrorMessage  *string   `gorm:"column:error_message"`
	IPAddress     string    `gorm:"column:ip_address"`
	UserAgent     string    `gorm:"column:user_agent"`
	CreatedAt     time.Time `gorm:"column:created_at;index"`
}

func (SQLiteAssignmentLog) TableName() string {
	return "permission_assignment_logs"
}

var _ = Describe("AuditRepository", func() {
	var (
		db   *gorm.DB
		repo auditDomain.Repository
		ctx  context.Context
	)

	newEntry := func(actorID int64, targets []int64, op string, createdAt time.Time) *auditDomain.LogEntry {
		entry := &auditDomain.LogEntry{
			ID:            uuid.NewString(),
			ActorID:       actorID,
			TargetUsers:   targets,
			OperationType: op,
			Status:        auditDomain.StatusSuccess,
			CreatedAt:     createdAt,
		}
		entry.Metadata.IPAddress = "10.0.0.1"
		entry.Metadata.UserAgent = "test-agent"
		return entry
	}

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteAssignmentLog{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewAuditRepository(db)
		ctx = context.Background()
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	Describe("Create", func() {
		It("round-trips an entry with state snapshots", func() {
			entry := newEntry(1, []int64{42}, auditDomain.OpDirectPermission, time.Now())
			entry.BeforeState = map[string]interface{}{"permission_ids": []interface{}{float64(10)}}
			entry.AfterState = map[string]interface{}{"permission_ids": []interface{}{float64(10), float64(11)}}
			entry.Details = "replace direct permissions"

			Expect(repo.Create(ctx, entry)).To(Succeed())

			got, err := repo.Query(ctx, auditDomain.QueryFilter{Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].ID).To(Equal(entry.ID))
			Expect(got[0].ActorID).To(Equal(int64(1)))
			Expect(got[0].TargetUsers).To(Equal([]int64{42}))
			Expect(got[0].BeforeState).To(Equal(entry.BeforeState))
			Expect(got[0].AfterState).To(Equal(entry.AfterState))
			Expect(got[0].Metadata.IPAddress).To(Equal("10.0.0.1"))
			Expect(got[0].Metadata.UserAgent).To(Equal("test-agent"))
		})

		It("preserves the error message of a failed entry", func() {
			entry := newEntry(1, []int64{42}, auditDomain.OpBatchAssign, time.Now())
			entry.Status = auditDomain.StatusFailed
			entry.ErrorMessage = "user not found"

			Expect(repo.Create(ctx, entry)).To(Succeed())

			got, err := repo.Query(ctx, auditDomain.QueryFilter{Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(got[0].Status).To(Equal(auditDomain.StatusFailed))
			Expect(got[0].ErrorMessage).To(Equal("user not found"))
		})
	})

	Describe("Query", func() {
		BeforeEach(func() {
			base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
			Expect(repo.Create(ctx, newEntry(1, []int64{42}, auditDomain.OpRoleAssign, base))).To(Succeed())
			Expect(repo.Create(ctx, newEntry(1, []int64{43}, auditDomain.OpDirectPermission, base.Add(time.Hour)))).To(Succeed())
			Expect(repo.Create(ctx, newEntry(2, []int64{42, 43}, auditDomain.OpBatchAssign, base.Add(2*time.Hour)))).To(Succeed())
		})

		It("returns newest entries first", func() {
			got, err := repo.Query(ctx, auditDomain.QueryFilter{Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(3))
			Expect(got[0].OperationType).To(Equal(auditDomain.OpBatchAssign))
			Expect(got[2].OperationType).To(Equal(auditDomain.OpRoleAssign))
		})

		It("filters by actor", func() {
			got, err := repo.Query(ctx, auditDomain.QueryFilter{ActorID: 2, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].ActorID).To(Equal(int64(2)))
		})

		It("filters by target user across array entries", func() {
			got, err := repo.Query(ctx, auditDomain.QueryFilter{TargetUserID: 42, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(2))
		})

		It("does not match targets whose ids merely contain the digits", func() {
			Expect(repo.Create(ctx, newEntry(3, []int64{5, 51}, auditDomain.OpRoleAssign, time.Now()))).To(Succeed())
			Expect(repo.Create(ctx, newEntry(3, []int64{15}, auditDomain.OpRoleAssign, time.Now()))).To(Succeed())
			Expect(repo.Create(ctx, newEntry(3, []int64{515}, auditDomain.OpRoleAssign, time.Now()))).To(Succeed())

			got, err := repo.Query(ctx, auditDomain.QueryFilter{TargetUserID: 5, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].TargetUsers).To(Equal([]int64{5, 51}))

			got, err = repo.Query(ctx, auditDomain.QueryFilter{TargetUserID: 51, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].TargetUsers).To(Equal([]int64{5, 51}))

			got, err = repo.Query(ctx, auditDomain.QueryFilter{TargetUserID: 1, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeEmpty())
		})

		It("filters by operation type", func() {
			got, err := repo.Query(ctx, auditDomain.QueryFilter{OperationType: auditDomain.OpDirectPermission, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
		})

		It("filters by time window", func() {
			from := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)
			to := time.Date(2026, 8, 1, 13, 30, 0, 0, time.UTC)
			got, err := repo.Query(ctx, auditDomain.QueryFilter{From: from, To: to, Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(1))
			Expect(got[0].OperationType).To(Equal(auditDomain.OpDirectPermission))
		})

		It("honors limit and offset", func() {
			got, err := repo.Query(ctx, auditDomain.QueryFilter{Limit: 2, Offset: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(HaveLen(2))
			Expect(got[0].OperationType).To(Equal(auditDomain.OpDirectPermission))
		})
	})
})
