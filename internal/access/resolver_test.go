package access_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/workstream/access-management/internal/access"
	"github.com/workstream/access-management/pkg/cache"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestAccessResolver(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Access Resolver Suite")
}

// MockGrantRepository implements access.GrantRepository for testing
type MockGrantRepository struct {
	grants     map[int64][]access.RoleGrant
	calls      int
	shouldFail bool
	failError  error
}

func NewMockGrantRepository() *MockGrantRepository {
	return &MockGrantRepository{grants: make(map[int64][]access.RoleGrant)}
}

func (m *MockGrantRepository) GetEnabledGrants(ctx context.Context, userID int64) ([]access.RoleGrant, error) {
	m.calls++
	if m.shouldFail {
		return nil, m.failError
	}
	return m.grants[userID], nil
}

func (m *MockGrantRepository) SetGrants(userID int64, grants []access.RoleGrant) {
	m.grants[userID] = grants
}

func (m *MockGrantRepository) SetShouldFail(shouldFail bool, err error) {
	m.shouldFail = shouldFail
	m.failError = err
}

// MockRuleRepository implements access.RuleRepository for testing
type MockRuleRepository struct {
	rules      []access.Rule
	shouldFail bool
	failError  error
}

func (m *MockRuleRepository) GetActiveRules(ctx context.Context, permissionCode, module string, userID int64) ([]access.Rule, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	return m.rules, nil
}

func strPtr(s string) *string { return &s }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

var _ = Describe("Resolver", func() {
	var (
		grants   *MockGrantRepository
		rules    *MockRuleRepository
		memCache *cache.MemoryCache
		service  *access.Service
		ctx      context.Context
	)

	BeforeEach(func() {
		grants = NewMockGrantRepository()
		rules = &MockRuleRepository{}
		memCache = cache.NewMemoryCache()
		service = access.NewService(grants, rules, memCache, 0, testLogger())
		ctx = context.Background()
	})

	Describe("GetUserPermissions", func() {
		Context("when the user has no role assignments", func() {
			It("returns an empty resolved set", func() {
				resolved, err := service.GetUserPermissions(ctx, 1)

				Expect(err).NotTo(HaveOccurred())
				Expect(resolved.Permissions).To(BeEmpty())
				Expect(resolved.DataScopes).To(BeEmpty())
				Expect(resolved.RoleIDs).To(BeEmpty())
				Expect(resolved.Has("expense:view")).To(BeFalse())
			})
		})

		Context("when the same permission comes from several roles", func() {
			BeforeEach(func() {
				grants.SetGrants(1, []access.RoleGrant{
					{
						RoleID:   10,
						RoleCode: "VIEWER",
						Permissions: []access.PermissionGrant{
							{Code: "expense:view", Scope: access.ScopePersonal},
						},
					},
					{
						RoleID:   11,
						RoleCode: "MANAGER",
						Permissions: []access.PermissionGrant{
							{Code: "expense:view", Scope: access.ScopeDepartment},
						},
					},
				})
			})

			It("keeps the widest scope", func() {
				resolved, err := service.GetUserPermissions(ctx, 1)

				Expect(err).NotTo(HaveOccurred())
				Expect(resolved.Permissions).To(ConsistOf("expense:view"))
				Expect(resolved.DataScopes["expense:view"]).To(Equal(access.ScopeDepartment))
				Expect(resolved.RoleIDs).To(ConsistOf(int64(10), int64(11)))
			})

			It("never narrows an already wide scope", func() {
				grants.SetGrants(2, []access.RoleGrant{
					{
						RoleID: 12,
						Permissions: []access.PermissionGrant{
							{Code: "expense:view", Scope: access.ScopeAll},
							{Code: "expense:view", Scope: access.ScopePersonal},
						},
					},
				})

				resolved, err := service.GetUserPermissions(ctx, 2)

				Expect(err).NotTo(HaveOccurred())
				Expect(resolved.DataScopes["expense:view"]).To(Equal(access.ScopeAll))
			})
		})

		Context("when the resolved set is cached", func() {
			BeforeEach(func() {
				grants.SetGrants(1, []access.RoleGrant{
					{RoleID: 10, Permissions: []access.PermissionGrant{{Code: "expense:view", Scope: access.ScopeAll}}},
				})
			})

			It("serves repeat lookups without touching the store", func() {
				_, err := service.GetUserPermissions(ctx, 1)
				Expect(err).NotTo(HaveOccurred())
				_, err = service.GetUserPermissions(ctx, 1)
				Expect(err).NotTo(HaveOccurred())

				Expect(grants.calls).To(Equal(1))
			})

			It("refetches after invalidation", func() {
				_, err := service.GetUserPermissions(ctx, 1)
				Expect(err).NotTo(HaveOccurred())

				Expect(service.InvalidateUser(ctx, 1)).To(Succeed())

				_, err = service.GetUserPermissions(ctx, 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(grants.calls).To(Equal(2))
			})

			It("drops a corrupt entry and falls back to the store", func() {
				Expect(memCache.Set(ctx, access.UserCacheKey(1), []byte("{not json"), 0)).To(Succeed())

				resolved, err := service.GetUserPermissions(ctx, 1)

				Expect(err).NotTo(HaveOccurred())
				Expect(resolved.Has("expense:view")).To(BeTrue())
				Expect(grants.calls).To(Equal(1))
			})
		})

		Context("when the entity store fails", func() {
			It("propagates a lookup error", func() {
				grants.SetShouldFail(true, errors.New("connection refused"))

				_, err := service.GetUserPermissions(ctx, 1)

				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("CheckPermission", func() {
		BeforeEach(func() {
			grants.SetGrants(1, []access.RoleGrant{
				{
					RoleID:     10,
					Department: strPtr("finance"),
					Permissions: []access.PermissionGrant{
						{Code: "expense:view:all", Scope: access.ScopeAll},
						{Code: "expense:view:dept", Scope: access.ScopeDepartment},
						{Code: "expense:view:own", Scope: access.ScopePersonal},
						{Code: "expense:view:custom", Scope: access.ScopeCustom},
					},
				},
			})
		})

		It("denies a permission the user does not hold", func() {
			granted, err := service.CheckPermission(ctx, 1, "expense:delete", nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeFalse())
		})

		It("grants a held permission when no target is supplied", func() {
			granted, err := service.CheckPermission(ctx, 1, "expense:view:own", nil)

			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeTrue())
		})

		It("grants any record under the all scope", func() {
			granted, err := service.CheckPermission(ctx, 1, "expense:view:all",
				map[string]interface{}{"created_by": int64(999), "department": "sales"})

			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeTrue())
		})

		Context("with the department scope", func() {
			It("grants records in one of the user's departments", func() {
				granted, err := service.CheckPermission(ctx, 1, "expense:view:dept",
					map[string]interface{}{"department": "finance"})

				Expect(err).NotTo(HaveOccurred())
				Expect(granted).To(BeTrue())
			})

			It("denies records in other departments", func() {
				granted, err := service.CheckPermission(ctx, 1, "expense:view:dept",
					map[string]interface{}{"department": "sales"})

				Expect(err).NotTo(HaveOccurred())
				Expect(granted).To(BeFalse())
			})

			It("denies records without a department", func() {
				granted, err := service.CheckPermission(ctx, 1, "expense:view:dept",
					map[string]interface{}{"created_by": int64(1)})

				Expect(err).NotTo(HaveOccurred())
				Expect(granted).To(BeFalse())
			})
		})

		Context("with the personal scope", func() {
			It("grants the user's own records", func() {
				granted, err := service.CheckPermission(ctx, 1, "expense:view:own",
					map[string]interface{}{"created_by": int64(1)})

				Expect(err).NotTo(HaveOccurred())
				Expect(granted).To(BeTrue())
			})

			It("accepts camelCase target keys", func() {
				granted, err := service.CheckPermission(ctx, 1, "expense:view:own",
					map[string]interface{}{"createdBy": float64(1)})

				Expect(err).NotTo(HaveOccurred())
				Expect(granted).To(BeTrue())
			})

			It("denies records created by someone else", func() {
				granted, err := service.CheckPermission(ctx, 1, "expense:view:own",
					map[string]interface{}{"created_by": int64(2)})

				Expect(err).NotTo(HaveOccurred())
				Expect(granted).To(BeFalse())
			})
		})

		It("denies targeted checks under the custom scope", func() {
			granted, err := service.CheckPermission(ctx, 1, "expense:view:custom",
				map[string]interface{}{"created_by": int64(1)})

			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeFalse())
		})

		Describe("CheckPermissionWithScope", func() {
			It("always runs the scope branch, even without a target", func() {
				granted, err := service.CheckPermissionWithScope(ctx, 1, "expense:view:all", nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(granted).To(BeTrue())

				granted, err = service.CheckPermissionWithScope(ctx, 1, "expense:view:own", nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(granted).To(BeFalse())
			})
		})
	})

	Describe("CheckAnyPermission and CheckAllPermissions", func() {
		BeforeEach(func() {
			grants.SetGrants(1, []access.RoleGrant{
				{RoleID: 10, Permissions: []access.PermissionGrant{
					{Code: "expense:view", Scope: access.ScopeAll},
					{Code: "report:view", Scope: access.ScopePersonal},
				}},
			})
		})

		It("grants any when at least one code is held", func() {
			granted, err := service.CheckAnyPermission(ctx, 1, []string{"expense:delete", "report:view"})

			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeTrue())
		})

		It("denies any when no code is held", func() {
			granted, err := service.CheckAnyPermission(ctx, 1, []string{"expense:delete"})

			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeFalse())
		})

		It("grants all only when every code is held", func() {
			granted, err := service.CheckAllPermissions(ctx, 1, []string{"expense:view", "report:view"})
			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeTrue())

			granted, err = service.CheckAllPermissions(ctx, 1, []string{"expense:view", "expense:delete"})
			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeFalse())
		})
	})

	Describe("InvalidateAll", func() {
		It("drops every user's cached set", func() {
			grants.SetGrants(1, []access.RoleGrant{{RoleID: 10}})
			grants.SetGrants(2, []access.RoleGrant{{RoleID: 11}})

			_, err := service.GetUserPermissions(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.GetUserPermissions(ctx, 2)
			Expect(err).NotTo(HaveOccurred())

			Expect(service.InvalidateAll(ctx)).To(Succeed())

			_, err = service.GetUserPermissions(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.GetUserPermissions(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(grants.calls).To(Equal(4))
		})
	})
})
