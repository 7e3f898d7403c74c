package access_test

import (
	"context"
	"errors"

	"github.com/workstream/access-management/internal/access"
	"github.com/workstream/access-management/pkg/cache"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Evaluator", func() {
	var (
		grants  *MockGrantRepository
		rules   *MockRuleRepository
		service *access.Service
		ctx     context.Context
	)

	BeforeEach(func() {
		grants = NewMockGrantRepository()
		rules = &MockRuleRepository{}
		service = access.NewService(grants, rules, cache.NewMemoryCache(), 0, testLogger())
		ctx = context.Background()

		// base grant: personal scope only, so cross-user records need a rule
		grants.SetGrants(1, []access.RoleGrant{
			{RoleID: 10, Permissions: []access.PermissionGrant{
				{Code: "expense:view", Scope: access.ScopePersonal},
			}},
		})
	})

	Context("without a module", func() {
		It("returns the base answer untouched", func() {
			rules.rules = []access.Rule{
				{ID: 1, RuleType: access.RuleTypeDepartment, Conditions: map[string]interface{}{
					"departments": []interface{}{"finance"},
				}},
			}

			granted, err := service.EvaluateEnhanced(ctx, 1, "expense:view",
				map[string]interface{}{"created_by": int64(2), "department": "finance"}, "")

			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeFalse())
		})
	})

	Context("with no matching rule", func() {
		It("falls back to the base answer", func() {
			rules.rules = []access.Rule{
				{ID: 1, RuleType: access.RuleTypeDepartment, Conditions: map[string]interface{}{
					"departments": []interface{}{"sales"},
				}},
			}

			granted, err := service.EvaluateEnhanced(ctx, 1, "expense:view",
				map[string]interface{}{"created_by": int64(1), "department": "finance"}, "expense")

			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeTrue(), "base personal-scope grant stands")
		})
	})

	Context("with a department rule", func() {
		BeforeEach(func() {
			rules.rules = []access.Rule{
				{ID: 1, RuleType: access.RuleTypeDepartment, Conditions: map[string]interface{}{
					"departments": []interface{}{"finance", "ops"},
				}},
			}
		})

		It("grants records in a listed department over a base deny", func() {
			granted, err := service.EvaluateEnhanced(ctx, 1, "expense:view",
				map[string]interface{}{"created_by": int64(2), "department": "ops"}, "expense")

			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeTrue())
		})

		It("denies records in unlisted departments", func() {
			granted, err := service.EvaluateEnhanced(ctx, 1, "expense:view",
				map[string]interface{}{"created_by": int64(2), "department": "sales"}, "expense")

			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeFalse())
		})
	})

	Context("with a user rule", func() {
		It("grants records created by a listed user", func() {
			rules.rules = []access.Rule{
				{ID: 1, RuleType: access.RuleTypeUser, Conditions: map[string]interface{}{
					"users": []interface{}{float64(7), float64(8)},
				}},
			}

			granted, err := service.EvaluateEnhanced(ctx, 1, "expense:view",
				map[string]interface{}{"created_by": int64(7)}, "expense")

			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeTrue())
		})
	})

	Context("with a role rule", func() {
		It("grants when the user holds a listed role", func() {
			rules.rules = []access.Rule{
				{ID: 1, RuleType: access.RuleTypeRole, Conditions: map[string]interface{}{
					"roles": []interface{}{float64(10)},
				}},
			}

			granted, err := service.EvaluateEnhanced(ctx, 1, "expense:view",
				map[string]interface{}{"created_by": int64(99)}, "expense")

			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeTrue())
		})
	})

	Context("with a field rule", func() {
		It("compares a dotted path against the expected value", func() {
			rules.rules = []access.Rule{
				{ID: 1, RuleType: access.RuleTypeField, Conditions: map[string]interface{}{
					"field":    "project.owner_id",
					"operator": "eq",
					"value":    float64(1),
				}},
			}

			granted, err := service.EvaluateEnhanced(ctx, 1, "expense:view",
				map[string]interface{}{
					"created_by": int64(2),
					"project":    map[string]interface{}{"owner_id": int64(1)},
				}, "expense")

			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeTrue())
		})

		It("treats an undefined field as matching only ne and nin", func() {
			rules.rules = []access.Rule{
				{ID: 1, RuleType: access.RuleTypeField, Conditions: map[string]interface{}{
					"field":    "missing",
					"operator": "ne",
					"value":    "anything",
				}},
			}

			granted, err := service.EvaluateEnhanced(ctx, 1, "expense:view",
				map[string]interface{}{"created_by": int64(2)}, "expense")

			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeTrue())
		})
	})

	Context("with a condition rule", func() {
		It("grants when the expression evaluates true", func() {
			rules.rules = []access.Rule{
				{ID: 1, RuleType: access.RuleTypeCondition, Conditions: map[string]interface{}{
					"expression": "target.amount < 500 && target.status == \"draft\"",
				}},
			}

			granted, err := service.EvaluateEnhanced(ctx, 1, "expense:view",
				map[string]interface{}{
					"created_by": int64(2),
					"amount":     float64(120),
					"status":     "draft",
				}, "expense")

			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeTrue())
		})
	})

	Context("with several rules", func() {
		It("grants when any rule matches", func() {
			rules.rules = []access.Rule{
				{ID: 1, RuleType: access.RuleTypeDepartment, Conditions: map[string]interface{}{
					"departments": []interface{}{"sales"},
				}},
				{ID: 2, RuleType: access.RuleTypeUser, Conditions: map[string]interface{}{
					"users": []interface{}{float64(2)},
				}},
			}

			granted, err := service.EvaluateEnhanced(ctx, 1, "expense:view",
				map[string]interface{}{"created_by": int64(2), "department": "finance"}, "expense")

			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeTrue())
		})

		It("skips a failing rule and keeps evaluating the rest", func() {
			rules.rules = []access.Rule{
				{ID: 1, RuleType: access.RuleTypeCondition, Conditions: map[string]interface{}{
					"expression": "target.amount <",
				}},
				{ID: 2, RuleType: access.RuleTypeUser, Conditions: map[string]interface{}{
					"users": []interface{}{float64(2)},
				}},
			}

			granted, err := service.EvaluateEnhanced(ctx, 1, "expense:view",
				map[string]interface{}{"created_by": int64(2)}, "expense")

			Expect(err).NotTo(HaveOccurred())
			Expect(granted).To(BeTrue())
		})
	})

	Context("when rule loading fails", func() {
		It("returns an error rather than guessing", func() {
			rules.shouldFail = true
			rules.failError = errors.New("connection refused")

			_, err := service.EvaluateEnhanced(ctx, 1, "expense:view",
				map[string]interface{}{"created_by": int64(1)}, "expense")

			Expect(err).To(HaveOccurred())
		})
	})
})
