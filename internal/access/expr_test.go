package access_test

import (
	"github.com/workstream/access-management/internal/access"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EvaluateExpression", func() {
	ctx := map[string]interface{}{
		"user": map[string]interface{}{"id": int64(7)},
		"target": map[string]interface{}{
			"amount":     float64(250),
			"status":     "draft",
			"department": "finance",
			"approved":   false,
			"owner": map[string]interface{}{
				"id": float64(7),
			},
		},
	}

	evaluate := func(expression string) bool {
		result, err := access.EvaluateExpression(expression, ctx)
		Expect(err).NotTo(HaveOccurred())
		return result
	}

	It("compares numbers", func() {
		Expect(evaluate("target.amount < 500")).To(BeTrue())
		Expect(evaluate("target.amount > 500")).To(BeFalse())
		Expect(evaluate("target.amount >= 250")).To(BeTrue())
		Expect(evaluate("target.amount <= 249")).To(BeFalse())
	})

	It("compares strings with either quote style", func() {
		Expect(evaluate(`target.status == "draft"`)).To(BeTrue())
		Expect(evaluate("target.status == 'approved'")).To(BeFalse())
		Expect(evaluate(`target.status != "approved"`)).To(BeTrue())
	})

	It("resolves dotted paths through nested maps", func() {
		Expect(evaluate("target.owner.id == user.id")).To(BeTrue())
	})

	It("treats undefined identifiers as null", func() {
		Expect(evaluate("target.missing == null")).To(BeTrue())
		Expect(evaluate("target.missing")).To(BeFalse())
	})

	It("applies boolean connectives with OR below AND in binding", func() {
		Expect(evaluate(`target.amount < 500 && target.status == "draft"`)).To(BeTrue())
		Expect(evaluate(`target.amount > 500 || target.department == "finance"`)).To(BeTrue())
		Expect(evaluate(`target.amount > 500 && target.status == "draft" || target.department == "finance"`)).To(BeTrue())
	})

	It("negates with ! and honors parentheses", func() {
		Expect(evaluate("!target.approved")).To(BeTrue())
		Expect(evaluate("!(target.amount < 500)")).To(BeFalse())
	})

	It("handles boolean and negative number literals", func() {
		Expect(evaluate("target.approved == false")).To(BeTrue())
		Expect(evaluate("target.amount > -1")).To(BeTrue())
		Expect(evaluate("true")).To(BeTrue())
		Expect(evaluate("false")).To(BeFalse())
	})

	It("rejects malformed expressions", func() {
		for _, expression := range []string{
			"target.amount <",
			"target.amount = 5",
			"(target.amount < 500",
			`target.status == "draft`,
			"target.amount & 5",
		} {
			_, err := access.EvaluateExpression(expression, ctx)
			Expect(err).To(HaveOccurred(), "expected %q to fail", expression)
		}
	})
})
