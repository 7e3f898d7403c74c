package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/workstream/access-management/internal"
)

// PermissionChecker answers whether an operator holds any of the given
// permission codes. The engine's own resolver implements this, so the
// administrative surface is guarded by the engine it exposes.
type PermissionChecker interface {
	CheckAnyPermission(ctx context.Context, userID int64, codes []string) (bool, error)
}

// RequirePermissions builds a middleware that admits operators holding any of
// the listed permission codes.
func RequirePermissions(checker PermissionChecker, logger *slog.Logger, permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			operator, ok := internal.OperatorFromContext(r.Context())
			if !ok || operator == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			allowed, err := checker.CheckAnyPermission(r.Context(), operator.ID, permissions)
			if err != nil {
				logger.ErrorContext(r.Context(), "authorization check failed",
					"error", err,
					"operator_id", operator.ID,
					"required_permissions", permissions)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			if !allowed {
				logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"operator_id", operator.ID,
					"required_permissions", permissions)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
