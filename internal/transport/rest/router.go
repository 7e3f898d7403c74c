package rest

import (
	"log/slog"

	"github.com/workstream/access-management/internal/access"
	"github.com/workstream/access-management/internal/audit"
	"github.com/workstream/access-management/internal/permission"
	"github.com/workstream/access-management/internal/role"
	"github.com/workstream/access-management/internal/scoperule"
	"github.com/workstream/access-management/internal/template"
	"github.com/workstream/access-management/internal/transport/middleware"
	"github.com/go-chi/chi"
)

// Permission codes guarding the engine's own administrative surface.
const (
	PermManageAccess = "system:permission:manage"
	PermViewAccess   = "system:permission:view"
	PermViewAudit    = "system:audit:view"
)

// Handlers bundles the HTTP handlers the router mounts.
type Handlers struct {
	Access     *access.Handler
	Permission *permission.Handler
	Role       *role.Handler
	Template   *template.Handler
	ScopeRule  *scoperule.Handler
	Audit      *audit.Handler
}

// NewRouter assembles the full HTTP surface. Check endpoints and the admin
// API both sit behind JWT auth; admin routes additionally require the
// operator to hold the engine's own management permissions, resolved through
// the same resolver the endpoints expose.
func NewRouter(h Handlers, auth *middleware.Authenticator, checker middleware.PermissionChecker, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RecoveryMiddleware(logger))
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(middleware.CORS)

	r.Get("/health", HealthCheck)
	r.Get("/ping", Ping)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware)

		// resolution endpoints, called by other services on every request
		r.Post("/check", h.Access.Check)
		r.Post("/check/any", h.Access.CheckAny)
		r.Post("/check/all", h.Access.CheckAll)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermissions(checker, logger, PermViewAccess, PermManageAccess))
			r.Get("/users/{id}/permissions", h.Access.GetUserPermissions)
			r.Get("/users/{id}/roles", h.Role.ListUserRoles)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermissions(checker, logger, PermManageAccess))

			r.Route("/permissions", func(r chi.Router) {
				r.Post("/", h.Permission.CreatePermission)
				r.Get("/", h.Permission.ListPermissions)
				r.Get("/{id}", h.Permission.GetPermission)
				r.Patch("/{id}/status", h.Permission.UpdateStatus)
				r.Delete("/{id}", h.Permission.DeletePermission)
			})

			r.Route("/roles", func(r chi.Router) {
				r.Post("/", h.Role.CreateRole)
				r.Get("/", h.Role.ListRoles)
				r.Get("/{id}", h.Role.GetRole)
				r.Patch("/{id}/status", h.Role.UpdateStatus)
			})

			r.Post("/user-roles", h.Role.AssignUserRole)
			r.Patch("/users/{id}/roles/{roleID}/status", h.Role.UpdateUserRoleStatus)
			r.Put("/users/{id}/permissions", h.Role.AssignUserPermissions)
			r.Post("/users/permissions/batch", h.Role.BatchAssignPermissions)

			r.Route("/templates", func(r chi.Router) {
				r.Post("/", h.Template.CreateTemplate)
				r.Get("/", h.Template.ListTemplates)
				r.Get("/default", h.Template.GetDefaultTemplate)
				r.Get("/{id}", h.Template.GetTemplate)
				r.Patch("/{id}/status", h.Template.UpdateStatus)
				r.Post("/{id}/apply", h.Template.ApplyTemplate)
			})

			r.Route("/scope-rules", func(r chi.Router) {
				r.Post("/", h.ScopeRule.CreateRule)
				r.Get("/", h.ScopeRule.ListRules)
				r.Get("/{id}", h.ScopeRule.GetRule)
				r.Patch("/{id}/status", h.ScopeRule.UpdateStatus)
				r.Delete("/{id}", h.ScopeRule.DeleteRule)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequirePermissions(checker, logger, PermViewAudit))
			r.Get("/audit-logs", h.Audit.QueryLogs)
		})
	})

	return r
}
