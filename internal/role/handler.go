package role

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/workstream/access-management/internal"
	"github.com/workstream/access-management/internal/transport"
	"github.com/workstream/access-management/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateRole(ctx context.Context, dto CreateRoleDTO) (*Role, error)
	GetRole(ctx context.Context, id int64) (*Role, error)
	ListRoles(ctx context.Context, filter ListFilter) ([]*Role, error)
	UpdateRoleStatus(ctx context.Context, id int64, dto UpdateStatusDTO) (*Role, error)
	AssignUserRole(ctx context.Context, dto AssignUserRoleDTO, operatorID int64, meta internal.RequestMetadata) (*UserRole, error)
	ListUserRoles(ctx context.Context, userID int64) ([]*UserRole, error)
	UpdateUserRoleStatus(ctx context.Context, userID, roleID int64, dto UpdateStatusDTO, operatorID int64, meta internal.RequestMetadata) (*UserRole, error)
	AssignUserPermissions(ctx context.Context, userID int64, dto AssignPermissionsDTO, operatorID int64, meta internal.RequestMetadata) error
	BatchAssignPermissions(ctx context.Context, dto BatchAssignDTO, operatorID int64, meta internal.RequestMetadata) (*BatchResult, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.L()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var dto CreateRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateRole: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := h.Service.CreateRole(r.Context(), dto)
	if err != nil {
		h.Logger.Error("CreateRole: service error", "error", err, "code", dto.Code)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, role)
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	filter := ListFilter{
		Status:        q.Get("status"),
		IncludeSystem: q.Get("include_system") == "true",
		Limit:         limit,
		Offset:        offset,
	}

	roles, err := h.Service.ListRoles(r.Context(), filter)
	if err != nil {
		h.Logger.Error("ListRoles: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, roles)
}

func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid role ID")
		return
	}

	role, err := h.Service.GetRole(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, role)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid role ID")
		return
	}

	var dto UpdateStatusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role, err := h.Service.UpdateRoleStatus(r.Context(), id, dto)
	if err != nil {
		h.Logger.Error("UpdateStatus: service error", "error", err, "role_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, role)
}

func (h *Handler) AssignUserRole(w http.ResponseWriter, r *http.Request) {
	operator, ok := internal.OperatorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "operator not found in context")
		return
	}

	var dto AssignUserRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ur, err := h.Service.AssignUserRole(r.Context(), dto, operator.ID, transport.RequestMetadata(r))
	if err != nil {
		h.Logger.Error("AssignUserRole: service error", "error", err, "user_id", dto.UserID, "role_id", dto.RoleID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, ur)
}

func (h *Handler) ListUserRoles(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	urs, err := h.Service.ListUserRoles(r.Context(), userID)
	if err != nil {
		h.Logger.Error("ListUserRoles: service error", "error", err, "user_id", userID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, urs)
}

func (h *Handler) UpdateUserRoleStatus(w http.ResponseWriter, r *http.Request) {
	operator, ok := internal.OperatorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "operator not found in context")
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid role ID")
		return
	}

	var dto UpdateStatusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ur, err := h.Service.UpdateUserRoleStatus(r.Context(), userID, roleID, dto, operator.ID, transport.RequestMetadata(r))
	if err != nil {
		h.Logger.Error("UpdateUserRoleStatus: service error", "error", err, "user_id", userID, "role_id", roleID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ur)
}

func (h *Handler) AssignUserPermissions(w http.ResponseWriter, r *http.Request) {
	operator, ok := internal.OperatorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "operator not found in context")
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	var dto AssignPermissionsDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.Service.AssignUserPermissions(r.Context(), userID, dto, operator.ID, transport.RequestMetadata(r)); err != nil {
		h.Logger.Error("AssignUserPermissions: service error", "error", err, "user_id", userID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "assigned"})
}

func (h *Handler) BatchAssignPermissions(w http.ResponseWriter, r *http.Request) {
	operator, ok := internal.OperatorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "operator not found in context")
		return
	}

	var dto BatchAssignDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.BatchAssignPermissions(r.Context(), dto, operator.ID, transport.RequestMetadata(r))
	if err != nil {
		h.Logger.Error("BatchAssignPermissions: service error", "error", err, "users", len(dto.UserIDs))
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}
