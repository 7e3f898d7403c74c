package permission

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/workstream/access-management/internal/transport"
	"github.com/workstream/access-management/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreatePermission(ctx context.Context, dto CreatePermissionDTO) (*Permission, error)
	GetPermission(ctx context.Context, id int64) (*Permission, error)
	ListPermissions(ctx context.Context, filter ListFilter) ([]*Permission, error)
	UpdateStatus(ctx context.Context, id int64, dto UpdateStatusDTO) (*Permission, error)
	DeletePermission(ctx context.Context, id int64) error
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

func (h *Handler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var dto CreatePermissionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreatePermission: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.Service.CreatePermission(r.Context(), dto)
	if err != nil {
		h.Logger.Error("CreatePermission: service error", "error", err, "code", dto.Code)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	filter := ListFilter{
		Module: q.Get("module"),
		Type:   q.Get("type"),
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	}

	permissions, err := h.Service.ListPermissions(r.Context(), filter)
	if err != nil {
		h.Logger.Error("ListPermissions: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, permissions)
}

func (h *Handler) GetPermission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid permission ID")
		return
	}

	p, err := h.Service.GetPermission(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid permission ID")
		return
	}

	var dto UpdateStatusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.Service.UpdateStatus(r.Context(), id, dto)
	if err != nil {
		h.Logger.Error("UpdateStatus: service error", "error", err, "permission_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) DeletePermission(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid permission ID")
		return
	}

	if err := h.Service.DeletePermission(r.Context(), id); err != nil {
		h.Logger.Error("DeletePermission: service error", "error", err, "permission_id", id)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
