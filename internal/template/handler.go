package template

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/workstream/access-management/internal"
	"github.com/workstream/access-management/internal/role"
	"github.com/workstream/access-management/internal/transport"
	"github.com/workstream/access-management/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateTemplate(ctx context.Context, dto CreateTemplateDTO, operatorID int64) (*Template, error)
	GetTemplate(ctx context.Context, id int64) (*Template, error)
	GetDefaultTemplate(ctx context.Context) (*Template, error)
	ListTemplates(ctx context.Context, filter ListFilter) ([]*Template, error)
	UpdateStatus(ctx context.Context, id int64, dto UpdateStatusDTO) (*Template, error)
	ApplyTemplate(ctx context.Context, templateID int64, dto ApplyTemplateDTO, operatorID int64, meta internal.RequestMetadata) (*role.BatchResult, error)
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

func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	operator, ok := internal.OperatorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "operator not found in context")
		return
	}

	var dto CreateTemplateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateTemplate: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Service.CreateTemplate(r.Context(), dto, operator.ID)
	if err != nil {
		h.Logger.Error("CreateTemplate: service error", "error", err, "name", dto.Name)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	templates, err := h.Service.ListTemplates(r.Context(), ListFilter{
		Status: q.Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.Logger.Error("ListTemplates: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, templates)
}

func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid template ID")
		return
	}

	t, err := h.Service.GetTemplate(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) GetDefaultTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.GetDefaultTemplate(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid template ID")
		return
	}

	var dto UpdateStatusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := h.Service.UpdateStatus(r.Context(), id, dto)
	if err != nil {
		h.Logger.Error("UpdateStatus: service error", "error", err, "template_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	operator, ok := internal.OperatorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "operator not found in context")
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid template ID")
		return
	}

	var dto ApplyTemplateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.ApplyTemplate(r.Context(), id, dto, operator.ID, transport.RequestMetadata(r))
	if err != nil {
		h.Logger.Error("ApplyTemplate: service error", "error", err, "template_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}
