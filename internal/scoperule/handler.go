package scoperule

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
	CreateRule(ctx context.Context, dto CreateRuleDTO, operatorID int64, meta internal.RequestMetadata) (*Rule, error)
	GetRule(ctx context.Context, id int64) (*Rule, error)
	ListRules(ctx context.Context, filter ListFilter) ([]*Rule, error)
	UpdateStatus(ctx context.Context, id int64, dto UpdateStatusDTO) (*Rule, error)
	DeleteRule(ctx context.Context, id int64) error
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

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	operator, ok := internal.OperatorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "operator not found in context")
		return
	}

	var dto CreateRuleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateRule: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, err := h.Service.CreateRule(r.Context(), dto, operator.ID, transport.RequestMetadata(r))
	if err != nil {
		h.Logger.Error("CreateRule: service error", "error", err, "name", dto.Name)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, rule)
}

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	permissionID, _ := strconv.ParseInt(q.Get("permission_id"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	rules, err := h.Service.ListRules(r.Context(), ListFilter{
		PermissionID: permissionID,
		Module:       q.Get("module"),
		RuleType:     q.Get("rule_type"),
		Status:       q.Get("status"),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		h.Logger.Error("ListRules: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rules)
}

func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid rule ID")
		return
	}

	rule, err := h.Service.GetRule(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rule)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid rule ID")
		return
	}

	var dto UpdateStatusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rule, err := h.Service.UpdateStatus(r.Context(), id, dto)
	if err != nil {
		h.Logger.Error("UpdateStatus: service error", "error", err, "rule_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rule)
}

func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid rule ID")
		return
	}

	if err := h.Service.DeleteRule(r.Context(), id); err != nil {
		h.Logger.Error("DeleteRule: service error", "error", err, "rule_id", id)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
