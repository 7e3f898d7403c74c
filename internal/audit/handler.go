package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/workstream/access-management/internal/transport"
	"github.com/workstream/access-management/pkg/logger"
)

type ServiceAPI interface {
	Query(ctx context.Context, filter QueryFilter) ([]*LogEntry, error)
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

func (h *Handler) QueryLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	actorID, _ := strconv.ParseInt(q.Get("actor_id"), 10, 64)
	targetID, _ := strconv.ParseInt(q.Get("target_user_id"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	filter := QueryFilter{
		ActorID:       actorID,
		TargetUserID:  targetID,
		OperationType: q.Get("operation_type"),
		Limit:         limit,
		Offset:        offset,
	}

	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid 'from' timestamp")
			return
		}
		filter.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid 'to' timestamp")
			return
		}
		filter.To = t
	}

	entries, err := h.Service.Query(r.Context(), filter)
	if err != nil {
		h.Logger.Error("QueryLogs: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, entries)
}
