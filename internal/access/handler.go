package access

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
	GetUserPermissions(ctx context.Context, userID int64) (*ResolvedPermissions, error)
	CheckPermission(ctx context.Context, userID int64, code string, target map[string]interface{}) (bool, error)
	CheckAnyPermission(ctx context.Context, userID int64, codes []string) (bool, error)
	CheckAllPermissions(ctx context.Context, userID int64, codes []string) (bool, error)
	EvaluateEnhanced(ctx context.Context, userID int64, code string, target map[string]interface{}, module string) (bool, error)
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

// CheckRequest is the decision-gate payload sent by sibling services.
type CheckRequest struct {
	UserID     int64                  `json:"user_id"`
	Permission string                 `json:"permission"`
	Target     map[string]interface{} `json:"target,omitempty"`
	Module     string                 `json:"module,omitempty"`
}

type CheckBatchRequest struct {
	UserID      int64    `json:"user_id"`
	Permissions []string `json:"permissions"`
}

type CheckResponse struct {
	Granted bool `json:"granted"`
}

func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("Check: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 || req.Permission == "" {
		h.WriteError(w, http.StatusBadRequest, "user_id and permission are required")
		return
	}

	var granted bool
	var err error
	if req.Module != "" {
		granted, err = h.Service.EvaluateEnhanced(r.Context(), req.UserID, req.Permission, req.Target, req.Module)
	} else {
		granted, err = h.Service.CheckPermission(r.Context(), req.UserID, req.Permission, req.Target)
	}
	if err != nil {
		h.Logger.Error("Check: service error", "error", err, "user_id", req.UserID, "permission", req.Permission)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CheckResponse{Granted: granted})
}

func (h *Handler) CheckAny(w http.ResponseWriter, r *http.Request) {
	h.checkBatch(w, r, h.Service.CheckAnyPermission)
}

func (h *Handler) CheckAll(w http.ResponseWriter, r *http.Request) {
	h.checkBatch(w, r, h.Service.CheckAllPermissions)
}

func (h *Handler) checkBatch(w http.ResponseWriter, r *http.Request, check func(context.Context, int64, []string) (bool, error)) {
	var req CheckBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("CheckBatch: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID <= 0 || len(req.Permissions) == 0 {
		h.WriteError(w, http.StatusBadRequest, "user_id and permissions are required")
		return
	}

	granted, err := check(r.Context(), req.UserID, req.Permissions)
	if err != nil {
		h.Logger.Error("CheckBatch: service error", "error", err, "user_id", req.UserID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CheckResponse{Granted: granted})
}

// GetUserPermissions exposes the resolved set for administrative inspection.
func (h *Handler) GetUserPermissions(w http.ResponseWriter, r *http.Request) {
	userIDStr := chi.URLParam(r, "id")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil {
		h.Logger.Error("GetUserPermissions: invalid user ID", "id", userIDStr)
		h.WriteError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	resolved, err := h.Service.GetUserPermissions(r.Context(), userID)
	if err != nil {
		h.Logger.Error("GetUserPermissions: service error", "error", err, "user_id", userID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resolved)
}
