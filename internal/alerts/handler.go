package alerts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/chefcloud/chefcloud-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for inventory alerts.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers alert routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/alerts", func(r chi.Router) {
		r.Post("/evaluate", h.evaluate)
		r.Get("/", h.list)
		r.Post("/{alertID}/ack", h.acknowledge)
		r.Post("/{alertID}/resolve", h.resolve)
	})
}

type evaluateRequest struct {
	BranchID         string `json:"branch_id" validate:"required,uuid"`
	DeadStockDays    int    `json:"dead_stock_days" validate:"omitempty,min=1"`
	ExpiryWindowDays int    `json:"expiry_window_days" validate:"omitempty,min=1"`
}

func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	branchID, _ := uuid.Parse(req.BranchID)
	result, err := h.service.Evaluate(r.Context(), Scope{
		BranchID:         branchID,
		DeadStockDays:    req.DeadStockDays,
		ExpiryWindowDays: req.ExpiryWindowDays,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(r.URL.Query().Get("branch_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "branch_id must be a UUID")
		return
	}
	var status Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		status = Status(raw)
	}
	alerts, err := h.service.Alerts(r.Context(), branchID, status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (h *Handler) acknowledge(w http.ResponseWriter, r *http.Request) {
	alertID, err := uuid.Parse(chi.URLParam(r, "alertID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "alertID must be a UUID")
		return
	}
	alert, err := h.service.Acknowledge(r.Context(), alertID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, alert)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	alertID, err := uuid.Parse(chi.URLParam(r, "alertID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "alertID must be a UUID")
		return
	}
	alert, err := h.service.Resolve(r.Context(), alertID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, alert)
}
