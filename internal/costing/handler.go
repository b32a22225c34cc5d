package costing

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/chefcloud/chefcloud-erp/internal/platform/httpx"
)

// Handler exposes read-only cost history endpoints. Cost layers are written
// through receipts, never through HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers costing routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/costing/items/{itemID}", func(r chi.Router) {
		r.Get("/layers", h.listLayers)
		r.Get("/wac", h.currentWac)
	})
}

func (h *Handler) listLayers(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "itemID must be a UUID")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	layers, err := h.service.Layers(r.Context(), itemID, limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"layers": layers})
}

func (h *Handler) currentWac(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "itemID must be a UUID")
		return
	}
	wac, err := h.service.ConsumptionCost(r.Context(), itemID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item_id": itemID.String(), "wac": wac})
}
