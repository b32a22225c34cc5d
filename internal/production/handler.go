package production

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/platform/httpx"
	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// Handler wires HTTP endpoints for production batches.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers production routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/production/batches", func(r chi.Router) {
		r.Post("/", h.createBatch)
		r.Get("/", h.listBatches)
		r.Get("/{batchID}", h.getBatch)
		r.Delete("/{batchID}", h.deleteBatch)
		r.Post("/{batchID}/lines", h.addLine)
		r.Delete("/{batchID}/lines/{lineID}", h.removeLine)
		r.Post("/{batchID}/post", h.postBatch)
		r.Post("/{batchID}/void", h.voidBatch)
	})
}

type createBatchRequest struct {
	Reference        string `json:"reference"`
	OutputItemID     string `json:"output_item_id" validate:"required,uuid"`
	OutputLocationID string `json:"output_location_id" validate:"required,uuid"`
	OutputQty        string `json:"output_qty" validate:"required"`
	Notes            string `json:"notes"`
}

func (h *Handler) createBatch(w http.ResponseWriter, r *http.Request) {
	var req createBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	qty, err := decimal.NewFromString(req.OutputQty)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "output_qty must be a decimal")
		return
	}
	itemID, _ := uuid.Parse(req.OutputItemID)
	locationID, _ := uuid.Parse(req.OutputLocationID)
	batch, err := h.service.CreateBatch(r.Context(), CreateBatchInput{
		Reference:        req.Reference,
		OutputItemID:     itemID,
		OutputLocationID: locationID,
		OutputQty:        qty,
		Notes:            req.Notes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, batch)
}

type addLineRequest struct {
	ItemID      string  `json:"item_id" validate:"required,uuid"`
	LocationID  string  `json:"location_id" validate:"required,uuid"`
	Qty         string  `json:"qty" validate:"required"`
	PinnedLotID *string `json:"pinned_lot_id" validate:"omitempty,uuid"`
}

func (h *Handler) addLine(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "batchID must be a UUID")
		return
	}
	var req addLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	qty, err := decimal.NewFromString(req.Qty)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "qty must be a decimal")
		return
	}
	itemID, _ := uuid.Parse(req.ItemID)
	locationID, _ := uuid.Parse(req.LocationID)
	var pinned *uuid.UUID
	if req.PinnedLotID != nil {
		id, _ := uuid.Parse(*req.PinnedLotID)
		pinned = &id
	}
	line, err := h.service.AddLine(r.Context(), batchID, AddLineInput{
		ItemID:      itemID,
		LocationID:  locationID,
		Qty:         qty,
		PinnedLotID: pinned,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, line)
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "batchID must be a UUID")
		return
	}
	lineID, err := uuid.Parse(chi.URLParam(r, "lineID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "lineID must be a UUID")
		return
	}
	if err := h.service.RemoveLine(r.Context(), batchID, lineID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "batchID must be a UUID")
		return
	}
	if err := h.service.DeleteBatch(r.Context(), batchID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) postBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "batchID must be a UUID")
		return
	}
	batch, err := h.service.Post(r.Context(), batchID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, batch)
}

type voidRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) voidBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "batchID must be a UUID")
		return
	}
	var req voidRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	batch, err := h.service.Void(r.Context(), batchID, req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, batch)
}

func (h *Handler) getBatch(w http.ResponseWriter, r *http.Request) {
	batchID, err := uuid.Parse(chi.URLParam(r, "batchID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "batchID must be a UUID")
		return
	}
	batch, lines, err := h.service.Batch(r.Context(), batchID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"batch": batch, "lines": lines})
}

func (h *Handler) listBatches(w http.ResponseWriter, r *http.Request) {
	page := shared.Pagination{}
	page.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	page.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	batches, pagination, err := h.service.Batches(r.Context(), page)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"batches": batches, "pagination": pagination})
}
