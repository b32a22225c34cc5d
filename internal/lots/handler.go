package lots

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for inventory lots.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers lot routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/lots", func(r chi.Router) {
		r.Post("/", h.createLot)
		r.Get("/", h.listLots)
	})
}

type createLotRequest struct {
	ItemID     string `json:"item_id" validate:"required,uuid"`
	LocationID string `json:"location_id" validate:"required,uuid"`
	LotNumber  string `json:"lot_number" validate:"required"`
	Qty        string `json:"qty" validate:"required"`
	UnitCost   string `json:"unit_cost" validate:"required"`
	ExpiryDate string `json:"expiry_date"`
}

func (h *Handler) createLot(w http.ResponseWriter, r *http.Request) {
	var req createLotRequest
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
	unitCost, err := decimal.NewFromString(req.UnitCost)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unit_cost must be a decimal")
		return
	}
	var expiry *time.Time
	if req.ExpiryDate != "" {
		parsed, err := time.Parse("2006-01-02", req.ExpiryDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "expiry_date must be YYYY-MM-DD")
			return
		}
		expiry = &parsed
	}
	itemID, _ := uuid.Parse(req.ItemID)
	locationID, _ := uuid.Parse(req.LocationID)
	lot, err := h.service.CreateLot(r.Context(), CreateLotInput{
		ItemID:     itemID,
		LocationID: locationID,
		LotNumber:  req.LotNumber,
		Qty:        qty,
		UnitCost:   unitCost,
		ExpiryDate: expiry,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lot)
}

func (h *Handler) listLots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	itemID, err := uuid.Parse(q.Get("item_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "item_id must be a UUID")
		return
	}
	locationID, err := uuid.Parse(q.Get("location_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "location_id must be a UUID")
		return
	}
	lots, err := h.service.Lots(r.Context(), itemID, locationID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"lots": lots})
}
