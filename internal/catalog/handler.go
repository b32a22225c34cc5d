package catalog

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

// Handler wires HTTP endpoints for items and stock locations.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers catalog routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Post("/", h.createItem)
		r.Get("/", h.listItems)
		r.Get("/{itemID}", h.getItem)
		r.Patch("/{itemID}", h.updateItem)
	})
	r.Route("/locations", func(r chi.Router) {
		r.Post("/", h.createLocation)
		r.Get("/", h.listLocations)
		r.Delete("/{locationID}", h.deactivateLocation)
	})
}

type createItemRequest struct {
	SKU          string `json:"sku" validate:"required"`
	Name         string `json:"name" validate:"required"`
	UnitID       string `json:"unit_id" validate:"required,uuid"`
	LotTracked   bool   `json:"lot_tracked"`
	ReorderLevel string `json:"reorder_level"`
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	unitID, _ := uuid.Parse(req.UnitID)
	reorder := decimal.Zero
	if req.ReorderLevel != "" {
		var err error
		if reorder, err = decimal.NewFromString(req.ReorderLevel); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "reorder_level must be a decimal")
			return
		}
	}
	item, err := h.service.CreateItem(r.Context(), CreateItemInput{
		SKU:          req.SKU,
		Name:         req.Name,
		UnitID:       unitID,
		LotTracked:   req.LotTracked,
		ReorderLevel: reorder,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

type updateItemRequest struct {
	Name         string `json:"name" validate:"required"`
	ReorderLevel string `json:"reorder_level"`
	Active       bool   `json:"active"`
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "itemID must be a UUID")
		return
	}
	var req updateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	reorder := decimal.Zero
	if req.ReorderLevel != "" {
		if reorder, err = decimal.NewFromString(req.ReorderLevel); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "reorder_level must be a decimal")
			return
		}
	}
	item, err := h.service.UpdateItem(r.Context(), itemID, UpdateItemInput{
		Name:         req.Name,
		ReorderLevel: reorder,
		Active:       req.Active,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "itemID must be a UUID")
		return
	}
	item, err := h.service.Item(r.Context(), itemID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	filter := ItemFilter{
		Search:     r.URL.Query().Get("search"),
		ActiveOnly: r.URL.Query().Get("active") == "true",
	}
	items, page, err := h.service.Items(r.Context(), filter, paginationFromQuery(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": page})
}

type createLocationRequest struct {
	Code string `json:"code" validate:"required"`
	Name string `json:"name" validate:"required"`
}

func (h *Handler) createLocation(w http.ResponseWriter, r *http.Request) {
	var req createLocationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	location, err := h.service.CreateLocation(r.Context(), CreateLocationInput{Code: req.Code, Name: req.Name})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, location)
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.service.Locations(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"locations": locations})
}

func (h *Handler) deactivateLocation(w http.ResponseWriter, r *http.Request) {
	locationID, err := uuid.Parse(chi.URLParam(r, "locationID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "locationID must be a UUID")
		return
	}
	location, err := h.service.DeactivateLocation(r.Context(), locationID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, location)
}

func paginationFromQuery(r *http.Request) shared.Pagination {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	return shared.Pagination{Page: page, PerPage: perPage}
}
