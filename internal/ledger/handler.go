package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/platform/httpx"
	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// Handler wires HTTP endpoints for the movement ledger.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers ledger routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Post("/entries", h.append)
		r.Get("/entries", h.listEntries)
		r.Post("/entries/{entryID}/reversal", h.appendReversal)
		r.Get("/on-hand", h.onHand)
	})
}

type appendRequest struct {
	BranchID   string  `json:"branch_id" validate:"required,uuid"`
	ItemID     string  `json:"item_id" validate:"required,uuid"`
	LocationID string  `json:"location_id" validate:"required,uuid"`
	LotID      *string `json:"lot_id" validate:"omitempty,uuid"`
	Qty        string  `json:"qty" validate:"required"`
	Reason     string  `json:"reason" validate:"required"`
	SourceType string  `json:"source_type" validate:"required"`
	SourceID   string  `json:"source_id" validate:"required,uuid"`
	Notes      string  `json:"notes"`
}

func (h *Handler) append(w http.ResponseWriter, r *http.Request) {
	var req appendRequest
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
	branchID, _ := uuid.Parse(req.BranchID)
	itemID, _ := uuid.Parse(req.ItemID)
	locationID, _ := uuid.Parse(req.LocationID)
	sourceID, _ := uuid.Parse(req.SourceID)
	var lotID *uuid.UUID
	if req.LotID != nil {
		id, _ := uuid.Parse(*req.LotID)
		lotID = &id
	}
	entry, err := h.service.Append(r.Context(), AppendInput{
		BranchID:   branchID,
		ItemID:     itemID,
		LocationID: locationID,
		LotID:      lotID,
		Qty:        qty,
		Reason:     Reason(req.Reason),
		SourceType: req.SourceType,
		SourceID:   sourceID,
		Notes:      req.Notes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

type reversalRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) appendReversal(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "entryID must be a UUID")
		return
	}
	var req reversalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	entry, err := h.service.AppendReversal(r.Context(), entryID, req.Notes)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	filter, err := entryFilterFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	page := shared.Pagination{}
	page.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	page.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))

	entries, pagination, err := h.service.Entries(r.Context(), filter, page)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries, "pagination": pagination})
}

func (h *Handler) onHand(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	itemID, err := uuid.Parse(q.Get("item_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "item_id must be a UUID")
		return
	}
	key := OnHandKey{ItemID: itemID}
	if raw := q.Get("location_id"); raw != "" {
		locationID, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "location_id must be a UUID")
			return
		}
		key.LocationID = &locationID
	}
	if raw := q.Get("lot_id"); raw != "" {
		lotID, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "lot_id must be a UUID")
			return
		}
		key.LotID = &lotID
	}
	onHand, err := h.service.OnHand(r.Context(), key)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"item_id": itemID.String(), "on_hand": onHand.String()})
}

func entryFilterFromQuery(r *http.Request) (EntryFilter, error) {
	q := r.URL.Query()
	var filter EntryFilter
	if raw := q.Get("item_id"); raw != "" {
		itemID, err := uuid.Parse(raw)
		if err != nil {
			return EntryFilter{}, err
		}
		filter.ItemID = &itemID
	}
	if raw := q.Get("location_id"); raw != "" {
		locationID, err := uuid.Parse(raw)
		if err != nil {
			return EntryFilter{}, err
		}
		filter.LocationID = &locationID
	}
	if raw := q.Get("reason"); raw != "" {
		reason := Reason(raw)
		filter.Reason = &reason
	}
	filter.SourceType = q.Get("source_type")
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return EntryFilter{}, err
		}
		filter.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return EntryFilter{}, err
		}
		filter.To = to
	}
	return filter, nil
}
