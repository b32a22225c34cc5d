package inventory

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/export"
	"github.com/chefcloud/chefcloud-erp/internal/platform/httpx"
	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// ExportHashHeader carries the canonical content hash of an export response.
const ExportHashHeader = "X-Export-Hash"

// Handler wires HTTP endpoints for transfers and stock reports.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers inventory routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/transfers", h.transfer)
	r.Get("/stock-card", h.stockCard)
	r.Get("/valuation", h.valuation)
	r.Get("/valuation.csv", h.valuationCSV)
}

type transferRequest struct {
	BranchID       string `json:"branch_id" validate:"required,uuid"`
	ItemID         string `json:"item_id" validate:"required,uuid"`
	FromLocationID string `json:"from_location_id" validate:"required,uuid"`
	ToLocationID   string `json:"to_location_id" validate:"required,uuid"`
	Qty            string `json:"qty" validate:"required"`
	Notes          string `json:"notes"`
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
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
	from, _ := uuid.Parse(req.FromLocationID)
	to, _ := uuid.Parse(req.ToLocationID)
	result, err := h.service.Transfer(r.Context(), TransferInput{
		BranchID:       branchID,
		ItemID:         itemID,
		FromLocationID: from,
		ToLocationID:   to,
		Qty:            qty,
		Notes:          req.Notes,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) stockCard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	branchID, err := uuid.Parse(q.Get("branch_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "branch_id must be a UUID")
		return
	}
	itemID, err := uuid.Parse(q.Get("item_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "item_id must be a UUID")
		return
	}
	in := StockCardInput{BranchID: branchID, ItemID: itemID}
	if raw := q.Get("location_id"); raw != "" {
		locationID, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "location_id must be a UUID")
			return
		}
		in.LocationID = &locationID
	}
	if raw := q.Get("from"); raw != "" {
		if in.From, err = time.Parse(time.RFC3339, raw); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be RFC3339")
			return
		}
	}
	if raw := q.Get("to"); raw != "" {
		if in.To, err = time.Parse(time.RFC3339, raw); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be RFC3339")
			return
		}
	}
	card, err := h.service.StockCard(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, card)
}

func (h *Handler) valuation(w http.ResponseWriter, r *http.Request) {
	report, err := h.valuationReport(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) valuationCSV(w http.ResponseWriter, r *http.Request) {
	report, err := h.valuationReport(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows := make([]export.ValuationRow, len(report.Lines))
	for i, line := range report.Lines {
		rows[i] = export.ValuationRow{
			ItemID: line.ItemID,
			SKU:    line.SKU,
			Qty:    line.OnHand,
			Wac:    line.Wac,
			Value:  line.Value,
		}
	}
	file, err := export.RenderValuationCSV("valuation.csv", rows)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="valuation.csv"`)
	w.Header().Set(ExportHashHeader, export.Hash(csvRows(file.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Content)
}

func (h *Handler) valuationReport(r *http.Request) (ValuationReport, error) {
	q := r.URL.Query()
	branchID, err := uuid.Parse(q.Get("branch_id"))
	if err != nil {
		return ValuationReport{}, fmt.Errorf("inventory: branch_id must be a UUID: %w", shared.ErrInvalidArgument)
	}
	var asOf time.Time
	if raw := q.Get("as_of"); raw != "" {
		if asOf, err = time.Parse(time.RFC3339, raw); err != nil {
			return ValuationReport{}, fmt.Errorf("inventory: as_of must be RFC3339: %w", shared.ErrInvalidArgument)
		}
	}
	return h.service.Valuation(r.Context(), branchID, asOf)
}

// csvRows splits rendered CSV content into hashable rows.
func csvRows(content []byte) []string {
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	return lines
}
