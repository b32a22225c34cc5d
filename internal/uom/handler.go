package uom

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/platform/httpx"
	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// Handler wires HTTP endpoints for units and conversion factors.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers unit-of-measure routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/units", func(r chi.Router) {
		r.Post("/", h.createUnit)
		r.Get("/", h.listUnits)
	})
	r.Route("/conversions", func(r chi.Router) {
		r.Post("/", h.addFactor)
		r.Get("/", h.listFactors)
		r.Get("/convert", h.convert)
	})
}

type createUnitRequest struct {
	Code string `json:"code" validate:"required"`
	Name string `json:"name" validate:"required"`
}

func (h *Handler) createUnit(w http.ResponseWriter, r *http.Request) {
	var req createUnitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	unit, err := h.service.CreateUnit(r.Context(), CreateUnitInput{Code: req.Code, Name: req.Name})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, unit)
}

func (h *Handler) listUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.service.Units(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"units": units})
}

type addFactorRequest struct {
	FromUnitID string `json:"from_unit_id" validate:"required,uuid"`
	ToUnitID   string `json:"to_unit_id" validate:"required,uuid"`
	Factor     string `json:"factor" validate:"required"`
}

func (h *Handler) addFactor(w http.ResponseWriter, r *http.Request) {
	var req addFactorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	factor, err := decimal.NewFromString(req.Factor)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "factor must be a decimal")
		return
	}
	from, _ := uuid.Parse(req.FromUnitID)
	to, _ := uuid.Parse(req.ToUnitID)
	created, err := h.service.AddFactor(r.Context(), AddFactorInput{
		FromUnitID: from,
		ToUnitID:   to,
		Factor:     factor,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) listFactors(w http.ResponseWriter, r *http.Request) {
	factors, err := h.service.Factors(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"factors": factors})
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	q := r.URL.Query()
	qty, err := decimal.NewFromString(q.Get("qty"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "qty must be a decimal")
		return
	}
	from, err := uuid.Parse(q.Get("from"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be a UUID")
		return
	}
	to, err := uuid.Parse(q.Get("to"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be a UUID")
		return
	}
	converted, err := h.service.Convert(r.Context(), actor.OrgID, qty, from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"qty":          qty.String(),
		"from_unit_id": from.String(),
		"to_unit_id":   to.String(),
		"converted":    converted.String(),
	})
}
