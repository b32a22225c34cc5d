package periods

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/chefcloud/chefcloud-erp/internal/platform/httpx"
)

// ExportHashHeader carries the close pack bundle hash.
const ExportHashHeader = "X-Export-Hash"

// Handler wires HTTP endpoints for the period lifecycle.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers period routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/periods", func(r chi.Router) {
		r.Post("/generate", h.generate)
		r.Get("/", h.listPeriods)
		r.Get("/{periodID}/preclose", h.preclose)
		r.Post("/{periodID}/close", h.closePeriod)
		r.Post("/{periodID}/reopen", h.reopen)
		r.Get("/{periodID}/events", h.listEvents)
		r.Get("/{periodID}/close-pack", h.closePack)
		r.Post("/{periodID}/close-requests", h.createRequest)
		r.Get("/{periodID}/close-requests", h.listRequests)
	})
	r.Route("/close-requests", func(r chi.Router) {
		r.Post("/{requestID}/submit", h.submitRequest)
		r.Post("/{requestID}/approve", h.approveRequest)
		r.Post("/{requestID}/reject", h.rejectRequest)
	})
}

type generateRequest struct {
	BranchID string `json:"branch_id" validate:"required,uuid"`
	From     string `json:"from" validate:"required"`
	To       string `json:"to" validate:"required"`
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	from, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", req.To)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be YYYY-MM-DD")
		return
	}
	branchID, _ := uuid.Parse(req.BranchID)
	result, err := h.service.Generate(r.Context(), branchID, from, to)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) listPeriods(w http.ResponseWriter, r *http.Request) {
	branchID, err := uuid.Parse(r.URL.Query().Get("branch_id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "branch_id must be a UUID")
		return
	}
	periods, err := h.service.Periods(r.Context(), branchID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": periods})
}

func (h *Handler) preclose(w http.ResponseWriter, r *http.Request) {
	periodID, err := uuid.Parse(chi.URLParam(r, "periodID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "periodID must be a UUID")
		return
	}
	result, err := h.service.PrecloseCheck(r.Context(), periodID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type closeRequestBody struct {
	Force  bool   `json:"force"`
	Reason string `json:"reason"`
}

func (h *Handler) closePeriod(w http.ResponseWriter, r *http.Request) {
	periodID, err := uuid.Parse(chi.URLParam(r, "periodID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "periodID must be a UUID")
		return
	}
	var req closeRequestBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	period, err := h.service.Close(r.Context(), CloseInput{
		PeriodID: periodID,
		Force:    req.Force,
		Reason:   req.Reason,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

type reopenRequestBody struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) reopen(w http.ResponseWriter, r *http.Request) {
	periodID, err := uuid.Parse(chi.URLParam(r, "periodID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "periodID must be a UUID")
		return
	}
	var req reopenRequestBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	period, err := h.service.Reopen(r.Context(), periodID, req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) listEvents(w http.ResponseWriter, r *http.Request) {
	periodID, err := uuid.Parse(chi.URLParam(r, "periodID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "periodID must be a UUID")
		return
	}
	events, err := h.service.Events(r.Context(), periodID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"events": events})
}

func (h *Handler) closePack(w http.ResponseWriter, r *http.Request) {
	periodID, err := uuid.Parse(chi.URLParam(r, "periodID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "periodID must be a UUID")
		return
	}
	revision, _ := strconv.Atoi(r.URL.Query().Get("revision"))
	pack, err := h.service.BuildClosePack(r.Context(), periodID, revision)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	files := make([]map[string]any, len(pack.Files))
	for i, f := range pack.Files {
		files[i] = map[string]any{"name": f.Name, "content": string(f.Content)}
	}
	w.Header().Set(ExportHashHeader, pack.Hash)
	httpx.JSON(w, http.StatusOK, map[string]any{
		"period_id": pack.PeriodID.String(),
		"revision":  pack.Revision,
		"hash":      pack.Hash,
		"built_at":  pack.BuiltAt,
		"files":     files,
	})
}

type createCloseRequestBody struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	periodID, err := uuid.Parse(chi.URLParam(r, "periodID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "periodID must be a UUID")
		return
	}
	var req createCloseRequestBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	request, err := h.service.CreateCloseRequest(r.Context(), periodID, req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, request)
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	periodID, err := uuid.Parse(chi.URLParam(r, "periodID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "periodID must be a UUID")
		return
	}
	requests, err := h.service.Requests(r.Context(), periodID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requests": requests})
}

func (h *Handler) submitRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "requestID must be a UUID")
		return
	}
	request, err := h.service.SubmitCloseRequest(r.Context(), requestID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, request)
}

func (h *Handler) approveRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "requestID must be a UUID")
		return
	}
	request, err := h.service.ApproveCloseRequest(r.Context(), requestID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, request)
}

type rejectRequestBody struct {
	Reason string `json:"reason" validate:"required"`
}

func (h *Handler) rejectRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "requestID must be a UUID")
		return
	}
	var req rejectRequestBody
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	request, err := h.service.RejectCloseRequest(r.Context(), requestID, req.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, request)
}
