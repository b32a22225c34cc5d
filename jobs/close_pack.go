package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/chefcloud/chefcloud-erp/internal/jobs"
	"github.com/chefcloud/chefcloud-erp/internal/periods"
)

const (
	// TaskClosePackBuild pre-builds the export bundle for a closed period
	// revision so the first download does not pay the build cost.
	TaskClosePackBuild = "periods:close_pack"
)

// ClosePackPayload identifies the period revision to build.
type ClosePackPayload struct {
	Scope    ActorScope `json:"scope"`
	PeriodID uuid.UUID  `json:"period_id"`
	Revision int        `json:"revision"`
}

// NewClosePackTask constructs an Asynq task for a close pack build.
func NewClosePackTask(payload ClosePackPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskClosePackBuild, body, asynq.Queue(QueueDefault)), nil
}

// ClosePackHandler processes TaskClosePackBuild tasks.
type ClosePackHandler struct {
	logger  *slog.Logger
	service *periods.Service
	metrics *jobmetrics.Metrics
}

func NewClosePackHandler(logger *slog.Logger, service *periods.Service, metrics *jobmetrics.Metrics) *ClosePackHandler {
	return &ClosePackHandler{logger: logger, service: service, metrics: metrics}
}

// Handle builds the pack and logs its hash. The build is deterministic, so a
// retry after a transient failure produces the same bundle.
func (h *ClosePackHandler) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track(TaskClosePackBuild)
	var payload ClosePackPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	pack, err := h.service.BuildClosePack(payload.Scope.Context(ctx), payload.PeriodID, payload.Revision)
	if err != nil {
		h.logger.Error("close pack build failed",
			slog.String("period_id", payload.PeriodID.String()),
			slog.Int("revision", payload.Revision),
			slog.Any("error", err))
		return tracker.End(err)
	}
	h.logger.Info("close pack built",
		slog.String("period_id", pack.PeriodID.String()),
		slog.Int("revision", pack.Revision),
		slog.String("hash", pack.Hash))
	return tracker.End(nil)
}
