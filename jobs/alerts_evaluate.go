package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/chefcloud/chefcloud-erp/internal/alerts"
	jobmetrics "github.com/chefcloud/chefcloud-erp/internal/jobs"
)

const (
	// TaskAlertsEvaluate runs an alert evaluation sweep for one branch.
	TaskAlertsEvaluate = "alerts:evaluate"
)

// AlertsEvaluatePayload carries the scope of an alert evaluation sweep.
type AlertsEvaluatePayload struct {
	Scope            ActorScope `json:"scope"`
	DeadStockDays    int        `json:"dead_stock_days,omitempty"`
	ExpiryWindowDays int        `json:"expiry_window_days,omitempty"`
}

// NewAlertsEvaluateTask constructs an Asynq task for alert evaluation.
func NewAlertsEvaluateTask(payload AlertsEvaluatePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAlertsEvaluate, body, asynq.Queue(QueueDefault)), nil
}

// AlertsEvaluateHandler processes TaskAlertsEvaluate tasks.
type AlertsEvaluateHandler struct {
	logger  *slog.Logger
	service *alerts.Service
	metrics *jobmetrics.Metrics
}

func NewAlertsEvaluateHandler(logger *slog.Logger, service *alerts.Service, metrics *jobmetrics.Metrics) *AlertsEvaluateHandler {
	return &AlertsEvaluateHandler{logger: logger, service: service, metrics: metrics}
}

// Handle runs the evaluation under the enqueuing actor's scope.
func (h *AlertsEvaluateHandler) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := h.metrics.Track(TaskAlertsEvaluate)
	var payload AlertsEvaluatePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	result, err := h.service.Evaluate(payload.Scope.Context(ctx), alerts.Scope{
		BranchID:         payload.Scope.BranchID,
		DeadStockDays:    payload.DeadStockDays,
		ExpiryWindowDays: payload.ExpiryWindowDays,
	})
	if err != nil {
		h.logger.Error("alert evaluation failed",
			slog.String("branch_id", payload.Scope.BranchID.String()),
			slog.Any("error", err))
		return tracker.End(err)
	}
	h.logger.Info("alert evaluation finished",
		slog.String("branch_id", payload.Scope.BranchID.String()),
		slog.Int("created", result.Created),
		slog.Int("skipped_duplicate", result.SkippedDuplicate))
	return tracker.End(nil)
}
