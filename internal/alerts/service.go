package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// Evaluation defaults. Both are caller-overridable per run; neither is driven
// by a timer — alerts exist only when somebody asks for an evaluation.
const (
	defaultDeadStockDays    = 30
	defaultExpiryWindowDays = 7
)

// RepositoryPort abstracts alert storage and the candidate queries.
type RepositoryPort interface {
	InsertAlert(ctx context.Context, alert Alert) error
	GetAlert(ctx context.Context, orgID, alertID uuid.UUID) (Alert, error)
	UpdateAlertStatus(ctx context.Context, alertID uuid.UUID, status Status, at time.Time) error
	ListAlerts(ctx context.Context, orgID, branchID uuid.UUID, status Status) ([]Alert, error)
	ReorderCandidates(ctx context.Context, orgID, branchID uuid.UUID) ([]ReorderCandidate, error)
	DeadStockCandidates(ctx context.Context, orgID, branchID uuid.UUID, cutoff time.Time) ([]DeadStockCandidate, error)
	ExpiringLotCandidates(ctx context.Context, orgID, branchID uuid.UUID, before time.Time) ([]ExpiringLotCandidate, error)
}

// Scope bounds one evaluation run.
type Scope struct {
	BranchID         uuid.UUID
	DeadStockDays    int
	ExpiryWindowDays int
}

// Service derives alerts from current ledger state. Candidates are recomputed
// from scratch on every run; the OPEN-uniqueness index makes reruns safe.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics MetricsPort
	now     func() time.Time
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts created alerts.
type MetricsPort interface {
	AlertCreated(alertType string)
}

func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithMetrics attaches activity counters.
func (s *Service) WithMetrics(metrics MetricsPort) {
	s.metrics = metrics
}

// Evaluate derives alert candidates for a branch and inserts one OPEN alert
// per finding. A candidate whose (type, entity) already has an OPEN alert is
// counted as skipped, so calling Evaluate twice on unchanged data creates
// nothing the second time.
func (s *Service) Evaluate(ctx context.Context, scope Scope) (EvaluateResult, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return EvaluateResult{}, fmt.Errorf("alerts: missing actor: %w", shared.ErrForbidden)
	}
	if scope.BranchID == uuid.Nil {
		return EvaluateResult{}, fmt.Errorf("alerts: branch required: %w", shared.ErrInvalidReference)
	}
	if scope.DeadStockDays <= 0 {
		scope.DeadStockDays = defaultDeadStockDays
	}
	if scope.ExpiryWindowDays <= 0 {
		scope.ExpiryWindowDays = defaultExpiryWindowDays
	}
	now := s.now().UTC()

	// The three candidate queries are independent reads; run them concurrently.
	var (
		reorder  []ReorderCandidate
		dead     []DeadStockCandidate
		expiring []ExpiringLotCandidate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reorder, err = s.repo.ReorderCandidates(gctx, actor.OrgID, scope.BranchID)
		return err
	})
	g.Go(func() error {
		var err error
		dead, err = s.repo.DeadStockCandidates(gctx, actor.OrgID, scope.BranchID,
			now.AddDate(0, 0, -scope.DeadStockDays))
		return err
	})
	g.Go(func() error {
		var err error
		expiring, err = s.repo.ExpiringLotCandidates(gctx, actor.OrgID, scope.BranchID,
			now.AddDate(0, 0, scope.ExpiryWindowDays))
		return err
	})
	if err := g.Wait(); err != nil {
		return EvaluateResult{}, err
	}

	var candidates []Alert
	for _, c := range reorder {
		candidates = append(candidates, Alert{
			Type:       TypeBelowReorderPoint,
			Severity:   SeverityWarning,
			EntityType: "item",
			EntityID:   c.ItemID,
			Details: map[string]any{
				"sku":           c.SKU,
				"on_hand":       c.OnHand.String(),
				"reorder_level": c.ReorderLevel.String(),
			},
		})
	}

	for _, c := range dead {
		candidates = append(candidates, Alert{
			Type:       TypeDeadStock,
			Severity:   SeverityWarning,
			EntityType: "item",
			EntityID:   c.ItemID,
			Details: map[string]any{
				"sku":              c.SKU,
				"on_hand":          c.OnHand.String(),
				"last_movement_at": c.LastMovementAt.Format(time.RFC3339),
			},
		})
	}

	for _, c := range expiring {
		candidates = append(candidates, Alert{
			Type:       TypeExpiringLot,
			Severity:   SeverityCritical,
			EntityType: "lot",
			EntityID:   c.LotID,
			Details: map[string]any{
				"lot_number":    c.LotNumber,
				"item_id":       c.ItemID.String(),
				"remaining_qty": c.RemainingQty.String(),
				"expiry_date":   c.ExpiryDate.Format("2006-01-02"),
			},
		})
	}

	result := EvaluateResult{AlertsByType: map[AlertType]int{}}
	for _, candidate := range candidates {
		candidate.ID = uuid.New()
		candidate.OrgID = actor.OrgID
		candidate.BranchID = scope.BranchID
		candidate.Status = StatusOpen
		candidate.CreatedAt = now
		candidate.UpdatedAt = now
		if err := s.repo.InsertAlert(ctx, candidate); err != nil {
			if errors.Is(err, shared.ErrConflict) {
				result.SkippedDuplicate++
				continue
			}
			return EvaluateResult{}, err
		}
		result.Created++
		result.AlertsByType[candidate.Type]++
		if s.metrics != nil {
			s.metrics.AlertCreated(string(candidate.Type))
		}
	}
	if s.audit != nil && result.Created > 0 {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    actor.OrgID,
			ActorID:  actor.UserID,
			Action:   "alerts:evaluate",
			Entity:   "branch",
			EntityID: scope.BranchID.String(),
			Meta:     map[string]any{"created": result.Created, "skipped": result.SkippedDuplicate},
		})
	}
	return result, nil
}

// Acknowledge moves an OPEN alert to ACKNOWLEDGED. Acknowledging an already
// acknowledged alert succeeds without touching the row.
func (s *Service) Acknowledge(ctx context.Context, alertID uuid.UUID) (Alert, error) {
	return s.transition(ctx, alertID, StatusAcknowledged, func(current Status) (bool, error) {
		switch current {
		case StatusOpen:
			return true, nil
		case StatusAcknowledged:
			return false, nil
		default:
			return false, fmt.Errorf("alerts: cannot acknowledge a %s alert: %w", current, shared.ErrInvalidState)
		}
	})
}

// Resolve moves an alert to RESOLVED from either OPEN or ACKNOWLEDGED.
// Resolving an already resolved alert succeeds without touching the row.
func (s *Service) Resolve(ctx context.Context, alertID uuid.UUID) (Alert, error) {
	return s.transition(ctx, alertID, StatusResolved, func(current Status) (bool, error) {
		if current == StatusResolved {
			return false, nil
		}
		return true, nil
	})
}

func (s *Service) transition(ctx context.Context, alertID uuid.UUID, to Status, decide func(Status) (bool, error)) (Alert, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return Alert{}, fmt.Errorf("alerts: missing actor: %w", shared.ErrForbidden)
	}
	alert, err := s.repo.GetAlert(ctx, actor.OrgID, alertID)
	if err != nil {
		return Alert{}, err
	}
	apply, err := decide(alert.Status)
	if err != nil {
		return Alert{}, err
	}
	if !apply {
		return alert, nil
	}
	now := s.now().UTC()
	if err := s.repo.UpdateAlertStatus(ctx, alertID, to, now); err != nil {
		return Alert{}, err
	}
	alert.Status = to
	alert.UpdatedAt = now
	return alert, nil
}

// Alerts lists a branch's alerts, optionally filtered by status.
func (s *Service) Alerts(ctx context.Context, branchID uuid.UUID, status Status) ([]Alert, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("alerts: missing actor: %w", shared.ErrForbidden)
	}
	return s.repo.ListAlerts(ctx, actor.OrgID, branchID, status)
}
