package costing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CurrentWac(ctx context.Context, orgID, itemID uuid.UUID) (decimal.Decimal, error)
	ListLayers(ctx context.Context, orgID, itemID uuid.UUID, limit int) ([]CostLayer, error)
}

// TxRepository exposes transactional operations used by Receive.
type TxRepository interface {
	OnHandQty(ctx context.Context, orgID, itemID uuid.UUID) (decimal.Decimal, error)
	CurrentWac(ctx context.Context, orgID, itemID uuid.UUID) (decimal.Decimal, error)
	InsertLayer(ctx context.Context, layer CostLayer) error
}

// Service computes weighted-average costs. One immutable cost layer is written
// per cost-affecting event; consumption always costs at the current WAC unless
// the movement is pinned to a lot.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Receive records an incoming cost-affecting movement and recomputes the WAC.
// A zero quantity writes a layer whose NewWac equals PriorWac.
func (s *Service) Receive(ctx context.Context, in ReceiveInput) (CostLayer, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return CostLayer{}, fmt.Errorf("costing: missing actor: %w", shared.ErrForbidden)
	}
	if in.ItemID == uuid.Nil {
		return CostLayer{}, fmt.Errorf("costing: item required: %w", shared.ErrInvalidReference)
	}
	if in.Qty.Sign() < 0 {
		return CostLayer{}, fmt.Errorf("costing: received quantity must not be negative: %w", shared.ErrInvalidArgument)
	}
	if in.UnitCost.Sign() < 0 {
		return CostLayer{}, fmt.Errorf("costing: unit cost must not be negative: %w", shared.ErrInvalidArgument)
	}
	var layer CostLayer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		priorQty, err := tx.OnHandQty(ctx, actor.OrgID, in.ItemID)
		if err != nil {
			return err
		}
		priorWac, err := tx.CurrentWac(ctx, actor.OrgID, in.ItemID)
		if err != nil {
			return err
		}
		layer = CostLayer{
			ID:          uuid.New(),
			OrgID:       actor.OrgID,
			ItemID:      in.ItemID,
			Method:      MethodWAC,
			QtyReceived: in.Qty,
			UnitCost:    in.UnitCost,
			PriorWac:    priorWac,
			NewWac:      WeightedAverage(priorQty, priorWac, in.Qty, in.UnitCost),
			SourceType:  in.SourceType,
			SourceID:    in.SourceID,
			CreatedAt:   s.now().UTC(),
		}
		return tx.InsertLayer(ctx, layer)
	})
	if err != nil {
		return CostLayer{}, err
	}
	return layer, nil
}

// ConsumptionCost returns the current WAC to apply to the next outgoing movement.
func (s *Service) ConsumptionCost(ctx context.Context, itemID uuid.UUID) (decimal.Decimal, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return decimal.Zero, fmt.Errorf("costing: missing actor: %w", shared.ErrForbidden)
	}
	return s.repo.CurrentWac(ctx, actor.OrgID, itemID)
}

// Layers lists recent cost layers for an item, newest first.
func (s *Service) Layers(ctx context.Context, itemID uuid.UUID, limit int) ([]CostLayer, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("costing: missing actor: %w", shared.ErrForbidden)
	}
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListLayers(ctx, actor.OrgID, itemID, limit)
}
