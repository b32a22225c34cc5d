package lots

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	InsertLot(ctx context.Context, lot InventoryLot) error
	ListLots(ctx context.Context, orgID, itemID, locationID uuid.UUID) ([]InventoryLot, error)
	GetLot(ctx context.Context, orgID, lotID uuid.UUID) (InventoryLot, error)
}

// Service manages lot lifecycle and standalone allocations. The production
// orchestrator drives the same allocator logic through its own transaction.
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

// CreateLotInput describes a lot opened by a receipt.
type CreateLotInput struct {
	ItemID     uuid.UUID
	LocationID uuid.UUID
	LotNumber  string
	Qty        decimal.Decimal
	UnitCost   decimal.Decimal
	ExpiryDate *time.Time
}

// CreateLot opens a new lot with the full received quantity remaining.
func (s *Service) CreateLot(ctx context.Context, in CreateLotInput) (InventoryLot, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return InventoryLot{}, fmt.Errorf("lots: missing actor: %w", shared.ErrForbidden)
	}
	if in.ItemID == uuid.Nil || in.LocationID == uuid.Nil {
		return InventoryLot{}, fmt.Errorf("lots: item and location required: %w", shared.ErrInvalidReference)
	}
	if strings.TrimSpace(in.LotNumber) == "" {
		return InventoryLot{}, fmt.Errorf("lots: lot number required: %w", shared.ErrInvalidArgument)
	}
	if in.Qty.Sign() <= 0 {
		return InventoryLot{}, fmt.Errorf("lots: received quantity must be positive: %w", shared.ErrInvalidArgument)
	}
	lot := InventoryLot{
		ID:           uuid.New(),
		OrgID:        actor.OrgID,
		ItemID:       in.ItemID,
		LocationID:   in.LocationID,
		LotNumber:    in.LotNumber,
		ReceivedQty:  in.Qty,
		RemainingQty: in.Qty,
		UnitCost:     in.UnitCost,
		ReceivedAt:   s.now().UTC(),
		ExpiryDate:   in.ExpiryDate,
		Status:       LotStatusActive,
	}
	if err := s.repo.InsertLot(ctx, lot); err != nil {
		return InventoryLot{}, err
	}
	return lot, nil
}

// AllocateRequest is the standalone allocation surface used by sale and
// adjustment flows that consume lot-tracked items outside production.
type AllocateRequest struct {
	ItemID        uuid.UUID
	LocationID    uuid.UUID
	Qty           decimal.Decimal
	ExplicitLotID *uuid.UUID
	LedgerEntryID uuid.UUID
	SourceType    string
	SourceID      uuid.UUID
}

// Allocate runs the FIFO allocator inside its own transaction.
func (s *Service) Allocate(ctx context.Context, req AllocateRequest) ([]LotLedgerAllocation, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("lots: missing actor: %w", shared.ErrForbidden)
	}
	var allocations []LotLedgerAllocation
	err := s.repo.WithTx(ctx, func(ctx context.Context, store TxStore) error {
		var err error
		allocations, err = Allocate(ctx, store, AllocateInput{
			OrgID:         actor.OrgID,
			ItemID:        req.ItemID,
			LocationID:    req.LocationID,
			Qty:           req.Qty,
			ExplicitLotID: req.ExplicitLotID,
			LedgerEntryID: req.LedgerEntryID,
			SourceType:    req.SourceType,
			SourceID:      req.SourceID,
			Now:           s.now().UTC(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return allocations, nil
}

// Restore reverses previously written allocations inside its own transaction.
func (s *Service) Restore(ctx context.Context, allocationIDs []uuid.UUID, sourceType string, sourceID uuid.UUID) error {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return fmt.Errorf("lots: missing actor: %w", shared.ErrForbidden)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, store TxStore) error {
		return Restore(ctx, store, RestoreInput{
			OrgID:         actor.OrgID,
			AllocationIDs: allocationIDs,
			SourceType:    sourceType,
			SourceID:      sourceID,
			Now:           s.now().UTC(),
		})
	})
}

// Lots lists lots for an item at a location with statuses derived as of now.
func (s *Service) Lots(ctx context.Context, itemID, locationID uuid.UUID) ([]InventoryLot, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("lots: missing actor: %w", shared.ErrForbidden)
	}
	found, err := s.repo.ListLots(ctx, actor.OrgID, itemID, locationID)
	if err != nil {
		return nil, err
	}
	asOf := s.now().UTC()
	for i := range found {
		found[i].Status = found[i].EffectiveStatus(asOf)
	}
	return found, nil
}
