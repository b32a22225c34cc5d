package lots

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// TxStore exposes the lot operations the allocator needs inside a transaction.
// The production orchestrator's transactional repository satisfies it too, so
// allocation and ledger writes share one atomic boundary.
type TxStore interface {
	ActiveLotsForUpdate(ctx context.Context, orgID, itemID, locationID uuid.UUID) ([]InventoryLot, error)
	LotForUpdate(ctx context.Context, orgID, lotID uuid.UUID) (InventoryLot, error)
	UpdateLotRemaining(ctx context.Context, lotID uuid.UUID, remaining decimal.Decimal, status LotStatus) error
	InsertAllocation(ctx context.Context, allocation LotLedgerAllocation) error
	AllocationsByIDs(ctx context.Context, ids []uuid.UUID) ([]LotLedgerAllocation, error)
}

// AllocateInput describes one consuming movement to draw from lots.
type AllocateInput struct {
	OrgID         uuid.UUID
	ItemID        uuid.UUID
	LocationID    uuid.UUID
	Qty           decimal.Decimal
	ExplicitLotID *uuid.UUID
	LedgerEntryID uuid.UUID
	SourceType    string
	SourceID      uuid.UUID
	Now           time.Time
}

// Allocate consumes qty from lots. A pinned lot is a hard constraint: the call
// fails on its shortfall even when other lots could cover the request. Without a
// pin, lots are consumed FIFO by receipt date, splitting across lots until the
// request is satisfied.
func Allocate(ctx context.Context, store TxStore, in AllocateInput) ([]LotLedgerAllocation, error) {
	if in.Qty.Sign() <= 0 {
		return nil, fmt.Errorf("lots: allocation quantity must be positive: %w", shared.ErrInvalidArgument)
	}
	var plan []PlannedPortion
	if in.ExplicitLotID != nil {
		lot, err := store.LotForUpdate(ctx, in.OrgID, *in.ExplicitLotID)
		if err != nil {
			return nil, err
		}
		if lot.ItemID != in.ItemID || lot.LocationID != in.LocationID {
			return nil, fmt.Errorf("lots: lot %s does not hold item at location: %w", lot.ID, shared.ErrInvalidReference)
		}
		if lot.EffectiveStatus(in.Now) != LotStatusActive || lot.RemainingQty.LessThan(in.Qty) {
			return nil, fmt.Errorf("lots: insufficient stock in lot %s: requested %s, available %s: %w",
				lot.LotNumber, in.Qty, lot.RemainingQty, shared.ErrInsufficientStock)
		}
		plan = []PlannedPortion{{Lot: lot, Qty: in.Qty}}
	} else {
		candidates, err := store.ActiveLotsForUpdate(ctx, in.OrgID, in.ItemID, in.LocationID)
		if err != nil {
			return nil, err
		}
		plan, err = SelectLots(candidates, in.Qty, in.Now)
		if err != nil {
			return nil, err
		}
	}

	allocations := make([]LotLedgerAllocation, 0, len(plan))
	for order, portion := range plan {
		remaining := portion.Lot.RemainingQty.Sub(portion.Qty)
		status := portion.Lot.Status
		if remaining.IsZero() {
			status = LotStatusDepleted
		}
		if err := store.UpdateLotRemaining(ctx, portion.Lot.ID, remaining, status); err != nil {
			return nil, err
		}
		allocation := LotLedgerAllocation{
			ID:              uuid.New(),
			LotID:           portion.Lot.ID,
			LedgerEntryID:   in.LedgerEntryID,
			AllocatedQty:    portion.Qty,
			SourceType:      in.SourceType,
			SourceID:        in.SourceID,
			AllocationOrder: order,
			CreatedAt:       in.Now,
		}
		if err := store.InsertAllocation(ctx, allocation); err != nil {
			return nil, err
		}
		allocations = append(allocations, allocation)
	}
	return allocations, nil
}

// RestoreInput identifies allocations to reverse during a void.
// ReversalEntryIDs maps each consuming ledger entry to the compensating entry
// the void wrote; reversal allocation rows reference the compensating entry so
// the join record matches the movement direction.
type RestoreInput struct {
	OrgID            uuid.UUID
	AllocationIDs    []uuid.UUID
	ReversalEntryIDs map[uuid.UUID]uuid.UUID
	SourceType       string
	SourceID         uuid.UUID
	Now              time.Time
}

// Restore adds each allocation's quantity back to its lot, reviving depleted
// lots that regain positive quantity, and appends sign-flipped reversal
// allocation rows instead of deleting the originals.
func Restore(ctx context.Context, store TxStore, in RestoreInput) error {
	allocations, err := store.AllocationsByIDs(ctx, in.AllocationIDs)
	if err != nil {
		return err
	}
	if len(allocations) != len(in.AllocationIDs) {
		return fmt.Errorf("lots: unknown allocation in restore set: %w", shared.ErrInvalidReference)
	}
	for order, allocation := range allocations {
		lot, err := store.LotForUpdate(ctx, in.OrgID, allocation.LotID)
		if err != nil {
			return err
		}
		remaining := lot.RemainingQty.Add(allocation.AllocatedQty)
		if remaining.GreaterThan(lot.ReceivedQty) {
			return fmt.Errorf("lots: restore would exceed received quantity of lot %s: %w",
				lot.LotNumber, shared.ErrInvalidState)
		}
		status := lot.Status
		if status == LotStatusDepleted && remaining.Sign() > 0 {
			status = LotStatusActive
		}
		if err := store.UpdateLotRemaining(ctx, lot.ID, remaining, status); err != nil {
			return err
		}
		ledgerEntryID := allocation.LedgerEntryID
		if id, ok := in.ReversalEntryIDs[allocation.LedgerEntryID]; ok {
			ledgerEntryID = id
		}
		reversal := LotLedgerAllocation{
			ID:              uuid.New(),
			LotID:           allocation.LotID,
			LedgerEntryID:   ledgerEntryID,
			AllocatedQty:    allocation.AllocatedQty.Neg(),
			SourceType:      in.SourceType,
			SourceID:        in.SourceID,
			AllocationOrder: order,
			CreatedAt:       in.Now,
		}
		if err := store.InsertAllocation(ctx, reversal); err != nil {
			return err
		}
	}
	return nil
}
