package lots

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// LotStatus enumerates lot lifecycle states.
type LotStatus string

const (
	LotStatusActive   LotStatus = "ACTIVE"
	LotStatusDepleted LotStatus = "DEPLETED"
	LotStatusExpired  LotStatus = "EXPIRED"
)

// InventoryLot is a traceable sub-quantity of an item received together.
// RemainingQty is the one mutable field: it is a derived running balance, owned
// exclusively by the allocator's consumption and restoration logic.
// Invariant: 0 <= RemainingQty <= ReceivedQty.
type InventoryLot struct {
	ID           uuid.UUID
	OrgID        uuid.UUID
	ItemID       uuid.UUID
	LocationID   uuid.UUID
	LotNumber    string
	ReceivedQty  decimal.Decimal
	RemainingQty decimal.Decimal
	UnitCost     decimal.Decimal
	ReceivedAt   time.Time
	ExpiryDate   *time.Time
	Status       LotStatus
}

// LotLedgerAllocation is an immutable join record linking a ledger movement to
// the lot it drew from. Restores append sign-flipped rows; originals are never
// deleted.
type LotLedgerAllocation struct {
	ID              uuid.UUID
	LotID           uuid.UUID
	LedgerEntryID   uuid.UUID
	AllocatedQty    decimal.Decimal
	SourceType      string
	SourceID        uuid.UUID
	AllocationOrder int
	CreatedAt       time.Time
}

// EffectiveStatus derives the lot status as of a point in time. Expiry is never
// ticked by a background process; it is computed from the stored expiry date on
// every read.
func (l InventoryLot) EffectiveStatus(asOf time.Time) LotStatus {
	if l.Status == LotStatusActive && l.ExpiryDate != nil && l.ExpiryDate.Before(asOf) {
		return LotStatusExpired
	}
	return l.Status
}

// PlannedPortion is one slice of an allocation plan.
type PlannedPortion struct {
	Lot InventoryLot
	Qty decimal.Decimal
}

// SelectLots plans a FIFO consumption across candidate lots. Ordering is
// (receivedAt, lotID) ascending so the same inputs always produce the same plan.
// Lots that are not effectively ACTIVE as of asOf, or have nothing remaining,
// are skipped. A shortfall fails with an insufficient-stock error naming the
// requested and available quantities.
func SelectLots(candidates []InventoryLot, qty decimal.Decimal, asOf time.Time) ([]PlannedPortion, error) {
	if qty.Sign() <= 0 {
		return nil, fmt.Errorf("lots: allocation quantity must be positive: %w", shared.ErrInvalidArgument)
	}
	eligible := make([]InventoryLot, 0, len(candidates))
	available := decimal.Zero
	for _, lot := range candidates {
		if lot.EffectiveStatus(asOf) != LotStatusActive || lot.RemainingQty.Sign() <= 0 {
			continue
		}
		eligible = append(eligible, lot)
		available = available.Add(lot.RemainingQty)
	}
	if available.LessThan(qty) {
		return nil, fmt.Errorf("lots: insufficient stock: requested %s, available %s: %w",
			qty, available, shared.ErrInsufficientStock)
	}
	sort.Slice(eligible, func(i, j int) bool {
		if !eligible[i].ReceivedAt.Equal(eligible[j].ReceivedAt) {
			return eligible[i].ReceivedAt.Before(eligible[j].ReceivedAt)
		}
		return eligible[i].ID.String() < eligible[j].ID.String()
	})
	var plan []PlannedPortion
	remaining := qty
	for _, lot := range eligible {
		if remaining.IsZero() {
			break
		}
		take := decimal.Min(lot.RemainingQty, remaining)
		plan = append(plan, PlannedPortion{Lot: lot, Qty: take})
		remaining = remaining.Sub(take)
	}
	return plan, nil
}
