package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reason enumerates supported stock movement reasons.
type Reason string

const (
	// ReasonReceipt represents goods received into stock.
	ReasonReceipt Reason = "RECEIPT"
	// ReasonAdjustment represents a manual correction, positive or negative.
	ReasonAdjustment Reason = "ADJUSTMENT"
	// ReasonProductionConsume represents raw input consumed by a production batch.
	ReasonProductionConsume Reason = "PRODUCTION_CONSUME"
	// ReasonProductionProduce represents finished output of a production batch.
	ReasonProductionProduce Reason = "PRODUCTION_PRODUCE"
	// ReasonSale represents stock sold through the POS.
	ReasonSale Reason = "SALE"
	// ReasonTransfer represents movement between locations.
	ReasonTransfer Reason = "TRANSFER"
	// ReasonStocktake represents a stocktake finalisation delta.
	ReasonStocktake Reason = "STOCKTAKE"
)

// ValidReason reports whether the reason is one of the supported movement reasons.
func ValidReason(r Reason) bool {
	switch r {
	case ReasonReceipt, ReasonAdjustment, ReasonProductionConsume,
		ReasonProductionProduce, ReasonSale, ReasonTransfer, ReasonStocktake:
		return true
	default:
		return false
	}
}

// Entry is one immutable signed-quantity stock movement fact.
// Positive qty is stock in, negative is stock out. An entry is never updated or
// deleted; corrections are new entries with the quantity negated.
type Entry struct {
	ID         uuid.UUID
	OrgID      uuid.UUID
	BranchID   uuid.UUID
	ItemID     uuid.UUID
	LocationID uuid.UUID
	LotID      *uuid.UUID
	Qty        decimal.Decimal
	Reason     Reason
	SourceType string
	SourceID   uuid.UUID
	Notes      string
	CreatedBy  int64
	CreatedAt  time.Time
}

// Reversal builds the compensating entry input for e with the quantity negated.
func (e Entry) Reversal(actorID int64, notes string) AppendInput {
	return AppendInput{
		BranchID:   e.BranchID,
		ItemID:     e.ItemID,
		LocationID: e.LocationID,
		LotID:      e.LotID,
		Qty:        e.Qty.Neg(),
		Reason:     e.Reason,
		SourceType: e.SourceType,
		SourceID:   e.SourceID,
		Notes:      notes,
		ActorID:    actorID,
	}
}

// AppendInput describes a movement to append to the ledger.
type AppendInput struct {
	BranchID   uuid.UUID
	ItemID     uuid.UUID
	LocationID uuid.UUID
	LotID      *uuid.UUID
	Qty        decimal.Decimal
	Reason     Reason
	SourceType string
	SourceID   uuid.UUID
	Notes      string
	ActorID    int64
}

// OnHandKey identifies the aggregation key for an on-hand query.
// LocationID and LotID narrow the key when set.
type OnHandKey struct {
	ItemID     uuid.UUID
	LocationID *uuid.UUID
	LotID      *uuid.UUID
}

// EntryFilter filters entries for audit and export listings.
type EntryFilter struct {
	ItemID     *uuid.UUID
	LocationID *uuid.UUID
	Reason     *Reason
	SourceType string
	From       time.Time
	To         time.Time
}
