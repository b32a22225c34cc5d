package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/ledger"
)

// StockCardEntry is one movement on an item's card with the running balance
// after it.
type StockCardEntry struct {
	EntryID    uuid.UUID
	At         time.Time
	Reason     ledger.Reason
	SourceType string
	SourceID   uuid.UUID
	Qty        decimal.Decimal
	Balance    decimal.Decimal
	Notes      string
}

// StockCard is the movement history of one item over a window, with opening
// and closing balances derived from the full entry set.
type StockCard struct {
	ItemID     uuid.UUID
	LocationID *uuid.UUID
	From       time.Time
	To         time.Time
	Opening    decimal.Decimal
	Closing    decimal.Decimal
	Entries    []StockCardEntry
}

// ValuationLine is one item's current on-hand valued at its weighted average
// cost.
type ValuationLine struct {
	ItemID uuid.UUID
	SKU    string
	OnHand decimal.Decimal
	Wac    decimal.Decimal
	Value  decimal.Decimal
}

// ValuationReport values a branch's stock as of a point in time.
type ValuationReport struct {
	BranchID    uuid.UUID
	AsOf        time.Time
	Lines       []ValuationLine
	Total       decimal.Decimal
	GeneratedAt time.Time
}

// TransferInput moves stock between two locations of the same branch.
type TransferInput struct {
	BranchID       uuid.UUID
	ItemID         uuid.UUID
	FromLocationID uuid.UUID
	ToLocationID   uuid.UUID
	Qty            decimal.Decimal
	Notes          string
}

// TransferResult carries the two entries one transfer appends. Both share a
// source id; their quantities cancel out, so a transfer never changes
// branch-wide on-hand.
type TransferResult struct {
	TransferID uuid.UUID
	Out        ledger.Entry
	In         ledger.Entry
}
