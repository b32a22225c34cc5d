package production

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchStatus enumerates the batch lifecycle. The machine is strictly
// DRAFT → POSTED → VOID; a draft may also be deleted outright.
type BatchStatus string

const (
	StatusDraft  BatchStatus = "DRAFT"
	StatusPosted BatchStatus = "POSTED"
	StatusVoid   BatchStatus = "VOID"
)

// Batch turns consumed input items into one produced output item. UnitCost is
// derived at post time from the consumed components and is zero while DRAFT.
type Batch struct {
	ID               uuid.UUID
	OrgID            uuid.UUID
	BranchID         uuid.UUID
	Reference        string
	OutputItemID     uuid.UUID
	OutputLocationID uuid.UUID
	OutputQty        decimal.Decimal
	UnitCost         decimal.Decimal
	Status           BatchStatus
	Notes            string
	CreatedBy        int64
	CreatedAt        time.Time
	PostedBy         int64
	PostedAt         *time.Time
	VoidedBy         int64
	VoidedAt         *time.Time
	VoidReason       string
}

// Line is one input consumed by a batch. PinnedLotID forces consumption from
// that lot only; nil means FIFO across active lots (or plain on-hand checking
// for items that are not lot-tracked).
type Line struct {
	ID          uuid.UUID
	BatchID     uuid.UUID
	ItemID      uuid.UUID
	LocationID  uuid.UUID
	Qty         decimal.Decimal
	PinnedLotID *uuid.UUID
	CreatedAt   time.Time
}
