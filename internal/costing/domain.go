package costing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Method identifies the costing method of a layer.
type Method string

// MethodWAC is the weighted-average-cost method. The engine fixes WAC; lot-pinned
// consumption uses the lot's own received cost instead.
const MethodWAC Method = "WAC"

// CostLayer is one immutable row per cost-affecting event. NewWac becomes the
// basis for subsequent consumption costing until the next layer.
type CostLayer struct {
	ID          uuid.UUID
	OrgID       uuid.UUID
	ItemID      uuid.UUID
	Method      Method
	QtyReceived decimal.Decimal
	UnitCost    decimal.Decimal
	PriorWac    decimal.Decimal
	NewWac      decimal.Decimal
	SourceType  string
	SourceID    uuid.UUID
	CreatedAt   time.Time
}

// ReceiveInput describes an incoming cost-affecting movement.
type ReceiveInput struct {
	ItemID     uuid.UUID
	Qty        decimal.Decimal
	UnitCost   decimal.Decimal
	SourceType string
	SourceID   uuid.UUID
}

// CostComponent is one consumed input feeding a production output cost.
type CostComponent struct {
	Qty      decimal.Decimal
	UnitCost decimal.Decimal
}
