package alerts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlertType enumerates the conditions the evaluator derives from ledger
// aggregates and item metadata.
type AlertType string

const (
	TypeBelowReorderPoint AlertType = "BELOW_REORDER_POINT"
	TypeDeadStock         AlertType = "DEAD_STOCK"
	TypeExpiringLot       AlertType = "EXPIRING_LOT"
)

// Severity ranks alerts for display ordering.
type Severity string

const (
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Status is the alert lifecycle: OPEN → ACKNOWLEDGED → RESOLVED.
type Status string

const (
	StatusOpen         Status = "OPEN"
	StatusAcknowledged Status = "ACKNOWLEDGED"
	StatusResolved     Status = "RESOLVED"
)

// Alert is one derived finding. At most one OPEN alert may exist per
// (org, type, entity); the storage layer enforces that with a partial unique
// index and re-evaluation counts the collision as a skip.
type Alert struct {
	ID         uuid.UUID
	OrgID      uuid.UUID
	BranchID   uuid.UUID
	Type       AlertType
	Severity   Severity
	EntityType string
	EntityID   uuid.UUID
	Status     Status
	Details    map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EvaluateResult reports what one evaluation run did.
type EvaluateResult struct {
	Created          int
	SkippedDuplicate int
	AlertsByType     map[AlertType]int
}

// ReorderCandidate is an item whose on-hand dropped below its reorder level.
type ReorderCandidate struct {
	ItemID       uuid.UUID
	SKU          string
	OnHand       decimal.Decimal
	ReorderLevel decimal.Decimal
}

// DeadStockCandidate is an item holding stock with no ledger movement since
// the cutoff.
type DeadStockCandidate struct {
	ItemID         uuid.UUID
	SKU            string
	OnHand         decimal.Decimal
	LastMovementAt time.Time
}

// ExpiringLotCandidate is an active lot whose expiry date falls inside the
// lookahead window.
type ExpiringLotCandidate struct {
	LotID        uuid.UUID
	ItemID       uuid.UUID
	LotNumber    string
	RemainingQty decimal.Decimal
	ExpiryDate   time.Time
}
