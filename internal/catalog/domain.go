package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Item is a stockable product or ingredient.
type Item struct {
	ID           uuid.UUID
	OrgID        uuid.UUID
	SKU          string
	Name         string
	UnitID       uuid.UUID
	LotTracked   bool
	ReorderLevel decimal.Decimal
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StockLocation is a physical place stock is held at within a branch.
type StockLocation struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	BranchID  uuid.UUID
	Code      string
	Name      string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemFilter narrows item listings.
type ItemFilter struct {
	Search     string
	ActiveOnly bool
}
