package uom

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Unit is a measurement unit items are stocked or consumed in.
type Unit struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	Code      string
	Name      string
	CreatedAt time.Time
}

// ConversionFactor maps one unit onto another: qty(from) × Factor = qty(to).
// Factors are additive; a stored factor is never updated in place, a corrected
// pair is inserted instead.
type ConversionFactor struct {
	ID         uuid.UUID
	OrgID      uuid.UUID
	FromUnitID uuid.UUID
	ToUnitID   uuid.UUID
	Factor     decimal.Decimal
	CreatedAt  time.Time
}

// Apply converts qty expressed in the factor's from-unit into the to-unit.
func (f ConversionFactor) Apply(qty decimal.Decimal) decimal.Decimal {
	return qty.Mul(f.Factor)
}

// ApplyInverse converts qty expressed in the factor's to-unit back into the
// from-unit.
func (f ConversionFactor) ApplyInverse(qty decimal.Decimal) decimal.Decimal {
	return qty.Div(f.Factor)
}
