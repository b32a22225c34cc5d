package costing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// RoundCents rounds half-up to the smallest currency unit. This is the one
// rounding rule the inventory engine applies to money outputs.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// WeightedAverage recomputes the running average cost after a receipt.
// qty zero is a no-op: the prior average carries through unchanged. When nothing
// is on hand the incoming cost becomes the new average.
func WeightedAverage(priorQty, priorWac, qty, unitCost decimal.Decimal) decimal.Decimal {
	if qty.IsZero() {
		return priorWac
	}
	if priorQty.Sign() <= 0 {
		return unitCost
	}
	total := priorQty.Mul(priorWac).Add(qty.Mul(unitCost))
	return total.Div(priorQty.Add(qty))
}

// ProductionUnitCost derives the output unit cost of a production batch:
// sum of consumed quantity times cost basis, divided by output quantity,
// rounded half-up to cents.
func ProductionUnitCost(inputs []CostComponent, outputQty decimal.Decimal) (decimal.Decimal, error) {
	if outputQty.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("costing: output quantity must be positive: %w", shared.ErrInvalidArgument)
	}
	total := decimal.Zero
	for _, in := range inputs {
		total = total.Add(in.Qty.Mul(in.UnitCost))
	}
	return RoundCents(total.Div(outputQty)), nil
}
