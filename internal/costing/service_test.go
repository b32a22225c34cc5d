package costing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

type memoryRepo struct {
	onHand map[uuid.UUID]decimal.Decimal
	layers []CostLayer
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{onHand: map[uuid.UUID]decimal.Decimal{}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) OnHandQty(ctx context.Context, orgID, itemID uuid.UUID) (decimal.Decimal, error) {
	if qty, ok := r.onHand[itemID]; ok {
		return qty, nil
	}
	return decimal.Zero, nil
}

func (r *memoryRepo) CurrentWac(ctx context.Context, orgID, itemID uuid.UUID) (decimal.Decimal, error) {
	for i := len(r.layers) - 1; i >= 0; i-- {
		if r.layers[i].OrgID == orgID && r.layers[i].ItemID == itemID {
			return r.layers[i].NewWac, nil
		}
	}
	return decimal.Zero, nil
}

func (r *memoryRepo) InsertLayer(ctx context.Context, layer CostLayer) error {
	r.layers = append(r.layers, layer)
	return nil
}

func (r *memoryRepo) ListLayers(ctx context.Context, orgID, itemID uuid.UUID, limit int) ([]CostLayer, error) {
	var out []CostLayer
	for i := len(r.layers) - 1; i >= 0 && len(out) < limit; i-- {
		if r.layers[i].OrgID == orgID && r.layers[i].ItemID == itemID {
			out = append(out, r.layers[i])
		}
	}
	return out, nil
}

func testContext() context.Context {
	return shared.ContextWithActor(context.Background(), shared.Actor{
		OrgID:  uuid.New(),
		UserID: 3,
		Role:   shared.RoleManager,
	})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestReceiveRecomputesWeightedAverage(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := testContext()
	itemID := uuid.New()

	layer, err := svc.Receive(ctx, ReceiveInput{ItemID: itemID, Qty: dec("10"), UnitCost: dec("100")})
	require.NoError(t, err)
	require.True(t, layer.NewWac.Equal(dec("100")), "empty stock takes incoming cost, got %s", layer.NewWac)

	repo.onHand[itemID] = dec("10")
	layer, err = svc.Receive(ctx, ReceiveInput{ItemID: itemID, Qty: dec("5"), UnitCost: dec("130")})
	require.NoError(t, err)
	// (10*100 + 5*130) / 15 = 110
	require.True(t, layer.NewWac.Equal(dec("110")), "got %s", layer.NewWac)
	require.True(t, layer.PriorWac.Equal(dec("100")))

	cost, err := svc.ConsumptionCost(ctx, itemID)
	require.NoError(t, err)
	require.True(t, cost.Equal(dec("110")))
}

func TestReceiveZeroQtyKeepsPriorWac(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := testContext()
	itemID := uuid.New()

	_, err := svc.Receive(ctx, ReceiveInput{ItemID: itemID, Qty: dec("8"), UnitCost: dec("25")})
	require.NoError(t, err)
	repo.onHand[itemID] = dec("8")

	layer, err := svc.Receive(ctx, ReceiveInput{ItemID: itemID, Qty: decimal.Zero, UnitCost: dec("999")})
	require.NoError(t, err)
	require.True(t, layer.NewWac.Equal(layer.PriorWac))
	require.True(t, layer.NewWac.Equal(dec("25")))
}

func TestReceiveRejectsNegativeInputs(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := testContext()

	_, err := svc.Receive(ctx, ReceiveInput{ItemID: uuid.New(), Qty: dec("-1"), UnitCost: dec("10")})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = svc.Receive(ctx, ReceiveInput{ItemID: uuid.New(), Qty: dec("1"), UnitCost: dec("-10")})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestProductionUnitCost(t *testing.T) {
	// 20 units at $10 producing 10 outputs costs $20.00 per output.
	cost, err := ProductionUnitCost([]CostComponent{{Qty: dec("20"), UnitCost: dec("10")}}, dec("10"))
	require.NoError(t, err)
	require.Equal(t, "20", cost.String())

	cost, err = ProductionUnitCost([]CostComponent{
		{Qty: dec("3"), UnitCost: dec("1.5")},
		{Qty: dec("2"), UnitCost: dec("0.4")},
	}, dec("7"))
	require.NoError(t, err)
	// (4.5 + 0.8) / 7 = 0.757142... -> 0.76 half-up
	require.Equal(t, "0.76", cost.String())

	_, err = ProductionUnitCost(nil, decimal.Zero)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestRoundCentsHalfUp(t *testing.T) {
	require.Equal(t, "1.35", RoundCents(dec("1.345")).String())
	require.Equal(t, "2.01", RoundCents(dec("2.005")).String())
	require.Equal(t, "-1.35", RoundCents(dec("-1.345")).String())
}

func TestWeightedAverageExactDecimal(t *testing.T) {
	// Repeated recomputation must not drift: 3 x (10 @ 1.1) keeps WAC at 1.1 exactly.
	qty, wac := decimal.Zero, decimal.Zero
	for i := 0; i < 3; i++ {
		wac = WeightedAverage(qty, wac, dec("10"), dec("1.1"))
		qty = qty.Add(dec("10"))
	}
	require.True(t, wac.Equal(dec("1.1")), "got %s", wac)
}
