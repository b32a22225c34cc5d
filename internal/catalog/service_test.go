package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

type memoryRepo struct {
	items     map[uuid.UUID]Item
	locations map[uuid.UUID]StockLocation
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: map[uuid.UUID]Item{}, locations: map[uuid.UUID]StockLocation{}}
}

func (m *memoryRepo) InsertItem(ctx context.Context, item Item) error {
	for _, existing := range m.items {
		if existing.OrgID == item.OrgID && existing.SKU == item.SKU {
			return fmt.Errorf("catalog: sku %q already exists: %w", item.SKU, shared.ErrConflict)
		}
	}
	m.items[item.ID] = item
	return nil
}

func (m *memoryRepo) UpdateItem(ctx context.Context, item Item) error {
	if _, ok := m.items[item.ID]; !ok {
		return shared.ErrNotFound
	}
	m.items[item.ID] = item
	return nil
}

func (m *memoryRepo) GetItem(ctx context.Context, orgID, itemID uuid.UUID) (Item, error) {
	item, ok := m.items[itemID]
	if !ok || item.OrgID != orgID {
		return Item{}, fmt.Errorf("catalog: item %s: %w", itemID, shared.ErrNotFound)
	}
	return item, nil
}

func (m *memoryRepo) ListItems(ctx context.Context, orgID uuid.UUID, filter ItemFilter, page shared.Pagination) ([]Item, int, error) {
	var out []Item
	for _, item := range m.items {
		if item.OrgID == orgID {
			out = append(out, item)
		}
	}
	return out, len(out), nil
}

func (m *memoryRepo) InsertLocation(ctx context.Context, loc StockLocation) error {
	m.locations[loc.ID] = loc
	return nil
}

func (m *memoryRepo) UpdateLocation(ctx context.Context, loc StockLocation) error {
	m.locations[loc.ID] = loc
	return nil
}

func (m *memoryRepo) GetLocation(ctx context.Context, orgID, locationID uuid.UUID) (StockLocation, error) {
	loc, ok := m.locations[locationID]
	if !ok || loc.OrgID != orgID {
		return StockLocation{}, fmt.Errorf("catalog: location %s: %w", locationID, shared.ErrNotFound)
	}
	return loc, nil
}

func (m *memoryRepo) ListLocations(ctx context.Context, orgID, branchID uuid.UUID) ([]StockLocation, error) {
	var out []StockLocation
	for _, loc := range m.locations {
		if loc.OrgID == orgID && loc.BranchID == branchID {
			out = append(out, loc)
		}
	}
	return out, nil
}

func actorContext(orgID uuid.UUID) context.Context {
	return shared.ContextWithActor(context.Background(), shared.Actor{
		OrgID:    orgID,
		BranchID: uuid.New(),
		UserID:   3,
		Role:     shared.RoleManager,
	})
}

func TestCreateItemDefaultsActive(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := actorContext(uuid.New())

	item, err := svc.CreateItem(ctx, CreateItemInput{
		SKU: "FLOUR-01", Name: "Bread Flour", UnitID: uuid.New(),
		LotTracked: true, ReorderLevel: decimal.RequireFromString("25"),
	})
	require.NoError(t, err)
	require.True(t, item.Active)
	require.True(t, item.LotTracked)
	require.Equal(t, "FLOUR-01", item.SKU)
}

func TestCreateItemValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := actorContext(uuid.New())

	_, err := svc.CreateItem(ctx, CreateItemInput{SKU: " ", Name: "x", UnitID: uuid.New()})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = svc.CreateItem(ctx, CreateItemInput{SKU: "A", Name: "x"})
	require.ErrorIs(t, err, shared.ErrInvalidReference)

	_, err = svc.CreateItem(ctx, CreateItemInput{
		SKU: "A", Name: "x", UnitID: uuid.New(),
		ReorderLevel: decimal.RequireFromString("-1"),
	})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestCreateItemDuplicateSKU(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := actorContext(uuid.New())

	in := CreateItemInput{SKU: "SALT-01", Name: "Sea Salt", UnitID: uuid.New()}
	_, err := svc.CreateItem(ctx, in)
	require.NoError(t, err)
	_, err = svc.CreateItem(ctx, in)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestUpdateItemCrossTenantHidden(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)

	item, err := svc.CreateItem(actorContext(uuid.New()), CreateItemInput{
		SKU: "OIL-01", Name: "Olive Oil", UnitID: uuid.New(),
	})
	require.NoError(t, err)

	_, err = svc.UpdateItem(actorContext(uuid.New()), item.ID, UpdateItemInput{Name: "Stolen", Active: true})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeactivateLocationKeepsRow(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := actorContext(uuid.New())

	loc, err := svc.CreateLocation(ctx, CreateLocationInput{Code: "COLD-1", Name: "Walk-in Cooler"})
	require.NoError(t, err)
	require.True(t, loc.Active)

	got, err := svc.DeactivateLocation(ctx, loc.ID)
	require.NoError(t, err)
	require.False(t, got.Active)
	require.Len(t, repo.locations, 1)
}
