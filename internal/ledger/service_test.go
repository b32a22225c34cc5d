package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

type memoryRepo struct {
	entries  []Entry
	badItems map[uuid.UUID]bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{badItems: map[uuid.UUID]bool{}}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) ValidateRefs(ctx context.Context, orgID, branchID, itemID, locationID uuid.UUID) error {
	if r.badItems[itemID] {
		return fmt.Errorf("ledger: item %s not found in org: %w", itemID, shared.ErrInvalidReference)
	}
	return nil
}

func (r *memoryRepo) OnHandForUpdate(ctx context.Context, orgID, itemID, locationID uuid.UUID) (decimal.Decimal, error) {
	loc := locationID
	return r.SumQty(ctx, orgID, OnHandKey{ItemID: itemID, LocationID: &loc})
}

func (r *memoryRepo) InsertEntry(ctx context.Context, entry Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memoryRepo) SumQty(ctx context.Context, orgID uuid.UUID, key OnHandKey) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range r.entries {
		if e.OrgID != orgID || e.ItemID != key.ItemID {
			continue
		}
		if key.LocationID != nil && e.LocationID != *key.LocationID {
			continue
		}
		if key.LotID != nil && (e.LotID == nil || *e.LotID != *key.LotID) {
			continue
		}
		sum = sum.Add(e.Qty)
	}
	return sum, nil
}

func (r *memoryRepo) ListEntries(ctx context.Context, orgID uuid.UUID, filter EntryFilter, page shared.Pagination) ([]Entry, shared.Pagination, error) {
	var out []Entry
	for _, e := range r.entries {
		if e.OrgID != orgID {
			continue
		}
		if filter.ItemID != nil && e.ItemID != *filter.ItemID {
			continue
		}
		out = append(out, e)
	}
	return out, shared.NewPagination(page.Page, page.PerPage, len(out)), nil
}

func (r *memoryRepo) GetEntry(ctx context.Context, orgID, id uuid.UUID) (Entry, error) {
	for _, e := range r.entries {
		if e.OrgID == orgID && e.ID == id {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("ledger: entry %s: %w", id, shared.ErrNotFound)
}

func actorContext(orgID uuid.UUID) context.Context {
	return shared.ContextWithActor(context.Background(), shared.Actor{
		OrgID:    orgID,
		BranchID: uuid.New(),
		UserID:   7,
		Role:     shared.RoleManager,
	})
}

func appendInput(itemID, locationID uuid.UUID, qty string, reason Reason) AppendInput {
	return AppendInput{
		BranchID:   uuid.New(),
		ItemID:     itemID,
		LocationID: locationID,
		Qty:        decimal.RequireFromString(qty),
		Reason:     reason,
		SourceType: "adjustment",
		SourceID:   uuid.New(),
	}
}

func TestOnHandEqualsSumOfEntries(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	orgID := uuid.New()
	ctx := actorContext(orgID)

	itemID := uuid.New()
	locationID := uuid.New()

	deltas := []string{"10", "-3", "2.5", "-0.5", "4", "-1.25"}
	expected := decimal.Zero
	for _, d := range deltas {
		in := appendInput(itemID, locationID, d, ReasonAdjustment)
		_, err := svc.Append(ctx, in)
		require.NoError(t, err)
		expected = expected.Add(decimal.RequireFromString(d))

		onHand, err := svc.OnHand(ctx, OnHandKey{ItemID: itemID})
		require.NoError(t, err)
		require.True(t, expected.Equal(onHand), "on-hand drifted: want %s got %s", expected, onHand)
	}
	require.True(t, expected.Equal(decimal.RequireFromString("11.75")))
}

func TestAppendRejectsZeroQtyAndUnknownReason(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := actorContext(uuid.New())

	in := appendInput(uuid.New(), uuid.New(), "0", ReasonAdjustment)
	_, err := svc.Append(ctx, in)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	in = appendInput(uuid.New(), uuid.New(), "1", Reason("BOGUS"))
	_, err = svc.Append(ctx, in)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	require.Empty(t, repo.entries)
}

func TestAppendRejectsOverdraw(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := actorContext(uuid.New())

	itemID := uuid.New()
	locationID := uuid.New()
	_, err := svc.Append(ctx, appendInput(itemID, locationID, "5", ReasonReceipt))
	require.NoError(t, err)

	// selling more than is on hand fails before anything is written
	_, err = svc.Append(ctx, appendInput(itemID, locationID, "-8", ReasonSale))
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Contains(t, err.Error(), "insufficient stock")
	require.Len(t, repo.entries, 1)

	// draining the balance exactly is fine
	_, err = svc.Append(ctx, appendInput(itemID, locationID, "-5", ReasonSale))
	require.NoError(t, err)

	loc := locationID
	onHand, err := svc.OnHand(ctx, OnHandKey{ItemID: itemID, LocationID: &loc})
	require.NoError(t, err)
	require.True(t, onHand.IsZero())
}

func TestAppendRejectsUnknownReferences(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := actorContext(uuid.New())

	itemID := uuid.New()
	repo.badItems[itemID] = true
	_, err := svc.Append(ctx, appendInput(itemID, uuid.New(), "5", ReasonReceipt))
	require.ErrorIs(t, err, shared.ErrInvalidReference)
	require.Empty(t, repo.entries)
}

type closedGate struct{}

func (closedGate) EnsureOpenForPosting(ctx context.Context, orgID, branchID uuid.UUID, at time.Time) error {
	return fmt.Errorf("periods: %s is locked for posting: %w", at.Format("2006-01"), shared.ErrPeriodLocked)
}

func TestAppendRejectedWhenPeriodLocked(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, closedGate{}, nil)
	ctx := actorContext(uuid.New())

	_, err := svc.Append(ctx, appendInput(uuid.New(), uuid.New(), "5", ReasonReceipt))
	require.ErrorIs(t, err, shared.ErrPeriodLocked)
	require.Contains(t, err.Error(), "locked")
	require.Empty(t, repo.entries)
}

func TestAppendReversalNegatesQty(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := actorContext(uuid.New())

	original, err := svc.Append(ctx, appendInput(uuid.New(), uuid.New(), "4", ReasonReceipt))
	require.NoError(t, err)

	reversal, err := svc.AppendReversal(ctx, original.ID, "posted in error")
	require.NoError(t, err)
	require.True(t, reversal.Qty.Equal(original.Qty.Neg()))
	require.Equal(t, original.SourceID, reversal.SourceID)

	onHand, err := svc.OnHand(ctx, OnHandKey{ItemID: original.ItemID})
	require.NoError(t, err)
	require.True(t, onHand.IsZero())
}

func TestCrossTenantIsolation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	orgA := uuid.New()
	orgB := uuid.New()
	itemID := uuid.New()

	_, err := svc.Append(actorContext(orgB), appendInput(itemID, uuid.New(), "100", ReasonReceipt))
	require.NoError(t, err)

	onHand, err := svc.OnHand(actorContext(orgA), OnHandKey{ItemID: itemID})
	require.NoError(t, err)
	require.True(t, onHand.IsZero())

	entries, _, err := svc.Entries(actorContext(orgA), EntryFilter{ItemID: &itemID}, shared.Pagination{})
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestAppendRequiresActor(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	_, err := svc.Append(context.Background(), appendInput(uuid.New(), uuid.New(), "1", ReasonReceipt))
	require.ErrorIs(t, err, shared.ErrForbidden)
}
