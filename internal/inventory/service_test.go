package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/chefcloud/chefcloud-erp/internal/ledger"
	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

type memoryRepo struct {
	entries   []ledger.Entry
	valuation []ValuationLine
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := append([]ledger.Entry(nil), m.entries...)
	if err := fn(ctx, &memoryTx{repo: m}); err != nil {
		m.entries = snapshot
		return err
	}
	return nil
}

func (m *memoryRepo) EntriesForItem(_ context.Context, orgID, branchID, itemID uuid.UUID, locationID *uuid.UUID, from, to time.Time) ([]ledger.Entry, error) {
	var out []ledger.Entry
	for _, e := range m.entries {
		if e.OrgID != orgID || e.BranchID != branchID || e.ItemID != itemID {
			continue
		}
		if locationID != nil && e.LocationID != *locationID {
			continue
		}
		if e.CreatedAt.Before(from) || e.CreatedAt.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memoryRepo) OpeningBalance(_ context.Context, orgID, branchID, itemID uuid.UUID, locationID *uuid.UUID, before time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range m.entries {
		if e.OrgID != orgID || e.BranchID != branchID || e.ItemID != itemID {
			continue
		}
		if locationID != nil && e.LocationID != *locationID {
			continue
		}
		if !e.CreatedAt.Before(before) {
			continue
		}
		sum = sum.Add(e.Qty)
	}
	return sum, nil
}

func (m *memoryRepo) Valuation(_ context.Context, _, _ uuid.UUID, _ time.Time) ([]ValuationLine, error) {
	return m.valuation, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (m *memoryTx) OnHandForUpdate(_ context.Context, orgID, itemID, locationID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, e := range m.repo.entries {
		if e.OrgID == orgID && e.ItemID == itemID && e.LocationID == locationID {
			sum = sum.Add(e.Qty)
		}
	}
	return sum, nil
}

func (m *memoryTx) InsertLedgerEntry(_ context.Context, entry ledger.Entry) error {
	m.repo.entries = append(m.repo.entries, entry)
	return nil
}

type openGate struct{}

func (openGate) EnsureOpenForPosting(context.Context, uuid.UUID, uuid.UUID, time.Time) error {
	return nil
}

type closedGate struct{}

func (closedGate) EnsureOpenForPosting(context.Context, uuid.UUID, uuid.UUID, time.Time) error {
	return shared.ErrPeriodLocked
}

type fixture struct {
	svc      *Service
	repo     *memoryRepo
	orgID    uuid.UUID
	branchID uuid.UUID
	itemID   uuid.UUID
	srcLoc   uuid.UUID
	dstLoc   uuid.UUID
	now      time.Time
}

func newFixture(t *testing.T, gate ledger.PeriodGate) *fixture {
	t.Helper()
	repo := &memoryRepo{}
	svc := NewService(repo, gate, nil)
	now := time.Date(2025, time.February, 10, 12, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return now })
	return &fixture{
		svc:      svc,
		repo:     repo,
		orgID:    uuid.New(),
		branchID: uuid.New(),
		itemID:   uuid.New(),
		srcLoc:   uuid.New(),
		dstLoc:   uuid.New(),
		now:      now,
	}
}

func (f *fixture) ctx() context.Context {
	return shared.ContextWithActor(context.Background(), shared.Actor{
		OrgID:    f.orgID,
		BranchID: f.branchID,
		UserID:   7,
		Role:     shared.RoleStaff,
	})
}

func (f *fixture) addStock(locationID uuid.UUID, qty string, at time.Time) {
	f.repo.entries = append(f.repo.entries, ledger.Entry{
		ID:         uuid.New(),
		OrgID:      f.orgID,
		BranchID:   f.branchID,
		ItemID:     f.itemID,
		LocationID: locationID,
		Qty:        decimal.RequireFromString(qty),
		Reason:     ledger.ReasonReceipt,
		SourceType: "purchase_order",
		SourceID:   uuid.New(),
		CreatedBy:  1,
		CreatedAt:  at,
	})
}

func TestTransferMovesStockBetweenLocations(t *testing.T) {
	f := newFixture(t, openGate{})
	f.addStock(f.srcLoc, "10", f.now.Add(-time.Hour))

	result, err := f.svc.Transfer(f.ctx(), TransferInput{
		BranchID:       f.branchID,
		ItemID:         f.itemID,
		FromLocationID: f.srcLoc,
		ToLocationID:   f.dstLoc,
		Qty:            decimal.RequireFromString("4"),
	})
	require.NoError(t, err)
	require.Equal(t, "-4", result.Out.Qty.String())
	require.Equal(t, "4", result.In.Qty.String())
	require.Equal(t, result.Out.SourceID, result.In.SourceID)
	require.Equal(t, ledger.ReasonTransfer, result.Out.Reason)

	// Net branch-wide movement is zero.
	sum := decimal.Zero
	for _, e := range f.repo.entries {
		sum = sum.Add(e.Qty)
	}
	require.Equal(t, "10", sum.String())
}

func TestTransferInsufficientStockLeavesLedgerUnchanged(t *testing.T) {
	f := newFixture(t, openGate{})
	f.addStock(f.srcLoc, "3", f.now.Add(-time.Hour))

	_, err := f.svc.Transfer(f.ctx(), TransferInput{
		BranchID:       f.branchID,
		ItemID:         f.itemID,
		FromLocationID: f.srcLoc,
		ToLocationID:   f.dstLoc,
		Qty:            decimal.RequireFromString("5"),
	})
	require.ErrorIs(t, err, shared.ErrInsufficientStock)
	require.Contains(t, err.Error(), "insufficient")
	require.Len(t, f.repo.entries, 1)
}

func TestTransferValidation(t *testing.T) {
	f := newFixture(t, openGate{})

	_, err := f.svc.Transfer(f.ctx(), TransferInput{
		BranchID:       f.branchID,
		ItemID:         f.itemID,
		FromLocationID: f.srcLoc,
		ToLocationID:   f.srcLoc,
		Qty:            decimal.RequireFromString("1"),
	})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	_, err = f.svc.Transfer(f.ctx(), TransferInput{
		BranchID:       f.branchID,
		ItemID:         f.itemID,
		FromLocationID: f.srcLoc,
		ToLocationID:   f.dstLoc,
		Qty:            decimal.Zero,
	})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
}

func TestTransferBlockedByLockedPeriod(t *testing.T) {
	f := newFixture(t, closedGate{})
	f.addStock(f.srcLoc, "10", f.now.Add(-time.Hour))

	_, err := f.svc.Transfer(f.ctx(), TransferInput{
		BranchID:       f.branchID,
		ItemID:         f.itemID,
		FromLocationID: f.srcLoc,
		ToLocationID:   f.dstLoc,
		Qty:            decimal.RequireFromString("4"),
	})
	require.ErrorIs(t, err, shared.ErrPeriodLocked)
	require.Len(t, f.repo.entries, 1)
}

func TestStockCardRunningBalance(t *testing.T) {
	f := newFixture(t, openGate{})
	f.addStock(f.srcLoc, "10", f.now.Add(-72*time.Hour))
	f.addStock(f.srcLoc, "5", f.now.Add(-2*time.Hour))
	f.repo.entries = append(f.repo.entries, ledger.Entry{
		ID:         uuid.New(),
		OrgID:      f.orgID,
		BranchID:   f.branchID,
		ItemID:     f.itemID,
		LocationID: f.srcLoc,
		Qty:        decimal.RequireFromString("-3"),
		Reason:     ledger.ReasonSale,
		SourceType: "pos_sale",
		SourceID:   uuid.New(),
		CreatedBy:  1,
		CreatedAt:  f.now.Add(-time.Hour),
	})

	card, err := f.svc.StockCard(f.ctx(), StockCardInput{
		BranchID:   f.branchID,
		ItemID:     f.itemID,
		LocationID: &f.srcLoc,
		From:       f.now.Add(-24 * time.Hour),
		To:         f.now,
	})
	require.NoError(t, err)
	require.Equal(t, "10", card.Opening.String())
	require.Len(t, card.Entries, 2)
	require.Equal(t, "15", card.Entries[0].Balance.String())
	require.Equal(t, "12", card.Entries[1].Balance.String())
	require.Equal(t, "12", card.Closing.String())
}

func TestValuationTotalsLines(t *testing.T) {
	f := newFixture(t, openGate{})
	f.repo.valuation = []ValuationLine{
		{ItemID: uuid.New(), SKU: "FLOUR-01", OnHand: decimal.RequireFromString("25"), Wac: decimal.RequireFromString("4.5"), Value: decimal.RequireFromString("112.5")},
		{ItemID: uuid.New(), SKU: "OIL-02", OnHand: decimal.RequireFromString("10"), Wac: decimal.RequireFromString("12"), Value: decimal.RequireFromString("120")},
	}

	report, err := f.svc.Valuation(f.ctx(), f.branchID, f.now)
	require.NoError(t, err)
	require.Len(t, report.Lines, 2)
	require.Equal(t, "232.5", report.Total.String())
}
