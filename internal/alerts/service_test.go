package alerts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// memoryRepo enforces the same OPEN-uniqueness rule the partial index does.
type memoryRepo struct {
	alerts   map[uuid.UUID]Alert
	reorder  []ReorderCandidate
	dead     []DeadStockCandidate
	expiring []ExpiringLotCandidate
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{alerts: map[uuid.UUID]Alert{}}
}

func (m *memoryRepo) InsertAlert(_ context.Context, alert Alert) error {
	for _, existing := range m.alerts {
		if existing.OrgID == alert.OrgID && existing.Type == alert.Type &&
			existing.EntityID == alert.EntityID && existing.Status == StatusOpen {
			return shared.ErrConflict
		}
	}
	m.alerts[alert.ID] = alert
	return nil
}

func (m *memoryRepo) GetAlert(_ context.Context, orgID, alertID uuid.UUID) (Alert, error) {
	alert, ok := m.alerts[alertID]
	if !ok || alert.OrgID != orgID {
		return Alert{}, shared.ErrNotFound
	}
	return alert, nil
}

func (m *memoryRepo) UpdateAlertStatus(_ context.Context, alertID uuid.UUID, status Status, at time.Time) error {
	alert, ok := m.alerts[alertID]
	if !ok {
		return shared.ErrNotFound
	}
	alert.Status = status
	alert.UpdatedAt = at
	m.alerts[alertID] = alert
	return nil
}

func (m *memoryRepo) ListAlerts(_ context.Context, orgID, branchID uuid.UUID, status Status) ([]Alert, error) {
	var out []Alert
	for _, alert := range m.alerts {
		if alert.OrgID != orgID || alert.BranchID != branchID {
			continue
		}
		if status != "" && alert.Status != status {
			continue
		}
		out = append(out, alert)
	}
	return out, nil
}

func (m *memoryRepo) ReorderCandidates(_ context.Context, _, _ uuid.UUID) ([]ReorderCandidate, error) {
	return m.reorder, nil
}

func (m *memoryRepo) DeadStockCandidates(_ context.Context, _, _ uuid.UUID, cutoff time.Time) ([]DeadStockCandidate, error) {
	var out []DeadStockCandidate
	for _, c := range m.dead {
		if c.LastMovementAt.Before(cutoff) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryRepo) ExpiringLotCandidates(_ context.Context, _, _ uuid.UUID, before time.Time) ([]ExpiringLotCandidate, error) {
	var out []ExpiringLotCandidate
	for _, c := range m.expiring {
		if !c.ExpiryDate.After(before) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memoryRepo) openCount() int {
	count := 0
	for _, alert := range m.alerts {
		if alert.Status == StatusOpen {
			count++
		}
	}
	return count
}

type fixture struct {
	svc      *Service
	repo     *memoryRepo
	orgID    uuid.UUID
	branchID uuid.UUID
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	now := time.Date(2025, time.February, 10, 12, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return now })
	return &fixture{
		svc:      svc,
		repo:     repo,
		orgID:    uuid.New(),
		branchID: uuid.New(),
		now:      now,
	}
}

func (f *fixture) ctx() context.Context {
	return shared.ContextWithActor(context.Background(), shared.Actor{
		OrgID:    f.orgID,
		BranchID: f.branchID,
		UserID:   7,
		Role:     shared.RoleManager,
	})
}

func TestEvaluateCreatesAlertsPerType(t *testing.T) {
	f := newFixture(t)
	f.repo.reorder = []ReorderCandidate{{
		ItemID:       uuid.New(),
		SKU:          "FLOUR-01",
		OnHand:       decimal.RequireFromString("3"),
		ReorderLevel: decimal.RequireFromString("10"),
	}}
	f.repo.dead = []DeadStockCandidate{{
		ItemID:         uuid.New(),
		SKU:            "SAFFRON-01",
		OnHand:         decimal.RequireFromString("2"),
		LastMovementAt: f.now.AddDate(0, -3, 0),
	}}
	f.repo.expiring = []ExpiringLotCandidate{{
		LotID:        uuid.New(),
		ItemID:       uuid.New(),
		LotNumber:    "LOT-7",
		RemainingQty: decimal.RequireFromString("5"),
		ExpiryDate:   f.now.AddDate(0, 0, 3),
	}}

	result, err := f.svc.Evaluate(f.ctx(), Scope{BranchID: f.branchID})
	require.NoError(t, err)
	require.Equal(t, 3, result.Created)
	require.Equal(t, 0, result.SkippedDuplicate)
	require.Equal(t, 1, result.AlertsByType[TypeBelowReorderPoint])
	require.Equal(t, 1, result.AlertsByType[TypeDeadStock])
	require.Equal(t, 1, result.AlertsByType[TypeExpiringLot])

	open, err := f.svc.Alerts(f.ctx(), f.branchID, StatusOpen)
	require.NoError(t, err)
	require.Len(t, open, 3)
}

func TestEvaluateTwiceCreatesNothingNew(t *testing.T) {
	f := newFixture(t)
	f.repo.reorder = []ReorderCandidate{{
		ItemID:       uuid.New(),
		SKU:          "FLOUR-01",
		OnHand:       decimal.RequireFromString("3"),
		ReorderLevel: decimal.RequireFromString("10"),
	}}

	first, err := f.svc.Evaluate(f.ctx(), Scope{BranchID: f.branchID})
	require.NoError(t, err)
	require.Equal(t, 1, first.Created)

	second, err := f.svc.Evaluate(f.ctx(), Scope{BranchID: f.branchID})
	require.NoError(t, err)
	require.Equal(t, 0, second.Created)
	require.Equal(t, 1, second.SkippedDuplicate)
	require.Equal(t, 1, f.repo.openCount())
}

func TestEvaluateSkipsExpiryOutsideWindow(t *testing.T) {
	f := newFixture(t)
	f.repo.expiring = []ExpiringLotCandidate{{
		LotID:        uuid.New(),
		ItemID:       uuid.New(),
		LotNumber:    "LOT-8",
		RemainingQty: decimal.RequireFromString("5"),
		ExpiryDate:   f.now.AddDate(0, 2, 0),
	}}

	result, err := f.svc.Evaluate(f.ctx(), Scope{BranchID: f.branchID})
	require.NoError(t, err)
	require.Equal(t, 0, result.Created)
}

func TestResolvedAlertCanReopenOnNextRun(t *testing.T) {
	f := newFixture(t)
	f.repo.reorder = []ReorderCandidate{{
		ItemID:       uuid.New(),
		SKU:          "FLOUR-01",
		OnHand:       decimal.RequireFromString("3"),
		ReorderLevel: decimal.RequireFromString("10"),
	}}

	first, err := f.svc.Evaluate(f.ctx(), Scope{BranchID: f.branchID})
	require.NoError(t, err)
	require.Equal(t, 1, first.Created)

	open, err := f.svc.Alerts(f.ctx(), f.branchID, StatusOpen)
	require.NoError(t, err)
	_, err = f.svc.Resolve(f.ctx(), open[0].ID)
	require.NoError(t, err)

	// Condition persists, so a fresh OPEN alert is justified.
	second, err := f.svc.Evaluate(f.ctx(), Scope{BranchID: f.branchID})
	require.NoError(t, err)
	require.Equal(t, 1, second.Created)
	require.Equal(t, 1, f.repo.openCount())
}

func TestAcknowledgeIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.repo.reorder = []ReorderCandidate{{
		ItemID:       uuid.New(),
		SKU:          "FLOUR-01",
		OnHand:       decimal.RequireFromString("3"),
		ReorderLevel: decimal.RequireFromString("10"),
	}}
	_, err := f.svc.Evaluate(f.ctx(), Scope{BranchID: f.branchID})
	require.NoError(t, err)
	open, err := f.svc.Alerts(f.ctx(), f.branchID, StatusOpen)
	require.NoError(t, err)
	alertID := open[0].ID

	acked, err := f.svc.Acknowledge(f.ctx(), alertID)
	require.NoError(t, err)
	require.Equal(t, StatusAcknowledged, acked.Status)

	again, err := f.svc.Acknowledge(f.ctx(), alertID)
	require.NoError(t, err)
	require.Equal(t, StatusAcknowledged, again.Status)
	require.Len(t, f.repo.alerts, 1)
}

func TestResolveIsIdempotentAndAcknowledgeAfterResolveFails(t *testing.T) {
	f := newFixture(t)
	f.repo.reorder = []ReorderCandidate{{
		ItemID:       uuid.New(),
		SKU:          "FLOUR-01",
		OnHand:       decimal.RequireFromString("3"),
		ReorderLevel: decimal.RequireFromString("10"),
	}}
	_, err := f.svc.Evaluate(f.ctx(), Scope{BranchID: f.branchID})
	require.NoError(t, err)
	open, err := f.svc.Alerts(f.ctx(), f.branchID, StatusOpen)
	require.NoError(t, err)
	alertID := open[0].ID

	resolved, err := f.svc.Resolve(f.ctx(), alertID)
	require.NoError(t, err)
	require.Equal(t, StatusResolved, resolved.Status)

	again, err := f.svc.Resolve(f.ctx(), alertID)
	require.NoError(t, err)
	require.Equal(t, StatusResolved, again.Status)

	_, err = f.svc.Acknowledge(f.ctx(), alertID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestAlertsAreTenantScoped(t *testing.T) {
	f := newFixture(t)
	f.repo.reorder = []ReorderCandidate{{
		ItemID:       uuid.New(),
		SKU:          "FLOUR-01",
		OnHand:       decimal.RequireFromString("3"),
		ReorderLevel: decimal.RequireFromString("10"),
	}}
	_, err := f.svc.Evaluate(f.ctx(), Scope{BranchID: f.branchID})
	require.NoError(t, err)
	open, err := f.svc.Alerts(f.ctx(), f.branchID, StatusOpen)
	require.NoError(t, err)

	otherOrg := shared.ContextWithActor(context.Background(), shared.Actor{
		OrgID:    uuid.New(),
		BranchID: f.branchID,
		UserID:   9,
		Role:     shared.RoleOwner,
	})
	foreign, err := f.svc.Alerts(otherOrg, f.branchID, StatusOpen)
	require.NoError(t, err)
	require.Empty(t, foreign)

	_, err = f.svc.Acknowledge(otherOrg, open[0].ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
