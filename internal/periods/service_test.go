package periods

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/chefcloud/chefcloud-erp/internal/ledger"
	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// memoryState holds everything a lifecycle transaction can touch. The fake
// repository snapshots it before each transaction and restores it on error so
// rollback semantics match the real store.
type memoryState struct {
	periods   map[uuid.UUID]Period
	requests  map[uuid.UUID]CloseRequest
	events    []Event
	snapshots []SnapshotRow

	valuation  []SnapshotRow
	entries    []ledger.Entry
	stocktakes int
	drafts     int
	negatives  int
	branchName string
}

func newMemoryState() *memoryState {
	return &memoryState{
		periods:    map[uuid.UUID]Period{},
		requests:   map[uuid.UUID]CloseRequest{},
		branchName: "Main Kitchen",
	}
}

func (s *memoryState) clone() *memoryState {
	c := newMemoryState()
	for k, v := range s.periods {
		c.periods[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	c.events = append([]Event(nil), s.events...)
	c.snapshots = append([]SnapshotRow(nil), s.snapshots...)
	c.valuation = append([]SnapshotRow(nil), s.valuation...)
	c.entries = append([]ledger.Entry(nil), s.entries...)
	c.stocktakes = s.stocktakes
	c.drafts = s.drafts
	c.negatives = s.negatives
	c.branchName = s.branchName
	return c
}

type memoryRepo struct {
	state *memoryState
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snapshot := m.state.clone()
	if err := fn(ctx, &memoryTx{state: m.state}); err != nil {
		*m.state = *snapshot
		return err
	}
	return nil
}

func (m *memoryRepo) GetPeriod(_ context.Context, orgID, periodID uuid.UUID) (Period, error) {
	period, ok := m.state.periods[periodID]
	if !ok || period.OrgID != orgID {
		return Period{}, shared.ErrNotFound
	}
	return period, nil
}

func (m *memoryRepo) PeriodAt(_ context.Context, orgID, branchID uuid.UUID, at time.Time) (Period, error) {
	for _, period := range m.state.periods {
		if period.OrgID == orgID && period.BranchID == branchID && period.Contains(at) {
			return period, nil
		}
	}
	return Period{}, shared.ErrNotFound
}

func (m *memoryRepo) ListPeriods(_ context.Context, orgID, branchID uuid.UUID) ([]Period, error) {
	var out []Period
	for _, period := range m.state.periods {
		if period.OrgID == orgID && period.BranchID == branchID {
			out = append(out, period)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListEvents(_ context.Context, orgID, periodID uuid.UUID) ([]Event, error) {
	var out []Event
	for _, e := range m.state.events {
		if e.OrgID == orgID && e.PeriodID == periodID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListRequests(_ context.Context, orgID, periodID uuid.UUID) ([]CloseRequest, error) {
	var out []CloseRequest
	for _, r := range m.state.requests {
		if r.OrgID == orgID && r.PeriodID == periodID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryRepo) SnapshotRows(_ context.Context, _, periodID uuid.UUID, revision int) ([]SnapshotRow, error) {
	var out []SnapshotRow
	for _, row := range m.state.snapshots {
		if row.PeriodID == periodID && row.Revision == revision {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memoryRepo) EntriesBetween(_ context.Context, orgID, branchID uuid.UUID, from, to time.Time) ([]ledger.Entry, error) {
	var out []ledger.Entry
	for _, e := range m.state.entries {
		if e.OrgID == orgID && e.BranchID == branchID &&
			!e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryRepo) BranchName(_ context.Context, _, _ uuid.UUID) (string, error) {
	return m.state.branchName, nil
}

func (m *memoryRepo) OpenStocktakeCount(_ context.Context, _, _ uuid.UUID) (int, error) {
	return m.state.stocktakes, nil
}

func (m *memoryRepo) DraftBatchCount(_ context.Context, _, _ uuid.UUID) (int, error) {
	return m.state.drafts, nil
}

func (m *memoryRepo) NegativeOnHandCount(_ context.Context, _, _ uuid.UUID) (int, error) {
	return m.state.negatives, nil
}

type memoryTx struct {
	state *memoryState
}

func (m *memoryTx) InsertPeriod(_ context.Context, period Period) error {
	m.state.periods[period.ID] = period
	return nil
}

func (m *memoryTx) PeriodExists(_ context.Context, orgID, branchID uuid.UUID, start time.Time) (bool, error) {
	for _, period := range m.state.periods {
		if period.OrgID == orgID && period.BranchID == branchID && period.StartDate.Equal(start) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryTx) PeriodForUpdate(_ context.Context, orgID, periodID uuid.UUID) (Period, error) {
	period, ok := m.state.periods[periodID]
	if !ok || period.OrgID != orgID {
		return Period{}, shared.ErrNotFound
	}
	return period, nil
}

func (m *memoryTx) UpdatePeriodClosed(_ context.Context, periodID uuid.UUID, closedAt time.Time, closedBy int64) error {
	period := m.state.periods[periodID]
	period.Status = PeriodClosed
	period.ClosedAt = &closedAt
	period.ClosedBy = &closedBy
	period.UpdatedAt = closedAt
	m.state.periods[periodID] = period
	return nil
}

func (m *memoryTx) UpdatePeriodReopened(_ context.Context, periodID uuid.UUID, revision int, reopenedAt time.Time, reopenedBy int64) error {
	period := m.state.periods[periodID]
	period.Status = PeriodOpen
	period.Revision = revision
	period.ReopenedAt = &reopenedAt
	period.ReopenedBy = &reopenedBy
	period.UpdatedAt = reopenedAt
	m.state.periods[periodID] = period
	return nil
}

func (m *memoryTx) InsertEvent(_ context.Context, event Event) error {
	m.state.events = append(m.state.events, event)
	return nil
}

func (m *memoryTx) InsertSnapshotRows(_ context.Context, rows []SnapshotRow) error {
	m.state.snapshots = append(m.state.snapshots, rows...)
	return nil
}

func (m *memoryTx) ValuationAsOf(_ context.Context, _, _ uuid.UUID, _ time.Time) ([]SnapshotRow, error) {
	return append([]SnapshotRow(nil), m.state.valuation...), nil
}

func (m *memoryTx) InsertRequest(_ context.Context, request CloseRequest) error {
	m.state.requests[request.ID] = request
	return nil
}

func (m *memoryTx) RequestForUpdate(_ context.Context, orgID, requestID uuid.UUID) (CloseRequest, error) {
	request, ok := m.state.requests[requestID]
	if !ok || request.OrgID != orgID {
		return CloseRequest{}, shared.ErrNotFound
	}
	return request, nil
}

func (m *memoryTx) NonTerminalRequestExists(_ context.Context, orgID, periodID uuid.UUID) (bool, error) {
	for _, r := range m.state.requests {
		if r.OrgID == orgID && r.PeriodID == periodID && !r.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryTx) ApprovedRequestExists(_ context.Context, orgID, periodID uuid.UUID) (bool, error) {
	for _, r := range m.state.requests {
		if r.OrgID == orgID && r.PeriodID == periodID && r.Status == RequestApproved {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryTx) UpdateRequestStatus(_ context.Context, requestID uuid.UUID, status RequestStatus, decidedBy int64, decidedAt time.Time, decisionReason string) error {
	request := m.state.requests[requestID]
	request.Status = status
	request.DecidedBy = &decidedBy
	request.DecidedAt = &decidedAt
	request.DecisionReason = decisionReason
	request.UpdatedAt = decidedAt
	m.state.requests[requestID] = request
	return nil
}

func (m *memoryTx) OpenStocktakeCount(_ context.Context, _, _ uuid.UUID) (int, error) {
	return m.state.stocktakes, nil
}

func (m *memoryTx) DraftBatchCount(_ context.Context, _, _ uuid.UUID) (int, error) {
	return m.state.drafts, nil
}

func (m *memoryTx) NegativeOnHandCount(_ context.Context, _, _ uuid.UUID) (int, error) {
	return m.state.negatives, nil
}

type recordingNotifier struct {
	sent []Notification
}

func (n *recordingNotifier) Notify(_ context.Context, notification Notification) {
	n.sent = append(n.sent, notification)
}

type fixture struct {
	t        *testing.T
	svc      *Service
	state    *memoryState
	notifier *recordingNotifier
	orgID    uuid.UUID
	branchID uuid.UUID
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	state := newMemoryState()
	notifier := &recordingNotifier{}
	svc := NewService(&memoryRepo{state: state}, notifier, nil)
	now := time.Date(2025, time.February, 10, 12, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return now })
	return &fixture{
		t:        t,
		svc:      svc,
		state:    state,
		notifier: notifier,
		orgID:    uuid.New(),
		branchID: uuid.New(),
		now:      now,
	}
}

func (f *fixture) actorCtx(role shared.Role) context.Context {
	return shared.ContextWithActor(context.Background(), shared.Actor{
		OrgID:    f.orgID,
		BranchID: f.branchID,
		UserID:   7,
		Role:     role,
	})
}

// addPeriod seeds an open January 2025 period at revision 1.
func (f *fixture) addPeriod() Period {
	f.t.Helper()
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	period := Period{
		ID:        uuid.New(),
		OrgID:     f.orgID,
		BranchID:  f.branchID,
		Name:      "2025-01",
		StartDate: start,
		EndDate:   start.AddDate(0, 1, 0),
		Status:    PeriodOpen,
		Revision:  1,
		CreatedAt: f.now,
		UpdatedAt: f.now,
	}
	f.state.periods[period.ID] = period
	return period
}

func (f *fixture) addValuation(sku string, qty, wac string) {
	f.t.Helper()
	f.state.valuation = append(f.state.valuation, SnapshotRow{
		ItemID: uuid.New(),
		SKU:    sku,
		Qty:    decimal.RequireFromString(qty),
		Wac:    decimal.RequireFromString(wac),
		Value:  decimal.RequireFromString(qty).Mul(decimal.RequireFromString(wac)),
	})
}

// approveClose walks a request through draft, submit and approval.
func (f *fixture) approveClose(periodID uuid.UUID) {
	f.t.Helper()
	request, err := f.svc.CreateCloseRequest(f.actorCtx(shared.RoleStaff), periodID, "month end close")
	require.NoError(f.t, err)
	_, err = f.svc.SubmitCloseRequest(f.actorCtx(shared.RoleStaff), request.ID)
	require.NoError(f.t, err)
	_, err = f.svc.ApproveCloseRequest(f.actorCtx(shared.RoleManager), request.ID)
	require.NoError(f.t, err)
}

func (f *fixture) eventTypes(periodID uuid.UUID) []EventType {
	var types []EventType
	for _, e := range f.state.events {
		if e.PeriodID == periodID {
			types = append(types, e.Type)
		}
	}
	return types
}

func TestGenerateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := f.actorCtx(shared.RoleManager)
	from := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	first, err := f.svc.Generate(ctx, f.branchID, from, to)
	require.NoError(t, err)
	require.Equal(t, 3, first.Created)
	require.Equal(t, 0, first.Existing)

	second, err := f.svc.Generate(ctx, f.branchID, from, to)
	require.NoError(t, err)
	require.Equal(t, 0, second.Created)
	require.Equal(t, 3, second.Existing)

	periods, err := f.svc.Periods(ctx, f.branchID)
	require.NoError(t, err)
	require.Len(t, periods, 3)
	for _, p := range periods {
		require.Equal(t, PeriodOpen, p.Status)
		require.Equal(t, 1, p.Revision)
	}
}

func TestGenerateRejectsOversizedRange(t *testing.T) {
	f := newFixture(t)
	from := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(2, 1, 0)

	_, err := f.svc.Generate(f.actorCtx(shared.RoleManager), f.branchID, from, to)
	require.ErrorIs(t, err, shared.ErrInvalidArgument)
	require.Empty(t, f.state.periods)
}

func TestPrecloseCheckVerdicts(t *testing.T) {
	f := newFixture(t)
	period := f.addPeriod()
	ctx := f.actorCtx(shared.RoleManager)

	result, err := f.svc.PrecloseCheck(ctx, period.ID)
	require.NoError(t, err)
	require.Equal(t, CheckReady, result.Status)
	require.Empty(t, result.Items)

	f.state.drafts = 2
	result, err = f.svc.PrecloseCheck(ctx, period.ID)
	require.NoError(t, err)
	require.Equal(t, CheckWarning, result.Status)
	require.True(t, result.OverrideAllowed)

	f.state.negatives = 1
	result, err = f.svc.PrecloseCheck(ctx, period.ID)
	require.NoError(t, err)
	require.Equal(t, CheckBlocked, result.Status)
	require.True(t, result.OverrideAllowed)

	f.state.stocktakes = 1
	result, err = f.svc.PrecloseCheck(ctx, period.ID)
	require.NoError(t, err)
	require.Equal(t, CheckBlocked, result.Status)
	require.False(t, result.OverrideAllowed)
}

func TestCloseRequiresApprovedRequest(t *testing.T) {
	f := newFixture(t)
	period := f.addPeriod()

	_, err := f.svc.Close(f.actorCtx(shared.RoleManager), CloseInput{PeriodID: period.ID})
	require.ErrorIs(t, err, shared.ErrCloseApprovalRequired)
	require.Equal(t, PeriodOpen, f.state.periods[period.ID].Status)
	require.Empty(t, f.state.snapshots)
}

func TestCloseSnapshotsValuationUnderCurrentRevision(t *testing.T) {
	f := newFixture(t)
	period := f.addPeriod()
	f.addValuation("FLOUR-01", "25", "4.5")
	f.addValuation("OIL-02", "10", "12")
	f.approveClose(period.ID)

	closed, err := f.svc.Close(f.actorCtx(shared.RoleManager), CloseInput{PeriodID: period.ID})
	require.NoError(t, err)
	require.Equal(t, PeriodClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	require.Len(t, f.state.snapshots, 2)
	for _, row := range f.state.snapshots {
		require.Equal(t, period.ID, row.PeriodID)
		require.Equal(t, 1, row.Revision)
	}
	require.Contains(t, f.eventTypes(period.ID), EventClosed)

	_, err = f.svc.Close(f.actorCtx(shared.RoleManager), CloseInput{PeriodID: period.ID})
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestForceCloseAuthorityAndReason(t *testing.T) {
	f := newFixture(t)
	period := f.addPeriod()
	f.addValuation("FLOUR-01", "25", "4.5")

	_, err := f.svc.Close(f.actorCtx(shared.RoleManager), CloseInput{
		PeriodID: period.ID, Force: true, Reason: "quarter deadline tonight",
	})
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.svc.Close(f.actorCtx(shared.RoleOwner), CloseInput{
		PeriodID: period.ID, Force: true, Reason: "rush",
	})
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	closed, err := f.svc.Close(f.actorCtx(shared.RoleOwner), CloseInput{
		PeriodID: period.ID, Force: true, Reason: "quarter deadline tonight",
	})
	require.NoError(t, err)
	require.Equal(t, PeriodClosed, closed.Status)

	types := f.eventTypes(period.ID)
	require.Contains(t, types, EventForceCloseUsed)
	require.Contains(t, types, EventClosed)
}

func TestForceCloseCannotOverrideOpenStocktake(t *testing.T) {
	f := newFixture(t)
	period := f.addPeriod()
	f.state.stocktakes = 1

	_, err := f.svc.Close(f.actorCtx(shared.RoleOwner), CloseInput{
		PeriodID: period.ID, Force: true, Reason: "quarter deadline tonight",
	})
	require.ErrorIs(t, err, shared.ErrInvalidState)
	require.Equal(t, PeriodOpen, f.state.periods[period.ID].Status)
}

func TestReopenAuthorityAndReason(t *testing.T) {
	f := newFixture(t)
	period := f.addPeriod()
	f.addValuation("FLOUR-01", "25", "4.5")
	_, err := f.svc.Close(f.actorCtx(shared.RoleOwner), CloseInput{
		PeriodID: period.ID, Force: true, Reason: "quarter deadline tonight",
	})
	require.NoError(t, err)

	_, err = f.svc.Reopen(f.actorCtx(shared.RoleManager), period.ID, "missed invoices to post")
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.svc.Reopen(f.actorCtx(shared.RoleOwner), period.ID, "oops")
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	reopened, err := f.svc.Reopen(f.actorCtx(shared.RoleOwner), period.ID, "missed invoices to post")
	require.NoError(t, err)
	require.Equal(t, PeriodOpen, reopened.Status)
	require.Equal(t, 2, reopened.Revision)
}

func TestReopenPreservesEarlierSnapshots(t *testing.T) {
	f := newFixture(t)
	period := f.addPeriod()
	f.addValuation("FLOUR-01", "25", "4.5")
	owner := f.actorCtx(shared.RoleOwner)

	_, err := f.svc.Close(owner, CloseInput{PeriodID: period.ID, Force: true, Reason: "quarter deadline tonight"})
	require.NoError(t, err)
	_, err = f.svc.Reopen(owner, period.ID, "missed invoices to post")
	require.NoError(t, err)

	// Correction lands before the second close.
	f.state.valuation[0].Qty = decimal.RequireFromString("30")
	_, err = f.svc.Close(owner, CloseInput{PeriodID: period.ID, Force: true, Reason: "second pass after fixes"})
	require.NoError(t, err)

	byRevision := map[int][]SnapshotRow{}
	for _, row := range f.state.snapshots {
		byRevision[row.Revision] = append(byRevision[row.Revision], row)
	}
	require.Len(t, byRevision[1], 1)
	require.Len(t, byRevision[2], 1)
	require.Equal(t, "25", byRevision[1][0].Qty.String())
	require.Equal(t, "30", byRevision[2][0].Qty.String())
}

func TestDuplicateCloseRequestRejected(t *testing.T) {
	f := newFixture(t)
	period := f.addPeriod()
	ctx := f.actorCtx(shared.RoleStaff)

	_, err := f.svc.CreateCloseRequest(ctx, period.ID, "month end close")
	require.NoError(t, err)

	_, err = f.svc.CreateCloseRequest(ctx, period.ID, "another attempt")
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCloseRequestLifecycle(t *testing.T) {
	f := newFixture(t)
	period := f.addPeriod()

	request, err := f.svc.CreateCloseRequest(f.actorCtx(shared.RoleStaff), period.ID, "month end close")
	require.NoError(t, err)
	require.Equal(t, RequestDraft, request.Status)

	// Approving a draft skips the submit step.
	_, err = f.svc.ApproveCloseRequest(f.actorCtx(shared.RoleManager), request.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	submitted, err := f.svc.SubmitCloseRequest(f.actorCtx(shared.RoleStaff), request.ID)
	require.NoError(t, err)
	require.Equal(t, RequestSubmitted, submitted.Status)

	_, err = f.svc.ApproveCloseRequest(f.actorCtx(shared.RoleStaff), request.ID)
	require.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.svc.RejectCloseRequest(f.actorCtx(shared.RoleManager), request.ID, "no")
	require.ErrorIs(t, err, shared.ErrInvalidArgument)

	rejected, err := f.svc.RejectCloseRequest(f.actorCtx(shared.RoleManager), request.ID, "stock counts missing")
	require.NoError(t, err)
	require.Equal(t, RequestRejected, rejected.Status)
	require.Equal(t, "stock counts missing", rejected.DecisionReason)

	_, err = f.svc.SubmitCloseRequest(f.actorCtx(shared.RoleStaff), request.ID)
	require.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestEnsureOpenForPosting(t *testing.T) {
	f := newFixture(t)
	period := f.addPeriod()
	ctx := context.Background()
	inside := time.Date(2025, time.January, 12, 9, 0, 0, 0, time.UTC)

	require.NoError(t, f.svc.EnsureOpenForPosting(ctx, f.orgID, f.branchID, inside))

	// A month nobody generated yet stays open by default.
	require.NoError(t, f.svc.EnsureOpenForPosting(ctx, f.orgID, f.branchID, inside.AddDate(0, 6, 0)))

	f.addValuation("FLOUR-01", "25", "4.5")
	_, err := f.svc.Close(f.actorCtx(shared.RoleOwner), CloseInput{
		PeriodID: period.ID, Force: true, Reason: "quarter deadline tonight",
	})
	require.NoError(t, err)

	err = f.svc.EnsureOpenForPosting(ctx, f.orgID, f.branchID, inside)
	require.ErrorIs(t, err, shared.ErrPeriodLocked)
	require.Contains(t, err.Error(), "locked")
}

func TestBuildClosePackIsDeterministic(t *testing.T) {
	f := newFixture(t)
	period := f.addPeriod()
	f.addValuation("FLOUR-01", "25", "4.5")
	f.addValuation("OIL-02", "10", "12")
	f.state.entries = []ledger.Entry{{
		ID:         uuid.New(),
		OrgID:      f.orgID,
		BranchID:   f.branchID,
		ItemID:     uuid.New(),
		LocationID: uuid.New(),
		Qty:        decimal.RequireFromString("25"),
		Reason:     ledger.ReasonReceipt,
		SourceType: "purchase_order",
		SourceID:   uuid.New(),
		CreatedBy:  7,
		CreatedAt:  time.Date(2025, time.January, 5, 8, 0, 0, 0, time.UTC),
	}}
	_, err := f.svc.Close(f.actorCtx(shared.RoleOwner), CloseInput{
		PeriodID: period.ID, Force: true, Reason: "quarter deadline tonight",
	})
	require.NoError(t, err)

	ctx := f.actorCtx(shared.RoleManager)
	first, err := f.svc.BuildClosePack(ctx, period.ID, 0)
	require.NoError(t, err)
	require.Equal(t, 1, first.Revision)
	require.Len(t, first.Files, 2)
	require.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), first.Hash)

	second, err := f.svc.BuildClosePack(ctx, period.ID, 0)
	require.NoError(t, err)
	require.Equal(t, first.Hash, second.Hash)
	for i := range first.Files {
		require.Equal(t, first.Files[i].Content, second.Files[i].Content)
	}

	_, err = f.svc.BuildClosePack(ctx, period.ID, 5)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestNotificationsAreRedacted(t *testing.T) {
	f := newFixture(t)
	period := f.addPeriod()
	f.addValuation("FLOUR-01", "25", "4.5")

	_, err := f.svc.Close(f.actorCtx(shared.RoleOwner), CloseInput{
		PeriodID: period.ID, Force: true, Reason: "quarter deadline tonight",
	})
	require.NoError(t, err)

	require.Len(t, f.notifier.sent, 1)
	n := f.notifier.sent[0]
	require.Equal(t, EventClosed, n.Kind)
	require.Equal(t, "Main Kitchen", n.BranchName)
	require.Equal(t, "2025-01", n.PeriodRange)
	require.Equal(t, string(shared.RoleOwner), n.ActorRole)
}
