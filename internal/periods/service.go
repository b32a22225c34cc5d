package periods

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chefcloud/chefcloud-erp/internal/export"
	"github.com/chefcloud/chefcloud-erp/internal/ledger"
	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// maxGenerateMonths caps one generation run.
const maxGenerateMonths = 24

// minReasonLen is the shortest acceptable justification for reopen, force
// close and rejection decisions.
const minReasonLen = 10

// RepositoryPort abstracts period storage reads.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPeriod(ctx context.Context, orgID, periodID uuid.UUID) (Period, error)
	PeriodAt(ctx context.Context, orgID, branchID uuid.UUID, at time.Time) (Period, error)
	ListPeriods(ctx context.Context, orgID, branchID uuid.UUID) ([]Period, error)
	ListEvents(ctx context.Context, orgID, periodID uuid.UUID) ([]Event, error)
	ListRequests(ctx context.Context, orgID, periodID uuid.UUID) ([]CloseRequest, error)
	SnapshotRows(ctx context.Context, orgID, periodID uuid.UUID, revision int) ([]SnapshotRow, error)
	EntriesBetween(ctx context.Context, orgID, branchID uuid.UUID, from, to time.Time) ([]ledger.Entry, error)
	BranchName(ctx context.Context, orgID, branchID uuid.UUID) (string, error)
	OpenStocktakeCount(ctx context.Context, orgID, branchID uuid.UUID) (int, error)
	DraftBatchCount(ctx context.Context, orgID, branchID uuid.UUID) (int, error)
	NegativeOnHandCount(ctx context.Context, orgID, branchID uuid.UUID) (int, error)
}

// TxRepository exposes the transactional surface of lifecycle transitions.
type TxRepository interface {
	InsertPeriod(ctx context.Context, period Period) error
	PeriodExists(ctx context.Context, orgID, branchID uuid.UUID, start time.Time) (bool, error)
	PeriodForUpdate(ctx context.Context, orgID, periodID uuid.UUID) (Period, error)
	UpdatePeriodClosed(ctx context.Context, periodID uuid.UUID, closedAt time.Time, closedBy int64) error
	UpdatePeriodReopened(ctx context.Context, periodID uuid.UUID, revision int, reopenedAt time.Time, reopenedBy int64) error
	InsertEvent(ctx context.Context, event Event) error
	InsertSnapshotRows(ctx context.Context, rows []SnapshotRow) error
	ValuationAsOf(ctx context.Context, orgID, branchID uuid.UUID, asOf time.Time) ([]SnapshotRow, error)
	InsertRequest(ctx context.Context, request CloseRequest) error
	RequestForUpdate(ctx context.Context, orgID, requestID uuid.UUID) (CloseRequest, error)
	NonTerminalRequestExists(ctx context.Context, orgID, periodID uuid.UUID) (bool, error)
	ApprovedRequestExists(ctx context.Context, orgID, periodID uuid.UUID) (bool, error)
	UpdateRequestStatus(ctx context.Context, requestID uuid.UUID, status RequestStatus, decidedBy int64, decidedAt time.Time, decisionReason string) error
	OpenStocktakeCount(ctx context.Context, orgID, branchID uuid.UUID) (int, error)
	DraftBatchCount(ctx context.Context, orgID, branchID uuid.UUID) (int, error)
	NegativeOnHandCount(ctx context.Context, orgID, branchID uuid.UUID) (int, error)
}

// NotifierPort receives redacted lifecycle notifications. Delivery is a
// boundary concern; the engine only hands over the struct.
type NotifierPort interface {
	Notify(ctx context.Context, n Notification)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns period lifecycle, close approval and close-pack building. It
// also gates every posting path: the ledger refuses movements dated into a
// closed period.
type Service struct {
	repo     RepositoryPort
	notifier NotifierPort
	audit    AuditPort
	now      func() time.Time
}

func NewService(repo RepositoryPort, notifier NotifierPort, audit AuditPort) *Service {
	return &Service{repo: repo, notifier: notifier, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// EnsureOpenForPosting implements the posting gate. A date with no generated
// period is open by default; only an explicitly closed period locks postings.
func (s *Service) EnsureOpenForPosting(ctx context.Context, orgID, branchID uuid.UUID, at time.Time) error {
	period, err := s.repo.PeriodAt(ctx, orgID, branchID, at)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	if period.Status == PeriodClosed {
		return fmt.Errorf("periods: %s is locked for posting: %w", period.Name, shared.ErrPeriodLocked)
	}
	return nil
}

// Generate creates one OPEN period per month from the month of from to the
// month of to, inclusive. Months that already exist are counted and left
// untouched, so repeated runs are idempotent.
func (s *Service) Generate(ctx context.Context, branchID uuid.UUID, from, to time.Time) (GenerateResult, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return GenerateResult{}, fmt.Errorf("periods: missing actor: %w", shared.ErrForbidden)
	}
	if branchID == uuid.Nil {
		return GenerateResult{}, fmt.Errorf("periods: branch required: %w", shared.ErrInvalidReference)
	}
	start := monthStart(from)
	end := monthStart(to)
	if end.Before(start) {
		return GenerateResult{}, fmt.Errorf("periods: range end before start: %w", shared.ErrInvalidArgument)
	}
	months := monthsBetween(start, end)
	if months > maxGenerateMonths {
		return GenerateResult{}, fmt.Errorf("periods: %d months requested, at most %d per run: %w",
			months, maxGenerateMonths, shared.ErrInvalidArgument)
	}

	var result GenerateResult
	now := s.now().UTC()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for cursor := start; !cursor.After(end); cursor = cursor.AddDate(0, 1, 0) {
			exists, err := tx.PeriodExists(ctx, actor.OrgID, branchID, cursor)
			if err != nil {
				return err
			}
			if exists {
				result.Existing++
				continue
			}
			period := Period{
				ID:        uuid.New(),
				OrgID:     actor.OrgID,
				BranchID:  branchID,
				Name:      cursor.Format("2006-01"),
				StartDate: cursor,
				EndDate:   cursor.AddDate(0, 1, 0),
				Status:    PeriodOpen,
				Revision:  1,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.InsertPeriod(ctx, period); err != nil {
				return err
			}
			if err := tx.InsertEvent(ctx, Event{
				ID:       uuid.New(),
				OrgID:    actor.OrgID,
				PeriodID: period.ID,
				Type:     EventGenerated,
				ActorID:  actor.UserID,
				Payload:  map[string]any{"name": period.Name},
				At:       now,
			}); err != nil {
				return err
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return GenerateResult{}, err
	}
	return result, nil
}

// PrecloseCheck reports whether a period can close right now and what stands
// in the way.
func (s *Service) PrecloseCheck(ctx context.Context, periodID uuid.UUID) (CheckResult, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return CheckResult{}, fmt.Errorf("periods: missing actor: %w", shared.ErrForbidden)
	}
	period, err := s.repo.GetPeriod(ctx, actor.OrgID, periodID)
	if err != nil {
		return CheckResult{}, err
	}
	stocktakes, err := s.repo.OpenStocktakeCount(ctx, actor.OrgID, period.BranchID)
	if err != nil {
		return CheckResult{}, err
	}
	drafts, err := s.repo.DraftBatchCount(ctx, actor.OrgID, period.BranchID)
	if err != nil {
		return CheckResult{}, err
	}
	negatives, err := s.repo.NegativeOnHandCount(ctx, actor.OrgID, period.BranchID)
	if err != nil {
		return CheckResult{}, err
	}
	return buildChecks(stocktakes, drafts, negatives), nil
}

// buildChecks turns raw counts into the preclose verdict. A stocktake in
// progress always blocks: closing mid-count would freeze a valuation the count
// is about to correct.
func buildChecks(stocktakes, drafts, negatives int) CheckResult {
	var items []CheckItem
	if stocktakes > 0 {
		items = append(items, CheckItem{
			Code:        "STOCKTAKE_IN_PROGRESS",
			Severity:    SeverityBlocker,
			Message:     fmt.Sprintf("%d stocktake(s) still open", stocktakes),
			Overridable: false,
		})
	}
	if negatives > 0 {
		items = append(items, CheckItem{
			Code:        "NEGATIVE_ON_HAND",
			Severity:    SeverityBlocker,
			Message:     fmt.Sprintf("%d item(s) with negative on-hand", negatives),
			Overridable: true,
		})
	}
	if drafts > 0 {
		items = append(items, CheckItem{
			Code:        "UNPOSTED_BATCHES",
			Severity:    SeverityWarning,
			Message:     fmt.Sprintf("%d draft production batch(es) pending", drafts),
			Overridable: true,
		})
	}

	result := CheckResult{Status: CheckReady, Items: items, OverrideAllowed: true}
	for _, item := range items {
		switch item.Severity {
		case SeverityBlocker:
			result.Status = CheckBlocked
			if !item.Overridable {
				result.OverrideAllowed = false
			}
		case SeverityWarning:
			if result.Status == CheckReady {
				result.Status = CheckWarning
			}
		}
	}
	return result
}

// CloseInput parameterises a close attempt.
type CloseInput struct {
	PeriodID uuid.UUID
	Force    bool
	Reason   string
}

// Close freezes a period: valuation is snapshotted under the current revision
// and the period flips to CLOSED. A regular close needs an approved close
// request; a force close needs owner authority and a substantive reason, and
// leaves a FORCE_CLOSE_USED event in the trail.
func (s *Service) Close(ctx context.Context, in CloseInput) (Period, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return Period{}, fmt.Errorf("periods: missing actor: %w", shared.ErrForbidden)
	}
	reason := strings.TrimSpace(in.Reason)
	if in.Force {
		if !actor.Role.CanForceClose() {
			return Period{}, fmt.Errorf("periods: role %s cannot force close: %w", actor.Role, shared.ErrForbidden)
		}
		if len(reason) < minReasonLen {
			return Period{}, fmt.Errorf("periods: force close reason must be at least %d characters: %w",
				minReasonLen, shared.ErrInvalidArgument)
		}
	}
	now := s.now().UTC()
	var closed Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.PeriodForUpdate(ctx, actor.OrgID, in.PeriodID)
		if err != nil {
			return err
		}
		if period.Status != PeriodOpen {
			return fmt.Errorf("periods: %s is already closed: %w", period.Name, shared.ErrInvalidState)
		}

		stocktakes, err := tx.OpenStocktakeCount(ctx, actor.OrgID, period.BranchID)
		if err != nil {
			return err
		}
		drafts, err := tx.DraftBatchCount(ctx, actor.OrgID, period.BranchID)
		if err != nil {
			return err
		}
		negatives, err := tx.NegativeOnHandCount(ctx, actor.OrgID, period.BranchID)
		if err != nil {
			return err
		}
		checks := buildChecks(stocktakes, drafts, negatives)

		if in.Force {
			if checks.Status == CheckBlocked && !checks.OverrideAllowed {
				return fmt.Errorf("periods: %s has findings a force close cannot override: %w",
					period.Name, shared.ErrInvalidState)
			}
		} else {
			approved, err := tx.ApprovedRequestExists(ctx, actor.OrgID, period.ID)
			if err != nil {
				return err
			}
			if !approved {
				return fmt.Errorf("periods: %s has no approved close request: %w",
					period.Name, shared.ErrCloseApprovalRequired)
			}
			if checks.Status == CheckBlocked {
				return fmt.Errorf("periods: %s is blocked by preclose findings: %w",
					period.Name, shared.ErrInvalidState)
			}
		}

		rows, err := tx.ValuationAsOf(ctx, actor.OrgID, period.BranchID, now)
		if err != nil {
			return err
		}
		for i := range rows {
			rows[i].PeriodID = period.ID
			rows[i].Revision = period.Revision
		}
		if err := tx.InsertSnapshotRows(ctx, rows); err != nil {
			return err
		}
		if err := tx.UpdatePeriodClosed(ctx, period.ID, now, actor.UserID); err != nil {
			return err
		}
		if in.Force {
			if err := tx.InsertEvent(ctx, Event{
				ID:       uuid.New(),
				OrgID:    actor.OrgID,
				PeriodID: period.ID,
				Type:     EventForceCloseUsed,
				ActorID:  actor.UserID,
				Payload:  map[string]any{"reason": reason},
				At:       now,
			}); err != nil {
				return err
			}
		}
		if err := tx.InsertEvent(ctx, Event{
			ID:       uuid.New(),
			OrgID:    actor.OrgID,
			PeriodID: period.ID,
			Type:     EventClosed,
			ActorID:  actor.UserID,
			Payload:  map[string]any{"revision": period.Revision},
			At:       now,
		}); err != nil {
			return err
		}
		closed = period
		closed.Status = PeriodClosed
		closed.ClosedAt = &now
		closed.ClosedBy = &actor.UserID
		return nil
	})
	if err != nil {
		return Period{}, err
	}
	s.notify(ctx, actor, closed, EventClosed)
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    actor.OrgID,
			ActorID:  actor.UserID,
			Action:   "periods:close",
			Entity:   "inventory_period",
			EntityID: closed.ID.String(),
			Meta:     map[string]any{"force": in.Force, "revision": closed.Revision},
		})
	}
	return closed, nil
}

// Reopen unlocks a closed period for corrections. Owner only, with a
// substantive reason. The revision bumps immediately so the next close
// snapshots fresh rows while every earlier snapshot stays readable.
func (s *Service) Reopen(ctx context.Context, periodID uuid.UUID, reason string) (Period, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return Period{}, fmt.Errorf("periods: missing actor: %w", shared.ErrForbidden)
	}
	if !actor.Role.CanReopenPeriod() {
		return Period{}, fmt.Errorf("periods: role %s cannot reopen periods: %w", actor.Role, shared.ErrForbidden)
	}
	reason = strings.TrimSpace(reason)
	if len(reason) < minReasonLen {
		return Period{}, fmt.Errorf("periods: reopen reason must be at least %d characters: %w",
			minReasonLen, shared.ErrInvalidArgument)
	}
	now := s.now().UTC()
	var reopened Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.PeriodForUpdate(ctx, actor.OrgID, periodID)
		if err != nil {
			return err
		}
		if period.Status != PeriodClosed {
			return fmt.Errorf("periods: %s is not closed: %w", period.Name, shared.ErrInvalidState)
		}
		revision := period.Revision + 1
		if err := tx.UpdatePeriodReopened(ctx, period.ID, revision, now, actor.UserID); err != nil {
			return err
		}
		if err := tx.InsertEvent(ctx, Event{
			ID:       uuid.New(),
			OrgID:    actor.OrgID,
			PeriodID: period.ID,
			Type:     EventReopened,
			ActorID:  actor.UserID,
			Payload:  map[string]any{"reason": reason, "revision": revision},
			At:       now,
		}); err != nil {
			return err
		}
		reopened = period
		reopened.Status = PeriodOpen
		reopened.Revision = revision
		reopened.ReopenedAt = &now
		reopened.ReopenedBy = &actor.UserID
		return nil
	})
	if err != nil {
		return Period{}, err
	}
	s.notify(ctx, actor, reopened, EventReopened)
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    actor.OrgID,
			ActorID:  actor.UserID,
			Action:   "periods:reopen",
			Entity:   "inventory_period",
			EntityID: reopened.ID.String(),
			Meta:     map[string]any{"reason": reason, "revision": reopened.Revision},
		})
	}
	return reopened, nil
}

// CreateCloseRequest opens a draft close request for a period. Only one
// request may be in flight per period at a time.
func (s *Service) CreateCloseRequest(ctx context.Context, periodID uuid.UUID, reason string) (CloseRequest, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return CloseRequest{}, fmt.Errorf("periods: missing actor: %w", shared.ErrForbidden)
	}
	now := s.now().UTC()
	request := CloseRequest{
		ID:          uuid.New(),
		OrgID:       actor.OrgID,
		PeriodID:    periodID,
		Status:      RequestDraft,
		Reason:      strings.TrimSpace(reason),
		RequestedBy: actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.PeriodForUpdate(ctx, actor.OrgID, periodID)
		if err != nil {
			return err
		}
		if period.Status != PeriodOpen {
			return fmt.Errorf("periods: %s is closed, nothing to request: %w", period.Name, shared.ErrInvalidState)
		}
		inFlight, err := tx.NonTerminalRequestExists(ctx, actor.OrgID, periodID)
		if err != nil {
			return err
		}
		if inFlight {
			return fmt.Errorf("periods: a close request for %s is already in flight: %w",
				period.Name, shared.ErrConflict)
		}
		return tx.InsertRequest(ctx, request)
	})
	if err != nil {
		return CloseRequest{}, err
	}
	return request, nil
}

// SubmitCloseRequest moves a draft request to SUBMITTED.
func (s *Service) SubmitCloseRequest(ctx context.Context, requestID uuid.UUID) (CloseRequest, error) {
	return s.transitionRequest(ctx, requestID, RequestDraft, RequestSubmitted, "", EventRequestSubmitted, false)
}

// ApproveCloseRequest moves a submitted request to APPROVED. Manager authority
// or above.
func (s *Service) ApproveCloseRequest(ctx context.Context, requestID uuid.UUID) (CloseRequest, error) {
	return s.transitionRequest(ctx, requestID, RequestSubmitted, RequestApproved, "", EventRequestApproved, true)
}

// RejectCloseRequest moves a submitted request to REJECTED with a substantive
// reason.
func (s *Service) RejectCloseRequest(ctx context.Context, requestID uuid.UUID, reason string) (CloseRequest, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) < minReasonLen {
		return CloseRequest{}, fmt.Errorf("periods: rejection reason must be at least %d characters: %w",
			minReasonLen, shared.ErrInvalidArgument)
	}
	return s.transitionRequest(ctx, requestID, RequestSubmitted, RequestRejected, reason, EventRequestRejected, true)
}

func (s *Service) transitionRequest(ctx context.Context, requestID uuid.UUID, from, to RequestStatus, decisionReason string, eventType EventType, decides bool) (CloseRequest, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return CloseRequest{}, fmt.Errorf("periods: missing actor: %w", shared.ErrForbidden)
	}
	if decides && !actor.Role.CanApproveCloseRequest() {
		return CloseRequest{}, fmt.Errorf("periods: role %s cannot decide close requests: %w", actor.Role, shared.ErrForbidden)
	}
	now := s.now().UTC()
	var request CloseRequest
	var period Period
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		request, err = tx.RequestForUpdate(ctx, actor.OrgID, requestID)
		if err != nil {
			return err
		}
		if request.Status != from {
			return fmt.Errorf("periods: request is %s, expected %s: %w", request.Status, from, shared.ErrInvalidState)
		}
		if err := tx.UpdateRequestStatus(ctx, requestID, to, actor.UserID, now, decisionReason); err != nil {
			return err
		}
		if err := tx.InsertEvent(ctx, Event{
			ID:       uuid.New(),
			OrgID:    actor.OrgID,
			PeriodID: request.PeriodID,
			Type:     eventType,
			ActorID:  actor.UserID,
			Payload:  map[string]any{"request_id": requestID.String()},
			At:       now,
		}); err != nil {
			return err
		}
		period, err = tx.PeriodForUpdate(ctx, actor.OrgID, request.PeriodID)
		return err
	})
	if err != nil {
		return CloseRequest{}, err
	}
	request.Status = to
	request.UpdatedAt = now
	if decides {
		request.DecidedBy = &actor.UserID
		request.DecidedAt = &now
		request.DecisionReason = decisionReason
	}
	s.notify(ctx, actor, period, eventType)
	return request, nil
}

// BuildClosePack assembles the deterministic export bundle for a closed
// revision: canonical CSV files plus a bundle hash that is stable across calls
// on unchanged data.
func (s *Service) BuildClosePack(ctx context.Context, periodID uuid.UUID, revision int) (ClosePack, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return ClosePack{}, fmt.Errorf("periods: missing actor: %w", shared.ErrForbidden)
	}
	period, err := s.repo.GetPeriod(ctx, actor.OrgID, periodID)
	if err != nil {
		return ClosePack{}, err
	}
	if revision <= 0 {
		revision = period.Revision
	}
	rows, err := s.repo.SnapshotRows(ctx, actor.OrgID, periodID, revision)
	if err != nil {
		return ClosePack{}, err
	}
	if len(rows) == 0 {
		return ClosePack{}, fmt.Errorf("periods: no snapshot for %s revision %d: %w",
			period.Name, revision, shared.ErrNotFound)
	}
	entries, err := s.repo.EntriesBetween(ctx, actor.OrgID, period.BranchID, period.StartDate, period.EndDate)
	if err != nil {
		return ClosePack{}, err
	}

	valuation := make([]export.ValuationRow, len(rows))
	for i, row := range rows {
		valuation[i] = export.ValuationRow{
			ItemID: row.ItemID,
			SKU:    row.SKU,
			Qty:    row.Qty,
			Wac:    row.Wac,
			Value:  row.Value,
		}
	}
	valuationFile, err := export.RenderValuationCSV("valuation.csv", valuation)
	if err != nil {
		return ClosePack{}, err
	}
	ledgerFile, err := export.RenderLedgerCSV("ledger.csv", entries)
	if err != nil {
		return ClosePack{}, err
	}

	files := []export.File{valuationFile, ledgerFile}
	return ClosePack{
		PeriodID: periodID,
		Revision: revision,
		Files:    files,
		Hash:     export.BundleHash(files),
		BuiltAt:  s.now().UTC(),
	}, nil
}

// Periods lists the branch's periods.
func (s *Service) Periods(ctx context.Context, branchID uuid.UUID) ([]Period, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("periods: missing actor: %w", shared.ErrForbidden)
	}
	return s.repo.ListPeriods(ctx, actor.OrgID, branchID)
}

// Events lists the append-only trail of a period.
func (s *Service) Events(ctx context.Context, periodID uuid.UUID) ([]Event, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("periods: missing actor: %w", shared.ErrForbidden)
	}
	return s.repo.ListEvents(ctx, actor.OrgID, periodID)
}

// Requests lists close requests of a period.
func (s *Service) Requests(ctx context.Context, periodID uuid.UUID) ([]CloseRequest, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("periods: missing actor: %w", shared.ErrForbidden)
	}
	return s.repo.ListRequests(ctx, actor.OrgID, periodID)
}

// notify hands the redacted event to the notifier. Only the branch name, the
// period range and the actor's role leave the engine.
func (s *Service) notify(ctx context.Context, actor shared.Actor, period Period, kind EventType) {
	if s.notifier == nil {
		return
	}
	name, err := s.repo.BranchName(ctx, actor.OrgID, period.BranchID)
	if err != nil {
		name = ""
	}
	s.notifier.Notify(ctx, Notification{
		Kind:        kind,
		BranchName:  name,
		PeriodRange: period.Name,
		ActorRole:   string(actor.Role),
	})
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthsBetween(start, end time.Time) int {
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
}
