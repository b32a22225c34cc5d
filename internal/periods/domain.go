package periods

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/export"
)

// PeriodStatus enumerates the period lifecycle.
type PeriodStatus string

const (
	PeriodOpen   PeriodStatus = "OPEN"
	PeriodClosed PeriodStatus = "CLOSED"
)

// Period is one calendar month of postings for a branch. Revision starts at 1
// and increments on every reopen, so each close snapshots under a fresh
// revision while earlier snapshots stay on disk untouched.
type Period struct {
	ID         uuid.UUID
	OrgID      uuid.UUID
	BranchID   uuid.UUID
	Name       string
	StartDate  time.Time
	EndDate    time.Time
	Status     PeriodStatus
	Revision   int
	ClosedBy   *int64
	ClosedAt   *time.Time
	ReopenedBy *int64
	ReopenedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Contains reports whether the instant falls inside the period.
func (p Period) Contains(at time.Time) bool {
	return !at.Before(p.StartDate) && at.Before(p.EndDate)
}

// CheckSeverity classifies preclose findings.
type CheckSeverity string

const (
	SeverityBlocker CheckSeverity = "BLOCKER"
	SeverityWarning CheckSeverity = "WARNING"
)

// CheckResult aggregates preclose findings into an overall readiness verdict.
type CheckResult struct {
	Status          CheckStatus
	Items           []CheckItem
	OverrideAllowed bool
}

// CheckStatus is the overall preclose verdict.
type CheckStatus string

const (
	CheckReady   CheckStatus = "READY"
	CheckWarning CheckStatus = "WARNING"
	CheckBlocked CheckStatus = "BLOCKED"
)

// CheckItem is one preclose finding. Overridable blockers can be bypassed by a
// force close; non-overridable ones always stop the close.
type CheckItem struct {
	Code        string
	Severity    CheckSeverity
	Message     string
	Overridable bool
}

// RequestStatus enumerates the close-request lifecycle:
// DRAFT → SUBMITTED → APPROVED or REJECTED.
type RequestStatus string

const (
	RequestDraft     RequestStatus = "DRAFT"
	RequestSubmitted RequestStatus = "SUBMITTED"
	RequestApproved  RequestStatus = "APPROVED"
	RequestRejected  RequestStatus = "REJECTED"
)

// Terminal reports whether the request can no longer change state.
func (s RequestStatus) Terminal() bool {
	return s == RequestApproved || s == RequestRejected
}

// CloseRequest asks for sign-off before a period close.
type CloseRequest struct {
	ID             uuid.UUID
	OrgID          uuid.UUID
	PeriodID       uuid.UUID
	Status         RequestStatus
	Reason         string
	RequestedBy    int64
	DecidedBy      *int64
	DecidedAt      *time.Time
	DecisionReason string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EventType tags entries of the append-only period audit trail.
type EventType string

const (
	EventGenerated        EventType = "GENERATED"
	EventClosed           EventType = "CLOSED"
	EventReopened         EventType = "REOPENED"
	EventForceCloseUsed   EventType = "FORCE_CLOSE_USED"
	EventRequestSubmitted EventType = "REQUEST_SUBMITTED"
	EventRequestApproved  EventType = "REQUEST_APPROVED"
	EventRequestRejected  EventType = "REQUEST_REJECTED"
)

// Event is one append-only audit record of a period lifecycle action.
type Event struct {
	ID       uuid.UUID
	OrgID    uuid.UUID
	PeriodID uuid.UUID
	Type     EventType
	ActorID  int64
	Payload  map[string]any
	At       time.Time
}

// SnapshotRow is one valuation line frozen at close time under the period's
// revision at that moment.
type SnapshotRow struct {
	PeriodID uuid.UUID
	Revision int
	ItemID   uuid.UUID
	SKU      string
	Qty      decimal.Decimal
	Wac      decimal.Decimal
	Value    decimal.Decimal
}

// Notification is the redacted event handed to the notifier boundary: branch
// name, period range and actor role only, never raw user identifiers.
type Notification struct {
	Kind        EventType
	BranchName  string
	PeriodRange string
	ActorRole   string
}

// GenerateResult reports what a period generation run did.
type GenerateResult struct {
	Created  int
	Existing int
}

// ClosePack is the deterministic export bundle of a closed period revision.
// Building it twice on unchanged data yields byte-identical files and the same
// bundle hash.
type ClosePack struct {
	PeriodID uuid.UUID
	Revision int
	Files    []export.File
	Hash     string
	BuiltAt  time.Time
}
