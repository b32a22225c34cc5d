package shared

import "errors"

// Error taxonomy shared by the inventory engine modules. Handlers map these to
// HTTP statuses via httpx.RespondError; upstream callers match with errors.Is.
var (
	// ErrNotFound indicates the requested resource does not exist in the tenant scope.
	ErrNotFound = errors.New("not found")
	// ErrInvalidReference indicates unknown or tenant-mismatched entity keys.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrInsufficientStock indicates a consumption request exceeding available quantity.
	// The literal "insufficient stock" substring is load-bearing: upstream callers
	// pattern-match on it.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrLedgerImmutable indicates an attempted update or delete against ledger history.
	ErrLedgerImmutable = errors.New("ledger is immutable")
	// ErrInvalidState indicates an illegal lifecycle transition.
	ErrInvalidState = errors.New("invalid state transition")
	// ErrAlreadyPosted indicates a duplicate post of an already-posted document.
	ErrAlreadyPosted = errors.New("already posted")
	// ErrConflict indicates a duplicate concurrent operation.
	ErrConflict = errors.New("conflict")
	// ErrCloseApprovalRequired indicates a period close without an approved close request.
	ErrCloseApprovalRequired = errors.New("close approval required")
	// ErrForbidden indicates the actor lacks the required authority.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidArgument indicates malformed or out-of-policy input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPeriodLocked indicates a posting into a closed period. The "locked"
	// substring is part of the message contract.
	ErrPeriodLocked = errors.New("period is locked")
)
