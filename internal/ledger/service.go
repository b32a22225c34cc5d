package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	SumQty(ctx context.Context, orgID uuid.UUID, key OnHandKey) (decimal.Decimal, error)
	ListEntries(ctx context.Context, orgID uuid.UUID, filter EntryFilter, page shared.Pagination) ([]Entry, shared.Pagination, error)
	GetEntry(ctx context.Context, orgID, id uuid.UUID) (Entry, error)
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	ValidateRefs(ctx context.Context, orgID, branchID, itemID, locationID uuid.UUID) error
	OnHandForUpdate(ctx context.Context, orgID, itemID, locationID uuid.UUID) (decimal.Decimal, error)
	InsertEntry(ctx context.Context, entry Entry) error
}

// PeriodGate reports whether the posting date falls inside an open period.
type PeriodGate interface {
	EnsureOpenForPosting(ctx context.Context, orgID, branchID uuid.UUID, at time.Time) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts ledger activity. Implementations must be nil-safe cheap
// counters; the service never fails an append over metrics.
type MetricsPort interface {
	LedgerAppend(reason string)
	ImmutabilityRejection()
}

// Service is the system of record for stock movements. Append is the only write
// path; on-hand is always recomputed from the full entry set.
type Service struct {
	repo    RepositoryPort
	gate    PeriodGate
	audit   AuditPort
	metrics MetricsPort
	now     func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, gate PeriodGate, audit AuditPort) *Service {
	return &Service{repo: repo, gate: gate, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithMetrics attaches activity counters.
func (s *Service) WithMetrics(metrics MetricsPort) {
	s.metrics = metrics
}

// Append validates tenant scoping and writes one movement fact. Malformed keys
// fail with an invalid-reference error and are never retried; the caller must
// correct the input and resubmit as a new entry.
func (s *Service) Append(ctx context.Context, in AppendInput) (Entry, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return Entry{}, fmt.Errorf("ledger: missing actor: %w", shared.ErrForbidden)
	}
	if in.ItemID == uuid.Nil || in.LocationID == uuid.Nil || in.BranchID == uuid.Nil {
		return Entry{}, fmt.Errorf("ledger: item, location and branch required: %w", shared.ErrInvalidReference)
	}
	if in.Qty.IsZero() {
		return Entry{}, fmt.Errorf("ledger: quantity must be non zero: %w", shared.ErrInvalidArgument)
	}
	if !ValidReason(in.Reason) {
		return Entry{}, fmt.Errorf("ledger: unknown reason %q: %w", in.Reason, shared.ErrInvalidArgument)
	}
	now := s.now().UTC()
	if s.gate != nil {
		if err := s.gate.EnsureOpenForPosting(ctx, actor.OrgID, in.BranchID, now); err != nil {
			return Entry{}, err
		}
	}
	entry := Entry{
		ID:         uuid.New(),
		OrgID:      actor.OrgID,
		BranchID:   in.BranchID,
		ItemID:     in.ItemID,
		LocationID: in.LocationID,
		LotID:      in.LotID,
		Qty:        in.Qty,
		Reason:     in.Reason,
		SourceType: in.SourceType,
		SourceID:   in.SourceID,
		Notes:      in.Notes,
		CreatedBy:  in.ActorID,
		CreatedAt:  now,
	}
	if entry.CreatedBy == 0 {
		entry.CreatedBy = actor.UserID
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.ValidateRefs(ctx, actor.OrgID, in.BranchID, in.ItemID, in.LocationID); err != nil {
			return err
		}
		// Outgoing movements never drive on-hand negative. OnHandForUpdate
		// serialises concurrent consumers of the same (item, location) key, so
		// two simultaneous sales cannot both pass the check.
		if entry.Qty.IsNegative() {
			onHand, err := tx.OnHandForUpdate(ctx, actor.OrgID, entry.ItemID, entry.LocationID)
			if err != nil {
				return err
			}
			if onHand.LessThan(entry.Qty.Neg()) {
				return fmt.Errorf("ledger: insufficient stock of item %s: requested %s, available %s: %w",
					entry.ItemID, entry.Qty.Neg(), onHand, shared.ErrInsufficientStock)
			}
		}
		return tx.InsertEntry(ctx, entry)
	})
	if err != nil {
		if s.metrics != nil && errors.Is(err, shared.ErrLedgerImmutable) {
			s.metrics.ImmutabilityRejection()
		}
		return Entry{}, err
	}
	if s.metrics != nil {
		s.metrics.LedgerAppend(string(entry.Reason))
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    actor.OrgID,
			ActorID:  entry.CreatedBy,
			Action:   fmt.Sprintf("ledger:%s", entry.Reason),
			Entity:   "inventory_ledger",
			EntityID: entry.ID.String(),
			Meta: map[string]any{
				"item_id":     entry.ItemID.String(),
				"location_id": entry.LocationID.String(),
				"qty":         entry.Qty.String(),
			},
		})
	}
	return entry, nil
}

// AppendReversal appends the sign-flipped correction for an existing entry.
func (s *Service) AppendReversal(ctx context.Context, entryID uuid.UUID, notes string) (Entry, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return Entry{}, fmt.Errorf("ledger: missing actor: %w", shared.ErrForbidden)
	}
	original, err := s.repo.GetEntry(ctx, actor.OrgID, entryID)
	if err != nil {
		return Entry{}, err
	}
	return s.Append(ctx, original.Reversal(actor.UserID, notes))
}

// OnHand sums qty over all entries matching the key. The sum is always computed
// from the full entry set, never from a cached counter, to keep it auditable.
func (s *Service) OnHand(ctx context.Context, key OnHandKey) (decimal.Decimal, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return decimal.Zero, fmt.Errorf("ledger: missing actor: %w", shared.ErrForbidden)
	}
	if key.ItemID == uuid.Nil {
		return decimal.Zero, fmt.Errorf("ledger: item required: %w", shared.ErrInvalidReference)
	}
	return s.repo.SumQty(ctx, actor.OrgID, key)
}

// Entries lists movement facts for audit and export. The listing is finite and
// restartable: ordering by (created_at, id) makes pagination deterministic.
func (s *Service) Entries(ctx context.Context, filter EntryFilter, page shared.Pagination) ([]Entry, shared.Pagination, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return nil, shared.Pagination{}, fmt.Errorf("ledger: missing actor: %w", shared.ErrForbidden)
	}
	return s.repo.ListEntries(ctx, actor.OrgID, filter, page)
}
