package production

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/costing"
	"github.com/chefcloud/chefcloud-erp/internal/ledger"
	"github.com/chefcloud/chefcloud-erp/internal/lots"
	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// SourceType tags every ledger entry, allocation and cost layer a batch writes.
const SourceType = "production_batch"

// TxRepository is the transactional surface Post and Void run on. It embeds the
// lot store so allocations, ledger entries and cost layers commit atomically
// with the status flip.
type TxRepository interface {
	lots.TxStore

	InsertBatch(ctx context.Context, batch Batch) error
	BatchForUpdate(ctx context.Context, orgID, batchID uuid.UUID) (Batch, error)
	UpdateBatchPosted(ctx context.Context, batchID uuid.UUID, unitCost decimal.Decimal, postedAt time.Time, postedBy int64) error
	UpdateBatchVoided(ctx context.Context, batchID uuid.UUID, reason string, voidedAt time.Time, voidedBy int64) error
	DeleteBatchDraft(ctx context.Context, batchID uuid.UUID) error
	InsertLine(ctx context.Context, line Line) error
	DeleteLine(ctx context.Context, batchID, lineID uuid.UUID) error
	LinesForBatch(ctx context.Context, batchID uuid.UUID) ([]Line, error)

	ItemLotTracked(ctx context.Context, orgID, itemID uuid.UUID) (bool, error)
	OnHandQty(ctx context.Context, orgID, itemID, locationID uuid.UUID) (decimal.Decimal, error)
	CurrentWac(ctx context.Context, orgID, itemID uuid.UUID) (decimal.Decimal, error)

	InsertLedgerEntry(ctx context.Context, entry ledger.Entry) error
	EntriesForSource(ctx context.Context, orgID uuid.UUID, sourceType string, sourceID uuid.UUID) ([]ledger.Entry, error)
	AllocationIDsForSource(ctx context.Context, sourceID uuid.UUID) ([]uuid.UUID, error)
	InsertCostLayer(ctx context.Context, layer costing.CostLayer) error
}

// RepositoryPort abstracts batch storage.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetBatch(ctx context.Context, orgID, batchID uuid.UUID) (Batch, []Line, error)
	ListBatches(ctx context.Context, orgID, branchID uuid.UUID, page shared.Pagination) ([]Batch, shared.Pagination, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates production batches over the ledger, lot and costing
// stores.
type Service struct {
	repo  RepositoryPort
	gate  ledger.PeriodGate
	audit AuditPort
	now   func() time.Time
}

func NewService(repo RepositoryPort, gate ledger.PeriodGate, audit AuditPort) *Service {
	return &Service{repo: repo, gate: gate, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateBatchInput describes a new draft batch.
type CreateBatchInput struct {
	Reference        string
	OutputItemID     uuid.UUID
	OutputLocationID uuid.UUID
	OutputQty        decimal.Decimal
	Notes            string
}

func (s *Service) CreateBatch(ctx context.Context, in CreateBatchInput) (Batch, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return Batch{}, fmt.Errorf("production: missing actor: %w", shared.ErrForbidden)
	}
	if in.OutputItemID == uuid.Nil || in.OutputLocationID == uuid.Nil {
		return Batch{}, fmt.Errorf("production: output item and location required: %w", shared.ErrInvalidReference)
	}
	if in.OutputQty.Sign() <= 0 {
		return Batch{}, fmt.Errorf("production: output quantity must be positive: %w", shared.ErrInvalidArgument)
	}
	batch := Batch{
		ID:               uuid.New(),
		OrgID:            actor.OrgID,
		BranchID:         actor.BranchID,
		Reference:        strings.TrimSpace(in.Reference),
		OutputItemID:     in.OutputItemID,
		OutputLocationID: in.OutputLocationID,
		OutputQty:        in.OutputQty,
		UnitCost:         decimal.Zero,
		Status:           StatusDraft,
		Notes:            in.Notes,
		CreatedBy:        actor.UserID,
		CreatedAt:        s.now().UTC(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertBatch(ctx, batch)
	})
	if err != nil {
		return Batch{}, err
	}
	return batch, nil
}

// AddLineInput describes one consumed input of a draft batch.
type AddLineInput struct {
	ItemID      uuid.UUID
	LocationID  uuid.UUID
	Qty         decimal.Decimal
	PinnedLotID *uuid.UUID
}

// AddLine appends an input line. Only drafts may be edited.
func (s *Service) AddLine(ctx context.Context, batchID uuid.UUID, in AddLineInput) (Line, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return Line{}, fmt.Errorf("production: missing actor: %w", shared.ErrForbidden)
	}
	if in.ItemID == uuid.Nil || in.LocationID == uuid.Nil {
		return Line{}, fmt.Errorf("production: item and location required: %w", shared.ErrInvalidReference)
	}
	if in.Qty.Sign() <= 0 {
		return Line{}, fmt.Errorf("production: line quantity must be positive: %w", shared.ErrInvalidArgument)
	}
	line := Line{
		ID:          uuid.New(),
		BatchID:     batchID,
		ItemID:      in.ItemID,
		LocationID:  in.LocationID,
		Qty:         in.Qty,
		PinnedLotID: in.PinnedLotID,
		CreatedAt:   s.now().UTC(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		batch, err := tx.BatchForUpdate(ctx, actor.OrgID, batchID)
		if err != nil {
			return err
		}
		if batch.Status != StatusDraft {
			return fmt.Errorf("production: batch %s is %s, lines can only change on drafts: %w",
				batchID, batch.Status, shared.ErrInvalidState)
		}
		return tx.InsertLine(ctx, line)
	})
	if err != nil {
		return Line{}, err
	}
	return line, nil
}

// RemoveLine deletes an input line from a draft.
func (s *Service) RemoveLine(ctx context.Context, batchID, lineID uuid.UUID) error {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return fmt.Errorf("production: missing actor: %w", shared.ErrForbidden)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		batch, err := tx.BatchForUpdate(ctx, actor.OrgID, batchID)
		if err != nil {
			return err
		}
		if batch.Status != StatusDraft {
			return fmt.Errorf("production: batch %s is %s, lines can only change on drafts: %w",
				batchID, batch.Status, shared.ErrInvalidState)
		}
		return tx.DeleteLine(ctx, batchID, lineID)
	})
}

// DeleteBatch removes a draft outright. Posted and void batches are history and
// cannot be deleted.
func (s *Service) DeleteBatch(ctx context.Context, batchID uuid.UUID) error {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return fmt.Errorf("production: missing actor: %w", shared.ErrForbidden)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		batch, err := tx.BatchForUpdate(ctx, actor.OrgID, batchID)
		if err != nil {
			return err
		}
		if batch.Status != StatusDraft {
			return fmt.Errorf("production: batch %s is %s, only drafts can be deleted: %w",
				batchID, batch.Status, shared.ErrInvalidState)
		}
		return tx.DeleteBatchDraft(ctx, batchID)
	})
}

// Post consumes every input line, receives the output at the derived unit cost
// and flips the batch to POSTED, all in one transaction. Posting is
// deliberately not idempotent: a second post of the same batch fails with an
// already-posted error instead of silently succeeding, so double submissions
// surface to the caller.
func (s *Service) Post(ctx context.Context, batchID uuid.UUID) (Batch, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return Batch{}, fmt.Errorf("production: missing actor: %w", shared.ErrForbidden)
	}
	now := s.now().UTC()
	var posted Batch
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		batch, err := tx.BatchForUpdate(ctx, actor.OrgID, batchID)
		if err != nil {
			return err
		}
		switch batch.Status {
		case StatusPosted:
			return fmt.Errorf("production: batch %s: %w", batchID, shared.ErrAlreadyPosted)
		case StatusVoid:
			return fmt.Errorf("production: batch %s is void: %w", batchID, shared.ErrInvalidState)
		}
		if s.gate != nil {
			if err := s.gate.EnsureOpenForPosting(ctx, actor.OrgID, batch.BranchID, now); err != nil {
				return err
			}
		}
		lines, err := tx.LinesForBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return fmt.Errorf("production: batch %s has no input lines: %w", batchID, shared.ErrInvalidState)
		}

		components := make([]costing.CostComponent, 0, len(lines))
		for _, line := range lines {
			basis, err := s.consumeLine(ctx, tx, actor, batch, line, now)
			if err != nil {
				return err
			}
			components = append(components, costing.CostComponent{Qty: line.Qty, UnitCost: basis})
		}

		unitCost, err := costing.ProductionUnitCost(components, batch.OutputQty)
		if err != nil {
			return err
		}

		priorQty, err := tx.OnHandQty(ctx, actor.OrgID, batch.OutputItemID, uuid.Nil)
		if err != nil {
			return err
		}
		priorWac, err := tx.CurrentWac(ctx, actor.OrgID, batch.OutputItemID)
		if err != nil {
			return err
		}
		if err := tx.InsertCostLayer(ctx, costing.CostLayer{
			ID:          uuid.New(),
			OrgID:       actor.OrgID,
			ItemID:      batch.OutputItemID,
			Method:      costing.MethodWAC,
			QtyReceived: batch.OutputQty,
			UnitCost:    unitCost,
			PriorWac:    priorWac,
			NewWac:      costing.WeightedAverage(priorQty, priorWac, batch.OutputQty, unitCost),
			SourceType:  SourceType,
			SourceID:    batch.ID,
			CreatedAt:   now,
		}); err != nil {
			return err
		}

		if err := tx.InsertLedgerEntry(ctx, ledger.Entry{
			ID:         uuid.New(),
			OrgID:      actor.OrgID,
			BranchID:   batch.BranchID,
			ItemID:     batch.OutputItemID,
			LocationID: batch.OutputLocationID,
			Qty:        batch.OutputQty,
			Reason:     ledger.ReasonProductionProduce,
			SourceType: SourceType,
			SourceID:   batch.ID,
			Notes:      batch.Reference,
			CreatedBy:  actor.UserID,
			CreatedAt:  now,
		}); err != nil {
			return err
		}

		if err := tx.UpdateBatchPosted(ctx, batchID, unitCost, now, actor.UserID); err != nil {
			return err
		}
		posted = batch
		posted.Status = StatusPosted
		posted.UnitCost = unitCost
		posted.PostedAt = &now
		posted.PostedBy = actor.UserID
		return nil
	})
	if err != nil {
		return Batch{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    actor.OrgID,
			ActorID:  actor.UserID,
			Action:   "production:post",
			Entity:   "production_batch",
			EntityID: batchID.String(),
			Meta: map[string]any{
				"output_qty": posted.OutputQty.String(),
				"unit_cost":  posted.UnitCost.String(),
			},
		})
	}
	return posted, nil
}

// consumeLine writes the negative movement for one input line and returns its
// cost basis: the pinned lot's own received cost, or the current weighted
// average otherwise. Availability is checked before the movement is written,
// so the on-hand sum still reflects the state prior to this consumption.
func (s *Service) consumeLine(ctx context.Context, tx TxRepository, actor shared.Actor, batch Batch, line Line, now time.Time) (decimal.Decimal, error) {
	tracked, err := tx.ItemLotTracked(ctx, actor.OrgID, line.ItemID)
	if err != nil {
		return decimal.Zero, err
	}
	if !tracked {
		onHand, err := tx.OnHandQty(ctx, actor.OrgID, line.ItemID, line.LocationID)
		if err != nil {
			return decimal.Zero, err
		}
		if onHand.LessThan(line.Qty) {
			return decimal.Zero, fmt.Errorf("production: insufficient stock of item %s: requested %s, available %s: %w",
				line.ItemID, line.Qty, onHand, shared.ErrInsufficientStock)
		}
	}

	entryID := uuid.New()
	entry := ledger.Entry{
		ID:         entryID,
		OrgID:      actor.OrgID,
		BranchID:   batch.BranchID,
		ItemID:     line.ItemID,
		LocationID: line.LocationID,
		LotID:      line.PinnedLotID,
		Qty:        line.Qty.Neg(),
		Reason:     ledger.ReasonProductionConsume,
		SourceType: SourceType,
		SourceID:   batch.ID,
		CreatedBy:  actor.UserID,
		CreatedAt:  now,
	}
	if err := tx.InsertLedgerEntry(ctx, entry); err != nil {
		return decimal.Zero, err
	}

	if tracked {
		var pinnedCost decimal.Decimal
		if line.PinnedLotID != nil {
			lot, err := tx.LotForUpdate(ctx, actor.OrgID, *line.PinnedLotID)
			if err != nil {
				return decimal.Zero, err
			}
			pinnedCost = lot.UnitCost
		}
		if _, err := lots.Allocate(ctx, tx, lots.AllocateInput{
			OrgID:         actor.OrgID,
			ItemID:        line.ItemID,
			LocationID:    line.LocationID,
			Qty:           line.Qty,
			ExplicitLotID: line.PinnedLotID,
			LedgerEntryID: entryID,
			SourceType:    SourceType,
			SourceID:      batch.ID,
			Now:           now,
		}); err != nil {
			return decimal.Zero, err
		}
		if line.PinnedLotID != nil {
			return pinnedCost, nil
		}
	}
	return tx.CurrentWac(ctx, actor.OrgID, line.ItemID)
}

// Void reverses a posted batch: sign-flipped ledger entries for every movement
// the post wrote, lot restoration, status flip with the mandatory reason.
// Requires manager authority or above.
func (s *Service) Void(ctx context.Context, batchID uuid.UUID, reason string) (Batch, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return Batch{}, fmt.Errorf("production: missing actor: %w", shared.ErrForbidden)
	}
	if !actor.Role.CanVoidProduction() {
		return Batch{}, fmt.Errorf("production: role %s cannot void batches: %w", actor.Role, shared.ErrForbidden)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Batch{}, fmt.Errorf("production: void reason required: %w", shared.ErrInvalidArgument)
	}
	now := s.now().UTC()
	var voided Batch
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		batch, err := tx.BatchForUpdate(ctx, actor.OrgID, batchID)
		if err != nil {
			return err
		}
		if batch.Status != StatusPosted {
			return fmt.Errorf("production: batch %s is %s, only posted batches can be voided: %w",
				batchID, batch.Status, shared.ErrInvalidState)
		}
		if s.gate != nil {
			if err := s.gate.EnsureOpenForPosting(ctx, actor.OrgID, batch.BranchID, now); err != nil {
				return err
			}
		}

		entries, err := tx.EntriesForSource(ctx, actor.OrgID, SourceType, batch.ID)
		if err != nil {
			return err
		}
		reversalEntryIDs := make(map[uuid.UUID]uuid.UUID, len(entries))
		for _, entry := range entries {
			reversal := entry.Reversal(actor.UserID, reason)
			reversalID := uuid.New()
			reversalEntryIDs[entry.ID] = reversalID
			if err := tx.InsertLedgerEntry(ctx, ledger.Entry{
				ID:         reversalID,
				OrgID:      entry.OrgID,
				BranchID:   entry.BranchID,
				ItemID:     entry.ItemID,
				LocationID: entry.LocationID,
				LotID:      entry.LotID,
				Qty:        reversal.Qty,
				Reason:     reversal.Reason,
				SourceType: "production_void",
				SourceID:   batch.ID,
				Notes:      reason,
				CreatedBy:  actor.UserID,
				CreatedAt:  now,
			}); err != nil {
				return err
			}
		}

		allocationIDs, err := tx.AllocationIDsForSource(ctx, batch.ID)
		if err != nil {
			return err
		}
		if len(allocationIDs) > 0 {
			if err := lots.Restore(ctx, tx, lots.RestoreInput{
				OrgID:            actor.OrgID,
				AllocationIDs:    allocationIDs,
				ReversalEntryIDs: reversalEntryIDs,
				SourceType:       "production_void",
				SourceID:         batch.ID,
				Now:              now,
			}); err != nil {
				return err
			}
		}

		if err := tx.UpdateBatchVoided(ctx, batchID, reason, now, actor.UserID); err != nil {
			return err
		}
		voided = batch
		voided.Status = StatusVoid
		voided.VoidReason = reason
		voided.VoidedAt = &now
		voided.VoidedBy = actor.UserID
		return nil
	})
	if err != nil {
		return Batch{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    actor.OrgID,
			ActorID:  actor.UserID,
			Action:   "production:void",
			Entity:   "production_batch",
			EntityID: batchID.String(),
			Meta:     map[string]any{"reason": reason},
		})
	}
	return voided, nil
}

// Batch fetches one batch with its lines.
func (s *Service) Batch(ctx context.Context, batchID uuid.UUID) (Batch, []Line, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return Batch{}, nil, fmt.Errorf("production: missing actor: %w", shared.ErrForbidden)
	}
	return s.repo.GetBatch(ctx, actor.OrgID, batchID)
}

// Batches lists the actor's branch batches, newest first.
func (s *Service) Batches(ctx context.Context, page shared.Pagination) ([]Batch, shared.Pagination, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return nil, shared.Pagination{}, fmt.Errorf("production: missing actor: %w", shared.ErrForbidden)
	}
	return s.repo.ListBatches(ctx, actor.OrgID, actor.BranchID, page)
}
