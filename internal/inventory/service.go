package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/ledger"
	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// SourceType tags transfer entries in the ledger.
const SourceType = "stock_transfer"

// RepositoryPort abstracts storage for movements and reports.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	EntriesForItem(ctx context.Context, orgID, branchID, itemID uuid.UUID, locationID *uuid.UUID, from, to time.Time) ([]ledger.Entry, error)
	OpeningBalance(ctx context.Context, orgID, branchID, itemID uuid.UUID, locationID *uuid.UUID, before time.Time) (decimal.Decimal, error)
	Valuation(ctx context.Context, orgID, branchID uuid.UUID, asOf time.Time) ([]ValuationLine, error)
}

// TxRepository is the transactional surface of a transfer.
type TxRepository interface {
	OnHandForUpdate(ctx context.Context, orgID, itemID, locationID uuid.UUID) (decimal.Decimal, error)
	InsertLedgerEntry(ctx context.Context, entry ledger.Entry) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service moves stock between locations and derives the reporting reads on
// top of the ledger. Balances are always recomputed from entries.
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

// Transfer appends a matched OUT/IN entry pair in one transaction. The source
// location must hold the quantity; a short source fails the whole transfer.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (TransferResult, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return TransferResult{}, fmt.Errorf("inventory: missing actor: %w", shared.ErrForbidden)
	}
	if in.ItemID == uuid.Nil || in.FromLocationID == uuid.Nil || in.ToLocationID == uuid.Nil {
		return TransferResult{}, fmt.Errorf("inventory: item and both locations required: %w", shared.ErrInvalidReference)
	}
	if in.FromLocationID == in.ToLocationID {
		return TransferResult{}, fmt.Errorf("inventory: transfer to the same location: %w", shared.ErrInvalidArgument)
	}
	if !in.Qty.IsPositive() {
		return TransferResult{}, fmt.Errorf("inventory: transfer quantity must be positive: %w", shared.ErrInvalidArgument)
	}
	now := s.now().UTC()
	if s.gate != nil {
		if err := s.gate.EnsureOpenForPosting(ctx, actor.OrgID, in.BranchID, now); err != nil {
			return TransferResult{}, err
		}
	}

	transferID := uuid.New()
	result := TransferResult{TransferID: transferID}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		onHand, err := tx.OnHandForUpdate(ctx, actor.OrgID, in.ItemID, in.FromLocationID)
		if err != nil {
			return err
		}
		if onHand.LessThan(in.Qty) {
			return fmt.Errorf("inventory: insufficient stock at source location (%s on hand, %s requested): %w",
				onHand, in.Qty, shared.ErrInsufficientStock)
		}
		result.Out = ledger.Entry{
			ID:         uuid.New(),
			OrgID:      actor.OrgID,
			BranchID:   in.BranchID,
			ItemID:     in.ItemID,
			LocationID: in.FromLocationID,
			Qty:        in.Qty.Neg(),
			Reason:     ledger.ReasonTransfer,
			SourceType: SourceType,
			SourceID:   transferID,
			Notes:      in.Notes,
			CreatedBy:  actor.UserID,
			CreatedAt:  now,
		}
		if err := tx.InsertLedgerEntry(ctx, result.Out); err != nil {
			return err
		}
		result.In = ledger.Entry{
			ID:         uuid.New(),
			OrgID:      actor.OrgID,
			BranchID:   in.BranchID,
			ItemID:     in.ItemID,
			LocationID: in.ToLocationID,
			Qty:        in.Qty,
			Reason:     ledger.ReasonTransfer,
			SourceType: SourceType,
			SourceID:   transferID,
			Notes:      in.Notes,
			CreatedBy:  actor.UserID,
			CreatedAt:  now,
		}
		return tx.InsertLedgerEntry(ctx, result.In)
	})
	if err != nil {
		return TransferResult{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			OrgID:    actor.OrgID,
			ActorID:  actor.UserID,
			Action:   "inventory:transfer",
			Entity:   "stock_transfer",
			EntityID: transferID.String(),
			Meta: map[string]any{
				"item_id": in.ItemID.String(),
				"qty":     in.Qty.String(),
			},
		})
	}
	return result, nil
}

// StockCardInput bounds a stock card query. A nil location means the card
// spans the whole branch.
type StockCardInput struct {
	BranchID   uuid.UUID
	ItemID     uuid.UUID
	LocationID *uuid.UUID
	From       time.Time
	To         time.Time
}

// StockCard replays an item's movements over a window with a running balance.
func (s *Service) StockCard(ctx context.Context, in StockCardInput) (StockCard, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return StockCard{}, fmt.Errorf("inventory: missing actor: %w", shared.ErrForbidden)
	}
	if in.ItemID == uuid.Nil {
		return StockCard{}, fmt.Errorf("inventory: item required: %w", shared.ErrInvalidReference)
	}
	if in.To.IsZero() {
		in.To = s.now().UTC()
	}
	opening, err := s.repo.OpeningBalance(ctx, actor.OrgID, in.BranchID, in.ItemID, in.LocationID, in.From)
	if err != nil {
		return StockCard{}, err
	}
	entries, err := s.repo.EntriesForItem(ctx, actor.OrgID, in.BranchID, in.ItemID, in.LocationID, in.From, in.To)
	if err != nil {
		return StockCard{}, err
	}

	card := StockCard{
		ItemID:     in.ItemID,
		LocationID: in.LocationID,
		From:       in.From,
		To:         in.To,
		Opening:    opening,
		Closing:    opening,
	}
	for _, e := range entries {
		card.Closing = card.Closing.Add(e.Qty)
		card.Entries = append(card.Entries, StockCardEntry{
			EntryID:    e.ID,
			At:         e.CreatedAt,
			Reason:     e.Reason,
			SourceType: e.SourceType,
			SourceID:   e.SourceID,
			Qty:        e.Qty,
			Balance:    card.Closing,
			Notes:      e.Notes,
		})
	}
	return card, nil
}

// Valuation values a branch's stock as of a point in time.
func (s *Service) Valuation(ctx context.Context, branchID uuid.UUID, asOf time.Time) (ValuationReport, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return ValuationReport{}, fmt.Errorf("inventory: missing actor: %w", shared.ErrForbidden)
	}
	if asOf.IsZero() {
		asOf = s.now().UTC()
	}
	lines, err := s.repo.Valuation(ctx, actor.OrgID, branchID, asOf)
	if err != nil {
		return ValuationReport{}, err
	}
	report := ValuationReport{
		BranchID:    branchID,
		AsOf:        asOf,
		Lines:       lines,
		Total:       decimal.Zero,
		GeneratedAt: s.now().UTC(),
	}
	for _, line := range lines {
		report.Total = report.Total.Add(line.Value)
	}
	return report, nil
}
