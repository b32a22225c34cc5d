package production

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/costing"
	"github.com/chefcloud/chefcloud-erp/internal/ledger"
	"github.com/chefcloud/chefcloud-erp/internal/lots"
	"github.com/chefcloud/chefcloud-erp/internal/platform/db"
	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// Repository persists production batches in PostgreSQL. Transactional work runs
// through the ledger's immutability guard; the embedded lot store gives the
// orchestrator lot allocation inside the same transaction.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	lots.TxLotStore
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{TxLotStore: lots.TxLotStore{Q: ledger.Guard(tx)}})
	})
}

const batchColumns = `id::text, org_id::text, branch_id::text, reference, output_item_id::text,
output_location_id::text, output_qty::text, unit_cost::text, status, notes,
created_by, created_at, posted_by, posted_at, voided_by, voided_at, void_reason`

func (r *txRepo) InsertBatch(ctx context.Context, batch Batch) error {
	_, err := r.Q.Exec(ctx, `INSERT INTO production_batches
(id, org_id, branch_id, reference, output_item_id, output_location_id, output_qty, unit_cost, status, notes, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		batch.ID.String(), batch.OrgID.String(), batch.BranchID.String(), batch.Reference,
		batch.OutputItemID.String(), batch.OutputLocationID.String(),
		batch.OutputQty.String(), batch.UnitCost.String(), string(batch.Status),
		batch.Notes, batch.CreatedBy, batch.CreatedAt)
	return err
}

func (r *txRepo) BatchForUpdate(ctx context.Context, orgID, batchID uuid.UUID) (Batch, error) {
	q := `SELECT ` + batchColumns + ` FROM production_batches WHERE id=$1 AND org_id=$2 FOR UPDATE`
	batch, err := scanBatch(r.Q.QueryRow(ctx, q, batchID.String(), orgID.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return Batch{}, fmt.Errorf("production: batch %s: %w", batchID, shared.ErrNotFound)
	}
	return batch, err
}

func (r *txRepo) UpdateBatchPosted(ctx context.Context, batchID uuid.UUID, unitCost decimal.Decimal, postedAt time.Time, postedBy int64) error {
	_, err := r.Q.Exec(ctx, `UPDATE production_batches
SET status='POSTED', unit_cost=$2, posted_at=$3, posted_by=$4 WHERE id=$1`,
		batchID.String(), unitCost.String(), postedAt, postedBy)
	return err
}

func (r *txRepo) UpdateBatchVoided(ctx context.Context, batchID uuid.UUID, reason string, voidedAt time.Time, voidedBy int64) error {
	_, err := r.Q.Exec(ctx, `UPDATE production_batches
SET status='VOID', void_reason=$2, voided_at=$3, voided_by=$4 WHERE id=$1`,
		batchID.String(), reason, voidedAt, voidedBy)
	return err
}

func (r *txRepo) DeleteBatchDraft(ctx context.Context, batchID uuid.UUID) error {
	if _, err := r.Q.Exec(ctx, `DELETE FROM production_batch_lines WHERE batch_id=$1`, batchID.String()); err != nil {
		return err
	}
	_, err := r.Q.Exec(ctx, `DELETE FROM production_batches WHERE id=$1 AND status='DRAFT'`, batchID.String())
	return err
}

func (r *txRepo) InsertLine(ctx context.Context, line Line) error {
	var pinned any
	if line.PinnedLotID != nil {
		pinned = line.PinnedLotID.String()
	}
	_, err := r.Q.Exec(ctx, `INSERT INTO production_batch_lines
(id, batch_id, item_id, location_id, qty, pinned_lot_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		line.ID.String(), line.BatchID.String(), line.ItemID.String(), line.LocationID.String(),
		line.Qty.String(), pinned, line.CreatedAt)
	return err
}

func (r *txRepo) DeleteLine(ctx context.Context, batchID, lineID uuid.UUID) error {
	tag, err := r.Q.Exec(ctx, `DELETE FROM production_batch_lines WHERE id=$1 AND batch_id=$2`,
		lineID.String(), batchID.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("production: line %s: %w", lineID, shared.ErrNotFound)
	}
	return nil
}

func (r *txRepo) LinesForBatch(ctx context.Context, batchID uuid.UUID) ([]Line, error) {
	rows, err := r.Q.Query(ctx, `SELECT id::text, batch_id::text, item_id::text, location_id::text,
qty::text, pinned_lot_id::text, created_at
FROM production_batch_lines WHERE batch_id=$1 ORDER BY created_at, id`, batchID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLines(rows)
}

func (r *txRepo) ItemLotTracked(ctx context.Context, orgID, itemID uuid.UUID) (bool, error) {
	var tracked bool
	err := r.Q.QueryRow(ctx, `SELECT lot_tracked FROM items WHERE id=$1 AND org_id=$2`,
		itemID.String(), orgID.String()).Scan(&tracked)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("production: item %s not found in org: %w", itemID, shared.ErrInvalidReference)
	}
	return tracked, err
}

// OnHandQty sums ledger quantity for an item; a nil location sums across every
// location of the org.
func (r *txRepo) OnHandQty(ctx context.Context, orgID, itemID, locationID uuid.UUID) (decimal.Decimal, error) {
	q := `SELECT COALESCE(SUM(qty), 0)::text FROM inventory_ledger WHERE org_id=$1 AND item_id=$2`
	args := []any{orgID.String(), itemID.String()}
	if locationID != uuid.Nil {
		q += ` AND location_id=$3`
		args = append(args, locationID.String())
	}
	var raw string
	if err := r.Q.QueryRow(ctx, q, args...).Scan(&raw); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func (r *txRepo) CurrentWac(ctx context.Context, orgID, itemID uuid.UUID) (decimal.Decimal, error) {
	var raw string
	err := r.Q.QueryRow(ctx, `SELECT new_wac::text FROM cost_layers
WHERE org_id=$1 AND item_id=$2 ORDER BY created_at DESC, id DESC LIMIT 1`,
		orgID.String(), itemID.String()).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

func (r *txRepo) InsertLedgerEntry(ctx context.Context, entry ledger.Entry) error {
	var lotID any
	if entry.LotID != nil {
		lotID = entry.LotID.String()
	}
	_, err := r.Q.Exec(ctx, `INSERT INTO inventory_ledger
(id, org_id, branch_id, item_id, location_id, lot_id, qty, reason, source_type, source_id, notes, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		entry.ID.String(), entry.OrgID.String(), entry.BranchID.String(),
		entry.ItemID.String(), entry.LocationID.String(), lotID,
		entry.Qty.String(), string(entry.Reason), entry.SourceType,
		entry.SourceID.String(), entry.Notes, entry.CreatedBy, entry.CreatedAt)
	return err
}

func (r *txRepo) EntriesForSource(ctx context.Context, orgID uuid.UUID, sourceType string, sourceID uuid.UUID) ([]ledger.Entry, error) {
	rows, err := r.Q.Query(ctx, `SELECT id::text, org_id::text, branch_id::text, item_id::text,
location_id::text, lot_id::text, qty::text, reason, source_type, source_id::text, notes, created_by, created_at
FROM inventory_ledger WHERE org_id=$1 AND source_type=$2 AND source_id=$3 ORDER BY created_at, id`,
		orgID.String(), sourceType, sourceID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var e ledger.Entry
		var id, org, branch, item, location, source, qty string
		var lot *string
		if err := rows.Scan(&id, &org, &branch, &item, &location, &lot, &qty,
			&e.Reason, &e.SourceType, &source, &e.Notes, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if e.OrgID, err = uuid.Parse(org); err != nil {
			return nil, err
		}
		if e.BranchID, err = uuid.Parse(branch); err != nil {
			return nil, err
		}
		if e.ItemID, err = uuid.Parse(item); err != nil {
			return nil, err
		}
		if e.LocationID, err = uuid.Parse(location); err != nil {
			return nil, err
		}
		if lot != nil {
			lotID, err := uuid.Parse(*lot)
			if err != nil {
				return nil, err
			}
			e.LotID = &lotID
		}
		if e.SourceID, err = uuid.Parse(source); err != nil {
			return nil, err
		}
		if e.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AllocationIDsForSource returns only positive allocations so a restore never
// reverses earlier reversal rows.
func (r *txRepo) AllocationIDsForSource(ctx context.Context, sourceID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.Q.Query(ctx, `SELECT id::text FROM lot_allocations
WHERE source_id=$1 AND allocated_qty > 0 ORDER BY created_at, id`, sourceID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *txRepo) InsertCostLayer(ctx context.Context, layer costing.CostLayer) error {
	_, err := r.Q.Exec(ctx, `INSERT INTO cost_layers
(id, org_id, item_id, method, qty_received, unit_cost, prior_wac, new_wac, source_type, source_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		layer.ID.String(), layer.OrgID.String(), layer.ItemID.String(), string(layer.Method),
		layer.QtyReceived.String(), layer.UnitCost.String(), layer.PriorWac.String(), layer.NewWac.String(),
		layer.SourceType, layer.SourceID.String(), layer.CreatedAt)
	return err
}

func (r *Repository) GetBatch(ctx context.Context, orgID, batchID uuid.UUID) (Batch, []Line, error) {
	q := `SELECT ` + batchColumns + ` FROM production_batches WHERE id=$1 AND org_id=$2`
	batch, err := scanBatch(r.pool.QueryRow(ctx, q, batchID.String(), orgID.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return Batch{}, nil, fmt.Errorf("production: batch %s: %w", batchID, shared.ErrNotFound)
	}
	if err != nil {
		return Batch{}, nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id::text, batch_id::text, item_id::text, location_id::text,
qty::text, pinned_lot_id::text, created_at
FROM production_batch_lines WHERE batch_id=$1 ORDER BY created_at, id`, batchID.String())
	if err != nil {
		return Batch{}, nil, err
	}
	defer rows.Close()
	lines, err := scanLines(rows)
	if err != nil {
		return Batch{}, nil, err
	}
	return batch, lines, nil
}

func (r *Repository) ListBatches(ctx context.Context, orgID, branchID uuid.UUID, page shared.Pagination) ([]Batch, shared.Pagination, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM production_batches WHERE org_id=$1 AND branch_id=$2`,
		orgID.String(), branchID.String()).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}
	q := `SELECT ` + batchColumns + ` FROM production_batches
WHERE org_id=$1 AND branch_id=$2 ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`
	rows, err := r.pool.Query(ctx, q, orgID.String(), branchID.String(), page.PerPage, page.Offset())
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, shared.Pagination{}, err
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Pagination{}, err
	}
	return batches, shared.NewPagination(page.Page, page.PerPage, total), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBatch(row rowScanner) (Batch, error) {
	var b Batch
	var id, org, branch, outItem, outLoc, outQty, unitCost string
	var postedBy, voidedBy *int64
	var voidReason *string
	if err := row.Scan(&id, &org, &branch, &b.Reference, &outItem, &outLoc, &outQty, &unitCost,
		&b.Status, &b.Notes, &b.CreatedBy, &b.CreatedAt,
		&postedBy, &b.PostedAt, &voidedBy, &b.VoidedAt, &voidReason); err != nil {
		return Batch{}, err
	}
	var err error
	if b.ID, err = uuid.Parse(id); err != nil {
		return Batch{}, err
	}
	if b.OrgID, err = uuid.Parse(org); err != nil {
		return Batch{}, err
	}
	if b.BranchID, err = uuid.Parse(branch); err != nil {
		return Batch{}, err
	}
	if b.OutputItemID, err = uuid.Parse(outItem); err != nil {
		return Batch{}, err
	}
	if b.OutputLocationID, err = uuid.Parse(outLoc); err != nil {
		return Batch{}, err
	}
	if b.OutputQty, err = decimal.NewFromString(outQty); err != nil {
		return Batch{}, err
	}
	if b.UnitCost, err = decimal.NewFromString(unitCost); err != nil {
		return Batch{}, err
	}
	if postedBy != nil {
		b.PostedBy = *postedBy
	}
	if voidedBy != nil {
		b.VoidedBy = *voidedBy
	}
	if voidReason != nil {
		b.VoidReason = *voidReason
	}
	return b, nil
}

func scanLines(rows pgx.Rows) ([]Line, error) {
	var lines []Line
	for rows.Next() {
		var line Line
		var id, batch, item, location, qty string
		var pinned *string
		if err := rows.Scan(&id, &batch, &item, &location, &qty, &pinned, &line.CreatedAt); err != nil {
			return nil, err
		}
		var err error
		if line.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if line.BatchID, err = uuid.Parse(batch); err != nil {
			return nil, err
		}
		if line.ItemID, err = uuid.Parse(item); err != nil {
			return nil, err
		}
		if line.LocationID, err = uuid.Parse(location); err != nil {
			return nil, err
		}
		if line.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if pinned != nil {
			lotID, err := uuid.Parse(*pinned)
			if err != nil {
				return nil, err
			}
			line.PinnedLotID = &lotID
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}
