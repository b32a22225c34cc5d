package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/costing"
	"github.com/chefcloud/chefcloud-erp/internal/ledger"
	"github.com/chefcloud/chefcloud-erp/internal/platform/db"
)

// Repository reads movements from the ledger and writes transfer pairs
// through the immutability guard.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	q ledger.Guarded
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: ledger.Guard(tx)})
	})
}

// OnHandForUpdate serializes concurrent transfers out of the same location by
// taking an advisory lock on the (item, location) key before summing.
func (r *txRepo) OnHandForUpdate(ctx context.Context, orgID, itemID, locationID uuid.UUID) (decimal.Decimal, error) {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1 || ':' || $2, 0))`,
		itemID.String(), locationID.String()); err != nil {
		return decimal.Zero, err
	}
	var sum string
	err := r.q.QueryRow(ctx, `SELECT COALESCE(SUM(qty), 0)::text FROM inventory_ledger
WHERE org_id=$1 AND item_id=$2 AND location_id=$3`,
		orgID.String(), itemID.String(), locationID.String()).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(sum)
}

func (r *txRepo) InsertLedgerEntry(ctx context.Context, entry ledger.Entry) error {
	var lotID *string
	if entry.LotID != nil {
		s := entry.LotID.String()
		lotID = &s
	}
	_, err := r.q.Exec(ctx, `INSERT INTO inventory_ledger
(id, org_id, branch_id, item_id, location_id, lot_id, qty, reason, source_type, source_id, notes, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		entry.ID.String(), entry.OrgID.String(), entry.BranchID.String(),
		entry.ItemID.String(), entry.LocationID.String(), lotID,
		entry.Qty.String(), string(entry.Reason), entry.SourceType,
		entry.SourceID.String(), entry.Notes, entry.CreatedBy, entry.CreatedAt)
	return err
}

func (r *Repository) EntriesForItem(ctx context.Context, orgID, branchID, itemID uuid.UUID, locationID *uuid.UUID, from, to time.Time) ([]ledger.Entry, error) {
	q := `SELECT id::text, org_id::text, branch_id::text, item_id::text, location_id::text, lot_id::text,
qty::text, reason, source_type, source_id::text, notes, created_by, created_at
FROM inventory_ledger
WHERE org_id=$1 AND branch_id=$2 AND item_id=$3 AND created_at>=$4 AND created_at<=$5`
	args := []any{orgID.String(), branchID.String(), itemID.String(), from, to}
	if locationID != nil {
		q += ` AND location_id=$6`
		args = append(args, locationID.String())
	}
	q += ` ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *Repository) OpeningBalance(ctx context.Context, orgID, branchID, itemID uuid.UUID, locationID *uuid.UUID, before time.Time) (decimal.Decimal, error) {
	q := `SELECT COALESCE(SUM(qty), 0)::text FROM inventory_ledger
WHERE org_id=$1 AND branch_id=$2 AND item_id=$3 AND created_at<$4`
	args := []any{orgID.String(), branchID.String(), itemID.String(), before}
	if locationID != nil {
		q += ` AND location_id=$5`
		args = append(args, locationID.String())
	}
	var sum string
	if err := r.pool.QueryRow(ctx, q, args...).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(sum)
}

func (r *Repository) Valuation(ctx context.Context, orgID, branchID uuid.UUID, asOf time.Time) ([]ValuationLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.id::text, i.sku,
COALESCE(SUM(l.qty), 0)::text,
COALESCE((SELECT c.new_wac FROM cost_layers c
	WHERE c.org_id=$1 AND c.item_id=i.id AND c.created_at<=$3
	ORDER BY c.created_at DESC, c.id DESC LIMIT 1), 0)::text
FROM items i
LEFT JOIN inventory_ledger l
	ON l.item_id=i.id AND l.org_id=$1 AND l.branch_id=$2 AND l.created_at<=$3
WHERE i.org_id=$1
GROUP BY i.id, i.sku
HAVING COALESCE(SUM(l.qty), 0) <> 0
ORDER BY i.sku`, orgID.String(), branchID.String(), asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []ValuationLine
	for rows.Next() {
		var line ValuationLine
		var item, onHand, wac string
		if err := rows.Scan(&item, &line.SKU, &onHand, &wac); err != nil {
			return nil, err
		}
		if line.ItemID, err = uuid.Parse(item); err != nil {
			return nil, err
		}
		if line.OnHand, err = decimal.NewFromString(onHand); err != nil {
			return nil, err
		}
		if line.Wac, err = decimal.NewFromString(wac); err != nil {
			return nil, err
		}
		line.Value = costing.RoundCents(line.OnHand.Mul(line.Wac))
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanEntry(row pgx.Row) (ledger.Entry, error) {
	var e ledger.Entry
	var id, org, branch, item, location, source, qty string
	var lot *string
	if err := row.Scan(&id, &org, &branch, &item, &location, &lot, &qty,
		&e.Reason, &e.SourceType, &source, &e.Notes, &e.CreatedBy, &e.CreatedAt); err != nil {
		return ledger.Entry{}, err
	}
	var err error
	if e.ID, err = uuid.Parse(id); err != nil {
		return ledger.Entry{}, err
	}
	if e.OrgID, err = uuid.Parse(org); err != nil {
		return ledger.Entry{}, err
	}
	if e.BranchID, err = uuid.Parse(branch); err != nil {
		return ledger.Entry{}, err
	}
	if e.ItemID, err = uuid.Parse(item); err != nil {
		return ledger.Entry{}, err
	}
	if e.LocationID, err = uuid.Parse(location); err != nil {
		return ledger.Entry{}, err
	}
	if lot != nil {
		lotID, err := uuid.Parse(*lot)
		if err != nil {
			return ledger.Entry{}, err
		}
		e.LotID = &lotID
	}
	if e.SourceID, err = uuid.Parse(source); err != nil {
		return ledger.Entry{}, err
	}
	if e.Qty, err = decimal.NewFromString(qty); err != nil {
		return ledger.Entry{}, err
	}
	return e, nil
}
