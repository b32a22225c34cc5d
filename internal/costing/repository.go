package costing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/ledger"
	"github.com/chefcloud/chefcloud-erp/internal/platform/db"
)

// Repository persists cost layers in PostgreSQL through the immutability guard.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	q ledger.Guarded
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: ledger.Guard(tx)})
	})
}

func (r *txRepo) OnHandQty(ctx context.Context, orgID, itemID uuid.UUID) (decimal.Decimal, error) {
	return sumQty(ctx, r.q, orgID, itemID)
}

func (r *txRepo) CurrentWac(ctx context.Context, orgID, itemID uuid.UUID) (decimal.Decimal, error) {
	return currentWac(ctx, r.q, orgID, itemID)
}

func (r *txRepo) InsertLayer(ctx context.Context, layer CostLayer) error {
	_, err := r.q.Exec(ctx, `INSERT INTO cost_layers
(id, org_id, item_id, method, qty_received, unit_cost, prior_wac, new_wac, source_type, source_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		layer.ID.String(), layer.OrgID.String(), layer.ItemID.String(), string(layer.Method),
		layer.QtyReceived.String(), layer.UnitCost.String(), layer.PriorWac.String(), layer.NewWac.String(),
		layer.SourceType, layer.SourceID.String(), layer.CreatedAt)
	return err
}

// CurrentWac returns the newest layer's WAC, or zero when no layer exists.
func (r *Repository) CurrentWac(ctx context.Context, orgID, itemID uuid.UUID) (decimal.Decimal, error) {
	return currentWac(ctx, ledger.Guard(r.pool), orgID, itemID)
}

// ListLayers returns cost layers newest first.
func (r *Repository) ListLayers(ctx context.Context, orgID, itemID uuid.UUID, limit int) ([]CostLayer, error) {
	rows, err := ledger.Guard(r.pool).Query(ctx, `SELECT id::text, org_id::text, item_id::text, method,
qty_received::text, unit_cost::text, prior_wac::text, new_wac::text, source_type, source_id::text, created_at
FROM cost_layers WHERE org_id=$1 AND item_id=$2 ORDER BY created_at DESC, id DESC LIMIT $3`,
		orgID.String(), itemID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var layers []CostLayer
	for rows.Next() {
		var (
			layer                                               CostLayer
			id, org, item, method, qty, cost, prior, wac, source string
		)
		if err := rows.Scan(&id, &org, &item, &method, &qty, &cost, &prior, &wac,
			&layer.SourceType, &source, &layer.CreatedAt); err != nil {
			return nil, err
		}
		if layer.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if layer.OrgID, err = uuid.Parse(org); err != nil {
			return nil, err
		}
		if layer.ItemID, err = uuid.Parse(item); err != nil {
			return nil, err
		}
		if layer.SourceID, err = uuid.Parse(source); err != nil {
			return nil, err
		}
		if layer.QtyReceived, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if layer.UnitCost, err = decimal.NewFromString(cost); err != nil {
			return nil, err
		}
		if layer.PriorWac, err = decimal.NewFromString(prior); err != nil {
			return nil, err
		}
		if layer.NewWac, err = decimal.NewFromString(wac); err != nil {
			return nil, err
		}
		layer.Method = Method(method)
		layers = append(layers, layer)
	}
	return layers, rows.Err()
}

func sumQty(ctx context.Context, q ledger.Guarded, orgID, itemID uuid.UUID) (decimal.Decimal, error) {
	var sum string
	err := q.QueryRow(ctx, `SELECT COALESCE(SUM(qty), 0)::text FROM inventory_ledger WHERE org_id=$1 AND item_id=$2`,
		orgID.String(), itemID.String()).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(sum)
}

func currentWac(ctx context.Context, q ledger.Guarded, orgID, itemID uuid.UUID) (decimal.Decimal, error) {
	var wac string
	err := q.QueryRow(ctx, `SELECT new_wac::text FROM cost_layers WHERE org_id=$1 AND item_id=$2
ORDER BY created_at DESC, id DESC LIMIT 1`, orgID.String(), itemID.String()).Scan(&wac)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(wac)
}
