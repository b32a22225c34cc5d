package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// Repository persists alerts in PostgreSQL. The partial unique index on
// (org_id, alert_type, entity_id) WHERE status='OPEN' is what makes
// re-evaluation idempotent; a 23505 maps to shared.ErrConflict.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const alertColumns = `id::text, org_id::text, branch_id::text, alert_type, severity,
entity_type, entity_id::text, status, details, created_at, updated_at`

func (r *Repository) InsertAlert(ctx context.Context, alert Alert) error {
	details, err := json.Marshal(alert.Details)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO alerts
(id, org_id, branch_id, alert_type, severity, entity_type, entity_id, status, details, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		alert.ID.String(), alert.OrgID.String(), alert.BranchID.String(),
		string(alert.Type), string(alert.Severity), alert.EntityType,
		alert.EntityID.String(), string(alert.Status), details,
		alert.CreatedAt, alert.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("alerts: open %s alert for entity %s exists: %w",
			alert.Type, alert.EntityID, shared.ErrConflict)
	}
	return err
}

func (r *Repository) GetAlert(ctx context.Context, orgID, alertID uuid.UUID) (Alert, error) {
	q := `SELECT ` + alertColumns + ` FROM alerts WHERE id=$1 AND org_id=$2`
	alert, err := scanAlert(r.pool.QueryRow(ctx, q, alertID.String(), orgID.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return Alert{}, fmt.Errorf("alerts: alert %s: %w", alertID, shared.ErrNotFound)
	}
	return alert, err
}

func (r *Repository) UpdateAlertStatus(ctx context.Context, alertID uuid.UUID, status Status, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE alerts SET status=$2, updated_at=$3 WHERE id=$1`,
		alertID.String(), string(status), at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("alerts: alert %s: %w", alertID, shared.ErrNotFound)
	}
	return nil
}

func (r *Repository) ListAlerts(ctx context.Context, orgID, branchID uuid.UUID, status Status) ([]Alert, error) {
	q := `SELECT ` + alertColumns + ` FROM alerts WHERE org_id=$1 AND branch_id=$2`
	args := []any{orgID.String(), branchID.String()}
	if status != "" {
		q += ` AND status=$3`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at DESC, id`
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// ReorderCandidates finds active items with a reorder level whose branch-wide
// on-hand fell below it.
func (r *Repository) ReorderCandidates(ctx context.Context, orgID, branchID uuid.UUID) ([]ReorderCandidate, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.id::text, i.sku,
COALESCE(SUM(l.qty), 0)::text, i.reorder_level::text
FROM items i
LEFT JOIN inventory_ledger l ON l.item_id=i.id AND l.org_id=$1 AND l.branch_id=$2
WHERE i.org_id=$1 AND i.active AND i.reorder_level > 0
GROUP BY i.id, i.sku, i.reorder_level
HAVING COALESCE(SUM(l.qty), 0) < i.reorder_level
ORDER BY i.id`, orgID.String(), branchID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReorderCandidate
	for rows.Next() {
		var c ReorderCandidate
		var item, onHand, level string
		if err := rows.Scan(&item, &c.SKU, &onHand, &level); err != nil {
			return nil, err
		}
		if c.ItemID, err = uuid.Parse(item); err != nil {
			return nil, err
		}
		if c.OnHand, err = decimal.NewFromString(onHand); err != nil {
			return nil, err
		}
		if c.ReorderLevel, err = decimal.NewFromString(level); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeadStockCandidates finds items still holding stock whose last movement
// predates the cutoff.
func (r *Repository) DeadStockCandidates(ctx context.Context, orgID, branchID uuid.UUID, cutoff time.Time) ([]DeadStockCandidate, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.id::text, i.sku,
COALESCE(SUM(l.qty), 0)::text, MAX(l.created_at)
FROM items i
JOIN inventory_ledger l ON l.item_id=i.id AND l.org_id=$1 AND l.branch_id=$2
WHERE i.org_id=$1 AND i.active
GROUP BY i.id, i.sku
HAVING COALESCE(SUM(l.qty), 0) > 0 AND MAX(l.created_at) < $3
ORDER BY i.id`, orgID.String(), branchID.String(), cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeadStockCandidate
	for rows.Next() {
		var c DeadStockCandidate
		var item, onHand string
		if err := rows.Scan(&item, &c.SKU, &onHand, &c.LastMovementAt); err != nil {
			return nil, err
		}
		if c.ItemID, err = uuid.Parse(item); err != nil {
			return nil, err
		}
		if c.OnHand, err = decimal.NewFromString(onHand); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ExpiringLotCandidates finds active lots with remaining stock expiring before
// the window end.
func (r *Repository) ExpiringLotCandidates(ctx context.Context, orgID, branchID uuid.UUID, before time.Time) ([]ExpiringLotCandidate, error) {
	rows, err := r.pool.Query(ctx, `SELECT lo.id::text, lo.item_id::text, lo.lot_number,
lo.remaining_qty::text, lo.expiry_date
FROM inventory_lots lo
JOIN stock_locations sl ON sl.id = lo.location_id
WHERE lo.org_id=$1 AND sl.branch_id=$2 AND lo.status='ACTIVE'
AND lo.remaining_qty > 0 AND lo.expiry_date IS NOT NULL AND lo.expiry_date <= $3
ORDER BY lo.expiry_date, lo.id`, orgID.String(), branchID.String(), before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExpiringLotCandidate
	for rows.Next() {
		var c ExpiringLotCandidate
		var lot, item, remaining string
		if err := rows.Scan(&lot, &item, &c.LotNumber, &remaining, &c.ExpiryDate); err != nil {
			return nil, err
		}
		if c.LotID, err = uuid.Parse(lot); err != nil {
			return nil, err
		}
		if c.ItemID, err = uuid.Parse(item); err != nil {
			return nil, err
		}
		if c.RemainingQty, err = decimal.NewFromString(remaining); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (Alert, error) {
	var a Alert
	var id, org, branch, entity string
	var details []byte
	if err := row.Scan(&id, &org, &branch, &a.Type, &a.Severity,
		&a.EntityType, &entity, &a.Status, &details, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Alert{}, err
	}
	var err error
	if a.ID, err = uuid.Parse(id); err != nil {
		return Alert{}, err
	}
	if a.OrgID, err = uuid.Parse(org); err != nil {
		return Alert{}, err
	}
	if a.BranchID, err = uuid.Parse(branch); err != nil {
		return Alert{}, err
	}
	if a.EntityID, err = uuid.Parse(entity); err != nil {
		return Alert{}, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &a.Details); err != nil {
			return Alert{}, err
		}
	}
	return a, nil
}
