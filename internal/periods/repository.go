package periods

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/costing"
	"github.com/chefcloud/chefcloud-erp/internal/ledger"
	"github.com/chefcloud/chefcloud-erp/internal/platform/db"
	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// Repository persists periods, close requests, events and snapshots in
// PostgreSQL. Statements run through the immutability guard: snapshots and
// events are append-only at the storage boundary too.
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

const periodColumns = `id::text, org_id::text, branch_id::text, name, start_date, end_date,
status, revision, closed_by, closed_at, reopened_by, reopened_at, created_at, updated_at`

func (r *txRepo) InsertPeriod(ctx context.Context, period Period) error {
	_, err := r.q.Exec(ctx, `INSERT INTO inventory_periods
(id, org_id, branch_id, name, start_date, end_date, status, revision, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		period.ID.String(), period.OrgID.String(), period.BranchID.String(), period.Name,
		period.StartDate, period.EndDate, string(period.Status), period.Revision,
		period.CreatedAt, period.UpdatedAt)
	return err
}

func (r *txRepo) PeriodExists(ctx context.Context, orgID, branchID uuid.UUID, start time.Time) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM inventory_periods
WHERE org_id=$1 AND branch_id=$2 AND start_date=$3)`,
		orgID.String(), branchID.String(), start).Scan(&exists)
	return exists, err
}

func (r *txRepo) PeriodForUpdate(ctx context.Context, orgID, periodID uuid.UUID) (Period, error) {
	q := `SELECT ` + periodColumns + ` FROM inventory_periods WHERE id=$1 AND org_id=$2 FOR UPDATE`
	period, err := scanPeriod(r.q.QueryRow(ctx, q, periodID.String(), orgID.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, fmt.Errorf("periods: period %s: %w", periodID, shared.ErrNotFound)
	}
	return period, err
}

func (r *txRepo) UpdatePeriodClosed(ctx context.Context, periodID uuid.UUID, closedAt time.Time, closedBy int64) error {
	_, err := r.q.Exec(ctx, `UPDATE inventory_periods
SET status='CLOSED', closed_at=$2, closed_by=$3, updated_at=$2 WHERE id=$1`,
		periodID.String(), closedAt, closedBy)
	return err
}

func (r *txRepo) UpdatePeriodReopened(ctx context.Context, periodID uuid.UUID, revision int, reopenedAt time.Time, reopenedBy int64) error {
	_, err := r.q.Exec(ctx, `UPDATE inventory_periods
SET status='OPEN', revision=$2, reopened_at=$3, reopened_by=$4, updated_at=$3 WHERE id=$1`,
		periodID.String(), revision, reopenedAt, reopenedBy)
	return err
}

func (r *txRepo) InsertEvent(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `INSERT INTO period_events
(id, org_id, period_id, event_type, actor_id, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID.String(), event.OrgID.String(), event.PeriodID.String(),
		string(event.Type), event.ActorID, payload, event.At)
	return err
}

func (r *txRepo) InsertSnapshotRows(ctx context.Context, rows []SnapshotRow) error {
	for _, row := range rows {
		if _, err := r.q.Exec(ctx, `INSERT INTO period_snapshots
(period_id, revision, item_id, sku, qty, wac, value)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			row.PeriodID.String(), row.Revision, row.ItemID.String(), row.SKU,
			row.Qty.String(), row.Wac.String(), row.Value.String()); err != nil {
			return err
		}
	}
	return nil
}

// ValuationAsOf computes on-hand quantity times the weighted average cost per
// item for a branch, skipping items with nothing on hand.
func (r *txRepo) ValuationAsOf(ctx context.Context, orgID, branchID uuid.UUID, asOf time.Time) ([]SnapshotRow, error) {
	rows, err := r.q.Query(ctx, `SELECT i.id::text, i.sku,
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
ORDER BY i.id`, orgID.String(), branchID.String(), asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var row SnapshotRow
		var item, qty, wac string
		if err := rows.Scan(&item, &row.SKU, &qty, &wac); err != nil {
			return nil, err
		}
		if row.ItemID, err = uuid.Parse(item); err != nil {
			return nil, err
		}
		if row.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if row.Wac, err = decimal.NewFromString(wac); err != nil {
			return nil, err
		}
		row.Value = costing.RoundCents(row.Qty.Mul(row.Wac))
		out = append(out, row)
	}
	return out, rows.Err()
}

const requestColumns = `id::text, org_id::text, period_id::text, status, reason,
requested_by, decided_by, decided_at, decision_reason, created_at, updated_at`

func (r *txRepo) InsertRequest(ctx context.Context, request CloseRequest) error {
	_, err := r.q.Exec(ctx, `INSERT INTO period_close_requests
(id, org_id, period_id, status, reason, requested_by, decision_reason, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		request.ID.String(), request.OrgID.String(), request.PeriodID.String(),
		string(request.Status), request.Reason, request.RequestedBy,
		request.DecisionReason, request.CreatedAt, request.UpdatedAt)
	return err
}

func (r *txRepo) RequestForUpdate(ctx context.Context, orgID, requestID uuid.UUID) (CloseRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM period_close_requests WHERE id=$1 AND org_id=$2 FOR UPDATE`
	request, err := scanRequest(r.q.QueryRow(ctx, q, requestID.String(), orgID.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return CloseRequest{}, fmt.Errorf("periods: close request %s: %w", requestID, shared.ErrNotFound)
	}
	return request, err
}

func (r *txRepo) NonTerminalRequestExists(ctx context.Context, orgID, periodID uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM period_close_requests
WHERE org_id=$1 AND period_id=$2 AND status IN ('DRAFT', 'SUBMITTED'))`,
		orgID.String(), periodID.String()).Scan(&exists)
	return exists, err
}

func (r *txRepo) ApprovedRequestExists(ctx context.Context, orgID, periodID uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM period_close_requests
WHERE org_id=$1 AND period_id=$2 AND status='APPROVED')`,
		orgID.String(), periodID.String()).Scan(&exists)
	return exists, err
}

func (r *txRepo) UpdateRequestStatus(ctx context.Context, requestID uuid.UUID, status RequestStatus, decidedBy int64, decidedAt time.Time, decisionReason string) error {
	_, err := r.q.Exec(ctx, `UPDATE period_close_requests
SET status=$2, decided_by=$3, decided_at=$4, decision_reason=$5, updated_at=$4 WHERE id=$1`,
		requestID.String(), string(status), decidedBy, decidedAt, decisionReason)
	return err
}

func (r *txRepo) OpenStocktakeCount(ctx context.Context, orgID, branchID uuid.UUID) (int, error) {
	return openStocktakeCount(ctx, r.q, orgID, branchID)
}

func (r *txRepo) DraftBatchCount(ctx context.Context, orgID, branchID uuid.UUID) (int, error) {
	return draftBatchCount(ctx, r.q, orgID, branchID)
}

func (r *txRepo) NegativeOnHandCount(ctx context.Context, orgID, branchID uuid.UUID) (int, error) {
	return negativeOnHandCount(ctx, r.q, orgID, branchID)
}

func (r *Repository) GetPeriod(ctx context.Context, orgID, periodID uuid.UUID) (Period, error) {
	q := `SELECT ` + periodColumns + ` FROM inventory_periods WHERE id=$1 AND org_id=$2`
	period, err := scanPeriod(r.pool.QueryRow(ctx, q, periodID.String(), orgID.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, fmt.Errorf("periods: period %s: %w", periodID, shared.ErrNotFound)
	}
	return period, err
}

func (r *Repository) PeriodAt(ctx context.Context, orgID, branchID uuid.UUID, at time.Time) (Period, error) {
	q := `SELECT ` + periodColumns + ` FROM inventory_periods
WHERE org_id=$1 AND branch_id=$2 AND start_date<=$3 AND end_date>$3`
	period, err := scanPeriod(r.pool.QueryRow(ctx, q, orgID.String(), branchID.String(), at))
	if errors.Is(err, pgx.ErrNoRows) {
		return Period{}, fmt.Errorf("periods: no period covers %s: %w", at.Format("2006-01-02"), shared.ErrNotFound)
	}
	return period, err
}

func (r *Repository) ListPeriods(ctx context.Context, orgID, branchID uuid.UUID) ([]Period, error) {
	q := `SELECT ` + periodColumns + ` FROM inventory_periods
WHERE org_id=$1 AND branch_id=$2 ORDER BY start_date`
	rows, err := r.pool.Query(ctx, q, orgID.String(), branchID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []Period
	for rows.Next() {
		period, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, period)
	}
	return periods, rows.Err()
}

func (r *Repository) ListEvents(ctx context.Context, orgID, periodID uuid.UUID) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text, org_id::text, period_id::text, event_type, actor_id, payload, created_at
FROM period_events WHERE org_id=$1 AND period_id=$2 ORDER BY created_at, id`,
		orgID.String(), periodID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var id, org, period string
		var payload []byte
		if err := rows.Scan(&id, &org, &period, &e.Type, &e.ActorID, &payload, &e.At); err != nil {
			return nil, err
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if e.OrgID, err = uuid.Parse(org); err != nil {
			return nil, err
		}
		if e.PeriodID, err = uuid.Parse(period); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, err
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *Repository) ListRequests(ctx context.Context, orgID, periodID uuid.UUID) ([]CloseRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM period_close_requests
WHERE org_id=$1 AND period_id=$2 ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, q, orgID.String(), periodID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []CloseRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func (r *Repository) SnapshotRows(ctx context.Context, orgID, periodID uuid.UUID, revision int) ([]SnapshotRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT s.period_id::text, s.revision, s.item_id::text, s.sku, s.qty::text, s.wac::text, s.value::text
FROM period_snapshots s
JOIN inventory_periods p ON p.id = s.period_id
WHERE p.org_id=$1 AND s.period_id=$2 AND s.revision=$3
ORDER BY s.item_id`, orgID.String(), periodID.String(), revision)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var row SnapshotRow
		var period, item, qty, wac, value string
		if err := rows.Scan(&period, &row.Revision, &item, &row.SKU, &qty, &wac, &value); err != nil {
			return nil, err
		}
		if row.PeriodID, err = uuid.Parse(period); err != nil {
			return nil, err
		}
		if row.ItemID, err = uuid.Parse(item); err != nil {
			return nil, err
		}
		if row.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if row.Wac, err = decimal.NewFromString(wac); err != nil {
			return nil, err
		}
		if row.Value, err = decimal.NewFromString(value); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repository) EntriesBetween(ctx context.Context, orgID, branchID uuid.UUID, from, to time.Time) ([]ledger.Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text, org_id::text, branch_id::text, item_id::text,
location_id::text, lot_id::text, qty::text, reason, source_type, source_id::text, notes, created_by, created_at
FROM inventory_ledger
WHERE org_id=$1 AND branch_id=$2 AND created_at>=$3 AND created_at<$4
ORDER BY created_at, id`, orgID.String(), branchID.String(), from, to)
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

func (r *Repository) BranchName(ctx context.Context, orgID, branchID uuid.UUID) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, `SELECT name FROM branches WHERE id=$1 AND org_id=$2`,
		branchID.String(), orgID.String()).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("periods: branch %s: %w", branchID, shared.ErrNotFound)
	}
	return name, err
}

func (r *Repository) OpenStocktakeCount(ctx context.Context, orgID, branchID uuid.UUID) (int, error) {
	return openStocktakeCount(ctx, r.pool, orgID, branchID)
}

func (r *Repository) DraftBatchCount(ctx context.Context, orgID, branchID uuid.UUID) (int, error) {
	return draftBatchCount(ctx, r.pool, orgID, branchID)
}

func (r *Repository) NegativeOnHandCount(ctx context.Context, orgID, branchID uuid.UUID) (int, error) {
	return negativeOnHandCount(ctx, r.pool, orgID, branchID)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func openStocktakeCount(ctx context.Context, q queryRower, orgID, branchID uuid.UUID) (int, error) {
	var count int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM stocktakes
WHERE org_id=$1 AND branch_id=$2 AND status='OPEN'`,
		orgID.String(), branchID.String()).Scan(&count)
	return count, err
}

func draftBatchCount(ctx context.Context, q queryRower, orgID, branchID uuid.UUID) (int, error) {
	var count int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM production_batches
WHERE org_id=$1 AND branch_id=$2 AND status='DRAFT'`,
		orgID.String(), branchID.String()).Scan(&count)
	return count, err
}

func negativeOnHandCount(ctx context.Context, q queryRower, orgID, branchID uuid.UUID) (int, error) {
	var count int
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM (
SELECT item_id, location_id FROM inventory_ledger
WHERE org_id=$1 AND branch_id=$2
GROUP BY item_id, location_id
HAVING SUM(qty) < 0) negatives`,
		orgID.String(), branchID.String()).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeriod(row rowScanner) (Period, error) {
	var p Period
	var id, org, branch string
	if err := row.Scan(&id, &org, &branch, &p.Name, &p.StartDate, &p.EndDate,
		&p.Status, &p.Revision, &p.ClosedBy, &p.ClosedAt,
		&p.ReopenedBy, &p.ReopenedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Period{}, err
	}
	var err error
	if p.ID, err = uuid.Parse(id); err != nil {
		return Period{}, err
	}
	if p.OrgID, err = uuid.Parse(org); err != nil {
		return Period{}, err
	}
	if p.BranchID, err = uuid.Parse(branch); err != nil {
		return Period{}, err
	}
	return p, nil
}

func scanRequest(row rowScanner) (CloseRequest, error) {
	var c CloseRequest
	var id, org, period string
	if err := row.Scan(&id, &org, &period, &c.Status, &c.Reason,
		&c.RequestedBy, &c.DecidedBy, &c.DecidedAt, &c.DecisionReason,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return CloseRequest{}, err
	}
	var err error
	if c.ID, err = uuid.Parse(id); err != nil {
		return CloseRequest{}, err
	}
	if c.OrgID, err = uuid.Parse(org); err != nil {
		return CloseRequest{}, err
	}
	if c.PeriodID, err = uuid.Parse(period); err != nil {
		return CloseRequest{}, err
	}
	return c, nil
}
