package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/platform/db"
	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// Repository persists ledger entries in PostgreSQL. All statements run through
// the immutability guard.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	q Guarded
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: Guard(tx)})
	})
}

const entryColumns = `id::text, org_id::text, branch_id::text, item_id::text, location_id::text, lot_id::text,
qty::text, reason, source_type, source_id::text, notes, created_by, created_at`

func (r *txRepo) ValidateRefs(ctx context.Context, orgID, branchID, itemID, locationID uuid.UUID) error {
	var itemOK, locationOK bool
	err := r.q.QueryRow(ctx, `SELECT
EXISTS (SELECT 1 FROM items i WHERE i.id=$1 AND i.org_id=$2),
EXISTS (SELECT 1 FROM stock_locations l WHERE l.id=$3 AND l.org_id=$2 AND l.branch_id=$4)`,
		itemID.String(), orgID.String(), locationID.String(), branchID.String()).Scan(&itemOK, &locationOK)
	if err != nil {
		return err
	}
	if !itemOK {
		return fmt.Errorf("ledger: item %s not found in org: %w", itemID, shared.ErrInvalidReference)
	}
	if !locationOK {
		return fmt.Errorf("ledger: location %s not found in branch: %w", locationID, shared.ErrInvalidReference)
	}
	return nil
}

// OnHandForUpdate serialises concurrent outgoing appends for the same
// (item, location) key by taking an advisory lock before summing.
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

func (r *txRepo) InsertEntry(ctx context.Context, entry Entry) error {
	var lotID any
	if entry.LotID != nil {
		lotID = entry.LotID.String()
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

// SumQty aggregates on-hand quantity over the full entry set for the key.
func (r *Repository) SumQty(ctx context.Context, orgID uuid.UUID, key OnHandKey) (decimal.Decimal, error) {
	q := Guard(r.pool)
	sql := `SELECT COALESCE(SUM(qty), 0)::text FROM inventory_ledger WHERE org_id=$1 AND item_id=$2`
	args := []any{orgID.String(), key.ItemID.String()}
	if key.LocationID != nil {
		args = append(args, key.LocationID.String())
		sql += fmt.Sprintf(" AND location_id=$%d", len(args))
	}
	if key.LotID != nil {
		args = append(args, key.LotID.String())
		sql += fmt.Sprintf(" AND lot_id=$%d", len(args))
	}
	var sum string
	if err := q.QueryRow(ctx, sql, args...).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(sum)
}

// ListEntries returns a deterministic page of entries for audit and export.
func (r *Repository) ListEntries(ctx context.Context, orgID uuid.UUID, filter EntryFilter, page shared.Pagination) ([]Entry, shared.Pagination, error) {
	q := Guard(r.pool)
	where := []string{"org_id=$1"}
	args := []any{orgID.String()}
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.ItemID != nil {
		add("item_id=$%d", filter.ItemID.String())
	}
	if filter.LocationID != nil {
		add("location_id=$%d", filter.LocationID.String())
	}
	if filter.Reason != nil {
		add("reason=$%d", string(*filter.Reason))
	}
	if filter.SourceType != "" {
		add("source_type=$%d", filter.SourceType)
	}
	if !filter.From.IsZero() {
		add("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("created_at <= $%d", filter.To)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := q.QueryRow(ctx, "SELECT COUNT(*) FROM inventory_ledger WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, shared.Pagination{}, err
	}
	page = shared.NewPagination(page.Page, page.PerPage, total)

	args = append(args, page.PerPage, page.Offset())
	sql := fmt.Sprintf(`SELECT %s FROM inventory_ledger WHERE %s ORDER BY created_at, id LIMIT $%d OFFSET $%d`,
		entryColumns, cond, len(args)-1, len(args))
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, shared.Pagination{}, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.Pagination{}, err
	}
	return entries, page, nil
}

// GetEntry loads one entry scoped to the org.
func (r *Repository) GetEntry(ctx context.Context, orgID, id uuid.UUID) (Entry, error) {
	q := Guard(r.pool)
	row := q.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM inventory_ledger WHERE org_id=$1 AND id=$2`, entryColumns),
		orgID.String(), id.String())
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, fmt.Errorf("ledger: entry %s: %w", id, shared.ErrNotFound)
		}
		return Entry{}, err
	}
	return entry, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		entry                                        Entry
		id, org, branch, item, location, source, qty string
		lot                                          *string
		reason                                       string
		createdAt                                    time.Time
	)
	if err := row.Scan(&id, &org, &branch, &item, &location, &lot, &qty, &reason,
		&entry.SourceType, &source, &entry.Notes, &entry.CreatedBy, &createdAt); err != nil {
		return Entry{}, err
	}
	var err error
	if entry.ID, err = uuid.Parse(id); err != nil {
		return Entry{}, err
	}
	if entry.OrgID, err = uuid.Parse(org); err != nil {
		return Entry{}, err
	}
	if entry.BranchID, err = uuid.Parse(branch); err != nil {
		return Entry{}, err
	}
	if entry.ItemID, err = uuid.Parse(item); err != nil {
		return Entry{}, err
	}
	if entry.LocationID, err = uuid.Parse(location); err != nil {
		return Entry{}, err
	}
	if lot != nil {
		lotID, err := uuid.Parse(*lot)
		if err != nil {
			return Entry{}, err
		}
		entry.LotID = &lotID
	}
	if entry.SourceID, err = uuid.Parse(source); err != nil {
		return Entry{}, err
	}
	if entry.Qty, err = decimal.NewFromString(qty); err != nil {
		return Entry{}, err
	}
	entry.Reason = Reason(reason)
	entry.CreatedAt = createdAt
	return entry, nil
}
