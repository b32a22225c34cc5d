package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// Repository persists items and stock locations in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `id::text, org_id::text, sku, name, unit_id::text, lot_tracked,
	reorder_level::text, active, created_at, updated_at`

func (r *Repository) InsertItem(ctx context.Context, item Item) error {
	const q = `INSERT INTO items (id, org_id, sku, name, unit_id, lot_tracked, reorder_level, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.pool.Exec(ctx, q,
		item.ID.String(), item.OrgID.String(), item.SKU, item.Name, item.UnitID.String(),
		item.LotTracked, item.ReorderLevel.String(), item.Active, item.CreatedAt, item.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("catalog: sku %q already exists: %w", item.SKU, shared.ErrConflict)
	}
	return err
}

func (r *Repository) UpdateItem(ctx context.Context, item Item) error {
	const q = `UPDATE items SET name = $3, reorder_level = $4, active = $5, updated_at = $6
		WHERE id = $1 AND org_id = $2`
	tag, err := r.pool.Exec(ctx, q,
		item.ID.String(), item.OrgID.String(),
		item.Name, item.ReorderLevel.String(), item.Active, item.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog: item %s: %w", item.ID, shared.ErrNotFound)
	}
	return nil
}

func (r *Repository) GetItem(ctx context.Context, orgID, itemID uuid.UUID) (Item, error) {
	q := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 AND org_id = $2`
	item, err := scanItem(r.pool.QueryRow(ctx, q, itemID.String(), orgID.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, fmt.Errorf("catalog: item %s: %w", itemID, shared.ErrNotFound)
	}
	return item, err
}

func (r *Repository) ListItems(ctx context.Context, orgID uuid.UUID, filter ItemFilter, page shared.Pagination) ([]Item, int, error) {
	args := []any{orgID.String()}
	where := `org_id = $1`
	if filter.ActiveOnly {
		where += ` AND active`
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(` AND (sku ILIKE $%d OR name ILIKE $%d)`, len(args), len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.PerPage, page.Offset())
	q := fmt.Sprintf(`SELECT %s FROM items WHERE %s ORDER BY sku LIMIT $%d OFFSET $%d`,
		itemColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func (r *Repository) InsertLocation(ctx context.Context, loc StockLocation) error {
	const q = `INSERT INTO stock_locations (id, org_id, branch_id, code, name, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, q,
		loc.ID.String(), loc.OrgID.String(), loc.BranchID.String(),
		loc.Code, loc.Name, loc.Active, loc.CreatedAt, loc.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("catalog: location code %q already exists in branch: %w", loc.Code, shared.ErrConflict)
	}
	return err
}

func (r *Repository) UpdateLocation(ctx context.Context, loc StockLocation) error {
	const q = `UPDATE stock_locations SET name = $3, active = $4, updated_at = $5
		WHERE id = $1 AND org_id = $2`
	tag, err := r.pool.Exec(ctx, q,
		loc.ID.String(), loc.OrgID.String(), loc.Name, loc.Active, loc.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("catalog: location %s: %w", loc.ID, shared.ErrNotFound)
	}
	return nil
}

func (r *Repository) GetLocation(ctx context.Context, orgID, locationID uuid.UUID) (StockLocation, error) {
	const q = `SELECT id::text, org_id::text, branch_id::text, code, name, active, created_at, updated_at
		FROM stock_locations WHERE id = $1 AND org_id = $2`
	loc, err := scanLocation(r.pool.QueryRow(ctx, q, locationID.String(), orgID.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return StockLocation{}, fmt.Errorf("catalog: location %s: %w", locationID, shared.ErrNotFound)
	}
	return loc, err
}

func (r *Repository) ListLocations(ctx context.Context, orgID, branchID uuid.UUID) ([]StockLocation, error) {
	const q = `SELECT id::text, org_id::text, branch_id::text, code, name, active, created_at, updated_at
		FROM stock_locations WHERE org_id = $1 AND branch_id = $2 ORDER BY code`
	rows, err := r.pool.Query(ctx, q, orgID.String(), branchID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var locations []StockLocation
	for rows.Next() {
		loc, err := scanLocation(rows)
		if err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var item Item
	var id, org, unit, reorder string
	if err := row.Scan(&id, &org, &item.SKU, &item.Name, &unit,
		&item.LotTracked, &reorder, &item.Active, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return Item{}, err
	}
	var err error
	if item.ID, err = uuid.Parse(id); err != nil {
		return Item{}, err
	}
	if item.OrgID, err = uuid.Parse(org); err != nil {
		return Item{}, err
	}
	if item.UnitID, err = uuid.Parse(unit); err != nil {
		return Item{}, err
	}
	if item.ReorderLevel, err = decimal.NewFromString(reorder); err != nil {
		return Item{}, err
	}
	return item, nil
}

func scanLocation(row rowScanner) (StockLocation, error) {
	var loc StockLocation
	var id, org, branch string
	if err := row.Scan(&id, &org, &branch, &loc.Code, &loc.Name,
		&loc.Active, &loc.CreatedAt, &loc.UpdatedAt); err != nil {
		return StockLocation{}, err
	}
	var err error
	if loc.ID, err = uuid.Parse(id); err != nil {
		return StockLocation{}, err
	}
	if loc.OrgID, err = uuid.Parse(org); err != nil {
		return StockLocation{}, err
	}
	if loc.BranchID, err = uuid.Parse(branch); err != nil {
		return StockLocation{}, err
	}
	return loc, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
