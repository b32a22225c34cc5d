package lots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/ledger"
	"github.com/chefcloud/chefcloud-erp/internal/platform/db"
	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// Repository persists lots and allocations in PostgreSQL. Allocation rows go
// through the immutability guard; lot remaining quantity is the one permitted
// update and is always taken under a row lock.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxLotStore is the pgx implementation of TxStore, shared with the production
// repository which embeds it into its own transaction.
type TxLotStore struct {
	Q ledger.Guarded
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &TxLotStore{Q: ledger.Guard(tx)})
	})
}

const lotColumns = `id::text, org_id::text, item_id::text, location_id::text, lot_number,
received_qty::text, remaining_qty::text, unit_cost::text, received_at, expiry_date, status`

// ActiveLotsForUpdate loads and row-locks candidate lots FIFO by receipt date.
func (s *TxLotStore) ActiveLotsForUpdate(ctx context.Context, orgID, itemID, locationID uuid.UUID) ([]InventoryLot, error) {
	rows, err := s.Q.Query(ctx, fmt.Sprintf(`SELECT %s FROM inventory_lots
WHERE org_id=$1 AND item_id=$2 AND location_id=$3 AND status='ACTIVE' AND remaining_qty > 0
ORDER BY received_at, id FOR UPDATE`, lotColumns), orgID.String(), itemID.String(), locationID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLots(rows)
}

// LotForUpdate loads and row-locks a single lot scoped to the org.
func (s *TxLotStore) LotForUpdate(ctx context.Context, orgID, lotID uuid.UUID) (InventoryLot, error) {
	row := s.Q.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM inventory_lots
WHERE org_id=$1 AND id=$2 FOR UPDATE`, lotColumns), orgID.String(), lotID.String())
	lot, err := scanLot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InventoryLot{}, fmt.Errorf("lots: lot %s: %w", lotID, shared.ErrInvalidReference)
		}
		return InventoryLot{}, err
	}
	return lot, nil
}

// UpdateLotRemaining writes the derived running balance. The check constraint
// on the table backstops the 0 <= remaining <= received invariant.
func (s *TxLotStore) UpdateLotRemaining(ctx context.Context, lotID uuid.UUID, remaining decimal.Decimal, status LotStatus) error {
	_, err := s.Q.Exec(ctx, `UPDATE inventory_lots SET remaining_qty=$1, status=$2 WHERE id=$3`,
		remaining.String(), string(status), lotID.String())
	return err
}

func (s *TxLotStore) InsertAllocation(ctx context.Context, allocation LotLedgerAllocation) error {
	_, err := s.Q.Exec(ctx, `INSERT INTO lot_allocations
(id, lot_id, ledger_entry_id, allocated_qty, source_type, source_id, allocation_order, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		allocation.ID.String(), allocation.LotID.String(), allocation.LedgerEntryID.String(),
		allocation.AllocatedQty.String(), allocation.SourceType, allocation.SourceID.String(),
		allocation.AllocationOrder, allocation.CreatedAt)
	return err
}

func (s *TxLotStore) AllocationsByIDs(ctx context.Context, ids []uuid.UUID) ([]LotLedgerAllocation, error) {
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}
	rows, err := s.Q.Query(ctx, `SELECT id::text, lot_id::text, ledger_entry_id::text, allocated_qty::text,
source_type, source_id::text, allocation_order, created_at
FROM lot_allocations WHERE id = ANY($1) ORDER BY allocation_order, id`, strIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var allocations []LotLedgerAllocation
	for rows.Next() {
		var (
			a                          LotLedgerAllocation
			id, lot, entry, qty, source string
		)
		if err := rows.Scan(&id, &lot, &entry, &qty, &a.SourceType, &source, &a.AllocationOrder, &a.CreatedAt); err != nil {
			return nil, err
		}
		if a.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if a.LotID, err = uuid.Parse(lot); err != nil {
			return nil, err
		}
		if a.LedgerEntryID, err = uuid.Parse(entry); err != nil {
			return nil, err
		}
		if a.SourceID, err = uuid.Parse(source); err != nil {
			return nil, err
		}
		if a.AllocatedQty, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

// InsertLot writes a freshly received lot.
func (r *Repository) InsertLot(ctx context.Context, lot InventoryLot) error {
	var expiry any
	if lot.ExpiryDate != nil {
		expiry = *lot.ExpiryDate
	}
	_, err := ledger.Guard(r.pool).Exec(ctx, `INSERT INTO inventory_lots
(id, org_id, item_id, location_id, lot_number, received_qty, remaining_qty, unit_cost, received_at, expiry_date, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		lot.ID.String(), lot.OrgID.String(), lot.ItemID.String(), lot.LocationID.String(), lot.LotNumber,
		lot.ReceivedQty.String(), lot.RemainingQty.String(), lot.UnitCost.String(),
		lot.ReceivedAt, expiry, string(lot.Status))
	return err
}

// ListLots returns lots FIFO by receipt date.
func (r *Repository) ListLots(ctx context.Context, orgID, itemID, locationID uuid.UUID) ([]InventoryLot, error) {
	rows, err := ledger.Guard(r.pool).Query(ctx, fmt.Sprintf(`SELECT %s FROM inventory_lots
WHERE org_id=$1 AND item_id=$2 AND location_id=$3 ORDER BY received_at, id`, lotColumns),
		orgID.String(), itemID.String(), locationID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLots(rows)
}

// GetLot loads one lot scoped to the org.
func (r *Repository) GetLot(ctx context.Context, orgID, lotID uuid.UUID) (InventoryLot, error) {
	row := ledger.Guard(r.pool).QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM inventory_lots
WHERE org_id=$1 AND id=$2`, lotColumns), orgID.String(), lotID.String())
	lot, err := scanLot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InventoryLot{}, fmt.Errorf("lots: lot %s: %w", lotID, shared.ErrNotFound)
		}
		return InventoryLot{}, err
	}
	return lot, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLot(row rowScanner) (InventoryLot, error) {
	var (
		lot                                                    InventoryLot
		id, org, item, location, received, remaining, cost, st string
		receivedAt                                             time.Time
		expiry                                                 *time.Time
	)
	if err := row.Scan(&id, &org, &item, &location, &lot.LotNumber,
		&received, &remaining, &cost, &receivedAt, &expiry, &st); err != nil {
		return InventoryLot{}, err
	}
	var err error
	if lot.ID, err = uuid.Parse(id); err != nil {
		return InventoryLot{}, err
	}
	if lot.OrgID, err = uuid.Parse(org); err != nil {
		return InventoryLot{}, err
	}
	if lot.ItemID, err = uuid.Parse(item); err != nil {
		return InventoryLot{}, err
	}
	if lot.LocationID, err = uuid.Parse(location); err != nil {
		return InventoryLot{}, err
	}
	if lot.ReceivedQty, err = decimal.NewFromString(received); err != nil {
		return InventoryLot{}, err
	}
	if lot.RemainingQty, err = decimal.NewFromString(remaining); err != nil {
		return InventoryLot{}, err
	}
	if lot.UnitCost, err = decimal.NewFromString(cost); err != nil {
		return InventoryLot{}, err
	}
	lot.ReceivedAt = receivedAt
	lot.ExpiryDate = expiry
	lot.Status = LotStatus(st)
	return lot, nil
}

func scanLots(rows pgx.Rows) ([]InventoryLot, error) {
	var out []InventoryLot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lot)
	}
	return out, rows.Err()
}
