package uom

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

// Repository persists units and conversion factors in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) InsertUnit(ctx context.Context, unit Unit) error {
	const q = `INSERT INTO units (id, org_id, code, name, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, q, unit.ID.String(), unit.OrgID.String(), unit.Code, unit.Name, unit.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("uom: unit code %q already exists: %w", unit.Code, shared.ErrConflict)
	}
	return err
}

func (r *Repository) ListUnits(ctx context.Context, orgID uuid.UUID) ([]Unit, error) {
	const q = `SELECT id::text, org_id::text, code, name, created_at
		FROM units WHERE org_id = $1 ORDER BY code`
	rows, err := r.pool.Query(ctx, q, orgID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var units []Unit
	for rows.Next() {
		var u Unit
		var id, org string
		if err := rows.Scan(&id, &org, &u.Code, &u.Name, &u.CreatedAt); err != nil {
			return nil, err
		}
		if u.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if u.OrgID, err = uuid.Parse(org); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (r *Repository) InsertFactor(ctx context.Context, factor ConversionFactor) error {
	const q = `INSERT INTO unit_conversions (id, org_id, from_unit_id, to_unit_id, factor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.pool.Exec(ctx, q,
		factor.ID.String(), factor.OrgID.String(),
		factor.FromUnitID.String(), factor.ToUnitID.String(),
		factor.Factor.String(), factor.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("uom: conversion already defined for unit pair: %w", shared.ErrConflict)
	}
	return err
}

func (r *Repository) FindFactor(ctx context.Context, orgID, fromUnitID, toUnitID uuid.UUID) (ConversionFactor, error) {
	const q = `SELECT id::text, factor::text, created_at
		FROM unit_conversions
		WHERE org_id = $1 AND from_unit_id = $2 AND to_unit_id = $3
		ORDER BY created_at DESC, id DESC
		LIMIT 1`
	factor := ConversionFactor{OrgID: orgID, FromUnitID: fromUnitID, ToUnitID: toUnitID}
	var id, raw string
	err := r.pool.QueryRow(ctx, q, orgID.String(), fromUnitID.String(), toUnitID.String()).
		Scan(&id, &raw, &factor.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ConversionFactor{}, fmt.Errorf("uom: conversion factor: %w", shared.ErrNotFound)
	}
	if err != nil {
		return ConversionFactor{}, err
	}
	if factor.ID, err = uuid.Parse(id); err != nil {
		return ConversionFactor{}, err
	}
	if factor.Factor, err = decimal.NewFromString(raw); err != nil {
		return ConversionFactor{}, err
	}
	return factor, nil
}

func (r *Repository) ListFactors(ctx context.Context, orgID uuid.UUID) ([]ConversionFactor, error) {
	const q = `SELECT id::text, org_id::text, from_unit_id::text, to_unit_id::text, factor::text, created_at
		FROM unit_conversions WHERE org_id = $1 ORDER BY created_at, id`
	rows, err := r.pool.Query(ctx, q, orgID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var factors []ConversionFactor
	for rows.Next() {
		var f ConversionFactor
		var id, org, from, to, raw string
		if err := rows.Scan(&id, &org, &from, &to, &raw, &f.CreatedAt); err != nil {
			return nil, err
		}
		if f.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		if f.OrgID, err = uuid.Parse(org); err != nil {
			return nil, err
		}
		if f.FromUnitID, err = uuid.Parse(from); err != nil {
			return nil, err
		}
		if f.ToUnitID, err = uuid.Parse(to); err != nil {
			return nil, err
		}
		if f.Factor, err = decimal.NewFromString(raw); err != nil {
			return nil, err
		}
		factors = append(factors, f)
	}
	return factors, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
