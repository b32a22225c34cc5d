package uom

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// RepositoryPort abstracts conversion-factor storage.
type RepositoryPort interface {
	InsertUnit(ctx context.Context, unit Unit) error
	ListUnits(ctx context.Context, orgID uuid.UUID) ([]Unit, error)
	InsertFactor(ctx context.Context, factor ConversionFactor) error
	FindFactor(ctx context.Context, orgID, fromUnitID, toUnitID uuid.UUID) (ConversionFactor, error)
	ListFactors(ctx context.Context, orgID uuid.UUID) ([]ConversionFactor, error)
}

// Service resolves unit conversions through a read-through cache.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	now   func() time.Time
}

func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// resolvedFactor is the cacheable result of a factor lookup: the stored ratio
// plus whether it must be applied inverted.
type resolvedFactor struct {
	Factor  decimal.Decimal `json:"factor"`
	Inverse bool            `json:"inverse"`
}

// Convert expresses qty given in fromUnitID in toUnitID, resolving a direct
// factor or the inverse of the opposite direction. Multiplication is exact;
// converting 1.5 kg with a factor of 1000 yields exactly 1500 g.
func (s *Service) Convert(ctx context.Context, orgID uuid.UUID, qty decimal.Decimal, fromUnitID, toUnitID uuid.UUID) (decimal.Decimal, error) {
	if fromUnitID == toUnitID {
		return qty, nil
	}
	var resolved resolvedFactor
	key := []string{"uom", "factor", orgID.String(), fromUnitID.String(), toUnitID.String()}
	err := s.cache.FetchJSON(ctx, key, &resolved, func(ctx context.Context) (interface{}, error) {
		return s.resolve(ctx, orgID, fromUnitID, toUnitID)
	})
	if err != nil {
		return decimal.Zero, err
	}
	if resolved.Inverse {
		return qty.Div(resolved.Factor), nil
	}
	return qty.Mul(resolved.Factor), nil
}

func (s *Service) resolve(ctx context.Context, orgID, fromUnitID, toUnitID uuid.UUID) (resolvedFactor, error) {
	factor, err := s.repo.FindFactor(ctx, orgID, fromUnitID, toUnitID)
	if err == nil {
		return resolvedFactor{Factor: factor.Factor}, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return resolvedFactor{}, err
	}
	factor, err = s.repo.FindFactor(ctx, orgID, toUnitID, fromUnitID)
	if err == nil {
		return resolvedFactor{Factor: factor.Factor, Inverse: true}, nil
	}
	if errors.Is(err, shared.ErrNotFound) {
		return resolvedFactor{}, fmt.Errorf("uom: no conversion between units %s and %s: %w",
			fromUnitID, toUnitID, shared.ErrInvalidReference)
	}
	return resolvedFactor{}, err
}

// AddFactorInput describes a new conversion factor.
type AddFactorInput struct {
	FromUnitID uuid.UUID
	ToUnitID   uuid.UUID
	Factor     decimal.Decimal
}

// AddFactor records a conversion factor and invalidates cached lookups.
// Factors are insert-only; a duplicate pair for the org is a conflict.
func (s *Service) AddFactor(ctx context.Context, in AddFactorInput) (ConversionFactor, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return ConversionFactor{}, fmt.Errorf("uom: missing actor: %w", shared.ErrForbidden)
	}
	if in.FromUnitID == uuid.Nil || in.ToUnitID == uuid.Nil {
		return ConversionFactor{}, fmt.Errorf("uom: unit required: %w", shared.ErrInvalidReference)
	}
	if in.FromUnitID == in.ToUnitID {
		return ConversionFactor{}, fmt.Errorf("uom: conversion must relate two distinct units: %w", shared.ErrInvalidArgument)
	}
	if in.Factor.Sign() <= 0 {
		return ConversionFactor{}, fmt.Errorf("uom: factor must be positive: %w", shared.ErrInvalidArgument)
	}
	factor := ConversionFactor{
		ID:         uuid.New(),
		OrgID:      actor.OrgID,
		FromUnitID: in.FromUnitID,
		ToUnitID:   in.ToUnitID,
		Factor:     in.Factor,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.repo.InsertFactor(ctx, factor); err != nil {
		return ConversionFactor{}, err
	}
	if err := s.cache.Bump(ctx); err != nil {
		return factor, fmt.Errorf("uom: factor stored but cache invalidation failed: %w", err)
	}
	return factor, nil
}

// CreateUnitInput describes a new measurement unit.
type CreateUnitInput struct {
	Code string
	Name string
}

func (s *Service) CreateUnit(ctx context.Context, in CreateUnitInput) (Unit, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return Unit{}, fmt.Errorf("uom: missing actor: %w", shared.ErrForbidden)
	}
	if in.Code == "" {
		return Unit{}, fmt.Errorf("uom: unit code required: %w", shared.ErrInvalidArgument)
	}
	unit := Unit{
		ID:        uuid.New(),
		OrgID:     actor.OrgID,
		Code:      in.Code,
		Name:      in.Name,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.InsertUnit(ctx, unit); err != nil {
		return Unit{}, err
	}
	return unit, nil
}

func (s *Service) Units(ctx context.Context) ([]Unit, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("uom: missing actor: %w", shared.ErrForbidden)
	}
	return s.repo.ListUnits(ctx, actor.OrgID)
}

func (s *Service) Factors(ctx context.Context) ([]ConversionFactor, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("uom: missing actor: %w", shared.ErrForbidden)
	}
	return s.repo.ListFactors(ctx, actor.OrgID)
}
