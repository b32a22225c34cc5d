package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chefcloud/chefcloud-erp/internal/shared"
)

// RepositoryPort abstracts masterdata storage.
type RepositoryPort interface {
	InsertItem(ctx context.Context, item Item) error
	UpdateItem(ctx context.Context, item Item) error
	GetItem(ctx context.Context, orgID, itemID uuid.UUID) (Item, error)
	ListItems(ctx context.Context, orgID uuid.UUID, filter ItemFilter, page shared.Pagination) ([]Item, int, error)
	InsertLocation(ctx context.Context, loc StockLocation) error
	UpdateLocation(ctx context.Context, loc StockLocation) error
	GetLocation(ctx context.Context, orgID, locationID uuid.UUID) (StockLocation, error)
	ListLocations(ctx context.Context, orgID, branchID uuid.UUID) ([]StockLocation, error)
}

// Service manages items and stock locations. Masterdata rows are mutable;
// ledger history references them by id, so deactivation replaces deletion.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CreateItemInput describes a new stockable item.
type CreateItemInput struct {
	SKU          string
	Name         string
	UnitID       uuid.UUID
	LotTracked   bool
	ReorderLevel decimal.Decimal
}

func (s *Service) CreateItem(ctx context.Context, in CreateItemInput) (Item, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return Item{}, fmt.Errorf("catalog: missing actor: %w", shared.ErrForbidden)
	}
	if strings.TrimSpace(in.SKU) == "" || strings.TrimSpace(in.Name) == "" {
		return Item{}, fmt.Errorf("catalog: sku and name required: %w", shared.ErrInvalidArgument)
	}
	if in.UnitID == uuid.Nil {
		return Item{}, fmt.Errorf("catalog: unit required: %w", shared.ErrInvalidReference)
	}
	if in.ReorderLevel.Sign() < 0 {
		return Item{}, fmt.Errorf("catalog: reorder level cannot be negative: %w", shared.ErrInvalidArgument)
	}
	now := s.now().UTC()
	item := Item{
		ID:           uuid.New(),
		OrgID:        actor.OrgID,
		SKU:          strings.TrimSpace(in.SKU),
		Name:         strings.TrimSpace(in.Name),
		UnitID:       in.UnitID,
		LotTracked:   in.LotTracked,
		ReorderLevel: in.ReorderLevel,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertItem(ctx, item); err != nil {
		return Item{}, err
	}
	return item, nil
}

// UpdateItemInput carries the mutable item fields.
type UpdateItemInput struct {
	Name         string
	ReorderLevel decimal.Decimal
	Active       bool
}

func (s *Service) UpdateItem(ctx context.Context, itemID uuid.UUID, in UpdateItemInput) (Item, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return Item{}, fmt.Errorf("catalog: missing actor: %w", shared.ErrForbidden)
	}
	item, err := s.repo.GetItem(ctx, actor.OrgID, itemID)
	if err != nil {
		return Item{}, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return Item{}, fmt.Errorf("catalog: name required: %w", shared.ErrInvalidArgument)
	}
	if in.ReorderLevel.Sign() < 0 {
		return Item{}, fmt.Errorf("catalog: reorder level cannot be negative: %w", shared.ErrInvalidArgument)
	}
	item.Name = strings.TrimSpace(in.Name)
	item.ReorderLevel = in.ReorderLevel
	item.Active = in.Active
	item.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return Item{}, err
	}
	return item, nil
}

func (s *Service) Item(ctx context.Context, itemID uuid.UUID) (Item, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return Item{}, fmt.Errorf("catalog: missing actor: %w", shared.ErrForbidden)
	}
	return s.repo.GetItem(ctx, actor.OrgID, itemID)
}

func (s *Service) Items(ctx context.Context, filter ItemFilter, page shared.Pagination) ([]Item, shared.Pagination, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return nil, shared.Pagination{}, fmt.Errorf("catalog: missing actor: %w", shared.ErrForbidden)
	}
	items, total, err := s.repo.ListItems(ctx, actor.OrgID, filter, page)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// CreateLocationInput describes a new stock location within the actor's branch.
type CreateLocationInput struct {
	Code string
	Name string
}

func (s *Service) CreateLocation(ctx context.Context, in CreateLocationInput) (StockLocation, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return StockLocation{}, fmt.Errorf("catalog: missing actor: %w", shared.ErrForbidden)
	}
	if strings.TrimSpace(in.Code) == "" {
		return StockLocation{}, fmt.Errorf("catalog: location code required: %w", shared.ErrInvalidArgument)
	}
	now := s.now().UTC()
	loc := StockLocation{
		ID:        uuid.New(),
		OrgID:     actor.OrgID,
		BranchID:  actor.BranchID,
		Code:      strings.TrimSpace(in.Code),
		Name:      strings.TrimSpace(in.Name),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertLocation(ctx, loc); err != nil {
		return StockLocation{}, err
	}
	return loc, nil
}

func (s *Service) DeactivateLocation(ctx context.Context, locationID uuid.UUID) (StockLocation, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return StockLocation{}, fmt.Errorf("catalog: missing actor: %w", shared.ErrForbidden)
	}
	loc, err := s.repo.GetLocation(ctx, actor.OrgID, locationID)
	if err != nil {
		return StockLocation{}, err
	}
	loc.Active = false
	loc.UpdatedAt = s.now().UTC()
	if err := s.repo.UpdateLocation(ctx, loc); err != nil {
		return StockLocation{}, err
	}
	return loc, nil
}

func (s *Service) Locations(ctx context.Context) ([]StockLocation, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("catalog: missing actor: %w", shared.ErrForbidden)
	}
	return s.repo.ListLocations(ctx, actor.OrgID, actor.BranchID)
}
