// Package catalog manages menu items and the cached menu projection
package catalog

import (
	"context"

	"github.com/opentoworkprojects/bill-sub001/internal/application/projection"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/menu"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Service handles menu operations
type Service struct {
	repo  menu.Repository
	cache shared.ProjectionCache
	clock shared.Clock
}

// NewService creates a new catalog service
func NewService(repo menu.Repository, cache shared.ProjectionCache, clock shared.Clock) *Service {
	if clock == nil {
		clock = shared.SystemClock()
	}
	return &Service{repo: repo, cache: cache, clock: clock}
}

// ListAvailable returns orderable items through the menu projection
func (s *Service) ListAvailable(ctx context.Context, tenantID string) ([]MenuItemResponse, error) {
	return projection.ReadThrough(ctx, s.cache, shared.MenuKey(tenantID), shared.MenuTTL,
		func(ctx context.Context) ([]MenuItemResponse, error) {
			items, err := s.repo.List(ctx, tenantID, true)
			if err != nil {
				return nil, err
			}
			return ToMenuItemResponses(items), nil
		})
}

// ListAll returns every item, available or not, straight from the store
func (s *Service) ListAll(ctx context.Context, tenantID string) ([]MenuItemResponse, error) {
	items, err := s.repo.List(ctx, tenantID, false)
	if err != nil {
		return nil, err
	}
	return ToMenuItemResponses(items), nil
}

// Get returns one item
func (s *Service) Get(ctx context.Context, tenantID, id string) (*MenuItemResponse, error) {
	item, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToMenuItemResponse(item)
	return &resp, nil
}

// Create adds a menu item
func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateMenuItemRequest) (*MenuItemResponse, error) {
	if err := actor.Allow(shared.RoleAdmin, shared.RoleCashier); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	item, err := menu.NewItem(actor.TenantID, req.Name, req.Price, req.Category, now)
	if err != nil {
		return nil, err
	}
	if req.Available != nil {
		item.SetAvailable(*req.Available, now)
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, err
	}
	s.invalidate(ctx, actor.TenantID)

	logger.L(ctx).Info("Menu item created", zap.String("menu_item_id", item.ID), zap.String("name", item.Name))
	resp := ToMenuItemResponse(item)
	return &resp, nil
}

// Update changes a menu item. Existing orders keep the name and price they were placed with.
func (s *Service) Update(ctx context.Context, actor shared.Actor, id string, req UpdateMenuItemRequest) (*MenuItemResponse, error) {
	if err := actor.Allow(shared.RoleAdmin, shared.RoleCashier); err != nil {
		return nil, err
	}
	item, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	name, price, category := item.Name, item.Price, item.Category
	if req.Name != nil {
		name = *req.Name
	}
	if req.Price != nil {
		price = *req.Price
	}
	if req.Category != nil {
		category = *req.Category
	}
	if err := item.Update(name, price, category, now); err != nil {
		return nil, err
	}
	if req.Available != nil {
		item.SetAvailable(*req.Available, now)
	}

	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}
	s.invalidate(ctx, actor.TenantID)
	resp := ToMenuItemResponse(item)
	return &resp, nil
}

// SetAvailability marks an item in or out of stock. Waiters may do this during service.
func (s *Service) SetAvailability(ctx context.Context, actor shared.Actor, id string, available bool) (*MenuItemResponse, error) {
	if err := actor.Allow(shared.RoleAdmin, shared.RoleCashier, shared.RoleWaiter, shared.RoleKitchen); err != nil {
		return nil, err
	}
	item, err := s.repo.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	item.SetAvailable(available, s.clock.Now())
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, err
	}
	s.invalidate(ctx, actor.TenantID)
	resp := ToMenuItemResponse(item)
	return &resp, nil
}

// Delete removes a menu item
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id string) error {
	if err := actor.Allow(shared.RoleAdmin, shared.RoleCashier); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, actor.TenantID, id); err != nil {
		return err
	}
	s.invalidate(ctx, actor.TenantID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, tenantID string) {
	projection.Invalidate(ctx, s.cache, shared.MenuKey(tenantID))
}
