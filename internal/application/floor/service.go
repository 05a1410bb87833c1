// Package floor manages tables. A table's occupancy is derived from its active orders;
// only the reserved and cleaning marks are stored.
package floor

import (
	"context"
	"fmt"

	"github.com/opentoworkprojects/bill-sub001/internal/application/projection"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/order"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/report"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/table"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Service handles table operations
type Service struct {
	tables table.Repository
	orders order.Repository
	cache  shared.ProjectionCache
	clock  shared.Clock
}

// NewService creates a new floor service
func NewService(tables table.Repository, orders order.Repository, cache shared.ProjectionCache, clock shared.Clock) *Service {
	if clock == nil {
		clock = shared.SystemClock()
	}
	return &Service{tables: tables, orders: orders, cache: cache, clock: clock}
}

// TableMap returns every table with its derived status through the tables projection
func (s *Service) TableMap(ctx context.Context, tenantID string) ([]TableResponse, error) {
	return projection.ReadThrough(ctx, s.cache, shared.TablesKey(tenantID), shared.TablesTTL,
		func(ctx context.Context) ([]TableResponse, error) {
			tables, err := s.tables.List(ctx, tenantID)
			if err != nil {
				return nil, err
			}
			active, err := s.orders.CountActiveByTable(ctx, tenantID)
			if err != nil {
				return nil, err
			}
			return toTableResponses(report.BuildTableMap(tables, active)), nil
		})
}

// Get returns one table with its derived status
func (s *Service) Get(ctx context.Context, tenantID, id string) (*TableResponse, error) {
	t, err := s.tables.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, t)
}

// Create adds a table
func (s *Service) Create(ctx context.Context, actor shared.Actor, req CreateTableRequest) (*TableResponse, error) {
	if err := actor.Allow(shared.RoleAdmin, shared.RoleCashier); err != nil {
		return nil, err
	}
	t, err := table.NewTable(actor.TenantID, req.TableNumber, req.Capacity, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.tables.Create(ctx, t); err != nil {
		return nil, err
	}
	s.invalidate(ctx, actor.TenantID)

	logger.L(ctx).Info("Table created", zap.String("table_id", t.ID), zap.Int("table_number", t.TableNumber))
	return &TableResponse{ID: t.ID, TableNumber: t.TableNumber, Capacity: t.Capacity, Status: t.DeriveStatus(0)}, nil
}

// Update renumbers or resizes a table
func (s *Service) Update(ctx context.Context, actor shared.Actor, id string, req UpdateTableRequest) (*TableResponse, error) {
	if err := actor.Allow(shared.RoleAdmin, shared.RoleCashier); err != nil {
		return nil, err
	}
	t, err := s.tables.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	number, capacity := t.TableNumber, t.Capacity
	if req.TableNumber != nil {
		number = *req.TableNumber
	}
	if req.Capacity != nil {
		capacity = *req.Capacity
	}
	if err := t.Update(number, capacity, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.tables.Update(ctx, t); err != nil {
		return nil, err
	}
	s.invalidate(ctx, actor.TenantID)
	return s.view(ctx, t)
}

// Delete removes a table that has no active orders
func (s *Service) Delete(ctx context.Context, actor shared.Actor, id string) error {
	if err := actor.Allow(shared.RoleAdmin); err != nil {
		return err
	}
	t, err := s.tables.Get(ctx, actor.TenantID, id)
	if err != nil {
		return err
	}
	n, err := s.activeOrders(ctx, t)
	if err != nil {
		return err
	}
	if n > 0 {
		return shared.NewStatusConflictError(fmt.Sprintf("Table %d has %d active orders", t.TableNumber, n))
	}
	if err := s.tables.Delete(ctx, actor.TenantID, id); err != nil {
		return err
	}
	s.invalidate(ctx, actor.TenantID)
	return nil
}

// Reserve marks a free table as reserved
func (s *Service) Reserve(ctx context.Context, actor shared.Actor, id string) (*TableResponse, error) {
	return s.mark(ctx, actor, id, table.MarkReserved)
}

// MarkCleaning marks a free table as being cleaned
func (s *Service) MarkCleaning(ctx context.Context, actor shared.Actor, id string) (*TableResponse, error) {
	return s.mark(ctx, actor, id, table.MarkCleaning)
}

// Release clears the mark of a table. A table with live orders cannot be released.
func (s *Service) Release(ctx context.Context, actor shared.Actor, id string) (*TableResponse, error) {
	return s.mark(ctx, actor, id, table.MarkNone)
}

func (s *Service) mark(ctx context.Context, actor shared.Actor, id string, mark table.Mark) (*TableResponse, error) {
	if err := actor.Allow(shared.RoleAdmin, shared.RoleCashier, shared.RoleWaiter); err != nil {
		return nil, err
	}
	t, err := s.tables.Get(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	n, err := s.activeOrders(ctx, t)
	if err != nil {
		return nil, err
	}
	if mark == table.MarkNone && n > 0 {
		return nil, shared.NewStatusConflictError(fmt.Sprintf("Table %d is occupied", t.TableNumber))
	}
	if err := t.SetMark(mark, n, s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.tables.Update(ctx, t); err != nil {
		return nil, err
	}
	s.invalidate(ctx, actor.TenantID)

	logger.L(ctx).Info("Table marked",
		zap.String("table_id", t.ID),
		zap.String("mark", string(mark)),
	)
	resp := &TableResponse{ID: t.ID, TableNumber: t.TableNumber, Capacity: t.Capacity, Status: t.DeriveStatus(n), ActiveOrders: n}
	return resp, nil
}

func (s *Service) view(ctx context.Context, t *table.Table) (*TableResponse, error) {
	n, err := s.activeOrders(ctx, t)
	if err != nil {
		return nil, err
	}
	return &TableResponse{ID: t.ID, TableNumber: t.TableNumber, Capacity: t.Capacity, Status: t.DeriveStatus(n), ActiveOrders: n}, nil
}

func (s *Service) activeOrders(ctx context.Context, t *table.Table) (int, error) {
	f := order.ActiveFilter()
	f.TableID = t.ID
	n, err := s.orders.Count(ctx, t.TenantID, f)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Service) invalidate(ctx context.Context, tenantID string) {
	projection.Invalidate(ctx, s.cache, shared.TablesKey(tenantID))
}
