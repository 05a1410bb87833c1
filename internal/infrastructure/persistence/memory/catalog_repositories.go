package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/menu"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/settings"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/table"
)

// TableRepository implements table.Repository in memory
type TableRepository struct {
	store *Store
}

var _ table.Repository = (*TableRepository)(nil)

func (r *TableRepository) numberTaken(t *table.Table) bool {
	for id, other := range r.store.tables {
		if id != t.ID && other.TenantID == t.TenantID && other.TableNumber == t.TableNumber {
			return true
		}
	}
	return false
}

func (r *TableRepository) Create(ctx context.Context, t *table.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.tables[t.ID]; ok || r.numberTaken(t) {
		return shared.NewConflictError("Table number already exists")
	}
	c := *t
	r.store.tables[t.ID] = &c
	return nil
}

func (r *TableRepository) Get(ctx context.Context, tenantID, id string) (*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	t, ok := r.store.tables[id]
	if !ok || t.TenantID != tenantID {
		return nil, shared.NewNotFoundError("Table")
	}
	c := *t
	return &c, nil
}

func (r *TableRepository) List(ctx context.Context, tenantID string) ([]*table.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*table.Table, 0)
	for _, t := range r.store.tables {
		if t.TenantID == tenantID {
			c := *t
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableNumber < out[j].TableNumber })
	return out, nil
}

func (r *TableRepository) Update(ctx context.Context, t *table.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.tables[t.ID]
	if !ok || current.TenantID != t.TenantID {
		return shared.NewNotFoundError("Table")
	}
	if r.numberTaken(t) {
		return shared.NewConflictError("Table number already exists")
	}
	c := *t
	r.store.tables[t.ID] = &c
	return nil
}

func (r *TableRepository) Delete(ctx context.Context, tenantID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	t, ok := r.store.tables[id]
	if !ok || t.TenantID != tenantID {
		return shared.NewNotFoundError("Table")
	}
	delete(r.store.tables, id)
	return nil
}

func (r *TableRepository) ClearMark(ctx context.Context, tenantID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if t, ok := r.store.tables[id]; ok && t.TenantID == tenantID {
		t.Mark = table.MarkNone
	}
	return nil
}

// MenuRepository implements menu.Repository in memory. Names compare case-insensitively.
type MenuRepository struct {
	store *Store
}

var _ menu.Repository = (*MenuRepository)(nil)

func (r *MenuRepository) nameTaken(item *menu.Item) bool {
	for id, other := range r.store.menu {
		if id != item.ID && other.TenantID == item.TenantID && strings.EqualFold(other.Name, item.Name) {
			return true
		}
	}
	return false
}

func (r *MenuRepository) Create(ctx context.Context, item *menu.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.menu[item.ID]; ok || r.nameTaken(item) {
		return shared.NewConflictError("Menu item name already exists")
	}
	c := *item
	r.store.menu[item.ID] = &c
	return nil
}

func (r *MenuRepository) Get(ctx context.Context, tenantID, id string) (*menu.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	item, ok := r.store.menu[id]
	if !ok || item.TenantID != tenantID {
		return nil, shared.NewNotFoundError("Menu item")
	}
	c := *item
	return &c, nil
}

func (r *MenuRepository) GetMany(ctx context.Context, tenantID string, ids []string) (map[string]*menu.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make(map[string]*menu.Item, len(ids))
	for _, id := range ids {
		if item, ok := r.store.menu[id]; ok && item.TenantID == tenantID {
			c := *item
			out[id] = &c
		}
	}
	return out, nil
}

func (r *MenuRepository) List(ctx context.Context, tenantID string, onlyAvailable bool) ([]*menu.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*menu.Item, 0)
	for _, item := range r.store.menu {
		if item.TenantID != tenantID || (onlyAvailable && !item.Available) {
			continue
		}
		c := *item
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *MenuRepository) Update(ctx context.Context, item *menu.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.menu[item.ID]
	if !ok || current.TenantID != item.TenantID {
		return shared.NewNotFoundError("Menu item")
	}
	if r.nameTaken(item) {
		return shared.NewConflictError("Menu item name already exists")
	}
	c := *item
	r.store.menu[item.ID] = &c
	return nil
}

func (r *MenuRepository) Delete(ctx context.Context, tenantID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	item, ok := r.store.menu[id]
	if !ok || item.TenantID != tenantID {
		return shared.NewNotFoundError("Menu item")
	}
	delete(r.store.menu, id)
	return nil
}

// SettingsRepository implements settings.Repository in memory
type SettingsRepository struct {
	store *Store
}

var _ settings.Repository = (*SettingsRepository)(nil)

func (r *SettingsRepository) Get(ctx context.Context, tenantID string) (*settings.BusinessProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, ok := r.store.profiles[tenantID]
	if !ok {
		return settings.DefaultProfile(tenantID), nil
	}
	c := *p
	return &c, nil
}

func (r *SettingsRepository) Save(ctx context.Context, p *settings.BusinessProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	c := *p
	r.store.profiles[p.TenantID] = &c
	return nil
}
