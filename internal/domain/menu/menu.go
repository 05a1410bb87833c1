package menu

import (
	"context"
	"strings"
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared/valueobject"
)

// Item is a dish or drink on the menu
type Item struct {
	shared.TenantEntity
	Name      string
	Price     valueobject.Money
	Category  string
	Available bool
}

// NewItem creates an available menu item
func NewItem(tenantID, name string, price valueobject.Money, category string, now time.Time) (*Item, error) {
	item := &Item{
		TenantEntity: shared.NewTenantEntity(tenantID, now),
		Available:    true,
	}
	if err := item.Update(name, price, category, now); err != nil {
		return nil, err
	}
	return item, nil
}

// Update changes the descriptive fields of the item.
// Orders keep the name and price they were placed with.
func (i *Item) Update(name string, price valueobject.Money, category string, now time.Time) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("Menu item name is required")
	}
	if len(name) > 200 {
		return shared.NewValidationError("Menu item name cannot exceed 200 characters")
	}
	if price.IsNegative() {
		return shared.NewValidationError("Price cannot be negative")
	}
	i.Name = name
	i.Price = price
	i.Category = strings.TrimSpace(category)
	i.UpdatedAt = now.UTC()
	return nil
}

// SetAvailable toggles whether the item can be ordered
func (i *Item) SetAvailable(available bool, now time.Time) {
	i.Available = available
	i.UpdatedAt = now.UTC()
}

// Repository persists menu items. Names are unique per organization.
type Repository interface {
	// Create fails with CONFLICT when the name is taken
	Create(ctx context.Context, item *Item) error
	Get(ctx context.Context, tenantID, id string) (*Item, error)
	// GetMany loads the given items; missing ids are omitted from the result
	GetMany(ctx context.Context, tenantID string, ids []string) (map[string]*Item, error)
	// List returns items ordered by category then name
	List(ctx context.Context, tenantID string, onlyAvailable bool) ([]*Item, error)
	// Update fails with CONFLICT when the new name is taken
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, tenantID, id string) error
}
