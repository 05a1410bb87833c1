package catalog

import (
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/menu"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared/valueobject"
)

// CreateMenuItemRequest represents a request to add a menu item
type CreateMenuItemRequest struct {
	Name      string            `json:"name" binding:"required,min=1,max=200"`
	Price     valueobject.Money `json:"price"`
	Category  string            `json:"category" binding:"max=100"`
	Available *bool             `json:"available"`
}

// UpdateMenuItemRequest represents a request to change a menu item
type UpdateMenuItemRequest struct {
	Name      *string            `json:"name" binding:"omitempty,min=1,max=200"`
	Price     *valueobject.Money `json:"price"`
	Category  *string            `json:"category" binding:"omitempty,max=100"`
	Available *bool              `json:"available"`
}

// SetAvailabilityRequest toggles a menu item
type SetAvailabilityRequest struct {
	Available *bool `json:"available" binding:"required"`
}

// MenuItemResponse is a menu item as served and cached
type MenuItemResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Price     valueobject.Money `json:"price"`
	Category  string            `json:"category"`
	Available bool              `json:"available"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ToMenuItemResponse converts a domain item
func ToMenuItemResponse(i *menu.Item) MenuItemResponse {
	return MenuItemResponse{
		ID:        i.ID,
		Name:      i.Name,
		Price:     i.Price,
		Category:  i.Category,
		Available: i.Available,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

// ToMenuItemResponses converts a list of domain items
func ToMenuItemResponses(items []*menu.Item) []MenuItemResponse {
	out := make([]MenuItemResponse, len(items))
	for i, item := range items {
		out[i] = ToMenuItemResponse(item)
	}
	return out
}
