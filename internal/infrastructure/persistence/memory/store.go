// Package memory provides process-local repositories used for development and tests.
// They honour the same contracts as the MongoDB repositories: tenant scoping,
// conditional updates, unique constraints and atomic invoice counters.
package memory

import (
	"context"
	"sync"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/menu"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/order"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/settings"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/table"
)

// Store holds all collections behind a single lock
type Store struct {
	mu       sync.RWMutex
	orders   map[string]*order.Order
	tables   map[string]*table.Table
	menu     map[string]*menu.Item
	profiles map[string]*settings.BusinessProfile
	counters map[string]int64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		orders:   make(map[string]*order.Order),
		tables:   make(map[string]*table.Table),
		menu:     make(map[string]*menu.Item),
		profiles: make(map[string]*settings.BusinessProfile),
		counters: make(map[string]int64),
	}
}

// Orders returns the order repository
func (s *Store) Orders() *OrderRepository {
	return &OrderRepository{store: s}
}

// Tables returns the table repository
func (s *Store) Tables() *TableRepository {
	return &TableRepository{store: s}
}

// Menu returns the menu repository
func (s *Store) Menu() *MenuRepository {
	return &MenuRepository{store: s}
}

// Settings returns the business profile repository
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{store: s}
}

// Ping always succeeds
func (s *Store) Ping(context.Context) error {
	return nil
}
