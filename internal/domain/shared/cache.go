package shared

import (
	"context"
	"strings"
	"time"
)

// ProjectionCache is a key/value store of JSON blobs with per-key TTL.
// It is never authoritative: callers treat every error as a miss.
type ProjectionCache interface {
	// Get returns the stored blob, or ErrCacheMiss when the key is absent
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a blob for ttl
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the given keys
	Delete(ctx context.Context, keys ...string) error
	// DeletePrefix removes every key starting with prefix
	DeletePrefix(ctx context.Context, prefix string) error
	// IsConnected reports whether the backing store is reachable
	IsConnected(ctx context.Context) bool
}

// Projection TTLs
const (
	ActiveOrdersTTL    = 60 * time.Second
	TodaysBillsTTL     = 60 * time.Second
	MenuTTL            = 300 * time.Second
	TablesTTL          = 60 * time.Second
	BusinessProfileTTL = 600 * time.Second
)

// ActiveOrdersKey is the key of a tenant's active order list for one business day
func ActiveOrdersKey(tenantID string, day DayWindow) string {
	return cacheKey("active_orders", tenantID, day.DateKey())
}

// TodaysBillsKey is the key of a tenant's bills for one business day
func TodaysBillsKey(tenantID string, day DayWindow) string {
	return cacheKey("todays_bills", tenantID, day.DateKey())
}

// MenuKey is the key of a tenant's available menu items
func MenuKey(tenantID string) string {
	return cacheKey("menu", tenantID)
}

// TablesKey is the key of a tenant's table map
func TablesKey(tenantID string) string {
	return cacheKey("tables", tenantID)
}

// BusinessProfileKey is the key of a tenant's settings
func BusinessProfileKey(tenantID string) string {
	return cacheKey("business_profile", tenantID)
}

// TenantKeyPrefix matches every projection of kind for a tenant, e.g. "active_orders:t1:"
func TenantKeyPrefix(kind, tenantID string) string {
	return cacheKey(kind, tenantID) + ":"
}

func cacheKey(parts ...string) string {
	return strings.ToLower(strings.Join(parts, ":"))
}
