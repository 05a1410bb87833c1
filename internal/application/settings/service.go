// Package settings serves the per-organization business profile
package settings

import (
	"context"

	"github.com/opentoworkprojects/bill-sub001/internal/application/projection"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/settings"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Service reads and updates business profiles through the business_profile projection
type Service struct {
	repo  settings.Repository
	cache shared.ProjectionCache
	clock shared.Clock
}

// NewService creates a new settings service
func NewService(repo settings.Repository, cache shared.ProjectionCache, clock shared.Clock) *Service {
	if clock == nil {
		clock = shared.SystemClock()
	}
	return &Service{repo: repo, cache: cache, clock: clock}
}

// Get returns the tenant's profile
func (s *Service) Get(ctx context.Context, tenantID string) (*ProfileResponse, error) {
	resp, err := projection.ReadThrough(ctx, s.cache, shared.BusinessProfileKey(tenantID), shared.BusinessProfileTTL,
		func(ctx context.Context) (ProfileResponse, error) {
			p, err := s.repo.Get(ctx, tenantID)
			if err != nil {
				return ProfileResponse{}, err
			}
			return ToProfileResponse(p), nil
		})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Profile returns the domain profile, used for default tax and invoice labels
func (s *Service) Profile(ctx context.Context, tenantID string) (*settings.BusinessProfile, error) {
	resp, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return resp.toDomain(tenantID), nil
}

// Update replaces the profile. Only admins and cashiers may change billing settings.
func (s *Service) Update(ctx context.Context, actor shared.Actor, req UpdateProfileRequest) (*ProfileResponse, error) {
	if err := actor.Allow(shared.RoleAdmin, shared.RoleCashier); err != nil {
		return nil, err
	}
	current, err := s.repo.Get(ctx, actor.TenantID)
	if err != nil {
		return nil, err
	}

	p := &settings.BusinessProfile{
		TenantID:       actor.TenantID,
		RestaurantName: req.RestaurantName,
		Address:        req.Address,
		Phone:          req.Phone,
		GSTIN:          req.GSTIN,
		TaxRate:        req.TaxRate,
		InvoicePrefix:  current.InvoicePrefix,
		UpdatedAt:      s.clock.Now(),
	}
	if req.InvoicePrefix != nil {
		p.InvoicePrefix = *req.InvoicePrefix
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	projection.Invalidate(ctx, s.cache, shared.BusinessProfileKey(actor.TenantID))
	// cached order lists carry invoice labels built from the old prefix
	projection.InvalidatePrefix(ctx, s.cache,
		shared.TenantKeyPrefix("active_orders", actor.TenantID),
		shared.TenantKeyPrefix("todays_bills", actor.TenantID),
	)

	logger.L(ctx).Info("Business profile updated", zap.String("invoice_prefix", p.InvoicePrefix))
	resp := ToProfileResponse(p)
	return &resp, nil
}
