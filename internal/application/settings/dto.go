package settings

import (
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/settings"
	"github.com/shopspring/decimal"
)

// UpdateProfileRequest replaces the business profile
type UpdateProfileRequest struct {
	RestaurantName string          `json:"restaurant_name" binding:"required,min=1,max=120"`
	Address        string          `json:"address" binding:"max=300"`
	Phone          string          `json:"phone" binding:"max=20"`
	GSTIN          string          `json:"gstin" binding:"omitempty,len=15"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	InvoicePrefix  *string         `json:"invoice_prefix" binding:"omitempty,max=12"`
}

// ProfileResponse is the business profile as served and cached
type ProfileResponse struct {
	RestaurantName string          `json:"restaurant_name"`
	Address        string          `json:"address"`
	Phone          string          `json:"phone"`
	GSTIN          string          `json:"gstin"`
	TaxRate        decimal.Decimal `json:"tax_rate"`
	InvoicePrefix  string          `json:"invoice_prefix"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
}

// ToProfileResponse converts the domain profile
func ToProfileResponse(p *settings.BusinessProfile) ProfileResponse {
	resp := ProfileResponse{
		RestaurantName: p.RestaurantName,
		Address:        p.Address,
		Phone:          p.Phone,
		GSTIN:          p.GSTIN,
		TaxRate:        p.TaxRate,
		InvoicePrefix:  p.InvoicePrefix,
	}
	if !p.UpdatedAt.IsZero() {
		t := p.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

// toDomain rebuilds a profile from its cached form
func (r ProfileResponse) toDomain(tenantID string) *settings.BusinessProfile {
	p := &settings.BusinessProfile{
		TenantID:       tenantID,
		RestaurantName: r.RestaurantName,
		Address:        r.Address,
		Phone:          r.Phone,
		GSTIN:          r.GSTIN,
		TaxRate:        r.TaxRate,
		InvoicePrefix:  r.InvoicePrefix,
	}
	if r.UpdatedAt != nil {
		p.UpdatedAt = *r.UpdatedAt
	}
	return p
}
