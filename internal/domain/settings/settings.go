package settings

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DefaultInvoicePrefix is used until a tenant sets its own
const DefaultInvoicePrefix = "INV-"

var (
	maxTaxRate    = decimal.NewFromInt(100)
	invoicePrefix = regexp.MustCompile(`^[A-Za-z0-9/_-]{0,12}$`)
)

// BusinessProfile holds the per-organization settings printed on bills
type BusinessProfile struct {
	TenantID       string
	RestaurantName string
	Address        string
	Phone          string
	GSTIN          string
	// TaxRate is a percentage applied to the subtotal when an order omits tax
	TaxRate       decimal.Decimal
	InvoicePrefix string
	UpdatedAt     time.Time
}

// DefaultProfile is the profile of a tenant that never saved settings
func DefaultProfile(tenantID string) *BusinessProfile {
	return &BusinessProfile{
		TenantID:      tenantID,
		TaxRate:       decimal.Zero,
		InvoicePrefix: DefaultInvoicePrefix,
	}
}

// Validate checks the profile before it is saved
func (p *BusinessProfile) Validate() error {
	p.RestaurantName = strings.TrimSpace(p.RestaurantName)
	p.GSTIN = strings.ToUpper(strings.TrimSpace(p.GSTIN))
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(maxTaxRate) {
		return shared.NewValidationError("Tax rate must be between 0 and 100")
	}
	if !invoicePrefix.MatchString(p.InvoicePrefix) {
		return shared.NewValidationError("Invoice prefix may hold up to 12 letters, digits, '/', '_' or '-'")
	}
	if p.GSTIN != "" && len(p.GSTIN) != 15 {
		return shared.NewValidationError("GSTIN must be 15 characters")
	}
	return nil
}

// DefaultTax computes the tax of a subtotal at the profile's rate
func (p *BusinessProfile) DefaultTax(subtotal valueobject.Money) valueobject.Money {
	if p == nil || p.TaxRate.IsZero() {
		return valueobject.Zero()
	}
	return subtotal.Percent(p.TaxRate)
}

// InvoiceLabel renders an invoice number for display, e.g. INV-00042
func (p *BusinessProfile) InvoiceLabel(number int64) string {
	prefix := DefaultInvoicePrefix
	if p != nil {
		prefix = p.InvoicePrefix
	}
	return fmt.Sprintf("%s%05d", prefix, number)
}

// Repository persists business profiles
type Repository interface {
	// Get returns the stored profile, or the default profile when none was saved
	Get(ctx context.Context, tenantID string) (*BusinessProfile, error)
	// Save creates or replaces the profile
	Save(ctx context.Context, p *BusinessProfile) error
}
