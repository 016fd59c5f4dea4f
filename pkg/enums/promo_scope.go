package enums

import "fmt"

// PromoScope determines which products a promo code can discount.
type PromoScope string

const (
	// PromoScopeVendorWide applies to every product sold by the issuing vendor.
	PromoScopeVendorWide PromoScope = "vendor_wide"
	// PromoScopeProductList applies only to the products explicitly attached.
	PromoScopeProductList PromoScope = "product_list"
)

var validPromoScopes = []PromoScope{
	PromoScopeVendorWide,
	PromoScopeProductList,
}

// String implements fmt.Stringer.
func (p PromoScope) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PromoScope.
func (p PromoScope) IsValid() bool {
	for _, candidate := range validPromoScopes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePromoScope converts raw input into a PromoScope.
func ParsePromoScope(value string) (PromoScope, error) {
	for _, candidate := range validPromoScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promo scope %q", value)
}
