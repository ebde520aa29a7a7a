package enums

import "fmt"

// SellerTierLevel maps to the seller_tier_level enum in Postgres.
type SellerTierLevel string

const (
	SellerTierStandard      SellerTierLevel = "standard"
	SellerTierPremiumOutlet SellerTierLevel = "premium_outlet"
	SellerTierTrustedBrand  SellerTierLevel = "trusted_brand"
)

var validSellerTierLevels = []SellerTierLevel{
	SellerTierStandard,
	SellerTierPremiumOutlet,
	SellerTierTrustedBrand,
}

// String implements fmt.Stringer.
func (t SellerTierLevel) String() string {
	return string(t)
}

// IsValid reports whether the value matches the canonical seller_tier_level enum.
func (t SellerTierLevel) IsValid() bool {
	for _, candidate := range validSellerTierLevels {
		if candidate == t {
			return true
		}
	}
	return false
}

// SupportsBypass reports whether the tier may skip review. The seller's
// bypasses_assessment flag must also be set.
func (t SellerTierLevel) SupportsBypass() bool {
	return t == SellerTierPremiumOutlet || t == SellerTierTrustedBrand
}

// ParseSellerTierLevel converts raw input into SellerTierLevel.
func ParseSellerTierLevel(value string) (SellerTierLevel, error) {
	for _, candidate := range validSellerTierLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid seller tier level %q", value)
}
