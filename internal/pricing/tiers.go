package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/catalog"
)

// SortTiers returns a copy ordered by ascending quantity. Among equal thresholds the
// cheapest sorts last, so a scan from the top meets it first.
func SortTiers(tiers []catalog.BulkPricingTier) []catalog.BulkPricingTier {
	sorted := make([]catalog.BulkPricingTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Quantity != sorted[j].Quantity {
			return sorted[i].Quantity < sorted[j].Quantity
		}
		return sorted[i].WholesalePrice.GreaterThan(sorted[j].WholesalePrice)
	})
	return sorted
}

// EffectiveUnitPrice returns the price of the greatest tier whose threshold is at
// most qty, or base when no tier qualifies. Tier order in the input does not matter.
func EffectiveUnitPrice(qty int, tiers []catalog.BulkPricingTier, base decimal.Decimal) decimal.Decimal {
	if len(tiers) == 0 {
		return base
	}
	sorted := SortTiers(tiers)
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].Quantity <= qty {
			return sorted[i].WholesalePrice
		}
	}
	return base
}

// ValidateTiers rejects non-positive thresholds, negative prices and duplicate thresholds.
func ValidateTiers(tiers []catalog.BulkPricingTier) error {
	seen := make(map[int]struct{}, len(tiers))
	for i, t := range tiers {
		if t.Quantity < 1 {
			return fmt.Errorf("tier %d quantity %d: %w", i, t.Quantity, ErrInvalidTier)
		}
		if t.WholesalePrice.IsNegative() {
			return fmt.Errorf("tier %d price %s: %w", i, t.WholesalePrice, ErrInvalidTier)
		}
		if _, dup := seen[t.Quantity]; dup {
			return fmt.Errorf("tier %d quantity %d: %w", i, t.Quantity, ErrDuplicateTierQuantity)
		}
		seen[t.Quantity] = struct{}{}
	}
	return nil
}

// ValidateProductTiers checks the product tiers and every size's tiers.
func ValidateProductTiers(p catalog.Product) error {
	if err := ValidateTiers(p.BulkPricing); err != nil {
		return fmt.Errorf("product %s: %w", p.ID, err)
	}
	for _, v := range p.Variants {
		for _, s := range v.MoreDetails {
			if err := ValidateTiers(s.BulkPricingCombinations); err != nil {
				return fmt.Errorf("product %s variant %s size %s: %w", p.ID, v.ColorName, s.Label(), err)
			}
		}
	}
	return nil
}
