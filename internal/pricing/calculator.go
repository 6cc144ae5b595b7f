// Package pricing computes unit, display and bulk prices from catalog snapshots.
// Every function is pure: the same snapshot, campaigns and instant give the same result.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/discount"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Round2 rounds half away from zero to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// BasePrice resolves the undiscounted unit price: size price, variant common price,
// product price, first variant's first size price, then zero.
func BasePrice(p catalog.Product, v *catalog.Variant, s *catalog.SizeDetail) decimal.Decimal {
	if s != nil && s.Price.Valid {
		return s.Price.Decimal
	}
	if v != nil && v.CommonPrice.Valid {
		return v.CommonPrice.Decimal
	}
	if p.Price.Valid {
		return p.Price.Decimal
	}
	if len(p.Variants) > 0 && len(p.Variants[0].MoreDetails) > 0 {
		if first := p.Variants[0].MoreDetails[0].Price; first.Valid {
			return first.Decimal
		}
	}
	return decimal.Zero
}

// FlatDiscountWindow returns the size window when the size defines one, else the product window.
func FlatDiscountWindow(p catalog.Product, s *catalog.SizeDetail) discount.Window {
	if s != nil {
		w := discount.Window{Start: s.DiscountStartDate, End: s.DiscountEndDate}
		if w.Defined() {
			return w
		}
	}
	return discount.Window{Start: p.DiscountStartDate, End: p.DiscountEndDate}
}

// FlatDiscount returns the flat discount price and whether it is active at now.
// The size-level discount price wins over the product-level one.
func FlatDiscount(p catalog.Product, s *catalog.SizeDetail, now time.Time) (decimal.Decimal, bool) {
	if !FlatDiscountWindow(p, s).Contains(now) {
		return decimal.Zero, false
	}
	if s != nil && s.DiscountPrice.Valid {
		return s.DiscountPrice.Decimal, true
	}
	if p.DiscountPrice.Valid {
		return p.DiscountPrice.Decimal, true
	}
	return decimal.Zero, false
}

// ApplyFlatOverride is the first discount stage: the flat price replaces the price when active.
func ApplyFlatOverride(price, flat decimal.Decimal, active bool) decimal.Decimal {
	if !active {
		return price
	}
	return flat
}

// ApplyCampaignPercentage is the second discount stage: price × (1 - pct/100).
// Percentages are clamped to [0, 100].
func ApplyCampaignPercentage(price decimal.Decimal, c *catalog.DiscountCampaign) decimal.Decimal {
	if c == nil {
		return price
	}
	return price.Mul(campaignFactor(c))
}

func campaignFactor(c *catalog.DiscountCampaign) decimal.Decimal {
	pct := c.DiscountPercentage
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return one.Sub(pct.Div(hundred))
}

// Input is the snapshot set a display price is computed from.
type Input struct {
	Product   catalog.Product
	Variant   *catalog.Variant
	Size      *catalog.SizeDetail
	Campaigns []catalog.DiscountCampaign
	Now       time.Time
}

// Price is the outcome of the display price pipeline.
type Price struct {
	Base        decimal.Decimal
	Display     decimal.Decimal
	FlatApplied bool
	Campaign    *catalog.DiscountCampaign
}

// DisplayPrice runs base price → flat override → campaign percentage → rounding.
func DisplayPrice(in Input) Price {
	base := BasePrice(in.Product, in.Variant, in.Size)
	flat, active := FlatDiscount(in.Product, in.Size, in.Now)
	campaign := discount.Resolve(in.Product, in.Campaigns, in.Now)

	price := ApplyFlatOverride(base, flat, active)
	price = ApplyCampaignPercentage(price, campaign)
	return Price{
		Base:        base,
		Display:     Round2(price),
		FlatApplied: active,
		Campaign:    campaign,
	}
}

// AdjustTiers applies the campaign percentage to every tier price, rounding each to
// two decimals. The input slice is not modified.
func AdjustTiers(tiers []catalog.BulkPricingTier, c *catalog.DiscountCampaign) []catalog.BulkPricingTier {
	out := make([]catalog.BulkPricingTier, len(tiers))
	copy(out, tiers)
	if c == nil {
		return out
	}
	for i := range out {
		out[i].WholesalePrice = Round2(ApplyCampaignPercentage(out[i].WholesalePrice, c))
	}
	return out
}

// TiersFor returns the size's bulk tiers when it has any, else the product tiers.
func TiersFor(p catalog.Product, s *catalog.SizeDetail) []catalog.BulkPricingTier {
	if s != nil && len(s.BulkPricingCombinations) > 0 {
		return s.BulkPricingCombinations
	}
	return p.BulkPricing
}

// ResolveStock follows size stock, variant common stock, then product stock. The
// boolean is false when none of them is set.
func ResolveStock(p catalog.Product, v *catalog.Variant, s *catalog.SizeDetail) (int, bool) {
	if s != nil && s.Stock != nil {
		return *s.Stock, true
	}
	if v != nil && v.CommonStock != nil {
		return *v.CommonStock, true
	}
	if p.Stock != nil {
		return *p.Stock, true
	}
	return 0, false
}

// CurrentStock is ResolveStock with an undefined stock reported as zero.
func CurrentStock(p catalog.Product, v *catalog.Variant, s *catalog.SizeDetail) int {
	stock, _ := ResolveStock(p, v, s)
	return stock
}

// CheckQuantity rejects quantities below one or above a known stock.
func CheckQuantity(qty, stock int, stockKnown bool) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	if stockKnown && qty > stock {
		return ErrExceedsStock
	}
	return nil
}
