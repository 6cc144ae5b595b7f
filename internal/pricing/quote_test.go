package pricing_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

func variantProduct() catalog.Product {
	return catalog.Product{
		ID:           "frame",
		HasVariants:  true,
		CategoryPath: []string{"home"},
		BulkPricing:  []catalog.BulkPricingTier{{Quantity: 100, WholesalePrice: dec("1")}},
		Variants: []catalog.Variant{
			{ColorName: "Blue", CommonPrice: money("40"), CommonStock: intPtr(8)},
			{
				ColorName: "Red",
				IsDefault: true,
				MoreDetails: []catalog.SizeDetail{{
					Size:  catalog.Size{Length: 10, Breadth: 10, Height: 10, Unit: "cm"},
					Price: money("100"),
					Stock: intPtr(60),
					BulkPricingCombinations: []catalog.BulkPricingTier{
						{Quantity: 10, WholesalePrice: dec("90")},
						{Quantity: 50, WholesalePrice: dec("80")},
					},
				}},
			},
		},
	}
}

func TestQuoteVariantSizeWithTiers(t *testing.T) {
	q, err := pricing.QuoteFor(pricing.QuoteInput{
		Product:   variantProduct(),
		SizeLabel: "10×10×10 cm",
		Quantity:  12,
		Now:       now,
	})
	require.NoError(t, err)
	require.Equal(t, "Red", q.Variant, "empty variant selects the default")
	require.Equal(t, "10×10×10 cm", q.Size)
	require.Equal(t, "100", q.DisplayPrice.String())
	require.Equal(t, "90", q.UnitPrice.String())
	require.Equal(t, "1080.00", q.Total.StringFixed(2))
	require.Equal(t, 60, *q.Stock)
	require.Len(t, q.Tiers, 2, "size tiers take precedence over product tiers")
}

func TestQuoteCampaignAdjustsTiers(t *testing.T) {
	q, err := pricing.QuoteFor(pricing.QuoteInput{
		Product:   variantProduct(),
		SizeLabel: "10×10×10 cm",
		Quantity:  50,
		Campaigns: []catalog.DiscountCampaign{allCampaign("10")},
		Now:       now,
	})
	require.NoError(t, err)
	require.Equal(t, "summer", q.CampaignID)
	require.Equal(t, "90.00", q.DisplayPrice.StringFixed(2))
	require.Equal(t, "72.00", q.UnitPrice.StringFixed(2))
	require.Equal(t, "3600.00", q.Total.StringFixed(2))
}

func TestQuoteRejectsBadSelections(t *testing.T) {
	_, err := pricing.QuoteFor(pricing.QuoteInput{Product: variantProduct(), VariantName: "Green", Quantity: 1, Now: now})
	require.ErrorIs(t, err, pricing.ErrUnknownVariant)

	_, err = pricing.QuoteFor(pricing.QuoteInput{Product: variantProduct(), SizeLabel: "1×1 cm", Quantity: 1, Now: now})
	require.ErrorIs(t, err, pricing.ErrUnknownSize)

	_, err = pricing.QuoteFor(pricing.QuoteInput{Product: variantProduct(), VariantName: "Blue", Quantity: 9, Now: now})
	require.ErrorIs(t, err, pricing.ErrExceedsStock)

	_, err = pricing.QuoteFor(pricing.QuoteInput{Product: variantProduct(), Quantity: 0, Now: now})
	require.ErrorIs(t, err, pricing.ErrInvalidQuantity)
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestQuoteSimpleProduct(t *testing.T) {
	q, err := pricing.QuoteFor(pricing.QuoteInput{
		Product:  catalog.Product{ID: "mug", Price: money("12.5")},
		Quantity: 3,
		Now:      now,
	})
	require.NoError(t, err)
	require.Empty(t, q.Variant)
	require.Nil(t, q.Stock)
	require.Equal(t, "37.50", q.Total.StringFixed(2))
}

func TestQuoteDynamicDimensions(t *testing.T) {
	product := catalog.Product{
		ID:            "glass",
		HasDimensions: true,
		PricingType:   catalog.PricingDynamic,
		Dimensions:    []catalog.DimensionRate{{Unit: "ft", Price: dec("10")}},
	}
	_, err := pricing.QuoteFor(pricing.QuoteInput{Product: product, Quantity: 1, Now: now})
	require.ErrorIs(t, err, pricing.ErrMissingDimensions)

	q, err := pricing.QuoteFor(pricing.QuoteInput{
		Product:    product,
		Dimensions: &catalog.CustomDimensions{Length: 2, Breadth: 3, Unit: "ft"},
		Quantity:   2,
		Campaigns:  []catalog.DiscountCampaign{allCampaign("50")},
		Now:        now,
	})
	require.NoError(t, err)
	require.Equal(t, "60", q.BasePrice.String())
	require.Equal(t, "30.00", q.UnitPrice.StringFixed(2))
	require.Equal(t, "60.00", q.Total.StringFixed(2))
	require.NotNil(t, q.Dimensions)
	require.Equal(t, "60", q.Dimensions.CalculatedPrice.Decimal.String())
}

func TestQuoteStaticChart(t *testing.T) {
	product := catalog.Product{
		ID:            "poster",
		HasDimensions: true,
		PricingType:   catalog.PricingStatic,
		StaticDimensions: []catalog.StaticDimension{
			{Length: 50, Breadth: 70, Unit: "cm", Price: dec("25"), Stock: intPtr(3)},
		},
	}
	q, err := pricing.QuoteFor(pricing.QuoteInput{
		Product:    product,
		Dimensions: &catalog.CustomDimensions{Length: 50, Breadth: 70, Unit: "cm"},
		Quantity:   3,
		Now:        now,
	})
	require.NoError(t, err)
	require.Equal(t, "75.00", q.Total.StringFixed(2))
	require.Equal(t, 3, *q.Stock)

	_, err = pricing.QuoteFor(pricing.QuoteInput{
		Product:    product,
		Dimensions: &catalog.CustomDimensions{Length: 50, Breadth: 70, Unit: "cm"},
		Quantity:   4,
		Now:        now,
	})
	require.ErrorIs(t, err, pricing.ErrExceedsStock)

	_, err = pricing.QuoteFor(pricing.QuoteInput{
		Product:    product,
		Dimensions: &catalog.CustomDimensions{Length: 40, Breadth: 70, Unit: "cm"},
		Quantity:   1,
		Now:        now,
	})
	require.ErrorIs(t, err, pricing.ErrUnknownStaticSize)
}

func TestQuoteStaticRowWithoutStockFallsBackToProduct(t *testing.T) {
	var product catalog.Product
	require.NoError(t, json.Unmarshal([]byte(`{
		"_id": "poster",
		"pricingType": "static",
		"hasDimensions": true,
		"stock": 50,
		"staticDimensions": [{"length": 10, "breadth": 5, "unit": "cm", "price": "40"}]
	}`), &product))
	dims := &catalog.CustomDimensions{Length: 10, Breadth: 5, Unit: "cm"}

	q, err := pricing.QuoteFor(pricing.QuoteInput{Product: product, Dimensions: dims, Quantity: 1, Now: now})
	require.NoError(t, err)
	require.Equal(t, 50, *q.Stock)
	require.Equal(t, "40", q.UnitPrice.String())

	_, err = pricing.QuoteFor(pricing.QuoteInput{Product: product, Dimensions: dims, Quantity: 51, Now: now})
	require.ErrorIs(t, err, pricing.ErrExceedsStock)

	product.Stock = nil
	q, err = pricing.QuoteFor(pricing.QuoteInput{Product: product, Dimensions: dims, Quantity: 500, Now: now})
	require.NoError(t, err)
	require.Nil(t, q.Stock)
}
