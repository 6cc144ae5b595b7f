package catalog_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/catalog"
)

const productPayload = `{
  "_id": "p-1",
  "name": "Acrylic sheet",
  "price": null,
  "hasVariants": true,
  "hasDimensions": false,
  "categoryPath": ["home", "decor"],
  "discountStartDate": "2024-01-01",
  "discountEndDate": "2024-01-31T23:59:59.000Z",
  "discountPrice": 80,
  "variants": [
    {"colorName": "Blue", "commonPrice": "120.50", "moreDetails": []},
    {"colorName": "Red", "isDefault": true, "moreDetails": [
      {"size": {"length": 10, "breadth": 10, "height": 5, "unit": "cm"}, "price": 99.9, "stock": 4,
       "bulkPricingCombinations": [{"wholesalePrice": 90, "quantity": 10}]}
    ]}
  ]
}`

func TestProductDecodeTolerant(t *testing.T) {
	var p catalog.Product
	require.NoError(t, json.Unmarshal([]byte(productPayload), &p))

	require.Equal(t, "p-1", p.ID)
	require.False(t, p.Price.Valid)
	require.Nil(t, p.Stock)
	require.True(t, p.DiscountPrice.Valid)
	require.Equal(t, "80", p.DiscountPrice.Decimal.String())
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), p.DiscountStartDate.Time)
	require.True(t, p.DiscountEndDate.Defined())

	def, ok := p.DefaultVariant()
	require.True(t, ok)
	require.Equal(t, "Red", def.ColorName)

	size, ok := def.SizeByLabel("10×10×5 cm")
	require.True(t, ok)
	require.Equal(t, "99.9", size.Price.Decimal.String())
	require.Equal(t, 4, *size.Stock)
	require.Len(t, size.BulkPricingCombinations, 1)

	blue, ok := p.VariantByName("blue")
	require.True(t, ok)
	require.Equal(t, "120.5", blue.CommonPrice.Decimal.String())

	require.True(t, p.InCategory("decor"))
	require.False(t, p.InCategory(""))
}

func TestTimestampRejectsGarbage(t *testing.T) {
	var ts catalog.Timestamp
	require.Error(t, json.Unmarshal([]byte(`"next tuesday"`), &ts))
	require.NoError(t, json.Unmarshal([]byte(`""`), &ts))
	require.False(t, ts.Defined())
}

func TestSnapshotRoundTripKeepsNulls(t *testing.T) {
	var p catalog.Product
	require.NoError(t, json.Unmarshal([]byte(productPayload), &p))
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var again catalog.Product
	require.NoError(t, json.Unmarshal(data, &again))
	require.Equal(t, p.ID, again.ID)
	require.False(t, again.Price.Valid)
	require.True(t, again.DiscountStartDate.Time.Equal(p.DiscountStartDate.Time))
}

func TestPricingTypeRequiresDimensions(t *testing.T) {
	p := catalog.Product{PricingType: catalog.PricingDynamic}
	require.Equal(t, catalog.PricingNormal, p.Pricing())
	p.HasDimensions = true
	require.Equal(t, catalog.PricingDynamic, p.Pricing())
	p.PricingType = "STATIC"
	require.Equal(t, catalog.PricingStatic, p.Pricing())
}

func TestFormatSize(t *testing.T) {
	require.Equal(t, "10×10×10 cm", catalog.FormatSize(catalog.Size{Length: 10, Breadth: 10, Height: 10, Unit: "cm"}))
	require.Equal(t, "2.5×3 m", catalog.FormatSize(catalog.Size{Length: 2.5, Breadth: 3, Unit: "m"}))
	h := 4.0
	require.Equal(t, "2×3×4 ft", catalog.FormatDimensions(catalog.CustomDimensions{Length: 2, Breadth: 3, Height: &h, Unit: "ft"}))
}

func TestSameTuple(t *testing.T) {
	h1, h2 := 5.0, 5.0
	a := catalog.CustomDimensions{Length: 10, Breadth: 10, Height: &h1, Unit: "cm"}
	b := catalog.CustomDimensions{Length: 10, Breadth: 10, Height: &h2, Unit: "cm"}
	require.True(t, a.SameTuple(b))

	b.Height = nil
	require.False(t, a.SameTuple(b))
	b.Height = &h2
	b.Unit = "in"
	require.False(t, a.SameTuple(b))
}

func TestValidateVariants(t *testing.T) {
	p := catalog.Product{ID: "p", HasVariants: true, Variants: []catalog.Variant{{ColorName: "A"}, {ColorName: "B"}}}
	require.ErrorIs(t, catalog.ValidateVariants(p), catalog.ErrNoDefaultVariant)

	p.Variants[0].IsDefault = true
	require.NoError(t, catalog.ValidateVariants(p))

	p.Variants[1].IsDefault = true
	require.ErrorIs(t, catalog.ValidateVariants(p), catalog.ErrMultipleDefaultVariants)
}
