package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/catalog"
)

// CalculateDimensionPrice prices custom dimensions against a base rate: length ×
// breadth × rate, times height when a height is given. Non-positive sides yield
// zero and ErrInvalidDimensions. Units are never converted.
func CalculateDimensionPrice(dims catalog.CustomDimensions, rate decimal.Decimal) (decimal.Decimal, error) {
	if dims.Length <= 0 || dims.Breadth <= 0 {
		return decimal.Zero, ErrInvalidDimensions
	}
	price := decimal.NewFromFloat(dims.Length).Mul(decimal.NewFromFloat(dims.Breadth))
	if dims.Height != nil {
		if *dims.Height <= 0 {
			return decimal.Zero, ErrInvalidDimensions
		}
		price = price.Mul(decimal.NewFromFloat(*dims.Height))
	}
	return Round2(price.Mul(rate)), nil
}

// DimensionRateFor returns the product's base rate and whether it declares a height unit.
func DimensionRateFor(p catalog.Product) (decimal.Decimal, bool, error) {
	if len(p.Dimensions) == 0 {
		return decimal.Zero, false, ErrNoDimensionRate
	}
	rate := p.Dimensions[0]
	return rate.Price, rate.HeightUnit != "", nil
}

// PriceCustomDimensions prices dims for a dynamic product. A volumetric product
// requires a height; an areal product ignores any height that was sent.
func PriceCustomDimensions(p catalog.Product, dims catalog.CustomDimensions) (decimal.Decimal, catalog.CustomDimensions, error) {
	rate, volumetric, err := DimensionRateFor(p)
	if err != nil {
		return decimal.Zero, dims, err
	}
	if volumetric && dims.Height == nil {
		return decimal.Zero, dims, ErrMissingHeight
	}
	if !volumetric {
		dims.Height = nil
	}
	price, err := CalculateDimensionPrice(dims, rate)
	if err != nil {
		return decimal.Zero, dims, err
	}
	dims.CalculatedPrice = decimal.NewNullDecimal(price)
	return price, dims, nil
}

// LookupStaticDimension finds the chart row with exactly the given tuple.
func LookupStaticDimension(chart []catalog.StaticDimension, dims catalog.CustomDimensions) (catalog.StaticDimension, bool) {
	for _, row := range chart {
		if row.Matches(dims) {
			return row, true
		}
	}
	return catalog.StaticDimension{}, false
}
