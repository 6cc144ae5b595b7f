package catalog

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// PricingType selects how a dimension product is priced.
type PricingType string

const (
	// PricingNormal prices from the catalog price chain.
	PricingNormal PricingType = "normal"
	// PricingDynamic prices from customer dimensions and a base rate.
	PricingDynamic PricingType = "dynamic"
	// PricingStatic prices from a precomputed dimension chart.
	PricingStatic PricingType = "static"
)

// BulkPricingTier is a price break: from Quantity units on, the unit price is WholesalePrice.
type BulkPricingTier struct {
	WholesalePrice decimal.Decimal `json:"wholesalePrice"`
	Quantity       int             `json:"quantity"`
}

// Size is the physical size of a variant entry.
type Size struct {
	Length  float64 `json:"length"`
	Breadth float64 `json:"breadth"`
	Height  float64 `json:"height,omitempty"`
	Unit    string  `json:"unit"`
}

// SizeDetail is one per-size entry of a variant.
type SizeDetail struct {
	Size                    Size                `json:"size"`
	Price                   decimal.NullDecimal `json:"price"`
	Stock                   *int                `json:"stock,omitempty"`
	BulkPricingCombinations []BulkPricingTier   `json:"bulkPricingCombinations,omitempty"`
	DiscountStartDate       Timestamp           `json:"discountStartDate"`
	DiscountEndDate         Timestamp           `json:"discountEndDate"`
	DiscountPrice           decimal.NullDecimal `json:"discountPrice"`
}

// Label returns the canonical size label used in cart keys.
func (d SizeDetail) Label() string {
	return FormatSize(d.Size)
}

// Variant groups size entries sharing a colour.
type Variant struct {
	ColorName   string              `json:"colorName"`
	CommonPrice decimal.NullDecimal `json:"commonPrice"`
	CommonStock *int                `json:"commonStock,omitempty"`
	MoreDetails []SizeDetail        `json:"moreDetails,omitempty"`
	IsDefault   bool                `json:"isDefault"`
}

// SizeByLabel finds the size entry whose canonical label equals label.
func (v *Variant) SizeByLabel(label string) (*SizeDetail, bool) {
	if v == nil {
		return nil, false
	}
	label = strings.TrimSpace(label)
	for i := range v.MoreDetails {
		if v.MoreDetails[i].Label() == label {
			return &v.MoreDetails[i], true
		}
	}
	return nil, false
}

// DimensionRate is an entry of the dynamic pricing rate table. Price is per unit
// of area, or per unit of volume when HeightUnit is set.
type DimensionRate struct {
	Unit       string          `json:"unit"`
	HeightUnit string          `json:"heightUnit,omitempty"`
	Price      decimal.Decimal `json:"price"`
}

// StaticDimension is a row of a precomputed dimension price chart.
type StaticDimension struct {
	Length  float64         `json:"length"`
	Breadth float64         `json:"breadth"`
	Height  *float64        `json:"height,omitempty"`
	Unit    string          `json:"unit"`
	Price   decimal.Decimal `json:"price"`
	// Stock is nil when the row carries no stock of its own.
	Stock   *int            `json:"stock,omitempty"`
}

// CustomDimensions are customer submitted measurements. A present Height switches
// pricing from area to volume.
type CustomDimensions struct {
	Length          float64             `json:"length"`
	Breadth         float64             `json:"breadth"`
	Height          *float64            `json:"height,omitempty"`
	Unit            string              `json:"unit"`
	CalculatedPrice decimal.NullDecimal `json:"calculatedPrice"`
}

// HasHeight reports whether a height was submitted.
func (c CustomDimensions) HasHeight() bool {
	return c.Height != nil
}

// SameTuple compares {length, breadth, height, unit} exactly. The calculated price
// is not part of the identity.
func (c CustomDimensions) SameTuple(other CustomDimensions) bool {
	if c.Length != other.Length || c.Breadth != other.Breadth || c.Unit != other.Unit {
		return false
	}
	if c.Height == nil || other.Height == nil {
		return c.Height == nil && other.Height == nil
	}
	return *c.Height == *other.Height
}

// Matches reports whether the static chart row has exactly this tuple.
func (s StaticDimension) Matches(dims CustomDimensions) bool {
	return CustomDimensions{Length: s.Length, Breadth: s.Breadth, Height: s.Height, Unit: s.Unit}.SameTuple(dims)
}

// DiscountCampaign is a time bounded percentage discount scoped to all products or a category.
type DiscountCampaign struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name,omitempty"`
	StartDate            Timestamp       `json:"startDate"`
	EndDate              Timestamp       `json:"endDate"`
	DiscountPercentage   decimal.Decimal `json:"discountPercentage"`
	IsActive             bool            `json:"isActive"`
	ApplicableToAll      bool            `json:"applicableToAll"`
	SelectedMainCategory string          `json:"selectedMainCategory,omitempty"`
	SelectedSubCategory  string          `json:"selectedSubCategory,omitempty"`
}

// UnmarshalJSON accepts both "id" and "_id".
func (c *DiscountCampaign) UnmarshalJSON(data []byte) error {
	type alias DiscountCampaign
	var payload struct {
		alias
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	*c = DiscountCampaign(payload.alias)
	if c.ID == "" {
		c.ID = payload.MongoID
	}
	return nil
}

// Product is a read-only snapshot of a storefront product.
type Product struct {
	ID                string              `json:"id"`
	Name              string              `json:"name,omitempty"`
	Price             decimal.NullDecimal `json:"price"`
	Stock             *int                `json:"stock,omitempty"`
	BulkPricing       []BulkPricingTier   `json:"bulkPricing,omitempty"`
	HasVariants       bool                `json:"hasVariants"`
	Variants          []Variant           `json:"variants,omitempty"`
	HasDimensions     bool                `json:"hasDimensions"`
	PricingType       PricingType         `json:"pricingType,omitempty"`
	Dimensions        []DimensionRate     `json:"dimensions,omitempty"`
	StaticDimensions  []StaticDimension   `json:"staticDimensions,omitempty"`
	DiscountStartDate Timestamp           `json:"discountStartDate"`
	DiscountEndDate   Timestamp           `json:"discountEndDate"`
	DiscountPrice     decimal.NullDecimal `json:"discountPrice"`
	CategoryID        string              `json:"categoryId,omitempty"`
	CategoryPath      []string            `json:"categoryPath,omitempty"`
}

// UnmarshalJSON accepts both "id" and "_id".
func (p *Product) UnmarshalJSON(data []byte) error {
	type alias Product
	var payload struct {
		alias
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	*p = Product(payload.alias)
	if p.ID == "" {
		p.ID = payload.MongoID
	}
	return nil
}

// Pricing returns the effective pricing type; products without dimensions are always normal.
func (p *Product) Pricing() PricingType {
	if p == nil || !p.HasDimensions {
		return PricingNormal
	}
	switch PricingType(strings.ToLower(strings.TrimSpace(string(p.PricingType)))) {
	case PricingDynamic:
		return PricingDynamic
	case PricingStatic:
		return PricingStatic
	default:
		return PricingNormal
	}
}

// DefaultVariant returns the variant flagged as default, else the first one.
func (p *Product) DefaultVariant() (*Variant, bool) {
	if p == nil || len(p.Variants) == 0 {
		return nil, false
	}
	for i := range p.Variants {
		if p.Variants[i].IsDefault {
			return &p.Variants[i], true
		}
	}
	return &p.Variants[0], true
}

// VariantByName finds a variant by colour name (case-insensitive). An empty name,
// or "default" when no variant carries that name, selects the default variant.
func (p *Product) VariantByName(name string) (*Variant, bool) {
	if p == nil {
		return nil, false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return p.DefaultVariant()
	}
	for i := range p.Variants {
		if strings.EqualFold(p.Variants[i].ColorName, name) {
			return &p.Variants[i], true
		}
	}
	if strings.EqualFold(name, "default") {
		return p.DefaultVariant()
	}
	return nil, false
}

// InCategory reports whether id is part of the product's category chain.
func (p *Product) InCategory(id string) bool {
	if p == nil || strings.TrimSpace(id) == "" {
		return false
	}
	for _, c := range p.CategoryPath {
		if c == id {
			return true
		}
	}
	return false
}
