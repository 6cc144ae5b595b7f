package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/discount"
)

// Selection names a product configuration by product id, as clients submit it.
type Selection struct {
	ProductID  string                    `json:"productId" validate:"required"`
	Variant    string                    `json:"variant,omitempty"`
	Size       string                    `json:"size,omitempty"`
	Dimensions *catalog.CustomDimensions `json:"customDimensions,omitempty"`
	Quantity   int                       `json:"quantity" validate:"gte=1"`
}

// QuoteInput selects a product configuration and quantity to price.
type QuoteInput struct {
	Product     catalog.Product
	VariantName string
	SizeLabel   string
	Dimensions  *catalog.CustomDimensions
	Quantity    int
	Campaigns   []catalog.DiscountCampaign
	Now         time.Time
}

// Quote is a priced product configuration.
type Quote struct {
	ProductID    string                    `json:"productId"`
	Variant      string                    `json:"variant,omitempty"`
	Size         string                    `json:"size,omitempty"`
	Dimensions   *catalog.CustomDimensions `json:"customDimensions,omitempty"`
	Quantity     int                       `json:"quantity"`
	BasePrice    decimal.Decimal           `json:"basePrice"`
	DisplayPrice decimal.Decimal           `json:"displayPrice"`
	UnitPrice    decimal.Decimal           `json:"unitPrice"`
	Total        decimal.Decimal           `json:"total"`
	FlatDiscount bool                      `json:"flatDiscount"`
	CampaignID   string                    `json:"campaignId,omitempty"`
	Tiers        []catalog.BulkPricingTier `json:"tiers,omitempty"`
	Stock        *int                      `json:"stock,omitempty"`
}

// QuoteFor prices the input. It fails only on invalid selections, dimensions or quantities.
func QuoteFor(in QuoteInput) (Quote, error) {
	if in.Quantity < 1 {
		return Quote{}, ErrInvalidQuantity
	}
	switch in.Product.Pricing() {
	case catalog.PricingDynamic:
		return quoteDynamic(in)
	case catalog.PricingStatic:
		return quoteStatic(in)
	default:
		return quoteCatalog(in)
	}
}

func quoteCatalog(in QuoteInput) (Quote, error) {
	p := in.Product
	var (
		variant *catalog.Variant
		size    *catalog.SizeDetail
	)
	named := strings.TrimSpace(in.VariantName) != "" && !strings.EqualFold(strings.TrimSpace(in.VariantName), "default")
	if named || (p.HasVariants && len(p.Variants) > 0) {
		v, ok := p.VariantByName(in.VariantName)
		if !ok {
			return Quote{}, fmt.Errorf("%q: %w", in.VariantName, ErrUnknownVariant)
		}
		variant = v
	}
	if label := strings.TrimSpace(in.SizeLabel); label != "" && !strings.EqualFold(label, "default") {
		s, ok := variant.SizeByLabel(label)
		if !ok {
			return Quote{}, fmt.Errorf("%q: %w", in.SizeLabel, ErrUnknownSize)
		}
		size = s
	}

	stock, known := ResolveStock(p, variant, size)
	if err := CheckQuantity(in.Quantity, stock, known); err != nil {
		return Quote{}, err
	}

	price := DisplayPrice(Input{Product: p, Variant: variant, Size: size, Campaigns: in.Campaigns, Now: in.Now})
	tiers := AdjustTiers(TiersFor(p, size), price.Campaign)
	unit := EffectiveUnitPrice(in.Quantity, tiers, price.Display)

	q := newQuote(in, price, unit)
	if variant != nil {
		q.Variant = variant.ColorName
	}
	if size != nil {
		q.Size = size.Label()
	}
	q.Tiers = tiers
	if known {
		q.Stock = &stock
	}
	return q, nil
}

func quoteDynamic(in QuoteInput) (Quote, error) {
	if in.Dimensions == nil {
		return Quote{}, ErrMissingDimensions
	}
	base, dims, err := PriceCustomDimensions(in.Product, *in.Dimensions)
	if err != nil {
		return Quote{}, err
	}
	stock, known := ResolveStock(in.Product, nil, nil)
	if err := CheckQuantity(in.Quantity, stock, known); err != nil {
		return Quote{}, err
	}
	price := campaignOnly(in, base)
	q := newQuote(in, price, price.Display)
	q.Dimensions = &dims
	if known {
		q.Stock = &stock
	}
	return q, nil
}

func quoteStatic(in QuoteInput) (Quote, error) {
	if in.Dimensions == nil {
		return Quote{}, ErrMissingDimensions
	}
	row, ok := LookupStaticDimension(in.Product.StaticDimensions, *in.Dimensions)
	if !ok {
		return Quote{}, ErrUnknownStaticSize
	}
	stock, known := staticStock(in.Product, row)
	if err := CheckQuantity(in.Quantity, stock, known); err != nil {
		return Quote{}, err
	}
	price := campaignOnly(in, row.Price)
	dims := *in.Dimensions
	dims.CalculatedPrice = decimal.NewNullDecimal(row.Price)
	q := newQuote(in, price, price.Display)
	q.Dimensions = &dims
	if known {
		q.Stock = &stock
	}
	return q, nil
}

// staticStock prefers the chart row's stock and falls back to the product stock.
func staticStock(p catalog.Product, row catalog.StaticDimension) (int, bool) {
	if row.Stock != nil {
		return *row.Stock, true
	}
	return ResolveStock(p, nil, nil)
}

// campaignOnly prices dimension products: they carry no flat discount price, so
// only the campaign stage runs.
func campaignOnly(in QuoteInput, base decimal.Decimal) Price {
	campaign := discount.Resolve(in.Product, in.Campaigns, in.Now)
	return Price{
		Base:     base,
		Display:  Round2(ApplyCampaignPercentage(base, campaign)),
		Campaign: campaign,
	}
}

func newQuote(in QuoteInput, price Price, unit decimal.Decimal) Quote {
	q := Quote{
		ProductID:    in.Product.ID,
		Quantity:     in.Quantity,
		BasePrice:    price.Base,
		DisplayPrice: price.Display,
		UnitPrice:    unit,
		Total:        Round2(unit.Mul(decimal.NewFromInt(int64(in.Quantity)))),
		FlatDiscount: price.FlatApplied,
	}
	if price.Campaign != nil {
		q.CampaignID = price.Campaign.ID
	}
	return q
}
