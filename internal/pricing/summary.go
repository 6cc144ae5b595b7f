package pricing

import "github.com/shopspring/decimal"

// Item describes a priced line used for cart totals.
type Item struct {
	Qty       int
	UnitPrice decimal.Decimal
	ListPrice decimal.Decimal
}

// Summary aggregates computed pricing components.
type Summary struct {
	Units    int             `json:"units"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Savings  decimal.Decimal `json:"savings"`
	Total    decimal.Decimal `json:"total"`
}

// Summarize totals the items. Lines with a non-positive quantity are skipped and
// savings never go negative per line.
func Summarize(items []Item) Summary {
	var (
		units    int
		subtotal = decimal.Zero
		savings  = decimal.Zero
	)
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		qty := decimal.NewFromInt(int64(it.Qty))
		units += it.Qty
		subtotal = subtotal.Add(it.UnitPrice.Mul(qty))
		if it.ListPrice.GreaterThan(it.UnitPrice) {
			savings = savings.Add(it.ListPrice.Sub(it.UnitPrice).Mul(qty))
		}
	}
	return Summary{
		Units:    units,
		Subtotal: Round2(subtotal),
		Savings:  Round2(savings),
		Total:    Round2(subtotal),
	}
}
