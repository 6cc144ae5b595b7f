package pricing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

func TestPriceManyKeepsOrder(t *testing.T) {
	inputs := make([]pricing.QuoteInput, 0, 20)
	for i := 1; i <= 20; i++ {
		inputs = append(inputs, pricing.QuoteInput{
			Product:  catalog.Product{ID: "p", Price: money("2")},
			Quantity: i,
			Now:      now,
		})
	}
	inputs = append(inputs, pricing.QuoteInput{Product: catalog.Product{ID: "bad"}, Quantity: 0})

	results, err := pricing.PriceMany(context.Background(), inputs, 4)
	require.NoError(t, err)
	require.Len(t, results, 21)
	for i := 0; i < 20; i++ {
		require.NoError(t, results[i].Err)
		require.Equal(t, i+1, results[i].Quote.Quantity)
	}
	require.ErrorIs(t, results[20].Err, pricing.ErrInvalidQuantity)
}

func TestPriceManyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pricing.PriceMany(ctx, []pricing.QuoteInput{{Quantity: 1}}, 1)
	require.ErrorIs(t, err, context.Canceled)
}
