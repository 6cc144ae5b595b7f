package cart_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/catalog"
)

func TestCartKeyCanonicalisesMissingParts(t *testing.T) {
	require.Equal(t, "p1-default-default", cart.CartKey("p1", "", ""))
	require.Equal(t, "p1-Red-default", cart.CartKey("p1", "Red", "  "))
	require.Equal(t, cart.CartKey("p1", "", ""), cart.CartKey(" p1 ", "default", "default"))
}

func TestCartKeyDistinguishesSizesByCanonicalLabel(t *testing.T) {
	tall := catalog.FormatSize(catalog.Size{Length: 10, Breadth: 10, Height: 10, Unit: "cm"})
	short := catalog.FormatSize(catalog.Size{Length: 10, Breadth: 10, Height: 5, Unit: "cm"})
	require.Equal(t, "10×10×10 cm", tall)
	require.Equal(t, "10×10×5 cm", short)

	require.NotEqual(t, cart.CartKey("p1", "Red", tall), cart.CartKey("p1", "Red", short))
	require.Equal(t, cart.CartKey("p1", "Red", tall), cart.CartKey("p1", "Red", tall))
}

func TestDimensionRefMatchesExactTuple(t *testing.T) {
	h := 2.0
	withHeight := catalog.CustomDimensions{Length: 10, Breadth: 5, Height: &h, Unit: "cm"}
	flat := catalog.CustomDimensions{Length: 10, Breadth: 5, Unit: "cm"}

	c := cart.New([]cart.Line{{ProductID: "p1", Dimensions: &withHeight, Quantity: 1}})

	_, ok := c.Find(cart.DimensionRef("p1", withHeight))
	require.True(t, ok)
	_, ok = c.Find(cart.DimensionRef("p1", flat))
	require.False(t, ok)
	_, ok = c.Find(cart.KeyRef(cart.NewKey("p1", "", "")))
	require.False(t, ok)
	require.NotEqual(t, cart.DimensionRef("p1", withHeight).String(), cart.DimensionRef("p1", flat).String())
}

func TestNewCollapsesDuplicateKeys(t *testing.T) {
	c := cart.New([]cart.Line{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p1", Variant: "default", Quantity: 4},
	})
	require.Equal(t, 1, c.Len())
	line, ok := c.Find(cart.KeyRef(cart.NewKey("p1", "", "")))
	require.True(t, ok)
	require.Equal(t, 4, line.Quantity)
}
