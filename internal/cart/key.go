package cart

import (
	"strings"

	"github.com/noah-isme/toko-pricing/internal/catalog"
)

// defaultPart stands in for an absent variant or size in a key.
const defaultPart = "default"

// Key identifies a non-dimension cart line.
type Key struct {
	ProductID string
	Variant   string
	Size      string
}

// NewKey canonicalises the parts: surrounding space is trimmed and blanks become
// "default". Size labels must come from catalog.FormatSize.
func NewKey(productID, variant, size string) Key {
	return Key{
		ProductID: strings.TrimSpace(productID),
		Variant:   canonicalPart(variant),
		Size:      canonicalPart(size),
	}
}

// CartKey returns the string form of the line key for a product selection.
func CartKey(productID, variant, size string) string {
	return NewKey(productID, variant, size).String()
}

// String renders productID-variant-size.
func (k Key) String() string {
	return k.ProductID + "-" + canonicalPart(k.Variant) + "-" + canonicalPart(k.Size)
}

func canonicalPart(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return defaultPart
	}
	return v
}

// Ref addresses a line: by key for catalog priced lines, or by product and exact
// dimension tuple for dimension lines.
type Ref struct {
	Key        Key
	Dimensions *catalog.CustomDimensions
}

// KeyRef addresses a non-dimension line.
func KeyRef(k Key) Ref {
	return Ref{Key: k}
}

// DimensionRef addresses the dimension line of productID with exactly dims.
func DimensionRef(productID string, dims catalog.CustomDimensions) Ref {
	return Ref{Key: NewKey(productID, "", ""), Dimensions: &dims}
}

// IsDimension reports whether the ref addresses a dimension line.
func (r Ref) IsDimension() bool {
	return r.Dimensions != nil
}

// String is unique per addressed line. Dimension sides use the shortest exact
// float representation so distinct tuples never collide.
func (r Ref) String() string {
	if r.Dimensions == nil {
		return r.Key.String()
	}
	return r.Key.ProductID + "#" + catalog.FormatDimensions(*r.Dimensions)
}

func (r Ref) matches(l Line) bool {
	if r.Dimensions == nil {
		return l.Dimensions == nil && l.Key() == r.Key
	}
	return l.Dimensions != nil && l.ProductID == r.Key.ProductID && l.Dimensions.SameTuple(*r.Dimensions)
}
