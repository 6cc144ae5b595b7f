package cart

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/catalog"
)

// Line is one addressable row of the cart.
type Line struct {
	ID         string                    `json:"id,omitempty"`
	ProductID  string                    `json:"productId"`
	Variant    string                    `json:"variant,omitempty"`
	Size       string                    `json:"size,omitempty"`
	Dimensions *catalog.CustomDimensions `json:"customDimensions,omitempty"`
	Quantity   int                       `json:"quantity"`
	UnitPrice  decimal.Decimal           `json:"unitPrice"`
	ListPrice  decimal.Decimal           `json:"listPrice"`
}

// Key returns the canonical key of the line.
func (l Line) Key() Key {
	return NewKey(l.ProductID, l.Variant, l.Size)
}

// Ref returns the address of the line.
func (l Line) Ref() Ref {
	if l.Dimensions != nil {
		return DimensionRef(l.ProductID, *l.Dimensions)
	}
	return KeyRef(l.Key())
}

// IsDimension reports whether the line is identified by its dimensions.
func (l Line) IsDimension() bool {
	return l.Dimensions != nil
}

// Cart is an in-memory snapshot of the remote cart, safe for concurrent use.
type Cart struct {
	mu    sync.RWMutex
	lines []Line
}

// New builds a snapshot from loaded lines.
func New(lines []Line) *Cart {
	c := &Cart{}
	for _, l := range lines {
		c.put(l)
	}
	return c
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lines)
}

// Find returns the line addressed by ref.
func (c *Cart) Find(ref Ref) (Line, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, l := range c.lines {
		if ref.matches(l) {
			return l, true
		}
	}
	return Line{}, false
}

// ProductLines returns every line of the product.
func (c *Cart) ProductLines(productID string) []Line {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []Line{}
	for _, l := range c.lines {
		if l.ProductID == productID {
			out = append(out, l)
		}
	}
	return out
}

// put replaces the line with the same address or appends it.
func (c *Cart) put(line Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref := line.Ref()
	for i := range c.lines {
		if ref.matches(c.lines[i]) {
			c.lines[i] = line
			return
		}
	}
	c.lines = append(c.lines, line)
}

// drop removes the line addressed by ref.
func (c *Cart) drop(ref Ref) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.lines {
		if ref.matches(c.lines[i]) {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}
