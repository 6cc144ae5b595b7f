package storefront

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/catalog"
)

var _ cart.Store = (*Client)(nil)

// cartLine is the storefront wire shape of a cart line. Dimension lines are
// matched remotely by the full custom_dimensions payload.
type cartLine struct {
	ID               string                    `json:"_id,omitempty"`
	ProductID        string                    `json:"productId"`
	Variant          string                    `json:"variant,omitempty"`
	Size             string                    `json:"size,omitempty"`
	Quantity         int                       `json:"quantity"`
	Price            decimal.Decimal           `json:"price"`
	ListPrice        decimal.NullDecimal       `json:"listPrice"`
	CustomDimensions *catalog.CustomDimensions `json:"custom_dimensions,omitempty"`
}

// UnmarshalJSON accepts "id" or "_id", "productId" or a "product" reference given
// as an id string or an object, and "customDimensions" as an alias.
func (l *cartLine) UnmarshalJSON(data []byte) error {
	type alias cartLine
	var payload struct {
		alias
		PlainID       string                    `json:"id"`
		Product       json.RawMessage           `json:"product"`
		CamelDims     *catalog.CustomDimensions `json:"customDimensions"`
		SelectedColor string                    `json:"selectedColor"`
		SelectedSize  string                    `json:"selectedSize"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}
	*l = cartLine(payload.alias)
	if l.ID == "" {
		l.ID = payload.PlainID
	}
	if l.ProductID == "" && len(payload.Product) > 0 {
		l.ProductID = productRef(payload.Product)
	}
	if l.CustomDimensions == nil {
		l.CustomDimensions = payload.CamelDims
	}
	if l.Variant == "" {
		l.Variant = payload.SelectedColor
	}
	if l.Size == "" {
		l.Size = payload.SelectedSize
	}
	return nil
}

func productRef(raw json.RawMessage) string {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var obj struct {
		ID      string `json:"id"`
		MongoID string `json:"_id"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	if obj.ID != "" {
		return obj.ID
	}
	return obj.MongoID
}

func toWire(l cart.Line) cartLine {
	w := cartLine{
		ID:               l.ID,
		ProductID:        l.ProductID,
		Variant:          l.Variant,
		Size:             l.Size,
		Quantity:         l.Quantity,
		Price:            l.UnitPrice,
		CustomDimensions: l.Dimensions,
	}
	if !l.ListPrice.IsZero() {
		w.ListPrice = decimal.NewNullDecimal(l.ListPrice)
	}
	return w
}

func fromWire(w cartLine) cart.Line {
	line := cart.Line{
		ID:         w.ID,
		ProductID:  w.ProductID,
		Variant:    w.Variant,
		Size:       w.Size,
		Dimensions: w.CustomDimensions,
		Quantity:   w.Quantity,
		UnitPrice:  w.Price,
		ListPrice:  w.Price,
	}
	if w.ListPrice.Valid {
		line.ListPrice = w.ListPrice.Decimal
	}
	return line
}

// LoadCart fetches the caller's cart lines.
func (c *Client) LoadCart(ctx context.Context) ([]cart.Line, error) {
	var wire []cartLine
	r := request{op: "get_cart", method: http.MethodGet, path: "/api/cart"}
	if err := c.fetch(ctx, r, &wire, cartKeys...); err != nil {
		return nil, err
	}
	lines := make([]cart.Line, 0, len(wire))
	for _, w := range wire {
		lines = append(lines, fromWire(w))
	}
	return lines, nil
}

// CreateLine adds a line. The storefront may answer with the stored line, the
// whole cart, or nothing; the stored line is used when it can be identified.
func (c *Client) CreateLine(ctx context.Context, line cart.Line) (cart.Line, error) {
	r, err := jsonRequest("add_cart_line", http.MethodPost, "/api/cart", toWire(line))
	if err != nil {
		return cart.Line{}, err
	}
	body, err := c.do(ctx, r)
	if err != nil {
		return cart.Line{}, err
	}
	return createdLine(body, line), nil
}

// UpdateLine sets the absolute quantity of a stored line.
func (c *Client) UpdateLine(ctx context.Context, line cart.Line) error {
	r, err := jsonRequest("update_cart_line", http.MethodPut, "/api/cart", toWire(line))
	if err != nil {
		return err
	}
	_, err = c.do(ctx, r)
	return err
}

// DeleteLine removes a stored line.
func (c *Client) DeleteLine(ctx context.Context, line cart.Line) error {
	r, err := jsonRequest("delete_cart_line", http.MethodDelete, "/api/cart", toWire(line))
	if err != nil {
		return err
	}
	_, err = c.do(ctx, r)
	return err
}

func createdLine(body []byte, sent cart.Line) cart.Line {
	if len(body) == 0 {
		return sent
	}
	ref := sent.Ref()
	var many []cartLine
	if err := decodeEnvelope(body, &many, cartKeys...); err == nil {
		for _, w := range many {
			if l := fromWire(w); ref.String() == l.Ref().String() {
				return merged(sent, l)
			}
		}
		return sent
	}
	var one cartLine
	if err := decodeEnvelope(body, &one, cartKeys...); err == nil && one.ProductID != "" {
		if l := fromWire(one); ref.String() == l.Ref().String() {
			return merged(sent, l)
		}
	}
	return sent
}

// merged keeps the local line and adopts the remote id.
func merged(sent, stored cart.Line) cart.Line {
	if stored.ID != "" {
		sent.ID = stored.ID
	}
	return sent
}
