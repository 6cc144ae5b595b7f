package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// Store persists cart lines in the external cart API. Update and Delete receive the
// full stored line so dimension lines carry their complete dimension payload.
type Store interface {
	LoadCart(ctx context.Context) ([]Line, error)
	CreateLine(ctx context.Context, line Line) (Line, error)
	UpdateLine(ctx context.Context, line Line) error
	DeleteLine(ctx context.Context, line Line) error
}

// Item is a priced selection about to enter the cart.
type Item struct {
	ProductID  string
	Variant    string
	Size       string
	Dimensions *catalog.CustomDimensions
	Quantity   int
	// Stock is nil when no stock is defined for the selection.
	Stock     *int
	UnitPrice decimal.Decimal
	ListPrice decimal.Decimal

	tiers []catalog.BulkPricingTier
}

// Ref returns the address of the line the item belongs to.
func (it Item) Ref() Ref {
	if it.Dimensions != nil {
		return DimensionRef(it.ProductID, *it.Dimensions)
	}
	return KeyRef(NewKey(it.ProductID, it.Variant, it.Size))
}

func (it Item) line(qty int) Line {
	line := Line{
		ProductID: it.ProductID,
		Quantity:  qty,
		UnitPrice: it.UnitPrice,
		ListPrice: it.ListPrice,
	}
	if it.Dimensions != nil {
		dims := *it.Dimensions
		line.Dimensions = &dims
		return line
	}
	line.Variant = strings.TrimSpace(it.Variant)
	line.Size = strings.TrimSpace(it.Size)
	return line
}

// Service reconciles local cart intent with the external cart API.
type Service struct {
	Store  Store
	Logger zerolog.Logger
}

// NewService builds a cart service.
func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{Store: store, Logger: logger}
}

// Load fetches the current cart snapshot.
func (s *Service) Load(ctx context.Context) (*Cart, error) {
	if s == nil || s.Store == nil {
		return nil, ErrStoreNotConfigured
	}
	lines, err := s.Store.LoadCart(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	return New(lines), nil
}

// AddOrMerge adds the item to the cart. An existing line with the same identity is
// updated to the summed quantity instead of creating a duplicate.
func (s *Service) AddOrMerge(ctx context.Context, c *Cart, item Item) (line Line, err error) {
	defer func() { obs.ObserveCartMutation("add", err) }()
	if s == nil || s.Store == nil {
		return Line{}, ErrStoreNotConfigured
	}
	if err := validateItem(item); err != nil {
		return Line{}, err
	}
	ref := item.Ref()
	if existing, ok := c.Find(ref); ok {
		merged := existing.Quantity + item.Quantity
		if err := checkStock(merged, item.Stock); err != nil {
			return Line{}, err
		}
		existing.Quantity = merged
		existing.UnitPrice = item.UnitPrice
		existing.ListPrice = item.ListPrice
		if err := s.Store.UpdateLine(ctx, existing); err != nil {
			return Line{}, fmt.Errorf("merge cart line %s: %w", ref, err)
		}
		c.put(existing)
		s.Logger.Info().Str("line", ref.String()).Int("quantity", merged).Msg("cart line merged")
		return existing, nil
	}
	if err := checkStock(item.Quantity, item.Stock); err != nil {
		return Line{}, err
	}
	created, err := s.Store.CreateLine(ctx, item.line(item.Quantity))
	if err != nil {
		return Line{}, fmt.Errorf("create cart line %s: %w", ref, err)
	}
	c.put(created)
	s.Logger.Info().Str("line", ref.String()).Int("quantity", created.Quantity).Msg("cart line created")
	return created, nil
}

// UpdateQuantity moves the line quantity by delta. The result is clamped to one; a
// result above stock is rejected; an unchanged quantity makes no remote call.
func (s *Service) UpdateQuantity(ctx context.Context, c *Cart, ref Ref, delta int, stock *int) (Line, error) {
	return s.updateQuantity(ctx, c, ref, delta, stock, decimal.NullDecimal{})
}

// RepriceQuantity is UpdateQuantity with the unit price recomputed for the new
// quantity, so bulk tiers follow the line.
func (s *Service) RepriceQuantity(ctx context.Context, c *Cart, ref Ref, delta int, stock *int, unitPrice decimal.Decimal) (Line, error) {
	return s.updateQuantity(ctx, c, ref, delta, stock, decimal.NewNullDecimal(unitPrice))
}

func (s *Service) updateQuantity(ctx context.Context, c *Cart, ref Ref, delta int, stock *int, unitPrice decimal.NullDecimal) (line Line, err error) {
	defer func() { obs.ObserveCartMutation("update_quantity", err) }()
	if s == nil || s.Store == nil {
		return Line{}, ErrStoreNotConfigured
	}
	line, ok := c.Find(ref)
	if !ok {
		return Line{}, fmt.Errorf("%w: %s", ErrLineNotFound, ref)
	}
	next := ClampQuantity(line.Quantity + delta)
	if next == line.Quantity {
		return line, nil
	}
	if err := checkStock(next, stock); err != nil {
		return Line{}, err
	}
	line.Quantity = next
	if unitPrice.Valid {
		line.UnitPrice = unitPrice.Decimal
	}
	if err := s.Store.UpdateLine(ctx, line); err != nil {
		return Line{}, fmt.Errorf("update cart line %s: %w", ref, err)
	}
	c.put(line)
	s.Logger.Info().Str("line", ref.String()).Int("quantity", next).Msg("cart line quantity updated")
	return line, nil
}

// Remove deletes the addressed line.
func (s *Service) Remove(ctx context.Context, c *Cart, ref Ref) (err error) {
	defer func() { obs.ObserveCartMutation("remove", err) }()
	if s == nil || s.Store == nil {
		return ErrStoreNotConfigured
	}
	line, ok := c.Find(ref)
	if !ok {
		return fmt.Errorf("%w: %s", ErrLineNotFound, ref)
	}
	if err := s.Store.DeleteLine(ctx, line); err != nil {
		return fmt.Errorf("delete cart line %s: %w", ref, err)
	}
	c.drop(ref)
	s.Logger.Info().Str("line", ref.String()).Msg("cart line removed")
	return nil
}

// ReplaceDimensions moves a dimension line to next.Dimensions. A changed tuple
// deletes the old line and then creates the new one; the stored line is never
// mutated in place. An unchanged tuple updates the quantity and prices. When the create
// fails after the delete succeeded a *PartialReplaceError is returned.
func (s *Service) ReplaceDimensions(ctx context.Context, c *Cart, old Ref, next Item) (line Line, err error) {
	defer func() { obs.ObserveCartMutation("replace_dimensions", err) }()
	if s == nil || s.Store == nil {
		return Line{}, ErrStoreNotConfigured
	}
	if !old.IsDimension() || next.Dimensions == nil {
		return Line{}, fmt.Errorf("replace dimensions: %w", pricing.ErrMissingDimensions)
	}
	if err := validateItem(next); err != nil {
		return Line{}, err
	}
	current, ok := c.Find(old)
	if !ok {
		return Line{}, fmt.Errorf("%w: %s", ErrLineNotFound, old)
	}

	if current.Dimensions.SameTuple(*next.Dimensions) {
		if current.Quantity == next.Quantity {
			return current, nil
		}
		if err := checkStock(next.Quantity, next.Stock); err != nil {
			return Line{}, err
		}
		current.Quantity = next.Quantity
		current.UnitPrice = next.UnitPrice
		current.ListPrice = next.ListPrice
		if err := s.Store.UpdateLine(ctx, current); err != nil {
			return Line{}, fmt.Errorf("update cart line %s: %w", old, err)
		}
		c.put(current)
		s.Logger.Info().Str("line", old.String()).Int("quantity", current.Quantity).Msg("cart line quantity updated")
		return current, nil
	}

	target := next.Ref()
	existing, merge := c.Find(target)
	qty := next.Quantity
	if merge {
		qty += existing.Quantity
	}
	if err := checkStock(qty, next.Stock); err != nil {
		return Line{}, err
	}

	if err := s.Store.DeleteLine(ctx, current); err != nil {
		return Line{}, fmt.Errorf("delete cart line %s: %w", old, err)
	}
	c.drop(old)

	if merge {
		existing.Quantity = qty
		existing.UnitPrice = next.UnitPrice
		existing.ListPrice = next.ListPrice
		err = s.Store.UpdateLine(ctx, existing)
		line = existing
	} else {
		line, err = s.Store.CreateLine(ctx, next.line(qty))
	}
	if err != nil {
		obs.ObservePartialReplace()
		s.Logger.Error().Err(err).
			Str("removed", old.String()).
			Str("attempted", target.String()).
			Msg("cart dimension replace left half applied")
		return Line{}, &PartialReplaceError{Removed: current, Attempted: next.line(qty), Err: err}
	}
	c.put(line)
	s.Logger.Info().Str("removed", old.String()).Str("line", target.String()).Int("quantity", qty).Msg("cart line dimensions replaced")
	return line, nil
}

// ClampQuantity keeps a line quantity at one or above.
func ClampQuantity(qty int) int {
	if qty < 1 {
		return 1
	}
	return qty
}

func validateItem(item Item) error {
	if item.Quantity < 1 {
		return pricing.ErrInvalidQuantity
	}
	if d := item.Dimensions; d != nil {
		if d.Length <= 0 || d.Breadth <= 0 || (d.Height != nil && *d.Height <= 0) {
			return pricing.ErrInvalidDimensions
		}
	}
	return nil
}

func checkStock(qty int, stock *int) error {
	if stock == nil {
		return pricing.CheckQuantity(qty, 0, false)
	}
	return pricing.CheckQuantity(qty, *stock, true)
}
