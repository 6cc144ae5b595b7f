package cart

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/lock"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// Pricer quotes a selection against the current product and campaign snapshots.
type Pricer interface {
	Quote(ctx context.Context, sel pricing.Selection) (pricing.Quote, error)
}

// Locker serializes work on one key across processes.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Handler wires the reconciliation service to HTTP.
type Handler struct {
	Svc    *Service
	Pricer Pricer
	// Locker, when set, holds a per cart lock from snapshot load until the last
	// mutation so concurrent requests cannot interleave a delete and create.
	Locker  Locker
	LockTTL time.Duration
	// Concurrency bounds the lines processed at once by the batch endpoint.
	Concurrency int
	Logger      zerolog.Logger
}

type lineRef struct {
	ProductID  string                    `json:"productId" validate:"required"`
	Variant    string                    `json:"variant"`
	Size       string                    `json:"size"`
	Dimensions *catalog.CustomDimensions `json:"customDimensions"`
}

func (l lineRef) ref() Ref {
	if l.Dimensions != nil {
		return DimensionRef(l.ProductID, *l.Dimensions)
	}
	return KeyRef(NewKey(l.ProductID, l.Variant, l.Size))
}

type addLineRequest struct {
	lineRef
	Quantity int `json:"quantity" validate:"gte=1"`
}

type updateQuantityRequest struct {
	lineRef
	Delta int `json:"delta" validate:"ne=0"`
}

type replaceDimensionsRequest struct {
	ProductID string                   `json:"productId" validate:"required"`
	From      catalog.CustomDimensions `json:"from"`
	To        catalog.CustomDimensions `json:"to"`
	Quantity  int                      `json:"quantity" validate:"gte=1"`
}

type batchRequest struct {
	Ops []batchOp `json:"ops" validate:"required,min=1,max=100,dive"`
}

type batchOp struct {
	Op string `json:"op" validate:"oneof=add update_quantity remove replace_dimensions"`
	lineRef
	Quantity int                       `json:"quantity"`
	Delta    int                       `json:"delta"`
	To       *catalog.CustomDimensions `json:"to"`
}

type cartView struct {
	Lines   []Line          `json:"lines"`
	Summary pricing.Summary `json:"summary"`
}

// Get returns the cart lines and totals. A productId query narrows both to the
// lines of that product.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.Svc.Load(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if id := strings.TrimSpace(r.URL.Query().Get("productId")); id != "" {
		common.JSON(w, http.StatusOK, map[string]any{"data": summarize(c.ProductLines(id))})
		return
	}
	h.render(w, http.StatusOK, c)
}

// AddLine prices the selection and merges it into the cart.
func (h *Handler) AddLine(w http.ResponseWriter, r *http.Request) {
	var payload addLineRequest
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.withCart(r, func(ctx context.Context, c *Cart) error {
		item, err := h.priceAdd(ctx, c, payload.lineRef, payload.Quantity)
		if err != nil {
			return err
		}
		_, err = h.Svc.AddOrMerge(ctx, c, item)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, c)
}

// UpdateQuantity moves a line quantity by delta and reprices it.
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var payload updateQuantityRequest
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.withCart(r, func(ctx context.Context, c *Cart) error {
		op, err := h.priceUpdate(ctx, c, payload.ref(), payload.Delta)
		if err != nil {
			return err
		}
		_, err = h.Svc.RepriceQuantity(ctx, c, op.Ref, op.Delta, op.Stock, op.Item.UnitPrice)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, c)
}

// RemoveLine deletes a line.
func (h *Handler) RemoveLine(w http.ResponseWriter, r *http.Request) {
	var payload lineRef
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.withCart(r, func(ctx context.Context, c *Cart) error {
		return h.Svc.Remove(ctx, c, payload.ref())
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, c)
}

// ReplaceDimensions moves a dimension line to new measurements.
func (h *Handler) ReplaceDimensions(w http.ResponseWriter, r *http.Request) {
	var payload replaceDimensionsRequest
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	c, err := h.withCart(r, func(ctx context.Context, c *Cart) error {
		item, err := h.priceItem(ctx, pricing.Selection{ProductID: payload.ProductID, Dimensions: &payload.To, Quantity: payload.Quantity})
		if err != nil {
			return err
		}
		item.Quantity = payload.Quantity
		_, err = h.Svc.ReplaceDimensions(ctx, c, DimensionRef(payload.ProductID, payload.From), item)
		return err
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.render(w, http.StatusOK, c)
}

// ApplyBatch prices and applies several operations. Operations on the same line run
// in request order, each priced against the cart left by the ones before it; each
// operation reports its own outcome.
func (h *Handler) ApplyBatch(w http.ResponseWriter, r *http.Request) {
	var payload batchRequest
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	var results []OpResult
	c, err := h.withCart(r, func(ctx context.Context, c *Cart) error {
		ops := make([]Op, len(payload.Ops))
		for i, in := range payload.Ops {
			ops[i] = h.deferredOp(in)
		}
		results = Batch{Service: h.Svc, Concurrency: h.Concurrency}.Run(ctx, c, ops)
		return nil
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	outcomes := make([]map[string]any, len(results))
	for i, res := range results {
		if res.Err != nil {
			appErr := h.classify(res.Err)
			outcomes[i] = map[string]any{"ok": false, "error": common.ErrorBody{Code: appErr.Code, Message: appErr.Message}}
			continue
		}
		outcomes[i] = map[string]any{"ok": true}
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"results": outcomes,
			"cart":    view(c),
		},
	})
}

// deferredOp addresses the lines named in the request and prices the op only when
// its turn comes, so a second op on a line sees what the first one did.
func (h *Handler) deferredOp(in batchOp) Op {
	op := Op{
		Kind: OpKind(in.Op),
		Ref:  in.ref(),
		Item: Item{ProductID: in.ProductID, Variant: in.Variant, Size: in.Size, Dimensions: in.Dimensions},
	}
	if op.Kind == OpReplaceDimensions && in.To != nil {
		op.Item.Dimensions = in.To
	}
	op.Prepare = func(ctx context.Context, c *Cart) (Op, error) {
		return h.prepare(ctx, c, in)
	}
	return op
}

func (h *Handler) prepare(ctx context.Context, c *Cart, in batchOp) (Op, error) {
	switch OpKind(in.Op) {
	case OpAdd:
		item, err := h.priceAdd(ctx, c, in.lineRef, in.Quantity)
		if err != nil {
			return Op{}, err
		}
		return Op{Kind: OpAdd, Item: item}, nil
	case OpUpdateQuantity:
		return h.priceUpdate(ctx, c, in.ref(), in.Delta)
	case OpRemove:
		return Op{Kind: OpRemove, Ref: in.ref()}, nil
	case OpReplaceDimensions:
		if in.Dimensions == nil || in.To == nil {
			return Op{}, pricing.ErrMissingDimensions
		}
		item, err := h.priceItem(ctx, pricing.Selection{ProductID: in.ProductID, Dimensions: in.To, Quantity: in.Quantity})
		if err != nil {
			return Op{}, err
		}
		item.Quantity = in.Quantity
		return Op{Kind: OpReplaceDimensions, Ref: in.ref(), Item: item}, nil
	default:
		return Op{}, common.ValidationError("unknown operation "+in.Op, nil)
	}
}

// priceAdd quotes the selection at the quantity the line will hold after merging,
// so bulk tiers apply to the merged line.
func (h *Handler) priceAdd(ctx context.Context, c *Cart, ref lineRef, qty int) (Item, error) {
	item, err := h.priceItem(ctx, pricing.Selection{
		ProductID:  ref.ProductID,
		Variant:    ref.Variant,
		Size:       ref.Size,
		Dimensions: ref.Dimensions,
		Quantity:   qty,
	})
	if err != nil {
		return Item{}, err
	}
	item.Quantity = qty
	if existing, ok := c.Find(item.Ref()); ok {
		item.UnitPrice = pricing.EffectiveUnitPrice(existing.Quantity+qty, item.tiers, item.ListPrice)
	}
	return item, nil
}

func (h *Handler) priceUpdate(ctx context.Context, c *Cart, ref Ref, delta int) (Op, error) {
	line, ok := c.Find(ref)
	if !ok {
		return Op{}, ErrLineNotFound
	}
	item, err := h.priceItem(ctx, pricing.Selection{
		ProductID:  line.ProductID,
		Variant:    line.Variant,
		Size:       line.Size,
		Dimensions: line.Dimensions,
		Quantity:   ClampQuantity(line.Quantity + delta),
	})
	if err != nil {
		return Op{}, err
	}
	return Op{Kind: OpUpdateQuantity, Ref: ref, Delta: delta, Stock: item.Stock, Item: item}, nil
}

func (h *Handler) priceItem(ctx context.Context, sel pricing.Selection) (Item, error) {
	if h.Pricer == nil {
		return Item{}, errors.New("cart pricer not configured")
	}
	q, err := h.Pricer.Quote(ctx, sel)
	if err != nil {
		return Item{}, err
	}
	return Item{
		ProductID:  q.ProductID,
		Variant:    q.Variant,
		Size:       q.Size,
		Dimensions: q.Dimensions,
		Quantity:   q.Quantity,
		Stock:      q.Stock,
		UnitPrice:  q.UnitPrice,
		ListPrice:  q.DisplayPrice,
		tiers:      q.Tiers,
	}, nil
}

// withCart loads the caller's cart and applies fn to it, under the cart lock when a
// Locker is configured. The cart identity is the forwarded Authorization header.
func (h *Handler) withCart(r *http.Request, fn func(ctx context.Context, c *Cart) error) (*Cart, error) {
	var c *Cart
	run := func(ctx context.Context) error {
		loaded, err := h.Svc.Load(ctx)
		if err != nil {
			return err
		}
		c = loaded
		return fn(ctx, c)
	}
	if h.Locker == nil {
		err := run(r.Context())
		return c, err
	}
	ttl := h.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	err := h.Locker.WithLock(r.Context(), lock.Key("cart", r.Header.Get("Authorization")), ttl, run)
	return c, err
}

func view(c *Cart) cartView {
	return summarize(c.Lines())
}

func summarize(lines []Line) cartView {
	items := make([]pricing.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, pricing.Item{Qty: l.Quantity, UnitPrice: l.UnitPrice, ListPrice: l.ListPrice})
	}
	return cartView{Lines: lines, Summary: pricing.Summarize(items)}
}

func (h *Handler) render(w http.ResponseWriter, status int, c *Cart) {
	common.JSON(w, status, map[string]any{"data": view(c)})
}

func (h *Handler) classify(err error) *common.AppError {
	var partial *PartialReplaceError
	switch {
	case errors.As(err, &partial):
		appErr := common.NewAppError("PARTIAL_REPLACE", "cart was changed partially, reload the cart", http.StatusConflict, err)
		appErr.Details = map[string]any{"removed": partial.Removed}
		return appErr
	case errors.Is(err, lock.ErrNotAcquired):
		return common.NewAppError("CART_BUSY", "cart is being updated, retry shortly", http.StatusConflict, err)
	case errors.Is(err, ErrLineNotFound):
		return common.NewAppError("NOT_FOUND", "cart line not found", http.StatusNotFound, err)
	default:
		return common.Classify(err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	appErr := h.classify(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		h.Logger.Error().Err(err).Str("code", appErr.Code).Msg("cart request failed")
	}
	common.WriteAppError(w, appErr)
}
