package quote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// ErrSourceNotConfigured is returned when the service has no snapshot source.
var ErrSourceNotConfigured = errors.New("quote source not configured")

// Source loads read-only snapshots from the storefront.
type Source interface {
	Product(ctx context.Context, id string) (catalog.Product, error)
	Campaigns(ctx context.Context) ([]catalog.DiscountCampaign, error)
	Categories(ctx context.Context) ([]catalog.Category, error)
}

// Service prices selections against fresh or cached snapshots.
type Service struct {
	Source  Source
	Cache   *catalog.Cache
	Workers int
	Now     func() time.Time
	Logger  zerolog.Logger
}

// NewService constructs a quote service.
func NewService(source Source, cache *catalog.Cache, workers int, logger zerolog.Logger) *Service {
	return &Service{Source: source, Cache: cache, Workers: workers, Now: time.Now, Logger: logger}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Product returns the product snapshot with its category path resolved.
func (s *Service) Product(ctx context.Context, id string) (catalog.Product, error) {
	if s == nil || s.Source == nil {
		return catalog.Product{}, ErrSourceNotConfigured
	}
	p, err := catalog.Remember(ctx, s.Cache, catalog.ProductKey(id), func(ctx context.Context) (catalog.Product, error) {
		return s.Source.Product(ctx, id)
	})
	if err != nil {
		return catalog.Product{}, fmt.Errorf("load product %s: %w", id, err)
	}
	if len(p.CategoryPath) == 0 && p.CategoryID != "" {
		tree, err := s.categoryTree(ctx)
		if err != nil {
			s.Logger.Warn().Err(err).Str("product_id", id).Msg("category tree unavailable, campaigns scoped to categories will not match")
		} else {
			tree.FillCategoryPath(&p)
		}
	}
	return p, nil
}

// Campaigns returns the discount campaigns in storefront order.
func (s *Service) Campaigns(ctx context.Context) ([]catalog.DiscountCampaign, error) {
	if s == nil || s.Source == nil {
		return nil, ErrSourceNotConfigured
	}
	campaigns, err := catalog.Remember(ctx, s.Cache, catalog.CampaignsKey(), s.Source.Campaigns)
	if err != nil {
		return nil, fmt.Errorf("load campaigns: %w", err)
	}
	return campaigns, nil
}

func (s *Service) categoryTree(ctx context.Context) (catalog.Tree, error) {
	categories, err := catalog.Remember(ctx, s.Cache, catalog.CategoriesKey(), s.Source.Categories)
	if err != nil {
		return catalog.Tree{}, fmt.Errorf("load categories: %w", err)
	}
	return catalog.NewTree(categories), nil
}

// Quote prices one selection.
func (s *Service) Quote(ctx context.Context, sel pricing.Selection) (pricing.Quote, error) {
	p, err := s.Product(ctx, sel.ProductID)
	if err != nil {
		obs.ObserveQuote("unknown", err)
		return pricing.Quote{}, err
	}
	campaigns, err := s.Campaigns(ctx)
	if err != nil {
		obs.ObserveQuote(string(p.Pricing()), err)
		return pricing.Quote{}, err
	}
	q, err := pricing.QuoteFor(s.input(p, campaigns, sel))
	obs.ObserveQuote(string(p.Pricing()), err)
	return q, err
}

// QuoteBatch prices several selections. Campaigns are loaded once and each distinct
// product once; a product that fails to load fails only its own items. The returned
// error is set only when campaigns cannot be loaded or ctx ends.
func (s *Service) QuoteBatch(ctx context.Context, sels []pricing.Selection) ([]pricing.Result, error) {
	campaigns, err := s.Campaigns(ctx)
	if err != nil {
		return nil, err
	}
	products, loadErrs := s.loadProducts(ctx, sels)

	results := make([]pricing.Result, len(sels))
	inputs := make([]pricing.QuoteInput, 0, len(sels))
	index := make([]int, 0, len(sels))
	for i, sel := range sels {
		if err := loadErrs[sel.ProductID]; err != nil {
			results[i] = pricing.Result{Err: err}
			obs.ObserveQuote("unknown", err)
			continue
		}
		inputs = append(inputs, s.input(products[sel.ProductID], campaigns, sel))
		index = append(index, i)
	}
	priced, err := pricing.PriceMany(ctx, inputs, s.Workers)
	for j, res := range priced {
		results[index[j]] = res
		obs.ObserveQuote(string(inputs[j].Product.Pricing()), res.Err)
	}
	if obs.QuoteBatchSize != nil {
		obs.QuoteBatchSize.Observe(float64(len(sels)))
	}
	return results, err
}

func (s *Service) loadProducts(ctx context.Context, sels []pricing.Selection) (map[string]catalog.Product, map[string]error) {
	var (
		mu       sync.Mutex
		products = make(map[string]catalog.Product)
		errs     = make(map[string]error)
	)
	g := new(errgroup.Group)
	if s.Workers > 0 {
		g.SetLimit(s.Workers)
	}
	seen := make(map[string]struct{})
	for _, sel := range sels {
		id := sel.ProductID
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		g.Go(func() error {
			p, err := s.Product(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs[id] = err
				return nil
			}
			products[id] = p
			return nil
		})
	}
	_ = g.Wait()
	return products, errs
}

func (s *Service) input(p catalog.Product, campaigns []catalog.DiscountCampaign, sel pricing.Selection) pricing.QuoteInput {
	return pricing.QuoteInput{
		Product:     p,
		VariantName: sel.Variant,
		SizeLabel:   sel.Size,
		Dimensions:  sel.Dimensions,
		Quantity:    sel.Quantity,
		Campaigns:   campaigns,
		Now:         s.now(),
	}
}

// Invalidate drops cached snapshots for the given products and the shared lists.
func (s *Service) Invalidate(ctx context.Context, productIDs ...string) error {
	keys := []string{catalog.CampaignsKey(), catalog.CategoriesKey()}
	for _, id := range productIDs {
		keys = append(keys, catalog.ProductKey(id))
	}
	return s.Cache.Invalidate(ctx, keys...)
}
