package storefront_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/cart"
	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/resilience"
	"github.com/noah-isme/toko-pricing/internal/storefront"
)

type recorded struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

type fakeStorefront struct {
	mu       sync.Mutex
	requests []recorded
	routes   map[string]http.HandlerFunc
}

func newFakeStorefront(t *testing.T, routes map[string]http.HandlerFunc) (*fakeStorefront, *storefront.Client) {
	t.Helper()
	fs := &fakeStorefront{routes: routes}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fs.mu.Lock()
		fs.requests = append(fs.requests, recorded{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: body})
		fs.mu.Unlock()
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		if h, ok := fs.routes[r.Method+" "+r.URL.Path]; ok {
			h(w, r)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	client, err := storefront.New(storefront.Options{
		BaseURL:     srv.URL,
		Timeout:     time.Second,
		MaxAttempts: 1,
		Breaker:     resilience.NewBreaker(100, 1, time.Minute),
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	return fs, client
}

func (fs *fakeStorefront) Requests() []recorded {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]recorded, len(fs.requests))
	copy(out, fs.requests)
	return out
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	_, err := storefront.New(storefront.Options{})
	require.Error(t, err)
	_, err = storefront.New(storefront.Options{BaseURL: "ftp://example.com"})
	require.Error(t, err)
}

func TestProductDecodesWrappedAndBareDocuments(t *testing.T) {
	_, client := newFakeStorefront(t, map[string]http.HandlerFunc{
		"GET /api/product/p1": respond(`{"product":{"_id":"p1","price":"12.50","stock":3}}`),
		"GET /api/product/p2": respond(`{"_id":"p2","price":7}`),
		"GET /api/product/p3": respond(`{"data":{"product":{"id":"p3"}}}`),
	})
	ctx := context.Background()

	p1, err := client.Product(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "p1", p1.ID)
	require.True(t, decimal.RequireFromString("12.5").Equal(p1.Price.Decimal))
	require.Equal(t, 3, *p1.Stock)

	p2, err := client.Product(ctx, "p2")
	require.NoError(t, err)
	require.Equal(t, "p2", p2.ID)

	p3, err := client.Product(ctx, "p3")
	require.NoError(t, err)
	require.Equal(t, "p3", p3.ID)
}

func TestProductMapsNon2xxToExternalError(t *testing.T) {
	_, client := newFakeStorefront(t, map[string]http.HandlerFunc{
		"GET /api/product/missing": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"message":"Product not found"}`)
		},
	})

	_, err := client.Product(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrExternal)
	var sfErr *storefront.Error
	require.ErrorAs(t, err, &sfErr)
	require.Equal(t, http.StatusNotFound, sfErr.StatusCode)
	require.Equal(t, "Product not found", sfErr.Message)
	require.Equal(t, http.StatusNotFound, storefront.StatusCode(err))
}

func TestProductRequiresID(t *testing.T) {
	_, client := newFakeStorefront(t, nil)
	_, err := client.Product(context.Background(), " ")
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestCallsForwardAuthorizationAndRequestID(t *testing.T) {
	fs, client := newFakeStorefront(t, map[string]http.HandlerFunc{
		"GET /api/discount/fetch-discount": respond(`{"discounts":[{"_id":"d1","discountPercentage":10,"isActive":true,"applicableToAll":true}]}`),
	})
	ctx := storefront.WithAuthorization(context.Background(), "Bearer abc")

	campaigns, err := client.Campaigns(ctx)
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	require.Equal(t, "d1", campaigns[0].ID)

	reqs := fs.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, "Bearer abc", reqs[0].Header.Get("Authorization"))
	require.NotEmpty(t, reqs[0].Header.Get("X-Request-ID"))
}

func TestForwardAuthorizationMiddleware(t *testing.T) {
	var got string
	h := storefront.ForwardAuthorization(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = storefront.AuthorizationFrom(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer xyz")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "Bearer xyz", got)
}

func TestCategoriesEndpoints(t *testing.T) {
	_, client := newFakeStorefront(t, map[string]http.HandlerFunc{
		"GET /api/category/fetch-categories": respond(`{"categories":[{"_id":"root","name":"Root","isActive":true},{"_id":"leaf","parent":"root","isActive":true}]}`),
		"GET /api/category/all":              respond(`[{"_id":"root"},{"_id":"old","isActive":false}]`),
	})
	ctx := context.Background()

	active, err := client.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, []string{"root", "leaf"}, catalog.NewTree(active).Path("leaf"))

	all, err := client.AllCategories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestAddCampaignValidatesPercentage(t *testing.T) {
	fs, client := newFakeStorefront(t, map[string]http.HandlerFunc{
		"POST /api/discount/add": respond(`{"discount":{"_id":"new","discountPercentage":15}}`),
	})
	ctx := context.Background()

	_, err := client.AddCampaign(ctx, catalog.DiscountCampaign{DiscountPercentage: decimal.NewFromInt(120)})
	require.ErrorIs(t, err, storefront.ErrInvalidCampaign)
	require.Empty(t, fs.Requests())

	created, err := client.AddCampaign(ctx, catalog.DiscountCampaign{Name: "Summer", DiscountPercentage: decimal.NewFromInt(15)})
	require.NoError(t, err)
	require.Equal(t, "new", created.ID)
}

func TestBulkEditValidatesLocally(t *testing.T) {
	fs, client := newFakeStorefront(t, map[string]http.HandlerFunc{
		"PUT /api/product/bulk-edit": respond(`{"ok":true}`),
	})
	ctx := context.Background()

	invalid := catalog.Product{ID: "p1", BulkPricing: []catalog.BulkPricingTier{
		{Quantity: 10, WholesalePrice: decimal.NewFromInt(5)},
		{Quantity: 10, WholesalePrice: decimal.NewFromInt(4)},
	}}
	err := client.BulkEdit(ctx, []catalog.Product{invalid})
	require.ErrorIs(t, err, pricing.ErrDuplicateTierQuantity)
	require.Empty(t, fs.Requests())

	twoDefaults := catalog.Product{ID: "p2", HasVariants: true, Variants: []catalog.Variant{
		{ColorName: "Red", IsDefault: true},
		{ColorName: "Blue", IsDefault: true},
	}}
	err = client.BulkEdit(ctx, []catalog.Product{twoDefaults})
	require.ErrorIs(t, err, catalog.ErrMultipleDefaultVariants)
	require.Empty(t, fs.Requests())

	valid := catalog.Product{ID: "p3", BulkPricing: []catalog.BulkPricingTier{{Quantity: 10, WholesalePrice: decimal.NewFromInt(5)}}}
	require.NoError(t, client.BulkEdit(ctx, []catalog.Product{valid}))
	reqs := fs.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, http.MethodPut, reqs[0].Method)
	require.Contains(t, string(reqs[0].Body), `"products"`)
}

func TestEditProductSendsMultipartWithImages(t *testing.T) {
	var (
		productField string
		fileNames    []string
	)
	_, client := newFakeStorefront(t, map[string]http.HandlerFunc{
		"PUT /api/product/edit-product/p1": func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			productField = r.FormValue("product")
			for _, fh := range r.MultipartForm.File["images"] {
				fileNames = append(fileNames, fh.Filename)
			}
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, `{}`)
		},
	})

	err := client.EditProduct(context.Background(), catalog.Product{ID: "p1", Name: "Banner"},
		storefront.Image{Filename: "front.png", ContentType: "image/png", Data: strings.NewReader("png")},
	)
	require.NoError(t, err)
	require.Equal(t, []string{"front.png"}, fileNames)

	var sent catalog.Product
	require.NoError(t, json.Unmarshal([]byte(productField), &sent))
	require.Equal(t, "Banner", sent.Name)
}

func TestCartStoreRoundTrip(t *testing.T) {
	fs, client := newFakeStorefront(t, map[string]http.HandlerFunc{
		"GET /api/cart":    respond(`{"cart":{"items":[{"_id":"l1","product":{"_id":"p1"},"variant":"Red","size":"10×10 cm","quantity":2,"price":"5"}]}}`),
		"POST /api/cart":   respond(`{"items":[{"_id":"l2","productId":"p2","quantity":1,"price":"3","custom_dimensions":{"length":10,"breadth":5,"unit":"cm"}}]}`),
		"PUT /api/cart":    respond(`{}`),
		"DELETE /api/cart": respond(`{}`),
	})
	ctx := context.Background()

	lines, err := client.LoadCart(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, "l1", lines[0].ID)
	require.Equal(t, "p1-Red-10×10 cm", lines[0].Key().String())

	dims := catalog.CustomDimensions{Length: 10, Breadth: 5, Unit: "cm"}
	created, err := client.CreateLine(ctx, cart.Line{ProductID: "p2", Dimensions: &dims, Quantity: 1, UnitPrice: decimal.NewFromInt(3)})
	require.NoError(t, err)
	require.Equal(t, "l2", created.ID)

	created.Quantity = 4
	require.NoError(t, client.UpdateLine(ctx, created))
	require.NoError(t, client.DeleteLine(ctx, created))

	reqs := fs.Requests()
	require.Len(t, reqs, 4)
	for _, req := range reqs[2:] {
		var body map[string]any
		require.NoError(t, json.Unmarshal(req.Body, &body))
		require.Contains(t, body, "custom_dimensions")
	}
	var update map[string]any
	require.NoError(t, json.Unmarshal(reqs[2].Body, &update))
	require.EqualValues(t, 4, update["quantity"])
}

func TestCartMutationsAreNotRetried(t *testing.T) {
	fs, client := newFakeStorefront(t, map[string]http.HandlerFunc{
		"PUT /api/cart": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		},
	})

	err := client.UpdateLine(context.Background(), cart.Line{ProductID: "p1", Quantity: 2})
	require.ErrorIs(t, err, common.ErrExternal)
	require.Len(t, fs.Requests(), 1)
}
