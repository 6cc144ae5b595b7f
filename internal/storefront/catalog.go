package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// Product fetches one product snapshot.
func (c *Client) Product(ctx context.Context, id string) (catalog.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return catalog.Product{}, ErrMissingProductID
	}
	var product catalog.Product
	r := request{op: "get_product", method: http.MethodGet, path: "/api/product/" + url.PathEscape(id)}
	if err := c.fetch(ctx, r, &product, productKeys...); err != nil {
		return catalog.Product{}, err
	}
	return product, nil
}

// Categories fetches the active category tree nodes.
func (c *Client) Categories(ctx context.Context) ([]catalog.Category, error) {
	var categories []catalog.Category
	r := request{op: "fetch_categories", method: http.MethodGet, path: "/api/category/fetch-categories"}
	if err := c.fetch(ctx, r, &categories, categoryKeys...); err != nil {
		return nil, err
	}
	return categories, nil
}

// AllCategories fetches every category, inactive ones included.
func (c *Client) AllCategories(ctx context.Context) ([]catalog.Category, error) {
	var categories []catalog.Category
	r := request{op: "all_categories", method: http.MethodGet, path: "/api/category/all"}
	if err := c.fetch(ctx, r, &categories, categoryKeys...); err != nil {
		return nil, err
	}
	return categories, nil
}

// Campaigns fetches every discount campaign in storefront order.
func (c *Client) Campaigns(ctx context.Context) ([]catalog.DiscountCampaign, error) {
	var campaigns []catalog.DiscountCampaign
	r := request{op: "fetch_discounts", method: http.MethodGet, path: "/api/discount/fetch-discount"}
	if err := c.fetch(ctx, r, &campaigns, discountKeys...); err != nil {
		return nil, err
	}
	return campaigns, nil
}

// AddCampaign creates a discount campaign.
func (c *Client) AddCampaign(ctx context.Context, campaign catalog.DiscountCampaign) (catalog.DiscountCampaign, error) {
	if campaign.DiscountPercentage.IsNegative() || campaign.DiscountPercentage.GreaterThan(hundred) {
		return catalog.DiscountCampaign{}, ErrInvalidCampaign
	}
	r, err := jsonRequest("add_discount", http.MethodPost, "/api/discount/add", campaign)
	if err != nil {
		return catalog.DiscountCampaign{}, err
	}
	created := campaign
	if err := c.fetch(ctx, r, &created, discountKeys...); err != nil {
		return catalog.DiscountCampaign{}, err
	}
	return created, nil
}

// Image is a file attached to a product edit.
type Image struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

// EditProduct writes a product. Without images the product is sent as JSON; with
// images the request is multipart with the product JSON in the "product" field and
// each file under "images".
func (c *Client) EditProduct(ctx context.Context, product catalog.Product, images ...Image) error {
	if strings.TrimSpace(product.ID) == "" {
		return ErrMissingProductID
	}
	if err := ValidateProduct(product); err != nil {
		return fmt.Errorf("edit product %s: %w", product.ID, err)
	}
	path := "/api/product/edit-product/" + url.PathEscape(product.ID)
	if len(images) == 0 {
		r, err := jsonRequest("edit_product", http.MethodPut, path, product)
		if err != nil {
			return err
		}
		return c.fetch(ctx, r, nil)
	}
	body, contentType, err := multipartProduct(product, images)
	if err != nil {
		return fmt.Errorf("encode edit product: %w", err)
	}
	return c.fetch(ctx, request{op: "edit_product", method: http.MethodPut, path: path, body: body, contentType: contentType}, nil)
}

// BulkEdit writes several products in one call. Every product is validated first;
// nothing is sent when any of them is invalid.
func (c *Client) BulkEdit(ctx context.Context, products []catalog.Product) error {
	if len(products) == 0 {
		return nil
	}
	var errs []error
	for _, p := range products {
		if err := ValidateProduct(p); err != nil {
			errs = append(errs, fmt.Errorf("product %s: %w", p.ID, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	r, err := jsonRequest("bulk_edit", http.MethodPut, "/api/product/bulk-edit", map[string]any{"products": products})
	if err != nil {
		return err
	}
	return c.fetch(ctx, r, nil)
}

// ValidateProduct checks the variant and bulk tier invariants a product write must keep.
func ValidateProduct(p catalog.Product) error {
	if p.HasVariants {
		if err := catalog.ValidateVariants(p); err != nil {
			return err
		}
	}
	return pricing.ValidateProductTiers(p)
}

func multipartProduct(product catalog.Product, images []Image) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	doc, err := json.Marshal(product)
	if err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("product", string(doc)); err != nil {
		return nil, "", err
	}
	for i, img := range images {
		name := img.Filename
		if name == "" {
			name = fmt.Sprintf("image-%d", i+1)
		}
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename=%q`, name))
		contentType := img.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if img.Data == nil {
			continue
		}
		if _, err := io.Copy(part, img.Data); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}
