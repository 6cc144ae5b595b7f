package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/config"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/quote"
	"github.com/noah-isme/toko-pricing/internal/storefront"
)

type selectionFlags struct {
	variant  string
	size     string
	dims     string
	quantity int
}

func (f *selectionFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.variant, "variant", "", "variant name")
	cmd.Flags().StringVar(&f.size, "size", "", "size label")
	cmd.Flags().StringVar(&f.dims, "dims", "", "custom dimensions, e.g. 10x5cm or 10x5x2in")
	cmd.Flags().IntVarP(&f.quantity, "quantity", "q", 1, "quantity")
}

func (f *selectionFlags) selection(productID string) (pricing.Selection, error) {
	sel := pricing.Selection{ProductID: productID, Variant: f.variant, Size: f.size, Quantity: f.quantity}
	if f.dims != "" {
		dims, err := parseDimensions(f.dims)
		if err != nil {
			return sel, err
		}
		sel.Dimensions = &dims
	}
	return sel, nil
}

// storefrontFlags locate the storefront and the credentials forwarded to it.
type storefrontFlags struct {
	baseURL string
	auth    string
}

func (f *storefrontFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "storefront base url (defaults to STOREFRONT_BASE_URL)")
	cmd.Flags().StringVar(&f.auth, "authorization", "", "Authorization header forwarded to the storefront")
}

func (f *storefrontFlags) context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, 30*time.Second)
	if f.auth != "" {
		ctx = storefront.WithAuthorization(ctx, f.auth)
	}
	return ctx, cancel
}

func remoteCmd() *cobra.Command {
	var (
		flags selectionFlags
		sf    storefrontFlags
	)
	cmd := &cobra.Command{
		Use:   "quote PRODUCT_ID",
		Short: "Quote a product against the live storefront",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := flags.selection(args[0])
			if err != nil {
				return err
			}
			svc, err := remoteService(sf.baseURL)
			if err != nil {
				return err
			}
			ctx, cancel := sf.context(cmd.Context())
			defer cancel()
			q, err := svc.Quote(ctx, sel)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), q)
		},
	}
	flags.bind(cmd)
	sf.bind(cmd)
	return cmd
}

func remoteService(baseURL string) (*quote.Service, error) {
	client, cfg, logger, err := remoteClient(baseURL)
	if err != nil {
		return nil, err
	}
	return quote.NewService(client, nil, cfg.PricingWorkers, logger), nil
}

func remoteClient(baseURL string) (*storefront.Client, *config.Config, zerolog.Logger, error) {
	if baseURL != "" {
		if err := os.Setenv("STOREFRONT_BASE_URL", baseURL); err != nil {
			return nil, nil, zerolog.Nop(), err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	logger := obs.NewLogger("console", cfg.Obs.LogLevel).Level(zerolog.WarnLevel)
	client, err := storefront.New(storefront.Options{
		BaseURL:     cfg.Storefront.BaseURL,
		Timeout:     cfg.Storefront.Timeout,
		MaxAttempts: cfg.Storefront.ReadAttempts,
		Logger:      logger,
	})
	if err != nil {
		return nil, nil, zerolog.Nop(), err
	}
	return client, cfg, logger, nil
}

func offlineCmd() *cobra.Command {
	var (
		flags         selectionFlags
		productFile   string
		campaignsFile string
		at            string
	)
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Quote a product snapshot read from a file, without network access",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var product catalog.Product
			if err := readJSON(productFile, &product); err != nil {
				return err
			}
			var campaigns []catalog.DiscountCampaign
			if campaignsFile != "" {
				if err := readJSON(campaignsFile, &campaigns); err != nil {
					return err
				}
			}
			sel, err := flags.selection(product.ID)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			if at != "" {
				ts, err := catalog.ParseTimestamp(at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				now = ts.Time
			}
			q, err := pricing.QuoteFor(pricing.QuoteInput{
				Product:     product,
				VariantName: sel.Variant,
				SizeLabel:   sel.Size,
				Dimensions:  sel.Dimensions,
				Quantity:    sel.Quantity,
				Campaigns:   campaigns,
				Now:         now,
			})
			if err != nil {
				return err
			}
			if q.Stock != nil {
				if err := pricing.CheckQuantity(q.Quantity, *q.Stock, true); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), q)
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVar(&productFile, "product", "", "product snapshot JSON file (- for stdin)")
	cmd.Flags().StringVar(&campaignsFile, "campaigns", "", "discount campaigns JSON file")
	cmd.Flags().StringVar(&at, "at", "", "evaluate campaigns at this instant instead of now")
	_ = cmd.MarkFlagRequired("product")
	return cmd
}

func validateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check variant and bulk tier rules of a product list before a bulk edit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var products []catalog.Product
			if err := readJSON(file, &products); err != nil {
				return err
			}
			var errs []error
			for _, p := range products {
				if err := storefront.ValidateProduct(p); err != nil {
					errs = append(errs, fmt.Errorf("product %s: %w", p.ID, err))
				}
			}
			if err := errors.Join(errs...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d products ok\n", len(products))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON array of products (- for stdin)")
	return cmd
}

// parseDimensions reads "LxB[xH]" with an optional trailing unit, e.g. "10x5cm".
func parseDimensions(raw string) (catalog.CustomDimensions, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	end := len(s)
	for end > 0 && (s[end-1] < '0' || s[end-1] > '9') && s[end-1] != '.' {
		end--
	}
	unit := strings.TrimSpace(s[end:])
	parts := strings.Split(s[:end], "x")
	if len(parts) < 2 || len(parts) > 3 {
		return catalog.CustomDimensions{}, fmt.Errorf("dimensions %q: want LxB or LxBxH", raw)
	}
	sides := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return catalog.CustomDimensions{}, fmt.Errorf("dimensions %q: %w", raw, err)
		}
		sides[i] = v
	}
	if unit == "" {
		unit = "cm"
	}
	dims := catalog.CustomDimensions{Length: sides[0], Breadth: sides[1], Unit: unit}
	if len(sides) == 3 {
		dims.Height = &sides[2]
	}
	return dims, nil
}

func readJSON(path string, dst any) error {
	var r io.Reader = os.Stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
