package main

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/discount"
	"github.com/noah-isme/toko-pricing/internal/storefront"
)

func categoriesCmd() *cobra.Command {
	var (
		sf  storefrontFlags
		all bool
	)
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List storefront categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, _, _, err := remoteClient(sf.baseURL)
			if err != nil {
				return err
			}
			ctx, cancel := sf.context(cmd.Context())
			defer cancel()
			var categories []catalog.Category
			if all {
				categories, err = client.AllCategories(ctx)
			} else {
				categories, err = client.Categories(ctx)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), categories)
		},
	}
	sf.bind(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "include inactive categories")
	return cmd
}

func campaignsCmd() *cobra.Command {
	var (
		sf  storefrontFlags
		all bool
		at  string
	)
	cmd := &cobra.Command{
		Use:   "campaigns",
		Short: "List discount campaigns live now, or every campaign with --all",
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := time.Now().UTC()
			if at != "" {
				ts, err := catalog.ParseTimestamp(at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				now = ts.Time
			}
			client, _, _, err := remoteClient(sf.baseURL)
			if err != nil {
				return err
			}
			ctx, cancel := sf.context(cmd.Context())
			defer cancel()
			campaigns, err := client.Campaigns(ctx)
			if err != nil {
				return err
			}
			if !all {
				campaigns = discount.LiveCampaigns(campaigns, now)
			}
			return printJSON(cmd.OutOrStdout(), campaigns)
		},
	}
	sf.bind(cmd)
	cmd.Flags().BoolVar(&all, "all", false, "include campaigns that are inactive or outside their window")
	cmd.Flags().StringVar(&at, "at", "", "evaluate liveness at this instant instead of now")
	return cmd
}

func addCampaignCmd() *cobra.Command {
	var (
		sf   storefrontFlags
		file string
	)
	cmd := &cobra.Command{
		Use:   "add-campaign",
		Short: "Create a discount campaign from a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var campaign catalog.DiscountCampaign
			if err := readJSON(file, &campaign); err != nil {
				return err
			}
			client, _, _, err := remoteClient(sf.baseURL)
			if err != nil {
				return err
			}
			ctx, cancel := sf.context(cmd.Context())
			defer cancel()
			created, err := client.AddCampaign(ctx, campaign)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), created)
		},
	}
	sf.bind(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "-", "campaign JSON (- for stdin)")
	return cmd
}

func editProductCmd() *cobra.Command {
	var (
		sf     storefrontFlags
		file   string
		images []string
	)
	cmd := &cobra.Command{
		Use:   "edit-product",
		Short: "Write one product from a JSON file, optionally with images",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var product catalog.Product
			if err := readJSON(file, &product); err != nil {
				return err
			}
			if err := storefront.ValidateProduct(product); err != nil {
				return fmt.Errorf("product %s: %w", product.ID, err)
			}
			attached, closeAll, err := openImages(images)
			defer closeAll()
			if err != nil {
				return err
			}
			client, _, _, err := remoteClient(sf.baseURL)
			if err != nil {
				return err
			}
			ctx, cancel := sf.context(cmd.Context())
			defer cancel()
			if err := client.EditProduct(ctx, product, attached...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "product %s updated\n", product.ID)
			return nil
		},
	}
	sf.bind(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "-", "product JSON (- for stdin)")
	cmd.Flags().StringArrayVar(&images, "image", nil, "image file to attach, repeatable")
	return cmd
}

func bulkEditCmd() *cobra.Command {
	var (
		sf   storefrontFlags
		file string
	)
	cmd := &cobra.Command{
		Use:   "bulk-edit",
		Short: "Validate and write a JSON array of products in one call",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var products []catalog.Product
			if err := readJSON(file, &products); err != nil {
				return err
			}
			if len(products) == 0 {
				return errNoProducts
			}
			client, _, _, err := remoteClient(sf.baseURL)
			if err != nil {
				return err
			}
			ctx, cancel := sf.context(cmd.Context())
			defer cancel()
			if err := client.BulkEdit(ctx, products); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d products updated\n", len(products))
			return nil
		},
	}
	sf.bind(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON array of products (- for stdin)")
	return cmd
}

// openImages opens every path as a storefront image. The returned func closes
// whatever was opened, also on error.
func openImages(paths []string) ([]storefront.Image, func(), error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	images := make([]storefront.Image, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, closeAll, err
		}
		files = append(files, f)
		images = append(images, storefront.Image{
			Filename:    filepath.Base(p),
			ContentType: mime.TypeByExtension(filepath.Ext(p)),
			Data:        f,
		})
	}
	return images, closeAll, nil
}

var errNoProducts = errors.New("no products to write")
