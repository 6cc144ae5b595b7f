// Command toko-quote prices products from the command line, either against a live
// storefront or offline from JSON snapshots.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "toko-quote",
		Short:         "Price storefront products and check catalog payloads",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(remoteCmd(), offlineCmd(), validateCmd())
	root.AddCommand(categoriesCmd(), campaignsCmd(), addCampaignCmd(), editProductCmd(), bulkEditCmd())
	return root
}
