package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shipenrich/internal/config"
	"shipenrich/internal/shipstation"
)

// storesCmd lists order sources so the operator can find the store ID
var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "List ShipStation stores to find the target store ID",
	Long: `Lists all stores on the ShipStation account. Set SHIPSTATION_STORE_ID
to the ID of the Shopify channel you want to process. Only the API key
and secret are needed for this command.`,
	RunE: listStores,
}

func listStores(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.ValidateListing(); err != nil {
		return err
	}

	client := shipstation.NewClient(cfg.ShipStation, cfg.Run, logger)
	stores, err := client.ListStores(context.Background())
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("ShipStation Stores:")
	fmt.Println(strings.Repeat("-", 70))
	for _, s := range stores {
		marker := ""
		if strings.Contains(strings.ToLower(s.StoreName), "shopify") {
			marker = "  <--"
		}
		fmt.Printf("  ID: %6d  |  %-35s  |  %s%s\n", s.StoreID, s.StoreName, s.MarketplaceName, marker)
	}
	fmt.Println(strings.Repeat("-", 70))
	fmt.Println("Set SHIPSTATION_STORE_ID to the Shopify store ID above.")
	return nil
}
