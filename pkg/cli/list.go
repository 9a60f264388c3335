package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"basket/internal/grouping"
	"basket/internal/models"
)

var (
	listStore string
	listAll   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the list grouped by store and category",
	Long: `Show open items grouped by store and category. Purchased items are
hidden unless --all is given; categories appear in the order items were
added.`,
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := newService()
		if err != nil {
			exitWithError(err)
		}
		defer func() { _ = svc.Close() }()

		items, err := svc.List(context.Background())
		if err != nil {
			exitWithError(err)
		}

		if !listAll {
			open := make([]models.Item, 0, len(items))
			for _, item := range items {
				if !item.Purchased {
					open = append(open, item)
				}
			}
			items = open
		}

		stores := models.Stores
		if listStore != "" {
			stores = []string{listStore}
		}

		shown := 0
		for _, storeName := range stores {
			groups := grouping.Grouped(items, storeName)
			if len(groups) == 0 {
				continue
			}

			fmt.Println(storeName)
			for _, group := range groups {
				fmt.Printf("  %s\n", group.Category)
				for _, item := range group.Items {
					mark := "·"
					if item.Purchased {
						mark = "✓"
					}
					fmt.Printf("    %s %-8s %s\n", mark, models.ShortID(item.ID), item.Name)
					shown++
				}
			}
			fmt.Println()
		}

		if shown == 0 {
			if listStore != "" {
				fmt.Printf("Nothing on the list for %s.\n", listStore)
			} else {
				fmt.Println("The list is empty. Add items with `basket add`.")
			}
		}
	},
}

func init() {
	listCmd.Flags().StringVarP(&listStore, "store", "s", "", "Limit to one store")
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Include purchased items")
}
