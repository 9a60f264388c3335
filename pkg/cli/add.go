package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"basket/internal/models"
)

var (
	addStore    string
	addCategory string
)

var addCmd = &cobra.Command{
	Use:   "add [item name]",
	Short: "Add an item to the shopping list",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := strings.Join(args, " ")

		svc, err := newService()
		if err != nil {
			exitWithError(err)
		}
		defer func() { _ = svc.Close() }()

		item, err := svc.Add(context.Background(), name, addCategory, addStore)
		if err != nil {
			exitWithError(err)
		}

		fmt.Printf("'%s' added to the list for %s under '%s'. (id: %s)\n",
			item.Name, item.Store, item.Category, models.ShortID(item.ID))
	},
}

func init() {
	addCmd.Flags().StringVarP(&addStore, "store", "s", "",
		fmt.Sprintf("Store to buy at (%s)", strings.Join(models.Stores, ", ")))
	addCmd.Flags().StringVarP(&addCategory, "category", "c", "",
		fmt.Sprintf("Category (%s)", strings.Join(models.Categories, ", ")))
}
