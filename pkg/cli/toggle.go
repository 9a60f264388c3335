package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle [id]",
	Short: "Toggle an item between purchased and not purchased",
	Long: `Toggle the purchased flag of one item. The id may be the full item id
or any unique prefix of it, as printed by basket list.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := newService()
		if err != nil {
			exitWithError(err)
		}
		defer func() { _ = svc.Close() }()

		item, err := svc.TogglePurchased(context.Background(), args[0])
		if err != nil {
			exitWithError(err)
		}

		if item.Purchased {
			fmt.Printf("'%s' marked purchased.\n", item.Name)
		} else {
			fmt.Printf("'%s' marked not purchased.\n", item.Name)
		}
	},
}
