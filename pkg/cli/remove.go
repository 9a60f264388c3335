package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove an item from the list",
	Long: `Remove one item from the list entirely. The id may be the full item id
or any unique prefix of it, as printed by basket list.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := newService()
		if err != nil {
			exitWithError(err)
		}
		defer func() { _ = svc.Close() }()

		item, err := svc.Delete(context.Background(), args[0])
		if err != nil {
			exitWithError(err)
		}

		fmt.Printf("'%s' removed from the list.\n", item.Name)
	},
}
