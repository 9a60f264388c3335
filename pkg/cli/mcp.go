package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"basket/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Basket MCP server (stdio transport)",
	//nolint:revive
	Run: func(cmd *cobra.Command, args []string) {
		svc, err := newService()
		if err != nil {
			exitWithError(err)
		}
		defer func() { _ = svc.Close() }()

		if err := mcp.RunServer(context.Background(), svc); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}
