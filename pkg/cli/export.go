package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"basket/internal/export"
	"basket/internal/models"
)

var (
	exportStore string
	exportOut   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the list as a markdown document",
	Long: `Render the list as markdown with a checkbox per item, for printing or
pasting into a note. Writes to stdout unless --out is given.`,
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

		stores := models.Stores
		if exportStore != "" {
			stores = []string{exportStore}
		}

		doc := export.Markdown(items, stores, time.Now().UTC().Format("2006-01-02"))

		if exportOut == "" {
			fmt.Print(string(doc))
			return
		}

		if err := os.WriteFile(exportOut, doc, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to write %s: %v\n", exportOut, err)
			os.Exit(1)
		}
		fmt.Printf("Exported to %s\n", exportOut)
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportStore, "store", "s", "", "Limit to one store")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Write to a file instead of stdout")
}
