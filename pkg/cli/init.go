package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"basket/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the basket home",
	Long: `Create the basket home directory with a default configuration and set
up the configured store. The default backend is a local sqlite file;
edit config.yaml to switch to a shared Google Drive folder.`,
	Run: func(cmd *cobra.Command, args []string) {
		home := config.GetBasketHome()
		if err := os.MkdirAll(home, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create basket home: %v\n", err)
			os.Exit(1)
		}

		// Create default config if missing
		configPath := filepath.Join(home, "config.yaml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			cfg, _ := config.LoadConfig(configPath) // returns defaults when file missing
			if err := config.SaveConfig(configPath, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to create config: %v\n", err)
			}
		}

		// Initialize the store (creates the sqlite file, or loads and
		// checks drive credentials)
		svc, err := newService()
		if err != nil {
			exitWithError(err)
		}
		defer func() { _ = svc.Close() }()

		if err := svc.Ping(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: store not reachable yet: %v\n", err)
		}

		fmt.Printf("Basket initialized at %s\n", home)
	},
}
