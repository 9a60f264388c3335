package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"basket/internal/config"
	"basket/internal/core"
	"basket/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "basket",
	Short: "Basket - shared shopping list in your own storage",
	Long: `Basket keeps a household shopping list in storage you control. Items
carry a store and a category; every edit loads the full list, changes it
in memory, and writes it back, so the CLI, HTTP API, and MCP server all
see the same file.`,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// logger is the process logger, built per invocation by newService and
// synced by the root command when the command finishes.
var logger *zap.Logger

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads and validates configuration from the basket home.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(filepath.Join(config.GetBasketHome(), "config.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// buildLogger creates the process logger at the configured level.
// Output goes to stderr, keeping stdout free for command output and
// the MCP stdio transport.
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	switch cfg.Log.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	}
	return zapCfg.Build()
}

// newService wires configuration, logging, and the store for one
// command invocation. Callers own Close on the returned service.
func newService() (*core.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := buildLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = log

	svc, err := core.NewService(cfg, core.WithLogger(log))
	if err != nil {
		return nil, err
	}

	return svc, nil
}

// exitWithError prints err for people and exits non-zero. Validation
// messages and unknown-id misses print bare, the way the list speaks to
// its users; everything else keeps the Error: prefix.
func exitWithError(err error) {
	var verr *core.ErrValidation

	switch {
	case errors.As(err, &verr):
		fmt.Fprintln(os.Stderr, verr.Message)
	case errors.Is(err, core.ErrNotFound):
		fmt.Fprintln(os.Stderr, "No matching item on the list.")
	case errors.Is(err, store.ErrConflict):
		fmt.Fprintln(os.Stderr, "The list changed while saving. Please run the command again.")
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	os.Exit(1)
}
