package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"basket/internal/config"
	"basket/internal/core"
	"basket/internal/redaction"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check basket health and connectivity",
	Run: func(cmd *cobra.Command, args []string) {
		ok := true
		pass := func(label, detail string) {
			fmt.Printf("  ✓ %-28s %s\n", label, detail)
		}
		fail := func(label, detail string) {
			fmt.Printf("  ✗ %-28s %s\n", label, detail)
			ok = false
		}
		warn := func(label, detail string) {
			fmt.Printf("  ! %-28s %s\n", label, detail)
		}

		home := config.GetBasketHome()
		fmt.Printf("\nBasket home: %s\n\n", home)

		// --- Filesystem ---
		fmt.Println("Filesystem:")

		if info, err := os.Stat(home); err != nil || !info.IsDir() {
			fail("basket home", "directory missing — run `basket init`")
		} else {
			pass("basket home", home)
		}

		configPath := filepath.Join(home, "config.yaml")
		if _, err := os.Stat(configPath); err != nil {
			warn("config.yaml", "not found, using defaults")
		} else {
			pass("config.yaml", configPath)
		}

		// --- Configuration ---
		fmt.Println("\nConfiguration:")

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			fail("load config", err.Error())
			fmt.Println("\nFix the issues above and re-run `basket doctor`.")
			os.Exit(1)
		}
		pass("load config", "ok")

		if err := cfg.Validate(); err != nil {
			fail("validate config", err.Error())
		} else {
			pass("validate config", "ok")
		}

		pass("store backend", cfg.Store.Backend)
		pass("list file", cfg.Store.FileName)

		switch cfg.Store.Backend {
		case "drive":
			pass("drive folder", cfg.Store.Drive.FolderID)
			pass("impersonate", cfg.Store.Drive.Impersonate)

			if cfg.Store.Drive.CredentialsJSON != "" {
				pass("credentials", "from environment")
			} else {
				credPath := cfg.Store.Drive.CredentialsFile
				if credPath == "" {
					credPath = filepath.Join(home, "service-account.json")
				}
				data, err := os.ReadFile(credPath)
				if err != nil {
					fail("credentials", fmt.Sprintf("%s — %v", credPath, err))
				} else {
					var key struct {
						Type        string `json:"type"`
						ClientEmail string `json:"client_email"`
					}
					if err := json.Unmarshal(data, &key); err != nil {
						fail("credentials", redaction.Scrub(fmt.Sprintf("unreadable key file: %v", err)))
					} else if key.Type != "service_account" {
						warn("credentials", fmt.Sprintf("unexpected key type %q", key.Type))
					} else {
						pass("credentials", key.ClientEmail)
					}
				}
			}
		case "sqlite":
			path := cfg.Store.SQLite.Path
			if path == "" {
				path = filepath.Join(home, "basket.db")
			}
			if _, err := os.Stat(path); err != nil {
				warn("sqlite file", "not created yet — run `basket init`")
			} else {
				pass("sqlite file", path)
			}
		}

		pass("redaction patterns", fmt.Sprintf("%d patterns", len(redaction.SensitivePatterns)))

		// --- Store connectivity ---
		fmt.Println("\nStore:")

		svc, err := core.NewService(cfg, core.WithLogger(zap.NewNop()))
		if err != nil {
			fail("store init", err.Error())
			fmt.Println("\nFix the issues above and re-run `basket doctor`.")
			os.Exit(1)
		}
		defer func() { _ = svc.Close() }()
		pass("store init", "ok")

		ctx := context.Background()

		if err := svc.Ping(ctx); err != nil {
			fail("store reachable", redaction.Scrub(err.Error()))
		} else {
			pass("store reachable", "ok")
		}

		st, err := svc.Status(ctx)
		if err != nil {
			fail("load list", redaction.Scrub(err.Error()))
		} else {
			if st.FileID == "" {
				warn("list file", "absent — created on first add")
			} else {
				pass("list file", fmt.Sprintf("%s (revision %s)", st.FileID, st.Revision))
			}
			pass("items", fmt.Sprintf("%d items, %d purchased", st.Items, st.Purchased))
		}

		// --- Summary ---
		fmt.Println()
		if ok {
			fmt.Println("All checks passed.")
		} else {
			fmt.Println("Some checks failed. Fix the issues above.")
			os.Exit(1)
		}
	},
}
