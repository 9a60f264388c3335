package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetBasketHome(t *testing.T) {
	// Test default
	home := GetBasketHome()
	if home == "" {
		t.Error("GetBasketHome() should not return empty string")
	}

	// Test with environment variable
	os.Setenv("BASKET_HOME", "/test/basket")
	defer os.Unsetenv("BASKET_HOME")

	home = GetBasketHome()
	if home != "/test/basket" {
		t.Errorf("GetBasketHome() = %q, want %q", home, "/test/basket")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	// Non-existent file should return defaults
	cfg, err := LoadConfig("/nonexistent/config.yaml")
	if err != nil {
		t.Errorf("LoadConfig() error = %v, want nil", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfig() returned nil config")
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("LoadConfig() default backend = %q, want %q", cfg.Store.Backend, "sqlite")
	}
	if cfg.Store.FileName != DefaultFileName {
		t.Errorf("LoadConfig() default file name = %q, want %q", cfg.Store.FileName, DefaultFileName)
	}
	if cfg.Retry.MaxAttempts != 4 {
		t.Errorf("LoadConfig() default max_attempts = %d, want 4", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.ConflictRetries != 2 {
		t.Errorf("LoadConfig() default conflict_retries = %d, want 2", cfg.Retry.ConflictRetries)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("LoadConfig() default log level = %q, want info", cfg.Log.Level)
	}
}

func TestLoadConfig_File(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `store:
  backend: drive
  file_name: groceries.csv
  drive:
    folder_id: folder-123
    impersonate: family@example.com
retry:
  max_attempts: 2
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Store.Backend != "drive" {
		t.Errorf("backend = %q, want drive", cfg.Store.Backend)
	}
	if cfg.Store.FileName != "groceries.csv" {
		t.Errorf("file_name = %q, want groceries.csv", cfg.Store.FileName)
	}
	if cfg.Store.Drive.FolderID != "folder-123" {
		t.Errorf("folder_id = %q, want folder-123", cfg.Store.Drive.FolderID)
	}
	if cfg.Retry.MaxAttempts != 2 {
		t.Errorf("max_attempts = %d, want 2", cfg.Retry.MaxAttempts)
	}
	// Unset sections keep defaults
	if cfg.Retry.ConflictRetries != 2 {
		t.Errorf("conflict_retries = %d, want default 2", cfg.Retry.ConflictRetries)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log level = %q, want default info", cfg.Log.Level)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	os.Setenv("BASKET_STORE_BACKEND", "drive")
	os.Setenv("BASKET_DRIVE_FOLDER_ID", "env-folder")
	os.Setenv("BASKET_FILE_NAME", "env.csv")
	defer func() {
		os.Unsetenv("BASKET_STORE_BACKEND")
		os.Unsetenv("BASKET_DRIVE_FOLDER_ID")
		os.Unsetenv("BASKET_FILE_NAME")
	}()

	cfg, err := LoadConfig("/nonexistent/config.yaml")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Store.Backend != "drive" {
		t.Errorf("backend = %q, want drive (env override)", cfg.Store.Backend)
	}
	if cfg.Store.Drive.FolderID != "env-folder" {
		t.Errorf("folder_id = %q, want env-folder", cfg.Store.Drive.FolderID)
	}
	if cfg.Store.FileName != "env.csv" {
		t.Errorf("file_name = %q, want env.csv", cfg.Store.FileName)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"unknown backend", func(c *Config) { c.Store.Backend = "ftp" }, true},
		{"empty file name", func(c *Config) { c.Store.FileName = "" }, true},
		{"drive without folder", func(c *Config) { c.Store.Backend = "drive" }, true},
		{"drive without impersonate", func(c *Config) {
			c.Store.Backend = "drive"
			c.Store.Drive.FolderID = "f"
		}, true},
		{"drive fully configured", func(c *Config) {
			c.Store.Backend = "drive"
			c.Store.Drive.FolderID = "f"
			c.Store.Drive.Impersonate = "user@example.com"
		}, false},
		{"zero max attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, true},
		{"negative conflict retries", func(c *Config) { c.Retry.ConflictRetries = -1 }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig("/nonexistent/config.yaml")
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := &Config{
		Store: StoreConfig{
			Backend:  "sqlite",
			FileName: "test.csv",
		},
		Retry: RetryConfig{MaxAttempts: 3, ConflictRetries: 1},
		Log:   LogConfig{Level: "debug"},
	}

	if err := SaveConfig(configPath, cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	// Verify it can be loaded back
	loaded, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig() after SaveConfig error = %v", err)
	}
	if loaded.Store.FileName != "test.csv" {
		t.Errorf("LoadConfig() FileName = %q, want %q", loaded.Store.FileName, "test.csv")
	}
	if loaded.Log.Level != "debug" {
		t.Errorf("LoadConfig() Level = %q, want debug", loaded.Log.Level)
	}
}

func TestSaveConfig_NeverPersistsRawCredentials(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg, err := LoadConfig("/nonexistent/config.yaml")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	cfg.Store.Drive.CredentialsJSON = `{"type":"service_account"}`

	if err := SaveConfig(configPath, cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("config file is empty")
	}
	if strings.Contains(string(data), "service_account") {
		t.Error("raw credentials JSON must not be written to disk")
	}
}

func TestGetDefaultConfigTemplate(t *testing.T) {
	template := GetDefaultConfigTemplate()
	if template == "" {
		t.Error("GetDefaultConfigTemplate() should not return empty string")
	}
	if len(template) < 100 {
		t.Error("GetDefaultConfigTemplate() should return substantial template")
	}
}
