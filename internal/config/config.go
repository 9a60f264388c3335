package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the name of the shopping-list file in the remote store.
const DefaultFileName = "shopping_list_data.csv"

// DriveConfig holds Google Drive backend configuration.
type DriveConfig struct {
	// FolderID is the Drive folder (container) the list file lives in.
	FolderID string `yaml:"folder_id"`
	// Impersonate is the email acted on behalf of via domain-wide delegation.
	Impersonate string `yaml:"impersonate"`
	// CredentialsFile is the path to the service-account key JSON.
	CredentialsFile string `yaml:"credentials_file"`
	// CredentialsJSON is raw key material injected via environment; it is
	// never written to the config file and wins over CredentialsFile.
	CredentialsJSON string `yaml:"-"`
	// Endpoint overrides the Drive API base URL (tests, proxies).
	Endpoint string `yaml:"endpoint,omitempty"`
}

// SQLiteConfig holds local sqlite backend configuration.
type SQLiteConfig struct {
	// Path of the database file. Empty means <basket home>/basket.db.
	Path string `yaml:"path"`
}

// StoreConfig selects and configures the remote store backend.
type StoreConfig struct {
	Backend  string       `yaml:"backend"` // drive | sqlite
	FileName string       `yaml:"file_name"`
	Drive    DriveConfig  `yaml:"drive"`
	SQLite   SQLiteConfig `yaml:"sqlite"`
}

// RetryConfig holds retry budgets for remote operations.
type RetryConfig struct {
	// MaxAttempts bounds attempts per store call on transient errors.
	MaxAttempts int `yaml:"max_attempts"`
	// ConflictRetries bounds reload-and-reapply cycles after a save
	// lost the race to a concurrent writer.
	ConflictRetries int `yaml:"conflict_retries"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// Config holds the complete configuration.
type Config struct {
	Store StoreConfig `yaml:"store"`
	Retry RetryConfig `yaml:"retry"`
	Log   LogConfig   `yaml:"log"`
}

// GetBasketHome returns the basket home directory.
func GetBasketHome() string {
	if home := os.Getenv("BASKET_HOME"); home != "" {
		return home
	}
	userHome, _ := os.UserHomeDir()
	return filepath.Join(userHome, ".basket")
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	config := &Config{
		Store: StoreConfig{
			Backend:  "sqlite",
			FileName: DefaultFileName,
		},
		Retry: RetryConfig{
			MaxAttempts:     4,
			ConflictRetries: 2,
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if file doesn't exist
			applyEnvOverrides(config)
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure defaults are set
	if config.Store.Backend == "" {
		config.Store.Backend = "sqlite"
	}
	if config.Store.FileName == "" {
		config.Store.FileName = DefaultFileName
	}
	if config.Retry.MaxAttempts == 0 {
		config.Retry.MaxAttempts = 4
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides, which take
// precedence over file values. Useful for hosts that inject secrets via the
// environment rather than writing them to disk.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("BASKET_STORE_BACKEND"); v != "" {
		config.Store.Backend = v
	}
	if v := os.Getenv("BASKET_FILE_NAME"); v != "" {
		config.Store.FileName = v
	}
	if v := os.Getenv("BASKET_DRIVE_FOLDER_ID"); v != "" {
		config.Store.Drive.FolderID = v
	}
	if v := os.Getenv("BASKET_DRIVE_IMPERSONATE"); v != "" {
		config.Store.Drive.Impersonate = v
	}
	if v := os.Getenv("BASKET_DRIVE_CREDENTIALS_FILE"); v != "" {
		config.Store.Drive.CredentialsFile = v
	}
	if v := os.Getenv("BASKET_DRIVE_CREDENTIALS_JSON"); v != "" {
		config.Store.Drive.CredentialsJSON = v
	}
	if v := os.Getenv("BASKET_SQLITE_PATH"); v != "" {
		config.Store.SQLite.Path = v
	}
	if v := os.Getenv("BASKET_LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
}

// Validate returns an error if the configuration contains invalid values.
// Call this after LoadConfig to surface misconfiguration at startup.
func (c *Config) Validate() error {
	validBackends := map[string]bool{"drive": true, "sqlite": true}
	if !validBackends[c.Store.Backend] {
		return fmt.Errorf("invalid store.backend %q: must be one of drive, sqlite", c.Store.Backend)
	}
	if c.Store.FileName == "" {
		return fmt.Errorf("store.file_name must not be empty")
	}
	if c.Store.Backend == "drive" {
		if c.Store.Drive.FolderID == "" {
			return fmt.Errorf("store.drive.folder_id is required for the drive backend")
		}
		if c.Store.Drive.Impersonate == "" {
			return fmt.Errorf("store.drive.impersonate is required for the drive backend")
		}
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.ConflictRetries < 0 {
		return fmt.Errorf("retry.conflict_retries must not be negative, got %d", c.Retry.ConflictRetries)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log.level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}

// SaveConfig saves configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetDefaultConfigTemplate returns a default config template as a string.
func GetDefaultConfigTemplate() string {
	return `# Basket configuration

# Where the shared shopping list lives.
# "sqlite" keeps it in a local database file; "drive" keeps it as a CSV
# in a Google Drive folder shared by the whole household.
store:
  backend: sqlite               # drive | sqlite
  file_name: shopping_list_data.csv
  drive:
    folder_id: ""               # ID from the Drive folder URL
    impersonate: ""             # email acted for via domain-wide delegation
    credentials_file: ""        # service-account key JSON (default: <home>/service-account.json)
  sqlite:
    path: ""                    # default: <home>/basket.db

# Retry budgets for remote operations.
retry:
  max_attempts: 4               # transient-error attempts per store call
  conflict_retries: 2           # reload-and-retry cycles on concurrent edits

log:
  level: info                   # debug | info | warn | error
`
}
