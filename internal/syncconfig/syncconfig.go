// Package syncconfig reads and writes the CLI's configuration and auth
// state under ~/.config/hsync.
package syncconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AutoSyncConfig holds auto-sync settings.
type AutoSyncConfig struct {
	Enabled  *bool  `json:"enabled,omitempty"`  // nil = default true
	Interval string `json:"interval,omitempty"` // duration string, default "30s"
}

// SyncConfig holds sync-related settings.
type SyncConfig struct {
	URL  string         `json:"url"`
	Auto AutoSyncConfig `json:"auto"`
}

// Config is the global config stored at ~/.config/hsync/config.json.
type Config struct {
	Sync SyncConfig `json:"sync"`
}

// AuthCredentials stores authentication state at ~/.config/hsync/auth.json.
type AuthCredentials struct {
	AuthToken string `json:"auth_token"`
	UserID    string `json:"user_id,omitempty"`
	Email     string `json:"email,omitempty"`
	ServerURL string `json:"server_url,omitempty"`
}

const defaultServerURL = "http://localhost:5000"

// ConfigDir returns ~/.config/hsync, creating it if necessary.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "hsync")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// DataDir returns the directory holding the durable local store,
// ~/.local/share/hsync unless HSYNC_DATA_DIR overrides it.
func DataDir() (string, error) {
	if dir := os.Getenv("HSYNC_DATA_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "hsync"), nil
}

// LoadConfig reads the global config from ~/.config/hsync/config.json.
func LoadConfig() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig writes the global config to ~/.config/hsync/config.json.
func SaveConfig(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// LoadAuth reads auth credentials from ~/.config/hsync/auth.json.
// Returns nil without error when the user has never authenticated.
func LoadAuth() (*AuthCredentials, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "auth.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var creds AuthCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// SaveAuth writes auth credentials to ~/.config/hsync/auth.json (0600 perms).
func SaveAuth(creds *AuthCredentials) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "auth.json"), data, 0600)
}

// GetServerURL resolves the sync server URL: HSYNC_SERVER_URL env, then
// config, then auth.json, then the default.
func GetServerURL() string {
	if url := os.Getenv("HSYNC_SERVER_URL"); url != "" {
		return url
	}
	if cfg, err := LoadConfig(); err == nil && cfg.Sync.URL != "" {
		return cfg.Sync.URL
	}
	if creds, err := LoadAuth(); err == nil && creds != nil && creds.ServerURL != "" {
		return creds.ServerURL
	}
	return defaultServerURL
}

// GetAuthToken returns the stored bearer token, or "" if not authenticated.
func GetAuthToken() string {
	creds, err := LoadAuth()
	if err != nil || creds == nil {
		return ""
	}
	return creds.AuthToken
}

// IsAuthenticated reports whether a bearer token is stored.
func IsAuthenticated() bool {
	return GetAuthToken() != ""
}

// AutoSyncEnabled returns true if auto-sync after mutations is enabled.
// Checks HSYNC_AUTO_SYNC env var, then config. Defaults to true.
func AutoSyncEnabled() bool {
	if v := os.Getenv("HSYNC_AUTO_SYNC"); v != "" {
		return v == "1" || v == "true"
	}
	if cfg, err := LoadConfig(); err == nil && cfg.Sync.Auto.Enabled != nil {
		return *cfg.Sync.Auto.Enabled
	}
	return true
}

// AutoSyncInterval returns the background probe interval, default 30s.
func AutoSyncInterval() time.Duration {
	cfg, err := LoadConfig()
	if err == nil && cfg.Sync.Auto.Interval != "" {
		if d, perr := time.ParseDuration(cfg.Sync.Auto.Interval); perr == nil && d > 0 {
			return d
		}
	}
	return 30 * time.Second
}
