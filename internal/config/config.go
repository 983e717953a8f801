package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for media-sync.
type Config struct {
	// LibraryDir is the root of the local media library to keep in sync.
	LibraryDir string `env:"MEDIA_LIBRARY_DIR"`

	// ServerURL is the base URL of the remote content store.
	ServerURL string `env:"MEDIA_SERVER_URL"`

	// Token seeds the credential cache on startup. Optional; once cached
	// in the state database it does not need to be set again.
	Token string `env:"MEDIA_TOKEN"`

	// AutoUpload controls whether items the server reports as missing are
	// uploaded automatically after each reconciliation pass.
	AutoUpload bool `env:"MEDIA_AUTO_UPLOAD" envDefault:"true"`

	// SyncInterval is how often a periodic sync run is triggered.
	SyncInterval time.Duration `env:"MEDIA_SYNC_INTERVAL" envDefault:"15m"`

	// WatchLibrary enables the filesystem watcher that triggers a sync
	// run shortly after local changes are detected.
	WatchLibrary bool `env:"MEDIA_WATCH_LIBRARY" envDefault:"true"`

	// EnableEvents enables the websocket feed of remote change events.
	EnableEvents bool `env:"MEDIA_ENABLE_EVENTS" envDefault:"true"`

	// StateDir overrides where the state database lives.
	// Defaults to ~/.media-sync/.
	StateDir string `env:"MEDIA_STATE_DIR"`

	// DeviceName this client identifies as. Defaults to system hostname.
	DeviceName string `env:"DEVICE_NAME"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing the token to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.DeviceName == "" {
		hostname, err := os.Hostname()
		if err != nil || hostname == "" {
			hostname = "media-sync"
		}

		cfg.DeviceName = hostname
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// Resolve LibraryDir to an absolute path at startup. The enumerator
	// and watcher derive identifiers from paths relative to it, and the
	// traversal guard in the library relies on prefix comparison, which
	// only works reliably with absolute paths.
	absDir, err := filepath.Abs(cfg.LibraryDir)
	if err != nil {
		return nil, fmt.Errorf("resolving library dir to absolute path: %w", err)
	}

	cfg.LibraryDir = absDir

	if cfg.StateDir == "" {
		dir, err := DefaultStateDir()
		if err != nil {
			return nil, err
		}

		cfg.StateDir = dir
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.LibraryDir == "" {
		return fmt.Errorf("MEDIA_LIBRARY_DIR is required")
	}

	if c.ServerURL == "" {
		return fmt.Errorf("MEDIA_SERVER_URL is required")
	}

	if c.SyncInterval < time.Minute {
		return fmt.Errorf("MEDIA_SYNC_INTERVAL must be at least 1m, got %s", c.SyncInterval)
	}

	return nil
}

// DefaultStateDir returns the default state directory: ~/.media-sync/
func DefaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return filepath.Join(home, ".media-sync"), nil
}

// StatePath returns the path of the state database file.
func (c *Config) StatePath() string {
	return filepath.Join(c.StateDir, "state.db")
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
