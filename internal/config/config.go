// Package config reads and writes the noxstat TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all noxstat configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Backend    BackendConfig    `toml:"backend"`
	Goals      GoalsConfig      `toml:"goals"`
	Appearance AppearanceConfig `toml:"appearance"`
	TUI        TUIConfig        `toml:"tui"`
	Daemon     DaemonConfig     `toml:"daemon"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DefaultDays int    `toml:"default_days"`
	Timezone    string `toml:"timezone,omitempty"`
	UserID      string `toml:"user_id,omitempty"`
	DataDir     string `toml:"data_dir,omitempty"`
}

// BackendConfig holds connection settings for the hosted backend.
type BackendConfig struct {
	URL         string `toml:"url,omitempty"`
	AnonKey     string `toml:"anon_key,omitempty"`
	AccessToken string `toml:"access_token,omitempty"`
	DatabaseURL string `toml:"database_url,omitempty"`
}

// GoalsConfig holds the goals used when the backend has no preferences row.
type GoalsConfig struct {
	DailyWaterML  int `toml:"daily_water_ml"`
	DailyCalories int `toml:"daily_calories"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// TUIConfig holds dashboard settings.
type TUIConfig struct {
	AutoRefresh        bool `toml:"auto_refresh"`
	RefreshIntervalSec int  `toml:"refresh_interval_sec"`
}

// DaemonConfig holds background service settings.
type DaemonConfig struct {
	Addr            string   `toml:"addr,omitempty"`
	PollIntervalSec int      `toml:"poll_interval_sec,omitempty"`
	ExportSchedule  string   `toml:"export_schedule,omitempty"`
	ExportDir       string   `toml:"export_dir,omitempty"`
	KafkaBrokers    []string `toml:"kafka_brokers,omitempty"`
	KafkaTopic      string   `toml:"kafka_topic,omitempty"`
	KafkaGroup      string   `toml:"kafka_group,omitempty"`
	WebhookSecret   string   `toml:"webhook_secret,omitempty"`
}

// Environment variables that take precedence over the file.
const (
	EnvBackendURL  = "NOX_BACKEND_URL"
	EnvAnonKey     = "NOX_ANON_KEY"
	EnvAccessToken = "NOX_ACCESS_TOKEN"
	EnvDatabaseURL = "NOX_DATABASE_URL"
	EnvUserID      = "NOX_USER_ID"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DefaultDays: 30,
		},
		Goals: GoalsConfig{
			DailyWaterML:  2000,
			DailyCalories: 2000,
		},
		Appearance: AppearanceConfig{
			Theme: "system",
		},
		TUI: TUIConfig{
			AutoRefresh:        true,
			RefreshIntervalSec: 60,
		},
		Daemon: DaemonConfig{
			Addr:            "127.0.0.1:8787",
			PollIntervalSec: 30,
		},
	}
}

// Dir returns the XDG-compliant config directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "noxstat")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "noxstat")
}

// Path returns the full path to the config file.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config file, returning defaults if it doesn't exist.
// Environment overrides are applied last.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(Path())
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return cfg, fmt.Errorf("reading config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	for env, dst := range map[string]*string{
		EnvBackendURL:  &cfg.Backend.URL,
		EnvAnonKey:     &cfg.Backend.AnonKey,
		EnvAccessToken: &cfg.Backend.AccessToken,
		EnvDatabaseURL: &cfg.Backend.DatabaseURL,
		EnvUserID:      &cfg.General.UserID,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
}

// Save writes the config to disk.
func Save(cfg Config) error {
	if err := os.MkdirAll(Dir(), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(Path(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(Path())
	return err == nil
}

// HasBackend reports whether enough is configured to reach the backend,
// either over REST or directly through Postgres.
func (c Config) HasBackend() bool {
	return (c.Backend.URL != "" && c.Backend.AnonKey != "") || c.Backend.DatabaseURL != ""
}
