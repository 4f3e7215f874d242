// Package config loads application configuration from a YAML file with
// environment overrides, and supports live reload of the file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	// UserID identifies the local user in task and goal ownership fields.
	UserID string `mapstructure:"user_id"`

	// DBPath is the SQLite database location.
	DBPath string `mapstructure:"db_path"`

	// Timezone names the IANA zone used for week arithmetic. Empty means
	// the system local zone.
	Timezone string `mapstructure:"timezone"`

	Remote RemoteConfig `mapstructure:"remote"`
	Sync   SyncConfig   `mapstructure:"sync"`
	Daemon DaemonConfig `mapstructure:"daemon"`
}

// RemoteConfig locates the partnership service.
type RemoteConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

// SyncConfig controls the partner task subscription.
type SyncConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	RealtimeURL string `mapstructure:"realtime_url"`
}

// DaemonConfig controls the background daemon.
type DaemonConfig struct {
	// SweepInterval is how often weekly resets and goal expirations are
	// checked.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`

	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "tandem.db"
	}
	return filepath.Join(home, ".tandem", "tandem.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_path", defaultDBPath())
	v.SetDefault("sync.enabled", true)
	v.SetDefault("daemon.sweep_interval", time.Minute)
	v.SetDefault("daemon.log_max_size_mb", 10)
	v.SetDefault("daemon.log_max_backups", 3)
}

// Load reads configuration from the given file, or from the default search
// locations (~/.tandem/config.yaml, then ./tandem.yaml) when path is empty.
// A missing file is not an error; defaults and TANDEM_* environment
// variables still apply. The returned viper instance backs Watch.
func Load(path string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TANDEM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".tandem"))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if path != "" {
			return nil, nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, nil, err
	}
	return cfg, v, nil
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// Watch re-reads the config file whenever it changes and hands the fresh
// Config to onChange. Unparseable edits are logged and skipped; the previous
// configuration stays in effect.
func Watch(v *viper.Viper, logger *log.Logger, onChange func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := unmarshal(v)
		if err != nil {
			logger.Printf("ignoring config change %s: %v", e.Name, err)
			return
		}
		logger.Printf("config reloaded from %s", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()
}

// Location resolves the configured timezone, falling back to the system
// local zone on an empty or unknown name.
func (c *Config) Location(logger *log.Logger) *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		if logger != nil {
			logger.Printf("unknown timezone %q, using local: %v", c.Timezone, err)
		}
		return time.Local
	}
	return loc
}
