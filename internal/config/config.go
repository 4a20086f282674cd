// Package config loads and saves the teamtimer configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	appDir         = "teamtimer"
	configFileName = "config.yml"
	dbFileName     = "journal.db"
	logFileName    = "teamtimer.log"
	credsFileName  = "credentials.json"

	// EnvPrefix prefixes environment overrides, e.g. TEAMTIMER_API_BASE_URL.
	EnvPrefix = "TEAMTIMER"
)

const (
	keyAPIBaseURL         = "api.base_url"
	keyAPITimeout         = "api.timeout"
	keyDaemonListen       = "daemon.listen"
	keyDaemonDBPath       = "daemon.db_path"
	keyLogLevel           = "log.level"
	keyLogFile            = "log.file"
	keyLogMaxSizeMB       = "log.max_size_mb"
	keyLogMaxBackups      = "log.max_backups"
	keySyncPollInterval   = "sync.poll_interval"
	keySyncStatsInterval  = "sync.stats_interval"
	keyNotificationsDesk  = "notifications.desktop"
	keySessionCredentials = "session.credentials_path"
)

// Config is the full teamtimer configuration.
type Config struct {
	API           APIConfig           `yaml:"api" mapstructure:"api"`
	Daemon        DaemonConfig        `yaml:"daemon" mapstructure:"daemon"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
	Sync          SyncConfig          `yaml:"sync" mapstructure:"sync"`
	Notifications NotificationsConfig `yaml:"notifications" mapstructure:"notifications"`
	Session       SessionConfig       `yaml:"session" mapstructure:"session"`
}

// APIConfig points at the Gauzy API.
type APIConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// DaemonConfig configures the local control plane.
type DaemonConfig struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
	// DBPath is the action journal. Empty means the XDG data dir.
	DBPath string `yaml:"db_path" mapstructure:"db_path"`
}

// LogConfig configures the daemon log.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	// File is the rotated JSON log. Empty means the XDG data dir.
	File       string `yaml:"file" mapstructure:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
}

// SyncConfig controls how often authoritative state is fetched.
type SyncConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	StatsInterval time.Duration `yaml:"stats_interval" mapstructure:"stats_interval"`
}

// NotificationsConfig toggles desktop notifications.
type NotificationsConfig struct {
	Desktop bool `yaml:"desktop" mapstructure:"desktop"`
}

// SessionConfig locates the credentials written by the login flow.
type SessionConfig struct {
	CredentialsPath string `yaml:"credentials_path" mapstructure:"credentials_path"`
}

// Default returns the default configuration. Paths are left empty and
// resolved by ResolvePaths.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "https://api.ever.team/api",
			Timeout: 15 * time.Second,
		},
		Daemon: DaemonConfig{
			Listen: "127.0.0.1:7464",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Sync: SyncConfig{
			PollInterval:  5 * time.Second,
			StatsInterval: 60 * time.Second,
		},
		Notifications: NotificationsConfig{
			Desktop: true,
		},
	}
}

// DefaultPath returns the XDG config file path, creating its directory.
func DefaultPath() (string, error) {
	return xdg.ConfigFile(filepath.Join(appDir, configFileName))
}

// Load reads the YAML file at path and applies TEAMTIMER_* environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")

		if _, err := os.Stat(path); err == nil {
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("reading config file failed: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file failed: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault(keyAPIBaseURL, d.API.BaseURL)
	v.SetDefault(keyAPITimeout, d.API.Timeout)
	v.SetDefault(keyDaemonListen, d.Daemon.Listen)
	v.SetDefault(keyDaemonDBPath, d.Daemon.DBPath)
	v.SetDefault(keyLogLevel, d.Log.Level)
	v.SetDefault(keyLogFile, d.Log.File)
	v.SetDefault(keyLogMaxSizeMB, d.Log.MaxSizeMB)
	v.SetDefault(keyLogMaxBackups, d.Log.MaxBackups)
	v.SetDefault(keySyncPollInterval, d.Sync.PollInterval)
	v.SetDefault(keySyncStatsInterval, d.Sync.StatsInterval)
	v.SetDefault(keyNotificationsDesk, d.Notifications.Desktop)
	v.SetDefault(keySessionCredentials, d.Session.CredentialsPath)
}

// Save writes cfg to path as YAML, creating parent directories if needed.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if _, _, err := net.SplitHostPort(c.Daemon.Listen); err != nil {
		return fmt.Errorf("daemon.listen %q: %w", c.Daemon.Listen, err)
	}
	if c.Sync.PollInterval < time.Second {
		return fmt.Errorf("sync.poll_interval must be at least 1s")
	}
	if c.Sync.StatsInterval < c.Sync.PollInterval {
		return fmt.Errorf("sync.stats_interval must not be shorter than sync.poll_interval")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q, must be: debug, info, warn, or error", c.Log.Level)
	}
	return nil
}

// ResolvePaths fills empty file paths with locations under the XDG data and
// config directories.
func (c *Config) ResolvePaths() error {
	if c.Daemon.DBPath != "" && c.Log.File != "" && c.Session.CredentialsPath != "" {
		return nil
	}

	dataDir, err := xdg.DataFile(appDir)
	if err != nil {
		return fmt.Errorf("resolving data dir: %w", err)
	}
	if c.Daemon.DBPath == "" {
		c.Daemon.DBPath = filepath.Join(dataDir, dbFileName)
	}
	if c.Log.File == "" {
		c.Log.File = filepath.Join(dataDir, "log", logFileName)
	}
	if c.Session.CredentialsPath == "" {
		c.Session.CredentialsPath, err = xdg.ConfigFile(filepath.Join(appDir, credsFileName))
		if err != nil {
			return fmt.Errorf("resolving credentials path: %w", err)
		}
	}
	return nil
}

// SlogLevel maps the configured level name to a slog level.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
