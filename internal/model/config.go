package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// RemoteConfig holds the settings for the kanban REST API.
type RemoteConfig struct {
	// BaseURL is the root URL of the kanban server. Empty disables the
	// remote entirely and the board runs from the local cache only.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds each HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// CSRFCookie is the cookie whose value is echoed in the X-CSRFToken
	// header on mutating requests.
	CSRFCookie string `mapstructure:"csrf_cookie" yaml:"csrf_cookie"`

	// Username is the account to log in with. The password lives in the
	// system keyring.
	Username string `mapstructure:"username" yaml:"username"`
}

// CacheConfig selects and configures the local durable cache.
type CacheConfig struct {
	// Driver is "sqlite" (default) or "redis".
	Driver    string `mapstructure:"driver" yaml:"driver"`
	Path      string `mapstructure:"path" yaml:"path"`
	RedisURL  string `mapstructure:"redis_url" yaml:"redis_url"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// LogConfig controls the application log.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Remote  RemoteConfig  `mapstructure:"remote" yaml:"remote"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// Cache drivers.
const (
	CacheDriverSQLite = "sqlite"
	CacheDriverRedis  = "redis"
)

// configDir returns ~/.config/kanban, or the working directory when the
// home directory cannot be resolved.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "kanban")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/kanban/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Remote: RemoteConfig{
			BaseURL:    "http://localhost:8000",
			TimeoutSec: 10,
			CSRFCookie: "csrftoken",
		},
		Cache: CacheConfig{
			Driver:    CacheDriverSQLite,
			Path:      filepath.Join(configDir(), "kanban.db"),
			Namespace: "kanban",
		},
		Display: DisplayConfig{
			Theme: ThemeLight,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(configDir(), "kanban.log"),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("KANBAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("remote.base_url", def.Remote.BaseURL)
	v.SetDefault("remote.timeout_sec", def.Remote.TimeoutSec)
	v.SetDefault("remote.csrf_cookie", def.Remote.CSRFCookie)
	v.SetDefault("cache.driver", def.Cache.Driver)
	v.SetDefault("cache.path", def.Cache.Path)
	v.SetDefault("cache.namespace", def.Cache.Namespace)
	v.SetDefault("display.theme", def.Display.Theme)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.file", def.Log.File)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return def, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return def, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Remote.TimeoutSec <= 0 {
		cfg.Remote.TimeoutSec = def.Remote.TimeoutSec
	}
	switch cfg.Cache.Driver {
	case CacheDriverSQLite, CacheDriverRedis:
	default:
		return nil, fmt.Errorf("parsing config %s: unknown cache driver %q", path, cfg.Cache.Driver)
	}
	if cfg.Cache.Driver == CacheDriverRedis && cfg.Cache.RedisURL == "" {
		return nil, fmt.Errorf("parsing config %s: cache.redis_url is required for the redis driver", path)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("remote", cfg.Remote)
	v.Set("cache", cfg.Cache)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
