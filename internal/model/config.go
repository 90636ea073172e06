package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// APIConfig holds settings for the grievance REST API.
type APIConfig struct {
	// BaseURL is the API root, e.g. https://localhost:7001/api.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds a single HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// MaxRetries is how many times a rate-limited request is retried.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
}

// PushConfig holds settings for the real-time notification channel.
type PushConfig struct {
	// URL is the server-sent event endpoint.
	URL string `mapstructure:"url" yaml:"url"`

	// Event is the event name that carries notifications.
	Event string `mapstructure:"event" yaml:"event"`

	// MaxRetryIntervalSec caps the reconnect backoff.
	MaxRetryIntervalSec int `mapstructure:"max_retry_interval_sec" yaml:"max_retry_interval_sec"`
}

// NotificationConfig holds settings for the in-memory notification feed.
type NotificationConfig struct {
	// ToastTTLSec is how long a toast stays visible.
	ToastTTLSec int `mapstructure:"toast_ttl_sec" yaml:"toast_ttl_sec"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme           string `mapstructure:"theme" yaml:"theme"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// LogConfig controls the file logger. The terminal belongs to the UI, so
// logs never go to stdout.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API           APIConfig          `mapstructure:"api" yaml:"api"`
	Push          PushConfig         `mapstructure:"push" yaml:"push"`
	Notifications NotificationConfig `mapstructure:"notifications" yaml:"notifications"`
	Display       DisplayConfig      `mapstructure:"display" yaml:"display"`
	Log           LogConfig          `mapstructure:"log" yaml:"log"`

	// CachePath is the SQLite file holding the complaint cache.
	CachePath string `mapstructure:"cache_path" yaml:"cache_path"`
}

// envPrefix scopes environment overrides, e.g. GRIEVANCE_API_BASE_URL.
const envPrefix = "GRIEVANCE"

// ConfigDir returns ~/.config/grievance-desk, falling back to the
// working directory when the home directory is unknown.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "grievance-desk")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/grievance-desk/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		API: APIConfig{
			BaseURL:    "https://localhost:7001/api",
			TimeoutSec: 30,
			MaxRetries: 3,
		},
		Push: PushConfig{
			URL:                 "https://localhost:7001/notificationHub",
			Event:               "ReceiveNotification",
			MaxRetryIntervalSec: 30,
		},
		Notifications: NotificationConfig{
			ToastTTLSec: 5,
		},
		Display: DisplayConfig{
			Theme:           "default",
			PollIntervalSec: 120,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			File:   filepath.Join(dir, "desk.log"),
		},
		CachePath: filepath.Join(dir, "cache.db"),
	}
}

// setDefaults mirrors defaultAppConfig into v so that missing keys and
// environment-only overrides resolve.
func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout_sec", d.API.TimeoutSec)
	v.SetDefault("api.max_retries", d.API.MaxRetries)
	v.SetDefault("push.url", d.Push.URL)
	v.SetDefault("push.event", d.Push.Event)
	v.SetDefault("push.max_retry_interval_sec", d.Push.MaxRetryIntervalSec)
	v.SetDefault("notifications.toast_ttl_sec", d.Notifications.ToastTTLSec)
	v.SetDefault("display.theme", d.Display.Theme)
	v.SetDefault("display.poll_interval_sec", d.Display.PollIntervalSec)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("cache_path", d.CachePath)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns the defaults with environment
// overrides applied.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		_, pathErr := err.(*os.PathError)
		if !notFound && !pathErr {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Notifications.ToastTTLSec <= 0 {
		cfg.Notifications.ToastTTLSec = 5
	}
	if cfg.Display.PollIntervalSec <= 0 {
		cfg.Display.PollIntervalSec = 120
	}
	if cfg.Push.MaxRetryIntervalSec <= 0 {
		cfg.Push.MaxRetryIntervalSec = 30
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

	v.Set("api", cfg.API)
	v.Set("push", cfg.Push)
	v.Set("notifications", cfg.Notifications)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)
	v.Set("cache_path", cfg.CachePath)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
