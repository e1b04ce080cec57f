// Package config loads clipboard-sync settings from config.yaml, the
// environment (CLIPSYNC_*) and command-line flags through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "CLIPSYNC"

	defaultDirName = ".clipboard-sync"
)

// Notification methods
const (
	NotifyNone    = "none"
	NotifyLog     = "log"
	NotifyWebhook = "webhook"
)

// defaultConfigYAML is written on first run.
const defaultConfigYAML = `# clipboard-sync configuration

port: 4719
log:
  level: info

monitor:
  enabled: false
  interval: 500ms

mirror:
  enabled: false
  # path: /path/to/cloud/folder
  interval: 5m

snapshot:
  theme_color: "#4F46E5"

notify:
  method: log

# admin:
#   username: admin
#   password_hash: <output of clipboard-sync hash-password>
`

type Config struct {
	DataDir string `mapstructure:"data_dir"`
	DBPath  string `mapstructure:"db_path"`
	FSPath  string `mapstructure:"fs_path"`
	Port    int    `mapstructure:"port"`
	BaseURL string `mapstructure:"base_url"`

	Log      LogConfig      `mapstructure:"log"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Preview  PreviewConfig  `mapstructure:"preview"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type MonitorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type MirrorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Path     string        `mapstructure:"path"`
	Interval time.Duration `mapstructure:"interval"`
}

type SnapshotConfig struct {
	Path       string `mapstructure:"path"`
	ThemeColor string `mapstructure:"theme_color"`
}

type AdminConfig struct {
	Username     string        `mapstructure:"username"`
	PasswordHash string        `mapstructure:"password_hash"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
}

type NotifyConfig struct {
	Method     string        `mapstructure:"method"`
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type PreviewConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

// DefaultDir is ~/.clipboard-sync.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, defaultDirName), nil
}

// SetDefaults registers a default for every key so that environment
// variables bind even when config.yaml omits them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "")
	v.SetDefault("db_path", "")
	v.SetDefault("fs_path", "")
	v.SetDefault("port", 4719)
	v.SetDefault("base_url", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("monitor.enabled", false)
	v.SetDefault("monitor.interval", 500*time.Millisecond)
	v.SetDefault("mirror.enabled", false)
	v.SetDefault("mirror.path", "")
	v.SetDefault("mirror.interval", 5*time.Minute)
	v.SetDefault("snapshot.path", "")
	v.SetDefault("snapshot.theme_color", "#4F46E5")
	v.SetDefault("admin.username", "")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("admin.session_ttl", 12*time.Hour)
	v.SetDefault("notify.method", NotifyLog)
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.timeout", 30*time.Second)
	v.SetDefault("preview.timeout", 10*time.Second)
	v.SetDefault("preview.user_agent", "clipboard-sync-linkpreview/1.0")
	v.SetDefault("preview.cache_ttl", time.Hour)
}

// Load reads config.yaml from configDir into v and decodes the result.
// A missing config file is not an error; a default one is written.
func Load(v *viper.Viper, configDir string) (*Config, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	SetDefaults(v)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.resolvePaths(configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolvePaths fills data-relative paths left empty.
func (c *Config) resolvePaths(configDir string) {
	if c.DataDir == "" {
		c.DataDir = configDir
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "clipboard.db")
	}
	if c.FSPath == "" {
		c.FSPath = filepath.Join(c.DataDir, "files")
	}
	if c.Snapshot.Path == "" {
		c.Snapshot.Path = filepath.Join(c.DataDir, "snapshot.json")
	}
	if c.BaseURL == "" {
		c.BaseURL = fmt.Sprintf("http://localhost:%d", c.Port)
	}
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	switch c.Notify.Method {
	case NotifyNone, NotifyLog:
	case NotifyWebhook:
		if c.Notify.WebhookURL == "" {
			return errors.New("config: notify.webhook_url is required for the webhook method")
		}
	default:
		return fmt.Errorf("config: unsupported notify.method %q", c.Notify.Method)
	}
	if c.Mirror.Enabled {
		if c.Mirror.Path == "" {
			return errors.New("config: mirror.path is required when mirror is enabled")
		}
		if c.Mirror.Interval < time.Second {
			return fmt.Errorf("config: mirror.interval %v is below one second", c.Mirror.Interval)
		}
	}
	if c.Monitor.Enabled && c.Monitor.Interval <= 0 {
		return fmt.Errorf("config: monitor.interval must be positive")
	}
	if (c.Admin.Username == "") != (c.Admin.PasswordHash == "") {
		return errors.New("config: admin.username and admin.password_hash must be set together")
	}
	return nil
}

// ensureDefaultConfigFile creates config.yaml if it does not exist.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
