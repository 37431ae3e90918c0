// Package app provides the application initialization and wiring.
package app

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/stockcharts/collageview/internal/domain"
	"github.com/stockcharts/collageview/internal/logging"
)

// EnvPrefix prefixes every environment override, e.g. COLLAGEVIEW_SERVER_ADDR.
const EnvPrefix = "COLLAGEVIEW"

// Config holds the application configuration.
type Config struct {
	Server struct {
		Addr            string        `mapstructure:"addr"`
		PublicDir       string        `mapstructure:"public_dir"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
		PageTitle       string        `mapstructure:"page_title"`
		CacheStatic     bool          `mapstructure:"cache_static"`
	} `mapstructure:"server"`

	Viewer struct {
		BaseURL       string        `mapstructure:"base_url"`
		FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
		SettleTimeout time.Duration `mapstructure:"settle_timeout"`
		SessionTTL    time.Duration `mapstructure:"session_ttl"`
	} `mapstructure:"viewer"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
		File   struct {
			Enabled    bool   `mapstructure:"enabled"`
			Path       string `mapstructure:"path"`
			MaxSize    int    `mapstructure:"max_size"`
			MaxBackups int    `mapstructure:"max_backups"`
			MaxAge     int    `mapstructure:"max_age"`
			Compress   bool   `mapstructure:"compress"`
		} `mapstructure:"file"`
	} `mapstructure:"logging"`
}

// LoggingConfig converts the logging section for logging.Setup.
func (c Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		File: logging.FileConfig{
			Enabled:    c.Logging.File.Enabled,
			Path:       c.Logging.File.Path,
			MaxSize:    c.Logging.File.MaxSize,
			MaxBackups: c.Logging.File.MaxBackups,
			MaxAge:     c.Logging.File.MaxAge,
			Compress:   c.Logging.File.Compress,
		},
	}
}

// ResolvedBaseURL returns viewer.base_url, or the host's own address when
// it is empty.
func (c Config) ResolvedBaseURL() string {
	if c.Viewer.BaseURL != "" {
		return c.Viewer.BaseURL
	}
	return selfBaseURL(c.Server.Addr)
}

func selfBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// Load reads the configuration from configPath (or the default search
// paths), the environment and an optional .env file.
func Load(configPath string) (*viper.Viper, Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	if err := loadConfig(v, configPath); err != nil {
		return nil, Config{}, fmt.Errorf("failed to load config: %w", err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, Config{}, err
	}

	return v, cfg, nil
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be defaulted.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Server.Addr) == "":
		return fmt.Errorf("%w: server.addr is required", domain.ErrInvalidConfig)
	case c.Server.ShutdownTimeout <= 0:
		return fmt.Errorf("%w: server.shutdown_timeout must be positive", domain.ErrInvalidConfig)
	case c.Viewer.FetchTimeout <= 0:
		return fmt.Errorf("%w: viewer.fetch_timeout must be positive", domain.ErrInvalidConfig)
	case c.Viewer.SettleTimeout <= 0:
		return fmt.Errorf("%w: viewer.settle_timeout must be positive", domain.ErrInvalidConfig)
	case c.Viewer.SessionTTL <= 0:
		return fmt.Errorf("%w: viewer.session_ttl must be positive", domain.ErrInvalidConfig)
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format must be console or json, got %q", domain.ErrInvalidConfig, c.Logging.Format)
	}

	return nil
}

func loadConfig(v *viper.Viper, configPath string) error {
	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.public_dir", "./public")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.page_title", domain.DefaultPageTitle)
	v.SetDefault("server.cache_static", false)
	v.SetDefault("viewer.base_url", "")
	v.SetDefault("viewer.fetch_timeout", "30s")
	v.SetDefault("viewer.settle_timeout", "35s")
	v.SetDefault("viewer.session_ttl", "2m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", "")
	v.SetDefault("logging.file.max_size", 100)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age", 28)
	v.SetDefault("logging.file.compress", true)

	ConfigureViper(v, configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return nil
}

// ConfigureViper points v at configPath, or at the default search paths
// when configPath is empty.
func ConfigureViper(v *viper.Viper, configPath string) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.SetConfigName("collageview")
	v.AddConfigPath("/etc/collageview")
	v.AddConfigPath("$HOME/.config/collageview")
	v.AddConfigPath(".")
}
