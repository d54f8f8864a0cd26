package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// Config holds all runtime configuration for the metaexchange server.
type Config struct {
	Port               int           `mapstructure:"port"`
	LogLevel           string        `mapstructure:"log_level"`
	LogEncoding        string        `mapstructure:"log_encoding"`
	OrderBookFile      string        `mapstructure:"order_book_file"`
	OrderBookLimit     int           `mapstructure:"order_book_limit"`
	BaseBalance        float64       `mapstructure:"base_balance"`
	QuoteBalance       float64       `mapstructure:"quote_balance"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
}

// keys lists every configuration key. Each is read from the upper-cased
// environment variable of the same name (PORT, LOG_LEVEL, ...).
var keys = []string{
	"port", "log_level", "log_encoding", "order_book_file", "order_book_limit",
	"base_balance", "quote_balance", "read_timeout", "write_timeout",
	"idle_timeout", "shutdown_timeout", "cors_allowed_origins",
}

// Load reads configuration from a .env file in the working directory (if
// present), an optional YAML file named by CONFIG_FILE, and environment
// variables, applies defaults, and validates values. Environment
// variables take precedence over the file.
func Load() (*Config, error) {
	_ = godotenv.Load() // a missing .env is not an error

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k, strings.ToUpper(k)); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	if path := v.GetString("config_file"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				return nil, fmt.Errorf("config file %q not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid value at once.
func (c *Config) Validate() error {
	var err error
	if c.Port <= 0 || c.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("invalid PORT: %d", c.Port))
	}
	if !isValidLogLevel(c.LogLevel) {
		err = multierr.Append(err, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", c.LogLevel))
	}
	if c.LogEncoding != "json" && c.LogEncoding != "console" {
		err = multierr.Append(err, fmt.Errorf("invalid LOG_ENCODING: %q, must be json or console", c.LogEncoding))
	}
	if c.OrderBookFile == "" {
		err = multierr.Append(err, errors.New("ORDER_BOOK_FILE is required"))
	}
	if c.OrderBookLimit < 0 {
		err = multierr.Append(err, fmt.Errorf("invalid ORDER_BOOK_LIMIT: %d, must be >= 0", c.OrderBookLimit))
	}
	if c.BaseBalance < 0 {
		err = multierr.Append(err, fmt.Errorf("invalid BASE_BALANCE: %v, must be >= 0", c.BaseBalance))
	}
	if c.QuoteBalance < 0 {
		err = multierr.Append(err, fmt.Errorf("invalid QUOTE_BALANCE: %v, must be >= 0", c.QuoteBalance))
	}
	for name, d := range map[string]time.Duration{
		"READ_TIMEOUT":     c.ReadTimeout,
		"WRITE_TIMEOUT":    c.WriteTimeout,
		"IDLE_TIMEOUT":     c.IdleTimeout,
		"SHUTDOWN_TIMEOUT": c.ShutdownTimeout,
	} {
		if d <= 0 {
			err = multierr.Append(err, fmt.Errorf("invalid %s: %v, must be > 0", name, d))
		}
	}
	return err
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_encoding", "json")
	v.SetDefault("order_book_file", "")
	v.SetDefault("order_book_limit", 0)
	v.SetDefault("base_balance", 5.0)
	v.SetDefault("quote_balance", 10000.0)
	v.SetDefault("read_timeout", "5s")
	v.SetDefault("write_timeout", "10s")
	v.SetDefault("idle_timeout", "60s")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("cors_allowed_origins", []string{"*"})
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
