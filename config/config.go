package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrInvalidInterval = errors.New("monitor interval must be positive")
	ErrInvalidLimit    = errors.New("market limit must be positive")
	ErrMissingOutput   = errors.New("monitor output file is required")
	// History file names have one-second resolution.
	ErrHistoryInterval   = errors.New("monitor interval must be at least 1s when history is stored")
	ErrMissingHistoryDir = errors.New("monitor history dir is required when history is stored")
)

type Config struct {
	Market  MarketConfig  `mapstructure:"market"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Log     LogConfig     `mapstructure:"log"`
}

// MarketConfig describes the DarkerDB market endpoint.
type MarketConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// BaseURLParameter names an SSM parameter holding the base URL (optional).
	BaseURLParameter string        `mapstructure:"base_url_parameter"`
	Limit            int           `mapstructure:"limit"`
	Condense         bool          `mapstructure:"condense"`
	Timeout          time.Duration `mapstructure:"timeout"` // 0 keeps the transport default
}

type MonitorConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	OutputFile   string        `mapstructure:"output_file"`
	HistoryDir   string        `mapstructure:"history_dir"`
	StoreHistory bool          `mapstructure:"store_history"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("market.base_url", "https://api.darkerdb.com")
	v.SetDefault("market.base_url_parameter", "")
	v.SetDefault("market.limit", 100)
	v.SetDefault("market.condense", true)
	v.SetDefault("market.timeout", time.Duration(0))

	v.SetDefault("monitor.interval", 60*time.Second)
	v.SetDefault("monitor.output_file", "data/raw/latest_market_data.json")
	v.SetDefault("monitor.history_dir", "data/raw")
	v.SetDefault("monitor.store_history", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.environment", "dev")
}

// Load loads application configuration using Viper.
// An explicit path must exist; otherwise config.yaml is looked up in the
// working directory and ./config, and defaults apply when none is found.
// Environment variables override file values (e.g. MONITOR_INTERVAL).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Support environment variables with dot notation (e.g., MARKET_BASE_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, c.Monitor.Interval)
	}
	if c.Market.Limit <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, c.Market.Limit)
	}
	if c.Monitor.OutputFile == "" {
		return ErrMissingOutput
	}
	if c.Monitor.StoreHistory {
		if c.Monitor.Interval < time.Second {
			return fmt.Errorf("%w: %s", ErrHistoryInterval, c.Monitor.Interval)
		}
		if c.Monitor.HistoryDir == "" {
			return ErrMissingHistoryDir
		}
	}
	return nil
}
