// Package config loads application configuration from an optional
// config.yaml, environment variables, and defaults.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store,omitempty" mapstructure:"store"`
	Google GoogleConfig `yaml:"google,omitempty" mapstructure:"google"`
	Crawl  CrawlConfig  `yaml:"crawl,omitempty" mapstructure:"crawl"`
	Server ServerConfig `yaml:"server,omitempty" mapstructure:"server"`
	Log    LogConfig    `yaml:"log,omitempty" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver,omitempty" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url,omitempty" mapstructure:"database_url"`
}

// GoogleConfig holds Places API credentials and client tuning.
type GoogleConfig struct {
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs,omitempty" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`
	PageDelayMS int     `yaml:"page_delay_ms,omitempty" mapstructure:"page_delay_ms"`
}

// CrawlConfig holds the default crawl request parameters applied when a
// /crawl call omits them.
type CrawlConfig struct {
	DefaultLocation string   `yaml:"default_location,omitempty" mapstructure:"default_location"`
	DefaultRadiusKM float64  `yaml:"default_radius_km,omitempty" mapstructure:"default_radius_km"`
	DefaultTypes    []string `yaml:"default_types,omitempty" mapstructure:"default_types"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port         int `yaml:"port,omitempty" mapstructure:"port"`
	EventsPollMS int `yaml:"events_poll_ms,omitempty" mapstructure:"events_poll_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level,omitempty" mapstructure:"level"`
	Format string `yaml:"format,omitempty" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys without a natural default still need one registered so
	// AutomaticEnv picks them up during Unmarshal.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "places.db")
	v.SetDefault("google.api_key", "")
	v.SetDefault("google.base_url", "")
	v.SetDefault("google.timeout_secs", 10)
	v.SetDefault("google.rate_limit", 10)
	v.SetDefault("google.page_delay_ms", 2000)
	v.SetDefault("crawl.default_location", "50.0405,-110.6766")
	v.SetDefault("crawl.default_radius_km", 20)
	v.SetDefault("crawl.default_types", []string{"restaurant"})
	v.SetDefault("server.port", 6005)
	v.SetDefault("server.events_poll_ms", 1000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
