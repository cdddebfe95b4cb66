package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	APIKey            string  `mapstructure:"api_key"`
	NewsBaseURL       string  `mapstructure:"news_base_url"`
	NewsEndpoint      string  `mapstructure:"news_endpoint"`
	NewsCountry       string  `mapstructure:"news_country"`
	UserAgent         string  `mapstructure:"user_agent"`
	HTTPTimeoutSecs   int64   `mapstructure:"http_timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	TickIntervalMs     int64 `mapstructure:"tick_interval_ms"`
	ResultBuffer       int   `mapstructure:"result_buffer"`
	EnrichDescriptions bool  `mapstructure:"enrich_descriptions"`

	SettingsFile   string `mapstructure:"settings_file"`
	PublishersFile string `mapstructure:"publishers_file"`
	MetricsAddr    string `mapstructure:"metrics_addr"`

	StorageType           string `mapstructure:"storage_type"`
	BBoltPath             string `mapstructure:"bbolt_path"`
	StorageTTLSeconds     int64  `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds int64  `mapstructure:"storage_cleanup_interval_seconds"`

	HTTPTimeout            time.Duration `mapstructure:"-"`
	TickInterval           time.Duration `mapstructure:"-"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "headlines")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("api_key", "")
	v.SetDefault("news_base_url", "https://newsapi.org/v2")
	v.SetDefault("news_endpoint", "top-headlines")
	v.SetDefault("news_country", "us")
	v.SetDefault("user_agent", "headlines")
	v.SetDefault("http_timeout_seconds", 30)
	v.SetDefault("requests_per_second", 0)
	v.SetDefault("tick_interval_ms", 100)
	v.SetDefault("result_buffer", 256)
	v.SetDefault("enrich_descriptions", false)
	v.SetDefault("settings_file", "./data/settings.yaml")
	v.SetDefault("publishers_file", "")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("storage_type", "none")
	v.SetDefault("bbolt_path", "./data/cache.db")
	v.SetDefault("storage_ttl_seconds", int64((5*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	if cfg.HTTPTimeoutSecs <= 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSecs) * time.Second

	if cfg.TickIntervalMs <= 0 {
		return nil, fmt.Errorf("invalid tick_interval_ms (must be positive milliseconds)")
	}
	cfg.TickInterval = time.Duration(cfg.TickIntervalMs) * time.Millisecond

	if cfg.ResultBuffer <= 0 {
		return nil, fmt.Errorf("invalid result_buffer (must be positive)")
	}
	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("invalid requests_per_second (must not be negative)")
	}
	if strings.TrimSpace(cfg.NewsCountry) == "" {
		return nil, fmt.Errorf("news_country is required")
	}

	if cfg.StorageTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}

// Redacted returns a copy safe for logging.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = "***"
	}
	return c
}
