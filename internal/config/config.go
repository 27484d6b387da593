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

	ListenAddr             string        `mapstructure:"listen_addr"`
	ShutdownTimeoutSeconds int64         `mapstructure:"shutdown_timeout_seconds"`
	ShutdownTimeout        time.Duration `mapstructure:"-"`

	QuoteBaseURL       string        `mapstructure:"quote_base_url"`
	FundBaseURL        string        `mapstructure:"fund_base_url"`
	QuoteUserAgent     string        `mapstructure:"quote_user_agent"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`
	FundCheckStatus    bool          `mapstructure:"fund_check_status"`
}

const (
	DefaultQuoteBaseURL   = "https://query1.finance.yahoo.com/v8/finance/chart"
	DefaultFundBaseURL    = "https://toushin-lib.fwg.ne.jp/FdsWeb/FDST030000/csv-file-download"
	DefaultQuoteUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "market-proxy")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("listen_addr", "127.0.0.1:3001")
	v.SetDefault("shutdown_timeout_seconds", 5)
	v.SetDefault("quote_base_url", DefaultQuoteBaseURL)
	v.SetDefault("fund_base_url", DefaultFundBaseURL)
	v.SetDefault("quote_user_agent", DefaultQuoteUserAgent)
	v.SetDefault("http_timeout_seconds", 0) // 0 keeps the client library default
	v.SetDefault("fund_check_status", false)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.QuoteBaseURL = strings.TrimRight(strings.TrimSpace(cfg.QuoteBaseURL), "/")
	cfg.FundBaseURL = strings.TrimSpace(cfg.FundBaseURL)
	if cfg.QuoteBaseURL == "" {
		return nil, fmt.Errorf("invalid quote_base_url (must not be empty)")
	}
	if cfg.FundBaseURL == "" {
		return nil, fmt.Errorf("invalid fund_base_url (must not be empty)")
	}

	if cfg.HTTPTimeoutSeconds < 0 {
		return nil, fmt.Errorf("invalid http_timeout_seconds (must be zero or positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.ShutdownTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid shutdown_timeout_seconds (must be positive seconds)")
	}
	cfg.ShutdownTimeout = time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second

	return &cfg, nil
}
